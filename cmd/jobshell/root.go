package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"jobshell/internal/config"
	"jobshell/internal/logging"
	"jobshell/internal/shell"
)

func NewRootCmd() *cobra.Command {
	var (
		configFile string
		pluginDir  string
		debug      bool
	)

	root := &cobra.Command{
		Use:           "jobshell",
		Short:         "Interactive shell with job control",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configFile)
			if err != nil {
				return err
			}
			if pluginDir != "" {
				cfg.PluginDir = pluginDir
			}
			if debug {
				cfg.LogLevel = "debug"
			}

			log, closer, err := logging.New(cfg.LogFile, cfg.LogLevel)
			if err != nil {
				return err
			}
			defer closer.Close()

			s, err := shell.New(cfg, shell.Options{Logger: log})
			if err != nil {
				return fmt.Errorf("error initializing shell: %w", err)
			}
			log.Info("shell started", "config", configFile)
			return s.Run(cmd.Context())
		},
	}

	root.Flags().StringVarP(&configFile, "config", "c", "~/.jobshell.yml", "configuration file")
	root.Flags().StringVarP(&pluginDir, "plugin-dir", "p", "", "directory of prompt plugins (*.so)")
	root.Flags().BoolVar(&debug, "debug", false, "log at debug level")
	return root
}
