package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"syscall"

	"golang.org/x/sys/unix"

	"jobshell/internal/config"
	"jobshell/internal/history"
	"jobshell/internal/job"
	"jobshell/internal/logging"
	"jobshell/internal/parser"
	"jobshell/internal/plugin"
	"jobshell/internal/signals"
	"jobshell/internal/tty"
)

// Options replaces the shell's collaborators. Zero fields get defaults.
type Options struct {
	Stdin   *os.File
	Stdout  *os.File
	Stderr  *os.File
	Reader  LineReader
	Logger  *slog.Logger
	Plugins *plugin.Registry
	History *history.History
	// Exit terminates the process after a fatal error.
	Exit func(code int)
}

// Shell is the job-control context: it owns the job table, the terminal and
// the child-status mask that serializes the reaper against the main flow.
type Shell struct {
	config  *config.Config
	log     *slog.Logger
	history *history.History
	plugins *plugin.Registry
	reader  LineReader
	term    *tty.Terminal
	mask    signals.Mask
	jobs    *job.Table

	stdin  *os.File
	stdout *os.File
	stderr *os.File

	// notices are printed before the next prompt. Guarded by mask.
	notices []string

	exit    func(code int)
	cancel  context.CancelFunc
	reaping <-chan struct{}
}

var errExit = errors.New("exit")

func New(cfg *config.Config, opts Options) (*Shell, error) {
	s := &Shell{
		config:  cfg,
		log:     opts.Logger,
		history: opts.History,
		plugins: opts.Plugins,
		reader:  opts.Reader,
		stdin:   opts.Stdin,
		stdout:  opts.Stdout,
		stderr:  opts.Stderr,
		exit:    opts.Exit,
	}
	if s.log == nil {
		s.log = logging.Discard()
	}
	if s.stdin == nil {
		s.stdin = os.Stdin
	}
	if s.stdout == nil {
		s.stdout = os.Stdout
	}
	if s.stderr == nil {
		s.stderr = os.Stderr
	}
	if s.exit == nil {
		s.exit = os.Exit
	}
	s.jobs = job.NewTable(&s.mask)

	term, err := tty.Init(s.stdin, s.log)
	if err != nil {
		return nil, fmt.Errorf("error initializing terminal: %w", err)
	}
	s.term = term

	if s.history == nil {
		s.history, err = history.New(cfg.HistoryFile, cfg.HistorySize)
		if err != nil {
			return nil, fmt.Errorf("error initializing history: %w", err)
		}
	}

	if s.plugins == nil {
		s.plugins = plugin.NewRegistry()
		if cfg.PluginDir != "" {
			if err := s.plugins.LoadDir(cfg.PluginDir); err != nil {
				return nil, fmt.Errorf("error loading plugins: %w", err)
			}
		}
	}

	if s.reader == nil {
		s.reader, err = newReadline(s.stdin, s.stdout, s.stderr, s.history)
		if err != nil {
			return nil, fmt.Errorf("error initializing readline: %w", err)
		}
	}

	return s, nil
}

// start installs the shell's signal handlers. Terminal-generated signals
// are caught and dropped so only jobs react to them; SIGCHLD runs the reaper.
func (s *Shell) start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	if s.term.Interactive() {
		signals.Catch(ctx, unix.SIGINT, unix.SIGQUIT, unix.SIGTSTP, unix.SIGTTIN, unix.SIGTTOU)
	}
	s.reaping = signals.Handle(ctx, &s.mask, func(os.Signal) {
		s.reapPending()
	}, unix.SIGCHLD)
}

// Close stops the reaper, gives the terminal back to the shell and releases
// the line reader.
func (s *Shell) Close() error {
	if s.cancel != nil {
		s.cancel()
		<-s.reaping
		s.cancel = nil
	}
	if err := s.term.GrantShell(); err != nil {
		s.log.Warn("restoring terminal", "err", err)
	}
	return s.reader.Close()
}

// Run reads and executes lines until end of input.
func (s *Shell) Run(ctx context.Context) error {
	s.start(ctx)
	defer s.Close()

	for {
		s.flushNotices()

		var prompt string
		if s.term.Interactive() {
			prompt = s.plugins.BuildPrompt(s.config.Prompt)
		}
		line, err := s.reader.ReadLine(prompt)
		if errors.Is(err, ErrInterrupt) {
			continue
		} else if errors.Is(err, io.EOF) {
			return nil
		} else if err != nil {
			return fmt.Errorf("reading input: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if err := s.history.Add(line); err != nil {
			s.log.Warn("saving history", "err", err)
		}

		if err := s.Execute(line); errors.Is(err, errExit) {
			return nil
		} else if err != nil {
			fmt.Fprintf(s.stderr, "jobshell: %v\n", err)
		}
	}
}

// Execute runs every pipeline of line in order. Built-in failures are
// reported and do not stop the remaining pipelines.
func (s *Shell) Execute(line string) error {
	cl, err := parser.Parse(line)
	if err != nil {
		return err
	}

	// Built-ins run in the shell process and cannot take part in a pipe.
	for _, p := range cl.Pipelines {
		if len(p.Commands) < 2 {
			continue
		}
		for _, c := range p.Commands {
			if isBuiltin(c.Argv[0]) {
				return fmt.Errorf("%w: built-in %s in a pipeline", parser.ErrSyntax, c.Argv[0])
			}
		}
	}

	for _, p := range cl.Pipelines {
		if ok, err := s.executeBuiltin(p.Commands[0].Argv); ok {
			if errors.Is(err, errExit) {
				return err
			}
			if err != nil {
				fmt.Fprintln(s.stderr, err)
			}
			continue
		}
		s.launch(p)
	}
	return nil
}

func (s *Shell) flushNotices() {
	s.mask.Block()
	notices := s.notices
	s.notices = nil
	s.mask.Unblock()

	for _, n := range notices {
		fmt.Fprintln(s.stdout, n)
	}
}

// fatal reports an unrecoverable condition and terminates the shell.
func (s *Shell) fatal(err error) {
	s.log.Error("fatal", "err", err)
	fmt.Fprintf(s.stderr, "jobshell: %v\n", err)
	_ = s.term.Reset()
	s.exit(1)
}

// grantShell returns the terminal to the shell's process group.
func (s *Shell) grantShell() {
	if err := s.term.GrantShell(); err != nil {
		s.fatal(err)
	}
}

// signalJob delivers sig to every process in j's group.
func (s *Shell) signalJob(j *job.Job, sig syscall.Signal) error {
	if err := unix.Kill(-j.Pgid, sig); err != nil {
		return fmt.Errorf("job %d: %s: %w", j.ID, unix.SignalName(sig), err)
	}
	s.log.Debug("signal sent", "job", j.ID, "pgid", j.Pgid, "signal", unix.SignalName(sig))
	return nil
}
