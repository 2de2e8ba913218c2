package shell

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"

	"jobshell/internal/job"
)

var (
	ErrMissingJobID = errors.New("job id required")
	ErrBadJobID     = errors.New("invalid job id")
)

var builtinNames = map[string]bool{
	"jobs": true, "fg": true, "bg": true, "kill": true, "stop": true,
	"cd": true, "history": true, "exit": true,
}

func isBuiltin(name string) bool {
	return builtinNames[name]
}

// executeBuiltin runs args if it names a built-in. It reports whether it
// did; errors are already prefixed with the built-in's name.
func (s *Shell) executeBuiltin(args []string) (bool, error) {
	var err error
	switch args[0] {
	case "jobs":
		s.listJobs()
	case "fg":
		err = s.foreground(args[1:])
	case "bg":
		err = s.background(args[1:])
	case "kill":
		err = s.killJob(args[1:])
	case "stop":
		err = s.stopJob(args[1:])
	case "cd":
		err = s.changeDirectory(args[1:])
	case "history":
		s.showHistory()
	case "exit":
		return true, errExit
	default:
		return false, nil
	}
	s.log.Debug("builtin", "argv", args, "err", err)
	if err != nil {
		return true, fmt.Errorf("%s: %w", args[0], err)
	}
	return true, nil
}

// parseJobID accepts "N" or "%N".
func parseJobID(args []string) (int, error) {
	if len(args) == 0 {
		return 0, ErrMissingJobID
	}
	id, err := strconv.Atoi(strings.TrimPrefix(args[0], "%"))
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%q: %w", args[0], ErrBadJobID)
	}
	return id, nil
}

func (s *Shell) listJobs() {
	s.mask.Block()
	defer s.mask.Unblock()
	for _, j := range s.jobs.List() {
		fmt.Fprintln(s.stdout, statusLine(j))
	}
}

func (s *Shell) foreground(args []string) error {
	id, err := parseJobID(args)
	if err != nil {
		return err
	}

	s.mask.Block()
	defer s.mask.Unblock()

	j, err := s.jobs.Get(id)
	if err != nil {
		return err
	}
	if fg := s.jobs.Foreground(); fg != nil && fg != j {
		return fmt.Errorf("job %d: %w", fg.ID, job.ErrForegroundBusy)
	}

	fmt.Fprintln(s.stdout, j.Text)
	if err := s.term.Grant(j.Pgid, j.TTY); err != nil {
		s.fatal(err)
		return nil
	}
	if j.Status == job.Stopped {
		if err := s.signalJob(j, unix.SIGCONT); err != nil {
			s.grantShell()
			return err
		}
	}
	if _, err := s.jobs.Resume(j, true); err != nil {
		return err
	}

	s.waitForeground(id)
	s.grantShell()
	return nil
}

func (s *Shell) background(args []string) error {
	id, err := parseJobID(args)
	if err != nil {
		return err
	}

	s.mask.Block()
	defer s.mask.Unblock()

	j, err := s.jobs.Get(id)
	if err != nil {
		return err
	}
	if err := s.signalJob(j, unix.SIGCONT); err != nil {
		return err
	}
	_, err = s.jobs.Resume(j, false)
	return err
}

func (s *Shell) killJob(args []string) error {
	id, err := parseJobID(args)
	if err != nil {
		return err
	}

	s.mask.Block()
	defer s.mask.Unblock()

	j, err := s.jobs.Get(id)
	if err != nil {
		return err
	}
	if err := s.signalJob(j, unix.SIGKILL); err != nil {
		return err
	}
	s.jobs.Remove(id)
	return nil
}

func (s *Shell) stopJob(args []string) error {
	id, err := parseJobID(args)
	if err != nil {
		return err
	}

	s.mask.Block()
	defer s.mask.Unblock()

	j, err := s.jobs.Get(id)
	if err != nil {
		return err
	}
	return s.signalJob(j, unix.SIGSTOP)
}

func (s *Shell) changeDirectory(args []string) error {
	var dir string
	if len(args) == 0 {
		dir = s.config.HomeDir
	} else {
		dir = args[0]
	}
	return os.Chdir(dir)
}

func (s *Shell) showHistory() {
	for i, cmd := range s.history.GetAll() {
		fmt.Fprintf(s.stdout, "%d: %s\n", i+1, cmd)
	}
}
