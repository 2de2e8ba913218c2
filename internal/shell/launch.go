package shell

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"

	"jobshell/internal/job"
	"jobshell/internal/parser"
)

// stageError is a failure confined to one pipeline stage. The stage is
// reported and treated as if it had exited.
type stageError struct {
	name string
	err  error
}

func (e *stageError) Error() string { return e.name + ": " + e.err.Error() }
func (e *stageError) Unwrap() error { return e.err }

// launch registers p as a job and starts its stages in one process group.
// A foreground job is waited for before launch returns.
func (s *Shell) launch(p *parser.Pipeline) {
	s.mask.Block()
	defer s.mask.Unblock()

	j := newJob(p)
	id := s.jobs.Register(j)
	s.log.Debug("job registered", "job", id, "text", j.Text, "background", j.Background)

	// Stages are started from a copy: a failed stage is dropped from j.
	stages := append([]*job.Command(nil), j.Commands...)
	var prevRead *os.File
	for i, cmd := range stages {
		var pipeRead, pipeWrite *os.File
		if i < len(stages)-1 {
			var err error
			pipeRead, pipeWrite, err = os.Pipe()
			if err != nil {
				s.fatal(fmt.Errorf("pipe: %w", err))
				return
			}
		}

		err := s.startStage(j, cmd, prevRead, pipeWrite)

		// The child holds its own copies now.
		if prevRead != nil {
			prevRead.Close()
		}
		if pipeWrite != nil {
			pipeWrite.Close()
		}
		prevRead = pipeRead

		var se *stageError
		if errors.As(err, &se) {
			fmt.Fprintf(s.stderr, "jobshell: %v\n", se)
			s.log.Debug("stage failed", "job", id, "stage", i, "err", se.err)
			s.jobs.Drop(j, cmd)
		} else if err != nil {
			s.fatal(err)
			return
		}
	}
	if prevRead != nil {
		prevRead.Close()
	}

	if _, ok := s.jobs.Lookup(id); !ok {
		s.log.Debug("job never started", "job", id)
		return
	}

	if j.Status == job.Background {
		fmt.Fprintf(s.stdout, "[%d] %d\n", id, j.Pgid)
		return
	}
	s.waitForeground(id)
	s.grantShell()
}

// startStage starts cmd as a member of j's process group, reading from in
// and writing to out unless a redirection replaces them. Nil in and out
// mean the shell's own descriptors.
func (s *Shell) startStage(j *job.Job, cmd *job.Command, in, out *os.File) error {
	name := cmd.Argv[0]
	path, err := exec.LookPath(name)
	if errors.Is(err, exec.ErrDot) {
		err = nil
	}
	if err != nil {
		return &stageError{name: name, err: errors.New("command not found")}
	}

	if in == nil {
		in = s.stdin
	}
	if out == nil {
		out = s.stdout
	}
	if cmd.Input != "" {
		f, err := os.Open(cmd.Input)
		if err != nil {
			return &stageError{name: name, err: err}
		}
		defer f.Close()
		in = f
	}
	if cmd.Output != "" {
		flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
		if cmd.Append {
			flags = os.O_WRONLY | os.O_CREATE | os.O_APPEND
		}
		f, err := os.OpenFile(cmd.Output, flags, 0o644)
		if err != nil {
			return &stageError{name: name, err: err}
		}
		defer f.Close()
		out = f
	}

	// The first stage started leads the group and, for a foreground job,
	// takes the terminal itself before exec.
	leader := j.Pgid == -1
	pgid := 0
	if !leader {
		pgid = j.Pgid
	}
	attr := &syscall.ProcAttr{
		Env:   os.Environ(),
		Files: []uintptr{in.Fd(), out.Fd(), s.stderr.Fd()},
		Sys:   s.term.ProcAttr(pgid, leader && j.Status == job.Foreground),
	}

	pid, err := syscall.ForkExec(path, cmd.Argv, attr)
	if errors.Is(err, syscall.EAGAIN) || errors.Is(err, syscall.ENOMEM) {
		return fmt.Errorf("fork: %w", err)
	} else if err != nil {
		return &stageError{name: name, err: err}
	}
	j.SetPid(cmd, pid)

	// Repeat the child's setpgid so the group exists whichever side runs
	// first. EACCES means the child has already exec'd.
	if err := unix.Setpgid(pid, j.Pgid); err != nil &&
		!errors.Is(err, unix.EACCES) && !errors.Is(err, unix.ESRCH) {
		return fmt.Errorf("setpgid %d: %w", pid, err)
	}
	if leader && j.Status == job.Foreground {
		if err := s.term.Grant(j.Pgid, nil); err != nil {
			return err
		}
	}
	s.log.Debug("stage started", "job", j.ID, "argv", cmd.Argv, "pid", pid, "pgid", j.Pgid)
	return nil
}
