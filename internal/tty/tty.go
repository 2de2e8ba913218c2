// Package tty owns the shell's controlling terminal. All changes of the
// terminal's foreground process group go through Terminal.Grant.
package tty

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"syscall"
	"unsafe"

	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

// State is a snapshot of the terminal line discipline.
type State = term.State

type Terminal struct {
	fd          int
	interactive bool
	shellPgid   int
	sane        *State
	log         *slog.Logger
}

// Init prepares f as the shell's terminal. When f is a terminal the shell
// waits until it is in the foreground, becomes its own process group leader,
// takes the terminal and records its line discipline. Init must run before
// SIGTTIN is caught. When f is not a terminal the returned Terminal is
// inert: Grant does nothing and Interactive reports false.
func Init(f *os.File, log *slog.Logger) (*Terminal, error) {
	t := &Terminal{
		fd:        int(f.Fd()),
		shellPgid: unix.Getpgrp(),
		log:       log,
	}
	if !term.IsTerminal(t.fd) {
		log.Debug("stdin is not a terminal, job control of the terminal disabled")
		return t, nil
	}
	t.interactive = true

	for {
		owner, err := t.Owner()
		if err != nil {
			return nil, err
		}
		if owner == t.shellPgid {
			break
		}
		// Stops us until someone puts us in the foreground.
		_ = unix.Kill(-t.shellPgid, unix.SIGTTIN)
	}

	if pid := os.Getpid(); t.shellPgid != pid {
		if err := unix.Setpgid(0, 0); err != nil {
			return nil, fmt.Errorf("setpgid: %w", err)
		}
		t.shellPgid = pid
	}
	if err := t.Grant(t.shellPgid, nil); err != nil {
		return nil, err
	}

	sane, err := t.Save()
	if err != nil {
		return nil, err
	}
	t.sane = sane
	log.Debug("terminal initialized", "fd", t.fd, "pgid", t.shellPgid)
	return t, nil
}

func (t *Terminal) Fd() int           { return t.fd }
func (t *Terminal) Interactive() bool { return t.interactive }
func (t *Terminal) ShellPgid() int    { return t.shellPgid }

// Save captures the current line discipline.
func (t *Terminal) Save() (*State, error) {
	if !t.interactive {
		return nil, nil
	}
	st, err := term.GetState(t.fd)
	if err != nil {
		return nil, fmt.Errorf("saving terminal state: %w", err)
	}
	return st, nil
}

// Restore reinstates a line discipline captured by Save. A nil state is a
// no-op.
func (t *Terminal) Restore(st *State) error {
	if !t.interactive || st == nil {
		return nil
	}
	if err := term.Restore(t.fd, st); err != nil {
		return fmt.Errorf("restoring terminal state: %w", err)
	}
	return nil
}

// Reset restores the line discipline recorded when the shell started.
func (t *Terminal) Reset() error {
	return t.Restore(t.sane)
}

// Owner returns the terminal's foreground process group.
func (t *Terminal) Owner() (int, error) {
	pgid, err := unix.IoctlGetInt(t.fd, unix.TIOCGPGRP)
	if err != nil {
		return 0, fmt.Errorf("tcgetpgrp: %w", err)
	}
	return pgid, nil
}

// Grant makes pgid the terminal's foreground process group and, if st is
// not nil, restores that line discipline. SIGTTOU is blocked on the calling
// thread meanwhile, so a shell that is currently in the background can take
// the terminal back without being signalled. Callers treat an error as
// fatal.
func (t *Terminal) Grant(pgid int, st *State) error {
	if !t.interactive {
		return nil
	}

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	var set, old unix.Sigset_t
	sigaddset(&set, unix.SIGTTOU)
	if err := unix.PthreadSigmask(unix.SIG_BLOCK, &set, &old); err != nil {
		return fmt.Errorf("blocking SIGTTOU: %w", err)
	}
	defer unix.PthreadSigmask(unix.SIG_SETMASK, &old, nil)

	if err := unix.IoctlSetPointerInt(t.fd, unix.TIOCSPGRP, pgid); err != nil {
		return fmt.Errorf("tcsetpgrp %d: %w", pgid, err)
	}
	if err := t.Restore(st); err != nil {
		return err
	}
	t.log.Debug("terminal granted", "pgid", pgid, "restore", st != nil)
	return nil
}

// GrantShell hands the terminal back to the shell with its sane line
// discipline.
func (t *Terminal) GrantShell() error {
	return t.Grant(t.shellPgid, t.sane)
}

// ProcAttr returns the attributes for a pipeline stage joining pgid (0 makes
// the stage its own group leader). When foreground is set and the shell is
// interactive, the stage also puts its group in the foreground of the
// terminal before exec, so it never runs as a background group.
func (t *Terminal) ProcAttr(pgid int, foreground bool) *syscall.SysProcAttr {
	attr := &syscall.SysProcAttr{Setpgid: true, Pgid: pgid}
	if foreground && t.interactive {
		attr.Foreground = true
		attr.Ctty = t.fd
	}
	return attr
}

func sigaddset(set *unix.Sigset_t, sig syscall.Signal) {
	bits := uint(unsafe.Sizeof(set.Val[0]) * 8)
	n := uint(sig) - 1
	set.Val[n/bits] |= 1 << (n % bits)
}
