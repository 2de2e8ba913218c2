// Package job holds the shell's job bookkeeping: jobs, their commands and
// the table that tracks them. It performs no system calls; the shell applies
// the side effects each transition asks for.
//
// A job moves between three states:
//
//	from        event      to          side effect performed by the shell
//	----------  ---------  ----------  ------------------------------------------
//	(new)       launch     Foreground  terminal granted to the job's group
//	(new)       launch &   Background  "[id] pgid" printed
//	Foreground  stop       Stopped     terminal state saved, terminal to the shell
//	Background  stop       Stopped     terminal state saved
//	Stopped     fg         Foreground  terminal granted with saved state, SIGCONT
//	Background  fg         Foreground  terminal granted with saved state
//	Stopped     bg         Background  SIGCONT
//	any         exit       (same)      command removed, job removed when empty
//	Foreground  interrupt  (same)      command removed, terminal to the shell
package job

import (
	"jobshell/internal/tty"
)

type Status int

const (
	Foreground Status = iota
	Background
	Stopped
)

func (s Status) String() string {
	switch s {
	case Foreground:
		return "Foreground"
	case Background:
		return "Background"
	case Stopped:
		return "Stopped"
	}
	return "Unknown"
}

// Label is the status as shown by the jobs built-in.
func (s Status) Label() string {
	if s == Stopped {
		return "Stopped"
	}
	return "Running"
}

// Command is one stage of a job.
type Command struct {
	Argv   []string
	Pid    int
	Input  string
	Output string
	Append bool
}

type Job struct {
	ID   int
	Pgid int
	// Commands shrinks as stages exit; it never grows after the job is
	// registered.
	Commands   []*Command
	Status     Status
	Background bool
	// Text is the command line as submitted.
	Text string
	// TTY is the line discipline captured when the job was last stopped.
	TTY *tty.State
}

// New builds an unregistered job. Its process group is unset (-1) until the
// first stage is forked.
func New(text string, background bool, cmds []*Command) *Job {
	status := Foreground
	if background {
		status = Background
	}
	return &Job{
		Pgid:       -1,
		Commands:   cmds,
		Background: background,
		Text:       text,
		Status:     status,
	}
}

// SetPid records the pid of cmd. The first recorded pid becomes the job's
// process group.
func (j *Job) SetPid(cmd *Command, pid int) {
	cmd.Pid = pid
	if j.Pgid == -1 {
		j.Pgid = pid
	}
}

// CommandByPid returns the index of the command running as pid, or -1.
func (j *Job) CommandByPid(pid int) int {
	for i, c := range j.Commands {
		if c.Pid == pid {
			return i
		}
	}
	return -1
}

// Drop removes cmd, which has exited or was never started. It reports
// whether the job has no commands left.
func (j *Job) Drop(cmd *Command) bool {
	for i, c := range j.Commands {
		if c == cmd {
			j.Commands = append(j.Commands[:i:i], j.Commands[i+1:]...)
			break
		}
	}
	return j.Done()
}

// Done reports whether every stage has exited.
func (j *Job) Done() bool {
	return len(j.Commands) == 0
}

// Stop records that the job's group was suspended. It reports whether the
// job held the terminal, in which case the terminal must return to the shell.
func (j *Job) Stop(st *tty.State) (wasForeground bool) {
	wasForeground = j.Status == Foreground
	j.Status = Stopped
	j.TTY = st
	return wasForeground
}

// Resume moves the job to the foreground or background. It reports whether
// the job was stopped and needs SIGCONT.
func (j *Job) Resume(foreground bool) (wasStopped bool) {
	wasStopped = j.Status == Stopped
	j.Background = !foreground
	if foreground {
		j.Status = Foreground
	} else {
		j.Status = Background
	}
	return wasStopped
}

// Display renders the command text with a background marker if the job was
// submitted with one or was last resumed with bg.
func (j *Job) Display() string {
	if j.Background {
		return j.Text + " &"
	}
	return j.Text
}
