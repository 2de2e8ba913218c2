package shell

import (
	"fmt"

	"golang.org/x/sys/unix"

	"jobshell/internal/job"
)

// reapPending collects every child status change that is ready without
// blocking. The caller holds the mask.
func (s *Shell) reapPending() {
	for {
		var ws unix.WaitStatus
		pid, err := unix.Wait4(-1, &ws, unix.WNOHANG|unix.WUNTRACED, nil)
		if err == unix.EINTR {
			continue
		}
		if err != nil || pid <= 0 {
			return
		}
		s.childStatusChange(pid, ws)
	}
}

// waitForeground blocks until job id leaves the foreground or has no
// processes left. The caller holds the mask.
func (s *Shell) waitForeground(id int) {
	if !s.mask.IsBlocked() {
		panic("waitForeground called without the child-status block held")
	}
	for {
		j, ok := s.jobs.Lookup(id)
		if !ok || j.Status != job.Foreground || j.Done() {
			return
		}

		var ws unix.WaitStatus
		pid, err := unix.Wait4(-1, &ws, unix.WUNTRACED, nil)
		switch {
		case err == unix.EINTR:
			continue
		case err == unix.ECHILD:
			// Nothing left to wait for; the job cannot make progress.
			s.log.Debug("no children left", "job", id)
			s.jobs.Remove(id)
			return
		case err != nil:
			s.fatal(fmt.Errorf("wait: %w", err))
			return
		}
		s.childStatusChange(pid, ws)
	}
}

// childStatusChange applies one wait status to the job table.
func (s *Shell) childStatusChange(pid int, ws unix.WaitStatus) {
	j, cmd := s.jobs.FindPid(pid)
	if j == nil {
		s.log.Debug("status for untracked pid", "pid", pid)
		return
	}

	switch {
	case ws.Stopped():
		// Every stage of the group reports the same stop.
		if j.Status == job.Stopped {
			return
		}
		st, err := s.term.Save()
		if err != nil {
			s.log.Warn("saving job terminal state", "job", j.ID, "err", err)
		}
		if s.jobs.Stop(j, st) {
			s.grantShell()
		}
		s.log.Debug("job stopped", "job", j.ID, "pid", pid, "signal", unix.SignalName(ws.StopSignal()))
		// A stop on terminal output is the only silent one.
		if ws.StopSignal() != unix.SIGTTOU {
			fmt.Fprintf(s.stdout, "\n[%d] Stopped (%s)\n", j.ID, j.Text)
		}

	case ws.Exited(), ws.Signaled():
		if cmd == nil {
			return
		}
		foreground := j.Status == job.Foreground
		interrupted := ws.Signaled() && ws.Signal() == unix.SIGINT
		removed := s.jobs.Drop(j, cmd)
		s.log.Debug("process exited", "job", j.ID, "pid", pid,
			"status", ws.ExitStatus(), "signaled", ws.Signaled(), "removed", removed)

		switch {
		case foreground && interrupted:
			s.grantShell()
			if removed {
				fmt.Fprintln(s.stdout)
			}
		case foreground && removed:
			s.grantShell()
		case removed:
			s.notices = append(s.notices, fmt.Sprintf("[%d] Done (%s)", j.ID, j.Display()))
		}
	}
}
