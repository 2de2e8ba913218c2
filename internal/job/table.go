package job

import (
	"errors"
	"fmt"

	"jobshell/internal/tty"
)

var (
	ErrNoSuchJob      = errors.New("no such job")
	ErrForegroundBusy = errors.New("another job is in the foreground")
)

// Guard reports whether the child-status block is held. Implementations
// need not track the holder, so the check is best effort.
type Guard interface {
	IsBlocked() bool
}

// Table maps job ids to jobs. It is not safe for concurrent use on its own:
// every mutation must happen while the guard is held, and mutating without
// it panics. Ids increase for the lifetime of the table and are never
// reused.
type Table struct {
	guard Guard
	jobs  map[int]*Job
	order []int
	last  int
}

// NewTable returns an empty table. A nil guard disables the check.
func NewTable(guard Guard) *Table {
	return &Table{
		guard: guard,
		jobs:  make(map[int]*Job),
	}
}

func (t *Table) mustHold(op string) {
	if t.guard != nil && !t.guard.IsBlocked() {
		panic(fmt.Sprintf("job table: %s without the child-status block held", op))
	}
}

// Register inserts j under a fresh id and returns it.
func (t *Table) Register(j *Job) int {
	t.mustHold("register")
	t.last++
	j.ID = t.last
	t.jobs[j.ID] = j
	t.order = append(t.order, j.ID)
	return j.ID
}

func (t *Table) Lookup(id int) (*Job, bool) {
	j, ok := t.jobs[id]
	return j, ok
}

// Get is Lookup returning ErrNoSuchJob for unknown ids.
func (t *Table) Get(id int) (*Job, error) {
	j, ok := t.jobs[id]
	if !ok {
		return nil, fmt.Errorf("%d: %w", id, ErrNoSuchJob)
	}
	return j, nil
}

// Remove deletes the job with the given id. It reports whether it existed.
func (t *Table) Remove(id int) bool {
	t.mustHold("remove")
	if _, ok := t.jobs[id]; !ok {
		return false
	}
	delete(t.jobs, id)
	for i, v := range t.order {
		if v == id {
			t.order = append(t.order[:i:i], t.order[i+1:]...)
			break
		}
	}
	return true
}

// List returns the jobs in submission order.
func (t *Table) List() []*Job {
	out := make([]*Job, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, t.jobs[id])
	}
	return out
}

func (t *Table) Len() int {
	return len(t.jobs)
}

// Foreground returns the job currently in the foreground, if any.
func (t *Table) Foreground() *Job {
	for _, id := range t.order {
		if j := t.jobs[id]; j.Status == Foreground {
			return j
		}
	}
	return nil
}

// FindPid locates the job owning pid. It matches the pid of each command
// first and falls back to the job's process group, in which case the
// returned command is nil.
func (t *Table) FindPid(pid int) (*Job, *Command) {
	for _, id := range t.order {
		j := t.jobs[id]
		if i := j.CommandByPid(pid); i >= 0 {
			return j, j.Commands[i]
		}
	}
	for _, id := range t.order {
		if j := t.jobs[id]; j.Pgid == pid {
			return j, nil
		}
	}
	return nil, nil
}

// Resume moves j to the foreground or background. Only one job may be in
// the foreground at a time.
func (t *Table) Resume(j *Job, foreground bool) (wasStopped bool, err error) {
	t.mustHold("resume")
	if foreground {
		if fg := t.Foreground(); fg != nil && fg != j {
			return false, fmt.Errorf("job %d: %w", fg.ID, ErrForegroundBusy)
		}
	}
	return j.Resume(foreground), nil
}

// Stop marks j stopped, keeping st as its saved terminal state.
func (t *Table) Stop(j *Job, st *tty.State) (wasForeground bool) {
	t.mustHold("stop")
	return j.Stop(st)
}

// Drop removes cmd from j and removes j from the table once it has no
// commands left. It reports whether j was removed.
func (t *Table) Drop(j *Job, cmd *Command) (removed bool) {
	t.mustHold("drop")
	if !j.Drop(cmd) {
		return false
	}
	return t.Remove(j.ID)
}
