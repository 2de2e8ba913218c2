package job

import (
	"errors"
	"testing"
)

type guard bool

func (g *guard) IsBlocked() bool { return bool(*g) }

func newJob(text string, bg bool, argv ...[]string) *Job {
	var cmds []*Command
	for _, a := range argv {
		cmds = append(cmds, &Command{Argv: a})
	}
	return New(text, bg, cmds)
}

func TestRegisterAssignsIncreasingIDs(t *testing.T) {
	g := guard(true)
	tab := NewTable(&g)

	a := tab.Register(newJob("sleep 1", true, []string{"sleep", "1"}))
	b := tab.Register(newJob("sleep 2", true, []string{"sleep", "2"}))
	if a != 1 || b != 2 {
		t.Fatalf("expected ids 1 and 2, got %d and %d", a, b)
	}

	// Removing the newest job must not let its id be handed out again.
	tab.Remove(b)
	tab.Remove(a)
	c := tab.Register(newJob("sleep 3", true, []string{"sleep", "3"}))
	if c != 3 {
		t.Fatalf("expected id 3 after removals, got %d", c)
	}
}

func TestListKeepsSubmissionOrder(t *testing.T) {
	tab := NewTable(nil)
	for _, text := range []string{"a", "b", "c"} {
		tab.Register(newJob(text, true, []string{text}))
	}
	tab.Remove(2)

	var got string
	for _, j := range tab.List() {
		got += j.Text
	}
	if got != "ac" {
		t.Fatalf("unexpected order %q", got)
	}
}

func TestMutationWithoutGuardPanics(t *testing.T) {
	g := guard(false)
	tab := NewTable(&g)
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic when registering without the block held")
		}
	}()
	tab.Register(newJob("x", false, []string{"x"}))
}

func TestGetUnknownJob(t *testing.T) {
	tab := NewTable(nil)
	if _, err := tab.Get(1); !errors.Is(err, ErrNoSuchJob) {
		t.Fatalf("expected ErrNoSuchJob, got %v", err)
	}
	if _, ok := tab.Lookup(1); ok {
		t.Fatal("Lookup found a job in an empty table")
	}
	if tab.Remove(1) {
		t.Fatal("Remove reported success for unknown job")
	}
}

func TestFindPidMatchesCommandThenGroup(t *testing.T) {
	tab := NewTable(nil)
	j := newJob("cat | wc -l", false, []string{"cat"}, []string{"wc", "-l"})
	tab.Register(j)
	j.SetPid(j.Commands[0], 100)
	j.SetPid(j.Commands[1], 101)
	if j.Pgid != 100 {
		t.Fatalf("expected pgid 100, got %d", j.Pgid)
	}

	got, cmd := tab.FindPid(101)
	if got != j || cmd != j.Commands[1] {
		t.Fatal("pid 101 not attributed to the second stage")
	}

	tab.Drop(j, j.Commands[0])
	got, cmd = tab.FindPid(100)
	if got != j || cmd != nil {
		t.Fatal("expected process-group fallback for the departed leader")
	}

	if got, _ := tab.FindPid(999); got != nil {
		t.Fatal("untracked pid attributed to a job")
	}
}

func TestDropRemovesJobWhenEmpty(t *testing.T) {
	tab := NewTable(nil)
	j := newJob("cat | wc -l", false, []string{"cat"}, []string{"wc", "-l"})
	id := tab.Register(j)

	if tab.Drop(j, j.Commands[1]) {
		t.Fatal("job removed while a stage is still running")
	}
	if len(j.Commands) != 1 || j.Commands[0].Argv[0] != "cat" {
		t.Fatalf("wrong stage dropped: %+v", j.Commands)
	}
	if !tab.Drop(j, j.Commands[0]) {
		t.Fatal("job not removed after its last stage exited")
	}
	if _, ok := tab.Lookup(id); ok {
		t.Fatal("job still in table")
	}
}

func TestStopAndResume(t *testing.T) {
	tab := NewTable(nil)
	j := newJob("sleep 5", false, []string{"sleep", "5"})
	tab.Register(j)

	if !tab.Stop(j, nil) {
		t.Fatal("foreground job stop not reported as foreground")
	}
	if j.Status != Stopped || j.Status.Label() != "Stopped" {
		t.Fatalf("expected Stopped, got %v", j.Status)
	}

	wasStopped, err := tab.Resume(j, false)
	if err != nil || !wasStopped {
		t.Fatalf("Resume = %v, %v", wasStopped, err)
	}
	if j.Status != Background || j.Status.Label() != "Running" {
		t.Fatalf("expected Background, got %v", j.Status)
	}
	if len(j.Commands) != 1 {
		t.Fatal("stop/bg round trip changed the command list")
	}
}

func TestSingleForeground(t *testing.T) {
	tab := NewTable(nil)
	a := newJob("a", false, []string{"a"})
	b := newJob("b", true, []string{"b"})
	tab.Register(a)
	tab.Register(b)
	if _, err := tab.Resume(b, false); err != nil {
		t.Fatal(err)
	}

	if _, err := tab.Resume(b, true); !errors.Is(err, ErrForegroundBusy) {
		t.Fatalf("expected ErrForegroundBusy, got %v", err)
	}
	tab.Stop(a, nil)
	if _, err := tab.Resume(b, true); err != nil {
		t.Fatalf("Resume failed once the foreground was free: %v", err)
	}
	if tab.Foreground() != b {
		t.Fatal("b is not the foreground job")
	}
}

func TestDisplay(t *testing.T) {
	if got := newJob("sleep 5", true).Display(); got != "sleep 5 &" {
		t.Fatalf("unexpected display %q", got)
	}
	if got := newJob("sleep 5", false).Display(); got != "sleep 5" {
		t.Fatalf("unexpected display %q", got)
	}
}
