package history

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestAddPersistsAndReloads(t *testing.T) {
	file := filepath.Join(t.TempDir(), "hist")

	h, err := New(file, 10)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	for _, line := range []string{"sleep 5 &", "jobs", "fg 1"} {
		if err := h.Add(line); err != nil {
			t.Fatalf("Add failed: %v", err)
		}
	}

	reloaded, err := New(file, 10)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	got := strings.Join(reloaded.GetAll(), ",")
	if got != "sleep 5 &,jobs,fg 1" {
		t.Fatalf("unexpected history %q", got)
	}
}

func TestHistoryIsBounded(t *testing.T) {
	h, err := New("", 2)
	if err != nil {
		t.Fatal(err)
	}
	for _, line := range []string{"a", "b", "c"} {
		if err := h.Add(line); err != nil {
			t.Fatal(err)
		}
	}
	if got := strings.Join(h.GetAll(), ","); got != "b,c" {
		t.Fatalf("expected oldest entry dropped, got %q", got)
	}
}
