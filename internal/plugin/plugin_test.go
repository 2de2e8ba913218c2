package plugin

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

type named string

func (n named) Name() string { return string(n) }

type fragment struct {
	named
	text string
}

func (f fragment) PromptFragment() string { return f.text }

func TestBuildPromptFallback(t *testing.T) {
	r := NewRegistry()
	if got := r.BuildPrompt("esh> "); got != "esh> " {
		t.Fatalf("expected fallback, got %q", got)
	}

	r.Register(named("no-prompt"))
	if got := r.BuildPrompt("esh> "); got != "esh> " {
		t.Fatalf("plugin without fragment changed prompt: %q", got)
	}
}

func TestBuildPromptConcatenatesInOrder(t *testing.T) {
	r := NewRegistry()
	r.Register(fragment{named("user"), "me@host"})
	r.Register(named("other"))
	r.Register(fragment{named("sigil"), " % "})

	if got := r.BuildPrompt("esh> "); got != "me@host % " {
		t.Fatalf("unexpected prompt %q", got)
	}
}

func TestLoadDirIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "README"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	r := NewRegistry()
	if err := r.LoadDir(dir); err != nil {
		t.Fatalf("LoadDir failed: %v", err)
	}
	if len(r.Plugins()) != 0 {
		t.Fatalf("expected no plugins, got %d", len(r.Plugins()))
	}
}

func TestLoadDirRejectsBrokenObject(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "broken.so"), []byte("not elf"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := NewRegistry().LoadDir(dir); err == nil {
		t.Fatal("expected error loading a broken shared object")
	}
}

func TestLoadUserPromptPlugin(t *testing.T) {
	if testing.Short() {
		t.Skip("builds a plugin")
	}
	goBin, err := exec.LookPath("go")
	if err != nil {
		t.Skip("go toolchain not available")
	}

	dir := t.TempDir()
	build := exec.Command(goBin, "build", "-buildmode=plugin",
		"-o", filepath.Join(dir, "userprompt.so"), "../../plugins/examples")
	if out, err := build.CombinedOutput(); err != nil {
		t.Skipf("plugin build unsupported here: %v\n%s", err, out)
	}

	r := NewRegistry()
	if err := r.LoadDir(dir); err != nil {
		if strings.Contains(err.Error(), "different version") {
			t.Skipf("plugin built with different flags than the test binary: %v", err)
		}
		t.Fatalf("LoadDir failed: %v", err)
	}
	if len(r.Plugins()) != 1 || r.Plugins()[0].Name() != "userprompt" {
		t.Fatalf("unexpected plugins %v", r.Plugins())
	}
	if got := r.BuildPrompt("esh> "); !strings.Contains(got, "@") || !strings.HasSuffix(got, "$ ") {
		t.Fatalf("unexpected prompt %q", got)
	}
}
