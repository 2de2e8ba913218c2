package parser

import (
	"errors"
	"reflect"
	"testing"
)

func TestParseSingleCommand(t *testing.T) {
	cl, err := Parse("echo hello")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(cl.Pipelines) != 1 {
		t.Fatalf("expected 1 pipeline, got %d", len(cl.Pipelines))
	}
	p := cl.Pipelines[0]
	if p.Background {
		t.Fatal("unexpected background flag")
	}
	if !reflect.DeepEqual(p.Commands[0].Argv, []string{"echo", "hello"}) {
		t.Fatalf("unexpected argv %q", p.Commands[0].Argv)
	}
}

func TestParsePipelineAndBackground(t *testing.T) {
	cl, err := Parse("cat file|grep 'a|b' | wc -l &")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	p := cl.Pipelines[0]
	if !p.Background {
		t.Fatal("expected background pipeline")
	}
	want := [][]string{{"cat", "file"}, {"grep", "a|b"}, {"wc", "-l"}}
	if len(p.Commands) != len(want) {
		t.Fatalf("expected %d stages, got %d", len(want), len(p.Commands))
	}
	for i, c := range p.Commands {
		if !reflect.DeepEqual(c.Argv, want[i]) {
			t.Fatalf("stage %d: got %q want %q", i, c.Argv, want[i])
		}
	}
}

func TestParseRedirections(t *testing.T) {
	cl, err := Parse(`sort < in.txt >> "out file.txt"`)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	c := cl.Pipelines[0].Commands[0]
	if c.Input != "in.txt" || c.Output != "out file.txt" || !c.Append {
		t.Fatalf("unexpected redirections %+v", c)
	}
	if got := c.Text(); got != `sort < in.txt >> 'out file.txt'` {
		t.Fatalf("unexpected text %q", got)
	}

	cl, err = Parse("ls>out")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	c = cl.Pipelines[0].Commands[0]
	if c.Output != "out" || c.Append {
		t.Fatalf("unexpected redirection %+v", c)
	}
}

func TestParseMultiplePipelines(t *testing.T) {
	cl, err := Parse("sleep 5 & echo a ; echo b")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(cl.Pipelines) != 3 {
		t.Fatalf("expected 3 pipelines, got %d", len(cl.Pipelines))
	}
	if !cl.Pipelines[0].Background || cl.Pipelines[1].Background || cl.Pipelines[2].Background {
		t.Fatal("background flags attached to the wrong pipelines")
	}
}

func TestParseEmpty(t *testing.T) {
	for _, line := range []string{"", "   ", ";"} {
		cl, err := Parse(line)
		if err != nil {
			t.Fatalf("Parse(%q) failed: %v", line, err)
		}
		if len(cl.Pipelines) != 0 {
			t.Fatalf("Parse(%q) produced %d pipelines", line, len(cl.Pipelines))
		}
	}
}

func TestParseSyntaxErrors(t *testing.T) {
	for _, line := range []string{"| wc", "cat |", "echo >", "&", "echo 'open", "cat | & "} {
		if _, err := Parse(line); !errors.Is(err, ErrSyntax) {
			t.Fatalf("Parse(%q): expected syntax error, got %v", line, err)
		}
	}
}

func TestPipelineText(t *testing.T) {
	cl, err := Parse(`cat | wc -l > "n.txt"`)
	if err != nil {
		t.Fatal(err)
	}
	if got := cl.Pipelines[0].Text(); got != "cat | wc -l > n.txt" {
		t.Fatalf("unexpected text %q", got)
	}
}

func TestParseKeepsRawBytes(t *testing.T) {
	cl, err := Parse("cat caf\xe9.txt > 'out\xff'")
	if err != nil {
		t.Fatal(err)
	}
	c := cl.Pipelines[0].Commands[0]
	if len(c.Argv) != 2 || c.Argv[1] != "caf\xe9.txt" {
		t.Fatalf("argument bytes changed: %q", c.Argv)
	}
	if c.Output != "out\xff" {
		t.Fatalf("redirect target changed: %q", c.Output)
	}
}
