package shell

import (
	"errors"
	"io"
	"os"

	"github.com/chzyer/readline"
	"golang.org/x/term"

	"jobshell/internal/history"
)

// ErrInterrupt is returned by a LineReader when the user interrupts the
// line being edited.
var ErrInterrupt = errors.New("interrupt")

// LineReader is the shell's line source. ReadLine returns io.EOF at end of
// input.
type LineReader interface {
	ReadLine(prompt string) (string, error)
	Close() error
}

type readlineReader struct {
	rl *readline.Instance
}

// newReadline edits lines read from stdin. Closing the reader leaves stdin
// open; it belongs to the shell.
func newReadline(stdin, stdout *os.File, stderr io.Writer, hist *history.History) (*readlineReader, error) {
	fd := int(stdin.Fd())
	var raw *term.State
	rl, err := readline.NewEx(&readline.Config{
		Stdin:           readline.NewCancelableStdin(stdin),
		Stdout:          stdout,
		Stderr:          stderr,
		InterruptPrompt: "^C",
		EOFPrompt:       "",
		FuncIsTerminal: func() bool {
			return term.IsTerminal(fd) && term.IsTerminal(int(stdout.Fd()))
		},
		FuncGetWidth: func() int {
			w, _, err := term.GetSize(int(stdout.Fd()))
			if err != nil {
				return -1
			}
			return w
		},
		FuncMakeRaw: func() error {
			if !term.IsTerminal(fd) {
				return nil
			}
			st, err := term.MakeRaw(fd)
			if err != nil {
				return err
			}
			raw = st
			return nil
		},
		FuncExitRaw: func() error {
			if raw == nil {
				return nil
			}
			st := raw
			raw = nil
			return term.Restore(fd, st)
		},
	})
	if err != nil {
		return nil, err
	}
	// History persistence belongs to hist; readline only keeps it in memory.
	for _, line := range hist.GetAll() {
		_ = rl.SaveHistory(line)
	}
	return &readlineReader{rl: rl}, nil
}

func (r *readlineReader) ReadLine(prompt string) (string, error) {
	r.rl.SetPrompt(prompt)
	line, err := r.rl.Readline()
	if err == readline.ErrInterrupt {
		return line, ErrInterrupt
	}
	return line, err
}

func (r *readlineReader) Close() error {
	return r.rl.Close()
}
