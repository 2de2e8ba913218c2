// Package parser turns an input line into pipelines. Word splitting, quotes
// and escapes are handled by go-shellquote; this package only finds the
// unquoted operators between words: | < > >> & ;
package parser

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kballard/go-shellquote"
)

var ErrSyntax = errors.New("syntax error")

type Command struct {
	Argv   []string
	Input  string
	Output string
	Append bool
}

type Pipeline struct {
	Commands   []*Command
	Background bool
}

type CommandLine struct {
	Pipelines []*Pipeline
}

// Text renders the pipeline as it would be typed, without the background
// marker.
func (p *Pipeline) Text() string {
	stages := make([]string, 0, len(p.Commands))
	for _, c := range p.Commands {
		stages = append(stages, c.Text())
	}
	return strings.Join(stages, " | ")
}

func (c *Command) Text() string {
	s := shellquote.Join(c.Argv...)
	if c.Input != "" {
		s += " < " + shellquote.Join(c.Input)
	}
	if c.Output != "" {
		op := " > "
		if c.Append {
			op = " >> "
		}
		s += op + shellquote.Join(c.Output)
	}
	return s
}

type tokenKind int

const (
	tokWord tokenKind = iota
	tokPipe
	tokIn
	tokOut
	tokAppend
	tokBackground
	tokSeparator
)

type token struct {
	kind tokenKind
	word string
}

// Parse parses line. An empty or blank line yields a CommandLine with no
// pipelines.
func Parse(line string) (*CommandLine, error) {
	tokens, err := lex(line)
	if err != nil {
		return nil, err
	}

	cl := &CommandLine{}
	cur := &Pipeline{}
	cmd := &Command{}

	endCommand := func() error {
		if len(cmd.Argv) == 0 {
			if cmd.Input != "" || cmd.Output != "" || len(cur.Commands) > 0 {
				return fmt.Errorf("%w: missing command", ErrSyntax)
			}
			return nil
		}
		cur.Commands = append(cur.Commands, cmd)
		cmd = &Command{}
		return nil
	}
	endPipeline := func(background bool) error {
		if err := endCommand(); err != nil {
			return err
		}
		if len(cur.Commands) == 0 {
			if background {
				return fmt.Errorf("%w near '&'", ErrSyntax)
			}
			return nil
		}
		cur.Background = background
		cl.Pipelines = append(cl.Pipelines, cur)
		cur = &Pipeline{}
		return nil
	}

	for i := 0; i < len(tokens); i++ {
		t := tokens[i]
		switch t.kind {
		case tokWord:
			cmd.Argv = append(cmd.Argv, t.word)
		case tokIn, tokOut, tokAppend:
			if i+1 >= len(tokens) || tokens[i+1].kind != tokWord {
				return nil, fmt.Errorf("%w: redirection without a file name", ErrSyntax)
			}
			i++
			switch t.kind {
			case tokIn:
				cmd.Input = tokens[i].word
			case tokOut:
				cmd.Output, cmd.Append = tokens[i].word, false
			case tokAppend:
				cmd.Output, cmd.Append = tokens[i].word, true
			}
		case tokPipe:
			if len(cmd.Argv) == 0 {
				return nil, fmt.Errorf("%w near '|'", ErrSyntax)
			}
			if err := endCommand(); err != nil {
				return nil, err
			}
			if i+1 >= len(tokens) || tokens[i+1].kind == tokSeparator || tokens[i+1].kind == tokBackground {
				return nil, fmt.Errorf("%w: pipe without a command", ErrSyntax)
			}
		case tokBackground:
			if err := endPipeline(true); err != nil {
				return nil, err
			}
		case tokSeparator:
			if err := endPipeline(false); err != nil {
				return nil, err
			}
		}
	}
	if err := endPipeline(false); err != nil {
		return nil, err
	}
	return cl, nil
}

// lex splits line into runs of words separated by unquoted operators. Each
// run is handed to shellquote, so quoted operator characters stay inside
// words.
func lex(line string) ([]token, error) {
	var (
		tokens []token
		run    strings.Builder
		quote  byte
		escape bool
	)

	flush := func() error {
		words, err := shellquote.Split(run.String())
		if err != nil {
			return fmt.Errorf("%w: %v", ErrSyntax, err)
		}
		for _, w := range words {
			tokens = append(tokens, token{kind: tokWord, word: w})
		}
		run.Reset()
		return nil
	}

	// Operators and quotes are ASCII, so the line is walked byte by byte
	// and argument bytes are copied untouched, valid UTF-8 or not.
	for i := 0; i < len(line); i++ {
		r := line[i]
		if escape {
			escape = false
			run.WriteByte(r)
			continue
		}
		if r == '\\' && quote != '\'' {
			escape = true
			run.WriteByte(r)
			continue
		}
		if quote != 0 {
			if r == quote {
				quote = 0
			}
			run.WriteByte(r)
			continue
		}

		var kind tokenKind
		switch r {
		case '\'', '"':
			quote = r
			run.WriteByte(r)
			continue
		case '|':
			kind = tokPipe
		case '<':
			kind = tokIn
		case '>':
			kind = tokOut
			if i+1 < len(line) && line[i+1] == '>' {
				kind = tokAppend
				i++
			}
		case '&':
			kind = tokBackground
		case ';':
			kind = tokSeparator
		default:
			run.WriteByte(r)
			continue
		}
		if err := flush(); err != nil {
			return nil, err
		}
		tokens = append(tokens, token{kind: kind})
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return tokens, nil
}
