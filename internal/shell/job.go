package shell

import (
	"fmt"

	"jobshell/internal/job"
	"jobshell/internal/parser"
)

// newJob converts a parsed pipeline into an unregistered job.
func newJob(p *parser.Pipeline) *job.Job {
	cmds := make([]*job.Command, 0, len(p.Commands))
	for _, c := range p.Commands {
		cmds = append(cmds, &job.Command{
			Argv:   c.Argv,
			Pid:    -1,
			Input:  c.Input,
			Output: c.Output,
			Append: c.Append,
		})
	}
	return job.New(p.Text(), p.Background, cmds)
}

// statusLine renders j the way the jobs built-in lists it.
func statusLine(j *job.Job) string {
	return fmt.Sprintf("[%d] %s (%s)", j.ID, j.Status.Label(), j.Display())
}
