// Package executortest provides an in-memory executor.Executor for tests
// of code that shells out to the scheduler.
package executortest

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/cuemby/slurmgate/pkg/executor"
)

// Call is one command received by a Fake
type Call struct {
	Command executor.Command
	Timeout time.Duration
	Output  bool
}

// Response is returned for commands whose line contains Match
type Response struct {
	Match  string
	Stdout string
	Err    error
}

// Fake is an in-memory executor.Executor for tests. Responses are matched in order
// against the command line; unmatched commands succeed with no output.
type Fake struct {
	mu        sync.Mutex
	Responses []Response
	Calls     []Call
}

// On registers a response for command lines containing match
func (f *Fake) On(match, stdout string, err error) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Responses = append(f.Responses, Response{Match: match, Stdout: stdout, Err: err})
	return f
}

// Run implements executor.Executor
func (f *Fake) Run(ctx context.Context, cmd executor.Command, timeout time.Duration) error {
	_, err := f.respond(cmd, timeout, false)
	return err
}

// Output implements executor.Executor
func (f *Fake) Output(ctx context.Context, cmd executor.Command, timeout time.Duration) (string, error) {
	return f.respond(cmd, timeout, true)
}

// Lines returns the command lines received so far
func (f *Fake) Lines() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	lines := make([]string, 0, len(f.Calls))
	for _, c := range f.Calls {
		lines = append(lines, c.Command.String())
	}
	return lines
}

func (f *Fake) respond(cmd executor.Command, timeout time.Duration, output bool) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, Call{Command: cmd, Timeout: timeout, Output: output})
	line := cmd.String()
	for _, r := range f.Responses {
		if strings.Contains(line, r.Match) {
			if r.Err != nil {
				return r.Stdout, &executor.CommandError{Command: cmd, Err: r.Err}
			}
			return r.Stdout, nil
		}
	}
	return "", nil
}

var _ executor.Executor = (*Fake)(nil)
