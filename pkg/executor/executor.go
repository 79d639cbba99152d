package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/cuemby/slurmgate/pkg/log"
	"github.com/cuemby/slurmgate/pkg/metrics"
	"github.com/rs/zerolog"
)

var (
	// ErrCommandFailed matches every *CommandError
	ErrCommandFailed = errors.New("command failed")

	// ErrTimeout matches a *CommandError whose command exceeded its timeout
	ErrTimeout = errors.New("command timed out")
)

// Command is an argument vector. It is never passed through a shell.
type Command struct {
	Name string
	Args []string
}

// NewCommand creates a command from a binary path and its arguments
func NewCommand(name string, args ...string) Command {
	return Command{Name: name, Args: args}
}

// Argv returns the full argument vector
func (c Command) Argv() []string {
	return append([]string{c.Name}, c.Args...)
}

// String returns the command line for logging
func (c Command) String() string {
	return strings.Join(c.Argv(), " ")
}

// Label returns the base name of the binary being run, skipping a leading sudo
func (c Command) Label() string {
	name := c.Name
	if filepath.Base(name) == "sudo" && len(c.Args) > 0 {
		name = c.Args[0]
	}
	return filepath.Base(name)
}

// CommandError describes a command that exited non-zero or timed out
type CommandError struct {
	Command Command
	Stderr  string
	Timeout bool
	Err     error
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("command %q failed: %v", e.Command.String(), e.Err)
	if e.Timeout {
		msg = fmt.Sprintf("command %q timed out: %v", e.Command.String(), e.Err)
	}
	if e.Stderr != "" {
		msg = fmt.Sprintf("%s, stderr: %s", msg, strings.TrimSpace(e.Stderr))
	}
	return msg
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is match ErrCommandFailed and, for timeouts, ErrTimeout
func (e *CommandError) Is(target error) bool {
	return target == ErrCommandFailed || (e.Timeout && target == ErrTimeout)
}

// Executor runs scheduler commands with a timeout
type Executor interface {
	// Run executes cmd, discarding stdout. Used for administrative updates.
	Run(ctx context.Context, cmd Command, timeout time.Duration) error

	// Output executes cmd and returns its stdout. Used for read-only queries.
	Output(ctx context.Context, cmd Command, timeout time.Duration) (string, error)
}

// Record describes one administrative command executed by Run
type Record struct {
	Argv     []string
	Started  time.Time
	Duration time.Duration
	Err      error
}

// Recorder receives a Record for every Run call
type Recorder interface {
	RecordCommand(rec Record) error
}

// WaitDelay bounds how long a cancelled command may keep its output pipes
// open, e.g. through a child that survived the kill
var WaitDelay = time.Second

// ExecCommandFunc creates the process for a command, exec.CommandContext by
// default. It must bind the returned command to ctx.
type ExecCommandFunc func(ctx context.Context, name string, args ...string) *exec.Cmd

// ProcessExecutor runs commands as local processes
type ProcessExecutor struct {
	execCommand ExecCommandFunc
	recorder    Recorder
	logger      zerolog.Logger
}

// NewProcessExecutor creates an executor backed by os/exec
func NewProcessExecutor() *ProcessExecutor {
	return &ProcessExecutor{
		execCommand: exec.CommandContext,
		logger:      log.WithComponent("executor"),
	}
}

// WithExecCommand replaces the process factory
func (p *ProcessExecutor) WithExecCommand(fn ExecCommandFunc) *ProcessExecutor {
	p.execCommand = fn
	return p
}

// WithRecorder journals every Run call to r
func (p *ProcessExecutor) WithRecorder(r Recorder) *ProcessExecutor {
	p.recorder = r
	return p
}

// Run executes cmd and returns a *CommandError on failure
func (p *ProcessExecutor) Run(ctx context.Context, cmd Command, timeout time.Duration) error {
	start := time.Now()
	_, err := p.run(ctx, cmd, timeout)
	if p.recorder != nil {
		rec := Record{Argv: cmd.Argv(), Started: start, Duration: time.Since(start), Err: err}
		if rerr := p.recorder.RecordCommand(rec); rerr != nil {
			p.logger.Warn().Err(rerr).Str("cmd", cmd.String()).Msg("failed to journal command")
		}
	}
	return err
}

// Output executes cmd and returns stdout
func (p *ProcessExecutor) Output(ctx context.Context, cmd Command, timeout time.Duration) (string, error) {
	return p.run(ctx, cmd, timeout)
}

func (p *ProcessExecutor) run(ctx context.Context, cmd Command, timeout time.Duration) (string, error) {
	timer := metrics.NewTimer()
	label := cmd.Label()

	execCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		execCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	c := p.execCommand(execCtx, cmd.Name, cmd.Args...)
	killProcessGroupOnCancel(c)
	c.WaitDelay = WaitDelay
	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr

	p.logger.Debug().Str("cmd", cmd.String()).Dur("timeout", timeout).Msg("running command")
	err := c.Run()
	timer.ObserveDurationVec(metrics.CommandDuration, label)

	if err != nil {
		cerr := &CommandError{
			Command: cmd,
			Stderr:  stderr.String(),
			Timeout: errors.Is(execCtx.Err(), context.DeadlineExceeded),
			Err:     err,
		}
		status := "failed"
		if cerr.Timeout {
			status = "timeout"
		}
		metrics.CommandsTotal.WithLabelValues(label, status).Inc()
		p.logger.Debug().Err(err).Str("cmd", cmd.String()).Str("stderr", cerr.Stderr).Msg("command failed")
		return stdout.String(), cerr
	}

	metrics.CommandsTotal.WithLabelValues(label, "success").Inc()
	return stdout.String(), nil
}
