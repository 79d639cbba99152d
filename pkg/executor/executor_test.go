package executor

import (
	"context"
	"errors"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorderFunc func(rec Record) error

func (f recorderFunc) RecordCommand(rec Record) error { return f(rec) }

func TestCommandLabel(t *testing.T) {
	tests := []struct {
		name     string
		cmd      Command
		expected string
	}{
		{"plain binary", NewCommand("/opt/slurm/bin/sinfo", "-h"), "sinfo"},
		{"sudo prefix", NewCommand("sudo", "/opt/slurm/bin/scontrol", "update"), "scontrol"},
		{"bare sudo", NewCommand("sudo"), "sudo"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.cmd.Label())
		})
	}
}

func TestCommandString(t *testing.T) {
	cmd := NewCommand("scontrol", "update", "state=down", "reason=maintenance window")
	assert.Equal(t, []string{"scontrol", "update", "state=down", "reason=maintenance window"}, cmd.Argv())
	assert.Equal(t, "scontrol update state=down reason=maintenance window", cmd.String())
}

func TestProcessExecutorOutput(t *testing.T) {
	p := NewProcessExecutor()

	out, err := p.Output(context.Background(), NewCommand("echo", "hello"), time.Second)
	require.NoError(t, err)
	assert.Equal(t, "hello\n", out)
}

func TestProcessExecutorFailure(t *testing.T) {
	p := NewProcessExecutor()

	err := p.Run(context.Background(), NewCommand("false"), time.Second)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCommandFailed)
	assert.NotErrorIs(t, err, ErrTimeout)

	var cerr *CommandError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, "false", cerr.Command.Name)
}

func TestProcessExecutorTimeout(t *testing.T) {
	p := NewProcessExecutor()

	start := time.Now()
	_, err := p.Output(context.Background(), NewCommand("sleep", "5"), 100*time.Millisecond)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.ErrorIs(t, err, ErrCommandFailed)
	assert.Less(t, time.Since(start), 4*time.Second)
}

func TestProcessExecutorTimeoutKillsChildren(t *testing.T) {
	p := NewProcessExecutor()

	// sh forks sleep, which inherits the output pipes
	start := time.Now()
	_, err := p.Output(context.Background(), NewCommand("sh", "-c", "sleep 3; true"), 200*time.Millisecond)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestProcessExecutorRunTimeoutKillsChildren(t *testing.T) {
	p := NewProcessExecutor()

	start := time.Now()
	err := p.Run(context.Background(), NewCommand("sh", "-c", "sleep 3 & wait"), 200*time.Millisecond)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestProcessExecutorCustomExec(t *testing.T) {
	var got []string
	p := NewProcessExecutor().WithExecCommand(func(ctx context.Context, name string, args ...string) *exec.Cmd {
		got = append([]string{name}, args...)
		return exec.CommandContext(ctx, "true")
	})

	err := p.Run(context.Background(), NewCommand("sudo", "scontrol", "update", "nodename=a-1"), time.Second)
	require.NoError(t, err)
	assert.Equal(t, []string{"sudo", "scontrol", "update", "nodename=a-1"}, got)
}

func TestProcessExecutorRecorder(t *testing.T) {
	var records []Record
	p := NewProcessExecutor().WithRecorder(recorderFunc(func(rec Record) error {
		records = append(records, rec)
		return errors.New("journal unavailable")
	}))

	// A failing recorder does not change the command result
	require.NoError(t, p.Run(context.Background(), NewCommand("true"), time.Second))
	require.Error(t, p.Run(context.Background(), NewCommand("false"), time.Second))

	// Queries are not journaled
	_, err := p.Output(context.Background(), NewCommand("true"), time.Second)
	require.NoError(t, err)

	require.Len(t, records, 2)
	assert.Equal(t, []string{"true"}, records[0].Argv)
	assert.NoError(t, records[0].Err)
	assert.Error(t, records[1].Err)
	assert.False(t, records[1].Started.IsZero())
}

func TestValidateArgument(t *testing.T) {
	valid := []string{
		"down",
		"power_down_force",
		"stopping cluster",
		"queue1-dy-c5xlarge-[1-10],queue2-st-t2micro-5",
		"10.0.0.1,10.0.0.2",
		"(Code:InsufficientInstanceCapacity)Failure when resuming nodes",
	}
	for _, v := range valid {
		assert.NoError(t, ValidateArgument(v), v)
	}

	invalid := []string{
		"down; rm -rf /",
		"a-1 && reboot",
		"a-1 | tee",
		"$(whoami)",
		"`id`",
		"reason\" extra=1",
		"it's",
		"a > /etc/passwd",
		"line\nbreak",
		"back\\slash",
	}
	for _, v := range invalid {
		assert.ErrorIs(t, ValidateArgument(v), ErrInjectionRisk, v)
	}
}

func TestValidateArguments(t *testing.T) {
	assert.NoError(t, ValidateArguments("", "down", ""))
	assert.ErrorIs(t, ValidateArguments("down", "x;y"), ErrInjectionRisk)
}
