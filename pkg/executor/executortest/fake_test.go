package executortest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cuemby/slurmgate/pkg/executor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFake(t *testing.T) {
	f := &Fake{}
	f.On("show nodes", "NodeName=a\n", nil).On("update", "", errors.New("exit status 1"))

	out, err := f.Output(context.Background(), executor.NewCommand("scontrol", "show", "nodes"), time.Second)
	require.NoError(t, err)
	assert.Equal(t, "NodeName=a\n", out)

	err = f.Run(context.Background(), executor.NewCommand("scontrol", "update", "state=down"), 2*time.Second)
	assert.ErrorIs(t, err, executor.ErrCommandFailed)

	require.NoError(t, f.Run(context.Background(), executor.NewCommand("sinfo"), time.Second))

	assert.Equal(t, []string{"scontrol show nodes", "scontrol update state=down", "sinfo"}, f.Lines())
	assert.Equal(t, 2*time.Second, f.Calls[1].Timeout)
	assert.True(t, f.Calls[0].Output)
	assert.False(t, f.Calls[1].Output)
}

func TestFakeFirstMatchWins(t *testing.T) {
	f := &Fake{}
	f.On("update", "", errors.New("exit status 1")).On("update state=idle", "ok", nil)

	err := f.Run(context.Background(), executor.NewCommand("scontrol", "update", "state=idle"), time.Second)
	assert.ErrorIs(t, err, executor.ErrCommandFailed)

	var cmdErr *executor.CommandError
	require.ErrorAs(t, err, &cmdErr)
	assert.Equal(t, "scontrol update state=idle", cmdErr.Command.String())
}
