package storage

import (
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/cuemby/slurmgate/pkg/executor"
	"github.com/cuemby/slurmgate/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *BoltStore {
	t.Helper()
	store, err := NewBoltStore(filepath.Join(t.TempDir(), "data", "slurmgate.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestBoltStoreImplementsInterfaces(t *testing.T) {
	var _ Store = (*BoltStore)(nil)
	var _ executor.Recorder = (*BoltStore)(nil)
}

func TestRecordAndListCommands(t *testing.T) {
	store := newTestStore(t)

	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		rec := executor.Record{
			Argv:     []string{"scontrol", "update", fmt.Sprintf("nodename=q-st-c5-%d", i)},
			Started:  start.Add(time.Duration(i) * time.Second),
			Duration: 20 * time.Millisecond,
		}
		if i == 1 {
			rec.Err = errors.New("exit status 1")
		}
		require.NoError(t, store.RecordCommand(rec))
	}

	all, err := store.ListCommands(0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "nodename=q-st-c5-2", all[0].Argv[2], "newest first")
	assert.Equal(t, "nodename=q-st-c5-0", all[2].Argv[2])
	assert.True(t, all[1].Failed())
	assert.Equal(t, "exit status 1", all[1].Error)
	assert.False(t, all[0].Failed())
	assert.Equal(t, 20*time.Millisecond, all[0].Duration)
	assert.NotEmpty(t, all[0].ID)

	limited, err := store.ListCommands(2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestPruneCommands(t *testing.T) {
	store := newTestStore(t)
	for i := 0; i < 5; i++ {
		require.NoError(t, store.RecordCommand(executor.Record{Argv: []string{"cmd", fmt.Sprint(i)}, Started: time.Now()}))
	}

	deleted, err := store.PruneCommands(2)
	require.NoError(t, err)
	assert.Equal(t, 3, deleted)

	remaining, err := store.ListCommands(0)
	require.NoError(t, err)
	require.Len(t, remaining, 2)
	assert.Equal(t, "4", remaining[0].Argv[1])
	assert.Equal(t, "3", remaining[1].Argv[1])

	deleted, err = store.PruneCommands(10)
	require.NoError(t, err)
	assert.Zero(t, deleted)
}

func TestNodeSnapshots(t *testing.T) {
	store := newTestStore(t)

	static, err := types.NewSlurmNode(types.NodeInfo{Name: "q-st-c5-1", State: "IDLE", Partitions: []string{"q"}})
	require.NoError(t, err)
	dynamic, err := types.NewSlurmNode(types.NodeInfo{Name: "q-dy-c5-1", State: "IDLE+CLOUD+POWERED_DOWN", Reason: "idle"})
	require.NoError(t, err)

	observed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.SaveNodeSnapshots([]types.SlurmNode{static, dynamic}, observed))

	snap, err := store.GetNodeSnapshot("q-st-c5-1")
	require.NoError(t, err)
	assert.Equal(t, types.ProvisioningStatic, snap.Mode)
	assert.Equal(t, []string{"q"}, snap.Partitions)
	assert.True(t, observed.Equal(snap.ObservedAt))

	// A later snapshot replaces the earlier one
	down, err := types.NewSlurmNode(types.NodeInfo{Name: "q-st-c5-1", State: "DOWN"})
	require.NoError(t, err)
	require.NoError(t, store.SaveNodeSnapshots([]types.SlurmNode{down}, observed.Add(time.Minute)))

	snaps, err := store.ListNodeSnapshots()
	require.NoError(t, err)
	require.Len(t, snaps, 2)
	assert.Equal(t, "q-dy-c5-1", snaps[0].Name)
	assert.Equal(t, "idle", snaps[0].Reason)
	assert.Equal(t, "DOWN", snaps[1].State)

	_, err = store.GetNodeSnapshot("missing")
	assert.Error(t, err)
}

func TestReopenStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "slurmgate.db")
	store, err := NewBoltStore(path)
	require.NoError(t, err)
	require.NoError(t, store.RecordCommand(executor.Record{Argv: []string{"scontrol"}, Started: time.Now()}))
	require.NoError(t, store.Close())

	store, err = NewBoltStore(path)
	require.NoError(t, err)
	defer store.Close()

	records, err := store.ListCommands(0)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}
