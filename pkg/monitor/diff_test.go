package monitor

import (
	"testing"
	"time"

	"github.com/cuemby/slurmgate/pkg/events"
	"github.com/cuemby/slurmgate/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nodeWith(t *testing.T, name, state, addr string) types.SlurmNode {
	t.Helper()
	n, err := types.NewSlurmNode(types.NodeInfo{Name: name, Addr: addr, Hostname: name, State: state})
	require.NoError(t, err)
	return n
}

func TestChangesFirstPoll(t *testing.T) {
	snap := &Snapshot{Nodes: []types.SlurmNode{nodeWith(t, "q-st-c5-1", "IDLE", "q-st-c5-1")}}
	assert.Empty(t, Changes(nil, snap))
}

func TestChanges(t *testing.T) {
	observed := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	prev := &Snapshot{
		Nodes: []types.SlurmNode{
			nodeWith(t, "q-st-c5-1", "IDLE+CLOUD", "q-st-c5-1"),
			nodeWith(t, "q-dy-c5-1", "IDLE+CLOUD+POWERED_DOWN", "q-dy-c5-1"),
			nodeWith(t, "q-dy-c5-2", "MIXED+CLOUD", "10.0.0.2"),
			nodeWith(t, "q-dy-c5-9", "IDLE", "q-dy-c5-9"),
		},
		Partitions: []*types.SlurmPartition{
			{Name: "q", State: types.PartitionStatusUp},
			{Name: "r", State: types.PartitionStatusUp},
		},
	}
	next := &Snapshot{
		ObservedAt: observed,
		Nodes: []types.SlurmNode{
			nodeWith(t, "q-st-c5-1", "IDLE+CLOUD", "q-st-c5-1"),
			nodeWith(t, "q-dy-c5-1", "ALLOCATED+CLOUD", "10.0.0.1"),
			nodeWith(t, "q-dy-c5-2", "MIXED+CLOUD", "10.0.0.2"),
			nodeWith(t, "q-dy-c5-3", "IDLE", "q-dy-c5-3"),
		},
		Partitions: []*types.SlurmPartition{
			{Name: "q", State: types.PartitionStatusInactive},
			{Name: "r", State: types.PartitionStatusUp},
			{Name: "s", State: types.PartitionStatusUp},
		},
	}

	changes := Changes(prev, next)
	type change struct {
		typ               events.EventType
		subject, from, to string
	}
	var got []change
	for _, ev := range changes {
		assert.Equal(t, observed, ev.Timestamp)
		got = append(got, change{ev.Type, ev.Subject, ev.From, ev.To})
	}

	assert.Equal(t, []change{
		{events.EventNodeStateChanged, "q-dy-c5-1", "IDLE+CLOUD+POWERED_DOWN", "ALLOCATED+CLOUD"},
		{events.EventNodeAddrChanged, "q-dy-c5-1", "q-dy-c5-1", "10.0.0.1"},
		{events.EventNodeAppeared, "q-dy-c5-3", "", "IDLE"},
		{events.EventNodeRemoved, "q-dy-c5-9", "IDLE", ""},
		{events.EventPartitionStateChanged, "q", "UP", "INACTIVE"},
	}, got)
}
