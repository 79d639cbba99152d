package monitor

import (
	"sort"

	"github.com/cuemby/slurmgate/pkg/events"
)

// Changes lists what changed between two snapshots: nodes that appeared or
// disappeared, node state and address changes and partition state changes.
// A nil prev yields no events.
func Changes(prev, next *Snapshot) []*events.Event {
	if prev == nil || next == nil {
		return nil
	}

	var out []*events.Event
	emit := func(t events.EventType, subject, from, to, reason string) {
		out = append(out, &events.Event{
			Type:      t,
			Timestamp: next.ObservedAt,
			Subject:   subject,
			From:      from,
			To:        to,
			Reason:    reason,
		})
	}

	before := make(map[string]int, len(prev.Nodes))
	for i, n := range prev.Nodes {
		before[n.Info().Name] = i
	}
	seen := make(map[string]bool, len(next.Nodes))
	for _, n := range next.Nodes {
		info := n.Info()
		seen[info.Name] = true

		i, ok := before[info.Name]
		if !ok {
			emit(events.EventNodeAppeared, info.Name, "", info.State, info.Reason)
			continue
		}
		old := prev.Nodes[i].Info()
		if old.State != info.State {
			emit(events.EventNodeStateChanged, info.Name, old.State, info.State, info.Reason)
		}
		if old.Addr != info.Addr {
			emit(events.EventNodeAddrChanged, info.Name, old.Addr, info.Addr, "")
		}
	}

	var removed []string
	for name := range before {
		if !seen[name] {
			removed = append(removed, name)
		}
	}
	sort.Strings(removed)
	for _, name := range removed {
		emit(events.EventNodeRemoved, name, prev.Nodes[before[name]].Info().State, "", "")
	}

	states := make(map[string]string, len(prev.Partitions))
	for _, p := range prev.Partitions {
		states[p.Name] = string(p.State)
	}
	for _, p := range next.Partitions {
		if old, ok := states[p.Name]; ok && old != string(p.State) {
			emit(events.EventPartitionStateChanged, p.Name, old, string(p.State), "")
		}
	}
	return out
}
