package monitor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cuemby/slurmgate/pkg/events"
	"github.com/cuemby/slurmgate/pkg/log"
	"github.com/cuemby/slurmgate/pkg/metrics"
	"github.com/cuemby/slurmgate/pkg/ownership"
	"github.com/cuemby/slurmgate/pkg/storage"
	"github.com/cuemby/slurmgate/pkg/types"
	"github.com/rs/zerolog"
)

// StatusSource returns the current view of the managed nodes and partitions
type StatusSource interface {
	GetNodesInfo(ctx context.Context, nodes string) ([]types.SlurmNode, error)
	GetPartitionsInfo(ctx context.Context) ([]*types.SlurmPartition, error)
}

// Snapshot is the result of one successful poll
type Snapshot struct {
	Nodes      []types.SlurmNode
	Partitions []*types.SlurmPartition
	ObservedAt time.Time
}

// Monitor polls the scheduler on an interval, exports node and partition
// gauges and records node snapshots in the journal
type Monitor struct {
	source      StatusSource
	store       storage.Store
	interval    time.Duration
	journalKeep int
	broker      *events.Broker
	logger      zerolog.Logger
	now         func() time.Time

	mu     sync.RWMutex
	last   *Snapshot
	stopCh chan struct{}
	doneCh chan struct{}
}

// New creates a monitor. store may be nil, in which case nothing is journaled.
func New(source StatusSource, store storage.Store, interval time.Duration, journalKeep int) *Monitor {
	return &Monitor{
		source:      source,
		store:       store,
		interval:    interval,
		journalKeep: journalKeep,
		logger:      log.WithComponent("monitor"),
		now:         time.Now,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}
}

// WithEvents publishes the changes between consecutive polls to b
func (m *Monitor) WithEvents(b *events.Broker) *Monitor {
	m.broker = b
	return m
}

// Start polls once and then on every interval until Stop is called or ctx is done
func (m *Monitor) Start(ctx context.Context) {
	go m.run(ctx)
}

// Stop stops the poll loop and waits for the running poll to finish
func (m *Monitor) Stop() {
	close(m.stopCh)
	<-m.doneCh
}

func (m *Monitor) run(ctx context.Context) {
	defer close(m.doneCh)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.poll(ctx)
	for {
		select {
		case <-ticker.C:
			m.poll(ctx)
		case <-m.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (m *Monitor) poll(ctx context.Context) {
	if err := m.Poll(ctx); err != nil {
		m.logger.Error().Err(err).Msg("Status poll failed")
	}
}

// Last returns the most recent successful snapshot, nil before the first one
func (m *Monitor) Last() *Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.last
}

// Poll runs one cycle
func (m *Monitor) Poll(ctx context.Context) error {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.PollDuration)

	snap, err := m.collect(ctx)
	if err != nil {
		metrics.PollsTotal.WithLabelValues("failed").Inc()
		if errors.Is(err, ownership.ErrSource) {
			metrics.UpdateComponent(metrics.ComponentOwnership, false, err.Error())
		} else {
			metrics.UpdateComponent(metrics.ComponentSlurmctld, false, err.Error())
		}
		return err
	}
	metrics.UpdateComponent(metrics.ComponentOwnership, true, "")
	metrics.UpdateComponent(metrics.ComponentSlurmctld, true, "")
	metrics.PollsTotal.WithLabelValues("success").Inc()

	exportGauges(snap)

	m.mu.Lock()
	prev := m.last
	m.last = snap
	m.mu.Unlock()

	if m.broker != nil {
		for _, ev := range Changes(prev, snap) {
			m.broker.Publish(ev)
		}
	}

	if err := m.journal(snap); err != nil {
		metrics.UpdateComponent(metrics.ComponentJournal, false, err.Error())
		m.logger.Warn().Err(err).Msg("Failed to journal node snapshots")
	} else if m.store != nil {
		metrics.UpdateComponent(metrics.ComponentJournal, true, "")
	}

	m.logger.Debug().
		Int("nodes", len(snap.Nodes)).
		Int("partitions", len(snap.Partitions)).
		Dur("duration", timer.Duration()).
		Msg("Status poll completed")
	return nil
}

func (m *Monitor) collect(ctx context.Context) (*Snapshot, error) {
	partitions, err := m.source.GetPartitionsInfo(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get partitions: %w", err)
	}
	nodes, err := m.source.GetNodesInfo(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("failed to get nodes: %w", err)
	}
	return &Snapshot{Nodes: nodes, Partitions: partitions, ObservedAt: m.now().UTC()}, nil
}

func (m *Monitor) journal(snap *Snapshot) error {
	if m.store == nil {
		return nil
	}
	if err := m.store.SaveNodeSnapshots(snap.Nodes, snap.ObservedAt); err != nil {
		return err
	}
	if m.journalKeep <= 0 {
		return nil
	}
	pruned, err := m.store.PruneCommands(m.journalKeep)
	if err != nil {
		return err
	}
	if pruned > 0 {
		m.logger.Debug().Int("pruned", pruned).Msg("Pruned command journal")
	}
	return nil
}

// PrimaryState is the first flag of a node state, e.g. IDLE for IDLE+CLOUD
func PrimaryState(state string) string {
	primary, _, _ := strings.Cut(state, "+")
	if primary == "" {
		return "UNKNOWN"
	}
	return strings.ToUpper(primary)
}

func exportGauges(snap *Snapshot) {
	metrics.Nodes.Reset()
	for _, n := range snap.Nodes {
		metrics.Nodes.WithLabelValues(string(n.Mode()), PrimaryState(n.Info().State)).Inc()
	}

	metrics.Partitions.Reset()
	for _, p := range snap.Partitions {
		metrics.Partitions.WithLabelValues(string(p.State)).Inc()
	}
}
