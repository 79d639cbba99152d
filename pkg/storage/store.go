package storage

import (
	"time"

	"github.com/cuemby/slurmgate/pkg/executor"
	"github.com/cuemby/slurmgate/pkg/types"
)

// CommandRecord is a journaled administrative command
type CommandRecord struct {
	ID       string        `json:"id"`
	Argv     []string      `json:"argv"`
	Started  time.Time     `json:"started"`
	Duration time.Duration `json:"duration"`
	Error    string        `json:"error,omitempty"`
}

// Failed reports whether the command returned an error
func (r *CommandRecord) Failed() bool {
	return r.Error != ""
}

// NodeSnapshot is the last observed state of a node
type NodeSnapshot struct {
	Name       string                 `json:"name"`
	Mode       types.ProvisioningMode `json:"mode"`
	Addr       string                 `json:"addr"`
	Hostname   string                 `json:"hostname"`
	State      string                 `json:"state"`
	Partitions []string               `json:"partitions,omitempty"`
	Reason     string                 `json:"reason,omitempty"`
	ObservedAt time.Time              `json:"observed_at"`
}

// Store defines the interface for the command journal and node snapshots
type Store interface {
	// Commands
	RecordCommand(rec executor.Record) error
	ListCommands(limit int) ([]*CommandRecord, error)
	PruneCommands(keep int) (int, error)

	// Node snapshots
	SaveNodeSnapshots(nodes []types.SlurmNode, observedAt time.Time) error
	GetNodeSnapshot(name string) (*NodeSnapshot, error)
	ListNodeSnapshots() ([]*NodeSnapshot, error)

	// Utility
	Close() error
}
