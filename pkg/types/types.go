package types

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidNodeName is returned when a node name does not follow the
// {queue}-{st|dy}-{instancetype}-{index} naming convention
var ErrInvalidNodeName = errors.New("invalid node name")

// ProvisioningMode defines how the backing resource of a node is managed
type ProvisioningMode string

const (
	ProvisioningStatic  ProvisioningMode = "st"
	ProvisioningDynamic ProvisioningMode = "dy"
)

var nodeNamePattern = regexp.MustCompile(`^([a-z0-9\-]+)-(st|dy)-([a-z0-9\-]+)-(\d+)$`)

// NodeName holds the metadata encoded in a node name
type NodeName struct {
	Queue        string
	Mode         ProvisioningMode
	InstanceType string
	Index        int
}

// ParseNodeName splits a node name into queue, provisioning mode,
// instance type and index
func ParseNodeName(name string) (NodeName, error) {
	m := nodeNamePattern.FindStringSubmatch(name)
	if m == nil {
		return NodeName{}, fmt.Errorf("%w: %q", ErrInvalidNodeName, name)
	}
	index, err := strconv.Atoi(m[4])
	if err != nil {
		return NodeName{}, fmt.Errorf("%w: %q: %v", ErrInvalidNodeName, name, err)
	}
	return NodeName{
		Queue:        m[1],
		Mode:         ProvisioningMode(m[2]),
		InstanceType: m[3],
		Index:        index,
	}, nil
}

// IsStaticNode reports whether name belongs to a static node. Names that
// cannot be parsed are reported as errors.
func IsStaticNode(name string) (bool, error) {
	parsed, err := ParseNodeName(name)
	if err != nil {
		return false, err
	}
	return parsed.Mode == ProvisioningStatic, nil
}

// Node state flags as printed by scontrol in the compound State field
const (
	NodeStateIdle          = "IDLE"
	NodeStateAllocated     = "ALLOCATED"
	NodeStateMixed         = "MIXED"
	NodeStateDown          = "DOWN"
	NodeStateDrain         = "DRAIN"
	NodeStateCloud         = "CLOUD"
	NodeStatePowered       = "POWER"
	NodeStatePoweringDown  = "POWERING_DOWN"
	NodeStatePoweredDown   = "POWERED_DOWN"
	NodeStatePoweringUp    = "POWERING_UP"
	NodeStateNotResponding = "NOT_RESPONDING"
)

// NodeInfo carries the fields read from a scheduler node record
type NodeInfo struct {
	Name            string
	NodeName        NodeName
	Addr            string
	Hostname        string
	State           string
	Partitions      []string
	Reason          string
	SlurmdStartTime *time.Time
	LastBusyTime    *time.Time
}

// Info returns the node record
func (n *NodeInfo) Info() *NodeInfo {
	return n
}

// StateFlags returns the individual flags of the compound State field,
// e.g. "IDLE+CLOUD+POWER" yields [IDLE CLOUD POWER]
func (n *NodeInfo) StateFlags() []string {
	if n.State == "" {
		return nil
	}
	return strings.Split(n.State, "+")
}

// HasStateFlag reports whether the compound state contains flag
func (n *NodeInfo) HasStateFlag(flag string) bool {
	for _, f := range n.StateFlags() {
		if strings.EqualFold(f, flag) {
			return true
		}
	}
	return false
}

// IsNodeAddrReset reports whether address and hostname still equal the
// node name, i.e. no backing instance is attached
func (n *NodeInfo) IsNodeAddrReset() bool {
	return n.Addr == n.Name && n.Hostname == n.Name
}

// SlurmNode is implemented by StaticNode and DynamicNode
type SlurmNode interface {
	Info() *NodeInfo
	Mode() ProvisioningMode
}

// StaticNode is a node backed by a pre-existing resource
type StaticNode struct {
	NodeInfo
}

// Mode returns ProvisioningStatic
func (n *StaticNode) Mode() ProvisioningMode {
	return ProvisioningStatic
}

// DynamicNode is a node whose backing resource is provisioned on demand
type DynamicNode struct {
	NodeInfo
}

// Mode returns ProvisioningDynamic
func (n *DynamicNode) Mode() ProvisioningMode {
	return ProvisioningDynamic
}

// NewSlurmNode builds the variant matching the provisioning mode encoded
// in info.Name. Unparseable names return ErrInvalidNodeName.
func NewSlurmNode(info NodeInfo) (SlurmNode, error) {
	parsed, err := ParseNodeName(info.Name)
	if err != nil {
		return nil, err
	}
	info.NodeName = parsed
	if parsed.Mode == ProvisioningStatic {
		return &StaticNode{NodeInfo: info}, nil
	}
	return &DynamicNode{NodeInfo: info}, nil
}

// PartitionStatus represents the state of a scheduler partition
type PartitionStatus string

const (
	PartitionStatusUp       PartitionStatus = "UP"
	PartitionStatusDown     PartitionStatus = "DOWN"
	PartitionStatusDrain    PartitionStatus = "DRAIN"
	PartitionStatusInactive PartitionStatus = "INACTIVE"
)

// ParsePartitionStatus normalizes a scheduler partition state
func ParsePartitionStatus(s string) PartitionStatus {
	return PartitionStatus(strings.ToUpper(strings.TrimSpace(s)))
}

// SlurmPartition represents a scheduler partition
type SlurmPartition struct {
	Name      string
	NodeNames string
	State     PartitionStatus
}

// IsInactive reports whether the partition no longer schedules jobs
func (p *SlurmPartition) IsInactive() bool {
	return p.State == PartitionStatusInactive
}

// PendingResourceReasons are scheduler reasons meaning a job is waiting on
// capacity or priority rather than failing
var PendingResourceReasons = []string{
	"Resources",
	"Nodes required for job are DOWN, DRAINED or reserved for jobs in higher priority partitions",
	"BeginTime",
	"NodeDown",
	"Priority",
	"ReqNodeNotAvail, May be reserved for other job",
}

// IsPendingResourceReason reports whether reason is one of PendingResourceReasons
func IsPendingResourceReason(reason string) bool {
	for _, r := range PendingResourceReasons {
		if r == reason {
			return true
		}
	}
	return false
}
