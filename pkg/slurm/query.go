package slurm

import (
	"context"
	"fmt"
	"strings"

	"github.com/cuemby/slurmgate/pkg/executor"
	"github.com/cuemby/slurmgate/pkg/parser"
	"github.com/cuemby/slurmgate/pkg/types"
)

// SqueueFieldSize is the column width requested for every squeue field
const SqueueFieldSize = 200

var squeueFields = []string{
	"jobid",
	"statecompact",
	"numnodes",
	"numcpus",
	"numtasks",
	"cpus-per-task",
	"mincpus",
	"reason",
	"tres-per-job",
	"tres-per-task",
	"tres-per-node",
	"cpus-per-tres",
}

// SqueueFieldString is the squeue --Format value used to list pending jobs
var SqueueFieldString = func() string {
	parts := make([]string, len(squeueFields))
	for i, f := range squeueFields {
		parts[i] = fmt.Sprintf("%s:%d", f, SqueueFieldSize)
	}
	return strings.Join(parts, ",")
}()

// ownedPartitions returns the owned partition names joined for a -p argument
func (c *Client) ownedPartitions() (string, error) {
	partitions, err := c.owners.Partitions()
	if err != nil {
		return "", err
	}
	return strings.Join(partitions, ","), nil
}

// GetNodesInfo returns the nodes of a node range expression. An empty
// expression queries every node of the owned partitions. Records whose
// name does not follow the naming convention are dropped.
func (c *Client) GetNodesInfo(ctx context.Context, nodes string) ([]types.SlurmNode, error) {
	if nodes == "" {
		partitions, err := c.ownedPartitions()
		if err != nil {
			return nil, err
		}
		if partitions == "" {
			return nil, nil
		}
		if nodes, err = c.GetAllPartitionNodes(ctx, partitions); err != nil {
			return nil, err
		}
		// "scontrol show nodes" with no argument would dump every node of the cluster
		if nodes == "" {
			return nil, nil
		}
	}

	if err := executor.ValidateArgument(nodes); err != nil {
		return nil, err
	}

	out, err := c.exec.Output(ctx, c.scontrol("show", "nodes", nodes), c.cfg.InfoTimeout)
	if err != nil {
		return nil, err
	}
	return c.parser.ParseNodes(out), nil
}

// GetPartitionsInfo returns state and members of every owned partition
func (c *Client) GetPartitionsInfo(ctx context.Context) ([]*types.SlurmPartition, error) {
	partitions, err := c.owners.Partitions()
	if err != nil {
		return nil, err
	}
	owned := make(map[string]bool, len(partitions))
	for _, p := range partitions {
		owned[p] = true
	}

	out, err := c.exec.Output(ctx, c.scontrol("show", "partitions", "-o"), c.cfg.InfoTimeout)
	if err != nil {
		return nil, err
	}

	var result []*types.SlurmPartition
	for _, rec := range parser.ParsePartitions(out, func(name string) bool { return owned[name] }) {
		nodes, err := c.GetAllPartitionNodes(ctx, rec.Name)
		if err != nil {
			return nil, err
		}
		result = append(result, &types.SlurmPartition{
			Name:      rec.Name,
			NodeNames: nodes,
			State:     rec.State,
		})
	}
	return result, nil
}

// GetAllPartitionNodes returns the node range expression of one or more
// comma separated partitions
func (c *Client) GetAllPartitionNodes(ctx context.Context, partition string) (string, error) {
	if err := executor.ValidateArgument(partition); err != nil {
		return "", err
	}
	out, err := c.exec.Output(ctx, c.sinfo("-h", "-p", partition, "-o", "%N"), c.cfg.InfoTimeout)
	if err != nil {
		return "", err
	}
	// sinfo prints one range per partition and state group
	return strings.Join(parser.ParseNodeListing(out), ","), nil
}

// GetSlurmNodes lists node names one by one, optionally filtered by state.
// An empty partition means every owned partition.
func (c *Client) GetSlurmNodes(ctx context.Context, states, partition string) ([]string, error) {
	if partition == "" {
		var err error
		if partition, err = c.ownedPartitions(); err != nil {
			return nil, err
		}
		if partition == "" {
			return nil, nil
		}
	}
	if err := executor.ValidateArguments(partition, states); err != nil {
		return nil, err
	}

	args := []string{"-h", "-N", "-o", "%N", "-p", partition}
	if states != "" {
		args = append(args, "-t", states)
	}
	out, err := c.exec.Output(ctx, c.sinfo(args...), c.cfg.InfoTimeout)
	if err != nil {
		return nil, err
	}
	return parser.ParseNodeListing(out), nil
}
