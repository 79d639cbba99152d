package slurm

import (
	"context"

	"github.com/cuemby/slurmgate/pkg/log"
	"github.com/cuemby/slurmgate/pkg/metrics"
	"github.com/cuemby/slurmgate/pkg/nodelist"
	"github.com/cuemby/slurmgate/pkg/types"
)

// UpdatePartitions sets the state of each partition independently and
// returns the partitions whose update succeeded, in request order
func (c *Client) UpdatePartitions(ctx context.Context, partitions []string, state string) []string {
	var succeeded []string
	for _, partition := range partitions {
		logger := log.WithPartition(partition)

		cmd, err := c.partitionUpdateCommand(partition, state)
		if err == nil {
			err = c.exec.Run(ctx, cmd, c.cfg.UpdateTimeout)
		}
		if err != nil {
			metrics.PartitionUpdatesTotal.WithLabelValues(state, "failed").Inc()
			logger.Error().Err(err).Str("state", state).Msg("Failed to update partition")
			continue
		}

		metrics.PartitionUpdatesTotal.WithLabelValues(state, "success").Inc()
		logger.Info().Str("state", state).Msg("Partition updated")
		succeeded = append(succeeded, partition)
	}
	return succeeded
}

// UpdateAllPartitions moves every owned partition to state. When
// resetNodeAddrs is set, the nodes of each partition changing state are
// forced to power down first. It reports whether every partition not
// already in state was updated; failures are logged.
func (c *Client) UpdateAllPartitions(ctx context.Context, state types.PartitionStatus, resetNodeAddrs bool) bool {
	partitions, err := c.GetPartitionsInfo(ctx)
	if err != nil {
		c.logger.Error().Err(err).Msg("Failed to list partitions")
		return false
	}

	target := types.ParsePartitionStatus(string(state))

	var toUpdate []string
	for _, part := range partitions {
		if part.State == target {
			continue
		}
		if resetNodeAddrs {
			c.logger.Info().Str("partition", part.Name).Msg("Setting partition nodes to power down")
			nodes, err := nodelist.Parse(part.NodeNames)
			if err == nil {
				err = c.SetNodesPowerDown(ctx, nodes, "stopping cluster")
			}
			if err != nil {
				c.logger.Error().Err(err).Str("partition", part.Name).Msg("Failed to power down partition nodes")
				return false
			}
		}
		toUpdate = append(toUpdate, part.Name)
	}

	if len(toUpdate) == 0 {
		return true
	}
	c.logger.Info().Strs("partitions", toUpdate).Str("state", string(target)).Msg("Updating partitions")
	succeeded := c.UpdatePartitions(ctx, toUpdate, string(target))
	return len(succeeded) == len(toUpdate)
}
