package slurm

import (
	"context"
	"fmt"
	"time"

	"github.com/cuemby/slurmgate/pkg/metrics"
	"github.com/cuemby/slurmgate/pkg/nodelist"
)

// UpdateOptions are the optional parts of a node update
type UpdateOptions struct {
	// Addrs and Hostnames, when set, must have one entry per node token
	Addrs     nodelist.List
	Hostnames nodelist.List

	State  string
	Reason string

	// IgnoreErrors logs failed batches instead of returning their error
	IgnoreErrors bool

	// Timeout per batch, defaults to the configured update timeout
	Timeout time.Duration
}

// UpdateNodes sets state, reason, addresses and hostnames of nodes, one
// scontrol invocation per batch of tokens. Every batch is attempted; the
// first failure is returned unless IgnoreErrors is set. Invalid values
// fail before any command runs, regardless of IgnoreErrors.
func (c *Client) UpdateNodes(ctx context.Context, nodes nodelist.List, opts UpdateOptions) error {
	cmds, err := c.BuildUpdateCommands(nodes, opts)
	if err != nil {
		return err
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = c.cfg.UpdateTimeout
	}
	stateLabel := opts.State
	if stateLabel == "" {
		stateLabel = "none"
	}

	var firstErr error
	for _, uc := range cmds {
		logger := c.logger.With().Str("nodes", uc.Batch.Nodes).Str("state", opts.State).Logger()

		if err := c.exec.Run(ctx, uc.Command, timeout); err != nil {
			metrics.BatchesTotal.WithLabelValues(stateLabel, "failed").Inc()
			if opts.IgnoreErrors {
				logger.Warn().Err(err).Msg("Node update failed, ignoring")
				continue
			}
			logger.Error().Err(err).Msg("Node update failed")
			if firstErr == nil {
				firstErr = fmt.Errorf("failed to update nodes %s: %w", uc.Batch.Nodes, err)
			}
			continue
		}

		metrics.BatchesTotal.WithLabelValues(stateLabel, "success").Inc()
		logger.Debug().Msg("Nodes updated")
	}
	return firstErr
}

// SetNodesDown marks nodes down with a mandatory reason
func (c *Client) SetNodesDown(ctx context.Context, nodes nodelist.List, reason string) error {
	if reason == "" {
		return fmt.Errorf("set nodes down: %w", ErrReasonRequired)
	}
	return c.UpdateNodes(ctx, nodes, UpdateOptions{State: StateDown, Reason: reason})
}

// SetNodesDrain drains nodes with a mandatory reason
func (c *Client) SetNodesDrain(ctx context.Context, nodes nodelist.List, reason string) error {
	if reason == "" {
		return fmt.Errorf("drain nodes: %w", ErrReasonRequired)
	}
	return c.UpdateNodes(ctx, nodes, UpdateOptions{State: StateDrain, Reason: reason})
}

// SetNodesPowerDown forces nodes to power down. The whole update is retried
// according to the power down policy and the last error is returned.
func (c *Client) SetNodesPowerDown(ctx context.Context, nodes nodelist.List, reason string) error {
	return c.powerDownRetry.Do(ctx, func(ctx context.Context) error {
		return c.ResetNodes(ctx, nodes, StatePowerDownForce, reason, false)
	})
}

// ResetNodes sets state and reason and resets every node's address and
// hostname back to its name
func (c *Client) ResetNodes(ctx context.Context, nodes nodelist.List, state, reason string, ignoreErrors bool) error {
	return c.UpdateNodes(ctx, nodes, UpdateOptions{
		Addrs:        nodes,
		Hostnames:    nodes,
		State:        state,
		Reason:       reason,
		IgnoreErrors: ignoreErrors,
	})
}

// SetNodesIdle resumes nodes, optionally resetting their address and
// hostname. Command failures are only logged; the returned error reports
// invalid input.
func (c *Client) SetNodesIdle(ctx context.Context, nodes nodelist.List, reason string, resetAddrHostname bool) error {
	if resetAddrHostname {
		return c.ResetNodes(ctx, nodes, StateResume, reason, true)
	}
	return c.UpdateNodes(ctx, nodes, UpdateOptions{
		State:        StateResume,
		Reason:       reason,
		IgnoreErrors: true,
	})
}

// ResumePoweringDownNodes resumes the nodes of owned partitions that are
// powering down. Failures are logged.
func (c *Client) ResumePoweringDownNodes(ctx context.Context) {
	names, err := c.GetSlurmNodes(ctx, "powering_down", "")
	if err != nil {
		c.logger.Error().Err(err).Msg("Failed to list powering down nodes")
		return
	}
	if len(names) == 0 {
		return
	}

	c.logger.Info().Strs("nodes", names).Msg("Resuming powering down nodes")
	if err := c.UpdateNodes(ctx, nodelist.List(names), UpdateOptions{
		State:        StateResume,
		IgnoreErrors: true,
	}); err != nil {
		c.logger.Error().Err(err).Msg("Failed to resume powering down nodes")
	}
}

func (c *Client) logRetry(operation string) func(attempt int, err error) {
	return func(attempt int, err error) {
		metrics.RetriesTotal.WithLabelValues(operation).Inc()
		c.logger.Warn().Err(err).Int("attempt", attempt).Str("operation", operation).Msg("Retrying")
	}
}
