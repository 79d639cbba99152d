package slurm

import (
	"errors"
	"fmt"

	"github.com/cuemby/slurmgate/pkg/executor"
	"github.com/cuemby/slurmgate/pkg/nodelist"
)

// Node states accepted by "scontrol update"
const (
	StateDown           = "down"
	StateDrain          = "drain"
	StateResume         = "resume"
	StatePowerDownForce = "power_down_force"
	StateIdle           = "idle"
)

// ErrReasonRequired is returned when a state that needs a reason is set without one
var ErrReasonRequired = errors.New("reason is required")

// scontrol builds an administration command, run through sudo when configured
func (c *Client) scontrol(args ...string) executor.Command {
	if c.cfg.UseSudo {
		return executor.NewCommand("sudo", append([]string{c.cfg.ScontrolPath()}, args...)...)
	}
	return executor.NewCommand(c.cfg.ScontrolPath(), args...)
}

func (c *Client) sinfo(args ...string) executor.Command {
	return executor.NewCommand(c.cfg.SinfoPath(), args...)
}

// UpdateCommand is the node update for one batch
type UpdateCommand struct {
	Batch   nodelist.Batch
	Command executor.Command
}

// BuildUpdateCommands validates every value and returns one
// "scontrol update" command per batch:
//
//	scontrol update [state=<state>] [reason=<reason>] nodename=<nodes> [nodeaddr=<addrs>] [nodehostname=<hostnames>]
//
// Nothing is returned unless every batch is valid.
func (c *Client) BuildUpdateCommands(nodes nodelist.List, opts UpdateOptions) ([]UpdateCommand, error) {
	if err := executor.ValidateArguments(opts.State, opts.Reason); err != nil {
		return nil, err
	}

	batches, err := nodelist.Split(nodes, opts.Addrs, opts.Hostnames, c.cfg.BatchSize)
	if err != nil {
		c.logger.Error().Err(err).Msg("node attribute lists are not aligned")
		return nil, err
	}

	var prefix []string
	prefix = append(prefix, "update")
	if opts.State != "" {
		prefix = append(prefix, "state="+opts.State)
	}
	if opts.Reason != "" {
		prefix = append(prefix, "reason="+opts.Reason)
	}

	cmds := make([]UpdateCommand, 0, len(batches))
	for _, b := range batches {
		if err := executor.ValidateArguments(b.Nodes, b.Addrs, b.Hostnames); err != nil {
			return nil, err
		}
		args := append(append([]string(nil), prefix...), "nodename="+b.Nodes)
		if b.Addrs != "" {
			args = append(args, "nodeaddr="+b.Addrs)
		}
		if b.Hostnames != "" {
			args = append(args, "nodehostname="+b.Hostnames)
		}
		cmds = append(cmds, UpdateCommand{Batch: b, Command: c.scontrol(args...)})
	}
	return cmds, nil
}

// partitionUpdateCommand builds "scontrol update partitionname=<name> state=<state>"
func (c *Client) partitionUpdateCommand(partition, state string) (executor.Command, error) {
	if err := executor.ValidateArguments(partition, state); err != nil {
		return executor.Command{}, err
	}
	if partition == "" {
		return executor.Command{}, fmt.Errorf("partition name must not be empty")
	}
	return c.scontrol("update", "partitionname="+partition, "state="+state), nil
}
