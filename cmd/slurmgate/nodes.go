package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/cuemby/slurmgate/pkg/log"
	"github.com/cuemby/slurmgate/pkg/nodelist"
	"github.com/cuemby/slurmgate/pkg/slurm"
	"github.com/cuemby/slurmgate/pkg/types"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var nodesCmd = &cobra.Command{
	Use:   "nodes",
	Short: "Update and inspect nodes",
}

var nodesDownCmd = &cobra.Command{
	Use:     "down NODES",
	Short:   "Set nodes down",
	Example: `  slurmgate nodes down 'queue1-dy-c5xlarge-[1-3]' --reason "Scheduler health check failed"`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runNodeUpdate(cmd, args[0], func(a *app, nodes nodelist.List, reason string) error {
			return a.client.SetNodesDown(cmd.Context(), nodes, reason)
		})
	},
}

var nodesDrainCmd = &cobra.Command{
	Use:   "drain NODES",
	Short: "Drain nodes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runNodeUpdate(cmd, args[0], func(a *app, nodes nodelist.List, reason string) error {
			return a.client.SetNodesDrain(cmd.Context(), nodes, reason)
		})
	},
}

var nodesPowerDownCmd = &cobra.Command{
	Use:   "power-down NODES",
	Short: "Force nodes to power down and reset their address and hostname",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runNodeUpdate(cmd, args[0], func(a *app, nodes nodelist.List, reason string) error {
			return a.client.SetNodesPowerDown(cmd.Context(), nodes, reason)
		})
	},
}

var nodesResumeCmd = &cobra.Command{
	Use:   "resume NODES",
	Short: "Resume nodes; failures are logged but do not fail the command",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reset, _ := cmd.Flags().GetBool("reset-addrs")
		return runNodeUpdate(cmd, args[0], func(a *app, nodes nodelist.List, reason string) error {
			return a.client.SetNodesIdle(cmd.Context(), nodes, reason, reset)
		})
	},
}

var nodesUpdateCmd = &cobra.Command{
	Use:     "update NODES",
	Short:   "Update state, reason, addresses and hostnames of nodes",
	Example: `  slurmgate nodes update 'q-st-c5-[1-2]' --addrs 10.0.0.1,10.0.0.2 --hostnames ip-10-0-0-1,ip-10-0-0-2`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		state, _ := cmd.Flags().GetString("state")
		addrs, _ := cmd.Flags().GetString("addrs")
		hostnames, _ := cmd.Flags().GetString("hostnames")
		ignore, _ := cmd.Flags().GetBool("ignore-errors")

		opts := slurm.UpdateOptions{State: state, IgnoreErrors: ignore}
		var err error
		if opts.Addrs, err = nodelist.Parse(addrs); err != nil {
			return err
		}
		if opts.Hostnames, err = nodelist.Parse(hostnames); err != nil {
			return err
		}
		return runNodeUpdate(cmd, args[0], func(a *app, nodes nodelist.List, reason string) error {
			opts.Reason = reason
			return a.client.UpdateNodes(cmd.Context(), nodes, opts)
		})
	},
}

func runNodeUpdate(cmd *cobra.Command, expr string, update func(a *app, nodes nodelist.List, reason string) error) error {
	nodes, err := nodelist.Parse(expr)
	if err != nil {
		return err
	}
	reason, _ := cmd.Flags().GetString("reason")

	a := openApp(cmd)
	defer a.Close()

	logger := log.WithNodes(nodes.String())
	if err := update(a, nodes, reason); err != nil {
		return err
	}
	logger.Info().Str("command", cmd.Name()).Msg("Nodes updated")
	return nil
}

var nodesInfoCmd = &cobra.Command{
	Use:   "info [NODES]",
	Short: "Show nodes, by default every node of the managed partitions",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		expr := ""
		if len(args) == 1 {
			expr = args[0]
		}
		output, _ := cmd.Flags().GetString("output")

		a := openApp(cmd)
		defer a.Close()

		nodes, err := a.client.GetNodesInfo(cmd.Context(), expr)
		if err != nil {
			return err
		}
		return printNodes(nodes, output)
	},
}

var nodesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List node names, one per line",
	RunE: func(cmd *cobra.Command, args []string) error {
		states, _ := cmd.Flags().GetString("states")
		partition, _ := cmd.Flags().GetString("partition")

		a := openApp(cmd)
		defer a.Close()

		names, err := a.client.GetSlurmNodes(cmd.Context(), states, partition)
		if err != nil {
			return err
		}
		for _, name := range names {
			fmt.Println(name)
		}
		return nil
	},
}

var nodesResumePoweringDownCmd = &cobra.Command{
	Use:   "resume-powering-down",
	Short: "Resume managed nodes that are powering down",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a := openApp(cmd)
		defer a.Close()

		a.client.ResumePoweringDownNodes(cmd.Context())
		return nil
	},
}

var nodesIsStaticCmd = &cobra.Command{
	Use:   "is-static NAME",
	Short: "Report whether a node name belongs to a static node",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		static, err := types.IsStaticNode(args[0])
		if err != nil {
			return err
		}
		fmt.Println(static)
		return nil
	},
}

func init() {
	nodesCmd.AddCommand(nodesDownCmd)
	nodesCmd.AddCommand(nodesDrainCmd)
	nodesCmd.AddCommand(nodesPowerDownCmd)
	nodesCmd.AddCommand(nodesResumeCmd)
	nodesCmd.AddCommand(nodesUpdateCmd)
	nodesCmd.AddCommand(nodesInfoCmd)
	nodesCmd.AddCommand(nodesListCmd)
	nodesCmd.AddCommand(nodesResumePoweringDownCmd)
	nodesCmd.AddCommand(nodesIsStaticCmd)

	for _, c := range []*cobra.Command{nodesDownCmd, nodesDrainCmd, nodesPowerDownCmd, nodesResumeCmd, nodesUpdateCmd} {
		c.Flags().String("reason", "", "Reason recorded by the scheduler")
	}
	_ = nodesDownCmd.MarkFlagRequired("reason")
	_ = nodesDrainCmd.MarkFlagRequired("reason")

	nodesResumeCmd.Flags().Bool("reset-addrs", false, "Reset node address and hostname to the node name")

	nodesUpdateCmd.Flags().String("state", "", "Target node state")
	nodesUpdateCmd.Flags().String("addrs", "", "Node addresses, one per node token")
	nodesUpdateCmd.Flags().String("hostnames", "", "Node hostnames, one per node token")
	nodesUpdateCmd.Flags().Bool("ignore-errors", false, "Log failed batches instead of failing")

	nodesInfoCmd.Flags().StringP("output", "o", "table", "Output format (table, yaml)")

	nodesListCmd.Flags().String("states", "", "Comma separated node states to list")
	nodesListCmd.Flags().String("partition", "", "Partitions to list, default every managed partition")
}

// nodeView is the printable form of a node
type nodeView struct {
	Name            string   `yaml:"name"`
	Mode            string   `yaml:"mode"`
	Addr            string   `yaml:"addr"`
	Hostname        string   `yaml:"hostname"`
	State           string   `yaml:"state"`
	Partitions      []string `yaml:"partitions,omitempty"`
	Reason          string   `yaml:"reason,omitempty"`
	SlurmdStartTime string   `yaml:"slurmd_start_time,omitempty"`
	LastBusyTime    string   `yaml:"last_busy_time,omitempty"`
}

func printNodes(nodes []types.SlurmNode, output string) error {
	views := make([]nodeView, 0, len(nodes))
	for _, n := range nodes {
		info := n.Info()
		v := nodeView{
			Name:       info.Name,
			Mode:       string(n.Mode()),
			Addr:       info.Addr,
			Hostname:   info.Hostname,
			State:      info.State,
			Partitions: info.Partitions,
			Reason:     info.Reason,
		}
		if info.SlurmdStartTime != nil {
			v.SlurmdStartTime = info.SlurmdStartTime.Format("2006-01-02T15:04:05Z07:00")
		}
		if info.LastBusyTime != nil {
			v.LastBusyTime = info.LastBusyTime.Format("2006-01-02T15:04:05Z07:00")
		}
		views = append(views, v)
	}

	switch output {
	case "yaml":
		return yaml.NewEncoder(os.Stdout).Encode(views)
	case "table":
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tMODE\tSTATE\tADDR\tHOSTNAME\tPARTITIONS\tREASON")
		for _, v := range views {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
				v.Name, v.Mode, v.State, v.Addr, v.Hostname, strings.Join(v.Partitions, ","), v.Reason)
		}
		return w.Flush()
	default:
		return fmt.Errorf("unknown output format %q", output)
	}
}
