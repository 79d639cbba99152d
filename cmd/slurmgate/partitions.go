package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/cuemby/slurmgate/pkg/types"
	"github.com/spf13/cobra"
)

var partitionsCmd = &cobra.Command{
	Use:   "partitions",
	Short: "Update and inspect managed partitions",
}

var partitionsInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show state and nodes of every managed partition",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a := openApp(cmd)
		defer a.Close()

		partitions, err := a.client.GetPartitionsInfo(cmd.Context())
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "PARTITION\tSTATE\tNODES")
		for _, p := range partitions {
			fmt.Fprintf(w, "%s\t%s\t%s\n", p.Name, p.State, p.NodeNames)
		}
		return w.Flush()
	},
}

var partitionsUpdateCmd = &cobra.Command{
	Use:   "update PARTITION...",
	Short: "Set the state of partitions",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		state, _ := cmd.Flags().GetString("state")

		a := openApp(cmd)
		defer a.Close()

		succeeded := a.client.UpdatePartitions(cmd.Context(), args, string(types.ParsePartitionStatus(state)))
		fmt.Println(strings.Join(succeeded, "\n"))
		if len(succeeded) != len(args) {
			return fmt.Errorf("%d of %d partitions updated", len(succeeded), len(args))
		}
		return nil
	},
}

var partitionsUpdateAllCmd = &cobra.Command{
	Use:   "update-all",
	Short: "Set the state of every managed partition",
	Long: `Set the state of every managed partition not already in that state.

With --reset-nodes, the nodes of each partition changing state are forced
to power down first.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		state, _ := cmd.Flags().GetString("state")
		reset, _ := cmd.Flags().GetBool("reset-nodes")

		a := openApp(cmd)
		defer a.Close()

		if !a.client.UpdateAllPartitions(cmd.Context(), types.ParsePartitionStatus(state), reset) {
			return fmt.Errorf("failed to set every partition to %s", strings.ToUpper(state))
		}
		return nil
	},
}

func init() {
	partitionsCmd.AddCommand(partitionsInfoCmd)
	partitionsCmd.AddCommand(partitionsUpdateCmd)
	partitionsCmd.AddCommand(partitionsUpdateAllCmd)

	for _, c := range []*cobra.Command{partitionsUpdateCmd, partitionsUpdateAllCmd} {
		c.Flags().String("state", "", "Target partition state (UP, DOWN, DRAIN, INACTIVE)")
		_ = c.MarkFlagRequired("state")
	}
	partitionsUpdateAllCmd.Flags().Bool("reset-nodes", false, "Power down nodes of partitions changing state")
}
