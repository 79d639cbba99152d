package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/cuemby/slurmgate/pkg/storage"
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show journaled update commands, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		failed, _ := cmd.Flags().GetBool("failed")

		store, err := storage.NewBoltStore(cfg.JournalPath())
		if err != nil {
			return fmt.Errorf("failed to open journal: %w", err)
		}
		defer store.Close()

		records, err := store.ListCommands(limit)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "STARTED\tDURATION\tSTATUS\tCOMMAND")
		for _, rec := range records {
			if failed && !rec.Failed() {
				continue
			}
			status := "ok"
			if rec.Failed() {
				status = rec.Error
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
				rec.Started.Local().Format(time.DateTime), rec.Duration.Round(time.Millisecond), status, strings.Join(rec.Argv, " "))
		}
		return w.Flush()
	},
}

var historyNodesCmd = &cobra.Command{
	Use:   "nodes",
	Short: "Show the last observed state of each node",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := storage.NewBoltStore(cfg.JournalPath())
		if err != nil {
			return fmt.Errorf("failed to open journal: %w", err)
		}
		defer store.Close()

		snapshots, err := store.ListNodeSnapshots()
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tMODE\tSTATE\tADDR\tOBSERVED")
		for _, s := range snapshots {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", s.Name, s.Mode, s.State, s.Addr, s.ObservedAt.Local().Format(time.DateTime))
		}
		return w.Flush()
	},
}

func init() {
	historyCmd.AddCommand(historyNodesCmd)

	historyCmd.Flags().IntP("limit", "n", 50, "Number of commands to show, 0 for all")
	historyCmd.Flags().Bool("failed", false, "Only show failed commands")
}
