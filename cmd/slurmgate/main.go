package main

import (
	"fmt"
	"os"

	"github.com/cuemby/slurmgate/pkg/config"
	"github.com/cuemby/slurmgate/pkg/executor"
	"github.com/cuemby/slurmgate/pkg/log"
	"github.com/cuemby/slurmgate/pkg/metrics"
	"github.com/cuemby/slurmgate/pkg/ownership"
	"github.com/cuemby/slurmgate/pkg/slurm"
	"github.com/cuemby/slurmgate/pkg/storage"
	"github.com/prometheus/common/version"
	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "slurmgate",
	Short: "Slurm node and partition administration for managed clusters",
	Long: `slurmgate updates and inspects the Slurm nodes and partitions owned
by this cluster, as listed in the partition-nodelist mapping file.

Node updates are issued through scontrol in batches, and every update
is recorded in a local journal.`,
	Version:           version.Version,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

func init() {
	rootCmd.SetVersionTemplate(version.Print("slurmgate") + "\n")

	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to YAML config file")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Log in JSON format")
	rootCmd.PersistentFlags().Bool("no-journal", false, "Do not record commands in the journal")

	rootCmd.AddCommand(nodesCmd)
	rootCmd.AddCommand(partitionsCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(watchCmd)
}

func loadConfig(cmd *cobra.Command, args []string) error {
	path, _ := cmd.Flags().GetString("config")

	var err error
	if cfg, err = config.Load(path); err != nil {
		return err
	}

	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.Log.Level = level
	}
	if cmd.Flags().Changed("log-json") {
		cfg.Log.JSON, _ = cmd.Flags().GetBool("log-json")
	}
	log.Init(log.Config{
		Level:      cfg.Log.Level,
		JSONOutput: cfg.Log.JSON,
	})
	metrics.SetVersion(version.Version)
	return nil
}

// app bundles the client and the journal a command works with
type app struct {
	client *slurm.Client
	store  *storage.BoltStore
}

// openApp builds the scheduler client. The journal is optional: when it
// cannot be opened the command runs without it.
func openApp(cmd *cobra.Command) *app {
	a := &app{}
	exec := executor.NewProcessExecutor()

	if noJournal, _ := cmd.Flags().GetBool("no-journal"); !noJournal {
		store, err := storage.NewBoltStore(cfg.JournalPath())
		if err != nil {
			log.Logger.Warn().Err(err).Str("path", cfg.JournalPath()).Msg("Command journal unavailable")
		} else {
			a.store = store
			exec = exec.WithRecorder(store)
		}
	}

	a.client = slurm.NewClient(cfg, exec, ownership.NewCache(cfg.MappingPath()))
	return a
}

func (a *app) Close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			log.Errorf("Failed to close journal", err)
		}
	}
}
