package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cuemby/slurmgate/pkg/events"
	"github.com/cuemby/slurmgate/pkg/log"
	"github.com/cuemby/slurmgate/pkg/metrics"
	"github.com/cuemby/slurmgate/pkg/monitor"
	"github.com/cuemby/slurmgate/pkg/storage"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Poll node and partition status and serve metrics and health",
	Long: `Poll the managed nodes and partitions on an interval and serve:

  /metrics  Prometheus metrics
  /health   component health
  /ready    readiness, once the mapping was read and slurmctld answered`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().Duration("interval", 0, "Poll interval (default from config)")
	watchCmd.Flags().String("listen", "", "Listen address (default from config)")
}

func runWatch(cmd *cobra.Command, args []string) error {
	if interval, _ := cmd.Flags().GetDuration("interval"); interval > 0 {
		cfg.Watch.Interval = interval
	}
	if listen, _ := cmd.Flags().GetString("listen"); listen != "" {
		cfg.Watch.ListenAddr = listen
	}
	logger := log.WithComponent("watch")

	a := openApp(cmd)
	defer a.Close()

	// a nil *BoltStore must not reach the monitor as a non-nil Store
	var store storage.Store
	if a.store != nil {
		store = a.store
	}
	broker := events.NewBroker(100)
	broker.OnDrop(func(ev *events.Event) {
		logger.Warn().Str("type", string(ev.Type)).Str("subject", ev.Subject).Msg("Dropped event")
	})
	broker.Start()
	defer broker.Stop()
	go logEvents(broker.Subscribe(100))

	mon := monitor.New(a.client, store, cfg.Watch.Interval, cfg.Watch.JournalKeep).WithEvents(broker)

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/health", metrics.HealthHandler())
	mux.HandleFunc("/ready", metrics.ReadyHandler())
	server := &http.Server{
		Addr:              cfg.Watch.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("metrics server error: %w", err)
		}
	}()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	mon.Start(ctx)

	logger.Info().
		Str("listen", cfg.Watch.ListenAddr).
		Dur("interval", cfg.Watch.Interval).
		Str("mapping", cfg.MappingPath()).
		Msg("Watching managed nodes")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	var runErr error
	select {
	case sig := <-sigCh:
		logger.Info().Str("signal", sig.String()).Msg("Shutting down")
	case runErr = <-errCh:
		logger.Error().Err(runErr).Msg("Shutting down")
	}

	mon.Stop()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("Metrics server shutdown")
	}
	return runErr
}

func logEvents(sub events.Subscriber) {
	logger := log.WithComponent("events")
	for ev := range sub {
		logger.Info().
			Str("type", string(ev.Type)).
			Str("subject", ev.Subject).
			Str("from", ev.From).
			Str("to", ev.To).
			Str("reason", ev.Reason).
			Msg("State change")
	}
}
