package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Command metrics
	CommandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slurmgate_commands_total",
			Help: "Total number of scheduler commands executed by command and status",
		},
		[]string{"command", "status"},
	)

	CommandDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "slurmgate_command_duration_seconds",
			Help:    "Scheduler command duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"command"},
	)

	// Update metrics
	BatchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slurmgate_update_batches_total",
			Help: "Total number of node update batches by target state and status",
		},
		[]string{"state", "status"},
	)

	PartitionUpdatesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slurmgate_partition_updates_total",
			Help: "Total number of partition state updates by target state and status",
		},
		[]string{"state", "status"},
	)

	RetriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slurmgate_retries_total",
			Help: "Total number of retried operations",
		},
		[]string{"operation"},
	)

	// Status metrics
	NodesDroppedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "slurmgate_nodes_dropped_total",
			Help: "Total number of node records dropped because of an invalid node name",
		},
	)

	Nodes = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "slurmgate_nodes",
			Help: "Number of managed nodes by provisioning mode and primary state",
		},
		[]string{"mode", "state"},
	)

	Partitions = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "slurmgate_partitions",
			Help: "Number of managed partitions by state",
		},
		[]string{"state"},
	)

	PollDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "slurmgate_poll_duration_seconds",
			Help:    "Duration of a status poll cycle in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	PollsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slurmgate_polls_total",
			Help: "Total number of status poll cycles by status",
		},
		[]string{"status"},
	)
)

func init() {
	// Register all metrics
	prometheus.MustRegister(CommandsTotal)
	prometheus.MustRegister(CommandDuration)
	prometheus.MustRegister(BatchesTotal)
	prometheus.MustRegister(PartitionUpdatesTotal)
	prometheus.MustRegister(RetriesTotal)
	prometheus.MustRegister(NodesDroppedTotal)
	prometheus.MustRegister(Nodes)
	prometheus.MustRegister(Partitions)
	prometheus.MustRegister(PollDuration)
	prometheus.MustRegister(PollsTotal)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}
