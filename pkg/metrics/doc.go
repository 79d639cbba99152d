/*
Package metrics defines the Prometheus metrics and the health registry of slurmgate.

Metrics are registered with the default registry at package init and exposed by
Handler on /metrics when the watch command runs:

	slurmgate_commands_total{command,status}      every scheduler command, status is success, failed or timeout
	slurmgate_command_duration_seconds{command}   command latency
	slurmgate_update_batches_total{state,status}  node update batches
	slurmgate_partition_updates_total{state,status}
	slurmgate_retries_total{operation}
	slurmgate_nodes_dropped_total                 node records with an unparseable name
	slurmgate_nodes{mode,state}                   last poll, by st/dy and primary state flag
	slurmgate_partitions{state}                   last poll
	slurmgate_poll_duration_seconds
	slurmgate_polls_total{status}

Timer wraps the start time of an operation:

	timer := metrics.NewTimer()
	defer timer.ObserveDurationVec(metrics.CommandDuration, "scontrol")

# Health

The health registry tracks the last report of each component. The ownership
mapping and the scheduler controller (slurmctld) are critical: GetReadiness only
reports ready once both reported healthy. The command journal is tracked but not
critical, a broken journal does not stop node management.
*/
package metrics
