// Package monitor periodically reads node and partition status from the
// scheduler, exports it as Prometheus gauges and keeps the last view in
// memory and in the command journal.
package monitor
