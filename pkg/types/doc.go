// Package types defines the nodes and partitions slurmgate reads from and
// writes to the scheduler.
//
// Node names follow <queue>-<st|dy>-<compute resource>-<index>; the middle
// token tells static nodes from dynamic ones. A node whose NodeAddr equals
// its NodeName has had its address reset and is not backed by an instance.
package types
