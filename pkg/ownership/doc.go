// Package ownership reads the partition-to-nodes mapping that tells which
// scheduler partitions belong to this cluster. The file is loaded once and
// cached until Reset.
package ownership
