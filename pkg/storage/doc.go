/*
Package storage persists the command journal and the last observed node
snapshots in a local BoltDB file.

Two buckets are used. "commands" holds one CommandRecord per executed
scheduler command, keyed by a time ordered UUIDv7 so a cursor walks the
journal oldest first. "nodes" holds the latest NodeSnapshot per node name.
*/
package storage
