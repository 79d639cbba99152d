package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cuemby/slurmgate/pkg/executor"
	"github.com/cuemby/slurmgate/pkg/types"
	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"
)

var (
	// Bucket names
	bucketCommands = []byte("commands")
	bucketNodes    = []byte("nodes")
)

// BoltStore implements Store interface using BoltDB
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore opens or creates the database file at path
func NewBoltStore(path string) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{bucketCommands, bucketNodes} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

// Close closes the database
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// RecordCommand implements executor.Recorder. Keys are UUIDv7 so the bucket
// iterates in execution order.
func (s *BoltStore) RecordCommand(rec executor.Record) error {
	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Errorf("failed to generate record id: %w", err)
	}
	cr := &CommandRecord{
		ID:       id.String(),
		Argv:     rec.Argv,
		Started:  rec.Started.UTC(),
		Duration: rec.Duration,
	}
	if rec.Err != nil {
		cr.Error = rec.Err.Error()
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		data, err := json.Marshal(cr)
		if err != nil {
			return err
		}
		return tx.Bucket(bucketCommands).Put([]byte(cr.ID), data)
	})
}

// ListCommands returns up to limit most recent commands, newest first.
// A limit <= 0 returns every command.
func (s *BoltStore) ListCommands(limit int) ([]*CommandRecord, error) {
	var records []*CommandRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketCommands).Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			if limit > 0 && len(records) >= limit {
				break
			}
			var rec CommandRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("failed to decode command %s: %w", k, err)
			}
			records = append(records, &rec)
		}
		return nil
	})
	return records, err
}

// PruneCommands deletes all but the keep most recent commands and returns
// the number deleted
func (s *BoltStore) PruneCommands(keep int) (int, error) {
	deleted := 0
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketCommands)
		excess := b.Stats().KeyN - keep
		if excess <= 0 {
			return nil
		}
		c := b.Cursor()
		for k, _ := c.First(); k != nil && deleted < excess; k, _ = c.First() {
			if err := c.Delete(); err != nil {
				return err
			}
			deleted++
		}
		return nil
	})
	return deleted, err
}

// SaveNodeSnapshots upserts one snapshot per node
func (s *BoltStore) SaveNodeSnapshots(nodes []types.SlurmNode, observedAt time.Time) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketNodes)
		for _, node := range nodes {
			info := node.Info()
			snap := &NodeSnapshot{
				Name:       info.Name,
				Mode:       node.Mode(),
				Addr:       info.Addr,
				Hostname:   info.Hostname,
				State:      info.State,
				Partitions: info.Partitions,
				Reason:     info.Reason,
				ObservedAt: observedAt.UTC(),
			}
			data, err := json.Marshal(snap)
			if err != nil {
				return err
			}
			if err := b.Put([]byte(snap.Name), data); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetNodeSnapshot returns the last snapshot of a node
func (s *BoltStore) GetNodeSnapshot(name string) (*NodeSnapshot, error) {
	var snap NodeSnapshot
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketNodes).Get([]byte(name))
		if data == nil {
			return fmt.Errorf("node snapshot not found: %s", name)
		}
		return json.Unmarshal(data, &snap)
	})
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

// ListNodeSnapshots returns every snapshot ordered by node name
func (s *BoltStore) ListNodeSnapshots() ([]*NodeSnapshot, error) {
	var snaps []*NodeSnapshot
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketNodes).ForEach(func(k, v []byte) error {
			var snap NodeSnapshot
			if err := json.Unmarshal(v, &snap); err != nil {
				return err
			}
			snaps = append(snaps, &snap)
			return nil
		})
	})
	return snaps, err
}
