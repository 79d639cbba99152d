package ownership

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/cuemby/slurmgate/pkg/log"
)

// ErrSource is returned when the mapping file is missing, unreadable or malformed
var ErrSource = errors.New("partition ownership mapping unavailable")

// Cache holds the partition to node range mapping of the partitions this
// process is allowed to manage. The file is read on first use only and the
// result never changes afterwards, except through Reset.
type Cache struct {
	path string

	mu         sync.Mutex
	loaded     bool
	partitions []string
	mapping    map[string]string
}

// NewCache creates a cache reading the mapping from path
func NewCache(path string) *Cache {
	return &Cache{path: path}
}

// Path returns the mapping file location
func (c *Cache) Path() string {
	return c.path
}

// Mapping returns a copy of the partition to node range mapping
func (c *Cache) Mapping() (map[string]string, error) {
	if err := c.load(); err != nil {
		return nil, err
	}
	m := make(map[string]string, len(c.mapping))
	for k, v := range c.mapping {
		m[k] = v
	}
	return m, nil
}

// Partitions returns the managed partition names in file order
func (c *Cache) Partitions() ([]string, error) {
	if err := c.load(); err != nil {
		return nil, err
	}
	return append([]string(nil), c.partitions...), nil
}

// Owns reports whether partition is managed
func (c *Cache) Owns(partition string) (bool, error) {
	if err := c.load(); err != nil {
		return false, err
	}
	_, ok := c.mapping[partition]
	return ok, nil
}

// Reset drops the loaded mapping so the next call reads the file again.
// Only meant for tests.
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loaded = false
	c.partitions = nil
	c.mapping = nil
}

func (c *Cache) load() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loaded {
		return nil
	}

	data, err := os.ReadFile(c.path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSource, err)
	}
	partitions, mapping, err := decodeOrdered(data)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrSource, c.path, err)
	}

	c.partitions = partitions
	c.mapping = mapping
	c.loaded = true
	log.Logger.Debug().Str("path", c.path).Strs("partitions", partitions).Msg("loaded partition ownership mapping")
	return nil
}

// decodeOrdered decodes a JSON object of string values, keeping key order
func decodeOrdered(data []byte) ([]string, map[string]string, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, nil, fmt.Errorf("expected a JSON object")
	}

	var keys []string
	mapping := make(map[string]string)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, nil, err
		}
		key := tok.(string)
		var value string
		if err := dec.Decode(&value); err != nil {
			return nil, nil, fmt.Errorf("partition %q: %w", key, err)
		}
		if _, dup := mapping[key]; !dup {
			keys = append(keys, key)
		}
		mapping[key] = value
	}
	if _, err := dec.Token(); err != nil {
		return nil, nil, err
	}
	if dec.More() {
		return nil, nil, fmt.Errorf("unexpected data after JSON object")
	}
	return keys, mapping, nil
}
