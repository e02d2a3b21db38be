// Package store provides the bbolt-backed persistence helpers shared by the
// annotation storage and graph storage on-disk implementations. It follows
// the bucket-per-concern convention used throughout the reference storage
// layer this module is built in the style of: one bbolt file per logical
// store, a fixed set of named buckets created up front, and values
// marshaled with encoding/gob.
package store

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"

	bolt "go.etcd.io/bbolt"
)

// BoltContainer wraps a single bbolt database file holding one or more named
// buckets.
type BoltContainer struct {
	db   *bolt.DB
	path string
}

// Open creates or opens a bbolt database at path, ensuring every bucket in
// buckets exists.
func Open(path string, buckets ...string) (*BoltContainer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("store: create parent dir: %w", err)
	}

	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, b := range buckets {
			if _, err := tx.CreateBucketIfNotExists([]byte(b)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("store: create buckets in %s: %w", path, err)
	}

	return &BoltContainer{db: db, path: path}, nil
}

// Close closes the underlying database file.
func (c *BoltContainer) Close() error {
	return c.db.Close()
}

// Path returns the file path backing this container.
func (c *BoltContainer) Path() string {
	return c.path
}

// Put gob-encodes value and stores it under key in bucket.
func (c *BoltContainer) Put(bucket, key string, value any) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(value); err != nil {
		return fmt.Errorf("store: encode %s/%s: %w", bucket, key, err)
	}

	return c.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		if b == nil {
			return fmt.Errorf("store: no such bucket %q", bucket)
		}
		return b.Put([]byte(key), buf.Bytes())
	})
}

// Get decodes the value stored under key in bucket into dst. Returns
// (false, nil) if the key is absent.
func (c *BoltContainer) Get(bucket, key string, dst any) (bool, error) {
	var raw []byte
	err := c.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		if b == nil {
			return fmt.Errorf("store: no such bucket %q", bucket)
		}
		v := b.Get([]byte(key))
		if v != nil {
			raw = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	if raw == nil {
		return false, nil
	}
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(dst); err != nil {
		return false, fmt.Errorf("store: decode %s/%s: %w", bucket, key, err)
	}
	return true, nil
}

// ForEach iterates every key/value pair in bucket, passing each value to fn
// as its raw gob-encoded bytes; decoding is left to fn. Iteration stops at
// the first error.
func (c *BoltContainer) ForEach(bucket string, fn func(key string, raw []byte) error) error {
	return c.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		if b == nil {
			return fmt.Errorf("store: no such bucket %q", bucket)
		}
		return b.ForEach(func(k, v []byte) error {
			return fn(string(k), v)
		})
	})
}

// Delete removes key from bucket.
func (c *BoltContainer) Delete(bucket, key string) error {
	return c.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		if b == nil {
			return fmt.Errorf("store: no such bucket %q", bucket)
		}
		return b.Delete([]byte(key))
	})
}
