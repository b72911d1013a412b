package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/btree"
	"go.etcd.io/bbolt"
)

// Bucket names in bbolt
var (
	bucketRecords = []byte("records")
	bucketWritten = []byte("written")
)

// DefaultStoreRetention bounds how long the store keeps records before
// Cleanup evicts them.
const DefaultStoreRetention = 30 * 24 * time.Hour

// BoltStore implements DurableStore on top of bbolt with an in-memory
// btree of keys for fast prefix scans.
type BoltStore struct {
	mu sync.RWMutex

	// Ordered key index for prefix scans
	keys *btree.BTreeG[string]

	// On-disk storage
	db *bbolt.DB

	// Path to the database file
	path string

	// Maximum record age enforced by Cleanup
	retention time.Duration
}

// NewBoltStore opens or creates a store in dir.
func NewBoltStore(dir string, retention time.Duration) (*BoltStore, error) {
	if retention <= 0 {
		retention = DefaultStoreRetention
	}

	dbPath := filepath.Join(dir, "muisti.db")

	db, err := bbolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, bucket := range [][]byte{bucketRecords, bucketWritten} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	store := &BoltStore{
		keys: btree.NewG[string](32, func(a, b string) bool {
			return a < b
		}),
		db:        db,
		path:      dbPath,
		retention: retention,
	}

	if err := store.rebuildKeyIndex(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the store.
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// Store persists value under key, overwriting any existing record.
func (s *BoltStore) Store(ctx context.Context, key string, value any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal record for key %s: %w", key, err)
	}

	err = s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.Bucket(bucketRecords).Put([]byte(key), data); err != nil {
			return err
		}
		// Track write time so Cleanup can age out records without
		// interpreting the key itself.
		return tx.Bucket(bucketWritten).Put([]byte(key), int64ToBytes(time.Now().UnixNano()))
	})
	if err != nil {
		return fmt.Errorf("failed to store key %s: %w", key, err)
	}

	s.keys.ReplaceOrInsert(key)
	return nil
}

// Retrieve unmarshals the record at key into out.
func (s *BoltStore) Retrieve(ctx context.Context, key string, out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var data []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(bucketRecords).Get([]byte(key))
		if v != nil {
			data = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to retrieve key %s: %w", key, err)
	}
	if data == nil {
		return ErrNotFound
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to unmarshal record at key %s: %w", key, err)
	}
	return nil
}

// Scan returns all keys with the given prefix, served from the key index.
func (s *BoltStore) Scan(ctx context.Context, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var matches []string
	s.keys.AscendGreaterOrEqual(prefix, func(key string) bool {
		if !strings.HasPrefix(key, prefix) {
			return false
		}
		matches = append(matches, key)
		return true
	})

	return matches, nil
}

// Delete removes a record. Deleting an absent key is not an error.
func (s *BoltStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.Bucket(bucketRecords).Delete([]byte(key)); err != nil {
			return err
		}
		return tx.Bucket(bucketWritten).Delete([]byte(key))
	})
	if err != nil {
		return fmt.Errorf("failed to delete key %s: %w", key, err)
	}

	s.keys.Delete(key)
	return nil
}

// Cleanup evicts records written before the retention cutoff.
func (s *BoltStore) Cleanup(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-s.retention).UnixNano()

	var expired []string
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketWritten).ForEach(func(k, v []byte) error {
			if bytesToInt64(v) < cutoff {
				expired = append(expired, string(k))
			}
			return nil
		})
	})
	if err != nil {
		return fmt.Errorf("failed to find expired records: %w", err)
	}
	if len(expired) == 0 {
		return nil
	}

	err = s.db.Update(func(tx *bbolt.Tx) error {
		records := tx.Bucket(bucketRecords)
		written := tx.Bucket(bucketWritten)
		for _, key := range expired {
			if err := records.Delete([]byte(key)); err != nil {
				return err
			}
			if err := written.Delete([]byte(key)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete expired records: %w", err)
	}

	for _, key := range expired {
		s.keys.Delete(key)
	}
	return nil
}

// Stats returns the key count and database file size.
func (s *BoltStore) Stats() (int, int64) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var size int64
	if info, err := os.Stat(s.path); err == nil {
		size = info.Size()
	}
	return s.keys.Len(), size
}

func (s *BoltStore) rebuildKeyIndex() error {
	return s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketRecords).ForEach(func(k, _ []byte) error {
			s.keys.ReplaceOrInsert(string(k))
			return nil
		})
	})
}

func int64ToBytes(n int64) []byte {
	return []byte(fmt.Sprintf("%d", n))
}

func bytesToInt64(b []byte) int64 {
	var n int64
	_, _ = fmt.Sscanf(string(b), "%d", &n)
	return n
}
