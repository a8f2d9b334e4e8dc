package cache

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"

	"github.com/jonwraymond/evalcache/fingerprint"
)

// DefaultBoltLockTimeout bounds how long an operation waits for another
// process to release the database file lock.
const DefaultBoltLockTimeout = time.Second

var entriesBucket = []byte("entries")

// BoltStore persists entries in a bbolt database file.
//
// The database is opened per operation and closed straight after, so the
// file lock is only held briefly and several processes can share one cache.
// Reads take a shared lock, writes an exclusive one. Each Put is a single
// bbolt transaction, which gives readers the old-or-new guarantee.
type BoltStore struct {
	path        string
	lockTimeout time.Duration
}

// NewBoltStore returns a store backed by the database at path. The parent
// directory is created if needed; the file itself is created on first Put.
func NewBoltStore(path string, lockTimeout time.Duration) (*BoltStore, error) {
	if path == "" {
		return nil, fmt.Errorf("cache: bolt store path is required")
	}
	if lockTimeout <= 0 {
		lockTimeout = DefaultBoltLockTimeout
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("cache: creating bolt store directory: %w", err)
	}
	return &BoltStore{path: path, lockTimeout: lockTimeout}, nil
}

// Path returns the database file path.
func (s *BoltStore) Path() string {
	return s.path
}

func (s *BoltStore) open(readOnly bool) (*bbolt.DB, error) {
	db, err := bbolt.Open(s.path, 0o600, &bbolt.Options{
		Timeout:  s.lockTimeout,
		ReadOnly: readOnly,
	})
	if err != nil {
		if errors.Is(err, bbolt.ErrTimeout) {
			return nil, fmt.Errorf("%w: %w", ErrStoreBusy, err)
		}
		return nil, fmt.Errorf("cache: opening %s: %w", s.path, err)
	}
	return db, nil
}

// Get returns the stored entry, or nil on miss.
func (s *BoltStore) Get(ctx context.Context, id fingerprint.Identity) (*Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := os.Stat(s.path); errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}

	db, err := s.open(true)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	var data []byte
	err = db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(entriesBucket)
		if b == nil {
			return nil
		}
		// Values are only valid inside the transaction.
		if v := b.Get([]byte(id)); v != nil {
			data = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("cache: reading %s: %w", id, err)
	}
	if data == nil {
		return nil, nil
	}
	return decodeEntry(data)
}

// Put stores entry in one write transaction.
func (s *BoltStore) Put(ctx context.Context, entry *Entry) error {
	if entry == nil {
		return ErrNilEntry
	}
	if err := ValidateIdentity(entry.Identity); err != nil {
		return err
	}
	data, err := encodeEntry(entry)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	db, err := s.open(false)
	if err != nil {
		return err
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(entriesBucket)
		if err != nil {
			return err
		}
		return b.Put([]byte(entry.Identity), data)
	})
	if cerr := db.Close(); err == nil && cerr != nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("cache: writing %s: %w", entry.Identity, err)
	}
	return nil
}

// Delete removes an entry. Idempotent.
func (s *BoltStore) Delete(ctx context.Context, id fingerprint.Identity) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := os.Stat(s.path); errors.Is(err, os.ErrNotExist) {
		return nil
	}

	db, err := s.open(false)
	if err != nil {
		return err
	}
	defer db.Close()

	return db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(entriesBucket)
		if b == nil {
			return nil
		}
		return b.Delete([]byte(id))
	})
}

// Close is a no-op; the database is never held open between operations.
func (s *BoltStore) Close() error {
	return nil
}

// Ensure BoltStore implements Store
var _ Store = (*BoltStore)(nil)
