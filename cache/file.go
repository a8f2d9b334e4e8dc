package cache

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/renameio/v2"

	"github.com/jonwraymond/evalcache/fingerprint"
)

// FileStore keeps one JSON document per identity on disk.
//
// Structure:
//
//	{Dir}/
//	  {hash[0:2]}/
//	    {hash}.json
//
// Writes go to a temporary file that is renamed over the target, so a
// reader sees either the previous document or the new one.
type FileStore struct {
	Dir string
}

// NewFileStore creates dir if needed and returns a store rooted there.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("cache: file store directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cache: creating file store directory: %w", err)
	}
	return &FileStore{Dir: dir}, nil
}

// entryPath uses the first 2 characters of the hash as a shard directory.
func (s *FileStore) entryPath(id fingerprint.Identity) string {
	name := strings.TrimPrefix(string(id), fingerprint.IdentityPrefix)
	if len(name) < 2 {
		return filepath.Join(s.Dir, name+".json")
	}
	return filepath.Join(s.Dir, name[:2], name+".json")
}

// Get returns the stored entry, or nil on miss.
func (s *FileStore) Get(ctx context.Context, id fingerprint.Identity) (*Entry, error) {
	if err := ValidateIdentity(id); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.entryPath(id))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("cache: reading %s: %w", id, err)
	}
	return decodeEntry(data)
}

// Put atomically replaces the document for entry.Identity.
func (s *FileStore) Put(ctx context.Context, entry *Entry) error {
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

	path := s.entryPath(entry.Identity)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("cache: creating shard directory: %w", err)
	}
	if err := renameio.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("cache: writing %s: %w", entry.Identity, err)
	}
	return nil
}

// Delete removes the document for id. Idempotent.
func (s *FileStore) Delete(_ context.Context, id fingerprint.Identity) error {
	if err := ValidateIdentity(id); err != nil {
		return err
	}
	if err := os.Remove(s.entryPath(id)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("cache: deleting %s: %w", id, err)
	}
	return nil
}

// Close is a no-op.
func (s *FileStore) Close() error {
	return nil
}

// Ensure FileStore implements Store
var _ Store = (*FileStore)(nil)
