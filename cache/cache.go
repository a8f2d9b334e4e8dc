package cache

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jonwraymond/evalcache/fingerprint"
	"github.com/jonwraymond/evalcache/fsop"
)

// MaxIdentityLength is the maximum allowed length for an identity.
const MaxIdentityLength = 512

// Sentinel errors for cache operations.
var (
	ErrNilStore        = errors.New("cache: store is nil")
	ErrNilEntry        = errors.New("cache: entry is nil")
	ErrInvalidIdentity = errors.New("cache: identity is invalid")
	ErrIdentityTooLong = errors.New("cache: identity exceeds max length")

	// ErrLookup wraps persistence failures during lookup. Callers treat it
	// as a miss.
	ErrLookup = errors.New("cache: lookup failed")

	// ErrStore wraps persistence failures during store. The previous entry,
	// if any, is left in place.
	ErrStore = errors.New("cache: store failed")

	// ErrStoreBusy marks a transient failure, such as another process
	// holding the database lock. Operations failing with it are retried.
	ErrStoreBusy = errors.New("cache: store is busy")

	// ErrCorrupt marks an entry that could not be decoded.
	ErrCorrupt = errors.New("cache: entry is corrupt")
)

// Dependency is one tracked path and its fingerprint at store time.
type Dependency struct {
	Kind        fsop.Kind               `json:"kind"`
	Path        string                  `json:"path"`
	Target      string                  `json:"target,omitempty"`
	Fingerprint fingerprint.Fingerprint `json:"fingerprint"`
}

// Entry is the stored result of one command identity.
//
// An entry is replaced wholesale on every refresh, never patched. It has no
// expiry: it stays valid exactly as long as its dependency fingerprints do.
type Entry struct {
	Identity     fingerprint.Identity `json:"identity"`
	Program      string               `json:"program"`
	Args         []string             `json:"args"`
	Stdout       []byte               `json:"stdout"`
	Stderr       []byte               `json:"stderr"`
	ExitCode     int                  `json:"exit_code"`
	Dependencies []Dependency         `json:"dependencies"`

	// CreatedAt is informational and plays no part in validity.
	CreatedAt time.Time `json:"created_at"`
}

// Clone returns a deep copy of e.
func (e *Entry) Clone() *Entry {
	if e == nil {
		return nil
	}
	out := *e
	out.Args = append([]string(nil), e.Args...)
	out.Stdout = append([]byte(nil), e.Stdout...)
	out.Stderr = append([]byte(nil), e.Stderr...)
	out.Dependencies = append([]Dependency(nil), e.Dependencies...)
	return &out
}

// Store is the persistence collaborator of the result cache.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Atomicity: Put replaces an entry in one step; a concurrent Get observes
//   either the old entry or the new one, never a mix.
// - Errors: Get returns (nil, nil) on miss. Delete is idempotent.
// - Ownership: returned entries are copies the caller may modify.
type Store interface {
	Get(ctx context.Context, id fingerprint.Identity) (*Entry, error)
	Put(ctx context.Context, entry *Entry) error
	Delete(ctx context.Context, id fingerprint.Identity) error
	Close() error
}

// ValidateIdentity checks that id is usable as a storage key.
func ValidateIdentity(id fingerprint.Identity) error {
	s := string(id)
	if s == "" || strings.TrimSpace(s) == "" {
		return ErrInvalidIdentity
	}
	if len(s) > MaxIdentityLength {
		return ErrIdentityTooLong
	}
	// Identities become file names in FileStore.
	if strings.ContainsAny(s, "\n\r/\\\x00") || strings.Contains(s, "..") {
		return ErrInvalidIdentity
	}
	return nil
}
