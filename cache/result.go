package cache

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jonwraymond/evalcache/fingerprint"
	"github.com/jonwraymond/evalcache/fsop"
	"github.com/jonwraymond/evalcache/resilience"
)

// Status is the state of an identity as seen by a lookup.
type Status int

const (
	// StatusAbsent: nothing is stored for the identity.
	StatusAbsent Status = iota
	// StatusFresh: an entry exists and every dependency still matches.
	StatusFresh
	// StatusStale: an entry exists but a dependency has drifted.
	StatusStale
)

func (s Status) String() string {
	switch s {
	case StatusAbsent:
		return "absent"
	case StatusFresh:
		return "fresh"
	case StatusStale:
		return "stale"
	default:
		return "unknown"
	}
}

// errDrift stops revalidation at the first mismatch.
var errDrift = errors.New("cache: dependency drift")

// Cache is the dependency-aware result cache.
//
// Contract:
// - Concurrency: safe for concurrent use; atomicity comes from the Store.
// - Ownership: entries are only ever replaced through Store, never mutated in place.
type Cache struct {
	store       Store
	fp          *fingerprint.Fingerprinter
	retry       *resilience.Retry
	parallelism int
	now         func() time.Time
}

// Option configures a Cache.
type Option func(*Cache)

// WithFingerprinter sets the fingerprinter used for dependencies.
func WithFingerprinter(fp *fingerprint.Fingerprinter) Option {
	return func(c *Cache) {
		if fp != nil {
			c.fp = fp
		}
	}
}

// WithRetry sets the retry policy for store I/O.
func WithRetry(r *resilience.Retry) Option {
	return func(c *Cache) {
		if r != nil {
			c.retry = r
		}
	}
}

// WithParallelism bounds concurrent fingerprinting. Values below 1 are ignored.
func WithParallelism(n int) Option {
	return func(c *Cache) {
		if n > 0 {
			c.parallelism = n
		}
	}
}

// New creates a Cache over store.
func New(store Store, opts ...Option) (*Cache, error) {
	if store == nil {
		return nil, ErrNilStore
	}
	c := &Cache{
		store: store,
		fp:    fingerprint.New(),
		retry: resilience.NewRetry(resilience.RetryConfig{
			MaxAttempts:  5,
			InitialDelay: 50 * time.Millisecond,
			MaxDelay:     time.Second,
			Jitter:       true,
			RetryIf:      func(err error) bool { return errors.Is(err, ErrStoreBusy) },
		}),
		parallelism: runtime.GOMAXPROCS(0),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// LookupAndValidate returns the stored entry for id only if every dependency
// re-fingerprints to its stored value.
//
// A Stale result still carries no entry: the caller recomputes exactly as for
// a miss. Persistence failures are returned wrapped in ErrLookup with
// StatusAbsent, so a caller that ignores the error degrades to a miss.
func (c *Cache) LookupAndValidate(ctx context.Context, id fingerprint.Identity) (*Entry, Status, error) {
	if err := ValidateIdentity(id); err != nil {
		return nil, StatusAbsent, err
	}

	var entry *Entry
	err := c.retry.Execute(ctx, func(ctx context.Context) error {
		var err error
		entry, err = c.store.Get(ctx, id)
		return err
	})
	if err != nil {
		return nil, StatusAbsent, fmt.Errorf("%w: %w", ErrLookup, err)
	}
	if entry == nil {
		return nil, StatusAbsent, nil
	}

	fresh, err := c.validate(ctx, entry.Dependencies)
	if err != nil {
		return nil, StatusAbsent, err
	}
	if !fresh {
		return nil, StatusStale, nil
	}
	return entry, StatusFresh, nil
}

// validate re-fingerprints deps in parallel and reports whether all match.
// A path that cannot be fingerprinted counts as drift.
func (c *Cache) validate(ctx context.Context, deps []Dependency) (bool, error) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.parallelism)

	for _, dep := range deps {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			current, err := c.fp.Path(dep.Kind, dep.Path)
			if err != nil || current != dep.Fingerprint {
				return errDrift
			}
			return nil
		})
	}

	switch err := g.Wait(); {
	case err == nil:
		return true, nil
	case errors.Is(err, errDrift):
		return false, nil
	default:
		// Only context errors reach here.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return false, ctxErr
		}
		return false, err
	}
}

// Dependencies fingerprints the sources of ops. CopiedSource targets are
// recorded alongside but never fingerprinted.
func (c *Cache) Dependencies(ctx context.Context, ops []fsop.Op) ([]Dependency, error) {
	deps := make([]Dependency, len(ops))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.parallelism)
	for i, op := range ops {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			fp, err := c.fp.Path(op.Kind, op.Source)
			if err != nil {
				return err
			}
			deps[i] = Dependency{
				Kind:        op.Kind,
				Path:        op.Source,
				Target:      op.Target,
				Fingerprint: fp,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return deps, nil
}

// Store unconditionally replaces the entry for entry.Identity.
// Failures are wrapped in ErrStore and leave any previous entry intact.
func (c *Cache) Store(ctx context.Context, entry *Entry) error {
	if entry == nil {
		return ErrNilEntry
	}
	if err := ValidateIdentity(entry.Identity); err != nil {
		return err
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = c.now().UTC()
	}

	err := c.retry.Execute(ctx, func(ctx context.Context) error {
		return c.store.Put(ctx, entry)
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStore, err)
	}
	return nil
}

// Forget removes any entry for id.
func (c *Cache) Forget(ctx context.Context, id fingerprint.Identity) error {
	if err := ValidateIdentity(id); err != nil {
		return err
	}
	err := c.retry.Execute(ctx, func(ctx context.Context) error {
		return c.store.Delete(ctx, id)
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStore, err)
	}
	return nil
}

// Close closes the underlying store.
func (c *Cache) Close() error {
	return c.store.Close()
}
