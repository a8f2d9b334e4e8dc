// Package resilience provides retry with backoff for persistence I/O.
//
// The result cache can be shared by several processes. A store that is
// momentarily locked by another writer reports a transient error, and the
// cache retries it here instead of failing the whole run:
//
//	r := resilience.NewRetry(resilience.RetryConfig{
//	    MaxAttempts:  5,
//	    InitialDelay: 50 * time.Millisecond,
//	    Jitter:       true,
//	    RetryIf:      func(err error) bool { return errors.Is(err, cache.ErrStoreBusy) },
//	})
//
//	err := r.Execute(ctx, func(ctx context.Context) error {
//	    return store.Put(ctx, entry)
//	})
package resilience
