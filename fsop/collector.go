package fsop

import (
	"context"
	"sort"
	"sync"

	"github.com/jonwraymond/evalcache/nixlog"
)

// Collector aggregates the distinct operations seen in one command's log.
//
// Contract:
// - Concurrency: safe for concurrent use.
// - Ordering: the collected set does not depend on the order records arrive in.
type Collector struct {
	classifier *Classifier

	mu      sync.Mutex
	ops     map[Op]struct{}
	dropped int
}

// NewCollector returns an empty Collector. A nil classifier uses the default.
func NewCollector(classifier *Classifier) *Collector {
	if classifier == nil {
		classifier = NewClassifier(nil)
	}
	return &Collector{
		classifier: classifier,
		ops:        make(map[Op]struct{}),
	}
}

// Add classifies rec and records the resulting op. Unclassified records are
// counted and otherwise ignored. It reports whether an op was recorded.
func (c *Collector) Add(rec nixlog.Record) bool {
	op, ok := c.classifier.Classify(rec)

	c.mu.Lock()
	defer c.mu.Unlock()
	if !ok {
		c.dropped++
		return false
	}
	c.ops[op] = struct{}{}
	return true
}

// AddOp records an op directly.
func (c *Collector) AddOp(op Op) {
	c.mu.Lock()
	c.ops[op] = struct{}{}
	c.mu.Unlock()
}

// Consume adds records from ch until it is closed or ctx is done.
func (c *Collector) Consume(ctx context.Context, ch <-chan nixlog.Record) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case rec, ok := <-ch:
			if !ok {
				return nil
			}
			c.Add(rec)
		}
	}
}

// Ops returns the collected set sorted by kind, source and target.
func (c *Collector) Ops() []Op {
	c.mu.Lock()
	out := make([]Op, 0, len(c.ops))
	for op := range c.ops {
		out = append(out, op)
	}
	c.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].less(out[j]) })
	return out
}

// Len returns the number of distinct ops.
func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.ops)
}

// Dropped returns how many records did not classify.
func (c *Collector) Dropped() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dropped
}
