// Package dedupe remembers webhook delivery IDs so redeliveries are processed once.
package dedupe

import (
	"container/list"
	"context"
	"sync"
	"sync/atomic"

	"github.com/archestra-ai/reputation-bot/pkg/metrics"
)

const defaultMaxSize = 10_000

// Deduper records seen delivery IDs to ensure at-most-once processing.
type Deduper interface {
	// SeenAndRecord atomically checks if id was seen and records it if not.
	// Returns true if id was already seen, false if it was newly recorded.
	SeenAndRecord(ctx context.Context, id string) bool

	// Unrecord forgets id so a redelivery of a failed delivery is processed.
	Unrecord(ctx context.Context, id string)

	Size() int64
}

// inMemoryDeduper keeps the newest maxSize IDs and evicts the oldest first.
// maxSize <= 0 means unbounded.
type inMemoryDeduper struct {
	mu      sync.Mutex
	seen    map[string]*list.Element
	order   *list.List // front = newest
	maxSize int
	size    atomic.Int64
}

// NewInMemoryDeduper creates a new in-memory deduper with configuration options.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{
		maxSize: defaultMaxSize,
	}

	for _, opt := range opts {
		opt(d)
	}

	d.seen = make(map[string]*list.Element)
	d.order = list.New()
	return d
}

func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.seen[id]; exists {
		return true
	}

	if d.maxSize > 0 && len(d.seen) >= d.maxSize {
		d.evictOldest()
	}

	d.seen[id] = d.order.PushFront(id)
	d.size.Add(1)
	metrics.UpdateDedupeEntries(d.size.Load())
	return false
}

func (d *inMemoryDeduper) Unrecord(_ context.Context, id string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	el, exists := d.seen[id]
	if !exists {
		return
	}
	d.order.Remove(el)
	delete(d.seen, id)
	d.size.Add(-1)
	metrics.UpdateDedupeEntries(d.size.Load())
}

// evictOldest drops the least recently recorded ID. Caller holds d.mu.
func (d *inMemoryDeduper) evictOldest() {
	tail := d.order.Back()
	if tail == nil {
		return
	}
	d.order.Remove(tail)
	delete(d.seen, tail.Value.(string))
	d.size.Add(-1)
}

// Size returns the current number of entries in the deduper.
func (d *inMemoryDeduper) Size() int64 {
	return d.size.Load()
}
