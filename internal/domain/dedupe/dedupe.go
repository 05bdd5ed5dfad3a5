// Package dedupe tracks idempotency keys so that a repeated submission maps
// to the event created by the first one.
package dedupe

import (
	"context"
	"sync"
	"sync/atomic"
)

const defaultMaxSize = 10_000

// Status describes what is known about a key.
type Status int

const (
	// StatusNew means the key was just claimed by the caller.
	StatusNew Status = iota
	// StatusPending means another submission holds the key and has not finished.
	StatusPending
	// StatusDone means the key already produced an event.
	StatusDone
)

// Result is the answer to SeenAndRecord.
type Result struct {
	Status  Status
	EventID int64
}

// Seen reports whether the key was known before the call.
func (r Result) Seen() bool { return r.Status != StatusNew }

// Deduper records idempotency keys for at-most-once creation.
type Deduper interface {
	// SeenAndRecord atomically checks key and claims it as pending if unknown.
	SeenAndRecord(ctx context.Context, key string) Result

	// Complete stores the event id produced for a claimed key.
	Complete(ctx context.Context, key string, eventID int64)

	// Unrecord forgets a key so a failed submission can be retried.
	Unrecord(ctx context.Context, key string)

	Size() int64
}

// node is an entry in the insertion-ordered list; head is the newest.
type node struct {
	key     string
	eventID int64
	done    bool
	prev    *node
	next    *node
}

func (n *node) reset() { *n = node{} }

// inMemoryDeduper keeps keys in a map plus a doubly linked list so the oldest
// key is evicted in O(1) once maxSize is reached. maxSize <= 0 is unbounded.
type inMemoryDeduper struct {
	mu       sync.Mutex
	seen     map[string]*node
	head     *node
	tail     *node
	maxSize  int
	size     atomic.Int64
	nodePool sync.Pool
}

// NewInMemoryDeduper creates a new in-memory deduper with configuration options.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{
		maxSize: defaultMaxSize,
		seen:    make(map[string]*node),
		nodePool: sync.Pool{
			New: func() any { return &node{} },
		},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, key string) Result {
	d.mu.Lock()
	defer d.mu.Unlock()

	if n, ok := d.seen[key]; ok {
		if n.done {
			return Result{Status: StatusDone, EventID: n.eventID}
		}
		return Result{Status: StatusPending}
	}

	if d.maxSize > 0 && len(d.seen) >= d.maxSize {
		d.evictOldest()
	}

	n := d.nodePool.Get().(*node)
	n.key = key
	n.next = d.head
	if d.head != nil {
		d.head.prev = n
	}
	d.head = n
	if d.tail == nil {
		d.tail = n
	}
	d.seen[key] = n
	d.size.Add(1)
	return Result{Status: StatusNew}
}

func (d *inMemoryDeduper) Complete(_ context.Context, key string, eventID int64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if n, ok := d.seen[key]; ok {
		n.eventID = eventID
		n.done = true
	}
}

func (d *inMemoryDeduper) Unrecord(_ context.Context, key string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if n, ok := d.seen[key]; ok {
		d.remove(n)
	}
}

func (d *inMemoryDeduper) Size() int64 {
	return d.size.Load()
}

// evictOldest drops the tail. Caller holds d.mu.
func (d *inMemoryDeduper) evictOldest() {
	if d.tail != nil {
		d.remove(d.tail)
	}
}

// remove unlinks n and returns it to the pool. Caller holds d.mu.
func (d *inMemoryDeduper) remove(n *node) {
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		d.head = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else {
		d.tail = n.prev
	}
	delete(d.seen, n.key)
	n.reset()
	d.nodePool.Put(n)
	d.size.Add(-1)
}
