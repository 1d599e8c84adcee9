// Package cache memoizes per-document index bundles keyed by document and user.
//
// Entries become stale once they are older than the TTL; a stale entry is
// left in place and replaced by the next Put for its key. The number of
// distinct keys is bounded by an LRU capacity. GetOrCompute collapses
// concurrent misses on one key into a single computation.
package cache

import (
	"context"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"askdoc/internal/domain"
)

const (
	// DefaultTTL is the maximum age of a fresh entry.
	DefaultTTL = 30 * time.Minute
	// DefaultCapacity is the maximum number of cached (document, user) pairs.
	DefaultCapacity = 256
	// DefaultComputeTimeout bounds one shared computation.
	DefaultComputeTimeout = 5 * time.Minute
)

// Status describes the outcome of a lookup.
type Status int

const (
	Miss Status = iota
	Fresh
	Stale
)

func (s Status) String() string {
	switch s {
	case Fresh:
		return "fresh"
	case Stale:
		return "stale"
	default:
		return "miss"
	}
}

// Key identifies one cached bundle.
type Key struct {
	DocumentID string
	UserID     string
}

func (k Key) String() string { return k.DocumentID + "\x00" + k.UserID }

// ComputeFunc builds a fresh index bundle for a key.
type ComputeFunc func(ctx context.Context) (*domain.IndexEntry, error)

// DocumentIndexCache is safe for concurrent use.
type DocumentIndexCache struct {
	ttl            time.Duration
	computeTimeout time.Duration
	now            func() time.Time
	entries        *lru.Cache[Key, *domain.IndexEntry]
	flights        singleflight.Group
}

// Option configures the cache.
type Option func(*options)

type options struct {
	ttl            time.Duration
	capacity       int
	computeTimeout time.Duration
	now            func() time.Time
}

// WithTTL sets the entry time-to-live.
func WithTTL(ttl time.Duration) Option {
	return func(o *options) {
		if ttl > 0 {
			o.ttl = ttl
		}
	}
}

// WithCapacity sets the maximum number of entries.
func WithCapacity(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.capacity = n
		}
	}
}

// WithComputeTimeout bounds how long a shared computation may run once it
// no longer follows the context of the caller that started it.
func WithComputeTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.computeTimeout = d
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// New creates an empty cache.
func New(opts ...Option) (*DocumentIndexCache, error) {
	o := options{ttl: DefaultTTL, capacity: DefaultCapacity, computeTimeout: DefaultComputeTimeout, now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	entries, err := lru.New[Key, *domain.IndexEntry](o.capacity)
	if err != nil {
		return nil, fmt.Errorf("create lru: %w", err)
	}
	return &DocumentIndexCache{ttl: o.ttl, computeTimeout: o.computeTimeout, now: o.now, entries: entries}, nil
}

// TTL returns the configured time-to-live.
func (c *DocumentIndexCache) TTL() time.Duration { return c.ttl }

// Lookup returns the entry stored for the key and whether it is fresh or
// stale. A stale entry is returned so callers can report its age, but it
// must not be used for answering.
func (c *DocumentIndexCache) Lookup(documentID, userID string) (*domain.IndexEntry, Status) {
	entry, ok := c.entries.Get(Key{DocumentID: documentID, UserID: userID})
	if !ok {
		return nil, Miss
	}
	if c.now().Sub(entry.CreatedAt) > c.ttl {
		return entry, Stale
	}
	return entry, Fresh
}

// Get returns the entry for the key if it exists and is not stale.
func (c *DocumentIndexCache) Get(documentID, userID string) (*domain.IndexEntry, bool) {
	entry, status := c.Lookup(documentID, userID)
	if status != Fresh {
		return nil, false
	}
	return entry, true
}

// Put stores a copy of entry stamped with the current time, replacing any
// previous entry for the key, and returns the stored copy.
func (c *DocumentIndexCache) Put(documentID, userID string, entry *domain.IndexEntry) *domain.IndexEntry {
	stored := *entry
	stored.CreatedAt = c.now()
	c.entries.Add(Key{DocumentID: documentID, UserID: userID}, &stored)
	return &stored
}

// GetOrCompute returns the fresh entry for the key, or runs compute and stores
// its result. Concurrent callers missing on the same key share one compute
// call, which runs detached from any single caller's cancellation; each
// caller stops waiting when its own ctx is done. The returned Status is the
// lookup status seen before computing.
func (c *DocumentIndexCache) GetOrCompute(ctx context.Context, documentID, userID string, compute ComputeFunc) (*domain.IndexEntry, Status, error) {
	entry, status := c.Lookup(documentID, userID)
	if status == Fresh {
		return entry, Fresh, nil
	}
	return c.compute(ctx, documentID, userID, status, compute)
}

func (c *DocumentIndexCache) compute(ctx context.Context, documentID, userID string, status Status, compute ComputeFunc) (*domain.IndexEntry, Status, error) {
	key := Key{DocumentID: documentID, UserID: userID}
	ch := c.flights.DoChan(key.String(), func() (any, error) {
		// Another flight may have stored a fresh entry since our lookup.
		if entry, ok := c.Get(documentID, userID); ok {
			return entry, nil
		}
		// Other callers may be waiting on this flight, so a cancelled
		// first caller must not cancel it.
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.computeTimeout)
		defer cancel()
		entry, err := compute(fctx)
		if err != nil {
			return nil, err
		}
		return c.Put(documentID, userID, entry), nil
	})
	select {
	case <-ctx.Done():
		return nil, status, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, status, res.Err
		}
		return res.Val.(*domain.IndexEntry), status, nil
	}
}

// Remove drops the entry for the key.
func (c *DocumentIndexCache) Remove(documentID, userID string) {
	c.entries.Remove(Key{DocumentID: documentID, UserID: userID})
}

// Len returns the number of stored entries, stale ones included.
func (c *DocumentIndexCache) Len() int { return c.entries.Len() }

// Purge removes all entries.
func (c *DocumentIndexCache) Purge() { c.entries.Purge() }
