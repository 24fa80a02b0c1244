// Package fetch keeps remote resources in a shared cache keyed by resource path.
//
// Views mount the keys they need. Concurrent mounts of the same key share a
// single in-flight load, and a key resolved within the dedupe interval is
// served from the cache without another request. Loads run detached from the
// mounting request, so a view that gives up waiting never aborts the load; its
// result simply lands in the cache for the next mount.
package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// State of a cache entry
type State int

const (
	Idle State = iota
	Pending
	Resolved
	Errored
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Pending:
		return "pending"
	case Resolved:
		return "resolved"
	case Errored:
		return "errored"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// DefaultDedupeInterval matches the window in which repeated mounts reuse a result
const DefaultDedupeInterval = 2 * time.Second

// Loader fetches the raw value for a key
type Loader func(ctx context.Context, key string) ([]byte, error)

// Options tune a Cache
type Options struct {
	// DedupeInterval is how long a resolved key is served without refetching.
	DedupeInterval time.Duration
	// LoadTimeout bounds a single load. Zero means no bound beyond the loader's own.
	LoadTimeout time.Duration
}

// Snapshot is what a view sees for a key: the latest value, the latest error
// and whether a load is still in flight.
type Snapshot struct {
	Key       string
	State     State
	Data      []byte
	Err       error
	IsLoading bool
	UpdatedAt time.Time
}

// HasData reports whether a value has been resolved for the key at least once
func (s Snapshot) HasData() bool {
	return s.Data != nil
}

// IsNull reports whether the resolved value is JSON null, which is how the API
// answers a lookup of a record that does not exist.
func (s Snapshot) IsNull() bool {
	return s.Data != nil && bytes.Equal(bytes.TrimSpace(s.Data), []byte("null"))
}

type entry struct {
	settled   State // Idle, Resolved or Errored
	loading   bool
	data      []byte
	err       error
	settledAt time.Time
	gen       uint64
}

// Cache is a keyed store of remote values with request deduplication
type Cache struct {
	load  Loader
	opts  Options
	group singleflight.Group
	now   func() time.Time

	mu      sync.Mutex
	entries map[string]*entry
	nextGen uint64
}

// New creates a cache backed by load
func New(load Loader, opts Options) *Cache {
	if opts.DedupeInterval < 0 {
		opts.DedupeInterval = 0
	}
	return &Cache{
		load:    load,
		opts:    opts,
		now:     time.Now,
		entries: make(map[string]*entry),
	}
}

// Mount makes sure key is loaded or loading, waits up to wait for an in-flight
// load to settle and returns the current snapshot. An empty key disables
// fetching and yields an idle snapshot.
func (c *Cache) Mount(ctx context.Context, key string, wait time.Duration) Snapshot {
	if key == "" {
		return Snapshot{State: Idle}
	}

	ch := c.start(key, false)
	var (
		res     singleflight.Result
		settled bool
	)
	if ch != nil && wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case res = <-ch:
			settled = true
		case <-timer.C:
		case <-ctx.Done():
		}
	}

	snap := c.Peek(key)
	if settled && snap.State == Idle {
		// forgotten while waiting; hand back what the flight loaded
		data, _ := res.Val.([]byte)
		snap = Snapshot{Key: key, State: Resolved, Data: data, Err: res.Err, UpdatedAt: c.now()}
		if res.Err != nil {
			snap.State = Errored
		}
	}
	return snap
}

// Revalidate starts a refetch of key regardless of how fresh it is. It does not wait.
func (c *Cache) Revalidate(key string) {
	if key == "" {
		return
	}
	c.start(key, true)
}

// Peek returns the snapshot for key without triggering a load
func (c *Cache) Peek(key string) Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return Snapshot{Key: key, State: Idle}
	}
	s := Snapshot{
		Key:       key,
		State:     e.settled,
		Data:      e.data,
		Err:       e.err,
		IsLoading: e.loading,
		UpdatedAt: e.settledAt,
	}
	if e.loading {
		s.State = Pending
	}
	return s
}

// Forget drops key from the cache. A load already in flight for it will not
// write its result back.
func (c *Cache) Forget(keys ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, key := range keys {
		delete(c.entries, key)
		c.group.Forget(key)
	}
}

func (c *Cache) start(key string, force bool) <-chan singleflight.Result {
	c.mu.Lock()
	e, ok := c.entries[key]
	if !ok {
		c.nextGen++
		e = &entry{settled: Idle, gen: c.nextGen}
		c.entries[key] = e
	}
	if !force && !e.loading && e.settled == Resolved && c.now().Sub(e.settledAt) < c.opts.DedupeInterval {
		c.mu.Unlock()
		return nil
	}
	e.loading = true
	gen := e.gen
	c.mu.Unlock()

	return c.group.DoChan(key, func() (any, error) {
		return c.run(key, gen)
	})
}

func (c *Cache) run(key string, gen uint64) ([]byte, error) {
	ctx := context.Background()
	if c.opts.LoadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.LoadTimeout)
		defer cancel()
	}

	started := time.Now()
	data, err := c.load(ctx, key)
	if err != nil {
		slog.Debug("Fetch failed", "key", key, "duration", time.Since(started), "err", err)
	} else {
		slog.Debug("Fetch resolved", "key", key, "duration", time.Since(started), "bytes", len(data))
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok || e.gen != gen {
		// forgotten while in flight
		return data, err
	}
	e.loading = false
	e.settledAt = c.now()
	if err != nil {
		e.settled = Errored
		e.err = err
		return nil, err
	}
	e.settled = Resolved
	e.data = data
	e.err = nil
	return data, nil
}

// Decode unmarshals the snapshot's value. It returns nil when nothing has
// resolved yet or the value is null.
func Decode[T any](s Snapshot) (*T, error) {
	if s.Data == nil || s.IsNull() {
		return nil, nil
	}
	var v T
	if err := json.Unmarshal(s.Data, &v); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", s.Key, err)
	}
	return &v, nil
}
