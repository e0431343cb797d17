// Package querycache is an explicit, keyed cache for server reads. Views
// mount consumers on keys; mutations invalidate keys through a static table
// so every consumer of a key re-fetches exactly once per invalidation burst.
package querycache

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Key identifies a cached query.
type Key string

// Keys used by the views.
const (
	KeyDossiers         Key = "dossiers"
	KeyDashboardStats   Key = "dashboard-stats"
	KeyInteractions     Key = "interactions"
	KeyReminders        Key = "reminders"
	KeyRemindersOverdue Key = "reminders-overdue"
	KeyCompanies        Key = "societes"
)

// RoadshowKey is the key of one dossier's detail view.
func RoadshowKey(dossierID string) Key {
	return Key(roadshowPrefix + dossierID)
}

const roadshowPrefix = "roadshow/"

// FetchFunc loads the value of a key.
type FetchFunc func(ctx context.Context) (any, error)

type entry struct {
	value     any
	fetchedAt time.Time
	stale     bool
}

// Cache is safe for concurrent use.
type Cache struct {
	mu        sync.Mutex
	entries   map[Key]*entry
	observers map[Key]map[*observer]struct{}

	group     singleflight.Group
	staleTime time.Duration
	now       func() time.Time
	logger    *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Option configures a Cache.
type Option func(*Cache)

// WithStaleTime makes values stale once they are older than d, in addition
// to explicit invalidation. Zero (the default) keeps values fresh until
// invalidated.
func WithStaleTime(d time.Duration) Option {
	return func(c *Cache) { c.staleTime = d }
}

// WithLogger sets the logger used for background fetch failures.
func WithLogger(l *slog.Logger) Option {
	return func(c *Cache) { c.logger = l }
}

// New returns an empty cache. Call Close to stop mounted consumers.
func New(opts ...Option) *Cache {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Cache{
		entries:   make(map[Key]*entry),
		observers: make(map[Key]map[*observer]struct{}),
		now:       time.Now,
		logger:    slog.Default(),
		ctx:       ctx,
		cancel:    cancel,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// fresh reports whether e can be served without fetching. Caller holds c.mu.
func (c *Cache) fresh(e *entry) bool {
	if e == nil || e.stale {
		return false
	}
	return c.staleTime <= 0 || c.now().Sub(e.fetchedAt) < c.staleTime
}

// Fetch returns the cached value of key when fresh. Otherwise it calls fn,
// sharing one in-flight call among concurrent callers of the same key, and
// stores the result. Errors are returned and not cached.
func (c *Cache) Fetch(ctx context.Context, key Key, fn FetchFunc) (any, error) {
	c.mu.Lock()
	if e := c.entries[key]; c.fresh(e) {
		v := e.value
		c.mu.Unlock()
		return v, nil
	}
	c.mu.Unlock()
	return c.refetch(ctx, key, fn)
}

// refetch bypasses freshness and goes to fn through the singleflight group.
func (c *Cache) refetch(ctx context.Context, key Key, fn FetchFunc) (any, error) {
	v, err, _ := c.group.Do(string(key), func() (any, error) {
		v, err := fn(ctx)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.entries[key] = &entry{value: v, fetchedAt: c.now()}
		c.mu.Unlock()
		return v, nil
	})
	return v, err
}

// Peek returns the cached value of key, fresh or not.
func (c *Cache) Peek(key Key) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	return e.value, true
}

// IsStale reports whether key holds no value or a stale one.
func (c *Cache) IsStale(key Key) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.fresh(c.entries[key])
}

// Invalidate marks keys stale and schedules one re-fetch for every consumer
// mounted on them. A consumer whose re-fetch is still queued or in flight is
// not scheduled again.
func (c *Cache) Invalidate(keys ...Key) {
	c.mu.Lock()
	var wake []*observer
	for _, key := range keys {
		if e, ok := c.entries[key]; ok {
			e.stale = true
		}
		for o := range c.observers[key] {
			wake = append(wake, o)
		}
	}
	c.mu.Unlock()

	for _, o := range wake {
		o.schedule()
	}
}

// InvalidateFor invalidates the keys the table declares for m.
func (c *Cache) InvalidateFor(m Mutation, dossierID string) {
	c.Invalidate(KeysFor(m, dossierID)...)
}

// Close stops every mounted consumer and waits for them to exit.
func (c *Cache) Close() {
	c.cancel()
	c.wg.Wait()
}
