package querycache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// MountOptions configures a mounted consumer.
type MountOptions struct {
	// RefetchInterval re-fetches the key on a timer when positive.
	RefetchInterval time.Duration
	// OnResult receives every fetch outcome, including the initial one.
	OnResult func(value any, err error)
}

type observer struct {
	key     Key
	fn      FetchFunc
	opts    MountOptions
	pending chan struct{}
	// queued is set from schedule until the re-fetch it asked for has
	// completed.
	queued atomic.Bool
}

// schedule queues one re-fetch unless one is already queued or running, so
// any number of invalidations before it completes yield a single fetch.
func (o *observer) schedule() {
	if !o.queued.CompareAndSwap(false, true) {
		return
	}
	select {
	case o.pending <- struct{}{}:
	default:
	}
}

// Subscription is a mounted consumer. Unmount stops it.
type Subscription struct {
	c      *Cache
	o      *observer
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// Mount registers a consumer of key. It fetches once immediately (served
// from cache when fresh), then again after every invalidation of key and on
// every RefetchInterval tick.
func (c *Cache) Mount(key Key, fn FetchFunc, opts MountOptions) *Subscription {
	o := &observer{key: key, fn: fn, opts: opts, pending: make(chan struct{}, 1)}

	c.mu.Lock()
	set := c.observers[key]
	if set == nil {
		set = make(map[*observer]struct{})
		c.observers[key] = set
	}
	set[o] = struct{}{}
	c.mu.Unlock()

	ctx, cancel := context.WithCancel(c.ctx)
	sub := &Subscription{c: c, o: o, cancel: cancel, done: make(chan struct{})}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer close(sub.done)
		c.run(ctx, o)
	}()
	return sub
}

func (c *Cache) run(ctx context.Context, o *observer) {
	c.deliver(ctx, o, func() (any, error) { return c.Fetch(ctx, o.key, o.fn) })

	var tick <-chan time.Time
	if o.opts.RefetchInterval > 0 {
		t := time.NewTicker(o.opts.RefetchInterval)
		defer t.Stop()
		tick = t.C
	}

	refetch := func() (any, error) { return c.refetch(ctx, o.key, o.fn) }
	for {
		select {
		case <-ctx.Done():
			return
		case <-o.pending:
			c.deliver(ctx, o, refetch)
			o.queued.Store(false)
		case <-tick:
			c.deliver(ctx, o, refetch)
		}
	}
}

func (c *Cache) deliver(ctx context.Context, o *observer, fetch func() (any, error)) {
	v, err := fetch()
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		c.logger.Debug("query fetch failed", "key", o.key, "error", err)
	}
	if o.opts.OnResult != nil {
		o.opts.OnResult(v, err)
	}
}

// Key returns the key the subscription is mounted on.
func (s *Subscription) Key() Key { return s.o.key }

// Unmount stops the consumer and waits for it to exit. Safe to call more
// than once.
func (s *Subscription) Unmount() {
	s.once.Do(func() {
		s.c.mu.Lock()
		if set := s.c.observers[s.o.key]; set != nil {
			delete(set, s.o)
			if len(set) == 0 {
				delete(s.c.observers, s.o.key)
			}
		}
		s.c.mu.Unlock()
		s.cancel()
	})
	<-s.done
}

// Consumers returns how many consumers are mounted on key.
func (c *Cache) Consumers(key Key) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.observers[key])
}
