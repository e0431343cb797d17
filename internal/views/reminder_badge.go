package views

import (
	"context"
	"sync"
	"time"

	"github.com/alfredjeanlab/dealdesk/internal/model"
	"github.com/alfredjeanlab/dealdesk/internal/querycache"
)

// ReminderPollInterval is how often the badge re-reads overdue reminders.
const ReminderPollInterval = 60 * time.Second

// ReminderLister is the part of the client the badge needs.
type ReminderLister interface {
	ListReminders(ctx context.Context, overdueOnly bool) ([]*model.Reminder, error)
}

// ReminderBadge shows the number of overdue reminders in the sidebar.
type ReminderBadge struct {
	cache    *querycache.Cache
	api      ReminderLister
	interval time.Duration

	mu    sync.Mutex
	count int
	known bool
	sub   *querycache.Subscription
}

// NewReminderBadge polls every interval, or ReminderPollInterval when
// interval is not positive.
func NewReminderBadge(cache *querycache.Cache, api ReminderLister, interval time.Duration) *ReminderBadge {
	if interval <= 0 {
		interval = ReminderPollInterval
	}
	return &ReminderBadge{cache: cache, api: api, interval: interval}
}

func (b *ReminderBadge) fetch(ctx context.Context) (any, error) {
	return b.api.ListReminders(ctx, true)
}

// Mount starts polling. onChange, if set, receives the count after every
// successful poll and the error after a failed one; a failed poll keeps the
// previous count. Mounting again replaces the earlier subscription.
func (b *ReminderBadge) Mount(onChange func(count int, err error)) {
	sub := b.cache.Mount(querycache.KeyRemindersOverdue, b.fetch, querycache.MountOptions{
		RefetchInterval: b.interval,
		OnResult: func(v any, err error) {
			b.mu.Lock()
			if err == nil {
				rs, _ := v.([]*model.Reminder)
				b.count = len(rs)
				b.known = true
			}
			n := b.count
			b.mu.Unlock()
			if onChange != nil {
				onChange(n, err)
			}
		},
	})
	b.mu.Lock()
	prev := b.sub
	b.sub = sub
	b.mu.Unlock()
	if prev != nil {
		prev.Unmount()
	}
}

// Unmount stops polling.
func (b *ReminderBadge) Unmount() {
	b.mu.Lock()
	sub := b.sub
	b.sub = nil
	b.mu.Unlock()
	if sub != nil {
		sub.Unmount()
	}
}

// Count returns the last known count and whether any poll has succeeded.
func (b *ReminderBadge) Count() (int, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count, b.known
}
