package reminder

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/firemart/storefront/internal/queue"
	"github.com/firemart/storefront/internal/realtime"
	"github.com/firemart/storefront/internal/repository"
)

// dueCacheKey holds the dashboard's snapshot of due reminders in Redis.
const dueCacheKey = "storefront.reminders.due.v1"

// dueCacheTTL is slightly above the poll cadence so a healthy poller keeps
// the cache warm continuously.
const dueCacheTTL = time.Minute

// DueStore is the slice of the reminder repository the poller needs.
type DueStore interface {
	ListDue(ctx context.Context, now time.Time) ([]repository.Reminder, error)
}

// Publisher hands a due reminder to the notification queue.
type Publisher interface {
	PublishReminderDue(ctx context.Context, ev queue.ReminderDueEvent) error
}

// Poller re-fetches due reminders on a fixed cadence and on every
// table-change notification, publishing each one to the notification
// queue. There is deliberately no dedup or backoff between triggers: a
// burst of changes causes a burst of re-fetches, and idempotent MarkSent
// handling downstream absorbs duplicate publications.
type Poller struct {
	store DueStore
	pub   Publisher
	rdb   *redis.Client
	log   *zap.Logger
}

func NewPoller(store DueStore, pub Publisher, rdb *redis.Client, log *zap.Logger) *Poller {
	return &Poller{store: store, pub: pub, rdb: rdb, log: log}
}

// PollDue fetches reminders whose reminder date has passed, refreshes the
// dashboard cache, and hands pending ones to the queue.
func (p *Poller) PollDue(ctx context.Context) {
	due, err := p.store.ListDue(ctx, time.Now().UTC())
	if err != nil {
		p.log.Warn("due reminder fetch failed", zap.Error(err))
		return
	}
	p.cacheDue(ctx, due)
	if p.pub == nil {
		return
	}
	for _, m := range due {
		ev := queue.ReminderDueEvent{
			ReminderID:    m.ID,
			QuoteID:       m.QuoteID,
			CustomerName:  m.CustomerName,
			CustomerEmail: m.CustomerEmail,
			CustomerPhone: m.CustomerPhone,
			ReminderDate:  m.ReminderDate.Format(time.RFC3339),
			RenewalDate:   m.RenewalDate.Format(time.RFC3339),
			Notes:         m.Notes,
		}
		if err := p.pub.PublishReminderDue(ctx, ev); err != nil {
			// Logged by the publisher; the reminder stays pending and is
			// retried on the next poll.
			continue
		}
	}
}

// Watch subscribes the poller to reminder and quote table changes so a
// mutation triggers an immediate re-fetch ahead of the next tick.
func (p *Poller) Watch(ctx context.Context, hub *realtime.Hub) []realtime.Listener {
	onChange := func(realtime.Change) { p.PollDue(ctx) }
	return []realtime.Listener{
		hub.Subscribe(ctx, "reminders", onChange),
		hub.Subscribe(ctx, "quotes", onChange),
	}
}

// cacheDue snapshots the due list for dashboards. Best effort only.
func (p *Poller) cacheDue(ctx context.Context, due []repository.Reminder) {
	if p.rdb == nil {
		return
	}
	raw, err := json.Marshal(due)
	if err != nil {
		return
	}
	if err := p.rdb.SetEx(ctx, dueCacheKey, raw, dueCacheTTL).Err(); err != nil {
		p.log.Warn("due reminder cache write failed", zap.Error(err))
	}
}

// CachedDue returns the dashboard snapshot if the poller has written one
// recently. ok is false on a cold or unavailable cache and callers fall
// back to the repository.
func CachedDue(ctx context.Context, rdb *redis.Client) (out []repository.Reminder, ok bool) {
	if rdb == nil {
		return nil, false
	}
	raw, err := rdb.Get(ctx, dueCacheKey).Bytes()
	if err != nil {
		return nil, false
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, false
	}
	return out, true
}
