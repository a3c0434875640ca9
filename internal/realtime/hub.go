// Package realtime fans out table-change notifications over Redis pub/sub.
// Write paths publish a small change record after a successful mutation;
// interested components (the reminder poller, dashboards) subscribe per
// table and react without waiting for their next poll tick.
package realtime

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// channelPrefix namespaces the per-table pub/sub channels.
const channelPrefix = "storefront.tablechange.v1:"

// Change describes one mutation. Action is "insert", "update" or "delete".
type Change struct {
	Table  string `json:"table"`
	Action string `json:"action"`
	ID     uint64 `json:"id"`
}

// Listener is a handle to an active subscription.
type Listener interface {
	Close()
}

// Hub publishes and subscribes table changes. With Redis available the
// notifications cross process boundaries; without it the hub degrades to
// in-process fan-out so single-instance deployments keep working.
type Hub struct {
	rdb *redis.Client
	log *zap.Logger

	mu     sync.Mutex
	local  map[string]map[uint64]func(Change) // table -> id -> callback
	nextID uint64
}

func NewHub(rdb *redis.Client, log *zap.Logger) *Hub {
	return &Hub{rdb: rdb, log: log, local: make(map[string]map[uint64]func(Change))}
}

// Publish announces a mutation. Failures are logged and swallowed: a lost
// notification only delays subscribers until their next poll.
func (h *Hub) Publish(ctx context.Context, table, action string, id uint64) {
	c := Change{Table: table, Action: action, ID: id}
	if h.rdb == nil {
		h.mu.Lock()
		fns := make([]func(Change), 0, len(h.local[table]))
		for _, fn := range h.local[table] {
			fns = append(fns, fn)
		}
		h.mu.Unlock()
		for _, fn := range fns {
			fn(c)
		}
		return
	}
	raw, err := json.Marshal(c)
	if err != nil {
		return
	}
	if err := h.rdb.Publish(ctx, channelPrefix+table, raw).Err(); err != nil {
		h.log.Warn("table change publish failed",
			zap.String("table", table), zap.Error(err))
	}
}

// Subscribe registers a callback for changes to one table. The callback
// runs on the subscription's own goroutine (or the publisher's, in the
// in-process fallback) and must not block for long.
func (h *Hub) Subscribe(ctx context.Context, table string, fn func(Change)) Listener {
	if h.rdb == nil {
		h.mu.Lock()
		h.nextID++
		id := h.nextID
		if h.local[table] == nil {
			h.local[table] = make(map[uint64]func(Change))
		}
		h.local[table][id] = fn
		h.mu.Unlock()
		return &localListener{hub: h, table: table, id: id}
	}

	ps := h.rdb.Subscribe(ctx, channelPrefix+table)
	go func() {
		for msg := range ps.Channel() {
			var c Change
			if err := json.Unmarshal([]byte(msg.Payload), &c); err != nil {
				h.log.Warn("discarding malformed table change", zap.Error(err))
				continue
			}
			fn(c)
		}
	}()
	return &redisListener{ps: ps}
}

type localListener struct {
	hub   *Hub
	table string
	id    uint64
	once  sync.Once
}

func (l *localListener) Close() {
	l.once.Do(func() {
		l.hub.mu.Lock()
		delete(l.hub.local[l.table], l.id)
		l.hub.mu.Unlock()
	})
}

type redisListener struct {
	ps   *redis.PubSub
	once sync.Once
}

func (l *redisListener) Close() {
	l.once.Do(func() { _ = l.ps.Close() })
}
