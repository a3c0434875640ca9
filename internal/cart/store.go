package cart

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// cartKeyPrefix namespaces per-user carts in Redis.
const cartKeyPrefix = "storefront.cart.v1:"

// cartTTL is how long an untouched cart survives. Every save renews it.
const cartTTL = 14 * 24 * time.Hour

// Store persists one cart per user. With Redis available carts survive
// restarts and are shared across instances; without it they fall back to
// process memory, mirroring how the rest of the service degrades when
// Redis is down.
type Store struct {
	rdb *redis.Client

	mu  sync.Mutex
	mem map[uint64]*Cart // fallback carts when rdb is nil
}

func NewStore(rdb *redis.Client) *Store {
	return &Store{rdb: rdb, mem: make(map[uint64]*Cart)}
}

func cartKey(userID uint64) string {
	return cartKeyPrefix + strconv.FormatUint(userID, 10)
}

// Load returns the user's cart, or an empty cart when none is stored.
func (s *Store) Load(ctx context.Context, userID uint64) (*Cart, error) {
	if s.rdb == nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		if c, ok := s.mem[userID]; ok {
			cp := *c
			cp.Items = append([]Item(nil), c.Items...)
			return &cp, nil
		}
		return &Cart{}, nil
	}
	raw, err := s.rdb.Get(ctx, cartKey(userID)).Bytes()
	if err == redis.Nil {
		return &Cart{}, nil
	}
	if err != nil {
		return nil, err
	}
	var c Cart
	if err := json.Unmarshal(raw, &c); err != nil {
		// An unreadable cart starts over; not worth failing checkout for.
		return &Cart{}, nil
	}
	return &c, nil
}

// Save writes the user's cart back and renews its TTL.
func (s *Store) Save(ctx context.Context, userID uint64, c *Cart) error {
	if s.rdb == nil {
		s.mu.Lock()
		cp := *c
		cp.Items = append([]Item(nil), c.Items...)
		s.mem[userID] = &cp
		s.mu.Unlock()
		return nil
	}
	raw, err := json.Marshal(c)
	if err != nil {
		return err
	}
	return s.rdb.SetEx(ctx, cartKey(userID), raw, cartTTL).Err()
}

// Drop deletes the user's stored cart (after checkout or an explicit clear).
func (s *Store) Drop(ctx context.Context, userID uint64) error {
	if s.rdb == nil {
		s.mu.Lock()
		delete(s.mem, userID)
		s.mu.Unlock()
		return nil
	}
	return s.rdb.Del(ctx, cartKey(userID)).Err()
}
