/*
 * Copyright (c) 2023, Dana Burkart <dana.burkart@gmail.com>
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package network

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// A Cache keeps the last registry snapshot. A miss is not an error.
type Cache interface {
	Get(ctx context.Context) (Snapshot, bool, error)
	Put(ctx context.Context, s Snapshot) error
}

type MemoryCache struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.RWMutex
	snap    Snapshot
	expires time.Time
	ok      bool
}

// NewMemoryCache returns a cache holding one snapshot for ttl. A ttl of zero
// keeps it until it is replaced.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{ttl: ttl, now: time.Now}
}

func (c *MemoryCache) Get(context.Context) (Snapshot, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.ok || (c.ttl > 0 && c.now().After(c.expires)) {
		return Snapshot{}, false, nil
	}
	return c.snap, true, nil
}

func (c *MemoryCache) Put(_ context.Context, s Snapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.snap = s
	c.ok = true
	c.expires = c.now().Add(c.ttl)
	return nil
}

// RedisCache shares the snapshot between gateway replicas.
type RedisCache struct {
	client redis.Cmdable
	key    string
	ttl    time.Duration
}

const DefaultRedisKey = "beacon:network:snapshot"

func NewRedisCache(client redis.Cmdable, key string, ttl time.Duration) *RedisCache {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisCache{client: client, key: key, ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context) (Snapshot, bool, error) {
	b, err := c.client.Get(ctx, c.key).Bytes()
	if err == redis.Nil {
		return Snapshot{}, false, nil
	}
	if err != nil {
		return Snapshot{}, false, errors.Wrap(err, "reading network snapshot")
	}

	var s Snapshot
	if err := json.Unmarshal(b, &s); err != nil {
		return Snapshot{}, false, errors.Wrap(err, "decoding network snapshot")
	}
	return s, true, nil
}

func (c *RedisCache) Put(ctx context.Context, s Snapshot) error {
	b, err := json.Marshal(s)
	if err != nil {
		return errors.Wrap(err, "encoding network snapshot")
	}
	return errors.Wrap(c.client.Set(ctx, c.key, b, c.ttl).Err(), "writing network snapshot")
}
