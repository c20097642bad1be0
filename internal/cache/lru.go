package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// LRUProvider implements Provider with a size-bounded in-process LRU.
// Entries expire after the provider TTL or the per-entry TTL, whichever is sooner.
type LRUProvider struct {
	lru *expirable.LRU[string, entry]
	now func() time.Time
}

type entry struct {
	value     []byte
	expiresAt time.Time
}

// NewLRUProvider creates a cache holding at most size entries for at most ttl.
func NewLRUProvider(size int, ttl time.Duration) *LRUProvider {
	if size <= 0 {
		size = 64
	}
	return &LRUProvider{
		lru: expirable.NewLRU[string, entry](size, nil, ttl),
		now: time.Now,
	}
}

// Get fetches bytes by key, returning ErrCacheMiss when the key is absent or expired.
func (p *LRUProvider) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e, ok := p.lru.Get(key)
	if !ok {
		return nil, ErrCacheMiss
	}
	if !e.expiresAt.IsZero() && p.now().After(e.expiresAt) {
		p.lru.Remove(key)
		return nil, ErrCacheMiss
	}
	return append([]byte(nil), e.value...), nil
}

// Set stores a copy of value; a non-positive ttl relies on the provider TTL alone.
func (p *LRUProvider) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e := entry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		e.expiresAt = p.now().Add(ttl)
	}
	p.lru.Add(key, e)
	return nil
}

// Del removes a key.
func (p *LRUProvider) Del(_ context.Context, key string) error {
	p.lru.Remove(key)
	return nil
}

// Purge drops every entry.
func (p *LRUProvider) Purge(context.Context) error {
	p.lru.Purge()
	return nil
}

// Len reports the number of cached entries.
func (p *LRUProvider) Len() int { return p.lru.Len() }

// Close drops every entry.
func (p *LRUProvider) Close() error {
	p.lru.Purge()
	return nil
}
