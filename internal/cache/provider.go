package cache

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Provider is the byte cache shared by report views and run history.
type Provider interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, key string) error
	// Purge drops every entry. Called when a new report supersedes cached views.
	Purge(ctx context.Context) error
	Close() error
}

// ErrCacheMiss signals that a cache key was not found.
var ErrCacheMiss = errors.New("cache miss")

const keyPrefix = "churn"

// Key joins parts under the churn namespace, e.g. Key("view", id, "dataset").
func Key(parts ...string) string {
	return keyPrefix + ":" + strings.Join(parts, ":")
}

// Fill returns the cached value for key, or builds and stores it on a miss.
// Cache read and write failures other than a miss are reported through onErr
// and never fail the call; only build errors are returned.
func Fill(ctx context.Context, p Provider, key string, ttl time.Duration, build func() ([]byte, error), onErr func(error)) ([]byte, bool, error) {
	data, err := p.Get(ctx, key)
	if err == nil {
		return data, true, nil
	}
	if !errors.Is(err, ErrCacheMiss) && onErr != nil {
		onErr(err)
	}
	data, err = build()
	if err != nil {
		return nil, false, err
	}
	if err := p.Set(ctx, key, data, ttl); err != nil && onErr != nil {
		onErr(err)
	}
	return data, false, nil
}

// NoopProvider never stores anything.
type NoopProvider struct{}

func (NoopProvider) Get(context.Context, string) ([]byte, error) { return nil, ErrCacheMiss }

func (NoopProvider) Set(context.Context, string, []byte, time.Duration) error { return nil }

func (NoopProvider) Del(context.Context, string) error { return nil }

func (NoopProvider) Purge(context.Context) error { return nil }

func (NoopProvider) Close() error { return nil }
