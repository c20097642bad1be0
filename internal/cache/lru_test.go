package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestLRUProviderRoundTrip(t *testing.T) {
	ctx := context.Background()
	p := NewLRUProvider(2, time.Minute)

	if _, err := p.Get(ctx, "analysis"); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected miss, got %v", err)
	}
	if err := p.Set(ctx, "analysis", []byte("{}"), 0); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, err := p.Get(ctx, "analysis")
	if err != nil || string(got) != "{}" {
		t.Fatalf("expected cached value, got %q (%v)", got, err)
	}

	_ = p.Set(ctx, "dataset", []byte("a"), 0)
	_ = p.Set(ctx, "evaluation", []byte("b"), 0)
	if p.Len() != 2 {
		t.Fatalf("expected size bound 2, got %d", p.Len())
	}
	if _, err := p.Get(ctx, "analysis"); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected least recently used key to be evicted")
	}
}

func TestLRUProviderEntryTTL(t *testing.T) {
	ctx := context.Background()
	p := NewLRUProvider(4, time.Hour)
	now := time.Unix(1_700_000_000, 0)
	p.now = func() time.Time { return now }

	_ = p.Set(ctx, "k", []byte("v"), time.Second)
	now = now.Add(2 * time.Second)
	if _, err := p.Get(ctx, "k"); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected expired entry to miss, got %v", err)
	}
}

func TestLRUProviderDelAndPurge(t *testing.T) {
	ctx := context.Background()
	p := NewLRUProvider(4, time.Minute)
	_ = p.Set(ctx, "a", []byte("1"), 0)
	_ = p.Set(ctx, "b", []byte("2"), 0)

	_ = p.Del(ctx, "a")
	if _, err := p.Get(ctx, "a"); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected deleted key to miss")
	}
	_ = p.Purge(ctx)
	if p.Len() != 0 {
		t.Fatalf("expected empty cache after purge")
	}
}

func TestNoopProvider(t *testing.T) {
	var p Provider = NoopProvider{}
	_ = p.Set(context.Background(), "k", []byte("v"), time.Minute)
	if _, err := p.Get(context.Background(), "k"); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("noop provider should always miss")
	}
}

func TestFillBuildsOnceAndReportsHits(t *testing.T) {
	ctx := context.Background()
	p := NewLRUProvider(4, time.Minute)
	builds := 0
	build := func() ([]byte, error) {
		builds++
		return []byte("view"), nil
	}

	key := Key("view", "run-1", "dataset")
	if key != "churn:view:run-1:dataset" {
		t.Fatalf("unexpected key %q", key)
	}
	for i, wantHit := range []bool{false, true} {
		data, hit, err := Fill(ctx, p, key, time.Minute, build, nil)
		if err != nil || string(data) != "view" || hit != wantHit {
			t.Fatalf("fill %d: data=%q hit=%v err=%v", i, data, hit, err)
		}
	}
	if builds != 1 {
		t.Fatalf("expected one build, got %d", builds)
	}

	boom := errors.New("encode failed")
	if _, _, err := Fill(ctx, NoopProvider{}, key, time.Minute, func() ([]byte, error) { return nil, boom }, nil); !errors.Is(err, boom) {
		t.Fatalf("expected build error, got %v", err)
	}
}
