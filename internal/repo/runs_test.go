package repo

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/miradorstack/mirador-churn/internal/cache"
	"github.com/miradorstack/mirador-churn/internal/models"
)

type countingCache struct {
	mu   sync.Mutex
	data map[string][]byte
	hits int
}

func newCountingCache() *countingCache {
	return &countingCache{data: make(map[string][]byte)}
}

func (c *countingCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	c.hits++
	return v, nil
}

func (c *countingCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	return nil
}

func (c *countingCache) Del(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

func (c *countingCache) Purge(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = make(map[string][]byte)
	return nil
}

func (c *countingCache) Close() error { return nil }

func sampleRun(id string, started time.Time) models.RunSummary {
	return models.RunSummary{
		ID:         id,
		StartedAt:  started,
		FinishedAt: started.Add(3 * time.Second),
		Input:      "customers.csv",
		InputRows:  7043,
		KeptRows:   7032,
		TrainRows:  4924,
		TestRows:   2108,
		Complete:   true,
		Evaluations: []models.EvaluationResult{
			{Model: "logistic", Confusion: models.ConfusionMatrix{TruePositives: 300, FalsePositives: 150, TrueNegatives: 1400, FalseNegatives: 258}, Accuracy: 0.806},
			{Model: "random_forest", Accuracy: 0.79},
		},
	}
}

func TestRunStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := OpenRunStore(ctx, filepath.Join(t.TempDir(), "history", "runs.db"), nil, time.Minute)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer store.Close()

	base := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	if err := store.StoreRun(ctx, sampleRun("run-1", base)); err != nil {
		t.Fatalf("store run-1: %v", err)
	}
	failed := sampleRun("run-2", base.Add(time.Hour))
	failed.Complete = false
	failed.Error = "logistic did not converge"
	failed.Evaluations = failed.Evaluations[1:]
	if err := store.StoreRun(ctx, failed); err != nil {
		t.Fatalf("store run-2: %v", err)
	}

	runs, err := store.ListRuns(ctx, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != "run-2" {
		t.Fatalf("expected newest first, got %+v", runs)
	}
	if runs[0].Complete || runs[0].Error == "" {
		t.Fatalf("expected failed run to keep status, got %+v", runs[0])
	}
	if len(runs[1].Evaluations) != 2 || runs[1].Evaluations[0].Confusion.TruePositives != 300 {
		t.Fatalf("unexpected evaluations %+v", runs[1].Evaluations)
	}
	if !runs[1].StartedAt.Equal(base) {
		t.Fatalf("expected started %v, got %v", base, runs[1].StartedAt)
	}
}

func TestRunStoreListCachesUntilNextWrite(t *testing.T) {
	ctx := context.Background()
	stub := newCountingCache()
	store, err := OpenRunStore(ctx, filepath.Join(t.TempDir(), "runs.db"), stub, time.Minute)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer store.Close()

	now := time.Now().UTC()
	_ = store.StoreRun(ctx, sampleRun("a", now))
	if _, err := store.ListRuns(ctx, 5); err != nil {
		t.Fatalf("list: %v", err)
	}
	if _, err := store.ListRuns(ctx, 5); err != nil {
		t.Fatalf("list cached: %v", err)
	}
	if stub.hits != 1 {
		t.Fatalf("expected one cache hit, got %d", stub.hits)
	}

	_ = store.StoreRun(ctx, sampleRun("b", now.Add(time.Minute)))
	runs, err := store.ListRuns(ctx, 5)
	if err != nil {
		t.Fatalf("list after write: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected write to invalidate cached list, got %d runs", len(runs))
	}
}

func TestRunStoreHotspots(t *testing.T) {
	ctx := context.Background()
	store, err := OpenRunStore(ctx, filepath.Join(t.TempDir(), "runs.db"), nil, 0)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer store.Close()

	_ = store.StoreRun(ctx, sampleRun("r", time.Now()))
	hotspots := []models.ChurnHotspot{
		{Field: "Contract", Value: "Month-to-month", Customers: 3875, ChurnRate: 0.427, Lift: 1.61, Prevalence: 0.55},
		{Field: "InternetService", Value: "Fiber optic", Customers: 3096, ChurnRate: 0.418, Lift: 1.58, Prevalence: 0.44},
	}
	if err := store.StoreHotspots(ctx, "r", hotspots); err != nil {
		t.Fatalf("store hotspots: %v", err)
	}
	got, err := store.Hotspots(ctx, "r")
	if err != nil {
		t.Fatalf("hotspots: %v", err)
	}
	if len(got) != 2 || got[0].Value != "Month-to-month" {
		t.Fatalf("unexpected hotspots %+v", got)
	}
}

func TestOpenRunStoreRequiresPath(t *testing.T) {
	if _, err := OpenRunStore(context.Background(), "", nil, 0); err == nil {
		t.Fatalf("expected error for empty path")
	}
}
