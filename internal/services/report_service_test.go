package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/miradorstack/mirador-churn/internal/api"
	"github.com/miradorstack/mirador-churn/internal/cache"
	"github.com/miradorstack/mirador-churn/internal/engine"
	"github.com/miradorstack/mirador-churn/internal/ingest"
	"github.com/miradorstack/mirador-churn/internal/models"
)

type countingCache struct {
	*cache.LRUProvider
	sets   int
	purges int
}

func (c *countingCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.sets++
	return c.LRUProvider.Set(ctx, key, value, ttl)
}

func (c *countingCache) Purge(ctx context.Context) error {
	c.purges++
	return c.LRUProvider.Purge(ctx)
}

type historyStub struct {
	runs []models.RunSummary
	err  error
}

func (h *historyStub) ListRuns(ctx context.Context, limit int) ([]models.RunSummary, error) {
	return h.runs, h.err
}

func sampleReport(id string) *engine.Report {
	eval := models.EvaluationResult{
		Model:     "logistic",
		Confusion: models.ConfusionMatrix{TruePositives: 300, FalsePositives: 150, TrueNegatives: 1400, FalseNegatives: 259},
		Accuracy:  0.806,
	}
	return &engine.Report{
		RunID:    id,
		Input:    "customers.csv",
		Complete: false,
		Dataset:  engine.DatasetSummary{InputRows: 7043, Rows: 7032, TrainRows: 4923, TestRows: 2109},
		Cleaning: ingest.CleaningReport{
			InputRows: 7043,
			KeptRows:  7032,
			Missing:   map[string]int{"TotalCharges": 11},
			Dropped:   make([]ingest.DroppedRow, 11),
		},
		Summary: models.Summary{
			ChurnRate: 0.2658,
			Hotspots:  []models.ChurnHotspot{{Field: "Contract", Value: "Month-to-month", Customers: 3875, ChurnRate: 0.427, Lift: 1.61}},
		},
		Models: []engine.ModelReport{
			{Name: "logistic", Evaluation: &eval},
			{Name: "random_forest", Error: "fit: cancelled", ErrorCode: "cancel"},
		},
	}
}

func TestViewsRequirePublishedReport(t *testing.T) {
	service := NewReportService(nil, nil, time.Minute, nil)
	_, err := service.GetDataset(context.Background(), nil)
	if status.Code(err) != codes.FailedPrecondition {
		t.Fatalf("expected failed precondition, got %v", err)
	}
}

func TestDatasetView(t *testing.T) {
	service := NewReportService(nil, nil, time.Minute, nil)
	service.Publish(context.Background(), sampleReport("run-1"))

	s, err := service.GetDataset(context.Background(), nil)
	if err != nil {
		t.Fatalf("get dataset: %v", err)
	}
	var view DatasetView
	if err := api.FromStruct(s, &view); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if view.RunID != "run-1" || view.Dataset.Rows != 7032 || view.DroppedRows != 11 || view.Missing["TotalCharges"] != 11 {
		t.Fatalf("unexpected dataset view %+v", view)
	}
}

func TestEvaluationViewKeepsModelErrors(t *testing.T) {
	service := NewReportService(nil, nil, time.Minute, nil)
	service.Publish(context.Background(), sampleReport("run-2"))

	s, err := service.GetEvaluation(context.Background(), nil)
	if err != nil {
		t.Fatalf("get evaluation: %v", err)
	}
	var view EvaluationView
	if err := api.FromStruct(s, &view); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if view.Complete || len(view.Models) != 2 {
		t.Fatalf("unexpected evaluation view %+v", view)
	}
	if view.Models[0].Evaluation == nil || view.Models[0].Evaluation.Confusion.Total() != 2109 {
		t.Fatalf("logistic evaluation lost: %+v", view.Models[0])
	}
	if view.Models[1].ErrorCode != "cancel" {
		t.Fatalf("forest error lost: %+v", view.Models[1])
	}
}

func TestViewsAreCachedPerReport(t *testing.T) {
	provider := &countingCache{LRUProvider: cache.NewLRUProvider(8, time.Minute)}
	service := NewReportService(nil, provider, time.Minute, nil)
	ctx := context.Background()
	service.Publish(ctx, sampleReport("run-3"))

	for i := 0; i < 3; i++ {
		if _, err := service.GetAnalysis(ctx, nil); err != nil {
			t.Fatalf("get analysis: %v", err)
		}
	}
	if provider.sets != 1 {
		t.Fatalf("expected a single cache fill, got %d", provider.sets)
	}

	service.Publish(ctx, sampleReport("run-4"))
	s, err := service.GetAnalysis(ctx, nil)
	if err != nil {
		t.Fatalf("get analysis: %v", err)
	}
	if s.Fields["runID"].GetStringValue() != "run-4" {
		t.Fatalf("stale view served: %v", s.Fields["runID"])
	}
	if provider.sets != 2 || provider.purges != 2 {
		t.Fatalf("expected refill after publish, sets=%d purges=%d", provider.sets, provider.purges)
	}
	if service.LatencyP95() <= 0 {
		t.Fatalf("expected latency samples")
	}
}

func TestListRuns(t *testing.T) {
	ctx := context.Background()
	if _, err := NewReportService(nil, nil, 0, nil).ListRuns(ctx, nil); status.Code(err) != codes.FailedPrecondition {
		t.Fatalf("expected failed precondition without history, got %v", err)
	}

	history := &historyStub{runs: []models.RunSummary{{ID: "a", Complete: true}, {ID: "b"}}}
	s, err := NewReportService(nil, nil, 0, history).ListRuns(ctx, nil)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	var view RunsView
	if err := api.FromStruct(s, &view); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(view.Runs) != 2 || view.Runs[0].ID != "a" || !view.Runs[0].Complete {
		t.Fatalf("unexpected runs %+v", view.Runs)
	}

	history.err = errors.New("database is locked")
	if _, err := NewReportService(nil, nil, 0, history).ListRuns(ctx, nil); status.Code(err) != codes.Internal {
		t.Fatalf("expected internal error, got %v", err)
	}
}
