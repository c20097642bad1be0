package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/miradorstack/mirador-churn/internal/api"
	"github.com/miradorstack/mirador-churn/internal/cache"
	"github.com/miradorstack/mirador-churn/internal/engine"
	"github.com/miradorstack/mirador-churn/internal/extractors"
	"github.com/miradorstack/mirador-churn/internal/models"
	"github.com/miradorstack/mirador-churn/internal/utils"
)

// RunHistory lists persisted runs.
type RunHistory interface {
	ListRuns(ctx context.Context, limit int) ([]models.RunSummary, error)
}

// ReportService implements the gRPC ReportViews service over the latest report.
type ReportService struct {
	logger    *slog.Logger
	cache     cache.Provider
	ttl       time.Duration
	history   RunHistory
	latencies *utils.LatencyTracker

	mu     sync.RWMutex
	latest *engine.Report
}

var _ api.ReportViewsServer = (*ReportService)(nil)

// NewReportService constructs the view service. A nil cache disables caching
// and a nil history makes ListRuns unavailable.
func NewReportService(logger *slog.Logger, provider cache.Provider, ttl time.Duration, history RunHistory) *ReportService {
	if logger == nil {
		logger = slog.Default()
	}
	if provider == nil {
		provider = cache.NoopProvider{}
	}
	return &ReportService{
		logger:    logger,
		cache:     provider,
		ttl:       ttl,
		history:   history,
		latencies: utils.NewLatencyTracker(1024),
	}
}

// Publish replaces the served report and drops cached views of the previous one.
func (s *ReportService) Publish(ctx context.Context, report *engine.Report) {
	s.mu.Lock()
	s.latest = report
	s.mu.Unlock()
	if err := s.cache.Purge(ctx); err != nil {
		s.logger.Warn("view cache purge failed", slog.Any("error", err))
	}
	if report != nil {
		s.logger.Info("report published", slog.String("run_id", report.RunID), slog.Bool("complete", report.Complete))
	}
}

// Latest returns the served report, if any.
func (s *ReportService) Latest() *engine.Report {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest
}

// DatasetView is the payload of GetDataset.
type DatasetView struct {
	RunID       string                      `json:"runID"`
	Input       string                      `json:"input"`
	Complete    bool                        `json:"complete"`
	Dataset     engine.DatasetSummary       `json:"dataset"`
	Missing     map[string]int              `json:"missing"`
	DroppedRows int                         `json:"droppedRows"`
	ParseErrors int                         `json:"parseErrors"`
	Numeric     []extractors.NumericProfile `json:"numeric"`
}

// AnalysisView is the payload of GetAnalysis.
type AnalysisView struct {
	RunID   string         `json:"runID"`
	Summary models.Summary `json:"summary"`
}

// EvaluationView is the payload of GetEvaluation.
type EvaluationView struct {
	RunID    string               `json:"runID"`
	Complete bool                 `json:"complete"`
	Models   []engine.ModelReport `json:"models"`
}

// RunsView is the payload of ListRuns.
type RunsView struct {
	Runs []models.RunSummary `json:"runs"`
}

// GetDataset returns row counts and the cleaning outcome.
func (s *ReportService) GetDataset(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return s.view(ctx, "dataset", func(r *engine.Report) any {
		return DatasetView{
			RunID:       r.RunID,
			Input:       r.Input,
			Complete:    r.Complete,
			Dataset:     r.Dataset,
			Missing:     r.Cleaning.Missing,
			DroppedRows: len(r.Cleaning.Dropped),
			ParseErrors: len(r.Cleaning.ParseErrors),
			Numeric:     r.Cleaning.Numeric,
		}
	})
}

// GetAnalysis returns the descriptive summary.
func (s *ReportService) GetAnalysis(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return s.view(ctx, "analysis", func(r *engine.Report) any {
		return AnalysisView{RunID: r.RunID, Summary: r.Summary}
	})
}

// GetEvaluation returns every model report.
func (s *ReportService) GetEvaluation(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return s.view(ctx, "evaluation", func(r *engine.Report) any {
		return EvaluationView{RunID: r.RunID, Complete: r.Complete, Models: r.Models}
	})
}

// ListRuns returns the last 20 runs from the run history.
func (s *ReportService) ListRuns(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	if s.history == nil {
		return nil, status.Error(codes.FailedPrecondition, "run history not configured")
	}
	runs, err := s.history.ListRuns(ctx, 20)
	if err != nil {
		s.logger.Error("list runs failed", slog.Any("error", err))
		return nil, status.Error(codes.Internal, "failed to list runs")
	}
	if runs == nil {
		runs = []models.RunSummary{}
	}
	data, err := api.EncodeView(RunsView{Runs: runs})
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	out, err := api.ToStruct(data)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

func (s *ReportService) view(ctx context.Context, name string, build func(*engine.Report) any) (*structpb.Struct, error) {
	report := s.Latest()
	if report == nil {
		return nil, status.Error(codes.FailedPrecondition, "no report published")
	}

	start := time.Now()
	defer s.observe(name, start)

	data, _, err := cache.Fill(ctx, s.cache, cache.Key("view", report.RunID, name), s.ttl,
		func() ([]byte, error) { return api.EncodeView(build(report)) },
		func(err error) { s.logger.Warn("view cache failed", slog.String("view", name), slog.Any("error", err)) },
	)
	if err != nil {
		s.logger.Error("view encoding failed", slog.String("view", name), slog.Any("error", err))
		return nil, status.Error(codes.Internal, "failed to encode view")
	}

	out, err := api.ToStruct(data)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

func (s *ReportService) observe(view string, start time.Time) {
	s.latencies.Observe(time.Since(start))
	if total := s.latencies.Total(); total%20 == 0 {
		summary := s.latencies.Summary()
		s.logger.Info("view latency",
			slog.String("view", view),
			slog.Duration("p50", summary.P50),
			slog.Duration("p95", summary.P95),
			slog.Duration("max", summary.Max),
			slog.Int("samples", summary.Samples),
		)
	}
}

// LatencyP95 returns the current p95 view latency.
func (s *ReportService) LatencyP95() time.Duration {
	if s.latencies == nil {
		return 0
	}
	return s.latencies.Percentile(95)
}
