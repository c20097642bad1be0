package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/miradorstack/mirador-churn/internal/analysis"
	"github.com/miradorstack/mirador-churn/internal/classifier"
	"github.com/miradorstack/mirador-churn/internal/ingest"
	"github.com/miradorstack/mirador-churn/internal/metrics"
	"github.com/miradorstack/mirador-churn/internal/models"
	"github.com/miradorstack/mirador-churn/internal/patterns"
	"github.com/miradorstack/mirador-churn/internal/sampling"
	"github.com/miradorstack/mirador-churn/internal/utils"
)

// Stage names used in errors, logs and metric labels.
const (
	StageIngest   = "ingest"
	StageClean    = "clean"
	StageDescribe = "describe"
	StageSplit    = "split"
	StageModel    = "model"
	StageReport   = "report"
)

// RunStore persists run summaries.
type RunStore interface {
	StoreRun(ctx context.Context, run models.RunSummary) error
}

// Options describes one run.
type Options struct {
	Input         string
	Ingest        ingest.Options
	TrainFraction float64
	Seed          int64
	Analysis      analysis.Options
}

// Pipeline runs ingest, clean, describe, split and model stages in order.
type Pipeline struct {
	logger    *slog.Logger
	describer *analysis.Describer
	trainers  []classifier.Trainer
	miner     *patterns.Miner
	store     RunStore
	now       func() time.Time
}

// NewPipeline constructs a churn report pipeline. miner and store are optional.
func NewPipeline(logger *slog.Logger, trainers []classifier.Trainer, miner *patterns.Miner, store RunStore) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		logger:    logger,
		describer: analysis.NewDescriber(logger),
		trainers:  trainers,
		miner:     miner,
		store:     store,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Run loads opts.Input and executes every stage over it.
//
// A fatal stage error returns no report. A model failure is recorded on the
// report, which is then marked incomplete.
func (p *Pipeline) Run(ctx context.Context, opts Options) (*Report, error) {
	r := p.newRun(opts)

	var raw ingest.RawTable
	err := r.stage(ctx, StageIngest, func() error {
		var err error
		raw, err = ingest.LoadCSV(ctx, opts.Input, opts.Ingest)
		return err
	})
	if err != nil {
		return nil, r.abort(ctx, StageIngest, err)
	}
	return r.execute(ctx, raw)
}

// RunTable executes every stage after ingestion over an already loaded table.
func (p *Pipeline) RunTable(ctx context.Context, raw ingest.RawTable, opts Options) (*Report, error) {
	if opts.Input == "" {
		opts.Input = raw.Source
	}
	return p.newRun(opts).execute(ctx, raw)
}

type run struct {
	p      *Pipeline
	opts   Options
	report *Report
	logger *slog.Logger
}

func (p *Pipeline) newRun(opts Options) *run {
	id := uuid.NewString()
	return &run{
		p:      p,
		opts:   opts,
		logger: p.logger.With(slog.String("run_id", id)),
		report: &Report{
			RunID:     id,
			StartedAt: p.now(),
			Input:     opts.Input,
		},
	}
}

func (r *run) execute(ctx context.Context, raw ingest.RawTable) (*Report, error) {
	report := r.report
	report.Dataset.InputRows = raw.Len()
	r.logger.Info("run started", slog.String("input", report.Input), slog.Int("rows", raw.Len()))
	metrics.SetRows("input", raw.Len())

	var cleaned models.Dataset
	err := r.stage(ctx, StageClean, func() error {
		var err error
		cleaned, report.Cleaning, err = ingest.Clean(raw)
		return err
	})
	if err != nil {
		return nil, r.abort(ctx, StageClean, err)
	}
	if n := len(report.Cleaning.ParseErrors); n > 0 {
		r.logger.Warn("values could not be parsed", slog.Int("count", n))
	}
	r.logger.Info("cleaning finished",
		slog.Int("kept", report.Cleaning.KeptRows),
		slog.Int("dropped", len(report.Cleaning.Dropped)),
	)
	report.Cleaned = cleaned
	report.Dataset.Rows = cleaned.Len()
	report.Dataset.Positives = cleaned.Positives()
	report.Dataset.ChurnRate = cleaned.ChurnRate()
	metrics.SetRows("cleaned", cleaned.Len())
	metrics.SetRows("dropped", len(report.Cleaning.Dropped))

	err = r.stage(ctx, StageDescribe, func() error {
		summary, err := r.p.describer.Describe(ctx, cleaned, r.opts.Analysis)
		if err != nil {
			return err
		}
		if r.p.miner != nil {
			hotspots, err := r.p.miner.Mine(ctx, report.RunID, cleaned)
			if err != nil {
				return fmt.Errorf("mine hotspots: %w", err)
			}
			summary.Hotspots = hotspots
		}
		report.Summary = summary
		return nil
	})
	if err != nil {
		return nil, r.abort(ctx, StageDescribe, err)
	}

	err = r.stage(ctx, StageSplit, func() error {
		split, err := sampling.Stratified(cleaned, r.opts.TrainFraction, r.opts.Seed)
		if err != nil {
			return err
		}
		report.Split = split
		return nil
	})
	if err != nil {
		return nil, r.abort(ctx, StageSplit, err)
	}
	report.Dataset.TrainRows = report.Split.Train.Len()
	report.Dataset.TestRows = report.Split.Test.Len()
	report.Dataset.TrainChurnRate = report.Split.Train.ChurnRate()
	report.Dataset.TestChurnRate = report.Split.Test.ChurnRate()
	report.Dataset.Seed = report.Split.Seed
	report.Dataset.TrainFraction = report.Split.Fraction
	metrics.SetRows("train", report.Dataset.TrainRows)
	metrics.SetRows("test", report.Dataset.TestRows)

	start := time.Now()
	report.Complete = len(r.p.trainers) > 0
	if !report.Complete {
		r.logger.Warn("no models configured")
	}
	for _, trainer := range r.p.trainers {
		mr, err := r.model(ctx, trainer)
		if err != nil {
			metrics.ObserveStage(StageModel, time.Since(start))
			return nil, r.abort(ctx, StageModel, err)
		}
		if mr.Error != "" {
			report.Complete = false
		}
		report.Models = append(report.Models, mr)
	}
	metrics.ObserveStage(StageModel, time.Since(start))

	r.finish(ctx)
	return report, nil
}

// model fits and scores one trainer. Only cancellation is returned as an
// error; anything else is recorded on the model report.
func (r *run) model(ctx context.Context, trainer classifier.Trainer) (ModelReport, error) {
	if err := ctx.Err(); err != nil {
		return ModelReport{}, err
	}
	logger := r.logger.With(slog.String("model", trainer.Name()))
	mr := ModelReport{Name: trainer.Name()}
	start := time.Now()

	fail := func(err error) (ModelReport, error) {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return ModelReport{}, err
		}
		code := utils.Classify(err)
		mr.Error = err.Error()
		mr.ErrorCode = string(code)
		mr.Seconds = time.Since(start).Seconds()
		metrics.CountError(StageModel, string(code))
		logger.Error("model failed", slog.String("code", string(code)), slog.Any("error", err))
		return mr, nil
	}

	model, err := trainer.Fit(ctx, r.report.Split.Train)
	if err != nil {
		return fail(fmt.Errorf("fit: %w", err))
	}
	eval, err := classifier.Score(model, r.report.Split.Test)
	if err != nil {
		return fail(fmt.Errorf("score: %w", err))
	}
	mr.Evaluation = &eval
	if m, ok := model.(classifier.ImportanceModel); ok {
		mr.Importance = m.Importance()
	}
	if m, ok := model.(classifier.CoefficientModel); ok {
		mr.Coefficients = m.Coefficients()
	}
	if m, ok := model.(interface{ Aliased() []string }); ok {
		mr.Aliased = m.Aliased()
		if len(mr.Aliased) > 0 {
			logger.Warn("aliased terms dropped", slog.Any("terms", mr.Aliased))
		}
	}
	metrics.SetModelAccuracy(mr.Name, eval.Accuracy)
	mr.Seconds = time.Since(start).Seconds()
	logger.Info("model scored",
		slog.Float64("accuracy", eval.Accuracy),
		slog.Int("tp", eval.Confusion.TruePositives),
		slog.Int("fp", eval.Confusion.FalsePositives),
		slog.Int("tn", eval.Confusion.TrueNegatives),
		slog.Int("fn", eval.Confusion.FalseNegatives),
	)
	return mr, nil
}

// stage times fn and checks for cancellation before it starts.
func (r *run) stage(ctx context.Context, name string, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	start := time.Now()
	err := fn()
	elapsed := time.Since(start)
	metrics.ObserveStage(name, elapsed)
	r.logger.Debug("stage finished", slog.String("stage", name), slog.Duration("elapsed", elapsed))
	return err
}

// abort records a fatal stage error and wraps it with the stage name.
func (r *run) abort(ctx context.Context, stage string, err error) error {
	wrapped := utils.NewAppError(stage, stageMessage(stage), err)
	code := wrapped.Code()
	metrics.CountError(stage, string(code))
	r.logger.Error("stage failed",
		slog.String("stage", stage),
		slog.String("code", string(code)),
		slog.Any("error", err),
	)

	report := r.report
	report.FinishedAt = r.p.now()
	report.Complete = false
	metrics.ObserveRun(report.FinishedAt.Sub(report.StartedAt), metrics.OutcomeError)

	if r.p.store != nil {
		summary := report.RunSummary()
		summary.Error = wrapped.Error()
		if storeErr := r.p.store.StoreRun(context.WithoutCancel(ctx), summary); storeErr != nil {
			r.logger.Warn("run history store failed", slog.Any("error", storeErr))
		}
	}
	return wrapped
}

func (r *run) finish(ctx context.Context) {
	report := r.report
	report.FinishedAt = r.p.now()

	outcome := metrics.OutcomeSuccess
	if !report.Complete {
		outcome = metrics.OutcomePartial
	}
	metrics.ObserveRun(report.FinishedAt.Sub(report.StartedAt), outcome)

	if r.p.store != nil {
		start := time.Now()
		if err := r.p.store.StoreRun(ctx, report.RunSummary()); err != nil {
			metrics.CountError(StageReport, string(utils.Classify(err)))
			r.logger.Warn("run history store failed", slog.Any("error", err))
		}
		metrics.ObserveStage(StageReport, time.Since(start))
	}
	r.logger.Info("run finished",
		slog.Bool("complete", report.Complete),
		slog.Duration("elapsed", report.FinishedAt.Sub(report.StartedAt)),
	)
}

func stageMessage(stage string) string {
	switch stage {
	case StageIngest:
		return "failed to load input"
	case StageClean:
		return "failed to clean input"
	case StageDescribe:
		return "failed to describe dataset"
	case StageSplit:
		return "failed to split dataset"
	case StageModel:
		return "model stage interrupted"
	default:
		return "stage failed"
	}
}
