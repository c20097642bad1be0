package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/miradorstack/mirador-churn/internal/analysis"
	"github.com/miradorstack/mirador-churn/internal/api"
	"github.com/miradorstack/mirador-churn/internal/cache"
	"github.com/miradorstack/mirador-churn/internal/classifier"
	"github.com/miradorstack/mirador-churn/internal/config"
	"github.com/miradorstack/mirador-churn/internal/engine"
	"github.com/miradorstack/mirador-churn/internal/ingest"
	"github.com/miradorstack/mirador-churn/internal/metrics"
	"github.com/miradorstack/mirador-churn/internal/patterns"
	"github.com/miradorstack/mirador-churn/internal/repo"
	"github.com/miradorstack/mirador-churn/internal/services"
	"github.com/miradorstack/mirador-churn/internal/synth"
	"github.com/miradorstack/mirador-churn/internal/utils"
)

func main() {
	var (
		configPath string
		serve      bool
		synthetic  int
	)
	flag.StringVar(&configPath, "config", "", "Path to configuration file")
	flag.BoolVar(&serve, "serve", false, "Serve report views over gRPC after the run")
	flag.IntVar(&synthetic, "synthetic", 0, "Run on N generated customers instead of an input file")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: churn-report [-config FILE] [-serve] [-synthetic N] [CSV]\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to load config", slog.String("path", configPath), slog.Any("error", err))
		os.Exit(1)
	}
	if flag.NArg() > 0 {
		cfg.Input.Path = flag.Arg(0)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}

	os.Exit(run(cfg, serve, synthetic))
}

func run(cfg *config.Config, serve bool, synthetic int) int {
	logger, logCloser := utils.NewLogger(utils.LogOptions{
		Level:      cfg.Logging.Level,
		JSON:       cfg.Logging.JSON,
		File:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
	})
	defer logCloser.Close()
	slog.SetDefault(logger)

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		logger.Error("failed to register metrics", slog.Any("error", err))
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	viewCache := cache.NewLRUProvider(cfg.Cache.Size, cfg.Cache.TTL)
	defer viewCache.Close()

	var (
		runStore engine.RunStore
		history  services.RunHistory
		hotspots patterns.Store
	)
	if cfg.Store.Path != "" {
		store, err := repo.OpenRunStore(ctx, cfg.Store.Path, viewCache, cfg.Cache.TTL)
		if err != nil {
			logger.Error("failed to open run store", slog.String("path", cfg.Store.Path), slog.Any("error", err))
			return 1
		}
		defer store.Close()
		runStore, history, hotspots = store, store, store
	}

	opts, err := runOptions(cfg)
	if err != nil {
		logger.Error("invalid analysis fields", slog.Any("error", err))
		return 1
	}

	miner := patterns.NewMiner(logger, hotspots, cfg.Analysis.HotspotMinSupport, cfg.Analysis.HotspotLimit)
	pipeline := engine.NewPipeline(logger, buildTrainers(cfg, logger), miner, runStore)

	var report *engine.Report
	if synthetic > 0 {
		raw, err := syntheticTable(ctx, synthetic, cfg.Split.Seed)
		if err != nil {
			logger.Error("failed to generate synthetic input", slog.Any("error", err))
			return 1
		}
		opts.Input = raw.Source
		report, err = pipeline.RunTable(ctx, raw, opts)
		if err != nil {
			logger.Error("churn report failed", slog.Any("error", err))
			return 1
		}
	} else {
		report, err = pipeline.Run(ctx, opts)
		if err != nil {
			logger.Error("churn report failed", slog.Any("error", err))
			return 1
		}
	}

	written, err := engine.WriteArtifacts(report, engine.ArtifactOptions{
		Dir:         cfg.Output.Dir,
		Charts:      cfg.Output.Charts,
		CleanedCSV:  cfg.Output.CleanedCSV,
		MetricsFile: cfg.Output.MetricsFile,
		Gatherer:    prometheus.DefaultGatherer,
	})
	if err != nil {
		metrics.CountError(engine.StageReport, string(utils.Classify(err)))
		logger.Error("failed to write report", slog.String("dir", cfg.Output.Dir), slog.Any("error", err))
		return 1
	}
	logger.Info("report written", slog.String("dir", cfg.Output.Dir), slog.Int("files", len(written)))

	for _, m := range report.Models {
		if m.Evaluation != nil {
			fmt.Printf("%-14s accuracy %.4f\n", m.Name, m.Evaluation.Accuracy)
		} else {
			fmt.Printf("%-14s failed: %s\n", m.Name, m.Error)
		}
	}

	if serve {
		views := services.NewReportService(logger, viewCache, cfg.Cache.TTL, history)
		views.Publish(ctx, report)
		if err := serveViews(ctx, stop, cfg, logger, views); err != nil {
			logger.Error("view server failed", slog.Any("error", err))
			return 1
		}
	}

	if !report.Complete {
		logger.Warn("report incomplete", slog.String("run_id", report.RunID))
		return 1
	}
	return 0
}

func runOptions(cfg *config.Config) (engine.Options, error) {
	delimiter, err := cfg.DelimiterRune()
	if err != nil {
		return engine.Options{}, err
	}
	categorical, err := cfg.CategoricalFields()
	if err != nil {
		return engine.Options{}, err
	}
	serviceFields, err := cfg.ServiceFields()
	if err != nil {
		return engine.Options{}, err
	}
	return engine.Options{
		Input:         cfg.Input.Path,
		Ingest:        ingest.Options{Delimiter: delimiter, Encoding: cfg.Input.Encoding},
		TrainFraction: cfg.Split.TrainFraction,
		Seed:          cfg.Split.Seed,
		Analysis:      analysis.Options{CategoricalFields: categorical, ServiceFields: serviceFields},
	}, nil
}

func buildTrainers(cfg *config.Config, logger *slog.Logger) []classifier.Trainer {
	var trainers []classifier.Trainer
	if lc := cfg.Models.Logistic; lc.Enabled {
		t := classifier.NewLogisticTrainer(logger)
		t.MaxIterations = lc.MaxIterations
		t.Tolerance = lc.Tolerance
		t.Threshold = lc.Threshold
		trainers = append(trainers, t)
	}
	if fc := cfg.Models.Forest; fc.Enabled {
		t := classifier.NewForestTrainer(fc.Seed, logger)
		t.Trees = fc.Trees
		t.MaxFeatures = fc.MaxFeatures
		if fc.MinNodeSize > 0 {
			t.MinNodeSize = fc.MinNodeSize
		}
		t.Workers = fc.Workers
		trainers = append(trainers, t)
	}
	return trainers
}

func syntheticTable(ctx context.Context, n int, seed int64) (ingest.RawTable, error) {
	var buf bytes.Buffer
	if err := ingest.WriteCSV(&buf, synth.Dataset(n, seed)); err != nil {
		return ingest.RawTable{}, err
	}
	raw, err := ingest.ReadCSV(ctx, &buf, ingest.Options{})
	if err != nil {
		return ingest.RawTable{}, err
	}
	raw.Source = fmt.Sprintf("synthetic:%d", n)
	return raw, nil
}

// serveViews blocks until ctx is cancelled, serving report views and /metrics.
func serveViews(ctx context.Context, stop context.CancelFunc, cfg *config.Config, logger *slog.Logger, views *services.ReportService) error {
	server, err := api.NewServer(cfg.Server, views, logger)
	if err != nil {
		return err
	}
	logger.Info("serving report views", slog.String("address", server.Address()))

	if cfg.Server.MetricsAddress != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsServer := &http.Server{
			Addr:         cfg.Server.MetricsAddress,
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 15 * time.Second,
		}
		go func() {
			logger.Info("metrics server listening", slog.String("address", cfg.Server.MetricsAddress))
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server exited", slog.Any("error", err))
				stop()
			}
		}()
		defer func() {
			metricsCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := metricsServer.Shutdown(metricsCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Warn("metrics server shutdown", slog.Any("error", err))
			}
		}()
	}

	if err := server.Serve(ctx); err != nil {
		return fmt.Errorf("serve views: %w", err)
	}
	logger.Info("report views stopped")
	return nil
}
