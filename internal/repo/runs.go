package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/miradorstack/mirador-churn/internal/cache"
	"github.com/miradorstack/mirador-churn/internal/models"
)

// RunStore keeps the history of report runs in SQLite.
type RunStore struct {
	db      *sql.DB
	cache   cache.Provider
	listTTL time.Duration
}

// OpenRunStore opens or creates the database at path and ensures the schema.
func OpenRunStore(ctx context.Context, path string, cacheProvider cache.Provider, listTTL time.Duration) (*RunStore, error) {
	if path == "" {
		return nil, errors.New("run store path is required")
	}
	if cacheProvider == nil {
		cacheProvider = cache.NoopProvider{}
	}
	if listTTL < 0 {
		listTTL = 0
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create store dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open run store: %w", err)
	}
	db.SetMaxOpenConns(1)

	store := &RunStore{db: db, cache: cacheProvider, listTTL: listTTL}
	if err := store.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (s *RunStore) migrate(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id          TEXT PRIMARY KEY,
			started_at  INTEGER NOT NULL,
			finished_at INTEGER NOT NULL,
			input       TEXT NOT NULL,
			input_rows  INTEGER NOT NULL,
			kept_rows   INTEGER NOT NULL,
			train_rows  INTEGER NOT NULL,
			test_rows   INTEGER NOT NULL,
			complete    INTEGER NOT NULL,
			error       TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS evaluations (
			run_id          TEXT NOT NULL,
			model           TEXT NOT NULL,
			true_positives  INTEGER NOT NULL,
			false_positives INTEGER NOT NULL,
			true_negatives  INTEGER NOT NULL,
			false_negatives INTEGER NOT NULL,
			accuracy        REAL NOT NULL,
			model_precision REAL NOT NULL,
			recall          REAL NOT NULL,
			f1              REAL NOT NULL,
			PRIMARY KEY (run_id, model)
		)`,
		`CREATE TABLE IF NOT EXISTS hotspots (
			run_id     TEXT NOT NULL,
			field      TEXT NOT NULL,
			value      TEXT NOT NULL,
			customers  INTEGER NOT NULL,
			churn_rate REAL NOT NULL,
			lift       REAL NOT NULL,
			prevalence REAL NOT NULL,
			PRIMARY KEY (run_id, field, value)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate run store: %w", err)
		}
	}
	return nil
}

// StoreRun persists a run and its evaluations in one transaction.
func (s *RunStore) StoreRun(ctx context.Context, run models.RunSummary) error {
	if s == nil {
		return fmt.Errorf("run store not initialised")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO runs
			(id, started_at, finished_at, input, input_rows, kept_rows, train_rows, test_rows, complete, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.StartedAt.UnixMilli(), run.FinishedAt.UnixMilli(), run.Input,
		run.InputRows, run.KeptRows, run.TrainRows, run.TestRows, run.Complete, nullString(run.Error),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for _, ev := range run.Evaluations {
		cm := ev.Confusion
		_, err = tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO evaluations
				(run_id, model, true_positives, false_positives, true_negatives, false_negatives, accuracy, model_precision, recall, f1)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			run.ID, ev.Model, cm.TruePositives, cm.FalsePositives, cm.TrueNegatives, cm.FalseNegatives,
			ev.Accuracy, ev.Precision, ev.Recall, ev.F1,
		)
		if err != nil {
			return fmt.Errorf("insert evaluation %s: %w", ev.Model, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	_ = s.cache.Purge(ctx)
	return nil
}

// StoreHotspots persists the churn hotspots mined for a run.
func (s *RunStore) StoreHotspots(ctx context.Context, runID string, hotspots []models.ChurnHotspot) error {
	if s == nil {
		return fmt.Errorf("run store not initialised")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	for _, h := range hotspots {
		_, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO hotspots (run_id, field, value, customers, churn_rate, lift, prevalence)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			runID, h.Field, h.Value, h.Customers, h.ChurnRate, h.Lift, h.Prevalence,
		)
		if err != nil {
			return fmt.Errorf("insert hotspot %s=%s: %w", h.Field, h.Value, err)
		}
	}
	return tx.Commit()
}

// ListRuns returns up to limit runs, most recent first.
func (s *RunStore) ListRuns(ctx context.Context, limit int) ([]models.RunSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	key := cacheRunsKey(limit)
	if cached, err := s.cache.Get(ctx, key); err == nil {
		var runs []models.RunSummary
		if err := json.Unmarshal(cached, &runs); err == nil {
			return runs, nil
		}
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, started_at, finished_at, input, input_rows, kept_rows, train_rows, test_rows, complete, error
		 FROM runs ORDER BY started_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []models.RunSummary
	for rows.Next() {
		var (
			run            models.RunSummary
			started, ended int64
			runErr         sql.NullString
		)
		if err := rows.Scan(&run.ID, &started, &ended, &run.Input, &run.InputRows, &run.KeptRows,
			&run.TrainRows, &run.TestRows, &run.Complete, &runErr); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		run.StartedAt = time.UnixMilli(started).UTC()
		run.FinishedAt = time.UnixMilli(ended).UTC()
		run.Error = runErr.String
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}

	for i := range runs {
		evaluations, err := s.evaluations(ctx, runs[i].ID)
		if err != nil {
			return nil, err
		}
		runs[i].Evaluations = evaluations
	}

	if payload, err := json.Marshal(runs); err == nil {
		_ = s.cache.Set(ctx, key, payload, s.listTTL)
	}
	return runs, nil
}

// Hotspots returns the hotspots stored for a run, highest lift first.
func (s *RunStore) Hotspots(ctx context.Context, runID string) ([]models.ChurnHotspot, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT field, value, customers, churn_rate, lift, prevalence
		 FROM hotspots WHERE run_id = ? ORDER BY lift DESC, field, value`, runID)
	if err != nil {
		return nil, fmt.Errorf("query hotspots: %w", err)
	}
	defer rows.Close()

	var out []models.ChurnHotspot
	for rows.Next() {
		var h models.ChurnHotspot
		if err := rows.Scan(&h.Field, &h.Value, &h.Customers, &h.ChurnRate, &h.Lift, &h.Prevalence); err != nil {
			return nil, fmt.Errorf("scan hotspot: %w", err)
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func (s *RunStore) evaluations(ctx context.Context, runID string) ([]models.EvaluationResult, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT model, true_positives, false_positives, true_negatives, false_negatives, accuracy, model_precision, recall, f1
		 FROM evaluations WHERE run_id = ? ORDER BY model`, runID)
	if err != nil {
		return nil, fmt.Errorf("query evaluations: %w", err)
	}
	defer rows.Close()

	var out []models.EvaluationResult
	for rows.Next() {
		var ev models.EvaluationResult
		cm := &ev.Confusion
		if err := rows.Scan(&ev.Model, &cm.TruePositives, &cm.FalsePositives, &cm.TrueNegatives, &cm.FalseNegatives,
			&ev.Accuracy, &ev.Precision, &ev.Recall, &ev.F1); err != nil {
			return nil, fmt.Errorf("scan evaluation: %w", err)
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

// Close releases the database handle.
func (s *RunStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func cacheRunsKey(limit int) string {
	return cache.Key("runs", strconv.Itoa(limit))
}

func nullString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}
