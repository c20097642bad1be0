package engine

import (
	"time"

	"github.com/miradorstack/mirador-churn/internal/ingest"
	"github.com/miradorstack/mirador-churn/internal/models"
	"github.com/miradorstack/mirador-churn/internal/sampling"
)

// Report is the outcome of one pipeline run.
type Report struct {
	RunID      string                `json:"runID"`
	StartedAt  time.Time             `json:"startedAt"`
	FinishedAt time.Time             `json:"finishedAt"`
	Input      string                `json:"input"`
	Complete   bool                  `json:"complete"`
	Dataset    DatasetSummary        `json:"dataset"`
	Cleaning   ingest.CleaningReport `json:"cleaning"`
	Summary    models.Summary        `json:"summary"`
	Models     []ModelReport         `json:"models"`

	Cleaned models.Dataset `json:"-"`
	Split   sampling.Split `json:"-"`
}

// DatasetSummary outlines the dataset at each stage.
type DatasetSummary struct {
	InputRows      int     `json:"inputRows"`
	Rows           int     `json:"rows"`
	Positives      int     `json:"positives"`
	ChurnRate      float64 `json:"churnRate"`
	TrainRows      int     `json:"trainRows"`
	TestRows       int     `json:"testRows"`
	TrainChurnRate float64 `json:"trainChurnRate"`
	TestChurnRate  float64 `json:"testChurnRate"`
	TrainFraction  float64 `json:"trainFraction"`
	Seed           int64   `json:"seed"`
}

// ModelReport holds the evaluation of one model, or the reason it has none.
type ModelReport struct {
	Name         string                     `json:"name"`
	Evaluation   *models.EvaluationResult   `json:"evaluation,omitempty"`
	Importance   []models.FeatureImportance `json:"importance,omitempty"`
	Coefficients []models.Coefficient       `json:"coefficients,omitempty"`
	Aliased      []string                   `json:"aliased,omitempty"`
	Seconds      float64                    `json:"seconds"`
	Error        string                     `json:"error,omitempty"`
	ErrorCode    string                     `json:"errorCode,omitempty"`
}

// Evaluations returns the results of every model that was scored.
func (r *Report) Evaluations() []models.EvaluationResult {
	out := make([]models.EvaluationResult, 0, len(r.Models))
	for _, m := range r.Models {
		if m.Evaluation != nil {
			out = append(out, *m.Evaluation)
		}
	}
	return out
}

// Model returns the report of the named model.
func (r *Report) Model(name string) (ModelReport, bool) {
	for _, m := range r.Models {
		if m.Name == name {
			return m, true
		}
	}
	return ModelReport{}, false
}

// RunSummary condenses the report for the run history.
func (r *Report) RunSummary() models.RunSummary {
	summary := models.RunSummary{
		ID:          r.RunID,
		StartedAt:   r.StartedAt,
		FinishedAt:  r.FinishedAt,
		Input:       r.Input,
		InputRows:   r.Dataset.InputRows,
		KeptRows:    r.Dataset.Rows,
		TrainRows:   r.Dataset.TrainRows,
		TestRows:    r.Dataset.TestRows,
		Complete:    r.Complete,
		Evaluations: r.Evaluations(),
	}
	for _, m := range r.Models {
		if m.Error != "" {
			summary.Error = m.Name + ": " + m.Error
			break
		}
	}
	return summary
}
