package models

import "time"

// RunSummary is the persisted outline of one report run.
type RunSummary struct {
	ID          string             `json:"id"`
	StartedAt   time.Time          `json:"startedAt"`
	FinishedAt  time.Time          `json:"finishedAt"`
	Input       string             `json:"input"`
	InputRows   int                `json:"inputRows"`
	KeptRows    int                `json:"keptRows"`
	TrainRows   int                `json:"trainRows"`
	TestRows    int                `json:"testRows"`
	Complete    bool               `json:"complete"`
	Error       string             `json:"error,omitempty"`
	Evaluations []EvaluationResult `json:"evaluations"`
}
