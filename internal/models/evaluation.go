package models

// ConfusionMatrix counts predicted versus actual outcomes of a binary classifier.
type ConfusionMatrix struct {
	TruePositives  int `json:"truePositives"`
	FalsePositives int `json:"falsePositives"`
	TrueNegatives  int `json:"trueNegatives"`
	FalseNegatives int `json:"falseNegatives"`
}

// Total returns the number of scored records.
func (m ConfusionMatrix) Total() int {
	return m.TruePositives + m.FalsePositives + m.TrueNegatives + m.FalseNegatives
}

// ActualPositives returns the number of records labelled positive.
func (m ConfusionMatrix) ActualPositives() int {
	return m.TruePositives + m.FalseNegatives
}

// PredictedPositives returns the number of records predicted positive.
func (m ConfusionMatrix) PredictedPositives() int {
	return m.TruePositives + m.FalsePositives
}

// EvaluationResult is the score of one model on the test partition.
type EvaluationResult struct {
	Model     string          `json:"model"`
	Confusion ConfusionMatrix `json:"confusion"`
	Accuracy  float64         `json:"accuracy"`
	Precision float64         `json:"precision"`
	Recall    float64         `json:"recall"`
	F1        float64         `json:"f1"`
}

// FeatureImportance scores one predictor field.
type FeatureImportance struct {
	Field      string  `json:"field"`
	Score      float64 `json:"score"`
	Normalized float64 `json:"normalized"`
}

// Coefficient is one fitted term of a linear model.
type Coefficient struct {
	Term     string  `json:"term"`
	Estimate float64 `json:"estimate"`
}
