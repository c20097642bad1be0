// Package classifier fits and scores churn classifiers.
package classifier

import (
	"context"
	"fmt"

	"github.com/miradorstack/mirador-churn/internal/models"
	"github.com/miradorstack/mirador-churn/internal/utils"
)

// Trainer fits a Model on a training partition.
type Trainer interface {
	Name() string
	Fit(ctx context.Context, train models.Dataset) (Model, error)
}

// Model predicts churn for every record of a dataset.
type Model interface {
	Name() string
	Predict(ds models.Dataset) ([]bool, error)
}

// ProbabilisticModel also reports a churn probability per record.
type ProbabilisticModel interface {
	Model
	PredictProba(ds models.Dataset) ([]float64, error)
}

// ImportanceModel also ranks the predictor fields.
type ImportanceModel interface {
	Model
	Importance() []models.FeatureImportance
}

// CoefficientModel also exposes fitted linear terms.
type CoefficientModel interface {
	Model
	Coefficients() []models.Coefficient
}

// ConvergenceError reports an iterative fit that exhausted its iteration budget.
type ConvergenceError struct {
	Model      string
	Iterations int
	Deviance   float64
	Reason     string
}

func (e *ConvergenceError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s did not converge after %d iterations: %s", e.Model, e.Iterations, e.Reason)
	}
	return fmt.Sprintf("%s did not converge after %d iterations (deviance %.6g)", e.Model, e.Iterations, e.Deviance)
}

func (e *ConvergenceError) Code() utils.ErrorCode { return utils.CodeConvergence }

// LevelError reports a categorical value the model never saw during training.
type LevelError struct {
	Field string
	Value string
}

func (e *LevelError) Error() string {
	return fmt.Sprintf("field %s: level %q was not present in training data", e.Field, e.Value)
}

func (e *LevelError) Code() utils.ErrorCode { return utils.CodeSchema }
