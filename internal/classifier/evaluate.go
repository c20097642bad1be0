package classifier

import (
	"fmt"

	"github.com/miradorstack/mirador-churn/internal/models"
)

// Score compares a model's predictions on test with the actual labels.
func Score(model Model, test models.Dataset) (models.EvaluationResult, error) {
	predicted, err := model.Predict(test)
	if err != nil {
		return models.EvaluationResult{}, fmt.Errorf("score %s: %w", model.Name(), err)
	}
	if len(predicted) != test.Len() {
		return models.EvaluationResult{}, fmt.Errorf("score %s: %d predictions for %d records", model.Name(), len(predicted), test.Len())
	}

	var cm models.ConfusionMatrix
	for i, actual := range test.Labels() {
		switch {
		case predicted[i] && actual:
			cm.TruePositives++
		case predicted[i] && !actual:
			cm.FalsePositives++
		case !predicted[i] && actual:
			cm.FalseNegatives++
		default:
			cm.TrueNegatives++
		}
	}
	return Evaluate(model.Name(), cm), nil
}

// Evaluate derives accuracy, precision, recall and F1 from a confusion matrix.
// Undefined ratios are reported as 0.
func Evaluate(name string, cm models.ConfusionMatrix) models.EvaluationResult {
	result := models.EvaluationResult{
		Model:     name,
		Confusion: cm,
		Accuracy:  ratio(cm.TruePositives+cm.TrueNegatives, cm.Total()),
		Precision: ratio(cm.TruePositives, cm.PredictedPositives()),
		Recall:    ratio(cm.TruePositives, cm.ActualPositives()),
	}
	if result.Precision+result.Recall > 0 {
		result.F1 = 2 * result.Precision * result.Recall / (result.Precision + result.Recall)
	}
	return result
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}
