package charts

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/miradorstack/mirador-churn/internal/models"
)

var pngMagic = []byte("\x89PNG")

func requirePNG(t *testing.T, path string) {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, pngMagic), "%s is not a PNG", path)
}

func TestChurnRateBar(t *testing.T) {
	path := filepath.Join(t.TempDir(), "charts", "contract.png")
	rates := []models.GroupRate{
		{Field: "Contract", Value: "Month-to-month", Size: 3875, Churned: 1655, Rate: 0.427},
		{Field: "Contract", Value: "One year", Size: 1473, Churned: 166, Rate: 0.113},
		{Field: "Contract", Value: "Two year", Size: 1685, Churned: 48, Rate: 0.028},
	}
	require.NoError(t, ChurnRateBar(path, "Contract", rates, 0.265))
	requirePNG(t, path)
}

func TestChurnRateBarRejectsEmpty(t *testing.T) {
	require.Error(t, ChurnRateBar(filepath.Join(t.TempDir(), "x.png"), "gender", nil, 0.2))
}

func TestTenureLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tenure.png")
	profile := []models.TenureAggregate{
		{Tenure: 1, Customers: 613, ChurnRate: 0.62, Adoption: map[string]float64{"TechSupport": 0.1}},
		{Tenure: 24, Customers: 94, ChurnRate: 0.2, Adoption: map[string]float64{"TechSupport": 0.3}},
		{Tenure: 72, Customers: 362, ChurnRate: 0.02, Adoption: map[string]float64{"TechSupport": 0.5}},
	}
	require.NoError(t, TenureLines(path, profile, []string{"TechSupport"}))
	requirePNG(t, path)
}

func TestImportanceBar(t *testing.T) {
	path := filepath.Join(t.TempDir(), "importance.png")
	importance := []models.FeatureImportance{
		{Field: "TotalCharges", Normalized: 0.2},
		{Field: "tenure", Normalized: 0.18},
		{Field: "Contract", Normalized: 0.1},
	}
	require.NoError(t, ImportanceBar(path, "random_forest", importance))
	requirePNG(t, path)
}
