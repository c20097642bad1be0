package analysis

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/miradorstack/mirador-churn/internal/models"
	"github.com/miradorstack/mirador-churn/internal/synth"
)

func fixture() models.Dataset {
	return models.NewDataset([]models.CustomerRecord{
		{CustomerID: "a", Contract: "Month-to-month", Tenure: 1, MonthlyCharges: 70, TotalCharges: 70, TechSupport: "No", Churn: "Yes"},
		{CustomerID: "b", Contract: "Month-to-month", Tenure: 1, MonthlyCharges: 50, TotalCharges: 50, TechSupport: "Yes", Churn: "No"},
		{CustomerID: "c", Contract: "Two year", Tenure: 40, MonthlyCharges: 90, TotalCharges: 3600, TechSupport: "Yes", Churn: "No"},
		{CustomerID: "d", Contract: "One year", Tenure: 12, MonthlyCharges: 60, TotalCharges: 720, TechSupport: "No internet service", Churn: "No"},
		{CustomerID: "e", Contract: "Month-to-month", Tenure: 3, MonthlyCharges: 95, TotalCharges: 285, TechSupport: "No", Churn: "Yes"},
	})
}

func TestChurnRateBy(t *testing.T) {
	rates, err := ChurnRateBy(fixture(), models.FieldContract)
	require.NoError(t, err)
	require.Len(t, rates, 3)

	assert.Equal(t, "Month-to-month", rates[0].Value)
	assert.Equal(t, 3, rates[0].Size)
	assert.Equal(t, 2, rates[0].Churned)
	assert.InDelta(t, 2.0/3.0, rates[0].Rate, 1e-12)
	assert.Equal(t, "One year", rates[1].Value)
	assert.Equal(t, "Two year", rates[2].Value)
	assert.Zero(t, rates[2].Rate)
}

func TestChurnRateByRejectsNumericField(t *testing.T) {
	_, err := ChurnRateBy(fixture(), models.FieldTenure)
	require.Error(t, err)
}

func TestChurnRateGroupsCoverDataset(t *testing.T) {
	ds := synth.Dataset(500, 11)
	rates, err := ChurnRateBy(ds, models.FieldPaymentMethod)
	require.NoError(t, err)

	size, churned := 0, 0
	for _, r := range rates {
		size += r.Size
		churned += r.Churned
	}
	assert.Equal(t, ds.Len(), size)
	assert.Equal(t, ds.Positives(), churned)
}

func TestTenureProfile(t *testing.T) {
	profile, err := TenureProfile(fixture(), []models.Field{models.FieldTechSupport})
	require.NoError(t, err)
	require.Len(t, profile, 4)

	first := profile[0]
	assert.Equal(t, 1, first.Tenure)
	assert.Equal(t, 2, first.Customers)
	assert.InDelta(t, 60.0, first.MeanMonthlyCharges, 1e-12)
	assert.InDelta(t, 0.5, first.ChurnRate, 1e-12)
	assert.InDelta(t, 0.5, first.Adoption["TechSupport"], 1e-12)

	for i := 1; i < len(profile); i++ {
		assert.Less(t, profile[i-1].Tenure, profile[i].Tenure)
	}
	assert.Zero(t, profile[2].Adoption["TechSupport"], "12 months has no internet service")
}

func TestTenureProfileRejectsNumericService(t *testing.T) {
	_, err := TenureProfile(fixture(), []models.Field{models.FieldMonthlyCharges})
	require.Error(t, err)
}

func TestCorrelationMatrixProperties(t *testing.T) {
	matrix := Correlations(synth.Dataset(800, 12))
	require.Equal(t, []string{"tenure", "MonthlyCharges", "TotalCharges"}, matrix.Columns)

	for i := range matrix.Values {
		assert.Equal(t, 1.0, matrix.Values[i][i])
		for j := range matrix.Values[i] {
			v := matrix.Values[i][j]
			assert.False(t, math.IsNaN(v))
			assert.LessOrEqual(t, v, 1.0)
			assert.GreaterOrEqual(t, v, -1.0)
			assert.Equal(t, v, matrix.Values[j][i])
		}
	}

	r, ok := matrix.At("tenure", "TotalCharges")
	require.True(t, ok)
	assert.Greater(t, r, 0.7)
}

func TestCorrelationWithConstantColumn(t *testing.T) {
	records := synth.Records(20, 13)
	for i := range records {
		records[i].Tenure = 12
	}
	matrix := Correlations(models.NewDataset(records))
	r, _ := matrix.At("tenure", "MonthlyCharges")
	assert.Zero(t, r)
}

func TestDescribe(t *testing.T) {
	ds := synth.Dataset(600, 14)
	summary, err := NewDescriber(nil).Describe(context.Background(), ds, DefaultOptions())
	require.NoError(t, err)

	assert.InDelta(t, ds.ChurnRate(), summary.ChurnRate, 1e-12)
	assert.Len(t, summary.GroupRates, 16)
	assert.Contains(t, summary.GroupRates, "Contract")
	assert.NotEmpty(t, summary.Tenure)
	assert.Len(t, summary.Correlations.Columns, 3)
}

func TestDescribeFailsOnBadField(t *testing.T) {
	opts := DefaultOptions()
	opts.CategoricalFields = append(opts.CategoricalFields, models.FieldTotalCharges)
	_, err := NewDescriber(nil).Describe(context.Background(), synth.Dataset(50, 15), opts)
	require.Error(t, err)
}

func TestDescribeHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewDescriber(nil).Describe(ctx, synth.Dataset(50, 16), DefaultOptions())
	require.ErrorIs(t, err, context.Canceled)
}
