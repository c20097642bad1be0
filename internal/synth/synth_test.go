package synth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/miradorstack/mirador-churn/internal/models"
)

func TestRecordsDeterministic(t *testing.T) {
	assert.Equal(t, Records(200, 9), Records(200, 9))
	assert.NotEqual(t, Records(200, 9), Records(200, 10))
}

func TestRecordsAreComplete(t *testing.T) {
	ds := Dataset(1000, 11)
	require.Equal(t, 1000, ds.Len())

	for i := 0; i < ds.Len(); i++ {
		r := ds.At(i)
		for _, f := range models.AllFields() {
			if f.Kind() == models.KindNumeric {
				continue
			}
			v, ok := r.Categorical(f)
			require.True(t, ok, "field %s", f)
			require.NotEmpty(t, v, "record %d field %s", i, f)
		}
		assert.Contains(t, []string{models.LabelYes, models.LabelNo}, r.SeniorCitizen)
		assert.GreaterOrEqual(t, r.TotalCharges, 0.0)
	}

	rate := ds.ChurnRate()
	assert.Greater(t, rate, 0.1)
	assert.Less(t, rate, 0.45)
}

func TestContractDrivesChurn(t *testing.T) {
	ds := Dataset(4000, 12)
	churned := map[string][2]int{}
	for _, r := range ds.Records() {
		c := churned[r.Contract]
		c[1]++
		if r.Churned() {
			c[0]++
		}
		churned[r.Contract] = c
	}
	rate := func(contract string) float64 {
		c := churned[contract]
		return float64(c[0]) / float64(c[1])
	}
	assert.Greater(t, rate("Month-to-month"), rate("One year"))
	assert.Greater(t, rate("One year"), rate("Two year"))
}
