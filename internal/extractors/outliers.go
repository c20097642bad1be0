package extractors

import (
	"math"

	"github.com/miradorstack/mirador-churn/internal/models"
)

// NumericProfile summarises one numeric field and its z-score outliers.
type NumericProfile struct {
	Field     string  `json:"field"`
	Mean      float64 `json:"mean"`
	StdDev    float64 `json:"stdDev"`
	Min       float64 `json:"min"`
	Max       float64 `json:"max"`
	Outliers  int     `json:"outliers"`
	MaxScore  float64 `json:"maxScore"`
	Threshold float64 `json:"threshold"`
}

// OutlierExtractor profiles numeric fields using a population z-score.
type OutlierExtractor struct {
	threshold float64
}

// NewOutlierExtractor creates a profiler flagging |z| >= threshold; non-positive means 3.
func NewOutlierExtractor(threshold float64) *OutlierExtractor {
	if threshold <= 0 {
		threshold = 3
	}
	return &OutlierExtractor{threshold: threshold}
}

// Profile computes a NumericProfile for every numeric field of the dataset.
func (e *OutlierExtractor) Profile(ds models.Dataset) []NumericProfile {
	fields := models.NumericFields()
	profiles := make([]NumericProfile, 0, len(fields))
	if ds.Len() == 0 {
		return profiles
	}

	for _, f := range fields {
		values := make([]float64, ds.Len())
		for i := range values {
			values[i], _ = ds.At(i).Numeric(f)
		}
		profiles = append(profiles, e.profile(f.String(), values))
	}
	return profiles
}

func (e *OutlierExtractor) profile(name string, values []float64) NumericProfile {
	p := NumericProfile{
		Field:     name,
		Min:       values[0],
		Max:       values[0],
		Threshold: e.threshold,
	}

	for _, v := range values {
		p.Mean += v
		p.Min = math.Min(p.Min, v)
		p.Max = math.Max(p.Max, v)
	}
	p.Mean /= float64(len(values))

	variance := 0.0
	for _, v := range values {
		variance += math.Pow(v-p.Mean, 2)
	}
	variance /= float64(len(values))
	p.StdDev = math.Sqrt(variance)
	if p.StdDev == 0 {
		return p
	}

	for _, v := range values {
		score := math.Abs(v-p.Mean) / p.StdDev
		if score >= e.threshold {
			p.Outliers++
		}
		p.MaxScore = math.Max(p.MaxScore, score)
	}
	return p
}
