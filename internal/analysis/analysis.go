// Package analysis computes descriptive churn aggregates over a cleaned dataset.
// Every function is read-only over its input.
package analysis

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/miradorstack/mirador-churn/internal/models"
)

// ChurnRateBy returns the churn rate of every value of a categorical field, sorted by value.
func ChurnRateBy(ds models.Dataset, field models.Field) ([]models.GroupRate, error) {
	if field.Kind() != models.KindCategorical {
		return nil, fmt.Errorf("churn rate by %s: field is %s, not categorical", field, field.Kind())
	}

	groups := make(map[string]*models.GroupRate)
	for i := 0; i < ds.Len(); i++ {
		record := ds.At(i)
		value, _ := record.Categorical(field)
		group, ok := groups[value]
		if !ok {
			group = &models.GroupRate{Field: field.String(), Value: value}
			groups[value] = group
		}
		group.Size++
		if record.Churned() {
			group.Churned++
		}
	}

	out := make([]models.GroupRate, 0, len(groups))
	for _, group := range groups {
		group.Rate = float64(group.Churned) / float64(group.Size)
		out = append(out, *group)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Value < out[j].Value })
	return out, nil
}

// TenureProfile aggregates customers by tenure value in ascending order.
// Adoption reports, per service field, the share of customers whose value is "Yes".
func TenureProfile(ds models.Dataset, services []models.Field) ([]models.TenureAggregate, error) {
	for _, f := range services {
		if f.Kind() != models.KindCategorical {
			return nil, fmt.Errorf("tenure profile: service field %s is not categorical", f)
		}
	}

	type bucket struct {
		customers int
		charges   float64
		churned   int
		adopted   []int
	}
	buckets := make(map[int]*bucket)
	for i := 0; i < ds.Len(); i++ {
		record := ds.At(i)
		b, ok := buckets[record.Tenure]
		if !ok {
			b = &bucket{adopted: make([]int, len(services))}
			buckets[record.Tenure] = b
		}
		b.customers++
		b.charges += record.MonthlyCharges
		if record.Churned() {
			b.churned++
		}
		for k, f := range services {
			if v, _ := record.Categorical(f); v == models.LabelYes {
				b.adopted[k]++
			}
		}
	}

	tenures := make([]int, 0, len(buckets))
	for tenure := range buckets {
		tenures = append(tenures, tenure)
	}
	sort.Ints(tenures)

	out := make([]models.TenureAggregate, 0, len(tenures))
	for _, tenure := range tenures {
		b := buckets[tenure]
		n := float64(b.customers)
		agg := models.TenureAggregate{
			Tenure:             tenure,
			Customers:          b.customers,
			MeanMonthlyCharges: b.charges / n,
			ChurnRate:          float64(b.churned) / n,
			Adoption:           make(map[string]float64, len(services)),
		}
		for k, f := range services {
			agg.Adoption[f.String()] = float64(b.adopted[k]) / n
		}
		out = append(out, agg)
	}
	return out, nil
}

// Correlations returns the Pearson correlation matrix of the numeric fields.
// A column with zero variance correlates 0 with the others; the diagonal is always 1.
func Correlations(ds models.Dataset) models.CorrelationMatrix {
	fields := models.NumericFields()
	columns := make([][]float64, len(fields))
	names := make([]string, len(fields))
	for k, f := range fields {
		names[k] = f.String()
		columns[k] = make([]float64, ds.Len())
		for i := range columns[k] {
			columns[k][i], _ = ds.At(i).Numeric(f)
		}
	}

	values := make([][]float64, len(fields))
	for i := range values {
		values[i] = make([]float64, len(fields))
		values[i][i] = 1
	}
	for i := 0; i < len(fields); i++ {
		for j := i + 1; j < len(fields); j++ {
			r := pearson(columns[i], columns[j])
			values[i][j] = r
			values[j][i] = r
		}
	}
	return models.CorrelationMatrix{Columns: names, Values: values}
}

func pearson(x, y []float64) float64 {
	if len(x) < 2 || stat.Variance(x, nil) == 0 || stat.Variance(y, nil) == 0 {
		return 0
	}
	r := stat.Correlation(x, y, nil)
	switch {
	case r > 1:
		return 1
	case r < -1:
		return -1
	}
	return r
}
