package analysis

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/miradorstack/mirador-churn/internal/models"
)

// Options selects the fields summarised by Describe.
type Options struct {
	CategoricalFields []models.Field
	ServiceFields     []models.Field
}

// DefaultOptions summarises every categorical predictor and the internet add-on services.
func DefaultOptions() Options {
	var categorical []models.Field
	for _, f := range models.PredictorFields() {
		if f.Kind() == models.KindCategorical {
			categorical = append(categorical, f)
		}
	}
	return Options{
		CategoricalFields: categorical,
		ServiceFields: []models.Field{
			models.FieldOnlineSecurity,
			models.FieldOnlineBackup,
			models.FieldDeviceProtection,
			models.FieldTechSupport,
			models.FieldStreamingTV,
			models.FieldStreamingMovies,
		},
	}
}

// Describer runs the descriptive computations concurrently.
type Describer struct {
	logger *slog.Logger
}

// NewDescriber constructs a Describer.
func NewDescriber(logger *slog.Logger) *Describer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Describer{logger: logger}
}

// Describe computes group churn rates, the tenure profile and the correlation matrix.
// The computations share only the read-only dataset; the first failure cancels the rest.
func (d *Describer) Describe(ctx context.Context, ds models.Dataset, opts Options) (models.Summary, error) {
	summary := models.Summary{
		ChurnRate:  ds.ChurnRate(),
		GroupRates: make(map[string][]models.GroupRate, len(opts.CategoricalFields)),
	}

	var mu sync.Mutex
	group, gctx := errgroup.WithContext(ctx)

	for _, field := range opts.CategoricalFields {
		field := field
		group.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rates, err := ChurnRateBy(ds, field)
			if err != nil {
				return err
			}
			mu.Lock()
			summary.GroupRates[field.String()] = rates
			mu.Unlock()
			return nil
		})
	}

	var tenure []models.TenureAggregate
	group.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		var err error
		tenure, err = TenureProfile(ds, opts.ServiceFields)
		return err
	})

	var correlations models.CorrelationMatrix
	group.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		correlations = Correlations(ds)
		return nil
	})

	if err := group.Wait(); err != nil {
		return models.Summary{}, err
	}
	summary.Tenure = tenure
	summary.Correlations = correlations

	d.logger.Debug("descriptive analysis complete",
		slog.Int("groups", len(summary.GroupRates)),
		slog.Int("tenure_values", len(tenure)),
	)
	return summary, nil
}
