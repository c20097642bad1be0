package patterns

import (
	"context"
	"log/slog"
	"sort"

	"github.com/miradorstack/mirador-churn/internal/models"
)

// Store abstracts persistence for mined hotspots.
type Store interface {
	StoreHotspots(ctx context.Context, runID string, hotspots []models.ChurnHotspot) error
}

// Miner ranks customer segments by how far their churn rate exceeds the baseline.
type Miner struct {
	store      Store
	logger     *slog.Logger
	minSupport int
	limit      int
}

// NewMiner constructs a Miner; store may be nil for dry runs.
// Segments smaller than minSupport are ignored and at most limit hotspots are returned.
func NewMiner(logger *slog.Logger, store Store, minSupport, limit int) *Miner {
	if logger == nil {
		logger = slog.Default()
	}
	if minSupport <= 0 {
		minSupport = 1
	}
	if limit <= 0 {
		limit = 10
	}
	return &Miner{store: store, logger: logger, minSupport: minSupport, limit: limit}
}

// Mine scores every (field, value) segment of the categorical predictors.
// Lift is the segment churn rate divided by the overall churn rate; only
// segments with lift above 1 are hotspots.
func (m *Miner) Mine(ctx context.Context, runID string, ds models.Dataset) ([]models.ChurnHotspot, error) {
	if ds.Len() == 0 {
		return nil, nil
	}
	baseline := ds.ChurnRate()
	if baseline == 0 {
		return nil, nil
	}

	segments := make(map[segmentKey]*segmentAggregate)
	fields := categoricalFields()
	for i := 0; i < ds.Len(); i++ {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		record := ds.At(i)
		for _, f := range fields {
			value, _ := record.Categorical(f)
			agg := ensureAggregate(segments, segmentKey{field: f, value: value})
			agg.customers++
			if record.Churned() {
				agg.churned++
			}
		}
	}

	total := float64(ds.Len())
	hotspots := make([]models.ChurnHotspot, 0, len(segments))
	for key, agg := range segments {
		if agg.customers < m.minSupport {
			continue
		}
		rate := float64(agg.churned) / float64(agg.customers)
		lift := rate / baseline
		if lift <= 1 {
			continue
		}
		hotspots = append(hotspots, models.ChurnHotspot{
			Field:      key.field.String(),
			Value:      key.value,
			Customers:  agg.customers,
			ChurnRate:  rate,
			Lift:       lift,
			Prevalence: float64(agg.customers) / total,
		})
	}

	sort.Slice(hotspots, func(i, j int) bool {
		if hotspots[i].Lift != hotspots[j].Lift {
			return hotspots[i].Lift > hotspots[j].Lift
		}
		if hotspots[i].Field != hotspots[j].Field {
			return hotspots[i].Field < hotspots[j].Field
		}
		return hotspots[i].Value < hotspots[j].Value
	})
	if len(hotspots) > m.limit {
		hotspots = hotspots[:m.limit]
	}

	if m.store != nil && len(hotspots) > 0 {
		if err := m.store.StoreHotspots(ctx, runID, hotspots); err != nil {
			m.logger.Warn("hotspot store failed", slog.Any("error", err))
		}
	}

	return hotspots, nil
}

type segmentKey struct {
	field models.Field
	value string
}

type segmentAggregate struct {
	customers int
	churned   int
}

func ensureAggregate(m map[segmentKey]*segmentAggregate, key segmentKey) *segmentAggregate {
	agg, ok := m[key]
	if !ok {
		agg = &segmentAggregate{}
		m[key] = agg
	}
	return agg
}

func categoricalFields() []models.Field {
	var out []models.Field
	for _, f := range models.PredictorFields() {
		if f.Kind() == models.KindCategorical {
			out = append(out, f)
		}
	}
	return out
}
