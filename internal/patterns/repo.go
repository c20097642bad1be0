package patterns

import (
	"context"

	"github.com/miradorstack/mirador-churn/internal/models"
)

// StoreFunc adapts a function to the Store interface.
type StoreFunc func(ctx context.Context, runID string, hotspots []models.ChurnHotspot) error

// StoreHotspots implements Store.
func (f StoreFunc) StoreHotspots(ctx context.Context, runID string, hotspots []models.ChurnHotspot) error {
	return f(ctx, runID, hotspots)
}
