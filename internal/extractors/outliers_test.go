package extractors

import (
	"math"
	"testing"

	"github.com/miradorstack/mirador-churn/internal/models"
)

func recordWithCharges(tenure int, monthly, total float64) models.CustomerRecord {
	return models.CustomerRecord{Tenure: tenure, MonthlyCharges: monthly, TotalCharges: total}
}

func TestProfileFlagsOutliers(t *testing.T) {
	records := make([]models.CustomerRecord, 0, 50)
	for i := 0; i < 49; i++ {
		records = append(records, recordWithCharges(12, 50, 600))
	}
	records = append(records, recordWithCharges(12, 50, 60000))

	profiles := NewOutlierExtractor(0).Profile(models.NewDataset(records))
	if len(profiles) != 3 {
		t.Fatalf("expected three numeric profiles, got %d", len(profiles))
	}

	byField := make(map[string]NumericProfile)
	for _, p := range profiles {
		byField[p.Field] = p
	}
	total := byField["TotalCharges"]
	if total.Outliers != 1 || total.Max != 60000 || total.Threshold != 3 {
		t.Fatalf("unexpected TotalCharges profile %+v", total)
	}
	if total.MaxScore < 6 {
		t.Fatalf("expected a large z-score, got %.2f", total.MaxScore)
	}
	tenure := byField["tenure"]
	if tenure.StdDev != 0 || tenure.Outliers != 0 || tenure.Mean != 12 {
		t.Fatalf("constant column should have no outliers: %+v", tenure)
	}
}

func TestProfileEmptyDataset(t *testing.T) {
	if got := NewOutlierExtractor(2).Profile(models.Dataset{}); len(got) != 0 {
		t.Fatalf("expected no profiles, got %v", got)
	}
}

func TestProfileMean(t *testing.T) {
	records := []models.CustomerRecord{
		recordWithCharges(1, 20, 20),
		recordWithCharges(3, 40, 120),
	}
	profiles := NewOutlierExtractor(0).Profile(models.NewDataset(records))
	for _, p := range profiles {
		if p.Field == "MonthlyCharges" && (p.Mean != 30 || math.Abs(p.StdDev-10) > 1e-12) {
			t.Fatalf("unexpected MonthlyCharges profile %+v", p)
		}
	}
}
