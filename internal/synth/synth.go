// Package synth generates telco customer tables with a known churn signal.
// It backs package tests and the offline demo run when no input file is available.
package synth

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/miradorstack/mirador-churn/internal/models"
)

const noInternet = "No internet service"

// Records returns n customer records drawn from a fixed generative model.
// The same seed always yields the same records.
func Records(n int, seed int64) []models.CustomerRecord {
	rng := rand.New(rand.NewSource(seed))
	out := make([]models.CustomerRecord, n)
	for i := range out {
		out[i] = record(rng, i)
	}
	return out
}

// Dataset wraps Records in a models.Dataset.
func Dataset(n int, seed int64) models.Dataset {
	return models.NewDataset(Records(n, seed))
}

func record(rng *rand.Rand, i int) models.CustomerRecord {
	r := models.CustomerRecord{
		CustomerID:       fmt.Sprintf("%04d-SYNTH", i),
		Gender:           pick(rng, "Female", "Male"),
		SeniorCitizen:    yesNo(rng, 0.16),
		Partner:          yesNo(rng, 0.48),
		Dependents:       yesNo(rng, 0.30),
		Tenure:           1 + rng.Intn(72),
		PhoneService:     yesNo(rng, 0.90),
		PaperlessBilling: yesNo(rng, 0.59),
		PaymentMethod: pick(rng,
			"Bank transfer (automatic)",
			"Credit card (automatic)",
			"Electronic check",
			"Mailed check",
		),
	}

	switch u := rng.Float64(); {
	case u < 0.55:
		r.Contract = "Month-to-month"
	case u < 0.76:
		r.Contract = "One year"
	default:
		r.Contract = "Two year"
	}

	if r.PhoneService == models.LabelYes {
		r.MultipleLines = yesNo(rng, 0.45)
	} else {
		r.MultipleLines = "No phone service"
	}

	switch u := rng.Float64(); {
	case u < 0.34:
		r.InternetService = "DSL"
	case u < 0.78:
		r.InternetService = "Fiber optic"
	default:
		r.InternetService = models.LabelNo
	}

	addons := []*string{
		&r.OnlineSecurity, &r.OnlineBackup, &r.DeviceProtection,
		&r.TechSupport, &r.StreamingTV, &r.StreamingMovies,
	}
	for _, p := range addons {
		if r.InternetService == models.LabelNo {
			*p = noInternet
			continue
		}
		*p = yesNo(rng, 0.40)
	}

	r.MonthlyCharges = monthlyCharges(rng, r)
	r.TotalCharges = math.Round(r.MonthlyCharges*float64(r.Tenure)*(0.95+0.1*rng.Float64())*100) / 100

	if rng.Float64() < churnProbability(r) {
		r.Churn = models.LabelYes
	} else {
		r.Churn = models.LabelNo
	}
	return r
}

func monthlyCharges(rng *rand.Rand, r models.CustomerRecord) float64 {
	charge := 18.0
	if r.PhoneService == models.LabelYes {
		charge += 10
		if r.MultipleLines == models.LabelYes {
			charge += 8
		}
	}
	switch r.InternetService {
	case "DSL":
		charge += 22
	case "Fiber optic":
		charge += 45
	}
	for _, v := range []string{r.StreamingTV, r.StreamingMovies, r.OnlineBackup, r.DeviceProtection} {
		if v == models.LabelYes {
			charge += 7
		}
	}
	charge += rng.NormFloat64() * 3
	return math.Round(math.Max(charge, 18.25)*100) / 100
}

func churnProbability(r models.CustomerRecord) float64 {
	z := -2.4 - 0.035*float64(r.Tenure)
	switch r.Contract {
	case "Month-to-month":
		z += 2.0
	case "One year":
		z += 0.6
	}
	if r.InternetService == "Fiber optic" {
		z += 1.0
	}
	if r.PaymentMethod == "Electronic check" {
		z += 0.5
	}
	if r.SeniorCitizen == models.LabelYes {
		z += 0.4
	}
	if r.TechSupport == models.LabelYes {
		z -= 0.5
	}
	if r.PaperlessBilling == models.LabelYes {
		z += 0.3
	}
	return 1 / (1 + math.Exp(-z))
}

func yesNo(rng *rand.Rand, p float64) string {
	if rng.Float64() < p {
		return models.LabelYes
	}
	return models.LabelNo
}

func pick(rng *rand.Rand, values ...string) string {
	return values[rng.Intn(len(values))]
}
