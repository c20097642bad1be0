package models

// ChurnHotspot is a customer segment whose churn rate stands out from the baseline.
type ChurnHotspot struct {
	Field      string  `json:"field"`
	Value      string  `json:"value"`
	Customers  int     `json:"customers"`
	ChurnRate  float64 `json:"churnRate"`
	Lift       float64 `json:"lift"`
	Prevalence float64 `json:"prevalence"`
}
