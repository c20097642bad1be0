package models

// GroupRate is the churn rate within one category value of a field.
type GroupRate struct {
	Field   string  `json:"field"`
	Value   string  `json:"value"`
	Size    int     `json:"size"`
	Churned int     `json:"churned"`
	Rate    float64 `json:"rate"`
}

// TenureAggregate summarises the customers sharing one tenure value.
type TenureAggregate struct {
	Tenure             int                `json:"tenure"`
	Customers          int                `json:"customers"`
	MeanMonthlyCharges float64            `json:"meanMonthlyCharges"`
	ChurnRate          float64            `json:"churnRate"`
	Adoption           map[string]float64 `json:"adoption"`
}

// CorrelationMatrix holds a symmetric Pearson correlation matrix.
type CorrelationMatrix struct {
	Columns []string    `json:"columns"`
	Values  [][]float64 `json:"values"`
}

// At returns the correlation between two named columns.
func (m CorrelationMatrix) At(a, b string) (float64, bool) {
	i, j := -1, -1
	for k, c := range m.Columns {
		if c == a {
			i = k
		}
		if c == b {
			j = k
		}
	}
	if i < 0 || j < 0 {
		return 0, false
	}
	return m.Values[i][j], true
}

// Summary groups the descriptive outputs of one run.
type Summary struct {
	ChurnRate    float64                `json:"churnRate"`
	GroupRates   map[string][]GroupRate `json:"groupRates"`
	Tenure       []TenureAggregate      `json:"tenure"`
	Correlations CorrelationMatrix      `json:"correlations"`
	Hotspots     []ChurnHotspot         `json:"hotspots,omitempty"`
}
