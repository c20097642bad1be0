package models

// Label values of the target and of the Boolean-like categorical fields.
const (
	LabelYes = "Yes"
	LabelNo  = "No"
)

// CustomerRecord is one cleaned row of the customer table.
type CustomerRecord struct {
	CustomerID       string
	Gender           string
	SeniorCitizen    string
	Partner          string
	Dependents       string
	Tenure           int
	PhoneService     string
	MultipleLines    string
	InternetService  string
	OnlineSecurity   string
	OnlineBackup     string
	DeviceProtection string
	TechSupport      string
	StreamingTV      string
	StreamingMovies  string
	Contract         string
	PaperlessBilling string
	PaymentMethod    string
	MonthlyCharges   float64
	TotalCharges     float64
	Churn            string
}

// Churned reports whether the record carries the positive label.
func (r CustomerRecord) Churned() bool {
	return r.Churn == LabelYes
}

// Categorical returns the string value of a categorical, identifier or target field.
func (r CustomerRecord) Categorical(f Field) (string, bool) {
	switch f {
	case FieldCustomerID:
		return r.CustomerID, true
	case FieldGender:
		return r.Gender, true
	case FieldSeniorCitizen:
		return r.SeniorCitizen, true
	case FieldPartner:
		return r.Partner, true
	case FieldDependents:
		return r.Dependents, true
	case FieldPhoneService:
		return r.PhoneService, true
	case FieldMultipleLines:
		return r.MultipleLines, true
	case FieldInternetService:
		return r.InternetService, true
	case FieldOnlineSecurity:
		return r.OnlineSecurity, true
	case FieldOnlineBackup:
		return r.OnlineBackup, true
	case FieldDeviceProtection:
		return r.DeviceProtection, true
	case FieldTechSupport:
		return r.TechSupport, true
	case FieldStreamingTV:
		return r.StreamingTV, true
	case FieldStreamingMovies:
		return r.StreamingMovies, true
	case FieldContract:
		return r.Contract, true
	case FieldPaperlessBilling:
		return r.PaperlessBilling, true
	case FieldPaymentMethod:
		return r.PaymentMethod, true
	case FieldChurn:
		return r.Churn, true
	}
	return "", false
}

// Numeric returns the value of a numeric field.
func (r CustomerRecord) Numeric(f Field) (float64, bool) {
	switch f {
	case FieldTenure:
		return float64(r.Tenure), true
	case FieldMonthlyCharges:
		return r.MonthlyCharges, true
	case FieldTotalCharges:
		return r.TotalCharges, true
	}
	return 0, false
}

// Dataset is an ordered, read-only collection of customer records.
// The zero value is an empty dataset.
type Dataset struct {
	records []CustomerRecord
}

// NewDataset copies records into a new Dataset.
func NewDataset(records []CustomerRecord) Dataset {
	return Dataset{records: append([]CustomerRecord(nil), records...)}
}

// Len returns the number of records.
func (d Dataset) Len() int { return len(d.records) }

// At returns the i-th record by value.
func (d Dataset) At(i int) CustomerRecord { return d.records[i] }

// Records returns a copy of all records in order.
func (d Dataset) Records() []CustomerRecord {
	return append([]CustomerRecord(nil), d.records...)
}

// Subset returns a new Dataset holding the records at the given positions, in the given order.
func (d Dataset) Subset(indices []int) Dataset {
	out := make([]CustomerRecord, len(indices))
	for i, idx := range indices {
		out[i] = d.records[idx]
	}
	return Dataset{records: out}
}

// Labels returns the target of every record, true meaning churned.
func (d Dataset) Labels() []bool {
	out := make([]bool, len(d.records))
	for i, r := range d.records {
		out[i] = r.Churned()
	}
	return out
}

// Positives counts churned records.
func (d Dataset) Positives() int {
	n := 0
	for _, r := range d.records {
		if r.Churned() {
			n++
		}
	}
	return n
}

// ChurnRate returns the fraction of churned records, or 0 for an empty dataset.
func (d Dataset) ChurnRate() float64 {
	if len(d.records) == 0 {
		return 0
	}
	return float64(d.Positives()) / float64(len(d.records))
}
