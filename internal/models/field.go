package models

import "fmt"

// Field enumerates the columns of the customer table.
type Field int

const (
	FieldCustomerID Field = iota
	FieldGender
	FieldSeniorCitizen
	FieldPartner
	FieldDependents
	FieldTenure
	FieldPhoneService
	FieldMultipleLines
	FieldInternetService
	FieldOnlineSecurity
	FieldOnlineBackup
	FieldDeviceProtection
	FieldTechSupport
	FieldStreamingTV
	FieldStreamingMovies
	FieldContract
	FieldPaperlessBilling
	FieldPaymentMethod
	FieldMonthlyCharges
	FieldTotalCharges
	FieldChurn

	fieldCount
)

// FieldKind classifies how a field is stored and used.
type FieldKind string

const (
	KindIdentifier  FieldKind = "identifier"
	KindCategorical FieldKind = "categorical"
	KindNumeric     FieldKind = "numeric"
	KindTarget      FieldKind = "target"
)

var fieldNames = [fieldCount]string{
	"customerID",
	"gender",
	"SeniorCitizen",
	"Partner",
	"Dependents",
	"tenure",
	"PhoneService",
	"MultipleLines",
	"InternetService",
	"OnlineSecurity",
	"OnlineBackup",
	"DeviceProtection",
	"TechSupport",
	"StreamingTV",
	"StreamingMovies",
	"Contract",
	"PaperlessBilling",
	"PaymentMethod",
	"MonthlyCharges",
	"TotalCharges",
	"Churn",
}

// String returns the column header used in the input file.
func (f Field) String() string {
	if f < 0 || f >= fieldCount {
		return fmt.Sprintf("Field(%d)", int(f))
	}
	return fieldNames[f]
}

// Kind reports the storage kind of the field.
func (f Field) Kind() FieldKind {
	switch f {
	case FieldCustomerID:
		return KindIdentifier
	case FieldTenure, FieldMonthlyCharges, FieldTotalCharges:
		return KindNumeric
	case FieldChurn:
		return KindTarget
	default:
		return KindCategorical
	}
}

// IsPredictor reports whether the field is used as a model input.
func (f Field) IsPredictor() bool {
	kind := f.Kind()
	return kind == KindCategorical || kind == KindNumeric
}

// AllFields returns every field in schema order.
func AllFields() []Field {
	out := make([]Field, fieldCount)
	for i := range out {
		out[i] = Field(i)
	}
	return out
}

// PredictorFields returns the categorical and numeric fields in schema order.
func PredictorFields() []Field {
	out := make([]Field, 0, fieldCount)
	for _, f := range AllFields() {
		if f.IsPredictor() {
			out = append(out, f)
		}
	}
	return out
}

// NumericFields returns tenure, MonthlyCharges and TotalCharges.
func NumericFields() []Field {
	return []Field{FieldTenure, FieldMonthlyCharges, FieldTotalCharges}
}

// ParseField resolves a column header to its Field.
func ParseField(name string) (Field, error) {
	for i, n := range fieldNames {
		if n == name {
			return Field(i), nil
		}
	}
	return 0, fmt.Errorf("unknown field %q", name)
}
