package ingest

import (
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/miradorstack/mirador-churn/internal/extractors"
	"github.com/miradorstack/mirador-churn/internal/models"
)

// ErrNoRows is returned when cleaning leaves no usable record.
var ErrNoRows = errors.New("no complete rows after cleaning")

// DroppedRow identifies an input row removed because of missing fields.
type DroppedRow struct {
	Row        int      `json:"row"`
	CustomerID string   `json:"customerID"`
	Missing    []string `json:"missing"`
}

// CleaningReport describes what cleaning changed.
type CleaningReport struct {
	InputRows   int                         `json:"inputRows"`
	KeptRows    int                         `json:"keptRows"`
	Missing     map[string]int              `json:"missing"`
	Dropped     []DroppedRow                `json:"dropped"`
	ParseErrors []ParseError                `json:"parseErrors"`
	Numeric     []extractors.NumericProfile `json:"numeric"`
}

// MissingTotal returns the number of missing cells across all fields.
func (r CleaningReport) MissingTotal() int {
	total := 0
	for _, n := range r.Missing {
		total += n
	}
	return total
}

// Clean converts the raw table into a typed Dataset.
//
// Numeric fields that fail to parse or are not finite become missing and are
// recorded as ParseErrors.
// SeniorCitizen is recoded from 0/1 to No/Yes. Rows with any missing field are removed.
// The raw table is not modified.
func Clean(raw RawTable) (models.Dataset, CleaningReport, error) {
	report := CleaningReport{
		InputRows: raw.Len(),
		Missing:   make(map[string]int),
	}

	records := make([]models.CustomerRecord, 0, raw.Len())
	for i := 0; i < raw.Len(); i++ {
		row := rowReader{table: raw, index: i, report: &report}
		record := row.record()
		if len(row.missing) > 0 {
			for _, name := range row.missing {
				report.Missing[name]++
			}
			report.Dropped = append(report.Dropped, DroppedRow{
				Row:        row.line(),
				CustomerID: record.CustomerID,
				Missing:    row.missing,
			})
			continue
		}
		records = append(records, record)
	}

	ds := models.NewDataset(records)
	report.KeptRows = ds.Len()
	report.Numeric = extractors.NewOutlierExtractor(0).Profile(ds)
	if ds.Len() == 0 {
		return ds, report, ErrNoRows
	}
	return ds, report, nil
}

// rowReader converts one raw row, collecting missing fields as it goes.
type rowReader struct {
	table   RawTable
	index   int
	report  *CleaningReport
	missing []string
}

// line is the 1-based line of the row in the input file, counting the header.
func (r *rowReader) line() int { return r.index + 2 }

func (r *rowReader) record() models.CustomerRecord {
	return models.CustomerRecord{
		CustomerID:       r.text(models.FieldCustomerID),
		Gender:           r.text(models.FieldGender),
		SeniorCitizen:    r.seniorCitizen(),
		Partner:          r.text(models.FieldPartner),
		Dependents:       r.text(models.FieldDependents),
		Tenure:           r.integer(models.FieldTenure),
		PhoneService:     r.text(models.FieldPhoneService),
		MultipleLines:    r.text(models.FieldMultipleLines),
		InternetService:  r.text(models.FieldInternetService),
		OnlineSecurity:   r.text(models.FieldOnlineSecurity),
		OnlineBackup:     r.text(models.FieldOnlineBackup),
		DeviceProtection: r.text(models.FieldDeviceProtection),
		TechSupport:      r.text(models.FieldTechSupport),
		StreamingTV:      r.text(models.FieldStreamingTV),
		StreamingMovies:  r.text(models.FieldStreamingMovies),
		Contract:         r.text(models.FieldContract),
		PaperlessBilling: r.text(models.FieldPaperlessBilling),
		PaymentMethod:    r.text(models.FieldPaymentMethod),
		MonthlyCharges:   r.number(models.FieldMonthlyCharges),
		TotalCharges:     r.number(models.FieldTotalCharges),
		Churn:            r.label(),
	}
}

func (r *rowReader) raw(f models.Field) string {
	return strings.TrimSpace(r.table.Value(r.index, f))
}

func (r *rowReader) markMissing(f models.Field) {
	r.missing = append(r.missing, f.String())
}

func (r *rowReader) text(f models.Field) string {
	v := r.raw(f)
	if v == "" {
		r.markMissing(f)
	}
	return v
}

func (r *rowReader) number(f models.Field) float64 {
	v := r.raw(f)
	n, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		r.parseFailed(f)
		return 0
	}
	return n
}

func (r *rowReader) integer(f models.Field) int {
	v := r.raw(f)
	n, err := strconv.Atoi(v)
	if err != nil {
		r.parseFailed(f)
		return 0
	}
	return n
}

func (r *rowReader) parseFailed(f models.Field) {
	r.report.ParseErrors = append(r.report.ParseErrors, ParseError{
		Row:        r.line(),
		CustomerID: r.raw(models.FieldCustomerID),
		Field:      f.String(),
		Value:      r.table.Value(r.index, f),
	})
	r.markMissing(f)
}

func (r *rowReader) seniorCitizen() string {
	switch r.raw(models.FieldSeniorCitizen) {
	case "1", models.LabelYes:
		return models.LabelYes
	case "0", models.LabelNo:
		return models.LabelNo
	}
	r.markMissing(models.FieldSeniorCitizen)
	return ""
}

func (r *rowReader) label() string {
	switch v := r.raw(models.FieldChurn); v {
	case models.LabelYes, models.LabelNo:
		return v
	}
	r.markMissing(models.FieldChurn)
	return ""
}
