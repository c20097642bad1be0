package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/miradorstack/mirador-churn/internal/models"
)

// WriteCSV serialises a cleaned dataset with the canonical header in schema order.
// Output is deterministic for a given dataset.
func WriteCSV(w io.Writer, ds models.Dataset) error {
	writer := csv.NewWriter(w)

	fields := models.AllFields()
	if err := writer.Write(requiredColumns()); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	row := make([]string, len(fields))
	for i := 0; i < ds.Len(); i++ {
		record := ds.At(i)
		for j, f := range fields {
			row[j] = formatField(record, f)
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	writer.Flush()
	return writer.Error()
}

func formatField(record models.CustomerRecord, f models.Field) string {
	if f == models.FieldTenure {
		return strconv.Itoa(record.Tenure)
	}
	if v, ok := record.Numeric(f); ok {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	v, _ := record.Categorical(f)
	return v
}
