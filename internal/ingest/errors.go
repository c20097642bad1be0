package ingest

import (
	"fmt"
	"strings"

	"github.com/miradorstack/mirador-churn/internal/utils"
)

// SchemaError reports required columns absent from the input header.
type SchemaError struct {
	Path    string
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema: %s is missing required columns: %s", e.Path, strings.Join(e.Missing, ", "))
}

// Code implements utils.Coder.
func (e *SchemaError) Code() utils.ErrorCode { return utils.CodeSchema }

// ParseError records a field that should be numeric but holds other text.
// Cleaning recovers from it by treating the value as missing.
type ParseError struct {
	Row        int    `json:"row"`
	CustomerID string `json:"customerID"`
	Field      string `json:"field"`
	Value      string `json:"value"`
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("row %d (%s): field %s: cannot parse %q", e.Row, e.CustomerID, e.Field, e.Value)
}

// Code implements utils.Coder.
func (e *ParseError) Code() utils.ErrorCode { return utils.CodeParse }
