package classifier

import (
	"errors"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/miradorstack/mirador-churn/internal/models"
)

// ErrEmptyDataset is returned when a dataset with no records is fitted or encoded.
var ErrEmptyDataset = errors.New("empty dataset")

// Column describes one encoded design-matrix column.
type Column struct {
	Name  string
	Field models.Field
	Level string
}

// Coding selects how categorical fields become indicator columns.
type Coding int

const (
	// TreatmentCoding drops the first sorted level, which becomes the reference.
	TreatmentCoding Coding = iota
	// OneHotCoding keeps an indicator for every level.
	OneHotCoding
)

// Encoder maps records onto a numeric design matrix.
// Levels are learned from the training partition and fixed afterwards.
type Encoder struct {
	columns     []Column
	categorical []models.Field
	levels      map[models.Field]map[string]struct{}
}

// NewEncoder learns the categorical levels of the predictor fields in ds.
func NewEncoder(ds models.Dataset, coding Coding) *Encoder {
	enc := &Encoder{levels: make(map[models.Field]map[string]struct{})}
	for _, f := range models.PredictorFields() {
		if f.Kind() == models.KindNumeric {
			enc.columns = append(enc.columns, Column{Name: f.String(), Field: f})
			continue
		}

		seen := make(map[string]struct{})
		for i := 0; i < ds.Len(); i++ {
			v, _ := ds.At(i).Categorical(f)
			seen[v] = struct{}{}
		}
		enc.levels[f] = seen
		enc.categorical = append(enc.categorical, f)

		levels := make([]string, 0, len(seen))
		for v := range seen {
			levels = append(levels, v)
		}
		sort.Strings(levels)
		if coding == TreatmentCoding && len(levels) > 0 {
			levels = levels[1:]
		}
		for _, level := range levels {
			enc.columns = append(enc.columns, Column{Name: f.String() + level, Field: f, Level: level})
		}
	}
	return enc
}

// Columns returns the encoded columns in order.
func (e *Encoder) Columns() []Column {
	return append([]Column(nil), e.columns...)
}

// Encode builds the n x p design matrix of ds.
func (e *Encoder) Encode(ds models.Dataset) (*mat.Dense, error) {
	if ds.Len() == 0 {
		return nil, ErrEmptyDataset
	}
	x := mat.NewDense(ds.Len(), len(e.columns), nil)
	for i := 0; i < ds.Len(); i++ {
		record := ds.At(i)
		for _, f := range e.categorical {
			v, _ := record.Categorical(f)
			if _, ok := e.levels[f][v]; !ok {
				return nil, &LevelError{Field: f.String(), Value: v}
			}
		}
		for j, c := range e.columns {
			if c.Level == "" {
				v, _ := record.Numeric(c.Field)
				x.Set(i, j, v)
				continue
			}
			if v, _ := record.Categorical(c.Field); v == c.Level {
				x.Set(i, j, 1)
			}
		}
	}
	return x, nil
}

// independentColumns returns the positions of the columns of x that are not
// linear combinations of earlier columns, using Gram-Schmidt with a relative tolerance.
func independentColumns(x *mat.Dense, tol float64) []int {
	rows, cols := x.Dims()
	basis := make([][]float64, 0, cols)
	keep := make([]int, 0, cols)
	for j := 0; j < cols; j++ {
		v := mat.Col(nil, j, x)
		norm := floats.Norm(v, 2)
		if norm == 0 {
			continue
		}
		for _, q := range basis {
			floats.AddScaled(v, -floats.Dot(v, q), q)
		}
		residual := floats.Norm(v, 2)
		if residual <= tol*norm || rows == 0 {
			continue
		}
		floats.Scale(1/residual, v)
		basis = append(basis, v)
		keep = append(keep, j)
	}
	return keep
}
