package classifier

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/miradorstack/mirador-churn/internal/models"
)

const (
	logisticName    = "logistic"
	interceptTerm   = "(Intercept)"
	aliasTolerance  = 1e-7
	probabilityEdge = 1e-10
)

// LogisticTrainer fits an unregularised logistic regression by iteratively reweighted least squares.
type LogisticTrainer struct {
	MaxIterations int
	Tolerance     float64
	Threshold     float64
	Logger        *slog.Logger
}

// NewLogisticTrainer returns a trainer with 25 iterations, tolerance 1e-8 and threshold 0.5.
func NewLogisticTrainer(logger *slog.Logger) *LogisticTrainer {
	return &LogisticTrainer{MaxIterations: 25, Tolerance: 1e-8, Threshold: 0.5, Logger: logger}
}

// Name implements Trainer.
func (t *LogisticTrainer) Name() string { return logisticName }

// Fit implements Trainer.
func (t *LogisticTrainer) Fit(ctx context.Context, train models.Dataset) (Model, error) {
	return t.Train(ctx, train)
}

// Train fits the model. Churn "Yes" is the positive class and every other
// non-identifier field is a predictor. Aliased indicator columns are dropped.
func (t *LogisticTrainer) Train(ctx context.Context, train models.Dataset) (*LogisticModel, error) {
	logger := t.Logger
	if logger == nil {
		logger = slog.Default()
	}
	maxIter := t.MaxIterations
	if maxIter <= 0 {
		maxIter = 25
	}
	tol := t.Tolerance
	if tol <= 0 {
		tol = 1e-8
	}
	threshold := t.Threshold
	if threshold <= 0 || threshold >= 1 {
		threshold = 0.5
	}
	if train.Len() == 0 {
		return nil, fmt.Errorf("logistic: training set: %w", ErrEmptyDataset)
	}

	encoder := NewEncoder(train, TreatmentCoding)
	encoded, err := encoder.Encode(train)
	if err != nil {
		return nil, fmt.Errorf("logistic: encode: %w", err)
	}

	full := withIntercept(encoded)
	keep := independentColumns(full, aliasTolerance)
	terms := append([]string{interceptTerm}, columnNames(encoder.Columns())...)

	model := &LogisticModel{
		encoder:   encoder,
		threshold: threshold,
		keep:      keep,
	}
	kept := make(map[int]bool, len(keep))
	for _, j := range keep {
		kept[j] = true
		model.terms = append(model.terms, terms[j])
	}
	for j, term := range terms {
		if !kept[j] {
			model.aliased = append(model.aliased, term)
		}
	}
	if len(model.aliased) > 0 {
		logger.Info("dropped aliased columns", slog.Any("columns", model.aliased))
	}

	x := selectColumns(full, keep)
	y := make([]float64, train.Len())
	for i, churned := range train.Labels() {
		if churned {
			y[i] = 1
		}
	}

	beta, iterations, deviance, err := irls(ctx, x, y, maxIter, tol)
	if err != nil {
		return nil, err
	}
	model.coef = beta
	model.iterations = iterations
	model.deviance = deviance

	logger.Debug("logistic fit converged",
		slog.Int("iterations", iterations),
		slog.Float64("deviance", deviance),
		slog.Int("terms", len(model.terms)),
	)
	return model, nil
}

// irls maximises the binomial likelihood with a logit link. Convergence is
// declared when |dev - devOld| / (|dev| + 0.1) < tol.
func irls(ctx context.Context, x *mat.Dense, y []float64, maxIter int, tol float64) ([]float64, int, float64, error) {
	n, p := x.Dims()
	beta := mat.NewVecDense(p, nil)
	eta := mat.NewVecDense(n, nil)
	weighted := mat.NewDense(n, p, nil)
	response := mat.NewVecDense(n, nil)

	devOld := math.Inf(1)
	for iter := 1; iter <= maxIter; iter++ {
		if err := ctx.Err(); err != nil {
			return nil, iter - 1, 0, err
		}

		eta.MulVec(x, beta)
		for i := 0; i < n; i++ {
			mu := clampProbability(sigmoid(eta.AtVec(i)))
			w := mu * (1 - mu)
			z := eta.AtVec(i) + (y[i]-mu)/w
			sw := math.Sqrt(w)
			for j := 0; j < p; j++ {
				weighted.Set(i, j, sw*x.At(i, j))
			}
			response.SetVec(i, sw*z)
		}

		var gram mat.SymDense
		gram.SymOuterK(1, weighted.T())
		var chol mat.Cholesky
		if ok := chol.Factorize(&gram); !ok {
			return nil, iter, 0, &ConvergenceError{Model: logisticName, Iterations: iter, Reason: "weighted normal equations are singular"}
		}
		var rhs mat.VecDense
		rhs.MulVec(weighted.T(), response)
		var next mat.VecDense
		if err := chol.SolveVecTo(&next, &rhs); err != nil {
			return nil, iter, 0, &ConvergenceError{Model: logisticName, Iterations: iter, Reason: err.Error()}
		}
		beta.CopyVec(&next)

		eta.MulVec(x, beta)
		dev := deviance(eta, y)
		if math.IsNaN(dev) || math.IsInf(dev, 0) {
			return nil, iter, dev, &ConvergenceError{Model: logisticName, Iterations: iter, Deviance: dev}
		}
		if math.Abs(dev-devOld)/(math.Abs(dev)+0.1) < tol {
			return mat.Col(nil, 0, beta), iter, dev, nil
		}
		devOld = dev
	}
	return nil, maxIter, devOld, &ConvergenceError{Model: logisticName, Iterations: maxIter, Deviance: devOld}
}

func deviance(eta *mat.VecDense, y []float64) float64 {
	dev := 0.0
	for i, label := range y {
		mu := clampProbability(sigmoid(eta.AtVec(i)))
		if label == 1 {
			dev -= 2 * math.Log(mu)
		} else {
			dev -= 2 * math.Log(1-mu)
		}
	}
	return dev
}

func sigmoid(v float64) float64 {
	if v >= 0 {
		return 1 / (1 + math.Exp(-v))
	}
	e := math.Exp(v)
	return e / (1 + e)
}

func clampProbability(p float64) float64 {
	return math.Min(math.Max(p, probabilityEdge), 1-probabilityEdge)
}

func withIntercept(x *mat.Dense) *mat.Dense {
	n, p := x.Dims()
	out := mat.NewDense(n, p+1, nil)
	for i := 0; i < n; i++ {
		out.Set(i, 0, 1)
		for j := 0; j < p; j++ {
			out.Set(i, j+1, x.At(i, j))
		}
	}
	return out
}

func selectColumns(x *mat.Dense, keep []int) *mat.Dense {
	n, _ := x.Dims()
	out := mat.NewDense(n, len(keep), nil)
	col := make([]float64, n)
	for k, j := range keep {
		mat.Col(col, j, x)
		out.SetCol(k, col)
	}
	return out
}

func columnNames(columns []Column) []string {
	out := make([]string, len(columns))
	for i, c := range columns {
		out[i] = c.Name
	}
	return out
}

// LogisticModel is a fitted logistic regression. It is read-only after fitting.
type LogisticModel struct {
	encoder    *Encoder
	threshold  float64
	keep       []int
	terms      []string
	aliased    []string
	coef       []float64
	iterations int
	deviance   float64
}

// Name implements Model.
func (m *LogisticModel) Name() string { return logisticName }

// PredictProba returns the churn probability of every record.
func (m *LogisticModel) PredictProba(ds models.Dataset) ([]float64, error) {
	if ds.Len() == 0 {
		return []float64{}, nil
	}
	encoded, err := m.encoder.Encode(ds)
	if err != nil {
		return nil, fmt.Errorf("logistic: encode: %w", err)
	}
	x := selectColumns(withIntercept(encoded), m.keep)

	var eta mat.VecDense
	eta.MulVec(x, mat.NewVecDense(len(m.coef), m.coef))
	out := make([]float64, ds.Len())
	for i := range out {
		out[i] = sigmoid(eta.AtVec(i))
	}
	return out, nil
}

// Predict labels a record as churned when its probability reaches the threshold.
func (m *LogisticModel) Predict(ds models.Dataset) ([]bool, error) {
	probs, err := m.PredictProba(ds)
	if err != nil {
		return nil, err
	}
	out := make([]bool, len(probs))
	for i, p := range probs {
		out[i] = p >= m.threshold
	}
	return out, nil
}

// Coefficients returns the fitted terms, intercept first.
func (m *LogisticModel) Coefficients() []models.Coefficient {
	out := make([]models.Coefficient, len(m.terms))
	for i, term := range m.terms {
		out[i] = models.Coefficient{Term: term, Estimate: m.coef[i]}
	}
	return out
}

// Aliased lists the columns dropped as linear combinations of earlier ones.
func (m *LogisticModel) Aliased() []string { return append([]string(nil), m.aliased...) }

// Iterations is the number of IRLS steps taken.
func (m *LogisticModel) Iterations() int { return m.iterations }

// Deviance is the residual deviance of the fit.
func (m *LogisticModel) Deviance() float64 { return m.deviance }

// Threshold is the probability at or above which a record is labelled churned.
func (m *LogisticModel) Threshold() float64 { return m.threshold }
