package classifier

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	"github.com/miradorstack/mirador-churn/internal/models"
)

const forestName = "random_forest"

// ForestTrainer fits a bagged ensemble of CART trees.
type ForestTrainer struct {
	Trees int
	// MaxFeatures is the number of predictor fields tried at each split; zero means floor(sqrt(p)).
	MaxFeatures int
	MinNodeSize int
	Seed        int64
	// Workers bounds concurrent tree fits; zero means GOMAXPROCS.
	Workers int
	Logger  *slog.Logger
}

// NewForestTrainer returns a trainer with 100 trees and a minimum node size of 1.
func NewForestTrainer(seed int64, logger *slog.Logger) *ForestTrainer {
	return &ForestTrainer{Trees: 100, MinNodeSize: 1, Seed: seed, Logger: logger}
}

// Name implements Trainer.
func (t *ForestTrainer) Name() string { return forestName }

// Fit implements Trainer.
func (t *ForestTrainer) Fit(ctx context.Context, train models.Dataset) (Model, error) {
	return t.Train(ctx, train)
}

// Train grows every tree on its own bootstrap sample. Tree i draws from a PRNG
// seeded with Seed+i, so the ensemble does not depend on scheduling.
func (t *ForestTrainer) Train(ctx context.Context, train models.Dataset) (*ForestModel, error) {
	logger := t.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if train.Len() == 0 {
		return nil, fmt.Errorf("random forest: training set: %w", ErrEmptyDataset)
	}
	trees := t.Trees
	if trees <= 0 {
		trees = 100
	}
	minNode := t.MinNodeSize
	if minNode <= 0 {
		minNode = 1
	}
	workers := t.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	encoder := NewEncoder(train, OneHotCoding)
	encoded, err := encoder.Encode(train)
	if err != nil {
		return nil, fmt.Errorf("random forest: encode: %w", err)
	}
	fields, groups := fieldGroups(encoder.Columns())
	columns := columnMajor(encoded)

	mtry := t.MaxFeatures
	if mtry <= 0 {
		mtry = int(math.Floor(math.Sqrt(float64(len(groups)))))
	}
	mtry = max(1, min(mtry, len(groups)))

	labels := train.Labels()
	n := train.Len()
	fitted := make([]decisionTree, trees)
	decrease := make([][]float64, trees)

	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(workers)
	for i := 0; i < trees; i++ {
		i := i
		group.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rng := rand.New(rand.NewSource(t.Seed + int64(i)))
			sample := make([]int, n)
			for k := range sample {
				sample[k] = rng.Intn(n)
			}
			builder := newTreeBuilder(columns, labels, groups, mtry, minNode, rng)
			fitted[i] = builder.grow(sample)
			decrease[i] = builder.decrease
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	importance := make([]models.FeatureImportance, len(fields))
	total := 0.0
	for g, f := range fields {
		sum := 0.0
		for i := range decrease {
			sum += decrease[i][g]
		}
		importance[g] = models.FeatureImportance{Field: f.String(), Score: sum / float64(trees)}
		total += importance[g].Score
	}
	for g := range importance {
		if total > 0 {
			importance[g].Normalized = importance[g].Score / total
		}
	}
	sort.SliceStable(importance, func(i, j int) bool { return importance[i].Score > importance[j].Score })

	logger.Debug("random forest fitted",
		slog.Int("trees", trees),
		slog.Int("mtry", mtry),
		slog.Int("workers", workers),
	)
	return &ForestModel{encoder: encoder, trees: fitted, importance: importance}, nil
}

// fieldGroups gathers the encoded columns of each predictor field in schema order.
func fieldGroups(columns []Column) ([]models.Field, [][]int) {
	var fields []models.Field
	var groups [][]int
	index := make(map[models.Field]int)
	for j, c := range columns {
		g, ok := index[c.Field]
		if !ok {
			g = len(fields)
			index[c.Field] = g
			fields = append(fields, c.Field)
			groups = append(groups, nil)
		}
		groups[g] = append(groups[g], j)
	}
	return fields, groups
}

func columnMajor(x *mat.Dense) [][]float64 {
	_, p := x.Dims()
	out := make([][]float64, p)
	for j := range out {
		out[j] = mat.Col(nil, j, x)
	}
	return out
}

// ForestModel is a fitted random forest. It is read-only after fitting.
type ForestModel struct {
	encoder    *Encoder
	trees      []decisionTree
	importance []models.FeatureImportance
}

// Name implements Model.
func (m *ForestModel) Name() string { return forestName }

// VoteShare returns the fraction of trees voting churn for every record.
func (m *ForestModel) VoteShare(ds models.Dataset) ([]float64, error) {
	if ds.Len() == 0 {
		return []float64{}, nil
	}
	encoded, err := m.encoder.Encode(ds)
	if err != nil {
		return nil, fmt.Errorf("random forest: encode: %w", err)
	}

	out := make([]float64, ds.Len())
	for i := range out {
		row := func(feature int) float64 { return encoded.At(i, feature) }
		votes := 0
		for k := range m.trees {
			if m.trees[k].predict(row) {
				votes++
			}
		}
		out[i] = float64(votes) / float64(len(m.trees))
	}
	return out, nil
}

// Predict takes the majority vote; a tie is labelled not churned.
func (m *ForestModel) Predict(ds models.Dataset) ([]bool, error) {
	shares, err := m.VoteShare(ds)
	if err != nil {
		return nil, err
	}
	out := make([]bool, len(shares))
	for i, s := range shares {
		out[i] = s > 0.5
	}
	return out, nil
}

// Importance returns the mean decrease in Gini impurity per predictor field, highest first.
func (m *ForestModel) Importance() []models.FeatureImportance {
	return append([]models.FeatureImportance(nil), m.importance...)
}

// Trees is the number of fitted trees.
func (m *ForestModel) Trees() int { return len(m.trees) }
