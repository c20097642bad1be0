// Package sampling partitions a dataset into train and test subsets.
package sampling

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/miradorstack/mirador-churn/internal/models"
	"github.com/miradorstack/mirador-churn/internal/utils"
)

// InvalidFractionError reports a train fraction outside the open interval (0,1).
type InvalidFractionError struct {
	Fraction float64
}

func (e *InvalidFractionError) Error() string {
	return fmt.Sprintf("train fraction %v is outside (0,1)", e.Fraction)
}

// Code implements utils.Coder.
func (e *InvalidFractionError) Code() utils.ErrorCode { return utils.CodeConfig }

// Split is an immutable train/test partition of a dataset.
type Split struct {
	Train models.Dataset
	Test  models.Dataset

	Seed         int64
	Fraction     float64
	TrainIndices []int
	TestIndices  []int
}

// Stratified assigns ceil(fraction*n) rows of each churn class to Train and the rest to Test.
// Both partitions keep the original row order. The same dataset and seed always give the same split.
func Stratified(ds models.Dataset, fraction float64, seed int64) (Split, error) {
	if math.IsNaN(fraction) || fraction <= 0 || fraction >= 1 {
		return Split{}, &InvalidFractionError{Fraction: fraction}
	}

	var positives, negatives []int
	for i := 0; i < ds.Len(); i++ {
		if ds.At(i).Churned() {
			positives = append(positives, i)
		} else {
			negatives = append(negatives, i)
		}
	}

	rng := rand.New(rand.NewSource(seed))
	var train, test []int
	for _, class := range [][]int{negatives, positives} {
		shuffled := append([]int(nil), class...)
		rng.Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})
		cut := int(math.Ceil(fraction * float64(len(shuffled))))
		train = append(train, shuffled[:cut]...)
		test = append(test, shuffled[cut:]...)
	}
	sort.Ints(train)
	sort.Ints(test)

	return Split{
		Train:        ds.Subset(train),
		Test:         ds.Subset(test),
		Seed:         seed,
		Fraction:     fraction,
		TrainIndices: train,
		TestIndices:  test,
	}, nil
}
