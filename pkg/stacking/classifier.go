// Package stacking trains a gradient-boosted tree ensemble on feature
// vectors to produce a 1X2 probability correction on top of the base
// models.
package stacking

import (
	"errors"
	"fmt"
	"math"

	"github.com/HatemAHMED80/kickstat/internal/config"
	"github.com/HatemAHMED80/kickstat/pkg/prob"
)

// ErrInsufficientSamples is returned when too few training rows are
// available. Callers skip the classifier and fall back to the base
// models.
var ErrInsufficientSamples = errors.New("insufficient samples to train classifier")

// ErrNotTrained is returned by Predict before a successful Train.
var ErrNotTrained = errors.New("classifier has not been trained")

const numClasses = 3

// Classifier is a three-class softmax gradient-boosted tree ensemble.
// Retrained periodically on an expanding window during backtesting.
type Classifier struct {
	cfg config.StackingConfig

	base  [numClasses]float64
	trees [][numClasses]*node
}

// New returns an untrained classifier.
func New(cfg config.StackingConfig) *Classifier {
	return &Classifier{cfg: cfg}
}

// Trained reports whether the classifier is ready to predict.
func (c *Classifier) Trained() bool {
	return c.trees != nil
}

// Train fits the ensemble on feature vectors with outcome labels
// (0 home, 1 draw, 2 away). Training is deterministic for a given
// dataset.
func (c *Classifier) Train(x [][]float64, y []int) error {
	if len(x) != len(y) {
		return fmt.Errorf("feature and label counts differ: %d vs %d", len(x), len(y))
	}
	if len(x) < c.cfg.MinSamples {
		return fmt.Errorf("%w: have %d, need %d", ErrInsufficientSamples, len(x), c.cfg.MinSamples)
	}
	for _, label := range y {
		if label < 0 || label >= numClasses {
			return fmt.Errorf("label out of range: %d", label)
		}
	}

	n := len(x)

	// base scores from the class priors
	var counts [numClasses]float64
	for _, label := range y {
		counts[label]++
	}
	var base [numClasses]float64
	for k := 0; k < numClasses; k++ {
		p := (counts[k] + 1) / (float64(n) + numClasses)
		base[k] = math.Log(p)
	}

	scores := make([][numClasses]float64, n)
	for i := range scores {
		scores[i] = base
	}

	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}

	grad := make([]float64, n)
	hess := make([]float64, n)
	trees := make([][numClasses]*node, 0, c.cfg.Rounds)

	for round := 0; round < c.cfg.Rounds; round++ {
		var roundTrees [numClasses]*node
		for k := 0; k < numClasses; k++ {
			for i := 0; i < n; i++ {
				p := softmaxAt(scores[i], k)
				target := 0.0
				if y[i] == k {
					target = 1.0
				}
				grad[i] = target - p
				hess[i] = p * (1 - p)
			}
			roundTrees[k] = buildTree(x, treeTarget{grad: grad, hess: hess}, indices, 0, c.cfg.MaxDepth, c.cfg.MinLeaf)
		}
		for i := 0; i < n; i++ {
			for k := 0; k < numClasses; k++ {
				scores[i][k] += c.cfg.LearningRate * roundTrees[k].predict(x[i])
			}
		}
		trees = append(trees, roundTrees)
	}

	c.base = base
	c.trees = trees
	return nil
}

// Predict returns the softmax probability vector for one feature row.
func (c *Classifier) Predict(x []float64) (prob.Vector, error) {
	if c.trees == nil {
		return prob.Vector{}, ErrNotTrained
	}
	scores := c.base
	for _, roundTrees := range c.trees {
		for k := 0; k < numClasses; k++ {
			scores[k] += c.cfg.LearningRate * roundTrees[k].predict(x)
		}
	}
	return prob.Vector{
		Home: softmaxAt(scores, prob.Home),
		Draw: softmaxAt(scores, prob.Draw),
		Away: softmaxAt(scores, prob.Away),
	}, nil
}

func softmaxAt(scores [numClasses]float64, k int) float64 {
	max := scores[0]
	for _, s := range scores[1:] {
		if s > max {
			max = s
		}
	}
	var sum float64
	for _, s := range scores {
		sum += math.Exp(s - max)
	}
	return math.Exp(scores[k]-max) / sum
}
