package stacking

import "sort"

// node is one split or leaf of a regression tree fitted to boosting
// gradients.
type node struct {
	leaf      bool
	value     float64
	feature   int
	threshold float64
	left      *node
	right     *node
}

// treeTarget carries the per-sample gradient and hessian the tree fits.
// Splits minimize squared gradient error; leaf values take a Newton
// step (sum of gradients over sum of hessians).
type treeTarget struct {
	grad []float64
	hess []float64
}

func buildTree(x [][]float64, target treeTarget, indices []int, depth, maxDepth, minLeaf int) *node {
	if depth >= maxDepth || len(indices) < 2*minLeaf {
		return &node{leaf: true, value: leafValue(target, indices)}
	}

	feature, threshold, ok := bestSplit(x, target.grad, indices, minLeaf)
	if !ok {
		return &node{leaf: true, value: leafValue(target, indices)}
	}

	var left, right []int
	for _, i := range indices {
		if x[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	return &node{
		feature:   feature,
		threshold: threshold,
		left:      buildTree(x, target, left, depth+1, maxDepth, minLeaf),
		right:     buildTree(x, target, right, depth+1, maxDepth, minLeaf),
	}
}

func leafValue(target treeTarget, indices []int) float64 {
	const eps = 1e-9
	var gradSum, hessSum float64
	for _, i := range indices {
		gradSum += target.grad[i]
		hessSum += target.hess[i]
	}
	return gradSum / (hessSum + eps)
}

// bestSplit scans every feature for the threshold with the largest
// reduction in squared gradient error, honoring the minimum leaf size.
func bestSplit(x [][]float64, grad []float64, indices []int, minLeaf int) (int, float64, bool) {
	var totalSum float64
	for _, i := range indices {
		totalSum += grad[i]
	}
	n := float64(len(indices))

	bestGain := 0.0
	bestFeature := -1
	bestThreshold := 0.0

	order := make([]int, len(indices))
	for f := 0; f < len(x[indices[0]]); f++ {
		copy(order, indices)
		sort.SliceStable(order, func(a, b int) bool {
			return x[order[a]][f] < x[order[b]][f]
		})

		var leftSum float64
		for pos := 0; pos < len(order)-1; pos++ {
			i := order[pos]
			leftSum += grad[i]
			if pos+1 < minLeaf || len(order)-pos-1 < minLeaf {
				continue
			}
			// skip ties, the boundary must sit between distinct values
			if x[order[pos]][f] == x[order[pos+1]][f] {
				continue
			}

			nl := float64(pos + 1)
			nr := n - nl
			rightSum := totalSum - leftSum
			// variance reduction up to a constant
			gain := leftSum*leftSum/nl + rightSum*rightSum/nr - totalSum*totalSum/n
			if gain > bestGain {
				bestGain = gain
				bestFeature = f
				bestThreshold = (x[order[pos]][f] + x[order[pos+1]][f]) / 2
			}
		}
	}

	if bestFeature < 0 {
		return 0, 0, false
	}
	return bestFeature, bestThreshold, true
}

func (t *node) predict(x []float64) float64 {
	for !t.leaf {
		if x[t.feature] <= t.threshold {
			t = t.left
		} else {
			t = t.right
		}
	}
	return t.value
}
