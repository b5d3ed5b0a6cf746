// Package prob holds the probability vector type shared by every model
// in the prediction pipeline.
package prob

import "math"

// Outcome indices into a Vector.
const (
	Home = 0
	Draw = 1
	Away = 2
)

// Vector is a three-way outcome probability distribution. After any
// normalization step the components sum to 1 within a small tolerance.
type Vector struct {
	Home float64
	Draw float64
	Away float64
}

// Sum returns the total probability mass.
func (v Vector) Sum() float64 {
	return v.Home + v.Draw + v.Away
}

// At returns the component for the given outcome index.
func (v Vector) At(outcome int) float64 {
	switch outcome {
	case Home:
		return v.Home
	case Draw:
		return v.Draw
	case Away:
		return v.Away
	}
	return 0
}

// Normalized rescales the vector onto the probability simplex. A vector
// with no mass comes back uniform rather than NaN.
func (v Vector) Normalized() Vector {
	s := v.Sum()
	if s <= 0 {
		return Vector{Home: 1.0 / 3, Draw: 1.0 / 3, Away: 1.0 / 3}
	}
	return Vector{Home: v.Home / s, Draw: v.Draw / s, Away: v.Away / s}
}

// Argmax returns the most likely outcome index.
func (v Vector) Argmax() int {
	best, bestP := Home, v.Home
	if v.Draw > bestP {
		best, bestP = Draw, v.Draw
	}
	if v.Away > bestP {
		best = Away
	}
	return best
}

// RMSDistance returns the root-mean-square difference between two
// vectors, used as a model disagreement measure.
func RMSDistance(a, b Vector) float64 {
	dh := a.Home - b.Home
	dd := a.Draw - b.Draw
	da := a.Away - b.Away
	return math.Sqrt((dh*dh + dd*dd + da*da) / 3)
}
