package forestry

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Unsplittable is the score of a feature that cannot split a sample
// into two non-empty groups.
var Unsplittable = math.Inf(1)

/*
EvaluateSplit takes a sample, its labels, the values of a feature for
every sample (column[i] being the value for sample[i]) and the number
of classes and returns the score and threshold of the best binary split
on the feature.

The score of a split is the gini impurity of both groups weighted by
their size. Candidate splits lie between every two consecutive distinct
values; the first one found with the lowest score is returned, with a
threshold halfway between its two values. A feature that is constant
on the sample scores Unsplittable with a NaN threshold.
*/
func EvaluateSplit(sample []int, labels []int, column []float64, nClasses int) (float64, float64) {
	n := len(column)
	if n < 2 || len(labels) != n {
		return Unsplittable, math.NaN()
	}
	values := make([]float64, n)
	copy(values, column)
	order := make([]int, n)
	floats.Argsort(values, order)
	if values[n-1] <= values[0] {
		return Unsplittable, math.NaN()
	}
	left := make([]int, nClasses)
	right := make([]int, nClasses)
	for _, l := range labels {
		right[l]++
	}
	score, threshold := Unsplittable, math.NaN()
	for i := 0; i < n-1; i++ {
		l := labels[order[i]]
		left[l]++
		right[l]--
		if values[i+1] <= values[i] {
			continue
		}
		nl, nr := float64(i+1), float64(n-i-1)
		s := (nl*gini(left, i+1) + nr*gini(right, n-i-1)) / float64(n)
		if s < score {
			score = s
			threshold = midpoint(values[i], values[i+1])
		}
	}
	return score, threshold
}

func gini(counts []int, size int) float64 {
	if size == 0 {
		return 0
	}
	g := 1.0
	for _, c := range counts {
		p := float64(c) / float64(size)
		g -= p * p
	}
	return g
}

// midpoint returns a threshold t with a <= t < b for a < b. Below a
// lower bound of -Inf it is the lowest finite value when one fits.
func midpoint(a, b float64) float64 {
	t := a/2 + b/2
	if math.IsInf(a, -1) {
		t = -math.MaxFloat64
	}
	if math.IsNaN(t) || t < a || t >= b {
		return a
	}
	return t
}
