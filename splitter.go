package forestry

import (
	"math"
	"math/rand"

	"github.com/pbanos/forestry/feature"
	"github.com/pbanos/forestry/tree"
)

// Group is a sample with its labels.
type Group struct {
	Sample []int
	Labels []int
}

/*
SplitOutcome is the result of developing a node: its content, either
a tree.InnerSplit or a tree.Leaf, and the groups for its children.
For a Leaf the left group holds the whole sample and the right one is
empty.
*/
type SplitOutcome struct {
	Content tree.Content
	Left    Group
	Right   Group
}

/*
SplitNode takes a sample with its labels, the number of classes, the
number of features to try per round, a feature store and a source of
randomness and develops a node for the sample.

Every round draws up to tryFeatures features not tried yet and keeps
the best scoring split among them. If it separates the sample in two
non-empty groups it becomes the node's InnerSplit. Otherwise the drawn
features are marked as tried and a new round begins. Once every feature
has been tried the node becomes a Leaf.
*/
func SplitNode(sample, labels []int, nClasses, tryFeatures int, store feature.Store, rnd *rand.Rand) SplitOutcome {
	nFeatures := store.NFeatures()
	untried := make([]int, nFeatures)
	for i := range untried {
		untried[i] = i
	}
	if tryFeatures < 1 {
		tryFeatures = 1
	}
	column := make([]float64, 0, len(sample))
	for len(untried) > 0 {
		k := tryFeatures
		if k > len(untried) {
			k = len(untried)
		}
		// partial Fisher-Yates: the first k features of the pool are the draw
		for i := 0; i < k; i++ {
			j := i + rnd.Intn(len(untried)-i)
			untried[i], untried[j] = untried[j], untried[i]
		}
		bestScore, bestThreshold, bestFeature := Unsplittable, math.NaN(), -1
		for _, f := range untried[:k] {
			column = store.Column(f, sample, column)
			score, threshold := EvaluateSplit(sample, labels, column, nClasses)
			if score < bestScore {
				bestScore, bestThreshold, bestFeature = score, threshold, f
			}
		}
		if bestFeature >= 0 {
			column = store.Column(bestFeature, sample, column)
			left, right := partition(sample, labels, column, bestThreshold)
			if len(left.Sample) > 0 && len(right.Sample) > 0 {
				return SplitOutcome{
					Content: tree.InnerSplit{Feature: bestFeature, Threshold: bestThreshold},
					Left:    left,
					Right:   right,
				}
			}
		}
		untried = untried[k:]
	}
	return SplitOutcome{
		Content: tree.NewLeaf(labels, nClasses),
		Left:    Group{Sample: sample, Labels: labels},
	}
}

// partition sends the samples whose value is lower than or equal to
// the threshold to the left group and the rest to the right one,
// keeping their order.
func partition(sample, labels []int, column []float64, threshold float64) (Group, Group) {
	var left, right Group
	for i, s := range sample {
		if column[i] <= threshold {
			left.Sample = append(left.Sample, s)
			left.Labels = append(left.Labels, labels[i])
		} else {
			right.Sample = append(right.Sample, s)
			right.Labels = append(right.Labels, labels[i])
		}
	}
	return left, right
}
