package forestry

import (
	"context"
	"fmt"
	"math/rand"
	"sort"

	"github.com/pbanos/forestry/dense"
	"github.com/pbanos/forestry/feature"
	"github.com/pbanos/forestry/tree"
)

/*
SubtreeParams holds the parameters for building a subtree: the number
of classes, the features to try per split round, the depth left under
the subtree root (or Unbounded) and the delegation threshold, 0
disabling delegation to the dense solver.
*/
type SubtreeParams struct {
	NClasses            int
	TryFeatures         int
	MaxDepth            int
	DelegationThreshold int64
}

type pendingNode struct {
	node   *tree.Node
	sample []int
	labels []int
	depth  int
}

/*
BuildSubtree takes a context, a sample with its labels, a feature
store, the subtree parameters and a source of randomness and builds the
complete subtree for the sample, or returns nil if the sample is empty.

Nodes are developed depth first without recursion. A node at the
maximum depth becomes a Leaf. A node whose subset is small enough is
handed with everything under it to the dense solver. Any other node is
developed with SplitNode.
*/
func BuildSubtree(ctx context.Context, sample, labels []int, store feature.Store, p SubtreeParams, rnd *rand.Rand) (*tree.Node, error) {
	if len(sample) == 0 {
		return nil, nil
	}
	nFeatures := int64(store.NFeatures())
	root := &tree.Node{}
	stack := []pendingNode{{root, sample, labels, 0}}
	for len(stack) > 0 {
		err := ctx.Err()
		if err != nil {
			return nil, err
		}
		pn := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if p.MaxDepth != Unbounded && pn.depth >= p.MaxDepth {
			pn.node.Content = tree.NewLeaf(pn.labels, p.NClasses)
			continue
		}
		if p.DelegationThreshold > 0 && nFeatures*int64(len(pn.sample)) <= p.DelegationThreshold {
			model, err := delegate(pn.sample, pn.labels, store, p, pn.depth, rnd)
			if err != nil {
				return nil, err
			}
			pn.node.Content = tree.Delegated{Model: model}
			continue
		}
		outcome := SplitNode(pn.sample, pn.labels, p.NClasses, p.TryFeatures, store, rnd)
		pn.node.Content = outcome.Content
		if _, ok := outcome.Content.(tree.InnerSplit); ok {
			pn.node.Left = &tree.Node{}
			pn.node.Right = &tree.Node{}
			stack = append(stack,
				pendingNode{pn.node.Right, outcome.Right.Sample, outcome.Right.Labels, pn.depth + 1},
				pendingNode{pn.node.Left, outcome.Left.Sample, outcome.Left.Labels, pn.depth + 1},
			)
		}
	}
	return root, nil
}

// delegate fits the dense solver on the unique samples of a subset,
// weighting every sample by the times it appears.
func delegate(sample, labels []int, store feature.Store, p SubtreeParams, depth int, rnd *rand.Rand) (*dense.Classifier, error) {
	counts := make(map[int]int, len(sample))
	labelOf := make(map[int]int, len(sample))
	for i, s := range sample {
		counts[s]++
		labelOf[s] = labels[i]
	}
	unique := make([]int, 0, len(counts))
	for s := range counts {
		unique = append(unique, s)
	}
	sort.Ints(unique)
	y := make([]int, len(unique))
	w := make([]float64, len(unique))
	for i, s := range unique {
		y[i] = labelOf[s]
		w[i] = float64(counts[s])
	}
	maxDepth := dense.Unbounded
	if p.MaxDepth != Unbounded {
		maxDepth = p.MaxDepth - depth
	}
	model, err := dense.Fit(store.Rows(unique), y, w, dense.Params{
		MaxDepth:    maxDepth,
		MaxFeatures: p.TryFeatures,
		Rand:        rnd,
	})
	if err != nil {
		return nil, fmt.Errorf("delegating %d samples to the dense solver: %v", len(sample), err)
	}
	return model, nil
}
