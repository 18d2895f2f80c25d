package forestry

import (
	"context"
	"math/rand"
	"testing"

	"github.com/pbanos/forestry/tree"
)

func TestBuildSubtreeOnEmptySample(t *testing.T) {
	d := noisyDataset(10, 2, 1)
	n, err := BuildSubtree(context.Background(), nil, nil, d.Store, SubtreeParams{NClasses: 3, TryFeatures: 1, MaxDepth: 3}, rand.New(rand.NewSource(1)))
	if err != nil || n != nil {
		t.Errorf("expected no subtree and no error, got %v and %v", n, err)
	}
}

func TestBuildSubtreeWithoutDepthIsALeaf(t *testing.T) {
	d := noisyDataset(20, 2, 1)
	n, err := BuildSubtree(context.Background(), allSamples(20), d.Labels, d.Store, SubtreeParams{NClasses: 3, TryFeatures: 1, MaxDepth: 0}, rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	leaf, ok := n.Content.(tree.Leaf)
	if !ok || leaf.Size != 20 || n.Left != nil || n.Right != nil {
		t.Errorf("expected a leaf with the 20 samples, got %v", n)
	}
}

func TestBuildSubtreeRespectsMaxDepth(t *testing.T) {
	d := noisyDataset(300, 4, 2)
	n, err := BuildSubtree(context.Background(), allSamples(300), d.Labels, d.Store, SubtreeParams{NClasses: 3, TryFeatures: 2, MaxDepth: 3}, rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	err = tree.Traverse(context.Background(), n, false, func(_ context.Context, n *tree.Node, depth int) error {
		if depth > 3 {
			t.Errorf("node %v at depth %d", n.Content, depth)
		}
		if _, ok := n.Content.(tree.Leaf); ok != (depth == 3 || n.Left == nil) {
			t.Errorf("unexpected content %v at depth %d", n.Content, depth)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("traversing subtree: %v", err)
	}
}

func TestBuildSubtreeLeavesPartitionTheSample(t *testing.T) {
	d := noisyDataset(250, 3, 4)
	n, err := BuildSubtree(context.Background(), allSamples(250), d.Labels, d.Store, SubtreeParams{NClasses: 3, TryFeatures: 1, MaxDepth: Unbounded}, rand.New(rand.NewSource(9)))
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	size := 0
	histogram := make([]int, 3)
	err = tree.Traverse(context.Background(), n, true, func(_ context.Context, n *tree.Node, _ int) error {
		if leaf, ok := n.Content.(tree.Leaf); ok {
			size += leaf.Size
			for c, count := range leaf.Histogram {
				histogram[c] += count
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("traversing subtree: %v", err)
	}
	if size != 250 {
		t.Errorf("expected leaves to hold 250 samples, got %d", size)
	}
	expected := make([]int, 3)
	for _, l := range d.Labels {
		expected[l]++
	}
	for c := range expected {
		if histogram[c] != expected[c] {
			t.Errorf("expected %d samples of class %d on leaves, got %d", expected[c], c, histogram[c])
		}
	}
	// an unbounded tree without repeated rows fits its training data
	predictions, err := n.Predict(d.Store.Rows(allSamples(250)), allSamples(250))
	if err != nil {
		t.Fatalf("predicting: %v", err)
	}
	for i, p := range predictions {
		if p != d.Labels[i] {
			t.Errorf("sample %d predicted as %d, labelled %d", i, p, d.Labels[i])
		}
	}
}

func TestBuildSubtreeDelegatesSmallSubsets(t *testing.T) {
	d := noisyDataset(100, 3, 5)
	sample := []int{0, 0, 1, 2, 2, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}
	labels := make([]int, len(sample))
	for i, s := range sample {
		labels[i] = d.Labels[s]
	}
	p := SubtreeParams{NClasses: 3, TryFeatures: 3, MaxDepth: Unbounded, DelegationThreshold: 1000}
	n, err := BuildSubtree(context.Background(), sample, labels, d.Store, p, rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	delegated, ok := n.Content.(tree.Delegated)
	if !ok {
		t.Fatalf("expected a delegated subtree, got %v", n.Content)
	}
	x := d.Store.Rows(sample)
	predictions := delegated.Model.Predict(x)
	for i, pr := range predictions {
		if pr != labels[i] {
			t.Errorf("sample %d predicted as %d, labelled %d", sample[i], pr, labels[i])
		}
	}

	p.DelegationThreshold = 3*int64(len(sample)) - 1
	n, err = BuildSubtree(context.Background(), sample, labels, d.Store, p, rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if _, ok := n.Content.(tree.Delegated); ok {
		t.Errorf("expected the root not to be delegated above the threshold")
	}
}

func TestBuildSubtreeHonoursCancellation(t *testing.T) {
	d := noisyDataset(50, 2, 6)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := BuildSubtree(ctx, allSamples(50), d.Labels, d.Store, SubtreeParams{NClasses: 3, TryFeatures: 1, MaxDepth: Unbounded}, rand.New(rand.NewSource(1)))
	if err != context.Canceled {
		t.Errorf("expected %v, got %v", context.Canceled, err)
	}
}
