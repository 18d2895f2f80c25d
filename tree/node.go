package tree

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

/*
Node is a node of a binary decision tree. Its Left and Right
children are set if and only if its content is an InnerSplit
(or an InfoRef while the node belongs to the distributed top
of a Model).
*/
type Node struct {
	Content Content
	Left    *Node
	Right   *Node
}

/*
Content is what a node holds. It is one of InnerSplit, Leaf,
Delegated, InfoRef or SubtreeRef.
*/
type Content interface {
	content()
}

// InnerSplit sends samples whose value for Feature is lower
// than or equal to Threshold to the left child, and the rest
// to the right one.
type InnerSplit struct {
	Feature   int
	Threshold float64
}

// Leaf summarizes the labels of the training samples that
// reached it.
type Leaf struct {
	Histogram []int
	Size      int
	Mode      int
}

// Delegated holds a model grown by a dense single-machine
// solver that answers for the whole subtree under the node.
type Delegated struct {
	Model DelegateModel
}

// InfoRef is a handle on a Model's node-info registry.
type InfoRef int

// SubtreeRef is a handle on a Model's subtree registry.
type SubtreeRef int

/*
DelegateModel is the capability exposed by a dense tree
solver once fitted.

Its Predict method returns a class code per row of the given
matrix.

Its PredictProba method returns a matrix with a row per row of
the given matrix and a column per class in Classes.

Its Classes method returns the class codes the model was fitted
on, in column order for PredictProba.
*/
type DelegateModel interface {
	Predict(mat.Matrix) []int
	PredictProba(mat.Matrix) *mat.Dense
	Classes() []int
}

func (InnerSplit) content() {}
func (Leaf) content()       {}
func (Delegated) content()  {}
func (InfoRef) content()    {}
func (SubtreeRef) content() {}

/*
NewLeaf takes a slice of class codes and the number of classes and
returns a Leaf with their histogram, size and mode. Ties on the mode
are broken in favour of the lowest class code.
*/
func NewLeaf(labels []int, nClasses int) Leaf {
	h := make([]int, nClasses)
	for _, l := range labels {
		h[l]++
	}
	mode := 0
	for c, count := range h {
		if count > h[mode] {
			mode = c
		}
	}
	return Leaf{Histogram: h, Size: len(labels), Mode: mode}
}

// Probabilities returns the class frequencies of the leaf. A leaf
// without samples returns a uniform distribution.
func (l Leaf) Probabilities(nClasses int) []float64 {
	p := make([]float64, nClasses)
	if l.Size == 0 {
		for i := range p {
			p[i] = 1.0 / float64(nClasses)
		}
		return p
	}
	for c, count := range l.Histogram {
		if c < nClasses {
			p[c] = float64(count) / float64(l.Size)
		}
	}
	return p
}

func (s InnerSplit) String() string {
	return fmt.Sprintf("x[%d] <= %g", s.Feature, s.Threshold)
}

func (l Leaf) String() string {
	return fmt.Sprintf("class %d %v (%d samples)", l.Mode, l.Histogram, l.Size)
}

func (d Delegated) String() string {
	return fmt.Sprintf("delegated %v", d.Model)
}

func (r InfoRef) String() string {
	return fmt.Sprintf("info #%d", int(r))
}

func (r SubtreeRef) String() string {
	return fmt.Sprintf("subtree #%d", int(r))
}
