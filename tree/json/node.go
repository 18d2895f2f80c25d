/*
Package json encodes fitted models as JSON documents and decodes them
back.

Trees are flattened into arrays of nodes, the root first, where every
inner node refers to its children by their position in the array, so
that arbitrarily deep trees are encoded and decoded without recursion.
*/
package json

import (
	"encoding/json"
	"fmt"

	"github.com/pbanos/forestry/dense"
	"github.com/pbanos/forestry/tree"
)

const (
	splitKind    = "split"
	leafKind     = "leaf"
	denseKind    = "dense"
	infoKind     = "info"
	subtreeKind  = "subtree"
	noChildIndex = 0
)

/*
NodeEncodeDecoder is an interface for objects
that allow encoding trees into slices of
bytes and decoding them back to trees.
*/
type NodeEncodeDecoder interface {

	//Encode receives the root *tree.Node of a tree
	//and returns a slice of bytes with the tree
	//encoded or an error if the encoding could not
	//be performed for some reason.
	Encode(*tree.Node) ([]byte, error)

	//Decode receives a slice of bytes
	//and returns the root *tree.Node of the tree
	//decoded from the slice of bytes or an error if
	//the decoding could not be performed for some reason.
	Decode([]byte) (*tree.Node, error)
}

type nodeEncodeDecoder struct{}

// node is a flattened tree node. Children are referred to by their
// index in the flattened array; the root is at index 0, so 0 means
// no child.
type node struct {
	Kind      string            `json:"k"`
	Feature   int               `json:"f,omitempty"`
	Threshold float64           `json:"t,omitempty"`
	Histogram []int             `json:"h,omitempty"`
	Size      int               `json:"s,omitempty"`
	Mode      int               `json:"m,omitempty"`
	Dense     *dense.Classifier `json:"d,omitempty"`
	Ref       int               `json:"ref,omitempty"`
	Left      int               `json:"l,omitempty"`
	Right     int               `json:"r,omitempty"`
}

// NewNodeEncodeDecoder returns a NodeEncodeDecoder for trees
func NewNodeEncodeDecoder() NodeEncodeDecoder {
	return nodeEncodeDecoder{}
}

func (nodeEncodeDecoder) Encode(root *tree.Node) ([]byte, error) {
	nodes, err := flatten(root)
	if err != nil {
		return nil, err
	}
	return json.Marshal(nodes)
}

func (nodeEncodeDecoder) Decode(data []byte) (*tree.Node, error) {
	var nodes []node
	err := json.Unmarshal(data, &nodes)
	if err != nil {
		return nil, err
	}
	return unflatten(nodes)
}

// flatten returns the nodes of a tree in pre-order. A nil tree
// is flattened into a nil slice.
func flatten(root *tree.Node) ([]node, error) {
	if root == nil {
		return nil, nil
	}
	type pending struct {
		n      *tree.Node
		parent int
		left   bool
	}
	var nodes []node
	stack := []pending{{root, -1, false}}
	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		jn, err := encodeContent(p.n.Content)
		if err != nil {
			return nil, fmt.Errorf("encoding node %d: %v", len(nodes), err)
		}
		i := len(nodes)
		nodes = append(nodes, jn)
		if p.parent >= 0 {
			if p.left {
				nodes[p.parent].Left = i
			} else {
				nodes[p.parent].Right = i
			}
		}
		if p.n.Right != nil {
			stack = append(stack, pending{p.n.Right, i, false})
		}
		if p.n.Left != nil {
			stack = append(stack, pending{p.n.Left, i, true})
		}
	}
	return nodes, nil
}

// unflatten rebuilds a tree from its flattened nodes. Every node but
// the root must be the child of exactly one node.
func unflatten(nodes []node) (*tree.Node, error) {
	if len(nodes) == 0 {
		return nil, nil
	}
	tns := make([]*tree.Node, len(nodes))
	for i, jn := range nodes {
		c, err := decodeContent(jn)
		if err != nil {
			return nil, fmt.Errorf("decoding node %d: %v", i, err)
		}
		tns[i] = &tree.Node{Content: c}
	}
	referenced := make([]bool, len(nodes))
	child := func(parent, i int) (*tree.Node, error) {
		if i == noChildIndex {
			return nil, nil
		}
		if i <= parent || i >= len(nodes) || referenced[i] {
			return nil, fmt.Errorf("node %d has invalid child %d", parent, i)
		}
		referenced[i] = true
		return tns[i], nil
	}
	var err error
	for i, jn := range nodes {
		tns[i].Left, err = child(i, jn.Left)
		if err != nil {
			return nil, err
		}
		tns[i].Right, err = child(i, jn.Right)
		if err != nil {
			return nil, err
		}
		if (tns[i].Left == nil) != (tns[i].Right == nil) {
			return nil, fmt.Errorf("node %d has a single child", i)
		}
	}
	for i := 1; i < len(nodes); i++ {
		if !referenced[i] {
			return nil, fmt.Errorf("node %d is not part of the tree", i)
		}
	}
	return tns[0], nil
}

func encodeContent(c tree.Content) (node, error) {
	switch c := c.(type) {
	case tree.InnerSplit:
		return node{Kind: splitKind, Feature: c.Feature, Threshold: c.Threshold}, nil
	case tree.Leaf:
		return node{Kind: leafKind, Histogram: c.Histogram, Size: c.Size, Mode: c.Mode}, nil
	case tree.Delegated:
		dc, ok := c.Model.(*dense.Classifier)
		if !ok {
			return node{}, fmt.Errorf("cannot encode delegated model of type %T", c.Model)
		}
		return node{Kind: denseKind, Dense: dc}, nil
	case tree.InfoRef:
		return node{Kind: infoKind, Ref: int(c)}, nil
	case tree.SubtreeRef:
		return node{Kind: subtreeKind, Ref: int(c)}, nil
	}
	return node{}, fmt.Errorf("cannot encode node content %v of type %T", c, c)
}

func decodeContent(jn node) (tree.Content, error) {
	switch jn.Kind {
	case splitKind:
		return tree.InnerSplit{Feature: jn.Feature, Threshold: jn.Threshold}, nil
	case leafKind:
		return tree.Leaf{Histogram: jn.Histogram, Size: jn.Size, Mode: jn.Mode}, nil
	case denseKind:
		if jn.Dense == nil || jn.Dense.Root == nil {
			return nil, fmt.Errorf("dense node without model")
		}
		return tree.Delegated{Model: jn.Dense}, nil
	case infoKind:
		return tree.InfoRef(jn.Ref), nil
	case subtreeKind:
		return tree.SubtreeRef(jn.Ref), nil
	}
	return nil, fmt.Errorf("unknown node kind %q", jn.Kind)
}
