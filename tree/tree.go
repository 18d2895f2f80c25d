package tree

import (
	"context"
	"fmt"
	"strings"
)

/*
Model is a fitted decision tree as grown in two tiers. Top holds
the nodes developed one split at a time down to DistrDepth: their
contents are InfoRef handles on NodeInfo, except for the nodes at
DistrDepth, which hold SubtreeRef handles on Subtrees.

Subtrees are stored in left-to-right order, so the path from the
root to subtree i is the DistrDepth-bit binary representation of i,
most significant bit first, 0 meaning left and 1 meaning right.
A nil subtree received no training samples.
*/
type Model struct {
	Top        *Node
	NodeInfo   []Content
	Subtrees   []*Node
	DistrDepth int
	NFeatures  int
	NClasses   int
}

/*
Path takes a subtree index and returns the directions leading to it
from the root: false for left, true for right.
*/
func (m *Model) Path(subtree int) []bool {
	path := make([]bool, m.DistrDepth)
	for d := 0; d < m.DistrDepth; d++ {
		path[d] = subtree&(1<<uint(m.DistrDepth-1-d)) != 0
	}
	return path
}

/*
Assemble returns a single tree equivalent to the model, with every
registry handle replaced by the content or subtree it refers to.
Top nodes whose info is a Leaf become that leaf. The model is left
untouched.
*/
func (m *Model) Assemble() (*Node, error) {
	type pair struct {
		src *Node
		dst **Node
	}
	var root *Node
	stack := []pair{{m.Top, &root}}
	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if p.src == nil {
			continue
		}
		switch c := p.src.Content.(type) {
		case InfoRef:
			if int(c) < 0 || int(c) >= len(m.NodeInfo) {
				return nil, fmt.Errorf("assembling tree: node info %d out of range", int(c))
			}
			info := m.NodeInfo[c]
			n := &Node{Content: info}
			*p.dst = n
			if _, ok := info.(InnerSplit); ok {
				stack = append(stack, pair{p.src.Right, &n.Right}, pair{p.src.Left, &n.Left})
			}
		case SubtreeRef:
			if int(c) < 0 || int(c) >= len(m.Subtrees) {
				return nil, fmt.Errorf("assembling tree: subtree %d out of range", int(c))
			}
			*p.dst = m.Subtrees[c]
		default:
			*p.dst = p.src
		}
	}
	return root, nil
}

// Traverse takes a context, a tree root, a bottomup boolean and an
// error-returning function that takes a context, a node and its depth
// as parameters, and goes through the tree running the function with
// the context and every traversed node.
// Traverse will call the function with a parent node before
// calling it for its children if bottomup is false, and
// call it after its children if bottomup is true.
// Left children are visited before right ones.
// If the given context times out or is cancelled, the context
// error is returned. If the call to the function returns an error,
// the traversing is aborted and the error is returned.
func Traverse(ctx context.Context, root *Node, bottomup bool, f func(context.Context, *Node, int) error) error {
	type visit struct {
		node     *Node
		depth    int
		expanded bool
	}
	if root == nil {
		return nil
	}
	stack := []visit{{root, 0, false}}
	for len(stack) > 0 {
		err := ctx.Err()
		if err != nil {
			return err
		}
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !bottomup || v.expanded {
			err = f(ctx, v.node, v.depth)
			if err != nil {
				return err
			}
			if bottomup {
				continue
			}
		}
		if bottomup {
			stack = append(stack, visit{v.node, v.depth, true})
		}
		if v.node.Right != nil {
			stack = append(stack, visit{v.node.Right, v.depth + 1, false})
		}
		if v.node.Left != nil {
			stack = append(stack, visit{v.node.Left, v.depth + 1, false})
		}
	}
	return nil
}

func (n *Node) String() string {
	if n == nil {
		return "[empty]\n"
	}
	result := fmt.Sprintf("[%v]\n", n.Content)
	children := []*Node{}
	if n.Left != nil {
		children = append(children, n.Left)
	}
	if n.Right != nil {
		children = append(children, n.Right)
	}
	if len(children) > 0 {
		result = fmt.Sprintf("%s|\n", result)
	}
	for i, child := range children {
		for j, line := range strings.Split(child.String(), "\n") {
			if len(line) > 0 {
				if j == 0 {
					result = fmt.Sprintf("%s|__%s\n", result, line)
				} else {
					if i == len(children)-1 {
						result = fmt.Sprintf("%s   %s\n", result, line)
					} else {
						result = fmt.Sprintf("%s|  %s\n", result, line)
					}
				}
			}
		}
	}
	return result
}
