package tree

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// PredictionError represents an error related with predictions
type PredictionError string

/*
ErrCannotPredictFromEmptyTree is the error returned when rows are
routed to a subtree that was never grown because it received no
training samples.
*/
const ErrCannotPredictFromEmptyTree = PredictionError("no tree to predict rows with")

/*
ErrUnresolvedReference is the error returned when a walk reaches a
registry handle. Handles only make sense in the top of a Model and
must be resolved by it.
*/
const ErrUnresolvedReference = PredictionError("cannot predict through an unresolved registry reference")

func (pe PredictionError) Error() string {
	return string(pe)
}

type work struct {
	node *Node
	pos  []int
}

/*
Predict takes a matrix of samples and a slice of row indices into it
and returns the predicted class code for each of those rows, in the
same order. Rows are routed down the tree in groups: each node only
ever sees the rows that reached it.
*/
func (n *Node) Predict(x mat.Matrix, rows []int) ([]int, error) {
	out := make([]int, len(rows))
	err := n.walk(x, rows, func(c Content, pos []int) error {
		switch c := c.(type) {
		case Leaf:
			for _, p := range pos {
				out[p] = c.Mode
			}
		case Delegated:
			pred := c.Model.Predict(gather(x, rows, pos))
			for i, p := range pos {
				out[p] = pred[i]
			}
		default:
			return fmt.Errorf("predicting with %v: %w", c, ErrUnresolvedReference)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

/*
PredictProba takes a matrix of samples, a slice of row indices into it
and the number of classes and returns a matrix with the class
probabilities for each of those rows, in the same order. The result
is nil when rows is empty.
*/
func (n *Node) PredictProba(x mat.Matrix, rows []int, nClasses int) (*mat.Dense, error) {
	if len(rows) == 0 {
		return nil, nil
	}
	out := mat.NewDense(len(rows), nClasses, nil)
	err := n.walk(x, rows, func(c Content, pos []int) error {
		switch c := c.(type) {
		case Leaf:
			p := c.Probabilities(nClasses)
			for _, r := range pos {
				out.SetRow(r, p)
			}
		case Delegated:
			pred := c.Model.PredictProba(gather(x, rows, pos))
			classes := c.Model.Classes()
			for i, r := range pos {
				for j, class := range classes {
					out.Set(r, class, pred.At(i, j))
				}
			}
		default:
			return fmt.Errorf("predicting probabilities with %v: %w", c, ErrUnresolvedReference)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// walk routes the given rows down the tree without recursion and
// calls f with every terminal content and the positions (indices into
// rows) of the rows that reached it.
func (n *Node) walk(x mat.Matrix, rows []int, f func(Content, []int) error) error {
	if len(rows) == 0 {
		return nil
	}
	if n == nil {
		return ErrCannotPredictFromEmptyTree
	}
	pos := make([]int, len(rows))
	for i := range pos {
		pos[i] = i
	}
	stack := []work{{n, pos}}
	for len(stack) > 0 {
		w := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if len(w.pos) == 0 {
			continue
		}
		if w.node == nil {
			return ErrCannotPredictFromEmptyTree
		}
		s, ok := w.node.Content.(InnerSplit)
		if !ok {
			err := f(w.node.Content, w.pos)
			if err != nil {
				return err
			}
			continue
		}
		var left, right []int
		for _, p := range w.pos {
			if x.At(rows[p], s.Feature) <= s.Threshold {
				left = append(left, p)
			} else {
				right = append(right, p)
			}
		}
		stack = append(stack, work{w.node.Right, right}, work{w.node.Left, left})
	}
	return nil
}

func gather(x mat.Matrix, rows, pos []int) *mat.Dense {
	_, c := x.Dims()
	g := mat.NewDense(len(pos), c, nil)
	for i, p := range pos {
		for j := 0; j < c; j++ {
			g.Set(i, j, x.At(rows[p], j))
		}
	}
	return g
}
