package forestry

import (
	"context"
	"fmt"

	"github.com/pbanos/forestry/queue"
	"github.com/pbanos/forestry/tree"
	"gonum.org/v1/gonum/mat"
)

type partialPrediction struct {
	rows  []int
	codes []int
	proba *mat.Dense
}

/*
Predict takes a context and a matrix with a row per sample and returns
the predicted class code of each sample.
*/
func (c *DecisionTreeClassifier) Predict(ctx context.Context, x mat.Matrix) ([]int, error) {
	n, err := c.checkInput(x)
	if err != nil {
		return nil, err
	}
	result := make([]int, n)
	err = c.predictSubtrees(ctx, x, func(st *tree.Node, rows []int) (partialPrediction, error) {
		codes, err := st.Predict(x, rows)
		return partialPrediction{rows: rows, codes: codes}, err
	}, func(p partialPrediction) {
		for i, r := range p.rows {
			result[r] = p.codes[i]
		}
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

/*
PredictProba takes a context and a matrix with a row per sample and
returns a matrix with a row per sample and a column per class holding
the probability of the sample belonging to the class.
*/
func (c *DecisionTreeClassifier) PredictProba(ctx context.Context, x mat.Matrix) (*mat.Dense, error) {
	n, err := c.checkInput(x)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return &mat.Dense{}, nil
	}
	nClasses := c.model.NClasses
	result := mat.NewDense(n, nClasses, nil)
	err = c.predictSubtrees(ctx, x, func(st *tree.Node, rows []int) (partialPrediction, error) {
		proba, err := st.PredictProba(x, rows, nClasses)
		return partialPrediction{rows: rows, proba: proba}, err
	}, func(p partialPrediction) {
		for i, r := range p.rows {
			result.SetRow(r, p.proba.RawRowView(i))
		}
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (c *DecisionTreeClassifier) checkInput(x mat.Matrix) (int, error) {
	if c.model == nil {
		return 0, ErrNotFitted
	}
	n, f := x.Dims()
	if f != c.model.NFeatures {
		return 0, fmt.Errorf("%w: got %d features, fitted with %d", ErrShapeMismatch, f, c.model.NFeatures)
	}
	return n, nil
}

// predictSubtrees runs predict for every subtree with the rows that
// reach it in a unit of its own and passes the results to merge. Rows
// reach exactly one subtree, so results can be merged in any order.
func (c *DecisionTreeClassifier) predictSubtrees(ctx context.Context, x mat.Matrix, predict func(*tree.Node, []int) (partialPrediction, error), merge func(partialPrediction)) error {
	n, _ := x.Dims()
	if n == 0 {
		return nil
	}
	q := queue.New(ctx, c.config.Workers)
	defer q.Stop()
	m := c.model
	futures := make([]*queue.Future[partialPrediction], 0, len(m.Subtrees))
	for i, st := range m.Subtrees {
		futures = append(futures, queue.Spawn(q, func(ctx context.Context) (partialPrediction, error) {
			rows, err := subtreeRows(m, x, i)
			if err != nil {
				return partialPrediction{}, err
			}
			if len(rows) == 0 {
				return partialPrediction{}, nil
			}
			p, err := predict(st, rows)
			if err != nil {
				return partialPrediction{}, fmt.Errorf("predicting with subtree %d: %v", i, err)
			}
			return p, nil
		}))
	}
	for _, f := range futures {
		p, err := f.Join(ctx)
		if err != nil {
			return err
		}
		if len(p.rows) > 0 {
			merge(p)
		}
	}
	return nil
}

/*
subtreeRows takes a fitted model, a matrix of samples and the index of
a subtree and returns the rows of the matrix that reach the subtree,
in increasing order. The path to the subtree is followed from the root,
keeping at every InnerSplit the rows sent in the path's direction. At a
Leaf of the top of the tree every row stays on the left.
*/
func subtreeRows(m *tree.Model, x mat.Matrix, subtree int) ([]int, error) {
	n, _ := x.Dims()
	rows := make([]int, n)
	for i := range rows {
		rows[i] = i
	}
	node := m.Top
	for d, right := range m.Path(subtree) {
		if node == nil {
			return nil, fmt.Errorf("routing rows to subtree %d: no node at depth %d", subtree, d)
		}
		ref, ok := node.Content.(tree.InfoRef)
		if !ok || int(ref) < 0 || int(ref) >= len(m.NodeInfo) {
			return nil, fmt.Errorf("routing rows to subtree %d: invalid node info reference %v at depth %d", subtree, node.Content, d)
		}
		switch info := m.NodeInfo[ref].(type) {
		case tree.InnerSplit:
			kept := rows[:0]
			for _, r := range rows {
				if (x.At(r, info.Feature) <= info.Threshold) != right {
					kept = append(kept, r)
				}
			}
			rows = kept
		case tree.Leaf:
			if right {
				rows = rows[:0]
			}
		default:
			return nil, fmt.Errorf("routing rows to subtree %d: unexpected node info %v at depth %d", subtree, info, d)
		}
		if right {
			node = node.Right
		} else {
			node = node.Left
		}
	}
	return rows, nil
}
