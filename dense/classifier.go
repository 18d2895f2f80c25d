/*
Package dense implements a single-machine CART classifier over
dense in-memory matrices.

It is meant to finish small subtrees in one call: every node is
developed in-process from the rows it receives, with no dispatch
overhead. Rows may carry weights, so a bootstrapped sample can be
fitted on its unique rows with their repetition counts.
*/
package dense

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Unbounded is the MaxDepth value that lets trees grow until
// their leaves are pure or cannot be split.
const Unbounded = -1

const minImpurity = 1e-7

// ErrEmptyTrainingSet is returned when fitting on no rows.
var ErrEmptyTrainingSet = errors.New("cannot fit a tree on an empty training set")

// Params holds the settings for growing a Classifier.
type Params struct {
	MaxDepth    int        // Unbounded or a positive depth
	MaxFeatures int        // features to consider per split, all if not positive
	Rand        *rand.Rand // feature sampling source, seeded from the clock if nil
}

// Node is a node of a dense tree. Leaves have no children and
// keep the weighted class counts of the rows that reached them,
// indexed like Classifier.ClassCodes.
type Node struct {
	Feature   int       `json:"f"`
	Threshold float64   `json:"t"`
	Counts    []float64 `json:"c,omitempty"`
	Left      *Node     `json:"l,omitempty"`
	Right     *Node     `json:"r,omitempty"`
}

// Classifier is a fitted dense decision tree.
type Classifier struct {
	Root       *Node `json:"root"`
	ClassCodes []int `json:"classes"`
	NFeatures  int   `json:"features"`
}

type stackNode struct {
	node  *Node
	inx   []int
	depth int
}

/*
Fit takes a matrix with a row per sample, their class codes, optional
per-row weights (nil means every row weighs 1) and growing parameters
and returns the fitted classifier or an error.
*/
func Fit(x mat.Matrix, y []int, w []float64, p Params) (*Classifier, error) {
	n, nFeatures := x.Dims()
	if len(y) == 0 {
		return nil, ErrEmptyTrainingSet
	}
	if n != len(y) {
		return nil, fmt.Errorf("fitting dense tree: %d rows but %d labels", n, len(y))
	}
	if w != nil && len(w) != n {
		return nil, fmt.Errorf("fitting dense tree: %d rows but %d weights", n, len(w))
	}
	if w == nil {
		w = make([]float64, n)
		for i := range w {
			w[i] = 1.0
		}
	}
	r := p.Rand
	if r == nil {
		r = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	maxFeatures := p.MaxFeatures
	if maxFeatures <= 0 || maxFeatures > nFeatures {
		maxFeatures = nFeatures
	}

	c := &Classifier{NFeatures: nFeatures, ClassCodes: uniqueSorted(y)}
	classOf := make(map[int]int, len(c.ClassCodes))
	for i, code := range c.ClassCodes {
		classOf[code] = i
	}
	yc := make([]int, n)
	for i, code := range y {
		yc[i] = classOf[code]
	}

	features := make([]int, nFeatures)
	for i := range features {
		features[i] = i
	}
	xBuf := make([]float64, n)
	order := make([]int, n)

	inx := make([]int, n)
	for i := range inx {
		inx[i] = i
	}
	c.Root = &Node{}
	stack := []stackNode{{c.Root, inx, 0}}
	for len(stack) > 0 {
		sn := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		nd := sn.node

		counts := make([]float64, len(c.ClassCodes))
		for _, i := range sn.inx {
			counts[yc[i]] += w[i]
		}
		impurity := gini(counts)
		if len(sn.inx) < 2 || (p.MaxDepth >= 0 && sn.depth >= p.MaxDepth) || impurity <= minImpurity {
			nd.Counts = counts
			continue
		}

		var (
			bestScore = impurity
			bestValue float64
			bestVar   = -1
		)
		// sample features with Fisher-Yates, visiting at least one
		// non-constant feature when there is one
		j := nFeatures - 1
		visited := 0
		constant := 0
		for j >= 0 && (visited < maxFeatures || visited <= constant) {
			k := r.Intn(j + 1)
			features[k], features[j] = features[j], features[k]
			f := features[j]
			j--
			visited++

			xt := xBuf[:len(sn.inx)]
			ord := order[:len(sn.inx)]
			for i, si := range sn.inx {
				xt[i] = x.At(si, f)
				ord[i] = si
			}
			sort.Sort(&byValue{xt, ord})
			if xt[len(xt)-1] <= xt[0] {
				constant++
				continue
			}
			score, value, ok := bestSplit(xt, ord, yc, w, counts)
			if ok && score < bestScore {
				bestScore = score
				bestValue = value
				bestVar = f
			}
		}
		if bestVar < 0 {
			nd.Counts = counts
			continue
		}
		var left, right []int
		for _, si := range sn.inx {
			if x.At(si, bestVar) <= bestValue {
				left = append(left, si)
			} else {
				right = append(right, si)
			}
		}
		nd.Feature = bestVar
		nd.Threshold = bestValue
		nd.Left = &Node{}
		nd.Right = &Node{}
		stack = append(stack, stackNode{nd.Right, right, sn.depth + 1}, stackNode{nd.Left, left, sn.depth + 1})
	}
	return c, nil
}

// bestSplit scans the rows sorted by value and returns the lowest
// weighted gini impurity of the two sides over every boundary
// between distinct values, with its threshold.
func bestSplit(xt []float64, ord []int, y []int, w []float64, counts []float64) (float64, float64, bool) {
	left := make([]float64, len(counts))
	right := make([]float64, len(counts))
	copy(right, counts)
	total := floats.Sum(counts)
	var wl float64
	best := 0.0
	var value float64
	found := false
	for i := 0; i < len(xt)-1; i++ {
		si := ord[i]
		left[y[si]] += w[si]
		right[y[si]] -= w[si]
		wl += w[si]
		if xt[i+1] <= xt[i] {
			continue
		}
		wr := total - wl
		score := (wl*gini(left) + wr*gini(right)) / total
		if !found || score < best {
			best = score
			value = midpoint(xt[i], xt[i+1])
			found = true
		}
	}
	return best, value, found
}

/*
Predict takes a matrix with a row per sample and returns the most
probable class code for each.
*/
func (c *Classifier) Predict(x mat.Matrix) []int {
	n, _ := x.Dims()
	p := make([]int, n)
	for i := range p {
		counts := c.leafFor(x, i).Counts
		p[i] = c.ClassCodes[floats.MaxIdx(counts)]
	}
	return p
}

/*
PredictProba takes a matrix with a row per sample and returns a matrix
with the probability of each class in ClassCodes for each sample.
*/
func (c *Classifier) PredictProba(x mat.Matrix) *mat.Dense {
	n, _ := x.Dims()
	if n == 0 {
		return &mat.Dense{}
	}
	p := mat.NewDense(n, len(c.ClassCodes), nil)
	for i := 0; i < n; i++ {
		counts := c.leafFor(x, i).Counts
		row := make([]float64, len(counts))
		copy(row, counts)
		total := floats.Sum(row)
		if total > 0 {
			floats.Scale(1/total, row)
		}
		p.SetRow(i, row)
	}
	return p
}

// Classes returns the class codes the classifier was fitted on.
func (c *Classifier) Classes() []int {
	return c.ClassCodes
}

func (c *Classifier) String() string {
	var nodes, depth int
	type item struct {
		n *Node
		d int
	}
	stack := []item{{c.Root, 0}}
	for len(stack) > 0 {
		it := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if it.n == nil {
			continue
		}
		nodes++
		if it.d > depth {
			depth = it.d
		}
		stack = append(stack, item{it.n.Left, it.d + 1}, item{it.n.Right, it.d + 1})
	}
	return fmt.Sprintf("{dense tree: %d nodes, depth %d, classes %v}", nodes, depth, c.ClassCodes)
}

func (c *Classifier) leafFor(x mat.Matrix, i int) *Node {
	n := c.Root
	for n.Left != nil {
		if x.At(i, n.Feature) <= n.Threshold {
			n = n.Left
		} else {
			n = n.Right
		}
	}
	return n
}

func gini(counts []float64) float64 {
	total := floats.Sum(counts)
	if total <= 0 {
		return 0.0
	}
	g := 1.0
	for _, c := range counts {
		p := c / total
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

func uniqueSorted(y []int) []int {
	seen := make(map[int]bool)
	var u []int
	for _, v := range y {
		if !seen[v] {
			seen[v] = true
			u = append(u, v)
		}
	}
	sort.Ints(u)
	return u
}
