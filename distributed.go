package forestry

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/pbanos/forestry/dataset"
	"github.com/pbanos/forestry/feature"
	"github.com/pbanos/forestry/queue"
	"github.com/pbanos/forestry/tree"
)

const (
	nodeSeedMix    uint64 = 0x9e3779b97f4a7c15
	subtreeSeedMix uint64 = 0xc2b2ae3d27d4eb4f
)

/*
DecisionTreeClassifier grows a decision tree from a dataset and uses it
to predict the classes of new samples.

A classifier must not be fitted while it is being used for predictions.
Once fitted, concurrent predictions are safe.
*/
type DecisionTreeClassifier struct {
	config Config
	model  *tree.Model
	seed   int64
}

// NewDecisionTreeClassifier takes a configuration and returns an
// unfitted classifier.
func NewDecisionTreeClassifier(config Config) *DecisionTreeClassifier {
	return &DecisionTreeClassifier{config: config}
}

// Config returns the configuration of the classifier
func (c *DecisionTreeClassifier) Config() Config {
	return c.config
}

// Seed returns the seed the classifier was last fitted with, 0 if
// it has not been fitted.
func (c *DecisionTreeClassifier) Seed() int64 {
	return c.seed
}

type frontierItem struct {
	node   *tree.Node
	sample []int
	labels []int
	heap   uint64
}

/*
Fit takes a context and a dataset and grows the classifier's tree from
it, replacing any previous one.

The nodes above the distribution depth are developed level by level:
every node of a level is split in its own unit and the splits are
joined in order to lay out the next level, left child before right
child. The nodes at the distribution depth then have their subtrees
built in a unit each. A failing unit aborts the fit, leaving the
classifier as it was.
*/
func (c *DecisionTreeClassifier) Fit(ctx context.Context, d *dataset.Dataset) error {
	err := d.Validate()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfiguration, err)
	}
	err = c.config.Validate()
	if err != nil {
		return err
	}
	seed := c.config.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
		logf(c.config.Logger, "Fitting with seed %d", seed)
	}
	sample, labels := SelectSample(d.NSamples(), d.Labels, c.config.Bootstrap, rand.New(rand.NewSource(seed)))

	q := queue.New(ctx, c.config.Workers)
	defer q.Stop()
	m := &tree.Model{
		Top:        &tree.Node{},
		DistrDepth: c.config.DistrDepth,
		NFeatures:  d.NFeatures(),
		NClasses:   d.NClasses,
	}
	level := []frontierItem{{m.Top, sample, labels, 1}}
	for depth := 0; depth < c.config.DistrDepth; depth++ {
		level, err = c.splitLevel(ctx, q, d.Store, d.NClasses, seed, level, m)
		if err != nil {
			return fmt.Errorf("splitting nodes at depth %d: %v", depth, err)
		}
		logf(c.config.Logger, "Split %d nodes at depth %d", len(level)/2, depth)
	}
	m.Subtrees, err = c.buildSubtrees(ctx, q, d.Store, d.NClasses, seed, level)
	if err != nil {
		return fmt.Errorf("building subtrees at depth %d: %v", c.config.DistrDepth, err)
	}
	logf(c.config.Logger, "Built %d subtrees", len(m.Subtrees))
	c.model = m
	c.seed = seed
	return nil
}

func (c *DecisionTreeClassifier) splitLevel(ctx context.Context, q *queue.Queue, store feature.Store, nClasses int, seed int64, level []frontierItem, m *tree.Model) ([]frontierItem, error) {
	futures := make([]*queue.Future[SplitOutcome], len(level))
	for i, item := range level {
		rnd := rand.New(rand.NewSource(mixSeed(seed, item.heap, nodeSeedMix)))
		futures[i] = queue.Spawn(q, func(ctx context.Context) (SplitOutcome, error) {
			err := ctx.Err()
			if err != nil {
				return SplitOutcome{}, err
			}
			return SplitNode(item.sample, item.labels, nClasses, c.config.TryFeatures, store, rnd), nil
		})
		level[i].sample, level[i].labels = nil, nil
	}
	next := make([]frontierItem, 0, 2*len(level))
	for i, f := range futures {
		outcome, err := f.Join(ctx)
		if err != nil {
			return nil, err
		}
		n := level[i].node
		n.Content = tree.InfoRef(len(m.NodeInfo))
		m.NodeInfo = append(m.NodeInfo, outcome.Content)
		n.Left = &tree.Node{}
		n.Right = &tree.Node{}
		h := level[i].heap
		next = append(next,
			frontierItem{n.Left, outcome.Left.Sample, outcome.Left.Labels, 2 * h},
			frontierItem{n.Right, outcome.Right.Sample, outcome.Right.Labels, 2*h + 1},
		)
	}
	return next, nil
}

func (c *DecisionTreeClassifier) buildSubtrees(ctx context.Context, q *queue.Queue, store feature.Store, nClasses int, seed int64, level []frontierItem) ([]*tree.Node, error) {
	params := SubtreeParams{
		NClasses:            nClasses,
		TryFeatures:         c.config.TryFeatures,
		MaxDepth:            Unbounded,
		DelegationThreshold: c.config.DelegationThreshold,
	}
	if c.config.MaxDepth != Unbounded {
		params.MaxDepth = c.config.MaxDepth - c.config.DistrDepth
	}
	futures := make([]*queue.Future[*tree.Node], len(level))
	for i, item := range level {
		item.node.Content = tree.SubtreeRef(i)
		rnd := rand.New(rand.NewSource(mixSeed(seed, uint64(i+1), subtreeSeedMix)))
		futures[i] = queue.Spawn(q, func(ctx context.Context) (*tree.Node, error) {
			return BuildSubtree(ctx, item.sample, item.labels, store, params, rnd)
		})
		level[i].sample, level[i].labels = nil, nil
	}
	subtrees := make([]*tree.Node, len(futures))
	for i, f := range futures {
		st, err := f.Join(ctx)
		if err != nil {
			return nil, err
		}
		subtrees[i] = st
	}
	return subtrees, nil
}

func mixSeed(seed int64, n, mix uint64) int64 {
	return int64(uint64(seed) ^ (n * mix))
}

// Model returns the fitted model of the classifier, or ErrNotFitted.
// The model must not be modified.
func (c *DecisionTreeClassifier) Model() (*tree.Model, error) {
	if c.model == nil {
		return nil, ErrNotFitted
	}
	return c.model, nil
}

/*
Load takes a previously fitted model and makes the classifier use it
for predictions. It returns an error if the model is inconsistent.
*/
func (c *DecisionTreeClassifier) Load(m *tree.Model) error {
	if m == nil || m.Top == nil {
		return fmt.Errorf("loading model: empty model")
	}
	if m.NFeatures <= 0 || m.NClasses <= 0 {
		return fmt.Errorf("loading model: model has %d features and %d classes", m.NFeatures, m.NClasses)
	}
	if m.DistrDepth < 0 || m.DistrDepth > MaxDistrDepth || len(m.Subtrees) != 1<<uint(m.DistrDepth) {
		return fmt.Errorf("loading model: %d subtrees for distribution depth %d", len(m.Subtrees), m.DistrDepth)
	}
	c.model = m
	c.config.DistrDepth = m.DistrDepth
	return nil
}

/*
Assemble returns the fitted tree as a single tree, with every node of
the top of the tree resolved and every subtree in place.
*/
func (c *DecisionTreeClassifier) Assemble() (*tree.Node, error) {
	if c.model == nil {
		return nil, ErrNotFitted
	}
	return c.model.Assemble()
}
