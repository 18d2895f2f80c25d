/*
Package forest grows random forests: ensembles of decision trees
fitted on bootstrap samples of the same dataset, whose predictions are
the average of the class probabilities of every tree.
*/
package forest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pbanos/forestry"
	"github.com/pbanos/forestry/dataset"
	"github.com/pbanos/forestry/queue"
	"github.com/pbanos/forestry/tree"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// ErrNoEstimators is returned when fitting a forest with
// no trees.
var ErrNoEstimators = errors.New("a forest needs at least one tree")

/*
Forest is a random forest classifier. Every tree is grown with the
forest's configuration, with its own seed derived from the forest's.
*/
type Forest struct {
	config      forestry.Config
	nEstimators int
	trees       []*forestry.DecisionTreeClassifier
	nClasses    int
	seed        int64
}

// New takes a configuration for the trees and the number of trees
// and returns an unfitted forest.
func New(config forestry.Config, nEstimators int) *Forest {
	return &Forest{config: config, nEstimators: nEstimators}
}

// Seed returns the seed the forest was last fitted with
func (f *Forest) Seed() int64 {
	return f.seed
}

/*
Fit takes a context and a dataset and grows every tree of the forest on
it, as a unit of work each. Trees are only replaced if every one of them
is grown successfully.
*/
func (f *Forest) Fit(ctx context.Context, d *dataset.Dataset) error {
	if f.nEstimators <= 0 {
		return fmt.Errorf("%w: %v", forestry.ErrInvalidConfiguration, ErrNoEstimators)
	}
	err := d.Validate()
	if err != nil {
		return fmt.Errorf("%w: %v", forestry.ErrInvalidConfiguration, err)
	}
	err = f.config.Validate()
	if err != nil {
		return err
	}
	seed := f.config.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
		if f.config.Logger != nil {
			f.config.Logger.Logf("Fitting forest with seed %d", seed)
		}
	}
	q := queue.New(ctx, f.config.Workers)
	defer q.Stop()
	futures := make([]*queue.Future[*forestry.DecisionTreeClassifier], f.nEstimators)
	for i := range futures {
		config := f.config
		config.Seed = treeSeed(seed, i)
		futures[i] = queue.Spawn(q, func(ctx context.Context) (*forestry.DecisionTreeClassifier, error) {
			c := forestry.NewDecisionTreeClassifier(config)
			err := c.Fit(ctx, d)
			if err != nil {
				return nil, fmt.Errorf("fitting tree %d: %v", i, err)
			}
			return c, nil
		})
	}
	trees := make([]*forestry.DecisionTreeClassifier, len(futures))
	for i, fut := range futures {
		trees[i], err = fut.Join(ctx)
		if err != nil {
			return err
		}
	}
	if f.config.Logger != nil {
		f.config.Logger.Logf("Fitted %d trees", len(trees))
	}
	f.trees = trees
	f.nClasses = d.NClasses
	f.seed = seed
	return nil
}

// treeSeed returns the seed of the i-th tree of a forest, which is
// never 0.
func treeSeed(seed int64, i int) int64 {
	s := seed + int64(i)*7919
	if s == 0 {
		s = 1
	}
	return s
}

/*
PredictProba takes a context and a matrix with a row per sample and
returns the average of the class probabilities predicted by every tree.
*/
func (f *Forest) PredictProba(ctx context.Context, x mat.Matrix) (*mat.Dense, error) {
	if len(f.trees) == 0 {
		return nil, forestry.ErrNotFitted
	}
	var sum *mat.Dense
	for i, t := range f.trees {
		p, err := t.PredictProba(ctx, x)
		if err != nil {
			return nil, fmt.Errorf("predicting with tree %d: %v", i, err)
		}
		if sum == nil {
			sum = p
			continue
		}
		if p.IsEmpty() {
			continue
		}
		sum.Add(sum, p)
	}
	if !sum.IsEmpty() {
		sum.Scale(1/float64(len(f.trees)), sum)
	}
	return sum, nil
}

/*
Predict takes a context and a matrix with a row per sample and returns
the class with the highest average probability for every sample.
*/
func (f *Forest) Predict(ctx context.Context, x mat.Matrix) ([]int, error) {
	p, err := f.PredictProba(ctx, x)
	if err != nil {
		return nil, err
	}
	if p.IsEmpty() {
		return []int{}, nil
	}
	n, _ := p.Dims()
	result := make([]int, n)
	for i := range result {
		result[i] = floats.MaxIdx(p.RawRowView(i))
	}
	return result, nil
}

// Trees returns the fitted trees of the forest
func (f *Forest) Trees() []*forestry.DecisionTreeClassifier {
	return f.trees
}

/*
Models returns the models of the fitted trees of the forest, or
forestry.ErrNotFitted.
*/
func (f *Forest) Models() ([]*tree.Model, error) {
	if len(f.trees) == 0 {
		return nil, forestry.ErrNotFitted
	}
	models := make([]*tree.Model, len(f.trees))
	for i, t := range f.trees {
		m, err := t.Model()
		if err != nil {
			return nil, err
		}
		models[i] = m
	}
	return models, nil
}

/*
Load takes the models of previously fitted trees and makes the forest
use them for predictions. Every model must agree on the number of
features and classes.
*/
func (f *Forest) Load(models []*tree.Model) error {
	if len(models) == 0 {
		return ErrNoEstimators
	}
	trees := make([]*forestry.DecisionTreeClassifier, len(models))
	for i, m := range models {
		if m == nil {
			return fmt.Errorf("loading tree %d: no model", i)
		}
		if m.NFeatures != models[0].NFeatures || m.NClasses != models[0].NClasses {
			return fmt.Errorf("loading tree %d: %d features and %d classes, expected %d and %d", i, m.NFeatures, m.NClasses, models[0].NFeatures, models[0].NClasses)
		}
		trees[i] = forestry.NewDecisionTreeClassifier(f.config)
		err := trees[i].Load(m)
		if err != nil {
			return fmt.Errorf("loading tree %d: %v", i, err)
		}
	}
	f.trees = trees
	f.nEstimators = len(trees)
	f.nClasses = models[0].NClasses
	return nil
}
