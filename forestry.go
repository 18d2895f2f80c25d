/*
Package forestry grows decision tree classifiers in two tiers.

The top of a tree, down to a configurable distribution depth, is
developed one node split at a time, with every split dispatched as an
independent unit of work on a bounded worker queue. At the distribution
depth each node's samples are handed whole to a unit that builds the
complete subtree under it, finishing small subsets with a dense
single-machine solver.

Predictions route every input row down the same decision path: the
rows reaching each subtree are computed from its position under the
distribution depth, the subtree predicts them in its own unit and the
disjoint partial results are scattered into a single output.
*/
package forestry

import (
	"errors"
	"fmt"
	"math"
)

// Unbounded is the MaxDepth value for trees that grow until
// their leaves cannot be split further.
const Unbounded = -1

// DefaultDelegationThreshold is the largest number of feature values
// (features times samples) of a subset handed to the dense solver.
const DefaultDelegationThreshold = 100000000

// MaxDistrDepth is the deepest supported distribution depth. A tree
// has 2^DistrDepth subtree slots.
const MaxDistrDepth = 24

var (
	// ErrInvalidConfiguration is returned by Fit before any work is
	// dispatched when the parameters or the dataset are unusable.
	ErrInvalidConfiguration = errors.New("invalid configuration")
	// ErrNotFitted is returned when predicting with a classifier
	// that has not been successfully fitted.
	ErrNotFitted = errors.New("classifier is not fitted")
	// ErrShapeMismatch is returned when predicting for samples with
	// a number of features other than the one the classifier was
	// fitted with.
	ErrShapeMismatch = errors.New("sample shape does not match fitted model")
)

/*
Config holds the parameters for growing a tree.

TryFeatures is the number of features drawn on every split attempt.
MaxDepth is the depth of the tree, or Unbounded. DistrDepth is the
depth at which nodes stop being split one at a time and whole subtrees
are built instead; it cannot exceed MaxDepth. Bootstrap makes the tree
grow from a sample drawn with replacement from the dataset.

DelegationThreshold is the largest number of feature values of a subset
finished by the dense solver, 0 disabling it. Workers bounds the units
run concurrently, a non-positive value meaning one per CPU. A non-zero
Seed makes fits reproducible; with 0 a seed is drawn from the clock and
logged.
*/
type Config struct {
	TryFeatures         int    `yaml:"try_features"`
	MaxDepth            int    `yaml:"max_depth"`
	DistrDepth          int    `yaml:"distr_depth"`
	Bootstrap           bool   `yaml:"bootstrap"`
	DelegationThreshold int64  `yaml:"delegation_threshold"`
	Workers             int    `yaml:"workers"`
	Seed                int64  `yaml:"seed"`
	Logger              Logger `yaml:"-"`
}

// DefaultConfig returns the configuration for an unbounded tree
// grown without a distributed phase.
func DefaultConfig() Config {
	return Config{
		MaxDepth:            Unbounded,
		DelegationThreshold: DefaultDelegationThreshold,
	}
}

/*
Validate returns an error wrapping ErrInvalidConfiguration if the
configuration cannot be used to grow a tree. A TryFeatures above the
number of features of a dataset is allowed: every round then draws all
the features left untried.
*/
func (c Config) Validate() error {
	if c.TryFeatures <= 0 {
		return fmt.Errorf("%w: try_features must be positive, got %d", ErrInvalidConfiguration, c.TryFeatures)
	}
	if c.MaxDepth != Unbounded && c.MaxDepth <= 0 {
		return fmt.Errorf("%w: max_depth must be positive or unbounded, got %d", ErrInvalidConfiguration, c.MaxDepth)
	}
	if c.DistrDepth < 0 || (c.MaxDepth != Unbounded && c.DistrDepth > c.MaxDepth) {
		return fmt.Errorf("%w: distr_depth must be between 0 and max_depth, got %d", ErrInvalidConfiguration, c.DistrDepth)
	}
	if c.DistrDepth > MaxDistrDepth {
		return fmt.Errorf("%w: distr_depth cannot exceed %d, got %d", ErrInvalidConfiguration, MaxDistrDepth, c.DistrDepth)
	}
	if c.DelegationThreshold < 0 {
		return fmt.Errorf("%w: delegation_threshold cannot be negative, got %d", ErrInvalidConfiguration, c.DelegationThreshold)
	}
	return nil
}

// SqrtFeatures returns the usual TryFeatures for classification:
// the square root of the number of features, rounded up.
func SqrtFeatures(nFeatures int) int {
	n := int(math.Ceil(math.Sqrt(float64(nFeatures))))
	if n < 1 {
		return 1
	}
	return n
}

// Logger is implemented by types that can log formatted messages.
type Logger interface {
	Logf(format string, a ...interface{})
}

func logf(l Logger, format string, a ...interface{}) {
	if l != nil {
		l.Logf(format, a...)
	}
}
