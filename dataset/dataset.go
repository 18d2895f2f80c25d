/*
Package dataset defines the labelled training data trees are grown from:
a feature.Store with the numeric feature values of every sample and a
label vector of small integer class codes aligned with it.

Loaders for the different backends live in subpackages and build their
datasets with a Builder.
*/
package dataset

import (
	"fmt"
	"sort"

	"github.com/pbanos/forestry/feature"
	"gonum.org/v1/gonum/mat"
)

/*
Dataset is a collection of labelled samples.

Store holds the feature values of the samples, Labels their class
codes in [0, NClasses). Classes optionally holds the name of each
class code.
*/
type Dataset struct {
	Store    feature.Store
	Labels   []int
	NClasses int
	Classes  []string
}

/*
New takes a feature store and a label vector and returns a dataset.
The number of classes is taken to be the highest label plus one.
*/
func New(store feature.Store, labels []int) *Dataset {
	nClasses := 0
	for _, l := range labels {
		if l+1 > nClasses {
			nClasses = l + 1
		}
	}
	return &Dataset{Store: store, Labels: labels, NClasses: nClasses}
}

// NSamples returns the number of samples in the dataset
func (d *Dataset) NSamples() int {
	return len(d.Labels)
}

// NFeatures returns the number of features of each sample
func (d *Dataset) NFeatures() int {
	if d.Store == nil {
		return 0
	}
	return d.Store.NFeatures()
}

/*
Validate returns an error describing the first problem found with the
dataset: a missing store, labels not aligned with the store's samples,
no samples at all or class codes out of range.
*/
func (d *Dataset) Validate() error {
	if d == nil {
		return fmt.Errorf("no dataset")
	}
	if d.Store == nil {
		return fmt.Errorf("dataset has no feature store")
	}
	if d.Store.NFeatures() == 0 {
		return fmt.Errorf("dataset has no features")
	}
	if d.Store.NSamples() != len(d.Labels) {
		return fmt.Errorf("dataset has %d samples but %d labels", d.Store.NSamples(), len(d.Labels))
	}
	if len(d.Labels) == 0 {
		return fmt.Errorf("dataset has no samples")
	}
	if d.NClasses <= 0 {
		return fmt.Errorf("dataset has no classes")
	}
	if d.Classes != nil && len(d.Classes) != d.NClasses {
		return fmt.Errorf("dataset has %d classes but %d class names", d.NClasses, len(d.Classes))
	}
	for i, l := range d.Labels {
		if l < 0 || l >= d.NClasses {
			return fmt.Errorf("label %d of sample %d out of range [0, %d)", l, i, d.NClasses)
		}
	}
	return nil
}

// ClassName returns the name of a class code, or the code itself
// formatted as a string if the dataset has no class names.
func (d *Dataset) ClassName(code int) string {
	if code >= 0 && code < len(d.Classes) {
		return d.Classes[code]
	}
	return fmt.Sprintf("%d", code)
}

/*
Builder accumulates samples as rows of feature values with a raw class
name each, and builds a sample-major dataset from them. Class codes are
assigned in lexicographic order of the class names.
*/
type Builder struct {
	nFeatures int
	values    []float64
	labels    []string
}

// NewBuilder returns a Builder for samples with the given number of
// features.
func NewBuilder(nFeatures int) *Builder {
	return &Builder{nFeatures: nFeatures}
}

// Add takes the feature values and class name of a sample and adds it
// to the builder, or returns an error if the number of values is wrong.
func (b *Builder) Add(values []float64, class string) error {
	if len(values) != b.nFeatures {
		return fmt.Errorf("expected %d feature values, got %d", b.nFeatures, len(values))
	}
	b.values = append(b.values, values...)
	b.labels = append(b.labels, class)
	return nil
}

// Count returns the number of samples added so far
func (b *Builder) Count() int {
	return len(b.labels)
}

// Build returns the dataset with every sample added so far, or an
// error if there are none.
func (b *Builder) Build() (*Dataset, error) {
	if len(b.labels) == 0 {
		return nil, fmt.Errorf("cannot build a dataset without samples")
	}
	if b.nFeatures == 0 {
		return nil, fmt.Errorf("cannot build a dataset without features")
	}
	codes, classes := EncodeLabels(b.labels)
	m := mat.NewDense(len(b.labels), b.nFeatures, b.values)
	return &Dataset{
		Store:    feature.SampleMajor(m),
		Labels:   codes,
		NClasses: len(classes),
		Classes:  classes,
	}, nil
}

/*
EncodeLabels takes a slice of class names and returns their class codes
and the names of each code, sorted.
*/
func EncodeLabels(raw []string) ([]int, []string) {
	seen := make(map[string]bool)
	var classes []string
	for _, r := range raw {
		if !seen[r] {
			seen[r] = true
			classes = append(classes, r)
		}
	}
	sort.Strings(classes)
	codeOf := make(map[string]int, len(classes))
	for i, c := range classes {
		codeOf[c] = i
	}
	codes := make([]int, len(raw))
	for i, r := range raw {
		codes[i] = codeOf[r]
	}
	return codes, classes
}
