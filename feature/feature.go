/*
Package feature provides read-only, random-access views over the numeric
feature values of a dataset.

Trees are grown one feature column at a time, so the main access pattern is
"the values of feature f for this list of samples". Datasets however are
usually stored either sample-major (one row per sample) or feature-major (one
row per feature). A Store hides that layout: builders only ever ask it for
columns or rows and never care how the values are laid out underneath.
*/
package feature

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

/*
Store represents the feature values of a dataset of samples.

Its NSamples and NFeatures methods return the dimensions of the dataset.

Its Column method takes a feature index, a slice of sample indices and a
destination slice and returns the values of that feature for each of the
given samples, in the same order. The destination is reused when it has
enough capacity.

Its Rows method returns a dense matrix with one row per given sample index
and one column per feature.

Implementations must be safe for concurrent use by multiple goroutines
as long as no one writes to the underlying data.
*/
type Store interface {
	NSamples() int
	NFeatures() int
	Column(f int, sample []int, dst []float64) []float64
	Rows(sample []int) *mat.Dense
}

type featureMajorStore struct {
	m *mat.Dense
}

type sampleMajorStore struct {
	m *mat.Dense
}

/*
FeatureMajor takes a matrix with one row per feature and one column per
sample and returns a Store over it. Column reads are contiguous.
*/
func FeatureMajor(m *mat.Dense) Store {
	return &featureMajorStore{m}
}

/*
SampleMajor takes a matrix with one row per sample and one column per
feature and returns a Store over it. Row reads are contiguous.
*/
func SampleMajor(m *mat.Dense) Store {
	return &sampleMajorStore{m}
}

func (s *featureMajorStore) NSamples() int {
	_, c := s.m.Dims()
	return c
}

func (s *featureMajorStore) NFeatures() int {
	r, _ := s.m.Dims()
	return r
}

func (s *featureMajorStore) Column(f int, sample []int, dst []float64) []float64 {
	dst = grow(dst, len(sample))
	row := s.m.RawRowView(f)
	for i, si := range sample {
		dst[i] = row[si]
	}
	return dst
}

func (s *featureMajorStore) Rows(sample []int) *mat.Dense {
	nf := s.NFeatures()
	if len(sample) == 0 {
		return &mat.Dense{}
	}
	rows := mat.NewDense(len(sample), nf, nil)
	for f := 0; f < nf; f++ {
		row := s.m.RawRowView(f)
		for i, si := range sample {
			rows.Set(i, f, row[si])
		}
	}
	return rows
}

func (s *featureMajorStore) String() string {
	return fmt.Sprintf("{FeatureMajor %d features x %d samples}", s.NFeatures(), s.NSamples())
}

func (s *sampleMajorStore) NSamples() int {
	r, _ := s.m.Dims()
	return r
}

func (s *sampleMajorStore) NFeatures() int {
	_, c := s.m.Dims()
	return c
}

func (s *sampleMajorStore) Column(f int, sample []int, dst []float64) []float64 {
	dst = grow(dst, len(sample))
	for i, si := range sample {
		dst[i] = s.m.At(si, f)
	}
	return dst
}

func (s *sampleMajorStore) Rows(sample []int) *mat.Dense {
	nf := s.NFeatures()
	if len(sample) == 0 {
		return &mat.Dense{}
	}
	rows := mat.NewDense(len(sample), nf, nil)
	for i, si := range sample {
		rows.SetRow(i, s.m.RawRowView(si))
	}
	return rows
}

func (s *sampleMajorStore) String() string {
	return fmt.Sprintf("{SampleMajor %d samples x %d features}", s.NSamples(), s.NFeatures())
}

func grow(dst []float64, n int) []float64 {
	if cap(dst) < n {
		return make([]float64, n)
	}
	return dst[:n]
}
