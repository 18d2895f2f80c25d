/*
Package npy loads feature stores and label vectors from NumPy .npy files.

A dataset is usually saved twice, as a samples file (one row per sample)
and as a features file (its transpose). Either is enough to grow a tree;
the features file gives contiguous column reads.
*/
package npy

import (
	"fmt"
	"io"
	"os"

	"github.com/pbanos/forestry/feature"
	"github.com/sbinet/npyio"
	"gonum.org/v1/gonum/mat"
)

/*
ReadMatrix takes a reader over an .npy stream holding a 2-dimensional
float64 array and returns it as a dense matrix or an error.
*/
func ReadMatrix(r io.Reader) (*mat.Dense, error) {
	nr, err := npyio.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("reading npy header: %v", err)
	}
	if len(nr.Header.Descr.Shape) != 2 {
		return nil, fmt.Errorf("expected a 2-dimensional array, got shape %v", nr.Header.Descr.Shape)
	}
	m := &mat.Dense{}
	err = nr.Read(m)
	if err != nil {
		return nil, fmt.Errorf("reading npy matrix: %v", err)
	}
	return m, nil
}

/*
ReadMatrixFromFile opens the file at the given path and uses ReadMatrix
on it.
*/
func ReadMatrixFromFile(path string) (*mat.Dense, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening npy file %s: %v", path, err)
	}
	defer f.Close()
	m, err := ReadMatrix(f)
	if err != nil {
		return nil, fmt.Errorf("parsing npy file %s: %v", path, err)
	}
	return m, nil
}

/*
ReadSamplesStore takes the path to a samples file (one row per sample)
and returns a feature.Store over it.
*/
func ReadSamplesStore(path string) (feature.Store, error) {
	m, err := ReadMatrixFromFile(path)
	if err != nil {
		return nil, err
	}
	return feature.SampleMajor(m), nil
}

/*
ReadFeaturesStore takes the path to a features file (one row per feature)
and returns a feature.Store over it.
*/
func ReadFeaturesStore(path string) (feature.Store, error) {
	m, err := ReadMatrixFromFile(path)
	if err != nil {
		return nil, err
	}
	return feature.FeatureMajor(m), nil
}

/*
ReadLabels takes a reader over an .npy stream holding a 1-dimensional
integer array of class codes and returns the codes or an error.
Signed and unsigned integers of any width are accepted.
*/
func ReadLabels(r io.Reader) ([]int, error) {
	nr, err := npyio.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("reading npy header: %v", err)
	}
	shape := nr.Header.Descr.Shape
	if len(shape) != 1 && !(len(shape) == 2 && shape[1] == 1) {
		return nil, fmt.Errorf("expected a 1-dimensional array, got shape %v", shape)
	}
	dtype := nr.Header.Descr.Type
	if len(dtype) > 0 && (dtype[0] == '<' || dtype[0] == '>' || dtype[0] == '|' || dtype[0] == '=') {
		dtype = dtype[1:]
	}
	var labels []int
	switch dtype {
	case "i1":
		var v []int8
		err = nr.Read(&v)
		labels = make([]int, len(v))
		for i, c := range v {
			labels[i] = int(c)
		}
	case "u1":
		var v []uint8
		err = nr.Read(&v)
		labels = make([]int, len(v))
		for i, c := range v {
			labels[i] = int(c)
		}
	case "i2":
		var v []int16
		err = nr.Read(&v)
		labels = make([]int, len(v))
		for i, c := range v {
			labels[i] = int(c)
		}
	case "i4":
		var v []int32
		err = nr.Read(&v)
		labels = make([]int, len(v))
		for i, c := range v {
			labels[i] = int(c)
		}
	case "i8":
		var v []int64
		err = nr.Read(&v)
		labels = make([]int, len(v))
		for i, c := range v {
			labels[i] = int(c)
		}
	default:
		return nil, fmt.Errorf("unsupported label dtype %q", nr.Header.Descr.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("reading npy labels: %v", err)
	}
	return labels, nil
}

/*
ReadLabelsFromFile opens the file at the given path and uses ReadLabels
on it.
*/
func ReadLabelsFromFile(path string) ([]int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening npy file %s: %v", path, err)
	}
	defer f.Close()
	labels, err := ReadLabels(f)
	if err != nil {
		return nil, fmt.Errorf("parsing npy file %s: %v", path, err)
	}
	return labels, nil
}

/*
WriteCodes takes a writer and a slice of class codes and writes them as
a 1-dimensional int64 .npy array.
*/
func WriteCodes(w io.Writer, codes []int) error {
	v := make([]int64, len(codes))
	for i, c := range codes {
		v[i] = int64(c)
	}
	return npyio.Write(w, v)
}

/*
WriteMatrix takes a writer and a dense matrix and writes it as a
2-dimensional float64 .npy array.
*/
func WriteMatrix(w io.Writer, m *mat.Dense) error {
	return npyio.Write(w, m)
}
