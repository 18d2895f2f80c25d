package csv

import (
	"bytes"
	"strings"
	"testing"

	"gonum.org/v1/gonum/mat"
)

const irisSample = `sepal_length,sepal_width,species
5.1,3.5,setosa
7.0,3.2,versicolor
6.3,3.3,virginica
4.9,3.0,setosa
`

func TestReadDataset(t *testing.T) {
	d, names, err := ReadDataset(strings.NewReader(irisSample), "species")
	if err != nil {
		t.Fatalf("reading dataset: %v", err)
	}
	if len(names) != 2 || names[0] != "sepal_length" || names[1] != "sepal_width" {
		t.Errorf("unexpected feature names %v", names)
	}
	if d.NSamples() != 4 || d.NFeatures() != 2 || d.NClasses != 3 {
		t.Errorf("unexpected dataset dimensions %d samples, %d features, %d classes", d.NSamples(), d.NFeatures(), d.NClasses)
	}
	if d.Labels[1] != 1 || d.ClassName(d.Labels[2]) != "virginica" {
		t.Errorf("unexpected labels %v", d.Labels)
	}
	if v := d.Store.Column(0, []int{3}, nil)[0]; v != 4.9 {
		t.Errorf("expected 4.9, got %v", v)
	}
}

func TestReadDatasetRequiresLabelColumn(t *testing.T) {
	_, _, err := ReadDataset(strings.NewReader(irisSample), "class")
	if err == nil {
		t.Error("expected an error for a missing label column")
	}
}

func TestReadDatasetRejectsNonNumericValues(t *testing.T) {
	_, _, err := ReadDataset(strings.NewReader("a,y\nfoo,1\n"), "y")
	if err == nil {
		t.Error("expected an error parsing a non-numeric feature value")
	}
}

func TestReadMatrix(t *testing.T) {
	m, err := ReadMatrix(strings.NewReader("a,b\n1,2\n3,4\n5,6\n"))
	if err != nil {
		t.Fatalf("reading matrix: %v", err)
	}
	r, c := m.Dims()
	if r != 3 || c != 2 || m.At(2, 1) != 6 {
		t.Errorf("unexpected matrix %dx%d", r, c)
	}
}

func TestWritePredictions(t *testing.T) {
	buf := &bytes.Buffer{}
	err := WritePredictions(buf, []int{1, 0, 7}, []string{"no", "yes"})
	if err != nil {
		t.Fatalf("writing predictions: %v", err)
	}
	expected := "prediction\nyes\nno\n7\n"
	if buf.String() != expected {
		t.Errorf("expected %q, got %q", expected, buf.String())
	}
}

func TestWriteProbabilities(t *testing.T) {
	buf := &bytes.Buffer{}
	p := mat.NewDense(2, 3, []float64{0.25, 0.75, 0, 1, 0, 0})
	err := WriteProbabilities(buf, p, []string{"no", "yes"})
	if err != nil {
		t.Fatalf("writing probabilities: %v", err)
	}
	expected := "no,yes,2\n0.25,0.75,0\n1,0,0\n"
	if buf.String() != expected {
		t.Errorf("expected %q, got %q", expected, buf.String())
	}
}
