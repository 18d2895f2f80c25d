package npy

import (
	"bytes"
	"testing"

	"github.com/sbinet/npyio"
	"gonum.org/v1/gonum/mat"
)

func TestReadMatrixWrittenByWriteMatrix(t *testing.T) {
	m := mat.NewDense(2, 3, []float64{1, 2, 3, 4, 5, 6})
	buf := &bytes.Buffer{}
	if err := WriteMatrix(buf, m); err != nil {
		t.Fatalf("writing matrix: %v", err)
	}
	read, err := ReadMatrix(buf)
	if err != nil {
		t.Fatalf("reading matrix: %v", err)
	}
	if !mat.Equal(m, read) {
		t.Errorf("expected %v, got %v", mat.Formatted(m), mat.Formatted(read))
	}
}

func TestReadLabelsAcceptsNarrowIntegers(t *testing.T) {
	buf := &bytes.Buffer{}
	if err := npyio.Write(buf, []int8{0, 2, 1, 1}); err != nil {
		t.Fatalf("writing labels: %v", err)
	}
	labels, err := ReadLabels(buf)
	if err != nil {
		t.Fatalf("reading labels: %v", err)
	}
	expected := []int{0, 2, 1, 1}
	if len(labels) != len(expected) {
		t.Fatalf("expected %v, got %v", expected, labels)
	}
	for i := range expected {
		if labels[i] != expected[i] {
			t.Errorf("expected %v, got %v", expected, labels)
			break
		}
	}
}

func TestReadLabelsRejectsMatrices(t *testing.T) {
	buf := &bytes.Buffer{}
	if err := WriteMatrix(buf, mat.NewDense(2, 2, nil)); err != nil {
		t.Fatalf("writing matrix: %v", err)
	}
	if _, err := ReadLabels(buf); err == nil {
		t.Error("expected an error reading a 2x2 matrix as labels")
	}
}

func TestWriteCodes(t *testing.T) {
	buf := &bytes.Buffer{}
	if err := WriteCodes(buf, []int{3, 0, 1}); err != nil {
		t.Fatalf("writing codes: %v", err)
	}
	labels, err := ReadLabels(buf)
	if err != nil {
		t.Fatalf("reading codes back: %v", err)
	}
	if len(labels) != 3 || labels[0] != 3 || labels[2] != 1 {
		t.Errorf("expected [3 0 1], got %v", labels)
	}
}
