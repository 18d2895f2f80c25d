package yaml

import (
	"context"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/pbanos/forestry"
	"github.com/pbanos/forestry/feature/npy"
	"gonum.org/v1/gonum/mat"
)

func TestReadDescriptorDefaults(t *testing.T) {
	d, err := ReadDescriptor([]byte(`
kind: postgresql
url: postgres://localhost/forestry
table: samples
features: [a, b]
label: class
tree:
  try_features: 1
  distr_depth: 2
`))
	if err != nil {
		t.Fatalf("reading descriptor: %v", err)
	}
	if d.Tree.TryFeatures != 1 || d.Tree.DistrDepth != 2 {
		t.Errorf("expected tree parameters from the document, got %+v", d.Tree)
	}
	if d.Tree.MaxDepth != forestry.Unbounded || d.Tree.DelegationThreshold != forestry.DefaultDelegationThreshold {
		t.Errorf("expected default max_depth and delegation_threshold, got %+v", d.Tree)
	}
	if len(d.Features) != 2 || d.Label != "class" {
		t.Errorf("unexpected features %v and label %q", d.Features, d.Label)
	}
}

func TestReadDescriptorRejectsIncompleteSources(t *testing.T) {
	for name, doc := range map[string]string{
		"unknown kind":     "kind: parquet",
		"npy labels":       "kind: npy\nsamples: x.npy",
		"npy layout":       "kind: npy\nsamples: x.npy\nlabels: y.npy\nlayout: diagonal",
		"csv label":        "kind: csv\npath: data.csv",
		"sqlite3 path":     "kind: sqlite3\ntable: t\nfeatures: [a]\nlabel: c",
		"mongodb database": "kind: mongodb\nurl: mongodb://localhost\ntable: t\nfeatures: [a]\nlabel: c",
		"sql features":     "kind: postgresql\nurl: postgres://localhost\ntable: t\nlabel: c",
		"sample size":      "kind: csv\npath: data.csv\nlabel: c\nsample_size: -1",
		"bad yaml":         "kind: [csv",
	} {
		_, err := ReadDescriptor([]byte(doc))
		if err == nil {
			t.Errorf("%s: expected an error", name)
		}
	}
}

func writeFile(t *testing.T, path string, write func(f *os.File) error) {
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("creating %s: %v", path, err)
	}
	defer f.Close()
	if err := write(f); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
}

func TestLoadNPY(t *testing.T) {
	dir := t.TempDir()
	x := mat.NewDense(2, 3, []float64{1, 2, 3, 4, 5, 6})
	writeFile(t, filepath.Join(dir, "x.npy"), func(f *os.File) error { return npy.WriteMatrix(f, x) })
	writeFile(t, filepath.Join(dir, "y.npy"), func(f *os.File) error { return npy.WriteCodes(f, []int{1, 0, 1}) })
	descriptor := filepath.Join(dir, "dataset.yml")
	err := ioutil.WriteFile(descriptor, []byte("kind: npy\nsamples: x.npy\nlabels: y.npy\nlayout: features\n"), 0644)
	if err != nil {
		t.Fatalf("writing descriptor: %v", err)
	}
	d, err := ReadDescriptorFromFile(descriptor)
	if err != nil {
		t.Fatalf("reading descriptor: %v", err)
	}
	ds, err := d.Load(context.Background())
	if err != nil {
		t.Fatalf("loading dataset: %v", err)
	}
	if ds.NSamples() != 3 || ds.NFeatures() != 2 || ds.NClasses != 2 {
		t.Errorf("expected 3 samples, 2 features and 2 classes, got %d, %d and %d", ds.NSamples(), ds.NFeatures(), ds.NClasses)
	}
	col := ds.Store.Column(1, []int{0, 2}, nil)
	if col[0] != 4 || col[1] != 6 {
		t.Errorf("expected feature 1 of samples 0 and 2 to be [4 6], got %v", col)
	}
}

func TestLoadCSV(t *testing.T) {
	dir := t.TempDir()
	err := ioutil.WriteFile(filepath.Join(dir, "data.csv"), []byte("a,class,b\n1,yes,2\n3,no,4\n5,yes,6\n"), 0644)
	if err != nil {
		t.Fatalf("writing csv: %v", err)
	}
	descriptor := filepath.Join(dir, "dataset.yml")
	err = ioutil.WriteFile(descriptor, []byte("kind: csv\npath: data.csv\nlabel: class\ntrees: 10\n"), 0644)
	if err != nil {
		t.Fatalf("writing descriptor: %v", err)
	}
	d, err := ReadDescriptorFromFile(descriptor)
	if err != nil {
		t.Fatalf("reading descriptor: %v", err)
	}
	if d.Trees != 10 {
		t.Errorf("expected 10 trees, got %d", d.Trees)
	}
	ds, err := d.Load(context.Background())
	if err != nil {
		t.Fatalf("loading dataset: %v", err)
	}
	if ds.NSamples() != 3 || ds.NFeatures() != 2 || ds.NClasses != 2 {
		t.Errorf("expected 3 samples, 2 features and 2 classes, got %d, %d and %d", ds.NSamples(), ds.NFeatures(), ds.NClasses)
	}
}
