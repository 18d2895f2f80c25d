package forest

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/pbanos/forestry"
	"github.com/pbanos/forestry/dataset"
	"github.com/pbanos/forestry/feature"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// blobs returns n samples of 2 features around 3 separate centers,
// labelled after their center.
func blobs(n int, seed int64) (*mat.Dense, []int) {
	centers := [][]float64{{0, 0}, {5, 5}, {0, 10}}
	r := rand.New(rand.NewSource(seed))
	x := mat.NewDense(n, 2, nil)
	labels := make([]int, n)
	for i := 0; i < n; i++ {
		c := r.Intn(len(centers))
		labels[i] = c
		x.Set(i, 0, centers[c][0]+r.NormFloat64())
		x.Set(i, 1, centers[c][1]+r.NormFloat64())
	}
	return x, labels
}

func TestForestLearnsBlobs(t *testing.T) {
	ctx := context.Background()
	x, labels := blobs(300, 1)
	d := dataset.New(feature.SampleMajor(x), labels)
	config := forestry.Config{TryFeatures: 1, MaxDepth: forestry.Unbounded, DistrDepth: 2, Bootstrap: true, DelegationThreshold: 100, Seed: 3}
	f := New(config, 8)
	err := f.Fit(ctx, d)
	if err != nil {
		t.Fatalf("fitting forest: %v", err)
	}
	if len(f.Trees()) != 8 {
		t.Fatalf("expected 8 trees, got %d", len(f.Trees()))
	}
	test, testLabels := blobs(200, 2)
	predictions, err := f.Predict(ctx, test)
	if err != nil {
		t.Fatalf("predicting: %v", err)
	}
	hits := 0
	for i, p := range predictions {
		if p == testLabels[i] {
			hits++
		}
	}
	if accuracy := float64(hits) / 200; accuracy < 0.9 {
		t.Errorf("expected an accuracy of at least 0.9, got %v", accuracy)
	}
	proba, err := f.PredictProba(ctx, test)
	if err != nil {
		t.Fatalf("predicting probabilities: %v", err)
	}
	for i := 0; i < 200; i++ {
		row := proba.RawRowView(i)
		if s := floats.Sum(row); math.Abs(s-1) > 1e-9 {
			t.Errorf("probabilities of row %d sum %v", i, s)
		}
		if floats.MaxIdx(row) != predictions[i] {
			t.Errorf("row %d predicted as %d with probabilities %v", i, predictions[i], row)
		}
	}
}

func TestForestIsReproducible(t *testing.T) {
	ctx := context.Background()
	x, labels := blobs(150, 4)
	d := dataset.New(feature.SampleMajor(x), labels)
	config := forestry.Config{TryFeatures: 2, MaxDepth: 5, DistrDepth: 1, Bootstrap: true, Seed: 10}
	test, _ := blobs(100, 5)
	var probas []*mat.Dense
	for i := 0; i < 2; i++ {
		f := New(config, 4)
		err := f.Fit(ctx, d)
		if err != nil {
			t.Fatalf("fitting forest: %v", err)
		}
		p, err := f.PredictProba(ctx, test)
		if err != nil {
			t.Fatalf("predicting probabilities: %v", err)
		}
		probas = append(probas, p)
	}
	if !mat.Equal(probas[0], probas[1]) {
		t.Errorf("expected identical forests for the same seed")
	}
}

func TestForestErrors(t *testing.T) {
	ctx := context.Background()
	x, labels := blobs(30, 6)
	d := dataset.New(feature.SampleMajor(x), labels)
	f := New(forestry.Config{TryFeatures: 1, MaxDepth: 3}, 0)
	err := f.Fit(ctx, d)
	if !errors.Is(err, forestry.ErrInvalidConfiguration) {
		t.Errorf("expected an invalid configuration error without trees, got %v", err)
	}
	_, err = f.Predict(ctx, x)
	if err != forestry.ErrNotFitted {
		t.Errorf("expected %v, got %v", forestry.ErrNotFitted, err)
	}
	_, err = f.Models()
	if err != forestry.ErrNotFitted {
		t.Errorf("expected %v, got %v", forestry.ErrNotFitted, err)
	}
}

func TestForestLoadModels(t *testing.T) {
	ctx := context.Background()
	x, labels := blobs(100, 7)
	d := dataset.New(feature.SampleMajor(x), labels)
	config := forestry.Config{TryFeatures: 1, MaxDepth: 4, DistrDepth: 1, Bootstrap: true, Seed: 2}
	f := New(config, 3)
	err := f.Fit(ctx, d)
	if err != nil {
		t.Fatalf("fitting forest: %v", err)
	}
	models, err := f.Models()
	if err != nil {
		t.Fatalf("getting models: %v", err)
	}
	loaded := New(forestry.Config{}, 0)
	err = loaded.Load(models)
	if err != nil {
		t.Fatalf("loading models: %v", err)
	}
	expected, _ := f.Predict(ctx, x)
	predictions, err := loaded.Predict(ctx, x)
	if err != nil {
		t.Fatalf("predicting with loaded forest: %v", err)
	}
	for i := range expected {
		if predictions[i] != expected[i] {
			t.Errorf("row %d predicted as %d, expected %d", i, predictions[i], expected[i])
		}
	}
}
