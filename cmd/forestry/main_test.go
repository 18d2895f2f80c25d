package main

import (
	"context"
	"math/rand"
	"testing"

	"github.com/pbanos/forestry"
	"github.com/pbanos/forestry/dataset"
	"github.com/pbanos/forestry/dataset/yaml"
	"github.com/pbanos/forestry/feature"
	"github.com/pbanos/forestry/forest"
	"github.com/pbanos/forestry/tree"
	"gonum.org/v1/gonum/mat"
)

func TestCountHitsMatchesClassesByName(t *testing.T) {
	d := dataset.New(feature.SampleMajor(mat.NewDense(3, 1, []float64{1, 2, 3})), []int{0, 1, 0})
	d.Classes = []string{"yes", "no"}
	predictions := []int{1, 0, 0}
	if hits := countHits(d, predictions, []string{"no", "yes"}); hits != 2 {
		t.Errorf("expected 2 hits matching by name, got %d", hits)
	}
	if hits := countHits(d, predictions, nil); hits != 1 {
		t.Errorf("expected 1 hit matching by code, got %d", hits)
	}
}

func TestFlagsOverrideDescriptor(t *testing.T) {
	cmd := fitCmd(&rootCmdConfig{})
	config := &fitCmdConfig{rootCmdConfig: &rootCmdConfig{}}
	descriptor, err := yaml.ReadDescriptor([]byte("kind: csv\npath: data.csv\nlabel: class\ntrees: 5\ntree:\n  max_depth: 8\n  distr_depth: 2\n"))
	if err != nil {
		t.Fatalf("reading descriptor: %v", err)
	}
	config.descriptor = descriptor
	config.distrDepth = 3
	err = cmd.ParseFlags([]string{"--distr-depth", "3"})
	if err != nil {
		t.Fatalf("parsing flags: %v", err)
	}
	d := dataset.New(feature.SampleMajor(mat.NewDense(1, 9, nil)), []int{0})
	tc, trees := config.treeConfig(cmd, d)
	if trees != 5 {
		t.Errorf("expected 5 trees from the descriptor, got %d", trees)
	}
	if tc.MaxDepth != 8 || tc.DistrDepth != 3 {
		t.Errorf("expected max_depth 8 from the descriptor and distr_depth 3 from the flags, got %+v", tc)
	}
	if tc.TryFeatures != 3 {
		t.Errorf("expected try_features to default to the square root of 9, got %d", tc.TryFeatures)
	}
	if tc.DelegationThreshold != forestry.DefaultDelegationThreshold {
		t.Errorf("expected the default delegation threshold, got %d", tc.DelegationThreshold)
	}
}

func TestFittedModelsSurviveAStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	rcc := &rootCmdConfig{ctx: ctx}
	r := rand.New(rand.NewSource(11))
	x := mat.NewDense(120, 3, nil)
	labels := make([]int, 120)
	for i := range labels {
		for j := 0; j < 3; j++ {
			x.Set(i, j, r.Float64())
		}
		if x.At(i, 0)+x.At(i, 2) > 1 {
			labels[i] = 1
		}
	}
	d := dataset.New(feature.SampleMajor(x), labels)
	models, err := fit(rcc, forestry.Config{TryFeatures: 2, MaxDepth: 5, DistrDepth: 1, Seed: 3}, 3, d)
	if err != nil {
		t.Fatalf("fitting: %v", err)
	}
	store := tree.NewMemoryModelStore()
	defer store.Close(ctx)
	ids, err := storeModels(ctx, store, models)
	if err != nil {
		t.Fatalf("storing models: %v", err)
	}
	if len(ids) != 3 || ids[0] == ids[1] || ids[1] == ids[2] || ids[0] == ids[2] {
		t.Fatalf("expected 3 distinct ids, got %v", ids)
	}
	retrieved, err := retrieveModels(ctx, store, ids)
	if err != nil {
		t.Fatalf("retrieving models: %v", err)
	}
	predict := func(models []*tree.Model) []int {
		f := forest.New(forestry.Config{}, len(models))
		err := f.Load(models)
		if err != nil {
			t.Fatalf("loading models: %v", err)
		}
		p, err := f.Predict(ctx, x)
		if err != nil {
			t.Fatalf("predicting: %v", err)
		}
		return p
	}
	expected, got := predict(models), predict(retrieved)
	for i := range expected {
		if expected[i] != got[i] {
			t.Errorf("row %d: expected class %d after the round trip, got %d", i, expected[i], got[i])
		}
	}
	err = store.Delete(ctx, ids[1])
	if err != nil {
		t.Fatalf("deleting model %s: %v", ids[1], err)
	}
	if _, err := retrieveModels(ctx, store, ids); err == nil {
		t.Errorf("expected an error retrieving the deleted model %s", ids[1])
	}
}
