package json

import (
	"bytes"
	"context"
	"math/rand"
	"testing"

	"github.com/pbanos/forestry"
	"github.com/pbanos/forestry/dataset"
	"github.com/pbanos/forestry/feature"
	"github.com/pbanos/forestry/tree"
	"gonum.org/v1/gonum/mat"
)

func randomDataset(n, nFeatures int, seed int64) (*dataset.Dataset, *mat.Dense) {
	r := rand.New(rand.NewSource(seed))
	x := mat.NewDense(n, nFeatures, nil)
	labels := make([]int, n)
	for i := 0; i < n; i++ {
		for j := 0; j < nFeatures; j++ {
			x.Set(i, j, r.Float64())
		}
		if x.At(i, 0)+x.At(i, 1) > 1 {
			labels[i] = 1
		}
		if x.At(i, 2) > 0.8 {
			labels[i] = 2
		}
	}
	return dataset.New(feature.SampleMajor(x), labels), x
}

func TestModelRoundTripKeepsPredictions(t *testing.T) {
	ctx := context.Background()
	d, x := randomDataset(300, 3, 1)
	for _, config := range []forestry.Config{
		{TryFeatures: 2, MaxDepth: 6, DistrDepth: 2, Seed: 1},
		{TryFeatures: 2, MaxDepth: forestry.Unbounded, DistrDepth: 3, Seed: 2, DelegationThreshold: 3 * 50},
	} {
		c := forestry.NewDecisionTreeClassifier(config)
		err := c.Fit(ctx, d)
		if err != nil {
			t.Fatalf("fitting: %v", err)
		}
		m, _ := c.Model()
		med := NewModelEncodeDecoder()
		data, err := med.Encode(m)
		if err != nil {
			t.Fatalf("encoding model: %v", err)
		}
		decoded, err := med.Decode(data)
		if err != nil {
			t.Fatalf("decoding model: %v", err)
		}
		loaded := forestry.NewDecisionTreeClassifier(forestry.Config{})
		err = loaded.Load(decoded)
		if err != nil {
			t.Fatalf("loading decoded model: %v", err)
		}
		expected, _ := c.PredictProba(ctx, x)
		proba, err := loaded.PredictProba(ctx, x)
		if err != nil {
			t.Fatalf("predicting with decoded model: %v", err)
		}
		if !mat.Equal(expected, proba) {
			t.Errorf("%+v: decoded model predicts different probabilities", config)
		}
	}
}

func TestNodeRoundTrip(t *testing.T) {
	root := &tree.Node{
		Content: tree.InnerSplit{Feature: 1, Threshold: 0.5},
		Left:    &tree.Node{Content: tree.Leaf{Histogram: []int{3, 0}, Size: 3, Mode: 0}},
		Right: &tree.Node{
			Content: tree.InnerSplit{Feature: 0, Threshold: -2},
			Left:    &tree.Node{Content: tree.Leaf{Histogram: []int{0, 1}, Size: 1, Mode: 1}},
			Right:   &tree.Node{Content: tree.Leaf{Histogram: []int{1, 1}, Size: 2, Mode: 0}},
		},
	}
	ned := NewNodeEncodeDecoder()
	data, err := ned.Encode(root)
	if err != nil {
		t.Fatalf("encoding tree: %v", err)
	}
	decoded, err := ned.Decode(data)
	if err != nil {
		t.Fatalf("decoding tree: %v", err)
	}
	if decoded.String() != root.String() {
		t.Errorf("expected\n%s\ngot\n%s", root, decoded)
	}
}

func TestDecodeRejectsMalformedTrees(t *testing.T) {
	ned := NewNodeEncodeDecoder()
	for name, data := range map[string]string{
		"unknown kind":   `[{"k":"oak"}]`,
		"single child":   `[{"k":"split","l":1},{"k":"leaf"}]`,
		"backward child": `[{"k":"split","l":1,"r":2},{"k":"leaf","l":0},{"k":"split","l":1,"r":1}]`,
		"orphan node":    `[{"k":"leaf"},{"k":"leaf"}]`,
		"missing model":  `[{"k":"dense"}]`,
	} {
		_, err := ned.Decode([]byte(data))
		if err == nil {
			t.Errorf("%s: expected an error", name)
		}
	}
}

func TestModelsFileRoundTrip(t *testing.T) {
	ctx := context.Background()
	d, x := randomDataset(100, 3, 3)
	var models []*tree.Model
	for seed := int64(1); seed <= 2; seed++ {
		c := forestry.NewDecisionTreeClassifier(forestry.Config{TryFeatures: 1, MaxDepth: 4, DistrDepth: 1, Seed: seed, Bootstrap: true})
		if err := c.Fit(ctx, d); err != nil {
			t.Fatalf("fitting: %v", err)
		}
		m, _ := c.Model()
		models = append(models, m)
	}
	buf := &bytes.Buffer{}
	err := WriteJSONModels(models, []string{"a", "b", "c"}, buf)
	if err != nil {
		t.Fatalf("writing models: %v", err)
	}
	read, classes, err := ReadJSONModels(buf)
	if err != nil {
		t.Fatalf("reading models: %v", err)
	}
	if len(classes) != 3 || classes[2] != "c" {
		t.Errorf("expected classes [a b c], got %v", classes)
	}
	if len(read) != 2 {
		t.Fatalf("expected 2 models, got %d", len(read))
	}
	for i := range models {
		expected, _ := models[i].Assemble()
		got, err := read[i].Assemble()
		if err != nil {
			t.Fatalf("assembling model %d: %v", i, err)
		}
		all := make([]int, 100)
		for j := range all {
			all[j] = j
		}
		ep, _ := expected.Predict(x, all)
		gp, _ := got.Predict(x, all)
		for j := range ep {
			if ep[j] != gp[j] {
				t.Errorf("model %d predicts %d for row %d, expected %d", i, gp[j], j, ep[j])
			}
		}
	}
	_, _, err = ReadJSONModels(bytes.NewBufferString(`{"trees":[]}`))
	if err == nil {
		t.Errorf("expected an error reading no trees")
	}
}
