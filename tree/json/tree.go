package json

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/pbanos/forestry/tree"
)

/*
ModelEncodeDecoder is an interface for objects
that allow encoding fitted models into slices of
bytes and decoding them back to models.
*/
type ModelEncodeDecoder interface {
	Encode(*tree.Model) ([]byte, error)
	Decode([]byte) (*tree.Model, error)
}

type modelEncodeDecoder struct{}

/*
model is a fitted model as a JSON object with the following fields:
  - "distrDepth": the distribution depth of the model
  - "features": the number of features of the samples it predicts
  - "classes": the number of classes it predicts
  - "top": the flattened top of the tree
  - "info": the contents the nodes in top refer to
  - "subtrees": an array with every flattened subtree, null for
    subtrees that were never grown
*/
type model struct {
	DistrDepth int      `json:"distrDepth"`
	NFeatures  int      `json:"features"`
	NClasses   int      `json:"classes"`
	Top        []node   `json:"top"`
	NodeInfo   []node   `json:"info"`
	Subtrees   [][]node `json:"subtrees"`
}

// NewModelEncodeDecoder returns a ModelEncodeDecoder
func NewModelEncodeDecoder() ModelEncodeDecoder {
	return modelEncodeDecoder{}
}

func (modelEncodeDecoder) Encode(m *tree.Model) ([]byte, error) {
	jm, err := encodeModel(m)
	if err != nil {
		return nil, err
	}
	return json.Marshal(jm)
}

func (modelEncodeDecoder) Decode(data []byte) (*tree.Model, error) {
	jm := &model{}
	err := json.Unmarshal(data, jm)
	if err != nil {
		return nil, err
	}
	return decodeModel(jm)
}

func encodeModel(m *tree.Model) (*model, error) {
	if m == nil {
		return nil, fmt.Errorf("encoding model: no model")
	}
	top, err := flatten(m.Top)
	if err != nil {
		return nil, fmt.Errorf("encoding top of the tree: %v", err)
	}
	jm := &model{
		DistrDepth: m.DistrDepth,
		NFeatures:  m.NFeatures,
		NClasses:   m.NClasses,
		Top:        top,
		NodeInfo:   make([]node, len(m.NodeInfo)),
		Subtrees:   make([][]node, len(m.Subtrees)),
	}
	for i, c := range m.NodeInfo {
		jm.NodeInfo[i], err = encodeContent(c)
		if err != nil {
			return nil, fmt.Errorf("encoding node info %d: %v", i, err)
		}
	}
	for i, st := range m.Subtrees {
		jm.Subtrees[i], err = flatten(st)
		if err != nil {
			return nil, fmt.Errorf("encoding subtree %d: %v", i, err)
		}
	}
	return jm, nil
}

func decodeModel(jm *model) (*tree.Model, error) {
	top, err := unflatten(jm.Top)
	if err != nil {
		return nil, fmt.Errorf("decoding top of the tree: %v", err)
	}
	if top == nil {
		return nil, fmt.Errorf("decoding model: no top of the tree")
	}
	m := &tree.Model{
		Top:        top,
		DistrDepth: jm.DistrDepth,
		NFeatures:  jm.NFeatures,
		NClasses:   jm.NClasses,
		NodeInfo:   make([]tree.Content, len(jm.NodeInfo)),
		Subtrees:   make([]*tree.Node, len(jm.Subtrees)),
	}
	for i, jn := range jm.NodeInfo {
		m.NodeInfo[i], err = decodeContent(jn)
		if err != nil {
			return nil, fmt.Errorf("decoding node info %d: %v", i, err)
		}
	}
	for i, nodes := range jm.Subtrees {
		m.Subtrees[i], err = unflatten(nodes)
		if err != nil {
			return nil, fmt.Errorf("decoding subtree %d: %v", i, err)
		}
	}
	return m, nil
}

// modelsFile is the JSON object models are written onto files as
type modelsFile struct {
	Classes []string `json:"classes,omitempty"`
	Trees   []*model `json:"trees"`
}

/*
WriteJSONModels takes a slice of fitted models, the names of the
classes they predict (nil if unknown) and an io.Writer and serializes
the models as a JSON object onto the io.Writer. The object has a
"trees" field with an array of models and a "classes" field with the
class names. An error is returned if a model cannot be serialized or
written onto the io.Writer.
*/
func WriteJSONModels(models []*tree.Model, classes []string, w io.Writer) error {
	jms := make([]*model, len(models))
	for i, m := range models {
		jm, err := encodeModel(m)
		if err != nil {
			return fmt.Errorf("tree %d: %v", i, err)
		}
		jms[i] = jm
	}
	return json.NewEncoder(w).Encode(&modelsFile{Classes: classes, Trees: jms})
}

/*
ReadJSONModels takes an io.Reader and unmarshals the models and class
names serialized onto it by WriteJSONModels.
*/
func ReadJSONModels(r io.Reader) ([]*tree.Model, []string, error) {
	mf := &modelsFile{}
	err := json.NewDecoder(r).Decode(mf)
	if err != nil {
		return nil, nil, err
	}
	if len(mf.Trees) == 0 {
		return nil, nil, fmt.Errorf("no trees available")
	}
	models := make([]*tree.Model, len(mf.Trees))
	for i, jm := range mf.Trees {
		if jm == nil {
			return nil, nil, fmt.Errorf("tree %d: no model", i)
		}
		models[i], err = decodeModel(jm)
		if err != nil {
			return nil, nil, fmt.Errorf("tree %d: %v", i, err)
		}
	}
	return models, mf.Classes, nil
}

/*
ReadJSONModelsFromFile takes a filepath string, opens the file it
points to and uses ReadJSONModels on it.
*/
func ReadJSONModelsFromFile(filepath string) ([]*tree.Model, []string, error) {
	f, err := os.Open(filepath)
	if err != nil {
		return nil, nil, fmt.Errorf("opening model file %s: %v", filepath, err)
	}
	defer f.Close()
	models, classes, err := ReadJSONModels(f)
	if err != nil {
		return nil, nil, fmt.Errorf("reading model file %s: %v", filepath, err)
	}
	return models, classes, nil
}
