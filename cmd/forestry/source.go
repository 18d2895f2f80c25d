package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/pbanos/forestry/dataset"
	"github.com/pbanos/forestry/dataset/csv"
	"github.com/pbanos/forestry/dataset/yaml"
	"github.com/pbanos/forestry/feature/npy"
	"github.com/pbanos/forestry/tree"
	"github.com/pbanos/forestry/tree/json"
	"github.com/pbanos/forestry/tree/redisstore"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/mat"
	"gopkg.in/redis.v5"
)

// datasetSource holds the flags telling where to read a labelled
// dataset from: a descriptor or a CSV file.
type datasetSource struct {
	descriptorInput string
	dataInput       string
	classFeature    string
	descriptor      *yaml.Descriptor
}

func (ds *datasetSource) addFlags(cmd *cobra.Command, purpose string) {
	cmd.PersistentFlags().StringVarP(&(ds.descriptorInput), "dataset", "d", "", fmt.Sprintf("path to a YML file describing the dataset to %s and, optionally, tree parameters", purpose))
	cmd.PersistentFlags().StringVarP(&(ds.dataInput), "input", "i", "", fmt.Sprintf("path to an input CSV file with the dataset to %s when no dataset descriptor is given (defaults to STDIN)", purpose))
	cmd.PersistentFlags().StringVarP(&(ds.classFeature), "class-feature", "c", "", "name of the CSV column with the class of every sample (required without a dataset descriptor)")
}

func (ds *datasetSource) Validate() error {
	if ds.descriptorInput != "" && ds.dataInput != "" {
		return fmt.Errorf("cannot set both dataset and input flags at the same time")
	}
	if ds.descriptorInput == "" && ds.classFeature == "" {
		return fmt.Errorf("required class-feature flag was not set")
	}
	return nil
}

// readDescriptor parses the dataset descriptor, if any
func (ds *datasetSource) readDescriptor() error {
	if ds.descriptorInput == "" {
		return nil
	}
	d, err := yaml.ReadDescriptorFromFile(ds.descriptorInput)
	if err != nil {
		return err
	}
	ds.descriptor = d
	return nil
}

func (ds *datasetSource) load(rcc *rootCmdConfig) (*dataset.Dataset, error) {
	if ds.descriptor != nil {
		rcc.Logf("Loading %s dataset described in %s...", ds.descriptor.Kind, ds.descriptorInput)
		return ds.descriptor.Load(rcc.Context())
	}
	if ds.dataInput == "" {
		rcc.Logf("Reading dataset from STDIN...")
	} else {
		rcc.Logf("Reading dataset from %s...", ds.dataInput)
	}
	d, _, err := csv.ReadDatasetFromFilePath(ds.dataInput, ds.classFeature)
	return d, err
}

// redisTarget holds the flags to reach a redis DB with models
type redisTarget struct {
	addr   string
	prefix string
	db     int
}

func (rt *redisTarget) addFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(&(rt.addr), "redis-addr", "", "address (host:port) of a redis DB to store models in")
	cmd.PersistentFlags().StringVar(&(rt.prefix), "redis-prefix", "forestry", "prefix for the keys of models in the redis DB")
	cmd.PersistentFlags().IntVar(&(rt.db), "redis-db", 0, "number of the redis DB to store models in")
}

func (rt *redisTarget) store() tree.ModelStore {
	rc := redis.NewClient(&redis.Options{Addr: rt.addr, DB: rt.db})
	return redisstore.New(rc, rt.prefix, json.NewModelEncodeDecoder())
}

// modelSource holds the flags telling where to read fitted models
// from: a JSON file or a redis DB.
type modelSource struct {
	redisTarget
	modelInput string
	modelIDs   []string
}

func (ms *modelSource) addFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVarP(&(ms.modelInput), "model", "m", "", "path to a JSON file with the fitted trees")
	cmd.PersistentFlags().StringSliceVar(&(ms.modelIDs), "model-id", nil, "ids of the fitted trees in the redis DB, which are used as a forest if more than one")
	ms.redisTarget.addFlags(cmd)
}

func (ms *modelSource) Validate() error {
	if ms.modelInput == "" && ms.addr == "" {
		return fmt.Errorf("either model or redis-addr flag must be set")
	}
	if ms.modelInput != "" && ms.addr != "" {
		return fmt.Errorf("cannot set both model and redis-addr flags at the same time")
	}
	if ms.addr != "" && len(ms.modelIDs) == 0 {
		return fmt.Errorf("required model-id flag was not set")
	}
	return nil
}

// load returns the fitted models and the names of their classes,
// which are only known for models read from files.
func (ms *modelSource) load(rcc *rootCmdConfig) ([]*tree.Model, []string, error) {
	if ms.modelInput != "" {
		rcc.Logf("Reading models from %s...", ms.modelInput)
		return json.ReadJSONModelsFromFile(ms.modelInput)
	}
	store := ms.store()
	defer store.Close(rcc.Context())
	rcc.Logf("Retrieving models %s from redis at %s...", strings.Join(ms.modelIDs, ", "), ms.addr)
	models, err := retrieveModels(rcc.Context(), store, ms.modelIDs)
	if err != nil {
		return nil, nil, err
	}
	return models, nil, nil
}

// storeModels creates every model in the store and returns the ids
// they were stored under, in the same order.
func storeModels(ctx context.Context, store tree.ModelStore, models []*tree.Model) ([]string, error) {
	ids := make([]string, len(models))
	for i, m := range models {
		id, err := store.Create(ctx, m)
		if err != nil {
			return nil, fmt.Errorf("storing tree %d: %v", i, err)
		}
		ids[i] = id
	}
	return ids, nil
}

// retrieveModels returns the models stored under the ids, in the same
// order. A missing model is an error.
func retrieveModels(ctx context.Context, store tree.ModelStore, ids []string) ([]*tree.Model, error) {
	models := make([]*tree.Model, len(ids))
	for i, id := range ids {
		m, err := store.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if m == nil {
			return nil, fmt.Errorf("model %q not found", id)
		}
		models[i] = m
	}
	return models, nil
}

// readSamples reads an unlabelled batch of samples from a .npy file or
// a CSV file (STDIN if the path is empty).
func readSamples(path string) (*mat.Dense, error) {
	if strings.HasSuffix(path, ".npy") {
		return npy.ReadMatrixFromFile(path)
	}
	if path == "" {
		return csv.ReadMatrix(os.Stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening samples file %s: %v", path, err)
	}
	defer f.Close()
	m, err := csv.ReadMatrix(f)
	if err != nil {
		return nil, fmt.Errorf("parsing CSV file %s: %v", path, err)
	}
	return m, nil
}

// createOutput opens the file at the given path for writing, or returns
// STDOUT if it is empty. The returned function closes it.
func createOutput(path string) (*os.File, func() error, error) {
	if path == "" {
		return os.Stdout, func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("creating output file %s: %v", path, err)
	}
	return f, f.Close, nil
}
