/*
Package yaml parses dataset descriptors from YAML documents.

A descriptor names where a labelled dataset lives and, optionally, the
parameters to grow trees on it with. For instance:

	kind: sqlite3
	path: iris.db
	table: iris
	features: [sepal_length, sepal_width, petal_length, petal_width]
	label: species
	tree:
	  max_depth: 12
	  distr_depth: 3
	  bootstrap: true
*/
package yaml

import (
	"context"
	"fmt"
	"io/ioutil"
	"path/filepath"

	"github.com/pbanos/forestry"
	"github.com/pbanos/forestry/dataset"
	"github.com/pbanos/forestry/dataset/csv"
	"github.com/pbanos/forestry/dataset/mongodataset"
	"github.com/pbanos/forestry/dataset/sqldataset"
	"github.com/pbanos/forestry/dataset/sqldataset/pgadapter"
	"github.com/pbanos/forestry/dataset/sqldataset/sqlite3adapter"
	"github.com/pbanos/forestry/feature"
	"github.com/pbanos/forestry/feature/npy"
	yaml "gopkg.in/yaml.v2"
)

// Kinds of dataset sources a descriptor can name
const (
	NPYKind        = "npy"
	CSVKind        = "csv"
	SQLite3Kind    = "sqlite3"
	PostgreSQLKind = "postgresql"
	MongoDBKind    = "mongodb"
)

// Layouts of the matrix in an npy samples file
const (
	SampleMajorLayout  = "samples"
	FeatureMajorLayout = "features"
)

/*
Descriptor describes a labelled dataset source and the tree parameters
to grow on it.

Which fields are used depends on Kind:
  - npy: Samples and Labels are paths to .npy files, Layout tells if
    Samples has a row per sample (the default) or a row per feature.
  - csv: Path is the CSV file and Label its label column.
  - sqlite3: Path is the database file.
  - postgresql: URL is the connection string.
  - mongodb: URL is the connection URI and Database the database.

SQL and MongoDB sources read the Features columns or fields and the
Label column or field from Table, which is the collection for MongoDB.
A positive SampleSize makes MongoDB sources read a random sample of
that many documents.
*/
type Descriptor struct {
	Kind       string          `yaml:"kind"`
	Samples    string          `yaml:"samples"`
	Labels     string          `yaml:"labels"`
	Layout     string          `yaml:"layout"`
	Path       string          `yaml:"path"`
	URL        string          `yaml:"url"`
	Database   string          `yaml:"database"`
	Table      string          `yaml:"table"`
	Features   []string        `yaml:"features"`
	Label      string          `yaml:"label"`
	SampleSize int             `yaml:"sample_size"`
	Trees      int             `yaml:"trees"`
	Tree       forestry.Config `yaml:"tree"`
}

/*
ReadDescriptor takes a slice of bytes with a descriptor in YAML and
returns the descriptor parsed from it or an error. Tree parameters
missing from the document take their DefaultConfig values.
*/
func ReadDescriptor(data []byte) (*Descriptor, error) {
	d := &Descriptor{Tree: forestry.DefaultConfig()}
	err := yaml.Unmarshal(data, d)
	if err != nil {
		return nil, fmt.Errorf("parsing yml descriptor: %v", err)
	}
	err = d.validate()
	if err != nil {
		return nil, err
	}
	return d, nil
}

/*
ReadDescriptorFromFile takes a filepath string, reads its contents and
uses ReadDescriptor to parse it. Relative file paths in the descriptor
are taken to be relative to the directory of the descriptor file.
*/
func ReadDescriptorFromFile(path string) (*Descriptor, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading descriptor yml file %s: %v", path, err)
	}
	d, err := ReadDescriptor(data)
	if err != nil {
		return nil, fmt.Errorf("parsing descriptor yml file %s: %v", path, err)
	}
	dir := filepath.Dir(path)
	for _, p := range []*string{&d.Samples, &d.Labels, &d.Path} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(dir, *p)
		}
	}
	return d, nil
}

func (d *Descriptor) validate() error {
	switch d.Kind {
	case NPYKind:
		if d.Samples == "" || d.Labels == "" {
			return fmt.Errorf("npy descriptor needs samples and labels files")
		}
		if d.Layout != "" && d.Layout != SampleMajorLayout && d.Layout != FeatureMajorLayout {
			return fmt.Errorf("unknown npy layout %q", d.Layout)
		}
	case CSVKind:
		if d.Path == "" || d.Label == "" {
			return fmt.Errorf("csv descriptor needs a path and a label column")
		}
	case SQLite3Kind, PostgreSQLKind, MongoDBKind:
		if d.Kind == SQLite3Kind && d.Path == "" {
			return fmt.Errorf("sqlite3 descriptor needs a path")
		}
		if d.Kind != SQLite3Kind && d.URL == "" {
			return fmt.Errorf("%s descriptor needs a url", d.Kind)
		}
		if d.Kind == MongoDBKind && d.Database == "" {
			return fmt.Errorf("mongodb descriptor needs a database")
		}
		if d.Table == "" || len(d.Features) == 0 || d.Label == "" {
			return fmt.Errorf("%s descriptor needs a table, features and a label", d.Kind)
		}
	default:
		return fmt.Errorf("unknown dataset kind %q", d.Kind)
	}
	if d.SampleSize < 0 {
		return fmt.Errorf("sample_size cannot be negative, got %d", d.SampleSize)
	}
	if d.Trees < 0 {
		return fmt.Errorf("trees cannot be negative, got %d", d.Trees)
	}
	return nil
}

/*
Load takes a context and reads the dataset the descriptor points to,
returning it or an error.
*/
func (d *Descriptor) Load(ctx context.Context) (*dataset.Dataset, error) {
	switch d.Kind {
	case NPYKind:
		return d.loadNPY()
	case CSVKind:
		ds, _, err := csv.ReadDatasetFromFilePath(d.Path, d.Label)
		return ds, err
	case SQLite3Kind, PostgreSQLKind:
		return d.loadSQL(ctx)
	case MongoDBKind:
		return d.loadMongo(ctx)
	}
	return nil, fmt.Errorf("unknown dataset kind %q", d.Kind)
}

func (d *Descriptor) loadNPY() (*dataset.Dataset, error) {
	var store feature.Store
	var err error
	if d.Layout == FeatureMajorLayout {
		store, err = npy.ReadFeaturesStore(d.Samples)
	} else {
		store, err = npy.ReadSamplesStore(d.Samples)
	}
	if err != nil {
		return nil, err
	}
	labels, err := npy.ReadLabelsFromFile(d.Labels)
	if err != nil {
		return nil, err
	}
	ds := dataset.New(store, labels)
	err = ds.Validate()
	if err != nil {
		return nil, fmt.Errorf("loading npy dataset: %v", err)
	}
	return ds, nil
}

func (d *Descriptor) loadSQL(ctx context.Context) (*dataset.Dataset, error) {
	var a sqldataset.Adapter
	var err error
	if d.Kind == SQLite3Kind {
		a, err = sqlite3adapter.New(d.Path)
	} else {
		a, err = pgadapter.New(d.URL)
	}
	if err != nil {
		return nil, fmt.Errorf("opening %s database: %v", d.Kind, err)
	}
	defer a.Close()
	return sqldataset.Read(ctx, a, d.Table, d.Features, d.Label)
}

func (d *Descriptor) loadMongo(ctx context.Context) (*dataset.Dataset, error) {
	coll, err := mongodataset.Open(ctx, d.URL, d.Database, d.Table)
	if err != nil {
		return nil, err
	}
	defer coll.Database().Client().Disconnect(ctx)
	return mongodataset.Read(ctx, coll, d.Features, d.Label, d.SampleSize)
}
