/*
Package mongodataset reads datasets from and writes datasets to
MongoDB collections.

Every document of a dataset collection is a sample: it holds a
numeric field per feature and a field with its class name.
*/
package mongodataset

import (
	"context"
	"fmt"

	"github.com/pbanos/forestry/dataset"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

/*
Open takes a context, a MongoDB connection URI, a database name and a
collection name, connects to the server and returns the collection.
Disconnecting the collection's client is up to the caller.
*/
func Open(ctx context.Context, uri, database, collection string) (*mongo.Collection, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %v", uri, err)
	}
	err = client.Ping(ctx, nil)
	if err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("pinging %s: %v", uri, err)
	}
	return client.Database(database).Collection(collection), nil
}

/*
Read takes a context, a collection, the names of the feature fields,
the name of the label field and a sample size and returns the dataset
stored on the collection. A positive sample size draws that many
random documents instead of reading them all.
*/
func Read(ctx context.Context, coll *mongo.Collection, featureFields []string, labelField string, sampleSize int) (*dataset.Dataset, error) {
	if len(featureFields) == 0 {
		return nil, fmt.Errorf("no feature fields")
	}
	projection := bson.D{{Key: "_id", Value: 0}, {Key: labelField, Value: 1}}
	for _, f := range featureFields {
		projection = append(projection, bson.E{Key: f, Value: 1})
	}
	var cursor *mongo.Cursor
	var err error
	if sampleSize > 0 {
		pipeline := mongo.Pipeline{
			{{Key: "$sample", Value: bson.D{{Key: "size", Value: sampleSize}}}},
			{{Key: "$project", Value: projection}},
		}
		cursor, err = coll.Aggregate(ctx, pipeline)
	} else {
		cursor, err = coll.Find(ctx, bson.D{}, options.Find().SetProjection(projection))
	}
	if err != nil {
		return nil, fmt.Errorf("querying collection %s: %v", coll.Name(), err)
	}
	defer cursor.Close(ctx)
	b := dataset.NewBuilder(len(featureFields))
	for i := 0; cursor.Next(ctx); i++ {
		var doc bson.M
		err = cursor.Decode(&doc)
		if err != nil {
			return nil, fmt.Errorf("decoding document %d: %v", i, err)
		}
		values, class, err := parseDocument(doc, featureFields, labelField)
		if err != nil {
			return nil, fmt.Errorf("parsing document %d: %v", i, err)
		}
		err = b.Add(values, class)
		if err != nil {
			return nil, fmt.Errorf("adding document %d: %v", i, err)
		}
	}
	err = cursor.Err()
	if err != nil {
		return nil, fmt.Errorf("iterating collection %s: %v", coll.Name(), err)
	}
	return b.Build()
}

/*
Write takes a context, a collection, the names of the feature fields,
the name of the label field and a dataset and inserts a document per
sample in the dataset on the collection. It returns the number of
documents inserted.
*/
func Write(ctx context.Context, coll *mongo.Collection, featureFields []string, labelField string, d *dataset.Dataset) (int, error) {
	err := d.Validate()
	if err != nil {
		return 0, err
	}
	if len(featureFields) != d.NFeatures() {
		return 0, fmt.Errorf("%d feature fields for a dataset with %d features", len(featureFields), d.NFeatures())
	}
	sample := make([]int, d.NSamples())
	for i := range sample {
		sample[i] = i
	}
	rows := d.Store.Rows(sample)
	docs := make([]interface{}, len(sample))
	for i := range sample {
		docs[i] = sampleDocument(rows.RawRowView(i), d.ClassName(d.Labels[i]), featureFields, labelField)
	}
	result, err := coll.InsertMany(ctx, docs)
	if err != nil {
		inserted := 0
		if result != nil {
			inserted = len(result.InsertedIDs)
		}
		return inserted, fmt.Errorf("inserting samples on collection %s: %v", coll.Name(), err)
	}
	return len(result.InsertedIDs), nil
}

func sampleDocument(values []float64, class string, featureFields []string, labelField string) bson.D {
	doc := make(bson.D, 0, len(values)+1)
	for j, f := range featureFields {
		doc = append(doc, bson.E{Key: f, Value: values[j]})
	}
	return append(doc, bson.E{Key: labelField, Value: class})
}

func parseDocument(doc bson.M, featureFields []string, labelField string) ([]float64, string, error) {
	values := make([]float64, len(featureFields))
	for j, f := range featureFields {
		v, ok := doc[f]
		if !ok {
			return nil, "", fmt.Errorf("missing feature field %s", f)
		}
		fv, err := toFloat(v)
		if err != nil {
			return nil, "", fmt.Errorf("feature field %s: %v", f, err)
		}
		values[j] = fv
	}
	label, ok := doc[labelField]
	if !ok {
		return nil, "", fmt.Errorf("missing label field %s", labelField)
	}
	switch l := label.(type) {
	case string:
		return values, l, nil
	case int32, int64, bool:
		return values, fmt.Sprintf("%v", l), nil
	}
	return nil, "", fmt.Errorf("label field %s has unsupported type %T", labelField, label)
}

func toFloat(v interface{}) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case int:
		return float64(n), nil
	}
	return 0, fmt.Errorf("value %v of type %T is not a number", v, v)
}
