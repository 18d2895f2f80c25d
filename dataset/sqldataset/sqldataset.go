package sqldataset

import (
	"context"
	"fmt"

	"github.com/pbanos/forestry/dataset"
)

/*
Read takes a context, an Adapter, a table name, the names of the
feature columns and the name of the label column and returns the
dataset stored on the table, with features in the given column order.
*/
func Read(ctx context.Context, a Adapter, table string, featureColumns []string, labelColumn string) (*dataset.Dataset, error) {
	table, featureColumns, labelColumn, err := columnNames(a, table, featureColumns, labelColumn)
	if err != nil {
		return nil, err
	}
	b := dataset.NewBuilder(len(featureColumns))
	err = a.IterateOnSamples(ctx, table, featureColumns, labelColumn, func(i int, values []float64, class string) (bool, error) {
		err := b.Add(values, class)
		if err != nil {
			return false, fmt.Errorf("adding sample %d: %v", i, err)
		}
		return true, nil
	})
	if err != nil {
		return nil, fmt.Errorf("reading samples from table %s: %v", table, err)
	}
	return b.Build()
}

/*
Write takes a context, an Adapter, a table name, the names of the
feature columns, the name of the label column and a dataset and stores
the dataset on the table, creating it if it does not exist.
*/
func Write(ctx context.Context, a Adapter, table string, featureColumns []string, labelColumn string, d *dataset.Dataset) error {
	err := d.Validate()
	if err != nil {
		return err
	}
	if len(featureColumns) != d.NFeatures() {
		return fmt.Errorf("%d feature columns for a dataset with %d features", len(featureColumns), d.NFeatures())
	}
	table, featureColumns, labelColumn, err = columnNames(a, table, featureColumns, labelColumn)
	if err != nil {
		return err
	}
	err = a.CreateSampleTable(ctx, table, featureColumns, labelColumn)
	if err != nil {
		return err
	}
	sample := make([]int, d.NSamples())
	for i := range sample {
		sample[i] = i
	}
	rows := d.Store.Rows(sample)
	values := make([][]float64, len(sample))
	classes := make([]string, len(sample))
	for i := range sample {
		values[i] = rows.RawRowView(i)
		classes[i] = d.ClassName(d.Labels[i])
	}
	_, err = a.AddSamples(ctx, table, featureColumns, labelColumn, values, classes)
	if err != nil {
		return fmt.Errorf("storing samples on table %s: %v", table, err)
	}
	return nil
}

func columnNames(a Adapter, table string, featureColumns []string, labelColumn string) (string, []string, string, error) {
	if len(featureColumns) == 0 {
		return "", nil, "", fmt.Errorf("no feature columns")
	}
	t, err := a.ColumnName(table)
	if err != nil {
		return "", nil, "", fmt.Errorf("table name: %v", err)
	}
	fcs := make([]string, len(featureColumns))
	for i, name := range featureColumns {
		fcs[i], err = a.ColumnName(name)
		if err != nil {
			return "", nil, "", err
		}
		if name == labelColumn {
			return "", nil, "", fmt.Errorf("column %s cannot be both a feature and the label", name)
		}
	}
	lc, err := a.ColumnName(labelColumn)
	if err != nil {
		return "", nil, "", err
	}
	return t, fcs, lc, nil
}
