/*
Package csv reads datasets and unlabelled sample batches from CSV
streams, and writes predictions to them.

The header or first row of the CSV content is expected to name the
columns. Every column holds real numbers except for the label column
of a dataset, whose values are taken as class names.
*/
package csv

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/pbanos/forestry/dataset"
	"gonum.org/v1/gonum/mat"
)

/*
ReadBySample takes an io.Reader for a CSV stream, the name of the label
column (empty for unlabelled streams) and a lambda function. It parses
the header, then calls the lambda function with the index, feature
values and class name of every sample in the stream. If the lambda
function returns false, it stops. It returns the names of the feature
columns in order, or an error if something goes wrong when reading the
stream or parsing a sample.
*/
func ReadBySample(reader io.Reader, labelColumn string, lambda func(int, []float64, string) (bool, error)) ([]string, error) {
	r := csv.NewReader(reader)
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header: %v", err)
	}
	labelIndex := -1
	var featureNames []string
	for i, name := range header {
		if labelColumn != "" && name == labelColumn {
			labelIndex = i
			continue
		}
		featureNames = append(featureNames, name)
	}
	if labelColumn != "" && labelIndex < 0 {
		return nil, fmt.Errorf("parsing header: label column %q not found", labelColumn)
	}
	for l := 2; ; l++ {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading body: %v", err)
		}
		values := make([]float64, 0, len(featureNames))
		var class string
		for i, v := range row {
			if i == labelIndex {
				class = v
				continue
			}
			value, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return nil, fmt.Errorf("parsing line %d: column %s: converting %q to float64: %v", l, header[i], v, err)
			}
			values = append(values, value)
		}
		ok, err := lambda(l-2, values, class)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
	}
	return featureNames, nil
}

/*
ReadDataset takes an io.Reader for a CSV stream and the name of the
label column and returns the dataset in it and the names of its
features, or an error.
*/
func ReadDataset(reader io.Reader, labelColumn string) (*dataset.Dataset, []string, error) {
	var b *dataset.Builder
	names, err := ReadBySample(reader, labelColumn, func(i int, values []float64, class string) (bool, error) {
		if b == nil {
			b = dataset.NewBuilder(len(values))
		}
		err := b.Add(values, class)
		if err != nil {
			return false, fmt.Errorf("adding sample %d: %v", i, err)
		}
		return true, nil
	})
	if err != nil {
		return nil, nil, err
	}
	if b == nil {
		return nil, nil, fmt.Errorf("no samples in CSV stream")
	}
	d, err := b.Build()
	if err != nil {
		return nil, nil, err
	}
	return d, names, nil
}

/*
ReadDatasetFromFilePath takes a filepath string and the name of the
label column, opens the file the filepath points to (os.Stdin if it is
empty) and uses ReadDataset on it.
*/
func ReadDatasetFromFilePath(filepath string, labelColumn string) (*dataset.Dataset, []string, error) {
	var f *os.File
	var err error
	if filepath == "" {
		f = os.Stdin
	} else {
		f, err = os.Open(filepath)
		if err != nil {
			return nil, nil, fmt.Errorf("reading dataset: %v", err)
		}
		defer f.Close()
	}
	d, names, err := ReadDataset(f, labelColumn)
	if err != nil {
		err = fmt.Errorf("parsing CSV file %s: %v", filepath, err)
	}
	return d, names, err
}

/*
ReadMatrix takes an io.Reader for an unlabelled CSV stream and returns
a matrix with a row per sample, or an error.
*/
func ReadMatrix(reader io.Reader) (*mat.Dense, error) {
	var data []float64
	var width int
	n := 0
	_, err := ReadBySample(reader, "", func(i int, values []float64, _ string) (bool, error) {
		if i == 0 {
			width = len(values)
		}
		if len(values) != width {
			return false, fmt.Errorf("sample %d has %d values, expected %d", i, len(values), width)
		}
		data = append(data, values...)
		n++
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	if n == 0 || width == 0 {
		return nil, fmt.Errorf("no samples in CSV stream")
	}
	return mat.NewDense(n, width, data), nil
}

/*
WritePredictions takes an io.Writer, a slice of predicted class codes
and the names of the classes and writes a single-column CSV with the
predicted class name of each sample.
*/
func WritePredictions(writer io.Writer, codes []int, classes []string) error {
	w := csv.NewWriter(writer)
	err := w.Write([]string{"prediction"})
	if err != nil {
		return fmt.Errorf("writing CSV header: %v", err)
	}
	for i, c := range codes {
		name := strconv.Itoa(c)
		if c >= 0 && c < len(classes) {
			name = classes[c]
		}
		err = w.Write([]string{name})
		if err != nil {
			return fmt.Errorf("writing CSV row for sample %d: %v", i, err)
		}
	}
	w.Flush()
	return w.Error()
}

/*
WriteProbabilities takes an io.Writer, a matrix with a row per sample
and a column per class and the names of the classes and writes a CSV
with a column per class holding the probability of each sample
belonging to it. Columns of classes without a name are named after
their code.
*/
func WriteProbabilities(writer io.Writer, proba mat.Matrix, classes []string) error {
	n, nClasses := proba.Dims()
	w := csv.NewWriter(writer)
	header := make([]string, nClasses)
	for c := range header {
		header[c] = strconv.Itoa(c)
		if c < len(classes) {
			header[c] = classes[c]
		}
	}
	err := w.Write(header)
	if err != nil {
		return fmt.Errorf("writing CSV header: %v", err)
	}
	row := make([]string, nClasses)
	for i := 0; i < n; i++ {
		for c := range row {
			row[c] = strconv.FormatFloat(proba.At(i, c), 'g', -1, 64)
		}
		err = w.Write(row)
		if err != nil {
			return fmt.Errorf("writing CSV row for sample %d: %v", i, err)
		}
	}
	w.Flush()
	return w.Error()
}
