package main

import (
	"fmt"
	"os"

	"github.com/pbanos/forestry"
	"github.com/pbanos/forestry/dataset"
	"github.com/pbanos/forestry/forest"
	"github.com/spf13/cobra"
)

type testCmdConfig struct {
	*rootCmdConfig
	datasetSource
	modelSource
	workers int
}

func testCmd(rootConfig *rootCmdConfig) *cobra.Command {
	config := &testCmdConfig{rootCmdConfig: rootConfig}
	cmd := &cobra.Command{
		Use:   "test",
		Short: "Test the accuracy of fitted trees",
		Long:  `Test the accuracy of a fitted tree or forest against a labelled test data set`,
		Run: func(cmd *cobra.Command, args []string) {
			err := config.Validate()
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
			models, classes, err := config.modelSource.load(config.rootCmdConfig)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(2)
			}
			f := forest.New(forestry.Config{Workers: config.workers, Logger: config.logger}, len(models))
			err = f.Load(models)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(2)
			}
			err = config.readDescriptor()
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(3)
			}
			d, err := config.datasetSource.load(config.rootCmdConfig)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(3)
			}
			config.Logf("Testing %d trees against a test set with %d samples...", len(models), d.NSamples())
			predictions, err := f.Predict(config.Context(), d.Store.Rows(allSamples(d)))
			if err != nil {
				fmt.Fprintf(os.Stderr, "predicting: %v\n", err)
				os.Exit(4)
			}
			config.Logf("Done")
			hits := countHits(d, predictions, classes)
			fmt.Printf("%f accuracy, %d out of %d samples predicted correctly\n", float64(hits)/float64(d.NSamples()), hits, d.NSamples())
		},
	}
	config.datasetSource.addFlags(cmd, "test the trees against")
	config.modelSource.addFlags(cmd)
	cmd.PersistentFlags().IntVar(&(config.workers), "workers", 0, "number of units of work to run concurrently (defaults to 0: one per CPU)")
	return cmd
}

func (tcc *testCmdConfig) Validate() error {
	err := tcc.datasetSource.Validate()
	if err != nil {
		return err
	}
	return tcc.modelSource.Validate()
}

func allSamples(d *dataset.Dataset) []int {
	sample := make([]int, d.NSamples())
	for i := range sample {
		sample[i] = i
	}
	return sample
}

// countHits returns the number of samples whose class was predicted.
// When both the models and the dataset name their classes, classes
// are matched by name, as their codes may differ.
func countHits(d *dataset.Dataset, predictions []int, classes []string) int {
	hits := 0
	for i, p := range predictions {
		if classes == nil || d.Classes == nil {
			if p == d.Labels[i] {
				hits++
			}
			continue
		}
		if p >= 0 && p < len(classes) && classes[p] == d.Classes[d.Labels[i]] {
			hits++
		}
	}
	return hits
}
