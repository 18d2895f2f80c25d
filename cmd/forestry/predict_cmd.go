package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/pbanos/forestry"
	"github.com/pbanos/forestry/dataset/csv"
	"github.com/pbanos/forestry/feature/npy"
	"github.com/pbanos/forestry/forest"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/mat"
)

type predictCmdConfig struct {
	*rootCmdConfig
	modelSource
	samplesInput string
	output       string
	proba        bool
	workers      int
}

func predictCmd(rootConfig *rootCmdConfig) *cobra.Command {
	config := &predictCmdConfig{rootCmdConfig: rootConfig}
	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Predict the class of a batch of samples",
		Long:  `Use fitted trees to predict the class of every sample in a batch, or the probability of it belonging to each class`,
		Run: func(cmd *cobra.Command, args []string) {
			err := config.Validate()
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
			models, classes, err := config.load(config.rootCmdConfig)
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
			x, err := readSamples(config.samplesInput)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(3)
			}
			n, _ := x.Dims()
			config.Logf("Predicting %d samples with %d trees...", n, len(models))
			err = config.predict(config.Context(), f, x, classes)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(4)
			}
			config.Logf("Done")
		},
	}
	config.modelSource.addFlags(cmd)
	cmd.PersistentFlags().StringVarP(&(config.samplesInput), "input", "i", "", "path to an input CSV or .npy file with a row per sample to predict (defaults to STDIN, interpreted as CSV)")
	cmd.PersistentFlags().StringVarP(&(config.output), "output", "o", "", "path to a CSV or .npy file to which predictions will be written (defaults to STDOUT, as CSV)")
	cmd.PersistentFlags().BoolVar(&(config.proba), "proba", false, "output the probability of every class instead of the most probable one")
	cmd.PersistentFlags().IntVar(&(config.workers), "workers", 0, "number of units of work to run concurrently (defaults to 0: one per CPU)")
	return cmd
}

func (pcc *predictCmdConfig) predict(ctx context.Context, f *forest.Forest, x *mat.Dense, classes []string) error {
	var codes []int
	var proba *mat.Dense
	var err error
	if pcc.proba {
		proba, err = f.PredictProba(ctx, x)
	} else {
		codes, err = f.Predict(ctx, x)
	}
	if err != nil {
		return fmt.Errorf("predicting: %v", err)
	}
	out, closeOutput, err := createOutput(pcc.output)
	if err != nil {
		return err
	}
	switch {
	case strings.HasSuffix(pcc.output, ".npy") && pcc.proba:
		err = npy.WriteMatrix(out, proba)
	case strings.HasSuffix(pcc.output, ".npy"):
		err = npy.WriteCodes(out, codes)
	case pcc.proba:
		err = csv.WriteProbabilities(out, proba, classes)
	default:
		err = csv.WritePredictions(out, codes, classes)
	}
	if err != nil {
		closeOutput()
		return fmt.Errorf("writing predictions: %v", err)
	}
	return closeOutput()
}
