package main

import (
	"fmt"
	"os"

	"github.com/pbanos/forestry"
	"github.com/pbanos/forestry/dataset"
	"github.com/pbanos/forestry/forest"
	"github.com/pbanos/forestry/tree"
	"github.com/pbanos/forestry/tree/json"
	"github.com/spf13/cobra"
)

type fitCmdConfig struct {
	*rootCmdConfig
	datasetSource
	redisTarget
	output              string
	trees               int
	tryFeatures         int
	maxDepth            int
	distrDepth          int
	bootstrap           bool
	seed                int64
	workers             int
	delegationThreshold int64
}

func fitCmd(rootConfig *rootCmdConfig) *cobra.Command {
	config := &fitCmdConfig{rootCmdConfig: rootConfig}
	cmd := &cobra.Command{
		Use:   "fit",
		Short: "Fit a tree or a forest on a set of data",
		Long:  `Fit a decision tree, or a random forest of them, on a labelled set of data to predict the class of samples`,
		Run: func(cmd *cobra.Command, args []string) {
			err := config.Validate()
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
			err = config.readDescriptor()
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(2)
			}
			d, err := config.load(config.rootCmdConfig)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(3)
			}
			treeConfig, trees := config.treeConfig(cmd, d)
			config.Logf("Fitting %d trees on a set with %d samples, %d features and %d classes with %+v...", trees, d.NSamples(), d.NFeatures(), d.NClasses, treeConfig)
			models, err := fit(config.rootCmdConfig, treeConfig, trees, d)
			if err != nil {
				fmt.Fprintf(os.Stderr, "fitting: %v\n", err)
				os.Exit(4)
			}
			config.Logf("Done")
			err = config.outputModels(models, d.Classes)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(5)
			}
		},
	}
	config.datasetSource.addFlags(cmd, "fit the trees on")
	config.redisTarget.addFlags(cmd)
	cmd.PersistentFlags().StringVarP(&(config.output), "output", "o", "", "path to a file to which the fitted trees will be written in JSON format when no redis-addr is set (defaults to STDOUT)")
	cmd.PersistentFlags().IntVarP(&(config.trees), "trees", "n", 1, "number of trees to fit, more than one makes a random forest")
	cmd.PersistentFlags().IntVar(&(config.tryFeatures), "try-features", 0, "number of features to try on every split (defaults to 0: the square root of the number of features)")
	cmd.PersistentFlags().IntVar(&(config.maxDepth), "max-depth", forestry.Unbounded, "maximum depth of the trees (defaults to -1: unbounded)")
	cmd.PersistentFlags().IntVar(&(config.distrDepth), "distr-depth", 0, "depth down to which nodes are split one level at a time before growing subtrees")
	cmd.PersistentFlags().BoolVar(&(config.bootstrap), "bootstrap", false, "fit every tree on a sample drawn with replacement from the dataset")
	cmd.PersistentFlags().Int64Var(&(config.seed), "seed", 0, "seed for the random choices made while fitting (defaults to 0: seeded from the clock)")
	cmd.PersistentFlags().IntVar(&(config.workers), "workers", 0, "number of units of work to run concurrently (defaults to 0: one per CPU)")
	cmd.PersistentFlags().Int64Var(&(config.delegationThreshold), "delegation-threshold", forestry.DefaultDelegationThreshold, "largest number of feature values of a node finished in a single step, 0 to disable")
	return cmd
}

func (fcc *fitCmdConfig) Validate() error {
	err := fcc.datasetSource.Validate()
	if err != nil {
		return err
	}
	if fcc.addr != "" && fcc.output != "" {
		return fmt.Errorf("cannot set both output and redis-addr flags at the same time")
	}
	return nil
}

// treeConfig returns the configuration for the trees and their number,
// taken from the descriptor when there is one and overridden by the
// flags set on the command line.
func (fcc *fitCmdConfig) treeConfig(cmd *cobra.Command, d *dataset.Dataset) (forestry.Config, int) {
	config := forestry.DefaultConfig()
	trees := 1
	if fcc.descriptor != nil {
		config = fcc.descriptor.Tree
		if fcc.descriptor.Trees > 0 {
			trees = fcc.descriptor.Trees
		}
	}
	flags := cmd.Flags()
	if fcc.descriptor == nil || flags.Changed("trees") {
		trees = fcc.trees
	}
	if fcc.descriptor == nil || flags.Changed("try-features") {
		config.TryFeatures = fcc.tryFeatures
	}
	if fcc.descriptor == nil || flags.Changed("max-depth") {
		config.MaxDepth = fcc.maxDepth
	}
	if fcc.descriptor == nil || flags.Changed("distr-depth") {
		config.DistrDepth = fcc.distrDepth
	}
	if fcc.descriptor == nil || flags.Changed("bootstrap") {
		config.Bootstrap = fcc.bootstrap
	}
	if fcc.descriptor == nil || flags.Changed("seed") {
		config.Seed = fcc.seed
	}
	if fcc.descriptor == nil || flags.Changed("workers") {
		config.Workers = fcc.workers
	}
	if fcc.descriptor == nil || flags.Changed("delegation-threshold") {
		config.DelegationThreshold = fcc.delegationThreshold
	}
	if config.TryFeatures == 0 {
		config.TryFeatures = forestry.SqrtFeatures(d.NFeatures())
	}
	config.Logger = fcc.logger
	return config, trees
}

// fit grows a single tree when trees is 1 and a forest otherwise, and
// returns the fitted models.
func fit(rcc *rootCmdConfig, config forestry.Config, trees int, d *dataset.Dataset) ([]*tree.Model, error) {
	if trees == 1 {
		c := forestry.NewDecisionTreeClassifier(config)
		err := c.Fit(rcc.Context(), d)
		if err != nil {
			return nil, err
		}
		m, err := c.Model()
		if err != nil {
			return nil, err
		}
		if rcc.logger {
			t, err := m.Assemble()
			if err == nil {
				rcc.Logf("%v", t)
			}
		}
		return []*tree.Model{m}, nil
	}
	f := forest.New(config, trees)
	err := f.Fit(rcc.Context(), d)
	if err != nil {
		return nil, err
	}
	return f.Models()
}

func (fcc *fitCmdConfig) outputModels(models []*tree.Model, classes []string) error {
	if fcc.addr != "" {
		store := fcc.store()
		defer store.Close(fcc.Context())
		ids, err := storeModels(fcc.Context(), store, models)
		if err != nil {
			return err
		}
		for _, id := range ids {
			fmt.Println(id)
		}
		return nil
	}
	f, closeOutput, err := createOutput(fcc.output)
	if err != nil {
		return err
	}
	err = json.WriteJSONModels(models, classes, f)
	if err != nil {
		closeOutput()
		return fmt.Errorf("writing trees: %v", err)
	}
	return closeOutput()
}
