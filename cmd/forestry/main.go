package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
)

type rootCmdConfig struct {
	logger
	ctx        context.Context
	cancelFunc context.CancelFunc
}

func main() {
	if err := cliParser().Execute(); err != nil {
		os.Exit(1)
	}
}

func cliParser() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "forestry",
		Short: "forestry is a tool to grow classification trees and forests",
		Long:  `A tool to grow decision trees and random forests for classification from your data, test them, and use them to make predictions`,
	}
	config := &rootCmdConfig{}
	rootCmd.PersistentFlags().BoolVarP((*bool)(&config.logger), "verbose", "v", false, "log progress to STDERR")
	rootCmd.AddCommand(versionCmd(), fitCmd(config), predictCmd(config), testCmd(config))
	return rootCmd
}

// Context returns a context that is cancelled when the process
// receives an interrupt signal.
func (rcc *rootCmdConfig) Context() context.Context {
	if rcc.ctx == nil {
		rcc.ctx, rcc.cancelFunc = signal.NotifyContext(context.Background(), os.Interrupt)
	}
	return rcc.ctx
}
