// Package main is the entry point of the geo-pipeline binary. It downloads GEO datasets, extracts
// them, splits their section files into tables and trims the probe tables.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/askiada/geo-pipeline/internal/config"
	"github.com/askiada/geo-pipeline/internal/logging"
	"github.com/askiada/geo-pipeline/internal/workflow"
)

type configLoader func() (*config.Config, error)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := newRootCmd(config.FromEnv).ExecuteContext(ctx)

	stop()

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd(load configLoader) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "geo-pipeline [dataset...]",
		Short: "Download and tabulate GEO gene expression datasets",
		Long: `Download GEO dataset archives, extract their members, split every section file into
TSV tables and drop the annotation columns of the probe tables.

Stages whose outputs are recorded and still present are skipped. The configuration comes from the
YAML file named by ` + config.FileEnv + ` and the GEOPIPE_* environment variables.

Example:
  geo-pipeline GSE68849`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			wf, err := newWorkflow(cmd, load)
			if err != nil {
				return err
			}

			reports, err := wf.Run(cmd.Context(), args...)
			if err != nil {
				return err
			}

			for _, rep := range reports {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", rep.Dataset, rep.Marker)
			}

			return nil
		},
	}

	rootCmd.AddCommand(&cobra.Command{
		Use:   "plan",
		Short: "Print the pipeline steps in execution order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			wf, err := newWorkflow(cmd, load)
			if err != nil {
				return err
			}

			steps, err := wf.Plan()
			if err != nil {
				return err
			}

			for _, step := range steps {
				fmt.Fprintln(cmd.OutOrStdout(), step)
			}

			return nil
		},
	})

	return rootCmd
}

func newWorkflow(cmd *cobra.Command, load configLoader) (*workflow.Workflow, error) {
	cfg, err := load()
	if err != nil {
		return nil, err
	}

	logger := logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat}, cmd.ErrOrStderr())

	return workflow.New(cfg, logger)
}
