package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"grabbit/internal/batch"
	"grabbit/internal/steps"
)

func newBatchCommand(ctx *commandContext) *cobra.Command {
	var (
		filePath    string
		mediaType   string
		workflow    string
		tags        []string
		dryRun      bool
		confirm     bool
		concurrency int
		jsonOutput  bool
		logLevel    string
	)

	cmd := &cobra.Command{
		Use:   "batch [input...]",
		Short: "Run many requests concurrently",
		Long: "Process several requests in one invocation, either as arguments or " +
			"from a file with one request per line. Shared flags apply to every " +
			"request in the batch.",
		RunE: func(cmd *cobra.Command, args []string) error {
			inputs := args
			if filePath != "" {
				fromFile, err := batch.ReadInputs(filePath)
				if err != nil {
					return err
				}
				inputs = append(inputs, fromFile...)
			}
			if len(inputs) == 0 {
				return fmt.Errorf("no inputs; pass requests as arguments or via --file")
			}

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.newLogger(logLevel, jsonOutput)
			if err != nil {
				return err
			}
			store, err := ctx.openCache()
			if err != nil {
				return err
			}
			defer store.Close()

			processor := batch.NewProcessor(cfg, logger, store, steps.Registry())
			outcomes, err := processor.Run(cmd.Context(), inputs, batch.Options{
				Concurrency: concurrency,
				MediaType:   mediaType,
				Workflow:    workflow,
				Tags:        tags,
				DryRun:      dryRun,
				Confirm:     confirm,
				StatePath:   ctx.statePath(),
				ConfigPath:  ctx.configPath,
			})
			if err != nil {
				return err
			}

			if jsonOutput {
				return writeJSON(cmd, outcomes)
			}
			renderBatchSummary(cmd.OutOrStdout(), outcomes)

			failed := 0
			for _, outcome := range outcomes {
				if outcome.Failed() {
					failed++
				}
			}
			if failed > 0 {
				return fmt.Errorf("%s of %s runs failed",
					strconv.Itoa(failed), strconv.Itoa(len(outcomes)))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&filePath, "file", "f", "", "File with one request per line")
	cmd.Flags().StringVarP(&mediaType, "media-type", "m", "", "Force the media type for every request")
	cmd.Flags().StringVarP(&workflow, "workflow", "w", "", "Run a specific workflow for every request")
	cmd.Flags().StringSliceVarP(&tags, "tag", "t", nil, "Tag to store with each acquisition (repeatable)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Record side effects without executing them")
	cmd.Flags().BoolVarP(&confirm, "confirm", "y", false, "Allow side effects to execute")
	cmd.Flags().IntVarP(&concurrency, "concurrency", "n", batch.DefaultConcurrency, "Concurrent runs")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit all final documents as JSON")
	cmd.Flags().StringVar(&logLevel, "log-level", "", "Override the configured log level")

	return cmd
}
