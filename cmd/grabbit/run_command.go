package main

import (
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"grabbit/internal/document"
	"grabbit/internal/pipeline"
	"grabbit/internal/steps"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var (
		mediaType  string
		workflow   string
		tags       []string
		dryRun     bool
		confirm    bool
		choice     int
		startStep  string
		endStep    string
		jsonOutput bool
		logLevel   string
	)

	cmd := &cobra.Command{
		Use:   "run <input>",
		Short: "Run one request through the pipeline",
		Long: "Run a single request (free text, a URL, or an image path) through " +
			"identification, search, ranking, and decision. Side effects only fire " +
			"with --confirm on a non-dry run.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
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

			rt := pipeline.NewRuntime(cfg, logger)
			rt.Cache = store
			rt.DryRun = dryRun
			rt.Confirm = confirm
			rt.StatePath = ctx.statePath()
			rt.ConfigPath = ctx.configPath
			if choice >= 0 {
				rt.ChoiceIndex = &choice
			}

			doc := document.New(args[0], "")
			doc.Request.MediaType = mediaType
			doc.Request.Tags = tags

			runner := pipeline.NewRunner(rt, steps.Registry())
			if !jsonOutput && isatty.IsTerminal(os.Stderr.Fd()) {
				runner.OnProgress(func(step, phase string, _ *document.Document) {
					if phase == "start" {
						fmt.Fprintf(cmd.ErrOrStderr(), "→ %s\n", stepLabel(step))
					}
				})
			}

			doc = runner.Run(cmd.Context(), doc, pipeline.Options{
				Workflow:  workflow,
				StartStep: startStep,
				EndStep:   endStep,
			})

			if jsonOutput {
				return writeJSON(cmd, doc)
			}
			renderDocument(cmd.OutOrStdout(), doc)
			if doc.Error != nil {
				return fmt.Errorf("run failed at %s: %s", doc.Error.Step, doc.Error.Message)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&mediaType, "media-type", "m", "", "Force the media type (music, movie, tv, book)")
	cmd.Flags().StringVarP(&workflow, "workflow", "w", "", "Run a specific workflow by name")
	cmd.Flags().StringSliceVarP(&tags, "tag", "t", nil, "Tag to store with the acquisition (repeatable)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Record side effects without executing them")
	cmd.Flags().BoolVarP(&confirm, "confirm", "y", false, "Allow side effects to execute")
	cmd.Flags().IntVar(&choice, "choice", -1, "Select a candidate by index from a previous needs-choice run")
	cmd.Flags().StringVar(&startStep, "start-step", "", "Start execution at this step")
	cmd.Flags().StringVar(&endStep, "end-step", "", "Stop execution after this step")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit the final document as JSON")
	cmd.Flags().StringVar(&logLevel, "log-level", "", "Override the configured log level")

	return cmd
}
