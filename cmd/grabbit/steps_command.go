package main

import (
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"grabbit/internal/pipeline"
	"grabbit/internal/steps"
)

var titleCaser = cases.Title(language.English)

// stepLabel humanizes a step name for display.
func stepLabel(name string) string {
	return titleCaser.String(strings.ReplaceAll(name, "_", " "))
}

func newStepsCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:         "steps",
		Short:       "List the builtin pipeline steps",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			names := steps.BuiltinNames()
			sort.Strings(names)

			if jsonOutput {
				type stepInfo struct {
					Name        string `json:"name"`
					SideEffect  bool   `json:"side_effect"`
					Description string `json:"description,omitempty"`
				}
				infos := make([]stepInfo, 0, len(names))
				for _, name := range names {
					md := pipeline.MetadataFor(name)
					infos = append(infos, stepInfo{
						Name:        name,
						SideEffect:  md.SideEffect,
						Description: md.Description,
					})
				}
				return writeJSON(cmd, infos)
			}

			rows := make([][]string, 0, len(names))
			for _, name := range names {
				md := pipeline.MetadataFor(name)
				effect := ""
				if md.SideEffect {
					effect = "yes"
				}
				rows = append(rows, []string{name, effect, md.Description})
			}
			cmd.Println(renderTable(
				[]string{"Step", "Side Effect", "Description"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit the step list as JSON")
	return cmd
}
