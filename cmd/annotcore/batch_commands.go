package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"annotcore/internal/batch"
	"annotcore/internal/config"
	"annotcore/internal/repository"
)

func newTidyCommand(ctx *commandContext) *cobra.Command {
	var levels string
	var replace []string
	var fill string
	var noTidy, mergePauses, dryRun bool

	cmd := &cobra.Command{
		Use:   "tidy",
		Short: "Clean labels across the corpus",
		Long: `Tidy normalises Unicode and whitespace in every label, applies the given
replacements, fills blank intervals and merges neighbouring pauses. Problems
with single annotations are listed in the report; the pass carries on.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			replacements, err := parseReplacements(replace)
			if err != nil {
				return err
			}
			return ctx.withRepository(cmd, "", func(repo *repository.Repository) error {
				report, err := batch.Tidy(commandCtx(cmd), repo.Annotations(), batch.TidyOptions{
					Options:      batch.OptionsFromConfig(cfg, ctx.loggerValue()),
					Levels:       splitList(levels),
					TidyLabels:   !noTidy,
					Replacements: replacements,
					FillBlank:    fill,
					MergePauses:  mergePauses,
					DryRun:       dryRun,
					ReportPath:   cfg.Batch.ReportPath,
				})
				if report != nil {
					if printErr := printReport(cmd, ctx, cfg, report, nil); printErr != nil && err == nil {
						err = printErr
					}
				}
				return err
			})
		},
	}
	cmd.Flags().StringVar(&levels, "levels", "", "Comma separated levels (defaults to all)")
	cmd.Flags().StringArrayVar(&replace, "replace", nil, "Replacement as before=after, or attr:before=after for an attribute; repeatable")
	cmd.Flags().StringVar(&fill, "fill-blank", "", "Label given to blank intervals and points")
	cmd.Flags().BoolVar(&noTidy, "no-tidy", false, "Keep Unicode and whitespace as stored")
	cmd.Flags().BoolVar(&mergePauses, "merge-pauses", false, "Merge neighbouring pause intervals")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Count changes without saving them")
	return cmd
}

// parseReplacements reads "before=after" and "attr:before=after".
func parseReplacements(values []string) ([]batch.Replacement, error) {
	out := make([]batch.Replacement, 0, len(values))
	for _, v := range values {
		before, after, ok := strings.Cut(v, "=")
		if !ok {
			return nil, fmt.Errorf("replacement %q: expected before=after", v)
		}
		var attr string
		if a, b, found := strings.Cut(before, ":"); found {
			attr, before = a, b
		}
		out = append(out, batch.Replacement{AttributeID: attr, Before: before, After: after})
	}
	return out, nil
}

func newCompareCommand(ctx *commandContext) *cobra.Command {
	var levels string
	var key, attribute string
	var skipPauses bool

	cmd := &cobra.Command{
		Use:   "compare <other-repository>",
		Short: "Compare every interval tier with another corpus",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			cmpKey, err := pairFlags{key: key, attribute: attribute}.comparisonKey(cfg)
			if err != nil {
				return err
			}
			return ctx.withRepository(cmd, "", func(repo *repository.Repository) error {
				return ctx.withRepository(cmd, args[0], func(other *repository.Repository) error {
					results, report, err := batch.Compare(commandCtx(cmd), repo.Annotations(), other.Annotations(), batch.CompareOptions{
						Options:    batch.OptionsFromConfig(cfg, ctx.loggerValue()),
						Levels:     splitList(levels),
						Key:        cmpKey,
						SkipPauses: skipPauses,
						ReportPath: cfg.Batch.ReportPath,
					})
					if report != nil {
						if printErr := printReport(cmd, ctx, cfg, report, results); printErr != nil && err == nil {
							err = printErr
						}
					}
					return err
				})
			})
		},
	}
	cmd.Flags().StringVar(&levels, "levels", "", "Comma separated interval levels (defaults to the shared ones)")
	cmd.Flags().StringVar(&key, "key", "", "Comparison key: text, folded or attribute")
	cmd.Flags().StringVar(&attribute, "attribute", "", "Attribute compared when --key=attribute")
	cmd.Flags().BoolVar(&skipPauses, "skip-pauses", false, "Leave pauses and blank intervals out of the comparison")
	return cmd
}

func printReport(cmd *cobra.Command, ctx *commandContext, cfg *config.Config, report *batch.Report, results []batch.TierComparison) error {
	if ctx.jsonOutput() {
		if results != nil {
			return writeJSON(cmd, map[string]any{"report": report, "tiers": results})
		}
		return writeJSON(cmd, report)
	}
	out := cmd.OutOrStdout()
	if len(results) > 0 {
		rows := make([][]string, 0, len(results))
		for _, r := range results {
			rows = append(rows, []string{
				r.AnnotationID,
				r.SpeakerID,
				r.LevelID,
				yesNo(r.Identical),
				strconv.Itoa(r.Differences),
				strconv.FormatFloat(r.Similarity, 'f', 2, 64),
			})
		}
		fmt.Fprintln(out, renderTable(
			[]string{"Annotation", "Speaker", "Level", "Identical", "Differences", "Similarity"},
			rows,
			[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight},
			nil,
		))
	}
	if cfg.Batch.ReportPath != "" {
		fmt.Fprintln(out, report.Summary())
		fmt.Fprintf(out, "Report written to %s\n", cfg.Batch.ReportPath)
		return nil
	}
	return report.WriteText(out)
}
