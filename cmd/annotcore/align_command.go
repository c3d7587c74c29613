package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"annotcore/internal/diff"
	"annotcore/internal/logging"
)

func newAlignCommand(ctx *commandContext) *cobra.Command {
	var pair pairFlags
	var save bool
	var minMatches, maxMismatches int

	cmd := &cobra.Command{
		Use:   "align <annotation> <level>",
		Short: "Retime a recognised tier (right) against a reference tier (left)",
		Long: `Align finds anchors, stretches where the recognised labels agree with the
reference, and moves the recognised boundaries onto the reference times
through them. With --save the retimed tier replaces the right side.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			key, err := pair.comparisonKey(cfg)
			if err != nil {
				return err
			}
			opts := diff.AnchorOptions{MinMatches: cfg.Alignment.MinMatches, MaxMismatches: cfg.Alignment.MaxMismatches}
			if cmd.Flags().Changed("min-matches") {
				opts.MinMatches = minMatches
			}
			if cmd.Flags().Changed("max-mismatches") {
				opts.MaxMismatches = maxMismatches
			}
			levelID := args[1]
			return ctx.withPair(cmd, args[0], pair, []string{levelID}, func(tp tierPair) error {
				ref, hyp, err := tp.intervalPair(levelID)
				if err != nil {
					return err
				}
				res, err := diff.Align(ref, hyp, key, opts)
				if err != nil {
					return err
				}
				ctx.loggerValue().Info("tier aligned",
					logging.String(logging.FieldAnnotationID, args[0]),
					logging.String(logging.FieldLevelID, levelID),
					logging.Int("anchors", len(res.Anchors)),
				)
				if save {
					speaker := firstNonEmpty(pair.otherSpeaker, pair.speaker)
					annotationID := firstNonEmpty(pair.otherAnnotation, args[0])
					if err := tp.rightStore.SaveTier(commandCtx(cmd), annotationID, speaker, res.Tier); err != nil {
						return err
					}
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, map[string]any{
						"anchors":   res.Anchors,
						"script":    res.Script.String(),
						"intervals": res.Tier.Intervals(),
						"saved":     save,
					})
				}
				printAlignment(cmd, res, save)
				return nil
			})
		},
	}
	pair.register(cmd)
	cmd.Flags().BoolVar(&save, "save", false, "Save the retimed tier in place of the right side")
	cmd.Flags().IntVar(&minMatches, "min-matches", 0, "Fewest matches in an anchor (defaults to the configuration)")
	cmd.Flags().IntVar(&maxMismatches, "max-mismatches", 0, "Mismatch budget inside an anchor (defaults to the configuration)")
	return cmd
}

func printAlignment(cmd *cobra.Command, res diff.AlignResult, saved bool) {
	out := cmd.OutOrStdout()
	if len(res.Anchors) == 0 {
		fmt.Fprintln(out, "No anchors found; boundaries left unchanged")
	} else {
		rows := make([][]string, 0, len(res.Anchors))
		for i, a := range res.Anchors {
			rows = append(rows, []string{strconv.Itoa(i + 1), strconv.Itoa(a.Start), strconv.Itoa(a.End), strconv.Itoa(a.Matches), strconv.Itoa(a.Mismatches)})
		}
		fmt.Fprintln(out, renderTable(
			[]string{"Anchor", "Start", "End", "Matches", "Mismatches"},
			rows,
			[]columnAlignment{alignRight, alignRight, alignRight, alignRight, alignRight},
			nil,
		))
	}
	rows := make([][]string, 0, res.Tier.Count())
	for _, iv := range res.Tier.Intervals() {
		rows = append(rows, []string{iv.TMin.String(), iv.TMax.String(), iv.Text})
	}
	fmt.Fprintln(out, renderTable([]string{"Start", "End", "Label"}, rows, []columnAlignment{alignRight, alignRight}, nil))
	if saved {
		fmt.Fprintln(out, "Retimed tier saved")
	}
}
