package main

import (
	"fmt"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"annotcore/internal/annotation"
	"annotcore/internal/diff"
	"annotcore/internal/structure"
	"annotcore/internal/timeline"
)

func newDiffCommand(ctx *commandContext) *cobra.Command {
	var pair pairFlags
	var extra string
	var skipPauses bool

	cmd := &cobra.Command{
		Use:   "diff <annotation> <level>",
		Short: "Compare one interval tier with another version of it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			key, err := pair.comparisonKey(cfg)
			if err != nil {
				return err
			}
			columns := cfg.Diff.ExtraColumns
			if extra != "" {
				columns = splitList(extra)
			}
			return ctx.withPair(cmd, args[0], pair, []string{args[1]}, func(tp tierPair) error {
				a, b, err := tp.intervalPair(args[1])
				if err != nil {
					return err
				}
				cmp, err := diff.Intervals(a, b, diff.Options{Key: key, SkipPauses: skipPauses, ExtraColumns: columns})
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, newDiffView(args[1], cmp))
				}
				printComparison(cmd, cmp, columns)
				return nil
			})
		},
	}
	pair.register(cmd)
	cmd.Flags().StringVar(&extra, "extra", "", "Comma separated attributes shown next to each row")
	cmd.Flags().BoolVar(&skipPauses, "skip-pauses", false, "Leave pauses and blank intervals out of the comparison")
	return cmd
}

func printComparison(cmd *cobra.Command, cmp diff.Comparison, columns []string) {
	headers := []string{"", "Start", "End", "Left"}
	for _, c := range columns {
		headers = append(headers, "L:"+c)
	}
	headers = append(headers, "Start", "End", "Right")
	for _, c := range columns {
		headers = append(headers, "R:"+c)
	}

	colorize := shouldColorize(cmd.OutOrStdout())
	rows := make([][]string, 0, len(cmp.Rows))
	colors := make(rowColors, 0, len(cmp.Rows))
	for _, r := range cmp.Rows {
		row := []string{r.Op.Symbol()}
		row = append(row, intervalCells(r.Left)...)
		row = append(row, padded(r.ExtraA, len(columns))...)
		row = append(row, intervalCells(r.Right)...)
		row = append(row, padded(r.ExtraB, len(columns))...)
		rows = append(rows, row)
		colors = append(colors, opColor(r.Op, colorize))
	}
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, renderTable(headers, rows, nil, colors))
	m, ins, del := cmp.Script.Counts()
	fmt.Fprintf(out, "%d matched, %d inserted, %d deleted, %d differences\n", m, ins, del, cmp.Differences())
}

func intervalCells(iv *annotation.Interval) []string {
	if iv == nil {
		return []string{"", "", ""}
	}
	return []string{iv.TMin.String(), iv.TMax.String(), iv.Text}
}

func padded(values []string, n int) []string {
	out := make([]string, n)
	copy(out, values)
	return out
}

func opColor(op diff.Op, colorize bool) text.Colors {
	if !colorize {
		return nil
	}
	switch op {
	case diff.Insert:
		return text.Colors{text.FgGreen}
	case diff.Delete:
		return text.Colors{text.FgRed}
	}
	return nil
}

type diffRowView struct {
	Op     string               `json:"op"`
	IndexA int                  `json:"index_a"`
	IndexB int                  `json:"index_b"`
	Left   *annotation.Interval `json:"left,omitempty"`
	Right  *annotation.Interval `json:"right,omitempty"`
	ExtraA []string             `json:"extra_a,omitempty"`
	ExtraB []string             `json:"extra_b,omitempty"`
}

type diffView struct {
	LevelID string        `json:"level_id"`
	Script  string        `json:"script"`
	Rows    []diffRowView `json:"rows"`
}

func newDiffView(levelID string, cmp diff.Comparison) diffView {
	v := diffView{LevelID: levelID, Script: cmp.Script.String(), Rows: make([]diffRowView, len(cmp.Rows))}
	for i, r := range cmp.Rows {
		v.Rows[i] = diffRowView{Op: r.Op.String(), IndexA: r.IndexA, IndexB: r.IndexB, Left: r.Left, Right: r.Right, ExtraA: r.ExtraA, ExtraB: r.ExtraB}
	}
	return v
}

func newMergeCommand(ctx *commandContext) *cobra.Command {
	var pair pairFlags
	var levels string
	var count bool

	cmd := &cobra.Command{
		Use:   "merge <annotation>",
		Short: "Show the differences of several levels on one timeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			key, err := pair.comparisonKey(cfg)
			if err != nil {
				return err
			}
			return ctx.withPair(cmd, args[0], pair, splitList(levels), func(tp tierPair) error {
				ids := splitList(levels)
				if len(ids) == 0 {
					ids = intervalLevels(tp.structure)
				}
				if len(ids) == 0 {
					return errNoLevels
				}
				var diffs []timeline.LevelDiff
				for _, id := range ids {
					a, b, err := tp.intervalPair(id)
					if err != nil {
						return err
					}
					cmp, err := diff.Intervals(a, b, diff.Options{Key: key})
					if err != nil {
						return err
					}
					diffs = append(diffs, timeline.LevelDiff{LevelID: id, Comparison: cmp})
				}
				diffs = timeline.Ordered(diffs, tp.structure)
				if count {
					return printSummaries(cmd, ctx, timeline.Summaries(diffs))
				}
				return printGrid(cmd, ctx, diffs)
			})
		},
	}
	pair.register(cmd)
	cmd.Flags().StringVar(&levels, "levels", "", "Comma separated interval levels (defaults to all)")
	cmd.Flags().BoolVar(&count, "count", false, "Only count the differences per level")
	return cmd
}

func intervalLevels(st *structure.AnnotationStructure) []string {
	var ids []string
	for _, l := range st.Levels() {
		if l.Kind.TierKind() == annotation.KindIntervals {
			ids = append(ids, l.ID)
		}
	}
	return ids
}

func printSummaries(cmd *cobra.Command, ctx *commandContext, summaries []timeline.Summary) error {
	if ctx.jsonOutput() {
		return writeJSON(cmd, summaries)
	}
	rows := make([][]string, 0, len(summaries))
	for _, s := range summaries {
		rows = append(rows, []string{
			s.LevelID,
			strconv.Itoa(s.Matches),
			strconv.Itoa(s.Inserts),
			strconv.Itoa(s.Deletes),
			strconv.Itoa(s.Differences),
		})
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderTable(
		[]string{"Level", "Matched", "Inserted", "Deleted", "Differences"},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight},
		nil,
	))
	return nil
}

func printGrid(cmd *cobra.Command, ctx *commandContext, diffs []timeline.LevelDiff) error {
	rows := timeline.Merge(diffs)
	if ctx.jsonOutput() {
		views := make([]map[string]any, 0, len(rows))
		for _, r := range rows {
			views = append(views, map[string]any{
				"time":     r.Key.String(),
				"level_id": r.LevelID,
				"op":       r.Op.String(),
				"left":     r.Left,
				"right":    r.Right,
			})
		}
		return writeJSON(cmd, views)
	}
	grid := timeline.Layout(rows, len(diffs))
	headers := []string{"Time"}
	for _, d := range diffs {
		headers = append(headers, d.LevelID)
	}
	lines := make([][]string, 0, len(grid.Lines))
	for i, line := range grid.Lines {
		cells := []string{""}
		if i == 0 || grid.Lines[i-1].Key != line.Key {
			cells[0] = line.Key.String()
		}
		for _, c := range line.Cells {
			cells = append(cells, gridCell(c))
		}
		lines = append(lines, cells)
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderTable(headers, lines, []columnAlignment{alignRight}, nil))
	return nil
}

func gridCell(r *timeline.Row) string {
	if r == nil {
		return ""
	}
	switch r.Op {
	case diff.Insert:
		return "+ " + r.Right.Text
	case diff.Delete:
		return "- " + r.Left.Text
	}
	if r.Left.Text == r.Right.Text {
		return "= " + r.Left.Text
	}
	return "= " + r.Left.Text + " | " + r.Right.Text
}
