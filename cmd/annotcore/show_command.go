package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"annotcore/internal/annotation"
	"annotcore/internal/preview"
	"annotcore/internal/repository"
)

func newShowCommand(ctx *commandContext) *cobra.Command {
	var speaker, levels string
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "show <annotation>",
		Short: "Print the tiers of one annotation and speaker",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRepository(cmd, "", func(repo *repository.Repository) error {
				fetcher := preview.NewFetcher(repo.Annotations(), ctx.loggerValue())
				defer fetcher.Close()

				gen, err := fetcher.Bind(commandCtx(cmd), preview.Request{AnnotationID: args[0], SpeakerID: speaker, Levels: splitList(levels)})
				if err != nil {
					return err
				}
				var res preview.Result
				select {
				case res = <-fetcher.Results():
				case <-time.After(timeout):
					return fmt.Errorf("reading annotation %s timed out after %s", args[0], timeout)
				case <-commandCtx(cmd).Done():
					return commandCtx(cmd).Err()
				}
				if res.Generation != gen {
					return fmt.Errorf("unexpected preview generation %d", res.Generation)
				}
				if res.Err != nil {
					return res.Err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, tierViews(res.Group))
				}
				printGroup(cmd, res.Group)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&speaker, "speaker", "", "Speaker to show")
	cmd.Flags().StringVar(&levels, "levels", "", "Comma separated levels (defaults to all)")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "Give up when the read takes longer")
	return cmd
}

type elementView struct {
	Index int    `json:"index"`
	From  string `json:"from"`
	To    string `json:"to"`
	Label string `json:"label"`
}

type tierView struct {
	Level    string        `json:"level"`
	Kind     string        `json:"kind"`
	Elements []elementView `json:"elements"`
}

func tierViews(g *annotation.TierGroup) []tierView {
	views := make([]tierView, 0, g.Len())
	for _, tier := range g.Tiers() {
		v := tierView{Level: tier.Name(), Kind: tier.Kind().String()}
		switch t := tier.(type) {
		case *annotation.IntervalTier:
			for i, iv := range t.Intervals() {
				v.Elements = append(v.Elements, elementView{i, iv.TMin.String(), iv.TMax.String(), iv.Text})
			}
		case *annotation.PointTier:
			for i, p := range t.Points() {
				v.Elements = append(v.Elements, elementView{i, p.Time.String(), "", p.Text})
			}
		case *annotation.SequenceTier:
			for i, s := range t.Sequences() {
				v.Elements = append(v.Elements, elementView{i, strconv.Itoa(s.IndexFrom), strconv.Itoa(s.IndexTo), s.Text})
			}
		case *annotation.RelationTier:
			for i, r := range t.Relations() {
				v.Elements = append(v.Elements, elementView{i, strconv.Itoa(r.IndexFrom), strconv.Itoa(r.IndexTo), r.Text})
			}
		}
		views = append(views, v)
	}
	return views
}

func printGroup(cmd *cobra.Command, g *annotation.TierGroup) {
	out := cmd.OutOrStdout()
	views := tierViews(g)
	if len(views) == 0 {
		fmt.Fprintln(out, "No tiers stored")
		return
	}
	for _, v := range views {
		fmt.Fprintf(out, "%s (%s)\n", v.Level, v.Kind)
		rows := make([][]string, 0, len(v.Elements))
		for _, e := range v.Elements {
			rows = append(rows, []string{strconv.Itoa(e.Index), e.From, e.To, e.Label})
		}
		fmt.Fprintln(out, renderTable([]string{"#", "From", "To", "Label"}, rows, []columnAlignment{alignRight, alignRight, alignRight}, nil))
	}
}
