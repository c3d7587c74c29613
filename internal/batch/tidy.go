package batch

import (
	"context"
	"log/slog"
	"slices"
	"strings"

	"annotcore/internal/annotation"
	"annotcore/internal/corpuserr"
	"annotcore/internal/datastore"
	"annotcore/internal/logging"
	"annotcore/internal/textutil"
)

// Replacement rewrites a substring in the label ("" AttributeID) or in one
// attribute. An empty Before only fills blank values.
type Replacement struct {
	AttributeID string
	Before      string
	After       string
}

// TidyOptions selects the cleanups of a tidy pass. They run in field order:
// whitespace tidying, replacements, blank filling, pause merging.
type TidyOptions struct {
	Options
	// Levels limits the pass; empty means every level.
	Levels []string
	// TidyLabels normalises Unicode and collapses whitespace in labels.
	TidyLabels   bool
	Replacements []Replacement
	// FillBlank relabels blank intervals and points when non-empty.
	FillBlank string
	// MergePauses joins neighbouring pause intervals.
	MergePauses bool
	// DryRun counts the tiers that would change without saving them.
	DryRun bool
	// ReportPath, when set, receives the report after the pass.
	ReportPath string
}

// Tidy cleans the labels of every stored tier. A tier is saved only when a
// cleanup changed it. Problems with one annotation are reported and the
// pass moves on.
func Tidy(ctx context.Context, store datastore.AnnotationDatastore, opts TidyOptions) (*Report, error) {
	if store == nil {
		return nil, corpuserr.Validation("tidy", "no datastore")
	}
	ctx, r := newRunner(ctx, "tidy", opts.Options)
	if len(opts.Levels) > 0 {
		st, err := store.LoadStructure(ctx)
		if err != nil {
			return r.report, corpuserr.WithOp("tidy", err)
		}
		for _, id := range opts.Levels {
			if _, ok := st.Level(id); !ok {
				return r.report, corpuserr.NotFound("level", id)
			}
		}
	}
	ids, err := store.AnnotationIDs(ctx)
	if err != nil {
		return r.report, corpuserr.WithOp("tidy", err)
	}
	err = r.run(ctx, ids, func(ctx context.Context, annotationID string) error {
		speakers, err := store.SpeakersInAnnotation(ctx, annotationID, false)
		if err != nil {
			return err
		}
		for _, speakerID := range speakers {
			// Dependent tiers must travel with their companion, so the whole
			// group is loaded even when Levels narrows the cleanup.
			group, err := store.Tiers(ctx, annotationID, speakerID)
			if err != nil {
				return err
			}
			changed, err := tidyGroup(ctx, r.logger, store, group, opts)
			if err != nil {
				return err
			}
			r.report.Changed += changed
		}
		return nil
	})
	if saveErr := saveReport(r, opts.ReportPath); saveErr != nil && err == nil {
		err = saveErr
	}
	return r.report, err
}

// tidyGroup cleans the tiers of one speaker and saves the changed ones in a
// single transaction. Nothing is saved when any tier of the group ends up
// invalid. It returns the number of changed tiers.
func tidyGroup(ctx context.Context, logger *slog.Logger, store datastore.TierStore, group *annotation.TierGroup, opts TidyOptions) (int, error) {
	tiers := group.Tiers()
	before := make(map[string]string, len(tiers))
	for _, tier := range tiers {
		if err := validateTier(tier); err != nil {
			return 0, onTier(group.SpeakerID, tier.Name(), err)
		}
		before[tier.Name()] = Fingerprint(tier)
	}

	for _, tier := range tiers {
		if len(opts.Levels) > 0 && !slices.Contains(opts.Levels, tier.Name()) {
			continue
		}
		mapping := tidyTier(tier, opts)
		if mapping == nil {
			continue
		}
		companion := tier.(*annotation.IntervalTier)
		for _, dep := range tiers {
			if err := remapDependent(dep, companion, mapping); err != nil {
				return 0, onTier(group.SpeakerID, dep.Name(), err)
			}
		}
	}

	changed := annotation.NewTierGroup(group.AnnotationID, group.SpeakerID)
	for _, tier := range tiers {
		if err := validateTier(tier); err != nil {
			return 0, onTier(group.SpeakerID, tier.Name(), err)
		}
		if Fingerprint(tier) == before[tier.Name()] {
			continue
		}
		changed.Add(tier)
		fields := logging.WithLevelID(logging.WithSpeakerID(logging.WithAnnotationID(context.Background(), group.AnnotationID), group.SpeakerID), tier.Name())
		logging.WithContext(fields, logger).Debug("tier tidied",
			logging.Int("elements", tier.Count()),
			logging.Bool("dry_run", opts.DryRun),
		)
	}
	if changed.Len() == 0 || opts.DryRun {
		return changed.Len(), nil
	}
	if err := store.SaveTiers(ctx, changed); err != nil {
		return 0, onTier(group.SpeakerID, strings.Join(changed.Names(), ","), err)
	}
	return changed.Len(), nil
}

// tidyTier applies the label cleanups in place. When pauses were merged it
// returns the old-to-new interval index map, otherwise nil.
func tidyTier(tier annotation.Tier, opts TidyOptions) []int {
	if opts.TidyLabels {
		tier.Relabel("", textutil.Tidy)
	}
	for _, rep := range opts.Replacements {
		if rep.Before == "" {
			tier.FillEmptyWith(rep.AttributeID, rep.After)
			continue
		}
		tier.Relabel(rep.AttributeID, func(s string) string {
			return strings.ReplaceAll(s, rep.Before, rep.After)
		})
	}
	if opts.FillBlank != "" {
		switch tier.Kind() {
		case annotation.KindIntervals, annotation.KindPoints:
			tier.FillEmptyWith("", opts.FillBlank)
		}
	}
	it, ok := tier.(*annotation.IntervalTier)
	if !ok || !opts.MergePauses {
		return nil
	}
	count := it.Count()
	mapping := it.MergeIdenticalAnnotations(annotation.PauseMarker)
	if it.Count() == count {
		return nil
	}
	return mapping
}

// remapDependent moves the indices of a sequence or relation tier bound to
// companion. Other tiers are left alone.
func remapDependent(tier annotation.Tier, companion *annotation.IntervalTier, mapping []int) error {
	switch t := tier.(type) {
	case *annotation.SequenceTier:
		if t.Companion() == companion {
			return t.RemapIndices(mapping)
		}
	case *annotation.RelationTier:
		if t.Companion() == companion {
			return t.RemapIndices(mapping)
		}
	}
	return nil
}

func validateTier(tier annotation.Tier) error {
	switch t := tier.(type) {
	case *annotation.SequenceTier:
		return t.Validate()
	case *annotation.RelationTier:
		return t.Validate()
	}
	return nil
}

func saveReport(r *runner, path string) error {
	if path == "" {
		return nil
	}
	if err := r.report.Save(path); err != nil {
		return corpuserr.IO("save report", err)
	}
	r.logger.Info("report written", logging.String("report_path", path))
	return nil
}
