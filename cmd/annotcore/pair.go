package main

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"annotcore/internal/annotation"
	"annotcore/internal/config"
	"annotcore/internal/corpuserr"
	"annotcore/internal/datastore"
	"annotcore/internal/diff"
	"annotcore/internal/repository"
	"annotcore/internal/structure"
)

// pairFlags select the two sides of a comparison. The left side is always
// the configured corpus; the right side differs from it by speaker,
// annotation or corpus.
type pairFlags struct {
	speaker         string
	otherSpeaker    string
	otherAnnotation string
	otherRepo       string
	key             string
	attribute       string
}

func (p *pairFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&p.speaker, "speaker", "", "Speaker on the left side")
	cmd.Flags().StringVar(&p.otherSpeaker, "against-speaker", "", "Speaker on the right side (defaults to --speaker)")
	cmd.Flags().StringVar(&p.otherAnnotation, "against-annotation", "", "Annotation on the right side (defaults to the same annotation)")
	cmd.Flags().StringVar(&p.otherRepo, "against-repo", "", "Corpus repository on the right side (defaults to the configured corpus)")
	cmd.Flags().StringVar(&p.key, "key", "", "Comparison key: text, folded or attribute (defaults to the configuration)")
	cmd.Flags().StringVar(&p.attribute, "attribute", "", "Attribute compared when --key=attribute")
}

// tierPair holds both sides of a comparison.
type tierPair struct {
	left, right *annotation.TierGroup
	structure   *structure.AnnotationStructure
	// rightStore is where the right side was read from.
	rightStore datastore.AnnotationDatastore
}

func (p pairFlags) comparisonKey(cfg *config.Config) (diff.Key[annotation.Interval], error) {
	name, attr := cfg.Diff.Key, cfg.Diff.Attribute
	if strings.TrimSpace(p.key) != "" {
		name, attr = p.key, p.attribute
	}
	return diff.ParseKey(name, attr)
}

// withPair loads the requested levels of both sides and calls fn while the
// repositories are open.
func (c *commandContext) withPair(cmd *cobra.Command, annotationID string, p pairFlags, levels []string, fn func(tierPair) error) error {
	rightAnnotation := firstNonEmpty(p.otherAnnotation, annotationID)
	rightSpeaker := firstNonEmpty(p.otherSpeaker, p.speaker)
	if p.otherRepo == "" && rightAnnotation == annotationID && rightSpeaker == p.speaker {
		return corpuserr.Validation("compare", "left and right are the same tiers; pass --against-speaker, --against-annotation or --against-repo")
	}
	return c.withRepository(cmd, "", func(repo *repository.Repository) error {
		ctx := commandCtx(cmd)
		left, err := repo.Annotations().Tiers(ctx, annotationID, p.speaker, levels...)
		if err != nil {
			return err
		}
		load := func(store datastore.AnnotationDatastore) error {
			right, err := store.Tiers(ctx, rightAnnotation, rightSpeaker, levels...)
			if err != nil {
				return err
			}
			return fn(tierPair{left: left, right: right, structure: repo.Structure(), rightStore: store})
		}
		if p.otherRepo == "" {
			return load(repo.Annotations())
		}
		return c.withRepository(cmd, p.otherRepo, func(other *repository.Repository) error {
			return load(other.Annotations())
		})
	})
}

// intervalPair returns the interval tiers of one level on both sides. A
// side without data gets an empty tier.
func (t tierPair) intervalPair(levelID string) (*annotation.IntervalTier, *annotation.IntervalTier, error) {
	get := func(g *annotation.TierGroup) (*annotation.IntervalTier, error) {
		tier, ok := g.Tier(levelID)
		if !ok {
			return annotation.NewIntervalTier(levelID, 0, 0)
		}
		it, ok := tier.(*annotation.IntervalTier)
		if !ok {
			return nil, corpuserr.Validation("level "+levelID, "is a %s level, not intervals", tier.Kind())
		}
		return it, nil
	}
	a, err := get(t.left)
	if err != nil {
		return nil, nil, err
	}
	b, err := get(t.right)
	if err != nil {
		return nil, nil, err
	}
	return a, b, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

var errNoLevels = errors.New("no interval levels to compare")
