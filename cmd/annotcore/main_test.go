package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"annotcore/internal/annotation"
	"annotcore/internal/corpuserr"
	"annotcore/internal/repository"
	"annotcore/internal/testsupport"
)

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out := mustRunCLI(t, env, "config", "validate")
	requireContains(t, out, "Configuration valid")
	requireContains(t, out, env.repoDir)

	target := filepath.Join(t.TempDir(), "config.toml")
	out = mustRunCLI(t, env, "config", "init", "--path", target)
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}
	if _, _, err := runCLI(t, env, "config", "init", "--path", target); err == nil {
		t.Fatal("expected error when config exists")
	}
}

func TestConfigSamplePrintsWrittenFile(t *testing.T) {
	env := setupCLITestEnv(t)

	target := filepath.Join(t.TempDir(), "config.toml")
	mustRunCLI(t, env, "config", "init", "--path", target)
	written, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	out := mustRunCLI(t, env, "config", "sample")
	if out != string(written) {
		t.Fatalf("config sample differs from config init output:\n%s", out)
	}
	requireContains(t, out, "repository_dir")
}

func TestInitAndStructureCommands(t *testing.T) {
	env := setupCLITestEnv(t)

	out := mustRunCLI(t, env, "init", "--name", "demo")
	requireContains(t, out, `Created corpus "demo"`)
	if _, _, err := runCLI(t, env, "init"); !corpuserr.Is(err, corpuserr.KindSchemaConflict) {
		t.Fatalf("second init: expected schema conflict, got %v", err)
	}

	doc := filepath.Join(env.baseDir, "structure.xml")
	xml := `<AnnotationStructure>
  <AnnotationStructureLevel id="tok" levelType="independentintervals"/>
  <AnnotationStructureLevel id="syll" levelType="independentintervals"/>
</AnnotationStructure>`
	if err := os.WriteFile(doc, []byte(xml), 0o644); err != nil {
		t.Fatalf("write structure: %v", err)
	}
	out = mustRunCLI(t, env, "structure", "import", doc)
	requireContains(t, out, "Created levels: tok, syll")

	mustRunCLI(t, env, "level", "create", "np", "--kind", "sequences", "--parent", "tok")
	mustRunCLI(t, env, "attribute", "create", "tok", "pos", "--length", "16")
	mustRunCLI(t, env, "attribute", "rename", "tok", "pos", "upos")
	mustRunCLI(t, env, "level", "rename", "syll", "syl")

	out = mustRunCLI(t, env, "--json", "structure")
	var levels []struct {
		ID         string   `json:"id"`
		Kind       string   `json:"kind"`
		Attributes []string `json:"attributes"`
	}
	if err := json.Unmarshal([]byte(out), &levels); err != nil {
		t.Fatalf("decode structure: %v\n%s", err, out)
	}
	if len(levels) != 3 || levels[0].ID != "tok" || levels[1].ID != "syl" || levels[2].Kind != "sequences" {
		t.Fatalf("unexpected levels: %+v", levels)
	}
	if len(levels[0].Attributes) != 1 || levels[0].Attributes[0] != "upos:varchar(16)" {
		t.Fatalf("unexpected attributes: %v", levels[0].Attributes)
	}

	out = mustRunCLI(t, env, "structure", "export")
	requireContains(t, out, `id="syl"`)

	mustRunCLI(t, env, "level", "delete", "np")
	out = mustRunCLI(t, env, "health")
	requireContains(t, out, "Integrity: ok")
}

func TestDiffMergeAndAlign(t *testing.T) {
	env := setupCLITestEnv(t)
	mustRunCLI(t, env, "init")
	mustRunCLI(t, env, "level", "create", "tok")

	saveTiers(t, env.repoDir, "ann1", "ref", testsupport.IntervalTier(t, "tok", "a", "b", "c", "d", "e"))
	saveTiers(t, env.repoDir, "ann1", "asr", testsupport.TimedTier(t, "tok", 0.5, "a", 1.5, "b", 2.5, "c", 3.5, "d", 4.5, "e", 5.5))
	saveTiers(t, env.repoDir, "ann1", "alt", testsupport.IntervalTier(t, "tok", "a", "x", "c", "d", "e"))

	out := mustRunCLI(t, env, "--json", "show", "ann1", "--speaker", "alt")
	var shown []tierView
	if err := json.Unmarshal([]byte(out), &shown); err != nil {
		t.Fatalf("decode show: %v", err)
	}
	if len(shown) != 1 || shown[0].Level != "tok" || len(shown[0].Elements) != 5 || shown[0].Elements[1].Label != "x" {
		t.Fatalf("show = %+v", shown)
	}

	out = mustRunCLI(t, env, "diff", "ann1", "tok", "--speaker", "ref", "--against-speaker", "alt")
	requireContains(t, out, "4 matched, 1 inserted, 1 deleted, 1 differences")

	out = mustRunCLI(t, env, "--json", "diff", "ann1", "tok", "--speaker", "ref", "--against-speaker", "alt")
	var view struct {
		Script string `json:"script"`
	}
	if err := json.Unmarshal([]byte(out), &view); err != nil {
		t.Fatalf("decode diff: %v", err)
	}
	if view.Script != "=-+===" {
		t.Fatalf("script = %q", view.Script)
	}

	if _, _, err := runCLI(t, env, "diff", "ann1", "tok", "--speaker", "ref"); !corpuserr.Is(err, corpuserr.KindValidation) {
		t.Fatalf("diff against itself: expected validation error, got %v", err)
	}

	out = mustRunCLI(t, env, "--json", "merge", "ann1", "--count", "--speaker", "ref", "--against-speaker", "alt")
	var summaries []struct {
		LevelID     string
		Differences int
	}
	if err := json.Unmarshal([]byte(out), &summaries); err != nil {
		t.Fatalf("decode summaries: %v", err)
	}
	if len(summaries) != 1 || summaries[0].LevelID != "tok" || summaries[0].Differences != 1 {
		t.Fatalf("summaries = %+v", summaries)
	}
	out = mustRunCLI(t, env, "merge", "ann1", "--speaker", "ref", "--against-speaker", "alt")
	requireContains(t, out, "+ x")

	out = mustRunCLI(t, env, "align", "ann1", "tok", "--speaker", "ref", "--against-speaker", "asr", "--save")
	requireContains(t, out, "Retimed tier saved")

	withRepo(t, env.repoDir, func(repo *repository.Repository) {
		tier, err := repo.Annotations().Tier(t.Context(), "ann1", "asr", "tok")
		if err != nil {
			t.Fatalf("Tier failed: %v", err)
		}
		it := tier.(*annotation.IntervalTier)
		for i, iv := range it.Intervals() {
			if iv.TMin != annotation.RealTime(i)*annotation.Second || iv.TMax != annotation.RealTime(i+1)*annotation.Second {
				t.Fatalf("interval %d not snapped to reference: %+v", i, iv)
			}
		}
	})
}

func TestTidyAndCompareCommands(t *testing.T) {
	env := setupCLITestEnv(t)
	mustRunCLI(t, env, "init")
	mustRunCLI(t, env, "level", "create", "tok")
	saveTiers(t, env.repoDir, "ann1", "spk", testsupport.IntervalTier(t, "tok", "a  b", "", "c"))

	out := mustRunCLI(t, env, "tidy", "--fill-blank", "_", "--replace", "c=C")
	requireContains(t, out, "1 of 1 annotations processed, 1 changed, 0 problems")

	other := filepath.Join(env.baseDir, "other")
	mustRunCLI(t, env, "--repo", other, "init")
	mustRunCLI(t, env, "--repo", other, "level", "create", "tok")
	saveTiers(t, other, "ann1", "spk", testsupport.IntervalTier(t, "tok", "a b", "_", "C"))

	out = mustRunCLI(t, env, "--json", "compare", other)
	var result struct {
		Tiers []struct {
			AnnotationID string
			Identical    bool
		} `json:"tiers"`
	}
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("decode compare: %v\n%s", err, out)
	}
	if len(result.Tiers) != 1 || !result.Tiers[0].Identical {
		t.Fatalf("compare after tidy = %+v", result.Tiers)
	}

	if _, err := parseReplacements([]string{"broken"}); err == nil {
		t.Fatal("expected error for replacement without '='")
	}
	reps, err := parseReplacements([]string{"pos:N=NOUN", "a=b"})
	if err != nil {
		t.Fatalf("parseReplacements failed: %v", err)
	}
	if reps[0].AttributeID != "pos" || reps[0].Before != "N" || reps[1].AttributeID != "" {
		t.Fatalf("replacements = %+v", reps)
	}
	if got := strings.Join(splitList(" a, ,b "), "|"); got != "a|b" {
		t.Fatalf("splitList = %q", got)
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{corpuserr.Validation("flag", "bad"), 2},
		{corpuserr.NotFound("level", "tok"), 3},
		{corpuserr.WithOp("create level", corpuserr.SchemaConflict("level", "tok")), 4},
		{os.ErrPermission, 1},
	}
	for _, tt := range tests {
		if got := exitCode(tt.err); got != tt.want {
			t.Errorf("exitCode(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
