package batch_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"annotcore/internal/annotation"
	"annotcore/internal/batch"
	"annotcore/internal/corpuserr"
	"annotcore/internal/datastore/sqlstore"
	"annotcore/internal/logging"
	"annotcore/internal/structure"
	"annotcore/internal/testsupport"
)

func tokLevel(precision int) *structure.Level {
	return &structure.Level{
		ID:       "tok",
		Kind:     structure.IndependentIntervals,
		DataType: structure.DataType{Base: structure.Varchar, Precision: precision},
	}
}

func saveTier(t *testing.T, store *sqlstore.Store, annotationID, speakerID string, tier annotation.Tier) {
	t.Helper()
	if err := store.SaveTier(context.Background(), annotationID, speakerID, tier); err != nil {
		t.Fatalf("SaveTier(%s) failed: %v", annotationID, err)
	}
}

func labels(t *testing.T, store *sqlstore.Store, annotationID, speakerID, levelID string) string {
	t.Helper()
	tier, err := store.Tier(context.Background(), annotationID, speakerID, levelID)
	if err != nil {
		t.Fatalf("Tier failed: %v", err)
	}
	return strings.Join(tier.DistinctLabels(""), "|")
}

func TestTidyCleansAndReportsProblems(t *testing.T) {
	ctx := context.Background()
	store := testsupport.MustOpenStore(t)
	testsupport.MustCreateLevels(t, store, tokLevel(8))

	saveTier(t, store, "ann1", "spk", testsupport.IntervalTier(t, "tok", " a  b", "_", "_", ""))
	saveTier(t, store, "ann2", "spk", testsupport.IntervalTier(t, "tok", "x"))
	saveTier(t, store, "ann3", "spk", testsupport.IntervalTier(t, "tok", "ok"))

	reportPath := filepath.Join(t.TempDir(), "reports", "tidy.json")
	var calls []batch.Progress
	report, err := batch.Tidy(ctx, store, batch.TidyOptions{
		Options:      batch.Options{YieldEvery: 1, OnProgress: func(p batch.Progress) { calls = append(calls, p) }},
		TidyLabels:   true,
		Replacements: []batch.Replacement{{Before: "x", After: "xxxxxxxxxx"}},
		FillBlank:    annotation.PauseMarker,
		MergePauses:  true,
		ReportPath:   reportPath,
	})
	if err != nil {
		t.Fatalf("Tidy failed: %v", err)
	}

	if report.Total != 3 || report.Processed != 3 || report.Changed != 1 {
		t.Fatalf("report counts = %+v", report)
	}
	if len(report.Problems) != 1 {
		t.Fatalf("expected one problem, got %+v", report.Problems)
	}
	p := report.Problems[0]
	if p.AnnotationID != "ann2" || p.SpeakerID != "spk" || p.LevelID != "tok" || p.Kind != "validation" {
		t.Fatalf("unexpected problem: %+v", p)
	}
	if len(calls) != 3 || calls[2].Processed != 3 || calls[2].Percent() != 100 {
		t.Fatalf("progress callbacks = %+v", calls)
	}

	tier, err := store.Tier(ctx, "ann1", "spk", "tok")
	if err != nil {
		t.Fatalf("Tier failed: %v", err)
	}
	if tier.Count() != 2 {
		t.Fatalf("expected pauses merged into one interval, got %d intervals", tier.Count())
	}
	if got := labels(t, store, "ann1", "spk", "tok"); got != "a b|_" {
		t.Fatalf("ann1 labels = %q", got)
	}
	if got := labels(t, store, "ann2", "spk", "tok"); got != "x" {
		t.Fatalf("failed annotation must be left unchanged, got %q", got)
	}

	data, err := os.ReadFile(reportPath)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	var saved batch.Report
	if err := json.Unmarshal(data, &saved); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if saved.CorrelationID == "" || saved.CorrelationID != report.CorrelationID || len(saved.Problems) != 1 {
		t.Fatalf("saved report = %+v", saved)
	}
}

func TestTidyMergePausesRemapsDependentTiers(t *testing.T) {
	ctx := context.Background()
	store := testsupport.MustOpenStore(t)
	testsupport.MustCreateLevels(t, store,
		tokLevel(16),
		&structure.Level{ID: "np", Kind: structure.Sequences, ParentLevelID: "tok"},
		&structure.Level{ID: "dep", Kind: structure.Relations, ParentLevelID: "tok"},
	)

	tok := testsupport.IntervalTier(t, "tok", "a", "_", "_", "b")
	np, err := annotation.NewSequenceTier("np", tok, []annotation.Sequence{{IndexFrom: 3, IndexTo: 3, Text: "N"}})
	if err != nil {
		t.Fatalf("NewSequenceTier failed: %v", err)
	}
	dep, err := annotation.NewRelationTier("dep", tok, []annotation.Relation{{IndexFrom: 3, IndexTo: 0, Text: "obj"}})
	if err != nil {
		t.Fatalf("NewRelationTier failed: %v", err)
	}
	group := annotation.NewTierGroup("a1", "spk")
	group.Add(tok)
	group.Add(np)
	group.Add(dep)
	if err := store.SaveTiers(ctx, group); err != nil {
		t.Fatalf("SaveTiers failed: %v", err)
	}

	report, err := batch.Tidy(ctx, store, batch.TidyOptions{MergePauses: true})
	if err != nil {
		t.Fatalf("Tidy failed: %v", err)
	}
	if len(report.Problems) != 0 || report.Changed != 3 {
		t.Fatalf("report = %+v", report)
	}

	loaded, err := store.Tiers(ctx, "a1", "spk")
	if err != nil {
		t.Fatalf("Tiers after tidy failed: %v", err)
	}
	tokens, _ := loaded.IntervalTier("tok")
	if tokens.Count() != 3 {
		t.Fatalf("tok intervals = %d, want 3", tokens.Count())
	}
	seqTier, _ := loaded.Tier("np")
	if text, err := seqTier.(*annotation.SequenceTier).CoveredText(0, " "); err != nil || text != "b" {
		t.Fatalf("np covered text = %q, %v", text, err)
	}
	relTier, _ := loaded.Tier("dep")
	if from, to, err := relTier.(*annotation.RelationTier).Endpoints(0); err != nil || from != "b" || to != "a" {
		t.Fatalf("dep endpoints = %q %q, %v", from, to, err)
	}

	again, err := batch.Tidy(ctx, store, batch.TidyOptions{MergePauses: true})
	if err != nil || again.Changed != 0 {
		t.Fatalf("second tidy = %+v, %v", again, err)
	}
}

func TestTidyRejectsUnknownLevel(t *testing.T) {
	store := testsupport.MustOpenStore(t)
	testsupport.MustCreateLevels(t, store, tokLevel(16))

	_, err := batch.Tidy(context.Background(), store, batch.TidyOptions{Levels: []string{"nope"}})
	if !corpuserr.Is(err, corpuserr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestTidyDryRunLeavesStoreUntouched(t *testing.T) {
	ctx := context.Background()
	store := testsupport.MustOpenStore(t)
	testsupport.MustCreateLevels(t, store, tokLevel(16))
	saveTier(t, store, "ann1", "spk", testsupport.IntervalTier(t, "tok", "a  b"))

	var logs bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	report, err := batch.Tidy(ctx, store, batch.TidyOptions{Options: batch.Options{Logger: logger}, TidyLabels: true, DryRun: true})
	if err != nil {
		t.Fatalf("Tidy failed: %v", err)
	}
	if report.Changed != 1 {
		t.Fatalf("dry run should count the change, got %d", report.Changed)
	}
	var tidied map[string]any
	for _, line := range strings.Split(strings.TrimSpace(logs.String()), "\n") {
		var rec map[string]any
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			t.Fatalf("decode log line %q: %v", line, err)
		}
		if rec["msg"] == "tier tidied" {
			tidied = rec
		}
	}
	for key, want := range map[string]any{
		logging.FieldAnnotationID: "ann1",
		logging.FieldSpeakerID:    "spk",
		logging.FieldLevelID:      "tok",
		"dry_run":                 true,
	} {
		if tidied[key] != want {
			t.Fatalf("tier tidied field %s = %v, want %v (record %v)", key, tidied[key], want, tidied)
		}
	}
	if got := labels(t, store, "ann1", "spk", "tok"); got != "a  b" {
		t.Fatalf("dry run saved labels: %q", got)
	}
}

func TestTidyStopsWhenCancelled(t *testing.T) {
	store := testsupport.MustOpenStore(t)
	testsupport.MustCreateLevels(t, store, tokLevel(16))
	for _, id := range []string{"ann1", "ann2", "ann3"} {
		saveTier(t, store, id, "spk", testsupport.IntervalTier(t, "tok", "a"))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	report, err := batch.Tidy(ctx, store, batch.TidyOptions{
		Options: batch.Options{OnProgress: func(batch.Progress) { cancel() }},
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if !strings.Contains(err.Error(), `"ann2"`) {
		t.Fatalf("error should name the annotation where the pass stopped: %v", err)
	}
	if report.Processed != 1 {
		t.Fatalf("processed = %d, want 1", report.Processed)
	}
}

func TestCompare(t *testing.T) {
	ctx := context.Background()
	left := testsupport.MustOpenStore(t)
	right := testsupport.MustOpenStore(t)
	testsupport.MustCreateLevels(t, left, tokLevel(16))
	testsupport.MustCreateLevels(t, right, tokLevel(16))

	saveTier(t, left, "same", "spk", testsupport.IntervalTier(t, "tok", "a", "b", "c"))
	saveTier(t, right, "same", "spk", testsupport.IntervalTier(t, "tok", "a", "b", "c"))
	saveTier(t, left, "edited", "spk", testsupport.IntervalTier(t, "tok", "a", "b", "c", "d"))
	saveTier(t, right, "edited", "spk", testsupport.TimedTier(t, "tok", 0, "a", 1.5, "x", 2, "c", 3, "d", 4))
	saveTier(t, left, "left-only", "spk", testsupport.IntervalTier(t, "tok", "a"))
	saveTier(t, right, "edited", "other", testsupport.IntervalTier(t, "tok", "z"))

	results, report, err := batch.Compare(ctx, left, right, batch.CompareOptions{})
	if err != nil {
		t.Fatalf("Compare failed: %v", err)
	}
	if report.Total != 3 {
		t.Fatalf("expected union of annotations, got total %d", report.Total)
	}

	byKey := map[string]batch.TierComparison{}
	for _, r := range results {
		byKey[r.AnnotationID+"/"+r.SpeakerID] = r
	}
	same, ok := byKey["same/spk"]
	if !ok || !same.Identical || same.Matches != 3 || same.Similarity != 1 {
		t.Fatalf("identical tier comparison = %+v", same)
	}
	edited, ok := byKey["edited/spk"]
	if !ok || edited.Identical {
		t.Fatalf("edited tier comparison = %+v", edited)
	}
	if edited.Matches != 3 || edited.Inserts != 1 || edited.Deletes != 1 || edited.Differences != 1 {
		t.Fatalf("edited counts = %+v", edited.Summary)
	}
	if edited.Similarity <= 0 || edited.Similarity >= 1 {
		t.Fatalf("edited similarity = %v", edited.Similarity)
	}

	var kinds []string
	for _, p := range report.Problems {
		kinds = append(kinds, p.AnnotationID+":"+p.SpeakerID+":"+p.Kind)
	}
	got := strings.Join(kinds, ",")
	if got != "edited:other:not_found,left-only::not_found" {
		t.Fatalf("problems = %s", got)
	}
	if report.Changed != 1 {
		t.Fatalf("changed = %d, want 1", report.Changed)
	}
}

func TestCompareRejectsUnknownLevel(t *testing.T) {
	left := testsupport.MustOpenStore(t)
	right := testsupport.MustOpenStore(t)
	testsupport.MustCreateLevels(t, left, tokLevel(16))

	_, _, err := batch.Compare(context.Background(), left, right, batch.CompareOptions{Levels: []string{"tok"}})
	if err == nil {
		t.Fatal("expected error for level missing on the right")
	}
}

func TestFingerprint(t *testing.T) {
	a := testsupport.IntervalTier(t, "tok", "a", "b")
	b := testsupport.IntervalTier(t, "word", "a", "b")
	if batch.Fingerprint(a) != batch.Fingerprint(b) {
		t.Fatal("fingerprint must not depend on the tier name")
	}

	withNil := a.Clone()
	if err := withNil.SetAttribute(0, "pos", nil); err != nil {
		t.Fatalf("SetAttribute failed: %v", err)
	}
	if batch.Fingerprint(withNil) != batch.Fingerprint(a) {
		t.Fatal("nil attributes must hash like absent ones")
	}

	tagged := a.Clone()
	if err := tagged.SetAttribute(0, "pos", "N"); err != nil {
		t.Fatalf("SetAttribute failed: %v", err)
	}
	if batch.Fingerprint(tagged) == batch.Fingerprint(a) {
		t.Fatal("attribute change must change the fingerprint")
	}

	shifted := testsupport.TimedTier(t, "tok", 0, "a", 1.5, "b", 2)
	if batch.Fingerprint(shifted) == batch.Fingerprint(a) {
		t.Fatal("boundary change must change the fingerprint")
	}
	if len(batch.Fingerprint(a)) != 32 {
		t.Fatalf("fingerprint length = %d", len(batch.Fingerprint(a)))
	}
}

func TestReportText(t *testing.T) {
	store := testsupport.MustOpenStore(t)
	testsupport.MustCreateLevels(t, store, tokLevel(2))
	saveTier(t, store, "ann1", "spk", testsupport.IntervalTier(t, "tok", "x"))

	path := filepath.Join(t.TempDir(), "tidy.tsv")
	report, err := batch.Tidy(context.Background(), store, batch.TidyOptions{
		Replacements: []batch.Replacement{{Before: "x", After: "xyz"}},
		ReportPath:   path,
	})
	if err != nil {
		t.Fatalf("Tidy failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("report lines = %q", lines)
	}
	if !strings.HasPrefix(lines[0], "# "+report.Summary()) {
		t.Fatalf("summary line = %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "ann1\tspk\ttok\tvalidation\t") {
		t.Fatalf("problem line = %q", lines[1])
	}
}
