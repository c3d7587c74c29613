package preview_test

import (
	"context"
	"testing"
	"time"

	"annotcore/internal/annotation"
	"annotcore/internal/corpuserr"
	"annotcore/internal/datastore"
	"annotcore/internal/preview"
	"annotcore/internal/structure"
	"annotcore/internal/testsupport"
)

// blockingStore blocks reads of the "slow" annotation until they are
// cancelled.
type blockingStore struct {
	datastore.TierStore
	started chan string
}

func (s *blockingStore) Tiers(ctx context.Context, annotationID, speakerID string, levelIDs ...string) (*annotation.TierGroup, error) {
	s.started <- annotationID
	if annotationID == "slow" {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	tier, err := annotation.NewIntervalTier("tok", 0, annotation.Second)
	if err != nil {
		return nil, err
	}
	g := annotation.NewTierGroup(annotationID, speakerID)
	g.Add(tier)
	return g, nil
}

func receive(t *testing.T, f *preview.Fetcher) preview.Result {
	t.Helper()
	select {
	case res, ok := <-f.Results():
		if !ok {
			t.Fatal("results closed early")
		}
		return res
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for preview result")
	}
	return preview.Result{}
}

func TestNewestBindWins(t *testing.T) {
	store := &blockingStore{started: make(chan string, 4)}
	f := preview.NewFetcher(store, nil)

	slowGen, err := f.Bind(context.Background(), preview.Request{AnnotationID: "slow", SpeakerID: "spk"})
	if err != nil {
		t.Fatalf("Bind failed: %v", err)
	}
	if got := <-store.started; got != "slow" {
		t.Fatalf("first read = %q", got)
	}
	fastGen, err := f.Bind(context.Background(), preview.Request{AnnotationID: "fast", SpeakerID: "spk"})
	if err != nil {
		t.Fatalf("Bind failed: %v", err)
	}
	if fastGen <= slowGen || f.Generation() != fastGen {
		t.Fatalf("generations slow=%d fast=%d current=%d", slowGen, fastGen, f.Generation())
	}

	res := receive(t, f)
	if res.Generation != fastGen || res.AnnotationID != "fast" || res.Err != nil {
		t.Fatalf("unexpected result: %+v", res)
	}
	if res.Group == nil || res.Group.Len() != 1 {
		t.Fatalf("unexpected group: %+v", res.Group)
	}

	f.Close()
	for stale := range f.Results() {
		t.Fatalf("stale result delivered: %+v", stale)
	}
}

func TestFetchFromStore(t *testing.T) {
	ctx := context.Background()
	store := testsupport.MustOpenStore(t)
	testsupport.MustCreateLevels(t, store, &structure.Level{ID: "tok", Kind: structure.IndependentIntervals, DataType: structure.Text})
	if err := store.SaveTier(ctx, "ann1", "spk", testsupport.IntervalTier(t, "tok", "a", "b")); err != nil {
		t.Fatalf("SaveTier failed: %v", err)
	}

	f := preview.NewFetcher(store, nil)
	defer f.Close()
	gen, err := f.Bind(ctx, preview.Request{AnnotationID: "ann1", SpeakerID: "spk", Levels: []string{"tok"}})
	if err != nil {
		t.Fatalf("Bind failed: %v", err)
	}
	res := receive(t, f)
	if res.Generation != gen || res.Err != nil {
		t.Fatalf("unexpected result: %+v", res)
	}
	tier, ok := res.Group.IntervalTier("tok")
	if !ok || tier.Count() != 2 {
		t.Fatalf("unexpected tier: %+v", res.Group.Names())
	}

	if _, err := f.Bind(ctx, preview.Request{AnnotationID: "ann1", Levels: []string{"missing"}}); err != nil {
		t.Fatalf("Bind failed: %v", err)
	}
	if res := receive(t, f); !corpuserr.Is(res.Err, corpuserr.KindNotFound) {
		t.Fatalf("expected not found for unknown level, got %v", res.Err)
	}
}

func TestBindValidation(t *testing.T) {
	f := preview.NewFetcher(&blockingStore{started: make(chan string, 1)}, nil)
	if _, err := f.Bind(context.Background(), preview.Request{}); !corpuserr.Is(err, corpuserr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	f.Close()
	f.Close()
	if _, err := f.Bind(context.Background(), preview.Request{AnnotationID: "a"}); err == nil {
		t.Fatal("expected error after Close")
	}
}
