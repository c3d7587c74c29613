package testsupport

import (
	"context"
	"path/filepath"
	"testing"

	"annotcore/internal/annotation"
	"annotcore/internal/datastore/sqlstore"
	"annotcore/internal/logging"
	"annotcore/internal/structure"
)

// MustOpenStore opens an empty SQLite annotation store in a temp directory
// and registers cleanup.
func MustOpenStore(t testing.TB) *sqlstore.Store {
	t.Helper()

	store, err := sqlstore.Open(context.Background(), filepath.Join(t.TempDir(), "corpus.db"), logging.NewNop())
	if err != nil {
		t.Fatalf("sqlstore.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

// MustOpenMetadata opens an empty metadata store in a temp directory.
func MustOpenMetadata(t testing.TB) *sqlstore.MetadataStore {
	t.Helper()

	store, err := sqlstore.OpenMetadata(context.Background(), filepath.Join(t.TempDir(), "corpus.db"), logging.NewNop())
	if err != nil {
		t.Fatalf("sqlstore.OpenMetadata: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

// MustCreateLevels declares levels on store in order.
func MustCreateLevels(t testing.TB, store interface {
	CreateLevel(context.Context, *structure.Level) error
}, levels ...*structure.Level) {
	t.Helper()

	for _, l := range levels {
		if err := store.CreateLevel(context.Background(), l); err != nil {
			t.Fatalf("CreateLevel(%s): %v", l.ID, err)
		}
	}
}

// IntervalTier builds a tier of one-second intervals carrying labels in
// order, starting at zero.
func IntervalTier(t testing.TB, name string, labels ...string) *annotation.IntervalTier {
	t.Helper()

	intervals := make([]annotation.Interval, len(labels))
	for i, label := range labels {
		intervals[i] = annotation.Interval{
			TMin: annotation.RealTime(i) * annotation.Second,
			TMax: annotation.RealTime(i+1) * annotation.Second,
			Text: label,
		}
	}
	tier, err := annotation.BuildIntervalTier(name, intervals, 0, annotation.RealTime(len(labels))*annotation.Second, "")
	if err != nil {
		t.Fatalf("BuildIntervalTier(%s): %v", name, err)
	}
	return tier
}

// TimedTier builds an interval tier from alternating boundaries and labels:
// TimedTier(t, "tok", 0, "a", 1.5, "b", 3) yields [0,1.5] "a" and [1.5,3] "b".
// Times are seconds.
func TimedTier(t testing.TB, name string, layout ...any) *annotation.IntervalTier {
	t.Helper()

	if len(layout) < 3 || len(layout)%2 == 0 {
		t.Fatalf("TimedTier(%s): layout must alternate times and labels, got %d items", name, len(layout))
	}
	seconds := func(v any) annotation.RealTime {
		switch x := v.(type) {
		case int:
			return annotation.RealTime(x) * annotation.Second
		case float64:
			return annotation.Seconds(x)
		}
		t.Fatalf("TimedTier(%s): bad time %v", name, v)
		return 0
	}
	var intervals []annotation.Interval
	for i := 1; i < len(layout); i += 2 {
		label, ok := layout[i].(string)
		if !ok {
			t.Fatalf("TimedTier(%s): label %v is not a string", name, layout[i])
		}
		intervals = append(intervals, annotation.Interval{TMin: seconds(layout[i-1]), TMax: seconds(layout[i+1]), Text: label})
	}
	tier, err := annotation.BuildIntervalTier(name, intervals, intervals[0].TMin, intervals[len(intervals)-1].TMax, "")
	if err != nil {
		t.Fatalf("BuildIntervalTier(%s): %v", name, err)
	}
	return tier
}
