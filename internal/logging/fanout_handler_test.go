package logging

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
)

func TestNewFanoutHandlerCollapses(t *testing.T) {
	if h := newFanoutHandler(nil, nil); h != slog.DiscardHandler {
		t.Error("expected the discard handler for all nil handlers")
	}
	var buf bytes.Buffer
	inner := slog.NewJSONHandler(&buf, nil)
	if h := newFanoutHandler(nil, inner, nil); h != inner {
		t.Error("expected single non-nil handler to be returned unwrapped")
	}
}

func TestFanoutHandlerRespectsLevels(t *testing.T) {
	var infoBuf, debugBuf, warnBuf bytes.Buffer
	h := newFanoutHandler(
		slog.NewJSONHandler(&infoBuf, &slog.HandlerOptions{Level: slog.LevelInfo}),
		slog.NewJSONHandler(&debugBuf, &slog.HandlerOptions{Level: slog.LevelDebug}),
		slog.NewJSONHandler(&warnBuf, &slog.HandlerOptions{Level: slog.LevelWarn}),
	)
	if !h.Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("expected fanout to be enabled for debug")
	}

	logger := slog.New(h)
	logger.Debug("debug only")
	if infoBuf.Len() != 0 || warnBuf.Len() != 0 {
		t.Fatal("debug record reached a handler above debug level")
	}
	if debugBuf.Len() == 0 {
		t.Fatal("debug handler missed the debug record")
	}

	logger.Info("info")
	if infoBuf.Len() == 0 || warnBuf.Len() != 0 {
		t.Fatalf("info routing wrong: info=%d warn=%d", infoBuf.Len(), warnBuf.Len())
	}
}

func TestFanoutHandlerAttrsAndGroups(t *testing.T) {
	var buf1, buf2 bytes.Buffer
	h := newFanoutHandler(slog.NewJSONHandler(&buf1, nil), slog.NewJSONHandler(&buf2, nil))
	logger := slog.New(h.WithAttrs([]slog.Attr{slog.String("corpus", "demo")}).WithGroup("tier"))
	logger.Info("saved", slog.String("name", "tok"))

	for i, buf := range []*bytes.Buffer{&buf1, &buf2} {
		for _, want := range []string{`"corpus":"demo"`, `"tier":{"name":"tok"}`} {
			if !bytes.Contains(buf.Bytes(), []byte(want)) {
				t.Errorf("handler %d missing %s: %s", i, want, buf.String())
			}
		}
	}
}
