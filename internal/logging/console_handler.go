package logging

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"
)

// consoleHandler renders records for a terminal:
//
//	2026-01-02 15:04:05.000 INFO [batch] ann-01 / A / tok - tier saved
//	    - Rows: 12,345
//
// Info lines show a few highlighted fields and drop values already shown
// for the same subject; debug lines show every field.
type consoleHandler struct {
	out       *syncWriter
	seen      *seenFields
	level     *slog.LevelVar
	addSource bool
	groups    []string
	attrs     []kv
}

type kv struct {
	key   string
	value slog.Value
}

type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) write(p []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.w.Write(p)
	return err
}

// seenFields remembers the last value of each info field per subject.
type seenFields struct {
	mu        sync.Mutex
	bySubject map[string]map[string]string
}

func newConsoleHandler(w io.Writer, lvl *slog.LevelVar, addSource bool) slog.Handler {
	return &consoleHandler{
		out:       &syncWriter{w: w},
		seen:      &seenFields{bySubject: make(map[string]map[string]string)},
		level:     lvl,
		addSource: addSource,
	}
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *consoleHandler) Handle(_ context.Context, record slog.Record) error {
	if !h.Enabled(context.Background(), record.Level) {
		return nil
	}
	fields := slices.Clone(h.attrs)
	record.Attrs(func(a slog.Attr) bool {
		fields = appendFlat(fields, h.groups, a)
		return true
	})
	fields = lastValueWins(fields)

	var component string
	var subj subject
	body := make([]kv, 0, len(fields))
	for _, f := range fields {
		switch f.key {
		case FieldComponent:
			component = plainValue(f.value)
			continue
		case FieldAnnotationID:
			subj.annotationID = plainValue(f.value)
		case FieldSpeakerID:
			subj.speakerID = plainValue(f.value)
		case FieldLevelID:
			subj.levelID = plainValue(f.value)
		}
		body = append(body, f)
	}

	ts := record.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	var buf bytes.Buffer
	h.writeHeader(&buf, ts, record.Level, component, subj, record.Message, record.Source())
	buf.WriteByte('\n')
	if record.Level < slog.LevelInfo {
		for _, f := range body {
			fmt.Fprintf(&buf, "    %s: %s\n", f.key, formatValue(f.value))
		}
	} else {
		shown, hidden := selectInfoFields(body, infoAttrLimit, false)
		shown = h.seen.novel(subj.key(component), shown, record.Level)
		for _, f := range shown {
			fmt.Fprintf(&buf, "    - %s: %s\n", f.label, f.value)
		}
		switch {
		case hidden == 1:
			buf.WriteString("    + 1 more field hidden\n")
		case hidden > 1:
			fmt.Fprintf(&buf, "    + %d more fields hidden\n", hidden)
		}
	}
	return h.out.write(buf.Bytes())
}

func (h *consoleHandler) writeHeader(buf *bytes.Buffer, ts time.Time, level slog.Level, component string, subj subject, message string, src *slog.Source) {
	buf.WriteString(formatTimestamp(ts))
	buf.WriteByte(' ')
	buf.WriteString(levelLabel(level))
	if component != "" {
		fmt.Fprintf(buf, " [%s]", component)
	}
	if s := subj.String(); s != "" {
		buf.WriteByte(' ')
		buf.WriteString(s)
	}
	message = strings.TrimSpace(message)
	if message == "" {
		message = "(no message)"
	}
	buf.WriteString(" - ")
	buf.WriteString(message)
	if h.addSource && src != nil && src.File != "" {
		fmt.Fprintf(buf, " [%s:%d]", filepath.Base(src.File), src.Line)
	}
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := h.clone()
	for _, a := range attrs {
		next.attrs = appendFlat(next.attrs, h.groups, a)
	}
	return next
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := h.clone()
	next.groups = append(next.groups, name)
	return next
}

func (h *consoleHandler) clone() *consoleHandler {
	next := *h
	next.groups = slices.Clip(h.groups)
	next.attrs = slices.Clip(h.attrs)
	return &next
}

// subject is what a record is about, shown between the component and the
// message: "ann-01 / A / tok".
type subject struct {
	annotationID string
	speakerID    string
	levelID      string
}

func (s subject) String() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{s.annotationID, s.speakerID, s.levelID} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " / ")
}

func (s subject) key(component string) string {
	if k := s.String(); k != "" {
		return k
	}
	return component
}

// novel drops info fields whose value repeats the last one shown for the
// same subject. Warnings and errors always show everything.
func (s *seenFields) novel(subjectKey string, fields []infoField, level slog.Level) []infoField {
	if subjectKey == "" || len(fields) == 0 {
		return fields
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	last, ok := s.bySubject[subjectKey]
	if !ok {
		last = make(map[string]string)
		s.bySubject[subjectKey] = last
	}
	out := fields[:0:0]
	for _, f := range fields {
		if prev, ok := last[f.label]; ok && prev == f.value && level <= slog.LevelInfo {
			continue
		}
		last[f.label] = f.value
		out = append(out, f)
	}
	return out
}

// appendFlat flattens groups into dotted keys.
func appendFlat(dst []kv, groups []string, a slog.Attr) []kv {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return dst
	}
	if a.Value.Kind() == slog.KindGroup {
		if a.Key != "" {
			groups = append(slices.Clip(groups), a.Key)
		}
		for _, member := range a.Value.Group() {
			dst = appendFlat(dst, groups, member)
		}
		return dst
	}
	key := a.Key
	if len(groups) > 0 {
		parts := slices.Clip(groups)
		if key != "" {
			parts = append(parts, key)
		}
		key = strings.Join(parts, ".")
	}
	return append(dst, kv{key: key, value: a.Value})
}

// lastValueWins keeps each key at its first position with its last value.
func lastValueWins(fields []kv) []kv {
	index := make(map[string]int, len(fields))
	out := fields[:0:0]
	for _, f := range fields {
		if f.key == "" {
			continue
		}
		if i, ok := index[f.key]; ok {
			out[i].value = f.value
			continue
		}
		index[f.key] = len(out)
		out = append(out, f)
	}
	return out
}

func levelLabel(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "ERROR"
	case level >= slog.LevelWarn:
		return "WARN"
	case level >= slog.LevelInfo:
		return "INFO"
	}
	return "DEBUG"
}
