package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"runtime"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"
)

const consoleTimeLayout = "2006-01-02 15:04:05"

// consoleHandler renders one line per record:
//
//	2025-03-15 10:00:01 INFO syncer · Worker 1 · RUT 91297000: entity synced files=2
//
// The component, worker and entity fields form the subject before the
// message; every other attribute follows as key=value.
type consoleHandler struct {
	out       *lockedWriter
	level     *slog.LevelVar
	subject   subject
	fields    []field
	prefix    string
	addSource bool
}

type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) write(p []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, err := l.w.Write(p)
	return err
}

type field struct {
	key   string
	value slog.Value
}

type subject struct {
	component string
	worker    string
	entity    string
}

// take stores f when it is a subject key that is still empty. It reports
// whether f belongs to the subject.
func (s *subject) take(f field) bool {
	var slot *string
	switch f.key {
	case FieldComponent:
		slot = &s.component
	case FieldWorker:
		slot = &s.worker
	case FieldEntityID:
		slot = &s.entity
	default:
		return false
	}
	if *slot == "" {
		*slot = plainValue(f.value)
	}
	return true
}

func newConsoleHandler(w io.Writer, lvl *slog.LevelVar, addSource bool) slog.Handler {
	return &consoleHandler{out: &lockedWriter{w: w}, level: lvl, addSource: addSource}
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *consoleHandler) Handle(_ context.Context, record slog.Record) error {
	subj := h.subject
	fields := slices.Clone(h.fields)
	record.Attrs(func(attr slog.Attr) bool {
		for _, f := range flatten(h.prefix, attr) {
			if !subj.take(f) {
				fields = append(fields, f)
			}
		}
		return true
	})

	ts := record.Time
	if ts.IsZero() {
		ts = time.Now()
	}

	var b strings.Builder
	b.Grow(128 + len(fields)*24)
	b.WriteString(ts.Local().Format(consoleTimeLayout))
	b.WriteByte(' ')
	b.WriteString(levelName(record.Level))
	b.WriteByte(' ')
	if s := FormatSubject(subj.component, subj.worker, subj.entity); s != "" {
		b.WriteString(s)
		b.WriteString(": ")
	}
	msg := strings.TrimSpace(record.Message)
	if msg == "" {
		msg = "(no message)"
	}
	b.WriteString(msg)

	if h.addSource && record.PC != 0 {
		frame, _ := runtime.CallersFrames([]uintptr{record.PC}).Next()
		fmt.Fprintf(&b, " [%s:%d]", filepath.Base(frame.File), frame.Line)
	}

	for _, f := range fields {
		if f.key == "" {
			continue
		}
		b.WriteByte(' ')
		b.WriteString(f.key)
		b.WriteByte('=')
		b.WriteString(quotedValue(f.value))
	}
	b.WriteByte('\n')

	return h.out.write([]byte(b.String()))
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := h.clone()
	for _, attr := range attrs {
		for _, f := range flatten(h.prefix, attr) {
			if !clone.subject.take(f) {
				clone.fields = append(clone.fields, f)
			}
		}
	}
	return clone
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := h.clone()
	clone.prefix = joinKey(h.prefix, name)
	return clone
}

func (h *consoleHandler) clone() *consoleHandler {
	clone := *h
	clone.fields = slices.Clone(h.fields)
	return &clone
}

// FormatSubject builds the component/worker/entity prefix used in console output.
func FormatSubject(component, worker, entity string) string {
	parts := make([]string, 0, 3)
	if c := strings.TrimSpace(component); c != "" {
		parts = append(parts, c)
	}
	if w := strings.TrimSpace(worker); w != "" {
		parts = append(parts, "Worker "+w)
	}
	if e := strings.TrimSpace(entity); e != "" {
		parts = append(parts, "RUT "+e)
	}
	return strings.Join(parts, " · ")
}

func flatten(prefix string, attr slog.Attr) []field {
	if attr.Equal(slog.Attr{}) {
		return nil
	}
	value := attr.Value.Resolve()
	if value.Kind() != slog.KindGroup {
		return []field{{key: joinKey(prefix, attr.Key), value: value}}
	}
	groupPrefix := prefix
	if attr.Key != "" {
		groupPrefix = joinKey(prefix, attr.Key)
	}
	var out []field
	for _, member := range value.Group() {
		out = append(out, flatten(groupPrefix, member)...)
	}
	return out
}

func joinKey(prefix, key string) string {
	switch {
	case prefix == "":
		return key
	case key == "":
		return prefix
	default:
		return prefix + "." + key
	}
}

// plainValue renders v without quoting.
func plainValue(v slog.Value) string {
	switch v.Kind() {
	case slog.KindString:
		return v.String()
	case slog.KindTime:
		if v.Time().IsZero() {
			return ""
		}
		return v.Time().Local().Format(consoleTimeLayout)
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			return err.Error()
		}
		return fmt.Sprint(v.Any())
	default:
		return v.String()
	}
}

// quotedValue renders v for key=value output, quoting values that would not
// survive splitting on whitespace.
func quotedValue(v slog.Value) string {
	s := plainValue(v)
	if s == "" || strings.ContainsFunc(s, func(r rune) bool { return r <= ' ' || r == '=' || r == '"' }) {
		return strconv.Quote(s)
	}
	return s
}

func levelName(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "ERROR"
	case level >= slog.LevelWarn:
		return "WARN"
	case level >= slog.LevelInfo:
		return "INFO"
	default:
		return "DEBUG"
	}
}
