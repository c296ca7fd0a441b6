package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func decodeEntries(t *testing.T, buf *bytes.Buffer) []LogEntry {
	t.Helper()
	var entries []LogEntry
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var e LogEntry
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			t.Fatalf("invalid log line %q: %v", line, err)
		}
		entries = append(entries, e)
	}
	return entries
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := New().SetOutput(&buf).SetLevel(LevelWarn)

	l.Debug("debug")
	l.Info("info")
	l.Warn("warn")
	l.Error("error")

	entries := decodeEntries(t, &buf)
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Level != "WARN" || entries[1].Level != "ERROR" {
		t.Errorf("unexpected levels: %s, %s", entries[0].Level, entries[1].Level)
	}
}

func TestLogger_FieldsMerge(t *testing.T) {
	var buf bytes.Buffer
	base := New().SetOutput(&buf)
	base.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }

	child := base.WithField("request_id", "abc").WithFields(map[string]interface{}{"route": "/guide"})
	child.Info("submitted", map[string]interface{}{"route": "/guide/reset", "status": 303})

	entries := decodeEntries(t, &buf)
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	e := entries[0]
	if e.Timestamp != "2026-01-02T03:04:05Z" {
		t.Errorf("unexpected timestamp %s", e.Timestamp)
	}
	if e.Fields["request_id"] != "abc" {
		t.Errorf("expected request_id abc, got %v", e.Fields["request_id"])
	}
	if e.Fields["route"] != "/guide/reset" {
		t.Errorf("expected per-call field to win, got %v", e.Fields["route"])
	}
	if len(base.fields) != 0 {
		t.Errorf("parent logger fields mutated: %v", base.fields)
	}
}

func TestLogger_ChildSharesLevel(t *testing.T) {
	var buf bytes.Buffer
	base := New().SetOutput(&buf)
	child := base.WithField("k", "v")

	base.SetLevel(LevelError)
	child.Info("hidden")
	if buf.Len() != 0 {
		t.Errorf("expected child to honor parent level, got %q", buf.String())
	}
}

func TestFromContext(t *testing.T) {
	if FromContext(context.Background()) != Default {
		t.Error("expected Default when no logger in context")
	}
	l := New()
	ctx := WithContext(context.Background(), l)
	if FromContext(ctx) != l {
		t.Error("expected logger stored in context")
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]Level{
		"debug":   LevelDebug,
		"WARNING": LevelWarn,
		" error ": LevelError,
		"":        LevelInfo,
		"verbose": LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %s, want %s", in, got, want)
		}
	}
}
