package guard

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func readJSONLEvents(t *testing.T, path string) []AuditEvent {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()

	var out []AuditEvent
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var ev AuditEvent
		if err := json.Unmarshal(sc.Bytes(), &ev); err != nil {
			t.Fatalf("decode line %q: %v", sc.Text(), err)
		}
		out = append(out, ev)
	}
	if err := sc.Err(); err != nil {
		t.Fatalf("scan: %v", err)
	}
	return out
}

func TestJSONLAuditSink_Emit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "audit.jsonl")
	s, err := NewJSONLAuditSink(path, 0)
	if err != nil {
		t.Fatalf("NewJSONLAuditSink: %v", err)
	}
	if s.RotateMaxBytes != defaultRotateMaxBytes {
		t.Fatalf("expected default rotation size, got %d", s.RotateMaxBytes)
	}

	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for _, id := range []string{"e1", "e2"} {
		if err := s.Emit(context.Background(), AuditEvent{EventID: id, SessionID: "s", Timestamp: ts, Operation: "command_checked"}); err != nil {
			t.Fatalf("Emit: %v", err)
		}
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	events := readJSONLEvents(t, path)
	if len(events) != 2 || events[0].EventID != "e1" || events[1].EventID != "e2" {
		t.Fatalf("unexpected events: %+v", events)
	}
	if !events[0].Timestamp.Equal(ts) {
		t.Fatalf("timestamp mismatch: %v", events[0].Timestamp)
	}

	st, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := st.Mode().Perm(); perm != 0o600 {
		t.Fatalf("expected 0600 permissions, got %o", perm)
	}

	if err := s.Emit(context.Background(), AuditEvent{EventID: "late"}); err == nil {
		t.Fatal("expected emit after close to fail")
	}
}

func TestJSONLAuditSink_Rotate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "audit.jsonl")
	s, err := NewJSONLAuditSink(path, 200)
	if err != nil {
		t.Fatalf("NewJSONLAuditSink: %v", err)
	}
	defer s.Close()

	ev := AuditEvent{EventID: "x", Operation: "op", DetailsRedacted: strings.Repeat("a", 120)}
	for i := 0; i < 3; i++ {
		if err := s.Emit(context.Background(), ev); err != nil {
			t.Fatalf("Emit %d: %v", i, err)
		}
	}

	matches, err := filepath.Glob(path + ".*")
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) == 0 {
		t.Fatal("expected at least one rotated file")
	}
	if got := readJSONLEvents(t, path); len(got) != 1 {
		t.Fatalf("expected the live file to hold one event, got %d", len(got))
	}
}

func TestJSONLAuditSink_MissingPath(t *testing.T) {
	if _, err := NewJSONLAuditSink("  ", 0); err == nil {
		t.Fatal("expected error for blank path")
	}
}
