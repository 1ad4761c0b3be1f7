package auditstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/quailyquaily/opguard/db"
	"github.com/quailyquaily/opguard/guard"
)

func newTestStore(t *testing.T) *GormStore {
	t.Helper()
	cfg := db.DefaultConfig()
	cfg.DSN = filepath.Join(t.TempDir(), "audit.sqlite")
	gdb, err := db.Open(context.Background(), cfg)
	if err != nil {
		t.Fatalf("db.Open: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return NewGormStore(gdb)
}

func TestGormStore_EmitList(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)

	events := []guard.AuditEvent{
		{EventID: "e1", SessionID: "a", Operation: "command_checked", Timestamp: base},
		{EventID: "e2", SessionID: "a", Operation: "file_edit_checked", Timestamp: base.Add(time.Second)},
		{EventID: "e3", SessionID: "b", Operation: "command_checked", Timestamp: base.Add(2 * time.Second), Redacted: true, DetailsRedacted: "Bearer [redacted]"},
	}
	for _, e := range events {
		if err := s.Emit(ctx, e); err != nil {
			t.Fatalf("Emit %s: %v", e.EventID, err)
		}
	}
	// Duplicate ids are ignored.
	if err := s.Emit(ctx, events[0]); err != nil {
		t.Fatalf("duplicate Emit: %v", err)
	}

	cases := []struct {
		name string
		opt  ListOptions
		want []string
	}{
		{"all newest first", ListOptions{}, []string{"e3", "e2", "e1"}},
		{"session filter", ListOptions{SessionID: "a"}, []string{"e2", "e1"}},
		{"operation filter", ListOptions{Operation: "command_checked"}, []string{"e3", "e1"}},
		{"both filters", ListOptions{SessionID: "b", Operation: "command_checked"}, []string{"e3"}},
		{"limit", ListOptions{Limit: 1}, []string{"e3"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := s.List(ctx, tc.opt)
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if len(got) != len(tc.want) {
				t.Fatalf("expected %d events, got %d", len(tc.want), len(got))
			}
			for i := range got {
				if got[i].EventID != tc.want[i] {
					t.Fatalf("event %d: got %s, want %s", i, got[i].EventID, tc.want[i])
				}
			}
		})
	}

	got, _ := s.List(ctx, ListOptions{SessionID: "b"})
	if !got[0].Redacted || got[0].DetailsRedacted != "Bearer [redacted]" || !got[0].Timestamp.Equal(events[2].Timestamp) {
		t.Fatalf("fields not round-tripped: %+v", got[0])
	}
}

func TestGormStore_EmitValidation(t *testing.T) {
	s := newTestStore(t)
	if err := s.Emit(context.Background(), guard.AuditEvent{}); err == nil {
		t.Fatal("expected error for missing event id")
	}
	var nilStore *GormStore
	if err := nilStore.Emit(context.Background(), guard.AuditEvent{EventID: "x"}); err == nil {
		t.Fatal("expected error for nil store")
	}
}

func TestGormStore_AsEvaluatorSink(t *testing.T) {
	s := newTestStore(t)
	e := guard.New(guard.WithAuditSink(s))
	ctx := guard.WithSessionID(context.Background(), "sess-9")

	entry := e.LogOperation(ctx, "command_checked", map[string]any{"command": "ls"}, false)

	got, err := s.List(ctx, ListOptions{SessionID: "sess-9"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 1 || got[0].EventID != entry.ID || got[0].DetailsHash == "" {
		t.Fatalf("unexpected persisted events: %+v", got)
	}
}
