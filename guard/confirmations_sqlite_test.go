package guard

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func newTestConfirmationStore(t *testing.T) *SQLiteConfirmationStore {
	t.Helper()
	s, err := NewSQLiteConfirmationStore(filepath.Join(t.TempDir(), "confirmations.sqlite"), time.Minute)
	if err != nil {
		t.Fatalf("NewSQLiteConfirmationStore: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func blockedDecision() Decision {
	return New().ValidateCommand("rm -rf /tmp/x")
}

func TestSQLiteConfirmationStore_CreateGetResolve(t *testing.T) {
	s := newTestConfirmationStore(t)
	ctx := WithSessionID(context.Background(), "sess-1")

	rec := NewConfirmationRecord(ctx, blockedDecision())
	id, err := s.Create(ctx, rec)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, ok, err := s.Get(ctx, id)
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if got.Status != ConfirmationPending || got.SessionID != "sess-1" {
		t.Fatalf("unexpected record: %+v", got)
	}
	if got.Kind != KindCommand || got.Subject != "rm -rf /tmp/x" || got.RiskLevel != RiskHigh {
		t.Fatalf("decision fields not persisted: %+v", got)
	}

	if err := s.Resolve(ctx, id, ConfirmationApproved, "alice", "looks fine"); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	got, _, _ = s.Get(ctx, id)
	if got.Status != ConfirmationApproved || got.Actor != "alice" || got.ResolvedAt == nil {
		t.Fatalf("unexpected resolved record: %+v", got)
	}

	err = s.Resolve(ctx, id, ConfirmationDenied, "bob", "")
	if !errors.Is(err, ErrConfirmationNotPending) {
		t.Fatalf("expected ErrConfirmationNotPending, got %v", err)
	}
}

func TestSQLiteConfirmationStore_Expiry(t *testing.T) {
	s := newTestConfirmationStore(t)
	ctx := context.Background()
	base := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return base }

	id, err := s.Create(ctx, NewConfirmationRecord(ctx, blockedDecision()))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	s.now = func() time.Time { return base.Add(2 * time.Minute) }
	got, ok, err := s.Get(ctx, id)
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if got.Status != ConfirmationExpired {
		t.Fatalf("expected expired, got %q", got.Status)
	}
	if err := s.Resolve(ctx, id, ConfirmationApproved, "alice", ""); !errors.Is(err, ErrConfirmationNotPending) {
		t.Fatalf("expected expired record to refuse resolution, got %v", err)
	}
	pending, err := s.ListPending(ctx, 10)
	if err != nil {
		t.Fatalf("ListPending: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("expired records must not be listed, got %d", len(pending))
	}
}

func TestSQLiteConfirmationStore_ListPending(t *testing.T) {
	s := newTestConfirmationStore(t)
	ctx := context.Background()
	base := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

	var ids []string
	for i := 0; i < 3; i++ {
		at := base.Add(time.Duration(i) * time.Second)
		s.now = func() time.Time { return at }
		id, err := s.Create(ctx, NewConfirmationRecord(ctx, blockedDecision()))
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		ids = append(ids, id)
	}
	s.now = func() time.Time { return base.Add(5 * time.Second) }
	if err := s.Resolve(ctx, ids[1], ConfirmationDenied, "bob", ""); err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	pending, err := s.ListPending(ctx, 0)
	if err != nil {
		t.Fatalf("ListPending: %v", err)
	}
	if len(pending) != 2 || pending[0].ID != ids[0] || pending[1].ID != ids[2] {
		t.Fatalf("unexpected pending list: %+v", pending)
	}
}

func TestSQLiteConfirmationStore_Errors(t *testing.T) {
	if _, err := NewSQLiteConfirmationStore(" ", 0); err == nil {
		t.Fatal("expected error for blank dsn")
	}

	s := newTestConfirmationStore(t)
	ctx := context.Background()
	if _, ok, err := s.Get(ctx, "cfm_missing"); ok || err != nil {
		t.Fatalf("missing id: ok=%v err=%v", ok, err)
	}
	if err := s.Resolve(ctx, "cfm_missing", ConfirmationExpired, "", ""); err == nil {
		t.Fatal("expected invalid status error")
	}
	if err := s.Resolve(ctx, "cfm_missing", ConfirmationApproved, "", ""); !errors.Is(err, ErrConfirmationNotPending) {
		t.Fatalf("expected ErrConfirmationNotPending, got %v", err)
	}
}
