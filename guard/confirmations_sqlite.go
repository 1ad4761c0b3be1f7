package guard

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/glebarez/go-sqlite"
)

var ErrConfirmationNotPending = errors.New("confirmation is not pending")

type SQLiteConfirmationStore struct {
	dsn string
	ttl time.Duration
	now func() time.Time

	mu sync.Mutex
	db *sql.DB
}

func NewSQLiteConfirmationStore(dsn string, ttl time.Duration) (*SQLiteConfirmationStore, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, fmt.Errorf("missing sqlite dsn")
	}
	if ttl <= 0 {
		ttl = DefaultConfirmationTTL
	}
	s := &SQLiteConfirmationStore{dsn: dsn, ttl: ttl, now: time.Now}
	if err := s.open(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLiteConfirmationStore) Create(ctx context.Context, rec ConfirmationRecord) (string, error) {
	if s == nil {
		return "", fmt.Errorf("nil confirmation store")
	}
	if err := s.ensureOpen(); err != nil {
		return "", err
	}

	now := s.now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	if rec.ExpiresAt.IsZero() {
		rec.ExpiresAt = rec.CreatedAt.Add(s.ttl)
	}
	rec.Status = ConfirmationPending
	if strings.TrimSpace(rec.SessionID) == "" {
		rec.SessionID = UnknownSession
	}

	id := strings.TrimSpace(rec.ID)
	if id == "" {
		id = "cfm_" + randHex(12)
	}

	_, err := s.db.ExecContext(ctx, `
INSERT INTO guard_confirmations (
  id, session_id, created_at_unix, expires_at_unix, resolved_at_unix,
  status, actor, comment,
  kind, subject, rule, risk_level, reason, suggestion
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`, id, rec.SessionID, rec.CreatedAt.Unix(), rec.ExpiresAt.Unix(), nullTimeUnix(rec.ResolvedAt),
		string(rec.Status), strings.TrimSpace(rec.Actor), strings.TrimSpace(rec.Comment),
		string(rec.Kind), rec.Subject, rec.Rule, string(rec.RiskLevel), rec.Reason, rec.Suggestion,
	)
	if err != nil {
		return "", fmt.Errorf("insert confirmation: %w", err)
	}
	return id, nil
}

// Get loads a record. A pending record past its expiry reports as expired.
func (s *SQLiteConfirmationStore) Get(ctx context.Context, id string) (ConfirmationRecord, bool, error) {
	if s == nil {
		return ConfirmationRecord{}, false, fmt.Errorf("nil confirmation store")
	}
	if err := s.ensureOpen(); err != nil {
		return ConfirmationRecord{}, false, err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return ConfirmationRecord{}, false, nil
	}

	row := s.db.QueryRowContext(ctx, `SELECT `+confirmationColumns+` FROM guard_confirmations WHERE id = ?`, id)
	rec, err := scanConfirmation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ConfirmationRecord{}, false, nil
	}
	if err != nil {
		return ConfirmationRecord{}, false, err
	}
	if rec.Status == ConfirmationPending && !s.now().Before(rec.ExpiresAt) {
		rec.Status = ConfirmationExpired
	}
	return rec, true, nil
}

// Resolve approves or denies a pending, unexpired record.
func (s *SQLiteConfirmationStore) Resolve(ctx context.Context, id string, status ConfirmationStatus, actor string, comment string) error {
	if s == nil {
		return fmt.Errorf("nil confirmation store")
	}
	if err := s.ensureOpen(); err != nil {
		return err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("missing confirmation id")
	}
	switch status {
	case ConfirmationApproved, ConfirmationDenied:
	default:
		return fmt.Errorf("invalid confirmation status: %q", status)
	}

	now := s.now().UTC().Unix()
	res, err := s.db.ExecContext(ctx, `
UPDATE guard_confirmations
SET status = ?, actor = ?, comment = ?, resolved_at_unix = ?
WHERE id = ? AND status = ? AND expires_at_unix > ?
`, string(status), strings.TrimSpace(actor), strings.TrimSpace(comment), now, id, string(ConfirmationPending), now)
	if err != nil {
		return fmt.Errorf("resolve confirmation: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", id, ErrConfirmationNotPending)
	}
	return nil
}

func (s *SQLiteConfirmationStore) ListPending(ctx context.Context, limit int) ([]ConfirmationRecord, error) {
	if s == nil {
		return nil, fmt.Errorf("nil confirmation store")
	}
	if err := s.ensureOpen(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT `+confirmationColumns+`
FROM guard_confirmations
WHERE status = ? AND expires_at_unix > ?
ORDER BY created_at_unix ASC
LIMIT ?
`, string(ConfirmationPending), s.now().UTC().Unix(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ConfirmationRecord
	for rows.Next() {
		rec, err := scanConfirmation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *SQLiteConfirmationStore) Close() error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

const confirmationColumns = `
  id, session_id, created_at_unix, expires_at_unix, resolved_at_unix,
  status, actor, comment,
  kind, subject, rule, risk_level, reason, suggestion`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConfirmation(sc rowScanner) (ConfirmationRecord, error) {
	var (
		rec            ConfirmationRecord
		createdAtUnix  int64
		expiresAtUnix  int64
		resolvedAtUnix sql.NullInt64
		status         string
		kind           string
		riskLevel      string
	)
	err := sc.Scan(
		&rec.ID, &rec.SessionID, &createdAtUnix, &expiresAtUnix, &resolvedAtUnix,
		&status, &rec.Actor, &rec.Comment,
		&kind, &rec.Subject, &rec.Rule, &riskLevel, &rec.Reason, &rec.Suggestion,
	)
	if err != nil {
		return ConfirmationRecord{}, err
	}
	rec.CreatedAt = time.Unix(createdAtUnix, 0).UTC()
	rec.ExpiresAt = time.Unix(expiresAtUnix, 0).UTC()
	if resolvedAtUnix.Valid {
		t := time.Unix(resolvedAtUnix.Int64, 0).UTC()
		rec.ResolvedAt = &t
	}
	rec.Status = ConfirmationStatus(status)
	rec.Kind = ConfirmationKind(kind)
	rec.RiskLevel = RiskLevel(riskLevel)
	return rec, nil
}

func (s *SQLiteConfirmationStore) open() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db != nil {
		return nil
	}
	db, err := sql.Open("sqlite", s.dsn)
	if err != nil {
		return err
	}
	s.db = db
	return s.migrate()
}

func (s *SQLiteConfirmationStore) ensureOpen() error {
	s.mu.Lock()
	open := s.db != nil
	s.mu.Unlock()
	if open {
		return nil
	}
	return s.open()
}

func (s *SQLiteConfirmationStore) migrate() error {
	if s.db == nil {
		return fmt.Errorf("sqlite db is not open")
	}
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS guard_confirmations (
  id TEXT PRIMARY KEY,
  session_id TEXT NOT NULL,
  created_at_unix INTEGER NOT NULL,
  expires_at_unix INTEGER NOT NULL,
  resolved_at_unix INTEGER,
  status TEXT NOT NULL,
  actor TEXT,
  comment TEXT,
  kind TEXT NOT NULL,
  subject TEXT,
  rule TEXT,
  risk_level TEXT,
  reason TEXT,
  suggestion TEXT
);
CREATE INDEX IF NOT EXISTS idx_guard_confirmations_status ON guard_confirmations(status);
`)
	return err
}

func randHex(nbytes int) string {
	if nbytes <= 0 {
		nbytes = 12
	}
	b := make([]byte, nbytes)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

func nullTimeUnix(t *time.Time) any {
	if t == nil || t.IsZero() {
		return nil
	}
	return t.UTC().Unix()
}
