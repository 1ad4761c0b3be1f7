// Package auditstore persists guard audit events in the application database.
package auditstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/quailyquaily/opguard/db/models"
	"github.com/quailyquaily/opguard/guard"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	defaultListLimit = 50
	maxListLimit     = 1000
)

type ListOptions struct {
	SessionID string
	Operation string
	Limit     int
}

// GormStore is a guard.AuditSink backed by the audit_records table.
type GormStore struct {
	DB *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{DB: db}
}

// Emit inserts the event; re-emitting the same event id is a no-op.
func (s *GormStore) Emit(ctx context.Context, e guard.AuditEvent) error {
	if s == nil || s.DB == nil {
		return fmt.Errorf("nil audit store")
	}
	if strings.TrimSpace(e.EventID) == "" {
		return fmt.Errorf("missing event id")
	}
	row := eventToModel(e)
	return s.DB.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&row).Error
}

// List returns matching records, newest first.
func (s *GormStore) List(ctx context.Context, opt ListOptions) ([]guard.AuditEvent, error) {
	if s == nil || s.DB == nil {
		return nil, fmt.Errorf("nil audit store")
	}
	limit := opt.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	q := s.DB.WithContext(ctx).Model(&models.AuditRecord{}).
		Order("created_at_unix_ms DESC").
		Limit(limit)
	if sid := strings.TrimSpace(opt.SessionID); sid != "" {
		q = q.Where("session_id = ?", sid)
	}
	if op := strings.TrimSpace(opt.Operation); op != "" {
		q = q.Where("operation = ?", op)
	}

	var rows []models.AuditRecord
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]guard.AuditEvent, 0, len(rows))
	for _, r := range rows {
		out = append(out, modelToEvent(r))
	}
	return out, nil
}

// Close is a no-op; the caller owns the *gorm.DB.
func (s *GormStore) Close() error { return nil }

func eventToModel(e guard.AuditEvent) models.AuditRecord {
	ts := e.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	return models.AuditRecord{
		EventID:         e.EventID,
		SessionID:       e.SessionID,
		Operation:       e.Operation,
		DetailsRedacted: e.DetailsRedacted,
		DetailsHash:     e.DetailsHash,
		Redacted:        e.Redacted,
		UserConfirmed:   e.UserConfirmed,
		CreatedAtUnixMs: ts.UnixMilli(),
	}
}

func modelToEvent(r models.AuditRecord) guard.AuditEvent {
	return guard.AuditEvent{
		EventID:         r.EventID,
		SessionID:       r.SessionID,
		Timestamp:       time.UnixMilli(r.CreatedAtUnixMs).UTC(),
		Operation:       r.Operation,
		DetailsRedacted: r.DetailsRedacted,
		DetailsHash:     r.DetailsHash,
		Redacted:        r.Redacted,
		UserConfirmed:   r.UserConfirmed,
	}
}
