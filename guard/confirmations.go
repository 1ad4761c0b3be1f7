package guard

import (
	"context"
	"time"
)

type ConfirmationStatus string

const (
	ConfirmationPending  ConfirmationStatus = "pending"
	ConfirmationApproved ConfirmationStatus = "approved"
	ConfirmationDenied   ConfirmationStatus = "denied"
	ConfirmationExpired  ConfirmationStatus = "expired"
)

type ConfirmationKind string

const (
	KindCommand  ConfirmationKind = "command"
	KindFileEdit ConfirmationKind = "file_edit"
)

const DefaultConfirmationTTL = 5 * time.Minute

// ConfirmationRecord is a blocked decision waiting for a human answer.
type ConfirmationRecord struct {
	ID         string
	SessionID  string
	CreatedAt  time.Time
	ExpiresAt  time.Time
	ResolvedAt *time.Time

	Status  ConfirmationStatus
	Actor   string
	Comment string

	Kind       ConfirmationKind
	Subject    string
	Rule       string
	RiskLevel  RiskLevel
	Reason     string
	Suggestion string
}

// NewConfirmationRecord builds a pending record for d. Subject is the
// command or file the decision echoed.
func NewConfirmationRecord(ctx context.Context, d Decision) ConfirmationRecord {
	rec := ConfirmationRecord{
		Status:     ConfirmationPending,
		Kind:       KindCommand,
		Subject:    d.Command,
		Rule:       d.Rule,
		RiskLevel:  d.RiskLevel,
		Reason:     d.Reason,
		Suggestion: d.Suggestion,
	}
	if d.File != "" {
		rec.Kind = KindFileEdit
		rec.Subject = d.File
	}
	if sid, ok := SessionIDFromContext(ctx); ok {
		rec.SessionID = sid
	} else {
		rec.SessionID = UnknownSession
	}
	return rec
}

type ConfirmationStore interface {
	Create(ctx context.Context, rec ConfirmationRecord) (string, error)
	Get(ctx context.Context, id string) (ConfirmationRecord, bool, error)
	Resolve(ctx context.Context, id string, status ConfirmationStatus, actor string, comment string) error
	ListPending(ctx context.Context, limit int) ([]ConfirmationRecord, error)
}
