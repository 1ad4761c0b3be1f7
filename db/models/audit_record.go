package models

type AuditRecord struct {
	EventID         string `gorm:"column:event_id;type:text;primaryKey"`
	SessionID       string `gorm:"column:session_id;type:text;not null;index:idx_audit_session_created,priority:1"`
	Operation       string `gorm:"column:operation;type:text;not null;index:idx_audit_operation"`
	DetailsRedacted string `gorm:"column:details_redacted;type:text"`
	DetailsHash     string `gorm:"column:details_hash;type:text"`
	Redacted        bool   `gorm:"column:redacted;not null"`
	UserConfirmed   bool   `gorm:"column:user_confirmed;not null"`
	CreatedAtUnixMs int64  `gorm:"column:created_at_unix_ms;not null;index:idx_audit_session_created,priority:2;index:idx_audit_created"`
}

func (AuditRecord) TableName() string { return "audit_records" }
