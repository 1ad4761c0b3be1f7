// Package guard decides whether a proposed shell command or file edit may run
// unattended, and keeps a bounded audit trail of inspected operations.
//
// The evaluator is advisory: it never executes anything. Hosts call
// ValidateCommand or ValidateFileEdit, surface decisions that require
// confirmation to a human, then record the outcome with LogOperation.
package guard

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

const (
	suggestDestructive   = "Review this command manually before running it; it may cause irreversible data loss."
	suggestSensitiveCmd  = "This file is critical to the project. Confirm with the user before touching it."
	suggestSensitiveEdit = "Show the user a diff of the change and request explicit confirmation."
	suggestLargeDeletion = "This edit removes a major part of the file. Confirm the deletion is intended."

	largeDeletionRatio = 0.5
)

// commandPathRe extracts the first token after a file verb. It does not
// understand multiple arguments, flags, pipelines, or unquoted whitespace.
var commandPathRe = regexp.MustCompile(`(?:rm|mv|cp|cat|edit)\s+["']?([^"'\s]+)["']?`)

type Evaluator struct {
	destructive []destructiveRule
	sensitive   atomic.Pointer[[]sensitiveRule]
	sensitiveMu sync.Mutex // serializes AddSensitivePatterns

	log      *AuditLog
	sinks    []AuditSink
	redactor *Redactor
	logger   *slog.Logger
	now      func() time.Time
}

type Option func(e *Evaluator)

// WithRules replaces the built-in rule table.
func WithRules(rules []Rule) Option {
	return func(e *Evaluator) {
		e.applyRules(rules)
	}
}

func WithAuditCapacity(n int) Option {
	return func(e *Evaluator) {
		e.log = NewAuditLog(n)
	}
}

func WithAuditSink(s AuditSink) Option {
	return func(e *Evaluator) {
		if s != nil {
			e.sinks = append(e.sinks, s)
		}
	}
}

func WithRedactor(r *Redactor) Option {
	return func(e *Evaluator) {
		if r != nil {
			e.redactor = r
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(e *Evaluator) {
		if l != nil {
			e.logger = l
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(e *Evaluator) {
		if now != nil {
			e.now = now
		}
	}
}

// New builds an evaluator with the default rule table, a 1000-entry audit log
// and the built-in redaction patterns.
func New(opts ...Option) *Evaluator {
	e := &Evaluator{
		log:      NewAuditLog(DefaultAuditCapacity),
		redactor: NewRedactor(RedactionConfig{}),
		logger:   slog.Default(),
		now:      time.Now,
	}
	e.applyRules(DefaultRules())
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Evaluator) applyRules(rules []Rule) {
	destructive, sensitive, skipped := compileRules(rules)
	for _, r := range skipped {
		l := e.logger
		if l == nil {
			l = slog.Default()
		}
		l.Warn("guard_rule_skipped", "name", r.Name, "category", string(r.Category), "pattern", r.Pattern)
	}
	e.destructive = destructive
	e.sensitive.Store(&sensitive)
}

// AddSensitivePatterns registers extra path fragments. Blank and duplicate
// fragments are ignored.
func (e *Evaluator) AddSensitivePatterns(fragments ...string) {
	e.sensitiveMu.Lock()
	defer e.sensitiveMu.Unlock()

	cur := e.sensitiveRules()
	next := make([]sensitiveRule, len(cur), len(cur)+len(fragments))
	copy(next, cur)
	for _, f := range fragments {
		f = strings.ToLower(strings.TrimSpace(f))
		if f == "" || containsFragment(next, f) {
			continue
		}
		next = append(next, sensitiveRule{name: "custom:" + f, fragment: f})
	}
	e.sensitive.Store(&next)
}

// SensitivePatterns returns the active path fragments in match order.
func (e *Evaluator) SensitivePatterns() []string {
	rules := e.sensitiveRules()
	out := make([]string, 0, len(rules))
	for _, r := range rules {
		out = append(out, r.fragment)
	}
	return out
}

func (e *Evaluator) sensitiveRules() []sensitiveRule {
	p := e.sensitive.Load()
	if p == nil {
		return nil
	}
	return *p
}

func containsFragment(rules []sensitiveRule, f string) bool {
	for _, r := range rules {
		if r.fragment == f {
			return true
		}
	}
	return false
}

func (e *Evaluator) IsDestructive(command string) DestructiveCheck {
	lower := strings.ToLower(command)
	for _, r := range e.destructive {
		if r.re.MatchString(lower) {
			return DestructiveCheck{
				IsDestructive: true,
				Reason:        fmt.Sprintf("matches destructive pattern /%s/i", r.pattern),
				Rule:          r.name,
				Command:       command,
			}
		}
	}
	return DestructiveCheck{Command: command}
}

func (e *Evaluator) IsSensitiveFile(path string) SensitiveCheck {
	lower := strings.ToLower(path)
	for _, r := range e.sensitiveRules() {
		if strings.Contains(lower, r.fragment) {
			return SensitiveCheck{
				IsSensitive: true,
				File:        path,
				Reason:      fmt.Sprintf("path contains sensitive pattern %q", r.fragment),
				Rule:        r.name,
			}
		}
	}
	return SensitiveCheck{}
}

func (e *Evaluator) ValidateCommand(command string) Decision {
	if chk := e.IsDestructive(command); chk.IsDestructive {
		return Decision{
			RequiresConfirmation: true,
			Reason:               "Destructive command detected: " + chk.Reason,
			Suggestion:           suggestDestructive,
			RiskLevel:            RiskHigh,
			Rule:                 chk.Rule,
			Command:              command,
		}
	}

	if path := extractCommandPath(command); path != "" {
		if chk := e.IsSensitiveFile(path); chk.IsSensitive {
			return Decision{
				RequiresConfirmation: true,
				Reason:               "Command touches sensitive file: " + path,
				Suggestion:           suggestSensitiveCmd,
				RiskLevel:            RiskHigh,
				Rule:                 chk.Rule,
				Command:              command,
			}
		}
	}

	return Decision{Allowed: true, RiskLevel: RiskLow, Command: command}
}

func extractCommandPath(command string) string {
	m := commandPathRe.FindStringSubmatch(command)
	if len(m) != 2 {
		return ""
	}
	return strings.Trim(m[1], `"'`)
}

// ValidateFileEdit checks a proposed write to path. oldContent and newContent
// are optional; the large-deletion check runs only when both are given.
func (e *Evaluator) ValidateFileEdit(path string, oldContent, newContent *string) Decision {
	if chk := e.IsSensitiveFile(path); chk.IsSensitive {
		return Decision{
			RequiresConfirmation: true,
			Reason:               "Editing sensitive file: " + path,
			Suggestion:           suggestSensitiveEdit,
			RiskLevel:            RiskHigh,
			Rule:                 chk.Rule,
			File:                 path,
		}
	}

	if oldContent != nil && newContent != nil {
		oldLines := countLines(*oldContent)
		newLines := countLines(*newContent)
		if oldLines > 0 {
			ratio := float64(oldLines-newLines) / float64(oldLines)
			if ratio > largeDeletionRatio {
				return Decision{
					RequiresConfirmation: true,
					Reason:               fmt.Sprintf("Large deletion detected: %d%% of lines removed", int(math.Round(ratio*100))),
					Suggestion:           suggestLargeDeletion,
					RiskLevel:            RiskMedium,
					Rule:                 "large_deletion",
					File:                 path,
				}
			}
		}
	}

	return Decision{Allowed: true, RiskLevel: RiskLow, File: path}
}

// countLines splits on newline; the empty string has no lines.
func countLines(s string) int {
	if s == "" {
		return 0
	}
	return strings.Count(s, "\n") + 1
}

// LogOperation records an operation and returns the stored entry. It never
// fails; sink errors are logged and dropped.
func (e *Evaluator) LogOperation(ctx context.Context, operation string, details any, userConfirmed bool) AuditEntry {
	sessionID, ok := SessionIDFromContext(ctx)
	if !ok {
		sessionID = UnknownSession
	}
	entry := AuditEntry{
		ID:            uuid.NewString(),
		Timestamp:     e.now().UTC(),
		Operation:     operation,
		Details:       cloneDetails(details),
		UserConfirmed: userConfirmed,
		SessionID:     sessionID,
	}
	e.log.Append(entry)

	if len(e.sinks) > 0 {
		if ctx == nil {
			ctx = context.Background()
		}
		ev, err := newAuditEvent(entry, e.redactor)
		if err != nil {
			e.logger.Warn("audit_details_hash_failed", "event_id", ev.EventID, "operation", operation, "error", err.Error())
		}
		for _, s := range e.sinks {
			if err := s.Emit(ctx, ev); err != nil {
				e.logger.Warn("audit_sink_emit_failed", "event_id", ev.EventID, "operation", operation, "error", err.Error())
			}
		}
	}
	return entry
}

// AuditLog returns the newest limit entries, oldest first. Negative limit
// means DefaultAuditLimit.
func (e *Evaluator) AuditLog(limit int) []AuditEntry {
	return e.log.Recent(limit)
}

// Close closes every configured sink and returns the first error.
func (e *Evaluator) Close() error {
	var first error
	for _, s := range e.sinks {
		if err := s.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
