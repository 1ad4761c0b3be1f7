package guard

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// UnknownSession stamps audit entries whose context carries no session id.
const UnknownSession = "unknown"

// Decision is the verdict of a validation call. The evaluator never stores it.
type Decision struct {
	Allowed              bool      `json:"allowed"`
	RequiresConfirmation bool      `json:"requires_confirmation"`
	Reason               string    `json:"reason,omitempty"`
	Suggestion           string    `json:"suggestion,omitempty"`
	RiskLevel            RiskLevel `json:"risk_level"`
	Rule                 string    `json:"rule,omitempty"`

	Command string `json:"command,omitempty"`
	File    string `json:"file,omitempty"`
}

type DestructiveCheck struct {
	IsDestructive bool
	Reason        string
	Rule          string
	Command       string
}

type SensitiveCheck struct {
	IsSensitive bool
	File        string
	Reason      string
	Rule        string
}

// AuditEntry records one inspected or executed operation. Maps and slices in
// Details are copied when the entry is logged, so later changes by the caller
// do not reach the stored entry.
type AuditEntry struct {
	ID            string    `json:"id"`
	Timestamp     time.Time `json:"timestamp"`
	Operation     string    `json:"operation"`
	Details       any       `json:"details,omitempty"`
	UserConfirmed bool      `json:"user_confirmed"`
	SessionID     string    `json:"session_id"`
}

// AuditEvent is what sinks persist: details are rendered to text and redacted.
type AuditEvent struct {
	EventID         string    `json:"event_id"`
	SessionID       string    `json:"session_id"`
	Timestamp       time.Time `json:"ts"`
	Operation       string    `json:"operation"`
	DetailsRedacted string    `json:"details_redacted,omitempty"`
	DetailsHash     string    `json:"details_hash,omitempty"`
	Redacted        bool      `json:"redacted,omitempty"`
	UserConfirmed   bool      `json:"user_confirmed"`
}

// newAuditEvent always returns a usable event; a hashing error leaves
// DetailsHash empty and is returned alongside.
func newAuditEvent(e AuditEntry, r *Redactor) (AuditEvent, error) {
	text := DetailsText(e.Details)
	redacted, changed := r.RedactString(text)
	hash, err := DetailsHash(e.Details)
	return AuditEvent{
		EventID:         e.ID,
		SessionID:       e.SessionID,
		Timestamp:       e.Timestamp,
		Operation:       e.Operation,
		DetailsRedacted: redacted,
		DetailsHash:     hash,
		Redacted:        changed,
		UserConfirmed:   e.UserConfirmed,
	}, err
}

// cloneDetails deep-copies the JSON-shaped containers hosts pass as details.
// Other values are returned as is.
func cloneDetails(v any) any {
	switch x := v.(type) {
	case map[string]any:
		if x == nil {
			return x
		}
		out := make(map[string]any, len(x))
		for k, vv := range x {
			out[k] = cloneDetails(vv)
		}
		return out
	case []any:
		if x == nil {
			return x
		}
		out := make([]any, len(x))
		for i, vv := range x {
			out[i] = cloneDetails(vv)
		}
		return out
	case map[string]string:
		if x == nil {
			return x
		}
		out := make(map[string]string, len(x))
		for k, vv := range x {
			out[k] = vv
		}
		return out
	case []string:
		if x == nil {
			return x
		}
		return append([]string(nil), x...)
	default:
		return v
	}
}

// DetailsText renders free-form details as text: strings verbatim, anything
// else as compact JSON.
func DetailsText(details any) string {
	switch x := details.(type) {
	case nil:
		return ""
	case string:
		return x
	case fmt.Stringer:
		return x.String()
	}
	b, err := json.Marshal(details)
	if err != nil {
		return fmt.Sprintf("%v", details)
	}
	return string(b)
}

// DetailsHash is the hex sha256 of the canonical JSON form of details.
func DetailsHash(details any) (string, error) {
	if details == nil {
		return "", nil
	}
	b, err := canonicalJSON(details)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}

func canonicalJSON(v any) ([]byte, error) {
	cv, err := canonicalizeValue(v)
	if err != nil {
		return nil, err
	}
	return json.Marshal(cv)
}

func canonicalizeValue(v any) (any, error) {
	switch x := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make([]any, 0, len(keys)*2)
		for _, k := range keys {
			out = append(out, k)
			vv, err := canonicalizeValue(x[k])
			if err != nil {
				return nil, err
			}
			out = append(out, vv)
		}
		return out, nil
	case []any:
		out := make([]any, 0, len(x))
		for _, vv := range x {
			cv, err := canonicalizeValue(vv)
			if err != nil {
				return nil, err
			}
			out = append(out, cv)
		}
		return out, nil
	case string, float64, bool, nil, int, int64, json.Number:
		return x, nil
	default:
		// Structs and typed maps go through a JSON round trip first.
		b, err := json.Marshal(x)
		if err != nil {
			return nil, fmt.Errorf("cannot canonicalize value of type %T", v)
		}
		var y any
		if err := json.Unmarshal(b, &y); err != nil {
			return nil, fmt.Errorf("cannot canonicalize value of type %T", v)
		}
		return canonicalizeValue(y)
	}
}
