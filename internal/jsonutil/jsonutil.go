package jsonutil

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/quailyquaily/uniai"
)

var (
	ErrEmptyInput       = errors.New("empty json input")
	ErrNoJSONCandidates = errors.New("no json candidates")
)

// FindJSONPayload returns the first candidate in text that parses as JSON.
// Candidates are the raw text, snippets uniai can locate inside it, and
// repaired variants of each.
func FindJSONPayload(text string) ([]byte, error) {
	raw := strings.TrimSpace(text)
	if raw == "" {
		return nil, ErrEmptyInput
	}

	var lastErr error
	for _, cand := range candidates(raw) {
		var tmp any
		err := json.Unmarshal([]byte(cand), &tmp)
		if err == nil {
			return []byte(cand), nil
		}
		lastErr = err
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, ErrNoJSONCandidates
}

// DecodeWithFallback finds a JSON payload and unmarshals it into dst.
func DecodeWithFallback(text string, dst any) error {
	data, err := FindJSONPayload(text)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dst)
}

// DecodeDetails interprets free-form audit details. Text that opens like a
// JSON object or array is decoded (repairing it when needed); anything else,
// including undecodable JSON-looking text, is returned as the trimmed string.
func DecodeDetails(text string) any {
	raw := strings.TrimSpace(text)
	if raw == "" {
		return nil
	}
	if raw[0] != '{' && raw[0] != '[' {
		return raw
	}
	var v any
	if err := DecodeWithFallback(raw, &v); err != nil {
		return raw
	}
	return v
}

func candidates(raw string) []string {
	var out []string
	seen := make(map[string]bool)
	add := func(s string) {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			return
		}
		seen[s] = true
		out = append(out, s)
	}

	bases := []string{raw}
	if found, err := uniai.CollectJSONCandidates(raw); err == nil {
		bases = append(bases, found...)
	}
	bases = append(bases, uniai.FindJSONSnippets(raw)...)

	for _, b := range bases {
		add(b)
		stripped := uniai.StripNonJSONLines(b)
		add(stripped)
		add(uniai.AttemptJSONRepair(b))
		if strings.TrimSpace(stripped) != strings.TrimSpace(b) {
			add(uniai.AttemptJSONRepair(stripped))
		}
	}
	return out
}
