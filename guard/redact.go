package guard

import (
	"regexp"
	"strings"
)

// Redactor scrubs secrets from audit details before they are persisted.
type Redactor struct {
	builtins []replacer
	custom   []*regexp.Regexp
}

type replacer struct {
	name string
	re   *regexp.Regexp
	repl func(re *regexp.Regexp, s string) string
}

var (
	privateKeyRe = regexp.MustCompile(`(?s)-----BEGIN [A-Z0-9 ]*PRIVATE KEY-----.*?-----END [A-Z0-9 ]*PRIVATE KEY-----`)
	jwtRe        = regexp.MustCompile(`\b[A-Za-z0-9_-]{10,}\.[A-Za-z0-9_-]{10,}\.[A-Za-z0-9_-]{10,}\b`)
	bearerRe     = regexp.MustCompile(`(?i)\bbearer\s+[A-Za-z0-9._-]{10,}\b`)
	secretKVRe   = regexp.MustCompile(`(?i)\b([A-Za-z0-9_-]{1,32})("?\s*[:=]\s*"?)([A-Za-z0-9._-]{12,})`)
)

// NewRedactor always installs the built-in patterns; custom patterns apply
// only when cfg.Enabled. Patterns that do not compile are ignored.
func NewRedactor(cfg RedactionConfig) *Redactor {
	r := &Redactor{
		builtins: []replacer{
			{name: "private_key_block", re: privateKeyRe, repl: literal("[redacted_private_key]")},
			{name: "jwt_like", re: jwtRe, repl: literal("[redacted_jwt]")},
			{name: "bearer", re: bearerRe, repl: literal("Bearer [redacted]")},
			{name: "secret_kv", re: secretKVRe, repl: redactSecretKV},
		},
	}
	if !cfg.Enabled {
		return r
	}
	for _, p := range cfg.Patterns {
		if strings.TrimSpace(p.Re) == "" {
			continue
		}
		re, err := regexp.Compile(p.Re)
		if err != nil {
			continue
		}
		r.custom = append(r.custom, re)
	}
	return r
}

func literal(s string) func(re *regexp.Regexp, in string) string {
	return func(re *regexp.Regexp, in string) string {
		return re.ReplaceAllLiteralString(in, s)
	}
}

func redactSecretKV(re *regexp.Regexp, s string) string {
	return re.ReplaceAllStringFunc(s, func(m string) string {
		sub := re.FindStringSubmatch(m)
		if len(sub) != 4 || !isSensitiveKeyLike(sub[1]) {
			return m
		}
		return sub[1] + sub[2] + "[redacted]"
	})
}

// RedactString returns the scrubbed text and whether anything changed. A nil
// Redactor returns s unchanged.
func (r *Redactor) RedactString(s string) (string, bool) {
	if r == nil || strings.TrimSpace(s) == "" {
		return s, false
	}
	out := s
	for _, b := range r.builtins {
		out = b.repl(b.re, out)
	}
	for _, re := range r.custom {
		out = re.ReplaceAllLiteralString(out, "[redacted]")
	}
	return out, out != s
}

func isSensitiveKeyLike(key string) bool {
	k := strings.ToLower(strings.TrimSpace(key))
	if k == "" {
		return false
	}
	n := strings.ReplaceAll(strings.ReplaceAll(k, "-", ""), "_", "")
	for _, marker := range []string{"apikey", "authorization", "token", "secret", "password"} {
		if strings.Contains(n, marker) {
			return true
		}
	}
	return false
}
