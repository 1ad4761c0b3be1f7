package guard

import (
	"context"
	"strings"
)

type ctxKeySessionID struct{}

// WithSessionID attaches the owning session to ctx so LogOperation can stamp
// audit entries with it.
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxKeySessionID{}, strings.TrimSpace(sessionID))
}

func SessionIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	v, ok := ctx.Value(ctxKeySessionID{}).(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}
