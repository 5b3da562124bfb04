package domain

import "context"

type sessionKeyCtx struct{}

// WithSessionKey scopes ctx to a per-session credential.
func WithSessionKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, sessionKeyCtx{}, key)
}

// SessionKeyFrom returns the session key carried by ctx, if any.
func SessionKeyFrom(ctx context.Context) (string, bool) {
	key, ok := ctx.Value(sessionKeyCtx{}).(string)
	if !ok || key == "" {
		return "", false
	}
	return key, true
}
