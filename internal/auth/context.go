package auth

import "context"

type claimsKey struct{}

// WithClaims returns a context carrying the caller's verified claims.
func WithClaims(ctx context.Context, c *Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, c)
}

// ClaimsFromContext returns the claims stored by WithClaims, or nil.
func ClaimsFromContext(ctx context.Context) *Claims {
	c, _ := ctx.Value(claimsKey{}).(*Claims)
	return c
}

// Actor names the caller for audit records: the username, or "system" when
// there is no authenticated caller.
func Actor(ctx context.Context) string {
	if c := ClaimsFromContext(ctx); c != nil && c.Username != "" {
		return c.Username
	}
	return "system"
}
