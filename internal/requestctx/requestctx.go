// Package requestctx carries per-request values (correlation id, caller
// identity) through context.Context so log lines can be enriched explicitly.
package requestctx

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
)

type correlationKey struct{}

type identityKey struct{}

// Identity is the caller as asserted by the identity layer.
type Identity struct {
	UserID   uint
	Role     string
	EntityID uint
}

// WithCorrelationID attaches the correlation identifier to ctx.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, correlationKey{}, id)
}

// CorrelationID returns the correlation identifier bound to ctx.
func CorrelationID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if id, ok := ctx.Value(correlationKey{}).(string); ok {
		return id
	}
	return ""
}

// WithIdentity attaches the authenticated caller to ctx.
func WithIdentity(ctx context.Context, identity Identity) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, identityKey{}, identity)
}

// IdentityFrom returns the authenticated caller bound to ctx.
func IdentityFrom(ctx context.Context) (Identity, bool) {
	if ctx == nil {
		return Identity{}, false
	}
	identity, ok := ctx.Value(identityKey{}).(Identity)
	return identity, ok
}

// Logger derives a logger carrying the request fields found in ctx.
func Logger(ctx context.Context, base zerolog.Logger) zerolog.Logger {
	builder := base.With()
	if id := CorrelationID(ctx); id != "" {
		builder = builder.Str("correlation_id", id)
	}
	if identity, ok := IdentityFrom(ctx); ok {
		builder = builder.Uint("user_id", identity.UserID).Str("role", identity.Role)
	}
	return builder.Logger()
}
