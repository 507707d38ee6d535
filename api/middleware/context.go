package middleware

import (
	"context"

	"github.com/fabricspeaks/fabricspeaks-backend/pkg/auth"
)

type contextKey string

const ctxIdentity contextKey = "identity"

// IdentityFromContext returns the request identity seeded by the Identity
// middleware. Requests that carried no credentials get a zero identity.
func IdentityFromContext(ctx context.Context) auth.Identity {
	if ctx == nil {
		return auth.Identity{}
	}
	if ident, ok := ctx.Value(ctxIdentity).(auth.Identity); ok {
		return ident
	}
	return auth.Identity{}
}

// WithIdentity injects the identity into the context.
func WithIdentity(ctx context.Context, ident auth.Identity) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxIdentity, ident)
}
