// Package requestcontext provides HTTP-independent context accessors for
// request-scoped values.
//
// Middleware sets these values; services read them. Keeping the package free
// of net/http lets services, workers and tests inject values directly:
//
//	ctx = requestcontext.WithIdentity(ctx, domain.Identity{Issuer: "OrgA", Subject: "Alice", Role: domain.RoleCustodian})
//	ctx = requestcontext.WithCaseKey(ctx, key)
//	ctx = requestcontext.WithTime(ctx, fixedTime)
//
// The case key lives only in the request context. It is never copied into a
// struct that outlives the call.
package requestcontext

import (
	"context"
	"time"

	"chainguard/pkg/domain"
)

type (
	identityKey    struct{}
	caseKeyKey     struct{}
	requestIDKey   struct{}
	requestTimeKey struct{}
)

var (
	ContextKeyIdentity    = identityKey{}
	ContextKeyCaseKey     = caseKeyKey{}
	ContextKeyRequestID   = requestIDKey{}
	ContextKeyRequestTime = requestTimeKey{}
)

// -----------------------------------------------------------------------------
// Identity
// -----------------------------------------------------------------------------

// Identity returns the resolved caller identity and whether one was set.
func Identity(ctx context.Context) (domain.Identity, bool) {
	id, ok := ctx.Value(ContextKeyIdentity).(domain.Identity)
	return id, ok
}

// WithIdentity injects a resolved caller identity.
func WithIdentity(ctx context.Context, id domain.Identity) context.Context {
	return context.WithValue(ctx, ContextKeyIdentity, id)
}

// -----------------------------------------------------------------------------
// Transient case key
// -----------------------------------------------------------------------------

// CaseKey returns the transient case key delivered for this request.
func CaseKey(ctx context.Context) ([]byte, bool) {
	key, ok := ctx.Value(ContextKeyCaseKey).([]byte)
	if !ok || len(key) == 0 {
		return nil, false
	}
	return key, true
}

// WithCaseKey injects the transient case key for the current request only.
func WithCaseKey(ctx context.Context, key []byte) context.Context {
	return context.WithValue(ctx, ContextKeyCaseKey, key)
}

// -----------------------------------------------------------------------------
// Request metadata
// -----------------------------------------------------------------------------

// RequestID retrieves the request ID from the context.
func RequestID(ctx context.Context) string {
	if reqID, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return reqID
	}
	return ""
}

// WithRequestID injects a request ID into the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// Now retrieves the request-scoped time from context.
// Falls back to time.Now() if not set (workers, CLI, tests).
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(ContextKeyRequestTime).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime injects a specific time into a context.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, ContextKeyRequestTime, t)
}
