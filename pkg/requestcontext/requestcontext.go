// Package requestcontext carries request-scoped values set by middleware: request ID,
// client metadata, the resolved caller identity and the request start time.
package requestcontext

import (
	"context"
	"time"

	"dorkforge/pkg/identity"
)

type (
	requestIDKey struct{}
	clientIPKey  struct{}
	userAgentKey struct{}
	identityKey  struct{}
	timeKey      struct{}
)

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID returns the request ID or "" outside an HTTP request.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// WithClientMetadata stores the resolved client address and User-Agent.
func WithClientMetadata(ctx context.Context, clientIP, userAgent string) context.Context {
	ctx = context.WithValue(ctx, clientIPKey{}, clientIP)
	return context.WithValue(ctx, userAgentKey{}, userAgent)
}

func ClientIP(ctx context.Context) string {
	ip, _ := ctx.Value(clientIPKey{}).(string)
	return ip
}

func UserAgent(ctx context.Context) string {
	ua, _ := ctx.Value(userAgentKey{}).(string)
	return ua
}

func WithIdentity(ctx context.Context, id identity.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// Identity returns the caller identity. Without auth middleware it falls back to an
// anonymous caller at the client IP.
func Identity(ctx context.Context) identity.Identity {
	if id, ok := ctx.Value(identityKey{}).(identity.Identity); ok && id != nil {
		return id
	}
	return identity.Anonymous{IP: ClientIP(ctx)}
}

// WithTime pins "now" for the rest of the request.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, timeKey{}, t)
}

// Now returns the request-scoped time, or time.Now() when none was pinned.
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(timeKey{}).(time.Time); ok {
		return t
	}
	return time.Now()
}
