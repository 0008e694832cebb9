package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	dErrors "dorkforge/pkg/domain-errors"
	"dorkforge/pkg/identity"
	"dorkforge/pkg/platform/httputil"
	"dorkforge/pkg/requestcontext"
)

// SessionCookie is the cookie Clerk's frontend SDK stores the session token in.
const SessionCookie = "__session"

// TokenVerifier validates a bearer token.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*Claims, error)
}

// Identify resolves the caller identity for every request. Requests without a token stay
// anonymous; a token that fails verification is rejected with 401 rather than downgraded.
// A nil verifier treats every caller as anonymous.
func Identify(verifier TokenVerifier, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			ip := requestcontext.ClientIP(ctx)

			token, found := extractToken(r)
			if !found || verifier == nil {
				ctx = requestcontext.WithIdentity(ctx, identity.Anonymous{IP: ip})
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			claims, err := verifier.Verify(ctx, token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", requestcontext.RequestID(ctx),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "Invalid or expired token"))
				return
			}

			ctx = requestcontext.WithIdentity(ctx, identity.Identified{
				SubjectID: claims.Subject,
				Email:     claims.Email,
				IP:        ip,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireIdentified rejects anonymous callers with 401. Mount it after Identify.
func RequireIdentified(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if _, ok := identity.AsIdentified(requestcontext.Identity(ctx)); !ok {
				logger.InfoContext(ctx, "unauthorized access - no identity",
					"path", r.URL.Path,
					"request_id", requestcontext.RequestID(ctx),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "Unauthorized"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// extractToken reads "Authorization: Bearer" first, then the session cookie.
func extractToken(r *http.Request) (string, bool) {
	if header := r.Header.Get("Authorization"); header != "" {
		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") {
			return "", false
		}
		token = strings.TrimSpace(token)
		return token, token != ""
	}
	if c, err := r.Cookie(SessionCookie); err == nil && c.Value != "" {
		return c.Value, true
	}
	return "", false
}
