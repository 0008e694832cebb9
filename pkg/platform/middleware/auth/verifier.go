package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
)

const defaultLeeway = 30 * time.Second

// Claims are the verified token fields the service relies on.
type Claims struct {
	Subject string
	// Email is only present when the session token template includes an "email" claim.
	Email string
}

// ClerkVerifier validates session tokens issued by Clerk against the instance JWKS.
type ClerkVerifier struct {
	keyfunc keyfunc.Keyfunc
	parser  *jwt.Parser
}

// NewClerkVerifier fetches signing keys from jwksURL (refreshed in the background until ctx
// ends). When issuer is non-empty the "iss" claim must match it.
func NewClerkVerifier(ctx context.Context, issuer, jwksURL string) (*ClerkVerifier, error) {
	issuer = strings.TrimRight(strings.TrimSpace(issuer), "/")
	if jwksURL == "" {
		if issuer == "" {
			return nil, errors.New("either issuer or JWKS URL must be set")
		}
		jwksURL = issuer + "/.well-known/jwks.json"
	}

	kf, err := keyfunc.NewDefaultCtx(ctx, []string{jwksURL})
	if err != nil {
		return nil, fmt.Errorf("init JWKS keyfunc: %w", err)
	}

	opts := []jwt.ParserOption{
		jwt.WithLeeway(defaultLeeway),
		jwt.WithExpirationRequired(),
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Name}),
	}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}

	return &ClerkVerifier{keyfunc: kf, parser: jwt.NewParser(opts...)}, nil
}

// Verify parses and validates a token, returning its subject and optional email.
func (v *ClerkVerifier) Verify(_ context.Context, token string) (*Claims, error) {
	claims := jwt.MapClaims{}
	parsed, err := v.parser.ParseWithClaims(token, claims, v.keyfunc.Keyfunc)
	if err != nil {
		return nil, err
	}
	if !parsed.Valid {
		return nil, errors.New("invalid token")
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return nil, errors.New("token missing sub")
	}
	email, _ := claims["email"].(string)

	return &Claims{Subject: sub, Email: strings.TrimSpace(email)}, nil
}
