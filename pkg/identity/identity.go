// Package identity models who is making a request: a signed-in subject or an anonymous caller
// known only by network address.
package identity

import "strings"

// Identity is a closed sum type. The only implementations are Identified and Anonymous.
type Identity interface {
	// ClientIP is the resolved caller address, used for IP based quotas in both cases.
	ClientIP() string
	isIdentity()
}

// Identified is a caller holding a verified bearer token.
type Identified struct {
	SubjectID string
	// Email may be empty when the token carries no email claim.
	Email string
	IP    string
}

// Anonymous is a caller without a verified token.
type Anonymous struct {
	IP string
}

func (i Identified) ClientIP() string { return i.IP }
func (Identified) isIdentity()        {}

func (a Anonymous) ClientIP() string { return a.IP }
func (Anonymous) isIdentity()        {}

// HasEmail reports whether an email is available for allowlist checks.
func (i Identified) HasEmail() bool {
	return strings.TrimSpace(i.Email) != ""
}

// AsIdentified narrows id to Identified. The second result is false for anonymous callers and nil.
func AsIdentified(id Identity) (Identified, bool) {
	switch v := id.(type) {
	case Identified:
		return v, true
	case *Identified:
		if v != nil {
			return *v, true
		}
	}
	return Identified{}, false
}

// NormalizeEmail lower-cases and trims an address for allowlist comparisons.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
