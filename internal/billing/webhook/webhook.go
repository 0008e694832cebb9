// Package webhook authenticates payment-processor webhook deliveries.
//
// The signature header is a comma separated list of key=value pairs. The "t" entry is
// the timestamp and "v1" is a hex HMAC-SHA256 of "{t}.{body}" under the endpoint secret.
// No timestamp tolerance is enforced.
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"strings"

	"github.com/stripe/stripe-go/v79"

	dErrors "dorkforge/pkg/domain-errors"
)

// SignatureHeader carries the delivery signature.
const SignatureHeader = "Stripe-Signature"

// Verify checks header against body and only then decodes the event.
func Verify(body []byte, header, secret string) (*stripe.Event, error) {
	if header == "" || secret == "" {
		return nil, dErrors.New(dErrors.CodeSignatureInvalid, "missing signature or secret")
	}

	timestamp, signature, ok := parseHeader(header)
	if !ok {
		return nil, dErrors.New(dErrors.CodeSignatureInvalid, "invalid signature format")
	}

	expected := ComputeSignature(timestamp, body, secret)
	// ConstantTimeCompare returns 0 immediately on length mismatch without inspecting content.
	if subtle.ConstantTimeCompare([]byte(signature), []byte(expected)) != 1 {
		return nil, dErrors.New(dErrors.CodeSignatureInvalid, "signature mismatch")
	}

	var event stripe.Event
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid event payload")
	}
	return &event, nil
}

// ComputeSignature returns the hex HMAC-SHA256 of "{timestamp}.{body}".
func ComputeSignature(timestamp string, body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// parseHeader takes the first "t" and first "v1" entries. Entries are matched as written,
// so "t=1, v1=..." has no v1 entry.
func parseHeader(header string) (timestamp, signature string, ok bool) {
	var haveT, haveV1 bool
	for _, part := range strings.Split(header, ",") {
		key, value, found := strings.Cut(part, "=")
		if !found {
			continue
		}
		switch {
		case key == "t" && !haveT:
			timestamp, haveT = value, true
		case key == "v1" && !haveV1:
			signature, haveV1 = value, true
		}
	}
	return timestamp, signature, haveT && haveV1
}
