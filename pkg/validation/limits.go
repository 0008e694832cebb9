package validation

import (
	"fmt"

	dErrors "dorkforge/pkg/domain-errors"
)

// HTTP body limits
const (
	// MaxBodySize bounds JSON API request bodies (64 KB).
	MaxBodySize = 64 * 1024

	// MaxWebhookBodySize bounds payment webhook payloads, which embed full objects.
	MaxWebhookBodySize = 512 * 1024
)

// String length limits
const (
	MaxTargetLength          = 512
	MaxParameterFieldLength  = 1024
	MaxTemplateNameLength    = 200
	MaxTemplateContentLength = 16 * 1024
	MaxCategoryLength        = 100
)

// CheckStringLength validates that a string does not exceed the maximum length.
func CheckStringLength(fieldName, value string, max int) error {
	if len(value) > max {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("%s exceeds max length of %d", fieldName, max))
	}
	return nil
}
