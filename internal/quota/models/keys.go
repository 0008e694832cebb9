package models

import (
	"fmt"
	"strings"
	"time"
)

// KeyPrefix namespaces every cache key written by this service.
const KeyPrefix = "dork"

// NewIPCounterKey builds the per-IP daily counter key, dork:ip:{ip}:{YYYY-MM-DD}.
// The date is taken in UTC.
func NewIPCounterKey(ip string, now time.Time) string {
	return fmt.Sprintf("%s:ip:%s:%s", KeyPrefix, sanitizeKeySegment(ip), now.UTC().Format(time.DateOnly))
}

// sanitizeKeySegment escapes delimiters so an IPv6 address or a crafted value
// cannot spill into adjacent key segments.
//
//   - "::1"        → "_c_c1"
//   - "a_b"        → "a__b"
func sanitizeKeySegment(s string) string {
	// escape the escape character first
	s = strings.ReplaceAll(s, "_", "__")
	s = strings.ReplaceAll(s, ":", "_c")
	return s
}
