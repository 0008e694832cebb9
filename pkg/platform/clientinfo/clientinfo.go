// Package clientinfo summarizes a User-Agent into the coarse client attributes recorded
// with usage logs.
package clientinfo

import (
	"strings"

	"github.com/mssola/useragent"
)

// Info is the coarse client description stored in usage log details.
type Info struct {
	Browser      string `json:"browser"`
	MajorVersion string `json:"major_version"`
	OS           string `json:"os"`
	Mobile       bool   `json:"mobile"`
	Bot          bool   `json:"bot"`
}

// Parse extracts Info from a raw User-Agent header. Empty input yields "unknown" fields.
func Parse(userAgent string) Info {
	if strings.TrimSpace(userAgent) == "" {
		return Info{Browser: "unknown", MajorVersion: "unknown", OS: "unknown"}
	}

	ua := useragent.New(userAgent)
	browser, version := ua.Browser()

	major, _, _ := strings.Cut(version, ".")
	return Info{
		Browser:      orUnknown(browser),
		MajorVersion: orUnknown(major),
		OS:           orUnknown(ua.OS()),
		Mobile:       ua.Mobile(),
		Bot:          ua.Bot(),
	}
}

// DisplayName renders "Browser on OS", e.g. "Firefox on Linux x86_64".
func (i Info) DisplayName() string {
	return i.Browser + " on " + i.OS
}

func orUnknown(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "unknown"
	}
	return s
}
