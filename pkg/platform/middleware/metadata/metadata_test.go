package metadata

import (
	"net/http"
	"net/http/httptest"
	"net/netip"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"dorkforge/pkg/requestcontext"
)

func TestMiddlewareHandler(t *testing.T) {
	proxies := []netip.Prefix{netip.MustParsePrefix("10.0.0.0/8")}

	tests := []struct {
		name       string
		trusted    []netip.Prefix
		remoteAddr string
		headers    map[string]string
		expectedIP string
	}{
		{
			name:       "ignores XFF from untrusted peer",
			remoteAddr: "192.0.2.10:5555",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.5"},
			expectedIP: "192.0.2.10",
		},
		{
			name:       "uses XFF from trusted proxy",
			trusted:    proxies,
			remoteAddr: "10.0.0.1:5555",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.5"},
			expectedIP: "203.0.113.5",
		},
		{
			name:       "skips our own proxies in the chain",
			trusted:    proxies,
			remoteAddr: "10.0.0.1:5555",
			headers:    map[string]string{"X-Forwarded-For": "198.51.100.9, 203.0.113.5, 10.1.1.1"},
			expectedIP: "203.0.113.5",
		},
		{
			name:       "chain of only trusted hops yields leftmost",
			trusted:    proxies,
			remoteAddr: "10.0.0.1:5555",
			headers:    map[string]string{"X-Forwarded-For": "10.2.2.2, 10.1.1.1"},
			expectedIP: "10.2.2.2",
		},
		{
			name:       "garbage in chain falls back to peer",
			trusted:    proxies,
			remoteAddr: "10.0.0.1:5555",
			headers:    map[string]string{"X-Forwarded-For": "not-an-ip"},
			expectedIP: "10.0.0.1",
		},
		{
			name:       "oversized XFF falls back to X-Real-IP",
			trusted:    proxies,
			remoteAddr: "10.0.0.1:5555",
			headers: map[string]string{
				"X-Forwarded-For": strings.Repeat("1.1.1.1,", 80),
				"X-Real-IP":       "203.0.113.77",
			},
			expectedIP: "203.0.113.77",
		},
		{
			name:       "ipv6 peer",
			remoteAddr: "[2001:db8::1]:443",
			expectedIP: "2001:db8::1",
		},
		{
			name:       "unparseable peer",
			remoteAddr: "garbage",
			expectedIP: "unknown",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotIP, gotUA string
			handler := NewMiddleware(tt.trusted).Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotIP = requestcontext.ClientIP(r.Context())
				gotUA = requestcontext.UserAgent(r.Context())
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			req.Header.Set("User-Agent", "curl/8.4.0")
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			handler.ServeHTTP(httptest.NewRecorder(), req)

			assert.Equal(t, tt.expectedIP, gotIP)
			assert.Equal(t, "curl/8.4.0", gotUA)
		})
	}
}
