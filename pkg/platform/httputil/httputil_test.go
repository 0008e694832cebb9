package httputil

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	dErrors "dorkforge/pkg/domain-errors"
)

func TestWriteError(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantStatus  int
		wantCode    string
		wantDetails string
	}{
		{"unauthorized", dErrors.New(dErrors.CodeUnauthorized, "Unauthorized"), http.StatusUnauthorized, "unauthorized", "Unauthorized"},
		{"forbidden", dErrors.New(dErrors.CodeForbidden, "Pro feature only"), http.StatusForbidden, "forbidden", "Pro feature only"},
		{"quota", dErrors.New(dErrors.CodeQuotaExceeded, "limit"), http.StatusTooManyRequests, "rate_limit_exceeded", "limit"},
		{"signature", dErrors.New(dErrors.CodeSignatureInvalid, "bad sig"), http.StatusBadRequest, "invalid_signature", "bad sig"},
		{"upstream", dErrors.New(dErrors.CodeUpstream, "Failed to generate dorks"), http.StatusInternalServerError, "upstream_error", "Failed to generate dorks"},
		{"internal hides message", dErrors.New(dErrors.CodeInternal, "pq: relation missing"), http.StatusInternalServerError, "internal_error", ""},
		{"foreign error", errors.New("boom"), http.StatusInternalServerError, "internal_error", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			WriteError(w, tt.err)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
			resp := decodeError(t, w)
			assert.Equal(t, tt.wantCode, resp.Error)
			assert.Equal(t, tt.wantDetails, resp.Details)
		})
	}
}
