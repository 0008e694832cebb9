package httputil

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "dorkforge/pkg/domain-errors"
)

type taggedRequest struct {
	Platform string `json:"platform" validate:"required,oneof=google shodan"`
	Target   string `json:"target"`
}

func (r *taggedRequest) Sanitize() {
	r.Target = strings.TrimSpace(r.Target)
}

type manualRequest struct {
	Name string `json:"name"`
}

func (r *manualRequest) Validate() error {
	if r.Name == "" {
		return errors.New("name is required")
	}
	return nil
}

type domainErrorRequest struct {
	ID string `json:"id"`
}

func (r *domainErrorRequest) Validate() error {
	if r.ID == "" {
		return dErrors.New(dErrors.CodeBadRequest, "id is required")
	}
	return nil
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestDecodeJSON(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := context.Background()

	t.Run("decodes body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{"platform":"google","target":"example.com"}`))
		w := httptest.NewRecorder()

		result, ok := DecodeJSON[taggedRequest](w, req, logger, ctx, "req-1")

		assert.True(t, ok)
		require.NotNil(t, result)
		assert.Equal(t, "example.com", result.Target)
	})

	t.Run("malformed json is a bad request", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{nope`))
		w := httptest.NewRecorder()

		result, ok := DecodeJSON[taggedRequest](w, req, logger, ctx, "req-1")

		assert.False(t, ok)
		assert.Nil(t, result)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "bad_request", decodeError(t, w).Error)
	})

	t.Run("oversized body is 413", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{"target":"`+strings.Repeat("a", 64)+`"}`))
		w := httptest.NewRecorder()
		req.Body = http.MaxBytesReader(w, req.Body, 16)

		_, ok := DecodeJSON[taggedRequest](w, req, logger, ctx, "req-1")

		assert.False(t, ok)
		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	})
}

func TestDecodeAndPrepare(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := context.Background()

	t.Run("sanitizes then validates struct tags", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{"platform":"shodan","target":"  10.0.0.1 "}`))
		w := httptest.NewRecorder()

		result, ok := DecodeAndPrepare[taggedRequest](w, req, logger, ctx, "req-1")

		assert.True(t, ok)
		require.NotNil(t, result)
		assert.Equal(t, "10.0.0.1", result.Target)
	})

	t.Run("struct tag failure is a validation error", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{"platform":"bing"}`))
		w := httptest.NewRecorder()

		_, ok := DecodeAndPrepare[taggedRequest](w, req, logger, ctx, "req-1")

		assert.False(t, ok)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		resp := decodeError(t, w)
		assert.Equal(t, "validation_error", resp.Error)
		assert.Contains(t, resp.Details, "platform must be one of")
	})

	t.Run("plain Validate error is wrapped as validation error", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{"name":""}`))
		w := httptest.NewRecorder()

		_, ok := DecodeAndPrepare[manualRequest](w, req, logger, ctx, "req-1")

		assert.False(t, ok)
		assert.Equal(t, "validation_error", decodeError(t, w).Error)
	})

	t.Run("domain error code from Validate is preserved", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{"id":""}`))
		w := httptest.NewRecorder()

		_, ok := DecodeAndPrepare[domainErrorRequest](w, req, logger, ctx, "req-1")

		assert.False(t, ok)
		resp := decodeError(t, w)
		assert.Equal(t, "bad_request", resp.Error)
		assert.Equal(t, "id is required", resp.Details)
	})
}
