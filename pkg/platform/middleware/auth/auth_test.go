package auth

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"dorkforge/pkg/identity"
	"dorkforge/pkg/requestcontext"
)

type MockTokenVerifier struct {
	mock.Mock
}

func (m *MockTokenVerifier) Verify(ctx context.Context, token string) (*Claims, error) {
	args := m.Called(ctx, token)
	if claims := args.Get(0); claims != nil {
		return claims.(*Claims), args.Error(1)
	}
	return nil, args.Error(1)
}

type captureHandler struct {
	called   bool
	identity identity.Identity
}

func (h *captureHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.called = true
	h.identity = requestcontext.Identity(r.Context())
	w.WriteHeader(http.StatusOK)
}

type AuthMiddlewareSuite struct {
	suite.Suite
	verifier *MockTokenVerifier
	logger   *slog.Logger
	next     *captureHandler
}

func TestAuthMiddlewareSuite(t *testing.T) {
	suite.Run(t, new(AuthMiddlewareSuite))
}

func (s *AuthMiddlewareSuite) SetupTest() {
	s.verifier = new(MockTokenVerifier)
	s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	s.next = &captureHandler{}
}

func (s *AuthMiddlewareSuite) newRequest() *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/generate-dork", nil)
	return req.WithContext(requestcontext.WithClientMetadata(req.Context(), "203.0.113.5", ""))
}

func (s *AuthMiddlewareSuite) TestIdentify() {
	s.Run("no token is anonymous", func() {
		s.SetupTest()
		w := httptest.NewRecorder()
		Identify(s.verifier, s.logger)(s.next).ServeHTTP(w, s.newRequest())

		s.True(s.next.called)
		s.Equal(identity.Anonymous{IP: "203.0.113.5"}, s.next.identity)
		s.verifier.AssertNotCalled(s.T(), "Verify", mock.Anything, mock.Anything)
	})

	s.Run("valid bearer token is identified", func() {
		s.SetupTest()
		s.verifier.On("Verify", mock.Anything, "tok").Return(&Claims{Subject: "user_1", Email: "a@example.com"}, nil)

		req := s.newRequest()
		req.Header.Set("Authorization", "Bearer tok")
		Identify(s.verifier, s.logger)(s.next).ServeHTTP(httptest.NewRecorder(), req)

		s.Equal(identity.Identified{SubjectID: "user_1", Email: "a@example.com", IP: "203.0.113.5"}, s.next.identity)
	})

	s.Run("session cookie is accepted", func() {
		s.SetupTest()
		s.verifier.On("Verify", mock.Anything, "cookie-tok").Return(&Claims{Subject: "user_2"}, nil)

		req := s.newRequest()
		req.AddCookie(&http.Cookie{Name: SessionCookie, Value: "cookie-tok"})
		Identify(s.verifier, s.logger)(s.next).ServeHTTP(httptest.NewRecorder(), req)

		got, ok := identity.AsIdentified(s.next.identity)
		s.Require().True(ok)
		s.Equal("user_2", got.SubjectID)
	})

	s.Run("invalid token is rejected", func() {
		s.SetupTest()
		s.verifier.On("Verify", mock.Anything, "bad").Return(nil, errors.New("token is expired"))

		req := s.newRequest()
		req.Header.Set("Authorization", "Bearer bad")
		w := httptest.NewRecorder()
		Identify(s.verifier, s.logger)(s.next).ServeHTTP(w, req)

		s.False(s.next.called)
		s.Equal(http.StatusUnauthorized, w.Code)
		var body map[string]string
		s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &body))
		s.Equal("unauthorized", body["error"])
	})

	s.Run("non bearer scheme is anonymous", func() {
		s.SetupTest()
		req := s.newRequest()
		req.Header.Set("Authorization", "Basic Zm9vOmJhcg==")
		Identify(s.verifier, s.logger)(s.next).ServeHTTP(httptest.NewRecorder(), req)

		s.Equal(identity.Anonymous{IP: "203.0.113.5"}, s.next.identity)
	})

	s.Run("nil verifier is anonymous", func() {
		s.SetupTest()
		req := s.newRequest()
		req.Header.Set("Authorization", "Bearer tok")
		Identify(nil, s.logger)(s.next).ServeHTTP(httptest.NewRecorder(), req)

		s.True(s.next.called)
		s.Equal(identity.Anonymous{IP: "203.0.113.5"}, s.next.identity)
	})
}

func (s *AuthMiddlewareSuite) TestRequireIdentified() {
	s.Run("anonymous gets 401", func() {
		s.SetupTest()
		w := httptest.NewRecorder()
		RequireIdentified(s.logger)(s.next).ServeHTTP(w, s.newRequest())

		s.False(s.next.called)
		s.Equal(http.StatusUnauthorized, w.Code)
	})

	s.Run("identified passes", func() {
		s.SetupTest()
		req := s.newRequest()
		req = req.WithContext(requestcontext.WithIdentity(req.Context(), identity.Identified{SubjectID: "user_1"}))
		w := httptest.NewRecorder()
		RequireIdentified(s.logger)(s.next).ServeHTTP(w, req)

		s.True(s.next.called)
		s.Equal(http.StatusOK, w.Code)
	})
}
