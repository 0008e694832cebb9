package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/suite"
)

type DomainErrorsSuite struct {
	suite.Suite
}

func TestDomainErrorsSuite(t *testing.T) {
	suite.Run(t, new(DomainErrorsSuite))
}

func (s *DomainErrorsSuite) TestErrorMessage() {
	s.Run("message wins over code", func() {
		err := &Error{Code: CodeQuotaExceeded, Message: "limit reached"}
		s.Equal("limit reached", err.Error())
	})

	s.Run("falls back to code", func() {
		err := &Error{Code: CodeSignatureInvalid}
		s.Equal("signature_invalid", err.Error())
	})
}

func (s *DomainErrorsSuite) TestCodeMatching() {
	s.Run("errors.Is matches by code", func() {
		err := New(CodeForbidden, "Pro feature only")
		s.True(errors.Is(err, &Error{Code: CodeForbidden}))
		s.False(errors.Is(err, &Error{Code: CodeUnauthorized}))
	})

	s.Run("plain errors never match", func() {
		err := &Error{Code: CodeNotFound}
		s.False(err.Is(errors.New("not_found")))
	})

	s.Run("inner code found through fmt wrapping", func() {
		inner := New(CodeUpstream, "llm call failed")
		wrapped := fmt.Errorf("generate: %w", inner)
		s.True(HasCode(wrapped, CodeUpstream))
	})
}

func (s *DomainErrorsSuite) TestWrap() {
	s.Run("keeps the original domain code", func() {
		original := New(CodeQuotaExceeded, "no generations left")
		wrapped := Wrap(original, CodeInternal, "generation rejected")

		var domainErr *Error
		s.Require().True(errors.As(wrapped, &domainErr))
		s.Equal(CodeQuotaExceeded, domainErr.Code)
		s.Equal("generation rejected", domainErr.Message)
	})

	s.Run("applies the given code to foreign errors", func() {
		root := errors.New("dial tcp: connection refused")
		wrapped := Wrap(root, CodeUpstream, "payment provider unavailable")

		s.True(HasCode(wrapped, CodeUpstream))
		s.True(errors.Is(wrapped, root))
	})
}

func (s *DomainErrorsSuite) TestHasCodeNil() {
	s.False(HasCode(nil, CodeInternal))
}
