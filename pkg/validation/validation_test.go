package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"

	dErrors "dorkforge/pkg/domain-errors"
)

type ValidationSuite struct {
	suite.Suite
}

func TestValidationSuite(t *testing.T) {
	suite.Run(t, new(ValidationSuite))
}

type nested struct {
	Target string `json:"target" validate:"notblank"`
}

type sampleRequest struct {
	Platform   string `json:"platform" validate:"required,oneof=google shodan"`
	Parameters nested `json:"parameters"`
	Name       string `json:"name" validate:"max=5"`
}

func (s *ValidationSuite) TestValidate() {
	s.Run("valid request passes", func() {
		s.NoError(Validate(sampleRequest{Platform: "google", Parameters: nested{Target: "example.com"}}))
	})

	s.Run("missing field reported by json name", func() {
		err := Validate(sampleRequest{Parameters: nested{Target: "x"}})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		s.Equal("platform is required", err.Error())
	})

	s.Run("oneof lists allowed values", func() {
		err := Validate(sampleRequest{Platform: "bing", Parameters: nested{Target: "x"}})
		s.Equal("platform must be one of [google shodan]", err.Error())
	})

	s.Run("nested field uses dotted path", func() {
		err := Validate(sampleRequest{Platform: "shodan", Parameters: nested{Target: "   "}})
		s.Equal("parameters.target must not be blank", err.Error())
	})

	s.Run("max length", func() {
		err := Validate(sampleRequest{Platform: "shodan", Parameters: nested{Target: "x"}, Name: "toolong"})
		s.Equal("name must be at most 5 characters", err.Error())
	})
}

func (s *ValidationSuite) TestCheckStringLength() {
	s.Run("passes at max", func() {
		s.NoError(CheckStringLength("target", strings.Repeat("a", MaxTargetLength), MaxTargetLength))
	})

	s.Run("fails at max plus one", func() {
		err := CheckStringLength("target", strings.Repeat("a", MaxTargetLength+1), MaxTargetLength)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		s.Contains(err.Error(), "target exceeds max length of 512")
	})
}
