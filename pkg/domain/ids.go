// Package domain provides type-safe identifiers to prevent mixing up IDs at compile time.
package domain

import (
	"github.com/google/uuid"

	dErrors "dorkforge/pkg/domain-errors"
)

// Distinct ID types - compiler prevents passing TemplateID where SubscriberID is expected.
type (
	SubscriberID uuid.UUID
	TemplateID   uuid.UUID
	UsageLogID   uuid.UUID
)

// ClerkID is the subject identifier issued by the identity provider (e.g. "user_2ab...").
type ClerkID string

// Parse functions - use at trust boundaries (handlers, API inputs).

func ParseSubscriberID(s string) (SubscriberID, error) {
	id, err := parseUUID(s, "subscriber ID")
	return SubscriberID(id), err
}

func ParseTemplateID(s string) (TemplateID, error) {
	id, err := parseUUID(s, "template ID")
	return TemplateID(id), err
}

func ParseClerkID(s string) (ClerkID, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "subject ID cannot be empty")
	}
	return ClerkID(s), nil
}

// New functions - generate fresh identifiers for rows created by this service.

func NewSubscriberID() SubscriberID { return SubscriberID(uuid.New()) }
func NewTemplateID() TemplateID     { return TemplateID(uuid.New()) }
func NewUsageLogID() UsageLogID     { return UsageLogID(uuid.New()) }

// String methods - for logging and debugging.

func (id SubscriberID) String() string { return uuid.UUID(id).String() }
func (id TemplateID) String() string   { return uuid.UUID(id).String() }
func (id UsageLogID) String() string   { return uuid.UUID(id).String() }
func (id ClerkID) String() string      { return string(id) }

// MarshalText keeps JSON output in canonical UUID form instead of a byte array.

func (id SubscriberID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }
func (id TemplateID) MarshalText() ([]byte, error)   { return uuid.UUID(id).MarshalText() }
func (id UsageLogID) MarshalText() ([]byte, error)   { return uuid.UUID(id).MarshalText() }

// IsNil checks - used for service-layer validation.

func (id SubscriberID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id TemplateID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }
func (id UsageLogID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }
func (id ClerkID) IsNil() bool      { return id == "" }

// parseUUID is the shared validation logic.
// Nil UUIDs are allowed here; services use IsNil() for business validation.
func parseUUID(s, label string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" cannot be empty")
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+label+" format")
	}
	return id, nil
}
