package domain

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "dorkforge/pkg/domain-errors"
)

func TestParseIDs(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseSubscriberID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects invalid format", func(t *testing.T) {
		_, err := ParseTemplateID("not-a-uuid")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
		assert.EqualError(t, err, "invalid template ID format")
	})

	t.Run("accepts nil UUID for IsNil checks", func(t *testing.T) {
		id, err := ParseSubscriberID(uuid.Nil.String())
		require.NoError(t, err)
		assert.True(t, id.IsNil())
	})

	t.Run("accepts valid UUID", func(t *testing.T) {
		raw := uuid.New()
		id, err := ParseSubscriberID(raw.String())
		require.NoError(t, err)
		assert.Equal(t, SubscriberID(raw), id)
		assert.Equal(t, raw.String(), id.String())
	})
}

func TestParseClerkID(t *testing.T) {
	_, err := ParseClerkID("")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))

	id, err := ParseClerkID("user_2abc")
	require.NoError(t, err)
	assert.Equal(t, "user_2abc", id.String())
	assert.False(t, id.IsNil())
}

func TestIDsMarshalAsCanonicalStrings(t *testing.T) {
	sub := NewSubscriberID()
	tpl := NewTemplateID()
	entry := NewUsageLogID()

	out, err := json.Marshal(map[string]any{"subscriber": sub, "template": tpl, "entry": entry})
	require.NoError(t, err)
	assert.JSONEq(t, `{"subscriber":"`+sub.String()+`","template":"`+tpl.String()+`","entry":"`+entry.String()+`"}`, string(out))
	assert.False(t, entry.IsNil())
}
