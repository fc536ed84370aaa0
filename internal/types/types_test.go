package types

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIDIsValid(t *testing.T) {
	id := NewID()
	assert.NoError(t, id.Validate())
	assert.False(t, id.IsZero())
}

func TestParseID(t *testing.T) {
	id := NewID()
	parsed, err := ParseID(id.String())
	require.NoError(t, err)
	assert.Equal(t, id, parsed)

	_, err = ParseID("not-a-uuid")
	assert.Error(t, err)
}

func TestIDJSONRoundTrip(t *testing.T) {
	id := NewID()
	data, err := json.Marshal(id)
	require.NoError(t, err)

	var decoded ID
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, id, decoded)
}

// Stored actors include the "system" sentinel for automatic continuations,
// so decoding must accept non-UUID strings.
func TestIDJSONAcceptsSentinelActor(t *testing.T) {
	var decoded ID
	require.NoError(t, json.Unmarshal([]byte(`"system"`), &decoded))
	assert.Equal(t, ID("system"), decoded)

	require.NoError(t, json.Unmarshal([]byte("null"), &decoded))
	assert.True(t, decoded.IsZero())
}

func TestErrorCodeMatching(t *testing.T) {
	base := NewError(INSTANCE_NOT_FOUND, "missing")
	wrapped := WrapError(DB_QUERY_FAILED, "query failed", base)

	assert.Equal(t, DB_QUERY_FAILED, CodeOf(wrapped))
	assert.True(t, errors.Is(wrapped, base))
	assert.ErrorContains(t, wrapped, "missing")
}

func TestRetryableClassification(t *testing.T) {
	retryable := NewRetryableError(CONCURRENT_MODIFICATION, "conflict", nil)
	assert.True(t, IsRetryable(retryable))

	permanent := NewError(DEFINITION_INVALID, "bad graph")
	assert.False(t, IsRetryable(permanent))
	assert.False(t, IsRetryable(errors.New("plain")))
}

func TestWrapErrorUnwrap(t *testing.T) {
	cause := errors.New("disk full")
	err := WrapError(AUDIT_APPEND_FAILED, "append failed", cause)
	assert.Equal(t, cause, errors.Unwrap(err))
}
