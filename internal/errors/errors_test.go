package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSdlError_Error(t *testing.T) {
	cause := errors.New("disk full")
	err := New(DatabaseError, "failed to open index", cause)

	assert.Equal(t, "[DATABASE_ERROR] failed to open index: disk full", err.Error())
	assert.Equal(t, cause, err.Unwrap())
}

func TestSdlError_ErrorWithoutCause(t *testing.T) {
	err := New(NoSnapshot, "no snapshot", nil)
	assert.Equal(t, "[NO_SNAPSHOT] no snapshot", err.Error())
	assert.Nil(t, err.Unwrap())
}

func TestSdlError_WithDetails(t *testing.T) {
	err := New(NoEntries, "nothing found", nil).WithDetails(map[string]interface{}{"count": 0})
	require.NotNil(t, err.Details)
	assert.Equal(t, 0, err.Details.(map[string]interface{})["count"])
}

func TestSdlError_WithNextBestAction(t *testing.T) {
	err := NewPolicyDeniedError("max-depth", "requested depth exceeds policy limit").
		WithNextBestAction("retry with a smaller depth", "depth")

	assert.Equal(t, "retry with a smaller depth", err.NextBestAction)
	assert.Equal(t, []string{"depth"}, err.RequiredFieldsForNext)
}

func TestGetSuggestedFixes(t *testing.T) {
	fixes := GetSuggestedFixes(NoSnapshot)
	require.Len(t, fixes, 1)
	assert.Equal(t, RunCommand, fixes[0].Type)

	assert.Nil(t, GetSuggestedFixes(ErrorCode("NOT_A_REAL_CODE")))
}

func TestNewInvalidParameterError(t *testing.T) {
	err := NewInvalidParameterError("symbolId", "")
	assert.Equal(t, InvalidParameter, err.Code)
	assert.Contains(t, err.Message, "symbolId")

	err = NewInvalidParameterError("budgetTokens", "must be positive")
	assert.Contains(t, err.Message, "must be positive")
}

func TestNewNoSnapshotError(t *testing.T) {
	err := NewNoSnapshotError("repo-1")
	assert.Equal(t, NoSnapshot, err.Code)
	assert.Equal(t, "repo-1", err.Details.(map[string]interface{})["repoId"])
}

func TestNewQueueTimeoutError(t *testing.T) {
	err := NewQueueTimeoutError("parser", 5000)
	assert.Equal(t, QueueTimeout, err.Code)
	assert.Equal(t, int64(5000), err.Details.(map[string]interface{})["waitedMs"])
}

func TestWrapError(t *testing.T) {
	cause := errors.New("boom")
	err := WrapError(ParseError, "failed to parse file", cause)
	assert.ErrorIs(t, err, cause)
}
