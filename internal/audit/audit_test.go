package audit

import (
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sdlctl/sdlctl/internal/logging"
	"github.com/sdlctl/sdlctl/internal/redaction"
	"github.com/sdlctl/sdlctl/internal/storage"
)

func newTestLog(t *testing.T, redactionEnabled bool) *Log {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "index.db")
	logger := logging.NewLogger(logging.Config{Format: logging.JSONFormat, Level: logging.ErrorLevel, Output: io.Discard})
	db, err := storage.Open(dbPath, logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	redactor, err := redaction.New(redactionEnabled, "test-salt")
	require.NoError(t, err)
	return New(storage.NewAuditRepository(db), redactor)
}

func TestAppendAndTrail_ReturnsMostRecentFirst(t *testing.T) {
	log := newTestLog(t, false)

	log.Append(Event{RepoID: "r1", Actor: "agent", Operation: "getSlice", Details: map[string]interface{}{"path": "a.go"}})
	log.Append(Event{RepoID: "r1", Actor: "agent", Operation: "getCard", Details: map[string]interface{}{"path": "b.go"}})

	trail, err := log.Trail("r1", 10)
	require.NoError(t, err)
	require.Len(t, trail, 2)
	assert.Equal(t, "getCard", trail[0].Operation)
	assert.Equal(t, "getSlice", trail[1].Operation)
	assert.NotEmpty(t, trail[0].EntryHash)
}

func TestAppend_RedactsPathsWhenEnabled(t *testing.T) {
	log := newTestLog(t, true)
	log.Append(Event{RepoID: "r1", Actor: "agent", Operation: "getSlice", Details: map[string]interface{}{"path": "internal/widget.go"}})

	trail, err := log.Trail("r1", 1)
	require.NoError(t, err)
	require.Len(t, trail, 1)
	assert.NotContains(t, trail[0].DetailsJSON, "internal/widget.go")
}

func TestTrail_ClampsLimitToDBQueryLimitMax(t *testing.T) {
	log := newTestLog(t, false)
	log.Append(Event{RepoID: "r1", Operation: "getSlice"})

	trail, err := log.Trail("r1", DBQueryLimitMax+500)
	require.NoError(t, err)
	assert.Len(t, trail, 1)
}
