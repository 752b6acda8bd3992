package storage

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sdlctl/sdlctl/internal/logging"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "index.db")
	logger := logging.NewLogger(logging.Config{Format: logging.HumanFormat, Level: logging.ErrorLevel})
	db, err := Open(dbPath, logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestOpen_RunsMigrationsIdempotently(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "index.db")
	logger := logging.NewLogger(logging.Config{Format: logging.HumanFormat, Level: logging.ErrorLevel})

	db, err := Open(dbPath, logger)
	require.NoError(t, err)
	db.Close()

	db2, err := Open(dbPath, logger)
	require.NoError(t, err)
	defer db2.Close()

	row := db2.QueryRow(`SELECT COUNT(*) FROM _migrations`)
	var count int
	require.NoError(t, row.Scan(&count))
	require.Equal(t, len(migrations), count)
}

func TestRepoRepository_UpsertAndGet(t *testing.T) {
	db := newTestDB(t)
	repos := NewRepoRepository(db)

	require.NoError(t, repos.Upsert(Repo{RepoID: "r1", Root: "/src/r1", DefaultBranch: "main", CreatedAt: time.Now()}))
	require.NoError(t, repos.Upsert(Repo{RepoID: "r1", Root: "/src/r1-renamed", DefaultBranch: "main", CreatedAt: time.Now()}))

	got, err := repos.Get("r1")
	require.NoError(t, err)
	require.Equal(t, "/src/r1-renamed", got.Root)
}

func TestVersionRepository_LatestOnlyReturnsComplete(t *testing.T) {
	db := newTestDB(t)
	versions := NewVersionRepository(db)
	require.NoError(t, NewRepoRepository(db).Upsert(Repo{RepoID: "r1", Root: "/src/r1", CreatedAt: time.Now()}))

	latest, err := versions.Latest("r1")
	require.NoError(t, err)
	require.Nil(t, latest)

	require.NoError(t, versions.Create(Version{VersionID: "v1", RepoID: "r1", CreatedAt: time.Now(), Status: "building"}))
	latest, err = versions.Latest("r1")
	require.NoError(t, err)
	require.Nil(t, latest)

	require.NoError(t, versions.Finalize("v1", 10, 20))
	latest, err = versions.Latest("r1")
	require.NoError(t, err)
	require.NotNil(t, latest)
	require.Equal(t, 10, latest.FileCount)
}

func TestSymbolRepository_CountVersionsForSymbol(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, NewRepoRepository(db).Upsert(Repo{RepoID: "r1", Root: "/src/r1", CreatedAt: time.Now()}))
	require.NoError(t, NewVersionRepository(db).Create(Version{VersionID: "v1", RepoID: "r1", CreatedAt: time.Now()}))
	require.NoError(t, NewVersionRepository(db).Create(Version{VersionID: "v2", RepoID: "r1", CreatedAt: time.Now()}))

	files := NewFileRepository(db)
	require.NoError(t, files.Insert(File{FileID: "f1", RepoID: "r1", VersionID: "v1", RelPath: "a.go", ContentHash: "h1"}))
	require.NoError(t, files.Insert(File{FileID: "f1", RepoID: "r1", VersionID: "v2", RelPath: "a.go", ContentHash: "h1"}))

	symbols := NewSymbolRepository(db)
	require.NoError(t, symbols.Insert(Symbol{SymbolID: "s1", RepoID: "r1", FileID: "f1", Name: "Foo", Kind: "function"}))

	require.NoError(t, symbols.RecordVersion(SymbolVersion{SymbolID: "s1", VersionID: "v1", ContentHash: "h1", Status: "present"}))
	require.NoError(t, symbols.RecordVersion(SymbolVersion{SymbolID: "s1", VersionID: "v2", ContentHash: "h1", Status: "present"}))

	count, err := symbols.CountVersionsForSymbol("s1")
	require.NoError(t, err)
	require.Equal(t, 2, count)
}

func TestEdgeRepository_OutgoingAndIncoming(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, NewRepoRepository(db).Upsert(Repo{RepoID: "r1", Root: "/src/r1", CreatedAt: time.Now()}))
	require.NoError(t, NewVersionRepository(db).Create(Version{VersionID: "v1", RepoID: "r1", CreatedAt: time.Now()}))

	edges := NewEdgeRepository(db)
	require.NoError(t, edges.Insert(Edge{
		EdgeID: "e1", RepoID: "r1", VersionID: "v1",
		FromSymbolID: "s1", ToSymbolID: sql.NullString{String: "s2", Valid: true},
		Kind: "calls", Confidence: 0.9, ResolutionMethod: "qualified",
	}))

	out, err := edges.OutgoingFrom("v1", "s1")
	require.NoError(t, err)
	require.Len(t, out, 1)

	in, err := edges.IncomingTo("v1", "s2")
	require.NoError(t, err)
	require.Len(t, in, 1)
}

func TestAuditRepository_TrailOrdering(t *testing.T) {
	db := newTestDB(t)
	audit := NewAuditRepository(db)

	_, err := audit.Append(AuditEvent{Timestamp: time.Now(), RepoID: "r1", Operation: "slice", PolicyEffect: "allow", DetailsJSON: "{}", EntryHash: "h1"})
	require.NoError(t, err)
	_, err = audit.Append(AuditEvent{Timestamp: time.Now().Add(time.Second), RepoID: "r1", Operation: "card", PolicyEffect: "allow", DetailsJSON: "{}", EntryHash: "h2"})
	require.NoError(t, err)

	trail, err := audit.Trail("r1", 10)
	require.NoError(t, err)
	require.Len(t, trail, 2)
	require.Equal(t, "card", trail[0].Operation)
}

func TestMarshalDetails(t *testing.T) {
	data, err := MarshalDetails(map[string]interface{}{"symbolId": "s1"})
	require.NoError(t, err)
	require.Contains(t, data, "symbolId")
}
