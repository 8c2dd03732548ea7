package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/dmitrijs2005/logmoments/internal/client/migrations"
	"github.com/dmitrijs2005/logmoments/internal/client/models"
	"github.com/dmitrijs2005/logmoments/internal/common"
	"github.com/dmitrijs2005/logmoments/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tableExists(t *testing.T, db *sql.DB, name string) bool {
	t.Helper()
	var n int
	err := db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?`, name).Scan(&n)
	require.NoError(t, err)
	return n > 0
}

func openTemp(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "moments.db")
	s := New(path, logging.Nop())
	require.NoError(t, s.Open(context.Background()))
	t.Cleanup(func() { _ = s.Close() })
	return s, path
}

func TestOpen_MigratesToLatest(t *testing.T) {
	s, _ := openTemp(t)
	ctx := context.Background()

	db, err := s.DB()
	require.NoError(t, err)
	for _, name := range []string{"goose_db_version", "moments", "preferences", "metadata"} {
		assert.True(t, tableExists(t, db, name), name)
	}

	v, err := s.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, migrations.LatestVersion, v)

	prefs, err := s.Preferences()
	require.NoError(t, err)
	p, err := prefs.Get(ctx)
	require.NoError(t, err)
	require.NotNil(t, p, "version 3 seeds the preferences row")
	assert.Equal(t, models.StorageCloud, p.StorageMode)
	assert.Nil(t, p.LastSynced)
}

func TestOpen_IsIdempotent(t *testing.T) {
	s, _ := openTemp(t)
	ctx := context.Background()

	db1, err := s.DB()
	require.NoError(t, err)
	require.NoError(t, s.Open(ctx))
	db2, err := s.DB()
	require.NoError(t, err)
	assert.Same(t, db1, db2)
}

func TestReopen_KeepsDataAndSkipsAppliedSteps(t *testing.T) {
	ctx := context.Background()
	s, path := openTemp(t)

	repo, err := s.Moments()
	require.NoError(t, err)
	_, err = repo.Add(ctx, &models.Moment{Content: "kept", CreatedAt: models.Epoch, UserID: "u"})
	require.NoError(t, err)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close(), "close is idempotent")

	again := New(path, logging.Nop())
	require.NoError(t, again.Open(ctx))
	defer again.Close()

	repo, err = again.Moments()
	require.NoError(t, err)
	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestClosedStore_ReportsUnavailable(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "x.db"), logging.Nop())

	_, err := s.Moments()
	assert.ErrorIs(t, err, common.ErrStoreUnavailable)
	_, err = s.Preferences()
	assert.ErrorIs(t, err, common.ErrStoreUnavailable)
	_, err = s.Metadata()
	assert.ErrorIs(t, err, common.ErrStoreUnavailable)
	_, err = s.Version(context.Background())
	assert.ErrorIs(t, err, common.ErrStoreUnavailable)
	err = s.WithTx(context.Background(), func(context.Context, Tx) error { return nil })
	assert.ErrorIs(t, err, common.ErrStoreUnavailable)

	st, err := s.Status(context.Background())
	require.NoError(t, err)
	assert.False(t, st.Open)
	assert.False(t, s.IsOpen())
}

func TestOpen_BadPathFails(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "missing", "dir", "x.db"), logging.Nop())
	require.Error(t, s.Open(context.Background()))
	assert.False(t, s.IsOpen())
}

func TestUpgradeFromVersion1_BackfillsLegacyRows(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "legacy.db")

	raw, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	raw.SetMaxOpenConns(1)
	require.NoError(t, MigrateTo(ctx, raw, 1))

	_, err = raw.Exec(`
		INSERT INTO moments (content, feeling, created_at, updated_at, user_id, synced) VALUES
			('legacy true',  '', '2024-01-01T09:00:00.000Z', NULL, 'u', 'true'),
			('legacy false', '', '2024-01-02T09:00:00.000Z', '2024-01-03T09:00:00.000Z', 'u', 'false'),
			('no flag',      '', '2024-01-04T09:00:00.000Z', NULL, 'u', NULL),
			('numeric',      '', '2024-01-05T09:00:00.000Z', '2024-01-05T10:00:00.000Z', 'u', 1)`)
	require.NoError(t, err)
	require.NoError(t, raw.Close())

	s := New(path, logging.Nop())
	require.NoError(t, s.Open(ctx))
	defer s.Close()

	db, err := s.DB()
	require.NoError(t, err)

	type row struct {
		synced    any
		createdAt string
		updatedAt string
	}
	read := func(content string) row {
		var r row
		require.NoError(t, db.QueryRow(
			`SELECT synced, created_at, updated_at FROM moments WHERE content = ?`, content,
		).Scan(&r.synced, &r.createdAt, &r.updatedAt))
		return r
	}

	r := read("legacy true")
	assert.Equal(t, int64(1), r.synced)
	assert.Equal(t, r.createdAt, r.updatedAt)

	r = read("legacy false")
	assert.Equal(t, int64(0), r.synced)
	assert.Equal(t, "2024-01-03T09:00:00.000Z", r.updatedAt)

	r = read("no flag")
	assert.Equal(t, int64(0), r.synced)
	assert.Equal(t, "2024-01-04T09:00:00.000Z", r.updatedAt)

	r = read("numeric")
	assert.Equal(t, int64(1), r.synced)

	repo, err := s.Moments()
	require.NoError(t, err)
	candidates, err := repo.ListBySynced(ctx, 0, 1)
	require.NoError(t, err)
	assert.Len(t, candidates, 4)
}

func TestUpgradeFailure_RollsBackAndReportsMigrationError(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "broken.db")

	raw, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	raw.SetMaxOpenConns(1)
	require.NoError(t, MigrateTo(ctx, raw, 2))

	// A moments table without updated_at makes the version 3 read fail.
	_, err = raw.Exec(`DROP TABLE moments`)
	require.NoError(t, err)
	_, err = raw.Exec(`CREATE TABLE moments (id INTEGER PRIMARY KEY, created_at TEXT, synced)`)
	require.NoError(t, err)
	_, err = raw.Exec(`INSERT INTO moments (created_at, synced) VALUES ('2024-01-01T00:00:00.000Z', 'true')`)
	require.NoError(t, err)

	s := New(path, logging.Nop())
	err = s.Open(ctx)
	require.ErrorIs(t, err, common.ErrMigration)
	assert.False(t, s.IsOpen())

	v, err := SchemaVersion(ctx, raw)
	require.NoError(t, err)
	assert.Equal(t, int64(2), v, "failed step must not be recorded")

	var synced string
	require.NoError(t, raw.QueryRow(`SELECT synced FROM moments`).Scan(&synced))
	assert.Equal(t, "true", synced, "rows must be untouched")
	require.NoError(t, raw.Close())
}

func TestStatus_ListsTablesAndIndexes(t *testing.T) {
	s, path := openTemp(t)
	ctx := context.Background()

	repo, err := s.Moments()
	require.NoError(t, err)
	_, err = repo.Add(ctx, &models.Moment{Content: "x", CreatedAt: models.Epoch})
	require.NoError(t, err)

	st, err := s.Status(ctx)
	require.NoError(t, err)
	assert.True(t, st.Open)
	assert.Equal(t, path, st.Path)
	assert.Equal(t, migrations.LatestVersion, st.Version)
	assert.Equal(t, 1, st.MomentCount)

	byName := map[string][]string{}
	for _, tbl := range st.Tables {
		byName[tbl.Name] = tbl.Indexes
	}
	require.Contains(t, byName, "moments")
	assert.ElementsMatch(t, []string{
		"idx_moments_created_at", "idx_moments_last_sync_attempt", "idx_moments_server_id",
		"idx_moments_synced", "idx_moments_updated_at", "idx_moments_user_id",
	}, byName["moments"])
	assert.Equal(t, []string{"idx_preferences_user_id"}, byName["preferences"])
	assert.Contains(t, byName, "metadata")
}

func TestWithTx_RollsBackAllRepositories(t *testing.T) {
	s, _ := openTemp(t)
	ctx := context.Background()

	err := s.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		if _, err := tx.Moments.Add(ctx, &models.Moment{Content: "a", CreatedAt: models.Epoch}); err != nil {
			return err
		}
		if err := tx.Metadata.Put(ctx, "k", []byte("v")); err != nil {
			return err
		}
		return common.ErrNotFound
	})
	require.ErrorIs(t, err, common.ErrNotFound)

	repo, err := s.Moments()
	require.NoError(t, err)
	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestMemoryStore(t *testing.T) {
	s := New(MemoryPath, logging.Nop())
	require.NoError(t, s.Open(context.Background()))
	defer s.Close()

	v, err := s.Version(context.Background())
	require.NoError(t, err)
	assert.Equal(t, migrations.LatestVersion, v)
}
