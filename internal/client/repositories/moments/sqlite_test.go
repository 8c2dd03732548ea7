package moments

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/dmitrijs2005/logmoments/internal/client/models"
	"github.com/dmitrijs2005/logmoments/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
CREATE TABLE moments (
    id                INTEGER PRIMARY KEY AUTOINCREMENT,
    server_id         TEXT,
    content           TEXT NOT NULL DEFAULT '',
    feeling           TEXT NOT NULL DEFAULT '',
    photo             BLOB,
    created_at        TEXT NOT NULL,
    updated_at        TEXT,
    user_id           TEXT NOT NULL DEFAULT '',
    synced,
    last_sync_attempt TEXT,
    photo_key         TEXT
);`)
	require.NoError(t, err)
	return db
}

var t0 = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func newMoment(user, content string, created time.Time) *models.Moment {
	return &models.Moment{Content: content, Feeling: "calm", CreatedAt: created, UserID: user}
}

func TestAddAndGet_RoundTrip(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	m := newMoment("u1", "Missed my train again", t0)
	m.Photo = []byte{0xFF, 0xD8}
	id, err := r.Add(ctx, m)
	require.NoError(t, err)
	require.Equal(t, int64(1), id)

	got, err := r.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Missed my train again", got.Content)
	assert.Equal(t, "calm", got.Feeling)
	assert.Equal(t, []byte{0xFF, 0xD8}, got.Photo)
	assert.True(t, t0.Equal(got.CreatedAt))
	assert.True(t, t0.Equal(got.UpdatedAt), "updated_at defaults to created_at")
	assert.Equal(t, models.StatusPending, got.Status)
	assert.Nil(t, got.ServerID)
	assert.Nil(t, got.LastSyncAttempt)
}

func TestAdd_IdsNeverReused(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	id1, err := r.Add(ctx, newMoment("u", "a", t0))
	require.NoError(t, err)
	require.NoError(t, r.Delete(ctx, id1))

	id2, err := r.Add(ctx, newMoment("u", "b", t0))
	require.NoError(t, err)
	assert.Greater(t, id2, id1)
}

func TestGet_NotFound(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))

	_, err := r.Get(context.Background(), 42)
	require.ErrorIs(t, err, common.ErrNotFound)

	_, err = r.GetByServerID(context.Background(), "srv-x")
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestUpdate_PatchesOnlyGivenFields(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	id, err := r.Add(ctx, newMoment("u", "content", t0))
	require.NoError(t, err)

	attempt := t0.Add(time.Minute)
	require.NoError(t, r.Update(ctx, id, models.MomentPatch{
		ServerID:        models.Ptr("srv-123"),
		Status:          models.Ptr(models.StatusSynced),
		UpdatedAt:       &attempt,
		LastSyncAttempt: &attempt,
	}))

	got, err := r.Get(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, got.ServerID)
	assert.Equal(t, "srv-123", *got.ServerID)
	assert.Equal(t, models.StatusSynced, got.Status)
	assert.Equal(t, "content", got.Content)
	assert.True(t, attempt.Equal(got.UpdatedAt))

	byServer, err := r.GetByServerID(ctx, "srv-123")
	require.NoError(t, err)
	assert.Equal(t, id, byServer.ID)
}

func TestUpdate_ErrorStatusReadsBack(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	id, err := r.Add(ctx, newMoment("u", "c", t0))
	require.NoError(t, err)

	require.NoError(t, r.Update(ctx, id, models.MomentPatch{
		Status:          models.Ptr(models.StatusError),
		LastSyncAttempt: models.Ptr(t0),
	}))

	got, err := r.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusError, got.Status)
}

func TestUpdate_EmptyPatchAndMissingRow(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Update(ctx, 7, models.MomentPatch{}))
	err := r.Update(ctx, 7, models.MomentPatch{Content: models.Ptr("x")})
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestDelete_MissingRow(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	require.ErrorIs(t, r.Delete(context.Background(), 1), common.ErrNotFound)
}

func TestListByUser_NewestFirstAndScoped(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	_, err := r.Add(ctx, newMoment("u1", "old", t0))
	require.NoError(t, err)
	_, err = r.Add(ctx, newMoment("u1", "new", t0.Add(time.Hour)))
	require.NoError(t, err)
	_, err = r.Add(ctx, newMoment("u2", "other", t0))
	require.NoError(t, err)

	list, err := r.ListByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "new", list[0].Content)
	assert.Equal(t, "old", list[1].Content)

	recent, err := r.ListCreatedSince(ctx, "u1", t0.Add(30*time.Minute))
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "new", recent[0].Content)

	n, err := r.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestListBySynced_MembershipFilter(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	synced := newMoment("u", "synced", t0)
	synced.Status = models.StatusSynced
	_, err := r.Add(ctx, synced)
	require.NoError(t, err)
	_, err = r.Add(ctx, newMoment("u", "pending", t0))
	require.NoError(t, err)

	_, err = db.Exec(`INSERT INTO moments (content, created_at, synced) VALUES ('odd', ?, 5)`, models.FormatTime(t0))
	require.NoError(t, err)

	both, err := r.ListBySynced(ctx, 0, 1)
	require.NoError(t, err)
	require.Len(t, both, 2)
	assert.Equal(t, "synced", both[0].Content)
	assert.Equal(t, "pending", both[1].Content)

	pending, err := r.ListBySynced(ctx, 0)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	none, err := r.ListBySynced(ctx)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestRepository_DBErrorsWrapped(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()
	require.NoError(t, db.Close())

	_, err := r.Add(ctx, newMoment("u", "c", t0))
	require.ErrorContains(t, err, "failed to insert moment")

	_, err = r.Count(ctx)
	require.ErrorContains(t, err, "failed to count moments")

	_, err = r.ListByUser(ctx, "u")
	require.ErrorContains(t, err, "failed to select moments")
}
