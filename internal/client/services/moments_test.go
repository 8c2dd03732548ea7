package services

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrijs2005/logmoments/internal/client/models"
	"github.com/dmitrijs2005/logmoments/internal/client/network"
	"github.com/dmitrijs2005/logmoments/internal/client/staging"
	"github.com/dmitrijs2005/logmoments/internal/client/store"
	"github.com/dmitrijs2005/logmoments/internal/common"
	"github.com/dmitrijs2005/logmoments/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedUser string

func (u fixedUser) CurrentUserID(context.Context) (string, error) {
	if u == "" {
		return "", common.ErrNoUser
	}
	return string(u), nil
}

type fakeSyncer struct {
	syncs   atomic.Int32
	deleted []int64
	mode    models.StorageMode
}

func (f *fakeSyncer) SyncOfflineData(context.Context) models.SyncResult {
	f.syncs.Add(1)
	return models.SyncResult{Success: true, SyncedCount: 1, Total: 1}
}

func (f *fakeSyncer) DeleteMoment(_ context.Context, id int64) error {
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeSyncer) StorageMode(context.Context) models.StorageMode { return f.mode }

type captureCounter struct{ n atomic.Int32 }

func (c *captureCounter) MomentCaptured(context.Context) { c.n.Add(1) }

type momentFixture struct {
	svc    *momentService
	store  *store.Store
	buffer *staging.Buffer
	sync   *fakeSyncer
	net    *network.StatusStore
	notes  *captureCounter
	now    time.Time
}

func newMomentFixture(t *testing.T, open bool) *momentFixture {
	t.Helper()
	st := store.New(store.MemoryPath, logging.Nop())
	if open {
		require.NoError(t, st.Open(context.Background()))
	}
	t.Cleanup(func() { _ = st.Close() })

	kv, err := staging.NewFileKV(t.TempDir())
	require.NoError(t, err)

	f := &momentFixture{
		store:  st,
		buffer: staging.NewBuffer(kv),
		sync:   &fakeSyncer{mode: models.StorageCloud},
		net:    network.NewStatusStore(true),
		notes:  &captureCounter{},
		now:    time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC),
	}
	f.svc = NewMomentService(MomentDeps{
		Store:    st,
		Staging:  f.buffer,
		Syncer:   f.sync,
		Users:    fixedUser("u1"),
		Network:  f.net,
		Notifier: f.notes,
		Log:      logging.Nop(),
	}).(*momentService)
	f.svc.now = func() time.Time { return f.now }
	return f
}

func tinyPNG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 4))))
	return buf.Bytes()
}

func TestCapture_StoresPendingAndSyncsWhenOnline(t *testing.T) {
	ctx := context.Background()
	f := newMomentFixture(t, true)

	res, err := f.svc.Capture(ctx, CaptureInput{Content: "  I miss the sea  ", Photo: tinyPNG(t)})
	require.NoError(t, err)
	require.False(t, res.Staged)
	require.NotNil(t, res.Sync)
	assert.True(t, res.Sync.Success)
	assert.Equal(t, int32(1), f.sync.syncs.Load())
	assert.Equal(t, int32(1), f.notes.n.Load())

	got, err := f.svc.Get(ctx, res.Moment.ID)
	require.NoError(t, err)
	assert.Equal(t, "I miss the sea", got.Content)
	assert.Equal(t, "Longing", got.Feeling)
	assert.Equal(t, models.StatusPending, got.Status)
	assert.Equal(t, "u1", got.UserID)
	assert.True(t, got.CreatedAt.Equal(f.now))
	assert.NotEmpty(t, got.Photo)
}

func TestCapture_NoSyncWhenOfflineOrLocal(t *testing.T) {
	ctx := context.Background()
	f := newMomentFixture(t, true)

	f.net.Set(false)
	res, err := f.svc.Capture(ctx, CaptureInput{Content: "offline thought", Feeling: "Calm"})
	require.NoError(t, err)
	assert.Nil(t, res.Sync)

	f.net.Set(true)
	f.sync.mode = models.StorageLocal
	res, err = f.svc.Capture(ctx, CaptureInput{Content: "local thought"})
	require.NoError(t, err)
	assert.Nil(t, res.Sync)
	assert.Zero(t, f.sync.syncs.Load())
}

func TestCapture_Validation(t *testing.T) {
	ctx := context.Background()
	f := newMomentFixture(t, true)

	_, err := f.svc.Capture(ctx, CaptureInput{Content: " <script>x</script> "})
	assert.ErrorIs(t, err, common.ErrEmptyContent)

	_, err = f.svc.Capture(ctx, CaptureInput{Content: "x", Photo: []byte("plain text, not an image")})
	assert.ErrorIs(t, err, common.ErrUnsupportedFileType)

	noUser := NewMomentService(MomentDeps{Store: f.store, Users: fixedUser("")})
	_, err = noUser.Capture(ctx, CaptureInput{Content: "x"})
	assert.ErrorIs(t, err, common.ErrNoUser)
}

func TestCapture_Backdating(t *testing.T) {
	ctx := context.Background()
	f := newMomentFixture(t, true)

	res, err := f.svc.Capture(ctx, CaptureInput{Content: "late entry", When: "yesterday"})
	require.NoError(t, err)
	assert.True(t, res.Moment.CreatedAt.Before(f.now))
	assert.True(t, res.Moment.CreatedAt.After(f.now.Add(-48*time.Hour)))

	_, err = f.svc.Capture(ctx, CaptureInput{Content: "x", When: "tomorrow"})
	assert.ErrorIs(t, err, ErrUnknownTime)

	_, err = f.svc.Capture(ctx, CaptureInput{Content: "x", When: "purple elephant"})
	assert.ErrorIs(t, err, ErrUnknownTime)
}

func TestCapture_FallsBackToStagingThenImports(t *testing.T) {
	ctx := context.Background()
	f := newMomentFixture(t, false)

	res, err := f.svc.Capture(ctx, CaptureInput{Content: "store is down"})
	require.NoError(t, err)
	require.True(t, res.Staged)
	assert.Contains(t, res.OfflineID, common.OfflineIDPrefix)
	assert.Nil(t, res.Sync)

	staged, err := f.buffer.GetUnsyncedMoments(ctx)
	require.NoError(t, err)
	require.Len(t, staged, 1)

	require.NoError(t, f.store.Open(ctx))
	n, err := f.svc.ImportStaged(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	list, err := f.svc.Timeline(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "store is down", list[0].Content)
	assert.Equal(t, models.StatusPending, list[0].Status)

	left, err := f.buffer.GetOfflineMoments(ctx)
	require.NoError(t, err)
	assert.Empty(t, left)
}

func TestDelete_GoesThroughSyncer(t *testing.T) {
	f := newMomentFixture(t, true)
	require.NoError(t, f.svc.Delete(context.Background(), 7))
	assert.Equal(t, []int64{7}, f.sync.deleted)
}

func TestInsights(t *testing.T) {
	ctx := context.Background()
	f := newMomentFixture(t, true)
	f.net.Set(false)

	for _, in := range []CaptureInput{
		{Content: "a", Feeling: "Happy"},
		{Content: "b", Feeling: "Happy"},
		{Content: "c", Feeling: "Sad"},
		{Content: "d", Feeling: "Sad", When: "10 days ago"},
	} {
		_, err := f.svc.Capture(ctx, in)
		require.NoError(t, err)
	}

	got, err := f.svc.Insights(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, got.Total)
	assert.Equal(t, 3, got.LastWeek)
	assert.Equal(t, map[string]int{"Happy": 2, "Sad": 2}, got.Moods)
	assert.Equal(t, "Happy", got.TopMood)
}

func TestDetectMood(t *testing.T) {
	tests := map[string]string{
		"I really miss you":          "Longing",
		"So HAPPY today":             "Happy",
		"feeling down":               "Sad",
		"thrilled about the trip":    "Excited",
		"I remember that summer":     "Nostalgic",
		"I hope it works":            "Hopeful",
		"just a regular afternoon":   DefaultMood,
		"missing and happy together": "Longing",
	}
	for in, want := range tests {
		assert.Equal(t, want, DetectMood(in), in)
	}
}

func TestTopMood(t *testing.T) {
	assert.Equal(t, "", topMood(map[string]int{}))
	assert.Equal(t, "B", topMood(map[string]int{"A": 1, "B": 3, "C": 3}))
}
