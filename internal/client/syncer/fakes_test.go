package syncer

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/logmoments/internal/client/models"
	"github.com/dmitrijs2005/logmoments/internal/client/network"
	"github.com/dmitrijs2005/logmoments/internal/client/remote"
	"github.com/dmitrijs2005/logmoments/internal/client/repositories/moments"
	"github.com/dmitrijs2005/logmoments/internal/client/store"
	"github.com/dmitrijs2005/logmoments/internal/logging"
	"github.com/stretchr/testify/require"
)

// memTable is an in-memory remote.Table shared by simulated devices.
type memTable struct {
	mu   sync.Mutex
	seq  int
	rows map[string]remote.Row

	upserts    int
	failUpsert map[string]error // keyed by content
	updateErr  error
	selectErr  error

	// When gate is set SelectUpdatedSince signals entered and waits on gate.
	entered chan struct{}
	gate    chan struct{}
}

func newMemTable() *memTable {
	return &memTable{rows: map[string]remote.Row{}, failUpsert: map[string]error{}}
}

func (m *memTable) SelectUpdatedSince(ctx context.Context, userID string, since time.Time) ([]remote.Row, error) {
	if m.gate != nil {
		m.entered <- struct{}{}
		<-m.gate
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.selectErr != nil {
		return nil, m.selectErr
	}
	var out []remote.Row
	for _, r := range m.rows {
		if r.UserID == userID && r.UpdatedAt.After(since) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.Before(out[j].UpdatedAt) })
	return out, nil
}

func (m *memTable) SelectByUser(ctx context.Context, userID string) ([]remote.Row, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []remote.Row
	for _, r := range m.rows {
		if r.UserID == userID && r.DeletedAt == nil {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memTable) Insert(ctx context.Context, row remote.Row) (remote.Row, error) {
	row.ID = ""
	return m.Upsert(ctx, row)
}

func (m *memTable) Upsert(ctx context.Context, row remote.Row) (remote.Row, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failUpsert[row.Content]; err != nil {
		return remote.Row{}, err
	}
	if row.ID == "" {
		row.ID = m.mintLocked()
	} else if prev, ok := m.rows[row.ID]; ok && prev.UserID != row.UserID {
		return remote.Row{}, remote.ErrConflict
	}
	m.upserts++
	m.rows[row.ID] = row
	return row, nil
}

// nextID stands in for the engine's uuid source so ids stay readable and
// unique across devices sharing the table.
func (m *memTable) nextID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mintLocked()
}

func (m *memTable) mintLocked() string {
	m.seq++
	return fmt.Sprintf("srv-%d", m.seq)
}

func (m *memTable) Update(ctx context.Context, id, userID string, patch remote.Patch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return m.updateErr
	}
	r, ok := m.rows[id]
	if !ok || r.UserID != userID {
		return remote.ErrNotFound
	}
	r.UpdatedAt = patch.UpdatedAt
	if patch.DeletedAt != nil {
		r.DeletedAt = patch.DeletedAt
	}
	m.rows[id] = r
	return nil
}

func (m *memTable) Ping(context.Context) error { return nil }

func (m *memTable) row(id string) (remote.Row, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[id]
	return r, ok
}

func (m *memTable) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

type fakeIdentity struct {
	user   string
	active bool
}

func (f *fakeIdentity) CurrentUserID(context.Context) (string, error) {
	if f.user == "" {
		return "", errors.New("signed out")
	}
	return f.user, nil
}

func (f *fakeIdentity) HasActiveSession(context.Context) bool { return f.active }

type countingNotifier struct {
	mu     sync.Mutex
	counts []int
}

func (n *countingNotifier) MomentsSynced(_ context.Context, c int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.counts = append(n.counts, c)
}

type memPhotos struct {
	mu      sync.Mutex
	seq     int
	objects map[string][]byte
}

func newMemPhotos() *memPhotos { return &memPhotos{objects: map[string][]byte{}} }

func (p *memPhotos) NewKey(userID string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seq++
	return fmt.Sprintf("users/%s/photo-%d", userID, p.seq)
}

func (p *memPhotos) Put(_ context.Context, key string, data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.objects[key] = append([]byte(nil), data...)
	return nil
}

func (p *memPhotos) Get(_ context.Context, key string) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	b, ok := p.objects[key]
	if !ok {
		return nil, errors.New("no such key")
	}
	return b, nil
}

// device bundles one simulated client.
type device struct {
	store  *store.Store
	engine *Engine
	id     *fakeIdentity
	net    *network.StatusStore
	notes  *countingNotifier
	clock  time.Time
}

func newDevice(t *testing.T, table remote.Table, user string) *device {
	t.Helper()
	st := store.New(store.MemoryPath, logging.Nop())
	require.NoError(t, st.Open(context.Background()))
	t.Cleanup(func() { _ = st.Close() })

	d := &device{
		store: st,
		id:    &fakeIdentity{user: user, active: user != ""},
		net:   network.NewStatusStore(true),
		notes: &countingNotifier{},
		clock: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	d.engine = New(Deps{
		Store:    st,
		Remote:   table,
		Auth:     d.id,
		Network:  d.net,
		Notifier: d.notes,
		Log:      logging.Nop(),
	})
	d.engine.now = func() time.Time { return d.clock }
	if mt, ok := table.(*memTable); ok {
		d.engine.newID = mt.nextID
	}
	return d
}

// flakyMoments fails the next n writes that would mark a row synced.
type flakyMoments struct {
	moments.Repository
	n int
}

func (f *flakyMoments) Update(ctx context.Context, id int64, p models.MomentPatch) error {
	if f.n > 0 && p.Status != nil && *p.Status == models.StatusSynced {
		f.n--
		return errors.New("disk I/O error")
	}
	return f.Repository.Update(ctx, id, p)
}

type flakyStore struct {
	*store.Store
	repo *flakyMoments
}

func (s flakyStore) Moments() (moments.Repository, error) { return s.repo, nil }

// failSyncedWrites makes the device lose its next n "synced" bookkeeping
// writes after the remote upsert already went through.
func (d *device) failSyncedWrites(t *testing.T, n int) {
	t.Helper()
	repo, err := d.store.Moments()
	require.NoError(t, err)
	d.engine.store = flakyStore{Store: d.store, repo: &flakyMoments{Repository: repo, n: n}}
}

func (d *device) tick(dur time.Duration) { d.clock = d.clock.Add(dur) }

func (d *device) capture(t *testing.T, content string) int64 {
	t.Helper()
	repo, err := d.store.Moments()
	require.NoError(t, err)
	id, err := repo.Add(context.Background(), &models.Moment{
		Content:   content,
		Feeling:   "calm",
		CreatedAt: d.clock,
		UpdatedAt: d.clock,
		UserID:    d.id.user,
		Status:    models.StatusPending,
	})
	require.NoError(t, err)
	return id
}

func (d *device) moment(t *testing.T, id int64) *models.Moment {
	t.Helper()
	repo, err := d.store.Moments()
	require.NoError(t, err)
	m, err := repo.Get(context.Background(), id)
	require.NoError(t, err)
	return m
}

func (d *device) all(t *testing.T) []*models.Moment {
	t.Helper()
	repo, err := d.store.Moments()
	require.NoError(t, err)
	list, err := repo.ListByUser(context.Background(), d.id.user)
	require.NoError(t, err)
	return list
}
