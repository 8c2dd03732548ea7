// Package syncer reconciles the local store with the remote moments table.
//
// One cycle pulls remote rows newer than the stored watermark, then pushes
// every local candidate through an idempotent upsert. At most one cycle runs
// at a time; a request arriving while a cycle is active is rejected with
// common.ErrSyncInProgress rather than queued.
package syncer

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/logmoments/internal/client/models"
	"github.com/dmitrijs2005/logmoments/internal/client/photos"
	"github.com/dmitrijs2005/logmoments/internal/client/remote"
	"github.com/dmitrijs2005/logmoments/internal/client/repositories/moments"
	"github.com/dmitrijs2005/logmoments/internal/client/repositories/preferences"
	"github.com/dmitrijs2005/logmoments/internal/logging"
	"github.com/google/uuid"
)

// LocalStore is the part of store.Store the engine needs.
type LocalStore interface {
	Moments() (moments.Repository, error)
	Preferences() (preferences.Repository, error)
}

// Identity answers who is signed in.
type Identity interface {
	CurrentUserID(ctx context.Context) (string, error)
	HasActiveSession(ctx context.Context) bool
}

// Connectivity is satisfied by *network.StatusStore.
type Connectivity interface {
	Online() bool
}

// Notifier receives the "N moments synced" side signal.
type Notifier interface {
	MomentsSynced(ctx context.Context, count int)
}

type Deps struct {
	Store   LocalStore
	Remote  remote.Table
	Auth    Identity
	Network Connectivity
	// Notifier and Photos are optional.
	Notifier Notifier
	Photos   photos.ObjectStore
	Log      logging.Logger
}

type Engine struct {
	store    LocalStore
	remote   remote.Table
	auth     Identity
	network  Connectivity
	notifier Notifier
	photos   photos.ObjectStore
	log      logging.Logger
	now      func() time.Time
	newID    func() string

	syncing atomic.Bool

	mu   sync.Mutex
	user string
	mode models.StorageMode
}

func New(d Deps) *Engine {
	log := d.Log
	if log == nil {
		log = logging.Nop()
	}
	return &Engine{
		store:    d.Store,
		remote:   d.Remote,
		auth:     d.Auth,
		network:  d.Network,
		notifier: d.Notifier,
		photos:   d.Photos,
		log:      log.With("module", "syncer"),
		now:      time.Now,
		newID:    uuid.NewString,
		mode:     models.DefaultStorageMode,
	}
}

// clock returns the current time at the precision the local store keeps.
func (e *Engine) clock() time.Time {
	return e.now().UTC().Truncate(time.Millisecond)
}

func (e *Engine) currentUser() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.user
}

// Syncing reports whether a cycle is running.
func (e *Engine) Syncing() bool {
	return e.syncing.Load()
}

func (e *Engine) notify(ctx context.Context, n int) {
	if e.notifier == nil || n == 0 {
		return
	}
	e.notifier.MomentsSynced(ctx, n)
}
