package syncer

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/logmoments/internal/client/models"
	"github.com/dmitrijs2005/logmoments/internal/client/remote"
	"github.com/dmitrijs2005/logmoments/internal/client/repositories/moments"
	"github.com/dmitrijs2005/logmoments/internal/common"
)

// SyncOfflineData runs one full cycle: guards, pull, push, watermark.
// Cycle-level failures are reported in SyncResult.Reason; row failures are
// counted and the cycle carries on. A started cycle is not cancelled when
// ctx is.
func (e *Engine) SyncOfflineData(ctx context.Context) models.SyncResult {
	if !e.syncing.CompareAndSwap(false, true) {
		return models.Rejected(common.ErrSyncInProgress)
	}
	defer e.syncing.Store(false)

	ctx = context.WithoutCancel(ctx)

	if e.StorageMode(ctx) == models.StorageLocal {
		return models.Rejected(common.ErrLocalMode)
	}
	if e.remote == nil {
		return models.Rejected(common.ErrNoRemote)
	}
	if e.network != nil && !e.network.Online() {
		return models.Rejected(common.ErrOffline)
	}

	repo, err := e.store.Moments()
	if err != nil {
		return models.Rejected(common.ErrStoreUnavailable)
	}

	user, err := e.resolveUser(ctx)
	if err != nil {
		return models.Rejected(err)
	}
	start := e.clock()

	pull := e.syncFromServer(ctx, user)
	if pull.Reason != nil || pull.ErrorCount > 0 {
		e.log.Warn(ctx, "pull phase incomplete", "result", pull.String())
	}

	candidates, err := repo.ListBySynced(ctx, models.StatusPending.Column(), models.StatusSynced.Column())
	if err != nil {
		e.log.Error(ctx, "failed to select sync candidates", "error", err)
		return models.SyncResult{ErrorCount: 1, Reason: err}
	}
	if len(candidates) == 0 {
		return models.SyncResult{Success: true}
	}

	t := fold(ctx, candidates,
		func(ctx context.Context, m *models.Moment) error {
			return e.pushOne(ctx, repo, m, start)
		},
		func(m *models.Moment, err error) {
			e.log.Warn(ctx, "failed to push moment", "id", m.ID, "error", err)
			patch := models.MomentPatch{
				Status:          models.Ptr(models.StatusPending),
				LastSyncAttempt: &start,
			}
			if uerr := repo.Update(ctx, m.ID, patch); uerr != nil {
				e.log.Warn(ctx, "could not record sync failure", "id", m.ID, "error", uerr)
			}
		})

	if t.successes > 0 {
		if err := e.advanceWatermark(ctx, user, start); err != nil {
			e.log.Error(ctx, "failed to store watermark", "error", err)
		}
		e.notify(ctx, t.successes)
	}

	res := models.SyncResult{
		Success:     t.failures == 0,
		SyncedCount: t.successes,
		ErrorCount:  t.failures,
		Total:       len(candidates),
	}
	e.log.Info(ctx, "sync finished", "result", res.String())
	return res
}

// resolveUser asks the identity provider who is signed in on every cycle,
// rebinding the engine when the session user changed and unbinding it when
// nobody is signed in.
func (e *Engine) resolveUser(ctx context.Context) (string, error) {
	id, err := e.auth.CurrentUserID(ctx)
	if err != nil || id == "" {
		if prev := e.currentUser(); prev != "" {
			e.log.Info(ctx, "no signed-in user, unbinding", "previous", prev)
			e.ClearUser()
		}
		return "", common.ErrNoUser
	}
	if id != e.currentUser() {
		if err := e.SetUser(ctx, id); err != nil {
			e.log.Warn(ctx, "failed to bind session user", "error", err)
		}
	}
	return id, nil
}

// pushOne upserts m keyed by its server id, owned by the session user.
func (e *Engine) pushOne(ctx context.Context, repo moments.Repository, m *models.Moment, stamp time.Time) error {
	if !e.auth.HasActiveSession(ctx) {
		return common.ErrAuthRequired
	}
	userID, err := e.auth.CurrentUserID(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrAuthRequired, err)
	}

	// The server id is stored before the upsert so a retry after a lost
	// local write targets the same remote row.
	if !m.HasServerID() {
		id := e.newID()
		if err := repo.Update(ctx, m.ID, models.MomentPatch{ServerID: &id}); err != nil {
			return err
		}
		m.ServerID = &id
	}

	created := m.CreatedAt
	if created.IsZero() {
		created = stamp
	}
	row := remote.Row{
		ID:        *m.ServerID,
		UserID:    userID,
		Content:   m.Content,
		Feeling:   m.Feeling,
		PhotoKey:  m.PhotoKey,
		CreatedAt: created,
		UpdatedAt: stamp,
	}

	if len(m.Photo) > 0 {
		if e.photos == nil {
			row.Photo = remote.EncodePhoto(m.Photo)
		} else if m.PhotoKey == nil {
			key := e.photos.NewKey(userID)
			if err := e.photos.Put(ctx, key, m.Photo); err != nil {
				return fmt.Errorf("upload photo: %w", err)
			}
			if err := repo.Update(ctx, m.ID, models.MomentPatch{PhotoKey: &key}); err != nil {
				return err
			}
			row.PhotoKey = &key
		}
	}

	out, err := e.remote.Upsert(ctx, row)
	if err != nil {
		return err
	}

	return repo.Update(ctx, m.ID, models.MomentPatch{
		ServerID:        &out.ID,
		Status:          models.Ptr(models.StatusSynced),
		UpdatedAt:       &stamp,
		LastSyncAttempt: &stamp,
	})
}
