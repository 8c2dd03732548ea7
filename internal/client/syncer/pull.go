package syncer

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/logmoments/internal/client/models"
	"github.com/dmitrijs2005/logmoments/internal/client/remote"
	"github.com/dmitrijs2005/logmoments/internal/client/repositories/moments"
	"github.com/dmitrijs2005/logmoments/internal/common"
)

// SyncFromServer pulls the bound user's remote rows changed after the
// watermark and applies them locally, oldest first. It does not take the
// single-flight guard; SyncOfflineData calls it from inside a cycle.
func (e *Engine) SyncFromServer(ctx context.Context) models.SyncResult {
	return e.syncFromServer(context.WithoutCancel(ctx), e.currentUser())
}

func (e *Engine) syncFromServer(ctx context.Context, user string) models.SyncResult {
	if user == "" {
		return models.Rejected(common.ErrNoUser)
	}
	if e.remote == nil {
		return models.Rejected(common.ErrNoRemote)
	}
	repo, err := e.store.Moments()
	if err != nil {
		return models.Rejected(common.ErrStoreUnavailable)
	}
	since, err := e.watermark(ctx, user)
	if err != nil {
		return models.SyncResult{ErrorCount: 1, Reason: err}
	}

	changes, err := e.remote.SelectUpdatedSince(ctx, user, since)
	if err != nil {
		e.log.Error(ctx, "error syncing from server", "error", err)
		return models.SyncResult{ErrorCount: 1, Reason: err}
	}

	t := fold(ctx, changes,
		func(ctx context.Context, row remote.Row) error {
			return e.applyRemote(ctx, repo, row)
		},
		func(row remote.Row, err error) {
			e.log.Warn(ctx, "failed to apply remote moment", "server_id", row.ID, "error", err)
		})

	return models.SyncResult{
		Success:     t.failures == 0,
		SyncedCount: t.successes,
		ErrorCount:  t.failures,
		Total:       len(changes),
	}
}

// applyRemote writes one remote row into the local store, last writer wins.
func (e *Engine) applyRemote(ctx context.Context, repo moments.Repository, row remote.Row) error {
	existing, err := repo.GetByServerID(ctx, row.ID)
	if err != nil && !errors.Is(err, common.ErrNotFound) {
		return err
	}

	if row.DeletedAt != nil {
		if existing == nil {
			return nil
		}
		return repo.Delete(ctx, existing.ID)
	}

	photo, err := e.remotePhoto(ctx, row, existing)
	if err != nil {
		return err
	}

	updated := row.UpdatedAt
	if updated.IsZero() {
		updated = e.clock()
	}
	created := row.CreatedAt
	if created.IsZero() {
		created = updated
	}

	if existing != nil {
		return repo.Update(ctx, existing.ID, models.MomentPatch{
			Content:   &row.Content,
			Feeling:   &row.Feeling,
			UserID:    &row.UserID,
			CreatedAt: &created,
			UpdatedAt: &updated,
			ServerID:  &row.ID,
			Photo:     photo,
			PhotoKey:  row.PhotoKey,
			Status:    models.Ptr(models.StatusSynced),
		})
	}

	_, err = repo.Add(ctx, &models.Moment{
		ServerID:  &row.ID,
		Content:   row.Content,
		Feeling:   row.Feeling,
		Photo:     photo,
		PhotoKey:  row.PhotoKey,
		CreatedAt: created,
		UpdatedAt: updated,
		UserID:    row.UserID,
		Status:    models.StatusSynced,
	})
	return err
}

// remotePhoto returns the bytes to store locally for row, or nil to keep
// whatever the local copy has.
func (e *Engine) remotePhoto(ctx context.Context, row remote.Row, existing *models.Moment) ([]byte, error) {
	if row.Photo != nil {
		b, err := remote.DecodePhoto(row.Photo)
		if err != nil {
			return nil, fmt.Errorf("decode photo: %w", err)
		}
		return b, nil
	}
	if row.PhotoKey == nil || e.photos == nil {
		return nil, nil
	}
	if existing != nil && len(existing.Photo) > 0 && existing.PhotoKey != nil && *existing.PhotoKey == *row.PhotoKey {
		return nil, nil
	}
	b, err := e.photos.Get(ctx, *row.PhotoKey)
	if err != nil {
		return nil, fmt.Errorf("download photo: %w", err)
	}
	return b, nil
}
