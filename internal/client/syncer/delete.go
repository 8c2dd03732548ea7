package syncer

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/logmoments/internal/client/models"
	"github.com/dmitrijs2005/logmoments/internal/client/remote"
	"github.com/dmitrijs2005/logmoments/internal/common"
)

// DeleteMoment removes a moment. A pushed moment is tombstoned remotely
// first; if that fails the local row stays, reset to pending, and the
// error is returned.
func (e *Engine) DeleteMoment(ctx context.Context, id int64) error {
	repo, err := e.store.Moments()
	if err != nil {
		return err
	}
	m, err := repo.Get(ctx, id)
	if err != nil {
		return err
	}

	if m.HasServerID() {
		if err := e.tombstone(ctx, m); err != nil {
			now := e.clock()
			patch := models.MomentPatch{Status: models.Ptr(models.StatusPending), UpdatedAt: &now}
			if uerr := repo.Update(ctx, id, patch); uerr != nil {
				e.log.Warn(ctx, "could not mark moment for retry", "id", id, "error", uerr)
			}
			return fmt.Errorf("delete moment %d: %w", id, err)
		}
	}

	return repo.Delete(ctx, id)
}

func (e *Engine) tombstone(ctx context.Context, m *models.Moment) error {
	if e.remote == nil {
		return common.ErrNoRemote
	}
	userID, err := e.auth.CurrentUserID(ctx)
	if err != nil {
		return err
	}
	now := e.clock()
	err = e.remote.Update(ctx, *m.ServerID, userID, remote.Patch{UpdatedAt: now, DeletedAt: &now})
	if errors.Is(err, remote.ErrNotFound) {
		// Already gone remotely.
		return nil
	}
	return err
}
