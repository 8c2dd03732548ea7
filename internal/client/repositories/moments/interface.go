package moments

import (
	"context"
	"time"

	"github.com/dmitrijs2005/logmoments/internal/client/models"
)

// Repository describes the local moments collection.
// Implementations are backed by the SQLite local store.
type Repository interface {
	// Add inserts m and returns its auto-incremented id.
	Add(ctx context.Context, m *models.Moment) (int64, error)

	// Get returns the moment with the given local id or common.ErrNotFound.
	Get(ctx context.Context, id int64) (*models.Moment, error)

	// GetByServerID finds the local copy of a remote row or common.ErrNotFound.
	GetByServerID(ctx context.Context, serverID string) (*models.Moment, error)

	// Update applies the non-nil fields of patch to the moment with id.
	Update(ctx context.Context, id int64, patch models.MomentPatch) error

	// Delete removes the moment with id.
	Delete(ctx context.Context, id int64) error

	Count(ctx context.Context) (int, error)

	// ListByUser returns the user's moments, newest created_at first.
	ListByUser(ctx context.Context, userID string) ([]*models.Moment, error)

	// ListCreatedSince returns the user's moments created at or after since.
	ListCreatedSince(ctx context.Context, userID string, since time.Time) ([]*models.Moment, error)

	// ListBySynced returns moments whose synced column is one of values,
	// in ascending id order.
	ListBySynced(ctx context.Context, values ...int) ([]*models.Moment, error)
}
