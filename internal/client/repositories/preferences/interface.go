package preferences

import (
	"context"

	"github.com/dmitrijs2005/logmoments/internal/client/models"
)

// Repository persists the singleton preferences row.
type Repository interface {
	// Get returns the stored preferences, or (nil, nil) when none exist.
	Get(ctx context.Context) (*models.UserPreferences, error)

	// Ensure returns the stored preferences, creating the default
	// cloud-mode row for userID on first access.
	Ensure(ctx context.Context, userID string) (*models.UserPreferences, error)

	// Save overwrites the row with p.
	Save(ctx context.Context, p *models.UserPreferences) error
}
