// Package preferences stores the user's storage mode and pull watermark.
package preferences

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/logmoments/internal/client/models"
	"github.com/dmitrijs2005/logmoments/internal/common"
	"github.com/dmitrijs2005/logmoments/internal/dbx"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Get(ctx context.Context) (*models.UserPreferences, error) {
	var (
		mode, userID string
		lastSynced   sql.NullString
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT storage_mode, last_synced, user_id FROM preferences WHERE id = ?`, common.PreferencesRowID).
		Scan(&mode, &lastSynced, &userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get preferences: %w", err)
	}

	p := &models.UserPreferences{StorageMode: models.DefaultStorageMode, UserID: userID}
	if m, err := models.ParseStorageMode(mode); err == nil {
		p.StorageMode = m
	}
	if lastSynced.Valid && lastSynced.String != "" {
		t, err := models.ParseTime(lastSynced.String)
		if err != nil {
			return nil, fmt.Errorf("failed to parse last_synced: %w", err)
		}
		p.LastSynced = &t
	}
	return p, nil
}

func (r *SQLiteRepository) Ensure(ctx context.Context, userID string) (*models.UserPreferences, error) {
	_, err := r.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO preferences (id, user_id, storage_mode, last_synced) VALUES (?, ?, ?, NULL)`,
		common.PreferencesRowID, userID, string(models.DefaultStorageMode))
	if err != nil {
		return nil, fmt.Errorf("failed to create preferences: %w", err)
	}

	// The seeded row carries no owner until the first user claims it.
	_, err = r.db.ExecContext(ctx,
		`UPDATE preferences SET user_id = ? WHERE id = ? AND user_id = ''`, userID, common.PreferencesRowID)
	if err != nil {
		return nil, fmt.Errorf("failed to claim preferences: %w", err)
	}
	return r.Get(ctx)
}

func (r *SQLiteRepository) Save(ctx context.Context, p *models.UserPreferences) error {
	var last sql.NullString
	if p.LastSynced != nil {
		last = sql.NullString{String: models.FormatTime(*p.LastSynced), Valid: true}
	}
	mode := p.StorageMode
	if mode == "" {
		mode = models.DefaultStorageMode
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO preferences (id, user_id, storage_mode, last_synced) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			user_id = excluded.user_id,
			storage_mode = excluded.storage_mode,
			last_synced = excluded.last_synced`,
		common.PreferencesRowID, p.UserID, string(mode), last)
	if err != nil {
		return fmt.Errorf("failed to save preferences: %w", err)
	}
	return nil
}
