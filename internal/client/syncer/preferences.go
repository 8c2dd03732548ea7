package syncer

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/logmoments/internal/client/models"
	"github.com/dmitrijs2005/logmoments/internal/common"
)

// SetUser binds the engine to userID and loads its preferences, creating the
// default row on first access. When the stored row belongs to a different
// user the watermark is reset so the new user's rows are pulled in full.
func (e *Engine) SetUser(ctx context.Context, userID string) error {
	if userID == "" {
		return common.ErrNoUser
	}
	e.mu.Lock()
	e.user = userID
	e.mu.Unlock()

	repo, err := e.store.Preferences()
	if err != nil {
		return err
	}
	prefs, err := repo.Ensure(ctx, userID)
	if err != nil {
		return err
	}
	if prefs.UserID != userID {
		e.log.Info(ctx, "preferences belong to another user, resetting watermark", "previous", prefs.UserID)
		prefs = &models.UserPreferences{StorageMode: prefs.StorageMode, UserID: userID}
		if err := repo.Save(ctx, prefs); err != nil {
			return err
		}
	}

	e.mu.Lock()
	e.mode = prefs.StorageMode
	e.mu.Unlock()
	return nil
}

// ClearUser unbinds the engine after sign-out. Later cycles are rejected with
// common.ErrNoUser until a user is bound again. Stored preferences are kept.
func (e *Engine) ClearUser() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.user = ""
}

// SetStorageMode switches between local-only and cloud sync.
func (e *Engine) SetStorageMode(ctx context.Context, mode models.StorageMode) error {
	if _, err := models.ParseStorageMode(string(mode)); err != nil {
		return err
	}
	e.mu.Lock()
	e.mode = mode
	user := e.user
	e.mu.Unlock()

	if user == "" {
		return nil
	}
	repo, err := e.store.Preferences()
	if err != nil {
		return err
	}
	prefs, err := repo.Ensure(ctx, user)
	if err != nil {
		return err
	}
	prefs.StorageMode = mode
	prefs.UserID = user
	if err := repo.Save(ctx, prefs); err != nil {
		return fmt.Errorf("save storage mode: %w", err)
	}
	return nil
}

// StorageMode returns the stored mode, falling back to the in-memory value
// (cloud by default) when no user is bound or the store cannot be read.
func (e *Engine) StorageMode(ctx context.Context) models.StorageMode {
	e.mu.Lock()
	mode, user := e.mode, e.user
	e.mu.Unlock()

	if user == "" {
		return mode
	}
	repo, err := e.store.Preferences()
	if err != nil {
		return mode
	}
	prefs, err := repo.Get(ctx)
	if err != nil || prefs == nil {
		if err != nil {
			e.log.Warn(ctx, "failed to read storage mode", "error", err)
		}
		return mode
	}
	return prefs.StorageMode
}

// LastSynced returns the pull watermark; nil means never synced.
func (e *Engine) LastSynced(ctx context.Context) (*time.Time, error) {
	repo, err := e.store.Preferences()
	if err != nil {
		return nil, err
	}
	prefs, err := repo.Get(ctx)
	if err != nil || prefs == nil {
		return nil, err
	}
	return prefs.LastSynced, nil
}

func (e *Engine) watermark(ctx context.Context, user string) (time.Time, error) {
	repo, err := e.store.Preferences()
	if err != nil {
		return time.Time{}, err
	}
	prefs, err := repo.Ensure(ctx, user)
	if err != nil {
		return time.Time{}, err
	}
	return prefs.Watermark(), nil
}

// advanceWatermark moves lastSynced forward to mark; it never moves back.
func (e *Engine) advanceWatermark(ctx context.Context, user string, mark time.Time) error {
	repo, err := e.store.Preferences()
	if err != nil {
		return err
	}
	prefs, err := repo.Ensure(ctx, user)
	if err != nil {
		return err
	}
	if prefs.LastSynced != nil && !mark.After(*prefs.LastSynced) {
		return nil
	}
	prefs.LastSynced = &mark
	prefs.UserID = user
	return repo.Save(ctx, prefs)
}
