// Package common defines sentinel errors and limits shared by the LogMoments
// client layers. Callers match the errors with errors.Is.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")

	// Local store lifecycle.
	ErrStoreUnavailable = errors.New("local store unavailable")
	ErrMigration        = errors.New("schema migration failed")

	// Sync cycle outcomes reported through SyncResult.Reason.
	ErrOffline        = errors.New("device is offline")
	ErrSyncInProgress = errors.New("sync already in progress")
	ErrNoUser         = errors.New("no user logged in")
	ErrLocalMode      = errors.New("storage mode is local")
	ErrNoRemote       = errors.New("no remote backend configured")

	// Identity.
	ErrAuthRequired = errors.New("authentication required, please sign in")
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")

	// Input validation.
	ErrEmptyContent         = errors.New("content must not be empty")
	ErrFileTooLarge         = errors.New("file is too large, maximum size is 5MB")
	ErrUnsupportedFileType  = errors.New("unsupported file type, use JPEG, PNG or WebP")
	ErrImageTooLarge        = errors.New("image dimensions exceed 1920x1920")
	ErrPhotoStoreDisabled   = errors.New("photo storage is not configured")
	ErrInvalidStorageMode   = errors.New("invalid storage mode")
	ErrUnparseableTimestamp = errors.New("unparseable timestamp")
)
