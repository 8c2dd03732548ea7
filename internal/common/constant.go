package common

import "time"

// Sync timing.
const (
	AutoSyncInterval = 5 * time.Minute
	RetryDelay       = 30 * time.Second
	MaxRetryAttempts = 3
)

// Input limits, counted in runes.
const (
	MaxContentLength = 5000
	MaxFeelingLength = 100
)

// Photo limits.
const (
	MaxPhotoBytes  = 5 * 1024 * 1024
	MaxPhotoWidth  = 1920
	MaxPhotoHeight = 1920
)

// OfflineIDPrefix marks identifiers minted by the staging buffer.
const OfflineIDPrefix = "offline_"

// PreferencesRowID is the primary key of the singleton preferences row.
const PreferencesRowID = 1

// Metadata keys persisted in the local store.
const (
	MetaAccessToken = "access_token"
	MetaUserData    = "user_data"
)
