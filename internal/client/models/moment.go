package models

import "time"

// Moment is a journal entry as kept in the local store.
type Moment struct {
	ID              int64
	ServerID        *string
	Content         string
	Feeling         string
	Photo           []byte
	PhotoKey        *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	UserID          string
	Status          SyncStatus
	LastSyncAttempt *time.Time
}

// HasServerID reports whether a push was ever attempted for the moment. The
// id is assigned before the first upsert.
func (m *Moment) HasServerID() bool {
	return m.ServerID != nil && *m.ServerID != ""
}

// MomentPatch lists the fields a partial update may change. Nil fields are
// left untouched.
type MomentPatch struct {
	ServerID        *string
	Content         *string
	Feeling         *string
	Photo           []byte
	PhotoKey        *string
	CreatedAt       *time.Time
	UpdatedAt       *time.Time
	UserID          *string
	Status          *SyncStatus
	LastSyncAttempt *time.Time
}

// Empty reports whether the patch would change nothing.
func (p MomentPatch) Empty() bool {
	return p.ServerID == nil && p.Content == nil && p.Feeling == nil && p.Photo == nil &&
		p.PhotoKey == nil && p.CreatedAt == nil && p.UpdatedAt == nil && p.UserID == nil &&
		p.Status == nil && p.LastSyncAttempt == nil
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T { return &v }
