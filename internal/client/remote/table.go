// Package remote talks to the hosted moments table.
//
// Two backends implement Table: PostgresTable connects straight to a
// Postgres database through pgx, RESTTable speaks the PostgREST dialect over
// HTTP. Transport failures are mapped to the sentinel errors in errors.go so
// callers can match them with errors.Is.
package remote

import (
	"context"
	"encoding/base64"
	"time"
)

// Row is one record of the remote moments table.
type Row struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	Content   string     `json:"content"`
	Feeling   string     `json:"feeling"`
	Photo     *string    `json:"photo"`
	PhotoKey  *string    `json:"photo_key"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// Patch is the partial update applied by Update.
type Patch struct {
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// Table is the contract the sync engine needs from the remote store.
type Table interface {
	// SelectUpdatedSince returns the user's rows with updated_at > since,
	// oldest first.
	SelectUpdatedSince(ctx context.Context, userID string, since time.Time) ([]Row, error)
	// SelectByUser returns every live row of the user, newest first.
	SelectByUser(ctx context.Context, userID string) ([]Row, error)
	Insert(ctx context.Context, row Row) (Row, error)
	// Upsert inserts row or updates the existing row with the same id when it
	// belongs to the same user. A row of another user yields ErrConflict.
	Upsert(ctx context.Context, row Row) (Row, error)
	Update(ctx context.Context, id, userID string, patch Patch) error
	Ping(ctx context.Context) error
}

// EncodePhoto renders photo bytes the way the table stores them.
func EncodePhoto(b []byte) *string {
	if len(b) == 0 {
		return nil
	}
	s := base64.StdEncoding.EncodeToString(b)
	return &s
}

func DecodePhoto(s *string) ([]byte, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	return base64.StdEncoding.DecodeString(*s)
}
