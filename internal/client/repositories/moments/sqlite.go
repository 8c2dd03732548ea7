// Package moments implements the local moments repository over SQLite.
package moments

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/logmoments/internal/client/models"
	"github.com/dmitrijs2005/logmoments/internal/common"
	"github.com/dmitrijs2005/logmoments/internal/dbx"
)

const selectColumns = `id, server_id, content, feeling, photo, photo_key, created_at, updated_at, user_id, synced, last_sync_attempt`

// SQLiteRepository implements Repository using a DBTX (either *sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Add(ctx context.Context, m *models.Moment) (int64, error) {
	updated := m.UpdatedAt
	if updated.IsZero() {
		updated = m.CreatedAt
	}
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO moments (server_id, content, feeling, photo, photo_key, created_at, updated_at, user_id, synced, last_sync_attempt)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		nullString(m.ServerID), m.Content, m.Feeling, m.Photo, nullString(m.PhotoKey),
		models.FormatTime(m.CreatedAt), models.FormatTime(updated), m.UserID,
		m.Status.Column(), nullTime(m.LastSyncAttempt))
	if err != nil {
		return 0, fmt.Errorf("failed to insert moment: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get inserted id: %w", err)
	}
	return id, nil
}

func (r *SQLiteRepository) Get(ctx context.Context, id int64) (*models.Moment, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM moments WHERE id = ?`, id)
	m, err := scanMoment(row)
	if err != nil {
		return nil, fmt.Errorf("failed to get moment %d: %w", id, err)
	}
	return m, nil
}

func (r *SQLiteRepository) GetByServerID(ctx context.Context, serverID string) (*models.Moment, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+selectColumns+` FROM moments WHERE server_id = ? ORDER BY id LIMIT 1`, serverID)
	m, err := scanMoment(row)
	if err != nil {
		return nil, fmt.Errorf("failed to get moment by server id %s: %w", serverID, err)
	}
	return m, nil
}

func (r *SQLiteRepository) Update(ctx context.Context, id int64, p models.MomentPatch) error {
	if p.Empty() {
		return nil
	}

	var sets []string
	var args []any
	set := func(col string, v any) {
		sets = append(sets, col+" = ?")
		args = append(args, v)
	}

	if p.ServerID != nil {
		set("server_id", *p.ServerID)
	}
	if p.Content != nil {
		set("content", *p.Content)
	}
	if p.Feeling != nil {
		set("feeling", *p.Feeling)
	}
	if p.Photo != nil {
		set("photo", p.Photo)
	}
	if p.PhotoKey != nil {
		set("photo_key", *p.PhotoKey)
	}
	if p.CreatedAt != nil {
		set("created_at", models.FormatTime(*p.CreatedAt))
	}
	if p.UpdatedAt != nil {
		set("updated_at", models.FormatTime(*p.UpdatedAt))
	}
	if p.UserID != nil {
		set("user_id", *p.UserID)
	}
	if p.Status != nil {
		set("synced", p.Status.Column())
	}
	if p.LastSyncAttempt != nil {
		set("last_sync_attempt", models.FormatTime(*p.LastSyncAttempt))
	}

	args = append(args, id)
	res, err := r.db.ExecContext(ctx, `UPDATE moments SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return fmt.Errorf("failed to update moment %d: %w", id, err)
	}
	return expectOne(res, id)
}

func (r *SQLiteRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM moments WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete moment %d: %w", id, err)
	}
	return expectOne(res, id)
}

func (r *SQLiteRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM moments`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count moments: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) ListByUser(ctx context.Context, userID string) ([]*models.Moment, error) {
	return r.list(ctx,
		`SELECT `+selectColumns+` FROM moments WHERE user_id = ? ORDER BY created_at DESC, id DESC`, userID)
}

func (r *SQLiteRepository) ListCreatedSince(ctx context.Context, userID string, since time.Time) ([]*models.Moment, error) {
	return r.list(ctx,
		`SELECT `+selectColumns+` FROM moments WHERE user_id = ? AND created_at >= ? ORDER BY created_at DESC, id DESC`,
		userID, models.FormatTime(since))
}

func (r *SQLiteRepository) ListBySynced(ctx context.Context, values ...int) ([]*models.Moment, error) {
	if len(values) == 0 {
		return nil, nil
	}
	q := `SELECT ` + selectColumns + ` FROM moments WHERE id IS NOT NULL AND synced IN (` +
		dbx.Placeholders(len(values)) + `) ORDER BY id`
	return r.list(ctx, q, dbx.Args(values)...)
}

func (r *SQLiteRepository) list(ctx context.Context, query string, args ...any) ([]*models.Moment, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select moments: %w", err)
	}
	defer rows.Close()

	var result []*models.Moment
	for rows.Next() {
		m, err := scanMoment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan moment: %w", err)
		}
		result = append(result, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate moments: %w", err)
	}
	return result, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMoment(s scanner) (*models.Moment, error) {
	var (
		m                           models.Moment
		serverID, photoKey, updated sql.NullString
		lastAttempt                 sql.NullString
		created                     string
		synced                      sql.NullInt64
	)
	err := s.Scan(&m.ID, &serverID, &m.Content, &m.Feeling, &m.Photo, &photoKey,
		&created, &updated, &m.UserID, &synced, &lastAttempt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if serverID.Valid {
		m.ServerID = &serverID.String
	}
	if photoKey.Valid {
		m.PhotoKey = &photoKey.String
	}
	if m.CreatedAt, err = models.ParseTime(created); err != nil {
		return nil, err
	}
	m.UpdatedAt = m.CreatedAt
	if updated.Valid && updated.String != "" {
		if m.UpdatedAt, err = models.ParseTime(updated.String); err != nil {
			return nil, err
		}
	}
	if lastAttempt.Valid && lastAttempt.String != "" {
		t, err := models.ParseTime(lastAttempt.String)
		if err != nil {
			return nil, err
		}
		m.LastSyncAttempt = &t
	}
	m.Status = models.StatusFromColumn(int(synced.Int64), m.LastSyncAttempt)
	return &m, nil
}

func expectOne(res sql.Result, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("moment %d: %w", id, common.ErrNotFound)
	}
	return nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: models.FormatTime(*t), Valid: true}
}
