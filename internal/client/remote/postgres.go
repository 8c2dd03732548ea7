package remote

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/dmitrijs2005/logmoments/internal/client/remote/migrations"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

const rowColumns = `id, user_id, content, feeling, photo, photo_key, created_at, updated_at, deleted_at`

// PostgresTable implements Table directly on the moments table.
type PostgresTable struct {
	db *sql.DB
}

func NewPostgresTable(db *sql.DB) *PostgresTable {
	return &PostgresTable{db: db}
}

// OpenPostgres opens a pgx-backed *sql.DB for dsn.
func OpenPostgres(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	return db, nil
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations applies the embedded remote schema.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	if err := gooseUpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("remote migrations: %w", err)
	}
	return nil
}

func (t *PostgresTable) Ping(ctx context.Context) error {
	return mapPGError(t.db.PingContext(ctx))
}

func (t *PostgresTable) SelectUpdatedSince(ctx context.Context, userID string, since time.Time) ([]Row, error) {
	return t.query(ctx, `SELECT `+rowColumns+` FROM moments
		WHERE user_id = $1 AND updated_at > $2
		ORDER BY updated_at ASC`, userID, since.UTC())
}

func (t *PostgresTable) SelectByUser(ctx context.Context, userID string) ([]Row, error) {
	return t.query(ctx, `SELECT `+rowColumns+` FROM moments
		WHERE user_id = $1 AND deleted_at IS NULL
		ORDER BY created_at DESC`, userID)
}

func (t *PostgresTable) Insert(ctx context.Context, row Row) (Row, error) {
	if row.ID == "" {
		row.ID = uuid.NewString()
	}
	r := t.db.QueryRowContext(ctx, `
		INSERT INTO moments (id, user_id, content, feeling, photo, photo_key, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+rowColumns,
		row.ID, row.UserID, row.Content, row.Feeling, row.Photo, row.PhotoKey,
		row.CreatedAt.UTC(), row.UpdatedAt.UTC())
	out, err := scanRow(r)
	if err != nil {
		return Row{}, fmt.Errorf("failed to insert moment: %w", mapPGError(err))
	}
	return out, nil
}

func (t *PostgresTable) Upsert(ctx context.Context, row Row) (Row, error) {
	if row.ID == "" {
		row.ID = uuid.NewString()
	}
	r := t.db.QueryRowContext(ctx, `
		INSERT INTO moments (id, user_id, content, feeling, photo, photo_key, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id)
		DO UPDATE SET
			content = EXCLUDED.content,
			feeling = EXCLUDED.feeling,
			photo = EXCLUDED.photo,
			photo_key = EXCLUDED.photo_key,
			updated_at = EXCLUDED.updated_at
			WHERE moments.user_id = EXCLUDED.user_id
		RETURNING `+rowColumns,
		row.ID, row.UserID, row.Content, row.Feeling, row.Photo, row.PhotoKey,
		row.CreatedAt.UTC(), row.UpdatedAt.UTC())
	out, err := scanRow(r)
	if errors.Is(err, sql.ErrNoRows) {
		return Row{}, ErrConflict
	}
	if err != nil {
		return Row{}, fmt.Errorf("failed to upsert moment: %w", mapPGError(err))
	}
	return out, nil
}

func (t *PostgresTable) Update(ctx context.Context, id, userID string, patch Patch) error {
	var deleted sql.NullTime
	if patch.DeletedAt != nil {
		deleted = sql.NullTime{Time: patch.DeletedAt.UTC(), Valid: true}
	}
	res, err := t.db.ExecContext(ctx, `
		UPDATE moments SET updated_at = $1, deleted_at = COALESCE($2, deleted_at)
		WHERE id = $3 AND user_id = $4`,
		patch.UpdatedAt.UTC(), deleted, id, userID)
	if err != nil {
		return fmt.Errorf("failed to update moment: %w", mapPGError(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	switch n {
	case 1:
		return nil
	case 0:
		return ErrNotFound
	default:
		return fmt.Errorf("unexpected rows affected: %d", n)
	}
}

func (t *PostgresTable) query(ctx context.Context, q string, args ...any) ([]Row, error) {
	rows, err := t.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select moments: %w", mapPGError(err))
	}
	defer rows.Close()

	var result []Row
	for rows.Next() {
		item, err := scanRow(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, mapPGError(err)
	}
	return result, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRow(s scanner) (Row, error) {
	var (
		r        Row
		photo    sql.NullString
		photoKey sql.NullString
		deleted  sql.NullTime
	)
	if err := s.Scan(&r.ID, &r.UserID, &r.Content, &r.Feeling, &photo, &photoKey,
		&r.CreatedAt, &r.UpdatedAt, &deleted); err != nil {
		return Row{}, err
	}
	if photo.Valid {
		r.Photo = &photo.String
	}
	if photoKey.Valid {
		r.PhotoKey = &photoKey.String
	}
	if deleted.Valid {
		ts := deleted.Time.UTC()
		r.DeletedAt = &ts
	}
	r.CreatedAt = r.CreatedAt.UTC()
	r.UpdatedAt = r.UpdatedAt.UTC()
	return r, nil
}

// mapPGError converts driver and network failures to package sentinels.
func mapPGError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == "42501", strings.HasPrefix(pgErr.Code, "28"):
			return fmt.Errorf("%w: %s", ErrUnauthorized, pgErr.Message)
		case pgErr.Code == "23505":
			return fmt.Errorf("%w: %s", ErrConflict, pgErr.Message)
		case strings.HasPrefix(pgErr.Code, "08"), pgErr.Code == "57P01", pgErr.Code == "57P03":
			return fmt.Errorf("%w: %s", ErrUnavailable, pgErr.Message)
		}
		return err
	}

	var connErr *pgconn.ConnectError
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || errors.As(err, &connErr) || errors.As(err, &netErr) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return err
}
