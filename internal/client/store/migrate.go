package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/logmoments/internal/client/migrations"
	"github.com/dmitrijs2005/logmoments/internal/common"
	"github.com/pressly/goose/v3"
)

func newProvider(db *sql.DB) (*goose.Provider, error) {
	return goose.NewProvider(goose.DialectSQLite3, db, migrations.Migrations,
		goose.WithGoMigrations(migrations.GoMigrations()...),
	)
}

// RunMigrations upgrades db to the latest schema. Every step runs in its own
// transaction; a failing step leaves the store at the previous version.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	p, err := newProvider(db)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrMigration, err)
	}
	if _, err := p.Up(ctx); err != nil {
		return fmt.Errorf("%w: %v", common.ErrMigration, err)
	}
	return nil
}

// MigrateTo upgrades db up to and including version.
func MigrateTo(ctx context.Context, db *sql.DB, version int64) error {
	p, err := newProvider(db)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrMigration, err)
	}
	if _, err := p.UpTo(ctx, version); err != nil {
		return fmt.Errorf("%w: %v", common.ErrMigration, err)
	}
	return nil
}

// SchemaVersion reports the applied schema version.
func SchemaVersion(ctx context.Context, db *sql.DB) (int64, error) {
	p, err := newProvider(db)
	if err != nil {
		return 0, err
	}
	return p.GetDBVersion(ctx)
}
