// Package store owns the local SQLite database: its lifecycle, schema
// upgrades and the repositories built on top of it.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/logmoments/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/logmoments/internal/client/repositories/moments"
	"github.com/dmitrijs2005/logmoments/internal/client/repositories/preferences"
	"github.com/dmitrijs2005/logmoments/internal/common"
	"github.com/dmitrijs2005/logmoments/internal/dbx"
	"github.com/dmitrijs2005/logmoments/internal/logging"

	_ "modernc.org/sqlite"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// Store is the local system of record. All accessors fail with
// common.ErrStoreUnavailable until Open succeeds.
type Store struct {
	path string
	log  logging.Logger

	mu sync.RWMutex
	db *sql.DB
}

func New(path string, log logging.Logger) *Store {
	return &Store{path: path, log: log.With("module", "store")}
}

func dsn(path string) string {
	if path == MemoryPath {
		return path
	}
	return "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

// Open connects and migrates. Calling Open on an open store is a no-op.
// Migration failures are returned wrapping common.ErrMigration and leave the
// store closed.
func (s *Store) Open(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil {
		return nil
	}

	db, err := sql.Open("sqlite", dsn(s.path))
	if err != nil {
		return fmt.Errorf("open %s: %w", s.path, err)
	}
	// A single connection serializes writers and keeps :memory: databases alive.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("ping %s: %w", s.path, err)
	}

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		s.log.Error(ctx, "migration failed", "path", s.path, "error", err)
		return err
	}

	s.db = db
	s.log.Info(ctx, "local store ready", "path", s.path)
	return nil
}

// Close releases the database. Closing a closed store is a no-op.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *Store) IsOpen() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.db != nil
}

// DB returns the open handle.
func (s *Store) DB() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return nil, common.ErrStoreUnavailable
	}
	return s.db, nil
}

func (s *Store) Moments() (moments.Repository, error) {
	db, err := s.DB()
	if err != nil {
		return nil, err
	}
	return moments.NewSQLiteRepository(db), nil
}

func (s *Store) Preferences() (preferences.Repository, error) {
	db, err := s.DB()
	if err != nil {
		return nil, err
	}
	return preferences.NewSQLiteRepository(db), nil
}

func (s *Store) Metadata() (metadata.Repository, error) {
	db, err := s.DB()
	if err != nil {
		return nil, err
	}
	return metadata.NewSQLiteRepository(db), nil
}

// Tx groups the repositories bound to one transaction.
type Tx struct {
	Moments     moments.Repository
	Preferences preferences.Repository
	Metadata    metadata.Repository
}

// WithTx runs fn with repositories sharing a single transaction. fn must not
// use repositories obtained outside of tx: the store holds one connection.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	db, err := s.DB()
	if err != nil {
		return err
	}
	return dbx.WithTx(ctx, db, nil, func(ctx context.Context, q dbx.DBTX) error {
		return fn(ctx, Tx{
			Moments:     moments.NewSQLiteRepository(q),
			Preferences: preferences.NewSQLiteRepository(q),
			Metadata:    metadata.NewSQLiteRepository(q),
		})
	})
}

// Version reports the applied schema version.
func (s *Store) Version(ctx context.Context) (int64, error) {
	db, err := s.DB()
	if err != nil {
		return 0, err
	}
	return SchemaVersion(ctx, db)
}
