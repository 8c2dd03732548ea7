package store

import (
	"context"
	"fmt"
)

// TableInfo lists one table and its indexes.
type TableInfo struct {
	Name    string
	Indexes []string
}

// Status is a diagnostic snapshot of the local store.
type Status struct {
	Path        string
	Open        bool
	Version     int64
	Tables      []TableInfo
	MomentCount int
}

// Status inspects the store. A closed store yields Open=false and no error.
func (s *Store) Status(ctx context.Context) (Status, error) {
	st := Status{Path: s.path}

	db, err := s.DB()
	if err != nil {
		return st, nil
	}
	st.Open = true

	if st.Version, err = SchemaVersion(ctx, db); err != nil {
		return st, fmt.Errorf("failed to read schema version: %w", err)
	}

	rows, err := db.QueryContext(ctx, `
		SELECT name FROM sqlite_master
		WHERE type = 'table' AND name NOT LIKE 'sqlite_%' AND name <> 'goose_db_version'
		ORDER BY name`)
	if err != nil {
		return st, fmt.Errorf("failed to list tables: %w", err)
	}
	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			rows.Close()
			return st, fmt.Errorf("failed to scan table name: %w", err)
		}
		names = append(names, n)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return st, fmt.Errorf("failed to iterate tables: %w", err)
	}

	for _, name := range names {
		idx, err := s.indexes(ctx, name)
		if err != nil {
			return st, err
		}
		st.Tables = append(st.Tables, TableInfo{Name: name, Indexes: idx})
	}

	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM moments`).Scan(&st.MomentCount); err != nil {
		return st, fmt.Errorf("failed to count moments: %w", err)
	}
	return st, nil
}

func (s *Store) indexes(ctx context.Context, table string) ([]string, error) {
	db, err := s.DB()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'index' AND tbl_name = ? AND name NOT LIKE 'sqlite_%' ORDER BY name`, table)
	if err != nil {
		return nil, fmt.Errorf("failed to list indexes of %s: %w", table, err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("failed to scan index name: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}
