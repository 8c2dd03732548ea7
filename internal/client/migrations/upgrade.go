package migrations

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/logmoments/internal/client/models"
	"github.com/dmitrijs2005/logmoments/internal/common"
)

// LegacyMoment carries the columns version 3 normalizes, as read from a
// version 2 store. Synced holds whatever the driver returned for the
// untyped column.
type LegacyMoment struct {
	ID        int64
	Synced    any
	CreatedAt string
	UpdatedAt sql.NullString
}

// MomentRow is the normalized form written back by version 3.
type MomentRow struct {
	ID        int64
	Synced    int
	CreatedAt string
	UpdatedAt string
}

// UpgradeMoment converts a legacy row to the version 3 shape. changed is
// false when the row already conforms and needs no write.
//
// Rules: boolean and textual synced values become 0 or 1, a missing synced
// becomes 0; a missing updated_at takes created_at, or now when created_at
// is empty too.
func UpgradeMoment(old LegacyMoment, now time.Time) (row MomentRow, changed bool) {
	row = MomentRow{ID: old.ID, CreatedAt: old.CreatedAt}

	synced, canonical := coerceSynced(old.Synced)
	row.Synced = synced
	changed = !canonical

	if old.CreatedAt == "" {
		row.CreatedAt = models.FormatTime(now)
		changed = true
	}

	if old.UpdatedAt.Valid && old.UpdatedAt.String != "" {
		row.UpdatedAt = old.UpdatedAt.String
	} else {
		row.UpdatedAt = row.CreatedAt
		changed = true
	}
	return row, changed
}

// coerceSynced maps a raw synced value to 0 or 1. canonical reports whether
// the stored value was already the integer 0 or 1.
func coerceSynced(v any) (synced int, canonical bool) {
	switch x := v.(type) {
	case nil:
		return 0, false
	case int64:
		if x == 0 || x == 1 {
			return int(x), true
		}
		return 1, false
	case float64:
		if x != 0 {
			return 1, false
		}
		return 0, false
	case bool:
		if x {
			return 1, false
		}
		return 0, false
	case []byte:
		return coerceSyncedText(string(x)), false
	case string:
		return coerceSyncedText(x), false
	default:
		return 0, false
	}
}

func coerceSyncedText(s string) int {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "true", "synced", "yes":
		return 1
	}
	if n, err := strconv.ParseFloat(s, 64); err == nil && n != 0 {
		return 1
	}
	return 0
}

// nowFn is a seam for tests.
var nowFn = time.Now

func upgradeV3(ctx context.Context, tx *sql.Tx) error {
	legacy, err := readLegacyMoments(ctx, tx)
	if err != nil {
		return err
	}

	now := nowFn()
	for _, old := range legacy {
		row, changed := UpgradeMoment(old, now)
		if !changed {
			continue
		}
		_, err := tx.ExecContext(ctx,
			`UPDATE moments SET synced = ?, created_at = ?, updated_at = ? WHERE id = ?`,
			row.Synced, row.CreatedAt, row.UpdatedAt, row.ID)
		if err != nil {
			return fmt.Errorf("%w: moment %d: %v", common.ErrMigration, row.ID, err)
		}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO preferences (id, user_id, storage_mode, last_synced) VALUES (?, '', ?, NULL)`,
		common.PreferencesRowID, string(models.DefaultStorageMode))
	if err != nil {
		return fmt.Errorf("%w: seed preferences: %v", common.ErrMigration, err)
	}
	return nil
}

func readLegacyMoments(ctx context.Context, tx *sql.Tx) ([]LegacyMoment, error) {
	rows, err := tx.QueryContext(ctx, `SELECT id, synced, created_at, updated_at FROM moments ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("%w: read moments: %v", common.ErrMigration, err)
	}
	defer rows.Close()

	var out []LegacyMoment
	for rows.Next() {
		var m LegacyMoment
		if err := rows.Scan(&m.ID, &m.Synced, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, fmt.Errorf("%w: scan moment: %v", common.ErrMigration, err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate moments: %v", common.ErrMigration, err)
	}
	return out, nil
}

func noop(context.Context, *sql.Tx) error { return nil }
