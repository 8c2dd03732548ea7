package migrations

import (
	"database/sql"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func TestUpgradeMoment(t *testing.T) {
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	created := "2024-06-01T08:00:00.000Z"
	updated := sql.NullString{String: "2024-06-02T08:00:00.000Z", Valid: true}

	tests := []struct {
		name        string
		in          LegacyMoment
		want        MomentRow
		wantChanged bool
	}{
		{
			name:        "boolean true text, missing updated_at",
			in:          LegacyMoment{ID: 1, Synced: "true", CreatedAt: created},
			want:        MomentRow{ID: 1, Synced: 1, CreatedAt: created, UpdatedAt: created},
			wantChanged: true,
		},
		{
			name:        "boolean false",
			in:          LegacyMoment{ID: 2, Synced: false, CreatedAt: created, UpdatedAt: updated},
			want:        MomentRow{ID: 2, Synced: 0, CreatedAt: created, UpdatedAt: updated.String},
			wantChanged: true,
		},
		{
			name:        "missing synced",
			in:          LegacyMoment{ID: 3, Synced: nil, CreatedAt: created, UpdatedAt: updated},
			want:        MomentRow{ID: 3, Synced: 0, CreatedAt: created, UpdatedAt: updated.String},
			wantChanged: true,
		},
		{
			name:        "already canonical",
			in:          LegacyMoment{ID: 4, Synced: int64(1), CreatedAt: created, UpdatedAt: updated},
			want:        MomentRow{ID: 4, Synced: 1, CreatedAt: created, UpdatedAt: updated.String},
			wantChanged: false,
		},
		{
			name:        "missing both timestamps",
			in:          LegacyMoment{ID: 5, Synced: int64(0)},
			want:        MomentRow{ID: 5, Synced: 0, CreatedAt: "2025-01-02T03:04:05.000Z", UpdatedAt: "2025-01-02T03:04:05.000Z"},
			wantChanged: true,
		},
		{
			name:        "numeric text and blob",
			in:          LegacyMoment{ID: 6, Synced: []byte("1"), CreatedAt: created, UpdatedAt: updated},
			want:        MomentRow{ID: 6, Synced: 1, CreatedAt: created, UpdatedAt: updated.String},
			wantChanged: true,
		},
		{
			name:        "out of range integer",
			in:          LegacyMoment{ID: 7, Synced: int64(2), CreatedAt: created, UpdatedAt: updated},
			want:        MomentRow{ID: 7, Synced: 1, CreatedAt: created, UpdatedAt: updated.String},
			wantChanged: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, changed := UpgradeMoment(tt.in, now)
			assert.Empty(t, cmp.Diff(tt.want, got))
			assert.Equal(t, tt.wantChanged, changed)
		})
	}
}

func TestUpgradeMoment_Idempotent(t *testing.T) {
	now := time.Now()
	first, _ := UpgradeMoment(LegacyMoment{ID: 1, Synced: true, CreatedAt: "2024-01-01T00:00:00.000Z"}, now)

	again, changed := UpgradeMoment(LegacyMoment{
		ID:        first.ID,
		Synced:    int64(first.Synced),
		CreatedAt: first.CreatedAt,
		UpdatedAt: sql.NullString{String: first.UpdatedAt, Valid: true},
	}, now.Add(time.Hour))

	assert.False(t, changed)
	assert.Equal(t, first, again)
}

func TestGoMigrations_RegistersVersion3(t *testing.T) {
	ms := GoMigrations()
	if assert.Len(t, ms, 1) {
		assert.Equal(t, LatestVersion, ms[0].Version)
	}
}
