package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dmitrijs2005/logmoments/internal/common"
)

// StorageMode decides whether the sync engine talks to the remote table.
type StorageMode string

const (
	StorageLocal StorageMode = "local"
	StorageCloud StorageMode = "cloud"
)

// DefaultStorageMode applies whenever no preference has been stored yet.
const DefaultStorageMode = StorageCloud

func ParseStorageMode(s string) (StorageMode, error) {
	switch StorageMode(s) {
	case StorageLocal, StorageCloud:
		return StorageMode(s), nil
	}
	return "", fmt.Errorf("%w: %q", common.ErrInvalidStorageMode, s)
}

// UserPreferences is the singleton settings row.
type UserPreferences struct {
	StorageMode StorageMode
	LastSynced  *time.Time
	UserID      string
}

// Watermark returns LastSynced, or Epoch when the user never synced.
func (p UserPreferences) Watermark() time.Time {
	if p.LastSynced == nil {
		return Epoch
	}
	return *p.LastSynced
}

type preferencesRecord struct {
	StorageMode StorageMode `json:"storageMode"`
	LastSynced  string      `json:"lastSynced,omitempty"`
	UserID      string      `json:"userId"`
}

// MarshalJSON emits the {storageMode, lastSynced, userId} record layout.
func (p UserPreferences) MarshalJSON() ([]byte, error) {
	rec := preferencesRecord{StorageMode: p.StorageMode, UserID: p.UserID}
	if p.LastSynced != nil {
		rec.LastSynced = FormatTime(*p.LastSynced)
	}
	return json.Marshal(rec)
}

func (p *UserPreferences) UnmarshalJSON(b []byte) error {
	var rec preferencesRecord
	if err := json.Unmarshal(b, &rec); err != nil {
		return err
	}
	mode := rec.StorageMode
	if mode == "" {
		mode = DefaultStorageMode
	}
	if _, err := ParseStorageMode(string(mode)); err != nil {
		return err
	}
	p.StorageMode = mode
	p.UserID = rec.UserID
	p.LastSynced = nil
	if rec.LastSynced != "" {
		t, err := ParseTime(rec.LastSynced)
		if err != nil {
			return err
		}
		p.LastSynced = &t
	}
	return nil
}
