// Package models defines the journaling data model shared by the local
// store, the staging buffer and the sync engine.
package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// SyncStatus is the per-record synchronization state used by both the local
// store and the staging buffer.
type SyncStatus int

const (
	StatusPending SyncStatus = iota
	StatusSynced
	StatusError
)

func (s SyncStatus) String() string {
	switch s {
	case StatusSynced:
		return "synced"
	case StatusError:
		return "error"
	default:
		return "pending"
	}
}

// ParseSyncStatus is the inverse of String.
func ParseSyncStatus(s string) (SyncStatus, error) {
	switch s {
	case "pending":
		return StatusPending, nil
	case "synced":
		return StatusSynced, nil
	case "error":
		return StatusError, nil
	}
	return StatusPending, fmt.Errorf("unknown sync status %q", s)
}

// Column is the numeric encoding stored in moments.synced:
// 1 for synced, 0 for pending and error alike.
func (s SyncStatus) Column() int {
	if s == StatusSynced {
		return 1
	}
	return 0
}

// StatusFromColumn decodes moments.synced. A zero column with a recorded sync
// attempt reads as StatusError, without one as StatusPending.
func StatusFromColumn(synced int, lastAttempt *time.Time) SyncStatus {
	switch {
	case synced == 1:
		return StatusSynced
	case lastAttempt != nil:
		return StatusError
	default:
		return StatusPending
	}
}

func (s SyncStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *SyncStatus) UnmarshalJSON(b []byte) error {
	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return err
	}
	v, err := ParseSyncStatus(str)
	if err != nil {
		return err
	}
	*s = v
	return nil
}
