package models

import (
	"encoding/json"
	"time"
)

// OfflineMoment is an entry of the staging buffer, identified by a
// client-minted "offline_" id.
type OfflineMoment struct {
	ID        string
	Content   string
	Feeling   string
	Photo     []byte
	CreatedAt time.Time
	UserID    string
	Status    SyncStatus
}

type offlineRecord struct {
	ID        string      `json:"id"`
	Content   string      `json:"content"`
	Feeling   string      `json:"feeling"`
	Photo     []byte      `json:"photo,omitempty"`
	CreatedAt string      `json:"created_at"`
	UserID    string      `json:"user_id"`
	IsOffline bool        `json:"isOffline"`
	Status    *SyncStatus `json:"status,omitempty"`
	// Synced is the boolean flag written by older builds.
	Synced *bool `json:"synced,omitempty"`
}

func (m OfflineMoment) MarshalJSON() ([]byte, error) {
	status := m.Status
	return json.Marshal(offlineRecord{
		ID:        m.ID,
		Content:   m.Content,
		Feeling:   m.Feeling,
		Photo:     m.Photo,
		CreatedAt: FormatTime(m.CreatedAt),
		UserID:    m.UserID,
		IsOffline: true,
		Status:    &status,
	})
}

func (m *OfflineMoment) UnmarshalJSON(b []byte) error {
	var rec offlineRecord
	if err := json.Unmarshal(b, &rec); err != nil {
		return err
	}
	created, err := ParseTime(rec.CreatedAt)
	if err != nil {
		return err
	}

	status := StatusPending
	switch {
	case rec.Status != nil:
		status = *rec.Status
	case rec.Synced != nil && *rec.Synced:
		status = StatusSynced
	}

	*m = OfflineMoment{
		ID:        rec.ID,
		Content:   rec.Content,
		Feeling:   rec.Feeling,
		Photo:     rec.Photo,
		CreatedAt: created,
		UserID:    rec.UserID,
		Status:    status,
	}
	return nil
}
