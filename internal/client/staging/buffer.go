package staging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/logmoments/internal/client/models"
	"github.com/dmitrijs2005/logmoments/internal/common"
	"github.com/google/uuid"
)

const (
	MomentsKey = "logmoments_offline_moments"
	UserKey    = "logmoments_user_data"
)

// Buffer is the staging list of offline moments. A mutex serialises the
// read-modify-write of the single slot.
type Buffer struct {
	kv    KV
	mu    sync.Mutex
	newID func() string
}

func NewBuffer(kv KV) *Buffer {
	return &Buffer{
		kv:    kv,
		newID: func() string { return common.OfflineIDPrefix + uuid.NewString() },
	}
}

func (b *Buffer) load(ctx context.Context) ([]models.OfflineMoment, error) {
	raw, ok, err := b.kv.Get(ctx, MomentsKey)
	if err != nil {
		return nil, err
	}
	if !ok || len(raw) == 0 {
		return []models.OfflineMoment{}, nil
	}
	var list []models.OfflineMoment
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, fmt.Errorf("decode staged moments: %w", err)
	}
	if list == nil {
		list = []models.OfflineMoment{}
	}
	return list, nil
}

func (b *Buffer) store(ctx context.Context, list []models.OfflineMoment) error {
	raw, err := json.Marshal(list)
	if err != nil {
		return err
	}
	return b.kv.Set(ctx, MomentsKey, raw)
}

// SaveMoment appends m with a fresh offline id and pending status. The id
// and status fields of m are ignored.
func (b *Buffer) SaveMoment(ctx context.Context, m models.OfflineMoment) (models.OfflineMoment, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	list, err := b.load(ctx)
	if err != nil {
		return models.OfflineMoment{}, err
	}
	m.ID = b.newID()
	m.Status = models.StatusPending
	list = append(list, m)

	if err := b.store(ctx, list); err != nil {
		return models.OfflineMoment{}, err
	}
	return m, nil
}

// GetOfflineMoments returns every staged moment in insertion order.
func (b *Buffer) GetOfflineMoments(ctx context.Context) ([]models.OfflineMoment, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.load(ctx)
}

func (b *Buffer) GetUnsyncedMoments(ctx context.Context) ([]models.OfflineMoment, error) {
	all, err := b.GetOfflineMoments(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.OfflineMoment, 0, len(all))
	for _, m := range all {
		if m.Status != models.StatusSynced {
			out = append(out, m)
		}
	}
	return out, nil
}

// MarkAsSynced flags the moment with the given id. Unknown ids are ignored.
func (b *Buffer) MarkAsSynced(ctx context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.markLocked(ctx, id)
}

func (b *Buffer) markLocked(ctx context.Context, id string) error {
	list, err := b.load(ctx)
	if err != nil {
		return err
	}
	for i := range list {
		if list[i].ID == id {
			list[i].Status = models.StatusSynced
		}
	}
	return b.store(ctx, list)
}

// RemoveSyncedMoments compacts the list down to the unsynced entries.
func (b *Buffer) RemoveSyncedMoments(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.compactLocked(ctx)
}

func (b *Buffer) compactLocked(ctx context.Context) error {
	list, err := b.load(ctx)
	if err != nil {
		return err
	}
	kept := list[:0]
	for _, m := range list {
		if m.Status != models.StatusSynced {
			kept = append(kept, m)
		}
	}
	return b.store(ctx, kept)
}

// Clear drops the whole moment list.
func (b *Buffer) Clear(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.kv.Remove(ctx, MomentsKey)
}

func (b *Buffer) SaveUserData(ctx context.Context, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return b.kv.Set(ctx, UserKey, raw)
}

// GetUserData decodes the stored user data into v and reports whether any was stored.
func (b *Buffer) GetUserData(ctx context.Context, v any) (bool, error) {
	raw, ok, err := b.kv.Get(ctx, UserKey)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return false, fmt.Errorf("decode user data: %w", err)
	}
	return true, nil
}

// ImportFunc writes one staged moment into the local store.
type ImportFunc func(ctx context.Context, m models.OfflineMoment) error

// Drain hands every unsynced moment to importFn in insertion order, marking
// each one synced as soon as it is imported, then compacts the list.
// Failed imports stay staged for the next drain.
func (b *Buffer) Drain(ctx context.Context, importFn ImportFunc) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	list, err := b.load(ctx)
	if err != nil {
		return 0, err
	}

	imported := 0
	var errs []error
	for _, m := range list {
		if m.Status == models.StatusSynced {
			continue
		}
		if err := importFn(ctx, m); err != nil {
			errs = append(errs, fmt.Errorf("import %s: %w", m.ID, err))
			continue
		}
		if err := b.markLocked(ctx, m.ID); err != nil {
			return imported, err
		}
		imported++
	}

	if imported > 0 {
		if err := b.compactLocked(ctx); err != nil {
			return imported, err
		}
	}
	return imported, errors.Join(errs...)
}
