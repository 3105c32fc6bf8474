package repo

import (
	"context"
	"sync"
	"time"

	"github.com/vbncursed/vkr/pass-service/internal/models"
	"github.com/vbncursed/vkr/pass-service/internal/registry"
)

// MemoryStore — registry.Store в памяти процесса (тесты, passctl, запуск
// без DATABASE_URL). Семантика совпадает с Postgres.
type MemoryStore struct {
	mu       sync.Mutex
	bySerial map[string]models.IdentityRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{bySerial: make(map[string]models.IdentityRecord)}
}

var _ registry.Store = (*MemoryStore)(nil)

func (m *MemoryStore) findLiveLocked(key models.PassKey) (models.IdentityRecord, bool) {
	for _, r := range m.bySerial {
		if r.Key() == key && r.Live() {
			return r, true
		}
	}
	return models.IdentityRecord{}, false
}

func (m *MemoryStore) FindLive(_ context.Context, key models.PassKey) (models.IdentityRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.findLiveLocked(key); ok {
		return r, nil
	}
	return models.IdentityRecord{}, registry.ErrNotFound
}

func (m *MemoryStore) FindBySerial(_ context.Context, serial string) (models.IdentityRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.bySerial[serial]; ok {
		return r, nil
	}
	return models.IdentityRecord{}, registry.ErrNotFound
}

func (m *MemoryStore) Upsert(_ context.Context, rec models.IdentityRecord) (models.IdentityRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cur, ok := m.bySerial[rec.SerialNumber]; ok {
		cur.CacheValidator = rec.CacheValidator
		cur.UpdatedAt = rec.UpdatedAt
		m.bySerial[rec.SerialNumber] = cur
		return cur, nil
	}
	if rec.Live() {
		if winner, ok := m.findLiveLocked(rec.Key()); ok {
			return winner, nil
		}
	}
	rec.PushWindowStart, rec.PushCount = nil, 0
	m.bySerial[rec.SerialNumber] = rec
	return rec, nil
}

func (m *MemoryStore) UpdateStatus(_ context.Context, serial string, from, to models.PassStatus, expiresAt *time.Time, now time.Time) (models.IdentityRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.bySerial[serial]
	if !ok {
		return cur, registry.ErrNotFound
	}
	if cur.Status != from {
		return cur, registry.ErrStale
	}
	cur.Status = to
	if expiresAt != nil {
		t := *expiresAt
		cur.ScheduledExpirationAt = &t
	}
	cur.CacheValidator = ""
	cur.UpdatedAt = now
	m.bySerial[serial] = cur
	return cur, nil
}

func (m *MemoryStore) ConsumePush(_ context.Context, serial string, now time.Time, window time.Duration, limit int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.bySerial[serial]
	if !ok {
		return false, registry.ErrNotFound
	}
	if cur.PushWindowStart == nil || !cur.PushWindowStart.After(now.Add(-window)) {
		start := now
		cur.PushWindowStart, cur.PushCount = &start, 0
	}
	if cur.PushCount >= limit {
		return false, nil
	}
	cur.PushCount++
	m.bySerial[serial] = cur
	return true, nil
}
