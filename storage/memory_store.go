package storage

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"facility-finder/models"
	"facility-finder/query"
)

// MemoryStore is an in-process FacilityStore. Plans are evaluated in memory.
type MemoryStore struct {
	mu         sync.RWMutex
	facilities []models.Facility
	byCCN      map[string]int
}

// NewMemoryStore creates a store seeded with the given facilities.
func NewMemoryStore(facilities ...models.Facility) *MemoryStore {
	s := &MemoryStore{byCCN: make(map[string]int)}
	for _, f := range facilities {
		s.put(f)
	}
	return s
}

func (s *MemoryStore) put(f models.Facility) {
	if i, ok := s.byCCN[f.CCN]; ok {
		f.GoogleCache = s.facilities[i].GoogleCache
		s.facilities[i] = f
		return
	}
	s.byCCN[f.CCN] = len(s.facilities)
	s.facilities = append(s.facilities, f)
}

func (s *MemoryStore) EnsureIndexes(context.Context) error { return nil }

func (s *MemoryStore) Query(_ context.Context, plan *query.Plan) ([]models.Facility, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return plan.Apply(s.facilities), nil
}

func (s *MemoryStore) FindByCCN(_ context.Context, ccn string) (*models.Facility, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.byCCN[ccn]
	if !ok {
		return nil, models.ErrFacilityNotFound
	}
	f := s.facilities[i]
	return &f, nil
}

func (s *MemoryStore) FindByName(_ context.Context, name string) (*models.Facility, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	needle := strings.ToLower(name)
	for _, f := range s.facilities {
		if strings.Contains(strings.ToLower(f.ProviderName), needle) {
			return &f, nil
		}
	}
	return nil, models.ErrFacilityNotFound
}

func (s *MemoryStore) UpdateEnrichment(_ context.Context, ccn string, cache *models.GoogleCache) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.byCCN[ccn]
	if !ok {
		return models.ErrFacilityNotFound
	}
	snapshot := *cache
	s.facilities[i].GoogleCache = &snapshot
	return nil
}

func (s *MemoryStore) BulkUpsert(_ context.Context, facilities []models.Facility) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, f := range facilities {
		f.DistanceMeters = nil
		f.GoogleCache = nil
		s.put(f)
	}
	return len(facilities), nil
}

func (s *MemoryStore) FindStale(_ context.Context, olderThan time.Time, limit int) ([]models.Facility, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var stale []models.Facility
	for _, f := range s.facilities {
		if f.GoogleCache == nil || f.GoogleCache.LastUpdated.Before(olderThan) {
			stale = append(stale, f)
		}
	}
	sort.SliceStable(stale, func(i, j int) bool {
		return lastUpdated(stale[i]).Before(lastUpdated(stale[j]))
	})
	if limit > 0 && len(stale) > limit {
		stale = stale[:limit]
	}
	return stale, nil
}

func lastUpdated(f models.Facility) time.Time {
	if f.GoogleCache == nil {
		return time.Time{}
	}
	return f.GoogleCache.LastUpdated
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

func (s *MemoryStore) Close(context.Context) error { return nil }

// Snapshot returns the stored embedded cache of a facility, for inspection.
func (s *MemoryStore) Snapshot(ccn string) *models.GoogleCache {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.byCCN[ccn]
	if !ok || s.facilities[i].GoogleCache == nil {
		return nil
	}
	c := *s.facilities[i].GoogleCache
	return &c
}

// MemoryKV is an in-process KV with lazy expiry.
type MemoryKV struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	value   string
	expires time.Time
}

// NewMemoryKV creates an empty MemoryKV.
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{entries: make(map[string]memoryEntry), now: time.Now}
}

func (m *MemoryKV) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		return "", false, nil
	}
	if !e.expires.IsZero() && !m.now().Before(e.expires) {
		delete(m.entries, key)
		return "", false, nil
	}
	return e.value, true, nil
}

func (m *MemoryKV) Set(_ context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := memoryEntry{value: value}
	if ttl > 0 {
		e.expires = m.now().Add(ttl)
	}
	m.entries[key] = e
	return nil
}

// Len returns the number of stored entries, expired or not.
func (m *MemoryKV) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func (m *MemoryKV) Close() error { return nil }
