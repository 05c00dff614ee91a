package store

import (
	"context"
	"math/big"
	"sort"
	"sync"

	"custodia/internal/vault"
	id "custodia/pkg/domain"
	"custodia/pkg/platform/sentinel"
)

// MemoryStore keeps vaults in a mutex-guarded map. Suitable for tests and
// single-process deployments; Update serializes read-modify-write per store,
// which satisfies per-vault serialization trivially.
type MemoryStore struct {
	mu     sync.RWMutex
	vaults map[id.VaultID]*vault.Vault
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{vaults: make(map[id.VaultID]*vault.Vault)}
}

func (s *MemoryStore) Create(_ context.Context, v *vault.Vault) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.vaults[v.ID]; ok {
		return sentinel.ErrConflict
	}
	s.vaults[v.ID] = v.Clone()
	return nil
}

func (s *MemoryStore) FindByID(_ context.Context, vaultID id.VaultID) (*vault.Vault, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.vaults[vaultID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return v.Clone(), nil
}

func (s *MemoryStore) Update(_ context.Context, vaultID id.VaultID, fn func(*vault.Vault) error) (*vault.Vault, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.vaults[vaultID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	// fn works on a copy; the stored vault only changes if fn succeeds.
	next := current.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	s.vaults[vaultID] = next
	return next.Clone(), nil
}

func (s *MemoryStore) List(_ context.Context, filter ListFilter) ([]*vault.Vault, int, error) {
	filter = filter.Normalize()

	s.mu.RLock()
	matched := make([]*vault.Vault, 0, len(s.vaults))
	for _, v := range s.vaults {
		if filter.Status != "" && v.Status != filter.Status {
			continue
		}
		if filter.Creator != "" && v.Creator != filter.Creator {
			continue
		}
		matched = append(matched, v.Clone())
	}
	s.mu.RUnlock()

	sortVaults(matched, filter.SortBy, filter.Order)

	total := len(matched)
	start := (filter.Page - 1) * filter.Limit
	if start >= total {
		return []*vault.Vault{}, total, nil
	}
	end := start + filter.Limit
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

// Reset drops every vault. Test isolation only.
func (s *MemoryStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vaults = make(map[id.VaultID]*vault.Vault)
}

func sortVaults(vs []*vault.Vault, sortBy, order string) {
	less := func(a, b *vault.Vault) bool { return a.CreatedAt.Before(b.CreatedAt) }
	switch sortBy {
	case SortAmount:
		less = func(a, b *vault.Vault) bool { return compareAmounts(a.Amount, b.Amount) < 0 }
	case SortEndTimestamp:
		less = func(a, b *vault.Vault) bool { return a.EndTimestamp.Before(b.EndTimestamp) }
	case SortStatus:
		less = func(a, b *vault.Vault) bool { return a.Status < b.Status }
	}
	sort.SliceStable(vs, func(i, j int) bool {
		if order == OrderDesc {
			return less(vs[j], vs[i])
		}
		return less(vs[i], vs[j])
	})
}

// compareAmounts compares decimal strings numerically. Amounts were
// validated at the boundary, so unparseable values sort last as a fallback
// rather than failing the listing.
func compareAmounts(a, b string) int {
	ra, okA := new(big.Rat).SetString(a)
	rb, okB := new(big.Rat).SetString(b)
	switch {
	case !okA && !okB:
		return 0
	case !okA:
		return 1
	case !okB:
		return -1
	}
	return ra.Cmp(rb)
}
