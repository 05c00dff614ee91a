package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"custodia/internal/vault"
	id "custodia/pkg/domain"
	"custodia/pkg/platform/sentinel"
)

type MemoryStoreSuite struct {
	suite.Suite
	store *MemoryStore
}

func TestMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(MemoryStoreSuite))
}

func (s *MemoryStoreSuite) SetupTest() {
	s.store = NewMemoryStore()
}

func (s *MemoryStoreSuite) SetupSubTest() {
	s.SetupTest()
}

func newTestVault(vaultID string, opts ...func(*vault.Vault)) *vault.Vault {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	v := &vault.Vault{
		ID:                 id.VaultID(vaultID),
		Creator:            "creator-1",
		Amount:             "100",
		StartTimestamp:     now,
		EndTimestamp:       now.AddDate(0, 6, 0),
		SuccessDestination: "acct-success",
		FailureDestination: "acct-failure",
		Status:             vault.StatusActive,
		CreatedAt:          now,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

func (s *MemoryStoreSuite) TestCreateAndFind() {
	ctx := context.Background()

	s.Run("round trips a vault", func() {
		v := newTestVault("v-1")
		s.Require().NoError(s.store.Create(ctx, v))

		got, err := s.store.FindByID(ctx, "v-1")
		s.Require().NoError(err)
		s.Equal(v.ID, got.ID)
		s.Equal(v.Amount, got.Amount)
	})

	s.Run("duplicate id conflicts", func() {
		s.Require().NoError(s.store.Create(ctx, newTestVault("v-1")))
		err := s.store.Create(ctx, newTestVault("v-1"))
		s.ErrorIs(err, sentinel.ErrConflict)
	})

	s.Run("unknown id not found", func() {
		_, err := s.store.FindByID(ctx, "v-nope")
		s.ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("returned vault is a snapshot", func() {
		v := newTestVault("v-1")
		s.Require().NoError(s.store.Create(ctx, v))

		got, err := s.store.FindByID(ctx, "v-1")
		s.Require().NoError(err)
		got.Status = vault.StatusCancelled
		got.History = append(got.History, vault.HistoryEntry{Action: vault.HistoryCancelled})

		fresh, err := s.store.FindByID(ctx, "v-1")
		s.Require().NoError(err)
		s.Equal(vault.StatusActive, fresh.Status)
		s.Empty(fresh.History)
	})
}

func (s *MemoryStoreSuite) TestUpdate() {
	ctx := context.Background()

	s.Run("applies the mutation atomically", func() {
		s.Require().NoError(s.store.Create(ctx, newTestVault("v-1")))

		updated, err := s.store.Update(ctx, "v-1", func(v *vault.Vault) error {
			v.Status = vault.StatusCompleted
			return nil
		})
		s.Require().NoError(err)
		s.Equal(vault.StatusCompleted, updated.Status)

		got, err := s.store.FindByID(ctx, "v-1")
		s.Require().NoError(err)
		s.Equal(vault.StatusCompleted, got.Status)
	})

	s.Run("a failing mutation leaves the vault untouched", func() {
		s.Require().NoError(s.store.Create(ctx, newTestVault("v-1")))
		boom := errors.New("rule violated")

		_, err := s.store.Update(ctx, "v-1", func(v *vault.Vault) error {
			v.Status = vault.StatusCancelled
			v.History = append(v.History, vault.HistoryEntry{Action: vault.HistoryCancelled})
			return boom
		})
		s.ErrorIs(err, boom)

		got, err := s.store.FindByID(ctx, "v-1")
		s.Require().NoError(err)
		s.Equal(vault.StatusActive, got.Status)
		s.Empty(got.History)
	})

	s.Run("unknown vault", func() {
		_, err := s.store.Update(ctx, "v-nope", func(*vault.Vault) error { return nil })
		s.ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("concurrent updates serialize", func() {
		s.Require().NoError(s.store.Create(ctx, newTestVault("v-1")))

		const writers = 32
		var wg sync.WaitGroup
		for i := 0; i < writers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, err := s.store.Update(ctx, "v-1", func(v *vault.Vault) error {
					v.History = append(v.History, vault.HistoryEntry{
						Note: fmt.Sprintf("writer-%d", i),
					})
					return nil
				})
				s.NoError(err)
			}(i)
		}
		wg.Wait()

		got, err := s.store.FindByID(ctx, "v-1")
		s.Require().NoError(err)
		s.Len(got.History, writers)
	})
}

func (s *MemoryStoreSuite) TestList() {
	ctx := context.Background()

	seed := func() {
		base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
		vaults := []*vault.Vault{
			newTestVault("v-1", func(v *vault.Vault) {
				v.Amount = "50"
				v.CreatedAt = base
			}),
			newTestVault("v-2", func(v *vault.Vault) {
				v.Amount = "1000"
				v.CreatedAt = base.Add(time.Hour)
				v.Status = vault.StatusCancelled
			}),
			newTestVault("v-3", func(v *vault.Vault) {
				v.Amount = "200.5"
				v.CreatedAt = base.Add(2 * time.Hour)
				v.Creator = "creator-2"
			}),
		}
		for _, v := range vaults {
			s.Require().NoError(s.store.Create(ctx, v))
		}
	}

	s.Run("default ordering is createdAt ascending", func() {
		seed()
		got, total, err := s.store.List(ctx, ListFilter{})
		s.Require().NoError(err)
		s.Equal(3, total)
		s.Equal(id.VaultID("v-1"), got[0].ID)
		s.Equal(id.VaultID("v-3"), got[2].ID)
	})

	s.Run("filters by status", func() {
		seed()
		got, total, err := s.store.List(ctx, ListFilter{Status: vault.StatusCancelled})
		s.Require().NoError(err)
		s.Equal(1, total)
		s.Equal(id.VaultID("v-2"), got[0].ID)
	})

	s.Run("filters by creator", func() {
		seed()
		_, total, err := s.store.List(ctx, ListFilter{Creator: "creator-1"})
		s.Require().NoError(err)
		s.Equal(2, total)
	})

	s.Run("sorts amounts numerically, not lexically", func() {
		seed()
		got, _, err := s.store.List(ctx, ListFilter{SortBy: SortAmount, Order: OrderDesc})
		s.Require().NoError(err)
		s.Equal(id.VaultID("v-2"), got[0].ID)
		s.Equal(id.VaultID("v-3"), got[1].ID)
		s.Equal(id.VaultID("v-1"), got[2].ID)
	})

	s.Run("paginates with total preserved", func() {
		seed()
		got, total, err := s.store.List(ctx, ListFilter{Page: 2, Limit: 2})
		s.Require().NoError(err)
		s.Equal(3, total)
		s.Len(got, 1)
	})

	s.Run("page beyond the end is empty, not an error", func() {
		seed()
		got, total, err := s.store.List(ctx, ListFilter{Page: 9, Limit: 10})
		s.Require().NoError(err)
		s.Equal(3, total)
		s.Empty(got)
	})

	s.Run("limit is capped", func() {
		f := ListFilter{Limit: 10_000}.Normalize()
		s.Equal(100, f.Limit)
	})

	s.Run("unknown sort field falls back to createdAt", func() {
		f := ListFilter{SortBy: "creator; DROP TABLE vaults"}.Normalize()
		s.Equal(SortCreatedAt, f.SortBy)
	})
}
