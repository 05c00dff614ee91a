//go:build integration

package store_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"custodia/internal/vault"
	"custodia/internal/vault/store"
	id "custodia/pkg/domain"
	"custodia/pkg/platform/sentinel"
	"custodia/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.store = store.NewPostgres(s.postgres.Pool)
	s.Require().NoError(s.store.Migrate(context.Background()))
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "vaults"))
}

func newStoredVault(opts ...func(*vault.Vault)) *vault.Vault {
	now := time.Now().UTC().Truncate(time.Microsecond)
	v := &vault.Vault{
		ID:                 id.VaultID(uuid.NewString()),
		Creator:            "creator-1",
		Amount:             "100",
		StartTimestamp:     now,
		EndTimestamp:       now.AddDate(0, 6, 0),
		SuccessDestination: "acct-success",
		FailureDestination: "acct-failure",
		Status:             vault.StatusActive,
		CreatedAt:          now,
		Milestones: []vault.Milestone{
			{ID: "ms-1", Title: "Design", VerifierID: "verifier-1", Status: vault.MilestonePending},
		},
		History: []vault.HistoryEntry{
			{Action: vault.HistoryCreated, ActorID: "creator-1", Role: vault.RoleCreator, OccurredAt: now},
		},
		ValidationRecords: []vault.ValidationRecord{},
		DomainEvents:      []vault.DomainEvent{},
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

func (s *PostgresStoreSuite) TestRoundTrip() {
	ctx := context.Background()
	v := newStoredVault()
	s.Require().NoError(s.store.Create(ctx, v))

	got, err := s.store.FindByID(ctx, v.ID)
	s.Require().NoError(err)
	s.Equal(v.ID, got.ID)
	s.Equal(v.Amount, got.Amount)
	s.True(v.EndTimestamp.Equal(got.EndTimestamp))
	s.Require().Len(got.Milestones, 1)
	s.Equal(vault.MilestonePending, got.Milestones[0].Status)
	s.Require().Len(got.History, 1)
	s.Equal(vault.HistoryCreated, got.History[0].Action)
}

func (s *PostgresStoreSuite) TestDuplicateCreateConflicts() {
	ctx := context.Background()
	v := newStoredVault()
	s.Require().NoError(s.store.Create(ctx, v))
	s.ErrorIs(s.store.Create(ctx, v), sentinel.ErrConflict)
}

func (s *PostgresStoreSuite) TestFindUnknown() {
	_, err := s.store.FindByID(context.Background(), "nope")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestUpdatePersistsCollections() {
	ctx := context.Background()
	v := newStoredVault()
	s.Require().NoError(s.store.Create(ctx, v))

	updated, err := s.store.Update(ctx, v.ID, func(v *vault.Vault) error {
		v.Status = vault.StatusCancelled
		now := time.Now().UTC().Truncate(time.Microsecond)
		v.CancelledAt = &now
		v.History = append(v.History, vault.HistoryEntry{Action: vault.HistoryCancelled, OccurredAt: now})
		v.DomainEvents = append(v.DomainEvents, vault.DomainEvent{
			ID: "e-1", Type: vault.EventVaultStateChanged, OccurredAt: now,
			Payload: map[string]string{"toStatus": "cancelled"},
		})
		return nil
	})
	s.Require().NoError(err)
	s.Equal(vault.StatusCancelled, updated.Status)

	got, err := s.store.FindByID(ctx, v.ID)
	s.Require().NoError(err)
	s.Equal(vault.StatusCancelled, got.Status)
	s.NotNil(got.CancelledAt)
	s.Len(got.History, 2)
	s.Require().Len(got.DomainEvents, 1)
	s.Equal("cancelled", got.DomainEvents[0].Payload["toStatus"])
}

func (s *PostgresStoreSuite) TestUpdateRollsBackOnError() {
	ctx := context.Background()
	v := newStoredVault()
	s.Require().NoError(s.store.Create(ctx, v))

	_, err := s.store.Update(ctx, v.ID, func(v *vault.Vault) error {
		v.Status = vault.StatusCompleted
		return fmt.Errorf("rule violated")
	})
	s.Error(err)

	got, err := s.store.FindByID(ctx, v.ID)
	s.Require().NoError(err)
	s.Equal(vault.StatusActive, got.Status)
}

// TestConcurrentUpdatesSerialize drives many writers at one row; FOR UPDATE
// must make every append visible in the final state.
func (s *PostgresStoreSuite) TestConcurrentUpdatesSerialize() {
	ctx := context.Background()
	v := newStoredVault()
	s.Require().NoError(s.store.Create(ctx, v))

	const writers = 16
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.store.Update(ctx, v.ID, func(v *vault.Vault) error {
				v.History = append(v.History, vault.HistoryEntry{
					Note:       fmt.Sprintf("writer-%d", i),
					OccurredAt: time.Now().UTC(),
				})
				return nil
			})
			s.NoError(err)
		}(i)
	}
	wg.Wait()

	got, err := s.store.FindByID(ctx, v.ID)
	s.Require().NoError(err)
	s.Len(got.History, writers+1)
}

func (s *PostgresStoreSuite) TestListFiltersSortsAndPaginates() {
	ctx := context.Background()
	amounts := []string{"50", "1000", "200.5"}
	for i, amount := range amounts {
		v := newStoredVault(func(v *vault.Vault) {
			v.Amount = amount
			v.CreatedAt = v.CreatedAt.Add(time.Duration(i) * time.Minute)
			if i == 1 {
				v.Status = vault.StatusCancelled
			}
		})
		s.Require().NoError(s.store.Create(ctx, v))
	}

	s.Run("status filter", func() {
		got, total, err := s.store.List(ctx, store.ListFilter{Status: vault.StatusActive})
		s.Require().NoError(err)
		s.Equal(2, total)
		s.Len(got, 2)
	})

	s.Run("numeric amount ordering", func() {
		got, _, err := s.store.List(ctx, store.ListFilter{SortBy: store.SortAmount, Order: store.OrderDesc})
		s.Require().NoError(err)
		s.Require().Len(got, 3)
		s.Equal("1000", got[0].Amount)
		s.Equal("200.5", got[1].Amount)
		s.Equal("50", got[2].Amount)
	})

	s.Run("pagination keeps total", func() {
		got, total, err := s.store.List(ctx, store.ListFilter{Page: 2, Limit: 2})
		s.Require().NoError(err)
		s.Equal(3, total)
		s.Len(got, 1)
	})
}
