//go:build integration

package idempotency_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"custodia/internal/idempotency"
	"custodia/pkg/platform/sentinel"
	"custodia/pkg/testutil/containers"
)

type RedisStoreSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *idempotency.RedisStore
}

func TestRedisStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisStoreSuite))
}

func (s *RedisStoreSuite) SetupSuite() {
	s.redis = containers.NewRedisContainer(s.T())
	s.store = idempotency.NewRedisStore(s.redis.Client)
}

func (s *RedisStoreSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisStoreSuite) TestCheckFresh() {
	outcome, rec, err := s.store.Check(context.Background(), "key-1", "fp-1")
	s.Require().NoError(err)
	s.Equal(idempotency.Fresh, outcome)
	s.Nil(rec)
}

func (s *RedisStoreSuite) TestSaveThenCheck() {
	ctx := context.Background()
	saved := idempotency.Record{
		Key:         "key-1",
		Fingerprint: "fp-1",
		ResourceID:  "vault-1",
		Response:    []byte(`{"vault":{"id":"vault-1"}}`),
		CreatedAt:   time.Now().UTC().Truncate(time.Millisecond),
	}
	s.Require().NoError(s.store.Save(ctx, saved))

	s.Run("matching fingerprint replays the stored response", func() {
		outcome, rec, err := s.store.Check(ctx, "key-1", "fp-1")
		s.Require().NoError(err)
		s.Equal(idempotency.Replay, outcome)
		s.Require().NotNil(rec)
		s.Equal(saved.ResourceID, rec.ResourceID)
		s.JSONEq(string(saved.Response), string(rec.Response))
	})

	s.Run("different fingerprint conflicts", func() {
		outcome, _, err := s.store.Check(ctx, "key-1", "fp-other")
		s.Require().NoError(err)
		s.Equal(idempotency.Conflict, outcome)
	})
}

func (s *RedisStoreSuite) TestSaveIsFirstWriterWins() {
	ctx := context.Background()
	s.Require().NoError(s.store.Save(ctx, idempotency.Record{Key: "key-1", Fingerprint: "fp-1"}))

	err := s.store.Save(ctx, idempotency.Record{Key: "key-1", Fingerprint: "fp-2"})
	s.ErrorIs(err, sentinel.ErrConflict)

	// The original record survives.
	outcome, _, err := s.store.Check(ctx, "key-1", "fp-1")
	s.Require().NoError(err)
	s.Equal(idempotency.Replay, outcome)
}

func (s *RedisStoreSuite) TestRecordsExpire() {
	ctx := context.Background()
	store := idempotency.NewRedisStore(s.redis.Client, idempotency.WithTTL(time.Second))
	s.Require().NoError(store.Save(ctx, idempotency.Record{Key: "key-ttl", Fingerprint: "fp-1"}))

	s.Eventually(func() bool {
		outcome, _, err := store.Check(ctx, "key-ttl", "fp-1")
		return err == nil && outcome == idempotency.Fresh
	}, 5*time.Second, 250*time.Millisecond)
}
