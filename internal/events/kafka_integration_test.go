//go:build integration

package events_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/twmb/franz-go/pkg/kgo"

	"custodia/internal/events"
	"custodia/internal/vault"
	"custodia/pkg/testutil/containers"
)

const testTopic = "custodia.vault.events.test"

type KafkaPublisherSuite struct {
	suite.Suite
	redpanda  *containers.RedpandaContainer
	publisher *events.KafkaPublisher
}

func TestKafkaPublisherSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(KafkaPublisherSuite))
}

func (s *KafkaPublisherSuite) SetupSuite() {
	s.redpanda = containers.NewRedpandaContainer(s.T())
	s.redpanda.CreateTopic(s.T(), testTopic)

	var err error
	s.publisher, err = events.NewKafkaPublisher(s.redpanda.Brokers, testTopic)
	s.Require().NoError(err)
}

func (s *KafkaPublisherSuite) TearDownSuite() {
	if s.publisher != nil {
		s.publisher.Close()
	}
}

func (s *KafkaPublisherSuite) TestPublishDeliversKeyedEnvelopes() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	now := time.Now().UTC().Truncate(time.Millisecond)
	emitted := []vault.DomainEvent{
		{
			ID: "e-1", Type: vault.EventMilestoneValidated, OccurredAt: now,
			Payload: map[string]string{"vaultId": "v-1", "milestoneId": "ms-1"},
		},
		{
			ID: "e-2", Type: vault.EventVaultStateChanged, OccurredAt: now,
			Payload: map[string]string{"vaultId": "v-1", "toStatus": "completed"},
		},
	}
	s.Require().NoError(s.publisher.Publish(ctx, "v-1", emitted))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(s.redpanda.Brokers...),
		kgo.ConsumeTopics(testTopic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	s.Require().NoError(err)
	defer consumer.Close()

	var records []*kgo.Record
	for len(records) < len(emitted) {
		fetches := consumer.PollFetches(ctx)
		s.Require().NoError(fetches.Err())
		records = append(records, fetches.Records()...)
	}

	s.Require().Len(records, 2)
	for i, record := range records {
		s.Equal("v-1", string(record.Key))

		var envelope events.Envelope
		s.Require().NoError(json.Unmarshal(record.Value, &envelope))
		s.Equal(emitted[i].ID, envelope.Event.ID)
		s.Equal(emitted[i].Type, envelope.Event.Type)
		s.Equal("v-1", envelope.VaultID.String())
	}
}
