//go:build integration

package kafka_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kgo"

	"chainguard/internal/custody/events"
	"chainguard/internal/custody/models"
	"chainguard/internal/platform/config"
	"chainguard/internal/platform/kafka"
	"chainguard/pkg/testutil/containers"
)

type KafkaSuite struct {
	suite.Suite
	brokers  []string
	producer *kgo.Client
}

func TestKafkaSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(KafkaSuite))
}

func (s *KafkaSuite) SetupSuite() {
	s.brokers = containers.GetManager().GetRedpanda(s.T()).Brokers
	producer, err := kafka.NewProducer(config.KafkaConfig{
		Brokers:        s.brokers,
		ClientID:       "chainguard-test",
		ProduceTimeout: 10 * time.Second,
	})
	s.Require().NoError(err)
	s.producer = producer
}

func (s *KafkaSuite) TearDownSuite() {
	if s.producer != nil {
		s.producer.Close()
	}
}

func (s *KafkaSuite) TestEnsureTopicsIsIdempotent() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	topics := events.Topics("idem.")
	s.Require().NoError(kafka.EnsureTopics(ctx, s.producer, 1, 1, topics...))
	s.Require().NoError(kafka.EnsureTopics(ctx, s.producer, 1, 1, topics...))

	listed, err := kadm.NewClient(s.producer).ListTopics(ctx, topics...)
	s.Require().NoError(err)
	for _, topic := range topics {
		detail, ok := listed[topic]
		s.Require().True(ok, topic)
		s.NoError(detail.Err, topic)
	}
}

func (s *KafkaSuite) TestKafkaSinkPublishesKeyedEvent() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	const prefix = "sink."
	s.Require().NoError(kafka.EnsureTopics(ctx, s.producer, 1, 1, events.Topics(prefix)...))

	event := models.Event{
		ID:              "evt-1",
		Kind:            models.EventCheckedOut,
		EvidenceID:      "E1",
		CaseFingerprint: "fp",
		Status:          models.StatusCheckedOut,
		Actor:           "OrgB:Bob",
		TxID:            "tx-1",
		Timestamp:       time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC),
	}
	s.Require().NoError(events.NewKafkaSink(s.producer, prefix).Publish(ctx, event))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(s.brokers...),
		kgo.ConsumeTopics(events.Topic(prefix, models.EventCheckedOut)),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	s.Require().NoError(err)
	defer consumer.Close()

	var got *kgo.Record
	for got == nil {
		fetches := consumer.PollFetches(ctx)
		s.Require().NoError(ctx.Err(), "timed out waiting for event")
		fetches.EachRecord(func(r *kgo.Record) {
			if got == nil {
				got = r
			}
		})
	}

	s.Equal("E1", string(got.Key))
	var decoded models.Event
	s.Require().NoError(json.Unmarshal(got.Value, &decoded))
	s.Equal(event, decoded)

	headers := map[string]string{}
	for _, h := range got.Headers {
		headers[h.Key] = string(h.Value)
	}
	s.Equal("evt-1", headers["event-id"])
	s.Equal(string(models.EventCheckedOut), headers["event-kind"])
}
