package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/twmb/franz-go/pkg/kgo"

	"chainguard/internal/custody/models"
)

// Topic is the Kafka topic carrying events of kind.
func Topic(prefix string, kind models.EventKind) string {
	return prefix + string(kind)
}

// Topics lists every event topic under prefix.
func Topics(prefix string) []string {
	out := make([]string, len(models.EventKinds))
	for i, k := range models.EventKinds {
		out[i] = Topic(prefix, k)
	}
	return out
}

// KafkaSink produces each event to its kind's topic, keyed by evidence id so
// events for one item stay ordered within a partition.
type KafkaSink struct {
	client      *kgo.Client
	topicPrefix string
}

func NewKafkaSink(client *kgo.Client, topicPrefix string) *KafkaSink {
	return &KafkaSink{client: client, topicPrefix: topicPrefix}
}

func (k *KafkaSink) Publish(ctx context.Context, event models.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	rec := &kgo.Record{
		Topic: Topic(k.topicPrefix, event.Kind),
		Key:   []byte(event.EvidenceID),
		Value: payload,
		Headers: []kgo.RecordHeader{
			{Key: "event-id", Value: []byte(event.ID)},
			{Key: "event-kind", Value: []byte(event.Kind)},
		},
	}
	if err := k.client.ProduceSync(ctx, rec).FirstErr(); err != nil {
		return fmt.Errorf("produce event: %w", err)
	}
	return nil
}

// LogSink writes events to a structured logger. Used as the fallback so an
// undeliverable event still leaves a trace.
type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (l *LogSink) Publish(ctx context.Context, event models.Event) error {
	l.logger.InfoContext(ctx, "custody event",
		"event_id", event.ID,
		"event_kind", string(event.Kind),
		"evidence_id", string(event.EvidenceID),
		"case_fingerprint", event.CaseFingerprint,
		"status", string(event.Status),
		"actor", event.Actor,
		"tx_id", event.TxID,
	)
	return nil
}

// MemorySink keeps events in order. It backs local runs and tests.
type MemorySink struct {
	mu     sync.Mutex
	events []models.Event
	err    error
}

func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func (m *MemorySink) Publish(_ context.Context, event models.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, event)
	return nil
}

// FailWith makes subsequent publishes fail with err; nil restores delivery.
func (m *MemorySink) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Events returns a copy of everything published so far.
func (m *MemorySink) Events() []models.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.events)
}
