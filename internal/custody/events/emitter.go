// Package events publishes one notification per committed custody
// transition.
//
// Delivery is best effort. The ledger commit is authoritative, so Emit
// reports failures to its caller and never undoes anything. A circuit
// breaker stops the emitter from waiting on a broker that keeps failing;
// while it is open events go to the fallback sink, with every probeEvery-th
// event still tried against the primary so the circuit can close again.
package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"chainguard/internal/custody/metrics"
	"chainguard/internal/custody/models"
	"chainguard/pkg/platform/circuit"
	"chainguard/pkg/platform/sentinel"
)

//go:generate mockgen -source=emitter.go -destination=mocks/mocks.go -package=mocks Sink

// Sink delivers a single event.
type Sink interface {
	Publish(ctx context.Context, event models.Event) error
}

const defaultProbeEvery = 10

// Emitter builds events from committed records and hands them to sinks.
type Emitter struct {
	primary    Sink
	fallback   Sink
	breaker    *circuit.Breaker
	probeEvery int64
	skipped    atomic.Int64
	logger     *slog.Logger
	metrics    *metrics.Metrics
	newID      func() string
}

type Option func(*Emitter)

func WithLogger(logger *slog.Logger) Option {
	return func(e *Emitter) {
		e.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Emitter) {
		e.metrics = m
	}
}

// WithFallback sets the sink used when the primary fails or the circuit is open.
func WithFallback(sink Sink) Option {
	return func(e *Emitter) {
		e.fallback = sink
	}
}

func WithBreaker(b *circuit.Breaker) Option {
	return func(e *Emitter) {
		e.breaker = b
	}
}

// WithProbeInterval sets how many events pass while the circuit is open
// before one is tried against the primary.
func WithProbeInterval(n int) Option {
	return func(e *Emitter) {
		if n > 0 {
			e.probeEvery = int64(n)
		}
	}
}

// WithIDGenerator overrides event id generation.
func WithIDGenerator(fn func() string) Option {
	return func(e *Emitter) {
		e.newID = fn
	}
}

// NewEmitter requires a primary sink.
func NewEmitter(primary Sink, opts ...Option) (*Emitter, error) {
	if primary == nil {
		return nil, errors.New("primary sink is required")
	}
	e := &Emitter{
		primary:    primary,
		breaker:    circuit.New("event-emitter"),
		probeEvery: defaultProbeEvery,
		logger:     slog.Default(),
		newID:      uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// NewEvent builds the notification for a committed record. Only the case
// fingerprint leaves the record.
func (e *Emitter) NewEvent(kind models.EventKind, rec *models.EvidenceRecord, actor, txID string, at time.Time) models.Event {
	return models.Event{
		ID:              e.newID(),
		Kind:            kind,
		EvidenceID:      rec.EvidenceID,
		CaseFingerprint: rec.CaseFingerprint,
		Status:          rec.Status,
		Actor:           actor,
		TxID:            txID,
		Timestamp:       at,
	}
}

// Emit publishes the event for a committed transition. A non-nil error means
// no sink accepted it.
func (e *Emitter) Emit(ctx context.Context, kind models.EventKind, rec *models.EvidenceRecord, actor, txID string, at time.Time) error {
	return e.Publish(ctx, e.NewEvent(kind, rec, actor, txID, at))
}

// Publish routes a prepared event through the breaker.
func (e *Emitter) Publish(ctx context.Context, event models.Event) error {
	kind := string(event.Kind)

	if e.breaker.IsOpen() && e.skipped.Add(1)%e.probeEvery != 0 {
		return e.divert(ctx, event, sentinel.ErrUnavailable)
	}

	err := e.primary.Publish(ctx, event)
	if err == nil {
		_, change := e.breaker.RecordSuccess()
		if change.Closed {
			e.skipped.Store(0)
			e.logger.InfoContext(ctx, "event emitter circuit closed")
			e.setCircuit(false)
		}
		if e.metrics != nil {
			e.metrics.IncEventPublished(kind)
		}
		return nil
	}

	_, change := e.breaker.RecordFailure()
	if change.Opened {
		e.logger.WarnContext(ctx, "event emitter circuit opened", "error", err)
		e.setCircuit(true)
	}
	return e.divert(ctx, event, err)
}

func (e *Emitter) divert(ctx context.Context, event models.Event, cause error) error {
	kind := string(event.Kind)
	if e.fallback != nil {
		err := e.fallback.Publish(ctx, event)
		if err == nil {
			if e.metrics != nil {
				e.metrics.IncEventDiverted(kind)
			}
			return nil
		}
		cause = errors.Join(cause, err)
	}
	if e.metrics != nil {
		e.metrics.IncEventFailed(kind)
	}
	e.logger.WarnContext(ctx, "event not delivered",
		"event_id", event.ID,
		"event_kind", kind,
		"evidence_id", string(event.EvidenceID),
		"error", cause,
	)
	return fmt.Errorf("emit %s: %w", kind, cause)
}

func (e *Emitter) setCircuit(open bool) {
	if e.metrics != nil {
		e.metrics.SetCircuitOpen(open)
	}
}
