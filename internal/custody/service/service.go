// Package service is the evidence custody state machine.
//
// Every operation is one ledger transaction: gate, read, validate, write the
// record and its index delta, commit. Conflicting commits fail with
// CodeConcurrentModification and are never retried here. Events are emitted
// only after a successful commit and their failure never fails the call.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"chainguard/internal/custody/history"
	"chainguard/internal/custody/index"
	"chainguard/internal/custody/metrics"
	"chainguard/internal/custody/models"
	"chainguard/internal/custody/rbac"
	"chainguard/internal/ledger"
	id "chainguard/pkg/domain"
	dErrors "chainguard/pkg/domain-errors"
	"chainguard/pkg/platform/sentinel"
)

// Cipher is the case identifier boundary.
type Cipher interface {
	Encrypt(caseID string, key []byte) ([]byte, error)
	Decrypt(ciphertext, key []byte) (string, error)
	Fingerprint(caseID string) string
}

// Emitter publishes the notification for a committed transition.
type Emitter interface {
	Emit(ctx context.Context, kind models.EventKind, rec *models.EvidenceRecord, actor, txID string, at time.Time) error
}

// Service orchestrates custody operations over a ledger.
type Service struct {
	store   ledger.Store
	cipher  Cipher
	gate    *rbac.Gate
	indexes *index.Manager
	trail   *history.Reader
	emitter Emitter
	policy  models.Policy
	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
	newTxID func() string
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithEmitter(e Emitter) Option {
	return func(s *Service) {
		s.emitter = e
	}
}

// WithPolicy overrides the lifecycle policy.
func WithPolicy(p models.Policy) Option {
	return func(s *Service) {
		s.policy = p
	}
}

// WithResolver replaces the request-context identity resolver.
func WithResolver(r rbac.Resolver) Option {
	return func(s *Service) {
		s.gate = rbac.NewGate(r)
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = t
	}
}

// WithTxIDGenerator overrides ledger transaction id generation.
func WithTxIDGenerator(fn func() string) Option {
	return func(s *Service) {
		s.newTxID = fn
	}
}

// New constructs a Service. The ledger and cipher are required.
func New(store ledger.Store, cipher Cipher, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("ledger store is required")
	}
	if cipher == nil {
		return nil, errors.New("cipher is required")
	}
	s := &Service{
		store:   store,
		cipher:  cipher,
		gate:    rbac.NewGate(nil),
		indexes: index.NewManager(store),
		trail:   history.NewReader(store),
		policy:  models.DefaultPolicy(),
		logger:  slog.Default(),
		tracer:  otel.Tracer("chainguard/custody"),
		newTxID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// startOp opens the span and resolves the caller against the role table.
func (s *Service) startOp(ctx context.Context, op rbac.Operation, attrs ...attribute.KeyValue) (context.Context, trace.Span, id.Identity, error) {
	ctx, span := s.tracer.Start(ctx, "custody."+string(op), trace.WithAttributes(attrs...))
	identity, err := s.gate.Check(ctx, op)
	return ctx, span, identity, err
}

// endOp records the outcome of an operation on its span and metrics.
func (s *Service) endOp(ctx context.Context, span trace.Span, op rbac.Operation, start time.Time, err error) {
	defer span.End()
	if s.metrics != nil {
		s.metrics.ObserveOperation(string(op), start)
	}
	if err == nil {
		span.SetStatus(codes.Ok, "")
		return
	}
	code := dErrors.CodeOf(err)
	span.RecordError(err)
	span.SetStatus(codes.Error, string(code))
	if s.metrics != nil {
		s.metrics.IncRejection(string(op), string(code))
	}
	if code == dErrors.CodeInternal {
		s.logger.ErrorContext(ctx, "custody operation failed", "operation", string(op), "error", err)
		return
	}
	if code == dErrors.CodePermissionDenied {
		s.logger.WarnContext(ctx, "custody operation denied", "operation", string(op), "error", err)
	}
}

// loadRecord reads the canonical record inside tx.
func loadRecord(ctx context.Context, tx ledger.Tx, evidenceID id.EvidenceID) (*models.EvidenceRecord, error) {
	raw, err := tx.Get(ctx, index.RecordKey(evidenceID))
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "evidence "+string(evidenceID)+" not found")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read evidence")
	}
	return decodeRecord(raw)
}

func decodeRecord(raw []byte) (*models.EvidenceRecord, error) {
	var rec models.EvidenceRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to decode evidence")
	}
	return &rec, nil
}

// stage writes the record and its index delta into tx.
func stage(tx ledger.Tx, prev, next *models.EvidenceRecord) error {
	raw, err := json.Marshal(next)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to encode evidence")
	}
	if err := tx.Put(index.RecordKey(next.EvidenceID), raw); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to stage evidence")
	}
	if err := index.Sync(tx, prev, next); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to stage index entries")
	}
	return nil
}

// commit applies tx and translates ledger failures.
func (s *Service) commit(ctx context.Context, tx ledger.Tx, evidenceID id.EvidenceID, meta ledger.CommitMeta) (uint64, error) {
	seq, err := tx.Commit(ctx, meta)
	if err == nil {
		return seq, nil
	}
	if errors.Is(err, sentinel.ErrConflict) {
		if s.metrics != nil {
			s.metrics.IncConflict()
		}
		return 0, dErrors.Wrap(err, dErrors.CodeConcurrentModification,
			"evidence "+string(evidenceID)+" was modified concurrently; retry from a fresh read")
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return 0, dErrors.Wrap(err, dErrors.CodeTimeout, "commit aborted")
	}
	return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to commit")
}

// publish hands the committed record to the emitter. Failures are reported
// by the emitter and recorded on the span; the commit stands.
func (s *Service) publish(ctx context.Context, kind models.EventKind, rec *models.EvidenceRecord, actor, txID string, at time.Time) {
	if s.emitter == nil {
		return
	}
	if err := s.emitter.Emit(ctx, kind, rec, actor, txID, at); err != nil {
		trace.SpanFromContext(ctx).AddEvent("event emission failed",
			trace.WithAttributes(attribute.String("event.kind", string(kind))))
	}
}
