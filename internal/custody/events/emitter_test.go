package events

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"chainguard/internal/custody/events/mocks"
	"chainguard/internal/custody/metrics"
	"chainguard/internal/custody/models"
	"chainguard/pkg/platform/circuit"
	"chainguard/pkg/platform/sentinel"
)

// =============================================================================
// Emitter Test Suite
// =============================================================================
// Delivery is best effort: these tests pin down routing between the primary
// sink, the fallback and the breaker, and that failures surface as errors
// rather than panics or silent drops.

type EmitterSuite struct {
	suite.Suite
	ctrl     *gomock.Controller
	primary  *mocks.MockSink
	fallback *MemorySink
	metrics  *metrics.Metrics
	record   *models.EvidenceRecord
	logger   *slog.Logger
}

func TestEmitterSuite(t *testing.T) {
	suite.Run(t, new(EmitterSuite))
}

func (s *EmitterSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.primary = mocks.NewMockSink(s.ctrl)
	s.fallback = NewMemorySink()
	s.metrics = metrics.New(prometheus.NewRegistry())
	s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	s.record = models.NewEvidenceRecord("E1", "fp42", []byte("sealed"), "", "", time.Now())
}

func (s *EmitterSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *EmitterSuite) newEmitter(opts ...Option) *Emitter {
	base := []Option{
		WithLogger(s.logger),
		WithMetrics(s.metrics),
		WithIDGenerator(func() string { return "evt-1" }),
	}
	e, err := NewEmitter(s.primary, append(base, opts...)...)
	s.Require().NoError(err)
	return e
}

func (s *EmitterSuite) TestNewEmitterRequiresPrimary() {
	_, err := NewEmitter(nil)
	s.Error(err)
}

func (s *EmitterSuite) TestEmitDeliversToPrimary() {
	at := time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC)
	s.primary.EXPECT().Publish(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, ev models.Event) error {
			s.Equal("evt-1", ev.ID)
			s.Equal(models.EventCreated, ev.Kind)
			s.Equal("fp42", ev.CaseFingerprint)
			s.Equal("OrgA:collector", ev.Actor)
			s.Equal("tx-9", ev.TxID)
			s.Equal(at, ev.Timestamp)
			return nil
		})

	err := s.newEmitter().Emit(context.Background(), models.EventCreated, s.record, "OrgA:collector", "tx-9", at)
	s.NoError(err)
	s.Equal(1.0, testutil.ToFloat64(s.metrics.EventsPublished.WithLabelValues("evidence.created")))
}

func (s *EmitterSuite) TestPrimaryFailureGoesToFallback() {
	s.primary.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(errors.New("broker down"))

	err := s.newEmitter(WithFallback(s.fallback)).Emit(context.Background(), models.EventCheckedOut, s.record, "a", "tx", time.Now())
	s.NoError(err)
	s.Len(s.fallback.Events(), 1)
	s.Equal(1.0, testutil.ToFloat64(s.metrics.EventsDiverted.WithLabelValues("evidence.checked_out")))
}

func (s *EmitterSuite) TestFailureWithoutFallbackIsReported() {
	s.primary.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(errors.New("broker down"))

	err := s.newEmitter().Emit(context.Background(), models.EventRemoved, s.record, "a", "tx", time.Now())
	s.Error(err)
	s.Contains(err.Error(), "broker down")
	s.Equal(1.0, testutil.ToFloat64(s.metrics.EventsFailed.WithLabelValues("evidence.removed")))
}

func (s *EmitterSuite) TestOpenCircuitSkipsPrimaryUntilProbe() {
	breaker := circuit.New("test", circuit.WithFailureThreshold(2), circuit.WithSuccessThreshold(1))
	e := s.newEmitter(WithBreaker(breaker), WithFallback(s.fallback), WithProbeInterval(3))
	ctx := context.Background()

	s.primary.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(errors.New("broker down")).Times(2)
	s.NoError(e.Emit(ctx, models.EventCreated, s.record, "a", "tx1", time.Now()))
	s.NoError(e.Emit(ctx, models.EventCreated, s.record, "a", "tx2", time.Now()))
	s.True(breaker.IsOpen())
	s.Equal(1.0, testutil.ToFloat64(s.metrics.EmitterCircuit))

	// Two events bypass the primary, the third probes it and closes the circuit.
	s.NoError(e.Emit(ctx, models.EventCreated, s.record, "a", "tx3", time.Now()))
	s.NoError(e.Emit(ctx, models.EventCreated, s.record, "a", "tx4", time.Now()))
	s.primary.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil)
	s.NoError(e.Emit(ctx, models.EventCreated, s.record, "a", "tx5", time.Now()))

	s.False(breaker.IsOpen())
	s.Equal(0.0, testutil.ToFloat64(s.metrics.EmitterCircuit))
	s.Len(s.fallback.Events(), 4)
}

func (s *EmitterSuite) TestOpenCircuitWithoutFallback() {
	breaker := circuit.New("test", circuit.WithFailureThreshold(1))
	e := s.newEmitter(WithBreaker(breaker))

	s.primary.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(errors.New("broker down"))
	s.Error(e.Emit(context.Background(), models.EventCreated, s.record, "a", "tx", time.Now()))

	err := e.Emit(context.Background(), models.EventCreated, s.record, "a", "tx", time.Now())
	s.ErrorIs(err, sentinel.ErrUnavailable)
}

func TestTopics(t *testing.T) {
	got := Topics("prod.")
	want := []string{
		"prod.evidence.created",
		"prod.evidence.checked_out",
		"prod.evidence.transferred",
		"prod.evidence.checked_in",
		"prod.evidence.removed",
	}
	if len(got) != len(want) {
		t.Fatalf("got %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("topic %d: got %s want %s", i, got[i], want[i])
		}
	}
}
