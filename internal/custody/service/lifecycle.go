package service

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"chainguard/internal/custody/models"
	"chainguard/internal/custody/rbac"
	"chainguard/internal/ledger"
	id "chainguard/pkg/domain"
	dErrors "chainguard/pkg/domain-errors"
	"chainguard/pkg/requestcontext"
)

var errNilRequest = dErrors.New(dErrors.CodeBadRequest, "request is required")

// CreateEvidence registers a new item in CREATED status. The case id is
// sealed with the transient key from the context and fingerprinted; neither
// the key nor the plaintext is written anywhere.
func (s *Service) CreateEvidence(ctx context.Context, req *models.CreateEvidenceRequest) (_ *models.EvidenceView, err error) {
	if req == nil {
		return nil, errNilRequest
	}
	start := time.Now()
	ctx, span, identity, err := s.startOp(ctx, rbac.OpCreateEvidence, attribute.String("evidence.id", req.EvidenceID))
	defer func() { s.endOp(ctx, span, rbac.OpCreateEvidence, start, err) }()
	if err != nil {
		return nil, err
	}

	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	evidenceID := id.EvidenceID(req.EvidenceID)

	key, ok := requestcontext.CaseKey(ctx)
	if !ok {
		return nil, dErrors.New(dErrors.CodeKeyUnavailable, "case key is required to create evidence")
	}
	ciphertext, err := s.cipher.Encrypt(req.CaseID, key)
	if err != nil {
		return nil, err
	}
	fingerprint := s.cipher.Fingerprint(req.CaseID)

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to begin transaction")
	}
	defer tx.Rollback()

	_, lookupErr := loadRecord(ctx, tx, evidenceID)
	switch {
	case lookupErr == nil:
		return nil, dErrors.New(dErrors.CodeAlreadyExists, "evidence "+req.EvidenceID+" already exists")
	case !dErrors.HasCode(lookupErr, dErrors.CodeNotFound):
		return nil, lookupErr
	}

	now := requestcontext.Now(ctx)
	rec := models.NewEvidenceRecord(evidenceID, fingerprint, ciphertext, req.Description, req.Location, now)
	if err := stage(tx, nil, rec); err != nil {
		return nil, err
	}

	meta := ledger.CommitMeta{TxID: s.newTxID(), Actor: identity.Actor(), Timestamp: now}
	version, err := s.commit(ctx, tx, evidenceID, meta)
	if err != nil {
		return nil, err
	}

	s.committed(ctx, models.ActionCreate, rec, meta, version)
	return rec.View(version), nil
}

// CheckOutEvidence takes an item out; the caller becomes its custodian.
func (s *Service) CheckOutEvidence(ctx context.Context, req *models.CheckOutRequest) (*models.EvidenceView, error) {
	if req == nil {
		return nil, errNilRequest
	}
	req.Normalize()
	return s.transition(ctx, rbac.OpCheckOutEvidence, req.EvidenceID, req.Validate,
		func(caller id.Identity) models.Transition {
			ref := caller.Ref()
			return models.Transition{Action: models.ActionCheckOut, Custodian: &ref, Note: req.Notes}
		})
}

// TransferEvidence reassigns custody to NewCustodian.
func (s *Service) TransferEvidence(ctx context.Context, req *models.TransferRequest) (*models.EvidenceView, error) {
	if req == nil {
		return nil, errNilRequest
	}
	req.Normalize()
	return s.transition(ctx, rbac.OpTransferEvidence, req.EvidenceID, req.Validate,
		func(id.Identity) models.Transition {
			// Validate has already parsed the ref.
			ref, _ := id.ParseCustodianRef(req.NewCustodian)
			return models.Transition{Action: models.ActionTransfer, Custodian: &ref, Note: req.Notes}
		})
}

// CheckInEvidence returns a checked-out item to custody.
func (s *Service) CheckInEvidence(ctx context.Context, req *models.CheckInRequest) (*models.EvidenceView, error) {
	if req == nil {
		return nil, errNilRequest
	}
	req.Normalize()
	return s.transition(ctx, rbac.OpCheckInEvidence, req.EvidenceID, req.Validate,
		func(id.Identity) models.Transition {
			return models.Transition{Action: models.ActionCheckIn, Note: req.Notes, Location: req.Location}
		})
}

// RemoveEvidence marks an item REMOVED. Its record, indexes and trail remain
// readable.
func (s *Service) RemoveEvidence(ctx context.Context, req *models.RemoveRequest) (*models.EvidenceView, error) {
	if req == nil {
		return nil, errNilRequest
	}
	req.Normalize()
	return s.transition(ctx, rbac.OpRemoveEvidence, req.EvidenceID, req.Validate,
		func(id.Identity) models.Transition {
			return models.Transition{Action: models.ActionRemove, Note: req.Reason}
		})
}

// transition runs one mutating step against an existing record.
func (s *Service) transition(
	ctx context.Context,
	op rbac.Operation,
	rawID string,
	validate func() error,
	build func(caller id.Identity) models.Transition,
) (_ *models.EvidenceView, err error) {
	start := time.Now()
	ctx, span, identity, err := s.startOp(ctx, op, attribute.String("evidence.id", rawID))
	defer func() { s.endOp(ctx, span, op, start, err) }()
	if err != nil {
		return nil, err
	}
	if err := validate(); err != nil {
		return nil, err
	}
	evidenceID := id.EvidenceID(rawID)

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to begin transaction")
	}
	defer tx.Rollback()

	rec, err := loadRecord(ctx, tx, evidenceID)
	if err != nil {
		return nil, err
	}
	prev := rec.Clone()

	now := requestcontext.Now(ctx)
	t := build(identity)
	if err := rec.Apply(t, s.policy, now); err != nil {
		return nil, err
	}
	if err := stage(tx, prev, rec); err != nil {
		return nil, err
	}

	meta := ledger.CommitMeta{TxID: s.newTxID(), Actor: identity.Actor(), Timestamp: now}
	version, err := s.commit(ctx, tx, evidenceID, meta)
	if err != nil {
		return nil, err
	}

	s.committed(ctx, t.Action, rec, meta, version)
	return rec.View(version), nil
}

// committed logs, counts and publishes a transition that is now durable.
func (s *Service) committed(ctx context.Context, action models.Action, rec *models.EvidenceRecord, meta ledger.CommitMeta, version uint64) {
	if s.metrics != nil {
		s.metrics.IncTransition(string(action))
	}
	s.logger.InfoContext(ctx, "evidence "+string(action),
		"evidence_id", string(rec.EvidenceID),
		"status", string(rec.Status),
		"version", version,
		"tx_id", meta.TxID,
		"request_id", requestcontext.RequestID(ctx),
	)
	s.publish(ctx, action.EventKind(), rec, meta.Actor, meta.TxID, meta.Timestamp)
}
