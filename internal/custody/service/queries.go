package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"chainguard/internal/custody/index"
	"chainguard/internal/custody/models"
	"chainguard/internal/custody/rbac"
	id "chainguard/pkg/domain"
	dErrors "chainguard/pkg/domain-errors"
	"chainguard/pkg/platform/sentinel"
	"chainguard/pkg/requestcontext"
)

// GetEvidence returns the committed record without its ciphertext.
func (s *Service) GetEvidence(ctx context.Context, rawID string) (_ *models.EvidenceView, err error) {
	start := time.Now()
	ctx, span, _, err := s.startOp(ctx, rbac.OpGetEvidence, attribute.String("evidence.id", rawID))
	defer func() { s.endOp(ctx, span, rbac.OpGetEvidence, start, err) }()
	if err != nil {
		return nil, err
	}

	rec, version, err := s.readCommitted(ctx, rawID)
	if err != nil {
		return nil, err
	}
	return rec.View(version), nil
}

// ListByCaseFingerprint returns ids linked to a case fingerprint.
func (s *Service) ListByCaseFingerprint(ctx context.Context, fingerprint string) (_ []id.EvidenceID, err error) {
	start := time.Now()
	ctx, span, _, err := s.startOp(ctx, rbac.OpListByCaseFingerprint)
	defer func() { s.endOp(ctx, span, rbac.OpListByCaseFingerprint, start, err) }()
	if err != nil {
		return nil, err
	}

	ids, err := s.indexes.ListByCaseFingerprint(ctx, fingerprint)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to scan case index")
	}
	return ids, nil
}

// ListByStatus returns ids currently in status. Unknown statuses match nothing.
func (s *Service) ListByStatus(ctx context.Context, status string) (_ []id.EvidenceID, err error) {
	start := time.Now()
	ctx, span, _, err := s.startOp(ctx, rbac.OpListByStatus, attribute.String("evidence.status", status))
	defer func() { s.endOp(ctx, span, rbac.OpListByStatus, start, err) }()
	if err != nil {
		return nil, err
	}

	ids, err := s.indexes.ListByStatus(ctx, models.Status(status))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to scan status index")
	}
	return ids, nil
}

// ListByCustodian returns ids currently held by custodian (issuer:subject).
func (s *Service) ListByCustodian(ctx context.Context, custodian string) (_ []id.EvidenceID, err error) {
	start := time.Now()
	ctx, span, _, err := s.startOp(ctx, rbac.OpListByCustodian)
	defer func() { s.endOp(ctx, span, rbac.OpListByCustodian, start, err) }()
	if err != nil {
		return nil, err
	}

	ref, err := id.ParseCustodianRef(custodian)
	if err != nil {
		return nil, err
	}
	ids, err := s.indexes.ListByCustodian(ctx, ref)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to scan custodian index")
	}
	return ids, nil
}

// History returns the audit trail of an item, oldest first.
func (s *Service) History(ctx context.Context, rawID string) (_ []models.AuditEntry, err error) {
	start := time.Now()
	ctx, span, _, err := s.startOp(ctx, rbac.OpHistory, attribute.String("evidence.id", rawID))
	defer func() { s.endOp(ctx, span, rbac.OpHistory, start, err) }()
	if err != nil {
		return nil, err
	}

	evidenceID, err := id.ParseEvidenceID(rawID)
	if err != nil {
		return nil, err
	}
	return s.trail.History(ctx, evidenceID)
}

// VerifyCaseLink checks that the transient key opens the record's sealed case
// id and that it hashes to the stored fingerprint. The plaintext never leaves
// this call.
func (s *Service) VerifyCaseLink(ctx context.Context, rawID string) (_ *models.CaseLinkResult, err error) {
	start := time.Now()
	ctx, span, _, err := s.startOp(ctx, rbac.OpVerifyCaseLink, attribute.String("evidence.id", rawID))
	defer func() { s.endOp(ctx, span, rbac.OpVerifyCaseLink, start, err) }()
	if err != nil {
		return nil, err
	}

	key, ok := requestcontext.CaseKey(ctx)
	if !ok {
		return nil, dErrors.New(dErrors.CodeKeyUnavailable, "case key is required to verify a case link")
	}
	rec, _, err := s.readCommitted(ctx, rawID)
	if err != nil {
		return nil, err
	}

	plain, err := s.cipher.Decrypt(rec.CaseIDCiphertext, key)
	if err != nil {
		return nil, err
	}
	match := subtle.ConstantTimeCompare([]byte(s.cipher.Fingerprint(plain)), []byte(rec.CaseFingerprint)) == 1
	return &models.CaseLinkResult{
		EvidenceID:      rec.EvidenceID,
		CaseFingerprint: rec.CaseFingerprint,
		Verified:        match,
	}, nil
}

func (s *Service) readCommitted(ctx context.Context, rawID string) (*models.EvidenceRecord, uint64, error) {
	evidenceID, err := id.ParseEvidenceID(rawID)
	if err != nil {
		return nil, 0, err
	}
	kv, err := s.store.Get(ctx, index.RecordKey(evidenceID))
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, 0, dErrors.New(dErrors.CodeNotFound, "evidence "+rawID+" not found")
	}
	if err != nil {
		return nil, 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read evidence")
	}
	rec, err := decodeRecord(kv.Value)
	if err != nil {
		return nil, 0, err
	}
	return rec, kv.Version, nil
}
