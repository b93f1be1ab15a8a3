// Package history projects the ledger's version log of a record into an
// audit trail.
package history

import (
	"context"
	"encoding/json"
	"errors"

	"chainguard/internal/custody/index"
	"chainguard/internal/custody/models"
	"chainguard/internal/ledger"
	id "chainguard/pkg/domain"
	dErrors "chainguard/pkg/domain-errors"
	"chainguard/pkg/platform/sentinel"
)

// VersionReader exposes the ledger's multi-version read.
type VersionReader interface {
	History(ctx context.Context, key string) ([]ledger.Version, error)
}

// Reader rebuilds the trail on every call; nothing is cached.
type Reader struct {
	store VersionReader
}

func NewReader(store VersionReader) *Reader {
	return &Reader{store: store}
}

// History returns one entry per committed version, oldest first.
func (r *Reader) History(ctx context.Context, evidenceID id.EvidenceID) ([]models.AuditEntry, error) {
	versions, err := r.store.History(ctx, index.RecordKey(evidenceID))
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "no history for evidence "+string(evidenceID))
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read history")
	}

	entries := make([]models.AuditEntry, 0, len(versions))
	for _, v := range versions {
		if v.IsDelete {
			// Records are removed logically; a tombstone carries no status.
			continue
		}
		entry, err := project(v)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if len(entries) == 0 {
		return nil, dErrors.New(dErrors.CodeNotFound, "no history for evidence "+string(evidenceID))
	}
	return entries, nil
}

// snapshot decodes only the fields an audit entry needs so the ciphertext
// is never materialized here.
type snapshot struct {
	Status     models.Status `json:"status"`
	LastAction models.Action `json:"lastAction"`
	LastNote   string        `json:"lastNote"`
}

func project(v ledger.Version) (models.AuditEntry, error) {
	var snap snapshot
	if err := json.Unmarshal(v.Value, &snap); err != nil {
		return models.AuditEntry{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to decode historical record")
	}
	return models.AuditEntry{
		Version:   v.Seq,
		TxID:      v.TxID,
		Actor:     v.Actor,
		Timestamp: v.Timestamp,
		Status:    snap.Status,
		Action:    snap.LastAction,
		Note:      snap.LastNote,
	}, nil
}
