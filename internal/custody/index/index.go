package index

import (
	"context"
	"fmt"
	"strings"

	"chainguard/internal/custody/models"
	"chainguard/internal/ledger"
	id "chainguard/pkg/domain"
)

// Writer is the transactional write half of a ledger transaction.
type Writer interface {
	Put(key string, value []byte) error
	Delete(key string) error
}

// Add writes one index entry pointing back at the record.
func Add(w Writer, key string, evidenceID id.EvidenceID) error {
	if err := w.Put(key, []byte(RecordKey(evidenceID))); err != nil {
		return fmt.Errorf("add index entry: %w", err)
	}
	return nil
}

// Remove deletes one index entry.
func Remove(w Writer, key string) error {
	if err := w.Delete(key); err != nil {
		return fmt.Errorf("remove index entry: %w", err)
	}
	return nil
}

// Sync writes the index delta between prev and next into w. A nil prev means
// the record is new. CASE entries are only ever added.
func Sync(w Writer, prev, next *models.EvidenceRecord) error {
	eid := next.EvidenceID
	if prev == nil {
		if err := Add(w, CaseKey(next.CaseFingerprint, eid), eid); err != nil {
			return err
		}
		if err := Add(w, StatusKey(next.Status, eid), eid); err != nil {
			return err
		}
		if next.CurrentCustodian != nil {
			return Add(w, CustodianKey(*next.CurrentCustodian, eid), eid)
		}
		return nil
	}

	if prev.Status != next.Status {
		if err := Remove(w, StatusKey(prev.Status, eid)); err != nil {
			return err
		}
		if err := Add(w, StatusKey(next.Status, eid), eid); err != nil {
			return err
		}
	}
	if !sameCustodian(prev.CurrentCustodian, next.CurrentCustodian) {
		if prev.CurrentCustodian != nil {
			if err := Remove(w, CustodianKey(*prev.CurrentCustodian, eid)); err != nil {
				return err
			}
		}
		if next.CurrentCustodian != nil {
			if err := Add(w, CustodianKey(*next.CurrentCustodian, eid), eid); err != nil {
				return err
			}
		}
	}
	return nil
}

func sameCustodian(a, b *id.CustodianRef) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// Scanner is the ordered prefix read of the ledger.
type Scanner interface {
	ScanPrefix(ctx context.Context, prefix string) ([]ledger.KV, error)
}

// Manager answers index queries from committed state.
type Manager struct {
	store Scanner
}

func NewManager(store Scanner) *Manager {
	return &Manager{store: store}
}

// ListByCaseFingerprint returns evidence ids linked to fingerprint in key order.
func (m *Manager) ListByCaseFingerprint(ctx context.Context, fingerprint string) ([]id.EvidenceID, error) {
	return m.list(ctx, FamilyCase, fingerprint)
}

// ListByStatus returns evidence ids currently in status in key order.
func (m *Manager) ListByStatus(ctx context.Context, status models.Status) ([]id.EvidenceID, error) {
	return m.list(ctx, FamilyStatus, string(status))
}

// ListByCustodian returns evidence ids currently held by ref in key order.
func (m *Manager) ListByCustodian(ctx context.Context, ref id.CustodianRef) ([]id.EvidenceID, error) {
	return m.list(ctx, FamilyCustodian, ref.String())
}

func (m *Manager) list(ctx context.Context, family, field string) ([]id.EvidenceID, error) {
	out := []id.EvidenceID{}
	if !validField(field) {
		return out, nil
	}
	prefix := fieldPrefix(family, field)
	kvs, err := m.store.ScanPrefix(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", family, err)
	}
	for _, kv := range kvs {
		out = append(out, id.EvidenceID(strings.TrimPrefix(kv.Key, prefix)))
	}
	return out, nil
}
