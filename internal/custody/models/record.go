package models

import (
	"time"

	id "chainguard/pkg/domain"
)

// EvidenceRecord is the canonical persisted state of one evidence item.
//
// Invariants:
//   - EvidenceID, CaseFingerprint, CaseIDCiphertext and CreatedAt never change
//   - Status only moves along Policy edges; REMOVED is terminal
//   - CurrentCustodian is nil until the first checkout or transfer
//   - UpdatedAt never decreases
//
// The plaintext case identifier is never a field of this type.
type EvidenceRecord struct {
	EvidenceID       id.EvidenceID    `json:"evidenceId"`
	CaseFingerprint  string           `json:"caseFingerprint"`
	CaseIDCiphertext []byte           `json:"caseIdCiphertext"`
	Status           Status           `json:"status"`
	CurrentCustodian *id.CustodianRef `json:"currentCustodian,omitempty"`
	Description      string           `json:"description,omitempty"`
	Location         string           `json:"location,omitempty"`
	CreatedAt        time.Time        `json:"createdAt"`
	UpdatedAt        time.Time        `json:"updatedAt"`
	LastAction       Action           `json:"lastAction"`
	LastNote         string           `json:"lastNote,omitempty"`
}

// NewEvidenceRecord builds a record in CREATED status.
func NewEvidenceRecord(evidenceID id.EvidenceID, fingerprint string, ciphertext []byte, description, location string, now time.Time) *EvidenceRecord {
	return &EvidenceRecord{
		EvidenceID:       evidenceID,
		CaseFingerprint:  fingerprint,
		CaseIDCiphertext: ciphertext,
		Status:           StatusCreated,
		Description:      description,
		Location:         location,
		CreatedAt:        now,
		UpdatedAt:        now,
		LastAction:       ActionCreate,
	}
}

// Transition describes one lifecycle step to apply to a record.
type Transition struct {
	Action Action
	// Custodian replaces the current custodian when non-nil.
	Custodian *id.CustodianRef
	Note      string
	// Location replaces the stored location when non-empty.
	Location string
}

// Apply validates t against policy and mutates the record in place. On error
// the record is untouched.
func (r *EvidenceRecord) Apply(t Transition, policy Policy, now time.Time) error {
	if !policy.CanApply(r.Status, t.Action) {
		return newTransitionError(r.EvidenceID, t.Action, r.Status)
	}
	r.Status = t.Action.Target()
	if t.Custodian != nil {
		c := *t.Custodian
		r.CurrentCustodian = &c
	}
	if t.Location != "" {
		r.Location = t.Location
	}
	r.LastAction = t.Action
	r.LastNote = t.Note
	if now.After(r.UpdatedAt) {
		r.UpdatedAt = now
	}
	return nil
}

// Clone returns a deep copy.
func (r *EvidenceRecord) Clone() *EvidenceRecord {
	c := *r
	c.CaseIDCiphertext = append([]byte(nil), r.CaseIDCiphertext...)
	if r.CurrentCustodian != nil {
		ref := *r.CurrentCustodian
		c.CurrentCustodian = &ref
	}
	return &c
}

// View projects the record for callers. The ciphertext is omitted.
func (r *EvidenceRecord) View(version uint64) *EvidenceView {
	v := &EvidenceView{
		EvidenceID:      r.EvidenceID,
		CaseFingerprint: r.CaseFingerprint,
		Status:          r.Status,
		Description:     r.Description,
		Location:        r.Location,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
		Version:         version,
	}
	if r.CurrentCustodian != nil {
		v.CurrentCustodian = r.CurrentCustodian.String()
	}
	return v
}

// EvidenceView is the redacted record returned by reads and lifecycle operations.
type EvidenceView struct {
	EvidenceID       id.EvidenceID `json:"evidenceId"`
	CaseFingerprint  string        `json:"caseFingerprint"`
	Status           Status        `json:"status"`
	CurrentCustodian string        `json:"currentCustodian,omitempty"`
	Description      string        `json:"description,omitempty"`
	Location         string        `json:"location,omitempty"`
	CreatedAt        time.Time     `json:"createdAt"`
	UpdatedAt        time.Time     `json:"updatedAt"`
	Version          uint64        `json:"version"`
}

// AuditEntry is one committed version of a record, oldest first in a trail.
type AuditEntry struct {
	Version   uint64    `json:"version"`
	TxID      string    `json:"txId"`
	Actor     string    `json:"actor"`
	Timestamp time.Time `json:"timestamp"`
	Status    Status    `json:"status"`
	Action    Action    `json:"action"`
	Note      string    `json:"note,omitempty"`
}

// CaseLinkResult reports whether a supplied key decrypts a record's case
// identifier to a value matching its stored fingerprint.
type CaseLinkResult struct {
	EvidenceID      id.EvidenceID `json:"evidenceId"`
	CaseFingerprint string        `json:"caseFingerprint"`
	Verified        bool          `json:"verified"`
}
