package models

import (
	"strings"

	id "chainguard/pkg/domain"
	dErrors "chainguard/pkg/domain-errors"
)

const (
	maxCaseIDLength = 256
	maxTextLength   = 2048
)

// CreateEvidenceRequest registers a new evidence item. CaseID is encrypted
// and fingerprinted before anything is written; it is never stored as given.
type CreateEvidenceRequest struct {
	EvidenceID  string `json:"evidenceId"`
	CaseID      string `json:"caseId"`
	Description string `json:"description,omitempty"`
	Location    string `json:"location,omitempty"`
}

func (r *CreateEvidenceRequest) Normalize() {
	r.EvidenceID = strings.TrimSpace(r.EvidenceID)
	r.CaseID = strings.TrimSpace(r.CaseID)
	r.Description = strings.TrimSpace(r.Description)
	r.Location = strings.TrimSpace(r.Location)
}

func (r *CreateEvidenceRequest) Validate() error {
	if _, err := id.ParseEvidenceID(r.EvidenceID); err != nil {
		return err
	}
	if r.CaseID == "" {
		return dErrors.New(dErrors.CodeValidation, "caseId is required")
	}
	if len(r.CaseID) > maxCaseIDLength {
		return dErrors.New(dErrors.CodeValidation, "caseId is too long")
	}
	return validateText(map[string]string{"description": r.Description, "location": r.Location})
}

// CheckOutRequest takes an item out for examination; the caller becomes custodian.
type CheckOutRequest struct {
	EvidenceID string `json:"evidenceId"`
	Notes      string `json:"notes,omitempty"`
}

func (r *CheckOutRequest) Normalize() {
	r.EvidenceID = strings.TrimSpace(r.EvidenceID)
	r.Notes = strings.TrimSpace(r.Notes)
}

func (r *CheckOutRequest) Validate() error {
	if _, err := id.ParseEvidenceID(r.EvidenceID); err != nil {
		return err
	}
	return validateText(map[string]string{"notes": r.Notes})
}

// TransferRequest reassigns custody. NewCustodian is issuer:subject.
type TransferRequest struct {
	EvidenceID   string `json:"evidenceId"`
	NewCustodian string `json:"newCustodian"`
	Notes        string `json:"notes,omitempty"`
}

func (r *TransferRequest) Normalize() {
	r.EvidenceID = strings.TrimSpace(r.EvidenceID)
	r.NewCustodian = strings.TrimSpace(r.NewCustodian)
	r.Notes = strings.TrimSpace(r.Notes)
}

func (r *TransferRequest) Validate() error {
	if _, err := id.ParseEvidenceID(r.EvidenceID); err != nil {
		return err
	}
	if _, err := id.ParseCustodianRef(r.NewCustodian); err != nil {
		return err
	}
	return validateText(map[string]string{"notes": r.Notes})
}

// CheckInRequest returns a checked-out item, optionally to a new location.
type CheckInRequest struct {
	EvidenceID string `json:"evidenceId"`
	Notes      string `json:"notes,omitempty"`
	Location   string `json:"location,omitempty"`
}

func (r *CheckInRequest) Normalize() {
	r.EvidenceID = strings.TrimSpace(r.EvidenceID)
	r.Notes = strings.TrimSpace(r.Notes)
	r.Location = strings.TrimSpace(r.Location)
}

func (r *CheckInRequest) Validate() error {
	if _, err := id.ParseEvidenceID(r.EvidenceID); err != nil {
		return err
	}
	return validateText(map[string]string{"notes": r.Notes, "location": r.Location})
}

// RemoveRequest logically removes an item. The record and its trail remain.
type RemoveRequest struct {
	EvidenceID string `json:"evidenceId"`
	Reason     string `json:"reason,omitempty"`
}

func (r *RemoveRequest) Normalize() {
	r.EvidenceID = strings.TrimSpace(r.EvidenceID)
	r.Reason = strings.TrimSpace(r.Reason)
}

func (r *RemoveRequest) Validate() error {
	if _, err := id.ParseEvidenceID(r.EvidenceID); err != nil {
		return err
	}
	return validateText(map[string]string{"reason": r.Reason})
}

func validateText(fields map[string]string) error {
	for name, v := range fields {
		if len(v) > maxTextLength {
			return dErrors.New(dErrors.CodeValidation, name+" is too long")
		}
	}
	return nil
}
