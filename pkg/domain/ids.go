package domain

import (
	"strings"
	"unicode"
	"unicode/utf8"

	dErrors "chainguard/pkg/domain-errors"
)

// maxIDLength bounds identifiers embedded in composite ledger keys.
const maxIDLength = 256

// EvidenceID is the stable external key of an evidence item.
type EvidenceID string

func (id EvidenceID) String() string { return string(id) }

// ParseEvidenceID validates an evidence identifier at a trust boundary.
// Identifiers become part of composite index keys, so control characters
// (including the key separator) are rejected.
func ParseEvidenceID(s string) (EvidenceID, error) {
	if err := validateKeyComponent("evidenceId", s); err != nil {
		return "", err
	}
	return EvidenceID(s), nil
}

// CustodianRef identifies a custodian as issuer plus subject.
type CustodianRef struct {
	Issuer  string `json:"issuer"`
	Subject string `json:"subject"`
}

// String renders the ref in issuer:subject form, the same form used in the
// CUSTODIAN index.
func (r CustodianRef) String() string {
	return r.Issuer + ":" + r.Subject
}

// IsZero reports whether the ref is unset.
func (r CustodianRef) IsZero() bool {
	return r.Issuer == "" && r.Subject == ""
}

// ParseCustodianRef parses "issuer:subject". The subject may itself contain
// colons; the issuer may not.
func ParseCustodianRef(s string) (CustodianRef, error) {
	if err := validateKeyComponent("custodian", s); err != nil {
		return CustodianRef{}, err
	}
	issuer, subject, ok := strings.Cut(s, ":")
	if !ok || issuer == "" || subject == "" {
		return CustodianRef{}, dErrors.New(dErrors.CodeValidation, "custodian must be in issuer:subject form")
	}
	return CustodianRef{Issuer: issuer, Subject: subject}, nil
}

func validateKeyComponent(field, s string) error {
	if strings.TrimSpace(s) == "" {
		return dErrors.New(dErrors.CodeValidation, field+" is required")
	}
	if len(s) > maxIDLength {
		return dErrors.New(dErrors.CodeValidation, field+" is too long")
	}
	if !utf8.ValidString(s) {
		return dErrors.New(dErrors.CodeValidation, field+" must be valid UTF-8")
	}
	for _, r := range s {
		if unicode.IsControl(r) {
			return dErrors.New(dErrors.CodeValidation, field+" must not contain control characters")
		}
	}
	return nil
}
