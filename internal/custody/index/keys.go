// Package index owns the ledger key layout and the three secondary index
// families over evidence records.
//
// Canonical records live under "EVIDENCE:<id>". Index entries are
// "<family>\x1f<field>\x1f<id>" with the canonical key as value, so a prefix
// scan of one family and field never touches records or other families.
// Fields and ids cannot contain control characters, which keeps the
// separator unambiguous.
package index

import (
	"strings"

	"chainguard/internal/custody/models"
	id "chainguard/pkg/domain"
)

const (
	recordPrefix = "EVIDENCE:"
	sep          = "\x1f"

	FamilyCase      = "IDX~CASE"
	FamilyStatus    = "IDX~STATUS"
	FamilyCustodian = "IDX~CUSTODIAN"
)

// RecordKey is the canonical key of an evidence record.
func RecordKey(evidenceID id.EvidenceID) string {
	return recordPrefix + string(evidenceID)
}

func CaseKey(fingerprint string, evidenceID id.EvidenceID) string {
	return entryKey(FamilyCase, fingerprint, evidenceID)
}

func StatusKey(status models.Status, evidenceID id.EvidenceID) string {
	return entryKey(FamilyStatus, string(status), evidenceID)
}

func CustodianKey(ref id.CustodianRef, evidenceID id.EvidenceID) string {
	return entryKey(FamilyCustodian, ref.String(), evidenceID)
}

func entryKey(family, field string, evidenceID id.EvidenceID) string {
	return fieldPrefix(family, field) + string(evidenceID)
}

func fieldPrefix(family, field string) string {
	return family + sep + field + sep
}

// validField reports whether field can appear in a key without crossing
// into a neighbouring field's range.
func validField(field string) bool {
	return field != "" && !strings.Contains(field, sep)
}
