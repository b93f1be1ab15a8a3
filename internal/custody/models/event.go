package models

import (
	"time"

	id "chainguard/pkg/domain"
)

// EventKind names the notification topic for a lifecycle transition.
type EventKind string

const (
	EventCreated     EventKind = "evidence.created"
	EventCheckedOut  EventKind = "evidence.checked_out"
	EventTransferred EventKind = "evidence.transferred"
	EventCheckedIn   EventKind = "evidence.checked_in"
	EventRemoved     EventKind = "evidence.removed"
)

// EventKinds lists every kind, one topic each.
var EventKinds = []EventKind{EventCreated, EventCheckedOut, EventTransferred, EventCheckedIn, EventRemoved}

// Event is published once per committed transition. It carries the case
// fingerprint only.
type Event struct {
	ID              string        `json:"eventId"`
	Kind            EventKind     `json:"eventKind"`
	EvidenceID      id.EvidenceID `json:"evidenceId"`
	CaseFingerprint string        `json:"caseFingerprint"`
	Status          Status        `json:"status"`
	Actor           string        `json:"actor"`
	TxID            string        `json:"txId"`
	Timestamp       time.Time     `json:"timestamp"`
}
