package models

import (
	"slices"

	dErrors "chainguard/pkg/domain-errors"
)

// Status is the custody state of an evidence item.
type Status string

const (
	StatusCreated    Status = "CREATED"
	StatusInCustody  Status = "IN_CUSTODY"
	StatusCheckedOut Status = "CHECKED_OUT"
	StatusRemoved    Status = "REMOVED"
)

// Statuses lists every status in lifecycle order.
var Statuses = []Status{StatusCreated, StatusInCustody, StatusCheckedOut, StatusRemoved}

func (s Status) String() string { return string(s) }

func (s Status) IsValid() bool {
	return slices.Contains(Statuses, s)
}

// ParseStatus validates a status received at a trust boundary.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !st.IsValid() {
		return "", dErrors.New(dErrors.CodeValidation, "unknown status "+s)
	}
	return st, nil
}

// Action names a lifecycle operation applied to a record.
type Action string

const (
	ActionCreate   Action = "create"
	ActionCheckOut Action = "check_out"
	ActionTransfer Action = "transfer"
	ActionCheckIn  Action = "check_in"
	ActionRemove   Action = "remove"
)

// Target is the status a record holds after the action succeeds.
func (a Action) Target() Status {
	switch a {
	case ActionCreate:
		return StatusCreated
	case ActionCheckOut:
		return StatusCheckedOut
	case ActionTransfer, ActionCheckIn:
		return StatusInCustody
	case ActionRemove:
		return StatusRemoved
	}
	return ""
}

// EventKind is the notification published after the action commits.
func (a Action) EventKind() EventKind {
	switch a {
	case ActionCreate:
		return EventCreated
	case ActionCheckOut:
		return EventCheckedOut
	case ActionTransfer:
		return EventTransferred
	case ActionCheckIn:
		return EventCheckedIn
	case ActionRemove:
		return EventRemoved
	}
	return ""
}

// Policy holds the configurable parts of the lifecycle graph.
type Policy struct {
	// AllowTransferFromCreated permits assigning a custodian to an item that
	// was never checked out.
	AllowTransferFromCreated bool
}

// DefaultPolicy is the restricted lifecycle graph.
func DefaultPolicy() Policy { return Policy{} }

// Preconditions returns the statuses from which action may be applied.
// Create has no preconditions because it requires the record to be absent.
func (p Policy) Preconditions(a Action) []Status {
	switch a {
	case ActionCheckOut:
		return []Status{StatusCreated, StatusInCustody}
	case ActionTransfer:
		if p.AllowTransferFromCreated {
			return []Status{StatusCreated, StatusInCustody, StatusCheckedOut}
		}
		return []Status{StatusInCustody, StatusCheckedOut}
	case ActionCheckIn:
		return []Status{StatusCheckedOut}
	case ActionRemove:
		return []Status{StatusCreated, StatusInCustody, StatusCheckedOut}
	}
	return nil
}

// CanApply reports whether action is legal from current.
func (p Policy) CanApply(current Status, a Action) bool {
	return slices.Contains(p.Preconditions(a), current)
}
