package models

import (
	"fmt"

	id "chainguard/pkg/domain"
	dErrors "chainguard/pkg/domain-errors"
)

// TransitionError reports a lifecycle precondition failure.
type TransitionError struct {
	EvidenceID id.EvidenceID
	Action     Action
	Current    Status
	Requested  Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("evidence %s: cannot %s from %s to %s", e.EvidenceID, e.Action, e.Current, e.Requested)
}

// newTransitionError wraps the detail in a coded error so handlers map it to
// a conflict while callers can still errors.As the detail.
func newTransitionError(evidenceID id.EvidenceID, a Action, current Status) error {
	te := &TransitionError{EvidenceID: evidenceID, Action: a, Current: current, Requested: a.Target()}
	return dErrors.Wrap(te, dErrors.CodeInvalidTransition, "invalid transition")
}
