// Package rbac is the role gate consulted before every custody operation.
//
// The allowed-role table is fixed. There is no role hierarchy: admin is
// simply listed wherever it is allowed.
package rbac

import (
	"context"
	"fmt"
	"slices"

	id "chainguard/pkg/domain"
	dErrors "chainguard/pkg/domain-errors"
	"chainguard/pkg/requestcontext"
)

// Operation is a gated entry point.
type Operation string

const (
	OpCreateEvidence   Operation = "CreateEvidence"
	OpCheckOutEvidence Operation = "CheckOutEvidence"
	OpTransferEvidence Operation = "TransferEvidence"
	OpCheckInEvidence  Operation = "CheckInEvidence"
	OpRemoveEvidence   Operation = "RemoveEvidence"

	OpGetEvidence           Operation = "GetEvidence"
	OpListByCaseFingerprint Operation = "ListByCaseFingerprint"
	OpListByStatus          Operation = "ListByStatus"
	OpListByCustodian       Operation = "ListByCustodian"
	OpHistory               Operation = "History"
	OpVerifyCaseLink        Operation = "VerifyCaseLink"
)

var readers = []id.Role{id.RoleEvidenceCollector, id.RoleCustodian, id.RoleLabAnalyst, id.RoleAuditor, id.RoleAdmin}

var allowed = map[Operation][]id.Role{
	OpCreateEvidence:   {id.RoleEvidenceCollector, id.RoleCustodian, id.RoleAdmin},
	OpCheckOutEvidence: {id.RoleCustodian, id.RoleLabAnalyst, id.RoleAdmin},
	OpTransferEvidence: {id.RoleCustodian, id.RoleAdmin},
	OpCheckInEvidence:  {id.RoleCustodian, id.RoleLabAnalyst, id.RoleAdmin},
	OpRemoveEvidence:   {id.RoleCustodian, id.RoleAdmin},

	OpGetEvidence:           readers,
	OpListByCaseFingerprint: readers,
	OpListByStatus:          readers,
	OpListByCustodian:       readers,
	OpHistory:               readers,
	OpVerifyCaseLink:        {id.RoleCustodian, id.RoleAuditor, id.RoleAdmin},
}

// AllowedRoles returns a copy of the roles permitted for op.
func AllowedRoles(op Operation) []id.Role {
	return slices.Clone(allowed[op])
}

// Authorize fails with CodePermissionDenied unless identity carries a role in
// op's allowed set. Unknown operations are denied.
func Authorize(identity id.Identity, op Operation) error {
	if !identity.HasRole() {
		return dErrors.New(dErrors.CodePermissionDenied, "identity carries no role attribute")
	}
	if !slices.Contains(allowed[op], identity.Role) {
		return dErrors.New(dErrors.CodePermissionDenied, fmt.Sprintf("role %s may not perform %s", identity.Role, op))
	}
	return nil
}

// Resolver yields the verified caller for the current operation.
type Resolver interface {
	Resolve(ctx context.Context) (id.Identity, error)
}

// ContextResolver reads the identity placed in the request context by the
// authentication middleware.
type ContextResolver struct{}

func (ContextResolver) Resolve(ctx context.Context) (id.Identity, error) {
	identity, ok := requestcontext.Identity(ctx)
	if !ok {
		return id.Identity{}, dErrors.New(dErrors.CodeUnauthorized, "no authenticated identity")
	}
	return identity, nil
}

// Gate resolves the caller and checks it against the table in one step.
type Gate struct {
	resolver Resolver
}

// NewGate returns a gate backed by resolver, or by the request context when nil.
func NewGate(resolver Resolver) *Gate {
	if resolver == nil {
		resolver = ContextResolver{}
	}
	return &Gate{resolver: resolver}
}

// Check returns the authorized caller or the gate failure.
func (g *Gate) Check(ctx context.Context, op Operation) (id.Identity, error) {
	identity, err := g.resolver.Resolve(ctx)
	if err != nil {
		return id.Identity{}, err
	}
	if err := Authorize(identity, op); err != nil {
		return id.Identity{}, err
	}
	return identity, nil
}
