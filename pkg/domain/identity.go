package domain

// Role is the custody role carried as an identity attribute.
type Role string

const (
	RoleEvidenceCollector Role = "evidence_collector"
	RoleCustodian         Role = "custodian"
	RoleLabAnalyst        Role = "lab_analyst"
	RoleAuditor           Role = "auditor"
	RoleAdmin             Role = "admin"
)

// Known reports whether r is one of the defined custody roles.
func (r Role) Known() bool {
	switch r {
	case RoleEvidenceCollector, RoleCustodian, RoleLabAnalyst, RoleAuditor, RoleAdmin:
		return true
	}
	return false
}

// Identity is a resolved caller: who issued the credential, who it names, and
// the role attribute if the credential carries one.
type Identity struct {
	Issuer  string
	Subject string
	Role    Role
}

// Ref returns the identity as a custodian reference.
func (i Identity) Ref() CustodianRef {
	return CustodianRef{Issuer: i.Issuer, Subject: i.Subject}
}

// Actor is the identity rendered for audit trails and events.
func (i Identity) Actor() string {
	return i.Ref().String()
}

// HasRole reports whether a role attribute is present.
func (i Identity) HasRole() bool {
	return i.Role != ""
}
