package domain

// AccessRole is the closed set of access roles recognized by the engine.
// Roles are resolved by an external identity collaborator and passed
// explicitly into every sanitizing call, never read from ambient state.
type AccessRole string

const (
	// RoleFullAccess sees all donor identities, individual records and exports.
	RoleFullAccess AccessRole = "FULL_ACCESS"
	// RoleAggregateAccess sees category/method/summary aggregates but never
	// individual donor identity fields.
	RoleAggregateAccess AccessRole = "AGGREGATE_ACCESS"
	// RoleSelfAccess sees only the subject's own donations and personal summary.
	RoleSelfAccess AccessRole = "SELF_ACCESS"
)

// ValidRole reports whether r is a member of the role enumeration.
func ValidRole(r AccessRole) bool {
	switch r {
	case RoleFullAccess, RoleAggregateAccess, RoleSelfAccess:
		return true
	}
	return false
}
