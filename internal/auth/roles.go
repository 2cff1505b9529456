package auth

import "strings"

// Role is a closed-set tag. Roles carry no behavior; what a role may do is
// resolved exclusively through the capability table.
type Role string

const (
	RoleAdmin       Role = "ADMIN"
	RoleCoordinator Role = "COORDINATOR"
	RoleEngineer    Role = "ENGINEER"
	RoleTechnician  Role = "TECHNICIAN"
)

// Roles lists every role in the closed set.
var Roles = []Role{RoleAdmin, RoleCoordinator, RoleEngineer, RoleTechnician}

// ParseRole maps a role name to its tag. Matching is case-insensitive so
// stored and transported role names need not agree on casing.
func ParseRole(name string) (Role, bool) {
	switch Role(strings.ToUpper(strings.TrimSpace(name))) {
	case RoleAdmin:
		return RoleAdmin, true
	case RoleCoordinator:
		return RoleCoordinator, true
	case RoleEngineer:
		return RoleEngineer, true
	case RoleTechnician:
		return RoleTechnician, true
	default:
		return "", false
	}
}
