// models/role.go
package models

import "strings"

type UserRole string

const (
	RoleMember   UserRole = "MEMBER"
	RoleTeamLead UserRole = "TEAM_LEAD"
	RoleAdmin    UserRole = "ADMIN"
)

// DefaultRole is what every unknown or empty role string resolves to.
const DefaultRole = RoleMember

var roleTable = map[string]UserRole{
	"MEMBER":    RoleMember,
	"TEAM_LEAD": RoleTeamLead,
	"ADMIN":     RoleAdmin,
}

// ParseUserRole maps a stored or client supplied role name to a UserRole.
// Matching ignores case and surrounding whitespace; anything else is DefaultRole.
func ParseUserRole(s string) UserRole {
	if role, ok := roleTable[strings.ToUpper(strings.TrimSpace(s))]; ok {
		return role
	}
	return DefaultRole
}

// Valid reports whether r is one of the known roles.
func (r UserRole) Valid() bool {
	_, ok := roleTable[string(r)]
	return ok
}

// CanModerate reports whether the role may approve, pin and moderate threads.
func (r UserRole) CanModerate() bool {
	return r == RoleTeamLead || r == RoleAdmin
}

func (r UserRole) String() string {
	return string(r)
}

// Actor is the authenticated caller of a store operation.
type Actor struct {
	ID   string   `json:"id"`
	Name string   `json:"name"`
	Role UserRole `json:"role"`
}
