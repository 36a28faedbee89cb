package auth

import "strings"

// Role is the access level carried in a token's "role" claim.
//
// Roles are ordered user < employee < admin. A user reads their own
// consumption, per-capita ledger and saving estimates. An employee has every
// user right and nothing more on this API. An admin additionally runs the
// /admin/ ledger maintenance routes (catch-up and reset).
type Role string

const (
	RoleUser     Role = "user"
	RoleEmployee Role = "employee"
	RoleAdmin    Role = "admin"
)

// NormalizeRole trims and lowercases value and reports whether it names a
// known role.
func NormalizeRole(value string) (Role, bool) {
	role := Role(strings.ToLower(strings.TrimSpace(value)))
	switch role {
	case RoleUser, RoleEmployee, RoleAdmin:
		return role, true
	default:
		return "", false
	}
}

// RoleAtLeast reports whether role ranks at or above required in the
// user < employee < admin order. Unknown roles rank below user, so they never
// satisfy any requirement.
func RoleAtLeast(role Role, required Role) bool {
	rank := roleRank(role)
	return rank > 0 && rank >= roleRank(required)
}

// roleRank maps a role to its position in user < employee < admin, starting
// at 1. Unknown roles are 0.
func roleRank(role Role) int {
	switch role {
	case RoleUser:
		return 1
	case RoleEmployee:
		return 2
	case RoleAdmin:
		return 3
	default:
		return 0
	}
}
