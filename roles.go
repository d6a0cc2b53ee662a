package auth

// Seeded role tiers. The role id doubles as its level so claims carry the
// same number under roleId.
const (
	RoleBase  = "BASE"
	RolePower = "POWER"
	RoleAdmin = "ADMIN"

	LevelBase  = 1001
	LevelPower = 3001
	LevelAdmin = 5001
)

// DefaultRoles returns the tiers seeded by the initial migration.
func DefaultRoles() []Role {
	return []Role{
		{ID: LevelBase, Name: RoleBase, Level: LevelBase},
		{ID: LevelPower, Name: RolePower, Level: LevelPower},
		{ID: LevelAdmin, Name: RoleAdmin, Level: LevelAdmin},
	}
}

// IsAtLeast reports whether level satisfies min.
func IsAtLeast(level, min int) bool {
	return level >= min
}
