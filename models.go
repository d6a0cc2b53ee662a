package auth

import (
	"time"

	"github.com/uptrace/bun"
)

// User is the identity model. Rows are soft deleted, bun filters them out of
// every select unless the query opts in with WhereAllWithDeleted.
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`
	ID            int64      `bun:"id,pk,autoincrement" json:"userId"`
	FirstName     string     `bun:"first_name,notnull" json:"firstName"`
	LastName      string     `bun:"last_name,notnull" json:"lastName"`
	Email         string     `bun:"email,notnull,unique" json:"email"`
	RoleID        int64      `bun:"role_id,notnull" json:"roleId"`
	Role          *Role      `bun:"rel:belongs-to,join:role_id=id" json:"-"`
	PasswordHash  string     `bun:"password_hash,nullzero" json:"-"`
	RefreshToken  string     `bun:"refresh_token,nullzero" json:"-"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"-"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"-"`
	DeletedAt     *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"-"`
}

// Role is a named privilege tier.
type Role struct {
	bun.BaseModel `bun:"table:roles,alias:rol"`
	ID            int64  `bun:"id,pk" json:"roleId"`
	Name          string `bun:"name,notnull,unique" json:"roleName"`
	Level         int    `bun:"level,notnull" json:"level"`
}

// PrivilegeLevel returns the numeric level of the user's role, zero when the
// role was not loaded.
func (u *User) PrivilegeLevel() int {
	if u == nil || u.Role == nil {
		return 0
	}
	return u.Role.Level
}

// RoleName returns the loaded role name.
func (u *User) RoleName() string {
	if u == nil || u.Role == nil {
		return ""
	}
	return u.Role.Name
}

// UserRecord is the public representation of a user.
type UserRecord struct {
	ID        int64  `json:"userId"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	RoleID    int64  `json:"roleId"`
	RoleName  string `json:"roleName"`
}

// NewUserRecord strips credentials from u.
func NewUserRecord(u *User) UserRecord {
	return UserRecord{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
		RoleID:    u.RoleID,
		RoleName:  u.RoleName(),
	}
}
