package auth

import (
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenUse distinguishes the two credential classes.
type TokenUse string

const (
	TokenUseAccess  TokenUse = "access"
	TokenUseRefresh TokenUse = "refresh"
)

// Principal is the identity data embedded in every credential.
type Principal struct {
	UserID         int64
	FirstName      string
	LastName       string
	Email          string
	PrivilegeLevel int
	RoleName       string
}

// PrincipalFromUser builds the claims input for u. The role must be loaded.
func PrincipalFromUser(u *User) Principal {
	return Principal{
		UserID:         u.ID,
		FirstName:      u.FirstName,
		LastName:       u.LastName,
		Email:          u.Email,
		PrivilegeLevel: u.PrivilegeLevel(),
		RoleName:       u.RoleName(),
	}
}

// Claims is the signed payload shared by access and refresh credentials.
type Claims struct {
	jwt.RegisteredClaims
	UserID         int64    `json:"userId"`
	FirstName      string   `json:"firstName"`
	LastName       string   `json:"lastName"`
	Email          string   `json:"email"`
	PrivilegeLevel int      `json:"roleId"`
	RoleName       string   `json:"roleName"`
	Use            TokenUse `json:"use,omitempty"`
}

// Subject returns the subject claim
func (c *Claims) Subject() string {
	if c.RegisteredClaims.Subject != "" {
		return c.RegisteredClaims.Subject
	}
	return strconv.FormatInt(c.UserID, 10)
}

// Expires returns the expiration time
func (c *Claims) Expires() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

// Issued returns the issued at time
func (c *Claims) Issued() time.Time {
	if c.IssuedAt == nil {
		return time.Time{}
	}
	return c.IssuedAt.Time
}

// HasPrivilege reports whether the claims carry a privilege level.
func (c *Claims) HasPrivilege() bool {
	return c != nil && c.PrivilegeLevel > 0
}

// IsAtLeast reports whether the caller meets min.
func (c *Claims) IsAtLeast(min int) bool {
	return c != nil && IsAtLeast(c.PrivilegeLevel, min)
}
