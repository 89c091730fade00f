package auth

import (
	"errors"
	"time"
)

// Role is an enumerated permission level held by an account within a
// workspace, or globally for platform staff.
type Role string

const (
	// RoleStudent is an end-user enrolled in a workspace
	RoleStudent Role = "student"
	// RoleProviderStaff can manage content within a provider workspace
	RoleProviderStaff Role = "provider_staff"
	// RoleProviderOwner has full control of a provider workspace
	RoleProviderOwner Role = "provider_owner"
	// RolePlatformStaff is platform-wide support staff
	RolePlatformStaff Role = "platform_staff"
	// RolePlatformSuperStaff is platform-wide administration
	RolePlatformSuperStaff Role = "platform_super_staff"
)

// IsValid reports whether the role is one of the defined constants
func (r Role) IsValid() bool {
	switch r {
	case RoleStudent, RoleProviderStaff, RoleProviderOwner, RolePlatformStaff, RolePlatformSuperStaff:
		return true
	default:
		return false
	}
}

// IsPlatform reports whether the role is a platform-wide staff role.
// Platform roles are evaluated independently of workspace membership.
func (r Role) IsPlatform() bool {
	return r == RolePlatformStaff || r == RolePlatformSuperStaff
}

// Account represents a user account
// ErrAccountNotFound is returned by account stores for unknown accounts
var ErrAccountNotFound = errors.New("account not found")

type Account struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	FullName     string     `json:"full_name,omitempty"`
	PlatformRole Role       `json:"platform_role,omitempty"`
	IsActive     bool       `json:"is_active"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
}

// SessionRecord is the persisted form of a login session. The token is
// never stored; only its SHA-256 hash is.
type SessionRecord struct {
	ID           string     `json:"id"`
	AccountID    string     `json:"account_id"`
	TokenHash    string     `json:"-"`
	PlatformRole Role       `json:"platform_role,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	ExpiresAt    time.Time  `json:"expires_at"`
	RevokedAt    *time.Time `json:"revoked_at,omitempty"`
}

// Identity represents an authenticated caller, resolved per request from
// persisted session state. It is never mutated and never retained past
// the request that produced it.
type Identity struct {
	AccountID     string
	SessionID     string
	SessionExpiry time.Time
	// PlatformRole is empty unless the account holds a platform-wide
	// staff role. It is resolved together with the session record.
	PlatformRole Role
}

// IsPlatformStaff reports whether the identity carries a platform role
func (id *Identity) IsPlatformStaff() bool {
	return id.PlatformRole.IsPlatform()
}
