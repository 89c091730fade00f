package workspaces

import (
	"errors"
	"time"

	"github.com/openlearnhq/atrium/pkg/auth"
)

// WorkspaceKind distinguishes the tenant flavors
type WorkspaceKind string

const (
	KindProvider WorkspaceKind = "provider"
	KindPersonal WorkspaceKind = "personal"
	KindPlatform WorkspaceKind = "platform"
)

// WorkspaceStatus represents workspace lifecycle state
type WorkspaceStatus string

const (
	StatusActive    WorkspaceStatus = "active"
	StatusSuspended WorkspaceStatus = "suspended"
	StatusDeleted   WorkspaceStatus = "deleted"
)

// Workspace is a tenant boundary scoping data and permissions
type Workspace struct {
	ID         string          `json:"id"`
	Slug       string          `json:"slug"`
	Name       string          `json:"name"`
	Kind       WorkspaceKind   `json:"kind"`
	Status     WorkspaceStatus `json:"status"`
	IsPlatform bool            `json:"is_platform"`
	OwnerID    *string         `json:"owner_id,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// Membership relates an account to a workspace with exactly one role.
// A synthesized platform-staff membership has IsPlatform set and no
// backing row.
type Membership struct {
	AccountID   string    `json:"account_id"`
	WorkspaceID string    `json:"workspace_id"`
	Role        auth.Role `json:"role"`
	IsPlatform  bool      `json:"is_platform"`
	InvitedBy   *string   `json:"invited_by,omitempty"`
	JoinedAt    time.Time `json:"joined_at"`
}

// Invitation is a pending offer to join a workspace
type Invitation struct {
	ID          string     `json:"id"`
	WorkspaceID string     `json:"workspace_id"`
	Email       string     `json:"email"`
	Role        auth.Role  `json:"role"`
	Token       string     `json:"token,omitempty"`
	InvitedBy   string     `json:"invited_by"`
	InvitedAt   time.Time  `json:"invited_at"`
	ExpiresAt   time.Time  `json:"expires_at"`
	AcceptedAt  *time.Time `json:"accepted_at,omitempty"`
}

// Resolution failures. ErrWorkspaceNotFound means the workspace itself
// does not exist; ErrNoMembership means it exists but the account has no
// role in it. The distinction drives the 404-vs-403 behavior downstream.
var (
	ErrWorkspaceNotFound = errors.New("workspace not found")
	ErrNoMembership      = errors.New("no membership in workspace")
	ErrMemberExists      = errors.New("member already exists")
	ErrMemberNotFound    = errors.New("member not found")
)

// MemberRecord is a membership joined with account details for listings
type MemberRecord struct {
	Membership
	Email    string `json:"email"`
	FullName string `json:"full_name,omitempty"`
}
