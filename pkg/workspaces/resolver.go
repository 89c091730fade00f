package workspaces

import (
	"context"

	"github.com/openlearnhq/atrium/pkg/auth"
)

// WorkspaceCurrent is the literal path token used by account-centric
// routes not tied to one tenant. Membership resolution is skipped for it
// and only identity-level checks apply.
const WorkspaceCurrent = "current"

// MembershipSource is the single read the role resolver performs
type MembershipSource interface {
	// ResolveMembership returns the workspace and the membership for
	// (accountID, workspaceID). The workspace is returned with
	// ErrNoMembership when it exists without a row for the account;
	// ErrWorkspaceNotFound means no such workspace.
	ResolveMembership(ctx context.Context, accountID, workspaceID string) (*Workspace, *Membership, error)
}

// RoleResolver determines a caller's role within a target workspace
type RoleResolver struct {
	src MembershipSource
}

// NewRoleResolver creates a role resolver backed by src
func NewRoleResolver(src MembershipSource) *RoleResolver {
	return &RoleResolver{src: src}
}

// ResolveRole resolves the identity's membership in workspaceID.
//
// Platform staff roles are a global attribute carried on the identity and
// satisfy any workspace-scoped check: a virtual membership is synthesized
// for them instead of requiring a row. Workspace existence is still
// confirmed so that requests naming a workspace that does not exist can
// be answered with not-found rather than leaking through.
//
// An empty workspaceID or the WorkspaceCurrent token skips membership
// resolution entirely; (nil, nil, nil) is returned and only
// identity-level checks apply.
func (r *RoleResolver) ResolveRole(ctx context.Context, identity *auth.Identity, workspaceID string) (*Workspace, *Membership, error) {
	if workspaceID == "" || workspaceID == WorkspaceCurrent {
		return nil, nil, nil
	}

	ws, membership, err := r.src.ResolveMembership(ctx, identity.AccountID, workspaceID)

	if identity.IsPlatformStaff() {
		// The explicit membership row, present or not, is irrelevant for
		// platform staff; only a missing workspace still matters.
		if err == ErrWorkspaceNotFound {
			return nil, nil, err
		}
		if err != nil && err != ErrNoMembership {
			return nil, nil, err
		}
		return ws, &Membership{
			AccountID:   identity.AccountID,
			WorkspaceID: workspaceID,
			Role:        identity.PlatformRole,
			IsPlatform:  true,
		}, nil
	}

	if err != nil {
		return ws, nil, err
	}
	return ws, membership, nil
}
