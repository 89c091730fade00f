// Package scope builds the per-request execution context handed to
// authorized handlers. The context carries the resolved identity, the
// effective role, and capability handles already bound to the request's
// workspace.
package scope

import (
	"context"

	"github.com/openlearnhq/atrium/pkg/auth"
	"github.com/openlearnhq/atrium/pkg/content"
	"github.com/openlearnhq/atrium/pkg/contextkeys"
	"github.com/openlearnhq/atrium/pkg/workspaces"
)

// ExecutionContext is the sole authorization artifact handlers see. It
// is built only after the access decision allowed the request, so its
// presence implies the caller passed every check. Workspace and Content
// are nil for routes without a workspace scope.
type ExecutionContext struct {
	Identity   auth.Identity
	Workspace  *workspaces.Workspace
	Membership *workspaces.Membership
	Content    *content.Scoped
}

// AccountID returns the authenticated account id.
func (ec *ExecutionContext) AccountID() string { return ec.Identity.AccountID }

// Role returns the effective role within the request's workspace, or
// the platform role for workspace-free routes.
func (ec *ExecutionContext) Role() auth.Role {
	if ec.Membership != nil {
		return ec.Membership.Role
	}
	return ec.Identity.PlatformRole
}

// IsPlatformActor reports whether the caller holds a platform role,
// whether acting inside a workspace or not.
func (ec *ExecutionContext) IsPlatformActor() bool {
	if ec.Membership != nil && ec.Membership.IsPlatform {
		return true
	}
	return ec.Identity.IsPlatformStaff()
}

// WorkspaceID returns the bound workspace id, empty when the route has
// no workspace scope.
func (ec *ExecutionContext) WorkspaceID() string {
	if ec.Workspace == nil {
		return ""
	}
	return ec.Workspace.ID
}

// Builder assembles execution contexts from resolved request state.
type Builder struct {
	content content.Repository
}

func NewBuilder(repo content.Repository) *Builder {
	return &Builder{content: repo}
}

// Build constructs the execution context. workspace and membership may
// both be nil for workspace-free routes.
func (b *Builder) Build(identity auth.Identity, workspace *workspaces.Workspace, membership *workspaces.Membership) *ExecutionContext {
	ec := &ExecutionContext{
		Identity:   identity,
		Workspace:  workspace,
		Membership: membership,
	}
	if workspace != nil && b.content != nil {
		ec.Content = content.NewScoped(b.content, workspace.ID)
	}
	return ec
}

// FromContext retrieves the execution context placed by the guards.
// ok is false on unguarded paths.
func FromContext(ctx context.Context) (*ExecutionContext, bool) {
	ec, ok := ctx.Value(contextkeys.ExecKey).(*ExecutionContext)
	return ec, ok
}

// NewContext returns a child context carrying the execution context.
func NewContext(ctx context.Context, ec *ExecutionContext) context.Context {
	return contextkeys.WithExec(ctx, ec)
}
