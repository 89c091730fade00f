package access

import (
	"errors"
	"net/url"

	"github.com/openlearnhq/atrium/pkg/auth"
	"github.com/openlearnhq/atrium/pkg/workspaces"
)

// Outcome classifies an access decision.
type Outcome string

const (
	Allow               Outcome = "allow"
	DenyUnauthenticated Outcome = "deny_unauthenticated"
	DenyForbidden       Outcome = "deny_forbidden"
	DenyNotFound        Outcome = "deny_not_found"
)

// Decision is the result of evaluating one request against a rule.
// RedirectTarget is only populated for page-guarded denials.
type Decision struct {
	Outcome        Outcome
	Reason         string
	RedirectTarget string
}

func (d Decision) Allowed() bool { return d.Outcome == Allow }

// Input carries everything the engine needs to decide a single request.
// SessionErr is the resolver's verdict on the credential; Identity is
// only meaningful when SessionErr is nil. MembershipErr and Membership
// are the workspace resolution results for rules with a workspace scope.
type Input struct {
	Rule          *Rule
	Path          string
	SessionErr    error
	Identity      *auth.Identity
	MembershipErr error
	Membership    *workspaces.Membership
}

// Engine turns resolved request state into a Decision. The order of
// checks is fixed: authentication first, then workspace existence, then
// role sufficiency. A caller with no session never learns whether a
// workspace exists, and a caller without access to a workspace cannot
// distinguish it from one that does not exist.
type Engine struct {
	loginPath     string
	forbiddenPath string
}

func NewEngine(loginPath, forbiddenPath string) *Engine {
	if loginPath == "" {
		loginPath = "/login"
	}
	if forbiddenPath == "" {
		forbiddenPath = "/forbidden"
	}
	return &Engine{loginPath: loginPath, forbiddenPath: forbiddenPath}
}

// Decide evaluates one request. It is pure: no I/O, no clock reads, and
// the same Input always yields the same Decision.
func (e *Engine) Decide(in Input) Decision {
	rule := in.Rule
	if rule.Public {
		return Decision{Outcome: Allow, Reason: "public route"}
	}

	if in.SessionErr != nil || in.Identity == nil {
		d := Decision{Outcome: DenyUnauthenticated, Reason: sessionReason(in.SessionErr)}
		if rule.Guard == GuardPage {
			d.RedirectTarget = e.loginPath + "?return_to=" + url.QueryEscape(in.Path)
		}
		return d
	}

	if rule.WorkspaceParam != "" {
		if errors.Is(in.MembershipErr, workspaces.ErrWorkspaceNotFound) {
			return Decision{Outcome: DenyNotFound, Reason: "workspace not found"}
		}
		// A rule with no required roles is "authenticated only": any
		// signed-in caller may reach an existing workspace, member or not.
		if len(rule.RequiredRoles) == 0 {
			return Decision{Outcome: Allow, Reason: "authenticated"}
		}
		if errors.Is(in.MembershipErr, workspaces.ErrNoMembership) || in.Membership == nil {
			d := Decision{Outcome: DenyForbidden, Reason: "no membership in workspace"}
			if rule.Guard == GuardPage {
				d.RedirectTarget = e.forbiddenPath
			}
			return d
		}
		if !Satisfies(in.Membership.Role, rule.RequiredRoles) {
			d := Decision{Outcome: DenyForbidden, Reason: "insufficient role " + string(in.Membership.Role)}
			if rule.Guard == GuardPage {
				d.RedirectTarget = e.forbiddenPath
			}
			return d
		}
		return Decision{Outcome: Allow, Reason: "role " + string(in.Membership.Role)}
	}

	// Workspace-free rule: requirements, if any, are platform roles and
	// are checked against the session's platform role.
	if len(rule.RequiredRoles) > 0 {
		if in.Identity.PlatformRole == "" || !Satisfies(in.Identity.PlatformRole, rule.RequiredRoles) {
			d := Decision{Outcome: DenyForbidden, Reason: "platform role required"}
			if rule.Guard == GuardPage {
				d.RedirectTarget = e.forbiddenPath
			}
			return d
		}
		return Decision{Outcome: Allow, Reason: "platform role " + string(in.Identity.PlatformRole)}
	}

	return Decision{Outcome: Allow, Reason: "authenticated"}
}

func sessionReason(err error) string {
	switch {
	case errors.Is(err, auth.ErrSessionExpired):
		return "session expired"
	case errors.Is(err, auth.ErrSessionInvalid):
		return "session invalid"
	default:
		return "no credential"
	}
}
