package api

import (
	"net/http"

	"github.com/openlearnhq/atrium/pkg/access"
	"github.com/openlearnhq/atrium/pkg/auth"
)

// DefaultRules is the authorization table for every route the server
// registers. The route registrations in setupRoutes must stay in step
// with the patterns here; Compile rejects ambiguous additions at
// startup.
func DefaultRules() []access.Rule {
	student := []auth.Role{auth.RoleStudent}
	staff := []auth.Role{auth.RoleProviderStaff}
	owner := []auth.Role{auth.RoleProviderOwner}
	platform := []auth.Role{auth.RolePlatformStaff}

	return []access.Rule{
		// Public pages.
		{Pattern: "/", Guard: access.GuardPage, Public: true},
		{Pattern: "/login", Guard: access.GuardPage, Public: true},
		{Pattern: "/forbidden", Guard: access.GuardPage, Public: true},
		{Pattern: "/logout", Guard: access.GuardPage, Public: true},
		{Pattern: "/auth/callback", Guard: access.GuardPage, Public: true},

		// Account pages, any authenticated session.
		{Pattern: "/account", Guard: access.GuardPage},

		// Workspace pages.
		{Pattern: "/workspaces/{ws}", Guard: access.GuardPage, WorkspaceParam: "ws", RequiredRoles: student},
		{Pattern: "/workspaces/{ws}/profile", Guard: access.GuardPage, WorkspaceParam: "ws", RequiredRoles: student},
		{Pattern: "/workspaces/{ws}/settings", Guard: access.GuardPage, WorkspaceParam: "ws", RequiredRoles: owner},

		// Session introspection.
		{Pattern: "/api/me", Guard: access.GuardAPI},

		// Workspace management.
		{Pattern: "/api/workspaces", Guard: access.GuardAPI, Methods: []string{http.MethodGet}},
		{Pattern: "/api/workspaces", Guard: access.GuardAPI, Methods: []string{http.MethodPost}},
		{Pattern: "/api/workspaces/{ws}", Guard: access.GuardAPI, WorkspaceParam: "ws",
			Methods: []string{http.MethodGet}, RequiredRoles: student},

		// Member administration, staff and up.
		{Pattern: "/api/workspaces/{ws}/members", Guard: access.GuardAPI, WorkspaceParam: "ws",
			Methods: []string{http.MethodGet}, RequiredRoles: staff},
		{Pattern: "/api/workspaces/{ws}/members", Guard: access.GuardAPI, WorkspaceParam: "ws",
			Methods: []string{http.MethodPost}, RequiredRoles: owner},
		{Pattern: "/api/workspaces/{ws}/members/{account}", Guard: access.GuardAPI, WorkspaceParam: "ws",
			Methods: []string{http.MethodPut, http.MethodDelete}, RequiredRoles: owner},

		// Catalog.
		{Pattern: "/api/workspaces/{ws}/subjects", Guard: access.GuardAPI, WorkspaceParam: "ws",
			Methods: []string{http.MethodGet}, RequiredRoles: student},
		{Pattern: "/api/workspaces/{ws}/subjects", Guard: access.GuardAPI, WorkspaceParam: "ws",
			Methods: []string{http.MethodPost}, RequiredRoles: staff},
		{Pattern: "/api/workspaces/{ws}/subjects/{subject}", Guard: access.GuardAPI, WorkspaceParam: "ws",
			Methods: []string{http.MethodDelete}, RequiredRoles: staff},
		{Pattern: "/api/workspaces/{ws}/courses", Guard: access.GuardAPI, WorkspaceParam: "ws",
			Methods: []string{http.MethodGet}, RequiredRoles: student},
		{Pattern: "/api/workspaces/{ws}/courses", Guard: access.GuardAPI, WorkspaceParam: "ws",
			Methods: []string{http.MethodPost}, RequiredRoles: staff},
		{Pattern: "/api/workspaces/{ws}/courses/{course}", Guard: access.GuardAPI, WorkspaceParam: "ws",
			Methods: []string{http.MethodGet}, RequiredRoles: student},
		{Pattern: "/api/workspaces/{ws}/courses/{course}", Guard: access.GuardAPI, WorkspaceParam: "ws",
			Methods: []string{http.MethodPut, http.MethodDelete}, RequiredRoles: staff},

		// Enrollment.
		{Pattern: "/api/workspaces/{ws}/courses/{course}/enrollments", Guard: access.GuardAPI, WorkspaceParam: "ws",
			Methods: []string{http.MethodGet}, RequiredRoles: staff},
		{Pattern: "/api/workspaces/{ws}/courses/{course}/enrollments", Guard: access.GuardAPI, WorkspaceParam: "ws",
			Methods: []string{http.MethodPost}, RequiredRoles: student},
		{Pattern: "/api/workspaces/{ws}/enrollments", Guard: access.GuardAPI, WorkspaceParam: "ws",
			Methods: []string{http.MethodGet}, RequiredRoles: student},
		{Pattern: "/api/workspaces/{ws}/enrollments/{enrollment}", Guard: access.GuardAPI, WorkspaceParam: "ws",
			Methods: []string{http.MethodDelete}, RequiredRoles: student},

		// Billing.
		{Pattern: "/api/workspaces/{ws}/courses/{course}/checkout", Guard: access.GuardAPI, WorkspaceParam: "ws",
			Methods: []string{http.MethodPost}, RequiredRoles: student},
		{Pattern: "/api/workspaces/{ws}/purchases", Guard: access.GuardAPI, WorkspaceParam: "ws",
			Methods: []string{http.MethodGet}, RequiredRoles: student},

		// Platform administration.
		{Pattern: "/api/admin/accounts/{account}/platform-role", Guard: access.GuardAPI,
			Methods: []string{http.MethodPut}, RequiredRoles: []auth.Role{auth.RolePlatformSuperStaff}},
		{Pattern: "/api/admin/workspaces", Guard: access.GuardAPI,
			Methods: []string{http.MethodGet}, RequiredRoles: platform},
	}
}
