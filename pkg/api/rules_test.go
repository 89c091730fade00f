package api

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openlearnhq/atrium/pkg/access"
	"github.com/openlearnhq/atrium/pkg/auth"
)

func TestDefaultRulesCompile(t *testing.T) {
	rs, err := access.Compile(DefaultRules())
	require.NoError(t, err)
	require.NotZero(t, rs.Len())
}

func TestDefaultRulesCoverage(t *testing.T) {
	rs, err := access.Compile(DefaultRules())
	require.NoError(t, err)

	tests := []struct {
		method string
		path   string
		public bool
		roles  []auth.Role
	}{
		{"GET", "/", true, nil},
		{"GET", "/login", true, nil},
		{"GET", "/account", false, nil},
		{"GET", "/workspaces/abc", false, []auth.Role{auth.RoleStudent}},
		{"GET", "/workspaces/abc/settings", false, []auth.Role{auth.RoleProviderOwner}},
		{"POST", "/api/workspaces/abc/courses", false, []auth.Role{auth.RoleProviderStaff}},
		{"DELETE", "/api/workspaces/abc/members/xyz", false, []auth.Role{auth.RoleProviderOwner}},
		{"PUT", "/api/admin/accounts/xyz/platform-role", false, []auth.Role{auth.RolePlatformSuperStaff}},
	}
	for _, tt := range tests {
		rule, _, ok := rs.Match(tt.method, tt.path)
		require.True(t, ok, "%s %s should be covered", tt.method, tt.path)
		assert.Equal(t, tt.public, rule.Public, "%s %s", tt.method, tt.path)
		if tt.roles != nil {
			assert.Equal(t, tt.roles, rule.RequiredRoles, "%s %s", tt.method, tt.path)
		}
	}
}

func TestDefaultRulesWorkspaceParamBinding(t *testing.T) {
	rs, err := access.Compile(DefaultRules())
	require.NoError(t, err)

	rule, params, ok := rs.Match("GET", "/api/workspaces/ws-77/courses/c-3")
	require.True(t, ok)
	assert.Equal(t, "ws", rule.WorkspaceParam)
	assert.Equal(t, "ws-77", params["ws"])
	assert.Equal(t, "c-3", params["course"])
}
