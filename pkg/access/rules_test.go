package access

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openlearnhq/atrium/pkg/auth"
)

func TestCompileRejectsInvalidRules(t *testing.T) {
	tests := []struct {
		name  string
		rules []Rule
	}{
		{
			name:  "missing leading slash",
			rules: []Rule{{Pattern: "workspaces/{ws}", Guard: GuardAPI}},
		},
		{
			name:  "unknown guard kind",
			rules: []Rule{{Pattern: "/x", Guard: "grpc"}},
		},
		{
			name:  "unknown role",
			rules: []Rule{{Pattern: "/x/{ws}", Guard: GuardAPI, WorkspaceParam: "ws", RequiredRoles: []auth.Role{"superuser"}}},
		},
		{
			name:  "workspace role without workspace param",
			rules: []Rule{{Pattern: "/x", Guard: GuardAPI, RequiredRoles: []auth.Role{auth.RoleStudent}}},
		},
		{
			name:  "workspace param not in pattern",
			rules: []Rule{{Pattern: "/x/{id}", Guard: GuardAPI, WorkspaceParam: "ws", RequiredRoles: []auth.Role{auth.RoleStudent}}},
		},
		{
			name:  "duplicate parameter",
			rules: []Rule{{Pattern: "/x/{ws}/{ws}", Guard: GuardAPI}},
		},
		{
			name:  "empty segment",
			rules: []Rule{{Pattern: "/x//y", Guard: GuardAPI}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile(tt.rules)
			assert.Error(t, err)
		})
	}
}

func TestCompileRejectsAmbiguousPatterns(t *testing.T) {
	tests := []struct {
		name      string
		rules     []Rule
		ambiguous bool
	}{
		{
			name: "literal vs param at same position",
			rules: []Rule{
				{Pattern: "/workspaces/{ws}/courses", Guard: GuardAPI},
				{Pattern: "/workspaces/main/{section}", Guard: GuardAPI},
			},
			ambiguous: true,
		},
		{
			name: "identical patterns",
			rules: []Rule{
				{Pattern: "/workspaces/{ws}", Guard: GuardAPI},
				{Pattern: "/workspaces/{id}", Guard: GuardPage},
			},
			ambiguous: true,
		},
		{
			name: "same pattern disjoint methods",
			rules: []Rule{
				{Pattern: "/workspaces/{ws}", Guard: GuardAPI, Methods: []string{http.MethodGet}},
				{Pattern: "/workspaces/{ws}", Guard: GuardAPI, Methods: []string{http.MethodDelete}},
			},
			ambiguous: false,
		},
		{
			name: "different lengths never collide",
			rules: []Rule{
				{Pattern: "/workspaces/{ws}", Guard: GuardAPI},
				{Pattern: "/workspaces/{ws}/courses", Guard: GuardAPI},
			},
			ambiguous: false,
		},
		{
			name: "distinct literals never collide",
			rules: []Rule{
				{Pattern: "/workspaces/{ws}/courses", Guard: GuardAPI},
				{Pattern: "/workspaces/{ws}/subjects", Guard: GuardAPI},
			},
			ambiguous: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile(tt.rules)
			if tt.ambiguous {
				assert.ErrorContains(t, err, "ambiguous")
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRuleSetMatch(t *testing.T) {
	rs, err := Compile([]Rule{
		{Pattern: "/", Guard: GuardPage, Public: true},
		{Pattern: "/workspaces/{ws}/profile", Guard: GuardPage, WorkspaceParam: "ws"},
		{Pattern: "/api/workspaces/{ws}/courses/{course}", Guard: GuardAPI, WorkspaceParam: "ws",
			Methods: []string{http.MethodGet}},
		{Pattern: "/api/workspaces/{ws}/courses/{course}", Guard: GuardAPI, WorkspaceParam: "ws",
			Methods:       []string{http.MethodDelete},
			RequiredRoles: []auth.Role{auth.RoleProviderOwner}},
	})
	require.NoError(t, err)

	t.Run("root path", func(t *testing.T) {
		rule, _, ok := rs.Match(http.MethodGet, "/")
		require.True(t, ok)
		assert.True(t, rule.Public)
	})

	t.Run("binds parameters", func(t *testing.T) {
		rule, params, ok := rs.Match(http.MethodGet, "/api/workspaces/w1/courses/c9")
		require.True(t, ok)
		assert.Equal(t, "w1", params["ws"])
		assert.Equal(t, "c9", params["course"])
		assert.Empty(t, rule.RequiredRoles)
	})

	t.Run("method selects between rules", func(t *testing.T) {
		rule, _, ok := rs.Match(http.MethodDelete, "/api/workspaces/w1/courses/c9")
		require.True(t, ok)
		assert.Equal(t, []auth.Role{auth.RoleProviderOwner}, rule.RequiredRoles)
	})

	t.Run("head is treated as get", func(t *testing.T) {
		_, _, ok := rs.Match(http.MethodHead, "/api/workspaces/w1/courses/c9")
		assert.True(t, ok)
	})

	t.Run("no rule for unknown path", func(t *testing.T) {
		_, _, ok := rs.Match(http.MethodGet, "/api/unknown")
		assert.False(t, ok)
	})

	t.Run("no rule for unlisted method", func(t *testing.T) {
		_, _, ok := rs.Match(http.MethodPatch, "/api/workspaces/w1/courses/c9")
		assert.False(t, ok)
	})
}
