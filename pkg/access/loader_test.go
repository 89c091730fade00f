package access

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openlearnhq/atrium/pkg/auth"
)

const sampleRules = `
rules:
  - pattern: /workspaces/{ws}/profile
    guard: page
    workspace_param: ws
  - pattern: /api/workspaces/{ws}/courses
    guard: api
    workspace_param: ws
    methods: [GET, POST]
    required_roles: [provider_staff]
  - pattern: /login
    guard: page
    public: true
`

func TestParse(t *testing.T) {
	rs, err := Parse([]byte(sampleRules))
	require.NoError(t, err)
	assert.Equal(t, 3, rs.Len())

	rule, params, ok := rs.Match("POST", "/api/workspaces/w7/courses")
	require.True(t, ok)
	assert.Equal(t, "w7", params["ws"])
	assert.Equal(t, []auth.Role{auth.RoleProviderStaff}, rule.RequiredRoles)
}

func TestParseRejectsBadInput(t *testing.T) {
	for name, doc := range map[string]string{
		"empty":          "rules: []",
		"invalid yaml":   "rules: [",
		"bad rule":       "rules:\n  - pattern: nope\n    guard: api\n",
		"ambiguous pair": "rules:\n  - pattern: /a/{x}\n    guard: api\n  - pattern: /a/{y}\n    guard: api\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestTableReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleRules), 0o644))

	table, err := NewTable(path, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, table.Current().Len())

	t.Run("valid rewrite swaps the set", func(t *testing.T) {
		updated := "rules:\n  - pattern: /only\n    guard: page\n    public: true\n"
		require.NoError(t, os.WriteFile(path, []byte(updated), 0o644))
		require.NoError(t, table.Reload())
		assert.Equal(t, 1, table.Current().Len())
	})

	t.Run("invalid rewrite keeps previous set", func(t *testing.T) {
		require.NoError(t, os.WriteFile(path, []byte("rules: ["), 0o644))
		assert.Error(t, table.Reload())
		assert.Equal(t, 1, table.Current().Len())
	})
}
