package access

import (
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/openlearnhq/atrium/pkg/auth"
)

// GuardKind selects the denial surface for a matched route.
type GuardKind string

const (
	GuardPage GuardKind = "page"
	GuardAPI  GuardKind = "api"
)

// Rule protects one route pattern. Patterns are slash-separated with
// named parameters written as {name}; a parameter segment matches exactly
// one path segment. WorkspaceParam names the parameter whose value is the
// workspace the requirement is scoped to; empty means the route carries
// no workspace scope and RequiredRoles must name platform roles only.
type Rule struct {
	Pattern        string      `yaml:"pattern"`
	Methods        []string    `yaml:"methods,omitempty"`
	RequiredRoles  []auth.Role `yaml:"required_roles,omitempty"`
	WorkspaceParam string      `yaml:"workspace_param,omitempty"`
	Guard          GuardKind   `yaml:"guard"`
	Public         bool        `yaml:"public,omitempty"`

	segments []segment
}

type segment struct {
	literal string
	param   string
}

func (r *Rule) compile() error {
	if r.Pattern == "" || !strings.HasPrefix(r.Pattern, "/") {
		return fmt.Errorf("pattern %q must begin with /", r.Pattern)
	}
	switch r.Guard {
	case GuardPage, GuardAPI:
	default:
		return fmt.Errorf("pattern %q: unknown guard kind %q", r.Pattern, r.Guard)
	}
	for _, role := range r.RequiredRoles {
		// A role absent from the hierarchy table could never satisfy
		// anything, so reject it here rather than deny every request.
		if len(Implied(role)) == 0 {
			return fmt.Errorf("pattern %q: role %q is not in the role hierarchy", r.Pattern, role)
		}
	}
	if r.WorkspaceParam == "" {
		for _, role := range r.RequiredRoles {
			if !role.IsPlatform() {
				return fmt.Errorf("pattern %q: role %q requires a workspace_param", r.Pattern, role)
			}
		}
	}

	seen := map[string]bool{}
	raw := strings.Split(strings.Trim(r.Pattern, "/"), "/")
	if r.Pattern == "/" {
		raw = nil
	}
	r.segments = make([]segment, 0, len(raw))
	for _, part := range raw {
		if strings.HasPrefix(part, "{") && strings.HasSuffix(part, "}") {
			name := part[1 : len(part)-1]
			if name == "" {
				return fmt.Errorf("pattern %q: empty parameter name", r.Pattern)
			}
			if seen[name] {
				return fmt.Errorf("pattern %q: duplicate parameter %q", r.Pattern, name)
			}
			seen[name] = true
			r.segments = append(r.segments, segment{param: name})
		} else if part == "" {
			return fmt.Errorf("pattern %q: empty path segment", r.Pattern)
		} else {
			r.segments = append(r.segments, segment{literal: part})
		}
	}
	if r.WorkspaceParam != "" && !seen[r.WorkspaceParam] {
		return fmt.Errorf("pattern %q: workspace_param %q not present in pattern", r.Pattern, r.WorkspaceParam)
	}
	return nil
}

func (r *Rule) matchesMethod(method string) bool {
	if len(r.Methods) == 0 {
		return true
	}
	if method == http.MethodHead {
		method = http.MethodGet
	}
	for _, m := range r.Methods {
		if strings.EqualFold(m, method) {
			return true
		}
	}
	return false
}

// match attempts to bind path segments to the rule, returning extracted
// parameter values on success.
func (r *Rule) match(parts []string) (map[string]string, bool) {
	if len(parts) != len(r.segments) {
		return nil, false
	}
	var params map[string]string
	for i, seg := range r.segments {
		if seg.param != "" {
			if params == nil {
				params = make(map[string]string, 2)
			}
			params[seg.param] = parts[i]
			continue
		}
		if seg.literal != parts[i] {
			return nil, false
		}
	}
	return params, true
}

// RuleSet is an immutable compiled rule table. Build one with Compile;
// a RuleSet is never mutated after that and is safe for concurrent use.
type RuleSet struct {
	rules []Rule
}

// Compile validates and compiles the given rules. Two rules whose
// patterns can match the same path with an overlapping method set are
// rejected outright, so a path never has more than one applicable rule.
func Compile(rules []Rule) (*RuleSet, error) {
	compiled := make([]Rule, len(rules))
	copy(compiled, rules)
	for i := range compiled {
		if err := compiled[i].compile(); err != nil {
			return nil, err
		}
	}
	for i := range compiled {
		for j := i + 1; j < len(compiled); j++ {
			if rulesOverlap(&compiled[i], &compiled[j]) {
				return nil, fmt.Errorf("ambiguous rules: %q and %q can match the same request",
					compiled[i].Pattern, compiled[j].Pattern)
			}
		}
	}
	return &RuleSet{rules: compiled}, nil
}

func rulesOverlap(a, b *Rule) bool {
	if len(a.segments) != len(b.segments) {
		return false
	}
	for i := range a.segments {
		as, bs := a.segments[i], b.segments[i]
		if as.param != "" || bs.param != "" {
			continue
		}
		if as.literal != bs.literal {
			return false
		}
	}
	return methodsOverlap(a.Methods, b.Methods)
}

func methodsOverlap(a, b []string) bool {
	if len(a) == 0 || len(b) == 0 {
		return true
	}
	for _, ma := range a {
		for _, mb := range b {
			if strings.EqualFold(ma, mb) {
				return true
			}
		}
	}
	return false
}

// Match finds the rule covering the given method and path. The returned
// params map holds the bound pattern parameters. ok is false when no
// rule covers the request.
func (rs *RuleSet) Match(method, path string) (rule *Rule, params map[string]string, ok bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if path == "/" || path == "" {
		parts = nil
	}
	for i := range rs.rules {
		r := &rs.rules[i]
		if !r.matchesMethod(method) {
			continue
		}
		if p, matched := r.match(parts); matched {
			return r, p, true
		}
	}
	return nil, nil, false
}

// Len returns the number of rules in the set.
func (rs *RuleSet) Len() int { return len(rs.rules) }

// Patterns returns the sorted rule patterns, useful for startup logging.
func (rs *RuleSet) Patterns() []string {
	out := make([]string, 0, len(rs.rules))
	for i := range rs.rules {
		out = append(out, rs.rules[i].Pattern)
	}
	sort.Strings(out)
	return out
}
