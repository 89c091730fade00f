package access

import "github.com/openlearnhq/atrium/pkg/auth"

// impliedRoles is the explicit role hierarchy: each role maps to the full
// set of roles it satisfies, itself included. Workspace-scoped roles nest
// (owner covers staff covers student); the platform roles form their own
// chain and additionally override any workspace-scoped requirement, which
// is handled in Satisfies rather than encoded per workspace role here.
var impliedRoles = map[auth.Role][]auth.Role{
	auth.RoleStudent:           {auth.RoleStudent},
	auth.RoleProviderStaff:     {auth.RoleProviderStaff, auth.RoleStudent},
	auth.RoleProviderOwner:     {auth.RoleProviderOwner, auth.RoleProviderStaff, auth.RoleStudent},
	auth.RolePlatformStaff:     {auth.RolePlatformStaff},
	auth.RolePlatformSuperStaff: {auth.RolePlatformSuperStaff, auth.RolePlatformStaff},
}

// Implied returns the set of roles held implies, itself included
func Implied(held auth.Role) []auth.Role {
	return impliedRoles[held]
}

// Satisfies reports whether a held role meets a requirement set.
// An empty requirement set means "authenticated only" and is always
// satisfied. Platform staff roles satisfy every workspace-scoped
// requirement without a matching entry; requirements that name platform
// roles are still matched through the hierarchy, so platform_staff does
// not satisfy a platform_super_staff requirement.
func Satisfies(held auth.Role, required []auth.Role) bool {
	if len(required) == 0 {
		return true
	}

	implied := impliedRoles[held]
	for _, req := range required {
		// Global override: platform staff satisfy any workspace-scoped
		// requirement element.
		if held.IsPlatform() && !req.IsPlatform() {
			return true
		}
		for _, have := range implied {
			if req == have {
				return true
			}
		}
	}
	return false
}
