// Package workspaces manages tenants (workspaces), workspace membership,
// and per-request role resolution.
//
// A workspace is the tenant boundary: a provider organization, the
// platform staff workspace, or a student's personal space. Membership
// rows relate accounts to workspaces with exactly one active role per
// pair. Platform staff roles are global attributes of the account and
// satisfy workspace-scoped checks without a membership row.
package workspaces
