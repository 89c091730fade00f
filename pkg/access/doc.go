// Package access holds the route access rule table, the role hierarchy,
// and the decision engine that turns a resolved session and membership
// into an allow/deny outcome.
//
// The rule table is loaded once at startup into an immutable RuleSet;
// reloads swap the whole set atomically so concurrent decisions never
// observe a half-updated table. The role hierarchy is a plain data table
// rather than scattered conditionals, so it can be tested on its own.
package access
