// Package auth implements caller identity for the platform: the role
// enumeration, transport-level credential extraction, session token
// generation, and session resolution against the session store.
//
// The guard pipeline (pkg/guard) drives this package once per request:
// extract a raw credential from the inbound request, then resolve it to
// an Identity or a typed session error. Neither step writes to the
// session store; session creation and revocation are explicit operations
// owned by the login/logout flows.
package auth
