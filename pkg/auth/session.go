package auth

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// SessionErrorKind classifies why session resolution failed
type SessionErrorKind string

const (
	// SessionAbsent means no credential was presented
	SessionAbsent SessionErrorKind = "absent"
	// SessionInvalid means the credential does not match a live session
	SessionInvalid SessionErrorKind = "invalid"
	// SessionExpired means the session's stored expiry has passed
	SessionExpired SessionErrorKind = "expired"
)

// SessionError is the typed failure of session resolution
type SessionError struct {
	Kind SessionErrorKind
}

func (e *SessionError) Error() string {
	return fmt.Sprintf("session %s", e.Kind)
}

// Sentinel session errors. Comparisons go through errors.Is.
var (
	ErrSessionAbsent  = &SessionError{Kind: SessionAbsent}
	ErrSessionInvalid = &SessionError{Kind: SessionInvalid}
	ErrSessionExpired = &SessionError{Kind: SessionExpired}

	// ErrSessionNotFound is returned by session stores for unknown hashes
	ErrSessionNotFound = errors.New("session not found")
)

// AsSessionError extracts a SessionError from an error chain
func AsSessionError(err error) (*SessionError, bool) {
	var se *SessionError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// SessionStore is the read side of the session store the resolver needs.
// Implementations must not extend or otherwise mutate the session as a
// side effect of the lookup.
type SessionStore interface {
	// GetSession returns the session record whose stored token hash
	// matches, or ErrSessionNotFound.
	GetSession(ctx context.Context, tokenHash string) (*SessionRecord, error)
}

// Resolver validates raw credentials against the session store and
// produces per-request identities.
type Resolver struct {
	store  SessionStore
	tokens *TokenGenerator
	now    func() time.Time
}

// NewResolver creates a session resolver backed by store
func NewResolver(store SessionStore) *Resolver {
	return &Resolver{
		store:  store,
		tokens: NewTokenGenerator(),
		now:    time.Now,
	}
}

// Resolve validates cred and returns the caller's Identity. Failures are
// SessionError values; any other error is a store failure the caller
// should surface as internal. Exactly one store read is performed, and
// the returned expiry is the stored value, never recomputed.
func (r *Resolver) Resolve(ctx context.Context, cred RawCredential, present bool) (*Identity, error) {
	if !present {
		return nil, ErrSessionAbsent
	}

	if err := r.tokens.ValidateTokenFormat(cred.Token); err != nil {
		return nil, ErrSessionInvalid
	}

	record, err := r.store.GetSession(ctx, r.tokens.HashToken(cred.Token))
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil, ErrSessionInvalid
		}
		return nil, fmt.Errorf("session lookup failed: %w", err)
	}

	if record.RevokedAt != nil {
		return nil, ErrSessionInvalid
	}

	// Expiry is re-checked on every request, never cached.
	if !record.ExpiresAt.After(r.now()) {
		return nil, ErrSessionExpired
	}

	return &Identity{
		AccountID:     record.AccountID,
		SessionID:     record.ID,
		SessionExpiry: record.ExpiresAt,
		PlatformRole:  record.PlatformRole,
	}, nil
}
