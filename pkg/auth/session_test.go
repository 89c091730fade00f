package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubStore struct {
	records map[string]*SessionRecord
	err     error
	reads   int
}

func (s *stubStore) GetSession(_ context.Context, tokenHash string) (*SessionRecord, error) {
	s.reads++
	if s.err != nil {
		return nil, s.err
	}
	rec, ok := s.records[tokenHash]
	if !ok {
		return nil, ErrSessionNotFound
	}
	cp := *rec
	return &cp, nil
}

func seedSession(t *testing.T, store *stubStore, expiresAt time.Time, revokedAt *time.Time) RawCredential {
	t.Helper()
	tg := NewTokenGenerator()
	token, hash, err := tg.GenerateToken()
	require.NoError(t, err)
	store.records[hash] = &SessionRecord{
		ID:        "sess-1",
		AccountID: "acct-1",
		TokenHash: hash,
		CreatedAt: time.Now().Add(-time.Hour),
		ExpiresAt: expiresAt,
		RevokedAt: revokedAt,
	}
	return RawCredential{Token: token, Source: SourceCookie}
}

func TestResolveValidSession(t *testing.T) {
	store := &stubStore{records: make(map[string]*SessionRecord)}
	expiry := time.Now().Add(time.Hour).Truncate(time.Second)
	cred := seedSession(t, store, expiry, nil)

	identity, err := NewResolver(store).Resolve(context.Background(), cred, true)
	require.NoError(t, err)
	assert.Equal(t, "acct-1", identity.AccountID)
	assert.Equal(t, "sess-1", identity.SessionID)
	// The stored expiry is reported as-is, never recomputed.
	assert.Equal(t, expiry, identity.SessionExpiry)
}

func TestResolveAbsentCredential(t *testing.T) {
	store := &stubStore{records: make(map[string]*SessionRecord)}

	_, err := NewResolver(store).Resolve(context.Background(), RawCredential{}, false)
	assert.ErrorIs(t, err, ErrSessionAbsent)
	assert.Zero(t, store.reads, "absent credential must not hit the store")
}

func TestResolveMalformedToken(t *testing.T) {
	store := &stubStore{records: make(map[string]*SessionRecord)}

	cred := RawCredential{Token: "not-a-token", Source: SourceBearer}
	_, err := NewResolver(store).Resolve(context.Background(), cred, true)
	assert.ErrorIs(t, err, ErrSessionInvalid)
	assert.Zero(t, store.reads, "malformed token must not hit the store")
}

func TestResolveUnknownToken(t *testing.T) {
	store := &stubStore{records: make(map[string]*SessionRecord)}

	tg := NewTokenGenerator()
	token, _, err := tg.GenerateToken()
	require.NoError(t, err)

	_, err = NewResolver(store).Resolve(context.Background(), RawCredential{Token: token}, true)
	assert.ErrorIs(t, err, ErrSessionInvalid)
}

func TestResolveExpiredSession(t *testing.T) {
	store := &stubStore{records: make(map[string]*SessionRecord)}
	cred := seedSession(t, store, time.Now().Add(-time.Minute), nil)

	_, err := NewResolver(store).Resolve(context.Background(), cred, true)
	assert.ErrorIs(t, err, ErrSessionExpired)
}

func TestResolveRevokedSession(t *testing.T) {
	store := &stubStore{records: make(map[string]*SessionRecord)}
	revoked := time.Now().Add(-time.Minute)
	cred := seedSession(t, store, time.Now().Add(time.Hour), &revoked)

	_, err := NewResolver(store).Resolve(context.Background(), cred, true)
	assert.ErrorIs(t, err, ErrSessionInvalid)
}

func TestResolveStoreFailure(t *testing.T) {
	storeErr := errors.New("connection refused")
	store := &stubStore{err: storeErr}

	tg := NewTokenGenerator()
	token, _, err := tg.GenerateToken()
	require.NoError(t, err)

	_, err = NewResolver(store).Resolve(context.Background(), RawCredential{Token: token}, true)
	require.Error(t, err)
	assert.ErrorIs(t, err, storeErr)
	// A store failure is not a session error; it surfaces as internal.
	_, isSession := AsSessionError(err)
	assert.False(t, isSession)
}

func TestResolveSingleStoreRead(t *testing.T) {
	store := &stubStore{records: make(map[string]*SessionRecord)}
	cred := seedSession(t, store, time.Now().Add(time.Hour), nil)

	_, err := NewResolver(store).Resolve(context.Background(), cred, true)
	require.NoError(t, err)
	assert.Equal(t, 1, store.reads)
}
