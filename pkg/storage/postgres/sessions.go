package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/openlearnhq/atrium/pkg/auth"
)

// SessionStore persists login sessions. The account's platform role is
// joined into every session read so guards need no second lookup.
type SessionStore struct {
	db     *sql.DB
	tokens *auth.TokenGenerator
}

func NewSessionStore(db *sql.DB) *SessionStore {
	return &SessionStore{db: db, tokens: auth.NewTokenGenerator()}
}

// CreateSession mints a token, stores its hash, and returns the raw
// token exactly once. The token is never persisted.
func (s *SessionStore) CreateSession(ctx context.Context, accountID string, ttl time.Duration) (string, *auth.SessionRecord, error) {
	token, hash, err := s.tokens.GenerateToken()
	if err != nil {
		return "", nil, fmt.Errorf("generating session token: %w", err)
	}

	now := time.Now().UTC()
	record := &auth.SessionRecord{
		ID:        uuid.New().String(),
		AccountID: accountID,
		TokenHash: hash,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, account_id, token_hash, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5)`,
		record.ID, record.AccountID, record.TokenHash, record.CreatedAt, record.ExpiresAt)
	if err != nil {
		return "", nil, fmt.Errorf("inserting session: %w", err)
	}
	return token, record, nil
}

// GetSession looks a session up by token hash. Expiry and revocation
// are left to the resolver so its checks stay in one place.
func (s *SessionStore) GetSession(ctx context.Context, tokenHash string) (*auth.SessionRecord, error) {
	var rec auth.SessionRecord
	var platformRole sql.NullString
	var revokedAt sql.NullTime
	err := s.db.QueryRowContext(ctx, `
		SELECT s.id, s.account_id, s.token_hash, s.created_at, s.expires_at, s.revoked_at,
		       a.platform_role
		FROM sessions s
		JOIN accounts a ON a.id = s.account_id
		WHERE s.token_hash = $1 AND a.is_active`,
		tokenHash,
	).Scan(&rec.ID, &rec.AccountID, &rec.TokenHash, &rec.CreatedAt, &rec.ExpiresAt,
		&revokedAt, &platformRole)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, auth.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying session: %w", err)
	}
	if revokedAt.Valid {
		rec.RevokedAt = &revokedAt.Time
	}
	rec.PlatformRole = auth.Role(platformRole.String)
	return &rec, nil
}

// RevokeSession marks one session revoked. Revoking an already revoked
// or unknown session is not an error.
func (s *SessionStore) RevokeSession(ctx context.Context, sessionID string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE sessions SET revoked_at = $2
		WHERE id = $1 AND revoked_at IS NULL`,
		sessionID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("revoking session: %w", err)
	}
	return nil
}

// RevokeAccountSessions revokes every live session of an account.
func (s *SessionStore) RevokeAccountSessions(ctx context.Context, accountID string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE sessions SET revoked_at = $2
		WHERE account_id = $1 AND revoked_at IS NULL`,
		accountID, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("revoking account sessions: %w", err)
	}
	return res.RowsAffected()
}

// DeleteExpired removes sessions past their expiry. Run from the sweep
// job; expired sessions are already unusable before the sweep runs.
func (s *SessionStore) DeleteExpired(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE expires_at < $1`, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("deleting expired sessions: %w", err)
	}
	return res.RowsAffected()
}
