package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openlearnhq/atrium/pkg/auth"
)

func TestSessionStoreCreateSession(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()
	store := NewSessionStore(db)

	mock.ExpectExec(`INSERT INTO sessions`).
		WithArgs(sqlmock.AnyArg(), "acct-1", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	token, record, err := store.CreateSession(context.Background(), "acct-1", time.Hour)
	require.NoError(t, err)

	tokens := auth.NewTokenGenerator()
	assert.NoError(t, tokens.ValidateTokenFormat(token))
	assert.Equal(t, tokens.HashToken(token), record.TokenHash)
	assert.NotEqual(t, token, record.TokenHash)
	assert.WithinDuration(t, time.Now().Add(time.Hour), record.ExpiresAt, time.Minute)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionStoreGetSession(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()
	store := NewSessionStore(db)
	now := time.Now().UTC()

	cols := []string{"id", "account_id", "token_hash", "created_at", "expires_at", "revoked_at", "platform_role"}

	t.Run("joins platform role", func(t *testing.T) {
		mock.ExpectQuery(`SELECT s.id, s.account_id, s.token_hash, s.created_at, s.expires_at, s.revoked_at,\s+a.platform_role\s+FROM sessions s\s+JOIN accounts a`).
			WithArgs("hash-1").
			WillReturnRows(sqlmock.NewRows(cols).
				AddRow("sess-1", "acct-1", "hash-1", now, now.Add(time.Hour), nil, "platform_staff"))

		rec, err := store.GetSession(context.Background(), "hash-1")
		require.NoError(t, err)
		assert.Equal(t, auth.RolePlatformStaff, rec.PlatformRole)
		assert.Nil(t, rec.RevokedAt)
	})

	t.Run("unknown hash maps to ErrSessionNotFound", func(t *testing.T) {
		mock.ExpectQuery(`SELECT s.id`).
			WithArgs("hash-x").
			WillReturnRows(sqlmock.NewRows(cols))

		_, err := store.GetSession(context.Background(), "hash-x")
		assert.ErrorIs(t, err, auth.ErrSessionNotFound)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionStoreDeleteExpired(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()
	store := NewSessionStore(db)

	mock.ExpectExec(`DELETE FROM sessions WHERE expires_at < \$1`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 7))

	n, err := store.DeleteExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionStoreRevokeAccountSessions(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()
	store := NewSessionStore(db)

	mock.ExpectExec(`UPDATE sessions SET revoked_at = \$2\s+WHERE account_id = \$1 AND revoked_at IS NULL`).
		WithArgs("acct-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := store.RevokeAccountSessions(context.Background(), "acct-1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
