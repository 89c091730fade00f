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

// AccountStore persists user accounts.
type AccountStore struct {
	db *sql.DB
}

func NewAccountStore(db *sql.DB) *AccountStore {
	return &AccountStore{db: db}
}

func (s *AccountStore) GetAccount(ctx context.Context, id string) (*auth.Account, error) {
	return s.getAccount(ctx, "id", id)
}

func (s *AccountStore) GetAccountByEmail(ctx context.Context, email string) (*auth.Account, error) {
	return s.getAccount(ctx, "email", email)
}

func (s *AccountStore) getAccount(ctx context.Context, column, value string) (*auth.Account, error) {
	var a auth.Account
	var fullName, platformRole sql.NullString
	var lastLogin sql.NullTime
	query := fmt.Sprintf(`
		SELECT id, email, full_name, platform_role, is_active, created_at, updated_at, last_login_at
		FROM accounts WHERE %s = $1`, column)
	err := s.db.QueryRowContext(ctx, query, value).Scan(
		&a.ID, &a.Email, &fullName, &platformRole, &a.IsActive,
		&a.CreatedAt, &a.UpdatedAt, &lastLogin)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, auth.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying account: %w", err)
	}
	a.FullName = fullName.String
	a.PlatformRole = auth.Role(platformRole.String)
	if lastLogin.Valid {
		a.LastLoginAt = &lastLogin.Time
	}
	return &a, nil
}

// UpsertAccount creates an account for a first-time login or refreshes
// the profile fields of a returning one, keyed by email. The platform
// role is never written here; it is granted out of band.
func (s *AccountStore) UpsertAccount(ctx context.Context, email, fullName string) (*auth.Account, error) {
	now := time.Now().UTC()
	a := &auth.Account{
		ID:        uuid.New().String(),
		Email:     email,
		FullName:  fullName,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	var platformRole sql.NullString
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO accounts (id, email, full_name, is_active, created_at, updated_at, last_login_at)
		VALUES ($1, $2, $3, TRUE, $4, $4, $4)
		ON CONFLICT (email) DO UPDATE
		SET full_name = EXCLUDED.full_name, updated_at = EXCLUDED.updated_at,
		    last_login_at = EXCLUDED.last_login_at
		RETURNING id, platform_role, is_active, created_at`,
		a.ID, email, fullName, now,
	).Scan(&a.ID, &platformRole, &a.IsActive, &a.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("upserting account: %w", err)
	}
	a.PlatformRole = auth.Role(platformRole.String)
	a.LastLoginAt = &now
	return a, nil
}

// SetPlatformRole grants or clears an account's platform role.
func (s *AccountStore) SetPlatformRole(ctx context.Context, accountID string, role auth.Role) error {
	if role != "" && !role.IsPlatform() {
		return fmt.Errorf("role %q is not a platform role", role)
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE accounts SET platform_role = $2, updated_at = $3 WHERE id = $1`,
		accountID, sql.NullString{String: string(role), Valid: role != ""}, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("setting platform role: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return auth.ErrAccountNotFound
	}
	return nil
}
