package workspaces

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/openlearnhq/atrium/pkg/auth"
)

// Service defines workspace and membership management
type Service interface {
	MembershipSource

	// Workspace CRUD
	CreateWorkspace(ctx context.Context, ws *Workspace) error
	GetWorkspace(ctx context.Context, id string) (*Workspace, error)
	GetWorkspaceBySlug(ctx context.Context, slug string) (*Workspace, error)
	ListWorkspaces(ctx context.Context, accountID string) ([]*Workspace, error)
	ListAllWorkspaces(ctx context.Context) ([]*Workspace, error)

	// Member administration
	ListMembers(ctx context.Context, workspaceID string) ([]*MemberRecord, error)
	AddMember(ctx context.Context, workspaceID, accountID string, role auth.Role, invitedBy *string) error
	UpdateMemberRole(ctx context.Context, workspaceID, accountID string, role auth.Role) error
	RemoveMember(ctx context.Context, workspaceID, accountID string) error
}

// PostgresService implements Service against Postgres
type PostgresService struct {
	db *sql.DB
}

// NewPostgresService creates a Postgres-backed workspace service
func NewPostgresService(db *sql.DB) *PostgresService {
	return &PostgresService{db: db}
}

// CreateWorkspace inserts a new workspace
func (s *PostgresService) CreateWorkspace(ctx context.Context, ws *Workspace) error {
	if ws.ID == "" {
		ws.ID = uuid.NewString()
	}
	if ws.Status == "" {
		ws.Status = StatusActive
	}
	query := `
		INSERT INTO workspaces (id, slug, name, kind, status, is_platform, owner_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
	`
	if _, err := s.db.ExecContext(ctx, query,
		ws.ID, ws.Slug, ws.Name, ws.Kind, ws.Status, ws.IsPlatform, ws.OwnerID); err != nil {
		return fmt.Errorf("failed to create workspace: %w", err)
	}
	return nil
}

// GetWorkspace retrieves a workspace by id
func (s *PostgresService) GetWorkspace(ctx context.Context, id string) (*Workspace, error) {
	return s.getWorkspace(ctx, "id", id)
}

// GetWorkspaceBySlug retrieves a workspace by slug
func (s *PostgresService) GetWorkspaceBySlug(ctx context.Context, slug string) (*Workspace, error) {
	return s.getWorkspace(ctx, "slug", slug)
}

func (s *PostgresService) getWorkspace(ctx context.Context, column, value string) (*Workspace, error) {
	query := fmt.Sprintf(`
		SELECT id, slug, name, kind, status, is_platform, owner_id, created_at, updated_at
		FROM workspaces
		WHERE %s = $1 AND status <> 'deleted'
	`, column)

	ws := &Workspace{}
	var ownerID sql.NullString
	err := s.db.QueryRowContext(ctx, query, value).Scan(
		&ws.ID, &ws.Slug, &ws.Name, &ws.Kind, &ws.Status, &ws.IsPlatform,
		&ownerID, &ws.CreatedAt, &ws.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrWorkspaceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get workspace: %w", err)
	}
	if ownerID.Valid {
		ws.OwnerID = &ownerID.String
	}
	return ws, nil
}

// ListWorkspaces lists workspaces the account belongs to
func (s *PostgresService) ListWorkspaces(ctx context.Context, accountID string) ([]*Workspace, error) {
	query := `
		SELECT w.id, w.slug, w.name, w.kind, w.status, w.is_platform, w.owner_id, w.created_at, w.updated_at
		FROM workspaces w
		JOIN workspace_members m ON m.workspace_id = w.id
		WHERE m.account_id = $1 AND w.status <> 'deleted'
		ORDER BY w.created_at ASC
	`
	rows, err := s.db.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to list workspaces: %w", err)
	}
	defer rows.Close()

	var out []*Workspace
	for rows.Next() {
		ws := &Workspace{}
		var ownerID sql.NullString
		if err := rows.Scan(
			&ws.ID, &ws.Slug, &ws.Name, &ws.Kind, &ws.Status, &ws.IsPlatform,
			&ownerID, &ws.CreatedAt, &ws.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan workspace: %w", err)
		}
		if ownerID.Valid {
			ws.OwnerID = &ownerID.String
		}
		out = append(out, ws)
	}
	return out, rows.Err()
}

// ListAllWorkspaces lists every live workspace, for platform staff
func (s *PostgresService) ListAllWorkspaces(ctx context.Context) ([]*Workspace, error) {
	query := `
		SELECT w.id, w.slug, w.name, w.kind, w.status, w.is_platform, w.owner_id, w.created_at, w.updated_at
		FROM workspaces w
		WHERE w.status <> 'deleted'
		ORDER BY w.created_at ASC
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list workspaces: %w", err)
	}
	defer rows.Close()

	var out []*Workspace
	for rows.Next() {
		ws := &Workspace{}
		var ownerID sql.NullString
		if err := rows.Scan(
			&ws.ID, &ws.Slug, &ws.Name, &ws.Kind, &ws.Status, &ws.IsPlatform,
			&ownerID, &ws.CreatedAt, &ws.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan workspace: %w", err)
		}
		if ownerID.Valid {
			ws.OwnerID = &ownerID.String
		}
		out = append(out, ws)
	}
	return out, rows.Err()
}

// ResolveMembership finds the account's membership in a workspace with a
// single read. The LEFT JOIN lets one query distinguish a missing
// workspace from a missing membership row, and carries the workspace row
// back alongside the membership so callers need no second lookup.
func (s *PostgresService) ResolveMembership(ctx context.Context, accountID, workspaceID string) (*Workspace, *Membership, error) {
	query := `
		SELECT w.id, w.slug, w.name, w.kind, w.status, w.is_platform,
		       m.account_id, m.role, m.invited_by, m.joined_at
		FROM workspaces w
		LEFT JOIN workspace_members m
		       ON m.workspace_id = w.id AND m.account_id = $1
		WHERE w.id = $2 AND w.status <> 'deleted'
	`

	var ws Workspace
	var memberAccount, role, invitedBy sql.NullString
	var joinedAt sql.NullTime
	err := s.db.QueryRowContext(ctx, query, accountID, workspaceID).Scan(
		&ws.ID, &ws.Slug, &ws.Name, &ws.Kind, &ws.Status, &ws.IsPlatform,
		&memberAccount, &role, &invitedBy, &joinedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil, ErrWorkspaceNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to resolve membership: %w", err)
	}

	if !memberAccount.Valid {
		return &ws, nil, ErrNoMembership
	}

	m := &Membership{
		AccountID:   memberAccount.String,
		WorkspaceID: ws.ID,
		Role:        auth.Role(role.String),
	}
	if invitedBy.Valid {
		m.InvitedBy = &invitedBy.String
	}
	if joinedAt.Valid {
		m.JoinedAt = joinedAt.Time
	}
	return &ws, m, nil
}

// ListMembers retrieves all members of a workspace with account details
func (s *PostgresService) ListMembers(ctx context.Context, workspaceID string) ([]*MemberRecord, error) {
	query := `
		SELECT m.account_id, m.workspace_id, m.role, m.invited_by, m.joined_at,
		       a.email, a.full_name
		FROM workspace_members m
		JOIN accounts a ON a.id = m.account_id
		WHERE m.workspace_id = $1
		ORDER BY m.joined_at ASC
	`
	rows, err := s.db.QueryContext(ctx, query, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	var members []*MemberRecord
	for rows.Next() {
		member := &MemberRecord{}
		var invitedBy, fullName sql.NullString
		if err := rows.Scan(
			&member.AccountID, &member.WorkspaceID, &member.Role,
			&invitedBy, &member.JoinedAt, &member.Email, &fullName,
		); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		if invitedBy.Valid {
			member.InvitedBy = &invitedBy.String
		}
		if fullName.Valid {
			member.FullName = fullName.String
		}
		members = append(members, member)
	}
	return members, rows.Err()
}

// AddMember adds an account to a workspace. At most one active role per
// (account, workspace) pair is enforced by the unique constraint.
func (s *PostgresService) AddMember(ctx context.Context, workspaceID, accountID string, role auth.Role, invitedBy *string) error {
	if !role.IsValid() || role.IsPlatform() {
		return fmt.Errorf("invalid workspace role %q", role)
	}
	query := `
		INSERT INTO workspace_members (workspace_id, account_id, role, invited_by, joined_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (workspace_id, account_id) DO NOTHING
	`
	result, err := s.db.ExecContext(ctx, query, workspaceID, accountID, role, invitedBy, time.Now())
	if err != nil {
		return fmt.Errorf("failed to add member: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrMemberExists
	}
	return nil
}

// UpdateMemberRole updates a member's role
func (s *PostgresService) UpdateMemberRole(ctx context.Context, workspaceID, accountID string, role auth.Role) error {
	if !role.IsValid() || role.IsPlatform() {
		return fmt.Errorf("invalid workspace role %q", role)
	}
	query := `UPDATE workspace_members SET role = $1 WHERE workspace_id = $2 AND account_id = $3`
	result, err := s.db.ExecContext(ctx, query, role, workspaceID, accountID)
	if err != nil {
		return fmt.Errorf("failed to update member role: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrMemberNotFound
	}
	return nil
}

// RemoveMember removes an account from a workspace
func (s *PostgresService) RemoveMember(ctx context.Context, workspaceID, accountID string) error {
	query := `DELETE FROM workspace_members WHERE workspace_id = $1 AND account_id = $2`
	result, err := s.db.ExecContext(ctx, query, workspaceID, accountID)
	if err != nil {
		return fmt.Errorf("failed to remove member: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrMemberNotFound
	}
	return nil
}
