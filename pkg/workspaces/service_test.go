package workspaces

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openlearnhq/atrium/pkg/auth"
)

func newServiceMock(t *testing.T) (*PostgresService, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresService(db), mock
}

var membershipCols = []string{
	"id", "slug", "name", "kind", "status", "is_platform",
	"account_id", "role", "invited_by", "joined_at",
}

func TestResolveMembershipFound(t *testing.T) {
	svc, mock := newServiceMock(t)

	joined := time.Now().Add(-48 * time.Hour)
	mock.ExpectQuery(`SELECT w\.id, w\.slug, w\.name, w\.kind, w\.status, w\.is_platform`).
		WithArgs("acct-1", "w1").
		WillReturnRows(sqlmock.NewRows(membershipCols).
			AddRow("w1", "acme", "Acme School", "provider", "active", false,
				"acct-1", "provider_staff", nil, joined))

	ws, m, err := svc.ResolveMembership(context.Background(), "acct-1", "w1")
	require.NoError(t, err)
	require.NotNil(t, ws)
	require.NotNil(t, m)
	assert.Equal(t, "Acme School", ws.Name)
	assert.Equal(t, auth.RoleProviderStaff, m.Role)
	assert.Equal(t, "w1", m.WorkspaceID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestResolveMembershipWorkspaceExistsNoRow(t *testing.T) {
	svc, mock := newServiceMock(t)

	mock.ExpectQuery(`SELECT w\.id`).
		WithArgs("acct-1", "w1").
		WillReturnRows(sqlmock.NewRows(membershipCols).
			AddRow("w1", "acme", "Acme School", "provider", "active", false,
				nil, nil, nil, nil))

	ws, m, err := svc.ResolveMembership(context.Background(), "acct-1", "w1")
	assert.ErrorIs(t, err, ErrNoMembership)
	require.NotNil(t, ws, "workspace rides along even without a membership")
	assert.Equal(t, "w1", ws.ID)
	assert.Nil(t, m)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestResolveMembershipWorkspaceMissing(t *testing.T) {
	svc, mock := newServiceMock(t)

	mock.ExpectQuery(`SELECT w\.id`).
		WithArgs("acct-1", "nope").
		WillReturnRows(sqlmock.NewRows(membershipCols))

	ws, m, err := svc.ResolveMembership(context.Background(), "acct-1", "nope")
	assert.ErrorIs(t, err, ErrWorkspaceNotFound)
	assert.Nil(t, ws)
	assert.Nil(t, m)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAddMemberConflict(t *testing.T) {
	svc, mock := newServiceMock(t)

	mock.ExpectExec(`INSERT INTO workspace_members`).
		WithArgs("w1", "acct-1", auth.RoleStudent, nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := svc.AddMember(context.Background(), "w1", "acct-1", auth.RoleStudent, nil)
	assert.ErrorIs(t, err, ErrMemberExists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAddMemberRejectsPlatformRole(t *testing.T) {
	svc, _ := newServiceMock(t)

	err := svc.AddMember(context.Background(), "w1", "acct-1", auth.RolePlatformStaff, nil)
	assert.Error(t, err)
}

func TestUpdateMemberRoleNotFound(t *testing.T) {
	svc, mock := newServiceMock(t)

	mock.ExpectExec(`UPDATE workspace_members SET role`).
		WithArgs(auth.RoleProviderStaff, "w1", "acct-9").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := svc.UpdateMemberRole(context.Background(), "w1", "acct-9", auth.RoleProviderStaff)
	assert.ErrorIs(t, err, ErrMemberNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRemoveMember(t *testing.T) {
	svc, mock := newServiceMock(t)

	mock.ExpectExec(`DELETE FROM workspace_members`).
		WithArgs("w1", "acct-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, svc.RemoveMember(context.Background(), "w1", "acct-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}
