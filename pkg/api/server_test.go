package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openlearnhq/atrium/pkg/access"
	"github.com/openlearnhq/atrium/pkg/auth"
	"github.com/openlearnhq/atrium/pkg/content"
	"github.com/openlearnhq/atrium/pkg/guard"
	"github.com/openlearnhq/atrium/pkg/scope"
	"github.com/openlearnhq/atrium/pkg/workspaces"
)

// fakeWorkspaceService is an in-memory workspaces.Service.
type fakeWorkspaceService struct {
	mu      sync.Mutex
	spaces  map[string]*workspaces.Workspace
	members map[string]map[string]*workspaces.Membership
	nextID  int
}

func newFakeWorkspaceService() *fakeWorkspaceService {
	return &fakeWorkspaceService{
		spaces:  make(map[string]*workspaces.Workspace),
		members: make(map[string]map[string]*workspaces.Membership),
	}
}

func (f *fakeWorkspaceService) addWorkspace(ws *workspaces.Workspace) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.spaces[ws.ID] = ws
	if f.members[ws.ID] == nil {
		f.members[ws.ID] = make(map[string]*workspaces.Membership)
	}
}

func (f *fakeWorkspaceService) putMember(wsID, accountID string, role auth.Role) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.members[wsID][accountID] = &workspaces.Membership{
		AccountID:   accountID,
		WorkspaceID: wsID,
		Role:        role,
		JoinedAt:    time.Now().UTC(),
	}
}

func (f *fakeWorkspaceService) ResolveMembership(_ context.Context, accountID, workspaceID string) (*workspaces.Workspace, *workspaces.Membership, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ws, ok := f.spaces[workspaceID]
	if !ok {
		return nil, nil, workspaces.ErrWorkspaceNotFound
	}
	m, ok := f.members[workspaceID][accountID]
	if !ok {
		return ws, nil, workspaces.ErrNoMembership
	}
	return ws, m, nil
}

func (f *fakeWorkspaceService) CreateWorkspace(_ context.Context, ws *workspaces.Workspace) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	ws.ID = fmt.Sprintf("ws-%d", f.nextID)
	ws.CreatedAt = time.Now().UTC()
	f.spaces[ws.ID] = ws
	f.members[ws.ID] = make(map[string]*workspaces.Membership)
	return nil
}

func (f *fakeWorkspaceService) GetWorkspace(_ context.Context, id string) (*workspaces.Workspace, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ws, ok := f.spaces[id]
	if !ok {
		return nil, workspaces.ErrWorkspaceNotFound
	}
	return ws, nil
}

func (f *fakeWorkspaceService) GetWorkspaceBySlug(_ context.Context, slug string) (*workspaces.Workspace, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ws := range f.spaces {
		if ws.Slug == slug {
			return ws, nil
		}
	}
	return nil, workspaces.ErrWorkspaceNotFound
}

func (f *fakeWorkspaceService) ListWorkspaces(_ context.Context, accountID string) ([]*workspaces.Workspace, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*workspaces.Workspace
	for id, ws := range f.spaces {
		if _, ok := f.members[id][accountID]; ok {
			out = append(out, ws)
		}
	}
	return out, nil
}

func (f *fakeWorkspaceService) ListAllWorkspaces(_ context.Context) ([]*workspaces.Workspace, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*workspaces.Workspace
	for _, ws := range f.spaces {
		out = append(out, ws)
	}
	return out, nil
}

func (f *fakeWorkspaceService) ListMembers(_ context.Context, workspaceID string) ([]*workspaces.MemberRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*workspaces.MemberRecord
	for _, m := range f.members[workspaceID] {
		out = append(out, &workspaces.MemberRecord{Membership: *m, Email: m.AccountID + "@example.com"})
	}
	return out, nil
}

func (f *fakeWorkspaceService) AddMember(_ context.Context, workspaceID, accountID string, role auth.Role, _ *string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.members[workspaceID][accountID]; ok {
		return workspaces.ErrMemberExists
	}
	f.members[workspaceID][accountID] = &workspaces.Membership{
		AccountID:   accountID,
		WorkspaceID: workspaceID,
		Role:        role,
		JoinedAt:    time.Now().UTC(),
	}
	return nil
}

func (f *fakeWorkspaceService) UpdateMemberRole(_ context.Context, workspaceID, accountID string, role auth.Role) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.members[workspaceID][accountID]
	if !ok {
		return workspaces.ErrMemberNotFound
	}
	m.Role = role
	return nil
}

func (f *fakeWorkspaceService) RemoveMember(_ context.Context, workspaceID, accountID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.members[workspaceID][accountID]; !ok {
		return workspaces.ErrMemberNotFound
	}
	delete(f.members[workspaceID], accountID)
	return nil
}

type fakeSessionStore struct {
	mu       sync.Mutex
	sessions map[string]*auth.SessionRecord
}

func (f *fakeSessionStore) GetSession(_ context.Context, tokenHash string) (*auth.SessionRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.sessions[tokenHash]
	if !ok {
		return nil, auth.ErrSessionNotFound
	}
	cp := *rec
	return &cp, nil
}

type fakeAccountService struct {
	mu       sync.Mutex
	accounts map[string]*auth.Account // by id
	roles    map[string]auth.Role
}

func (f *fakeAccountService) GetAccount(_ context.Context, id string) (*auth.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[id]
	if !ok {
		return nil, auth.ErrAccountNotFound
	}
	return a, nil
}

func (f *fakeAccountService) GetAccountByEmail(_ context.Context, email string) (*auth.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.accounts {
		if a.Email == email {
			return a, nil
		}
	}
	return nil, auth.ErrAccountNotFound
}

func (f *fakeAccountService) SetPlatformRole(_ context.Context, accountID string, role auth.Role) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.accounts[accountID]; !ok {
		return auth.ErrAccountNotFound
	}
	if f.roles == nil {
		f.roles = make(map[string]auth.Role)
	}
	f.roles[accountID] = role
	return nil
}

type serverFixture struct {
	server   *Server
	repo     *content.MemoryRepository
	svc      *fakeWorkspaceService
	setter   *fakeAccountService
	sessions *fakeSessionStore
	tokens   map[string]string // account id -> raw token
}

func (fx *serverFixture) addSession(t *testing.T, accountID string, platformRole auth.Role) {
	t.Helper()
	tg := auth.NewTokenGenerator()
	token, hash, err := tg.GenerateToken()
	require.NoError(t, err)
	fx.sessions.mu.Lock()
	fx.sessions.sessions[hash] = &auth.SessionRecord{
		ID:           "sess-" + accountID,
		AccountID:    accountID,
		TokenHash:    hash,
		PlatformRole: platformRole,
		CreatedAt:    time.Now().UTC(),
		ExpiresAt:    time.Now().Add(time.Hour),
	}
	fx.sessions.mu.Unlock()
	fx.tokens[accountID] = token
}

func newServerFixture(t *testing.T) *serverFixture {
	t.Helper()

	fx := &serverFixture{
		repo:     content.NewMemoryRepository(),
		svc:      newFakeWorkspaceService(),
		setter:   &fakeAccountService{accounts: make(map[string]*auth.Account)},
		sessions: &fakeSessionStore{sessions: make(map[string]*auth.SessionRecord)},
		tokens:   make(map[string]string),
	}

	fx.svc.addWorkspace(&workspaces.Workspace{
		ID:     "w1",
		Slug:   "acme",
		Name:   "Acme School",
		Kind:   workspaces.KindProvider,
		Status: workspaces.StatusActive,
	})
	fx.svc.putMember("w1", "acct-student", auth.RoleStudent)
	fx.svc.putMember("w1", "acct-staff", auth.RoleProviderStaff)
	fx.svc.putMember("w1", "acct-owner", auth.RoleProviderOwner)

	fx.addSession(t, "acct-student", "")
	fx.addSession(t, "acct-staff", "")
	fx.addSession(t, "acct-owner", "")
	fx.addSession(t, "acct-support", auth.RolePlatformStaff)
	fx.addSession(t, "acct-admin", auth.RolePlatformSuperStaff)
	for _, id := range []string{"acct-student", "acct-staff", "acct-owner", "acct-support", "acct-admin", "acct-new"} {
		fx.setter.accounts[id] = &auth.Account{ID: id, Email: id + "@example.com", IsActive: true}
	}

	subject := &content.Subject{ID: "subj-1", WorkspaceID: "w1", Name: "Mathematics"}
	require.NoError(t, fx.repo.CreateSubject(context.Background(), subject))
	require.NoError(t, fx.repo.CreateCourse(context.Background(), &content.Course{
		ID: "course-pub", WorkspaceID: "w1", SubjectID: "subj-1", Title: "Algebra", Published: true,
	}))
	require.NoError(t, fx.repo.CreateCourse(context.Background(), &content.Course{
		ID: "course-draft", WorkspaceID: "w1", SubjectID: "subj-1", Title: "Geometry Draft", Published: false,
	}))

	rs, err := access.Compile(DefaultRules())
	require.NoError(t, err)

	g := guard.New(guard.Options{
		Sessions: auth.NewResolver(fx.sessions),
		Roles:    workspaces.NewRoleResolver(fx.svc),
		Table:    access.NewStaticTable(rs),
		Scopes:   scope.NewBuilder(fx.repo),
	})

	fx.server = NewServer(ServerOptions{
		Guard:      g,
		Workspaces: fx.svc,
		Accounts:   fx.setter,
	})
	return fx
}

func (fx *serverFixture) do(t *testing.T, method, path, accountID string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rd)
	if accountID != "" {
		token, ok := fx.tokens[accountID]
		require.True(t, ok, "no session for %s", accountID)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	fx.server.ServeHTTP(rec, req)
	return rec
}

func dataField(t *testing.T, rec *httptest.ResponseRecorder) interface{} {
	t.Helper()
	var env struct {
		Data interface{} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env.Data
}

func TestGetMe(t *testing.T) {
	fx := newServerFixture(t)

	rec := fx.do(t, "GET", "/api/me", "acct-student", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	data := dataField(t, rec).(map[string]interface{})
	assert.Equal(t, "acct-student", data["account_id"])
}

func TestGetMeUnauthenticated(t *testing.T) {
	fx := newServerFixture(t)

	rec := fx.do(t, "GET", "/api/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateWorkspaceAssignsOwner(t *testing.T) {
	fx := newServerFixture(t)

	rec := fx.do(t, "POST", "/api/workspaces", "acct-student", map[string]string{
		"slug": "newschool", "name": "New School",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	ws := dataField(t, rec).(map[string]interface{})
	wsID := ws["id"].(string)

	m := fx.svc.members[wsID]["acct-student"]
	require.NotNil(t, m)
	assert.Equal(t, auth.RoleProviderOwner, m.Role)
}

func TestStudentSeesOnlyPublishedCourses(t *testing.T) {
	fx := newServerFixture(t)

	rec := fx.do(t, "GET", "/api/workspaces/w1/courses", "acct-student", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	courses := dataField(t, rec).([]interface{})
	require.Len(t, courses, 1)
	assert.Equal(t, "Algebra", courses[0].(map[string]interface{})["title"])
}

func TestStaffSeesDraftCourses(t *testing.T) {
	fx := newServerFixture(t)

	rec := fx.do(t, "GET", "/api/workspaces/w1/courses", "acct-staff", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	courses := dataField(t, rec).([]interface{})
	assert.Len(t, courses, 2)
}

func TestStudentCannotCreateCourse(t *testing.T) {
	fx := newServerFixture(t)

	rec := fx.do(t, "POST", "/api/workspaces/w1/courses", "acct-student", map[string]interface{}{
		"subject_id": "subj-1", "title": "Sneaky",
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestStaffCreatesCourse(t *testing.T) {
	fx := newServerFixture(t)

	rec := fx.do(t, "POST", "/api/workspaces/w1/courses", "acct-staff", map[string]interface{}{
		"subject_id": "subj-1", "title": "Calculus", "published": true,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	course := dataField(t, rec).(map[string]interface{})
	assert.Equal(t, "w1", course["workspace_id"])
}

func TestAddMemberRequiresOwner(t *testing.T) {
	fx := newServerFixture(t)

	body := map[string]interface{}{"account_id": "acct-new", "role": "student"}

	rec := fx.do(t, "POST", "/api/workspaces/w1/members", "acct-staff", body)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = fx.do(t, "POST", "/api/workspaces/w1/members", "acct-owner", body)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestAddMemberDuplicateConflict(t *testing.T) {
	fx := newServerFixture(t)

	body := map[string]interface{}{"account_id": "acct-student", "role": "student"}
	rec := fx.do(t, "POST", "/api/workspaces/w1/members", "acct-owner", body)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestAddMemberRejectsPlatformRole(t *testing.T) {
	fx := newServerFixture(t)

	body := map[string]interface{}{"account_id": "acct-new", "role": "platform_staff"}
	rec := fx.do(t, "POST", "/api/workspaces/w1/members", "acct-owner", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRemoveSelfRejected(t *testing.T) {
	fx := newServerFixture(t)

	rec := fx.do(t, "DELETE", "/api/workspaces/w1/members/acct-owner", "acct-owner", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMissingWorkspaceIsNotFound(t *testing.T) {
	fx := newServerFixture(t)

	rec := fx.do(t, "GET", "/api/workspaces/nope/courses", "acct-admin", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPlatformStaffBypassesMembership(t *testing.T) {
	fx := newServerFixture(t)

	rec := fx.do(t, "GET", "/api/workspaces/w1/courses", "acct-support", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	// Platform staff see unpublished content too.
	courses := dataField(t, rec).([]interface{})
	assert.Len(t, courses, 2)
}

func TestAdminWorkspaceListing(t *testing.T) {
	fx := newServerFixture(t)

	rec := fx.do(t, "GET", "/api/admin/workspaces", "acct-owner", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = fx.do(t, "GET", "/api/admin/workspaces", "acct-support", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestPlatformRoleGrantRequiresSuperStaff(t *testing.T) {
	fx := newServerFixture(t)

	body := map[string]string{"role": "platform_staff"}

	rec := fx.do(t, "PUT", "/api/admin/accounts/acct-student/platform-role", "acct-support", body)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = fx.do(t, "PUT", "/api/admin/accounts/acct-student/platform-role", "acct-admin", body)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, auth.RolePlatformStaff, fx.setter.roles["acct-student"])
}

func TestPlatformRoleGrantUnknownAccount(t *testing.T) {
	fx := newServerFixture(t)

	body := map[string]string{"role": "platform_staff"}
	rec := fx.do(t, "PUT", "/api/admin/accounts/acct-ghost/platform-role", "acct-admin", body)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAddMemberByEmail(t *testing.T) {
	fx := newServerFixture(t)

	body := map[string]interface{}{"email": "acct-new@example.com", "role": "student"}
	rec := fx.do(t, "POST", "/api/workspaces/w1/members", "acct-owner", body)
	require.Equal(t, http.StatusNoContent, rec.Code)

	m := fx.svc.members["w1"]["acct-new"]
	require.NotNil(t, m)
	assert.Equal(t, auth.RoleStudent, m.Role)
}

func TestCreateWorkspaceDuplicateSlug(t *testing.T) {
	fx := newServerFixture(t)

	rec := fx.do(t, "POST", "/api/workspaces", "acct-student", map[string]string{
		"slug": "acme", "name": "Another Acme",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestEnrollmentFlow(t *testing.T) {
	fx := newServerFixture(t)

	rec := fx.do(t, "POST", "/api/workspaces/w1/courses/course-pub/enrollments", "acct-student", nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	// Enrolling twice conflicts.
	rec = fx.do(t, "POST", "/api/workspaces/w1/courses/course-pub/enrollments", "acct-student", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Draft courses are not enrollable by students.
	rec = fx.do(t, "POST", "/api/workspaces/w1/courses/course-draft/enrollments", "acct-student", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = fx.do(t, "GET", "/api/workspaces/w1/enrollments", "acct-student", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	enrollments := dataField(t, rec).([]interface{})
	require.Len(t, enrollments, 1)
}

func TestHomePagePublic(t *testing.T) {
	fx := newServerFixture(t)

	rec := fx.do(t, "GET", "/", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Welcome to Atrium")
}

func TestDashboardPageRendersWorkspace(t *testing.T) {
	fx := newServerFixture(t)

	rec := fx.do(t, "GET", "/workspaces/w1", "acct-student", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Acme School")
}

func TestDashboardRedirectsAnonymous(t *testing.T) {
	fx := newServerFixture(t)

	rec := fx.do(t, "GET", "/workspaces/w1", "", nil)
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login?return_to=%2Fworkspaces%2Fw1", rec.Header().Get("Location"))
}

func TestSettingsPageForbiddenForStudent(t *testing.T) {
	fx := newServerFixture(t)

	rec := fx.do(t, "GET", "/workspaces/w1/settings", "acct-student", nil)
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/forbidden", rec.Header().Get("Location"))
}
