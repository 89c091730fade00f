package api

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/openlearnhq/atrium/pkg/auth"
	"github.com/openlearnhq/atrium/pkg/billing"
	"github.com/openlearnhq/atrium/pkg/content"
	"github.com/openlearnhq/atrium/pkg/httputil"
	"github.com/openlearnhq/atrium/pkg/scope"
	"github.com/openlearnhq/atrium/pkg/workspaces"
)

// getMe returns the caller's account profile and session identity.
func (s *Server) getMe(w http.ResponseWriter, r *http.Request, ec *scope.ExecutionContext) error {
	account, err := s.accounts.GetAccount(r.Context(), ec.AccountID())
	if err != nil {
		return err
	}
	return httputil.WriteData(w, map[string]interface{}{
		"account_id":     account.ID,
		"email":          account.Email,
		"full_name":      account.FullName,
		"session_expiry": ec.Identity.SessionExpiry,
		"platform_role":  ec.Identity.PlatformRole,
	})
}

// --- workspaces ---

func (s *Server) listWorkspaces(w http.ResponseWriter, r *http.Request, ec *scope.ExecutionContext) error {
	list, err := s.workspaces.ListWorkspaces(r.Context(), ec.AccountID())
	if err != nil {
		return err
	}
	return httputil.WriteData(w, list)
}

type createWorkspaceRequest struct {
	Slug string `json:"slug"`
	Name string `json:"name"`
}

func (s *Server) createWorkspace(w http.ResponseWriter, r *http.Request, ec *scope.ExecutionContext) error {
	var req createWorkspaceRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		return err
	}
	if err := httputil.RequireField("slug", req.Slug); err != nil {
		return err
	}
	if err := httputil.RequireField("name", req.Name); err != nil {
		return err
	}
	if _, err := s.workspaces.GetWorkspaceBySlug(r.Context(), req.Slug); err == nil {
		return httputil.E(http.StatusConflict, "conflict", "slug is already taken")
	} else if !errors.Is(err, workspaces.ErrWorkspaceNotFound) {
		return err
	}

	accountID := ec.AccountID()
	ws := &workspaces.Workspace{
		Slug:    req.Slug,
		Name:    req.Name,
		Kind:    workspaces.KindProvider,
		Status:  workspaces.StatusActive,
		OwnerID: &accountID,
	}
	if err := s.workspaces.CreateWorkspace(r.Context(), ws); err != nil {
		return err
	}
	// The creator owns the new workspace.
	if err := s.workspaces.AddMember(r.Context(), ws.ID, accountID, auth.RoleProviderOwner, nil); err != nil {
		return err
	}
	return httputil.WriteCreated(w, ws)
}

func (s *Server) getWorkspace(w http.ResponseWriter, r *http.Request, ec *scope.ExecutionContext) error {
	return httputil.WriteData(w, ec.Workspace)
}

func (s *Server) adminListWorkspaces(w http.ResponseWriter, r *http.Request, ec *scope.ExecutionContext) error {
	list, err := s.workspaces.ListAllWorkspaces(r.Context())
	if err != nil {
		return err
	}
	return httputil.WriteData(w, list)
}

// --- members ---

func (s *Server) listMembers(w http.ResponseWriter, r *http.Request, ec *scope.ExecutionContext) error {
	members, err := s.workspaces.ListMembers(r.Context(), ec.WorkspaceID())
	if err != nil {
		return err
	}
	return httputil.WriteData(w, members)
}

type memberRequest struct {
	AccountID string    `json:"account_id"`
	Email     string    `json:"email"`
	Role      auth.Role `json:"role"`
}

func (s *Server) addMember(w http.ResponseWriter, r *http.Request, ec *scope.ExecutionContext) error {
	var req memberRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		return err
	}
	if req.AccountID == "" && req.Email == "" {
		return httputil.E(http.StatusBadRequest, "malformed", "account_id or email is required")
	}
	if !req.Role.IsValid() || req.Role.IsPlatform() {
		return httputil.E(http.StatusBadRequest, "malformed", "invalid workspace role")
	}
	if req.AccountID == "" {
		account, err := s.accounts.GetAccountByEmail(r.Context(), req.Email)
		if errors.Is(err, auth.ErrAccountNotFound) {
			return httputil.E(http.StatusNotFound, "not_found", "no account with that email")
		}
		if err != nil {
			return err
		}
		req.AccountID = account.ID
	}

	invitedBy := ec.AccountID()
	err := s.workspaces.AddMember(r.Context(), ec.WorkspaceID(), req.AccountID, req.Role, &invitedBy)
	if errors.Is(err, workspaces.ErrMemberExists) {
		return httputil.E(http.StatusConflict, "conflict", "account is already a member")
	}
	if err != nil {
		return err
	}
	httputil.WriteNoContent(w)
	return nil
}

type updateMemberRequest struct {
	Role auth.Role `json:"role"`
}

func (s *Server) updateMember(w http.ResponseWriter, r *http.Request, ec *scope.ExecutionContext) error {
	var req updateMemberRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		return err
	}
	if !req.Role.IsValid() || req.Role.IsPlatform() {
		return httputil.E(http.StatusBadRequest, "malformed", "invalid workspace role")
	}

	accountID := mux.Vars(r)["account"]
	err := s.workspaces.UpdateMemberRole(r.Context(), ec.WorkspaceID(), accountID, req.Role)
	if errors.Is(err, workspaces.ErrMemberNotFound) {
		return httputil.E(http.StatusNotFound, "not_found", "member not found")
	}
	if err != nil {
		return err
	}
	httputil.WriteNoContent(w)
	return nil
}

func (s *Server) removeMember(w http.ResponseWriter, r *http.Request, ec *scope.ExecutionContext) error {
	accountID := mux.Vars(r)["account"]
	if accountID == ec.AccountID() {
		return httputil.E(http.StatusBadRequest, "malformed", "cannot remove yourself")
	}
	err := s.workspaces.RemoveMember(r.Context(), ec.WorkspaceID(), accountID)
	if errors.Is(err, workspaces.ErrMemberNotFound) {
		return httputil.E(http.StatusNotFound, "not_found", "member not found")
	}
	if err != nil {
		return err
	}
	httputil.WriteNoContent(w)
	return nil
}

// --- catalog ---

func (s *Server) listSubjects(w http.ResponseWriter, r *http.Request, ec *scope.ExecutionContext) error {
	subjects, err := ec.Content.ListSubjects(r.Context())
	if err != nil {
		return err
	}
	return httputil.WriteData(w, subjects)
}

type subjectRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (s *Server) createSubject(w http.ResponseWriter, r *http.Request, ec *scope.ExecutionContext) error {
	var req subjectRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		return err
	}
	if err := httputil.RequireField("name", req.Name); err != nil {
		return err
	}
	subject := &content.Subject{Name: req.Name, Description: req.Description}
	if err := ec.Content.CreateSubject(r.Context(), subject); err != nil {
		return err
	}
	return httputil.WriteCreated(w, subject)
}

func (s *Server) deleteSubject(w http.ResponseWriter, r *http.Request, ec *scope.ExecutionContext) error {
	err := ec.Content.DeleteSubject(r.Context(), mux.Vars(r)["subject"])
	if errors.Is(err, content.ErrNotFound) {
		return httputil.E(http.StatusNotFound, "not_found", "subject not found")
	}
	if err != nil {
		return err
	}
	httputil.WriteNoContent(w)
	return nil
}

func (s *Server) listCourses(w http.ResponseWriter, r *http.Request, ec *scope.ExecutionContext) error {
	// Students only see published courses; staff see drafts too.
	publishedOnly := !isStaff(ec)
	courses, err := ec.Content.ListCourses(r.Context(), publishedOnly)
	if err != nil {
		return err
	}
	return httputil.WriteData(w, courses)
}

// isStaff reports whether the caller holds a staff-level role in the
// request's workspace.
func isStaff(ec *scope.ExecutionContext) bool {
	switch ec.Role() {
	case auth.RoleProviderStaff, auth.RoleProviderOwner:
		return true
	}
	return ec.IsPlatformActor()
}

type courseRequest struct {
	SubjectID   string `json:"subject_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Published   bool   `json:"published"`
}

func (s *Server) createCourse(w http.ResponseWriter, r *http.Request, ec *scope.ExecutionContext) error {
	var req courseRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		return err
	}
	if err := httputil.RequireField("subject_id", req.SubjectID); err != nil {
		return err
	}
	if err := httputil.RequireField("title", req.Title); err != nil {
		return err
	}
	course := &content.Course{
		SubjectID:   req.SubjectID,
		Title:       req.Title,
		Description: req.Description,
		Published:   req.Published,
	}
	err := ec.Content.CreateCourse(r.Context(), course)
	if errors.Is(err, content.ErrNotFound) {
		return httputil.E(http.StatusBadRequest, "malformed", "unknown subject")
	}
	if err != nil {
		return err
	}
	return httputil.WriteCreated(w, course)
}

func (s *Server) getCourse(w http.ResponseWriter, r *http.Request, ec *scope.ExecutionContext) error {
	course, err := ec.Content.GetCourse(r.Context(), mux.Vars(r)["course"])
	if errors.Is(err, content.ErrNotFound) {
		return httputil.E(http.StatusNotFound, "not_found", "course not found")
	}
	if err != nil {
		return err
	}
	if !course.Published && !isStaff(ec) {
		// Draft courses are invisible to students.
		return httputil.E(http.StatusNotFound, "not_found", "course not found")
	}
	return httputil.WriteData(w, course)
}

func (s *Server) updateCourse(w http.ResponseWriter, r *http.Request, ec *scope.ExecutionContext) error {
	var req courseRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		return err
	}
	course, err := ec.Content.GetCourse(r.Context(), mux.Vars(r)["course"])
	if errors.Is(err, content.ErrNotFound) {
		return httputil.E(http.StatusNotFound, "not_found", "course not found")
	}
	if err != nil {
		return err
	}
	course.Title = req.Title
	course.Description = req.Description
	course.Published = req.Published
	if err := ec.Content.UpdateCourse(r.Context(), course); err != nil {
		return err
	}
	return httputil.WriteData(w, course)
}

func (s *Server) deleteCourse(w http.ResponseWriter, r *http.Request, ec *scope.ExecutionContext) error {
	err := ec.Content.DeleteCourse(r.Context(), mux.Vars(r)["course"])
	if errors.Is(err, content.ErrNotFound) {
		return httputil.E(http.StatusNotFound, "not_found", "course not found")
	}
	if err != nil {
		return err
	}
	httputil.WriteNoContent(w)
	return nil
}

// --- enrollment ---

func (s *Server) listCourseEnrollments(w http.ResponseWriter, r *http.Request, ec *scope.ExecutionContext) error {
	enrollments, err := ec.Content.ListEnrollments(r.Context(), mux.Vars(r)["course"])
	if err != nil {
		return err
	}
	return httputil.WriteData(w, enrollments)
}

func (s *Server) enroll(w http.ResponseWriter, r *http.Request, ec *scope.ExecutionContext) error {
	courseID := mux.Vars(r)["course"]
	course, err := ec.Content.GetCourse(r.Context(), courseID)
	if errors.Is(err, content.ErrNotFound) {
		return httputil.E(http.StatusNotFound, "not_found", "course not found")
	}
	if err != nil {
		return err
	}
	if !course.Published && !isStaff(ec) {
		return httputil.E(http.StatusNotFound, "not_found", "course not found")
	}

	enrollment := &content.Enrollment{CourseID: courseID, AccountID: ec.AccountID()}
	err = ec.Content.CreateEnrollment(r.Context(), enrollment)
	if errors.Is(err, content.ErrAlreadyEnrolled) {
		return httputil.E(http.StatusConflict, "conflict", "already enrolled")
	}
	if err != nil {
		return err
	}
	return httputil.WriteCreated(w, enrollment)
}

func (s *Server) listMyEnrollments(w http.ResponseWriter, r *http.Request, ec *scope.ExecutionContext) error {
	enrollments, err := ec.Content.ListAccountEnrollments(r.Context(), ec.AccountID())
	if err != nil {
		return err
	}
	return httputil.WriteData(w, enrollments)
}

func (s *Server) cancelEnrollment(w http.ResponseWriter, r *http.Request, ec *scope.ExecutionContext) error {
	enrollmentID := mux.Vars(r)["enrollment"]

	// Students may only cancel their own enrollment.
	if !isStaff(ec) {
		mine, err := ec.Content.ListAccountEnrollments(r.Context(), ec.AccountID())
		if err != nil {
			return err
		}
		owned := false
		for _, e := range mine {
			if e.ID == enrollmentID {
				owned = true
				break
			}
		}
		if !owned {
			return httputil.E(http.StatusNotFound, "not_found", "enrollment not found")
		}
	}

	err := ec.Content.CancelEnrollment(r.Context(), enrollmentID)
	if errors.Is(err, content.ErrNotFound) {
		return httputil.E(http.StatusNotFound, "not_found", "enrollment not found")
	}
	if err != nil {
		return err
	}
	httputil.WriteNoContent(w)
	return nil
}

// --- billing ---

type checkoutRequest struct {
	AmountCents int64  `json:"amount_cents"`
	Currency    string `json:"currency"`
}

func (s *Server) startCheckout(w http.ResponseWriter, r *http.Request, ec *scope.ExecutionContext) error {
	var req checkoutRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		return err
	}
	if req.AmountCents <= 0 {
		return httputil.E(http.StatusBadRequest, "malformed", "amount_cents must be positive")
	}
	if req.Currency == "" {
		req.Currency = "usd"
	}

	courseID := mux.Vars(r)["course"]
	course, err := ec.Content.GetCourse(r.Context(), courseID)
	if errors.Is(err, content.ErrNotFound) {
		return httputil.E(http.StatusNotFound, "not_found", "course not found")
	}
	if err != nil {
		return err
	}

	purchase, err := s.billing.StartCheckout(r.Context(),
		ec.WorkspaceID(), ec.AccountID(), courseID,
		req.AmountCents, req.Currency, course.Title,
		s.baseURL+"/workspaces/"+ec.WorkspaceID(),
		s.baseURL+"/workspaces/"+ec.WorkspaceID())
	if errors.Is(err, billing.ErrAlreadyPaid) {
		return httputil.E(http.StatusConflict, "conflict", "course already paid")
	}
	if err != nil {
		return err
	}
	return httputil.WriteCreated(w, purchase)
}

func (s *Server) listPurchases(w http.ResponseWriter, r *http.Request, ec *scope.ExecutionContext) error {
	purchases, err := s.billing.ListPurchases(r.Context(), ec.WorkspaceID(), ec.AccountID())
	if err != nil {
		return err
	}
	return httputil.WriteData(w, purchases)
}

// --- platform administration ---

type platformRoleRequest struct {
	Role auth.Role `json:"role"`
}

func (s *Server) setPlatformRole(w http.ResponseWriter, r *http.Request, ec *scope.ExecutionContext) error {
	var req platformRoleRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		return err
	}
	if req.Role != "" && !req.Role.IsPlatform() {
		return httputil.E(http.StatusBadRequest, "malformed", "role must be a platform role or empty")
	}

	accountID := mux.Vars(r)["account"]
	if err := s.accounts.SetPlatformRole(r.Context(), accountID, req.Role); err != nil {
		if errors.Is(err, auth.ErrAccountNotFound) {
			return httputil.E(http.StatusNotFound, "not_found", "account not found")
		}
		return err
	}

	// Cached session records carry the platform role they were resolved
	// with; revoke the account's sessions so the old role cannot outlive
	// the change.
	if s.sessions != nil {
		if _, err := s.sessions.RevokeAccountSessions(r.Context(), accountID); err != nil {
			return err
		}
	}
	return httputil.WriteDataMessage(w, map[string]interface{}{
		"account_id": accountID,
		"role":       req.Role,
	}, "platform role updated")
}
