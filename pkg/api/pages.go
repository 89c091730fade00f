package api

import (
	"html/template"
	"net/http"

	"github.com/openlearnhq/atrium/pkg/scope"
)

var pageTemplates = template.Must(template.New("pages").Parse(`
{{define "layout_head"}}<!DOCTYPE html>
<html><head><title>{{.Title}} - Atrium</title></head><body>
<header><a href="/">Atrium</a></header>
{{end}}
{{define "layout_foot"}}</body></html>{{end}}

{{define "home"}}{{template "layout_head" .}}
<h1>Welcome to Atrium</h1>
{{if .AccountID}}<p>Signed in. <a href="/account">Your account</a></p>
{{else}}<p><a href="/login">Sign in</a></p>{{end}}
{{template "layout_foot" .}}{{end}}

{{define "login"}}{{template "layout_head" .}}
<h1>Sign in</h1>
<p>Single sign-on is not configured on this deployment.</p>
{{template "layout_foot" .}}{{end}}

{{define "forbidden"}}{{template "layout_head" .}}
<h1>Access denied</h1>
<p>You do not have access to that page.</p>
{{template "layout_foot" .}}{{end}}

{{define "account"}}{{template "layout_head" .}}
<h1>Your account</h1>
<p>Account ID: {{.AccountID}}</p>
{{if .Workspaces}}<h2>Your workspaces</h2><ul>
{{range .Workspaces}}<li><a href="/workspaces/{{.ID}}">{{.Name}}</a></li>{{end}}
</ul>{{end}}
{{template "layout_foot" .}}{{end}}

{{define "dashboard"}}{{template "layout_head" .}}
<h1>{{.Workspace.Name}}</h1>
<p>Your role: {{.Role}}</p>
{{if .Courses}}<h2>Courses</h2><ul>
{{range .Courses}}<li>{{.Title}}</li>{{end}}
</ul>{{else}}<p>No courses yet.</p>{{end}}
{{template "layout_foot" .}}{{end}}

{{define "profile"}}{{template "layout_head" .}}
<h1>{{.Workspace.Name}} - Profile</h1>
<p>Account ID: {{.AccountID}}</p>
<p>Role: {{.Role}}</p>
{{if .Enrollments}}<h2>Your enrollments</h2><ul>
{{range .Enrollments}}<li>{{.CourseID}} ({{.Status}})</li>{{end}}
</ul>{{end}}
{{template "layout_foot" .}}{{end}}

{{define "settings"}}{{template "layout_head" .}}
<h1>{{.Workspace.Name}} - Settings</h1>
<p>Workspace slug: {{.Workspace.Slug}}</p>
{{if .Members}}<h2>Members</h2><ul>
{{range .Members}}<li>{{.Email}} - {{.Role}}</li>{{end}}
</ul>{{end}}
{{template "layout_foot" .}}{{end}}
`))

type pageData struct {
	Title       string
	AccountID   string
	Role        interface{}
	Workspace   interface{}
	Workspaces  interface{}
	Courses     interface{}
	Enrollments interface{}
	Members     interface{}
}

func (s *Server) render(w http.ResponseWriter, name string, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pageTemplates.ExecuteTemplate(w, name, data); err != nil {
		s.logger.WithError(err).Error("page render failed")
	}
}

func (s *Server) homePage(w http.ResponseWriter, r *http.Request, ec *scope.ExecutionContext) {
	data := pageData{Title: "Home"}
	if ec != nil {
		data.AccountID = ec.AccountID()
	}
	s.render(w, "home", data)
}

func (s *Server) loginPage(w http.ResponseWriter, r *http.Request, _ *scope.ExecutionContext) {
	s.render(w, "login", pageData{Title: "Sign in"})
}

func (s *Server) forbiddenPage(w http.ResponseWriter, r *http.Request, _ *scope.ExecutionContext) {
	w.WriteHeader(http.StatusForbidden)
	s.render(w, "forbidden", pageData{Title: "Access denied"})
}

func (s *Server) accountPage(w http.ResponseWriter, r *http.Request, ec *scope.ExecutionContext) {
	list, err := s.workspaces.ListWorkspaces(r.Context(), ec.AccountID())
	if err != nil {
		s.logger.WithError(err).Error("listing workspaces for account page")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	s.render(w, "account", pageData{
		Title:      "Your account",
		AccountID:  ec.AccountID(),
		Workspaces: list,
	})
}

func (s *Server) dashboardPage(w http.ResponseWriter, r *http.Request, ec *scope.ExecutionContext) {
	courses, err := ec.Content.ListCourses(r.Context(), !isStaff(ec))
	if err != nil {
		s.logger.WithError(err).Error("listing courses for dashboard")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	s.render(w, "dashboard", pageData{
		Title:     ec.Workspace.Name,
		AccountID: ec.AccountID(),
		Role:      ec.Role(),
		Workspace: ec.Workspace,
		Courses:   courses,
	})
}

func (s *Server) profilePage(w http.ResponseWriter, r *http.Request, ec *scope.ExecutionContext) {
	enrollments, err := ec.Content.ListAccountEnrollments(r.Context(), ec.AccountID())
	if err != nil {
		s.logger.WithError(err).Error("listing enrollments for profile")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	s.render(w, "profile", pageData{
		Title:       "Profile",
		AccountID:   ec.AccountID(),
		Role:        ec.Role(),
		Workspace:   ec.Workspace,
		Enrollments: enrollments,
	})
}

func (s *Server) settingsPage(w http.ResponseWriter, r *http.Request, ec *scope.ExecutionContext) {
	members, err := s.workspaces.ListMembers(r.Context(), ec.WorkspaceID())
	if err != nil {
		s.logger.WithError(err).Error("listing members for settings")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	s.render(w, "settings", pageData{
		Title:     "Settings",
		AccountID: ec.AccountID(),
		Role:      ec.Role(),
		Workspace: ec.Workspace,
		Members:   members,
	})
}
