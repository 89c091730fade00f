// Package api assembles the HTTP surface: route registration, the JSON
// handlers, and the server-rendered pages, all behind the guards.
package api

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/openlearnhq/atrium/pkg/auth"
	"github.com/openlearnhq/atrium/pkg/billing"
	"github.com/openlearnhq/atrium/pkg/guard"
	"github.com/openlearnhq/atrium/pkg/httputil"
	"github.com/openlearnhq/atrium/pkg/observability"
	"github.com/openlearnhq/atrium/pkg/sso"
	"github.com/openlearnhq/atrium/pkg/workspaces"
)

// AccountService is the slice of the account store the API needs:
// profile reads, email lookup for invitations, and platform role
// grants.
type AccountService interface {
	GetAccount(ctx context.Context, id string) (*auth.Account, error)
	GetAccountByEmail(ctx context.Context, email string) (*auth.Account, error)
	SetPlatformRole(ctx context.Context, accountID string, role auth.Role) error
}

// SessionRevoker invalidates every live session of an account. Used
// when a platform role changes so the old role cannot be carried by an
// existing session.
type SessionRevoker interface {
	RevokeAccountSessions(ctx context.Context, accountID string) (int64, error)
}

// Server is the application HTTP server.
type Server struct {
	router     *mux.Router
	guard      *guard.Guard
	workspaces workspaces.Service
	accounts   AccountService
	sessions   SessionRevoker
	billing    *billing.Service
	sso        *sso.Handlers
	logger     *observability.Logger
	metrics    *observability.Metrics
	baseURL    string
}

type ServerOptions struct {
	Guard      *guard.Guard
	Workspaces workspaces.Service
	Accounts   AccountService
	Sessions   SessionRevoker
	Billing    *billing.Service
	SSO        *sso.Handlers
	Logger     *observability.Logger
	Metrics    *observability.Metrics
	BaseURL    string
	Tracing    bool

	// AllowedOrigins enables CORS when non-empty.
	AllowedOrigins []string
}

func NewServer(opts ServerOptions) *Server {
	s := &Server{
		router:     mux.NewRouter(),
		guard:      opts.Guard,
		workspaces: opts.Workspaces,
		accounts:   opts.Accounts,
		sessions:   opts.Sessions,
		billing:    opts.Billing,
		sso:        opts.SSO,
		logger:     opts.Logger,
		metrics:    opts.Metrics,
		baseURL:    opts.BaseURL,
	}
	if s.logger == nil {
		s.logger = observability.NewLogger(observability.InfoLevel, nil)
	}

	s.router.Use(httputil.RequestIDMiddleware)
	s.router.Use(httputil.RecoveryMiddleware(s.logger))
	s.router.Use(httputil.LoggingMiddleware(s.logger))
	if s.metrics != nil {
		s.router.Use(httputil.MetricsMiddleware(s.metrics))
	}
	if len(opts.AllowedOrigins) > 0 {
		s.router.Use(httputil.CORSMiddleware(opts.AllowedOrigins))
	}
	if opts.Tracing {
		s.router.Use(func(next http.Handler) http.Handler {
			return otelhttp.NewHandler(next, "atrium.http")
		})
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	// Pages.
	s.router.HandleFunc("/", s.guard.Page(s.homePage)).Methods("GET")
	s.router.HandleFunc("/forbidden", s.guard.Page(s.forbiddenPage)).Methods("GET")
	s.router.HandleFunc("/account", s.guard.Page(s.accountPage)).Methods("GET")
	s.router.HandleFunc("/workspaces/{ws}", s.guard.Page(s.dashboardPage)).Methods("GET")
	s.router.HandleFunc("/workspaces/{ws}/profile", s.guard.Page(s.profilePage)).Methods("GET")
	s.router.HandleFunc("/workspaces/{ws}/settings", s.guard.Page(s.settingsPage)).Methods("GET")

	// Login flow.
	if s.sso != nil {
		s.router.HandleFunc("/login", s.sso.Login).Methods("GET")
		s.router.HandleFunc("/auth/callback", s.sso.Callback).Methods("GET")
		s.router.HandleFunc("/logout", s.sso.Logout).Methods("GET", "POST")
	} else {
		s.router.HandleFunc("/login", s.guard.Page(s.loginPage)).Methods("GET")
	}

	// Session introspection.
	s.router.HandleFunc("/api/me", s.guard.API(s.getMe)).Methods("GET")

	// Workspace management.
	s.router.HandleFunc("/api/workspaces", s.guard.API(s.listWorkspaces)).Methods("GET")
	s.router.HandleFunc("/api/workspaces", s.guard.API(s.createWorkspace)).Methods("POST")
	s.router.HandleFunc("/api/workspaces/{ws}", s.guard.API(s.getWorkspace)).Methods("GET")

	// Members.
	s.router.HandleFunc("/api/workspaces/{ws}/members", s.guard.API(s.listMembers)).Methods("GET")
	s.router.HandleFunc("/api/workspaces/{ws}/members", s.guard.API(s.addMember)).Methods("POST")
	s.router.HandleFunc("/api/workspaces/{ws}/members/{account}", s.guard.API(s.updateMember)).Methods("PUT")
	s.router.HandleFunc("/api/workspaces/{ws}/members/{account}", s.guard.API(s.removeMember)).Methods("DELETE")

	// Catalog.
	s.router.HandleFunc("/api/workspaces/{ws}/subjects", s.guard.API(s.listSubjects)).Methods("GET")
	s.router.HandleFunc("/api/workspaces/{ws}/subjects", s.guard.API(s.createSubject)).Methods("POST")
	s.router.HandleFunc("/api/workspaces/{ws}/subjects/{subject}", s.guard.API(s.deleteSubject)).Methods("DELETE")
	s.router.HandleFunc("/api/workspaces/{ws}/courses", s.guard.API(s.listCourses)).Methods("GET")
	s.router.HandleFunc("/api/workspaces/{ws}/courses", s.guard.API(s.createCourse)).Methods("POST")
	s.router.HandleFunc("/api/workspaces/{ws}/courses/{course}", s.guard.API(s.getCourse)).Methods("GET")
	s.router.HandleFunc("/api/workspaces/{ws}/courses/{course}", s.guard.API(s.updateCourse)).Methods("PUT")
	s.router.HandleFunc("/api/workspaces/{ws}/courses/{course}", s.guard.API(s.deleteCourse)).Methods("DELETE")

	// Enrollment.
	s.router.HandleFunc("/api/workspaces/{ws}/courses/{course}/enrollments", s.guard.API(s.listCourseEnrollments)).Methods("GET")
	s.router.HandleFunc("/api/workspaces/{ws}/courses/{course}/enrollments", s.guard.API(s.enroll)).Methods("POST")
	s.router.HandleFunc("/api/workspaces/{ws}/enrollments", s.guard.API(s.listMyEnrollments)).Methods("GET")
	s.router.HandleFunc("/api/workspaces/{ws}/enrollments/{enrollment}", s.guard.API(s.cancelEnrollment)).Methods("DELETE")

	// Billing.
	if s.billing != nil {
		s.router.HandleFunc("/api/workspaces/{ws}/courses/{course}/checkout", s.guard.API(s.startCheckout)).Methods("POST")
		s.router.HandleFunc("/api/workspaces/{ws}/purchases", s.guard.API(s.listPurchases)).Methods("GET")
	}

	// Platform administration.
	s.router.HandleFunc("/api/admin/accounts/{account}/platform-role", s.guard.API(s.setPlatformRole)).Methods("PUT")
	s.router.HandleFunc("/api/admin/workspaces", s.guard.API(s.adminListWorkspaces)).Methods("GET")
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
