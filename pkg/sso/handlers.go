package sso

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"net/http"
	"strings"
	"time"

	"github.com/openlearnhq/atrium/pkg/auth"
	"github.com/openlearnhq/atrium/pkg/observability"
)

const stateCookieName = "atrium_oauth_state"

// AccountProvisioner creates or refreshes the local account for a
// verified upstream identity.
type AccountProvisioner interface {
	UpsertAccount(ctx context.Context, email, fullName string) (*auth.Account, error)
}

// SessionCreator mints and revokes login sessions.
type SessionCreator interface {
	CreateSession(ctx context.Context, accountID string, ttl time.Duration) (string, *auth.SessionRecord, error)
	RevokeSession(ctx context.Context, sessionID string) error
}

// CacheInvalidator drops a revoked session from the cache tiers.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, tokenHash string)
}

// Handlers implements the login, callback, and logout endpoints.
type Handlers struct {
	provider  *OIDCProvider
	accounts  AccountProvisioner
	sessions  SessionCreator
	cache     CacheInvalidator
	resolver  *auth.Resolver
	extractor *auth.Extractor
	tokens    *auth.TokenGenerator
	cookies   auth.CookieSet
	ttl       time.Duration
	logger    *observability.Logger
}

type HandlerOptions struct {
	Provider  *OIDCProvider
	Accounts  AccountProvisioner
	Sessions  SessionCreator
	Cache     CacheInvalidator
	Resolver  *auth.Resolver
	Extractor *auth.Extractor
	Cookies   auth.CookieSet
	TTL       time.Duration
	Logger    *observability.Logger
}

func NewHandlers(opts HandlerOptions) *Handlers {
	h := &Handlers{
		provider:  opts.Provider,
		accounts:  opts.Accounts,
		sessions:  opts.Sessions,
		cache:     opts.Cache,
		resolver:  opts.Resolver,
		extractor: opts.Extractor,
		tokens:    auth.NewTokenGenerator(),
		cookies:   opts.Cookies,
		ttl:       opts.TTL,
		logger:    opts.Logger,
	}
	if h.extractor == nil {
		h.extractor = auth.NewExtractor(h.cookies.Session.Name)
	}
	if h.logger == nil {
		h.logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	if h.ttl <= 0 {
		h.ttl = 24 * time.Hour
	}
	return h
}

// Login starts the OIDC flow. The return_to query parameter survives
// the round trip inside the state cookie; the state value itself guards
// against CSRF on the callback.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	state, err := randomState()
	if err != nil {
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	returnTo := sanitizeReturnTo(r.URL.Query().Get("return_to"))
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state + "|" + returnTo,
		Path:     "/",
		MaxAge:   int((10 * time.Minute).Seconds()),
		HttpOnly: true,
		Secure:   h.cookies.Session.Secure,
		SameSite: http.SameSiteLaxMode,
	})

	h.provider.InitiateLogin(w, r, state)
}

// Callback finishes the OIDC flow: state check, code exchange, account
// provisioning, session mint, cookie set, and the return_to redirect.
func (h *Handlers) Callback(w http.ResponseWriter, r *http.Request) {
	stateCookie, err := r.Cookie(stateCookieName)
	if err != nil {
		http.Error(w, "login state missing or expired", http.StatusBadRequest)
		return
	}
	state, returnTo, ok := strings.Cut(stateCookie.Value, "|")
	if !ok || state == "" || r.URL.Query().Get("state") != state {
		http.Error(w, "login state mismatch", http.StatusBadRequest)
		return
	}

	claims, err := h.provider.HandleCallback(r.Context(), r)
	if err != nil {
		h.logger.WithError(err).Warn("OIDC callback failed")
		http.Error(w, "login failed", http.StatusBadGateway)
		return
	}

	account, err := h.accounts.UpsertAccount(r.Context(), claims.Email, claims.Name)
	if err != nil {
		h.logger.WithError(err).Error("account provisioning failed")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	token, _, err := h.sessions.CreateSession(r.Context(), account.ID, h.ttl)
	if err != nil {
		h.logger.WithError(err).Error("session creation failed")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, h.cookies.Session.Bake(token))
	http.SetCookie(w, h.cookies.Account.Bake(account.ID))
	// Clear the one-shot state cookie.
	http.SetCookie(w, &http.Cookie{Name: stateCookieName, Path: "/", MaxAge: -1})

	if returnTo == "" {
		returnTo = "/"
	}
	http.Redirect(w, r, returnTo, http.StatusFound)
}

// Logout revokes the current session and clears the cookies. A request
// without a live session still clears cookies and succeeds.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	if cred, present := h.extractor.Extract(r); present {
		if identity, err := h.resolver.Resolve(r.Context(), cred, true); err == nil {
			if err := h.sessions.RevokeSession(r.Context(), identity.SessionID); err != nil {
				h.logger.WithError(err).Error("session revocation failed")
			}
			if h.cache != nil {
				h.cache.Invalidate(r.Context(), h.tokens.HashToken(cred.Token))
			}
		}
	}

	http.SetCookie(w, h.cookies.Session.Expire())
	http.SetCookie(w, h.cookies.Refresh.Expire())
	http.SetCookie(w, h.cookies.Account.Expire())
	http.Redirect(w, r, "/", http.StatusFound)
}

// sanitizeReturnTo only accepts local absolute paths, keeping the
// redirect on this origin.
func sanitizeReturnTo(target string) string {
	if target == "" || !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") {
		return ""
	}
	if strings.Contains(target, "\\") {
		return ""
	}
	return target
}

func randomState() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
