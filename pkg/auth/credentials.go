package auth

import (
	"net/http"
	"strings"
	"time"
)

// Default cookie names. The refresh and account cookies mirror the
// session cookie's attribute shape.
const (
	SessionCookieName = "atrium_session"
	RefreshCookieName = "atrium_refresh"
	AccountCookieName = "atrium_account"
)

// CookieConfig describes the attributes shared by the platform cookies
type CookieConfig struct {
	Name     string
	Path     string
	Domain   string
	Secure   bool
	HTTPOnly bool
	SameSite http.SameSite
	MaxAge   time.Duration
}

// Bake produces an http.Cookie carrying value with this configuration
func (c CookieConfig) Bake(value string) *http.Cookie {
	cookie := &http.Cookie{
		Name:     c.Name,
		Value:    value,
		Path:     c.Path,
		Domain:   c.Domain,
		Secure:   c.Secure,
		HttpOnly: c.HTTPOnly,
		SameSite: c.SameSite,
	}
	if c.MaxAge > 0 {
		cookie.MaxAge = int(c.MaxAge / time.Second)
		cookie.Expires = time.Now().Add(c.MaxAge)
	}
	return cookie
}

// Expire produces a deletion cookie for this configuration
func (c CookieConfig) Expire() *http.Cookie {
	cookie := c.Bake("")
	cookie.MaxAge = -1
	cookie.Expires = time.Unix(0, 0)
	return cookie
}

// CookieSet holds the session cookie and its companions
type CookieSet struct {
	Session CookieConfig
	Refresh CookieConfig
	Account CookieConfig
}

// DefaultCookies returns the production cookie configuration
func DefaultCookies(sessionTTL time.Duration) CookieSet {
	base := CookieConfig{
		Path:     "/",
		Secure:   true,
		HTTPOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   sessionTTL,
	}

	set := CookieSet{Session: base, Refresh: base, Account: base}
	set.Session.Name = SessionCookieName
	set.Refresh.Name = RefreshCookieName
	set.Refresh.MaxAge = sessionTTL * 4
	set.Account.Name = AccountCookieName
	set.Account.HTTPOnly = false // read by the frontend to show who is logged in
	return set
}

// CredentialSource says where a raw credential was carried
type CredentialSource string

const (
	SourceCookie CredentialSource = "cookie"
	SourceBearer CredentialSource = "bearer"
)

// RawCredential is unvalidated credential material read from a request
type RawCredential struct {
	Token  string
	Source CredentialSource
}

// Extractor reads transport-level credentials from inbound requests.
// It is pure: no I/O, no validation beyond token shape, and malformed
// material is reported the same as absent.
type Extractor struct {
	CookieName string
	tokens     *TokenGenerator
}

// NewExtractor creates an extractor for the given session cookie name
func NewExtractor(cookieName string) *Extractor {
	if cookieName == "" {
		cookieName = SessionCookieName
	}
	return &Extractor{CookieName: cookieName, tokens: NewTokenGenerator()}
}

// Extract returns the raw credential carried by the request, or ok=false
// when no usable credential is present. The session cookie is preferred;
// API callers may instead send "Authorization: Bearer <token>".
func (e *Extractor) Extract(r *http.Request) (RawCredential, bool) {
	if cookie, err := r.Cookie(e.CookieName); err == nil && cookie.Value != "" {
		if e.tokens.ValidateTokenFormat(cookie.Value) == nil {
			return RawCredential{Token: cookie.Value, Source: SourceCookie}, true
		}
		// malformed cookie value is treated as absent, not an error
	}

	authHeader := r.Header.Get("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && parts[0] == "Bearer" {
			if e.tokens.ValidateTokenFormat(parts[1]) == nil {
				return RawCredential{Token: parts[1], Source: SourceBearer}, true
			}
		}
	}

	return RawCredential{}, false
}
