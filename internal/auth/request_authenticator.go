package auth

import (
	"errors"
	"net/http"
	"strings"
)

const (
	// AccessTokenQueryParameter carries the token for clients that cannot set headers,
	// such as browser EventSource streams.
	AccessTokenQueryParameter = "access_token"
	bearerPrefix              = "bearer "
)

// ErrMissingCredentials indicates a request without any token.
var ErrMissingCredentials = errors.New("auth: credentials required")

// TokenValidator resolves a backend token to a user key.
type TokenValidator interface {
	ValidateToken(token string) (string, error)
}

// RequestAuthenticator extracts and validates the backend token of an HTTP request.
// The Authorization header wins over the query parameter, which wins over the cookie.
type RequestAuthenticator struct {
	validator  TokenValidator
	cookieName string
}

// NewRequestAuthenticator constructs an authenticator. An empty cookie name disables
// cookie lookups.
func NewRequestAuthenticator(validator TokenValidator, cookieName string) *RequestAuthenticator {
	return &RequestAuthenticator{
		validator:  validator,
		cookieName: strings.TrimSpace(cookieName),
	}
}

// Authenticate returns the user key bound to the request's token.
func (a *RequestAuthenticator) Authenticate(r *http.Request) (string, error) {
	if r == nil || a.validator == nil {
		return "", ErrMissingCredentials
	}
	token := tokenFromRequest(r, a.cookieName)
	if token == "" {
		return "", ErrMissingCredentials
	}
	return a.validator.ValidateToken(token)
}

func tokenFromRequest(r *http.Request, cookieName string) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(header) > len(bearerPrefix) && strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		return strings.TrimSpace(header[len(bearerPrefix):])
	}
	if token := strings.TrimSpace(r.URL.Query().Get(AccessTokenQueryParameter)); token != "" {
		return token
	}
	if cookieName == "" {
		return ""
	}
	cookie, err := r.Cookie(cookieName)
	if err != nil || cookie == nil {
		return ""
	}
	return strings.TrimSpace(cookie.Value)
}
