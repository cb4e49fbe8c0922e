package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/misicnenad/fith-on/internal/auth"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newAuthorizeContext(t *testing.T, header string) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	recorder := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(recorder)
	request := httptest.NewRequest(http.MethodGet, "/api/v1/sections", http.NoBody)
	if header != "" {
		request.Header.Set("Authorization", header)
	}
	ctx.Request = request
	return ctx, recorder
}

func TestAuthorizeRequestLogsExpiredTokenAtInfoLevel(t *testing.T) {
	ctx, recorder := newAuthorizeContext(t, "Bearer expired-token")

	core, logs := observer.New(zapcore.DebugLevel)
	tokens := stubTokenManager{validateErr: auth.ErrExpiredToken}
	handler := &httpHandler{
		tokens:        tokens,
		authenticator: auth.NewRequestAuthenticator(tokens, ""),
		logger:        zap.New(core),
	}

	handler.authorizeRequest(ctx)

	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status code: got %d, want %d", recorder.Code, http.StatusUnauthorized)
	}
	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected exactly one log entry, got %d", len(entries))
	}
	entry := entries[0]
	if entry.Level != zapcore.InfoLevel {
		t.Fatalf("expected info level for expired token, got %s", entry.Level)
	}
	if entry.Message != "token validation failed" {
		t.Fatalf("unexpected log message: %q", entry.Message)
	}
	hasExpired := false
	for _, field := range entry.Context {
		if field.Type == zapcore.ErrorType && errors.Is(field.Interface.(error), auth.ErrExpiredToken) {
			hasExpired = true
			break
		}
	}
	if !hasExpired {
		t.Fatalf("expected expired token error context, got %v", entry.Context)
	}
}

func TestAuthorizeRequestLogsUnexpectedTokenErrorAtWarnLevel(t *testing.T) {
	ctx, recorder := newAuthorizeContext(t, "Bearer invalid-token")

	core, logs := observer.New(zapcore.DebugLevel)
	tokens := stubTokenManager{validateErr: errors.New("signature mismatch")}
	handler := &httpHandler{
		tokens:        tokens,
		authenticator: auth.NewRequestAuthenticator(tokens, ""),
		logger:        zap.New(core),
	}

	handler.authorizeRequest(ctx)

	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status code: got %d, want %d", recorder.Code, http.StatusUnauthorized)
	}
	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected exactly one log entry, got %d", len(entries))
	}
	if entries[0].Level != zapcore.WarnLevel {
		t.Fatalf("expected warn level for unexpected error, got %s", entries[0].Level)
	}
}

func TestAuthorizeRequestRejectsMissingCredentialsQuietly(t *testing.T) {
	ctx, recorder := newAuthorizeContext(t, "")

	core, logs := observer.New(zapcore.DebugLevel)
	tokens := stubTokenManager{userKey: "lifter@example.com"}
	handler := &httpHandler{
		tokens:        tokens,
		authenticator: auth.NewRequestAuthenticator(tokens, ""),
		logger:        zap.New(core),
	}

	handler.authorizeRequest(ctx)

	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status code: got %d", recorder.Code)
	}
	if body := recorder.Body.String(); body != `{"error":"missing_credentials"}` {
		t.Fatalf("unexpected response body: %s", body)
	}
	if logs.Len() != 0 {
		t.Fatalf("expected no log entries, got %d", logs.Len())
	}
}

func TestAuthorizeRequestStoresUserKey(t *testing.T) {
	ctx, _ := newAuthorizeContext(t, "Bearer good-token")

	tokens := stubTokenManager{userKey: "lifter@example.com"}
	handler := &httpHandler{
		tokens:        tokens,
		authenticator: auth.NewRequestAuthenticator(tokens, ""),
		logger:        zap.NewNop(),
	}

	handler.authorizeRequest(ctx)

	if ctx.IsAborted() {
		t.Fatalf("expected request to pass authorization")
	}
	if got := ctx.GetString(userKeyContextKey); got != "lifter@example.com" {
		t.Fatalf("unexpected user key in context: %q", got)
	}
}

func TestGoogleAuthIssuesTokenForResolvedUser(t *testing.T) {
	env := newTestEnv(t)

	request := httptest.NewRequest(http.MethodPost, "/auth/google", strings.NewReader(`{"id_token":"google-token"}`))
	request.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	env.handler.ServeHTTP(recorder, request)

	if recorder.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d body=%s", recorder.Code, recorder.Body.String())
	}
	var payload authResponsePayload
	if err := json.Unmarshal(recorder.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to decode auth response: %v", err)
	}
	if payload.TokenType != "Bearer" || payload.ExpiresIn <= 0 {
		t.Fatalf("unexpected auth response: %#v", payload)
	}
	userKey, err := env.issuer.ValidateToken(payload.AccessToken)
	if err != nil {
		t.Fatalf("issued token failed validation: %v", err)
	}
	if userKey != testUserKey {
		t.Fatalf("expected token bound to %s, got %s", testUserKey, userKey)
	}

	var sessionCookie *http.Cookie
	for _, cookie := range recorder.Result().Cookies() {
		if cookie.Name == testCookieName {
			sessionCookie = cookie
		}
	}
	if sessionCookie == nil || sessionCookie.Value != payload.AccessToken || !sessionCookie.HttpOnly {
		t.Fatalf("expected http-only session cookie carrying the token, got %#v", sessionCookie)
	}
}

func TestGoogleAuthRejectsInvalidRequests(t *testing.T) {
	env := newTestEnv(t)

	testCases := []struct {
		name       string
		body       string
		verifier   GoogleVerifier
		wantStatus int
		wantBody   string
	}{
		{name: "empty token", body: `{"id_token":"  "}`, wantStatus: http.StatusBadRequest, wantBody: `{"error":"invalid_request"}`},
		{name: "malformed json", body: `{`, wantStatus: http.StatusBadRequest, wantBody: `{"error":"invalid_request"}`},
		{name: "verification failure", body: `{"id_token":"forged"}`, verifier: stubVerifier{err: errors.New("bad signature")}, wantStatus: http.StatusUnauthorized, wantBody: `{"error":"unauthorized"}`},
		{name: "identity without email", body: `{"id_token":"anonymous"}`, verifier: stubVerifier{claims: auth.GoogleClaims{Subject: "google-999"}}, wantStatus: http.StatusUnauthorized, wantBody: `{"error":"identity_unresolved"}`},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			handler := env.handler
			if testCase.verifier != nil {
				handler = env.rebuild(t, testCase.verifier)
			}
			request := httptest.NewRequest(http.MethodPost, "/auth/google", strings.NewReader(testCase.body))
			request.Header.Set("Content-Type", "application/json")
			recorder := httptest.NewRecorder()
			handler.ServeHTTP(recorder, request)

			if recorder.Code != testCase.wantStatus {
				t.Fatalf("unexpected status: got %d, want %d", recorder.Code, testCase.wantStatus)
			}
			if recorder.Body.String() != testCase.wantBody {
				t.Fatalf("unexpected body: %s", recorder.Body.String())
			}
		})
	}
}

type stubTokenManager struct {
	userKey     string
	validateErr error
}

func (s stubTokenManager) IssueToken(string) (string, int64, error) {
	return "", 0, errors.New("not implemented")
}

func (s stubTokenManager) ValidateToken(string) (string, error) {
	if s.validateErr != nil {
		return "", s.validateErr
	}
	return s.userKey, nil
}

type stubVerifier struct {
	claims auth.GoogleClaims
	err    error
}

func (s stubVerifier) Verify(context.Context, string) (auth.GoogleClaims, error) {
	if s.err != nil {
		return auth.GoogleClaims{}, s.err
	}
	return s.claims, nil
}
