package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type jwksFixture struct {
	privateKey *rsa.PrivateKey
	server     *httptest.Server
	fetches    atomic.Int32
}

func newJWKSFixture(t *testing.T) *jwksFixture {
	t.Helper()
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}
	fixture := &jwksFixture{privateKey: privateKey}
	document := map[string]any{
		"keys": []any{
			map[string]string{
				"kty": "RSA",
				"alg": "RS256",
				"kid": "test-key",
				"use": "sig",
				"n":   encodeBigInt(privateKey.PublicKey.N),
				"e":   encodeBigInt(privateKey.PublicKey.E),
			},
		},
	}
	fixture.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/oauth2/v3/certs" {
			http.NotFound(w, r)
			return
		}
		fixture.fetches.Add(1)
		_ = json.NewEncoder(w).Encode(document)
	}))
	t.Cleanup(fixture.server.Close)
	return fixture
}

func (f *jwksFixture) verifier(t *testing.T) *GoogleVerifier {
	t.Helper()
	verifier, err := NewGoogleVerifier(GoogleVerifierConfig{
		Audience:   "test-client",
		JWKSURL:    f.server.URL + "/oauth2/v3/certs",
		HTTPClient: f.server.Client(),
	})
	if err != nil {
		t.Fatalf("unexpected constructor error: %v", err)
	}
	return verifier
}

func (f *jwksFixture) sign(t *testing.T, overrides jwt.MapClaims) string {
	t.Helper()
	now := time.Now().UTC()
	claims := jwt.MapClaims{
		"aud":            "test-client",
		"iss":            "https://accounts.google.com",
		"sub":            "google-123",
		"email":          "Lifter@Example.com",
		"email_verified": true,
		"name":           "Test Lifter",
		"exp":            now.Add(5 * time.Minute).Unix(),
		"iat":            now.Unix(),
	}
	for key, value := range overrides {
		if value == nil {
			delete(claims, key)
			continue
		}
		claims[key] = value
	}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = "test-key"
	signed, err := token.SignedString(f.privateKey)
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return signed
}

func TestGoogleVerifierReturnsNormalizedEmail(t *testing.T) {
	fixture := newJWKSFixture(t)
	verifier := fixture.verifier(t)

	verified, err := verifier.Verify(context.Background(), fixture.sign(t, nil))
	if err != nil {
		t.Fatalf("expected verification to succeed: %v", err)
	}
	if verified.Subject != "google-123" {
		t.Fatalf("unexpected subject %s", verified.Subject)
	}
	if verified.Email != "lifter@example.com" || !verified.EmailVerified {
		t.Fatalf("unexpected email claims %#v", verified)
	}
	if verified.Name != "Test Lifter" {
		t.Fatalf("unexpected name %q", verified.Name)
	}

	if _, err := verifier.Verify(context.Background(), fixture.sign(t, nil)); err != nil {
		t.Fatalf("second verification failed: %v", err)
	}
	if fetches := fixture.fetches.Load(); fetches != 1 {
		t.Fatalf("expected cached key set, fetched %d times", fetches)
	}
}

func TestGoogleVerifierRejectsBadTokens(t *testing.T) {
	fixture := newJWKSFixture(t)
	verifier := fixture.verifier(t)

	tests := []struct {
		name      string
		overrides jwt.MapClaims
		want      error
	}{
		{name: "wrong-audience", overrides: jwt.MapClaims{"aud": "unexpected-client"}},
		{name: "untrusted-issuer", overrides: jwt.MapClaims{"iss": "https://evil.example.com"}, want: errUntrustedIssuer},
		{name: "unverified-email", overrides: jwt.MapClaims{"email_verified": false}, want: errUnverifiedEmail},
		{name: "missing-subject", overrides: jwt.MapClaims{"sub": nil}, want: errMissingSubject},
		{name: "expired", overrides: jwt.MapClaims{"exp": time.Now().Add(-time.Hour).Unix()}, want: jwt.ErrTokenExpired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := verifier.Verify(context.Background(), fixture.sign(t, tt.overrides))
			if err == nil {
				t.Fatalf("expected verification to fail")
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}

	if _, err := verifier.Verify(context.Background(), ""); !errors.Is(err, errMissingToken) {
		t.Fatalf("expected errMissingToken, got %v", err)
	}
}

func TestNewGoogleVerifierRequiresAudienceAndJWKS(t *testing.T) {
	_, err := NewGoogleVerifier(GoogleVerifierConfig{
		Audience: "",
		JWKSURL:  "https://example.com/jwks",
	})
	if !errors.Is(err, ErrInvalidVerifierConfig) {
		t.Fatalf("expected invalid verifier config error, got %v", err)
	}
	if !strings.Contains(err.Error(), errMissingAudienceConfig.Error()) {
		t.Fatalf("expected audience validation error to be reported, got %v", err)
	}

	_, err = NewGoogleVerifier(GoogleVerifierConfig{
		Audience: "test-client",
		JWKSURL:  " ",
	})
	if !errors.Is(err, ErrInvalidVerifierConfig) {
		t.Fatalf("expected invalid verifier config error, got %v", err)
	}

	_, err = NewGoogleVerifier(GoogleVerifierConfig{
		Audience:       "test-client",
		JWKSURL:        "https://example.com/jwks",
		AllowedIssuers: []string{"", "   "},
	})
	if !errors.Is(err, ErrInvalidVerifierConfig) || !strings.Contains(err.Error(), errNoAllowedIssuers.Error()) {
		t.Fatalf("expected allowed issuers validation error, got %v", err)
	}
}

func encodeBigInt(value interface{}) string {
	switch v := value.(type) {
	case *big.Int:
		return base64.RawURLEncoding.EncodeToString(v.Bytes())
	case int:
		return base64.RawURLEncoding.EncodeToString(big.NewInt(int64(v)).Bytes())
	default:
		return ""
	}
}
