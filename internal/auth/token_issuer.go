package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const defaultTokenTTL = 12 * time.Hour

var (
	// ErrMissingSigningSecret indicates an issuer configured without a signing key.
	ErrMissingSigningSecret = errors.New("auth: signing secret must be provided")
	// ErrMissingUserKey indicates a token request or token without a user key.
	ErrMissingUserKey = errors.New("auth: user key must be provided")
	// ErrInvalidToken indicates a backend token that failed validation.
	ErrInvalidToken = errors.New("auth: invalid token")
	// ErrExpiredToken indicates a backend token past its expiry.
	ErrExpiredToken = errors.New("auth: token expired")
)

// BackendClaims is the payload of tokens issued to signed-in clients.
type BackendClaims struct {
	UserKey string `json:"user_key"`
	jwt.RegisteredClaims
}

// TokenIssuerConfig configures the backend JWT issuer.
type TokenIssuerConfig struct {
	SigningSecret []byte
	Issuer        string
	Audience      string
	TokenTTL      time.Duration
	Clock         func() time.Time
}

// TokenIssuer issues and validates HS256 backend tokens bound to a user key.
type TokenIssuer struct {
	secret   []byte
	issuer   string
	audience string
	ttl      time.Duration
	clock    func() time.Time
}

// NewTokenIssuer constructs a TokenIssuer, defaulting the TTL and clock.
func NewTokenIssuer(cfg TokenIssuerConfig) (*TokenIssuer, error) {
	if len(cfg.SigningSecret) == 0 {
		return nil, ErrMissingSigningSecret
	}
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &TokenIssuer{
		secret:   append([]byte(nil), cfg.SigningSecret...),
		issuer:   strings.TrimSpace(cfg.Issuer),
		audience: strings.TrimSpace(cfg.Audience),
		ttl:      ttl,
		clock:    clock,
	}, nil
}

// IssueToken signs a token for the user key and returns it with its lifetime in seconds.
func (i *TokenIssuer) IssueToken(userKey string) (string, int64, error) {
	key := strings.TrimSpace(userKey)
	if key == "" {
		return "", 0, ErrMissingUserKey
	}

	now := i.clock().UTC()
	expiresAt := now.Add(i.ttl)
	claims := BackendClaims{
		UserKey: key,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   key,
			Issuer:    i.issuer,
			Audience:  []string{i.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", 0, err
	}
	return signed, int64(expiresAt.Sub(now).Seconds()), nil
}

// ValidateToken checks signature, issuer, audience and expiry and returns the user key.
func (i *TokenIssuer) ValidateToken(tokenString string) (string, error) {
	token := strings.TrimSpace(tokenString)
	if token == "" {
		return "", ErrInvalidToken
	}

	claims := &BackendClaims{}
	_, err := jwt.ParseWithClaims(
		token,
		claims,
		func(parsed *jwt.Token) (interface{}, error) {
			if parsed.Method.Alg() != jwt.SigningMethodHS256.Alg() {
				return nil, fmt.Errorf("unexpected signing algorithm: %s", parsed.Method.Alg())
			}
			return i.secret, nil
		},
		jwt.WithAudience(i.audience),
		jwt.WithIssuer(i.issuer),
		jwt.WithTimeFunc(i.clock),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrExpiredToken
		}
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if strings.TrimSpace(claims.UserKey) == "" {
		return "", ErrMissingUserKey
	}
	return claims.UserKey, nil
}
