package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/misicnenad/fith-on/internal/auth"
	"github.com/misicnenad/fith-on/internal/sections"
	"go.uber.org/zap"
)

const (
	userKeyContextKey        = "fithon_user_key"
	defaultHeartbeatInterval = 25 * time.Second
)

var (
	errMissingGoogleVerifier = errors.New("google verifier dependency required")
	errMissingTokenManager   = errors.New("token manager dependency required")
	errMissingUserResolver   = errors.New("user resolver dependency required")
	errMissingSectionStore   = errors.New("section store dependency required")
)

type GoogleVerifier interface {
	Verify(ctx context.Context, token string) (auth.GoogleClaims, error)
}

type TokenManager interface {
	IssueToken(userKey string) (string, int64, error)
	ValidateToken(token string) (string, error)
}

type UserResolver interface {
	ResolveUserKey(ctx context.Context, claims auth.GoogleClaims) (string, error)
}

// SectionStore is the persistence contract shared by the GORM and PostgreSQL stores.
type SectionStore interface {
	GetSections(ctx context.Context, userKey string) ([]sections.Section, error)
	AddSection(ctx context.Context, userKey string, section sections.Section) error
	UpdateSection(ctx context.Context, userKey string, section sections.Section) error
	RemoveSection(ctx context.Context, userKey string, sectionID sections.SectionID) error
	LogFailure(ctx context.Context, userKey, operation, message string) error
}

type Dependencies struct {
	GoogleVerifier    GoogleVerifier
	TokenManager      TokenManager
	Users             UserResolver
	Sections          SectionStore
	Realtime          *RealtimeDispatcher
	Metrics           *Metrics
	CookieName        string
	AllowedOrigins    []string
	HeartbeatInterval time.Duration
	Logger            *zap.Logger
}

func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.GoogleVerifier == nil {
		return nil, errMissingGoogleVerifier
	}
	if deps.TokenManager == nil {
		return nil, errMissingTokenManager
	}
	if deps.Users == nil {
		return nil, errMissingUserResolver
	}
	if deps.Sections == nil {
		return nil, errMissingSectionStore
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	realtime := deps.Realtime
	if realtime == nil {
		realtime = NewRealtimeDispatcher()
	}
	metrics := deps.Metrics
	if metrics == nil {
		var err error
		metrics, err = NewMetrics(nil)
		if err != nil {
			return nil, err
		}
	}
	heartbeat := deps.HeartbeatInterval
	if heartbeat <= 0 {
		heartbeat = defaultHeartbeatInterval
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware(deps.AllowedOrigins))
	router.Use(metrics.middleware())

	handler := &httpHandler{
		verifier:      deps.GoogleVerifier,
		tokens:        deps.TokenManager,
		authenticator: auth.NewRequestAuthenticator(deps.TokenManager, deps.CookieName),
		users:         deps.Users,
		store:         deps.Sections,
		realtime:      realtime,
		metrics:       metrics,
		cookieName:    strings.TrimSpace(deps.CookieName),
		heartbeat:     heartbeat,
		logger:        logger,
	}

	router.GET("/healthz", handler.handleHealth)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))
	router.POST("/auth/google", handler.handleGoogleAuth)

	protected := router.Group("/api/v1")
	protected.Use(handler.authorizeRequest)
	protected.GET("/sections", handler.handleListSections)
	protected.POST("/sections", handler.handleAddSection)
	protected.GET("/sections/stream", handler.handleSectionStream)
	protected.PUT("/sections/:id", handler.handleUpdateSection)
	protected.DELETE("/sections/:id", handler.handleRemoveSection)
	protected.POST("/logs", handler.handleFailureLog)

	return router, nil
}

func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	config := cors.Config{
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}
	origins := make([]string, 0, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	if len(origins) == 0 {
		config.AllowAllOrigins = true
	} else {
		config.AllowOrigins = origins
		config.AllowCredentials = true
	}
	return cors.New(config)
}

type httpHandler struct {
	verifier      GoogleVerifier
	tokens        TokenManager
	authenticator *auth.RequestAuthenticator
	users         UserResolver
	store         SectionStore
	realtime      *RealtimeDispatcher
	metrics       *Metrics
	cookieName    string
	heartbeat     time.Duration
	logger        *zap.Logger
}

type authRequestPayload struct {
	IDToken string `json:"id_token"`
}

type authResponsePayload struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

func (h *httpHandler) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *httpHandler) handleGoogleAuth(c *gin.Context) {
	var request authRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil || strings.TrimSpace(request.IDToken) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	claims, err := h.verifier.Verify(c.Request.Context(), request.IDToken)
	if err != nil {
		h.logger.Warn("google token verification failed", zap.Error(err))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	userKey, err := h.users.ResolveUserKey(c.Request.Context(), claims)
	if err != nil {
		h.logger.Error("failed to resolve user key", zap.String("subject", claims.Subject), zap.Error(err))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "identity_unresolved"})
		return
	}

	token, expiresIn, err := h.tokens.IssueToken(userKey)
	if err != nil {
		h.logger.Error("failed to issue backend token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token_issue_failed"})
		return
	}

	if h.cookieName != "" {
		c.SetSameSite(http.SameSiteStrictMode)
		c.SetCookie(h.cookieName, token, int(expiresIn), "/", "", c.Request.TLS != nil, true)
	}
	c.JSON(http.StatusOK, authResponsePayload{
		AccessToken: token,
		ExpiresIn:   expiresIn,
		TokenType:   "Bearer",
	})
}

func (h *httpHandler) authorizeRequest(c *gin.Context) {
	userKey, err := h.authenticator.Authenticate(c.Request)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrMissingCredentials):
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing_credentials"})
			return
		case errors.Is(err, auth.ErrExpiredToken):
			h.logger.Info("token validation failed", zap.Error(err))
		default:
			h.logger.Warn("token validation failed", zap.Error(err))
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	c.Set(userKeyContextKey, userKey)
	c.Next()
}
