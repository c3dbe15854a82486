// Package middleware carries the HTTP session layer: every protected
// request must present the credential triple (access token, refresh
// token, user id) via cookies or headers, and gets rotated tokens
// attached to the response on the same channel.
package middleware

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/tripstack/attractions-api/internal/domain"
	"github.com/tripstack/attractions-api/internal/service"
	"github.com/tripstack/attractions-api/pkg/response"
)

const (
	AccessTokenKey  = "Authorization"
	RefreshTokenKey = "X-Refresh-Token"
	UserIDKey       = "X-User-ID"

	// ContextUserID is the gin context key holding the authenticated
	// user id.
	ContextUserID = "user_id"

	accessCookieMaxAge  = 15 * 60
	refreshCookieMaxAge = 30 * 24 * 60 * 60
)

// SessionConfig holds session middleware configuration
type SessionConfig struct {
	// Secure marks cookies Secure; on in production.
	Secure bool

	// PublicPaths bypass authentication entirely. "/" matches exactly,
	// everything else matches by prefix.
	PublicPaths []string
}

// DefaultPublicPaths are the endpoints reachable without a session.
func DefaultPublicPaths() []string {
	return []string{"/auth/login", "/auth/signup", "/auth/logout", "/docs", "/", "/health", "/ready"}
}

// Session validates and rotates the dual-token session on every
// request. Fresh tokens are attached before the handler runs since
// response headers cannot change once the body streams.
func Session(auth service.AuthService, cfg SessionConfig, logger *zap.Logger) gin.HandlerFunc {
	if len(cfg.PublicPaths) == 0 {
		cfg.PublicPaths = DefaultPublicPaths()
	}

	return func(c *gin.Context) {
		if isPublic(c.Request.URL.Path, cfg.PublicPaths) {
			c.Next()
			return
		}

		creds, fromHeaders, err := extractCredentials(c)
		if err != nil {
			abortWith(c, err)
			return
		}

		userID, pair, err := auth.Refresh(c.Request.Context(), creds)
		if err != nil {
			logger.Debug("session refresh rejected",
				zap.String("path", c.Request.URL.Path),
				zap.Error(err))
			abortWith(c, err)
			return
		}

		userIDStr := strconv.FormatInt(userID, 10)
		if fromHeaders {
			c.Header(AccessTokenKey, pair.AccessToken)
			c.Header(RefreshTokenKey, pair.RefreshToken)
			c.Header(UserIDKey, userIDStr)
		} else {
			SetSessionCookies(c, pair, userIDStr, cfg.Secure)
		}

		c.Set(ContextUserID, userID)
		c.Next()
	}
}

// extractCredentials pulls the triple from cookies or headers, never
// both.
func extractCredentials(c *gin.Context) (domain.Credentials, bool, error) {
	headerCreds := domain.Credentials{
		AccessToken:  c.GetHeader(AccessTokenKey),
		RefreshToken: c.GetHeader(RefreshTokenKey),
		UserID:       c.GetHeader(UserIDKey),
	}
	cookieCreds := domain.Credentials{
		AccessToken:  cookieValue(c, AccessTokenKey),
		RefreshToken: cookieValue(c, RefreshTokenKey),
		UserID:       cookieValue(c, UserIDKey),
	}

	usingHeaders := headerCreds != (domain.Credentials{})
	usingCookies := cookieCreds != (domain.Credentials{})

	switch {
	case usingHeaders && usingCookies:
		return domain.Credentials{}, false, service.ErrAmbiguousCredentials
	case usingHeaders:
		return headerCreds, true, nil
	case usingCookies:
		return cookieCreds, false, nil
	default:
		return domain.Credentials{}, false, service.ErrMissingCredentials
	}
}

func cookieValue(c *gin.Context, name string) string {
	v, err := c.Cookie(name)
	if err != nil {
		return ""
	}
	return v
}

// SetSessionCookies attaches the credential triple as cookies. Also
// used by the login handler.
func SetSessionCookies(c *gin.Context, pair *domain.TokenPair, userID string, secure bool) {
	c.SetSameSite(http.SameSiteNoneMode)
	c.SetCookie(AccessTokenKey, pair.AccessToken, accessCookieMaxAge, "/", "", secure, true)
	c.SetCookie(RefreshTokenKey, pair.RefreshToken, refreshCookieMaxAge, "/", "", secure, true)
	c.SetCookie(UserIDKey, userID, refreshCookieMaxAge, "/", "", secure, true)
}

// ClearSessionCookies expires the credential cookies. Used by logout.
func ClearSessionCookies(c *gin.Context, secure bool) {
	c.SetSameSite(http.SameSiteNoneMode)
	for _, key := range []string{AccessTokenKey, RefreshTokenKey, UserIDKey} {
		c.SetCookie(key, "", -1, "/", "", secure, true)
	}
}

// UserID returns the authenticated user id stored by the middleware.
func UserID(c *gin.Context) (int64, bool) {
	v, ok := c.Get(ContextUserID)
	if !ok {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok
}

func isPublic(path string, publicPaths []string) bool {
	for _, p := range publicPaths {
		if p == "/" {
			if path == "/" {
				return true
			}
			continue
		}
		if len(path) >= len(p) && path[:len(p)] == p {
			return true
		}
	}
	return false
}

func abortWith(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrAmbiguousCredentials):
		response.Error(c, http.StatusBadRequest, "BAD_REQUEST", "Not allowed", "")
	case errors.Is(err, service.ErrMissingCredentials):
		response.Unauthorized(c, "Missing authentication tokens")
	case errors.Is(err, service.ErrSessionExpired):
		response.Unauthorized(c, "Session expired. Please log in again.")
	case errors.Is(err, service.ErrIdentityMismatch):
		response.Unauthorized(c, "User ID mismatch")
	case errors.Is(err, service.ErrUnknownIdentity):
		response.Unauthorized(c, "User not found")
	case errors.Is(err, service.ErrRevokedSession):
		response.Unauthorized(c, "Invalid refresh token")
	default:
		response.Unauthorized(c, "Authentication failed")
	}
	c.Abort()
}
