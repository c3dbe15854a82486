package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/tripstack/attractions-api/internal/dto"
	"github.com/tripstack/attractions-api/internal/middleware"
	"github.com/tripstack/attractions-api/internal/service"
	"github.com/tripstack/attractions-api/pkg/response"
)

// AuthHandler handles authentication HTTP requests
type AuthHandler struct {
	authService service.AuthService
	secure      bool
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(authService service.AuthService, secureCookies bool) *AuthHandler {
	return &AuthHandler{authService: authService, secure: secureCookies}
}

// Signup handles account creation
// POST /auth/signup
func (h *AuthHandler) Signup(c *gin.Context) {
	var req dto.SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	user, err := h.authService.Signup(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrEmailTaken) {
			response.Conflict(c, "Email already in use.")
			return
		}
		response.InternalError(c, err)
		return
	}

	response.Created(c, dto.AuthResponse{User: dto.UserFromDomain(user)})
}

// Login opens a session and attaches the credential cookies
// POST /auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	user, pair, err := h.authService.Login(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			response.Unauthorized(c, "Invalid email or password")
			return
		}
		response.InternalError(c, err)
		return
	}

	middleware.SetSessionCookies(c, pair, strconv.FormatInt(user.ID, 10), h.secure)
	response.Success(c, dto.AuthResponse{User: dto.UserFromDomain(user)})
}

// Logout clears the session cookies. Token revocation happens when a
// user id can be derived from the supplied cookies; a bare logout
// still succeeds.
// POST /auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	if idStr, err := c.Cookie(middleware.UserIDKey); err == nil {
		if id, err := strconv.ParseInt(idStr, 10, 64); err == nil {
			if err := h.authService.Logout(c.Request.Context(), id); err != nil {
				response.InternalError(c, err)
				return
			}
		}
	}

	middleware.ClearSessionCookies(c, h.secure)
	response.Success(c, gin.H{"detail": "Logged out"})
}

// Me returns the authenticated user
// GET /auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Unauthorized(c, "Missing authentication tokens")
		return
	}

	user, err := h.authService.GetUser(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, service.ErrUnknownIdentity) {
			response.NotFound(c, "User not found")
			return
		}
		response.InternalError(c, err)
		return
	}
	response.Success(c, dto.UserFromDomain(user))
}
