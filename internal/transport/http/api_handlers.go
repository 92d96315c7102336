package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-presence/internal/auth"
)

// APIHandlers serves account endpoints: managers and trackers both sign
// in here to get the bearer token the room RPCs require.
type APIHandlers struct {
	authService *auth.Service
	log         *zerolog.Logger
}

// NewAPIHandlers creates the account handlers.
func NewAPIHandlers(authService *auth.Service, logger *zerolog.Logger) *APIHandlers {
	return &APIHandlers{
		authService: authService,
		log:         logger,
	}
}

// CredentialsRequest is the register and login body. Length rules are
// enforced by the auth service.
type CredentialsRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// AuthResponse carries the issued token and what it grants.
type AuthResponse struct {
	Token     string `json:"token"`
	Username  string `json:"username"`
	IsManager bool   `json:"is_manager"`
}

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Register handles user registration.
// POST /api/register
func (h *APIHandlers) Register(c *gin.Context) {
	req, ok := h.bindCredentials(c)
	if !ok {
		return
	}

	token, err := h.authService.Register(c.Request.Context(), req.Username, req.Password)
	switch {
	case err == nil:
		h.respondToken(c, http.StatusCreated, token, "user registered")
	case errors.Is(err, auth.ErrUserExists):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "user already exists"})
	case errors.Is(err, auth.ErrInvalidUsername), errors.Is(err, auth.ErrInvalidPassword):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	default:
		h.log.Error().Err(err).Str("username", req.Username).Msg("failed to register user")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
	}
}

// Login handles user login.
// POST /api/login
func (h *APIHandlers) Login(c *gin.Context) {
	req, ok := h.bindCredentials(c)
	if !ok {
		return
	}

	token, err := h.authService.Login(c.Request.Context(), req.Username, req.Password)
	switch {
	case err == nil:
		h.respondToken(c, http.StatusOK, token, "user logged in")
	case errors.Is(err, auth.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid credentials"})
	default:
		h.log.Error().Err(err).Str("username", req.Username).Msg("failed to login user")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
	}
}

func (h *APIHandlers) bindCredentials(c *gin.Context) (CredentialsRequest, bool) {
	var req CredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Str("path", c.FullPath()).Msg("invalid credentials body")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return req, false
	}
	return req, true
}

// respondToken reads the grants back from a freshly issued token.
func (h *APIHandlers) respondToken(c *gin.Context, status int, token, event string) {
	claims, err := h.authService.ValidateToken(token)
	if err != nil {
		h.log.Error().Err(err).Msg("issued token does not validate")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	h.log.Info().Str("username", claims.Username).Bool("is_manager", claims.IsManager).Msg(event)
	c.JSON(status, AuthResponse{Token: token, Username: claims.Username, IsManager: claims.IsManager})
}
