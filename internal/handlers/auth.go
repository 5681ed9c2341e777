package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	iauth "github.com/renewhub/renewhub/internal/auth"
	"github.com/renewhub/renewhub/internal/middleware"
	"github.com/renewhub/renewhub/internal/models"
	"github.com/renewhub/renewhub/internal/services"
	"github.com/renewhub/renewhub/internal/sweep"
	appErrors "github.com/renewhub/renewhub/pkg/errors"
	"github.com/renewhub/renewhub/pkg/logger"
	"github.com/renewhub/renewhub/pkg/response"
)

// AuthHandler manages authentication flows (register/login/me/password reset).
type AuthHandler struct {
	users      *services.UserService
	settings   *services.SettingsService
	dispatcher *sweep.Dispatcher
	jwt        *iauth.JWTService
	log        *zap.Logger
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(users *services.UserService, settings *services.SettingsService, dispatcher *sweep.Dispatcher, jwt *iauth.JWTService) *AuthHandler {
	return &AuthHandler{
		users:      users,
		settings:   settings,
		dispatcher: dispatcher,
		jwt:        jwt,
		log:        logger.WithModule("auth"),
	}
}

type registerRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Name     string `json:"name" validate:"max=255"`
	Password string `json:"password" validate:"required,min=8"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type forgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type resetPasswordRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Code     string `json:"code" validate:"required"`
	Password string `json:"password" validate:"required,min=8"`
}

type sessionResponse struct {
	AccessToken string       `json:"access_token"`
	User        *models.User `json:"user"`
}

// POST /api/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if !bindAndValidate(c, &req) {
		return
	}

	user, err := h.users.Register(c.Request.Context(), services.RegisterInput{
		Email:    req.Email,
		Name:     req.Name,
		Password: req.Password,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	h.issueSession(c, http.StatusCreated, user)
}

// POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if !bindAndValidate(c, &req) {
		return
	}

	user, err := h.users.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		response.Error(c, err)
		return
	}

	h.issueSession(c, http.StatusOK, user)
}

// GET /api/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	user, err := h.users.GetByID(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, user)
}

// POST /api/auth/forgot-password
//
// Always answers with the same payload whether or not the address exists so
// the endpoint cannot be used to enumerate accounts.
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req forgotPasswordRequest
	if !bindAndValidate(c, &req) {
		return
	}

	acknowledged := gin.H{"message": "If the account exists, a reset code has been sent"}

	code, user, err := h.users.BeginPasswordReset(c.Request.Context(), req.Email)
	if err != nil {
		if !errors.Is(err, services.ErrUserNotFound) {
			h.log.Error("failed to begin password reset", zap.Error(err))
		}
		response.Success(c, http.StatusOK, acknowledged)
		return
	}

	settings, err := h.settings.Get(c.Request.Context())
	if err != nil {
		h.log.Error("failed to load settings for password reset", zap.Error(err))
		response.Success(c, http.StatusOK, acknowledged)
		return
	}

	if err := h.dispatcher.SendPasswordReset(c.Request.Context(), *settings, user.Email, user.Name, code); err != nil {
		h.log.Error("failed to send password reset email",
			zap.String("user_id", user.ID),
			zap.Error(err))
	}

	response.Success(c, http.StatusOK, acknowledged)
}

// POST /api/auth/reset-password
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if !bindAndValidate(c, &req) {
		return
	}

	if err := h.users.CompletePasswordReset(c.Request.Context(), req.Email, req.Code, req.Password); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "Password updated"})
}

func (h *AuthHandler) issueSession(c *gin.Context, status int, user *models.User) {
	token, err := h.jwt.GenerateAccessToken(iauth.AccessTokenInput{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
	})
	if err != nil {
		h.log.Error("failed to issue access token", zap.Error(err))
		response.Error(c, appErrors.ErrInternalServer)
		return
	}

	response.Success(c, status, sessionResponse{AccessToken: token, User: user})
}
