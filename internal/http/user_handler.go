package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"account-lifecycle/internal/service"
)

// UserHandler mantiene dependencias para endpoints de cuentas.
type UserHandler struct {
	logger   *zap.Logger
	accounts *service.AccountService
}

// NewUserHandler crea una instancia de UserHandler con dependencias necesarias.
func NewUserHandler(logger *zap.Logger, accounts *service.AccountService) *UserHandler {
	return &UserHandler{
		logger:   logger,
		accounts: accounts,
	}
}

// Register maneja POST /users.
func (h *UserHandler) Register(c *gin.Context) {
	var req struct {
		Email        string `json:"email" binding:"required,email"`
		Password     string `json:"password" binding:"required"`
		FirstName    string `json:"first_name" binding:"required"`
		LastName     string `json:"last_name"`
		Country      string `json:"country"`
		Image        string `json:"image"`
		FrontBaseURL string `json:"front_base_url"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid register request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	user, err := h.accounts.Register(c.Request.Context(), service.RegisterInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Country:   req.Country,
		Image:     req.Image,
		BaseURL:   req.FrontBaseURL,
	})
	if err != nil {
		h.writeError(c, "register", err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"user": user})
}

// VerifyEmail maneja GET /users/verify_email/:code.
func (h *UserHandler) VerifyEmail(c *gin.Context) {
	user, err := h.accounts.VerifyEmail(c.Request.Context(), c.Param("code"))
	if err != nil {
		h.writeError(c, "verify email", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// ResendVerification maneja POST /users/verify_email.
func (h *UserHandler) ResendVerification(c *gin.Context) {
	var req struct {
		Email        string `json:"email" binding:"required,email"`
		FrontBaseURL string `json:"front_base_url"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid resend verification request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	user, err := h.accounts.ResendVerification(c.Request.Context(), req.Email, req.FrontBaseURL)
	if err != nil {
		h.writeError(c, "resend verification", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// Login maneja POST /users/login.
func (h *UserHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid login request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	result, err := h.accounts.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.writeError(c, "login", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": result.User, "token": result.Token})
}

// Me maneja GET /users/me.
func (h *UserHandler) Me(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}
	user, err := h.accounts.CurrentUser(c.Request.Context(), claims.UserID)
	if err != nil {
		h.writeError(c, "current user", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// RequestPasswordReset maneja POST /users/reset_password.
func (h *UserHandler) RequestPasswordReset(c *gin.Context) {
	var req struct {
		Email        string `json:"email" binding:"required,email"`
		FrontBaseURL string `json:"front_base_url"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid reset request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	user, err := h.accounts.RequestPasswordReset(c.Request.Context(), req.Email, req.FrontBaseURL)
	if err != nil {
		h.writeError(c, "request password reset", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// ConfirmPasswordReset maneja POST /users/reset_password/:code.
func (h *UserHandler) ConfirmPasswordReset(c *gin.Context) {
	var req struct {
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid reset confirm request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	user, err := h.accounts.ConfirmPasswordReset(c.Request.Context(), c.Param("code"), req.Password)
	if err != nil {
		h.writeError(c, "confirm password reset", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

func (h *UserHandler) writeError(c *gin.Context, op string, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrEmailNotVerified):
		c.JSON(http.StatusForbidden, gin.H{"error": "email not verified"})
	case errors.Is(err, service.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
	case errors.Is(err, service.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "invalid or expired code"})
	case errors.Is(err, service.ErrAlreadyVerified):
		c.JSON(http.StatusConflict, gin.H{"error": "email already verified"})
	case errors.Is(err, service.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "email already registered"})
	case errors.Is(err, service.ErrRateLimited):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
	default:
		h.logger.Error(op+" failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not " + op})
	}
}
