package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ishpreet160/CertFlow/internal/dto"
	"github.com/ishpreet160/CertFlow/internal/middleware"
	"github.com/ishpreet160/CertFlow/internal/service"
)

type AuthHandler struct{ svc service.AuthService }

func NewAuthHandler(svc service.AuthService) *AuthHandler { return &AuthHandler{svc: svc} }

// Register godoc
// @Summary Self-registration (always creates an employee)
// @Tags auth
// @Accept json
// @Produce json
// @Param body body dto.RegisterRequest true "New account"
// @Success 201 {object} dto.UserResponse
// @Failure 409 {object} apierror.APIError
// @Failure 422 {object} apierror.ValidationError
// @Router /v1/auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Register(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Login godoc
// @Summary Login
// @Tags auth
// @Accept json
// @Produce json
// @Param body body dto.LoginRequest true "Credentials"
// @Success 200 {object} dto.LoginResponse
// @Failure 401 {object} apierror.APIError
// @Router /v1/auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Login(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ForgotPassword godoc
// @Summary E-mail a password reset link
// @Tags auth
// @Accept json
// @Produce json
// @Param body body dto.ForgotPasswordRequest true "Account e-mail"
// @Success 200 {object} dto.MessageResponse
// @Failure 404 {object} apierror.APIError
// @Router /v1/auth/forgot-password [post]
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req dto.ForgotPasswordRequest
	if !bindAndValidate(c, &req) {
		return
	}
	if err := h.svc.ForgotPassword(c.Request.Context(), req); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.MessageResponse{Message: "password reset link sent"})
}

// ResetPassword godoc
// @Summary Set a new password with a reset token
// @Tags auth
// @Accept json
// @Produce json
// @Param token path string true "Reset token"
// @Param body body dto.ResetPasswordRequest true "New password"
// @Success 200 {object} dto.MessageResponse
// @Failure 401 {object} apierror.APIError
// @Router /v1/auth/reset-password/{token} [post]
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req dto.ResetPasswordRequest
	if !bindAndValidate(c, &req) {
		return
	}
	if err := h.svc.ResetPassword(c.Request.Context(), c.Param("token"), req); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.MessageResponse{Message: "password has been reset"})
}

// Profile godoc
// @Summary Current user
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.UserResponse
// @Router /v1/profile [get]
func (h *AuthHandler) Profile(c *gin.Context) {
	resp, err := h.svc.Profile(c.Request.Context(), middleware.MustClaims(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
