package handlers

import (
	"net/http"

	"github.com/Marga-Ghale/ora-family-backend/internal/models"
	"github.com/Marga-Ghale/ora-family-backend/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// ============================================
// Auth Handler
// ============================================

type AuthHandler struct {
	authService service.AuthService
	log         *logrus.Entry
}

func toAuthResponse(res *service.AuthResult) models.AuthResponse {
	return models.AuthResponse{
		Family:       toFamilyResponse(res.Family),
		Member:       toMemberResponse(res.Member),
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
	}
}

func (h *AuthHandler) SignUp(c *gin.Context) {
	var req models.SignUpRequest
	if !bind(c, &req) {
		return
	}

	res, err := h.authService.SignUp(c.Request.Context(), service.SignUpInput{
		Title:     req.Title,
		Email:     req.Email,
		Password:  req.Password,
		Username:  req.Username,
		BirthDate: req.BirthDate,
	})
	if err != nil {
		handleError(c, h.log, err)
		return
	}

	created(c, "Family account created successfully", toAuthResponse(res))
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if !bind(c, &req) {
		return
	}

	res, err := h.authService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		handleError(c, h.log, err)
		return
	}

	ok(c, toAuthResponse(res))
}

func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req models.RefreshRequest
	if !bind(c, &req) {
		return
	}

	access, refresh, err := h.authService.RefreshToken(c.Request.Context(), req.RefreshToken)
	if err != nil {
		handleError(c, h.log, err)
		return
	}

	ok(c, models.TokenResponse{AccessToken: access, RefreshToken: refresh})
}

func (h *AuthHandler) Logout(c *gin.Context) {
	var req models.RefreshRequest
	if !bind(c, &req) {
		return
	}

	if err := h.authService.Logout(c.Request.Context(), req.RefreshToken); err != nil {
		handleError(c, h.log, err)
		return
	}

	respond(c, http.StatusOK, "Logged out successfully", nil)
}

func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req models.ForgotPasswordRequest
	if !bind(c, &req) {
		return
	}

	if err := h.authService.ForgotPassword(c.Request.Context(), req.Email); err != nil {
		handleError(c, h.log, err)
		return
	}

	respond(c, http.StatusOK, "Password reset link sent to your email", nil)
}

func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req models.ResetPasswordRequest
	if !bind(c, &req) {
		return
	}

	res, err := h.authService.ResetPassword(c.Request.Context(), c.Param("token"), req.Password)
	if err != nil {
		handleError(c, h.log, err)
		return
	}

	respond(c, http.StatusOK, "Password reset successfully", toAuthResponse(res))
}
