package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Marga-Ghale/ora-family-backend/internal/logger"
	"github.com/Marga-Ghale/ora-family-backend/internal/models"
	"github.com/Marga-Ghale/ora-family-backend/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{service.ErrValidation, http.StatusBadRequest},
		{service.ErrInvalidState, http.StatusBadRequest},
		{service.ErrConflict, http.StatusBadRequest},
		{service.ErrInsufficientPoints, http.StatusBadRequest},
		{service.ErrLastParent, http.StatusBadRequest},
		{service.ErrNotFound, http.StatusNotFound},
		{service.ErrForbidden, http.StatusForbidden},
		{service.ErrUnauthorized, http.StatusUnauthorized},
		{service.ErrInvalidCredentials, http.StatusUnauthorized},
		{service.ErrInvalidToken, http.StatusUnauthorized},
		{fmt.Errorf("wrapped: %w", service.ErrNotFound), http.StatusNotFound},
		{&service.Error{Kind: service.ErrForbidden, Message: "no"}, http.StatusForbidden},
		{errors.New("connection reset"), http.StatusInternalServerError},
	}
	for _, tc := range tests {
		t.Run(tc.err.Error(), func(t *testing.T) {
			assert.Equal(t, tc.status, statusFor(tc.err))
		})
	}
}

func runHandleError(t *testing.T, err error) (*httptest.ResponseRecorder, models.Envelope) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/x", nil)

	handleError(c, logger.Discard().Component("HTTP"), err)

	var env models.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return w, env
}

func TestHandleError_ServiceError(t *testing.T) {
	w, env := runHandleError(t, &service.Error{
		Kind:    service.ErrConflict,
		Message: "This username is already taken in your family",
		Field:   "username",
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "fail", env.Status)
	assert.Equal(t, "This username is already taken in your family", env.Message)
	assert.Equal(t, "username", env.Field)
}

func TestHandleError_HidesInternalDetail(t *testing.T) {
	w, env := runHandleError(t, errors.New("pq: relation \"wallets\" does not exist"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "error", env.Status)
	assert.NotContains(t, env.Message, "wallets")
}

func TestBindMessage(t *testing.T) {
	require.NoError(t, RegisterValidators())
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name string
		body string
		want string
	}{
		{"missing", `{"password":"x"}`, "Please provide mail"},
		{"bad email", `{"mail":"nope","password":"x"}`, "mail must be a valid email address"},
		{"malformed", `{`, "Invalid request body"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(tc.body))
			c.Request.Header.Set("Content-Type", "application/json")

			var req models.LoginRequest
			assert.False(t, bind(c, &req))
			assert.Equal(t, http.StatusBadRequest, w.Code)

			var env models.Envelope
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
			assert.Equal(t, tc.want, env.Message)
		})
	}
}
