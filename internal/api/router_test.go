package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Marga-Ghale/ora-family-backend/internal/config"
	"github.com/Marga-Ghale/ora-family-backend/internal/logger"
	"github.com/Marga-Ghale/ora-family-backend/internal/metrics"
	"github.com/Marga-Ghale/ora-family-backend/internal/repository"
	"github.com/Marga-Ghale/ora-family-backend/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Field   string          `json:"field"`
	Data    json.RawMessage `json:"data"`
}

type testAPI struct {
	t      *testing.T
	router *gin.Engine
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.Load()
	cfg.JWTSecret = "test-secret"
	log := logger.Discard()
	m := metrics.New("ora")

	services := service.NewServices(&service.ServiceDeps{
		Config:  cfg,
		Store:   repository.NewMemoryStore(),
		Logger:  log,
		Metrics: m,
	})

	return &testAPI{t: t, router: NewRouter(RouterDeps{
		Config:   cfg,
		Services: services,
		Logger:   log,
		Metrics:  m,
	})}
}

func (a *testAPI) do(method, path, token string, body interface{}) (int, envelope) {
	a.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(a.t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w.Code, env
}

func decode[T any](t *testing.T, env envelope) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(env.Data, &out))
	return out
}

type authData struct {
	AccessToken string `json:"access_token"`
	Member      struct {
		ID    string `json:"id"`
		Email string `json:"mail"`
		Role  string `json:"role"`
	} `json:"member"`
}

func (a *testAPI) signUp(email string) string {
	a.t.Helper()
	code, env := a.do(http.MethodPost, "/api/auth/signup", "", map[string]interface{}{
		"title":    "The Family",
		"mail":     email,
		"password": "password123",
		"username": strings.Split(email, "@")[0],
	})
	require.Equal(a.t, http.StatusCreated, code, env.Message)
	return decode[authData](a.t, env).AccessToken
}

func (a *testAPI) addChild(parentToken, email string) string {
	a.t.Helper()
	code, env := a.do(http.MethodPost, "/api/members", parentToken, map[string]interface{}{
		"mail":        email,
		"username":    strings.Split(email, "@")[0],
		"member_type": "Child",
	})
	require.Equal(a.t, http.StatusCreated, code, env.Message)

	// Members without their own password log in with the family password.
	code, env = a.do(http.MethodPost, "/api/auth/login", "", map[string]interface{}{
		"mail":     email,
		"password": "password123",
	})
	require.Equal(a.t, http.StatusOK, code, env.Message)
	return decode[authData](a.t, env).AccessToken
}

func TestRouter_Health(t *testing.T) {
	api := newTestAPI(t)

	w := httptest.NewRecorder()
	api.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")
}

func TestRouter_SignUpValidation(t *testing.T) {
	api := newTestAPI(t)

	code, env := api.do(http.MethodPost, "/api/auth/signup", "", map[string]interface{}{
		"mail": "mom@example.com",
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "fail", env.Status)
	assert.NotEmpty(t, env.Message)

	api.signUp("mom@example.com")
	code, env = api.do(http.MethodPost, "/api/auth/signup", "", map[string]interface{}{
		"title":    "Again",
		"mail":     "mom@example.com",
		"password": "password123",
		"username": "mom",
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "email", env.Field)
}

func TestRouter_Authentication(t *testing.T) {
	api := newTestAPI(t)

	code, env := api.do(http.MethodGet, "/api/members/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "fail", env.Status)

	code, _ = api.do(http.MethodGet, "/api/members/me", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = api.do(http.MethodPost, "/api/auth/login", "", map[string]interface{}{
		"mail": "nobody@example.com", "password": "password123",
	})
	assert.Equal(t, http.StatusUnauthorized, code)

	token := api.signUp("mom@example.com")
	code, env = api.do(http.MethodGet, "/api/members/me", token, nil)
	require.Equal(t, http.StatusOK, code)
	me := decode[map[string]interface{}](t, env)
	assert.Equal(t, "mom@example.com", me["mail"])
	assert.Equal(t, "parent", me["role"])
}

func TestRouter_ParentOnlyRoutes(t *testing.T) {
	api := newTestAPI(t)
	parent := api.signUp("mom@example.com")
	child := api.addChild(parent, "kid@example.com")

	code, _ := api.do(http.MethodPost, "/api/members", child, map[string]interface{}{
		"mail": "friend@example.com", "username": "friend", "member_type": "Child",
	})
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = api.do(http.MethodGet, "/api/redeem/pending", child, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = api.do(http.MethodGet, "/api/redeem/pending", parent, nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestRouter_TaskFlowAwardsPoints(t *testing.T) {
	api := newTestAPI(t)
	parent := api.signUp("mom@example.com")
	child := api.addChild(parent, "kid@example.com")

	code, env := api.do(http.MethodPost, "/api/tasks", parent, map[string]interface{}{
		"title": "Dishes",
	})
	require.Equal(t, http.StatusCreated, code, env.Message)
	task := decode[map[string]interface{}](t, env)

	code, env = api.do(http.MethodPost, "/api/assignments", parent, map[string]interface{}{
		"task_id":         task["id"],
		"member_mail":     "kid@example.com",
		"assigned_points": 30,
		"deadline":        time.Now().Add(24 * time.Hour).UTC().Format(time.RFC3339),
	})
	require.Equal(t, http.StatusCreated, code, env.Message)
	assignment := decode[map[string]interface{}](t, env)
	id := assignment["id"].(string)
	assert.Equal(t, true, assignment["assignment_approved"])

	code, env = api.do(http.MethodPatch, "/api/assignments/"+id+"/approve", parent, map[string]interface{}{"approved": true})
	assert.Equal(t, http.StatusBadRequest, code, "approval before completion")

	code, env = api.do(http.MethodPatch, "/api/assignments/"+id+"/complete", child, nil)
	require.Equal(t, http.StatusOK, code, env.Message)

	code, env = api.do(http.MethodPatch, "/api/assignments/"+id+"/approve", parent, map[string]interface{}{"approved": true})
	require.Equal(t, http.StatusOK, code, env.Message)
	assert.Equal(t, "approved", decode[map[string]interface{}](t, env)["status"])

	code, env = api.do(http.MethodGet, "/api/wallet/me", child, nil)
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 30, decode[map[string]interface{}](t, env)["total_points"])

	code, env = api.do(http.MethodGet, "/api/history/me", child, nil)
	require.Equal(t, http.StatusOK, code)
	history := decode[[]map[string]interface{}](t, env)
	require.Len(t, history, 1)
	assert.Equal(t, "task_completion", history[0]["reason_type"])

	code, env = api.do(http.MethodGet, "/api/wallet/ranking", child, nil)
	require.Equal(t, http.StatusOK, code)
	ranking := decode[[]map[string]interface{}](t, env)
	require.Len(t, ranking, 2)
	assert.Equal(t, "kid@example.com", ranking[0]["mail"])
}

func TestRouter_NotFound(t *testing.T) {
	api := newTestAPI(t)
	parent := api.signUp("mom@example.com")

	code, env := api.do(http.MethodPatch, "/api/assignments/missing/complete", parent, nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "fail", env.Status)
}

func TestRouter_RedeemInsufficientPoints(t *testing.T) {
	api := newTestAPI(t)
	parent := api.signUp("mom@example.com")
	child := api.addChild(parent, "kid@example.com")

	code, env := api.do(http.MethodPost, "/api/redeem", child, map[string]interface{}{
		"request_details": "Movie night",
		"point_deduction": 50,
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, env.Message, "Insufficient points")
}

func TestRouter_Metrics(t *testing.T) {
	api := newTestAPI(t)
	api.do(http.MethodGet, "/api/members/me", "", nil)

	w := httptest.NewRecorder()
	api.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ora_http_requests_total")
}
