package testutil

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/freshapi/freshapi/internal/api"
	"github.com/freshapi/freshapi/internal/app"
	iauth "github.com/freshapi/freshapi/internal/auth"
	sharedtestutil "github.com/freshapi/freshapi/internal/database/testutil"
	"github.com/freshapi/freshapi/internal/models"
	"github.com/freshapi/freshapi/pkg/response"
)

// Env encapsulates a fully-wired API instance backed by an in-memory database for handler tests.
type Env struct {
	T      *testing.T
	DB     *gorm.DB
	Router *gin.Engine
	JWT    *iauth.JWTService
}

// NewEnv provisions a fresh handler test environment with migrations and seed data applied.
func NewEnv(t *testing.T) *Env {
	t.Helper()

	gin.SetMode(gin.TestMode)

	db := sharedtestutil.MustOpenTestDB(t, sharedtestutil.WithSeedData())

	cfg := &app.Config{
		Auth: app.AuthConfig{
			JWT: app.JWTSettings{
				Secret: "test-suite-super-secret-key-32-bytes!!",
				Issuer: "test-suite",
				TTL:    time.Hour,
			},
		},
		Authz: app.AuthzConfig{BatchWait: time.Millisecond},
		Monitoring: app.MonitoringConfig{
			Prometheus: app.PrometheusConfig{Enabled: true, Endpoint: "/metrics"},
		},
	}

	jwtSvc, err := iauth.NewJWTService(cfg.Auth.JWTServiceConfig())
	require.NoError(t, err)

	router, err := api.NewRouter(db, jwtSvc, cfg)
	require.NoError(t, err)

	return &Env{
		T:      t,
		DB:     db,
		Router: router,
		JWT:    jwtSvc,
	}
}

// CreateUser inserts an active user holding roleName. An empty roleName leaves the user role-less.
func (e *Env) CreateUser(email, roleName string) *models.User {
	e.T.Helper()

	user := &models.User{Email: email, Name: email, IsActive: true}
	if roleName != "" {
		var role models.Role
		require.NoError(e.T, e.DB.Where("name = ?", roleName).First(&role).Error)
		user.RoleID = &role.ID
	}
	require.NoError(e.T, e.DB.Create(user).Error)
	return user
}

// Token issues an access token for user.
func (e *Env) Token(user *models.User) string {
	e.T.Helper()

	token, err := e.JWT.GenerateAccessToken(iauth.AccessTokenInput{UserID: user.ID, Email: user.Email})
	require.NoError(e.T, err)
	return token
}

// PermissionID looks up the permission row for resource and action.
func (e *Env) PermissionID(resource, action string) string {
	e.T.Helper()

	var perm models.Permission
	require.NoError(e.T, e.DB.
		Joins("JOIN resources ON resources.id = permissions.resource_id").
		Where("resources.name = ? AND permissions.action = ?", resource, action).
		First(&perm).Error)
	return perm.ID
}

// APIResponse represents the canonical API envelope returned by handlers.
type APIResponse struct {
	Success bool                `json:"success"`
	Data    json.RawMessage     `json:"data"`
	Error   *response.ErrorInfo `json:"error"`
	Meta    *response.Meta      `json:"meta"`
}

// DecodeResponse parses the standard API response object from a recorder.
func DecodeResponse(t *testing.T, w *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

// DecodeInto unmarshals the data payload into the provided destination.
func DecodeInto[T any](t *testing.T, raw json.RawMessage, dest *T) {
	t.Helper()
	if dest == nil {
		t.Fatal("destination must not be nil")
	}
	require.NoError(t, json.Unmarshal(raw, dest))
}

// Request executes an HTTP request against the test router, applying JSON encoding and auth headers automatically.
func (e *Env) Request(method, path string, body any, token string) *httptest.ResponseRecorder {
	e.T.Helper()

	var buf *bytes.Buffer
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(e.T, err)
		buf = bytes.NewBuffer(data)
	} else {
		buf = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequest(method, path, buf)
	require.NoError(e.T, err)

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	e.Router.ServeHTTP(w, req)
	return w
}
