package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	iauth "github.com/renewhub/renewhub/internal/auth"
	"github.com/renewhub/renewhub/internal/database/testutil"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())

	jwt, err := iauth.NewJWTService(iauth.JWTConfig{Secret: "test-secret", Issuer: "renewhub"})
	require.NoError(t, err)

	deps, err := NewDeps(db, jwt)
	require.NoError(t, err)

	router, err := NewRouter(deps)
	require.NoError(t, err)
	return router
}

func doJSON(t *testing.T, router *gin.Engine, method, path, token string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var payload bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&payload).Encode(body))
	}

	req := httptest.NewRequest(method, path, &payload)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

func registerUser(t *testing.T, router *gin.Engine, email string) string {
	t.Helper()

	rec, env := doJSON(t, router, http.MethodPost, "/api/auth/register", "", gin.H{
		"name":     "Test User",
		"email":    email,
		"password": "correct-horse",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var session struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &session))
	require.NotEmpty(t, session.AccessToken)
	return session.AccessToken
}

func TestRouterHealth(t *testing.T) {
	router := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRouterRejectsMissingToken(t *testing.T) {
	router := newTestRouter(t)

	rec, env := doJSON(t, router, http.MethodGet, "/api/services", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.False(t, env.Success)
}

func TestRouterAuthAndServiceLifecycle(t *testing.T) {
	router := newTestRouter(t)
	token := registerUser(t, router, "founder@example.com")

	rec, env := doJSON(t, router, http.MethodGet, "/api/auth/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var me struct {
		Email string `json:"email"`
		Role  string `json:"role"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &me))
	require.Equal(t, "founder@example.com", me.Email)
	// First account becomes the installation admin.
	require.Equal(t, "admin", me.Role)

	rec, env = doJSON(t, router, http.MethodPost, "/api/services", token, gin.H{
		"name":        "Domain registration",
		"expiry_date": "2027-01-15T00:00:00Z",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var created struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &created))
	require.NotEmpty(t, created.ID)

	rec, env = doJSON(t, router, http.MethodGet, "/api/services", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var listed []json.RawMessage
	require.NoError(t, json.Unmarshal(env.Data, &listed))
	require.Len(t, listed, 1)

	rec, _ = doJSON(t, router, http.MethodDelete, "/api/services/"+created.ID, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRouterCategoriesWithServices(t *testing.T) {
	router := newTestRouter(t)
	token := registerUser(t, router, "founder@example.com")

	rec, env := doJSON(t, router, http.MethodPost, "/api/categories", token, gin.H{
		"name": "Hosting",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var category struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &category))

	rec, _ = doJSON(t, router, http.MethodPost, "/api/services", token, gin.H{
		"name":        "VPS",
		"category_id": category.ID,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, env = doJSON(t, router, http.MethodGet, "/api/categories/with-services", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var groups []struct {
		Name     string `json:"name"`
		Services []struct {
			Name string `json:"name"`
		} `json:"services"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &groups))
	require.Len(t, groups, 2)
	require.Equal(t, "Hosting", groups[0].Name)
	require.Len(t, groups[0].Services, 1)
	require.Equal(t, "VPS", groups[0].Services[0].Name)
	require.Equal(t, "Uncategorized", groups[1].Name)
	require.Empty(t, groups[1].Services)
}

func TestRouterValidationErrors(t *testing.T) {
	router := newTestRouter(t)

	rec, env := doJSON(t, router, http.MethodPost, "/api/auth/register", "", gin.H{
		"name":     "Short",
		"email":    "not-an-email",
		"password": "short",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.False(t, env.Success)
	require.NotNil(t, env.Error)
}

func TestRouterAdminGuard(t *testing.T) {
	router := newTestRouter(t)

	adminToken := registerUser(t, router, "admin@example.com")
	userToken := registerUser(t, router, "member@example.com")

	rec, _ := doJSON(t, router, http.MethodGet, "/api/users", userToken, nil)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec, env := doJSON(t, router, http.MethodGet, "/api/users", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var users []struct {
		Email string `json:"email"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &users))
	require.Len(t, users, 2)
}
