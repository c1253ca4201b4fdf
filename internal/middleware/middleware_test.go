package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
)

const testSecret = "middleware-test-secret"

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return s
}

func baseClaims(role string) jwt.MapClaims {
	return jwt.MapClaims{
		"uid":   "user-1",
		"name":  "Test User",
		"email": "user@test.com",
		"role":  role,
		"jti":   "jti-1",
		"exp":   time.Now().Add(time.Hour).Unix(),
	}
}

type staticChecker map[string]bool

func (s staticChecker) CheckAccess(_ context.Context, role, module, method string) (bool, error) {
	return s[role+":"+module+":"+method], nil
}

type revokedSet map[string]bool

type userState struct {
	role   string
	active bool
}

type userTable map[string]userState

func (u userTable) ResolveUser(_ context.Context, id string) (string, bool, error) {
	st, ok := u[id]
	if !ok {
		return "", false, nil
	}
	return st.role, st.active, nil
}

type brokenResolver struct{}

func (brokenResolver) ResolveUser(context.Context, string) (string, bool, error) {
	return "", false, errors.New("db down")
}

func (r revokedSet) IsRevoked(_ context.Context, id string) (bool, error) {
	return r[id], nil
}

func newRouter(mw ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handlers := append(mw, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": c.GetString("user_id"), "role": c.GetString("role")})
	})
	r.Any("/x", handlers...)
	return r
}

func do(r *gin.Engine, method, target, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestJWTAuth(t *testing.T) {
	r := newRouter(JWTAuth(testSecret))

	t.Run("missing token", func(t *testing.T) {
		w := do(r, http.MethodGet, "/x", "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("valid header", func(t *testing.T) {
		w := do(r, http.MethodGet, "/x", signToken(t, baseClaims("sales")))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"role":"sales"`)
	})

	t.Run("query param fallback", func(t *testing.T) {
		w := do(r, http.MethodGet, "/x?token="+signToken(t, baseClaims("sales")), "")
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("wrong secret", func(t *testing.T) {
		tok, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, baseClaims("sales")).SignedString([]byte("other"))
		w := do(r, http.MethodGet, "/x", tok)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("refresh token rejected", func(t *testing.T) {
		claims := baseClaims("sales")
		claims["type"] = "refresh"
		w := do(r, http.MethodGet, "/x", signToken(t, claims))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestJWTAuth_Revoked(t *testing.T) {
	r := newRouter(JWTAuth(testSecret, revokedSet{"jti-1": true}))
	w := do(r, http.MethodGet, "/x", signToken(t, baseClaims("sales")))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireModuleAccess(t *testing.T) {
	checker := staticChecker{"sales:inspection:GET": true}
	r := newRouter(JWTAuth(testSecret), RequireModuleAccess(checker, "inspection"))
	tok := signToken(t, baseClaims("sales"))

	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/x", tok).Code)
	assert.Equal(t, http.StatusForbidden, do(r, http.MethodPost, "/x", tok).Code)
}

func TestRequireRole(t *testing.T) {
	r := newRouter(JWTAuth(testSecret), RequireRole("quality"))

	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/x", signToken(t, baseClaims("admin"))).Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/x", signToken(t, baseClaims("quality"))).Code)
	assert.Equal(t, http.StatusForbidden, do(r, http.MethodGet, "/x", signToken(t, baseClaims("sales"))).Code)
}

func TestCurrentUser(t *testing.T) {
	users := userTable{"user-1": {role: "quality", active: true}}
	checker := staticChecker{"quality:inspection:POST": true}
	r := newRouter(JWTAuth(testSecret), CurrentUser(users), RequireModuleAccess(checker, "inspection"))

	// token 中仍是 sales，但数据库中已改为 quality
	tok := signToken(t, baseClaims("sales"))
	w := do(r, http.MethodPost, "/x", tok)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"role":"quality"`)

	users["user-1"] = userState{role: "quality", active: false}
	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodPost, "/x", tok).Code)

	delete(users, "user-1")
	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodPost, "/x", tok).Code)

	broken := newRouter(JWTAuth(testSecret), CurrentUser(brokenResolver{}))
	assert.Equal(t, http.StatusInternalServerError, do(broken, http.MethodGet, "/x", tok).Code)
}
