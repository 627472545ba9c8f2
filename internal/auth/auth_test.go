package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret"

func TestGenerateAndValidateToken(t *testing.T) {
	token, err := GenerateToken(secret, 42, "admin", time.Hour)
	require.NoError(t, err)

	claims, err := ValidateToken(secret, token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, "admin", claims.Role)

	_, err = ValidateToken("other-secret", token)
	assert.Error(t, err)
}

func TestValidateTokenExpired(t *testing.T) {
	token, err := GenerateToken(secret, 1, "staff", -time.Minute)
	require.NoError(t, err)

	_, err = ValidateToken(secret, token)
	assert.Error(t, err)
}

func newRouter(cfg MiddlewareConfig) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Middleware(cfg))
	r.GET("/me", func(c *gin.Context) {
		u, _ := FromContext(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{"userId": GetUserID(c), "ctxUserId": u.UserID})
	})
	r.GET("/admin", RequireRole("admin"), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func TestMiddleware(t *testing.T) {
	valid, err := GenerateToken(secret, 7, "staff", time.Hour)
	require.NoError(t, err)

	testCases := []struct {
		name      string
		anonymous bool
		header    string
		path      string
		wantCode  int
		wantBody  string
	}{
		{name: "missing header", header: "", path: "/me", wantCode: http.StatusUnauthorized},
		{name: "not bearer", header: "Token " + valid, path: "/me", wantCode: http.StatusUnauthorized},
		{name: "bad token", header: "Bearer nope", path: "/me", wantCode: http.StatusUnauthorized},
		{name: "valid token", header: "Bearer " + valid, path: "/me", wantCode: http.StatusOK, wantBody: `{"ctxUserId":7,"userId":7}`},
		{name: "anonymous falls back to system user", anonymous: true, path: "/me", wantCode: http.StatusOK, wantBody: `{"ctxUserId":1,"userId":1}`},
		{name: "role refused", header: "Bearer " + valid, path: "/admin", wantCode: http.StatusForbidden},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r := newRouter(MiddlewareConfig{SecretKey: secret, AllowAnonymous: tc.anonymous, SystemUserID: 1})
			req := httptest.NewRequest(http.MethodGet, tc.path, nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tc.wantCode, w.Code)
			if tc.wantBody != "" {
				assert.JSONEq(t, tc.wantBody, w.Body.String())
			}
		})
	}
}
