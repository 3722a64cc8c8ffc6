package middleware

import (
	"net/http"
	"net/http/httptest"
	"shelf-search-go/pkg/log"
	"shelf-search-go/pkg/token"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newAuthRouter(m *token.JWTManager) *gin.Engine {
	r := gin.New()
	r.Use(AuthMiddleware(m))
	r.POST("/search", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(OwnerIDKey))
	})
	return r
}

func doRequest(r http.Handler, method, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, "/search", strings.NewReader(`{"terms":["dune"]}`))
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	m := token.NewJWTManager("secret", "shelf", 1)
	signed, err := m.GenerateToken("abcdef12-3456-7890-abcd-ef1234567890")
	require.NoError(t, err)

	rec := doRequest(newAuthRouter(m), http.MethodPost, "Bearer "+signed)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ABCDEF1234567890ABCDEF1234567890", rec.Body.String())
}

func TestAuthMiddleware_Rejects(t *testing.T) {
	m := token.NewJWTManager("secret", "shelf", 1)
	notUUID, err := m.GenerateToken("alice")
	require.NoError(t, err)
	forged, err := token.NewJWTManager("other", "shelf", 1).GenerateToken("abcdef12-3456-7890-abcd-ef1234567890")
	require.NoError(t, err)

	cases := map[string]string{
		"missing header":   "",
		"not bearer":       "Basic dXNlcjpwYXNz",
		"garbage token":    "Bearer not.a.jwt",
		"wrong secret":     "Bearer " + forged,
		"subject not uuid": "Bearer " + notUUID,
	}
	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			rec := doRequest(newAuthRouter(m), http.MethodPost, header)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Contains(t, rec.Body.String(), `"code":401`)
			assert.Contains(t, rec.Body.String(), `"message"`)
		})
	}
}

func TestCORS(t *testing.T) {
	r := gin.New()
	r.Use(CORS())
	called := false
	r.POST("/search", func(c *gin.Context) {
		called = true
		c.Status(http.StatusOK)
	})

	rec := doRequest(r, http.MethodPost, "")
	assert.True(t, called)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
}

func TestCORS_Preflight(t *testing.T) {
	r := gin.New()
	r.Use(CORS())
	r.POST("/search", func(c *gin.Context) {
		t.Error("handler should not be called for preflight")
	})
	// OPTIONS 没有注册路由，需要在全局中间件中应答
	r.NoRoute(func(c *gin.Context) { c.Status(http.StatusNotFound) })

	rec := doRequest(r, http.MethodOptions, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "Authorization")
}

func TestRequestLogger_DoesNotLogBodies(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log.Use(zap.New(core))
	t.Cleanup(func() { log.Use(zap.NewNop()) })

	r := gin.New()
	r.Use(RequestLogger())
	r.POST("/search", func(c *gin.Context) {
		c.Set(OwnerIDKey, "OWNER")
		c.JSON(http.StatusOK, gin.H{"results": []gin.H{{"picture": "c2VjcmV0"}}})
	})

	doRequest(r, http.MethodPost, "")

	entries := logs.FilterMessage("HTTP Request Log").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.EqualValues(t, http.StatusOK, fields["statusCode"])
	assert.Equal(t, "/search", fields["path"])
	assert.Equal(t, "OWNER", fields["ownerId"])
	assert.NotContains(t, fields, "responseBody")
	assert.NotContains(t, fields, "requestBody")
	for _, v := range fields {
		if s, ok := v.(string); ok {
			assert.NotContains(t, s, "c2VjcmV0")
		}
	}
}
