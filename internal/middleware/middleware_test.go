package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"sqm-service/internal/config"
	"sqm-service/internal/utils"
)

func newRouter(logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RequestIDMiddleware())
	router.Use(RecoveryMiddleware(logger))
	router.Use(LoggingMiddleware(utils.NewServiceLogger(logger, "test")))
	router.Use(CORSMiddleware(&config.ServerConfig{AllowedOrigins: []string{"*"}}))
	return router
}

func TestRequestIDIsGeneratedAndEchoed(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	router := newRouter(zap.New(core))
	router.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString("request_id"))
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))

	id := w.Header().Get(RequestIDHeader)
	assert.NotEmpty(t, id)
	assert.Equal(t, id, w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))

	entries := logs.FilterMessage("API request").All()
	require.Len(t, entries, 2)
	assert.Equal(t, "abc-123", entries[1].ContextMap()["request_id"])
}

func TestRecoveryReturnsEnvelope(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	router := newRouter(zap.New(core))
	router.GET("/boom", func(c *gin.Context) {
		panic("serial driver exploded")
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var resp utils.APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.NotEmpty(t, resp.RequestID)
	assert.Equal(t, 1, logs.FilterMessage("Panic recovered").Len())
}

func TestCORSAllowsConfiguredOrigin(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(CORSMiddleware(&config.ServerConfig{AllowedOrigins: []string{"http://observatory.local"}}))
	router.GET("/status", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	req.Header.Set("Origin", "http://observatory.local")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, "http://observatory.local", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestLoggingSkipsProbePaths(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zapcore.InfoLevel)
	router := gin.New()
	router.Use(LoggingMiddleware(utils.NewServiceLogger(zap.New(core), "test"), "/live"))
	router.GET("/live", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/status", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, path := range []string{"/live", "/status", "/live"} {
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	entries := logs.FilterMessage("API request").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "/status", entries[0].ContextMap()["path"])
}
