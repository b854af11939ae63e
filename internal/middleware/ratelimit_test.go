package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"vertex-relay/internal/config"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func newGuardedRouter(cfg *config.Config) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(OverloadGuard(config.Static{Config: cfg}))
	router.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })
	return router
}

func TestOverloadGuardDisabled(t *testing.T) {
	router := newGuardedRouter(&config.Config{})
	for i := 0; i < 50; i++ {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", "/x", nil))
		require.Equal(t, http.StatusOK, w.Code)
	}
}

func TestOverloadGuardRejectsBeyondBurst(t *testing.T) {
	cfg := &config.Config{Server: config.ServerConfig{MaxRPS: 0.001, Burst: 2}}
	router := newGuardedRouter(cfg)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", "/x", nil))
		codes = append(codes, w.Code)
		if w.Code == http.StatusServiceUnavailable {
			require.Equal(t, "1", w.Header().Get("Retry-After"))
			require.JSONEq(t, `{"error":"Server overloaded"}`, w.Body.String())
		}
	}
	require.Equal(t, []int{200, 200, 503}, codes)
}

func TestOverloadGuardIsGlobalAcrossClients(t *testing.T) {
	cfg := &config.Config{Server: config.ServerConfig{MaxRPS: 0.001, Burst: 1}}
	router := newGuardedRouter(cfg)

	first := httptest.NewRequest("GET", "/x", nil)
	first.RemoteAddr = "10.0.0.1:1234"
	second := httptest.NewRequest("GET", "/x", nil)
	second.RemoteAddr = "10.0.0.2:1234"

	w := httptest.NewRecorder()
	router.ServeHTTP(w, first)
	require.Equal(t, http.StatusOK, w.Code)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, second)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
}
