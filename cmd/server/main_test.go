package main

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"parkfinder/internal/config"
	"parkfinder/internal/handler"
	"parkfinder/internal/service"
)

func testRouter(t *testing.T) http.Handler {
	t.Helper()
	cfg := &config.Config{Server: config.ServerConfig{GinMode: "test", AllowedOrigins: "https://maps.example.com"}}
	store := service.NewSessionStore(func(device service.DeviceLocator) *service.Controller {
		return service.NewController(service.ControllerDeps{
			Catalog: service.NewCatalogIndex(nil),
			Origins: service.NewLocationResolver(device, nil),
		})
	}, time.Minute, zap.NewNop())
	return newRouter(cfg, zap.NewNop(), handler.NewSessionHandler(store, zap.NewNop()))
}

func TestRouter_HealthAndVersion(t *testing.T) {
	router := testRouter(t)

	for _, path := range []string{"/health", "/version"} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, w.Code, path)
		assert.Contains(t, w.Body.String(), `"version":"dev"`, path)
	}
}

func TestRouter_SessionsMounted(t *testing.T) {
	router := testRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/sessions", nil))
	assert.Equal(t, http.StatusCreated, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/nothing", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "API endpoint not found")
}

func TestRouter_CORS(t *testing.T) {
	router := testRouter(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/sessions", nil)
	req.Header.Set("Origin", "https://maps.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, "https://maps.example.com", w.Header().Get("Access-Control-Allow-Origin"))
}
