package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/vidshare/backend/internal/auth"
	"github.com/vidshare/backend/internal/middleware"
	"github.com/vidshare/backend/internal/models"
	"github.com/vidshare/backend/internal/realtime"
	"github.com/vidshare/backend/internal/videos"
)

type fakeDB struct{ err error }

func (f fakeDB) Ping(ctx context.Context) error { return f.err }

type noAuth struct{}

func (noAuth) CurrentUser(ctx context.Context, token string) (models.UserPublic, error) {
	return models.UserPublic{}, errors.New("unused")
}

func testRouter(db pinger) http.Handler {
	reg := prometheus.NewRegistry()
	metrics := realtime.NewMetrics(reg)
	registry := realtime.NewRegistry()
	b := realtime.NewBroadcaster(registry, nil, metrics)
	return newRouter(routerDeps{
		logger:      zap.NewNop(),
		corsOrigins: "*",
		db:          db,
		gatherer:    reg,
		auth:        noAuth{},
		users:       auth.NewHandler(nil),
		videos:      videos.NewHandler(nil, nil),
		ws:          realtime.NewHandler(registry, b, realtime.Options{}, nil, metrics),
		limiter:     middleware.NewRateLimiter(10, 1, 10),
	})
}

func TestHealth(t *testing.T) {
	w := httptest.NewRecorder()
	testRouter(fakeDB{}).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("healthy: got %d", w.Code)
	}

	w = httptest.NewRecorder()
	testRouter(fakeDB{err: errors.New("down")}).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("unhealthy: got %d", w.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	w := httptest.NewRecorder()
	testRouter(fakeDB{}).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "vidshare_realtime_connections") {
		t.Fatalf("connections gauge missing from /metrics")
	}
}

func TestUploadsAbsentWithoutBlobStore(t *testing.T) {
	w := httptest.NewRecorder()
	testRouter(fakeDB{}).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/uploads/image", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("status: got %d, want 404", w.Code)
	}
}
