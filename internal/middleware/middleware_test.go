package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/vidshare/backend/internal/apperr"
	"github.com/vidshare/backend/internal/models"
)

type stubAuth struct {
	user models.UserPublic
	err  error
}

func (s stubAuth) CurrentUser(ctx context.Context, token string) (models.UserPublic, error) {
	if s.err != nil {
		return models.UserPublic{}, s.err
	}
	if token != "good" {
		return models.UserPublic{}, apperr.ErrUnauthenticated
	}
	return s.user, nil
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	user := models.UserPublic{ID: uuid.New(), Email: "a@example.com"}

	tests := []struct {
		name   string
		auth   stubAuth
		header string
		want   int
	}{
		{"missing header", stubAuth{user: user}, "", http.StatusUnauthorized},
		{"wrong scheme", stubAuth{user: user}, "Basic good", http.StatusUnauthorized},
		{"bad token", stubAuth{user: user}, "Bearer bad", http.StatusUnauthorized},
		{"ok", stubAuth{user: user}, "bearer good", http.StatusOK},
		{"backend down", stubAuth{err: apperr.Upstream("select user", context.DeadlineExceeded)}, "Bearer good", http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.GET("/", Auth(tt.auth), func(c *gin.Context) {
				u, ok := CurrentUser(c)
				if !ok || u != user {
					c.Status(http.StatusTeapot)
					return
				}
				c.Status(http.StatusOK)
			})
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			if w := serve(r, req); w.Code != tt.want {
				t.Fatalf("status: got %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestCORS(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CORS("https://app.example.com, https://admin.example.com"))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://app.example.com")
	w := serve(r, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example.com" {
		t.Fatalf("allowed origin: got %q", got)
	}
	if w.Header().Get("Access-Control-Allow-Credentials") != "true" {
		t.Fatal("credentials not allowed for listed origin")
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	if got := serve(r, req).Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("unlisted origin: got %q", got)
	}

	req = httptest.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set("Origin", "https://app.example.com")
	if w := serve(r, req); w.Code != http.StatusNoContent {
		t.Fatalf("preflight: got %d", w.Code)
	}
}

func TestCORS_Wildcard(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CORS("*"))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://any.example.com")
	w := serve(r, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("origin: got %q", got)
	}
	if w.Header().Get("Access-Control-Allow-Credentials") != "" {
		t.Fatal("wildcard must not allow credentials")
	}
}

func TestRateLimiter(t *testing.T) {
	l := NewRateLimiter(1, time.Minute, 2)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	if !l.Allow("1.2.3.4") || !l.Allow("1.2.3.4") {
		t.Fatal("burst rejected")
	}
	if l.Allow("1.2.3.4") {
		t.Fatal("over-limit request allowed")
	}
	if !l.Allow("5.6.7.8") {
		t.Fatal("other client throttled")
	}
	now = now.Add(time.Minute)
	if !l.Allow("1.2.3.4") {
		t.Fatal("not refilled after window")
	}
}

func TestRateLimiter_SweepsIdleKeysOncePerTTL(t *testing.T) {
	l := NewRateLimiter(10, time.Second, 10)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	now := start
	l.now = func() time.Time { return now }

	l.Allow("idle")
	now = start.Add(l.ttl / 2)
	l.Allow("busy")
	now = start.Add(l.ttl + time.Second)
	l.Allow("busy")
	if _, ok := l.visitors["idle"]; ok {
		t.Fatal("idle key survived a sweep")
	}

	// A key going idle right after a sweep stays until the next sweep is due.
	l.Allow("late")
	now = now.Add(l.ttl / 2)
	l.Allow("busy")
	if _, ok := l.visitors["late"]; !ok {
		t.Fatal("sweep ran before its interval elapsed")
	}
	if len(l.visitors) != 2 {
		t.Fatalf("visitors: got %d, want 2", len(l.visitors))
	}
}

func TestRateLimit_Responds429(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/login", RateLimit(NewRateLimiter(1, time.Hour, 1)), func(c *gin.Context) { c.Status(http.StatusOK) })

	if w := serve(r, httptest.NewRequest(http.MethodPost, "/login", nil)); w.Code != http.StatusOK {
		t.Fatalf("first: got %d", w.Code)
	}
	if w := serve(r, httptest.NewRequest(http.MethodPost, "/login", nil)); w.Code != http.StatusTooManyRequests {
		t.Fatalf("second: got %d", w.Code)
	}
}

func TestLogger_LevelsByStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zap.InfoLevel)
	r := gin.New()
	r.Use(Logger(zap.New(core)))
	r.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/boom", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })

	serve(r, httptest.NewRequest(http.MethodGet, "/ok", nil))
	serve(r, httptest.NewRequest(http.MethodGet, "/boom", nil))

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("entries: got %d, want 2", len(entries))
	}
	if entries[0].Level != zap.InfoLevel || entries[1].Level != zap.ErrorLevel {
		t.Fatalf("levels: %v, %v", entries[0].Level, entries[1].Level)
	}
	if entries[1].ContextMap()["path"] != "/boom" {
		t.Fatalf("path field: %v", entries[1].ContextMap())
	}
}
