package main

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/vidshare/backend/internal/auth"
	"github.com/vidshare/backend/internal/middleware"
	"github.com/vidshare/backend/internal/realtime"
	"github.com/vidshare/backend/internal/uploads"
	"github.com/vidshare/backend/internal/videos"
)

type pinger interface {
	Ping(ctx context.Context) error
}

type routerDeps struct {
	logger      *zap.Logger
	corsOrigins string
	db          pinger
	gatherer    prometheus.Gatherer
	auth        middleware.Authenticator
	users       *auth.Handler
	videos      *videos.Handler
	uploads     *uploads.Handler // nil when no blob store is configured
	ws          *realtime.Handler
	limiter     *middleware.RateLimiter
}

func newRouter(d routerDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(d.corsOrigins))
	router.Use(middleware.Logger(d.logger))

	router.GET("/health", health(d.db))
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.gatherer, promhttp.HandlerOpts{})))

	router.GET("/ws", d.ws.ServeWs)
	router.GET("/ws/stats", d.ws.Stats)

	authMW := middleware.Auth(d.auth)
	limit := middleware.RateLimit(d.limiter)

	api := router.Group("/api")
	d.users.Register(api.Group("/users"), authMW, limit)
	d.videos.Register(api.Group("/videos"), authMW)
	if d.uploads != nil {
		d.uploads.Register(api.Group("/uploads"), authMW, limit)
	}
	return router
}

func health(db pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := db.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
