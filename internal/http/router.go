// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, websocket endpoints, and route handlers. It centralizes
// cross-cutting concerns such as tracing, correlation IDs, logging, panic
// recovery, metrics, compression, CORS, and rate limiting.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
//   - One gateway/registry pair shared by every websocket route
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/coursehub/go-realtime-backend/internal/config"
	"github.com/coursehub/go-realtime-backend/internal/domain"
	"github.com/coursehub/go-realtime-backend/internal/http/handlers"
	"github.com/coursehub/go-realtime-backend/internal/http/middleware"
	"github.com/coursehub/go-realtime-backend/internal/repo"
	"github.com/coursehub/go-realtime-backend/internal/services"
	"github.com/coursehub/go-realtime-backend/internal/ws"
)

// directoryShim adapts the repository free functions to the directory
// interfaces the websocket handler expects. This keeps the ws package
// decoupled from the concrete repo package while reusing existing functions.
type directoryShim struct{ db *gorm.DB }

// GetUser proxies repo.GetUser.
func (d directoryShim) GetUser(ctx context.Context, id uint) (*domain.User, error) {
	return repo.GetUser(ctx, d.db, id)
}

// GetCourse proxies repo.GetCourse.
func (d directoryShim) GetCourse(ctx context.Context, id uint) (*domain.Course, error) {
	return repo.GetCourse(ctx, d.db, id)
}

// enrollmentHooks implements services.SettlementHooks: after an order
// settles, the buyer is enrolled in each purchased course and the matching
// cart entries are removed. Both operations are individually idempotent, so a
// retried hook cannot double-enroll.
type enrollmentHooks struct{ db *gorm.DB }

// OrderSettled enrolls the buyer and clears the cart, one line item at a
// time. Failures are logged and skipped; the settlement itself is already
// committed and enrollment can be repaired out of band.
func (h enrollmentHooks) OrderSettled(ctx context.Context, order *domain.Order, items []domain.OrderItem) {
	for _, item := range items {
		if err := repo.CreateEnrollment(ctx, h.db, order.UserID, item.CourseID); err != nil {
			log.Error().
				Str("component", "httpapi.hooks").
				Err(err).
				Uint("order_id", order.ID).
				Uint("course_id", item.CourseID).
				Msg("enrollment creation failed")
			continue
		}
		if err := repo.RemoveCartItem(ctx, h.db, order.UserID, item.CourseID); err != nil {
			log.Warn().
				Str("component", "httpapi.hooks").
				Err(err).
				Uint("order_id", order.ID).
				Uint("course_id", item.CourseID).
				Msg("cart cleanup failed")
		}
	}
}

// RegisterRoutes attaches all middleware and endpoints to the given Gin
// engine: observability (tracing, metrics), rate limiting, CORS, health and
// metrics endpoints, the payment-gateway callbacks, the websocket upgrade
// routes, and the versioned REST API. The returned registry lets main drain
// live websocket sessions on graceful shutdown.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. Logger: structured request logs (query redacted on upgrades)
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Compression (websocket paths excluded; the socket is hijacked)
//  7. Metrics
//  8. Rate limiter (per user/IP)
//  9. CORS posture
func RegisterRoutes(r *gin.Engine, db *gorm.DB, cfg config.Config) *ws.Registry {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured request logging
	r.Use(middleware.Logger())

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit (1 MiB)
	r.Use(limitBody(1 << 20))

	// 6) Response compression; upgrade routes bypass it
	r.Use(gzip.Gzip(gzip.DefaultCompression,
		gzip.WithExcludedPathsRegexs([]string{`^/ws/.*`}),
	))

	// 7) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 8) Token-bucket rate limiter per user/IP
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP())
	r.Use(rl.Handler())

	// 9) CORS posture (safe defaults: allow all if none configured)
	if len(cfg.CORS.AllowedOrigins) == 0 {
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	// API docs (disabled by default)
	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// Dependency injection: services ← repo/db
	secret := []byte(cfg.Auth.JWTSecret)
	chatSvc := &services.ChatService{DB: db}
	commentSvc := &services.CommentService{DB: db, MaxDepth: cfg.WS.MaxThreadDepth}
	walletSvc := &services.WalletService{DB: db}
	settlementSvc := &services.SettlementService{DB: db, Hooks: enrollmentHooks{db: db}}

	h := handlers.NewHandlers(db, chatSvc, commentSvc, walletSvc, settlementSvc, secret, cfg.Auth.TokenTTL)

	// Realtime fan-out: one registry and gateway shared by all ws routes
	registry := ws.NewRegistry()
	gateway := &ws.Gateway{Registry: registry, Chats: chatSvc, Comments: commentSvc}
	dirs := directoryShim{db: db}
	wsHandler := ws.NewHandler(registry, gateway, dirs, dirs, secret, ws.SessionConfig{
		SendBuffer:    cfg.WS.SendBuffer,
		MaxFrameBytes: cfg.WS.MaxFrameBytes,
		WriteWait:     cfg.WS.WriteWait,
		PingInterval:  cfg.WS.PingInterval,
		PongWait:      cfg.WS.PongWait,
	})

	// Websocket upgrades (token in query string; browsers cannot set headers here)
	r.GET("/ws/chat/:id", wsHandler.ServeChat)
	r.GET("/ws/comments/:course_id", wsHandler.ServeComments)

	// Payment-gateway browser redirects (no bearer header on a redirect)
	r.GET("/payments/execute", h.ExecutePayment)
	r.GET("/payments/cancel", h.CancelPayment)
	r.GET("/payments/success", h.PaymentSuccess)
	r.GET("/payments/failed", h.PaymentFailed)

	// Public API
	apiBase := cfg.APIBasePath // e.g. "/api/v1"
	api := groupWithPrefix(r, apiBase)
	{
		api.POST("/auth/token", h.IssueToken)

		authed := api.Group("", middleware.RequireAuth(secret))
		{
			// Conversations
			authed.GET("/chats/:id/messages", h.ListChatHistory)

			// Course comment threads
			authed.GET("/courses/:id/comments", h.ListCourseComments)

			// Ledger reads
			authed.GET("/wallet", h.GetWallet)
			authed.GET("/profits", h.ListProfits)
		}
	}

	return registry
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// will cause downstream body reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
