package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/vigilops/vigil-core/internal/api/handlers"
	"github.com/vigilops/vigil-core/internal/api/middleware"
	ws "github.com/vigilops/vigil-core/internal/api/websocket"
	"github.com/vigilops/vigil-core/internal/config"
	"github.com/vigilops/vigil-core/internal/monitoring"
	"github.com/vigilops/vigil-core/internal/services"
	"github.com/vigilops/vigil-core/internal/storage"
	"github.com/vigilops/vigil-core/pkg/cache"
	"github.com/vigilops/vigil-core/pkg/logger"
)

// Deps bundles the engine services the API exposes.
type Deps struct {
	Store     storage.Store
	Ingest    *services.Ingestor
	Lifecycle *services.EscalationService
	Matcher   *services.RuleMatcher
	Audit     *services.AuditService
	Hub       *ws.Hub
}

type Server struct {
	config     *config.Config
	logger     logger.Logger
	cache      cache.Valkey
	deps       Deps
	router     *gin.Engine
	httpServer *http.Server
}

func NewServer(cfg *config.Config, log logger.Logger, valkeyCache cache.Valkey, deps Deps) *Server {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	server := &Server{
		config: cfg,
		logger: log,
		cache:  valkeyCache,
		deps:   deps,
		router: gin.New(),
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}

func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())

	// CORS for the back-office dashboard
	s.router.Use(middleware.CORSMiddleware(s.config.CORS))

	s.router.Use(middleware.RequestLogger(s.logger))

	s.router.Use(middleware.MetricsMiddleware())

	// API rate limiting backed by Valkey
	s.router.Use(middleware.RateLimiter(s.cache, 1000))

	// Swagger UI over the static openapi.yaml. Visit /swagger/index.html
	s.router.StaticFile("/api/openapi.yaml", "./api/openapi.yaml")
	s.router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/api/openapi.yaml")))

	monitoring.SetupPrometheusMetrics(s.router)
}

func (s *Server) setupRoutes() {
	healthHandler := handlers.NewHealthHandler(s.cache, s.logger)
	alertHandler := handlers.NewAlertHandler(s.deps.Ingest, s.deps.Store, s.logger)
	escalationHandler := handlers.NewEscalationHandler(s.deps.Lifecycle, s.logger)
	ruleHandler := handlers.NewRuleHandler(s.deps.Store, s.deps.Matcher, s.logger)
	channelHandler := handlers.NewChannelHandler(s.deps.Store, s.logger)
	auditHandler := handlers.NewAuditHandler(s.deps.Audit, s.logger)

	s.router.GET("/health", healthHandler.HealthCheck)
	s.router.GET("/ready", healthHandler.ReadinessCheck)

	v1 := s.router.Group("/api/v1")
	{
		v1.POST("/alerts", alertHandler.EmitAlert)
		v1.GET("/alerts", alertHandler.ListAlerts)
		v1.GET("/alerts/:id", alertHandler.GetAlert)
		v1.POST("/alerts/:id/resolve", alertHandler.ResolveAlert)

		v1.GET("/escalations", escalationHandler.ListInstances)
		v1.GET("/escalations/:id", escalationHandler.GetInstance)
		v1.GET("/escalations/:id/history", escalationHandler.GetHistory)
		v1.POST("/escalations/:id/acknowledge", escalationHandler.Acknowledge)
		v1.POST("/escalations/:id/resolve", escalationHandler.Resolve)

		v1.GET("/rules", ruleHandler.ListRules)
		v1.POST("/rules", ruleHandler.CreateRule)
		v1.POST("/rules/test", ruleHandler.TestRule)
		v1.GET("/rules/:id", ruleHandler.GetRule)
		v1.PUT("/rules/:id", ruleHandler.UpdateRule)
		v1.DELETE("/rules/:id", ruleHandler.DeactivateRule)

		v1.GET("/channels", channelHandler.ListChannels)
		v1.GET("/channels/:id", channelHandler.GetChannel)
		v1.PUT("/channels/:id", channelHandler.UpsertChannel)

		v1.GET("/audit", auditHandler.QueryAudit)

		if s.deps.Hub != nil {
			v1.GET("/stream", func(c *gin.Context) {
				s.deps.Hub.ServeWS(c.Writer, c.Request)
			})
		}
	}
}

func (s *Server) Start(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("VIGIL-CORE REST API server starting", "port", s.config.Port)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
		s.logger.Info("Shutting down VIGIL-CORE gracefully")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}

// Handler returns the underlying Gin engine so tests (or embedders) can mount it.
func (s *Server) Handler() http.Handler {
	return s.router
}
