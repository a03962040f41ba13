package gateway

import (
	"context"
	"fmt"
	"time"

	"github.com/biodoia/agriconnect/internal/agents"
	"github.com/biodoia/agriconnect/pkg/config"
	"github.com/biodoia/agriconnect/pkg/database"
	"github.com/biodoia/agriconnect/pkg/middleware"
	"github.com/gofiber/fiber/v3"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

// Gateway è il fronte HTTP del backend multi-agente
type Gateway struct {
	config  *config.Config
	db      *database.DB
	app     *fiber.App
	service *agents.Service
	metrics *Metrics
}

// New crea una nuova istanza del gateway
func New(cfg *config.Config, db *database.DB, service *agents.Service) (*Gateway, error) {
	if service == nil {
		return nil, fmt.Errorf("agent service is required")
	}

	app := fiber.New(fiber.Config{
		AppName:      "AgriConnect Backend",
		ServerHeader: "AgriConnect/1.0",
		ErrorHandler: customErrorHandler,
	})

	gw := &Gateway{
		config:  cfg,
		db:      db,
		app:     app,
		service: service,
	}

	if cfg.Monitoring.Prometheus.Enabled {
		gw.metrics = NewMetrics("agriconnect")
	}

	gw.setupMiddlewares()
	gw.setupRoutes()

	return gw, nil
}

// customErrorHandler gestisce gli errori globali
func customErrorHandler(c fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(fiber.Map{
		"error":      message,
		"request_id": middleware.GetRequestID(c),
	})
}

// setupMiddlewares configura i middleware globali
func (g *Gateway) setupMiddlewares() {
	// Recovery per primo, per catturare tutti i panic
	g.app.Use(middleware.Recovery())
	g.app.Use(middleware.RequestID())
	g.app.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	g.app.Use(middleware.Logging(middleware.LoggingConfig{
		SkipPaths: []string{"/health", "/ready", "/metrics"},
	}))
}

// setupRoutes configura le route HTTP
func (g *Gateway) setupRoutes() {
	g.app.Get("/health", g.handleHealth)
	g.app.Get("/ready", g.handleReady)

	if g.metrics != nil {
		g.app.Get("/metrics", func(c fiber.Ctx) error {
			handler := fasthttpadaptor.NewFastHTTPHandler(promhttp.Handler())
			handler(c.RequestCtx())
			return nil
		})
	}

	api := g.app.Group("/api/v1")

	agentsGroup := api.Group("/agents")
	agentsGroup.Get("/", g.handleListAgents)
	agentsGroup.Post("/message", g.handleMessage)
	agentsGroup.Get("/health", g.handleAgentsHealth)
	agentsGroup.Get("/capabilities/:type", g.handleCapabilities)
	agentsGroup.Post("/:type/message", g.handleDirectMessage)

	reviews := api.Group("/reviews")
	reviews.Get("/", g.handleListReviews)
	reviews.Post("/:id/resolve", g.handleResolveReview)
}

// Start avvia il gateway
func (g *Gateway) Start() error {
	addr := fmt.Sprintf("%s:%d", g.config.Server.Host, g.config.Server.Port)

	log.Info().
		Str("addr", addr).
		Msg("Gateway listening")

	return g.app.Listen(addr)
}

// Shutdown esegue lo shutdown graceful del gateway
func (g *Gateway) Shutdown(ctx context.Context) error {
	if err := g.app.ShutdownWithContext(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	log.Info().Msg("Gateway shutdown completed")
	return nil
}

// handleHealth endpoint di health check
func (g *Gateway) handleHealth(c fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":    "healthy",
		"timestamp": time.Now().Unix(),
		"version":   "1.0.0",
	})
}

// handleReady endpoint di readiness check
func (g *Gateway) handleReady(c fiber.Ctx) error {
	sqlDB, err := g.db.DB.DB()
	if err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"ready": false,
			"error": "database connection failed",
		})
	}
	if err := sqlDB.Ping(); err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"ready": false,
			"error": "database ping failed",
		})
	}

	return c.JSON(fiber.Map{
		"ready":     true,
		"timestamp": time.Now().Unix(),
	})
}
