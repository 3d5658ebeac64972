package api

import (
	"fmt"
	"log/slog"
	"net"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"

	"github.com/papercomputeco/churnsense/api/mcp"
	"github.com/papercomputeco/churnsense/pkg/logger"
	"github.com/papercomputeco/churnsense/pkg/storage"
)

// Server is the API server for saving and querying churn predictions.
type Server struct {
	config Config
	driver storage.Driver
	logger *slog.Logger
	app    *fiber.App
}

// NewServer creates a new API server.
// The driver is injected so it can be shared with other components.
func NewServer(config Config, driver storage.Driver, log *slog.Logger) (*Server, error) {
	if driver == nil {
		return nil, fmt.Errorf("storage driver is required")
	}
	if log == nil {
		log = logger.Nop()
	}
	if config.AllowOrigins == "" {
		config.AllowOrigins = "*"
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})
	app.Use(cors.New(cors.Config{
		AllowOrigins: config.AllowOrigins,
		AllowMethods: "GET, POST, DELETE, OPTIONS",
	}))

	s := &Server{
		config: config,
		driver: driver,
		logger: log,
		app:    app,
	}

	app.Get("/ping", s.handlePing)
	app.Post("/predictions", s.handleSavePrediction)
	app.Get("/predictions", s.handleListPredictions)
	app.Get("/predictions/:id", s.handleGetPrediction)
	app.Get("/predictions/:id/reload", s.handleReloadPrediction)
	app.Delete("/predictions/:id", s.handleDeletePrediction)

	if config.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(config.Metrics.Handler()))
	}

	mcpServer, err := mcp.NewServer(mcp.Config{
		Driver: driver,
		Noop:   config.DisableMCP,
		Logger: log,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create MCP server: %w", err)
	}
	if h := mcpServer.Handler(); h != nil {
		app.All("/mcp", adaptor.HTTPHandler(h))
	}

	return s, nil
}

// App returns the underlying fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

// Run starts the API server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting API server",
		"listen", s.config.ListenAddr,
	)
	return s.app.Listen(s.config.ListenAddr)
}

// RunWithListener starts the API server using the provided listener.
func (s *Server) RunWithListener(listener net.Listener) error {
	s.logger.Info("starting API server",
		"listen", listener.Addr().String(),
	)
	return s.app.Listener(listener)
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
