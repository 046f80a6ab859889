// Package ops serves the relay's operational HTTP endpoints: probes,
// Prometheus metrics and a read-only view of open tickets.
package ops

import (
	"encoding/json"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog"

	"github.com/p-blackswan/support-relay/internal/health"
	"github.com/p-blackswan/support-relay/internal/metrics"
	"github.com/p-blackswan/support-relay/internal/requestid"
	"github.com/p-blackswan/support-relay/internal/ticket"
)

const defaultListenAddr = ":8080"

// TicketSource is the read side of the ticket registry.
type TicketSource interface {
	Summary() ticket.Summary
	Tickets() []ticket.Ticket
	StateOf(threadID string) ticket.State
}

// Config holds configuration for the ops server.
type Config struct {
	ListenAddr string
}

// Server is the ops Fiber application.
type Server struct {
	app     *fiber.App
	checker *health.Checker
	tickets TicketSource
	logger  zerolog.Logger
	config  Config
}

// NewServer creates and configures the ops server. m may be nil.
func NewServer(cfg Config, checker *health.Checker, tickets TicketSource, m *metrics.Metrics, logger zerolog.Logger) *Server {
	logger = logger.With().Str("component", "ops_server").Logger()

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler(logger),
		JSONEncoder:           json.Marshal,
		JSONDecoder:           json.Unmarshal,
	})

	s := &Server{
		app:     app,
		checker: checker,
		tickets: tickets,
		logger:  logger,
		config:  cfg,
	}

	s.setupMiddleware()
	s.setupRoutes(m)

	return s
}

func (s *Server) setupMiddleware() {
	s.app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
	}))

	s.app.Use(func(c *fiber.Ctx) error {
		reqID := c.Get("X-Request-ID")
		if reqID == "" {
			_, reqID = requestid.New(c.Context())
		}
		c.Set("X-Request-ID", reqID)
		c.Locals("request_id", reqID)
		return c.Next()
	})

	s.app.Use(func(c *fiber.Ctx) error {
		path := c.Path()
		// Skip noisy probe logging
		if path == "/healthz" || path == "/readyz" || path == "/metrics" {
			return c.Next()
		}

		s.logger.Info().
			Str("method", c.Method()).
			Str("path", path).
			Str("ip", c.IP()).
			Str("request_id", fmt.Sprintf("%v", c.Locals("request_id"))).
			Msg("ops request")

		return c.Next()
	})
}

func (s *Server) setupRoutes(m *metrics.Metrics) {
	s.app.Get("/healthz", s.liveness)
	s.app.Get("/readyz", s.readiness)

	if m != nil {
		s.app.Get("/metrics", adaptor.HTTPHandler(m.Handler()))
	} else {
		s.app.Get("/metrics", func(c *fiber.Ctx) error {
			return c.SendString("# No metrics collector configured\n")
		})
	}

	s.app.Get("/tickets", s.listTickets)
}

// Start starts the server. Blocks until stopped.
func (s *Server) Start() error {
	addr := s.config.ListenAddr
	if addr == "" {
		addr = defaultListenAddr
	}

	s.logger.Info().Str("addr", addr).Msg("ops server starting")
	return s.app.Listen(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown() error {
	s.logger.Info().Msg("ops server shutting down")
	return s.app.Shutdown()
}

// App returns the underlying Fiber app (useful for testing).
func (s *Server) App() *fiber.App {
	return s.app
}

func errorHandler(logger zerolog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		if e, ok := err.(*fiber.Error); ok {
			code = e.Code
		}

		logger.Error().
			Err(err).
			Int("status", code).
			Str("path", c.Path()).
			Str("method", c.Method()).
			Msg("unhandled error")

		return c.Status(code).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
}
