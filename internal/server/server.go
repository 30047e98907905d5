// Package server exposes a site over HTTP: collection and entity access,
// entity view forms, JSON-LD contexts and collection maintenance.
package server

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog"

	"github.com/agentic-research/annalist/api"
	"github.com/agentic-research/annalist/internal/form"
	"github.com/agentic-research/annalist/internal/model"
	"github.com/agentic-research/annalist/internal/rendertype"
)

// Options configures a Server.
type Options struct {
	// ReadOnly rejects every request that would modify the site.
	ReadOnly bool
	Logger   zerolog.Logger
}

// Server serves one site.
type Server struct {
	site     *model.Site
	app      *fiber.App
	log      zerolog.Logger
	readOnly bool
}

func New(site *model.Site, opts Options) *Server {
	s := &Server{site: site, log: opts.Logger, readOnly: opts.ReadOnly}
	s.app = fiber.New(fiber.Config{
		ErrorHandler:          s.errorHandler,
		DisableStartupMessage: true,
	})
	s.app.Use(recover.New())
	s.app.Use(s.requestLogger)
	s.routes()
	return s
}

// App returns the underlying fiber application.
func (s *Server) App() *fiber.App { return s.app }

// Listen serves on addr until Shutdown is called.
func (s *Server) Listen(addr string) error {
	s.log.Info().Str("addr", addr).Bool("read_only", s.readOnly).Msg("listening")
	return s.app.Listen(addr)
}

func (s *Server) Shutdown() error { return s.app.Shutdown() }

func (s *Server) routes() {
	r := s.app.Group("/api")
	r.Get("/c", s.listCollections)
	r.Get("/c/:coll", s.getCollection)
	r.Get("/c/:coll/context", s.getContext)
	r.Get("/c/:coll/d", s.listEntities)
	r.Get("/c/:coll/d/:type", s.listEntities)
	r.Get("/c/:coll/d/:type/:id", s.getEntity)
	r.Get("/c/:coll/v/:view/:type/:id", s.getForm)

	r.Put("/c/:coll/d/:type/:id", s.writable, s.putEntity)
	r.Delete("/c/:coll/d/:type/:id", s.writable, s.deleteEntity)
	r.Post("/c/:coll/v/:view/:type/:id", s.writable, s.postForm)
	r.Post("/c/:coll/migrate", s.writable, s.migrateCollection)

	s.app.Use(func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusNotFound, "[404] Resource Not Found")
	})
}

func (s *Server) writable(c *fiber.Ctx) error {
	if s.readOnly {
		return fiber.NewError(fiber.StatusForbidden, "site is read only")
	}
	return c.Next()
}

func (s *Server) requestLogger(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()
	s.log.Debug().
		Str("method", c.Method()).
		Str("path", c.Path()).
		Int("status", c.Response().StatusCode()).
		Dur("elapsed", time.Since(start)).
		Msg("request")
	return err
}

// errorHandler maps errors to status codes and writes an ErrorResponse.
func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := err.Error()
	errorType := "internal"

	var fe *fiber.Error
	var idErr *model.IDError
	var verr *form.ValidationError
	var modeErr *rendertype.ModeError
	switch {
	case errors.As(err, &fe):
		code = fe.Code
		message = fe.Message
		errorType = ""
	case errors.Is(err, model.ErrNotFound):
		code = fiber.StatusNotFound
		errorType = "not_found"
	case errors.Is(err, model.ErrExists):
		code = fiber.StatusConflict
		errorType = "exists"
	case errors.As(err, &idErr), errors.As(err, &verr), errors.As(err, &modeErr):
		code = fiber.StatusBadRequest
		errorType = "validation"
	}
	if code >= fiber.StatusInternalServerError {
		s.log.Error().Err(err).Str("path", c.Path()).Msg("request failed")
	}
	return c.Status(code).JSON(api.ErrorResponse{
		Status:    code,
		Message:   message,
		OK:        false,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		URL:       c.OriginalURL(),
		Type:      errorType,
	})
}
