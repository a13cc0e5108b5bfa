// Package httpapi serves the stored photo and detection results over HTTP.
package httpapi

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/ironsheep/signscan/internal/imaging"
	"github.com/ironsheep/signscan/internal/log"
	"github.com/ironsheep/signscan/internal/pipeline"
)

// maxUpload bounds the photo accepted by POST /api/detect.
const maxUpload = 8 << 20

// Server is the HTTP front end.
type Server struct {
	app       *fiber.App
	pipe      *pipeline.Pipeline
	photoPath string
	log       *slog.Logger
}

// New wires the routes. photoPath is where the published frame lives.
func New(p *pipeline.Pipeline, photoPath string) *Server {
	s := &Server{
		pipe:      p,
		photoPath: photoPath,
		log:       log.With("component", "http"),
	}

	app := fiber.New(fiber.Config{
		AppName:               "signscan",
		DisableStartupMessage: true,
		BodyLimit:             maxUpload,
	})
	app.Use(recover.New())
	app.Use(cors.New())

	app.Get("/photo.jpg", s.handlePhoto)
	app.Get("/health", s.handleHealth)

	api := app.Group("/api")
	api.Get("/result", s.handleResult)
	api.Post("/detect", s.handleDetect)

	s.app = app
	return s
}

// App exposes the fiber app, mainly for tests.
func (s *Server) App() *fiber.App { return s.app }

// Listen serves on addr until Shutdown is called.
func (s *Server) Listen(addr string) error {
	s.log.Info("http server listening", "addr", addr, "photo", s.photoPath)
	return s.app.Listen(addr)
}

// Shutdown stops the server, waiting for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

// handlePhoto streams the stored frame. A missing file is a server error,
// matching the camera firmware.
func (s *Server) handlePhoto(c *fiber.Ctx) error {
	if _, err := os.Stat(s.photoPath); err != nil {
		s.log.Error("photo unavailable", "path", s.photoPath, "error", err)
		return c.SendStatus(fiber.StatusInternalServerError)
	}
	c.Type("jpg")
	return c.SendFile(s.photoPath)
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// handleResult returns the latest report.
func (s *Server) handleResult(c *fiber.Ctx) error {
	rep := s.pipe.Latest()
	if rep == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "no scan has completed yet",
		})
	}
	return c.JSON(rep)
}

// handleDetect scans the stored photo. A non-empty body replaces the photo
// first. ?read_text=true runs OCR over an accepted tile.
func (s *Server) handleDetect(c *fiber.Ctx) error {
	opts := pipeline.Options{ReadText: c.QueryBool("read_text", false)}
	ctx := c.UserContext()

	if body := c.Body(); len(body) > 0 {
		frame, err := imaging.DecodeFrame(bytes.NewReader(body), s.pipe.Frames().Size())
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		if err := imaging.SaveImage(s.photoPath, frame.ToNRGBA()); err != nil {
			s.log.Error("failed to store photo", "path", s.photoPath, "error", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		}
		s.pipe.Frames().Evict(s.photoPath)

		rep, err := s.pipe.DetectImage(ctx, frame, s.photoPath, opts)
		if err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(rep)
	}

	// The file may have been replaced out of band since it was cached.
	s.pipe.Frames().Evict(s.photoPath)
	rep, _, err := s.pipe.DetectFile(ctx, s.photoPath, opts)
	switch {
	case err == nil:
		return c.JSON(rep)
	case errors.Is(err, os.ErrNotExist):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "no photo stored"})
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": err.Error()})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
}
