// Package server exposes membot over HTTP: a JSON API, an SSE chat stream,
// uploads, and the embedded browser UI.
package server

import (
	"embed"
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/membot/membot/internal/chat"
	"github.com/membot/membot/internal/config"
	"github.com/membot/membot/internal/db"
	"github.com/membot/membot/internal/history"
	"github.com/membot/membot/internal/memory"
)

//go:embed static
var staticFS embed.FS

// Handler bundles the collaborators the HTTP layer needs.
type Handler struct {
	cfg    config.Config
	orch   *chat.Orchestrator
	hist   *history.Store
	mem    *memory.Store
	index  *db.SessionIndex
	logger *slog.Logger
}

// NewHandler creates a Handler.
func NewHandler(cfg config.Config, orch *chat.Orchestrator, hist *history.Store,
	mem *memory.Store, index *db.SessionIndex, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{cfg: cfg, orch: orch, hist: hist, mem: mem, index: index, logger: logger}
}

// New creates and configures the echo server.
func New(h *Handler) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	h.RegisterRoutes(e)
	return e
}

// RegisterRoutes attaches all routes.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	api := e.Group("/api")
	api.GET("/sessions", h.listSessions)
	api.GET("/sessions/:id/messages", h.getMessages)
	api.POST("/sessions/:id/chat", h.chatStream)
	api.POST("/sessions/:id/uploads", h.upload)
	api.GET("/memory", h.getMemory)
	api.DELETE("/memory", h.clearMemory)

	// Uploaded files only; the rest of the session tree stays private.
	e.GET("/files/:id/:name", h.serveUpload)

	ui, err := fs.Sub(staticFS, "static")
	if err == nil {
		e.GET("/", echo.WrapHandler(http.FileServer(http.FS(ui))))
		e.GET("/index.html", echo.WrapHandler(http.FileServer(http.FS(ui))))
	}
}
