package server

import (
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/membot/membot/internal/db"
	"github.com/membot/membot/internal/history"
)

func (h *Handler) listSessions(c echo.Context) error {
	if h.index == nil {
		return c.JSON(http.StatusOK, []db.Session{})
	}
	sessions, err := h.index.List()
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if sessions == nil {
		sessions = []db.Session{}
	}
	return c.JSON(http.StatusOK, sessions)
}

func (h *Handler) getMessages(c echo.Context) error {
	msgs, err := h.hist.Messages(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if msgs == nil {
		msgs = []history.Message{}
	}
	return c.JSON(http.StatusOK, msgs)
}

func (h *Handler) getMemory(c echo.Context) error {
	lines, err := h.mem.Lines()
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if lines == nil {
		lines = []string{}
	}
	return c.JSON(http.StatusOK, map[string]any{
		"lines": lines,
		"count": len(lines),
	})
}

func (h *Handler) clearMemory(c echo.Context) error {
	if err := h.mem.Clear(); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

// upload accepts one multipart file, stores it under the session's upload
// dir, and returns the ImageRef for attaching to the next message.
func (h *Handler) upload(c echo.Context) error {
	sessionID := c.Param("id")

	fh, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "missing file field")
	}

	src, err := fh.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	defer src.Close()

	dir, err := h.hist.UploadDir(sessionID)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	// Prefix with a fresh id so repeated names never collide.
	name := uuid.NewString()[:8] + "-" + sanitizeFilename(fh.Filename)
	path := filepath.Join(dir, name)

	dst, err := os.Create(path)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	defer dst.Close()

	size, err := io.Copy(dst, src)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	ref := history.ImageRef{
		Name:        fh.Filename,
		MimeType:    fh.Header.Get("Content-Type"),
		SizeBytes:   size,
		StoragePath: path,
		PublicURL:   "/files/" + sessionID + "/" + name,
	}
	return c.JSON(http.StatusCreated, ref)
}

func (h *Handler) serveUpload(c echo.Context) error {
	dir, err := h.hist.UploadDir(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound)
	}
	name := sanitizeFilename(c.Param("name"))
	return c.File(filepath.Join(dir, name))
}

func sanitizeFilename(name string) string {
	name = filepath.Base(name)
	name = strings.ReplaceAll(name, "..", "")
	if name == "" || name == "." || name == string(filepath.Separator) {
		name = "upload"
	}
	return name
}
