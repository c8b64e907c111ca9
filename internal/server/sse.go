package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/membot/membot/internal/history"
)

type chatRequest struct {
	Message string             `json:"message"`
	Images  []history.ImageRef `json:"images,omitempty"`
}

// chatStream runs one generation request and streams its events to the
// client as SSE. The response stays open until the orchestrator finishes;
// heartbeat comments flow on a fixed interval to defeat intermediary
// buffering regardless of generation progress.
func (h *Handler) chatStream(c echo.Context) error {
	var req chatRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Message == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "message is required")
	}

	w := c.Response()
	w.Header().Set(echo.HeaderContentType, "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	w.Flush()

	sink := newSSESink(w)
	stop := sink.startHeartbeat(h.cfg.Stream.HeartbeatInterval())
	defer stop()

	// Orchestrator errors were already delivered as an SSE error event; the
	// HTTP status is long gone by now.
	if _, err := h.orch.Chat(c.Request().Context(), c.Param("id"), req.Message, req.Images, sink); err != nil {
		h.logger.Error("chat request failed", "session", c.Param("id"), "err", err)
	}
	return nil
}

var errClientGone = errors.New("sse: client gone")

// sseSink writes typed events to one SSE response. A mutex serializes the
// orchestrator's emissions with the heartbeat goroutine; after the first
// write failure every further write reports the client as gone.
type sseSink struct {
	mu   sync.Mutex
	w    *echo.Response
	dead bool
}

func newSSESink(w *echo.Response) *sseSink {
	return &sseSink{w: w}
}

func (s *sseSink) ModelAnnounced(model string) error {
	return s.event("model", map[string]string{"model": model})
}

func (s *sseSink) Delta(text string) error {
	return s.event("delta", map[string]string{"text": text})
}

func (s *sseSink) HTML(html string) error {
	return s.event("html", map[string]string{"html": html})
}

func (s *sseSink) Error(message string) error {
	return s.event("error", map[string]string{"message": message})
}

func (s *sseSink) Done() error {
	return s.event("done", map[string]string{})
}

func (s *sseSink) event(name string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("sse: marshal %s event: %w", name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dead {
		return errClientGone
	}
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", name, data); err != nil {
		s.dead = true
		return errClientGone
	}
	s.w.Flush()
	return nil
}

// startHeartbeat emits comment lines on the given interval until the
// returned stop func is called. Comments carry no semantic payload; SSE
// consumers ignore them.
func (s *sseSink) startHeartbeat(interval time.Duration) func() {
	if interval <= 0 {
		return func() {}
	}
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				s.mu.Lock()
				if !s.dead {
					if _, err := fmt.Fprint(s.w, ": heartbeat\n\n"); err != nil {
						s.dead = true
					} else {
						s.w.Flush()
					}
				}
				s.mu.Unlock()
			}
		}
	}()
	return func() { close(done) }
}
