package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/membot/membot/internal/adapter"
	"github.com/membot/membot/internal/chat"
	"github.com/membot/membot/internal/config"
	"github.com/membot/membot/internal/history"
	"github.com/membot/membot/internal/memory"
	"github.com/membot/membot/internal/prompt"
	"github.com/membot/membot/internal/render"
	"github.com/membot/membot/internal/stream"
)

type scriptedLLM struct {
	text string
}

func (s *scriptedLLM) Info() adapter.ModelInfo {
	return adapter.ModelInfo{Name: "scripted", Provider: "test"}
}

func (s *scriptedLLM) Complete(_ context.Context, _ adapter.CompletionRequest) (<-chan adapter.StreamChunk, error) {
	ch := make(chan adapter.StreamChunk, len(s.text))
	for i := 0; i < len(s.text); i += 5 {
		end := i + 5
		if end > len(s.text) {
			end = len(s.text)
		}
		ch <- adapter.StreamChunk{Text: s.text[i:end]}
	}
	close(ch)
	return ch, nil
}

func newTestServer(t *testing.T, llm adapter.LLMAdapter) (*httptest.Server, *memory.Store, *history.Store) {
	t.Helper()
	dir := t.TempDir()

	cfg := config.Default()
	cfg.Data.Dir = dir
	cfg.Stream.HeartbeatIntervalMs = 0 // no heartbeats in tests
	cfg.Stream.RenderIntervalMs = 0

	hist := history.NewStore(dir)
	mem := memory.NewStore(filepath.Join(dir, "memory.txt"), cfg.Memory.MaxLines)
	builder := prompt.NewBuilder(stream.Marker, nil)
	orch := chat.New(cfg, llm, hist, mem, nil, render.New(), builder, nil)

	e := New(NewHandler(cfg, orch, hist, mem, nil, nil))
	ts := httptest.NewServer(e)
	t.Cleanup(ts.Close)
	return ts, mem, hist
}

func TestChatStream_DeliversEventsAndPersists(t *testing.T) {
	llm := &scriptedLLM{text: "Hi Max!" + stream.Marker + `{"memory":{"add":["User's name is Max"]}}`}
	ts, mem, hist := newTestServer(t, llm)

	resp, err := http.Post(ts.URL+"/api/sessions/s1/chat", "application/json",
		strings.NewReader(`{"message":"Remember my name is Max."}`))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		t.Errorf("content type = %q", ct)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	events := string(body)

	for _, want := range []string{"event: model", "event: delta", "event: html", "event: done"} {
		if !strings.Contains(events, want) {
			t.Errorf("missing %q in stream:\n%s", want, events)
		}
	}
	if strings.Contains(events, stream.Marker) {
		t.Error("marker leaked to the wire")
	}

	if lines, _ := mem.Lines(); len(lines) != 1 || lines[0] != "User's name is Max" {
		t.Errorf("memory = %v", lines)
	}
	if msgs, _ := hist.Messages("s1"); len(msgs) != 2 {
		t.Errorf("transcript has %d messages", len(msgs))
	}
}

func TestChatStream_RejectsEmptyMessage(t *testing.T) {
	ts, _, _ := newTestServer(t, &scriptedLLM{text: "x"})

	resp, err := http.Post(ts.URL+"/api/sessions/s1/chat", "application/json", strings.NewReader(`{}`))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d", resp.StatusCode)
	}
}

func TestMemoryEndpoints(t *testing.T) {
	ts, mem, _ := newTestServer(t, &scriptedLLM{text: "x"})
	mem.Write([]string{"a", "b"})

	resp, err := http.Get(ts.URL + "/api/memory")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	var got struct {
		Lines []string `json:"lines"`
		Count int      `json:"count"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	resp.Body.Close()
	if got.Count != 2 || len(got.Lines) != 2 {
		t.Errorf("got %+v", got)
	}

	req, _ := http.NewRequest(http.MethodDelete, ts.URL+"/api/memory", nil)
	dresp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE: %v", err)
	}
	dresp.Body.Close()
	if dresp.StatusCode != http.StatusNoContent {
		t.Errorf("status = %d", dresp.StatusCode)
	}
	if lines, _ := mem.Lines(); len(lines) != 0 {
		t.Errorf("memory = %v", lines)
	}
}

func TestUpload_ReturnsImageRef(t *testing.T) {
	ts, _, _ := newTestServer(t, &scriptedLLM{text: "x"})

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, _ := mw.CreateFormFile("file", "cat.png")
	part.Write([]byte("png-bytes"))
	mw.Close()

	resp, err := http.Post(ts.URL+"/api/sessions/s1/uploads", mw.FormDataContentType(), &buf)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var ref history.ImageRef
	if err := json.NewDecoder(resp.Body).Decode(&ref); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ref.Name != "cat.png" || ref.SizeBytes != int64(len("png-bytes")) {
		t.Errorf("ref = %+v", ref)
	}
	if !strings.HasPrefix(ref.PublicURL, "/files/s1/") {
		t.Errorf("public url = %q", ref.PublicURL)
	}

	// The uploaded bytes are retrievable at the public URL.
	got, err := http.Get(ts.URL + ref.PublicURL)
	if err != nil {
		t.Fatalf("GET upload: %v", err)
	}
	defer got.Body.Close()
	data, _ := io.ReadAll(got.Body)
	if string(data) != "png-bytes" {
		t.Errorf("served %q", data)
	}
}

func TestGetMessages_EmptySession(t *testing.T) {
	ts, _, _ := newTestServer(t, &scriptedLLM{text: "x"})

	resp, err := http.Get(ts.URL + "/api/sessions/none/messages")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	var msgs []history.Message
	if err := json.NewDecoder(resp.Body).Decode(&msgs); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(msgs) != 0 {
		t.Errorf("got %v", msgs)
	}
}
