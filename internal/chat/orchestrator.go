package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/membot/membot/internal/adapter"
	"github.com/membot/membot/internal/config"
	"github.com/membot/membot/internal/db"
	"github.com/membot/membot/internal/history"
	"github.com/membot/membot/internal/memory"
	"github.com/membot/membot/internal/metadata"
	"github.com/membot/membot/internal/prompt"
	"github.com/membot/membot/internal/render"
	"github.com/membot/membot/internal/stream"
)

// phase is the request state, used for logging and error context.
type phase string

const (
	phaseAwaitingGeneration phase = "awaiting_generation"
	phaseSplittingStream    phase = "splitting_stream"
	phaseFinalizing         phase = "finalizing"
	phaseApplyingEdits      phase = "applying_edits"
	phaseDone               phase = "done"
)

// Orchestrator handles chat requests. All collaborators are injected at
// construction; the config is immutable.
type Orchestrator struct {
	cfg      config.Config
	llm      adapter.LLMAdapter
	history  *history.Store
	memory   *memory.Store
	index    *db.SessionIndex // nil disables the session index
	renderer *render.Renderer
	builder  *prompt.Builder
	logger   *slog.Logger

	locks sessionLocks
}

// New creates an Orchestrator.
func New(cfg config.Config, llm adapter.LLMAdapter, hist *history.Store, mem *memory.Store,
	index *db.SessionIndex, renderer *render.Renderer, builder *prompt.Builder, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		cfg:      cfg,
		llm:      llm,
		history:  hist,
		memory:   mem,
		index:    index,
		renderer: renderer,
		builder:  builder,
		logger:   logger,
	}
}

// Result reports what one request did.
type Result struct {
	Reply          string
	Patch          memory.PatchResult
	MemoryLines    []string
	SummaryUpdated bool
	// MetadataDiag describes a malformed directive tail. Non-fatal: the
	// reply is still delivered and persisted.
	MetadataDiag string
}

// Chat runs one request: appends the user message, builds the prompt,
// streams the generation through the splitter to the transport, and applies
// any recovered directives. A client disconnect mid-stream stops emission
// but the request still runs to completion so that transcript and memory
// reflect what the generator decided.
func (o *Orchestrator) Chat(ctx context.Context, sessionID, userText string, images []history.ImageRef, ev Events) (*Result, error) {
	unlock := o.locks.acquire(sessionID)
	defer unlock()

	log := o.logger.With("session", sessionID)

	// The user's message is persisted before the upstream call: on failure
	// it is the only thing this turn leaves behind.
	userMsg := history.Message{
		Role:      history.RoleUser,
		Content:   userText,
		Timestamp: time.Now().UTC(),
		Images:    images,
	}
	if err := o.history.Append(sessionID, userMsg); err != nil {
		return nil, o.fail(ev, phaseAwaitingGeneration, err)
	}
	o.touchIndex(sessionID, deriveTitle(userText), 1)

	msgs, err := o.history.Messages(sessionID)
	if err != nil {
		return nil, o.fail(ev, phaseAwaitingGeneration, err)
	}
	memLines, err := o.memory.Lines()
	if err != nil {
		return nil, o.fail(ev, phaseAwaitingGeneration, err)
	}
	summary, err := o.history.Summary(sessionID)
	if err != nil {
		return nil, o.fail(ev, phaseAwaitingGeneration, err)
	}

	recent, window := prompt.Partition(msgs, o.cfg.Context.RecentMessages, o.cfg.Context.SummaryWindow)
	requestSummary := len(msgs) >= o.cfg.Context.SummarizeAfter && len(window) > 0

	system := o.builder.System(prompt.BuildInput{
		MemoryLines:        memLines,
		Summary:            summary,
		SummaryWindow:      window,
		RequestSummary:     requestSummary,
		SummaryTokenBudget: o.cfg.Context.SummaryTokenBudget,
	})

	info := o.llm.Info()
	emit := newEmitter(ev, log)
	emit.do(func(e Events) error { return e.ModelAnnounced(info.Name) })

	// The generation is never cancelled once started: even if the client
	// goes away we let it finish and persist the outcome, so the transcript
	// never desynchronizes from what the generator decided.
	chunks, err := o.llm.Complete(context.WithoutCancel(ctx), adapter.CompletionRequest{
		SystemPrompt: system,
		Messages:     toChatMessages(recent),
		Model:        o.cfg.Model.Name,
		MaxTokens:    o.cfg.Model.MaxTokens,
		Temperature:  o.cfg.Model.Temperature,
		Stream:       o.cfg.Model.Stream,
	})
	if err != nil {
		return nil, o.fail(ev, phaseAwaitingGeneration, err)
	}

	sp := stream.NewSplitter(stream.Marker)
	var (
		lastRender   time.Time
		lastRendered string
	)
	for chunk := range chunks {
		if chunk.Error != nil {
			return nil, o.fail(ev, phaseSplittingStream, chunk.Error)
		}

		var out string
		if chunk.Replace {
			out = sp.Rebase(chunk.Text)
		} else {
			out = sp.Push(chunk.Text)
		}
		if out != "" {
			emit.do(func(e Events) error { return e.Delta(out) })
		}

		// Re-render on a minimum interval rather than per fragment.
		if interval := o.cfg.Stream.RenderInterval(); time.Since(lastRender) >= interval {
			if visible := sp.Visible(); visible != "" && visible != lastRendered {
				html := o.renderer.HTML(visible)
				emit.do(func(e Events) error { return e.HTML(html) })
				lastRender = time.Now()
				lastRendered = visible
			}
		}
	}

	if out := sp.Flush(); out != "" {
		emit.do(func(e Events) error { return e.Delta(out) })
	}

	res := &Result{MemoryLines: memLines}

	reply, directives, mdErr := metadata.Extract(sp.Raw(), stream.Marker)
	reply = strings.TrimSpace(reply)
	if mdErr != nil {
		// Malformed metadata degrades to a plain reply; memory and summary
		// stay untouched.
		res.MetadataDiag = mdErr.Error()
		log.Warn("directive tail unreadable", "phase", phaseFinalizing, "err", mdErr)
	}
	res.Reply = reply

	// Unconditional final render over the definitive reply text.
	finalHTML := o.renderer.HTML(reply)
	emit.do(func(e Events) error { return e.HTML(finalHTML) })

	if directives != nil {
		if directives.Memory != nil {
			lines, patch, err := o.memory.ApplyEdits(*directives.Memory)
			if err != nil {
				log.Error("memory edits not persisted", "phase", phaseApplyingEdits, "err", err)
			} else {
				res.Patch = patch
				res.MemoryLines = lines
				if patch.Removed+patch.Added+patch.Deduped > 0 {
					log.Info("memory patched", "removed", patch.Removed, "added", patch.Added, "deduped", patch.Deduped)
				}
			}
		}
		if directives.Summary != nil && directives.Summary.Update {
			if err := o.history.WriteSummary(sessionID, directives.Summary.Text); err != nil {
				log.Error("summary not persisted", "phase", phaseApplyingEdits, "err", err)
			} else {
				res.SummaryUpdated = true
			}
		}
	}

	// A degraded reply is still a valid reply: the assistant message is
	// appended even when the metadata was absent or unreadable.
	assistantMsg := history.Message{
		Role:      history.RoleAssistant,
		Content:   reply,
		Timestamp: time.Now().UTC(),
	}
	if err := o.history.Append(sessionID, assistantMsg); err != nil {
		return res, o.fail(ev, phaseApplyingEdits, err)
	}
	o.touchIndex(sessionID, "", 1)

	emit.do(func(e Events) error { return e.Done() })
	log.Info("request complete", "phase", phaseDone, "reply_chars", len(reply), "summary_updated", res.SummaryUpdated)
	return res, nil
}

// fail surfaces a fatal error to the client and returns it.
func (o *Orchestrator) fail(ev Events, p phase, err error) error {
	wrapped := fmt.Errorf("chat: %s: %w", p, err)
	o.logger.Error("request failed", "phase", p, "err", err)
	_ = ev.Error(wrapped.Error())
	return wrapped
}

func (o *Orchestrator) touchIndex(sessionID, title string, added int) {
	if o.index == nil {
		return
	}
	if err := o.index.Touch(sessionID, title, added); err != nil {
		o.logger.Warn("session index not updated", "session", sessionID, "err", err)
	}
}

// emitter funnels transport emissions, dropping everything after the first
// write failure (client disconnected) without treating it as an error.
type emitter struct {
	ev   Events
	log  *slog.Logger
	gone bool
}

func newEmitter(ev Events, log *slog.Logger) *emitter {
	return &emitter{ev: ev, log: log}
}

func (e *emitter) do(f func(Events) error) {
	if e.gone {
		return
	}
	if err := f(e.ev); err != nil {
		e.gone = true
		e.log.Info("client gone, continuing without transport", "err", err)
		e.ev = DiscardEvents{}
	}
}

func toChatMessages(msgs []history.Message) []adapter.ChatMessage {
	out := make([]adapter.ChatMessage, len(msgs))
	for i, m := range msgs {
		out[i] = adapter.ChatMessage{Role: string(m.Role), Content: m.Content}
	}
	return out
}

// deriveTitle trims the first user message into a session title.
func deriveTitle(text string) string {
	title := strings.TrimSpace(text)
	if nl := strings.IndexByte(title, '\n'); nl >= 0 {
		title = title[:nl]
	}
	const max = 64
	if utf8.RuneCountInString(title) > max {
		runes := []rune(title)
		title = string(runes[:max-1]) + "…"
	}
	return title
}
