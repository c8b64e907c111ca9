// Package chat drives one generation request end-to-end: prompt assembly,
// stream splitting, transport events, and the post-completion directive
// application.
package chat

// Events is the push transport to the client. Implementations return an
// error from any emit once the client is gone; the orchestrator then stops
// emitting but finishes the request so persisted state stays in sync with
// what the generator decided. Keep-alive heartbeats are the transport's own
// concern and carry no semantic payload.
type Events interface {
	// ModelAnnounced reports which model serves the request.
	ModelAnnounced(model string) error
	// Delta delivers a final visible-text fragment.
	Delta(text string) error
	// HTML delivers a re-rendered safe-HTML view of all visible text so far.
	HTML(html string) error
	// Error reports a fatal request error.
	Error(message string) error
	// Done marks the end of the event stream.
	Done() error
}

// DiscardEvents drops every event. Used once a client has disconnected.
type DiscardEvents struct{}

func (DiscardEvents) ModelAnnounced(string) error { return nil }
func (DiscardEvents) Delta(string) error          { return nil }
func (DiscardEvents) HTML(string) error           { return nil }
func (DiscardEvents) Error(string) error          { return nil }
func (DiscardEvents) Done() error                 { return nil }
