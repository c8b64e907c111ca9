package prompt

import (
	"fmt"
	"strings"

	"github.com/membot/membot/internal/history"
)

// Builder composes the system prompt for one generation: assistant persona,
// numbered long-term memory, the rolling session summary, the directive
// protocol, and (when requested) a digest of the summary-window messages.
type Builder struct {
	marker string
	tok    *Tokenizer // nil disables token budgeting of the digest window
}

// NewBuilder creates a Builder. The marker must be the same literal the
// stream splitter and metadata extractor use.
func NewBuilder(marker string, tok *Tokenizer) *Builder {
	return &Builder{marker: marker, tok: tok}
}

// BuildInput carries everything the system prompt is assembled from.
type BuildInput struct {
	MemoryLines        []string
	Summary            string
	SummaryWindow      []history.Message
	RequestSummary     bool
	SummaryTokenBudget int
}

// System returns the system prompt for a generation.
func (b *Builder) System(in BuildInput) string {
	var sb strings.Builder

	sb.WriteString("You are membot, a helpful assistant with a persistent long-term memory.\n")
	sb.WriteString("Answer the user's latest message naturally, in Markdown.\n\n")

	if len(in.MemoryLines) > 0 {
		sb.WriteString("## Long-term memory\n")
		sb.WriteString("Numbered facts you have saved in earlier conversations. Line numbers are 1-based and valid only for this request:\n\n")
		for i, line := range in.MemoryLines {
			fmt.Fprintf(&sb, "%d. %s\n", i+1, line)
		}
		sb.WriteString("\n")
	} else {
		sb.WriteString("## Long-term memory\n(empty)\n\n")
	}

	if strings.TrimSpace(in.Summary) != "" {
		sb.WriteString("## Conversation summary so far\n")
		sb.WriteString(strings.TrimSpace(in.Summary))
		sb.WriteString("\n\n")
	}

	if in.RequestSummary && len(in.SummaryWindow) > 0 {
		sb.WriteString("## Older messages to fold into the summary\n")
		sb.WriteString("These messages are about to fall out of the context window. Produce an updated summary that covers them plus the existing summary above, and return it via the summary directive with update=true:\n\n")
		sb.WriteString(b.digest(in.SummaryWindow, in.SummaryTokenBudget))
		sb.WriteString("\n")
	}

	sb.WriteString(b.protocol())
	return sb.String()
}

// digest renders the summary-window messages as role-tagged lines, capped at
// the token budget when a tokenizer is available.
func (b *Builder) digest(msgs []history.Message, budget int) string {
	var sb strings.Builder
	for _, m := range msgs {
		fmt.Fprintf(&sb, "[%s] %s\n", m.Role, m.Content)
	}
	text := sb.String()
	if b.tok != nil && budget > 0 {
		text = b.tok.Truncate(text, budget)
	}
	return text
}

// protocol states the marker contract: visible answer first, then the
// marker, then one directive JSON object.
func (b *Builder) protocol() string {
	return fmt.Sprintf(`## Response protocol
After your visible answer, on a new line, output the literal marker

%s

followed immediately by a single JSON object (no code fence, no prose):

{"memory":{"remove":[{"lineStart":N,"exactText":"..."}],"add":["..."]},"summary":{"update":false,"text":""}}

- memory.remove: lines to delete, identified by their 1-based number AND their exact text as shown above. Both must match.
- memory.add: new single-line facts worth remembering across sessions. Use [] when nothing qualifies.
- summary: set update=true with the full replacement text only when asked to fold older messages into the summary.
Never mention the marker or the JSON in your visible answer.
`, b.marker)
}
