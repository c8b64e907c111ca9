// Package metadata recovers the structured directive object from the tail a
// generation appends after the marker. Parsing is lenient: the tail comes
// from a generative source, so anything malformed degrades to "the whole
// text is the reply" rather than failing the request.
package metadata

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/membot/membot/internal/memory"
)

// SummaryDirective requests a wholesale overwrite of the session summary.
// Update false (or an absent summary field) leaves the summary untouched.
type SummaryDirective struct {
	Update bool   `json:"update"`
	Text   string `json:"text"`
}

// Directives is the instruction object a generation may append after the
// marker. Unknown or missing top-level fields are tolerated; a nil Memory
// skips patching.
type Directives struct {
	Memory  *memory.EditRequest `json:"memory"`
	Summary *SummaryDirective   `json:"summary"`
}

// Extract splits raw generated text into the visible reply and, when
// present and well-formed, the parsed directive object. It splits on the
// last marker occurrence, defending against the marker text showing up
// incidentally inside the reply. It never panics and always returns the
// (reply, directives, error) triple; a non-nil error describes why the tail
// could not be parsed and is diagnostic only.
func Extract(raw, marker string) (string, *Directives, error) {
	idx := strings.LastIndex(raw, marker)
	if idx < 0 {
		return raw, nil, nil
	}

	reply := raw[:idx]
	tail := stripFence(raw[idx+len(marker):])

	var d Directives
	if err := json.Unmarshal([]byte(tail), &d); err != nil {
		if strings.TrimSpace(reply) == "" {
			reply = raw
		}
		return reply, nil, fmt.Errorf("metadata: parse directive tail: %w", err)
	}
	return reply, &d, nil
}

// stripFence removes a single pair of triple-backtick fence lines around the
// tail, with an optional language tag on the opening fence. Generators wrap
// the JSON in a fenced block often enough that this is worth tolerating.
func stripFence(tail string) string {
	t := strings.TrimSpace(tail)
	if !strings.HasPrefix(t, "```") {
		return t
	}

	rest := t[len("```"):]
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
		rest = rest[nl+1:]
	} else {
		// Opening fence with nothing after it on any line.
		return strings.TrimSpace(rest)
	}

	rest = strings.TrimRight(rest, " \t\n")
	if strings.HasSuffix(rest, "```") {
		rest = rest[:len(rest)-len("```")]
	}
	return strings.TrimSpace(rest)
}
