// Package stream splits an incrementally generated reply from its trailing
// directive block. The generator is instructed to end every reply with a
// literal marker followed by machine-readable JSON; fragments arrive in
// arbitrary sizes and the marker may straddle fragment boundaries.
package stream

import (
	"strings"
	"unicode/utf8"
)

// Marker separates the visible reply from the directive tail. The prompt
// builder and the metadata extractor must use this exact literal.
const Marker = "<<<MEMBOT_DIRECTIVES>>>"

// Splitter consumes text fragments from a single generation and emits the
// prefix that lies strictly before the first marker occurrence. No part of
// the marker is ever emitted.
type Splitter struct {
	marker  string
	pending string
	raw     strings.Builder
	visible strings.Builder
	found   bool
}

// NewSplitter creates a Splitter for the given marker.
func NewSplitter(marker string) *Splitter {
	return &Splitter{marker: marker}
}

// Push appends a fragment and returns any text that is now final visible
// output. Once the marker has been seen, further pushes only accumulate raw
// input and return nothing.
func (s *Splitter) Push(fragment string) string {
	if fragment == "" {
		return ""
	}
	s.raw.WriteString(fragment)
	if s.found {
		return ""
	}

	combined := s.pending + fragment
	if idx := strings.Index(combined, s.marker); idx >= 0 {
		s.found = true
		s.pending = ""
		out := combined[:idx]
		s.visible.WriteString(out)
		return out
	}

	// Hold back the last len(marker)-1 bytes: they could be the start of a
	// marker that completes on the next fragment. Back off to a rune
	// boundary so emitted chunks stay valid UTF-8.
	cut := len(combined) - (len(s.marker) - 1)
	if cut < 0 {
		cut = 0
	}
	for cut > 0 && !utf8.RuneStart(combined[cut]) {
		cut--
	}

	out := combined[:cut]
	s.pending = combined[cut:]
	s.visible.WriteString(out)
	return out
}

// Rebase replaces all accumulated input with full, for upstreams that echo a
// complete message instead of a delta. Returns the visible text that was not
// already emitted; if the echo does not extend what was emitted, the whole
// recomputed visible text is returned rather than retracting anything.
func (s *Splitter) Rebase(full string) string {
	prev := s.visible.String()

	s.raw.Reset()
	s.visible.Reset()
	s.pending = ""
	s.found = false
	s.Push(full)

	now := s.visible.String()
	if strings.HasPrefix(now, prev) {
		return now[len(prev):]
	}
	return now
}

// Flush ends the stream. If the marker never appeared, the remaining
// holdback is final visible output: the generation produced no directives
// and the entire text is the reply.
func (s *Splitter) Flush() string {
	if s.found {
		return ""
	}
	out := s.pending
	s.pending = ""
	s.visible.WriteString(out)
	return out
}

// Found reports whether the marker has been located.
func (s *Splitter) Found() bool { return s.found }

// Raw returns all input accumulated so far, marker and tail included.
func (s *Splitter) Raw() string { return s.raw.String() }

// Visible returns all visible text emitted so far.
func (s *Splitter) Visible() string { return s.visible.String() }
