package stream

import (
	"math/rand"
	"strings"
	"testing"
)

const testMarker = "<<<MARK>>>"

// feed pushes text through a fresh splitter in fragments of the given sizes
// (cycling) and returns the concatenated emitted output after flush.
func feed(t *testing.T, text string, sizes ...int) string {
	t.Helper()
	s := NewSplitter(testMarker)
	var out strings.Builder
	i := 0
	for pos := 0; pos < len(text); {
		n := sizes[i%len(sizes)]
		i++
		end := pos + n
		if end > len(text) {
			end = len(text)
		}
		out.WriteString(s.Push(text[pos:end]))
		pos = end
	}
	out.WriteString(s.Flush())
	return out.String()
}

func TestSplitter_MarkerInOneFragment(t *testing.T) {
	s := NewSplitter(testMarker)
	got := s.Push("hello" + testMarker + `{"a":1}`)
	if got != "hello" {
		t.Errorf("emitted %q, want %q", got, "hello")
	}
	if !s.Found() {
		t.Error("marker should be found")
	}
	if s.Flush() != "" {
		t.Error("flush after marker should emit nothing")
	}
}

func TestSplitter_MarkerStraddlesFragments(t *testing.T) {
	text := "visible reply" + testMarker + `{"memory":{}}`
	// Every split size from 1 byte up must yield the same visible prefix.
	for size := 1; size <= len(text); size++ {
		if got := feed(t, text, size); got != "visible reply" {
			t.Fatalf("size %d: emitted %q, want %q", size, got, "visible reply")
		}
	}
}

func TestSplitter_RandomFragmentSizes(t *testing.T) {
	text := "alpha beta " + testMarker + " tail tail tail"
	rng := rand.New(rand.NewSource(7))
	for trial := 0; trial < 200; trial++ {
		s := NewSplitter(testMarker)
		var out strings.Builder
		for pos := 0; pos < len(text); {
			end := pos + 1 + rng.Intn(9)
			if end > len(text) {
				end = len(text)
			}
			out.WriteString(s.Push(text[pos:end]))
			pos = end
		}
		out.WriteString(s.Flush())
		if out.String() != "alpha beta " {
			t.Fatalf("trial %d: emitted %q", trial, out.String())
		}
	}
}

func TestSplitter_NoMarkerFlushEmitsEverything(t *testing.T) {
	text := "a reply that never produced directives"
	for _, size := range []int{1, 3, len(text)} {
		if got := feed(t, text, size); got != text {
			t.Errorf("size %d: emitted %q, want full text", size, got)
		}
	}
}

func TestSplitter_NoPartialMarkerEmitted(t *testing.T) {
	// Text containing marker prefixes that never complete.
	text := "a <<<MA b <<<MARK c " + testMarker + "tail"
	got := feed(t, text, 2)
	if got != "a <<<MA b <<<MARK c " {
		t.Errorf("emitted %q", got)
	}
	if strings.Contains(got, testMarker) {
		t.Error("full marker leaked into visible output")
	}
}

func TestSplitter_EmptyFragmentsAreNoOps(t *testing.T) {
	s := NewSplitter(testMarker)
	if s.Push("") != "" {
		t.Error("empty push emitted output")
	}
	s.Push("abcdef")
	if s.Push("") != "" {
		t.Error("empty push emitted output")
	}
	if got := s.Visible() + s.Flush(); got != "abcdef" {
		t.Errorf("got %q", got)
	}
}

func TestSplitter_SingleByteMarker(t *testing.T) {
	s := NewSplitter("|")
	got := s.Push("abc")
	// len(marker)-1 == 0: nothing is held back.
	if got != "abc" {
		t.Errorf("emitted %q, want %q", got, "abc")
	}
	if got := s.Push("d|tail"); got != "d" {
		t.Errorf("emitted %q, want %q", got, "d")
	}
}

func TestSplitter_RawAccumulatesEverything(t *testing.T) {
	s := NewSplitter(testMarker)
	s.Push("head" + testMarker)
	s.Push(`{"x":`)
	s.Push(`1}`)
	want := "head" + testMarker + `{"x":1}`
	if s.Raw() != want {
		t.Errorf("raw = %q, want %q", s.Raw(), want)
	}
	if s.Visible() != "head" {
		t.Errorf("visible = %q", s.Visible())
	}
}

func TestSplitter_RebaseExtendsEmittedText(t *testing.T) {
	s := NewSplitter(testMarker)
	s.Push("Hello th")
	// Upstream echoes the full message so far instead of a delta.
	got := s.Rebase("Hello there, how")
	// "Hello th" minus the holdback was already emitted; the rebase delta
	// plus what was emitted must equal the recomputed visible text.
	if s.Visible() != "Hello there, how"[:len("Hello there, how")-len(testMarker)+1] {
		t.Errorf("visible = %q", s.Visible())
	}
	if !strings.HasSuffix(s.Visible(), got) {
		t.Errorf("rebase delta %q is not a suffix of visible %q", got, s.Visible())
	}
}

func TestSplitter_UTF8NotSplitAcrossEmissions(t *testing.T) {
	text := "héllo wörld — ünïcode" + testMarker + "tail"
	for size := 1; size <= 5; size++ {
		s := NewSplitter(testMarker)
		var out strings.Builder
		for pos := 0; pos < len(text); {
			end := pos + size
			if end > len(text) {
				end = len(text)
			}
			chunk := s.Push(text[pos:end])
			if !strings.HasPrefix(text, out.String()+chunk) {
				t.Fatalf("size %d: emission diverged", size)
			}
			out.WriteString(chunk)
			pos = end
		}
		out.WriteString(s.Flush())
		if out.String() != "héllo wörld — ünïcode" {
			t.Fatalf("size %d: emitted %q", size, out.String())
		}
	}
}
