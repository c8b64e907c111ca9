package memory

import (
	"sort"
	"strings"
)

// Apply runs one EditRequest against a line list and returns the new list
// plus counts of what happened. It is pure and total: malformed operations
// are skipped, never rejected, because the request originates from a
// generative source that cannot be trusted to be well-formed. Applying the
// same request twice is a no-op the second time.
func Apply(lines []string, req EditRequest) ([]string, PatchResult) {
	var res PatchResult

	out := make([]string, len(lines))
	copy(out, lines)

	// Process removals in descending order of position so earlier splices
	// never shift the positions later operations reference.
	removes := make([]RemoveOp, len(req.Remove))
	copy(removes, req.Remove)
	sort.SliceStable(removes, func(i, j int) bool {
		return removes[i].LineStart > removes[j].LineStart
	})

	for _, op := range removes {
		want := splitExact(op.ExactText)
		start := op.LineStart - 1
		if op.LineStart < 1 || len(want) == 0 || start+len(want) > len(out) {
			continue
		}
		if !linesEqual(out[start:start+len(want)], want) {
			continue
		}
		out = append(out[:start], out[start+len(want):]...)
		res.Removed += len(want)
	}

	for _, add := range req.Add {
		line := strings.TrimSpace(add)
		if line == "" {
			continue
		}
		if contains(out, line) {
			continue
		}
		out = append(out, line)
		res.Added++
	}

	out, res.Deduped = Dedup(out)
	return out, res
}

// Dedup keeps only the first occurrence of each distinct line, returning the
// filtered list and the number of duplicates dropped.
func Dedup(lines []string) ([]string, int) {
	seen := make(map[string]struct{}, len(lines))
	out := lines[:0:0]
	dropped := 0
	for _, l := range lines {
		if _, ok := seen[l]; ok {
			dropped++
			continue
		}
		seen[l] = struct{}{}
		out = append(out, l)
	}
	return out, dropped
}

// splitExact splits an exact-match text into lines, discarding the trailing
// empty line produced by a final newline terminator.
func splitExact(text string) []string {
	if text == "" {
		return nil
	}
	parts := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	if len(parts) > 1 && parts[len(parts)-1] == "" {
		parts = parts[:len(parts)-1]
	}
	return parts
}

func linesEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func contains(lines []string, line string) bool {
	for _, l := range lines {
		if l == line {
			return true
		}
	}
	return false
}
