// Package memory implements membot's long-term memory: a deduplicated,
// line-oriented fact list persisted as a plain text file, mutated by edit
// requests extracted from generated replies.
package memory

// RemoveOp removes a run of lines starting at a 1-based position, but only
// if the stored lines match ExactText line-for-line. Positions come from an
// untrusted generative source, so removal is content-verified, never
// index-trusted.
type RemoveOp struct {
	LineStart int    `json:"lineStart"`
	ExactText string `json:"exactText"`
}

// EditRequest is one batch of memory mutations.
type EditRequest struct {
	Remove []RemoveOp `json:"remove"`
	Add    []string   `json:"add"`
}

// Empty reports whether the request carries no operations.
func (r EditRequest) Empty() bool {
	return len(r.Remove) == 0 && len(r.Add) == 0
}

// PatchResult reports exactly what Apply did.
type PatchResult struct {
	Removed int `json:"removed"`
	Added   int `json:"added"`
	Deduped int `json:"deduped"`
}
