// Package history persists per-session conversation state: an append-only
// JSONL transcript and a whole-file rolling summary.
package history

import "time"

// Role identifies the author of a transcript message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ImageRef points at an uploaded file attached to a message. Owned by the
// message; never mutated after creation.
type ImageRef struct {
	Name        string `json:"name"`
	MimeType    string `json:"mimeType"`
	SizeBytes   int64  `json:"sizeBytes"`
	StoragePath string `json:"storagePath"`
	PublicURL   string `json:"publicUrl"`
}

// Message is one transcript entry. Immutable once appended.
type Message struct {
	Role      Role       `json:"role"`
	Content   string     `json:"content"`
	Timestamp time.Time  `json:"timestamp"`
	Images    []ImageRef `json:"images,omitempty"`
}
