// Package render turns reply Markdown into sanitized HTML for the browser.
package render

import (
	"bytes"
	"fmt"
	"html"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// Renderer converts Markdown to HTML and strips anything unsafe. It never
// fails: a conversion error degrades to escaped plain text.
type Renderer struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
}

// New creates a Renderer with GFM extensions and a UGC sanitization policy.
func New() *Renderer {
	return &Renderer{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
		),
		policy: bluemonday.UGCPolicy(),
	}
}

// HTML renders src and sanitizes the result.
func (r *Renderer) HTML(src string) string {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(src), &buf); err != nil {
		return fmt.Sprintf("<pre>%s</pre>", html.EscapeString(src))
	}
	return string(r.policy.SanitizeBytes(buf.Bytes()))
}
