package render

import (
	"context"
	"fmt"
	"html/template"
)

// Renderer merges a memo into the document template and drives the engine.
type Renderer struct {
	tmpl   *template.Template
	engine Engine
}

// NewRenderer parses the document template from disk.
func NewRenderer(templatePath string, engine Engine) (*Renderer, error) {
	tmpl, err := template.ParseFiles(templatePath)
	if err != nil {
		return nil, fmt.Errorf("failed to parse memo template: %w", err)
	}
	return &Renderer{tmpl: tmpl, engine: engine}, nil
}

// Render produces the PDF for a signed memo. testerImage carries the resolved
// tester-signature bytes, or nil for a blank signature region; resolution
// failures are the caller's to degrade, never this function's to raise.
// Unsigned memos are rejected before the engine is invoked.
func (r *Renderer) Render(ctx context.Context, view MemoView, testerImage []byte) ([]byte, error) {
	if !view.Signed() {
		return nil, ErrMemoNotSigned
	}

	html, err := buildHTML(r.tmpl, view, testerImage)
	if err != nil {
		return nil, err
	}

	return r.engine.Render(ctx, html)
}
