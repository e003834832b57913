package rendering

import (
	"context"
	"fmt"
)

// CVFilename is the download name of an exported CV.
const CVFilename = "SpaniSami_CV.pdf"

// CVRenderer lays out CV text and prints it with an Engine.
type CVRenderer struct {
	engine Engine
	layout Layout
}

// NewCVRenderer creates a renderer using the A4 layout.
func NewCVRenderer(engine Engine) *CVRenderer {
	return &CVRenderer{engine: engine, layout: A4}
}

// RenderCV returns the PDF for text.
func (r *CVRenderer) RenderCV(ctx context.Context, text string) ([]byte, error) {
	if r.engine == nil {
		return nil, ErrEngineUnavailable
	}
	html, err := BuildHTML("SpaniSami CV", text, r.layout)
	if err != nil {
		return nil, err
	}
	pdf, err := r.engine.RenderHTMLToPDF(ctx, html)
	if err != nil {
		return nil, fmt.Errorf("render cv: %w", err)
	}
	return pdf, nil
}
