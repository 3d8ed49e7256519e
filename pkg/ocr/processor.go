package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"strings"
	"sync"
)

// NoTextMarker is stored when extraction succeeded but found nothing.
// An empty string is never returned: downstream consumers need to tell
// "no text here" apart from "not extracted yet".
const NoTextMarker = "[no text detected]"

// Processor wraps an Engine into the uniform image-to-text contract the
// extraction pipeline consumes. Engine calls are serialized: Tesseract
// client state is not safely reentrant, and the queue depends on one
// recognition in flight at a time anyway.
type Processor struct {
	mu        sync.Mutex
	engine    Engine
	languages []string
}

// NewProcessor creates a processor over the given engine.
func NewProcessor(engine Engine, languages []string) *Processor {
	return &Processor{engine: engine, languages: languages}
}

// EngineName reports which engine backs this processor.
func (p *Processor) EngineName() string { return p.engine.Name() }

// ProcessImage runs OCR over one decoded image and returns the extracted
// text. Empty results are normalized to NoTextMarker; genuine engine
// failures propagate as errors (the queue converts them to error
// notifications). Retries are a job-producer concern, not ours.
func (p *Processor) ProcessImage(ctx context.Context, img image.Image) (string, error) {
	if img == nil {
		return "", fmt.Errorf("ocr: nil image")
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("ocr: encode image: %w", err)
	}
	return p.ProcessEncoded(ctx, buf.Bytes())
}

// ProcessEncoded is ProcessImage for an already PNG-encoded payload.
func (p *Processor) ProcessEncoded(ctx context.Context, data []byte) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	result, err := p.engine.Recognize(ctx, Input{
		Image:     data,
		Format:    ImageFormatPNG,
		Languages: p.languages,
	})
	if err != nil {
		return "", fmt.Errorf("ocr: %s recognize: %w", p.engine.Name(), err)
	}

	text := strings.TrimSpace(result.PlainText)
	if text == "" {
		slog.Debug("OCR: No text detected", "engine", p.engine.Name())
		return NoTextMarker, nil
	}
	return text, nil
}
