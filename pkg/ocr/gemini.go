package ocr

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"google.golang.org/genai"

	"comicvox/pkg/config"
)

const geminiOCRPrompt = "Extract all readable text from this image. " +
	"Return only the text itself, in reading order, with no commentary. " +
	"If the image contains no readable text, return an empty response."

// GeminiEngine extracts text using Gemini's vision models. Unlike
// Tesseract it handles stylized lettering and hand-drawn speech bubbles,
// at the cost of a network round trip per panel.
type GeminiEngine struct {
	mu          sync.RWMutex
	genaiClient *genai.Client
	modelName   string
}

// NewGeminiEngine creates the engine. Without an API key it stays
// unconfigured and every Recognize call fails; the caller decides
// whether that warrants falling back to Tesseract.
func NewGeminiEngine(cfg config.GeminiConfig) (*GeminiEngine, error) {
	e := &GeminiEngine{}
	if err := e.Configure(cfg); err != nil {
		return nil, err
	}
	return e, nil
}

// Configure updates the engine with new settings.
func (e *GeminiEngine) Configure(cfg config.GeminiConfig) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.modelName = cfg.Model
	if e.modelName == "" {
		e.modelName = "gemini-2.0-flash"
	}

	if cfg.Key == "" {
		// Can't initialize without key.
		e.genaiClient = nil
		return nil
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey: cfg.Key,
	})
	if err != nil {
		return fmt.Errorf("failed to create genai client: %w", err)
	}
	e.genaiClient = client
	return nil
}

// Configured reports whether an API key was supplied.
func (e *GeminiEngine) Configured() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.genaiClient != nil
}

// Name implements Engine.
func (e *GeminiEngine) Name() string { return "gemini" }

// Recognize implements Engine.
func (e *GeminiEngine) Recognize(ctx context.Context, input Input) (Result, error) {
	e.mu.RLock()
	client := e.genaiClient
	modelName := e.modelName
	e.mu.RUnlock()

	if client == nil {
		return Result{}, fmt.Errorf("gemini engine not configured")
	}
	if len(input.Image) == 0 {
		return Result{}, fmt.Errorf("empty image payload")
	}

	mime := "image/png"
	if input.Format == ImageFormatJPEG {
		mime = "image/jpeg"
	}

	content := genai.NewContentFromParts([]*genai.Part{
		genai.NewPartFromText(geminiOCRPrompt),
		genai.NewPartFromBytes(input.Image, mime),
	}, genai.RoleUser)

	resp, err := client.Models.GenerateContent(ctx, modelName, []*genai.Content{content}, nil)
	if err != nil {
		return Result{}, fmt.Errorf("generate content error: %w", err)
	}
	if len(resp.Candidates) == 0 {
		return Result{}, fmt.Errorf("no candidates returned")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part.Text != "" {
			sb.WriteString(part.Text)
		}
	}

	return Result{InputID: input.ID, PlainText: sb.String()}, nil
}
