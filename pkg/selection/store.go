// Package selection owns the confirmed selection rectangles and their
// extracted texts. Selections are ordered by confirmation and that order
// is authoritative for narration; extraction results are keyed by
// (image, order) so narration survives element ID churn in the page.
package selection

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"comicvox/pkg/events"
	"comicvox/pkg/model"
	"comicvox/pkg/ocr"
	"comicvox/pkg/queue"
)

// MinSelectionSize is the smallest accepted selection edge, in display
// pixels. Anything smaller is almost certainly an accidental click-drag.
const MinSelectionSize = 10.0

// FailedTextMarker is stored for a selection whose extraction failed.
// Narration shows it visually instead of speaking it.
const FailedTextMarker = "[text extraction failed]"

var (
	// ErrTooSmall rejects selections below MinSelectionSize on either edge.
	ErrTooSmall = errors.New("selection too small")
	// ErrInvalidRect rejects rects with NaN, infinite or negative components.
	ErrInvalidRect = errors.New("invalid selection rect")
)

// Cache consults previously extracted texts so identical selections on
// identical image bytes skip the engine. Satisfied by store.OCRCacheStore;
// a nil Cache disables caching.
type Cache interface {
	GetOCRText(ctx context.Context, imageHash string, rect model.Rect) (string, bool)
	SetOCRText(ctx context.Context, imageHash string, rect model.Rect, text string) error
}

type textKey struct {
	imageID string
	order   int
}

// Store is the selection registry plus the extraction pipeline over it.
type Store struct {
	mu         sync.Mutex
	selections []model.Selection
	texts      map[textKey]model.ExtractedText

	resolver *Resolver
	proc     *ocr.Processor
	queue    *queue.Queue
	bus      *events.Bus
	cache    Cache
}

// NewStore wires the store to its collaborators. bus and cache may be nil.
func NewStore(resolver *Resolver, proc *ocr.Processor, q *queue.Queue, bus *events.Bus, cache Cache) *Store {
	s := &Store{
		texts:    make(map[textKey]model.ExtractedText),
		resolver: resolver,
		proc:     proc,
		queue:    q,
		bus:      bus,
		cache:    cache,
	}
	s.bindQueue()
	return s
}

// Confirm validates a drawn rectangle and registers it as the next
// selection in narration order.
func (s *Store) Confirm(rect model.Rect, imageID, imageSrc string) (*model.Selection, error) {
	if !rect.IsFinite() || rect.Width < 0 || rect.Height < 0 {
		return nil, fmt.Errorf("%w: %+v", ErrInvalidRect, rect)
	}
	if rect.Width < MinSelectionSize || rect.Height < MinSelectionSize {
		return nil, fmt.Errorf("%w: %.0fx%.0f", ErrTooSmall, rect.Width, rect.Height)
	}

	s.mu.Lock()
	sel := model.Selection{
		ID:        uuid.NewString(),
		ImageID:   imageID,
		ImageSrc:  imageSrc,
		Rect:      rect,
		Order:     len(s.selections),
		CreatedAt: time.Now(),
	}
	s.selections = append(s.selections, sel)
	s.mu.Unlock()

	s.bus.Publish(events.SelectionConfirmed{Selection: sel})
	return &sel, nil
}

// Selections returns a snapshot of confirmed selections in order.
func (s *Store) Selections() []model.Selection {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Selection, len(s.selections))
	copy(out, s.selections)
	return out
}

// Count returns the number of confirmed selections.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.selections)
}

// OrderedTexts returns the narration script: one entry per extracted
// selection, sorted by confirmation order. Selections whose extraction
// has not finished yet are absent.
func (s *Store) OrderedTexts() []model.ExtractedText {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.ExtractedText, 0, len(s.texts))
	for _, t := range s.texts {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].SelectionIndex < out[j].SelectionIndex
	})
	return out
}

// ClearAll drops every selection and extracted text and cancels pending
// extraction jobs. In-flight OCR work finishes without reporting.
func (s *Store) ClearAll() {
	s.queue.ClearQueue()

	s.mu.Lock()
	s.selections = nil
	s.texts = make(map[textKey]model.ExtractedText)
	s.mu.Unlock()

	s.bus.Publish(events.SelectionsCleared{})
}

func (s *Store) setText(t model.ExtractedText) {
	s.mu.Lock()
	s.texts[textKey{imageID: t.ImageID, order: t.SelectionIndex}] = t
	s.mu.Unlock()
}
