// Package events carries typed notifications from the narration core to
// presentation consumers. Components emit at well-defined lifecycle points
// and cross-cutting concerns subscribe; nothing intercepts or wraps another
// component's methods.
package events

import "comicvox/pkg/model"

// Event is the interface for all notifications flowing out of the core.
// Events are fire-and-forget; listeners return nothing.
type Event interface {
	event() // marker method
}

// NarrationStarted is emitted when a narration session begins.
type NarrationStarted struct {
	TotalItems int
}

func (NarrationStarted) event() {}

// NarrationStopped is emitted when a session ends, naturally or by stop.
type NarrationStopped struct {
	Completed bool
}

func (NarrationStopped) event() {}

// NarrationSelectionChanged is emitted when the sequencer moves to a new item.
type NarrationSelectionChanged struct {
	Index int
}

func (NarrationSelectionChanged) event() {}

// NarrationTextStarted is emitted when an utterance begins.
type NarrationTextStarted struct {
	Index int
	Text  string
}

func (NarrationTextStarted) event() {}

// NarrationTextFallback is emitted when speech could not be produced for an
// item and the text should be shown visually instead.
type NarrationTextFallback struct {
	Index int
	Text  string
}

func (NarrationTextFallback) event() {}

// SelectionConfirmed is emitted when a drawn rectangle becomes a Selection.
type SelectionConfirmed struct {
	Selection model.Selection
}

func (SelectionConfirmed) event() {}

// SelectionsCleared is emitted when the store drops all selections.
type SelectionsCleared struct{}

func (SelectionsCleared) event() {}

// ExtractionProgress is emitted after each OCR job completes or fails.
type ExtractionProgress struct {
	Processed int
	Total     int
	Progress  float64
}

func (ExtractionProgress) event() {}

// ExtractionItemFailed is emitted when one selection's extraction failed.
// Recoverable: the queue continues with the remaining items.
type ExtractionItemFailed struct {
	Index   int
	ImageID string
	Reason  string
}

func (ExtractionItemFailed) event() {}

// ExtractionCompleted is emitted once when the OCR queue drains.
type ExtractionCompleted struct {
	Stats model.QueueStats
}

func (ExtractionCompleted) event() {}
