package model

import (
	"math"
	"time"
)

// Rect is a pixel rectangle in the displayed coordinate space of a page
// image. Top-left origin, y growing downwards.
type Rect struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Right returns the x coordinate of the right edge.
func (r Rect) Right() float64 { return r.Left + r.Width }

// Bottom returns the y coordinate of the bottom edge.
func (r Rect) Bottom() float64 { return r.Top + r.Height }

// Area returns the rectangle area, 0 for degenerate rectangles.
func (r Rect) Area() float64 {
	if r.Width <= 0 || r.Height <= 0 {
		return 0
	}
	return r.Width * r.Height
}

// Intersect returns the overlapping region of two rectangles. The zero
// Rect is returned when they do not overlap.
func (r Rect) Intersect(o Rect) Rect {
	left := math.Max(r.Left, o.Left)
	top := math.Max(r.Top, o.Top)
	right := math.Min(r.Right(), o.Right())
	bottom := math.Min(r.Bottom(), o.Bottom())
	if right <= left || bottom <= top {
		return Rect{}
	}
	return Rect{Left: left, Top: top, Width: right - left, Height: bottom - top}
}

// IsFinite reports whether all four components are real numbers.
func (r Rect) IsFinite() bool {
	for _, v := range []float64{r.Left, r.Top, r.Width, r.Height} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Selection is a confirmed user-drawn rectangle on one page image.
// Immutable after confirmation; its extracted text lives in ExtractedText.
type Selection struct {
	ID      string `json:"id"`
	ImageID string `json:"image_id"` // weak reference, resolved by ID at extraction time
	// ImageSrc is recorded at confirmation so a re-rendered page whose
	// element IDs changed can still be matched by source URL.
	ImageSrc string `json:"image_src"`
	Rect     Rect   `json:"rect"`
	// Order is the insertion sequence and the authoritative narration order.
	Order     int       `json:"order"`
	CreatedAt time.Time `json:"created_at"`
}

// ExtractedText is the OCR result for one Selection, keyed by
// (ImageID, SelectionIndex) where SelectionIndex matches Selection.Order.
type ExtractedText struct {
	ImageID        string `json:"image_id"`
	SelectionIndex int    `json:"selection_index"`
	Text           string `json:"text"`
	ProcessedText  string `json:"processed_text"`
	// Failed marks a tombstone: extraction ran and did not produce text.
	// Text then holds a human-readable placeholder, never the empty string.
	Failed bool `json:"failed"`
}

// SessionState identifies where narration is inside a session.
type SessionState string

const (
	StateIdle      SessionState = "idle"
	StateStarting  SessionState = "starting"
	StateSpeaking  SessionState = "speaking"
	StatePaused    SessionState = "paused"
	StateAdvancing SessionState = "advancing"
	StateStopped   SessionState = "stopped"
)

// NarrationStatus is the externally visible snapshot of the sequencer.
// Read-only for consumers; only the sequencer mutates the underlying state.
type NarrationStatus struct {
	State        SessionState `json:"state"`
	Narrating    bool         `json:"narrating"`
	Paused       bool         `json:"paused"`
	CurrentIndex int          `json:"current_index"` // -1 when no session
	CurrentText  string       `json:"current_text"`
	TotalItems   int          `json:"total_items"`
}

// QueueStats reports background queue progress.
type QueueStats struct {
	ProcessedItems int     `json:"processed_items"`
	TotalItems     int     `json:"total_items"`
	Progress       float64 `json:"progress"`
}

// PageImage describes one selectable page image as reported by the client.
// The engine never holds the image element itself, only this snapshot.
type PageImage struct {
	ID            string  `json:"id"`
	Src           string  `json:"src"`
	NaturalWidth  int     `json:"natural_width"`
	NaturalHeight int     `json:"natural_height"`
	DisplayWidth  float64 `json:"display_width"`
	DisplayHeight float64 `json:"display_height"`
	Active        bool    `json:"active"`
}
