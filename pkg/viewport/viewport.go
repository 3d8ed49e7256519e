// Package viewport defines the engine's view of the client's layout: the
// geometry snapshots the browser reports and the commands the engine may
// issue against it.
package viewport

import (
	"context"

	"comicvox/pkg/model"
)

// ElementGeometry is a point-in-time snapshot of one element's layout
// state as reported by the client.
type ElementGeometry struct {
	Rect        model.Rect `json:"rect"`
	Detached    bool       `json:"detached"`
	DisplayNone bool       `json:"display_none"`
	Hidden      bool       `json:"hidden"` // visibility:hidden
	Opacity     float64    `json:"opacity"`
}

// Viewport is the engine's handle on the client's scrollable document.
// Implemented by the websocket bridge against the live browser and by
// fakes in tests.
type Viewport interface {
	// ElementGeometry returns the current layout snapshot for an element.
	// A zero snapshot with Detached set is returned for unknown IDs.
	ElementGeometry(ctx context.Context, elementID string) (ElementGeometry, error)

	// Bounds returns the viewport rectangle in document coordinates.
	Bounds(ctx context.Context) (model.Rect, error)

	// ScrollPosition returns the current vertical scroll offset.
	ScrollPosition(ctx context.Context) (float64, error)

	// ScrollTo issues one scroll command to the given vertical offset.
	ScrollTo(ctx context.Context, offset float64, smooth bool) error

	// AddClass / RemoveClass toggle a presentation class on an element.
	AddClass(ctx context.Context, elementID, class string) error
	RemoveClass(ctx context.Context, elementID, class string) error
}
