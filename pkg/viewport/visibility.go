package viewport

import "comicvox/pkg/model"

// Reason codes explain why an element was judged not (fully) visible.
const (
	ReasonNoElement   = "no-element"
	ReasonDetached    = "detached"
	ReasonDisplayNone = "display-none"
	ReasonHidden      = "hidden"
	ReasonZeroOpacity = "zero-opacity"
	ReasonDegenerate  = "degenerate"
	ReasonOffscreen   = "offscreen"
	ReasonPartial     = "partial"
	ReasonVisible     = "visible"
)

// DefaultVisibilityThreshold is the visible fraction above which an
// element counts as "the thing the user is currently reading".
const DefaultVisibilityThreshold = 0.5

// minDimension filters out collapsed elements that technically intersect
// the viewport but render nothing meaningful.
const minDimension = 2.0

// Visibility is the oracle's verdict for one element at one instant.
type Visibility struct {
	IsVisible       bool       `json:"is_visible"`
	VisibleFraction float64    `json:"visible_fraction"`
	Reason          string     `json:"reason"`
	Rect            model.Rect `json:"rect"`
}

// CheckVisibility decides whether an element is sufficiently visible in
// the viewport. Pure function of the two geometries: no side effects,
// stable across repeated calls, safe to call at poll frequency.
func CheckVisibility(geom *ElementGeometry, viewportRect model.Rect, threshold float64) Visibility {
	if threshold <= 0 {
		threshold = DefaultVisibilityThreshold
	}

	if geom == nil {
		return Visibility{Reason: ReasonNoElement}
	}
	if geom.Detached {
		return Visibility{Reason: ReasonDetached, Rect: geom.Rect}
	}
	if geom.DisplayNone {
		return Visibility{Reason: ReasonDisplayNone, Rect: geom.Rect}
	}
	if geom.Hidden {
		return Visibility{Reason: ReasonHidden, Rect: geom.Rect}
	}
	if geom.Opacity <= 0 {
		return Visibility{Reason: ReasonZeroOpacity, Rect: geom.Rect}
	}
	if geom.Rect.Width < minDimension || geom.Rect.Height < minDimension {
		return Visibility{Reason: ReasonDegenerate, Rect: geom.Rect}
	}

	area := geom.Rect.Area()
	if area == 0 {
		return Visibility{Reason: ReasonDegenerate, Rect: geom.Rect}
	}

	fraction := geom.Rect.Intersect(viewportRect).Area() / area

	v := Visibility{
		VisibleFraction: fraction,
		Rect:            geom.Rect,
	}
	switch {
	case fraction == 0:
		v.Reason = ReasonOffscreen
	case fraction < threshold:
		v.Reason = ReasonPartial
	default:
		v.IsVisible = true
		v.Reason = ReasonVisible
	}
	return v
}
