// Package scroll owns "which element should be kept visible right now".
// It decouples narration advance events from actual scroll commands, with
// debouncing, highlight effects, and graceful yielding to manual scroll.
package scroll

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"comicvox/pkg/config"
	"comicvox/pkg/model"
	"comicvox/pkg/viewport"
)

// Presentation classes applied to the tracked element. Always removed by
// timers, never left attached.
const (
	HighlightClass = "narration-highlight"
	PulseClass     = "narration-pulse"
)

// programmaticScrollWindow is how long after issuing a scroll command the
// client's scroll events are considered our own rather than the user's.
const programmaticScrollWindow = 600 * time.Millisecond

// Options tweak one SetCurrentElement call.
type Options struct {
	// Alignment overrides the configured vertical alignment fraction.
	Alignment float64
	// NoHighlight suppresses the highlight/pulse classes.
	NoHighlight bool
}

// Coordinator is the single authority for the scroll target. Only the
// sequencer sets the current element; everything else observes.
type Coordinator struct {
	vp viewport.Viewport

	settleDelay   time.Duration
	alignment     float64
	tolerance     float64
	edgeMargin    float64
	highlightFor  time.Duration
	pulseFor      time.Duration
	userGrace     time.Duration

	mu            sync.Mutex
	active        bool
	currentID     string
	currentOpts   Options
	pendingScroll *time.Timer
	highlightT    *time.Timer
	pulseT        *time.Timer
	resumeT       *time.Timer
	progT         *time.Timer
	isScrolling   bool // a programmatic scroll command is in flight
	suspended     bool // yielded to user scroll
}

// New creates a coordinator over the given viewport.
func New(vp viewport.Viewport, cfg *config.ScrollConfig) *Coordinator {
	return &Coordinator{
		vp:           vp,
		settleDelay:  time.Duration(cfg.SettleDelay),
		alignment:    cfg.Alignment,
		tolerance:    cfg.AlignmentTolerance,
		edgeMargin:   cfg.EdgeMargin,
		highlightFor: time.Duration(cfg.HighlightDuration),
		pulseFor:     time.Duration(cfg.PulseDuration),
		userGrace:    time.Duration(cfg.UserScrollGrace),
	}
}

// Activate turns the coordinator on.
func (c *Coordinator) Activate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.active = true
}

// Deactivate turns the coordinator off, cancels every pending timer and
// strips any highlight classes. No DOM mutation happens after it returns.
func (c *Coordinator) Deactivate() {
	c.mu.Lock()
	c.active = false
	c.suspended = false
	id := c.currentID
	c.currentID = ""
	c.stopTimersLocked()
	c.mu.Unlock()

	if id != "" {
		ctx := context.Background()
		_ = c.vp.RemoveClass(ctx, id, HighlightClass)
		_ = c.vp.RemoveClass(ctx, id, PulseClass)
	}
}

func (c *Coordinator) stopTimersLocked() {
	for _, t := range []*time.Timer{c.pendingScroll, c.highlightT, c.pulseT, c.resumeT, c.progT} {
		if t != nil {
			t.Stop()
		}
	}
	c.pendingScroll, c.highlightT, c.pulseT, c.resumeT, c.progT = nil, nil, nil, nil, nil
	c.isScrolling = false
}

// SetCurrentElement replaces the tracked target. The scroll is scheduled,
// not executed: the settle delay lets layout finish after whatever DOM
// mutation preceded this call. A still-pending intent for the previous
// target is cancelled, never executed alongside the new one.
func (c *Coordinator) SetCurrentElement(elementID string, opts Options) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.active {
		return
	}

	c.currentID = elementID
	c.currentOpts = opts
	if c.pendingScroll != nil {
		c.pendingScroll.Stop()
	}
	target := elementID
	c.pendingScroll = time.AfterFunc(c.settleDelay, func() {
		c.performScroll(target)
	})
}

// NoteUserScroll is called by the bridge for every client scroll event.
// Scrolls we issued ourselves are ignored; genuine user scrolls suspend
// re-centering for the grace period.
func (c *Coordinator) NoteUserScroll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.active || c.isScrolling {
		return
	}

	c.suspended = true
	if c.resumeT != nil {
		c.resumeT.Stop()
	}
	c.resumeT = time.AfterFunc(c.userGrace, func() {
		c.mu.Lock()
		c.suspended = false
		id := c.currentID
		active := c.active
		c.mu.Unlock()
		if active && id != "" {
			c.performScroll(id)
		}
	})
}

// NoteResize re-centers the current target after a viewport resize.
func (c *Coordinator) NoteResize() {
	c.mu.Lock()
	id := c.currentID
	active := c.active
	if c.pendingScroll != nil {
		c.pendingScroll.Stop()
	}
	if active && id != "" {
		target := id
		c.pendingScroll = time.AfterFunc(c.settleDelay, func() {
			c.performScroll(target)
		})
	}
	c.mu.Unlock()
}

// performScroll checks whether the target actually needs scrolling and, if
// so, issues exactly one smooth scroll command plus the transient effects.
func (c *Coordinator) performScroll(elementID string) {
	c.mu.Lock()
	if !c.active || c.suspended || c.currentID != elementID {
		c.mu.Unlock()
		return
	}
	opts := c.currentOpts
	c.mu.Unlock()

	ctx := context.Background()
	geom, err := c.vp.ElementGeometry(ctx, elementID)
	if err != nil {
		slog.Warn("Scroll: Failed to read element geometry", "element", elementID, "error", err)
		return
	}
	if geom.Detached {
		slog.Debug("Scroll: Target detached, skipping", "element", elementID)
		return
	}
	bounds, err := c.vp.Bounds(ctx)
	if err != nil {
		slog.Warn("Scroll: Failed to read viewport bounds", "error", err)
		return
	}

	alignment := c.alignment
	if opts.Alignment > 0 {
		alignment = opts.Alignment
	}

	desiredTop := bounds.Top + alignment*bounds.Height
	if c.positionAcceptable(geom.Rect, bounds, desiredTop) {
		// Already well positioned: repeated calls must not produce
		// additional scroll commands.
		return
	}

	pos, err := c.vp.ScrollPosition(ctx)
	if err != nil {
		slog.Warn("Scroll: Failed to read scroll position", "error", err)
		return
	}

	// The lock is held through the scroll command and the effect classes
	// so that Deactivate, which also takes it, either runs before the
	// re-check or after the last mutation and its class cleanup.
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.active || c.currentID != elementID {
		return
	}
	c.isScrolling = true
	if c.progT != nil {
		c.progT.Stop()
	}
	c.progT = time.AfterFunc(programmaticScrollWindow, func() {
		c.mu.Lock()
		c.isScrolling = false
		c.mu.Unlock()
	})

	offset := pos + (geom.Rect.Top - desiredTop)
	if offset < 0 {
		offset = 0
	}
	if err := c.vp.ScrollTo(ctx, offset, true); err != nil {
		slog.Warn("Scroll: Scroll command failed", "error", err)
		return
	}

	if !opts.NoHighlight {
		c.applyEffectsLocked(ctx, elementID)
	}
}

// positionAcceptable reports whether the element already sits in the
// centered band: aligned within tolerance and clear of the edges.
func (c *Coordinator) positionAcceptable(rect, bounds model.Rect, desiredTop float64) bool {
	if rect.Height <= 0 {
		return false
	}
	aligned := abs(rect.Top-desiredTop) <= c.tolerance*bounds.Height

	// Elements taller than the margin-reduced viewport can never fit; the
	// alignment check alone governs those.
	if rect.Height >= bounds.Height-2*c.edgeMargin {
		return aligned
	}
	withinMargins := rect.Top >= bounds.Top+c.edgeMargin &&
		rect.Bottom() <= bounds.Bottom()-c.edgeMargin
	return aligned && withinMargins
}

// applyEffectsLocked requires c.mu held. The removal timers it arms are
// owned by the coordinator, so Deactivate cancels them before its own
// class cleanup.
func (c *Coordinator) applyEffectsLocked(ctx context.Context, elementID string) {
	if err := c.vp.AddClass(ctx, elementID, HighlightClass); err == nil {
		if c.highlightT != nil {
			c.highlightT.Stop()
		}
		c.highlightT = time.AfterFunc(c.highlightFor, func() {
			_ = c.vp.RemoveClass(context.Background(), elementID, HighlightClass)
		})
	}
	if err := c.vp.AddClass(ctx, elementID, PulseClass); err == nil {
		if c.pulseT != nil {
			c.pulseT.Stop()
		}
		c.pulseT = time.AfterFunc(c.pulseFor, func() {
			_ = c.vp.RemoveClass(context.Background(), elementID, PulseClass)
		})
	}
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
