package narrator

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"comicvox/pkg/viewport"
)

type watchState int

const (
	notWatching watchState = iota
	watchingVisible
	watchingHidden
)

// watcher polls the visibility of the element being narrated and fires
// onHidden/onVisible on state changes only. Repeated polls in a stable
// state are no-ops, so the speech engine sees exactly one pause and one
// resume per excursion off-screen.
type watcher struct {
	vp        viewport.Viewport
	threshold float64
	interval  time.Duration
	onHidden  func()
	onVisible func()

	mu        sync.Mutex
	state     watchState
	elementID string
	cancel    context.CancelFunc
}

func newWatcher(vp viewport.Viewport, threshold float64, interval time.Duration, onHidden, onVisible func()) *watcher {
	return &watcher{
		vp:        vp,
		threshold: threshold,
		interval:  interval,
		onHidden:  onHidden,
		onVisible: onVisible,
	}
}

// Watch retargets the poll loop to a new element. The previous element
// stops being polled immediately; the new one starts presumed visible,
// since narration just scrolled to it.
func (w *watcher) Watch(ctx context.Context, elementID string) {
	w.mu.Lock()
	if w.cancel != nil {
		w.cancel()
	}
	pollCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.elementID = elementID
	w.state = watchingVisible
	w.mu.Unlock()

	go w.loop(pollCtx, elementID)
}

// Stop exits to the not-watching state without firing callbacks.
func (w *watcher) Stop() {
	w.mu.Lock()
	if w.cancel != nil {
		w.cancel()
		w.cancel = nil
	}
	w.state = notWatching
	w.elementID = ""
	w.mu.Unlock()
}

func (w *watcher) loop(ctx context.Context, elementID string) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.poll(ctx, elementID)
		}
	}
}

func (w *watcher) poll(ctx context.Context, elementID string) {
	geom, err := w.vp.ElementGeometry(ctx, elementID)
	if err != nil {
		slog.Debug("SmartPause: geometry query failed", "element", elementID, "error", err)
		return
	}
	bounds, err := w.vp.Bounds(ctx)
	if err != nil {
		slog.Debug("SmartPause: bounds query failed", "error", err)
		return
	}
	vis := viewport.CheckVisibility(&geom, bounds, w.threshold)

	w.mu.Lock()
	if w.elementID != elementID {
		// Retargeted while this poll was in flight.
		w.mu.Unlock()
		return
	}
	var fire func()
	switch {
	case w.state == watchingVisible && !vis.IsVisible:
		w.state = watchingHidden
		fire = w.onHidden
		slog.Debug("SmartPause: element left viewport", "element", elementID, "reason", vis.Reason)
	case w.state == watchingHidden && vis.IsVisible:
		w.state = watchingVisible
		fire = w.onVisible
		slog.Debug("SmartPause: element back in viewport", "element", elementID)
	}
	w.mu.Unlock()

	if fire != nil {
		fire()
	}
}
