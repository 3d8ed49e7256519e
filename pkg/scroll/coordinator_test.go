package scroll

import (
	"testing"
	"time"

	"comicvox/pkg/config"
	"comicvox/pkg/model"
	"comicvox/pkg/viewport"
)

func testConfig() *config.ScrollConfig {
	return &config.ScrollConfig{
		SettleDelay:        config.Duration(10 * time.Millisecond),
		Alignment:          0.35,
		AlignmentTolerance: 0.1,
		EdgeMargin:         24,
		HighlightDuration:  config.Duration(30 * time.Millisecond),
		PulseDuration:      config.Duration(15 * time.Millisecond),
		UserScrollGrace:    config.Duration(50 * time.Millisecond),
	}
}

func offscreenGeom() viewport.ElementGeometry {
	return viewport.ElementGeometry{
		Rect:    model.Rect{Left: 100, Top: 1200, Width: 300, Height: 100},
		Opacity: 1,
	}
}

// centeredGeom sits exactly at the alignment position, clear of margins.
func centeredGeom() viewport.ElementGeometry {
	return viewport.ElementGeometry{
		Rect:    model.Rect{Left: 100, Top: 280, Width: 300, Height: 100}, // 0.35 * 800 = 280
		Opacity: 1,
	}
}

func TestScrollsToOffscreenTarget(t *testing.T) {
	vp := newFakeViewport()
	vp.setGeometry("panel-1", offscreenGeom())

	c := New(vp, testConfig())
	c.Activate()
	defer c.Deactivate()

	c.SetCurrentElement("panel-1", Options{})
	time.Sleep(60 * time.Millisecond)

	if vp.scrollCount() != 1 {
		t.Fatalf("expected 1 scroll command, got %d", vp.scrollCount())
	}
	// target offset: pos(0) + rect.Top(1200) - desired(280) = 920
	if got := vp.scrolls[0]; got != 920 {
		t.Errorf("expected scroll to 920, got %v", got)
	}
}

func TestIdempotentWhenCentered(t *testing.T) {
	vp := newFakeViewport()
	vp.setGeometry("panel-1", centeredGeom())

	c := New(vp, testConfig())
	c.Activate()
	defer c.Deactivate()

	c.SetCurrentElement("panel-1", Options{})
	time.Sleep(40 * time.Millisecond)
	c.SetCurrentElement("panel-1", Options{})
	time.Sleep(40 * time.Millisecond)

	if vp.scrollCount() != 0 {
		t.Errorf("expected 0 scroll commands for centered element, got %d", vp.scrollCount())
	}
}

func TestPendingIntentReplaced(t *testing.T) {
	vp := newFakeViewport()
	vp.setGeometry("panel-1", offscreenGeom())
	vp.setGeometry("panel-2", viewport.ElementGeometry{
		Rect:    model.Rect{Left: 100, Top: 2000, Width: 300, Height: 100},
		Opacity: 1,
	})

	c := New(vp, testConfig())
	c.Activate()
	defer c.Deactivate()

	// Second call lands before the first timer fires: only one scroll,
	// and it targets panel-2.
	c.SetCurrentElement("panel-1", Options{})
	c.SetCurrentElement("panel-2", Options{})
	time.Sleep(60 * time.Millisecond)

	if vp.scrollCount() != 1 {
		t.Fatalf("expected 1 scroll command, got %d", vp.scrollCount())
	}
	if got := vp.scrolls[0]; got != 2000-280 {
		t.Errorf("expected scroll for panel-2 (1720), got %v", got)
	}
}

func TestHighlightClassesRemoved(t *testing.T) {
	vp := newFakeViewport()
	vp.setGeometry("panel-1", offscreenGeom())

	c := New(vp, testConfig())
	c.Activate()
	defer c.Deactivate()

	c.SetCurrentElement("panel-1", Options{})
	time.Sleep(100 * time.Millisecond)

	vp.mu.Lock()
	ops := append([]string(nil), vp.classOps...)
	vp.mu.Unlock()

	want := map[string]bool{
		"add:panel-1:" + HighlightClass:    false,
		"add:panel-1:" + PulseClass:        false,
		"remove:panel-1:" + HighlightClass: false,
		"remove:panel-1:" + PulseClass:     false,
	}
	for _, op := range ops {
		if _, ok := want[op]; ok {
			want[op] = true
		}
	}
	for op, seen := range want {
		if !seen {
			t.Errorf("missing class operation %q (got %v)", op, ops)
		}
	}
}

func TestDeactivateStopsEverything(t *testing.T) {
	vp := newFakeViewport()
	vp.setGeometry("panel-1", offscreenGeom())

	c := New(vp, testConfig())
	c.Activate()
	c.SetCurrentElement("panel-1", Options{})
	c.Deactivate()

	before := vp.opCount()
	time.Sleep(80 * time.Millisecond)
	after := vp.opCount()

	if before != after {
		t.Errorf("viewport mutated after Deactivate: %d -> %d ops", before, after)
	}
}

func TestDeactivateDuringInFlightScroll(t *testing.T) {
	vp := newFakeViewport()
	vp.setGeometry("panel-1", offscreenGeom())

	inFlight := make(chan struct{})
	release := make(chan struct{})
	vp.posHook = func() {
		close(inFlight)
		<-release
	}

	c := New(vp, testConfig())
	c.Activate()
	c.SetCurrentElement("panel-1", Options{})

	// The scheduled scroll passed its pre-checks and is stalled reading
	// the scroll position when Deactivate lands.
	<-inFlight
	c.Deactivate()
	before := vp.opCount()

	close(release)
	time.Sleep(50 * time.Millisecond)
	if after := vp.opCount(); after != before {
		t.Errorf("viewport mutated after Deactivate: %d -> %d ops", before, after)
	}
}

func TestUserScrollSuspendsThenResumes(t *testing.T) {
	vp := newFakeViewport()
	vp.setGeometry("panel-1", offscreenGeom())

	c := New(vp, testConfig())
	c.Activate()
	defer c.Deactivate()

	c.SetCurrentElement("panel-1", Options{})
	c.NoteUserScroll() // user grabs the wheel before the settle timer fires
	time.Sleep(30 * time.Millisecond)

	if vp.scrollCount() != 0 {
		t.Fatalf("expected no scroll while suspended, got %d", vp.scrollCount())
	}

	// After the grace period the coordinator re-centers on its own.
	time.Sleep(60 * time.Millisecond)
	if vp.scrollCount() != 1 {
		t.Errorf("expected 1 scroll after grace period, got %d", vp.scrollCount())
	}
}

func TestProgrammaticScrollNotTreatedAsUser(t *testing.T) {
	vp := newFakeViewport()
	vp.setGeometry("panel-1", offscreenGeom())

	c := New(vp, testConfig())
	c.Activate()
	defer c.Deactivate()

	c.SetCurrentElement("panel-1", Options{})
	time.Sleep(40 * time.Millisecond)

	if vp.scrollCount() != 1 {
		t.Fatalf("expected initial scroll, got %d", vp.scrollCount())
	}

	// The echo of our own scroll command must not suspend the coordinator.
	c.NoteUserScroll()
	c.mu.Lock()
	suspended := c.suspended
	c.mu.Unlock()
	if suspended {
		t.Error("programmatic scroll echo suspended the coordinator")
	}
}

func TestResizeRecenters(t *testing.T) {
	vp := newFakeViewport()
	vp.setGeometry("panel-1", centeredGeom())

	c := New(vp, testConfig())
	c.Activate()
	defer c.Deactivate()

	c.SetCurrentElement("panel-1", Options{})
	time.Sleep(40 * time.Millisecond)
	if vp.scrollCount() != 0 {
		t.Fatalf("element was centered, expected no scroll")
	}

	// Shrink the viewport so the element falls out of the band.
	vp.mu.Lock()
	vp.bounds = model.Rect{Width: 1000, Height: 400}
	vp.mu.Unlock()

	c.NoteResize()
	time.Sleep(40 * time.Millisecond)

	if vp.scrollCount() != 1 {
		t.Errorf("expected re-scroll after resize, got %d", vp.scrollCount())
	}
}
