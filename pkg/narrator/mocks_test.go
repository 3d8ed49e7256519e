package narrator

import (
	"context"
	"sync"
	"time"

	"comicvox/pkg/config"
	"comicvox/pkg/events"
	"comicvox/pkg/model"
	"comicvox/pkg/scroll"
	"comicvox/pkg/speech"
	"comicvox/pkg/viewport"
)

func testConfig() *config.NarratorConfig {
	return &config.NarratorConfig{
		PauseMin:            config.Duration(20 * time.Millisecond),
		PauseMax:            config.Duration(60 * time.Millisecond),
		VisibilityThreshold: 0.5,
		PollInterval:        config.Duration(15 * time.Millisecond),
		EngineRetries:       1,
	}
}

// MockEngine implements speech.Engine. With autoComplete set, each
// utterance starts and ends on its own; otherwise tests drive the
// callbacks through finishUtterance.
type MockEngine struct {
	mu           sync.Mutex
	SpeakFun     func(ctx context.Context, text string) error
	autoComplete bool

	speaks   []string
	cancels  int
	pauses   int
	resumes  int
	speaking bool
	paused   bool
	cb       struct {
		onStart func()
		onEnd   func()
		onError func(error)
	}
}

func (m *MockEngine) Speak(ctx context.Context, text string, _ speech.Options, cb speech.Callbacks) error {
	m.mu.Lock()
	if m.SpeakFun != nil {
		fn := m.SpeakFun
		m.mu.Unlock()
		if err := fn(ctx, text); err != nil {
			return err
		}
		m.mu.Lock()
	}
	m.speaks = append(m.speaks, text)
	m.speaking = true
	m.paused = false
	m.cb.onStart = cb.OnStart
	m.cb.onEnd = cb.OnEnd
	m.cb.onError = cb.OnError
	auto := m.autoComplete
	m.mu.Unlock()

	if cb.OnStart != nil {
		cb.OnStart()
	}
	if auto {
		go func() {
			time.Sleep(5 * time.Millisecond)
			m.finishUtterance()
		}()
	}
	return nil
}

func (m *MockEngine) Pause() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pauses++
	m.paused = true
}

func (m *MockEngine) Resume() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resumes++
	m.paused = false
}

func (m *MockEngine) Cancel() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancels++
	m.speaking = false
	m.paused = false
	m.cb.onEnd = nil
}

func (m *MockEngine) Speaking() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.speaking
}

func (m *MockEngine) Paused() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.paused
}

// finishUtterance simulates natural completion of the active utterance.
func (m *MockEngine) finishUtterance() {
	m.mu.Lock()
	end := m.cb.onEnd
	m.cb.onEnd = nil
	m.speaking = false
	m.mu.Unlock()
	if end != nil {
		end()
	}
}

func (m *MockEngine) spokenTexts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.speaks))
	copy(out, m.speaks)
	return out
}

func (m *MockEngine) counts() (speaks, cancels, pauses, resumes int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.speaks), m.cancels, m.pauses, m.resumes
}

// fakeScroller records activation and element targeting.
type fakeScroller struct {
	mu          sync.Mutex
	activations int
	deactivates int
	targets     []string
}

func (f *fakeScroller) Activate() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.activations++
}

func (f *fakeScroller) Deactivate() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deactivates++
}

func (f *fakeScroller) SetCurrentElement(elementID string, _ scroll.Options) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.targets = append(f.targets, elementID)
}

func (f *fakeScroller) targetList() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.targets))
	copy(out, f.targets)
	return out
}

// fakeViewport serves settable element geometry for the watcher.
type fakeViewport struct {
	mu     sync.Mutex
	geoms  map[string]viewport.ElementGeometry
	bounds model.Rect
}

func newFakeViewport() *fakeViewport {
	return &fakeViewport{
		geoms:  make(map[string]viewport.ElementGeometry),
		bounds: model.Rect{Width: 1000, Height: 800},
	}
}

func (f *fakeViewport) setGeometry(id string, g viewport.ElementGeometry) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.geoms[id] = g
}

func (f *fakeViewport) ElementGeometry(_ context.Context, id string) (viewport.ElementGeometry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.geoms[id]
	if !ok {
		return viewport.ElementGeometry{Detached: true}, nil
	}
	return g, nil
}

func (f *fakeViewport) Bounds(context.Context) (model.Rect, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.bounds, nil
}

func (f *fakeViewport) ScrollPosition(context.Context) (float64, error) { return 0, nil }

func (f *fakeViewport) ScrollTo(context.Context, float64, bool) error { return nil }

func (f *fakeViewport) AddClass(context.Context, string, string) error { return nil }

func (f *fakeViewport) RemoveClass(context.Context, string, string) error { return nil }

// staticSource serves a fixed script.
type staticSource struct {
	texts []model.ExtractedText
}

func (s *staticSource) OrderedTexts() []model.ExtractedText {
	return s.texts
}

// eventRecorder captures bus events in order.
type eventRecorder struct {
	mu     sync.Mutex
	events []events.Event
}

func recordEvents(bus *events.Bus) *eventRecorder {
	r := &eventRecorder{}
	bus.Subscribe(func(e events.Event) {
		r.mu.Lock()
		r.events = append(r.events, e)
		r.mu.Unlock()
	})
	return r
}

func (r *eventRecorder) all() []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.Event, len(r.events))
	copy(out, r.events)
	return out
}

func (r *eventRecorder) countOf(match func(events.Event) bool) int {
	n := 0
	for _, e := range r.all() {
		if match(e) {
			n++
		}
	}
	return n
}
