// Package narrator drives a narration session: it walks the extracted
// texts in order, speaks each one, follows along with scroll and
// highlight, and pauses itself when the reader scrolls away. It is the
// only writer of the session state and the current index; everything
// else observes through events.
package narrator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"comicvox/pkg/config"
	"comicvox/pkg/events"
	"comicvox/pkg/model"
	"comicvox/pkg/ocr"
	"comicvox/pkg/scroll"
	"comicvox/pkg/selection"
	"comicvox/pkg/speech"
	"comicvox/pkg/store"
	"comicvox/pkg/viewport"
)

// TextSource provides the narration script. Satisfied by selection.Store.
type TextSource interface {
	OrderedTexts() []model.ExtractedText
}

// Scroller is the subset of scroll.Coordinator the sequencer drives.
type Scroller interface {
	Activate()
	Deactivate()
	SetCurrentElement(elementID string, opts scroll.Options)
}

// Sequencer is the narration state machine. All mutation happens behind
// one mutex; speech engine calls are made outside it because engines may
// invoke callbacks synchronously.
type Sequencer struct {
	cfg      *config.NarratorConfig
	engine   speech.Engine
	fallback speech.Engine // optional, used when the primary engine cannot start
	source   TextSource
	scroller Scroller
	watcher  *watcher
	bus      *events.Bus
	sessions store.SessionStore // optional resume hints
	document string

	mu              sync.Mutex
	state           model.SessionState
	items           []model.ExtractedText
	index           int
	utterance       uint64 // generation; stale engine callbacks are dropped
	advanceT        *time.Timer
	pausedByWatcher bool
	pendingAdvance  bool // manual pause landed during the inter-item gap
	itemFailures    int  // consecutive items with no audible output
}

// New creates a sequencer. fallback, bus and sessions may be nil.
func New(cfg *config.NarratorConfig, engine, fallback speech.Engine, source TextSource, scroller Scroller, vp viewport.Viewport, bus *events.Bus, sessions store.SessionStore, documentID string) *Sequencer {
	s := &Sequencer{
		cfg:      cfg,
		engine:   engine,
		fallback: fallback,
		source:   source,
		scroller: scroller,
		bus:      bus,
		sessions: sessions,
		document: documentID,
		state:    model.StateIdle,
		index:    -1,
	}
	s.watcher = newWatcher(vp, cfg.VisibilityThreshold, time.Duration(cfg.PollInterval), s.pauseFromWatcher, s.resumeFromWatcher)
	return s
}

// Start begins a narration session over the current ordered texts.
// An active session is stopped first. Returns an error when there is
// nothing to narrate.
func (s *Sequencer) Start(ctx context.Context) error {
	s.Stop()

	items := s.source.OrderedTexts()
	if len(items) == 0 {
		return fmt.Errorf("narrator: no extracted texts to narrate")
	}

	startAt := 0
	if s.sessions != nil && s.document != "" {
		if idx, ok := s.sessions.GetLastIndex(ctx, s.document); ok && idx > 0 && idx < len(items) {
			startAt = idx
			slog.Info("Narrator: resuming from stored position", "index", idx)
		}
	}

	s.mu.Lock()
	s.state = model.StateStarting
	s.items = items
	s.index = startAt
	s.itemFailures = 0
	s.mu.Unlock()

	slog.Info("Narrator: session started", "items", len(items), "start_at", startAt)
	s.bus.Publish(events.NarrationStarted{TotalItems: len(items)})
	s.scroller.Activate()

	s.speakCurrent(ctx)
	return nil
}

// Stop ends the session immediately. The in-flight utterance is
// cancelled synchronously; highlight cleanup may finish asynchronously.
func (s *Sequencer) Stop() {
	s.stopSession(false)
}

// Pause suspends narration manually. The current utterance keeps its
// position; Resume continues it.
func (s *Sequencer) Pause() {
	s.mu.Lock()
	switch s.state {
	case model.StateSpeaking:
		s.state = model.StatePaused
		s.pausedByWatcher = false
		s.mu.Unlock()
		s.engine.Pause()
		return
	case model.StateAdvancing:
		s.stopAdvanceLocked()
		s.state = model.StatePaused
		s.pausedByWatcher = false
		s.pendingAdvance = true
	}
	s.mu.Unlock()
}

// Resume continues after a manual pause.
func (s *Sequencer) Resume(ctx context.Context) {
	s.mu.Lock()
	if s.state != model.StatePaused {
		s.mu.Unlock()
		return
	}
	if s.pendingAdvance {
		s.pendingAdvance = false
		s.mu.Unlock()
		s.advance(ctx, 0)
		return
	}
	s.state = model.StateSpeaking
	s.pausedByWatcher = false
	s.mu.Unlock()
	s.engine.Resume()
}

// Next jumps to the following item, cancelling the current utterance
// and skipping the inter-item pause.
func (s *Sequencer) Next(ctx context.Context) {
	s.seekRelative(ctx, 1)
}

// Previous jumps to the preceding item (or restarts the first).
func (s *Sequencer) Previous(ctx context.Context) {
	s.seekRelative(ctx, -1)
}

// Seek jumps directly to the given item index.
func (s *Sequencer) Seek(ctx context.Context, index int) {
	s.mu.Lock()
	if !s.activeLocked() || index < 0 || index >= len(s.items) {
		s.mu.Unlock()
		return
	}
	s.stopAdvanceLocked()
	s.utterance++ // orphan a timer that already fired
	s.index = index
	s.pendingAdvance = false
	s.mu.Unlock()

	s.speakCurrent(ctx)
}

func (s *Sequencer) seekRelative(ctx context.Context, delta int) {
	s.mu.Lock()
	if !s.activeLocked() {
		s.mu.Unlock()
		return
	}
	s.stopAdvanceLocked()
	s.utterance++
	target := s.index + delta
	if target < 0 {
		target = 0
	}
	if target >= len(s.items) {
		s.mu.Unlock()
		s.stopSession(true)
		return
	}
	s.index = target
	s.pendingAdvance = false
	s.mu.Unlock()

	s.speakCurrent(ctx)
}

// Status returns a read-only snapshot of the session.
func (s *Sequencer) Status() model.NarrationStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := model.NarrationStatus{
		State:        s.state,
		CurrentIndex: s.index,
		TotalItems:   len(s.items),
	}
	st.Narrating = s.activeLocked()
	st.Paused = s.state == model.StatePaused
	if st.Narrating && s.index >= 0 && s.index < len(s.items) {
		st.CurrentText = s.speakableTextLocked(s.items[s.index])
	}
	if !st.Narrating {
		st.CurrentIndex = -1
	}
	return st
}

func (s *Sequencer) activeLocked() bool {
	switch s.state {
	case model.StateStarting, model.StateSpeaking, model.StatePaused, model.StateAdvancing:
		return true
	}
	return false
}

// speakCurrent starts the utterance for the current index. It is the
// single place utterances are created; the cancel-before-start rule
// lives here and nowhere else.
func (s *Sequencer) speakCurrent(ctx context.Context) {
	s.engine.Cancel()

	s.mu.Lock()
	if !s.activeLocked() {
		s.mu.Unlock()
		return
	}
	s.utterance++
	gen := s.utterance
	s.state = model.StateSpeaking
	s.pausedByWatcher = false
	item := s.items[s.index]
	index := s.index
	text := s.speakableTextLocked(item)
	s.mu.Unlock()

	s.persistPosition(ctx, index)
	s.bus.Publish(events.NarrationSelectionChanged{Index: index})
	s.scroller.SetCurrentElement(item.ImageID, scroll.Options{})

	if item.Failed || text == "" || text == ocr.NoTextMarker {
		// Nothing speakable; show it and move on.
		s.bus.Publish(events.NarrationTextFallback{Index: index, Text: item.Text})
		s.scheduleAdvance(ctx, gen)
		return
	}

	s.watcher.Watch(ctx, item.ImageID)
	s.speakWithRetry(ctx, gen, index, text, 0, false)
}

func (s *Sequencer) speakWithRetry(ctx context.Context, gen uint64, index int, text string, attempt int, usingFallback bool) {
	engine := s.engine
	if usingFallback {
		engine = s.fallback
	}

	cb := speech.Callbacks{
		OnStart: func() {
			if !s.currentUtterance(gen) {
				return
			}
			s.mu.Lock()
			s.itemFailures = 0
			s.mu.Unlock()
			s.bus.Publish(events.NarrationTextStarted{Index: index, Text: text})
		},
		OnEnd: func() {
			if !s.currentUtterance(gen) {
				return
			}
			s.onUtteranceEnd(ctx, gen)
		},
		OnError: func(err error) {
			if !s.currentUtterance(gen) {
				return
			}
			s.onSpeechError(ctx, gen, index, text, attempt, usingFallback, err)
		},
	}

	if err := engine.Speak(ctx, text, speech.Options{}, cb); err != nil {
		s.onSpeechError(ctx, gen, index, text, attempt, usingFallback, err)
	}
}

func (s *Sequencer) onSpeechError(ctx context.Context, gen uint64, index int, text string, attempt int, usingFallback bool, err error) {
	if !s.currentUtterance(gen) {
		return
	}
	slog.Warn("Narrator: utterance failed", "index", index, "attempt", attempt, "fallback", usingFallback, "error", err)

	if !usingFallback && attempt < s.cfg.EngineRetries {
		s.speakWithRetry(ctx, gen, index, text, attempt+1, false)
		return
	}
	if !usingFallback && s.fallback != nil {
		slog.Warn("Narrator: switching to fallback speech engine", "index", index)
		s.speakWithRetry(ctx, gen, index, text, 0, true)
		return
	}

	// Out of options for this item: show the text instead and advance.
	s.watcher.Stop()
	s.bus.Publish(events.NarrationTextFallback{Index: index, Text: text})

	s.mu.Lock()
	s.itemFailures++
	failures := s.itemFailures
	total := len(s.items)
	s.mu.Unlock()
	if failures >= total && total > 0 {
		// Every remaining item is failing; stop instead of cycling silently.
		slog.Error("Narrator: all items failing to speak, stopping session")
		s.stopSession(false)
		return
	}
	s.scheduleAdvance(ctx, gen)
}

func (s *Sequencer) onUtteranceEnd(ctx context.Context, gen uint64) {
	s.watcher.Stop()
	s.scheduleAdvance(ctx, gen)
}

// scheduleAdvance enters the inter-item gap. The configured minimum
// pause applies between items on the same image; crossing to a new
// image uses the longer pause so the reader can reorient.
func (s *Sequencer) scheduleAdvance(ctx context.Context, gen uint64) {
	s.mu.Lock()
	if gen != s.utterance || !s.activeLocked() {
		s.mu.Unlock()
		return
	}
	if s.state == model.StatePaused && !s.pausedByWatcher {
		// A manual pause raced the utterance's natural end. Stay paused;
		// Resume picks the advance back up.
		s.pendingAdvance = true
		s.mu.Unlock()
		return
	}
	s.state = model.StateAdvancing
	s.pausedByWatcher = false

	pause := time.Duration(s.cfg.PauseMin)
	next := s.index + 1
	if next < len(s.items) && s.items[next].ImageID != s.items[s.index].ImageID {
		pause = time.Duration(s.cfg.PauseMax)
	}

	s.stopAdvanceLocked()
	s.advanceT = time.AfterFunc(pause, func() {
		s.advance(ctx, gen)
	})
	s.mu.Unlock()
}

// advance moves to the next item. gen 0 means unconditional (manual
// resume of a pending advance); otherwise a stale generation is a no-op,
// so a seek racing the timer wins.
func (s *Sequencer) advance(ctx context.Context, gen uint64) {
	s.mu.Lock()
	if !s.activeLocked() || (gen != 0 && gen != s.utterance) {
		s.mu.Unlock()
		return
	}
	if s.index+1 >= len(s.items) {
		s.mu.Unlock()
		s.stopSession(true)
		return
	}
	s.index++
	s.mu.Unlock()

	s.speakCurrent(ctx)
}

func (s *Sequencer) stopSession(completed bool) {
	s.mu.Lock()
	wasActive := s.activeLocked()
	s.utterance++ // orphan any in-flight callbacks
	s.stopAdvanceLocked()
	s.state = model.StateStopped
	s.pendingAdvance = false
	s.pausedByWatcher = false
	s.mu.Unlock()

	s.engine.Cancel()
	if s.fallback != nil {
		s.fallback.Cancel()
	}
	s.watcher.Stop()
	s.scroller.Deactivate()

	s.mu.Lock()
	s.state = model.StateIdle
	s.index = -1
	s.items = nil
	s.mu.Unlock()

	if wasActive {
		if completed && s.sessions != nil && s.document != "" {
			// A finished session should not resume mid-way next time.
			_ = s.sessions.DeleteSession(context.Background(), s.document)
		}
		slog.Info("Narrator: session stopped", "completed", completed)
		s.bus.Publish(events.NarrationStopped{Completed: completed})
	}
}

// pauseFromWatcher fires when the narrated element scrolls out of view.
func (s *Sequencer) pauseFromWatcher() {
	s.mu.Lock()
	if s.state != model.StateSpeaking {
		s.mu.Unlock()
		return
	}
	s.state = model.StatePaused
	s.pausedByWatcher = true
	s.mu.Unlock()

	slog.Debug("Narrator: paused, element not visible")
	s.engine.Pause()
}

// resumeFromWatcher fires when the element scrolls back into view. A
// manual pause is never overridden here.
func (s *Sequencer) resumeFromWatcher() {
	s.mu.Lock()
	if s.state != model.StatePaused || !s.pausedByWatcher {
		s.mu.Unlock()
		return
	}
	s.state = model.StateSpeaking
	s.pausedByWatcher = false
	s.mu.Unlock()

	slog.Debug("Narrator: resumed, element visible again")
	s.engine.Resume()
}

func (s *Sequencer) currentUtterance(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return gen == s.utterance
}

func (s *Sequencer) stopAdvanceLocked() {
	if s.advanceT != nil {
		s.advanceT.Stop()
		s.advanceT = nil
	}
}

func (s *Sequencer) speakableTextLocked(item model.ExtractedText) string {
	if item.ProcessedText != "" {
		return item.ProcessedText
	}
	return ocr.NormalizeText(item.Text)
}

func (s *Sequencer) persistPosition(ctx context.Context, index int) {
	if s.sessions == nil || s.document == "" {
		return
	}
	if err := s.sessions.SetLastIndex(ctx, s.document, index); err != nil {
		slog.Warn("Narrator: failed to persist position", "error", err)
	}
}

// ensure selection.Store satisfies the source contract
var _ TextSource = (*selection.Store)(nil)
