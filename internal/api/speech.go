package api

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"comicvox/pkg/speech"
)

// RemoteEngine speaks through the browser's own speech synthesis. Each
// utterance gets an ID; the client echoes it back in speech_event frames
// so late events from a cancelled utterance are discarded.
type RemoteEngine struct {
	bridge *Bridge

	mu       sync.Mutex
	current  string // active utterance ID, "" when idle
	cb       speech.Callbacks
	speaking bool
	paused   bool
}

// NewRemoteEngine creates the engine and claims the bridge's speech
// event hook.
func NewRemoteEngine(bridge *Bridge) *RemoteEngine {
	e := &RemoteEngine{bridge: bridge}
	bridge.OnSpeechEvent = e.handleEvent
	return e
}

func (e *RemoteEngine) Speak(_ context.Context, text string, opts speech.Options, cb speech.Callbacks) error {
	if text == "" {
		return errors.New("speech: empty text")
	}

	e.mu.Lock()
	if e.current != "" {
		// A new utterance replaces the active one, matching the local
		// engine's behavior.
		e.mu.Unlock()
		_ = e.bridge.send("cancel_speech", "", struct{}{})
		e.mu.Lock()
	}
	id := uuid.NewString()
	e.current = id
	e.cb = cb
	e.speaking = false
	e.paused = false
	e.mu.Unlock()

	cmd := speakCommand{UtteranceID: id, Text: text, Voice: opts.Voice, Rate: opts.Rate}
	if err := e.bridge.send("speak", "", cmd); err != nil {
		e.mu.Lock()
		e.current = ""
		e.cb = speech.Callbacks{}
		e.mu.Unlock()
		return err
	}
	return nil
}

func (e *RemoteEngine) Pause() {
	e.mu.Lock()
	active := e.current != ""
	if active {
		e.paused = true
	}
	e.mu.Unlock()
	if active {
		_ = e.bridge.send("pause_speech", "", struct{}{})
	}
}

func (e *RemoteEngine) Resume() {
	e.mu.Lock()
	active := e.current != "" && e.paused
	if active {
		e.paused = false
	}
	e.mu.Unlock()
	if active {
		_ = e.bridge.send("resume_speech", "", struct{}{})
	}
}

func (e *RemoteEngine) Cancel() {
	e.mu.Lock()
	had := e.current != ""
	e.current = ""
	e.cb = speech.Callbacks{}
	e.speaking = false
	e.paused = false
	e.mu.Unlock()
	if had {
		_ = e.bridge.send("cancel_speech", "", struct{}{})
	}
}

func (e *RemoteEngine) Speaking() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.speaking && !e.paused
}

func (e *RemoteEngine) Paused() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.paused
}

func (e *RemoteEngine) handleEvent(utteranceID, event, errText string) {
	e.mu.Lock()
	if utteranceID != e.current {
		e.mu.Unlock()
		return
	}
	cb := e.cb
	switch event {
	case "started":
		e.speaking = true
		e.mu.Unlock()
		if cb.OnStart != nil {
			cb.OnStart()
		}
	case "ended":
		e.current = ""
		e.cb = speech.Callbacks{}
		e.speaking = false
		e.paused = false
		e.mu.Unlock()
		if cb.OnEnd != nil {
			cb.OnEnd()
		}
	case "error":
		e.current = ""
		e.cb = speech.Callbacks{}
		e.speaking = false
		e.paused = false
		e.mu.Unlock()
		if cb.OnError != nil {
			cb.OnError(fmt.Errorf("speech: client synthesis failed: %s", errText))
		}
	default:
		e.mu.Unlock()
	}
}
