package speech

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"comicvox/pkg/tts"
)

// ProviderEntry binds a tts.Provider to the voice it should use.
type ProviderEntry struct {
	Name     string
	Provider tts.Provider
	Voice    string
}

// Player is the subset of audio.Player the local engine needs.
type Player interface {
	Play(filepath string, onComplete func()) error
	Pause()
	Resume()
	Stop()
	IsPaused() bool
}

// LocalEngine synthesizes utterances to a temp file through a provider
// chain and plays them on the local sound device. It backs narration
// when the browser cannot speak; providers are tried in order, with a
// fatal error from one advancing permanently to the next.
type LocalEngine struct {
	mu        sync.Mutex
	providers []ProviderEntry
	player    Player
	outputDir string

	speaking   bool
	generation uint64
	fallbackAt int // first provider index still considered healthy
}

// NewLocalEngine creates an engine over the given provider chain.
// outputDir receives synthesis artifacts; empty means the system temp dir.
func NewLocalEngine(providers []ProviderEntry, player Player, outputDir string) *LocalEngine {
	if outputDir == "" {
		outputDir = os.TempDir()
	}
	return &LocalEngine{providers: providers, player: player, outputDir: outputDir}
}

var _ Engine = (*LocalEngine)(nil)

// Speak implements Engine. Synthesis runs in its own goroutine; the
// call returns once the previous utterance is cancelled.
func (e *LocalEngine) Speak(ctx context.Context, text string, opts Options, cb Callbacks) error {
	if text == "" {
		return fmt.Errorf("speech: empty text")
	}

	e.mu.Lock()
	e.player.Stop()
	e.generation++
	gen := e.generation
	e.speaking = true
	e.mu.Unlock()

	go e.synthesizeAndPlay(ctx, gen, text, opts, cb)
	return nil
}

func (e *LocalEngine) synthesizeAndPlay(ctx context.Context, gen uint64, text string, opts Options, cb Callbacks) {
	path, err := e.synthesize(ctx, text, opts)
	if err != nil {
		e.finish(gen)
		if cb.OnError != nil {
			cb.OnError(err)
		}
		return
	}

	e.mu.Lock()
	if gen != e.generation {
		// Cancelled while synthesizing; discard the artifact.
		e.mu.Unlock()
		_ = os.Remove(path)
		return
	}
	playErr := e.player.Play(path, func() {
		if e.current(gen) {
			e.finish(gen)
			if cb.OnEnd != nil {
				cb.OnEnd()
			}
		}
		_ = os.Remove(path)
	})
	e.mu.Unlock()

	if playErr != nil {
		e.finish(gen)
		_ = os.Remove(path)
		if cb.OnError != nil {
			cb.OnError(fmt.Errorf("play synthesized audio: %w", playErr))
		}
		return
	}
	if cb.OnStart != nil {
		cb.OnStart()
	}
}

func (e *LocalEngine) synthesize(ctx context.Context, text string, opts Options) (string, error) {
	e.mu.Lock()
	start := e.fallbackAt
	providers := e.providers
	e.mu.Unlock()

	var lastErr error
	for i := start; i < len(providers); i++ {
		entry := providers[i]
		voice := opts.Voice
		if voice == "" {
			voice = entry.Voice
		}
		outputPath := filepath.Join(e.outputDir, fmt.Sprintf("comicvox_speech_%d", time.Now().UnixNano()))

		format, err := entry.Provider.Synthesize(ctx, text, voice, outputPath)
		if err == nil {
			fullPath := outputPath + "." + format
			if verr := tts.VerifyAudioFile(fullPath); verr != nil {
				lastErr = fmt.Errorf("%s produced invalid audio: %w", entry.Name, verr)
				continue
			}
			return fullPath, nil
		}

		lastErr = fmt.Errorf("%s: %w", entry.Name, err)
		if tts.IsFatalError(err) {
			// Provider is down for the session, not just this utterance.
			slog.Warn("Speech: provider failed fatally, falling back", "provider", entry.Name, "error", err)
			e.mu.Lock()
			if i >= e.fallbackAt {
				e.fallbackAt = i + 1
			}
			e.mu.Unlock()
		} else {
			slog.Warn("Speech: synthesis failed", "provider", entry.Name, "error", err)
		}
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no speech providers configured")
	}
	return "", lastErr
}

// Pause implements Engine.
func (e *LocalEngine) Pause() { e.player.Pause() }

// Resume implements Engine.
func (e *LocalEngine) Resume() { e.player.Resume() }

// Cancel implements Engine.
func (e *LocalEngine) Cancel() {
	e.mu.Lock()
	e.generation++
	e.speaking = false
	e.mu.Unlock()
	e.player.Stop()
}

// Speaking implements Engine.
func (e *LocalEngine) Speaking() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.speaking
}

// Paused implements Engine.
func (e *LocalEngine) Paused() bool {
	return e.player.IsPaused()
}

func (e *LocalEngine) current(gen uint64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return gen == e.generation
}

func (e *LocalEngine) finish(gen uint64) {
	e.mu.Lock()
	if gen == e.generation {
		e.speaking = false
	}
	e.mu.Unlock()
}
