package speech

import (
	"context"
	"os"
	"sync"

	"comicvox/pkg/tts"
)

// MockProvider implements tts.Provider with overridable behavior.
type MockProvider struct {
	mu            sync.Mutex
	SynthesizeFun func(ctx context.Context, text, voice, outputPath string) (string, error)
	calls         int
}

func (m *MockProvider) Synthesize(ctx context.Context, text, voice, outputPath string) (string, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.SynthesizeFun != nil {
		return m.SynthesizeFun(ctx, text, voice, outputPath)
	}
	return writeFakeAudio(outputPath, "mp3")
}

func (m *MockProvider) Voices(ctx context.Context) ([]tts.Voice, error) {
	return nil, nil
}

func (m *MockProvider) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// writeFakeAudio creates a file large enough to pass VerifyAudioFile.
func writeFakeAudio(outputPath, format string) (string, error) {
	if err := os.WriteFile(outputPath+"."+format, make([]byte, tts.MinAudioSize+1), 0o644); err != nil {
		return "", err
	}
	return format, nil
}

// MockPlayer implements Player without touching the sound device.
type MockPlayer struct {
	mu         sync.Mutex
	PlayFun    func(filepath string, onComplete func()) error
	paused     bool
	stops      int
	played     []string
	onComplete func()
}

func (m *MockPlayer) Play(filepath string, onComplete func()) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PlayFun != nil {
		return m.PlayFun(filepath, onComplete)
	}
	m.played = append(m.played, filepath)
	m.onComplete = onComplete
	return nil
}

func (m *MockPlayer) Pause() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.paused = true
}

func (m *MockPlayer) Resume() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.paused = false
}

func (m *MockPlayer) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stops++
	m.onComplete = nil
}

func (m *MockPlayer) IsPaused() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.paused
}

// finishPlayback simulates natural completion of the current file.
func (m *MockPlayer) finishPlayback() {
	m.mu.Lock()
	cb := m.onComplete
	m.onComplete = nil
	m.mu.Unlock()
	if cb != nil {
		cb()
	}
}

func (m *MockPlayer) playedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.played)
}

func (m *MockPlayer) stopCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stops
}
