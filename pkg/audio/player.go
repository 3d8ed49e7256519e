// Package audio plays synthesized narration files through the local
// sound device. Playback here backs the fallback speech engine; normal
// narration plays in the browser.
package audio

import (
	"log/slog"
	"math"
	"os"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/gopxl/beep/v2/wav"
)

// Player plays one audio file at a time using gopxl/beep. A new Play
// replaces whatever is loaded.
type Player struct {
	mu                 sync.RWMutex
	ctrl               *beep.Ctrl
	volume             float64
	isPaused           bool
	lastFile           string
	speakerInitialized bool
	currentSampleRate  beep.SampleRate
	streamer           *effects.Volume
	trackStreamer      beep.StreamSeekCloser
}

// NewPlayer creates a player at full volume.
func NewPlayer() *Player {
	return &Player{volume: 1.0}
}

// Play starts playback of an audio file. onComplete fires when playback
// finishes naturally, not when stopped or replaced.
func (p *Player) Play(filepath string, onComplete func()) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stopLocked()

	streamer, format, err := p.decodeStreamer(filepath)
	if err != nil {
		return err
	}

	if err := p.ensureSpeakerInitialized(streamer); err != nil {
		return err
	}

	resampled := beep.Resample(3, format.SampleRate, p.currentSampleRate, streamer)

	volStreamer := &effects.Volume{
		Streamer: resampled,
		Base:     2,
		Volume:   volumeToPower(p.volume),
		Silent:   p.volume <= 0.01,
	}

	p.streamer = volStreamer
	p.trackStreamer = streamer
	p.ctrl = &beep.Ctrl{Streamer: volStreamer}
	p.isPaused = false

	speaker.Play(beep.Seq(p.ctrl, beep.Callback(func() {
		// Clean up off the speaker thread.
		go func() {
			p.mu.Lock()
			p.ctrl = nil
			p.isPaused = false
			p.mu.Unlock()
			streamer.Close()

			if onComplete != nil {
				onComplete()
			}
		}()
	})))

	// The previous file is no longer referenced once the new one is loaded.
	if p.lastFile != "" && p.lastFile != filepath {
		oldFile := p.lastFile
		if err := os.Remove(oldFile); err == nil {
			slog.Debug("Audio: Cleaned up previous narration artifact", "path", oldFile)
		} else if !os.IsNotExist(err) {
			slog.Warn("Audio: Failed to cleanup previous narration artifact", "path", oldFile, "error", err)
		}
	}
	p.lastFile = filepath

	slog.Debug("Playing audio", "path", filepath)
	return nil
}

// Pause pauses current playback.
func (p *Player) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ctrl != nil {
		speaker.Lock()
		p.ctrl.Paused = true
		speaker.Unlock()
		p.isPaused = true
	}
}

// Resume resumes paused playback.
func (p *Player) Resume() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ctrl != nil && p.isPaused {
		speaker.Lock()
		p.ctrl.Paused = false
		speaker.Unlock()
		p.isPaused = false
	}
}

// Stop stops current playback without the completion callback firing.
func (p *Player) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stopLocked()
}

func (p *Player) stopLocked() {
	if p.trackStreamer != nil {
		p.trackStreamer.Close()
		p.trackStreamer = nil
	}
	if p.ctrl != nil {
		speaker.Clear()
		p.ctrl = nil
		p.isPaused = false
	}
}

// Shutdown stops playback and deletes any residual audio artifacts.
func (p *Player) Shutdown() {
	p.Stop()

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.lastFile != "" {
		if err := os.Remove(p.lastFile); err == nil {
			slog.Debug("Audio: Shutdown cleanup of residual artifact", "path", p.lastFile)
		} else if !os.IsNotExist(err) {
			slog.Warn("Audio: Failed to cleanup residual artifact on shutdown", "path", p.lastFile, "error", err)
		}
		p.lastFile = ""
	}
}

// IsPlaying returns true if audio is currently playing (not paused).
func (p *Player) IsPlaying() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.ctrl != nil && !p.isPaused
}

// IsBusy returns true if audio is loaded (playing or paused).
func (p *Player) IsBusy() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.ctrl != nil
}

// IsPaused returns true if playback is paused.
func (p *Player) IsPaused() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.isPaused
}

// SetVolume sets playback volume (0.0 to 1.0).
func (p *Player) SetVolume(vol float64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if vol < 0 {
		vol = 0
	} else if vol > 1 {
		vol = 1
	}
	p.volume = vol

	if p.streamer != nil {
		speaker.Lock()
		p.streamer.Volume = volumeToPower(vol)
		p.streamer.Silent = vol <= 0.01
		speaker.Unlock()
	}
}

// Volume returns current volume level.
func (p *Player) Volume() float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.volume
}

func (p *Player) ensureSpeakerInitialized(streamer beep.StreamSeekCloser) error {
	const targetSampleRate = 48000
	if !p.speakerInitialized {
		err := speaker.Init(beep.SampleRate(targetSampleRate), beep.SampleRate(targetSampleRate).N(time.Second/10))
		if err != nil {
			streamer.Close()
			slog.Error("Failed to initialize speaker", "error", err)
			return err
		}
		p.speakerInitialized = true
		p.currentSampleRate = beep.SampleRate(targetSampleRate)
	}
	return nil
}

func (p *Player) decodeStreamer(path string) (beep.StreamSeekCloser, beep.Format, error) {
	f, err := os.Open(path)
	if err != nil {
		slog.Error("Failed to open audio file", "path", path, "error", err)
		return nil, beep.Format{}, err
	}

	// Try MP3 first
	streamer, format, err := mp3.Decode(f)
	if err == nil {
		return streamer, format, nil
	}

	// Reopen for WAV; a failed MP3 decode leaves the read offset unknown.
	f.Close()
	f, err = os.Open(path)
	if err != nil {
		return nil, beep.Format{}, err
	}
	defer func() {
		if err != nil {
			f.Close()
		}
	}()

	streamer, format, err = wav.Decode(f)
	if err != nil {
		slog.Error("Failed to decode audio file", "path", path, "error", err)
		return nil, beep.Format{}, err
	}

	return streamer, format, nil
}

func volumeToPower(vol float64) float64 {
	// Beep's Volume effect adds to the exponent (Base 2), so unity gain
	// is 0 and silence is a large negative power.
	if vol <= 0.01 {
		return -10
	}
	return math.Log2(vol)
}
