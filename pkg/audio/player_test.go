package audio

import (
	"math"
	"testing"
)

func TestNewPlayer(t *testing.T) {
	p := NewPlayer()
	if p == nil {
		t.Fatal("NewPlayer returned nil")
	}
	if p.Volume() != 1.0 {
		t.Errorf("Expected default volume 1.0, got %f", p.Volume())
	}
	if p.IsPlaying() || p.IsBusy() || p.IsPaused() {
		t.Error("Expected idle state on new player")
	}
}

func TestPlayerVolumeClamping(t *testing.T) {
	p := NewPlayer()

	p.SetVolume(0.5)
	if p.Volume() != 0.5 {
		t.Errorf("Expected volume 0.5, got %f", p.Volume())
	}

	p.SetVolume(-0.5)
	if p.Volume() != 0 {
		t.Errorf("Expected volume clamped to 0, got %f", p.Volume())
	}

	p.SetVolume(1.5)
	if p.Volume() != 1.0 {
		t.Errorf("Expected volume clamped to 1.0, got %f", p.Volume())
	}
}

func TestVolumeToPower(t *testing.T) {
	if got := volumeToPower(1.0); got != 0 {
		t.Errorf("volumeToPower(1.0) = %f, want 0 (unity gain)", got)
	}
	if got := volumeToPower(0.5); got != -1 {
		t.Errorf("volumeToPower(0.5) = %f, want -1", got)
	}
	if got := volumeToPower(0); got != -10 {
		t.Errorf("volumeToPower(0) = %f, want -10 (silent)", got)
	}
	if got := volumeToPower(0.25); math.Abs(got-(-2)) > 1e-9 {
		t.Errorf("volumeToPower(0.25) = %f, want -2", got)
	}
}

func TestPlayMissingFile(t *testing.T) {
	p := NewPlayer()
	if err := p.Play("does-not-exist.mp3", nil); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestStopWithoutPlayback(t *testing.T) {
	p := NewPlayer()
	p.Stop()
	p.Pause()
	p.Resume()
	p.Shutdown()
	if p.IsBusy() {
		t.Error("expected not busy")
	}
}
