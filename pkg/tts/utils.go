package tts

import (
	"fmt"
	"os"
	"regexp"
)

// VerifyAudioFile checks that a synthesis output exists and is large
// enough to plausibly contain audio.
func VerifyAudioFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("audio file missing: %w", err)
	}
	if info.Size() < MinAudioSize {
		return fmt.Errorf("audio file too small: %d bytes", info.Size())
	}
	return nil
}

var speakerLabelRegex = regexp.MustCompile(`(?m)^[A-Za-z]+(\s*\([^)]+\))?:\s*`)

// StripSpeakerLabels removes leading speaker labels like "NARRATOR:" or
// "Bob (whispering):" that OCR picks up from caption boxes; the voice
// should not read them aloud.
func StripSpeakerLabels(script string) string {
	return speakerLabelRegex.ReplaceAllString(script, "")
}
