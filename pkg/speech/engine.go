// Package speech defines the utterance engine contract. An engine speaks
// one text at a time: starting a new utterance replaces any current one.
// The sequencer is the only caller; it relies on Speak being asynchronous
// and on the callbacks firing exactly once per utterance.
package speech

import "context"

// Options selects the voice for one utterance.
type Options struct {
	Voice string
	// Rate is a relative speaking rate, 1.0 = normal. Engines that
	// cannot vary rate ignore it.
	Rate float64
}

// Callbacks observe the lifecycle of one utterance. OnEnd fires only on
// natural completion; a cancelled utterance fires nothing further.
type Callbacks struct {
	OnStart func()
	OnEnd   func()
	OnError func(err error)
}

// Engine produces audible speech. Implementations must cancel any
// in-flight utterance before starting a new one, so at most one
// utterance exists at any time.
type Engine interface {
	// Speak starts speaking text asynchronously. Errors during
	// synthesis or playback arrive via cb.OnError.
	Speak(ctx context.Context, text string, opts Options, cb Callbacks) error
	// Pause suspends the current utterance, retaining position.
	Pause()
	// Resume continues a paused utterance.
	Resume()
	// Cancel discards the current utterance entirely.
	Cancel()
	// Speaking reports whether an utterance is active (even if paused).
	Speaking() bool
	// Paused reports whether the current utterance is paused.
	Paused() bool
}
