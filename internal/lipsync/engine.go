package lipsync

import "errors"

// Benign engine errors. An engine reports one of these when speech stops
// because it was cancelled rather than because it failed.
var (
	ErrInterrupted = errors.New("speech interrupted")
	ErrCanceled    = errors.New("speech canceled")
)

// IsBenign reports whether err only signals cancellation.
func IsBenign(err error) bool {
	return errors.Is(err, ErrInterrupted) || errors.Is(err, ErrCanceled)
}

// Utterance is one line handed to a speech engine.
type Utterance struct {
	Text    string
	Options VoiceOptions
}

// Callbacks receive the engine's playback events for one utterance. OnStart
// fires when audio actually starts; then exactly one of OnEnd or OnError
// should follow. Engines may call them from any goroutine.
type Callbacks struct {
	OnStart func()
	OnEnd   func()
	OnError func(err error)
}

// Engine speaks utterances. Speak must not block until playback ends.
// Cancel stops whatever is playing or pending and should report
// ErrInterrupted through that utterance's OnError.
type Engine interface {
	Speak(u Utterance, cb Callbacks) error
	Cancel()
}
