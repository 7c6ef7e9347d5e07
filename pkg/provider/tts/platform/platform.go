// Package platform implements tts.PlatformSynthesis for a browser client
// whose built-in speech synthesis is relayed over the session gateway.
//
// The browser advertises its speechSynthesis voice catalogue on connect and
// performs the actual synthesis and playback; this package is the server-side
// endpoint of that relay. Outbound speak/cancel commands are pushed through
// an injected CommandSender, and playback completion is delivered by the
// gateway's read loop through DeliverDone.
package platform

import (
	"context"
	"errors"
	"sync"

	"github.com/sahhacare/sahha/pkg/provider/tts"
)

// ErrNoClient is returned when a command cannot be sent because the browser
// connection is gone.
var ErrNoClient = errors.New("platform tts: client connection unavailable")

// Command is an outbound synthesis instruction for the browser client.
type Command struct {
	// Op is one of "speak" or "cancel".
	Op string `json:"op"`

	// Utterance parameters; set for "speak".
	Text      string  `json:"text,omitempty"`
	VoiceName string  `json:"voice_name,omitempty"`
	Language  string  `json:"language,omitempty"`
	Rate      float64 `json:"rate,omitempty"`
	Pitch     float64 `json:"pitch,omitempty"`
	Volume    float64 `json:"volume,omitempty"`
}

// CommandSender pushes a synthesis command to the connected browser.
// Implementations are provided by the gateway.
type CommandSender func(cmd Command) error

// Relay implements tts.PlatformSynthesis for a single browser connection.
//
// All methods are safe for concurrent use. Only one utterance is in flight
// at a time; Speak while another utterance is playing cancels the previous
// one first.
type Relay struct {
	send CommandSender

	mu     sync.Mutex
	voices []tts.Voice
	done   chan error // completion signal for the in-flight utterance
}

// Compile-time interface assertion.
var _ tts.PlatformSynthesis = (*Relay)(nil)

// NewRelay creates a Relay that issues synthesis commands through send.
func NewRelay(send CommandSender) *Relay {
	return &Relay{send: send}
}

// SetVoices records the voice catalogue the client advertised. Called by the
// gateway when the client's hello message arrives and again if the catalogue
// changes (platforms load voices lazily).
func (r *Relay) SetVoices(voices []tts.Voice) {
	cp := make([]tts.Voice, len(voices))
	copy(cp, voices)
	r.mu.Lock()
	r.voices = cp
	r.mu.Unlock()
}

// Voices implements tts.PlatformSynthesis.
func (r *Relay) Voices(_ context.Context) ([]tts.Voice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]tts.Voice, len(r.voices))
	copy(out, r.voices)
	return out, nil
}

// Speak implements tts.PlatformSynthesis. It sends the utterance to the
// client and blocks until the client reports playback completion, Cancel is
// called, or ctx is cancelled.
func (r *Relay) Speak(ctx context.Context, req tts.SpeakRequest) error {
	if r.send == nil {
		return ErrNoClient
	}

	r.mu.Lock()
	if r.done != nil {
		// A previous utterance is still in flight; cancel it so the
		// platform handle is free.
		r.finishLocked(nil)
		_ = r.send(Command{Op: "cancel"})
	}
	done := make(chan error, 1)
	r.done = done
	r.mu.Unlock()

	err := r.send(Command{
		Op:        "speak",
		Text:      req.Text,
		VoiceName: req.VoiceName,
		Language:  req.Language,
		Rate:      req.Rate,
		Pitch:     req.Pitch,
		Volume:    req.Volume,
	})
	if err != nil {
		r.clear(done)
		return err
	}

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		r.clear(done)
		_ = r.send(Command{Op: "cancel"})
		return nil
	}
}

// Cancel implements tts.PlatformSynthesis. It halts the current utterance on
// the client and releases any blocked Speak call.
func (r *Relay) Cancel() {
	r.mu.Lock()
	pending := r.done != nil
	r.finishLocked(nil)
	r.mu.Unlock()

	if pending && r.send != nil {
		_ = r.send(Command{Op: "cancel"})
	}
}

// DeliverDone signals that the client finished (or failed) the in-flight
// utterance. err is non-nil when the client reported a synthesis error.
// Called by the gateway's read loop.
func (r *Relay) DeliverDone(err error) {
	r.mu.Lock()
	r.finishLocked(err)
	r.mu.Unlock()
}

// finishLocked resolves the in-flight utterance, if any.
// Must be called with r.mu held.
func (r *Relay) finishLocked(err error) {
	if r.done == nil {
		return
	}
	r.done <- err
	r.done = nil
}

// clear drops the pending completion channel if it is still the given one.
func (r *Relay) clear(done chan error) {
	r.mu.Lock()
	if r.done == done {
		r.done = nil
	}
	r.mu.Unlock()
}
