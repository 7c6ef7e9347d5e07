// Package webspeech implements capture.Provider for a browser client whose
// speech recognition runs client-side and is relayed over the session gateway.
//
// The browser owns the actual recognition engine; this package is the
// server-side endpoint of the relay. Outbound recognition commands (start,
// stop, locale switch) are serialised as JSON and pushed to the client via an
// injected CommandSender; inbound recognition results and lifecycle events
// are delivered by the gateway's read loop through DeliverResult and
// DeliverEvent.
//
// A Relay owns at most one active session at a time. Starting a new session
// while one is active tears the previous one down first.
package webspeech

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/sahhacare/sahha/pkg/provider/capture"
)

const (
	// resultBuf is the buffer depth of a session's transcript channel. Sized
	// to absorb a burst of interim results without blocking the gateway
	// read loop.
	resultBuf = 32

	// eventBuf is the buffer depth of a session's lifecycle event channel.
	eventBuf = 8
)

// ErrNoClient is returned when a command cannot be sent because the browser
// connection is gone.
var ErrNoClient = errors.New("webspeech: client connection unavailable")

// Command is an outbound recognition instruction for the browser client.
type Command struct {
	// Op is one of "start", "stop", or "set_language".
	Op string `json:"op"`

	// Language is the BCP-47 recognition locale; set for "start" and
	// "set_language".
	Language string `json:"language,omitempty"`

	// Continuous and InterimResults mirror capture.Config; set for "start".
	Continuous     bool `json:"continuous,omitempty"`
	InterimResults bool `json:"interim_results,omitempty"`
}

// CommandSender pushes a recognition command to the connected browser.
// Implementations are provided by the gateway.
type CommandSender func(cmd Command) error

// Relay implements capture.Provider for a single browser connection.
//
// All methods are safe for concurrent use.
type Relay struct {
	send CommandSender

	mu     sync.Mutex
	active *session
}

// Compile-time interface assertion.
var _ capture.Provider = (*Relay)(nil)

// NewRelay creates a Relay that issues recognition commands through send.
func NewRelay(send CommandSender) *Relay {
	return &Relay{send: send}
}

// StartSession implements capture.Provider. Any previously active session is
// closed first so that only one underlying recognition runs at a time.
func (r *Relay) StartSession(_ context.Context, cfg capture.Config) (capture.SessionHandle, error) {
	if r.send == nil {
		return nil, ErrNoClient
	}

	r.mu.Lock()
	if prev := r.active; prev != nil {
		prev.closeLocked()
	}
	s := &session{
		relay:   r,
		results: make(chan capture.Transcript, resultBuf),
		events:  make(chan capture.Event, eventBuf),
	}
	r.active = s
	r.mu.Unlock()

	err := r.send(Command{
		Op:             "start",
		Language:       cfg.Language,
		Continuous:     cfg.Continuous,
		InterimResults: cfg.InterimResults,
	})
	if err != nil {
		r.mu.Lock()
		s.closeLocked()
		r.active = nil
		r.mu.Unlock()
		return nil, err
	}
	return s, nil
}

// DeliverResult hands an inbound transcript from the browser to the active
// session. Results arriving with no active session are dropped.
func (r *Relay) DeliverResult(t capture.Transcript) {
	r.mu.Lock()
	s := r.active
	r.mu.Unlock()
	if s == nil {
		return
	}
	select {
	case s.results <- t:
	default:
		slog.Warn("webspeech: transcript buffer full, dropping result", "final", t.IsFinal)
	}
}

// DeliverEvent hands an inbound lifecycle event from the browser to the
// active session. Events arriving with no active session are dropped.
func (r *Relay) DeliverEvent(e capture.Event) {
	r.mu.Lock()
	s := r.active
	r.mu.Unlock()
	if s == nil {
		return
	}
	select {
	case s.events <- e:
	default:
		slog.Warn("webspeech: event buffer full, dropping event", "kind", e.Kind)
	}
}

// detach clears the active session if it is s. Called from session.Close.
func (r *Relay) detach(s *session) {
	r.mu.Lock()
	if r.active == s {
		r.active = nil
	}
	r.mu.Unlock()
}

// session is the SessionHandle for one browser recognition run.
type session struct {
	relay *Relay

	mu      sync.Mutex
	closed  bool
	results chan capture.Transcript
	events  chan capture.Event
}

// Compile-time interface assertion.
var _ capture.SessionHandle = (*session)(nil)

// Results implements capture.SessionHandle.
func (s *session) Results() <-chan capture.Transcript { return s.results }

// Events implements capture.SessionHandle.
func (s *session) Events() <-chan capture.Event { return s.events }

// Stop implements capture.SessionHandle. The authoritative end arrives as an
// EventEnded from the browser, not from this call returning.
func (s *session) Stop() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()
	return s.relay.send(Command{Op: "stop"})
}

// SetLanguage implements capture.SessionHandle.
func (s *session) SetLanguage(tag string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()
	return s.relay.send(Command{Op: "set_language", Language: tag})
}

// Close implements capture.SessionHandle.
func (s *session) Close() error {
	s.relay.detach(s)
	s.relay.mu.Lock()
	s.closeLocked()
	s.relay.mu.Unlock()
	return nil
}

// closeLocked closes the session's channels exactly once.
// Must be called with the relay's mutex held.
func (s *session) closeLocked() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.results)
	close(s.events)
}
