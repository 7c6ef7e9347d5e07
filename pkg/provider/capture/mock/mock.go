// Package mock provides test doubles for the capture.Provider and
// capture.SessionHandle interfaces.
//
// Tests script a conversation by calling the session's Emit* methods:
//
//	p := mock.NewProvider()
//	h, _ := p.StartSession(ctx, capture.Config{Language: "en-US"})
//	s := p.LastSession()
//	s.EmitStarted()
//	s.EmitResult("I have a headache", true)
//	s.EmitEnded()
package mock

import (
	"context"
	"sync"

	"github.com/sahhacare/sahha/pkg/provider/capture"
)

// Provider is a mock implementation of capture.Provider.
type Provider struct {
	mu sync.Mutex

	// StartErr, if non-nil, is returned by StartSession.
	StartErr error

	// StartSessionCalls records the Config of every StartSession call.
	StartSessionCalls []capture.Config

	sessions []*Session
}

// Compile-time interface assertion.
var _ capture.Provider = (*Provider)(nil)

// NewProvider returns an empty mock Provider.
func NewProvider() *Provider {
	return &Provider{}
}

// StartSession implements capture.Provider.
func (p *Provider) StartSession(_ context.Context, cfg capture.Config) (capture.SessionHandle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.StartSessionCalls = append(p.StartSessionCalls, cfg)
	if p.StartErr != nil {
		return nil, p.StartErr
	}
	s := &Session{
		results: make(chan capture.Transcript, 32),
		events:  make(chan capture.Event, 8),
	}
	p.sessions = append(p.sessions, s)
	return s, nil
}

// LastSession returns the most recently created session, or nil if none.
func (p *Provider) LastSession() *Session {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.sessions) == 0 {
		return nil
	}
	return p.sessions[len(p.sessions)-1]
}

// Sessions returns all sessions created so far.
func (p *Provider) Sessions() []*Session {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*Session, len(p.sessions))
	copy(out, p.sessions)
	return out
}

// Session is a scriptable capture.SessionHandle.
type Session struct {
	mu     sync.Mutex
	closed bool

	// StopCalls counts Stop invocations.
	StopCalls int

	// SetLanguageCalls records every SetLanguage argument in order.
	SetLanguageCalls []string

	results chan capture.Transcript
	events  chan capture.Event
}

// Compile-time interface assertion.
var _ capture.SessionHandle = (*Session)(nil)

// Results implements capture.SessionHandle.
func (s *Session) Results() <-chan capture.Transcript { return s.results }

// Events implements capture.SessionHandle.
func (s *Session) Events() <-chan capture.Event { return s.events }

// Stop implements capture.SessionHandle. It records the call; tests decide
// when the end acknowledgment is emitted.
func (s *Session) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.StopCalls++
	return nil
}

// SetLanguage implements capture.SessionHandle.
func (s *Session) SetLanguage(tag string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.SetLanguageCalls = append(s.SetLanguageCalls, tag)
	return nil
}

// Close implements capture.SessionHandle.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	close(s.results)
	close(s.events)
	return nil
}

// EmitStarted scripts the backend's start acknowledgment.
func (s *Session) EmitStarted() {
	s.emit(capture.Event{Kind: capture.EventStarted})
}

// EmitEnded scripts the backend's end acknowledgment.
func (s *Session) EmitEnded() {
	s.emit(capture.Event{Kind: capture.EventEnded})
}

// EmitError scripts a recognition error with the given code.
func (s *Session) EmitError(code capture.ErrorCode) {
	s.emit(capture.Event{Kind: capture.EventError, Code: code})
}

// EmitResult scripts a transcript result.
func (s *Session) EmitResult(text string, final bool) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return
	}
	s.results <- capture.Transcript{Text: text, IsFinal: final}
}

func (s *Session) emit(e capture.Event) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return
	}
	s.events <- e
}
