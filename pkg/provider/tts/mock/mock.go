// Package mock provides configurable in-memory implementations of the tts
// interfaces for tests.
package mock

import (
	"context"
	"sync"

	"github.com/sahhacare/sahha/pkg/provider/tts"
)

// SynthesizeCall records one Provider.Synthesize invocation.
type SynthesizeCall struct {
	Text  string
	Voice tts.VoiceProfile
}

// Provider is a configurable mock for tts.Provider.
type Provider struct {
	mu sync.Mutex

	// SynthesizeResult is returned by Synthesize when SynthesizeErr is nil.
	SynthesizeResult *tts.Audio
	// SynthesizeErr, when set, is returned by every Synthesize call.
	SynthesizeErr error
	// SynthesizeFn, when set, overrides the canned result entirely.
	SynthesizeFn func(ctx context.Context, text string, voice tts.VoiceProfile) (*tts.Audio, error)

	// VoicesResult is returned by ListVoices.
	VoicesResult []tts.VoiceProfile
	// VoicesErr, when set, is returned by ListVoices.
	VoicesErr error

	// SynthesizeCalls records every Synthesize invocation in order.
	SynthesizeCalls []SynthesizeCall
}

var _ tts.Provider = (*Provider)(nil)

// Synthesize implements tts.Provider.
func (p *Provider) Synthesize(ctx context.Context, text string, voice tts.VoiceProfile) (*tts.Audio, error) {
	p.mu.Lock()
	p.SynthesizeCalls = append(p.SynthesizeCalls, SynthesizeCall{Text: text, Voice: voice})
	fn := p.SynthesizeFn
	res, err := p.SynthesizeResult, p.SynthesizeErr
	p.mu.Unlock()

	if fn != nil {
		return fn(ctx, text, voice)
	}
	if err != nil {
		return nil, err
	}
	if res != nil {
		return res, nil
	}
	return &tts.Audio{Data: []byte("mock audio"), MIMEType: "audio/mpeg"}, nil
}

// ListVoices implements tts.Provider.
func (p *Provider) ListVoices(_ context.Context) ([]tts.VoiceProfile, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.VoicesErr != nil {
		return nil, p.VoicesErr
	}
	return p.VoicesResult, nil
}

// Player is a configurable mock for tts.Player.
type Player struct {
	mu sync.Mutex

	// PlayErr, when set, is returned by every Play call.
	PlayErr error
	// PlayFn, when set, overrides the canned behavior. Useful for tests
	// that need Play to block until interrupted.
	PlayFn func(ctx context.Context, audio *tts.Audio) error

	// PlayCalls records the audio passed to each Play invocation.
	PlayCalls []*tts.Audio
	// StopCalls counts Stop invocations.
	StopCalls int
}

var _ tts.Player = (*Player)(nil)

// Play implements tts.Player.
func (p *Player) Play(ctx context.Context, audio *tts.Audio) error {
	p.mu.Lock()
	p.PlayCalls = append(p.PlayCalls, audio)
	fn := p.PlayFn
	err := p.PlayErr
	p.mu.Unlock()

	if fn != nil {
		return fn(ctx, audio)
	}
	return err
}

// Stop implements tts.Player.
func (p *Player) Stop() {
	p.mu.Lock()
	p.StopCalls++
	p.mu.Unlock()
}

// Platform is a configurable mock for tts.PlatformSynthesis.
type Platform struct {
	mu sync.Mutex

	// VoicesResult is returned by Voices.
	VoicesResult []tts.Voice
	// VoicesErr, when set, is returned by Voices.
	VoicesErr error

	// SpeakErr, when set, is returned by every Speak call.
	SpeakErr error
	// SpeakFn, when set, overrides the canned behavior.
	SpeakFn func(ctx context.Context, req tts.SpeakRequest) error

	// CancelFn, when set, is invoked on every Cancel call.
	CancelFn func()

	// SpeakCalls records every Speak request in order.
	SpeakCalls []tts.SpeakRequest
	// CancelCalls counts Cancel invocations.
	CancelCalls int
}

var _ tts.PlatformSynthesis = (*Platform)(nil)

// Voices implements tts.PlatformSynthesis.
func (p *Platform) Voices(_ context.Context) ([]tts.Voice, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.VoicesErr != nil {
		return nil, p.VoicesErr
	}
	return p.VoicesResult, nil
}

// Speak implements tts.PlatformSynthesis.
func (p *Platform) Speak(ctx context.Context, req tts.SpeakRequest) error {
	p.mu.Lock()
	p.SpeakCalls = append(p.SpeakCalls, req)
	fn := p.SpeakFn
	err := p.SpeakErr
	p.mu.Unlock()

	if fn != nil {
		return fn(ctx, req)
	}
	return err
}

// Cancel implements tts.PlatformSynthesis.
func (p *Platform) Cancel() {
	p.mu.Lock()
	p.CancelCalls++
	fn := p.CancelFn
	p.mu.Unlock()

	if fn != nil {
		fn()
	}
}
