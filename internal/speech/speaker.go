// Package speech drives audible output for the assistant. A [Speaker]
// composes two synthesis tiers behind one Speak call: premium hosted
// synthesis played back to the client, and the client platform's built-in
// synthesis with female-voice selection heuristics. Tier failures fall
// through silently; a voice problem must never block the conversation,
// since the text response has already been delivered.
package speech

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/sahhacare/sahha/internal/observe"
	"github.com/sahhacare/sahha/internal/resilience"
	"github.com/sahhacare/sahha/pkg/provider/tts"
)

// Tier names reported in logs and metrics.
const (
	TierPremium  = "premium"
	TierPlatform = "platform"
)

// Profile is the per-language voice configuration.
type Profile struct {
	// VoiceID selects the premium synthesis voice.
	VoiceID string

	// FallbackVoices lists platform voice name fragments, most preferred
	// first.
	FallbackVoices []string

	// Rate, Pitch, Volume shape platform speech. Zero means platform
	// default.
	Rate   float64
	Pitch  float64
	Volume float64
}

// utterance is what one tier must turn into audible speech.
type utterance struct {
	text     string
	language string
	profile  Profile
}

// tierFn speaks one utterance on a specific tier.
type tierFn func(ctx context.Context, u utterance) error

// Option configures a Speaker.
type Option func(*Speaker)

// WithPremium enables the premium tier: synth produces audio, player makes
// it audible on the client.
func WithPremium(synth tts.Provider, player tts.Player) Option {
	return func(s *Speaker) {
		s.synth = synth
		s.player = player
	}
}

// WithPlatform enables the client-platform tier.
func WithPlatform(p tts.PlatformSynthesis) Option {
	return func(s *Speaker) { s.platform = p }
}

// WithMetrics records tier usage and speak latency to m.
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Speaker) { s.metrics = m }
}

// WithBreaker overrides the per-tier circuit breaker configuration.
func WithBreaker(cfg resilience.BreakerConfig) Option {
	return func(s *Speaker) { s.breaker = cfg }
}

// Speaker is the tiered speech output for one session. Speak always
// returns once playback ends or is interrupted; Interrupt is synchronous,
// idempotent, and safe with nothing playing.
type Speaker struct {
	synth    tts.Provider
	player   tts.Player
	platform tts.PlatformSynthesis
	metrics  *observe.Metrics
	breaker  resilience.BreakerConfig

	profiles map[string]Profile
	chain    *resilience.Chain[tierFn]

	mu       sync.Mutex
	speaking bool
	cancel   context.CancelFunc
}

// New creates a Speaker. profiles maps language tags to voice settings;
// lookups fall back from the full tag to the primary subtag.
func New(profiles map[string]Profile, opts ...Option) *Speaker {
	s := &Speaker{profiles: make(map[string]Profile, len(profiles))}
	for tag, p := range profiles {
		s.profiles[strings.ToLower(tag)] = p
	}
	for _, opt := range opts {
		opt(s)
	}

	s.chain = resilience.NewChain[tierFn](s.breaker)
	if s.synth != nil && s.player != nil {
		s.chain.AddTier(TierPremium, s.speakPremium)
	}
	if s.platform != nil {
		s.chain.AddTier(TierPlatform, s.speakPlatform)
	}
	return s
}

// Speak voices text in the given language. It blocks until playback ends or
// is interrupted and always returns nil: genuine synthesis failures are
// logged and absorbed so the caller's turn is never failed by a voice
// problem. Starting a new Speak interrupts the previous one.
func (s *Speaker) Speak(ctx context.Context, text, language string) error {
	if s.chain.Len() == 0 || text == "" {
		return nil
	}

	s.Interrupt()

	ctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.speaking = true
	s.cancel = cancel
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.speaking = false
		if s.cancel != nil {
			s.cancel()
			s.cancel = nil
		}
		s.mu.Unlock()
	}()

	u := utterance{
		text:     text,
		language: language,
		profile:  s.profileFor(language),
	}

	start := time.Now()
	tier, err := s.chain.Do(func(name string, fn tierFn) error {
		if ctx.Err() != nil {
			// Interrupted before this tier started; report success so
			// the breaker stays closed and no further tier speaks.
			return nil
		}
		tierErr := fn(ctx, u)
		if tierErr != nil && ctx.Err() != nil {
			return nil
		}
		if tierErr != nil && s.metrics != nil {
			s.metrics.RecordProviderError(ctx, name, "synthesis")
		}
		return tierErr
	})
	if err != nil {
		if ctx.Err() == nil {
			slog.Warn("speech output failed on every tier",
				"language", language, "error", err)
		}
		return nil
	}

	if s.metrics != nil {
		s.metrics.RecordSpeechTier(ctx, tier)
		s.metrics.SpeakDuration.Record(ctx, time.Since(start).Seconds(),
			metric.WithAttributes(attribute.String("tier", tier)))
	}
	return nil
}

// Interrupt halts whichever tier is currently playing. It is a no-op when
// nothing is playing.
func (s *Speaker) Interrupt() {
	s.mu.Lock()
	wasSpeaking := s.speaking
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.mu.Unlock()

	if !wasSpeaking {
		return
	}
	if s.player != nil {
		s.player.Stop()
	}
	if s.platform != nil {
		s.platform.Cancel()
	}
}

// Speaking reports whether an utterance is currently in flight.
func (s *Speaker) Speaking() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.speaking
}

// speakPremium synthesizes through the hosted voice API and plays the audio
// on the client.
func (s *Speaker) speakPremium(ctx context.Context, u utterance) error {
	audio, err := s.synth.Synthesize(ctx, u.text, tts.VoiceProfile{
		ID:       u.profile.VoiceID,
		Language: u.language,
	})
	if err != nil {
		return err
	}
	if ctx.Err() != nil {
		// Interrupted between synthesis and playback.
		return nil
	}
	return s.player.Play(ctx, audio)
}

// speakPlatform speaks through the client's built-in synthesis, picking a
// voice with the female-preference heuristic.
func (s *Speaker) speakPlatform(ctx context.Context, u utterance) error {
	req := tts.SpeakRequest{
		Text:     u.text,
		Language: u.language,
		Rate:     u.profile.Rate,
		Pitch:    u.profile.Pitch,
		Volume:   u.profile.Volume,
	}

	voices, err := s.platform.Voices(ctx)
	if err != nil {
		slog.Warn("platform voice listing failed, using default voice", "error", err)
	} else if v, ok := PickVoice(voices, u.language, u.profile.FallbackVoices); ok {
		req.VoiceName = v.Name
	}
	return s.platform.Speak(ctx, req)
}

func (s *Speaker) profileFor(language string) Profile {
	lowered := strings.ToLower(language)
	if p, ok := s.profiles[lowered]; ok {
		return p
	}
	if p, ok := s.profiles[baseLang(language)]; ok {
		return p
	}
	return Profile{}
}
