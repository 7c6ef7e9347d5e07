// Package tts defines the interfaces for the two speech output tiers.
//
// Tier 1 is a premium hosted synthesis service ([Provider], e.g. ElevenLabs):
// the server synthesises encoded audio which the client then plays. Tier 2 is
// the platform's built-in speech synthesis ([PlatformSynthesis], the browser's
// speechSynthesis relayed over the gateway): the client both synthesises and
// plays. The tiered speaker in internal/speech composes both behind a single
// speak/interrupt surface.
//
// Implementations must be safe for concurrent use.
package tts

import "context"

// VoiceProfile describes a synthesis voice configuration for one language.
type VoiceProfile struct {
	// ID is the provider-specific voice identifier (tier 1).
	ID string

	// Name is the human-readable voice name.
	Name string

	// Language is the BCP-47 tag this profile targets (e.g., "ar", "en-US").
	Language string

	// Rate adjusts speaking rate (0.5–2.0, 1.0 = default).
	Rate float64

	// Pitch adjusts pitch (0.0–2.0, 1.0 = default).
	Pitch float64

	// Volume is the playback volume (0.0–1.0).
	Volume float64

	// Metadata holds provider-specific voice attributes (gender, accent, …).
	Metadata map[string]string
}

// Audio is one fully synthesised utterance ready for client playback.
type Audio struct {
	// Data is the encoded audio payload.
	Data []byte

	// MIMEType describes the encoding (e.g., "audio/mpeg").
	MIMEType string
}

// Provider is the premium (tier-1) synthesis backend.
type Provider interface {
	// Synthesize produces encoded audio for text spoken with voice.
	//
	// Returns an error if synthesis fails; the tiered speaker treats such a
	// failure as a signal to fall through to the platform tier, never as a
	// fatal condition for the turn.
	Synthesize(ctx context.Context, text string, voice VoiceProfile) (*Audio, error)

	// ListVoices returns the voice catalogue available to the configured
	// credential.
	ListVoices(ctx context.Context) ([]VoiceProfile, error)
}

// Player plays already-synthesised audio on the session's output device (the
// client's audio element, reached through the gateway).
type Player interface {
	// Play starts playback of audio and blocks until playback ends, Stop is
	// called, or ctx is cancelled. It returns nil on a clean or interrupted
	// finish and an error only if playback could not start.
	Play(ctx context.Context, audio *Audio) error

	// Stop halts the in-flight playback immediately (pause + reset position,
	// release the handle). Idempotent; safe to call with nothing playing.
	Stop()
}

// Voice is one entry of the platform synthesis voice catalogue.
type Voice struct {
	// Name is the platform voice name (e.g., "Microsoft Zira - English (United States)").
	Name string

	// Language is the voice's BCP-47 tag.
	Language string
}

// SpeakRequest asks the platform tier to speak text with a chosen voice.
type SpeakRequest struct {
	Text      string
	VoiceName string
	Language  string
	Rate      float64
	Pitch     float64
	Volume    float64
}

// PlatformSynthesis is the fallback (tier-2) speech capability: the client's
// own synthesis engine, with an enumerable voice list.
type PlatformSynthesis interface {
	// Voices returns the catalogue the client advertised. The list may change
	// between calls (platforms load voices lazily).
	Voices(ctx context.Context) ([]Voice, error)

	// Speak synthesises and plays req on the client, blocking until playback
	// completes, Cancel is called, or ctx is cancelled. A synthesis error is
	// returned, but callers are expected to log and absorb it.
	Speak(ctx context.Context, req SpeakRequest) error

	// Cancel halts the current utterance. Idempotent; safe with nothing
	// speaking.
	Cancel()
}
