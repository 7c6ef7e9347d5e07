// Package capture defines the Provider interface for continuous speech
// recognition backends.
//
// A capture provider wraps whatever actually performs speech-to-text for the
// user's microphone — in production the browser's own recognition engine,
// relayed over the session gateway — and presents a uniform session-based
// interface. The central abstraction is SessionHandle: once opened, a session
// emits interim and final Transcript values plus lifecycle events (start
// acknowledgment, end acknowledgment, recognition errors).
//
// The lifecycle events matter: the session controller treats the adapter's
// own start/end acknowledgments as the source of truth for the recording
// flag, never an optimistic local assumption.
//
// Implementations must be safe for concurrent use.
package capture

import "context"

// ErrorCode classifies a recognition failure reported by the capture backend.
type ErrorCode string

const (
	// ErrNoSpeech indicates the recogniser detected no speech before timing out.
	ErrNoSpeech ErrorCode = "no-speech"

	// ErrAudioCapture indicates the microphone device could not be used.
	ErrAudioCapture ErrorCode = "audio-capture"

	// ErrNotAllowed indicates the user or platform denied microphone permission.
	ErrNotAllowed ErrorCode = "not-allowed"

	// ErrNetwork indicates the recognition service was unreachable.
	ErrNetwork ErrorCode = "network"

	// ErrAborted indicates recognition was cancelled before completing.
	ErrAborted ErrorCode = "aborted"
)

// Config describes the recognition settings for a new capture session.
type Config struct {
	// Language is the BCP-47 recognition locale (e.g., "en-US", "ar-OM").
	Language string

	// Continuous keeps the session open across utterance boundaries instead
	// of ending after the first final result.
	Continuous bool

	// InterimResults requests low-latency partial transcripts in addition to
	// final ones.
	InterimResults bool
}

// Transcript is a single recognition result, interim or final.
type Transcript struct {
	// Text is the recognised speech content.
	Text string

	// IsFinal indicates whether this is a final (authoritative) result.
	// Only final transcripts may be committed as conversation turns.
	IsFinal bool

	// Confidence is the recogniser's confidence score (0.0–1.0). May be zero
	// if the backend does not report confidence.
	Confidence float64

	// Language is the recognition locale active when this result was produced.
	Language string
}

// EventKind identifies a session lifecycle event.
type EventKind string

const (
	// EventStarted is emitted when the backend has actually begun listening.
	EventStarted EventKind = "started"

	// EventEnded is emitted when the backend has stopped listening, whether
	// because Stop was called or because the backend ended on its own.
	EventEnded EventKind = "ended"

	// EventError is emitted when recognition fails; Code carries the cause.
	// An error event is always followed by an EventEnded.
	EventError EventKind = "error"
)

// Event is a session lifecycle notification.
type Event struct {
	Kind EventKind

	// Code is set when Kind is EventError.
	Code ErrorCode
}

// SessionHandle represents an open capture session. It is an interface so
// that test code can provide deterministic fakes without a live browser
// connection.
//
// Callers must call Close when the session is no longer needed.
// All methods must be safe for concurrent use.
type SessionHandle interface {
	// Results returns a read-only channel emitting interim and final
	// transcripts. The channel is closed when the session is closed.
	Results() <-chan Transcript

	// Events returns a read-only channel emitting lifecycle events. The
	// channel is closed when the session is closed.
	Events() <-chan Event

	// Stop asks the backend to stop listening. The authoritative end of the
	// session is signalled by an EventEnded on the Events channel, not by
	// Stop returning.
	Stop() error

	// SetLanguage switches the recognition locale for subsequent results.
	// Safe to call while listening; already-buffered audio may still be
	// recognised under the previous locale.
	SetLanguage(tag string) error

	// Close tears the session down and closes both channels. Calling Close
	// more than once is safe and returns nil.
	Close() error
}

// Provider is the abstraction over any speech capture backend.
type Provider interface {
	// StartSession opens a new recognition session. The backend's start
	// acknowledgment arrives as an EventStarted on the handle's Events
	// channel once it is actually listening.
	//
	// Returns an error if the session cannot be opened at all (e.g., no
	// client connection). Permission and device failures may surface either
	// here or as EventError, depending on when the backend detects them.
	StartSession(ctx context.Context, cfg Config) (SessionHandle, error)
}
