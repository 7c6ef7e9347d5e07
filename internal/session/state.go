// Package session implements the conversational session controller: the
// finite-state owner of the connection, recording, speaking, and processing
// flags that sequences speech capture, response generation, and speech
// playback, and publishes state and message events to subscribers.
package session

import (
	"errors"
	"time"

	"github.com/sahhacare/sahha/internal/pipeline"
	"github.com/sahhacare/sahha/pkg/provider/capture"
)

// Error taxonomy surfaced through [State.LastError].
var (
	// ErrPermissionDenied means the client refused microphone access.
	ErrPermissionDenied = errors.New("microphone permission denied")

	// ErrDeviceUnavailable means no usable audio input device exists.
	ErrDeviceUnavailable = errors.New("audio device unavailable")

	// ErrRecognition covers transient capture failures (no speech,
	// network, aborted). The session survives them.
	ErrRecognition = errors.New("speech recognition failed")

	// ErrNotConnected is returned by operations that require a connected
	// session.
	ErrNotConnected = errors.New("session not connected")
)

// classifyCaptureError maps an adapter error code onto the session taxonomy.
func classifyCaptureError(code capture.ErrorCode) error {
	switch code {
	case capture.ErrNotAllowed:
		return ErrPermissionDenied
	case capture.ErrAudioCapture:
		return ErrDeviceUnavailable
	default:
		return ErrRecognition
	}
}

// State is the session snapshot published to subscribers. The controller is
// its only writer; subscribers receive copies.
type State struct {
	Connected  bool
	Recording  bool
	Speaking   bool
	Processing bool

	// ProcessingStage is the current pipeline stage, empty when no turn
	// is being processed.
	ProcessingStage pipeline.Stage

	// Language is the active BCP 47 tag.
	Language string

	// LastError is the most recent user-visible failure, empty when the
	// session is healthy.
	LastError string
}

// Role distinguishes who produced a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one committed conversation message. Immutable once published.
type Turn struct {
	ID        string
	Role      Role
	Text      string
	Language  string
	CreatedAt time.Time
}
