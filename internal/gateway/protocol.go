// Package gateway bridges browser clients to conversation sessions over a
// WebSocket. The browser owns the platform speech APIs (recognition,
// speechSynthesis, audio playback); the server owns the session state
// machine, the response pipeline, and premium synthesis. The gateway relays
// capture results and synthesis commands between the two.
package gateway

import (
	"encoding/json"

	"github.com/sahhacare/sahha/pkg/provider/capture"
	"github.com/sahhacare/sahha/pkg/provider/capture/webspeech"
	"github.com/sahhacare/sahha/pkg/provider/tts"
	"github.com/sahhacare/sahha/pkg/provider/tts/platform"
)

// Client-to-server message types.
const (
	TypeHello         = "hello"
	TypeStartRecord   = "start_recording"
	TypeStopRecord    = "stop_recording"
	TypeSetLanguage   = "set_language"
	TypeClearHistory  = "clear_history"
	TypeCaptureResult = "capture_result"
	TypeCaptureEvent  = "capture_event"
	TypeVoices        = "voices"
	TypeSpeechDone    = "speech_done"
	TypePlayDone      = "play_done"
)

// Server-to-client message types.
const (
	TypeState          = "state"
	TypeMessage        = "message"
	TypeCaptureCommand = "capture_command"
	TypeSpeakCommand   = "speak_command"
	TypePlayAudio      = "play_audio"
	TypeStopAudio      = "stop_audio"
	TypeError          = "error"
)

// Envelope is the wire frame for every message in both directions. Only the
// field matching Type is populated.
type Envelope struct {
	Type string `json:"type"`

	Hello         *HelloPayload         `json:"hello,omitempty"`
	SetLanguage   *SetLanguagePayload   `json:"set_language,omitempty"`
	CaptureResult *CaptureResultPayload `json:"capture_result,omitempty"`
	CaptureEvent  *CaptureEventPayload  `json:"capture_event,omitempty"`
	Voices        []VoicePayload        `json:"voices,omitempty"`
	Done          *DonePayload          `json:"done,omitempty"`

	State          *StatePayload      `json:"state,omitempty"`
	Message        *MessagePayload    `json:"message,omitempty"`
	CaptureCommand *webspeech.Command `json:"capture_command,omitempty"`
	SpeakCommand   *platform.Command  `json:"speak_command,omitempty"`
	PlayAudio      *PlayAudioPayload  `json:"play_audio,omitempty"`
	Error          string             `json:"error,omitempty"`
}

// HelloPayload is the client's first message: who is talking and what the
// platform offers.
type HelloPayload struct {
	PatientID     string         `json:"patient_id,omitempty"`
	PatientName   string         `json:"patient_name,omitempty"`
	PatientGender string         `json:"patient_gender,omitempty"`
	Language      string         `json:"language,omitempty"`
	Voices        []VoicePayload `json:"voices,omitempty"`
}

// SetLanguagePayload switches the session language.
type SetLanguagePayload struct {
	Language string `json:"language"`
}

// CaptureResultPayload carries one recognition result from the browser.
type CaptureResultPayload struct {
	Text       string  `json:"text"`
	IsFinal    bool    `json:"is_final"`
	Confidence float64 `json:"confidence,omitempty"`
	Language   string  `json:"language,omitempty"`
}

// CaptureEventPayload reports a recognition lifecycle event. Event is one of
// "started", "ended", "error".
type CaptureEventPayload struct {
	Event string `json:"event"`
	Code  string `json:"code,omitempty"`
}

// VoicePayload describes one platform synthesis voice.
type VoicePayload struct {
	Name     string `json:"name"`
	Language string `json:"language"`
}

// DonePayload acknowledges completion of a speak or play command. Error is
// set when the client failed to produce audio.
type DonePayload struct {
	Error string `json:"error,omitempty"`
}

// StatePayload mirrors the session state for the UI.
type StatePayload struct {
	Connected       bool   `json:"connected"`
	Recording       bool   `json:"recording"`
	Speaking        bool   `json:"speaking"`
	Processing      bool   `json:"processing"`
	ProcessingStage string `json:"processing_stage,omitempty"`
	Language        string `json:"language"`
	LastError       string `json:"last_error,omitempty"`
}

// MessagePayload carries one committed turn to the UI.
type MessagePayload struct {
	ID        string `json:"id"`
	Role      string `json:"role"`
	Text      string `json:"text"`
	Language  string `json:"language"`
	CreatedAt string `json:"created_at"`
}

// PlayAudioPayload delivers premium-tier audio for client playback. Data is
// base64 in the JSON encoding.
type PlayAudioPayload struct {
	MIMEType string `json:"mime_type"`
	Data     []byte `json:"data"`
}

// decodeEnvelope parses one wire frame.
func decodeEnvelope(data []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, err
	}
	return &env, nil
}

// encodeEnvelope serializes one wire frame.
func encodeEnvelope(env *Envelope) ([]byte, error) {
	return json.Marshal(env)
}

// toVoices converts wire voices to the synthesis catalogue type.
func toVoices(in []VoicePayload) []tts.Voice {
	out := make([]tts.Voice, 0, len(in))
	for _, v := range in {
		out = append(out, tts.Voice{Name: v.Name, Language: v.Language})
	}
	return out
}

// toTranscript converts a wire capture result.
func toTranscript(p *CaptureResultPayload) capture.Transcript {
	return capture.Transcript{
		Text:       p.Text,
		IsFinal:    p.IsFinal,
		Confidence: p.Confidence,
		Language:   p.Language,
	}
}
