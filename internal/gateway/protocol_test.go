package gateway

import (
	"bytes"
	"testing"

	"github.com/sahhacare/sahha/pkg/provider/capture"
)

func TestEnvelopeRoundTrip(t *testing.T) {
	in := &Envelope{
		Type: TypeHello,
		Hello: &HelloPayload{
			PatientID:   "p-1",
			PatientName: "Maryam",
			Language:    "ar-OM",
			Voices: []VoicePayload{
				{Name: "Hoda", Language: "ar-SA"},
			},
		},
	}

	data, err := encodeEnvelope(in)
	if err != nil {
		t.Fatalf("encodeEnvelope: %v", err)
	}
	out, err := decodeEnvelope(data)
	if err != nil {
		t.Fatalf("decodeEnvelope: %v", err)
	}

	if out.Type != TypeHello {
		t.Errorf("Type = %q", out.Type)
	}
	if out.Hello == nil {
		t.Fatal("Hello payload missing after round trip")
	}
	if out.Hello.PatientName != "Maryam" || out.Hello.Language != "ar-OM" {
		t.Errorf("Hello = %+v", out.Hello)
	}
	if len(out.Hello.Voices) != 1 || out.Hello.Voices[0].Name != "Hoda" {
		t.Errorf("Voices = %+v", out.Hello.Voices)
	}
}

func TestEnvelopeOmitsEmptyPayloads(t *testing.T) {
	data, err := encodeEnvelope(&Envelope{Type: TypeStopRecord})
	if err != nil {
		t.Fatalf("encodeEnvelope: %v", err)
	}
	want := []byte(`{"type":"stop_recording"}`)
	if !bytes.Equal(data, want) {
		t.Errorf("encoded = %s, want %s", data, want)
	}
}

func TestDecodeEnvelopeMalformed(t *testing.T) {
	if _, err := decodeEnvelope([]byte("{not json")); err == nil {
		t.Fatal("want error for malformed frame")
	}
}

func TestToVoices(t *testing.T) {
	in := []VoicePayload{
		{Name: "Zira", Language: "en-US"},
		{Name: "Naayf", Language: "ar-SA"},
	}
	out := toVoices(in)
	if len(out) != 2 {
		t.Fatalf("len = %d", len(out))
	}
	if out[0].Name != "Zira" || out[0].Language != "en-US" {
		t.Errorf("voice[0] = %+v", out[0])
	}
	if out[1].Name != "Naayf" || out[1].Language != "ar-SA" {
		t.Errorf("voice[1] = %+v", out[1])
	}
}

func TestToTranscript(t *testing.T) {
	got := toTranscript(&CaptureResultPayload{
		Text:       "I have a headache",
		IsFinal:    true,
		Confidence: 0.92,
		Language:   "en-US",
	})
	want := capture.Transcript{
		Text:       "I have a headache",
		IsFinal:    true,
		Confidence: 0.92,
		Language:   "en-US",
	}
	if got != want {
		t.Errorf("toTranscript = %+v, want %+v", got, want)
	}
}

func TestToCaptureEvent(t *testing.T) {
	cases := []struct {
		payload CaptureEventPayload
		want    capture.Event
	}{
		{CaptureEventPayload{Event: "started"}, capture.Event{Kind: capture.EventStarted}},
		{CaptureEventPayload{Event: "ended"}, capture.Event{Kind: capture.EventEnded}},
		{CaptureEventPayload{Event: "error", Code: "not-allowed"}, capture.Event{Kind: capture.EventError, Code: capture.ErrNotAllowed}},
		{CaptureEventPayload{Event: "error", Code: "no-speech"}, capture.Event{Kind: capture.EventError, Code: capture.ErrNoSpeech}},
	}
	for _, tc := range cases {
		if got := toCaptureEvent(&tc.payload); got != tc.want {
			t.Errorf("toCaptureEvent(%+v) = %+v, want %+v", tc.payload, got, tc.want)
		}
	}
}

func TestDoneError(t *testing.T) {
	if err := doneError(nil); err != nil {
		t.Errorf("doneError(nil) = %v", err)
	}
	if err := doneError(&DonePayload{}); err != nil {
		t.Errorf("doneError(empty) = %v", err)
	}
	err := doneError(&DonePayload{Error: "synthesis-failed"})
	if err == nil || err.Error() != "synthesis-failed" {
		t.Errorf("doneError = %v", err)
	}
}
