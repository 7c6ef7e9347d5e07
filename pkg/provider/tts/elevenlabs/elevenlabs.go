// Package elevenlabs provides the premium tier-1 synthesis backend using the
// ElevenLabs HTTP text-to-speech API. It implements the tts.Provider interface.
package elevenlabs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sahhacare/sahha/internal/keys"
	"github.com/sahhacare/sahha/pkg/provider/tts"
)

const (
	synthEndpointFmt = "https://api.elevenlabs.io/v1/text-to-speech/%s"
	voicesEndpoint   = "https://api.elevenlabs.io/v1/voices"
	defaultModel     = "eleven_multilingual_v2"
	outputMIMEType   = "audio/mpeg"

	// maxAudioBytes caps the accepted response size. A single assistant
	// utterance never legitimately exceeds this.
	maxAudioBytes = 16 << 20
)

// Option is a functional option for configuring the ElevenLabs Provider.
type Option func(*Provider)

// WithModel sets the ElevenLabs model ID (e.g., "eleven_multilingual_v2").
// The multilingual default is required for Arabic synthesis.
func WithModel(model string) Option {
	return func(p *Provider) {
		p.model = model
	}
}

// WithStability sets the voice stability and similarity-boost parameters.
func WithStability(stability, similarityBoost float64) Option {
	return func(p *Provider) {
		p.stability = stability
		p.similarityBoost = similarityBoost
	}
}

// WithHTTPClient overrides the HTTP client used for API calls.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) {
		p.httpClient = c
	}
}

// Provider implements tts.Provider backed by the ElevenLabs HTTP API.
type Provider struct {
	creds           keys.Source
	model           string
	stability       float64
	similarityBoost float64
	httpClient      *http.Client
}

// Compile-time interface assertion.
var _ tts.Provider = (*Provider)(nil)

// New creates a new ElevenLabs Provider. creds must be non-nil; it supplies
// the xi-api-key credential (typically a keys.Provisioner so the key is
// fetched centrally and cached).
func New(creds keys.Source, opts ...Option) (*Provider, error) {
	if creds == nil {
		return nil, errors.New("elevenlabs: creds must not be nil")
	}
	p := &Provider{
		creds:           creds,
		model:           defaultModel,
		stability:       0.5,
		similarityBoost: 0.75,
		httpClient:      &http.Client{Timeout: 30 * time.Second},
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// synthRequest is the JSON body sent to the text-to-speech endpoint.
type synthRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings voiceSettings `json:"voice_settings"`
}

// voiceSettings mirrors the ElevenLabs voice_settings object.
type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

// Synthesize implements tts.Provider. It posts text to the ElevenLabs
// text-to-speech endpoint for voice.ID and returns the encoded audio.
func (p *Provider) Synthesize(ctx context.Context, text string, voice tts.VoiceProfile) (*tts.Audio, error) {
	if voice.ID == "" {
		return nil, errors.New("elevenlabs: voice.ID must not be empty")
	}

	key, err := p.creds.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: credential: %w", err)
	}

	payload, err := json.Marshal(synthRequest{
		Text:    text,
		ModelID: p.model,
		VoiceSettings: voiceSettings{
			Stability:       p.stability,
			SimilarityBoost: p.similarityBoost,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: marshal request: %w", err)
	}

	url := fmt.Sprintf(synthEndpointFmt, voice.ID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: build request: %w", err)
	}
	req.Header.Set("xi-api-key", key)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", outputMIMEType)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: synthesize: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("elevenlabs: synthesize: unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxAudioBytes))
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: read audio: %w", err)
	}
	if len(data) == 0 {
		return nil, errors.New("elevenlabs: empty audio response")
	}

	return &tts.Audio{Data: data, MIMEType: outputMIMEType}, nil
}

// ---- ListVoices ----

// voicesResponse is the top-level response from GET /v1/voices.
type voicesResponse struct {
	Voices []elevenLabsVoice `json:"voices"`
}

// elevenLabsVoice is a single voice entry from the ElevenLabs API.
type elevenLabsVoice struct {
	VoiceID  string            `json:"voice_id"`
	Name     string            `json:"name"`
	Category string            `json:"category"`
	Labels   map[string]string `json:"labels"`
}

// ListVoices returns all voices available to the configured credential.
func (p *Provider) ListVoices(ctx context.Context) ([]tts.VoiceProfile, error) {
	key, err := p.creds.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: credential: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, voicesEndpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: list voices: %w", err)
	}
	req.Header.Set("xi-api-key", key)
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: list voices HTTP: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("elevenlabs: list voices: unexpected status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: list voices read: %w", err)
	}
	return parseVoicesResponse(raw)
}

// parseVoicesResponse parses a raw JSON byte slice (matching the ElevenLabs
// /v1/voices response) into a slice of VoiceProfile values.
func parseVoicesResponse(data []byte) ([]tts.VoiceProfile, error) {
	var vr voicesResponse
	if err := json.Unmarshal(data, &vr); err != nil {
		return nil, fmt.Errorf("elevenlabs: list voices decode: %w", err)
	}
	profiles := make([]tts.VoiceProfile, 0, len(vr.Voices))
	for _, v := range vr.Voices {
		meta := make(map[string]string, len(v.Labels)+1)
		for k, val := range v.Labels {
			meta[k] = val
		}
		if v.Category != "" {
			meta["category"] = v.Category
		}
		profiles = append(profiles, tts.VoiceProfile{
			ID:       v.VoiceID,
			Name:     v.Name,
			Metadata: meta,
		})
	}
	return profiles, nil
}
