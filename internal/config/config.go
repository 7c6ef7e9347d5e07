// Package config provides the configuration schema and loader for the sahha
// voice assistant server.
package config

// LogLevel controls log verbosity for the server.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Config is the root configuration structure. It is typically loaded from a
// YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server    ServerConfig              `yaml:"server"`
	Providers ProvidersConfig           `yaml:"providers"`
	Keys      KeysConfig                `yaml:"keys"`
	Memory    MemoryConfig              `yaml:"memory"`
	Session   SessionConfig             `yaml:"session"`
	Assistant AssistantConfig           `yaml:"assistant"`
	Languages map[string]LanguageConfig `yaml:"languages"`
}

// ServerConfig holds network and logging settings.
type ServerConfig struct {
	// ListenAddr is the TCP address the server listens on (e.g., ":8080").
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`

	// AllowedOrigins restricts which browser origins may open a session
	// WebSocket. Empty allows same-host requests only.
	AllowedOrigins []string `yaml:"allowed_origins"`

	// TLS configures HTTPS. When nil, the server runs plain HTTP.
	TLS *TLSConfig `yaml:"tls"`
}

// TLSConfig holds TLS certificate paths.
type TLSConfig struct {
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// ProvidersConfig declares the provider implementation to use for each
// pipeline stage.
type ProvidersConfig struct {
	LLM        ProviderEntry `yaml:"llm"`
	TTS        ProviderEntry `yaml:"tts"`
	Search     ProviderEntry `yaml:"search"`
	Embeddings ProviderEntry `yaml:"embeddings"`
}

// ProviderEntry is the common configuration block shared by all provider
// kinds.
type ProviderEntry struct {
	// Name selects the provider implementation
	// (e.g., "openai", "elevenlabs", "edgefn", "mcptool").
	Name string `yaml:"name"`

	// APIKey is the static authentication key for the provider, if any.
	// Ignored when KeyService is set.
	APIKey string `yaml:"api_key"`

	// KeyService names the service whose short-lived key is fetched from
	// the key provisioning endpoint instead of using APIKey.
	KeyService string `yaml:"key_service"`

	// BaseURL overrides the provider's default API endpoint.
	BaseURL string `yaml:"base_url"`

	// Model selects a model within the provider (e.g., "gpt-4o").
	Model string `yaml:"model"`

	// Endpoint is the full request URL for providers that are plain
	// endpoints rather than vendor APIs (edge functions, MCP servers).
	Endpoint string `yaml:"endpoint"`

	// Tool names the MCP tool to invoke. Only used by the mcptool
	// search provider.
	Tool string `yaml:"tool"`
}

// KeysConfig configures the short-lived credential provisioner.
type KeysConfig struct {
	// ProvisionURL is the endpoint that exchanges a service name for a
	// short-lived API key. Empty disables provisioning; providers then
	// use their static api_key.
	ProvisionURL string `yaml:"provision_url"`
}

// MemoryConfig configures persistence.
type MemoryConfig struct {
	// PostgresDSN is the connection string for the store. Empty disables
	// persistence; the conversation then lives only in process memory.
	PostgresDSN string `yaml:"postgres_dsn"`

	// EmbeddingDimensions must match the embedding model's output
	// dimension. Defaults to 1536 when unset.
	EmbeddingDimensions int `yaml:"embedding_dimensions"`
}

// SessionConfig tunes the in-memory conversation state.
type SessionConfig struct {
	// HistoryWindow caps the number of turns kept in working memory.
	// Defaults to 40 when unset.
	HistoryWindow int `yaml:"history_window"`

	// DefaultLanguage is the BCP 47 tag active when a session starts.
	// Defaults to "ar-SA".
	DefaultLanguage string `yaml:"default_language"`
}

// AssistantConfig describes the assistant persona.
type AssistantConfig struct {
	// Name is the assistant's display name (e.g., "Sahha").
	Name string `yaml:"name"`

	// MedicalTerms seeds the transcript corrector with domain vocabulary
	// that browser speech recognition tends to mishear.
	MedicalTerms []string `yaml:"medical_terms"`
}

// LanguageConfig holds the per-language voice and prompt settings.
// The map key in [Config.Languages] is the BCP 47 tag ("en-US", "ar-SA").
type LanguageConfig struct {
	// VoiceID is the premium synthesis voice for this language.
	VoiceID string `yaml:"voice_id"`

	// FallbackVoices lists name fragments used to pick a platform voice
	// when premium synthesis is unavailable, most preferred first.
	FallbackVoices []string `yaml:"fallback_voices"`

	// Rate, Pitch and Volume shape platform speech. Zero means the
	// platform default.
	Rate   float64 `yaml:"rate"`
	Pitch  float64 `yaml:"pitch"`
	Volume float64 `yaml:"volume"`

	// Persona is the system prompt for this language. Empty falls back
	// to the built-in persona.
	Persona string `yaml:"persona"`

	// AugmentKeywords extends the built-in real-time lookup trigger
	// vocabulary for this language.
	AugmentKeywords []string `yaml:"augment_keywords"`
}
