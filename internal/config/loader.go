package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised names.
var ValidProviderNames = map[string][]string{
	"llm":        {"openai", "anthropic", "gemini", "ollama", "deepseek", "mistral", "groq"},
	"tts":        {"elevenlabs"},
	"search":     {"edgefn", "mcptool"},
	"embeddings": {"openai"},
}

// Load reads the YAML configuration file at path and returns a validated
// [Config]. It is a convenience wrapper around [LoadFromReader].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are built from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if cfg.Server.TLS != nil {
		if cfg.Server.TLS.CertFile == "" || cfg.Server.TLS.KeyFile == "" {
			errs = append(errs, errors.New("server.tls requires both cert_file and key_file"))
		}
	}

	validateProviderName("llm", cfg.Providers.LLM.Name)
	validateProviderName("tts", cfg.Providers.TTS.Name)
	validateProviderName("search", cfg.Providers.Search.Name)
	validateProviderName("embeddings", cfg.Providers.Embeddings.Name)

	if cfg.Providers.LLM.Name == "" {
		errs = append(errs, errors.New("providers.llm.name is required"))
	}
	if cfg.Providers.Search.Name != "" && cfg.Providers.Search.Endpoint == "" {
		errs = append(errs, fmt.Errorf("providers.search %q requires an endpoint", cfg.Providers.Search.Name))
	}
	if cfg.Providers.Search.Name == "mcptool" && cfg.Providers.Search.Tool == "" {
		errs = append(errs, errors.New("providers.search mcptool requires a tool name"))
	}

	for _, entry := range []struct {
		kind  string
		entry ProviderEntry
	}{
		{"llm", cfg.Providers.LLM},
		{"tts", cfg.Providers.TTS},
		{"embeddings", cfg.Providers.Embeddings},
	} {
		if entry.entry.Name != "" && entry.entry.KeyService != "" && cfg.Keys.ProvisionURL == "" {
			errs = append(errs, fmt.Errorf("providers.%s.key_service is set but keys.provision_url is empty", entry.kind))
		}
	}

	if cfg.Memory.PostgresDSN == "" {
		slog.Warn("memory.postgres_dsn is empty; conversation history will not survive restarts")
	}
	if cfg.Providers.Embeddings.Name != "" && cfg.Memory.EmbeddingDimensions <= 0 {
		slog.Warn("providers.embeddings is configured but memory.embedding_dimensions is not set; defaulting to 1536")
	}

	for tag, lang := range cfg.Languages {
		if cfg.Providers.TTS.Name != "" && lang.VoiceID == "" && len(lang.FallbackVoices) == 0 {
			slog.Warn("language has neither a premium voice nor fallback voice patterns; the platform default voice will be used", "language", tag)
		}
	}
	if cfg.Session.DefaultLanguage != "" {
		if _, ok := cfg.Languages[cfg.Session.DefaultLanguage]; !ok && len(cfg.Languages) > 0 {
			errs = append(errs, fmt.Errorf("session.default_language %q has no entry under languages", cfg.Session.DefaultLanguage))
		}
	}

	return errors.Join(errs...)
}

// validateProviderName warns (does not fail) when a provider name is not in
// the known list, since new providers may be valid before this list learns
// about them.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	valid := ValidProviderNames[kind]
	if !slices.Contains(valid, name) {
		slog.Warn("unrecognised provider name",
			"kind", kind,
			"name", name,
			"known", valid)
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = ":8080"
	}
	if cfg.Server.LogLevel == "" {
		cfg.Server.LogLevel = LogInfo
	}
	if cfg.Memory.EmbeddingDimensions <= 0 {
		cfg.Memory.EmbeddingDimensions = 1536
	}
	if cfg.Session.HistoryWindow <= 0 {
		cfg.Session.HistoryWindow = 40
	}
	if cfg.Session.DefaultLanguage == "" {
		cfg.Session.DefaultLanguage = "ar-SA"
	}
	if cfg.Assistant.Name == "" {
		cfg.Assistant.Name = "Sahha"
	}
}
