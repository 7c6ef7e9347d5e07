package config_test

import (
	"strings"
	"testing"

	"github.com/sahhacare/sahha/internal/config"
)

const validYAML = `
server:
  listen_addr: ":9000"
  log_level: debug
providers:
  llm:
    name: openai
    model: gpt-4o-mini
    api_key: sk-test
  tts:
    name: elevenlabs
    key_service: elevenlabs
  search:
    name: edgefn
    endpoint: https://example.com/functions/v1/medical-search
keys:
  provision_url: https://example.com/functions/v1/get-api-key
memory:
  postgres_dsn: postgres://localhost/sahha
session:
  default_language: en-US
assistant:
  name: Sahha
  medical_terms: [paracetamol, ibuprofen]
languages:
  en-US:
    voice_id: v1
    fallback_voices: [Zira]
  ar-SA:
    voice_id: v2
`

func TestLoadFromReader_Valid(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadFromReader(strings.NewReader(validYAML))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}

	if cfg.Server.ListenAddr != ":9000" {
		t.Errorf("ListenAddr = %q", cfg.Server.ListenAddr)
	}
	if cfg.Server.LogLevel != config.LogDebug {
		t.Errorf("LogLevel = %q", cfg.Server.LogLevel)
	}
	if cfg.Providers.LLM.Model != "gpt-4o-mini" {
		t.Errorf("LLM model = %q", cfg.Providers.LLM.Model)
	}
	if cfg.Providers.Search.Endpoint == "" {
		t.Error("search endpoint lost in decoding")
	}
	if len(cfg.Languages) != 2 {
		t.Errorf("languages = %d, want 2", len(cfg.Languages))
	}
	if got := cfg.Languages["en-US"].FallbackVoices; len(got) != 1 || got[0] != "Zira" {
		t.Errorf("fallback voices = %v", got)
	}
}

func TestLoadFromReader_Defaults(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadFromReader(strings.NewReader(`
providers:
  llm:
    name: openai
`))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}

	if cfg.Server.ListenAddr != ":8080" {
		t.Errorf("default ListenAddr = %q", cfg.Server.ListenAddr)
	}
	if cfg.Server.LogLevel != config.LogInfo {
		t.Errorf("default LogLevel = %q", cfg.Server.LogLevel)
	}
	if cfg.Memory.EmbeddingDimensions != 1536 {
		t.Errorf("default EmbeddingDimensions = %d", cfg.Memory.EmbeddingDimensions)
	}
	if cfg.Session.HistoryWindow != 40 {
		t.Errorf("default HistoryWindow = %d", cfg.Session.HistoryWindow)
	}
	if cfg.Session.DefaultLanguage != "ar-SA" {
		t.Errorf("default DefaultLanguage = %q", cfg.Session.DefaultLanguage)
	}
	if cfg.Assistant.Name != "Sahha" {
		t.Errorf("default assistant name = %q", cfg.Assistant.Name)
	}
}

func TestLoadFromReader_UnknownFieldRejected(t *testing.T) {
	t.Parallel()

	_, err := config.LoadFromReader(strings.NewReader(`
providers:
  llm:
    name: openai
    temprature: 0.5
`))
	if err == nil {
		t.Fatal("want decode error for unknown field")
	}
	if !strings.Contains(err.Error(), "temprature") {
		t.Errorf("error does not name the unknown field: %v", err)
	}
}

func TestValidate_CollectsAllFailures(t *testing.T) {
	t.Parallel()

	_, err := config.LoadFromReader(strings.NewReader(`
server:
  log_level: loud
  tls:
    cert_file: /tmp/cert.pem
providers:
  search:
    name: mcptool
`))
	if err == nil {
		t.Fatal("want validation error")
	}

	// A joined error reports every failure, not just the first.
	for _, want := range []string{
		"server.log_level",
		"cert_file and key_file",
		"providers.llm.name is required",
		"requires an endpoint",
		"requires a tool name",
	} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error missing %q:\n%v", want, err)
		}
	}
}

func TestValidate_KeyServiceRequiresProvisionURL(t *testing.T) {
	t.Parallel()

	_, err := config.LoadFromReader(strings.NewReader(`
providers:
  llm:
    name: openai
  tts:
    name: elevenlabs
    key_service: elevenlabs
`))
	if err == nil || !strings.Contains(err.Error(), "keys.provision_url") {
		t.Fatalf("err = %v, want provision_url failure", err)
	}
}

func TestValidate_DefaultLanguageMustExist(t *testing.T) {
	t.Parallel()

	_, err := config.LoadFromReader(strings.NewReader(`
providers:
  llm:
    name: openai
session:
  default_language: fr-FR
languages:
  en-US:
    voice_id: v1
`))
	if err == nil || !strings.Contains(err.Error(), "session.default_language") {
		t.Fatalf("err = %v, want default_language failure", err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()

	if _, err := config.Load("/nonexistent/config.yaml"); err == nil {
		t.Fatal("want error for missing file")
	}
}
