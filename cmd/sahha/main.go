// Command sahha is the virtual nurse voice assistant server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	anyllmlib "github.com/mozilla-ai/any-llm-go"

	"github.com/sahhacare/sahha/internal/config"
	"github.com/sahhacare/sahha/internal/gateway"
	"github.com/sahhacare/sahha/internal/health"
	"github.com/sahhacare/sahha/internal/keys"
	"github.com/sahhacare/sahha/internal/observe"
	"github.com/sahhacare/sahha/internal/pipeline"
	"github.com/sahhacare/sahha/internal/session"
	"github.com/sahhacare/sahha/internal/speech"
	"github.com/sahhacare/sahha/internal/transcript"
	"github.com/sahhacare/sahha/pkg/memory"
	memorypg "github.com/sahhacare/sahha/pkg/memory/postgres"
	"github.com/sahhacare/sahha/pkg/provider/embeddings"
	oaembed "github.com/sahhacare/sahha/pkg/provider/embeddings/openai"
	"github.com/sahhacare/sahha/pkg/provider/llm"
	"github.com/sahhacare/sahha/pkg/provider/llm/anyllm"
	oaillm "github.com/sahhacare/sahha/pkg/provider/llm/openai"
	"github.com/sahhacare/sahha/pkg/provider/search"
	"github.com/sahhacare/sahha/pkg/provider/search/edgefn"
	"github.com/sahhacare/sahha/pkg/provider/search/mcptool"
	"github.com/sahhacare/sahha/pkg/provider/tts"
	"github.com/sahhacare/sahha/pkg/provider/tts/elevenlabs"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	indexPath := flag.String("index", "", "index a JSONL knowledge file into the store and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "sahha: config file %q not found, copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "sahha: %v\n", err)
		}
		return 1
	}

	slog.SetDefault(newLogger(cfg.Server.LogLevel))
	slog.Info("sahha starting",
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName: "sahha",
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(flushCtx); err != nil {
			slog.Warn("telemetry shutdown", "err", err)
		}
	}()
	metrics := observe.DefaultMetrics()

	deps, err := buildDependencies(ctx, cfg)
	if err != nil {
		slog.Error("failed to build providers", "err", err)
		return 1
	}
	if deps.store != nil {
		defer deps.store.Close()
	}

	if *indexPath != "" {
		return runIndex(ctx, *indexPath, deps)
	}

	server := gateway.NewServer(gateway.ServerConfig{
		ListenAddr:      cfg.Server.ListenAddr,
		DefaultLanguage: cfg.Session.DefaultLanguage,
		AllowedOrigins:  cfg.Server.AllowedOrigins,
		TLSCertFile:     tlsCert(cfg),
		TLSKeyFile:      tlsKey(cfg),
	}, sessionFactory(cfg, deps, metrics), metrics, readinessChecks(deps)...)

	slog.Info("server ready, press Ctrl+C to shut down")
	if err := server.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// runIndex populates the knowledge base from a JSONL file and exits.
func runIndex(ctx context.Context, path string, deps *dependencies) int {
	if deps.store == nil || deps.embed == nil {
		slog.Error("knowledge indexing needs memory.postgres_dsn and an embeddings provider configured")
		return 1
	}
	f, err := os.Open(path)
	if err != nil {
		slog.Error("open knowledge file", "err", err)
		return 1
	}
	defer f.Close()

	n, err := indexKnowledge(ctx, f, deps.embed, deps.store)
	if err != nil {
		slog.Error("knowledge indexing failed", "file", path, "indexed", n, "err", err)
		return 1
	}
	slog.Info("knowledge indexed", "file", path, "passages", n)
	return 0
}

// dependencies holds the process-wide collaborators shared by all sessions.
type dependencies struct {
	llm    llm.Provider
	synth  tts.Provider
	search search.Provider
	embed  embeddings.Provider
	store  *memorypg.Store
}

func buildDependencies(ctx context.Context, cfg *config.Config) (*dependencies, error) {
	deps := &dependencies{}

	// Credentials: provisioned short-lived keys when configured, static
	// keys otherwise.
	keySrc := func(service, static string) (keys.Source, error) {
		if service != "" && cfg.Keys.ProvisionURL != "" {
			return keys.NewProvisioner(cfg.Keys.ProvisionURL, service)
		}
		return keys.Static(static), nil
	}

	var err error
	if deps.llm, err = buildLLM(cfg.Providers.LLM); err != nil {
		return nil, err
	}

	if e := cfg.Providers.TTS; e.Name == "elevenlabs" {
		creds, err := keySrc(e.KeyService, e.APIKey)
		if err != nil {
			return nil, err
		}
		var opts []elevenlabs.Option
		if e.Model != "" {
			opts = append(opts, elevenlabs.WithModel(e.Model))
		}
		if deps.synth, err = elevenlabs.New(creds, opts...); err != nil {
			return nil, err
		}
	}

	switch e := cfg.Providers.Search; e.Name {
	case "edgefn":
		creds, err := keySrc(e.KeyService, e.APIKey)
		if err != nil {
			return nil, err
		}
		deps.search = edgefn.New(e.Endpoint, creds)
	case "mcptool":
		deps.search = mcptool.New(e.Endpoint, e.Tool)
	}

	if e := cfg.Providers.Embeddings; e.Name == "openai" {
		if deps.embed, err = oaembed.New(e.APIKey, e.Model); err != nil {
			return nil, err
		}
	}

	if cfg.Memory.PostgresDSN != "" {
		deps.store, err = memorypg.NewStore(ctx, cfg.Memory.PostgresDSN, cfg.Memory.EmbeddingDimensions)
		if err != nil {
			return nil, err
		}
	}
	return deps, nil
}

// buildLLM selects the chat-completion backend. "openai" uses the vendor
// SDK directly; everything else goes through the multi-provider bridge.
func buildLLM(e config.ProviderEntry) (llm.Provider, error) {
	switch e.Name {
	case "openai":
		var opts []oaillm.Option
		if e.BaseURL != "" {
			opts = append(opts, oaillm.WithBaseURL(e.BaseURL))
		}
		return oaillm.New(e.APIKey, e.Model, opts...)
	default:
		var opts []anyllmlib.Option
		if e.APIKey != "" {
			opts = append(opts, anyllmlib.WithAPIKey(e.APIKey))
		}
		return anyllm.New(e.Name, e.Model, opts...)
	}
}

// sessionFactory wires a controller for each browser connection.
func sessionFactory(cfg *config.Config, deps *dependencies, metrics *observe.Metrics) gateway.SessionFactory {
	classifier := pipeline.NewClassifier(augmentKeywords(cfg))
	prompts := pipeline.NewPromptBuilder(cfg.Assistant.Name, personas(cfg))
	corrector := transcript.New(cfg.Assistant.MedicalTerms)

	pipeOpts := []pipeline.Option{pipeline.WithMetrics(metrics)}
	if deps.search != nil {
		pipeOpts = append(pipeOpts, pipeline.WithSearch(deps.search))
	}
	var store memory.Store
	if deps.store != nil {
		store = deps.store
		pipeOpts = append(pipeOpts, pipeline.WithPatientMemory(store))
		if deps.embed != nil {
			pipeOpts = append(pipeOpts, pipeline.WithKnowledge(deps.embed, store))
		}
	}
	pipe := pipeline.New(deps.llm, classifier, prompts, pipeOpts...)

	profiles := voiceProfiles(cfg)

	return func(parts gateway.SessionParts) *session.Controller {
		speakOpts := []speech.Option{
			speech.WithPlatform(parts.Platform),
			speech.WithMetrics(metrics),
		}
		if deps.synth != nil {
			speakOpts = append(speakOpts, speech.WithPremium(deps.synth, parts.Player))
		}
		speaker := speech.New(profiles, speakOpts...)

		ctrlOpts := []session.Option{
			session.WithCorrector(corrector),
			session.WithMetrics(metrics),
			session.WithPatient(parts.Patient),
			session.WithHistoryWindow(cfg.Session.HistoryWindow),
		}
		if parts.Language != "" {
			ctrlOpts = append(ctrlOpts, session.WithLanguage(parts.Language))
		} else {
			ctrlOpts = append(ctrlOpts, session.WithLanguage(cfg.Session.DefaultLanguage))
		}
		if store != nil {
			ctrlOpts = append(ctrlOpts, session.WithStore(store))
		}
		return session.NewController(parts.Capture, speaker, pipe, ctrlOpts...)
	}
}

func readinessChecks(deps *dependencies) []health.Checker {
	var checks []health.Checker
	if deps.store != nil {
		checks = append(checks, health.Checker{
			Name:  "database",
			Check: deps.store.Ping,
		})
	}
	checks = append(checks, health.Checker{
		Name: "llm",
		Check: func(ctx context.Context) error {
			if deps.llm == nil {
				return errors.New("no llm provider configured")
			}
			return nil
		},
	})
	return checks
}

func voiceProfiles(cfg *config.Config) map[string]speech.Profile {
	out := make(map[string]speech.Profile, len(cfg.Languages))
	for tag, lc := range cfg.Languages {
		out[tag] = speech.Profile{
			VoiceID:        lc.VoiceID,
			FallbackVoices: lc.FallbackVoices,
			Rate:           lc.Rate,
			Pitch:          lc.Pitch,
			Volume:         lc.Volume,
		}
	}
	return out
}

func personas(cfg *config.Config) map[string]string {
	out := make(map[string]string, len(cfg.Languages))
	for tag, lc := range cfg.Languages {
		if lc.Persona != "" {
			out[tag] = lc.Persona
		}
	}
	return out
}

func augmentKeywords(cfg *config.Config) map[string][]string {
	out := make(map[string][]string, len(cfg.Languages))
	for tag, lc := range cfg.Languages {
		if len(lc.AugmentKeywords) > 0 {
			out[tag] = lc.AugmentKeywords
		}
	}
	return out
}

func tlsCert(cfg *config.Config) string {
	if cfg.Server.TLS == nil {
		return ""
	}
	return cfg.Server.TLS.CertFile
}

func tlsKey(cfg *config.Config) string {
	if cfg.Server.TLS == nil {
		return ""
	}
	return cfg.Server.TLS.KeyFile
}

// newLogger builds the process logger at the configured level.
func newLogger(level config.LogLevel) *slog.Logger {
	var l slog.Level
	switch level {
	case config.LogDebug:
		l = slog.LevelDebug
	case config.LogWarn:
		l = slog.LevelWarn
	case config.LogError:
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l}))
}
