// Package pipeline turns one committed user utterance into assistant text.
//
// Processing is staged: analyzing decides whether the utterance needs
// real-time augmentation, searching performs that lookup, processing
// assembles the prompt from persona, patient memory, retrieved knowledge and
// augmentation context, and generating calls the language model. Each stage
// is announced through a progress callback before its work begins so the UI
// can show what the assistant is doing.
//
// Only generation failure is fatal to a turn. Search, memory, and knowledge
// retrieval are best effort; their failures degrade the answer, never block
// it.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/sahhacare/sahha/internal/observe"
	"github.com/sahhacare/sahha/pkg/memory"
	"github.com/sahhacare/sahha/pkg/provider/embeddings"
	"github.com/sahhacare/sahha/pkg/provider/llm"
	"github.com/sahhacare/sahha/pkg/provider/search"
)

// Stage names one phase of the response pipeline.
type Stage string

const (
	StageAnalyzing  Stage = "analyzing"
	StageSearching  Stage = "searching"
	StageProcessing Stage = "processing"
	StageGenerating Stage = "generating"
)

const (
	defaultMaxTokens   = 512
	defaultTemperature = 0.6
	defaultKnowledgeK  = 3
	defaultFactLimit   = 10
)

// Patient identifies the addressee of a turn.
type Patient struct {
	ID     string
	Name   string
	Gender string
}

// Request carries one committed utterance through the pipeline.
type Request struct {
	// Text is the corrected final transcript.
	Text string

	// Language is the BCP 47 tag active when the utterance was captured.
	Language string

	// History is the recent turn window, oldest first.
	History []llm.Message

	// Patient is the addressee. Zero value means an anonymous session.
	Patient Patient
}

// ProgressFunc observes stage transitions. It is called before the stage's
// work begins and must not block.
type ProgressFunc func(Stage)

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithSearch enables the searching stage using p for lookups.
func WithSearch(p search.Provider) Option {
	return func(pl *Pipeline) { pl.search = p }
}

// WithKnowledge enables medical knowledge retrieval during the processing
// stage: the utterance is embedded and the nearest passages are folded into
// the prompt.
func WithKnowledge(embed embeddings.Provider, store memory.Store) Option {
	return func(pl *Pipeline) {
		pl.embed = embed
		pl.knowledge = store
	}
}

// WithPatientMemory enables patient-fact retrieval from store during the
// processing stage.
func WithPatientMemory(store memory.Store) Option {
	return func(pl *Pipeline) { pl.facts = store }
}

// WithMetrics records stage durations and search outcomes to m.
func WithMetrics(m *observe.Metrics) Option {
	return func(pl *Pipeline) { pl.metrics = m }
}

// WithMaxTokens caps the generated reply length.
func WithMaxTokens(n int) Option {
	return func(pl *Pipeline) { pl.maxTokens = n }
}

// WithTemperature sets the sampling temperature for generation.
func WithTemperature(t float64) Option {
	return func(pl *Pipeline) { pl.temperature = t }
}

// Pipeline is the staged response generator. It is read-only after
// construction and safe for concurrent use.
type Pipeline struct {
	llm        llm.Provider
	classifier *Classifier
	prompts    *PromptBuilder

	search    search.Provider
	embed     embeddings.Provider
	knowledge memory.Store
	facts     memory.Store
	metrics   *observe.Metrics

	maxTokens   int
	temperature float64
}

// New creates a Pipeline over the given language model, classifier, and
// prompt builder.
func New(provider llm.Provider, classifier *Classifier, prompts *PromptBuilder, opts ...Option) *Pipeline {
	p := &Pipeline{
		llm:         provider,
		classifier:  classifier,
		prompts:     prompts,
		maxTokens:   defaultMaxTokens,
		temperature: defaultTemperature,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process runs the staged pipeline for one utterance and returns the
// assistant's reply text. onProgress may be nil.
func (p *Pipeline) Process(ctx context.Context, req Request, onProgress ProgressFunc) (string, error) {
	progress := func(s Stage) {
		if onProgress != nil {
			onProgress(s)
		}
	}

	// Stage 1: decide locally whether the utterance needs fresh data.
	progress(StageAnalyzing)
	start := time.Now()
	augment := p.classifier.ShouldAugment(req.Text, req.Language)
	p.recordStage(ctx, StageAnalyzing, start)

	// Stage 2: best-effort lookup.
	var augmentation string
	if augment && p.search != nil {
		progress(StageSearching)
		start = time.Now()
		augmentation = p.lookup(ctx, req)
		p.recordStage(ctx, StageSearching, start)
	}

	// Stage 3: assemble the prompt.
	progress(StageProcessing)
	start = time.Now()
	systemPrompt := p.prompts.Build(PromptInput{
		Language:      req.Language,
		PatientName:   req.Patient.Name,
		PatientGender: req.Patient.Gender,
		Augmentation:  augmentation,
		MemoryFacts:   p.patientFacts(ctx, req.Patient.ID),
		Knowledge:     p.retrieveKnowledge(ctx, req.Text),
	})
	messages := append(append([]llm.Message(nil), req.History...), llm.Message{
		Role:    "user",
		Content: req.Text,
	})
	p.recordStage(ctx, StageProcessing, start)

	// Stage 4: generation. The only stage whose failure fails the turn.
	progress(StageGenerating)
	start = time.Now()
	resp, err := p.llm.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: systemPrompt,
		Messages:     messages,
		Temperature:  p.temperature,
		MaxTokens:    p.maxTokens,
	})
	p.recordStage(ctx, StageGenerating, start)
	if err != nil {
		if p.metrics != nil {
			p.metrics.RecordProviderError(ctx, "llm", "generate")
		}
		return "", fmt.Errorf("pipeline: generate: %w", err)
	}

	reply := strings.TrimSpace(resp.Content)
	if reply == "" {
		return "", fmt.Errorf("pipeline: generate: model returned empty reply")
	}
	return reply, nil
}

// lookup performs the real-time search. Failures are swallowed; the turn
// proceeds without augmentation.
func (p *Pipeline) lookup(ctx context.Context, req Request) string {
	res, err := p.search.Search(ctx, search.Query{
		Text:     req.Text,
		Language: req.Language,
		Context:  historyTail(req.History, 2),
	})
	status := "ok"
	if err != nil {
		status = "error"
		slog.Warn("augmentation lookup failed, continuing without",
			"error", err)
	}
	if p.metrics != nil {
		p.metrics.SearchLookups.Add(ctx, 1,
			metric.WithAttributes(attribute.String("status", status)))
		if err != nil {
			p.metrics.RecordProviderError(ctx, "search", "lookup")
		}
	}
	if err != nil || res == nil {
		return ""
	}
	return res.Content
}

// patientFacts fetches long-lived facts. Read failures return nothing.
func (p *Pipeline) patientFacts(ctx context.Context, patientID string) []string {
	if p.facts == nil || patientID == "" {
		return nil
	}
	facts, err := p.facts.RecentFacts(ctx, patientID, defaultFactLimit)
	if err != nil {
		slog.Warn("patient memory read failed, continuing without",
			"patient_id", patientID, "error", err)
		return nil
	}
	out := make([]string, 0, len(facts))
	for _, f := range facts {
		out = append(out, f.Content)
	}
	return out
}

// retrieveKnowledge embeds the utterance and pulls the nearest reference
// passages. Any failure returns nothing.
func (p *Pipeline) retrieveKnowledge(ctx context.Context, text string) []string {
	if p.embed == nil || p.knowledge == nil {
		return nil
	}
	vec, err := p.embed.Embed(ctx, text)
	if err != nil {
		slog.Warn("knowledge embedding failed, continuing without", "error", err)
		return nil
	}
	entries, err := p.knowledge.SearchKnowledge(ctx, vec, defaultKnowledgeK)
	if err != nil {
		slog.Warn("knowledge search failed, continuing without", "error", err)
		return nil
	}
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Content)
	}
	return out
}

func (p *Pipeline) recordStage(ctx context.Context, stage Stage, start time.Time) {
	if p.metrics != nil {
		p.metrics.RecordStage(ctx, string(stage), time.Since(start).Seconds())
	}
}

// historyTail renders the last n history messages as plain text for use as
// search context.
func historyTail(history []llm.Message, n int) string {
	if len(history) == 0 {
		return ""
	}
	if len(history) > n {
		history = history[len(history)-n:]
	}
	var sb strings.Builder
	for _, m := range history {
		sb.WriteString(m.Role)
		sb.WriteString(": ")
		sb.WriteString(m.Content)
		sb.WriteString("\n")
	}
	return strings.TrimSpace(sb.String())
}
