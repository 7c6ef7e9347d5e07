package session

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sahhacare/sahha/internal/observe"
	"github.com/sahhacare/sahha/internal/pipeline"
	"github.com/sahhacare/sahha/internal/speech"
	"github.com/sahhacare/sahha/internal/transcript"
	"github.com/sahhacare/sahha/pkg/memory"
	"github.com/sahhacare/sahha/pkg/provider/capture"
)

// storeTimeout bounds fire-and-forget persistence writes.
const storeTimeout = 10 * time.Second

// StateFunc receives state snapshots. It must not call back into the
// controller synchronously.
type StateFunc func(State)

// TurnFunc receives committed turns.
type TurnFunc func(Turn)

// Option configures a Controller.
type Option func(*Controller)

// WithStore mirrors turns into a persistent store. Writes are fire and
// forget; a dead store never blocks a turn.
func WithStore(s memory.Store) Option {
	return func(c *Controller) { c.store = s }
}

// WithCorrector rewrites recognised domain vocabulary before a transcript
// is committed.
func WithCorrector(cor *transcript.Corrector) Option {
	return func(c *Controller) { c.corrector = cor }
}

// WithMetrics records turn counts, interruptions, and active sessions to m.
func WithMetrics(m *observe.Metrics) Option {
	return func(c *Controller) { c.metrics = m }
}

// WithPatient sets the addressee for prompts and persistence.
func WithPatient(p pipeline.Patient) Option {
	return func(c *Controller) { c.patient = p }
}

// WithLanguage sets the language active at session start.
// Default: "ar-SA".
func WithLanguage(tag string) Option {
	return func(c *Controller) { c.state.Language = tag }
}

// WithHistoryWindow caps the in-memory turn window. Default: 40.
func WithHistoryWindow(n int) Option {
	return func(c *Controller) { c.historyMax = n }
}

// Controller owns one conversation session. It is the single writer of the
// session [State], sequences capture into committed turns, drives the
// response pipeline, and voices replies through the speaker.
//
// All exported methods are safe for concurrent use.
type Controller struct {
	capture capture.Provider
	speaker *speech.Speaker
	pipe    *pipeline.Pipeline

	store     memory.Store
	corrector *transcript.Corrector
	metrics   *observe.Metrics
	patient   pipeline.Patient

	historyMax int
	history    *History

	mu        sync.Mutex
	state     State
	sessionID string
	handle    capture.SessionHandle
	ctx       context.Context // session lifetime, set by Connect
	seq       uint64          // turn sequence, guards stale pipeline results

	subMu     sync.Mutex
	nextSubID int
	stateSubs map[int]StateFunc
	turnSubs  map[int]TurnFunc
}

// NewController creates a disconnected Controller.
func NewController(capt capture.Provider, speaker *speech.Speaker, pipe *pipeline.Pipeline, opts ...Option) *Controller {
	c := &Controller{
		capture:    capt,
		speaker:    speaker,
		pipe:       pipe,
		historyMax: 40,
		state:      State{Language: "ar-SA"},
		stateSubs:  make(map[int]StateFunc),
		turnSubs:   make(map[int]TurnFunc),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.history = NewHistory(c.historyMax)
	return c
}

// Connect marks the session live and registers it with the store. ctx scopes
// the whole session; Disconnect or ctx cancellation ends it. Idempotent.
func (c *Controller) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.state.Connected {
		c.mu.Unlock()
		return nil
	}
	c.ctx = ctx
	c.sessionID = uuid.NewString()
	c.state.Connected = true
	c.state.LastError = ""
	sessionID := c.sessionID
	c.mu.Unlock()

	if c.metrics != nil {
		c.metrics.ActiveSessions.Add(ctx, 1)
	}
	c.persist(func(ctx context.Context, s memory.Store) error {
		return s.StartSession(ctx, sessionID, c.patient.ID)
	})

	slog.Info("session connected", "session_id", sessionID)
	c.publishState()
	return nil
}

// Disconnect tears the session down: stops capture and playback, resets all
// flags, clears the last error. Idempotent.
func (c *Controller) Disconnect() {
	c.mu.Lock()
	if !c.state.Connected {
		c.mu.Unlock()
		return
	}
	handle := c.handle
	c.handle = nil
	c.seq++
	sessionID := c.sessionID
	ctx := c.ctx
	c.state = State{Language: c.state.Language}
	c.mu.Unlock()

	if handle != nil {
		if err := handle.Close(); err != nil {
			slog.Debug("capture close on disconnect", "error", err)
		}
	}
	c.speaker.Interrupt()

	if c.metrics != nil && ctx != nil {
		c.metrics.ActiveSessions.Add(ctx, -1)
	}
	slog.Info("session disconnected", "session_id", sessionID)
	c.publishState()
}

// StartRecording begins speech capture. When the assistant is still
// speaking, playback is interrupted first so the user never waits for it to
// finish. Recording becomes true only once the adapter acknowledges start.
// Calling it while already recording is a warned no-op.
func (c *Controller) StartRecording() error {
	c.mu.Lock()
	if !c.state.Connected {
		c.mu.Unlock()
		return ErrNotConnected
	}
	if c.state.Recording {
		c.mu.Unlock()
		slog.Warn("start recording ignored, already recording")
		return nil
	}
	ctx := c.ctx
	language := c.state.Language
	wasSpeaking := c.state.Speaking
	c.mu.Unlock()

	// Interrupt before capture starts. Ordering matters: no assistant
	// audio may overlap the next capture window.
	if wasSpeaking || c.speaker.Speaking() {
		c.speaker.Interrupt()
		c.mu.Lock()
		c.state.Speaking = false
		c.mu.Unlock()
		if c.metrics != nil {
			c.metrics.Interruptions.Add(ctx, 1)
		}
		c.publishState()
	}

	handle, err := c.capture.StartSession(ctx, capture.Config{
		Language:       language,
		Continuous:     false,
		InterimResults: true,
	})
	if err != nil {
		c.setError(err)
		return err
	}

	c.mu.Lock()
	old := c.handle
	c.handle = handle
	c.mu.Unlock()
	if old != nil {
		_ = old.Close()
	}

	go c.consumeCapture(handle)
	return nil
}

// StopRecording asks the adapter to finish the current capture. Recording
// becomes false on the adapter's end event, not here.
func (c *Controller) StopRecording() {
	c.mu.Lock()
	handle := c.handle
	c.mu.Unlock()
	if handle == nil {
		return
	}
	if err := handle.Stop(); err != nil {
		slog.Debug("capture stop", "error", err)
	}
}

// SwitchLanguage changes the active language and reconfigures the capture
// locale. Safe at any time; an in-flight turn finishes in its original
// language.
func (c *Controller) SwitchLanguage(tag string) {
	c.mu.Lock()
	c.state.Language = tag
	handle := c.handle
	c.mu.Unlock()

	if handle != nil {
		if err := handle.SetLanguage(tag); err != nil {
			slog.Warn("capture language switch failed", "language", tag, "error", err)
		}
	}
	slog.Info("language switched", "language", tag)
	c.publishState()
}

// ClearHistory empties the turn window and starts a new logical session in
// the store. Connection state is untouched.
func (c *Controller) ClearHistory() {
	c.history.Clear()

	c.mu.Lock()
	c.seq++
	c.sessionID = uuid.NewString()
	sessionID := c.sessionID
	c.mu.Unlock()

	c.persist(func(ctx context.Context, s memory.Store) error {
		return s.StartSession(ctx, sessionID, c.patient.ID)
	})
	slog.Info("history cleared", "session_id", sessionID)
}

// History returns the current turn window, oldest first.
func (c *Controller) History() []Turn {
	return c.history.Turns()
}

// State returns a snapshot of the session state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// OnStateChange subscribes to state snapshots. The returned function
// unsubscribes. Multiple independent subscribers are supported.
func (c *Controller) OnStateChange(fn StateFunc) (unsubscribe func()) {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	id := c.nextSubID
	c.nextSubID++
	c.stateSubs[id] = fn
	return func() {
		c.subMu.Lock()
		defer c.subMu.Unlock()
		delete(c.stateSubs, id)
	}
}

// OnMessage subscribes to committed turns. The returned function
// unsubscribes.
func (c *Controller) OnMessage(fn TurnFunc) (unsubscribe func()) {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	id := c.nextSubID
	c.nextSubID++
	c.turnSubs[id] = fn
	return func() {
		c.subMu.Lock()
		defer c.subMu.Unlock()
		delete(c.turnSubs, id)
	}
}

// consumeCapture drains one capture session's results and events until both
// channels close.
func (c *Controller) consumeCapture(handle capture.SessionHandle) {
	results := handle.Results()
	events := handle.Events()

	for results != nil || events != nil {
		select {
		case t, ok := <-results:
			if !ok {
				results = nil
				continue
			}
			if !t.IsFinal {
				continue
			}
			text := strings.TrimSpace(t.Text)
			if text == "" {
				continue
			}
			c.commitUtterance(text, t.Language)

		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			switch ev.Kind {
			case capture.EventStarted:
				c.mu.Lock()
				c.state.Recording = true
				c.state.LastError = ""
				c.mu.Unlock()
				c.publishState()

			case capture.EventEnded:
				c.mu.Lock()
				c.state.Recording = false
				c.mu.Unlock()
				c.publishState()

			case capture.EventError:
				err := classifyCaptureError(ev.Code)
				slog.Warn("capture error", "code", ev.Code, "classified", err)
				c.mu.Lock()
				c.state.Recording = false
				c.state.LastError = err.Error()
				c.mu.Unlock()
				c.publishState()
			}
		}
	}
}

// commitUtterance runs the turn-commit protocol for one final transcript.
func (c *Controller) commitUtterance(text, language string) {
	c.mu.Lock()
	if c.state.Processing {
		// Overlap policy: a new utterance while a turn is still being
		// processed is dropped rather than queued.
		c.mu.Unlock()
		slog.Warn("utterance ignored, previous turn still processing", "text", text)
		return
	}
	if language == "" {
		language = c.state.Language
	}
	c.seq++
	mySeq := c.seq
	ctx := c.ctx
	sessionID := c.sessionID
	c.mu.Unlock()

	if c.corrector != nil {
		corrected, fixes := c.corrector.Correct(text)
		for _, f := range fixes {
			slog.Debug("transcript corrected",
				"original", f.Original,
				"replacement", f.Replacement,
				"confidence", f.Confidence)
		}
		text = corrected
	}

	// The user turn is published before any network call so the UI shows
	// what was heard even if generation later fails.
	userTurn := Turn{
		ID:        uuid.NewString(),
		Role:      RoleUser,
		Text:      text,
		Language:  language,
		CreatedAt: time.Now(),
	}
	historyMsgs := c.history.Messages()
	c.history.Append(userTurn)
	c.publishTurn(userTurn)
	c.mirrorTurn(sessionID, userTurn)
	if c.metrics != nil {
		c.metrics.RecordTurn(ctx, string(RoleUser), language)
	}

	c.mu.Lock()
	c.state.Processing = true
	c.state.ProcessingStage = pipeline.StageAnalyzing
	c.state.LastError = ""
	c.mu.Unlock()
	c.publishState()

	reply, err := c.pipe.Process(ctx, pipeline.Request{
		Text:     text,
		Language: language,
		History:  historyMsgs,
		Patient:  c.patient,
	}, func(stage pipeline.Stage) {
		if !c.currentSeq(mySeq) {
			return
		}
		c.mu.Lock()
		c.state.ProcessingStage = stage
		c.mu.Unlock()
		c.publishState()
	})

	if !c.currentSeq(mySeq) {
		// A disconnect or history clear superseded this turn while its
		// pipeline call was in flight. Only the processing flags are
		// cleared so the session can commit the next utterance.
		slog.Info("stale pipeline result dropped", "seq", mySeq)
		c.mu.Lock()
		c.state.Processing = false
		c.state.ProcessingStage = ""
		c.mu.Unlock()
		c.publishState()
		return
	}

	if err != nil {
		slog.Error("turn failed", "error", err)
		c.mu.Lock()
		c.state.Processing = false
		c.state.ProcessingStage = ""
		c.state.LastError = err.Error()
		c.mu.Unlock()
		c.publishState()
		return
	}

	assistantTurn := Turn{
		ID:        uuid.NewString(),
		Role:      RoleAssistant,
		Text:      reply,
		Language:  language,
		CreatedAt: time.Now(),
	}
	c.history.Append(assistantTurn)

	c.mu.Lock()
	c.state.Processing = false
	c.state.ProcessingStage = ""
	c.mu.Unlock()

	// Assistant turn is published before playback begins.
	c.publishTurn(assistantTurn)
	c.publishState()
	c.mirrorTurn(sessionID, assistantTurn)
	if c.metrics != nil {
		c.metrics.RecordTurn(ctx, string(RoleAssistant), language)
	}

	c.mu.Lock()
	c.state.Speaking = true
	c.mu.Unlock()
	c.publishState()

	// Playback failure is absorbed: the text turn is already delivered.
	if err := c.speaker.Speak(ctx, reply, language); err != nil {
		slog.Warn("speech playback failed", "error", err)
	}

	c.mu.Lock()
	c.state.Speaking = false
	c.mu.Unlock()
	c.publishState()
}

// currentSeq reports whether seq is still the live turn sequence.
func (c *Controller) currentSeq(seq uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seq == seq
}

func (c *Controller) setError(err error) {
	c.mu.Lock()
	c.state.LastError = err.Error()
	c.mu.Unlock()
	c.publishState()
}

// mirrorTurn writes a turn to the store without blocking the conversation.
func (c *Controller) mirrorTurn(sessionID string, t Turn) {
	c.persist(func(ctx context.Context, s memory.Store) error {
		return s.AppendTurn(ctx, memory.TurnRecord{
			ID:        t.ID,
			SessionID: sessionID,
			Role:      string(t.Role),
			Text:      t.Text,
			Language:  t.Language,
			CreatedAt: t.CreatedAt,
		})
	})
}

// persist runs fn against the store in the background. Failures are logged
// and dropped.
func (c *Controller) persist(fn func(context.Context, memory.Store) error) {
	if c.store == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		defer cancel()
		if err := fn(ctx, c.store); err != nil {
			slog.Warn("persistence write failed", "error", err)
		}
	}()
}

func (c *Controller) publishState() {
	c.mu.Lock()
	snapshot := c.state
	c.mu.Unlock()

	c.subMu.Lock()
	subs := make([]StateFunc, 0, len(c.stateSubs))
	for _, fn := range c.stateSubs {
		subs = append(subs, fn)
	}
	c.subMu.Unlock()

	for _, fn := range subs {
		fn(snapshot)
	}
}

func (c *Controller) publishTurn(t Turn) {
	c.subMu.Lock()
	subs := make([]TurnFunc, 0, len(c.turnSubs))
	for _, fn := range c.turnSubs {
		subs = append(subs, fn)
	}
	c.subMu.Unlock()

	for _, fn := range subs {
		fn(t)
	}
}
