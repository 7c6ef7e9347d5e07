package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/coder/websocket"

	"github.com/sahhacare/sahha/internal/pipeline"
	"github.com/sahhacare/sahha/internal/session"
	"github.com/sahhacare/sahha/pkg/provider/capture"
	"github.com/sahhacare/sahha/pkg/provider/capture/webspeech"
	"github.com/sahhacare/sahha/pkg/provider/tts"
	"github.com/sahhacare/sahha/pkg/provider/tts/platform"
)

// SessionParts are the per-connection collaborators the gateway constructs
// and hands to the session factory.
type SessionParts struct {
	// Capture relays browser speech recognition.
	Capture capture.Provider

	// Platform relays browser speech synthesis (tier 2).
	Platform tts.PlatformSynthesis

	// Player plays premium-tier audio on the client (tier 1).
	Player tts.Player

	// Patient identifies the connected user from the hello message.
	Patient pipeline.Patient

	// Language is the client's requested starting language, empty for
	// the server default.
	Language string
}

// SessionFactory builds a session controller for one connection. Wiring of
// pipeline, store, and speaker happens behind this function so the gateway
// stays transport-only.
type SessionFactory func(parts SessionParts) *session.Controller

// conn is the server side of one browser connection.
type conn struct {
	ws *websocket.Conn

	writeMu sync.Mutex

	captureRelay  *webspeech.Relay
	platformRelay *platform.Relay
	player        *wirePlayer
	controller    *session.Controller
}

// send writes one envelope to the client. Safe for concurrent use.
func (c *conn) send(ctx context.Context, env *Envelope) error {
	data, err := encodeEnvelope(env)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.ws.Write(ctx, websocket.MessageText, data)
}

// run drives one connection until the client goes away or ctx ends.
func (c *conn) run(ctx context.Context, factory SessionFactory, defaultLanguage string) error {
	// The first frame must be a hello.
	hello, err := c.readHello(ctx)
	if err != nil {
		return fmt.Errorf("gateway: handshake: %w", err)
	}

	c.captureRelay = webspeech.NewRelay(func(cmd webspeech.Command) error {
		return c.send(ctx, &Envelope{Type: TypeCaptureCommand, CaptureCommand: &cmd})
	})
	c.platformRelay = platform.NewRelay(func(cmd platform.Command) error {
		return c.send(ctx, &Envelope{Type: TypeSpeakCommand, SpeakCommand: &cmd})
	})
	c.platformRelay.SetVoices(toVoices(hello.Voices))
	c.player = &wirePlayer{conn: c, ctx: ctx}

	language := hello.Language
	if language == "" {
		language = defaultLanguage
	}

	c.controller = factory(SessionParts{
		Capture:  c.captureRelay,
		Platform: c.platformRelay,
		Player:   c.player,
		Patient: pipeline.Patient{
			ID:     hello.PatientID,
			Name:   hello.PatientName,
			Gender: hello.PatientGender,
		},
		Language: language,
	})

	unsubState := c.controller.OnStateChange(func(s session.State) {
		err := c.send(ctx, &Envelope{Type: TypeState, State: &StatePayload{
			Connected:       s.Connected,
			Recording:       s.Recording,
			Speaking:        s.Speaking,
			Processing:      s.Processing,
			ProcessingStage: string(s.ProcessingStage),
			Language:        s.Language,
			LastError:       s.LastError,
		}})
		if err != nil {
			slog.Debug("state push failed", "error", err)
		}
	})
	defer unsubState()

	unsubMsg := c.controller.OnMessage(func(t session.Turn) {
		err := c.send(ctx, &Envelope{Type: TypeMessage, Message: &MessagePayload{
			ID:        t.ID,
			Role:      string(t.Role),
			Text:      t.Text,
			Language:  t.Language,
			CreatedAt: t.CreatedAt.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		}})
		if err != nil {
			slog.Debug("message push failed", "error", err)
		}
	})
	defer unsubMsg()

	if err := c.controller.Connect(ctx); err != nil {
		return fmt.Errorf("gateway: connect session: %w", err)
	}
	defer c.controller.Disconnect()

	return c.readLoop(ctx)
}

// readHello reads and validates the first frame.
func (c *conn) readHello(ctx context.Context) (*HelloPayload, error) {
	_, data, err := c.ws.Read(ctx)
	if err != nil {
		return nil, err
	}
	env, err := decodeEnvelope(data)
	if err != nil {
		return nil, err
	}
	if env.Type != TypeHello || env.Hello == nil {
		return nil, errors.New("first message must be hello")
	}
	return env.Hello, nil
}

// readLoop dispatches client frames until the connection closes.
func (c *conn) readLoop(ctx context.Context) error {
	for {
		_, data, err := c.ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure ||
				websocket.CloseStatus(err) == websocket.StatusGoingAway {
				return nil
			}
			return err
		}

		env, err := decodeEnvelope(data)
		if err != nil {
			slog.Warn("malformed client frame", "error", err)
			_ = c.send(ctx, &Envelope{Type: TypeError, Error: "malformed frame"})
			continue
		}
		c.dispatch(ctx, env)
	}
}

// dispatch handles one client frame.
func (c *conn) dispatch(ctx context.Context, env *Envelope) {
	switch env.Type {
	case TypeStartRecord:
		if err := c.controller.StartRecording(); err != nil {
			slog.Warn("start recording failed", "error", err)
		}

	case TypeStopRecord:
		c.controller.StopRecording()

	case TypeSetLanguage:
		if env.SetLanguage != nil {
			c.controller.SwitchLanguage(env.SetLanguage.Language)
		}

	case TypeClearHistory:
		c.controller.ClearHistory()

	case TypeCaptureResult:
		if env.CaptureResult != nil {
			c.captureRelay.DeliverResult(toTranscript(env.CaptureResult))
		}

	case TypeCaptureEvent:
		if env.CaptureEvent != nil {
			c.captureRelay.DeliverEvent(toCaptureEvent(env.CaptureEvent))
		}

	case TypeVoices:
		c.platformRelay.SetVoices(toVoices(env.Voices))

	case TypeSpeechDone:
		c.platformRelay.DeliverDone(doneError(env.Done))

	case TypePlayDone:
		c.player.deliverDone(doneError(env.Done))

	default:
		slog.Warn("unknown frame type", "type", env.Type)
	}
}

func toCaptureEvent(p *CaptureEventPayload) capture.Event {
	switch p.Event {
	case "started":
		return capture.Event{Kind: capture.EventStarted}
	case "ended":
		return capture.Event{Kind: capture.EventEnded}
	default:
		return capture.Event{Kind: capture.EventError, Code: capture.ErrorCode(p.Code)}
	}
}

func doneError(d *DonePayload) error {
	if d == nil || d.Error == "" {
		return nil
	}
	return errors.New(d.Error)
}

// wirePlayer implements tts.Player by shipping audio to the client and
// waiting for its playback acknowledgment.
type wirePlayer struct {
	conn *conn
	ctx  context.Context

	mu   sync.Mutex
	done chan error
}

var _ tts.Player = (*wirePlayer)(nil)

// Play implements tts.Player.
func (p *wirePlayer) Play(ctx context.Context, audio *tts.Audio) error {
	p.mu.Lock()
	if p.done != nil {
		// A previous playback is still pending; resolve it before
		// starting another.
		p.done <- nil
		p.done = nil
	}
	done := make(chan error, 1)
	p.done = done
	p.mu.Unlock()

	err := p.conn.send(ctx, &Envelope{Type: TypePlayAudio, PlayAudio: &PlayAudioPayload{
		MIMEType: audio.MIMEType,
		Data:     audio.Data,
	}})
	if err != nil {
		p.clear(done)
		return err
	}

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		p.clear(done)
		p.Stop()
		return nil
	}
}

// Stop implements tts.Player.
func (p *wirePlayer) Stop() {
	p.mu.Lock()
	if p.done != nil {
		p.done <- nil
		p.done = nil
	}
	p.mu.Unlock()

	if err := p.conn.send(p.ctx, &Envelope{Type: TypeStopAudio}); err != nil {
		slog.Debug("stop audio push failed", "error", err)
	}
}

func (p *wirePlayer) deliverDone(err error) {
	p.mu.Lock()
	if p.done != nil {
		p.done <- err
		p.done = nil
	}
	p.mu.Unlock()
}

func (p *wirePlayer) clear(done chan error) {
	p.mu.Lock()
	if p.done == done {
		p.done = nil
	}
	p.mu.Unlock()
}
