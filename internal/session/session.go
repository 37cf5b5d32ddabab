// Package session holds the chat state for the selected model: the socket
// to the bridge, the transcript, and the reply currently being streamed.
//
// A Session is not safe for concurrent use. Every method is expected to be
// called from the goroutine that owns the UI state; blocking work (dialing,
// reading frames) happens elsewhere and is handed back through Opened,
// Closed and HandleFrame together with the generation it belongs to.
package session

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"ollamachat/internal/logging"
	"ollamachat/internal/models"
	"ollamachat/internal/protocol"
	"ollamachat/internal/socket"
)

var (
	ErrEmptyInput   = errors.New("input is empty")
	ErrNotConnected = errors.New("not connected")
	ErrStreaming    = errors.New("a reply is still streaming")
	ErrNoModel      = errors.New("no model selected")
	ErrSuperseded   = errors.New("connection superseded by a newer selection")
)

// Conn is an open socket to the bridge for one model.
type Conn interface {
	Send(frame any) error
	ReadFrame() ([]byte, error)
	Close() error
}

// Dialer opens the socket for a model.
type Dialer interface {
	Dial(ctx context.Context, model models.ModelID) (Conn, error)
}

type socketDialer struct {
	baseURL string
	dialer  *socket.Dialer
}

// NewSocketDialer returns a Dialer connecting to the bridge at baseURL.
func NewSocketDialer(baseURL string, d *socket.Dialer) Dialer {
	return &socketDialer{baseURL: baseURL, dialer: d}
}

func (d *socketDialer) Dial(ctx context.Context, model models.ModelID) (Conn, error) {
	endpoint, err := socket.Endpoint(d.baseURL, model)
	if err != nil {
		return nil, err
	}
	conn, err := d.dialer.Dial(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

type Session struct {
	id     string
	logger zerolog.Logger
	dialer Dialer

	model     models.ModelID
	conn      Conn
	gen       uint64
	connState models.ConnState
	stream    models.StreamState
	buffer    strings.Builder

	messages  []models.Message
	histories []models.HistorySummary
	greeted   map[models.ModelID]bool

	onFinalized func(models.Message)
}

type Option func(*Session)

func WithLogger(l zerolog.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// WithFinalizedHook registers fn to receive every user message sent and
// every assistant reply completed.
func WithFinalizedHook(fn func(models.Message)) Option {
	return func(s *Session) { s.onFinalized = fn }
}

func New(dialer Dialer, opts ...Option) *Session {
	s := &Session{
		id:      uuid.NewString(),
		logger:  zerolog.Nop(),
		dialer:  dialer,
		greeted: make(map[models.ModelID]bool),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.Component(s.logger, "session").With().Str("session", s.id).Logger()
	return s
}

func (s *Session) ID() string { return s.id }
func (s *Session) Model() models.ModelID { return s.model }
func (s *Session) Generation() uint64 { return s.gen }
func (s *Session) ConnState() models.ConnState { return s.connState }
func (s *Session) StreamState() models.StreamState { return s.stream }
func (s *Session) Connected() bool { return s.connState == models.Connected }
func (s *Session) Streaming() bool { return s.stream == models.Streaming }
func (s *Session) Buffer() string { return s.buffer.String() }
func (s *Session) Messages() []models.Message { return slices.Clone(s.messages) }
func (s *Session) Histories() []models.HistorySummary { return slices.Clone(s.histories) }

// CanSubmit reports whether Submit would accept non-empty input right now.
func (s *Session) CanSubmit() bool {
	return s.Connected() && !s.Streaming()
}

// Select switches to model. The previous socket, if any, is closed before
// this returns and any half-streamed reply is dropped without being added
// to the transcript. The returned generation must accompany the dial
// result passed to Opened or Closed.
func (s *Session) Select(model models.ModelID) uint64 {
	s.teardown()
	s.gen++
	s.model = model
	s.connState = models.Connecting
	s.histories = nil

	s.logger.Info().Str("model", string(model)).Uint64("gen", s.gen).Msg("Model selected")
	return s.gen
}

// Dial opens a socket for model without touching session state, so it can
// run off the owning goroutine.
func (s *Session) Dial(ctx context.Context, model models.ModelID) (Conn, error) {
	if s.dialer == nil {
		return nil, fmt.Errorf("dial %s: no dialer configured", model)
	}
	return s.dialer.Dial(ctx, model)
}

// Start selects model and dials it synchronously.
func (s *Session) Start(ctx context.Context, model models.ModelID) error {
	if model == "" {
		return ErrNoModel
	}
	gen := s.Select(model)
	conn, err := s.Dial(ctx, model)
	if err != nil {
		s.Closed(gen, err)
		return err
	}
	if !s.Opened(gen, conn) {
		return ErrSuperseded
	}
	return nil
}

// Stop closes the socket. Events still in flight for it are ignored.
func (s *Session) Stop() {
	s.teardown()
	s.gen++
	s.connState = models.Disconnected
	s.logger.Info().Msg("Session stopped")
}

// Opened hands over a successfully dialed socket. It returns false and
// closes conn when gen is no longer current.
func (s *Session) Opened(gen uint64, conn Conn) bool {
	if gen != s.gen || s.connState != models.Connecting {
		s.logger.Debug().Uint64("gen", gen).Uint64("current", s.gen).Msg("Discarding stale connection")
		_ = conn.Close()
		return false
	}

	s.conn = conn
	s.connState = models.Connected
	s.stream = models.StreamIdle
	s.logger.Info().Str("model", string(s.model)).Msg("Connected")

	if !s.greeted[s.model] {
		s.greeted[s.model] = true
		s.messages = append(s.messages, models.AssistantMessage(greeting(s.model), s.model))
	}
	return true
}

// Closed records that the socket for gen failed to open, errored, or was
// closed by the bridge. There is no reconnect; selecting a model again is
// the only way back.
func (s *Session) Closed(gen uint64, err error) bool {
	if gen != s.gen || s.connState == models.Disconnected {
		return false
	}

	ev := s.logger.Warn()
	if err == nil || socket.IsNormalClose(err) {
		ev = s.logger.Info()
	}
	ev.Err(err).Str("model", string(s.model)).Msg("Disconnected")

	s.teardown()
	s.connState = models.Disconnected
	return true
}

// HandleFrame applies one inbound frame from the socket of generation gen.
// It reports whether the session changed. Frames that cannot be parsed or
// have an unknown type are logged and ignored.
func (s *Session) HandleFrame(gen uint64, data []byte) bool {
	if gen != s.gen || s.connState != models.Connected {
		return false
	}

	in, err := protocol.Decode(data)
	if err != nil {
		s.logger.Warn().Err(err).Int("bytes", len(data)).Msg("Ignoring malformed frame")
		return false
	}

	switch in.Type {
	case protocol.TypeStreamStart:
		s.stream = models.Streaming
		s.buffer.Reset()
		return true

	case protocol.TypeStream:
		if s.stream != models.Streaming {
			s.logger.Debug().Msg("Ignoring stream delta outside a stream")
			return false
		}
		s.buffer.WriteString(in.Content)
		return true

	case protocol.TypeStreamEnd:
		if s.stream != models.Streaming {
			s.logger.Debug().Msg("Ignoring stream end outside a stream")
			return false
		}
		msg := models.AssistantMessage(s.buffer.String(), s.model)
		s.buffer.Reset()
		s.stream = models.StreamIdle
		s.messages = append(s.messages, msg)
		s.finalized(msg)
		return true

	case protocol.TypeError:
		if s.stream == models.Streaming {
			s.logger.Warn().Int("discarded", s.buffer.Len()).Msg("Stream aborted by error frame")
		}
		s.buffer.Reset()
		s.stream = models.StreamIdle
		s.messages = append(s.messages, models.SystemMessage("Error: "+in.Content))
		return true

	case protocol.TypeChatHistories:
		s.histories = slices.Clone(in.Histories)
		return true

	case protocol.TypeHistoryLoaded:
		s.replaceTranscript(in.Messages)
		return true

	case protocol.TypeHistoryCleared:
		s.replaceTranscript(nil)
		return true

	case protocol.TypeSystem:
		s.messages = append(s.messages, models.SystemMessage(in.Content))
		return true

	case protocol.TypeWelcome:
		s.logger.Debug().Str("model", in.Model).Str("display", in.ModelDisplayName).Msg("Welcome received")
		return false

	default:
		s.logger.Debug().Str("type", in.Type).Msg("Ignoring unknown frame type")
		return false
	}
}

// Submit sends text as a user message. Blank input, a closed socket, or a
// reply still streaming reject the submission without side effects.
func (s *Session) Submit(text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyInput
	}
	if !s.Connected() {
		return ErrNotConnected
	}
	if s.Streaming() {
		return ErrStreaming
	}

	if err := s.send(protocol.NewMessage(text)); err != nil {
		return err
	}

	msg := models.UserMessage(text)
	s.messages = append(s.messages, msg)
	s.finalized(msg)
	return nil
}

// LoadHistory asks the bridge to load a stored conversation. The bridge
// answers with a history_loaded frame that replaces the transcript.
func (s *Session) LoadHistory(id string) error {
	if !s.Connected() {
		return ErrNotConnected
	}
	return s.send(protocol.NewLoadHistory(id))
}

// ClearHistory asks the bridge to forget the conversation for the current
// model.
func (s *Session) ClearHistory() error {
	if !s.Connected() {
		return ErrNotConnected
	}
	if s.Streaming() {
		return ErrStreaming
	}
	return s.send(protocol.NewClearHistory())
}

// AppendSystem adds a system message, e.g. for failures outside the socket.
func (s *Session) AppendSystem(text string) {
	s.messages = append(s.messages, models.SystemMessage(text))
}

// SetHistories stores summaries fetched over HTTP for the current model.
func (s *Session) SetHistories(model models.ModelID, h []models.HistorySummary) {
	if model != s.model {
		return
	}
	s.histories = slices.Clone(h)
}

func (s *Session) send(frame any) error {
	if err := s.conn.Send(frame); err != nil {
		s.logger.Error().Err(err).Msg("Send failed")
		s.teardown()
		s.connState = models.Disconnected
		return fmt.Errorf("send: %w", err)
	}
	return nil
}

func (s *Session) replaceTranscript(msgs []models.Message) {
	s.messages = make([]models.Message, 0, len(msgs))
	for _, m := range msgs {
		if m.Role == models.RoleAssistant && m.Model == "" {
			m.Model = s.model
		}
		s.messages = append(s.messages, m)
	}
}

// teardown closes the socket and drops any in-flight reply.
func (s *Session) teardown() {
	if s.conn != nil {
		if err := s.conn.Close(); err != nil {
			s.logger.Debug().Err(err).Msg("Close failed")
		}
		s.conn = nil
	}
	if s.stream == models.Streaming {
		s.logger.Debug().Int("discarded", s.buffer.Len()).Msg("Dropping unfinished stream")
	}
	s.buffer.Reset()
	s.stream = models.StreamIdle
}

func (s *Session) finalized(msg models.Message) {
	if msg.Model == "" {
		msg.Model = s.model
	}
	if s.onFinalized != nil {
		s.onFinalized(msg)
	}
}

func greeting(model models.ModelID) string {
	return fmt.Sprintf("Hello! I'm %s. How can I help you today?", models.DisplayName(model))
}
