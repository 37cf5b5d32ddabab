package ui

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ollamachat/internal/db"
	"ollamachat/internal/models"
	"ollamachat/internal/session"
)

type fakeConn struct {
	sent   []string
	closed bool
}

func (c *fakeConn) Send(frame any) error {
	data, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	c.sent = append(c.sent, string(data))
	return nil
}

func (c *fakeConn) ReadFrame() ([]byte, error) { return nil, errors.New("unused") }

func (c *fakeConn) Close() error {
	c.closed = true
	return nil
}

type fakeDialer struct{}

func (fakeDialer) Dial(context.Context, models.ModelID) (session.Conn, error) {
	return &fakeConn{}, nil
}

func newTestModel(t *testing.T, cfg Config) *Model {
	t.Helper()
	cfg.Dialer = fakeDialer{}
	cfg.Logger = zerolog.Nop()
	cfg.RenderStyle = "notty"
	cfg.ServerURL = "http://localhost:8000"
	m := NewModel(cfg)
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return m
}

// connect loads models and opens the socket for whichever one was selected.
func connect(t *testing.T, m *Model, ids ...models.ModelID) *fakeConn {
	t.Helper()
	_, cmd := m.Update(modelsLoadedMsg{models: ids})
	require.NotNil(t, cmd)
	require.Equal(t, models.Connecting, m.Session.ConnState())

	conn := &fakeConn{}
	_, cmd = m.Update(openedMsg{gen: m.Session.Generation(), conn: conn})
	require.NotNil(t, cmd, "expected a frame read to be scheduled")
	require.True(t, m.Session.Connected())
	return conn
}

func frame(m *Model, conn *fakeConn, typ, content string) tea.Cmd {
	data, _ := json.Marshal(map[string]string{"type": typ, "content": content})
	_, cmd := m.Update(frameMsg{gen: m.Session.Generation(), conn: conn, data: data})
	return cmd
}

func key(m *Model, k tea.KeyType) {
	m.Update(tea.KeyMsg{Type: k})
}

func TestModelsLoadFailure(t *testing.T) {
	m := newTestModel(t, Config{})

	_, cmd := m.Update(modelsLoadedMsg{err: errors.New("connection refused")})
	assert.Nil(t, cmd)

	msgs := m.Session.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, models.SystemMessage("Failed to load models: connection refused"), msgs[0])
	assert.False(t, m.TextInput.Focused())
}

func TestSelectsFirstOrPreferredModel(t *testing.T) {
	m := newTestModel(t, Config{})
	connect(t, m, "mistral:latest", "gemma2:2b")
	assert.Equal(t, models.ModelID("mistral:latest"), m.Session.Model())

	m2 := newTestModel(t, Config{Model: "gemma2:2b"})
	connect(t, m2, "mistral:latest", "gemma2:2b")
	assert.Equal(t, models.ModelID("gemma2:2b"), m2.Session.Model())
}

func TestStreamingDisablesInput(t *testing.T) {
	m := newTestModel(t, Config{})
	conn := connect(t, m, "mistral:latest")
	assert.True(t, m.TextInput.Focused())
	assert.Contains(t, m.View(), "MISTRAL")

	require.NotNil(t, frame(m, conn, "stream_start", ""))
	require.NotNil(t, frame(m, conn, "stream", "Partial answer"))
	assert.False(t, m.TextInput.Focused())
	assert.Contains(t, m.Viewport.View(), "Partial answer")
	assert.Contains(t, m.View(), "STREAMING")

	m.TextInput.SetValue("queued")
	key(m, tea.KeyEnter)
	assert.Empty(t, conn.sent)

	frame(m, conn, "stream_end", "")
	assert.True(t, m.TextInput.Focused())
	msgs := m.Session.Messages()
	assert.Equal(t, models.AssistantMessage("Partial answer", "mistral:latest"), msgs[len(msgs)-1])
}

func TestSubmit(t *testing.T) {
	m := newTestModel(t, Config{})
	conn := connect(t, m, "mistral:latest")

	m.TextInput.SetValue("   ")
	key(m, tea.KeyEnter)
	assert.Empty(t, conn.sent)

	m.TextInput.SetValue("Why is the sky blue?")
	key(m, tea.KeyEnter)
	assert.Equal(t, []string{`{"type":"message","content":"Why is the sky blue?"}`}, conn.sent)
	assert.Empty(t, m.TextInput.Value())

	m.TextInput.SetValue("/clear")
	key(m, tea.KeyEnter)
	assert.Equal(t, `{"type":"clear_history"}`, conn.sent[1])
	assert.Empty(t, m.TextInput.Value())
}

func TestStaleFramesDoNotScheduleReads(t *testing.T) {
	m := newTestModel(t, Config{})
	conn := connect(t, m, "mistral:latest", "gemma2:2b")
	oldGen := m.Session.Generation()

	key(m, tea.KeyCtrlB)
	require.True(t, m.ModelSelectorOpen)
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("j")})
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)

	assert.False(t, m.ModelSelectorOpen)
	assert.True(t, conn.closed)
	assert.Equal(t, models.ModelID("gemma2:2b"), m.Session.Model())

	data := []byte(`{"type":"stream_start"}`)
	_, cmd = m.Update(frameMsg{gen: oldGen, conn: conn, data: data})
	assert.Nil(t, cmd)
	assert.False(t, m.Session.Streaming())

	_, cmd = m.Update(closedMsg{gen: oldGen, err: errors.New("use of closed network connection")})
	assert.Nil(t, cmd)
	assert.Equal(t, models.Connecting, m.Session.ConnState())
}

func TestModelRefreshKeepsLiveStream(t *testing.T) {
	m := newTestModel(t, Config{})
	first := connect(t, m, "a:latest", "b:latest")

	key(m, tea.KeyCtrlB)
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("j")})
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.True(t, first.closed)

	conn := &fakeConn{}
	m.Update(openedMsg{gen: m.Session.Generation(), conn: conn})
	gen := m.Session.Generation()
	frame(m, conn, "stream_start", "")
	frame(m, conn, "stream", "half a reply")
	require.True(t, m.Session.Streaming())

	key(m, tea.KeyCtrlB)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})
	require.NotNil(t, cmd)
	_, cmd = m.Update(modelsLoadedMsg{models: []models.ModelID{"a:latest", "b:latest", "c:latest"}, refresh: true})
	assert.Nil(t, cmd)

	assert.Equal(t, models.ModelID("b:latest"), m.Session.Model())
	assert.Equal(t, gen, m.Session.Generation())
	assert.Equal(t, models.Connected, m.Session.ConnState())
	assert.True(t, m.Session.Streaming())
	assert.Equal(t, "half a reply", m.Session.Buffer())
	assert.False(t, conn.closed)
	assert.Len(t, m.Models, 3)
	assert.Contains(t, m.View(), "Select Model (3)")

	require.NotNil(t, frame(m, conn, "stream_end", ""))
	msgs := m.Session.Messages()
	assert.Equal(t, models.AssistantMessage("half a reply", "b:latest"), msgs[len(msgs)-1])
}

func TestModelRefreshFailureStaysInSelector(t *testing.T) {
	m := newTestModel(t, Config{})
	connect(t, m, "mistral:latest")
	before := m.Session.Messages()

	key(m, tea.KeyCtrlB)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})
	require.NotNil(t, cmd)
	m.Update(cmd())

	require.Error(t, m.ModelsErr)
	assert.Equal(t, before, m.Session.Messages())
	assert.Equal(t, models.ModelID("mistral:latest"), m.Session.Model())
	assert.True(t, m.Session.Connected())
	assert.Contains(t, m.View(), "no model directory configured")
}

func TestDisconnect(t *testing.T) {
	m := newTestModel(t, Config{})
	connect(t, m, "mistral:latest")

	m.Update(closedMsg{gen: m.Session.Generation(), err: errors.New("connection reset")})
	assert.Equal(t, models.Disconnected, m.Session.ConnState())
	assert.False(t, m.TextInput.Focused())
	assert.Contains(t, m.View(), "OFFLINE")
}

func TestHistorySelector(t *testing.T) {
	m := newTestModel(t, Config{})
	conn := connect(t, m, "mistral:latest")

	m.Update(historiesMsg{model: "mistral:latest", histories: []models.HistorySummary{
		{ID: "a", Label: "First chat"},
		{ID: "b", Label: "Second chat"},
	}})

	// Some terminals send Ctrl+H for backspace.
	key(m, tea.KeyCtrlH)
	require.False(t, m.HistoryOpen)

	key(m, tea.KeyCtrlO)
	require.True(t, m.HistoryOpen)
	assert.False(t, m.TextInput.Focused())
	assert.Contains(t, m.View(), "Second chat")

	key(m, tea.KeyDown)
	key(m, tea.KeyEnter)
	assert.False(t, m.HistoryOpen)
	assert.Equal(t, []string{`{"type":"load_history","history_id":"b"}`}, conn.sent)
}

func TestArchiveStoresFinalizedMessages(t *testing.T) {
	archive, err := db.Open(filepath.Join(t.TempDir(), "archive.db"))
	require.NoError(t, err)

	m := newTestModel(t, Config{Archive: archive})
	t.Cleanup(func() { _ = m.Close() })
	conn := connect(t, m, "mistral:latest")

	m.TextInput.SetValue("hi")
	key(m, tea.KeyEnter)
	frame(m, conn, "stream_start", "")
	frame(m, conn, "stream", "hello")
	frame(m, conn, "stream_end", "")

	got, err := db.RecentMessages(archive, "mistral:latest", 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, models.RoleUser, got[0].Role)
	assert.Equal(t, "hello", got[1].Content)
}

func TestWrappedLineCount(t *testing.T) {
	assert.Equal(t, 1, WrappedLineCount("", 10))
	assert.Equal(t, 2, WrappedLineCount("a\nb", 10))
	assert.Equal(t, 3, WrappedLineCount("abcdefghijklmnopqrstu", 10))
	assert.Equal(t, 1, WrappedLineCount("anything", 0))
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "héllo", TruncateRunes("héllo", 5))
	assert.Equal(t, "hé…", TruncateRunes("héllo", 3))
	assert.Equal(t, "", TruncateRunes("x", 0))
}
