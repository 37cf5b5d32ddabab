package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"ollamachat/internal/models"
	"ollamachat/internal/render"
	"ollamachat/internal/session"
	"ollamachat/internal/styles"
)

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	model, cmd := m.update(msg)
	m.syncInputFocus()
	return model, cmd
}

func (m *Model) update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		tiCmd tea.Cmd
		vpCmd tea.Cmd
		spCmd tea.Cmd
	)

	switch msg := msg.(type) {
	case spinner.TickMsg:
		m.Spinner, spCmd = m.Spinner.Update(msg)
		if m.Session.Streaming() || m.Session.ConnState() == models.Connecting {
			m.UpdateViewport()
		}
		return m, spCmd

	case modelsLoadedMsg:
		if msg.err != nil {
			m.ModelsErr = msg.err
			if msg.refresh {
				m.Logger.Warn().Err(msg.err).Msg("Model refresh failed")
				return m, nil
			}
			m.Session.AppendSystem(fmt.Sprintf("Failed to load models: %v", msg.err))
			m.UpdateViewport()
			return m, nil
		}
		m.ModelsErr = nil
		m.Models = msg.models
		if m.SelectedModelIndex >= len(m.Models) {
			m.SelectedModelIndex = 0
		}
		m.UpdateModelSelectorContent()
		if len(m.Models) == 0 {
			m.Logger.Warn().Msg("Bridge reported no models")
			m.UpdateViewport()
			return m, nil
		}
		// A refresh only updates the list; the live session is left alone.
		if m.Session.Model() != "" {
			return m, nil
		}
		return m, m.selectModel(m.initialModel())

	case historiesMsg:
		if msg.err != nil {
			m.Logger.Debug().Err(msg.err).Str("model", string(msg.model)).Msg("History listing unavailable")
			if msg.model == m.Session.Model() {
				m.HistoryErr = msg.err
			}
			return m, nil
		}
		m.HistoryErr = nil
		m.Session.SetHistories(msg.model, msg.histories)
		return m, nil

	case openedMsg:
		if !m.Session.Opened(msg.gen, msg.conn) {
			return m, nil
		}
		m.UpdateViewport()
		return m, readFrameCmd(msg.gen, msg.conn)

	case closedMsg:
		if m.Session.Closed(msg.gen, msg.err) {
			m.UpdateViewport()
		}
		return m, nil

	case frameMsg:
		if m.Session.HandleFrame(msg.gen, msg.data) {
			m.UpdateViewport()
		}
		if msg.gen == m.Session.Generation() && m.Session.Connected() {
			return m, readFrameCmd(msg.gen, msg.conn)
		}
		return m, nil

	case tea.KeyMsg:
		if m.HistoryOpen {
			return m.updateHistorySelector(msg)
		}
		if m.ModelSelectorOpen {
			return m.updateModelSelector(msg)
		}

		if m.ShortcutsOpen {
			switch msg.String() {
			case "ctrl+c":
				return m.quit()
			case "esc", "enter", "?", "ctrl+s":
				m.ShortcutsOpen = false
				return m, nil
			}
			return m, nil
		}

		if isNewlineShortcut(msg) {
			if m.Session.CanSubmit() {
				m.TextInput.InsertString("\n")
				m.updateInputLayout()
			}
			return m, nil
		}

		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m.quit()

		case tea.KeyCtrlN:
			m.clearHistory()
			return m, nil

		case tea.KeyCtrlB:
			m.ModelSelectorOpen = true
			m.HistoryOpen = false
			m.ShortcutsOpen = false
			m.SelectedModelIndex = m.currentModelIndex()
			m.UpdateModelSelectorContent()
			m.SyncModelViewportScroll()
			return m, nil

		case tea.KeyCtrlS:
			m.ShortcutsOpen = true
			m.ModelSelectorOpen = false
			m.HistoryOpen = false
			return m, nil

		case tea.KeyCtrlO:
			m.ModelSelectorOpen = false
			m.ShortcutsOpen = false
			m.HistoryOpen = true
			m.HistorySelectedIdx = 0
			m.HistoryPage = 0
			if m.Session.Model() == "" {
				return m, nil
			}
			return m, m.fetchHistoriesCmd(m.Session.Model())

		case tea.KeyEnter:
			m.submit()
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.WindowWidth = msg.Width
		m.WindowHeight = msg.Height

		ModalWidth = msg.Width - 10
		if ModalWidth > 60 {
			ModalWidth = 60
		}
		if ModalWidth < 30 {
			ModalWidth = 30
		}
		styles.ContentWidth = ModalWidth - 6

		m.ModelViewport.Width = styles.ContentWidth
		m.ModelViewport.Height = msg.Height - 15
		if m.ModelViewport.Height > 20 {
			m.ModelViewport.Height = 20
		}
		if m.ModelViewport.Height < 5 {
			m.ModelViewport.Height = 5
		}

		chatWidth := msg.Width - 2
		if chatWidth > MaxChatWidth {
			chatWidth = MaxChatWidth
		}
		m.Viewport.Width = chatWidth - 2

		m.updateInputLayout()
		m.rebuildRenderer(chatWidth - 6)
		m.UpdateViewport()
		return m, nil
	}

	m.TextInput, tiCmd = m.TextInput.Update(msg)
	m.updateInputLayout()

	// Filter out terminal background color queries and cursor reference codes that leak into the input
	val := m.TextInput.Value()
	if strings.Contains(val, "]11;rgb:") || strings.Contains(val, "1;rgb:") || strings.Contains(val, "[1;1R") {
		m.TextInput.Reset()
	}

	m.Viewport, vpCmd = m.Viewport.Update(msg)

	return m, tea.Batch(tiCmd, vpCmd)
}

func (m *Model) updateModelSelector(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m.quit()
	case "esc", "ctrl+b":
		m.ModelSelectorOpen = false
		return m, nil
	case "up", "k":
		if len(m.Models) == 0 {
			return m, nil
		}
		m.SelectedModelIndex--
		if m.SelectedModelIndex < 0 {
			m.SelectedModelIndex = len(m.Models) - 1
		}
		m.SyncModelViewportScroll()
		m.UpdateModelSelectorContent()
		return m, nil
	case "down", "j":
		if len(m.Models) == 0 {
			return m, nil
		}
		m.SelectedModelIndex++
		if m.SelectedModelIndex >= len(m.Models) {
			m.SelectedModelIndex = 0
		}
		m.SyncModelViewportScroll()
		m.UpdateModelSelectorContent()
		return m, nil
	case "r":
		return m, m.fetchModelsCmd(true)
	case "enter":
		m.ModelSelectorOpen = false
		if len(m.Models) == 0 {
			return m, nil
		}
		return m, m.selectModel(m.Models[m.SelectedModelIndex])
	}
	return m, nil
}

func (m *Model) updateHistorySelector(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	histories := m.Session.Histories()

	switch msg.String() {
	case "ctrl+c":
		return m.quit()
	case "esc", "ctrl+o":
		m.HistoryOpen = false
		m.HistoryErr = nil
		return m, nil
	case "up", "k":
		if len(histories) == 0 {
			return m, nil
		}
		m.HistorySelectedIdx--
		if m.HistorySelectedIdx < 0 {
			m.HistorySelectedIdx = len(histories) - 1
		}
		m.HistoryPage = m.HistorySelectedIdx / HistoryPageSize
		return m, nil
	case "down", "j":
		if len(histories) == 0 {
			return m, nil
		}
		m.HistorySelectedIdx++
		if m.HistorySelectedIdx >= len(histories) {
			m.HistorySelectedIdx = 0
		}
		m.HistoryPage = m.HistorySelectedIdx / HistoryPageSize
		return m, nil
	case "left", "h":
		if m.HistoryPage > 0 {
			m.HistoryPage--
			m.HistorySelectedIdx = m.HistoryPage * HistoryPageSize
		}
		return m, nil
	case "right", "l":
		totalPages := (len(histories) + HistoryPageSize - 1) / HistoryPageSize
		if m.HistoryPage < totalPages-1 {
			m.HistoryPage++
			m.HistorySelectedIdx = m.HistoryPage * HistoryPageSize
		}
		return m, nil
	case "enter":
		if len(histories) == 0 || m.HistorySelectedIdx >= len(histories) {
			return m, nil
		}
		if err := m.Session.LoadHistory(histories[m.HistorySelectedIdx].ID); err != nil {
			m.HistoryErr = err
			return m, nil
		}
		m.HistoryOpen = false
		m.HistoryErr = nil
		return m, nil
	}
	return m, nil
}

func (m *Model) quit() (tea.Model, tea.Cmd) {
	m.Session.Stop()
	return m, tea.Quit
}

// submit sends the input box contents. Rejected submissions leave the
// input untouched.
func (m *Model) submit() {
	input := m.TextInput.Value()
	if strings.TrimSpace(input) == "/clear" {
		if m.clearHistory() {
			m.TextInput.Reset()
			m.updateInputLayout()
		}
		return
	}

	err := m.Session.Submit(input)
	switch {
	case err == nil:
		m.TextInput.Reset()
		m.updateInputLayout()
	case errors.Is(err, session.ErrEmptyInput),
		errors.Is(err, session.ErrNotConnected),
		errors.Is(err, session.ErrStreaming):
		return
	default:
		m.Logger.Warn().Err(err).Msg("Submit failed")
	}
	m.UpdateViewport()
}

func (m *Model) clearHistory() bool {
	if err := m.Session.ClearHistory(); err != nil {
		m.Logger.Debug().Err(err).Msg("Clear history rejected")
		return false
	}
	return true
}

// selectModel switches the session to model and starts dialing it.
func (m *Model) selectModel(model models.ModelID) tea.Cmd {
	gen := m.Session.Select(model)
	m.HistoryErr = nil
	m.UpdateViewport()
	return tea.Batch(m.dialCmd(gen, model), m.fetchHistoriesCmd(model))
}

func (m *Model) initialModel() models.ModelID {
	if m.PreferredModel != "" {
		for _, id := range m.Models {
			if id == m.PreferredModel {
				return id
			}
		}
		m.Logger.Warn().Str("model", string(m.PreferredModel)).Msg("Preferred model not offered by bridge")
	}
	return m.Models[0]
}

func (m *Model) currentModelIndex() int {
	for i, id := range m.Models {
		if id == m.Session.Model() {
			return i
		}
	}
	return 0
}

// syncInputFocus keeps the input enabled only while a submission would be
// accepted.
func (m *Model) syncInputFocus() {
	enabled := m.Session.CanSubmit() && !m.ModelSelectorOpen && !m.HistoryOpen && !m.ShortcutsOpen
	if enabled && !m.TextInput.Focused() {
		m.TextInput.Focus()
	} else if !enabled && m.TextInput.Focused() {
		m.TextInput.Blur()
	}
}

func isNewlineShortcut(msg tea.KeyMsg) bool {
	switch msg.String() {
	case "shift+enter", "shift+return", "ctrl+j", "ctrl+enter", "alt+enter":
		return true
	default:
		return false
	}
}

func (m *Model) updateInputLayout() {
	if m.WindowWidth == 0 || m.WindowHeight == 0 {
		return
	}

	inputWidth := m.WindowWidth - 6
	if inputWidth < 20 {
		inputWidth = 20
	}
	contentWidth := inputWidth - 2
	if contentWidth < 1 {
		contentWidth = 1
	}

	maxInputHeight := 6
	lineCount := WrappedLineCount(m.TextInput.Value(), contentWidth)
	if lineCount < 1 {
		lineCount = 1
	}
	if lineCount > maxInputHeight {
		lineCount = maxInputHeight
	}

	m.TextInput.MaxHeight = maxInputHeight
	m.TextInput.SetWidth(inputWidth)
	m.TextInput.SetHeight(lineCount)

	inputBoxHeight := m.TextInput.Height() + 2
	reserved := inputBoxHeight + 5
	viewportHeight := m.WindowHeight - reserved
	if viewportHeight < 5 {
		viewportHeight = 5
	}
	m.Viewport.Height = viewportHeight
}

func (m *Model) rebuildRenderer(width int) {
	style := m.RenderStyle
	if style == "" || style == "auto" {
		style = "dark"
		if !lipgloss.HasDarkBackground() {
			style = "light"
		}
	}

	r, err := render.New(style, width)
	if err != nil {
		m.Logger.Warn().Err(err).Str("style", style).Msg("Markdown renderer unavailable")
	}
	m.Renderer = r
	clear(m.rendered)
}

// fetchModelsCmd lists the bridge's models. refresh marks a reload from
// the model selector rather than the startup fetch.
func (m *Model) fetchModelsCmd(refresh bool) tea.Cmd {
	dir := m.Directory
	return func() tea.Msg {
		if dir == nil {
			return modelsLoadedMsg{err: errors.New("no model directory configured"), refresh: refresh}
		}
		ids, err := dir.ListModels(context.Background())
		return modelsLoadedMsg{models: ids, err: err, refresh: refresh}
	}
}

func (m *Model) fetchHistoriesCmd(model models.ModelID) tea.Cmd {
	dir := m.Directory
	if dir == nil {
		return nil
	}
	return func() tea.Msg {
		h, err := dir.ListHistories(context.Background(), model)
		return historiesMsg{model: model, histories: h, err: err}
	}
}

// dialCmd opens the socket off the Update goroutine. The result is applied
// by Update only if gen is still current.
func (m *Model) dialCmd(gen uint64, model models.ModelID) tea.Cmd {
	s := m.Session
	return func() tea.Msg {
		conn, err := s.Dial(context.Background(), model)
		if err != nil {
			return closedMsg{gen: gen, err: err}
		}
		return openedMsg{gen: gen, conn: conn}
	}
}

// readFrameCmd blocks for one frame. Update issues the next read after
// applying it, so frames are handled strictly in arrival order.
func readFrameCmd(gen uint64, conn session.Conn) tea.Cmd {
	return func() tea.Msg {
		data, err := conn.ReadFrame()
		if err != nil {
			return closedMsg{gen: gen, err: err}
		}
		return frameMsg{gen: gen, conn: conn, data: data}
	}
}
