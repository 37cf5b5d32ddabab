package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"ollamachat/internal/models"
	"ollamachat/internal/styles"
)

func (m *Model) UpdateModelSelectorContent() {
	if len(m.Models) == 0 {
		m.ModelViewport.SetContent("")
		return
	}

	items := make([]string, 0, len(m.Models))
	for i, id := range m.Models {
		isSelected := i == m.SelectedModelIndex
		isCurrent := m.Session.Model() == id

		displayName := models.DisplayName(id)
		if isCurrent {
			displayName = "● " + displayName
		} else {
			displayName = "  " + displayName
		}
		idText := TruncateRunes(string(id), styles.ContentWidth-lipgloss.Width(displayName)-4)
		line := displayName + " " + lipgloss.NewStyle().Foreground(styles.CurrentTheme.TextSecondary).Render(idText)

		var styledItem string
		if isSelected {
			styledItem = styles.ModalSelectedStyle.Copy().
				Width(styles.ContentWidth).
				Render(line)
		} else {
			style := styles.ModalItemStyle.Copy().Width(styles.ContentWidth)
			if isCurrent {
				style = style.Foreground(styles.CurrentTheme.Secondary)
			} else {
				style = style.Foreground(styles.CurrentTheme.TextPrimary)
			}
			styledItem = style.Render(line)
		}
		items = append(items, styledItem)
	}

	m.ModelViewport.SetContent(lipgloss.JoinVertical(lipgloss.Left, items...))
}

func (m *Model) RenderModelSelector() string {
	title := styles.ModalTitleStyle.Render(fmt.Sprintf("Select Model (%d)", len(m.Models)))

	var body string
	switch {
	case m.ModelsErr != nil:
		body = lipgloss.NewStyle().Width(styles.ContentWidth).Render(styles.ErrorStyle.Render(fmt.Sprintf("Error: %v", m.ModelsErr)))
	case len(m.Models) == 0:
		body = styles.ModalItemStyle.Render(lipgloss.NewStyle().Foreground(styles.CurrentTheme.TextMuted).Render("No models available"))
	default:
		body = m.ModelViewport.View()
	}

	content := lipgloss.JoinVertical(lipgloss.Left, title, body)

	hint := lipgloss.NewStyle().
		Foreground(styles.CurrentTheme.TextMuted).
		Width(styles.ContentWidth).
		PaddingTop(1).
		Render("↑/↓: navigate • Enter: select • r: refresh • Esc: close")

	return lipgloss.JoinVertical(lipgloss.Left, content, hint)
}

func (m *Model) RenderHistorySelector() string {
	histories := m.Session.Histories()
	totalPages := (len(histories) + HistoryPageSize - 1) / HistoryPageSize
	if totalPages < 1 {
		totalPages = 1
	}
	title := styles.ModalTitleStyle.Render(fmt.Sprintf("Chat History (%d) - Page %d/%d", len(histories), m.HistoryPage+1, totalPages))

	var body string
	if m.HistoryErr != nil {
		body = lipgloss.NewStyle().Width(styles.ContentWidth).Render(styles.ErrorStyle.Render(fmt.Sprintf("Error: %v", m.HistoryErr)))
	} else if len(histories) == 0 {
		body = styles.ModalItemStyle.Render(lipgloss.NewStyle().Foreground(styles.CurrentTheme.TextMuted).Render("No saved chats"))
	} else {
		start := m.HistoryPage * HistoryPageSize
		end := min(start+HistoryPageSize, len(histories))

		items := make([]string, 0, end-start)
		for i := start; i < end; i++ {
			isSelected := i == m.HistorySelectedIdx
			cursor := "  "
			if isSelected {
				cursor = "> "
			}
			label := PromptPreview(histories[i].Label)
			if label == "" {
				label = "(untitled)"
			}
			label = TruncateRunes(label, styles.ContentWidth-2-len(cursor))

			itemContent := cursor + label
			if isSelected {
				items = append(items, styles.ModalSelectedStyle.Render(itemContent))
			} else {
				items = append(items, styles.ModalItemStyle.Render(itemContent))
			}
		}
		body = lipgloss.JoinVertical(lipgloss.Left, items...)
	}

	content := lipgloss.JoinVertical(lipgloss.Left, title, body)
	hint := lipgloss.NewStyle().
		Foreground(styles.CurrentTheme.TextMuted).
		Width(styles.ContentWidth).
		PaddingTop(1).
		Render("↑/↓: navigate • ←/→: page • Enter: load • Esc: close")

	return lipgloss.JoinVertical(lipgloss.Left, content, hint)
}

func (m *Model) RenderShortcutsModal() string {
	title := styles.ModalTitleStyle.Render("Keyboard Shortcuts")

	shortcuts := []struct {
		key  string
		desc string
	}{
		{"Ctrl+C", "Quit Application"},
		{"Ctrl+B", "Select Model"},
		{"Ctrl+O", "Open Chat History"},
		{"Ctrl+N", "Clear Chat History"},
		{"/clear", "Clear Chat History (in input)"},
		{"Ctrl+J", "New Line"},
		{"Ctrl+S", "View Shortcuts (this menu)"},
	}

	var items []string
	keyStyle := lipgloss.NewStyle().
		Foreground(styles.CurrentTheme.Accent).
		Bold(true).
		Width(12)

	descStyle := lipgloss.NewStyle().
		Foreground(styles.CurrentTheme.TextPrimary)

	for _, s := range shortcuts {
		line := fmt.Sprintf("%s %s", keyStyle.Render(s.key), descStyle.Render(s.desc))
		items = append(items, styles.ModalItemStyle.Render(line))
	}

	listContent := lipgloss.JoinVertical(lipgloss.Left, items...)
	content := lipgloss.JoinVertical(lipgloss.Left, title, listContent)

	hint := lipgloss.NewStyle().
		Foreground(styles.CurrentTheme.TextMuted).
		Width(styles.ContentWidth).
		PaddingTop(1).
		Render("Esc/Enter: close")

	return lipgloss.JoinVertical(lipgloss.Left, content, hint)
}

func (m *Model) RenderBottomBar() string {
	state := m.Session.ConnState()
	badge := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(styles.ConnStateColor(state)).
		Padding(0, 1).
		Render(styles.ConnStateLabel(state, m.Session.Streaming()))

	modelName := "No model"
	if id := m.Session.Model(); id != "" {
		modelName = models.DisplayName(id)
	}
	model := lipgloss.NewStyle().
		Foreground(styles.CurrentTheme.Primary).
		Render(TruncateRunes(modelName, 25))

	server := lipgloss.NewStyle().
		Foreground(styles.CurrentTheme.Info).
		Render(TruncateRunes(m.ServerURL, 30))

	count := lipgloss.NewStyle().
		Foreground(styles.CurrentTheme.TextSecondary).
		Render(fmt.Sprintf("Messages: %d", len(m.Session.Messages())))

	help := lipgloss.NewStyle().
		Foreground(styles.CurrentTheme.TextMuted).
		Render("Help: ^S")

	leftSide := lipgloss.JoinHorizontal(lipgloss.Center, badge, "  ", model, "  ", server)
	rightSide := lipgloss.JoinHorizontal(lipgloss.Center, count, "  ", help)

	availableWidth := m.WindowWidth - lipgloss.Width(leftSide) - lipgloss.Width(rightSide) - 2 // -2 for padding
	if availableWidth < 0 {
		availableWidth = 0
	}
	spacer := strings.Repeat(" ", availableWidth)

	bar := lipgloss.JoinHorizontal(lipgloss.Center, leftSide, spacer, rightSide)

	return lipgloss.NewStyle().
		Width(m.WindowWidth).
		BorderTop(true).
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(styles.CurrentTheme.Border).
		Padding(0, 1).
		Render(bar)
}

func GetWelcomeScreen(width, height int, subtitle string) string {
	art := `
 ╭──────────────────────────────────────╮
 │                                      │
 │      o l l a m a   ·   c h a t       │
 │                                      │
 ╰──────────────────────────────────────╯
`
	styledArt := styles.WelcomeArtStyle.Render(art)
	styledSubtitle := styles.WelcomeSubtitleStyle.Render(subtitle)

	content := lipgloss.JoinVertical(lipgloss.Center, styledArt, "", styledSubtitle)

	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, content)
}

func (m *Model) welcomeSubtitle() string {
	switch m.Session.ConnState() {
	case models.Connecting:
		return fmt.Sprintf("%s Connecting to %s...", m.Spinner.View(), models.DisplayName(m.Session.Model()))
	case models.Connected:
		return "Ask anything. Ctrl+S shows shortcuts."
	}
	if m.Session.Model() != "" {
		return "Disconnected. Press Ctrl+B to pick a model."
	}
	return "Waiting for models from " + m.ServerURL
}

func (m *Model) UpdateViewport() {
	msgs := m.Session.Messages()
	streaming := m.Session.Streaming()

	if len(msgs) == 0 && !streaming {
		m.Viewport.SetContent(GetWelcomeScreen(m.Viewport.Width, m.Viewport.Height, m.welcomeSubtitle()))
		return
	}

	parts := make([]string, 0, len(msgs)+1)
	for i, msg := range msgs {
		switch msg.Role {
		case models.RoleUser:
			parts = append(parts, FormatUserMessage(msg.Content, m.Viewport.Width, i == 0))
		case models.RoleAssistant:
			parts = append(parts, FormatAIMessage(assistantLabel(msg.Model), m.renderAssistant(msg.Content)))
		default:
			parts = append(parts, FormatSystemMessage(msg.Content, m.Viewport.Width))
		}
	}

	if streaming {
		parts = append(parts, FormatStreamingMessage(
			assistantLabel(m.Session.Model()),
			m.Session.Buffer(),
			m.Spinner.View(),
			m.Viewport.Width,
		))
	}

	m.Viewport.SetContent(strings.Join(parts, "\n\n"))
	m.Viewport.GotoBottom()
}

func (m *Model) renderAssistant(content string) string {
	if m.Renderer == nil {
		return content
	}
	if out, ok := m.rendered[content]; ok {
		return out
	}
	out := m.Renderer.Render(content)
	m.rendered[content] = out
	return out
}

func assistantLabel(id models.ModelID) string {
	if id == "" {
		return "ASSISTANT"
	}
	return strings.ToUpper(models.DisplayName(id))
}

func (m *Model) View() string {
	inputWidth := m.WindowWidth - 4
	boxStyle := styles.InputBoxStyle
	if !m.Session.CanSubmit() {
		boxStyle = styles.DisabledInputBoxStyle
	}
	inputBox := boxStyle.Width(inputWidth).Render(m.TextInput.View())

	chatContent := lipgloss.JoinVertical(lipgloss.Center,
		styles.TitleStyle.Render("OLLAMA CHAT"),
		"",
		m.Viewport.View(),
		"",
		inputBox,
	)
	chatArea := lipgloss.PlaceHorizontal(m.WindowWidth, lipgloss.Center, chatContent)
	content := lipgloss.JoinVertical(lipgloss.Left, chatArea, m.RenderBottomBar())

	var modal string
	switch {
	case m.HistoryOpen:
		modal = m.RenderHistorySelector()
	case m.ModelSelectorOpen:
		modal = m.RenderModelSelector()
	case m.ShortcutsOpen:
		modal = m.RenderShortcutsModal()
	default:
		return content
	}

	modal = styles.ModalStyle.Width(ModalWidth).Render(modal)
	return lipgloss.Place(
		m.WindowWidth,
		m.WindowHeight,
		lipgloss.Center,
		lipgloss.Center,
		modal,
	)
}
