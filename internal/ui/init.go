package ui

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"ollamachat/internal/db"
	"ollamachat/internal/logging"
	"ollamachat/internal/models"
	"ollamachat/internal/session"
	"ollamachat/internal/styles"
)

func NewModel(cfg Config) *Model {
	styles.InitTheme()
	theme := styles.CurrentTheme

	ti := textarea.New()
	ti.Placeholder = "Type a message..."
	ti.Prompt = "❯ "
	ti.ShowLineNumbers = false
	ti.CharLimit = 0
	ti.MaxHeight = 6
	ti.SetHeight(2)
	ti.SetWidth(80)
	ti.FocusedStyle.Prompt = lipgloss.NewStyle().Foreground(theme.Primary).Bold(true)
	ti.BlurredStyle.Prompt = lipgloss.NewStyle().Foreground(theme.TextMuted).Bold(true)
	ti.FocusedStyle.Placeholder = lipgloss.NewStyle().Foreground(theme.TextMuted)
	ti.BlurredStyle.Placeholder = lipgloss.NewStyle().Foreground(theme.TextMuted)
	ti.FocusedStyle.CursorLine = lipgloss.NewStyle()
	ti.BlurredStyle.CursorLine = lipgloss.NewStyle()
	ti.Blur()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(theme.Primary)

	m := &Model{
		TextInput:      ti,
		Viewport:       viewport.New(60, 15),
		ModelViewport:  viewport.New(ModalWidth-4, 15),
		Spinner:        sp,
		Directory:      cfg.Directory,
		DB:             cfg.Archive,
		Logger:         logging.Component(cfg.Logger, "ui"),
		ServerURL:      cfg.ServerURL,
		RenderStyle:    cfg.RenderStyle,
		PreferredModel: cfg.Model,
		rendered:       make(map[string]string),
	}
	m.Session = session.New(cfg.Dialer,
		session.WithLogger(cfg.Logger),
		session.WithFinalizedHook(m.archive),
	)
	return m
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		m.TextInput.Cursor.BlinkCmd(),
		m.Spinner.Tick,
		m.fetchModelsCmd(false),
	)
}

// Close releases the socket and the archive.
func (m *Model) Close() error {
	m.Session.Stop()
	if m.DB != nil {
		return m.DB.Close()
	}
	return nil
}

func NewProgram(cfg Config) (*tea.Program, *Model) {
	m := NewModel(cfg)
	p := tea.NewProgram(m, tea.WithAltScreen())
	m.Program = p
	return p, m
}

// archive stores a finalized message when the archive is enabled.
func (m *Model) archive(msg models.Message) {
	if m.DB == nil {
		return
	}
	if err := db.InsertMessage(m.DB, m.Session.ID(), msg, time.Now().Unix()); err != nil {
		m.Logger.Warn().Err(err).Str("role", msg.Role).Msg("Failed to archive message")
	}
}
