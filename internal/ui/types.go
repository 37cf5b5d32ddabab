package ui

import (
	"database/sql"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"ollamachat/internal/directory"
	"ollamachat/internal/models"
	"ollamachat/internal/render"
	"ollamachat/internal/session"
)

const (
	MaxChatWidth = 100

	HistoryPageSize = 10
)

// ModalWidth is recomputed from the window size.
var ModalWidth = 60

// Config carries everything the program needs from the command line.
type Config struct {
	Directory *directory.Client
	Dialer    session.Dialer

	// Archive is nil unless the transcript archive is enabled.
	Archive *sql.DB

	Logger      zerolog.Logger
	RenderStyle string
	ServerURL   string

	// Model is preferred at startup when the bridge offers it.
	Model models.ModelID
}

type (
	modelsLoadedMsg struct {
		models  []models.ModelID
		err     error
		refresh bool
	}

	historiesMsg struct {
		model     models.ModelID
		histories []models.HistorySummary
		err       error
	}

	// openedMsg, closedMsg and frameMsg carry socket events back to Update,
	// tagged with the generation of the connection they belong to.
	openedMsg struct {
		gen  uint64
		conn session.Conn
	}

	closedMsg struct {
		gen uint64
		err error
	}

	frameMsg struct {
		gen  uint64
		conn session.Conn
		data []byte
	}
)

type Model struct {
	Viewport  viewport.Model
	TextInput textarea.Model
	Spinner   spinner.Model
	Renderer  *render.Renderer

	Session   *session.Session
	Directory *directory.Client
	DB        *sql.DB
	Logger    zerolog.Logger

	ServerURL   string
	RenderStyle string

	Models         []models.ModelID
	PreferredModel models.ModelID
	ModelsErr      error

	WindowWidth  int
	WindowHeight int

	ModelSelectorOpen  bool
	SelectedModelIndex int
	ModelViewport      viewport.Model

	HistoryOpen        bool
	HistorySelectedIdx int
	HistoryPage        int
	HistoryErr         error

	ShortcutsOpen bool

	// rendered caches glamour output per assistant message content.
	rendered map[string]string

	Program *tea.Program
}
