package tui

import (
	"fmt"

	"docrag/internal/config"

	tea "github.com/charmbracelet/bubbletea"
)

// ViewState represents which screen is active.
type ViewState int

const (
	ViewWelcome ViewState = iota
	ViewIngesting
	ViewChat
)

// programRef is an indirect pointer to the tea.Program so background
// goroutines can send messages. It must be set after tea.NewProgram returns
// but before Run.
type programRef struct {
	p *tea.Program
}

// Config holds configuration passed from the CLI layer.
type Config struct {
	App *config.Config

	// program is set internally so background goroutines can send messages.
	program *programRef
}

// Model is the top-level Bubble Tea model.
type Model struct {
	state  ViewState
	config Config
	width  int
	height int

	welcome   welcomeModel
	ingesting ingestingModel
	chat      chatModel
}

// New creates a new TUI model with the given config.
func New(cfg Config) Model {
	return Model{
		state:  ViewWelcome,
		config: cfg,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(checkIndex(m.config), checkOllama(m.config))
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.state == ViewChat {
			var c tea.Cmd
			m.chat, c = m.chat.Update(msg)
			return m, c
		}
		return m, nil

	case tea.KeyMsg:
		// Global quit.
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "q":
			if m.state != ViewChat {
				return m, tea.Quit
			}
		}
	}

	var cmd tea.Cmd

	switch m.state {
	case ViewWelcome:
		m.welcome, cmd = m.welcome.Update(msg)
		if cmd != nil {
			return m, cmd
		}
		if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEnter && m.welcome.ready {
			if m.welcome.status == indexReady && !m.welcome.reingest {
				cmd := m.transitionToChat()
				return m, cmd
			}
			m.state = ViewIngesting
			m.ingesting = newIngestingModel()
			return m, tea.Batch(m.ingesting.spinner.Tick, runIngest(m.config))
		}
		// "r" on the welcome screen forces a fresh ingestion run.
		if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.String() == "r" && m.welcome.ready {
			m.welcome.reingest = true
			m.state = ViewIngesting
			m.ingesting = newIngestingModel()
			return m, tea.Batch(m.ingesting.spinner.Tick, runIngest(m.config))
		}

	case ViewIngesting:
		m.ingesting, cmd = m.ingesting.Update(msg)
		if cmd != nil {
			return m, cmd
		}
		if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEnter && m.ingesting.done && m.ingesting.err == nil {
			cmd := m.transitionToChat()
			return m, cmd
		}

	case ViewChat:
		m.chat, cmd = m.chat.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m *Model) transitionToChat() tea.Cmd {
	chat, err := newChatModel(m.config)
	if err != nil {
		if m.state == ViewIngesting {
			m.ingesting.err = err
		} else {
			m.welcome.err = err
		}
		return nil
	}
	m.chat = chat
	m.state = ViewChat
	if m.width > 0 {
		m.chat.initViewport(m.width, m.height)
	}
	return nil
}

func (m Model) View() string {
	switch m.state {
	case ViewWelcome:
		return m.welcome.View(m.width, m.height)
	case ViewIngesting:
		return m.ingesting.View(m.width, m.height)
	case ViewChat:
		return m.chat.View(m.width, m.height)
	}
	return ""
}

// Run starts the TUI and blocks until it exits.
func Run(cfg Config) error {
	cfg.program = &programRef{}
	p := tea.NewProgram(New(cfg), tea.WithAltScreen())
	cfg.program.p = p

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run tui: %w", err)
	}
	return nil
}
