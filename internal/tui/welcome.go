package tui

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"docrag/internal/llm"
	"docrag/internal/store"

	tea "github.com/charmbracelet/bubbletea"
)

type indexStatus int

const (
	indexNotFound indexStatus = iota
	indexReady
	indexStale
)

type welcomeModel struct {
	status      indexStatus
	staleReason string
	chunks      int
	ready       bool // true once the check has completed
	reingest    bool
	err         error

	ollamaWarn string
}

// checkIndexMsg is sent after checking the index status.
type checkIndexMsg struct {
	status      indexStatus
	staleReason string
	chunks      int
	err         error
}

func checkIndex(cfg Config) tea.Cmd {
	return func() tea.Msg {
		dbPath := store.Path(cfg.App.DataDir, cfg.App.Collection)
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return checkIndexMsg{status: indexNotFound}
		}

		idx, err := store.Open(dbPath)
		if err != nil {
			return checkIndexMsg{status: indexNotFound, err: err}
		}
		defer idx.Close()

		lastModel, err := idx.Meta("embedding_model")
		if err != nil || lastModel == "" {
			return checkIndexMsg{status: indexNotFound}
		}

		if lastModel != cfg.App.EmbedModel {
			return checkIndexMsg{
				status:      indexStale,
				staleReason: fmt.Sprintf("embedding model changed: %s → %s", lastModel, cfg.App.EmbedModel),
			}
		}

		count, err := idx.Count()
		if err != nil || count == 0 {
			return checkIndexMsg{status: indexNotFound}
		}

		return checkIndexMsg{status: indexReady, chunks: count}
	}
}

// checkOllamaMsg reports whether the configured models are available.
type checkOllamaMsg struct {
	warn string
}

func checkOllama(cfg Config) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		models, err := llm.ListModels(ctx, cfg.App.OllamaURL)
		if err != nil {
			return checkOllamaMsg{warn: fmt.Sprintf("Ollama unreachable at %s", cfg.App.OllamaURL)}
		}

		available := make(map[string]bool, len(models))
		for _, m := range models {
			available[m.Name] = true
			available[trimTag(m.Name)] = true
		}
		for _, want := range []string{cfg.App.EmbedModel, cfg.App.ChatModel} {
			if !available[want] && !available[trimTag(want)] {
				return checkOllamaMsg{warn: fmt.Sprintf("model %q not found, run: ollama pull %s", want, want)}
			}
		}
		return checkOllamaMsg{}
	}
}

// trimTag drops the ":tag" suffix so "llama3.2" matches "llama3.2:latest".
func trimTag(name string) string {
	base, _, _ := strings.Cut(name, ":")
	return base
}

func (m welcomeModel) Update(msg tea.Msg) (welcomeModel, tea.Cmd) {
	switch msg := msg.(type) {
	case checkIndexMsg:
		m.status = msg.status
		m.staleReason = msg.staleReason
		m.chunks = msg.chunks
		m.ready = true
	case checkOllamaMsg:
		m.ollamaWarn = msg.warn
	}
	return m, nil
}

func (m welcomeModel) View(width, height int) string {
	s := "\n"
	s += titleStyle.Render("  ◆ docrag") + "\n"
	s += subtitleStyle.Render("  Ask questions about your documentation set") + "\n\n"

	if !m.ready {
		s += dimStyle.Render("  Checking index...") + "\n"
		return s
	}

	switch m.status {
	case indexReady:
		s += successStyle.Render(fmt.Sprintf("  ✓ Index ready (%d chunks)", m.chunks)) + "\n"
	case indexNotFound:
		s += warnStyle.Render("  ✗ No index found") + "\n"
	case indexStale:
		s += warnStyle.Render("  ⚠ Index stale") + "\n"
		s += dimStyle.Render("    "+m.staleReason) + "\n"
	}

	if m.ollamaWarn != "" {
		s += warnStyle.Render("  ⚠ "+m.ollamaWarn) + "\n"
	}
	if m.err != nil {
		s += errorStyle.Render(fmt.Sprintf("  Error: %v", m.err)) + "\n"
	}

	s += "\n"
	if m.status == indexReady {
		s += dimStyle.Render("  Press Enter to start chatting, r to re-ingest, q to quit") + "\n"
	} else {
		s += dimStyle.Render("  Press Enter to ingest the documentation set, q to quit") + "\n"
	}
	return s
}
