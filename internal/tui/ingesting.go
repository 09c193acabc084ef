package tui

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"docrag/internal/embedder"
	"docrag/internal/ingest"
	"docrag/internal/scraper"
	"docrag/internal/store"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

type ingestingModel struct {
	spinner   spinner.Model
	phase     string
	processed int
	total     int
	done      bool
	stats     *ingest.Stats
	err       error
}

func newIngestingModel() ingestingModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = selectedStyle
	return ingestingModel{
		spinner: sp,
		phase:   "Fetching documentation...",
	}
}

// ingestDoneMsg is sent when the ingestion run completes.
type ingestDoneMsg struct {
	stats *ingest.Stats
	err   error
}

// ingestProgressMsg is sent as the pipeline moves through its phases.
type ingestProgressMsg struct {
	phase string
	done  int
	total int
}

func runIngest(cfg Config) tea.Cmd {
	return func() tea.Msg {
		if err := os.MkdirAll(cfg.App.DataDir, 0o755); err != nil {
			return ingestDoneMsg{err: fmt.Errorf("create data directory: %w", err)}
		}

		idx, err := store.Open(store.Path(cfg.App.DataDir, cfg.App.Collection))
		if err != nil {
			return ingestDoneMsg{err: err}
		}
		defer idx.Close()

		// The pipeline logs per-URL failures; inside the TUI those go nowhere.
		log := slog.New(slog.NewTextHandler(io.Discard, nil))

		pipeline := ingest.New(
			scraper.New(),
			embedder.NewOllamaEmbedder(cfg.App.OllamaURL, cfg.App.EmbedModel),
			idx,
			ingest.Config{
				URLs:       cfg.App.SourceURLs,
				ChunkSize:  cfg.App.ChunkSize,
				EmbedModel: cfg.App.EmbedModel,
				OnProgress: func(phase string, done, total int) {
					if cfg.program != nil && cfg.program.p != nil {
						cfg.program.p.Send(ingestProgressMsg{phase: phase, done: done, total: total})
					}
				},
			},
			log,
		)

		stats, err := pipeline.Run(context.Background())
		if err != nil {
			return ingestDoneMsg{stats: stats, err: err}
		}
		return ingestDoneMsg{stats: stats}
	}
}

func (m ingestingModel) Update(msg tea.Msg) (ingestingModel, tea.Cmd) {
	switch msg := msg.(type) {
	case ingestDoneMsg:
		m.done = true
		m.stats = msg.stats
		m.err = msg.err
		return m, nil
	case ingestProgressMsg:
		m.phase = msg.phase
		m.processed = msg.done
		m.total = msg.total
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m ingestingModel) View(width, height int) string {
	s := "\n"
	s += titleStyle.Render("  Ingesting") + "\n\n"

	if m.done {
		if m.err != nil {
			s += errorStyle.Render(fmt.Sprintf("  Error: %v", m.err)) + "\n\n"
			s += dimStyle.Render("  Press q to quit.") + "\n"
			return s
		}
		s += successStyle.Render("  ✓ Ingestion complete!") + "\n\n"
		if m.stats != nil {
			s += fmt.Sprintf("  URLs: %d total, %d fetched, %d failed\n",
				m.stats.URLsTotal, m.stats.URLsFetched, m.stats.URLsFailed)
			s += fmt.Sprintf("  Chunks: %d\n", m.stats.Chunks)
		}
		s += "\n"
		s += dimStyle.Render("  Press Enter to start chatting") + "\n"
		return s
	}

	s += fmt.Sprintf("  %s %s\n", m.spinner.View(), m.phase)
	if m.total > 0 {
		s += fmt.Sprintf("  %d / %d\n", m.processed, m.total)
	}
	s += "\n"
	s += dimStyle.Render("  Embedding may take a while on first run...") + "\n"
	return s
}
