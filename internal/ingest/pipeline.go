package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"docrag/internal/chunker"
	"docrag/internal/store"

	"github.com/google/uuid"
)

// embedBatchSize bounds how many chunk texts go to the embedding service per
// request.
const embedBatchSize = 32

// ErrNoDocuments is returned when every configured URL failed to fetch.
// Partial coverage is acceptable; zero coverage is not.
var ErrNoDocuments = errors.New("no documents could be ingested")

// Fetcher retrieves the visible text of a documentation page.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Embedder turns a batch of texts into vectors, one per input, in order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Index receives the finished records in one atomic replacement.
type Index interface {
	Rebuild(records []store.Record, info store.RunInfo) error
}

// ProgressFunc reports pipeline progress to an observing front-end.
type ProgressFunc func(phase string, done, total int)

// Config holds the pipeline configuration.
type Config struct {
	URLs       []string
	ChunkSize  int
	Workers    int
	EmbedModel string
	OnProgress ProgressFunc
}

// Stats reports the outcome of one ingestion run.
type Stats struct {
	RunID       string
	URLsTotal   int
	URLsFetched int
	URLsFailed  int
	Chunks      int
	Elapsed     time.Duration
}

// Pipeline runs one full ingestion pass: fetch and chunk every configured
// URL, embed all chunks, then atomically rebuild the index. Fetching and
// chunking run in parallel across documents; the rebuild is a single
// operation over the whole set, so the index is never a union of runs.
type Pipeline struct {
	fetcher  Fetcher
	embedder Embedder
	index    Index
	cfg      Config
	log      *slog.Logger
}

// New creates a pipeline over the given collaborators.
func New(f Fetcher, e Embedder, idx Index, cfg Config, log *slog.Logger) *Pipeline {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if log == nil {
		log = slog.Default()
	}
	return &Pipeline{fetcher: f, embedder: e, index: idx, cfg: cfg, log: log}
}

// Run executes the ingestion pass. Per-URL fetch failures are logged and
// skipped; an embedding failure aborts the run before the index is touched,
// so a failed run leaves the previous index in place.
func (p *Pipeline) Run(ctx context.Context) (*Stats, error) {
	start := time.Now()
	stats := &Stats{
		RunID:     uuid.NewString(),
		URLsTotal: len(p.cfg.URLs),
	}

	// Fetch and chunk in parallel. Each worker writes only its own slot, so
	// document order (and with it docIndex) is preserved without locking.
	perDoc := make([][]chunker.Chunk, len(p.cfg.URLs))
	fetchErrs := make([]error, len(p.cfg.URLs))

	var fetched int
	var mu sync.Mutex
	var wg sync.WaitGroup
	work := make(chan int)

	for range p.cfg.Workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range work {
				url := p.cfg.URLs[i]
				text, err := p.fetcher.Fetch(ctx, url)
				if err != nil {
					fetchErrs[i] = err
					p.log.Warn("skipping source", "url", url, "error", err)
					continue
				}
				perDoc[i] = chunker.Split(chunker.Document{URL: url, Text: text}, i, p.cfg.ChunkSize)

				mu.Lock()
				fetched++
				done := fetched
				mu.Unlock()
				p.progress("fetching sources", done, len(p.cfg.URLs))
			}
		}()
	}
	for i := range p.cfg.URLs {
		work <- i
	}
	close(work)
	wg.Wait()

	for _, err := range fetchErrs {
		if err != nil {
			stats.URLsFailed++
		}
	}
	stats.URLsFetched = stats.URLsTotal - stats.URLsFailed
	if stats.URLsFetched == 0 {
		stats.Elapsed = time.Since(start)
		return stats, fmt.Errorf("%w: all %d sources failed", ErrNoDocuments, stats.URLsTotal)
	}

	var chunks []chunker.Chunk
	for _, dc := range perDoc {
		chunks = append(chunks, dc...)
	}
	stats.Chunks = len(chunks)

	// Embed everything before touching the store. A partially embedded run
	// must never reach the index.
	records := make([]store.Record, 0, len(chunks))
	for i := 0; i < len(chunks); i += embedBatchSize {
		end := min(i+embedBatchSize, len(chunks))
		batch := chunks[i:end]

		texts := make([]string, len(batch))
		for j, c := range batch {
			texts[j] = c.Content
		}
		vecs, err := p.embedder.Embed(ctx, texts)
		if err != nil {
			stats.Elapsed = time.Since(start)
			return stats, fmt.Errorf("embed chunks %d-%d: %w", i, end-1, err)
		}
		for j, c := range batch {
			records = append(records, store.Record{
				ID:         c.ID,
				SourceURL:  c.SourceURL,
				DocIndex:   c.DocIndex,
				ChunkIndex: c.ChunkIndex,
				Content:    c.Content,
				Embedding:  vecs[j],
			})
		}
		p.progress("embedding chunks", end, len(chunks))
	}

	if err := p.index.Rebuild(records, store.RunInfo{
		RunID:          stats.RunID,
		EmbeddingModel: p.cfg.EmbedModel,
	}); err != nil {
		stats.Elapsed = time.Since(start)
		return stats, fmt.Errorf("rebuild index: %w", err)
	}

	stats.Elapsed = time.Since(start)
	p.log.Info("ingestion complete",
		"run_id", stats.RunID,
		"urls_fetched", stats.URLsFetched,
		"urls_failed", stats.URLsFailed,
		"chunks", stats.Chunks,
		"elapsed", stats.Elapsed.Round(time.Millisecond),
	)
	return stats, nil
}

func (p *Pipeline) progress(phase string, done, total int) {
	if p.cfg.OnProgress != nil {
		p.cfg.OnProgress(phase, done, total)
	}
}
