package ingest

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"docrag/internal/embedder"
	"docrag/internal/scraper"
	"docrag/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFetcher struct {
	pages map[string]string
	delay map[string]time.Duration
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) (string, error) {
	if d, ok := f.delay[url]; ok {
		time.Sleep(d)
	}
	text, ok := f.pages[url]
	if !ok {
		return "", scraper.ErrFetch
	}
	return text, nil
}

type fakeEmbedder struct {
	failAfter int // fail on the call with this 1-based ordinal, 0 = never
	calls     int
}

func (e *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	e.calls++
	if e.failAfter > 0 && e.calls >= e.failAfter {
		return nil, embedder.ErrEmbedding
	}
	vecs := make([][]float32, len(texts))
	for i, t := range texts {
		vecs[i] = []float32{float32(len(t)), 1}
	}
	return vecs, nil
}

type fakeIndex struct {
	rebuilds int
	records  []store.Record
	info     store.RunInfo
	err      error
}

func (idx *fakeIndex) Rebuild(records []store.Record, info store.RunInfo) error {
	idx.rebuilds++
	idx.records = records
	idx.info = info
	return idx.err
}

func TestPipelineRun(t *testing.T) {
	t.Run("two documents produce four records", func(t *testing.T) {
		fetcher := &fakeFetcher{pages: map[string]string{
			"https://a": strings.Repeat("a", 2500),
			"https://b": strings.Repeat("b", 800),
		}}
		idx := &fakeIndex{}
		p := New(fetcher, &fakeEmbedder{}, idx, Config{
			URLs:       []string{"https://a", "https://b"},
			ChunkSize:  1000,
			EmbedModel: "mxbai-embed-large",
		}, nil)

		stats, err := p.Run(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 2, stats.URLsFetched)
		assert.Equal(t, 0, stats.URLsFailed)
		assert.Equal(t, 4, stats.Chunks)
		assert.NotEmpty(t, stats.RunID)

		require.Equal(t, 1, idx.rebuilds, "rebuild is a single atomic operation")
		require.Len(t, idx.records, 4)
		assert.Equal(t, "url0_chunk0", idx.records[0].ID)
		assert.Equal(t, "url0_chunk2", idx.records[2].ID)
		assert.Equal(t, "url1_chunk0", idx.records[3].ID)
		assert.Len(t, idx.records[2].Content, 500)
		assert.Len(t, idx.records[3].Content, 800)
		assert.Equal(t, "mxbai-embed-large", idx.info.EmbeddingModel)
		assert.Equal(t, stats.RunID, idx.info.RunID)

		for _, r := range idx.records {
			assert.NotEmpty(t, r.Embedding)
		}
	})

	t.Run("a failing URL is skipped, the rest are ingested", func(t *testing.T) {
		fetcher := &fakeFetcher{pages: map[string]string{
			"https://good": strings.Repeat("x", 1200),
		}}
		idx := &fakeIndex{}
		p := New(fetcher, &fakeEmbedder{}, idx, Config{
			URLs:      []string{"https://bad", "https://good"},
			ChunkSize: 1000,
		}, nil)

		stats, err := p.Run(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, stats.URLsFetched)
		assert.Equal(t, 1, stats.URLsFailed)

		require.Len(t, idx.records, 2)
		// docIndex still reflects the URL's position in the source list.
		assert.Equal(t, "url1_chunk0", idx.records[0].ID)
		assert.Equal(t, 1, idx.records[0].DocIndex)
	})

	t.Run("all URLs failing is a hard error", func(t *testing.T) {
		idx := &fakeIndex{}
		p := New(&fakeFetcher{}, &fakeEmbedder{}, idx, Config{
			URLs:      []string{"https://bad1", "https://bad2"},
			ChunkSize: 1000,
		}, nil)

		_, err := p.Run(context.Background())
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrNoDocuments))
		assert.Zero(t, idx.rebuilds, "index untouched after total fetch failure")
	})

	t.Run("embedding failure aborts before the index is touched", func(t *testing.T) {
		fetcher := &fakeFetcher{pages: map[string]string{
			"https://a": strings.Repeat("a", 50_000), // several embed batches
		}}
		idx := &fakeIndex{}
		p := New(fetcher, &fakeEmbedder{failAfter: 2}, idx, Config{
			URLs:      []string{"https://a"},
			ChunkSize: 1000,
		}, nil)

		_, err := p.Run(context.Background())
		require.Error(t, err)
		assert.True(t, errors.Is(err, embedder.ErrEmbedding))
		assert.Zero(t, idx.rebuilds, "no partially embedded run reaches the index")
	})

	t.Run("document order survives parallel fetching", func(t *testing.T) {
		fetcher := &fakeFetcher{
			pages: map[string]string{
				"https://slow": strings.Repeat("s", 100),
				"https://fast": strings.Repeat("f", 100),
			},
			delay: map[string]time.Duration{"https://slow": 30 * time.Millisecond},
		}
		idx := &fakeIndex{}
		p := New(fetcher, &fakeEmbedder{}, idx, Config{
			URLs:      []string{"https://slow", "https://fast"},
			ChunkSize: 1000,
			Workers:   2,
		}, nil)

		_, err := p.Run(context.Background())
		require.NoError(t, err)
		require.Len(t, idx.records, 2)
		assert.Equal(t, "https://slow", idx.records[0].SourceURL)
		assert.Equal(t, "https://fast", idx.records[1].SourceURL)
	})

	t.Run("progress callback fires", func(t *testing.T) {
		fetcher := &fakeFetcher{pages: map[string]string{"https://a": strings.Repeat("a", 100)}}
		var phases []string
		p := New(fetcher, &fakeEmbedder{}, &fakeIndex{}, Config{
			URLs:      []string{"https://a"},
			ChunkSize: 1000,
			OnProgress: func(phase string, done, total int) {
				phases = append(phases, phase)
			},
		}, nil)

		_, err := p.Run(context.Background())
		require.NoError(t, err)
		assert.Contains(t, phases, "fetching sources")
		assert.Contains(t, phases, "embedding chunks")
	})
}
