package rag

import (
	"context"
	"errors"
	"testing"

	"docrag/internal/embedder"
	"docrag/internal/llm"
	"docrag/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeQueryEmbedder struct {
	vec   []float32
	err   error
	calls int
}

func (f *fakeQueryEmbedder) EmbedSingle(context.Context, string) ([]float32, error) {
	f.calls++
	return f.vec, f.err
}

type fakeSearcher struct {
	results []store.SearchResult
	count   int
	gotK    int
}

func (f *fakeSearcher) Search(_ []float32, k int) ([]store.SearchResult, error) {
	f.gotK = k
	if k > len(f.results) {
		k = len(f.results)
	}
	return f.results[:k], nil
}

func (f *fakeSearcher) Count() (int, error) { return f.count, nil }

type fakeGenerator struct {
	answer   string
	err      error
	messages []llm.Message
}

func (f *fakeGenerator) Generate(_ context.Context, messages []llm.Message) (string, error) {
	f.messages = messages
	return f.answer, f.err
}

func someResults() []store.SearchResult {
	return []store.SearchResult{
		{Record: store.Record{ID: "url0_chunk0", Content: "JmsClient replaces JmsTemplate."}, Distance: 0.1},
		{Record: store.Record{ID: "url0_chunk1", Content: "Jackson 3 is the new baseline."}, Distance: 0.2},
	}
}

func TestRetriever(t *testing.T) {
	t.Run("projects scores away and keeps rank order", func(t *testing.T) {
		emb := &fakeQueryEmbedder{vec: []float32{1, 0}}
		idx := &fakeSearcher{results: someResults(), count: 2}
		r := NewRetriever(emb, idx, 5)

		records, err := r.Retrieve(context.Background(), "what replaces JmsTemplate?")
		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, "url0_chunk0", records[0].ID)
		assert.Equal(t, "url0_chunk1", records[1].ID)
		assert.Equal(t, 5, idx.gotK)
	})

	t.Run("empty index returns empty result without embedding", func(t *testing.T) {
		emb := &fakeQueryEmbedder{vec: []float32{1, 0}}
		r := NewRetriever(emb, &fakeSearcher{count: 0}, 5)

		records, err := r.Retrieve(context.Background(), "anything")
		assert.NoError(t, err)
		assert.Empty(t, records)
		assert.Zero(t, emb.calls, "no embedding call against an empty index")
	})

	t.Run("embedding failure propagates", func(t *testing.T) {
		emb := &fakeQueryEmbedder{err: embedder.ErrEmbedding}
		r := NewRetriever(emb, &fakeSearcher{count: 3, results: someResults()}, 5)

		_, err := r.Retrieve(context.Background(), "q")
		require.Error(t, err)
		assert.True(t, errors.Is(err, embedder.ErrEmbedding))
	})
}

func TestComposer(t *testing.T) {
	t.Run("builds grounded prompt from ranked chunks", func(t *testing.T) {
		gen := &fakeGenerator{answer: "JmsClient."}
		c := NewComposer(gen)

		records := []store.Record{
			{Content: "first chunk"},
			{Content: "second chunk"},
		}
		answer, err := c.Answer(context.Background(), "what is new?", records)
		require.NoError(t, err)
		assert.Equal(t, "JmsClient.", answer)

		require.Len(t, gen.messages, 2)
		assert.Equal(t, "system", gen.messages[0].Role)
		assert.Contains(t, gen.messages[0].Content, "strictly from the provided documentation context")
		assert.Equal(t, "user", gen.messages[1].Role)
		assert.Contains(t, gen.messages[1].Content, "first chunk\n\nsecond chunk")
		assert.Contains(t, gen.messages[1].Content, "Answer this question: what is new?")
	})

	t.Run("empty chunks yield an explicit empty-context marker", func(t *testing.T) {
		gen := &fakeGenerator{answer: "I don't have documentation for that."}
		c := NewComposer(gen)

		_, err := c.Answer(context.Background(), "what is new?", nil)
		require.NoError(t, err)

		require.Len(t, gen.messages, 2)
		assert.Contains(t, gen.messages[1].Content, emptyContextMarker)
		assert.NotEqual(t, "what is new?", gen.messages[1].Content,
			"the question must not be sent bare")
	})

	t.Run("generation failure propagates without a fallback answer", func(t *testing.T) {
		gen := &fakeGenerator{err: llm.ErrGeneration}
		c := NewComposer(gen)

		answer, err := c.Answer(context.Background(), "q", []store.Record{{Content: "ctx"}})
		require.Error(t, err)
		assert.True(t, errors.Is(err, llm.ErrGeneration))
		assert.Empty(t, answer)
	})
}

func TestAgent(t *testing.T) {
	t.Run("single retrieval feeds both context and answer", func(t *testing.T) {
		emb := &fakeQueryEmbedder{vec: []float32{1, 0}}
		idx := &fakeSearcher{results: someResults(), count: 2}
		gen := &fakeGenerator{answer: "grounded answer"}
		agent := NewAgent(NewRetriever(emb, idx, 5), NewComposer(gen))

		resp, err := agent.Answer(context.Background(), "question")
		require.NoError(t, err)
		assert.Equal(t, "grounded answer", resp.Answer)
		require.Len(t, resp.Context, 2)
		assert.Equal(t, 1, emb.calls, "retrieval runs exactly once per question")
		assert.Contains(t, gen.messages[1].Content, resp.Context[0].Content)
	})

	t.Run("generation failure keeps retrieved context inspectable", func(t *testing.T) {
		emb := &fakeQueryEmbedder{vec: []float32{1, 0}}
		idx := &fakeSearcher{results: someResults(), count: 2}
		gen := &fakeGenerator{err: llm.ErrGeneration}
		agent := NewAgent(NewRetriever(emb, idx, 5), NewComposer(gen))

		resp, err := agent.Answer(context.Background(), "question")
		require.Error(t, err)
		assert.True(t, errors.Is(err, llm.ErrGeneration))
		require.NotNil(t, resp)
		assert.Len(t, resp.Context, 2, "context still available when generation fails")
	})
}

func TestBuildContext(t *testing.T) {
	assert.Equal(t, emptyContextMarker, BuildContext(nil))
	assert.Equal(t, "a\n\nb", BuildContext([]store.Record{{Content: "a"}, {Content: "b"}}))
}
