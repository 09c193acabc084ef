package rag

import (
	"context"
	"fmt"
	"strings"

	"docrag/internal/llm"
	"docrag/internal/store"
)

const systemPrompt = `You are a Tech Documentation AI Agent.

You must answer strictly from the provided documentation context.
If the context is empty or insufficient, say so clearly.
Never hallucinate APIs, configs, or behaviors.`

const questionTemplate = `Based on the following documentation:

%s

Answer this question: %s`

// emptyContextMarker is what the model sees when retrieval produced nothing.
// The model is told explicitly that context is empty rather than being left
// to answer from prior knowledge.
const emptyContextMarker = "(no documentation context was retrieved)"

// QueryEmbedder embeds a single question text.
type QueryEmbedder interface {
	EmbedSingle(ctx context.Context, text string) ([]float32, error)
}

// Searcher is the read side of the embedding index.
type Searcher interface {
	Search(queryEmbedding []float32, k int) ([]store.SearchResult, error)
	Count() (int, error)
}

// Generator produces an answer from a prompt conversation.
type Generator interface {
	Generate(ctx context.Context, messages []llm.Message) (string, error)
}

// Retriever answers "which chunks are relevant to this question" with a
// fixed top-k policy.
type Retriever struct {
	emb QueryEmbedder
	idx Searcher
	k   int
}

// NewRetriever creates a retriever returning at most k chunks per question.
func NewRetriever(emb QueryEmbedder, idx Searcher, k int) *Retriever {
	if k < 1 {
		k = 5
	}
	return &Retriever{emb: emb, idx: idx, k: k}
}

// Retrieve embeds the question and returns the most similar chunks, best
// first, with scores projected away. An empty index yields an empty result
// and no error — "insufficient context" is the composer's condition to
// report, not a failure.
func (r *Retriever) Retrieve(ctx context.Context, question string) ([]store.Record, error) {
	count, err := r.idx.Count()
	if err != nil {
		return nil, fmt.Errorf("count records: %w", err)
	}
	if count == 0 {
		return nil, nil
	}

	vec, err := r.emb.EmbedSingle(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}

	results, err := r.idx.Search(vec, r.k)
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}

	records := make([]store.Record, len(results))
	for i, res := range results {
		records[i] = res.Record
	}
	return records, nil
}

// Composer formats retrieved chunks and a question into a grounded prompt
// and delegates to the generation service.
type Composer struct {
	gen Generator
}

// NewComposer creates a composer over the given generator.
func NewComposer(gen Generator) *Composer {
	return &Composer{gen: gen}
}

// BuildContext joins chunk contents in ranked order, separated by blank
// lines. Empty input produces the explicit empty-context marker.
func BuildContext(records []store.Record) string {
	if len(records) == 0 {
		return emptyContextMarker
	}
	parts := make([]string, len(records))
	for i, r := range records {
		parts[i] = r.Content
	}
	return strings.Join(parts, "\n\n")
}

// Answer sends one stateless request to the generation service: a fixed
// system directive plus a user message embedding the context and question.
// Generation failures propagate unchanged; there is no fallback answer.
func (c *Composer) Answer(ctx context.Context, question string, records []store.Record) (string, error) {
	messages := []llm.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: fmt.Sprintf(questionTemplate, BuildContext(records), question)},
	}
	return c.gen.Generate(ctx, messages)
}

// Response is the outcome of one grounded question: the generated answer and
// the chunks it was grounded on, for display or inspection.
type Response struct {
	Answer  string
	Context []store.Record
}

// Agent ties retrieval and composition together for the front-ends.
type Agent struct {
	retriever *Retriever
	composer  *Composer
}

// NewAgent creates an agent over the given retriever and composer.
func NewAgent(retriever *Retriever, composer *Composer) *Agent {
	return &Agent{retriever: retriever, composer: composer}
}

// Retrieve exposes raw retrieval for front-ends that only display context.
func (a *Agent) Retrieve(ctx context.Context, question string) ([]store.Record, error) {
	return a.retriever.Retrieve(ctx, question)
}

// Answer retrieves once and reuses the result for both the response context
// and the prompt, so displayed context always matches what the answer was
// grounded on. When generation fails, the retrieved context is still
// returned alongside the error for inspection.
func (a *Agent) Answer(ctx context.Context, question string) (*Response, error) {
	records, err := a.retriever.Retrieve(ctx, question)
	if err != nil {
		return nil, err
	}

	answer, err := a.composer.Answer(ctx, question, records)
	if err != nil {
		return &Response{Context: records}, err
	}
	return &Response{Answer: answer, Context: records}, nil
}
