package store

// Record is one indexed chunk: text, provenance, and its embedding vector.
// Records are owned by the index; everything else sees them read-only.
type Record struct {
	ID         string
	SourceURL  string
	DocIndex   int
	ChunkIndex int
	Content    string
	Embedding  []float32
}

// SearchResult is a record with its cosine distance to the query vector.
// Lower distance means more similar.
type SearchResult struct {
	Record   Record
	Distance float64
}

// SourceSummary is a lightweight per-document view of the collection.
type SourceSummary struct {
	URL      string
	DocIndex int
	Chunks   int
}

// RunInfo describes the ingestion run that produced the index contents.
type RunInfo struct {
	RunID          string
	EmbeddingModel string
}
