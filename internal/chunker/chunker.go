package chunker

import "fmt"

// Document is one fetched documentation page before chunking. It only lives
// for the duration of an ingestion run.
type Document struct {
	URL  string
	Text string
}

// Chunk is a contiguous slice of a document's text, the unit of embedding
// and retrieval.
type Chunk struct {
	ID         string
	SourceURL  string
	DocIndex   int
	ChunkIndex int
	Content    string
}

// Split cuts the document text into consecutive, non-overlapping windows of
// chunkSize characters. The final window holds whatever remains and may be
// shorter. An empty document produces no chunks. Concatenating the returned
// contents in order reproduces the input text exactly.
//
// Windows are cut at fixed offsets with no awareness of sentence or paragraph
// boundaries; chunks may split mid-sentence. That is a deliberate simplicity
// tradeoff, not something for callers to work around.
func Split(doc Document, docIndex, chunkSize int) []Chunk {
	if chunkSize < 1 || len(doc.Text) == 0 {
		return nil
	}

	// Windows count characters, not bytes: slicing runes keeps multi-byte
	// sequences intact at chunk edges.
	runes := []rune(doc.Text)

	chunks := make([]Chunk, 0, (len(runes)+chunkSize-1)/chunkSize)
	for start := 0; start < len(runes); start += chunkSize {
		end := start + chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		idx := start / chunkSize
		chunks = append(chunks, Chunk{
			ID:         ChunkID(docIndex, idx),
			SourceURL:  doc.URL,
			DocIndex:   docIndex,
			ChunkIndex: idx,
			Content:    string(runes[start:end]),
		})
	}
	return chunks
}

// ChunkID derives the stable identifier for a chunk from its document and
// chunk positions. The format is fixed so IDs are reproducible across runs
// over the same source list.
func ChunkID(docIndex, chunkIndex int) string {
	return fmt.Sprintf("url%d_chunk%d", docIndex, chunkIndex)
}
