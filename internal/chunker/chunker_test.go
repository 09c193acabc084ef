package chunker

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit(t *testing.T) {
	t.Run("reconstructs original text", func(t *testing.T) {
		doc := Document{URL: "https://example.com/notes", Text: strings.Repeat("abcdefghij", 123) + "tail"}
		for _, size := range []int{1, 7, 100, 1000, 5000} {
			chunks := Split(doc, 0, size)
			var sb strings.Builder
			for i, c := range chunks {
				assert.Equal(t, i, c.ChunkIndex)
				sb.WriteString(c.Content)
			}
			assert.Equal(t, doc.Text, sb.String(), "chunk size %d", size)
		}
	})

	t.Run("empty document yields no chunks", func(t *testing.T) {
		chunks := Split(Document{URL: "https://example.com"}, 0, 1000)
		assert.Empty(t, chunks)
	})

	t.Run("final chunk holds the remainder", func(t *testing.T) {
		doc := Document{URL: "u", Text: strings.Repeat("x", 2500)}
		chunks := Split(doc, 0, 1000)
		require.Len(t, chunks, 3)
		assert.Len(t, chunks[0].Content, 1000)
		assert.Len(t, chunks[1].Content, 1000)
		assert.Len(t, chunks[2].Content, 500)
	})

	t.Run("windows count characters and keep multi-byte runes intact", func(t *testing.T) {
		// Typographic punctuation and accents are multi-byte in UTF-8; a
		// byte-offset window would split them mid-sequence.
		doc := Document{URL: "u", Text: strings.Repeat("naïve — résumé…", 100)}
		chunks := Split(doc, 0, 7)

		var sb strings.Builder
		for _, c := range chunks {
			assert.True(t, utf8.ValidString(c.Content), "chunk %s has invalid UTF-8", c.ID)
			assert.LessOrEqual(t, utf8.RuneCountInString(c.Content), 7)
			sb.WriteString(c.Content)
		}
		assert.Equal(t, doc.Text, sb.String())

		require.NotEmpty(t, chunks)
		assert.Equal(t, "naïve —", chunks[0].Content)
	})

	t.Run("text smaller than chunk size is a single chunk", func(t *testing.T) {
		chunks := Split(Document{URL: "u", Text: strings.Repeat("y", 800)}, 1, 1000)
		require.Len(t, chunks, 1)
		assert.Len(t, chunks[0].Content, 800)
	})

	t.Run("ids are unique across documents in a run", func(t *testing.T) {
		seen := map[string]bool{}
		for docIdx, text := range []string{strings.Repeat("a", 2500), strings.Repeat("b", 800)} {
			for _, c := range Split(Document{URL: "u", Text: text}, docIdx, 1000) {
				assert.False(t, seen[c.ID], "duplicate id %s", c.ID)
				seen[c.ID] = true
			}
		}
		assert.Len(t, seen, 4)
	})

	t.Run("id format", func(t *testing.T) {
		chunks := Split(Document{URL: "u", Text: "hello world"}, 2, 5)
		require.Len(t, chunks, 3)
		assert.Equal(t, "url2_chunk0", chunks[0].ID)
		assert.Equal(t, "url2_chunk2", chunks[2].ID)
	})

	t.Run("carries provenance", func(t *testing.T) {
		chunks := Split(Document{URL: "https://example.com/guide", Text: "abc"}, 3, 10)
		require.Len(t, chunks, 1)
		assert.Equal(t, "https://example.com/guide", chunks[0].SourceURL)
		assert.Equal(t, 3, chunks[0].DocIndex)
		assert.Equal(t, 0, chunks[0].ChunkIndex)
	})

	t.Run("deterministic", func(t *testing.T) {
		doc := Document{URL: "u", Text: strings.Repeat("deterministic?", 50)}
		assert.Equal(t, Split(doc, 0, 64), Split(doc, 0, 64))
	})
}
