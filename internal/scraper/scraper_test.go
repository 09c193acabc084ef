package scraper

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePage = `<!DOCTYPE html>
<html>
<head><title>Release Notes</title><style>body { color: red; }</style></head>
<body>
<header>Site header with a logo</header>
<nav><a href="/">Home</a><a href="/docs">Docs</a></nav>
<main>
<h1>Spring Boot 4.0 Release Notes</h1>
<p>JmsClient is now auto-configured.</p>
<script>trackPageView();</script>
<p>Jackson 3 &amp; Kotlin 2.2 are the new baselines.</p>
</main>
<footer>Copyright 2026</footer>
</body>
</html>`

func TestExtractText(t *testing.T) {
	text := ExtractText(samplePage)

	t.Run("keeps visible content", func(t *testing.T) {
		assert.Contains(t, text, "Spring Boot 4.0 Release Notes")
		assert.Contains(t, text, "JmsClient is now auto-configured.")
	})

	t.Run("strips chrome and markup", func(t *testing.T) {
		assert.NotContains(t, text, "Site header")
		assert.NotContains(t, text, "Home")
		assert.NotContains(t, text, "Copyright 2026")
		assert.NotContains(t, text, "trackPageView")
		assert.NotContains(t, text, "color: red")
		assert.NotContains(t, text, "<")
	})

	t.Run("decodes entities", func(t *testing.T) {
		assert.Contains(t, text, "Jackson 3 & Kotlin 2.2")
	})

	t.Run("falls back to body without main", func(t *testing.T) {
		got := ExtractText("<html><body><p>plain page</p></body></html>")
		assert.Equal(t, "plain page", got)
	})

	t.Run("block boundaries become newlines", func(t *testing.T) {
		got := ExtractText("<main><h1>Title</h1><p>First.</p><p>Second.</p></main>")
		assert.Equal(t, "Title\nFirst.\nSecond.", got)
	})
}

func TestFetch(t *testing.T) {
	t.Run("returns extracted text on 200", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(samplePage))
		}))
		defer srv.Close()

		text, err := New().Fetch(context.Background(), srv.URL)
		require.NoError(t, err)
		assert.Contains(t, text, "Release Notes")
		assert.NotContains(t, text, "<p>")
	})

	t.Run("non-2xx wraps ErrFetch", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "gone", http.StatusNotFound)
		}))
		defer srv.Close()

		_, err := New().Fetch(context.Background(), srv.URL)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrFetch))
	})

	t.Run("unreachable host wraps ErrFetch", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		srv.Close() // immediately, so the address refuses connections

		_, err := New().Fetch(context.Background(), srv.URL)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrFetch))
	})

	t.Run("honours context cancellation", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			<-r.Context().Done()
		}))
		defer srv.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := New().Fetch(ctx, srv.URL)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrFetch))
	})
}
