package scraper

import (
	"context"
	"errors"
	"fmt"
	"html"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"
)

// ErrFetch marks per-URL fetch failures: transport errors, timeouts, and
// non-2xx responses. Callers check it with errors.Is and decide whether to
// skip the page or abort.
var ErrFetch = errors.New("fetch failed")

// maxBodyBytes caps how much of a page we read (8 MB). Documentation pages
// are far smaller; anything bigger is not worth embedding.
const maxBodyBytes = 8 << 20

// Scraper fetches documentation pages over HTTP and reduces them to the
// visible body text.
type Scraper struct {
	client *http.Client
}

// New creates a scraper with a sane request timeout.
func New() *Scraper {
	return &Scraper{
		client: &http.Client{
			Timeout: 20 * time.Second,
		},
	}
}

// NewWithClient creates a scraper using the provided HTTP client.
func NewWithClient(client *http.Client) *Scraper {
	return &Scraper{client: client}
}

// Fetch downloads the page at url and returns its visible text with markup,
// scripts, styles, and chrome (nav/footer/header) stripped. Any HTTP-level
// failure wraps ErrFetch.
func (s *Scraper) Fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("%w: build request for %s: %v", ErrFetch, url, err)
	}
	req.Header.Set("User-Agent", "docrag/1.0")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: get %s: %v", ErrFetch, url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: %s returned %d", ErrFetch, url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("%w: read %s: %v", ErrFetch, url, err)
	}

	return ExtractText(string(body)), nil
}

// Pre-compiled patterns for HTML cleanup.
var (
	scriptTag    = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	styleTag     = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
	noscriptTag  = regexp.MustCompile(`(?is)<noscript[^>]*>.*?</noscript>`)
	headTag      = regexp.MustCompile(`(?is)<head[^>]*>.*?</head>`)
	svgTag       = regexp.MustCompile(`(?is)<svg[^>]*>.*?</svg>`)
	navTag       = regexp.MustCompile(`(?is)<nav[^>]*>.*?</nav>`)
	footerTag    = regexp.MustCompile(`(?is)<footer[^>]*>.*?</footer>`)
	headerTag    = regexp.MustCompile(`(?is)<header[^>]*>.*?</header>`)
	htmlComments = regexp.MustCompile(`(?s)<!--.*?-->`)
	mainTag      = regexp.MustCompile(`(?is)<main[^>]*>(.*?)</main>`)
	bodyTag      = regexp.MustCompile(`(?is)<body[^>]*>(.*)</body>`)

	closeBlockTags = regexp.MustCompile(`(?i)</(p|div|h[1-6]|li|tr|blockquote|pre|table|section|article)>`)
	brTags         = regexp.MustCompile(`(?i)<(br|hr)\s*/?>`)
	allTags        = regexp.MustCompile(`<[^>]+>`)
	multiSpaces    = regexp.MustCompile(`[ \t]+`)
	multiNewlines  = regexp.MustCompile(`\n{3,}`)
)

// ExtractText strips an HTML page down to its visible text. Scripts, styles,
// and page chrome are removed first; if the page has a <main> element only
// its contents are kept, otherwise the whole <body> is used. Block-level
// closing tags become newlines so the text keeps its rough structure.
func ExtractText(raw string) string {
	text := htmlComments.ReplaceAllString(raw, "")
	text = scriptTag.ReplaceAllString(text, "")
	text = styleTag.ReplaceAllString(text, "")
	text = noscriptTag.ReplaceAllString(text, "")
	text = headTag.ReplaceAllString(text, "")
	text = svgTag.ReplaceAllString(text, "")
	text = navTag.ReplaceAllString(text, "")
	text = footerTag.ReplaceAllString(text, "")
	text = headerTag.ReplaceAllString(text, "")

	// Narrow to the main content region when the page marks one.
	if m := mainTag.FindStringSubmatch(text); len(m) > 1 {
		text = m[1]
	} else if m := bodyTag.FindStringSubmatch(text); len(m) > 1 {
		text = m[1]
	}

	text = closeBlockTags.ReplaceAllString(text, "\n")
	text = brTags.ReplaceAllString(text, "\n")
	text = allTags.ReplaceAllString(text, "")
	text = html.UnescapeString(text)

	text = multiSpaces.ReplaceAllString(text, " ")

	// Trim trailing spaces per line, then collapse blank runs.
	lines := strings.Split(text, "\n")
	for i := range lines {
		lines[i] = strings.TrimSpace(lines[i])
	}
	text = strings.Join(lines, "\n")
	text = multiNewlines.ReplaceAllString(text, "\n\n")

	return strings.TrimSpace(text)
}
