// Package fetcher retrieves a single page and reduces it to the signal set
// the scorer consumes. A fetch either yields a complete PageSignal or an
// error; there is no partially-filled record.
package fetcher

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/Ciras-Inc/ciras-site/packages/domain"
)

const DefaultMaxBodyBytes = 500_000

// SignalExtractor turns raw markup into a PageSignal. The production
// implementation scans with goquery; a real tokenizer could be swapped in
// without touching the orchestrator or the scorer.
type SignalExtractor interface {
	Extract(pageURL *url.URL, body []byte) (*domain.PageSignal, error)
}

type Fetcher struct {
	client    *http.Client
	extractor SignalExtractor
	userAgent string
	selfHost  string
	assetDir  string
	maxBody   int64
}

type Option func(*Fetcher)

// WithSelfHost serves pages for the given host from a local asset directory
// instead of the network, so diagnosing our own site never loops back
// through the edge.
func WithSelfHost(host, assetDir string) Option {
	return func(f *Fetcher) {
		f.selfHost = host
		f.assetDir = assetDir
	}
}

func WithUserAgent(ua string) Option {
	return func(f *Fetcher) { f.userAgent = ua }
}

func WithMaxBodyBytes(n int64) Option {
	return func(f *Fetcher) { f.maxBody = n }
}

func WithExtractor(e SignalExtractor) Option {
	return func(f *Fetcher) { f.extractor = e }
}

func WithClient(c *http.Client) Option {
	return func(f *Fetcher) { f.client = c }
}

func New(timeout time.Duration, opts ...Option) *Fetcher {
	f := &Fetcher{
		client:    &http.Client{Timeout: timeout},
		extractor: NewMarkupExtractor(),
		userAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		maxBody:   DefaultMaxBodyBytes,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch retrieves one absolute URL and extracts its signals. Every failure
// mode (network error, timeout, bad status, non-HTML body) comes back as an
// error for the caller to record; nothing here is fatal to a crawl.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*domain.PageSignal, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("invalid url %q", rawURL)
	}

	if f.selfHost != "" && strings.EqualFold(u.Host, f.selfHost) {
		return f.fetchLocal(u)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		slog.Debug("Fetch returned bad status code", "url", rawURL, "status_code", resp.StatusCode)
		return nil, fmt.Errorf("bad status code: %d", resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.Contains(strings.ToLower(contentType), "html") {
		slog.Debug("Content-Type is not HTML", "url", rawURL, "content_type", contentType)
		return nil, fmt.Errorf("content type is not HTML: %s", contentType)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBody))
	if err != nil {
		return nil, err
	}

	return f.extractor.Extract(resp.Request.URL, body)
}

// fetchLocal resolves the page against the configured asset directory.
// Directory-style paths map to their index.html.
func (f *Fetcher) fetchLocal(u *url.URL) (*domain.PageSignal, error) {
	p := path.Clean("/" + u.Path)
	if path.Ext(p) == "" {
		p = path.Join(p, "index.html")
	}
	full := filepath.Join(f.assetDir, filepath.FromSlash(p))
	if !strings.HasPrefix(full, filepath.Clean(f.assetDir)+string(os.PathSeparator)) {
		return nil, fmt.Errorf("asset path escapes root: %s", u.Path)
	}

	body, err := os.ReadFile(full)
	if err != nil {
		return nil, fmt.Errorf("self-host asset read: %w", err)
	}
	if int64(len(body)) > f.maxBody {
		body = body[:f.maxBody]
	}
	return f.extractor.Extract(u, body)
}
