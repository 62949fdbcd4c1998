// Package diagnosis sequences one site diagnosis: fetch the homepage, pick
// and fetch a bounded set of subpages, classify everything, aggregate the
// site profile, and score it.
package diagnosis

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/sync/errgroup"

	"github.com/Ciras-Inc/ciras-site/packages/classifier"
	"github.com/Ciras-Inc/ciras-site/packages/domain"
	"github.com/Ciras-Inc/ciras-site/packages/fetcher"
	"github.com/Ciras-Inc/ciras-site/packages/links"
	"github.com/Ciras-Inc/ciras-site/packages/metrics"
	"github.com/Ciras-Inc/ciras-site/packages/profile"
	"github.com/Ciras-Inc/ciras-site/packages/scoring"
)

type Strategy string

const (
	// StrategyBroad ranks every discovered link by the keyword-weight table
	// and crawls the top slice.
	StrategyBroad Strategy = "broad"
	// StrategyTargeted fills one slot per priority bucket, topping up from
	// navigation links.
	StrategyTargeted Strategy = "targeted"
)

// BroadSubpageLimit is how many subpages the broad strategy fetches.
const BroadSubpageLimit = 9

const excerptRunes = 200

const (
	errInvalidURL  = "URL format is invalid"
	errUnreachable = "could not reach the site"
)

type Orchestrator struct {
	fetcher     *fetcher.Fetcher
	strategy    Strategy
	concurrency int
	now         func() time.Time
}

type Option func(*Orchestrator)

// WithClock overrides the clock used for copyright-freshness scoring.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

func WithConcurrency(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

func New(f *fetcher.Fetcher, strategy Strategy, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		fetcher:     f,
		strategy:    strategy,
		concurrency: BroadSubpageLimit,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Diagnose runs the full pipeline for one URL. The homepage fetch is the
// only fatal path; every subpage failure is recorded and tolerated.
func (o *Orchestrator) Diagnose(ctx context.Context, rawURL string) *domain.CrawlResult {
	target, err := NormalizeURL(rawURL)
	if err != nil {
		slog.Info("Rejected malformed diagnosis URL", "input", rawURL, "error", err)
		return &domain.CrawlResult{Error: errInvalidURL}
	}

	fetchStart := time.Now()
	home, err := o.fetcher.Fetch(ctx, target)
	metrics.PageFetchDuration.WithLabelValues("homepage").Observe(time.Since(fetchStart).Seconds())
	if err != nil {
		slog.Info("Homepage fetch failed", "url", target, "error", err)
		return &domain.CrawlResult{Error: errUnreachable}
	}

	selected := o.selectSubpages(home)
	signals, statuses := o.fetchSubpages(ctx, selected)

	pages := []domain.ClassifiedPage{classifier.ClassifyPage(home)}
	for _, sig := range signals {
		if sig != nil {
			pages = append(pages, classifier.ClassifyPage(sig))
		}
	}

	siteProfile := profile.Build(pages)
	report := scoring.Score(siteProfile, home, o.now())

	result := assemble(home, pages, siteProfile, report)
	if o.strategy == StrategyTargeted {
		result.PageStatuses = statuses
	}

	slog.Info("Diagnosis finished",
		"url", home.URL,
		"pages", len(pages),
		"score", report.Total,
	)
	return result
}

// selectSubpages extracts internal links from the homepage markup and
// applies the configured selection strategy.
func (o *Orchestrator) selectSubpages(home *domain.PageSignal) []domain.LinkCandidate {
	base, err := url.Parse(home.URL)
	if err != nil {
		return nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(home.HTML))
	if err != nil {
		return nil
	}

	candidates := links.Extract(doc, base)

	if o.strategy == StrategyTargeted {
		nav := links.ExtractNav(doc, base)
		return links.SelectTargets(candidates, nav, links.TargetLimit)
	}

	ranked := links.Prioritize(candidates)
	if len(ranked) > BroadSubpageLimit {
		ranked = ranked[:BroadSubpageLimit]
	}
	return ranked
}

// fetchSubpages fetches the selected links concurrently. Failures never
// cancel siblings; each slot settles independently and is paired back to its
// originating candidate for status reporting.
func (o *Orchestrator) fetchSubpages(ctx context.Context, selected []domain.LinkCandidate) ([]*domain.PageSignal, []domain.PageStatus) {
	signals := make([]*domain.PageSignal, len(selected))
	statuses := make([]domain.PageStatus, len(selected))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(o.concurrency)

	for i, candidate := range selected {
		g.Go(func() error {
			fetchStart := time.Now()
			sig, err := o.fetcher.Fetch(gCtx, candidate.URL)
			metrics.PageFetchDuration.WithLabelValues("subpage").Observe(time.Since(fetchStart).Seconds())
			status := domain.PageStatus{URL: candidate.URL, Label: candidate.Label, Status: domain.FetchSucceeded}
			if err != nil {
				slog.Debug("Subpage fetch failed", "url", candidate.URL, "error", err)
				status.Status = domain.FetchFailed
			} else {
				signals[i] = sig
			}
			statuses[i] = status
			return nil
		})
	}
	_ = g.Wait()

	return signals, statuses
}

func assemble(home *domain.PageSignal, pages []domain.ClassifiedPage, siteProfile domain.SiteProfile, report domain.ScoreReport) *domain.CrawlResult {
	summaries := make([]domain.PageSummary, len(pages))
	for i, page := range pages {
		summaries[i] = domain.PageSummary{
			URL:      page.Signal.URL,
			Category: page.Category,
			Title:    page.Signal.Title,
			Excerpt:  excerpt(page.Signal.TextContent),
		}
	}

	return &domain.CrawlResult{
		Success:         true,
		FinalURL:        home.URL,
		Title:           home.Title,
		MetaDescription: home.MetaDescription,
		IsHTTPS:         home.IsHTTPS,
		HasViewport:     home.HasViewport,
		HasJSONLD:       home.HasJSONLD,
		JSONLDTypes:     home.JSONLDTypes,
		HeadingStruct: domain.HeadingStructure{
			H1: home.H1Count,
			H2: home.H2Count,
			H3: home.H3Count,
		},
		HasCanonical:  home.HasCanonical,
		InternalLinks: home.InternalLinks,
		PageSize:      home.PageSize,
		CopyrightYear: home.CopyrightYear,
		ContentLength: home.ContentLength(),
		TotalPages:    len(pages),
		Pages:         summaries,
		SiteProfile:   &siteProfile,
		Scores:        report.Categories,
		TotalScore:    report.Total,
	}
}

func excerpt(text string) string {
	count := 0
	for i := range text {
		if count == excerptRunes {
			return text[:i]
		}
		count++
	}
	return text
}

var schemeRe = regexp.MustCompile(`(?i)^https?://`)

// NormalizeURL turns user input into an absolute URL, defaulting to https
// when no scheme was given.
func NormalizeURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("empty url")
	}
	if !schemeRe.MatchString(raw) {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if u.Host == "" || !strings.Contains(u.Host, ".") && u.Hostname() != "localhost" {
		return "", fmt.Errorf("invalid host %q", u.Host)
	}
	return u.String(), nil
}
