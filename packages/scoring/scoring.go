// Package scoring converts a site profile plus the homepage signals into
// four independent 25-point category scores. Every threshold is a hard
// boundary; given the same inputs the output never varies.
package scoring

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Ciras-Inc/ciras-site/packages/domain"
)

const CategoryMax = 25

// Score runs all four category scorers and sums their totals. now only
// feeds the copyright-freshness tier.
func Score(p domain.SiteProfile, home *domain.PageSignal, now time.Time) domain.ScoreReport {
	categories := []domain.ScoreCategory{
		ContentScore(p, home),
		TrustScore(p),
		MachineReadabilityScore(p, home),
		TechnicalScore(p, home, now),
	}

	report := domain.ScoreReport{Categories: categories}
	for _, c := range categories {
		report.Total += c.Score
		report.Max += c.Max
	}
	return report
}

// ContentScore rates content depth and clarity.
func ContentScore(p domain.SiteProfile, home *domain.PageSignal) domain.ScoreCategory {
	b := newBuilder("content")

	clarity := 0
	if utf8.RuneCountInString(home.Title) >= 10 {
		clarity += 3
	}
	if utf8.RuneCountInString(home.MetaDescription) >= 50 {
		clarity += 4
	}
	if home.HasPrice {
		clarity += 2
	}
	b.add("service_clarity", min(clarity, 7), 7)

	volume := 0
	switch {
	case p.TotalContentLength > 20000:
		volume = 6
	case p.TotalContentLength > 10000:
		volume = 4
	case p.TotalContentLength > 5000:
		volume = 2
	case p.TotalContentLength > 2000:
		volume = 1
	}
	b.add("content_volume", volume, 6)

	diversity := 0
	switch n := len(p.Categories); {
	case n >= 6:
		diversity = 6
	case n >= 4:
		diversity = 4
	case n >= 3:
		diversity = 3
	case n >= 2:
		diversity = 1
	}
	b.add("page_diversity", diversity, 6)

	b.addIf("faq", p.HasFAQ, 3)
	b.addIf("pricing", p.HasPricing, 3)

	return b.category()
}

// TrustScore rates credibility signals.
func TrustScore(p domain.SiteProfile) domain.ScoreCategory {
	b := newBuilder("trust")

	testimonials := 0
	if p.HasTestimonials {
		testimonials = 5
		if p.TestimonialPageCount >= 2 {
			testimonials += 3
		}
	}
	b.add("testimonials", testimonials, 8)

	company := 0
	if p.HasCompanyInfo {
		company += 3
	}
	if p.HasAddress {
		company += 2
	}
	if p.HasPhone {
		company++
	}
	b.add("company_info", company, 6)

	b.addIf("privacy_policy", p.HasPrivacyPolicy, 4)
	b.addIf("contact", p.HasContact, 4)

	fresh := 0
	if p.HasBlog {
		fresh = 2
		if p.BlogPostCount >= 3 {
			fresh++
		}
	}
	b.add("fresh_content", fresh, 3)

	return b.category()
}

// MachineReadabilityScore rates how well crawlers and parsers can consume
// the site.
func MachineReadabilityScore(p domain.SiteProfile, home *domain.PageSignal) domain.ScoreCategory {
	b := newBuilder("machine_readability")

	structured := 0
	if home.HasJSONLD {
		structured = 3
		if hasTypeLike(home.JSONLDTypes, "organization", "business") {
			structured += 2
		}
		if hasTypeLike(home.JSONLDTypes, "faqpage") {
			structured += 2
		}
		if hasTypeLike(home.JSONLDTypes, "service", "product") {
			structured++
		}
	}
	b.add("structured_data", structured, 8)

	headings := 0
	if home.H1Count >= 1 {
		headings += 2
	}
	if home.H2Count >= 3 {
		headings += 2
	} else if home.H2Count >= 1 {
		headings++
	}
	if home.H3Count >= 2 {
		headings++
	}
	b.add("heading_structure", headings, 5)

	clarity := 0
	if p.HasAddress {
		clarity += 2
	}
	if p.HasPhone {
		clarity++
	}
	if p.HasPricing {
		clarity += 2
	}
	b.add("info_clarity", clarity, 5)

	density := 0
	switch {
	case home.InternalLinks >= 15:
		density = 4
	case home.InternalLinks >= 8:
		density = 3
	case home.InternalLinks >= 3:
		density = 1
	}
	b.add("internal_links", density, 4)

	meta := 0
	if home.HasCanonical {
		meta += 2
	}
	if utf8.RuneCountInString(home.MetaDescription) >= 30 {
		meta++
	}
	b.add("meta_tags", meta, 3)

	return b.category()
}

// TechnicalScore rates transport, weight, accessibility, and freshness.
func TechnicalScore(p domain.SiteProfile, home *domain.PageSignal, now time.Time) domain.ScoreCategory {
	b := newBuilder("technical")

	b.addIf("https", home.IsHTTPS, 5)
	b.addIf("mobile_viewport", home.HasViewport, 5)

	weight := 0
	switch {
	case home.PageSize < 150_000:
		weight = 3
	case home.PageSize < 300_000:
		weight = 2
	case home.PageSize < 500_000:
		weight = 1
	}
	if home.ScriptCount <= 5 {
		weight++
	}
	if home.ImageCount <= 15 {
		weight++
	}
	b.add("page_weight", min(weight, 5), 5)

	access := 0
	switch {
	case home.ImageCount == 0:
		access = 3
	case home.AltTextRatio >= 0.9:
		access = 5
	case home.AltTextRatio >= 0.7:
		access = 3
	case home.AltTextRatio >= 0.4:
		access = 2
	}
	b.add("accessibility", access, 5)

	freshness := 0
	if home.CopyrightYear != nil {
		switch age := now.Year() - *home.CopyrightYear; {
		case age <= 0:
			freshness = 3
		case age == 1:
			freshness = 2
		case age == 2:
			freshness = 1
		}
	}
	if p.HasBlog {
		freshness += 2
	}
	b.add("freshness", min(freshness, 5), 5)

	return b.category()
}

// hasTypeLike reports whether any JSON-LD type name contains one of the
// fragments, case-insensitively. Substring matching keeps schema.org
// subtypes like HomeAndConstructionBusiness in scope.
func hasTypeLike(types []string, fragments ...string) bool {
	for _, t := range types {
		lower := strings.ToLower(t)
		for _, frag := range fragments {
			if strings.Contains(lower, frag) {
				return true
			}
		}
	}
	return false
}

type builder struct {
	name      string
	score     int
	max       int
	breakdown map[string]domain.SubScore
}

func newBuilder(name string) *builder {
	return &builder{name: name, breakdown: make(map[string]domain.SubScore)}
}

func (b *builder) add(criterion string, score, max int) {
	b.breakdown[criterion] = domain.SubScore{Score: score, Max: max}
	b.score += score
	b.max += max
}

func (b *builder) addIf(criterion string, ok bool, points int) {
	score := 0
	if ok {
		score = points
	}
	b.add(criterion, score, points)
}

func (b *builder) category() domain.ScoreCategory {
	return domain.ScoreCategory{Name: b.name, Score: b.score, Max: b.max, Breakdown: b.breakdown}
}
