package links

import (
	"sort"
	"strings"

	"github.com/Ciras-Inc/ciras-site/packages/domain"
)

// weightRule maps path keywords to a priority weight. Rules are evaluated in
// order and the first match wins; keywords within a rule are alternatives.
type weightRule struct {
	Keywords []string
	Weight   int
}

// WeightTable is the broad-strategy ranking table. It is plain data so the
// crawl order can be tuned (and unit-tested) without touching crawl logic.
var WeightTable = []weightRule{
	{Keywords: []string{"company", "about", "voice", "testimonial", "case"}, Weight: 10},
	{Keywords: []string{"faq"}, Weight: 9},
	{Keywords: []string{"service", "price", "pricing", "plan"}, Weight: 9},
	{Keywords: []string{"contact"}, Weight: 7},
	{Keywords: []string{"blog", "news", "column"}, Weight: 6},
}

// DefaultWeight applies to links no rule matches.
const DefaultWeight = 3

// Weigh returns the priority weight for one link path.
func Weigh(link string) int {
	lower := strings.ToLower(link)
	for _, rule := range WeightTable {
		for _, kw := range rule.Keywords {
			if strings.Contains(lower, kw) {
				return rule.Weight
			}
		}
	}
	return DefaultWeight
}

// Prioritize orders candidates by weight, descending. The sort is stable:
// equal-weight links keep their discovery order, which decides what gets
// crawled once the selection budget runs out.
func Prioritize(candidates []string) []domain.LinkCandidate {
	out := make([]domain.LinkCandidate, len(candidates))
	for i, link := range candidates {
		out[i] = domain.LinkCandidate{URL: link, Weight: Weigh(link)}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Weight > out[j].Weight
	})
	return out
}

// TargetBucket is one named slot of the targeted strategy.
type TargetBucket struct {
	Label    string
	Patterns []string
}

// TargetBuckets are filled in order; each bucket takes the first unclaimed
// link matching any of its patterns.
var TargetBuckets = []TargetBucket{
	{Label: "company", Patterns: []string{"company", "about", "corporate", "profile"}},
	{Label: "service", Patterns: []string{"service", "product", "menu", "business"}},
	{Label: "faq", Patterns: []string{"faq", "question", "support"}},
	{Label: "contact", Patterns: []string{"contact", "access", "inquiry", "location"}},
	{Label: "recent", Patterns: []string{"blog", "news", "column", "info"}},
}

// TargetLimit is the fixed number of subpages the targeted strategy fetches.
const TargetLimit = 4

// SelectTargets picks up to limit links by walking the buckets in order.
// Slots left open after the bucket pass are filled from the navigation links
// in document order.
func SelectTargets(candidates, navLinks []string, limit int) []domain.LinkCandidate {
	selected := make([]domain.LinkCandidate, 0, limit)
	taken := make(map[string]struct{})

	for _, bucket := range TargetBuckets {
		if len(selected) >= limit {
			break
		}
		for _, link := range candidates {
			if _, dup := taken[link]; dup {
				continue
			}
			if matchesAny(link, bucket.Patterns) {
				taken[link] = struct{}{}
				selected = append(selected, domain.LinkCandidate{URL: link, Label: bucket.Label})
				break
			}
		}
	}

	for _, link := range navLinks {
		if len(selected) >= limit {
			break
		}
		if _, dup := taken[link]; dup {
			continue
		}
		taken[link] = struct{}{}
		selected = append(selected, domain.LinkCandidate{URL: link, Label: "navigation"})
	}

	return selected
}

func matchesAny(link string, patterns []string) bool {
	lower := strings.ToLower(link)
	for _, p := range patterns {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}
