package fetcher

import (
	"bytes"
	"encoding/json"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/abadojack/whatlanggo"

	"github.com/Ciras-Inc/ciras-site/packages/domain"
)

const (
	maxTextRunes   = 10_000
	maxHeadingRefs = 30
)

// MarkupExtractor is the goquery-backed SignalExtractor.
type MarkupExtractor struct{}

func NewMarkupExtractor() *MarkupExtractor { return &MarkupExtractor{} }

func (e *MarkupExtractor) Extract(pageURL *url.URL, body []byte) (*domain.PageSignal, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	sig := &domain.PageSignal{
		URL:      pageURL.String(),
		HTML:     string(body),
		PageSize: len(body),
		IsHTTPS:  pageURL.Scheme == "https",
	}

	sig.Title = strings.TrimSpace(doc.Find("title").First().Text())
	if val, exists := doc.Find("meta[name='description']").Attr("content"); exists {
		sig.MetaDescription = strings.TrimSpace(val)
	}
	sig.HasViewport = doc.Find("meta[name='viewport']").Length() > 0
	sig.HasCanonical = doc.Find("link[rel='canonical']").Length() > 0
	sig.HasJSONLD, sig.JSONLDTypes = JSONLDTypes(doc)

	sig.H1Count = doc.Find("h1").Length()
	sig.H2Count = doc.Find("h2").Length()
	sig.H3Count = doc.Find("h3").Length()
	doc.Find("h1, h2, h3").EachWithBreak(func(i int, s *goquery.Selection) bool {
		if t := strings.TrimSpace(s.Text()); t != "" {
			sig.Headings = append(sig.Headings, t)
		}
		return len(sig.Headings) < maxHeadingRefs
	})

	sig.InternalLinks = countInternalLinks(doc, pageURL)

	sig.ScriptCount = doc.Find("script").Length()
	sig.StylesheetCount = doc.Find("link[rel='stylesheet']").Length()
	sig.ImageCount, sig.AltTextRatio = altTextCoverage(doc)

	// Element counts are done; now the markup can be reduced to text.
	doc.Find("script, style, noscript").Remove()
	re := strings.NewReplacer("\n", " ", "\t", " ", "\r", " ")
	text := strings.Join(strings.Fields(re.Replace(doc.Text())), " ")
	sig.TextContent = truncateRunes(text, maxTextRunes)

	haystack := strings.ToLower(sig.Title + " " + sig.MetaDescription + " " + sig.TextContent)
	sig.HasFAQ = containsAny(haystack, faqMarkers)
	sig.HasAddress = containsAny(haystack, addressMarkers)
	sig.HasPrice = containsAny(haystack, priceMarkers)
	sig.HasPhone = containsAny(haystack, phoneMarkers) || phoneNumberRe.MatchString(haystack)
	sig.HasCompanyInfo = containsAny(haystack, companyMarkers)
	sig.HasTestimonial = containsAny(haystack, testimonialMarkers)
	sig.HasPrivacyPolicy = containsAny(haystack, privacyMarkers)

	sig.CopyrightYear = CopyrightYear(sig.TextContent)

	var snippet string
	words := strings.Fields(sig.TextContent)
	if len(words) > 100 {
		snippet = strings.Join(words[:100], " ")
	} else {
		snippet = sig.TextContent
	}
	textForDetection := sig.Title + " " + sig.MetaDescription + " " + snippet
	if strings.TrimSpace(textForDetection) != "" {
		info := whatlanggo.Detect(textForDetection)
		sig.Language = info.Lang.Iso6393()
	}

	return sig, nil
}

// JSONLDTypes scans every <script type="application/ld+json"> block and
// collects the @type names it can parse. Malformed blocks are discarded one
// by one; they never fail the page.
func JSONLDTypes(doc *goquery.Document) (bool, []string) {
	var types []string
	found := false
	doc.Find("script[type='application/ld+json']").Each(func(i int, s *goquery.Selection) {
		var block any
		if err := json.Unmarshal([]byte(s.Text()), &block); err != nil {
			return
		}
		found = true
		types = append(types, typeNames(block)...)
	})
	return found, types
}

// typeNames pulls @type values out of a decoded JSON-LD block, including
// nodes nested under @graph.
func typeNames(block any) []string {
	var out []string
	switch v := block.(type) {
	case []any:
		for _, item := range v {
			out = append(out, typeNames(item)...)
		}
	case map[string]any:
		switch t := v["@type"].(type) {
		case string:
			out = append(out, t)
		case []any:
			for _, item := range t {
				if s, ok := item.(string); ok {
					out = append(out, s)
				}
			}
		}
		if graph, ok := v["@graph"]; ok {
			out = append(out, typeNames(graph)...)
		}
	}
	return out
}

var copyrightRe = regexp.MustCompile(`(?i)(?:©|\(c\)|copyright)\D{0,15}((?:19|20)\d{2})`)

// CopyrightYear returns the first year found next to a copyright marker, or
// nil when the page has none.
func CopyrightYear(text string) *int {
	m := copyrightRe.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	year, err := strconv.Atoi(m[1])
	if err != nil {
		return nil
	}
	return &year
}

func countInternalLinks(doc *goquery.Document, base *url.URL) int {
	count := 0
	doc.Find("a[href]").Each(func(i int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") {
			return
		}
		resolved, err := base.Parse(href)
		if err != nil {
			return
		}
		if resolved.Host == base.Host {
			count++
		}
	})
	return count
}

// altTextCoverage reports the image count and the share of images carrying a
// non-empty alt attribute. A page without images counts as fully covered.
func altTextCoverage(doc *goquery.Document) (int, float64) {
	images := doc.Find("img")
	total := images.Length()
	if total == 0 {
		return 0, 1.0
	}
	withAlt := 0
	images.Each(func(i int, s *goquery.Selection) {
		if alt, exists := s.Attr("alt"); exists && strings.TrimSpace(alt) != "" {
			withAlt++
		}
	})
	return total, float64(withAlt) / float64(total)
}

func truncateRunes(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == limit {
			return s[:i]
		}
		count++
	}
	return s
}

func containsAny(haystack string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(haystack, m) {
			return true
		}
	}
	return false
}

// Content-signal markers. The service targets Japanese small-business sites,
// so each list carries both Japanese and English forms. Matching is done on
// lowercased title+text.
var (
	faqMarkers         = []string{"よくある質問", "よくあるご質問", "faq", "q&a", "ｑ＆ａ"}
	addressMarkers     = []string{"住所", "所在地", "アクセス", "address", "〒"}
	priceMarkers       = []string{"料金", "価格", "費用", "円", "プラン", "price", "pricing", "plan"}
	phoneMarkers       = []string{"電話", "tel:", "お電話"}
	companyMarkers     = []string{"会社概要", "企業情報", "会社案内", "運営会社", "about us", "company profile"}
	testimonialMarkers = []string{"お客様の声", "導入事例", "利用者の声", "体験談", "testimonial", "customer voice"}
	privacyMarkers     = []string{"プライバシーポリシー", "個人情報保護方針", "個人情報の取り扱い", "privacy policy"}
)

var phoneNumberRe = regexp.MustCompile(`0\d{1,4}-\d{1,4}-\d{3,4}`)
