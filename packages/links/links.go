// Package links discovers same-host page links and decides which ones are
// worth spending the crawl budget on.
package links

import (
	"net/url"
	"path"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// pageExtensions are the only path extensions treated as crawlable pages.
var pageExtensions = map[string]bool{
	"":      true,
	".html": true,
	".htm":  true,
	".php":  true,
}

// Extract returns the distinct same-host URLs reachable from anchors in the
// markup, in document order. The page's own path, fragment-only links, and
// non-page resources are dropped; malformed hrefs are skipped.
func Extract(doc *goquery.Document, base *url.URL) []string {
	return collect(doc.Find("a[href]"), base)
}

// ExtractNav collects same-host links found inside nav and header markup, in
// document order. Used as the fill-in source for the targeted strategy.
func ExtractNav(doc *goquery.Document, base *url.URL) []string {
	return collect(doc.Find("nav a[href], header a[href]"), base)
}

func collect(anchors *goquery.Selection, base *url.URL) []string {
	basePath := normalizePath(base.Path)
	seen := make(map[string]struct{})
	var out []string

	anchors.Each(func(i int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		link, ok := resolve(href, base)
		if !ok {
			return
		}
		if normalizePath(link.Path) == basePath {
			return
		}
		key := link.String()
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		out = append(out, key)
	})
	return out
}

func resolve(href string, base *url.URL) (*url.URL, bool) {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") ||
		strings.HasPrefix(href, "mailto:") || strings.HasPrefix(href, "tel:") ||
		strings.HasPrefix(href, "javascript:") {
		return nil, false
	}
	link, err := base.Parse(href)
	if err != nil {
		return nil, false
	}
	if link.Scheme != "http" && link.Scheme != "https" {
		return nil, false
	}
	if !strings.EqualFold(link.Host, base.Host) {
		return nil, false
	}
	if !pageExtensions[strings.ToLower(path.Ext(link.Path))] {
		return nil, false
	}
	link.Fragment = ""
	return link, true
}

func normalizePath(p string) string {
	if p == "" {
		return "/"
	}
	return strings.TrimSuffix(p, "/") + "/"
}
