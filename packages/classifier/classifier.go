// Package classifier assigns each fetched page one label from the fixed
// content taxonomy.
package classifier

import (
	"strings"

	"github.com/Ciras-Inc/ciras-site/packages/domain"
)

// rule is one category's matchers. URL keywords run against the lowercased
// URL, text keywords against the lowercased title plus leading content;
// either match is enough.
type rule struct {
	Category     domain.PageCategory
	URLKeywords  []string
	TextKeywords []string
}

// Rules are evaluated top to bottom and the first match wins, so a page
// whose URL carries both "company" and "faq" tokens classifies as company.
var Rules = []rule{
	{
		Category:     domain.CategoryCompany,
		URLKeywords:  []string{"company", "about", "corporate", "profile", "gaiyou"},
		TextKeywords: []string{"会社概要", "企業情報", "会社案内", "運営会社", "about us"},
	},
	{
		Category:     domain.CategoryTestimonials,
		URLKeywords:  []string{"voice", "testimonial", "case", "review", "jirei"},
		TextKeywords: []string{"お客様の声", "導入事例", "利用者の声", "体験談"},
	},
	{
		Category:     domain.CategoryFAQ,
		URLKeywords:  []string{"faq", "question", "qanda"},
		TextKeywords: []string{"よくある質問", "よくあるご質問", "q&a"},
	},
	{
		Category:     domain.CategoryPrivacy,
		URLKeywords:  []string{"privacy"},
		TextKeywords: []string{"プライバシーポリシー", "個人情報保護方針"},
	},
	{
		Category:     domain.CategoryTerms,
		URLKeywords:  []string{"terms", "tos", "legal", "kiyaku"},
		TextKeywords: []string{"利用規約", "特定商取引"},
	},
	{
		Category:     domain.CategoryBlog,
		URLKeywords:  []string{"blog", "news", "column", "topics"},
		TextKeywords: []string{"ブログ", "新着情報", "お知らせ"},
	},
	{
		Category:     domain.CategoryContact,
		URLKeywords:  []string{"contact", "inquiry", "toiawase"},
		TextKeywords: []string{"お問い合わせ", "お問合せ", "contact us"},
	},
	{
		Category:     domain.CategoryPricing,
		URLKeywords:  []string{"price", "pricing", "plan", "fee", "ryokin"},
		TextKeywords: []string{"料金", "価格表", "費用"},
	},
	{
		Category:     domain.CategoryService,
		URLKeywords:  []string{"service", "product", "menu", "business"},
		TextKeywords: []string{"サービス", "事業内容", "取扱商品"},
	},
}

// leadingTextRunes bounds how much page text participates in matching; the
// head of the page is where these markers live.
const leadingTextRunes = 2000

// Classify returns the page's taxonomy label. It is a pure function of URL,
// title, and leading text.
func Classify(pageURL, title, text string) domain.PageCategory {
	lowerURL := strings.ToLower(pageURL)
	haystack := strings.ToLower(title + " " + leading(text, leadingTextRunes))

	for _, r := range Rules {
		for _, kw := range r.URLKeywords {
			if strings.Contains(lowerURL, kw) {
				return r.Category
			}
		}
		for _, kw := range r.TextKeywords {
			if strings.Contains(haystack, kw) {
				return r.Category
			}
		}
	}
	return domain.CategoryOther
}

// ClassifyPage labels one fetched page.
func ClassifyPage(sig *domain.PageSignal) domain.ClassifiedPage {
	return domain.ClassifiedPage{
		Signal:   sig,
		Category: Classify(sig.URL, sig.Title, sig.TextContent),
	}
}

func leading(s string, limit int) string {
	count := 0
	for i := range s {
		if count == limit {
			return s[:i]
		}
		count++
	}
	return s
}
