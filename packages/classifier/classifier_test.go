package classifier

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Ciras-Inc/ciras-site/packages/domain"
)

func TestClassifyByURL(t *testing.T) {
	cases := []struct {
		url  string
		want domain.PageCategory
	}{
		{"https://example.com/company", domain.CategoryCompany},
		{"https://example.com/about-us", domain.CategoryCompany},
		{"https://example.com/voice", domain.CategoryTestimonials},
		{"https://example.com/faq", domain.CategoryFAQ},
		{"https://example.com/privacy", domain.CategoryPrivacy},
		{"https://example.com/terms", domain.CategoryTerms},
		{"https://example.com/blog/2024/01/post", domain.CategoryBlog},
		{"https://example.com/contact", domain.CategoryContact},
		{"https://example.com/pricing", domain.CategoryPricing},
		{"https://example.com/service", domain.CategoryService},
		{"https://example.com/xyz", domain.CategoryOther},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Classify(tc.url, "", ""), tc.url)
	}
}

func TestClassifyByText(t *testing.T) {
	assert.Equal(t, domain.CategoryFAQ,
		Classify("https://example.com/p/123", "", "よくある質問をまとめました"))
	assert.Equal(t, domain.CategoryCompany,
		Classify("https://example.com/p/124", "会社概要", ""))
	assert.Equal(t, domain.CategoryTestimonials,
		Classify("https://example.com/p/125", "", "お客様の声を紹介します"))
}

func TestClassifyPrecedence(t *testing.T) {
	// company is checked before faq, so a URL carrying both tokens is company
	got := Classify("https://example.com/company-faq", "", "")
	assert.Equal(t, domain.CategoryCompany, got)

	// a privacy URL with blog text still classifies privacy
	got = Classify("https://example.com/privacy", "", "ブログ更新情報")
	assert.Equal(t, domain.CategoryPrivacy, got)
}

func TestClassifyIsDeterministic(t *testing.T) {
	for i := 0; i < 10; i++ {
		assert.Equal(t, domain.CategoryFAQ,
			Classify("https://example.com/faq", "よくある質問", "Q&A"))
	}
}

func TestClassifyPageUsesSignalFields(t *testing.T) {
	sig := &domain.PageSignal{
		URL:         "https://example.com/members/42",
		Title:       "導入事例:株式会社サンプル",
		TextContent: "お客様の声",
	}
	page := ClassifyPage(sig)
	assert.Equal(t, domain.CategoryTestimonials, page.Category)
	assert.Same(t, sig, page.Signal)
}
