// Package profile folds per-page signals into the single site-level record
// the scorer consumes.
package profile

import (
	"github.com/Ciras-Inc/ciras-site/packages/domain"
)

// Build aggregates all successfully fetched pages of one crawl. The first
// page is expected to be the homepage. Presence flags are the union of the
// explicit per-page detectors and the classification labels; either source
// establishes presence.
func Build(pages []domain.ClassifiedPage) domain.SiteProfile {
	p := domain.SiteProfile{}
	if len(pages) == 0 {
		return p
	}

	var altSum float64
	seen := make(map[domain.PageCategory]struct{})

	for _, page := range pages {
		sig := page.Signal

		p.HasTestimonials = p.HasTestimonials || sig.HasTestimonial || page.Category == domain.CategoryTestimonials
		p.HasFAQ = p.HasFAQ || sig.HasFAQ || page.Category == domain.CategoryFAQ
		p.HasCompanyInfo = p.HasCompanyInfo || sig.HasCompanyInfo || page.Category == domain.CategoryCompany
		p.HasPrivacyPolicy = p.HasPrivacyPolicy || sig.HasPrivacyPolicy || page.Category == domain.CategoryPrivacy
		p.HasPricing = p.HasPricing || sig.HasPrice || page.Category == domain.CategoryPricing
		p.HasContact = p.HasContact || page.Category == domain.CategoryContact
		p.HasBlog = p.HasBlog || page.Category == domain.CategoryBlog
		p.HasService = p.HasService || page.Category == domain.CategoryService
		p.HasAddress = p.HasAddress || sig.HasAddress
		p.HasPhone = p.HasPhone || sig.HasPhone

		p.TotalContentLength += sig.ContentLength()
		p.TotalImages += sig.ImageCount
		altSum += sig.AltTextRatio

		switch page.Category {
		case domain.CategoryBlog:
			p.BlogPostCount++
		case domain.CategoryTestimonials:
			p.TestimonialPageCount++
		}

		if _, dup := seen[page.Category]; !dup {
			seen[page.Category] = struct{}{}
			p.Categories = append(p.Categories, page.Category)
		}
	}

	p.AvgAltTextRatio = altSum / float64(len(pages))
	p.Language = pages[0].Signal.Language
	return p
}
