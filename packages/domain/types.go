// Package domain
package domain

// PageCategory is one label from the fixed content taxonomy. Every fetched
// page gets exactly one.
type PageCategory string

const (
	CategoryCompany      PageCategory = "company"
	CategoryTestimonials PageCategory = "testimonials"
	CategoryFAQ          PageCategory = "faq"
	CategoryPrivacy      PageCategory = "privacy"
	CategoryTerms        PageCategory = "terms"
	CategoryBlog         PageCategory = "blog"
	CategoryContact      PageCategory = "contact"
	CategoryPricing      PageCategory = "pricing"
	CategoryService      PageCategory = "service"
	CategoryOther        PageCategory = "other"
)

// JobStatus tracks a diagnosis row through the queue.
type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// DiagnosisJob is one locked row from the diagnoses table.
type DiagnosisJob struct {
	ID  int64
	URL string
}

// PageSignal holds everything extracted from a single fetched page. It is
// built once per successful fetch and never mutated; a failed fetch produces
// no PageSignal at all.
type PageSignal struct {
	URL             string
	HTML            string
	PageSize        int
	Title           string
	MetaDescription string

	HasViewport  bool
	HasJSONLD    bool
	JSONLDTypes  []string
	HasCanonical bool
	IsHTTPS      bool

	H1Count       int
	H2Count       int
	H3Count       int
	InternalLinks int

	HasFAQ           bool
	HasAddress       bool
	HasPrice         bool
	HasPhone         bool
	HasCompanyInfo   bool
	HasTestimonial   bool
	HasPrivacyPolicy bool

	ScriptCount     int
	StylesheetCount int
	ImageCount      int
	AltTextRatio    float64

	CopyrightYear *int

	TextContent string
	Headings    []string
	Language    string
}

// ContentLength is the rune count of the collapsed page text. Japanese pages
// would be badly undercounted by bytes.
func (p *PageSignal) ContentLength() int {
	n := 0
	for range p.TextContent {
		n++
	}
	return n
}

// LinkCandidate is a discovered same-host URL with either a numeric weight
// (broad ranking) or a bucket label (targeted selection).
type LinkCandidate struct {
	URL    string
	Weight int
	Label  string
}

// ClassifiedPage pairs a fetched page with its taxonomy label.
type ClassifiedPage struct {
	Signal   *PageSignal
	Category PageCategory
}

// PageSummary is the trimmed per-page record carried on the CrawlResult.
type PageSummary struct {
	URL      string       `json:"url"`
	Category PageCategory `json:"category"`
	Title    string       `json:"title"`
	Excerpt  string       `json:"excerpt"`
}

// PageStatus records the outcome of one selected subpage fetch.
type PageStatus struct {
	URL    string `json:"url"`
	Label  string `json:"label,omitempty"`
	Status string `json:"status"`
}

const (
	FetchSucceeded = "success"
	FetchFailed    = "failed"
)

// SiteProfile is the aggregate over every successfully fetched page of one
// crawl. Presence flags are the union of the per-page content-signal flags
// and the classification labels.
type SiteProfile struct {
	HasTestimonials  bool `json:"hasTestimonials"`
	HasFAQ           bool `json:"hasFaq"`
	HasCompanyInfo   bool `json:"hasCompanyInfo"`
	HasPrivacyPolicy bool `json:"hasPrivacyPolicy"`
	HasPricing       bool `json:"hasPricing"`
	HasContact       bool `json:"hasContact"`
	HasBlog          bool `json:"hasBlog"`
	HasService       bool `json:"hasService"`
	HasAddress       bool `json:"hasAddress"`
	HasPhone         bool `json:"hasPhone"`

	TotalContentLength   int     `json:"totalContentLength"`
	TotalImages          int     `json:"totalImages"`
	AvgAltTextRatio      float64 `json:"avgAltTextRatio"`
	BlogPostCount        int     `json:"blogPostCount"`
	TestimonialPageCount int     `json:"testimonialPageCount"`

	Categories []PageCategory `json:"categories"`
	Language   string         `json:"language,omitempty"`
}

// SubScore is one sub-criterion inside a category.
type SubScore struct {
	Score int `json:"score"`
	Max   int `json:"max"`
}

// ScoreCategory is one of the four independent 25-point categories.
type ScoreCategory struct {
	Name      string              `json:"name"`
	Score     int                 `json:"score"`
	Max       int                 `json:"max"`
	Breakdown map[string]SubScore `json:"breakdown"`
}

// ScoreReport is the full scoring output; Total is the sum of the category
// scores.
type ScoreReport struct {
	Total      int             `json:"total"`
	Max        int             `json:"max"`
	Categories []ScoreCategory `json:"categories"`
}

// HeadingStructure flattens the homepage heading counts for the result JSON.
type HeadingStructure struct {
	H1 int `json:"h1"`
	H2 int `json:"h2"`
	H3 int `json:"h3"`
}

// CrawlResult is the contract handed to the narrative-generation step. The
// homepage's signals are flattened to the top level.
type CrawlResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`

	FinalURL        string           `json:"finalUrl,omitempty"`
	Title           string           `json:"title,omitempty"`
	MetaDescription string           `json:"metaDescription,omitempty"`
	IsHTTPS         bool             `json:"isHttps"`
	HasViewport     bool             `json:"hasViewport"`
	HasJSONLD       bool             `json:"hasJsonLd"`
	JSONLDTypes     []string         `json:"jsonLdTypes,omitempty"`
	HeadingStruct   HeadingStructure `json:"headingStructure"`
	HasCanonical    bool             `json:"hasCanonical"`
	InternalLinks   int              `json:"internalLinks"`
	PageSize        int              `json:"pageSize"`
	CopyrightYear   *int             `json:"copyrightYear,omitempty"`
	ContentLength   int              `json:"contentLength"`

	TotalPages   int           `json:"totalPages"`
	Pages        []PageSummary `json:"pages,omitempty"`
	SiteProfile  *SiteProfile  `json:"siteProfile,omitempty"`
	PageStatuses []PageStatus  `json:"pageStatuses,omitempty"`

	Scores     []ScoreCategory `json:"scores,omitempty"`
	TotalScore int             `json:"totalScore"`
}
