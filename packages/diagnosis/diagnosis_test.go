package diagnosis

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ciras-Inc/ciras-site/packages/domain"
	"github.com/Ciras-Inc/ciras-site/packages/fetcher"
)

const homeHTML = `<html lang="ja">
<head>
<title>サンプル工務店の公式サイト</title>
<meta name="description" content="サンプル工務店の公式サイトです。施工事例や料金プラン、よくある質問を掲載しています。地域密着で丁寧な家づくりをお手伝いします。">
<meta name="viewport" content="width=device-width">
<script type="application/ld+json">{"@type":"LocalBusiness"}</script>
</head>
<body>
<nav>
<a href="/company">会社概要</a>
<a href="/service">サービス</a>
<a href="/faq">FAQ</a>
<a href="/contact">お問い合わせ</a>
</nav>
<h1>サンプル工務店</h1>
<h2>サービス</h2><h2>施工の流れ</h2>
<a href="/blog/post-1">ブログ</a>
<p>&copy; 2025 Sample Inc.</p>
</body>
</html>`

func pageHTML(title, body string) string {
	return `<html><head><title>` + title + `</title></head><body>` + body + `</body></html>`
}

// newSiteServer serves a homepage linking to a few subpages, with /contact
// always failing. It counts requests per path.
func newSiteServer(t *testing.T, hits *atomic.Int64) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	serve := func(path, html string) {
		mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = w.Write([]byte(html))
		})
	}
	serve("/{$}", homeHTML)
	serve("/company", pageHTML("会社概要", "<p>会社概要 住所: 東京都 電話 03-0000-0000</p>"))
	serve("/service", pageHTML("サービス案内", "<p>サービスの内容と料金のご案内</p>"))
	serve("/faq", pageHTML("よくある質問", "<p>よくある質問と回答</p>"))
	serve("/blog/post-1", pageHTML("ブログ記事", "<p>最新のお知らせ</p>"))
	mux.HandleFunc("/contact", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "down for maintenance", http.StatusServiceUnavailable)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newOrchestrator(strategy Strategy) *Orchestrator {
	return New(
		fetcher.New(5*time.Second),
		strategy,
		WithClock(func() time.Time { return time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC) }),
	)
}

func TestDiagnoseInvalidURL(t *testing.T) {
	o := newOrchestrator(StrategyBroad)

	for _, input := range []string{"", "   ", "not a url", "https://", "nodothere"} {
		result := o.Diagnose(context.Background(), input)
		assert.False(t, result.Success, "input %q", input)
		assert.Equal(t, "URL format is invalid", result.Error)
	}
}

func TestDiagnoseHomepageFailureIsFatal(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	o := newOrchestrator(StrategyBroad)
	result := o.Diagnose(context.Background(), srv.URL)

	assert.False(t, result.Success)
	assert.Equal(t, "could not reach the site", result.Error)
	assert.Nil(t, result.SiteProfile)
	assert.Equal(t, int64(1), hits.Load(), "no subpage fetches after a fatal homepage failure")
}

func TestDiagnoseBroadEndToEnd(t *testing.T) {
	var hits atomic.Int64
	srv := newSiteServer(t, &hits)

	o := newOrchestrator(StrategyBroad)
	result := o.Diagnose(context.Background(), srv.URL)

	require.True(t, result.Success)
	assert.Empty(t, result.Error)
	assert.Equal(t, "サンプル工務店の公式サイト", result.Title)
	assert.True(t, result.HasViewport)
	assert.True(t, result.HasJSONLD)
	assert.Equal(t, []string{"LocalBusiness"}, result.JSONLDTypes)
	assert.Equal(t, 1, result.HeadingStruct.H1)
	assert.Equal(t, 2, result.HeadingStruct.H2)
	require.NotNil(t, result.CopyrightYear)
	assert.Equal(t, 2025, *result.CopyrightYear)

	// homepage + company, service, faq, blog succeed; contact fails
	assert.Equal(t, 5, result.TotalPages)
	assert.Len(t, result.Pages, 5)
	assert.Equal(t, domain.CategoryCompany, result.Pages[0].Category, "nav anchor text carries company markers")

	require.NotNil(t, result.SiteProfile)
	assert.True(t, result.SiteProfile.HasCompanyInfo)
	assert.True(t, result.SiteProfile.HasFAQ)
	assert.True(t, result.SiteProfile.HasBlog)
	assert.True(t, result.SiteProfile.HasAddress)
	assert.False(t, result.SiteProfile.HasContact, "the contact page failed to fetch")

	assert.Nil(t, result.PageStatuses, "broad strategy reports no per-page statuses")
	assert.Greater(t, result.TotalScore, 0)
	require.Len(t, result.Scores, 4)
}

func TestDiagnoseTargetedToleratesPartialFailure(t *testing.T) {
	var hits atomic.Int64
	srv := newSiteServer(t, &hits)

	o := newOrchestrator(StrategyTargeted)
	result := o.Diagnose(context.Background(), srv.URL)

	require.True(t, result.Success)
	require.Len(t, result.PageStatuses, 4)

	failed := 0
	for _, st := range result.PageStatuses {
		switch st.Status {
		case domain.FetchFailed:
			failed++
			assert.Contains(t, st.URL, "/contact")
		case domain.FetchSucceeded:
		default:
			t.Fatalf("unexpected status %q", st.Status)
		}
		assert.NotEmpty(t, st.Label)
	}
	assert.Equal(t, 1, failed)

	// homepage + 3 successful targeted subpages
	assert.Equal(t, 4, result.TotalPages)
}

func TestDiagnoseScoresCanonicalFixture(t *testing.T) {
	var hits atomic.Int64
	srv := newSiteServer(t, &hits)

	o := newOrchestrator(StrategyBroad)
	result := o.Diagnose(context.Background(), srv.URL)
	require.True(t, result.Success)

	byName := map[string]domain.ScoreCategory{}
	for _, c := range result.Scores {
		byName[c.Name] = c
	}

	content := byName["content"]
	assert.Equal(t, 7, content.Breakdown["service_clarity"].Score)
	assert.Equal(t, 3, content.Breakdown["faq"].Score)

	mr := byName["machine_readability"]
	assert.Equal(t, 5, mr.Breakdown["structured_data"].Score)
}

func TestNormalizeURL(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"example.com", "https://example.com", false},
		{"  example.com/path ", "https://example.com/path", false},
		{"http://example.com", "http://example.com", false},
		{"HTTPS://example.com", "HTTPS://example.com", false},
		{"localhost:8080", "https://localhost:8080", false},
		{"", "", true},
		{"https://", "", true},
		{"nodothere", "", true},
	}
	for _, tc := range cases {
		got, err := NormalizeURL(tc.in)
		if tc.wantErr {
			assert.Error(t, err, tc.in)
			continue
		}
		require.NoError(t, err, tc.in)
		assert.True(t, strings.EqualFold(tc.want, got), "in=%q got=%q", tc.in, got)
	}
}
