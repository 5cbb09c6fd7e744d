package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perceptionx/collector/internal/domain"
	"github.com/perceptionx/collector/internal/repository"
)

func TestRecencyScoreBuckets(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		days int
		want int
	}{
		{0, 100}, {30, 100}, {31, 80}, {90, 80}, {120, 60}, {200, 40}, {365, 40}, {500, 20}, {730, 20}, {731, 10}, {3000, 10},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, RecencyScore(now.AddDate(0, 0, -tc.days), now), "%d days", tc.days)
	}
}

func docFrom(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func TestPublicationDate(t *testing.T) {
	cases := []struct {
		name   string
		html   string
		date   string
		method string
	}{
		{
			name:   "meta tag",
			html:   `<html><head><meta property="article:published_time" content="2024-03-05T10:00:00Z"></head></html>`,
			date:   "2024-03-05",
			method: domain.ExtractionMetaTag,
		},
		{
			name:   "json-ld graph",
			html:   `<script type="application/ld+json">{"@context":"https://schema.org","@graph":[{"@type":"WebPage"},{"@type":"Article","datePublished":"2023-11-20"}]}</script>`,
			date:   "2023-11-20",
			method: domain.ExtractionJSONLD,
		},
		{
			name:   "time element",
			html:   `<article><time datetime="2022-01-15">Jan 15</time></article>`,
			date:   "2022-01-15",
			method: domain.ExtractionTimeElement,
		},
		{
			name:   "meta wins over time",
			html:   `<head><meta name="pubdate" content="2021-07-01"></head><time datetime="2020-01-01"></time>`,
			date:   "2021-07-01",
			method: domain.ExtractionMetaTag,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, method, ok := PublicationDate(docFrom(t, tc.html))
			require.True(t, ok)
			assert.Equal(t, tc.date, got.Format("2006-01-02"))
			assert.Equal(t, tc.method, method)
		})
	}

	_, _, ok := PublicationDate(docFrom(t, `<p>no dates here</p>`))
	assert.False(t, ok)
}

func TestDateFromURL(t *testing.T) {
	d, ok := DateFromURL("https://blog.example.com/2024/02/17/acme-hiring")
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 2, 17, 0, 0, 0, 0, time.UTC), d)

	d, ok = DateFromURL("https://news.example.com/2023/11/acme")
	require.True(t, ok)
	assert.Equal(t, time.Date(2023, 11, 1, 0, 0, 0, 0, time.UTC), d)

	d, ok = DateFromURL("https://example.com/blog/2022-07-04-acme-offsite")
	require.True(t, ok)
	assert.Equal(t, time.Date(2022, 7, 4, 0, 0, 0, 0, time.UTC), d)

	for _, u := range []string{
		"https://example.com/careers/2024",
		"https://blog.example.com/2023/02/31/post",
		"https://example.com/products/2019-5-things-to-know",
		"https://example.com/2021-04-acme",
	} {
		_, ok = DateFromURL(u)
		assert.False(t, ok, u)
	}
}

func TestExtractBatchRefusesPrivateHosts(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Write([]byte(`<html><head><meta property="article:published_time" content="2025-05-20"></head></html>`))
	}))
	t.Cleanup(srv.Close)

	repo := repository.NewRecencyRepository(openTestDB(t))
	svc := NewRecencyService(RecencyConfig{Workers: 1, Timeout: 2 * time.Second}, repo)
	ctx := context.Background()

	summary, err := svc.ExtractBatch(ctx, domain.NormalizeCitations([]interface{}{srv.URL + "/internal"}))
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Failed)
	assert.Zero(t, hits)

	entry, err := repo.Get(ctx, srv.URL+"/internal")
	require.NoError(t, err)
	assert.Equal(t, domain.ExtractionFetchFailed, entry.ExtractionMethod)
	assert.Nil(t, entry.RecencyScore)
}

func TestFetchDateLimitsBodySize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><head>` + strings.Repeat(" ", 4096) +
			`<meta property="article:published_time" content="2025-05-20"></head></html>`))
	}))
	t.Cleanup(srv.Close)

	repo := repository.NewRecencyRepository(openTestDB(t))
	svc := NewRecencyService(RecencyConfig{Workers: 1, Timeout: 2 * time.Second, MaxBodyBytes: 1024, AllowPrivateHosts: true}, repo)

	date, _, err := svc.fetchDate(context.Background(), srv.URL+"/big")
	require.Error(t, err)
	assert.Nil(t, date)

	_, _, err = svc.fetchDate(context.Background(), "file:///etc/passwd")
	assert.Error(t, err)
}

func TestExtractBatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/meta":
			w.Write([]byte(`<html><head><meta property="article:published_time" content="2025-05-20"></head></html>`))
		case "/plain":
			w.Write([]byte(`<html><body>hello</body></html>`))
		case "/2024/09/archived":
			w.WriteHeader(http.StatusNotFound)
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	t.Cleanup(srv.Close)

	db := openTestDB(t)
	repo := repository.NewRecencyRepository(db)
	svc := NewRecencyService(RecencyConfig{Workers: 2, Timeout: 2 * time.Second, AllowPrivateHosts: true}, repo)
	svc.now = func() time.Time { return time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC) }
	ctx := context.Background()

	cached := 60
	require.NoError(t, repo.Upsert(ctx, &domain.URLRecencyCache{URL: srv.URL + "/cached", RecencyScore: &cached, ExtractionMethod: domain.ExtractionMetaTag}))

	citations := domain.NormalizeCitations([]interface{}{
		srv.URL + "/meta",
		srv.URL + "/meta",
		srv.URL + "/plain",
		srv.URL + "/2024/09/archived",
		srv.URL + "/broken",
		srv.URL + "/cached",
		"not a url",
	})
	summary, err := svc.ExtractBatch(ctx, citations)
	require.NoError(t, err)

	assert.Equal(t, 6, summary.Requested)
	assert.Equal(t, 5, summary.Unique)
	assert.Equal(t, 1, summary.Cached)
	assert.Equal(t, 4, summary.Processed)
	assert.Equal(t, 2, summary.WithDate)
	assert.Equal(t, 1, summary.Failed)

	meta, err := repo.Get(ctx, srv.URL+"/meta")
	require.NoError(t, err)
	require.NotNil(t, meta.RecencyScore)
	assert.Equal(t, 100, *meta.RecencyScore)
	assert.Equal(t, domain.ExtractionMetaTag, meta.ExtractionMethod)

	archived, err := repo.Get(ctx, srv.URL+"/2024/09/archived")
	require.NoError(t, err)
	require.NotNil(t, archived.RecencyScore)
	assert.Equal(t, 40, *archived.RecencyScore)
	assert.Equal(t, domain.ExtractionURLPattern, archived.ExtractionMethod)

	plain, err := repo.Get(ctx, srv.URL+"/plain")
	require.NoError(t, err)
	assert.Nil(t, plain.RecencyScore)
	assert.Equal(t, domain.ExtractionNotFound, plain.ExtractionMethod)

	broken, err := repo.Get(ctx, srv.URL+"/broken")
	require.NoError(t, err)
	assert.Equal(t, domain.ExtractionFetchFailed, broken.ExtractionMethod)

	again, err := svc.ExtractBatch(ctx, citations)
	require.NoError(t, err)
	assert.Equal(t, 5, again.Cached)
	assert.Zero(t, again.Processed)
}
