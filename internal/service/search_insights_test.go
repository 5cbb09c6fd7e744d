package service

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perceptionx/collector/internal/repository"
)

func TestSearchInsightsCollect(t *testing.T) {
	serp := jsonServer(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "google", q.Get("engine"))
		assert.Equal(t, "us", q.Get("gl"))
		switch q.Get("q") {
		case "Acme careers":
			w.Write([]byte(`{
				"search_information":{"total_results":1200},
				"organic_results":[
					{"position":1,"title":"Careers at Acme","link":"https://www.acme.com/careers","snippet":"Join us"},
					{"position":2,"title":"Acme on Glassdoor","link":"https://www.glassdoor.com/acme","date":"Mar 3, 2025"}
				]
			}`))
		default:
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error":"rate limited"}`))
		}
	})
	keywords := jsonServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/get_keyword_data", r.URL.Path)
		assert.Equal(t, "Bearer ke-key", r.Header.Get("Authorization"))
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, []string{"Acme careers"}, r.PostForm["kw[]"])
		w.Write([]byte(`{"data":[{"keyword":"acme careers","vol":880,"cpc":{"value":"1.25"},"competition":0.4}]}`))
	})

	db := openTestDB(t)
	repo := repository.NewSearchInsightRepository(db)
	svc := NewSearchInsightsService(SearchInsightsConfig{
		SerpAPIKey:               "serp-key",
		SerpAPIBaseURL:           serp.URL,
		KeywordsEverywhereAPIKey: "ke-key",
		KeywordsEverywhereURL:    keywords.URL,
		Terms:                    []string{"%s careers", "working at %s"},
	}, repo)

	assert.Equal(t, []string{"Acme careers", "working at Acme"}, svc.Terms("Acme"))

	res, err := svc.Collect(context.Background(), "Acme", "company-1", "onb-1")
	require.NoError(t, err)

	require.Len(t, res.Results, 2)
	assert.Equal(t, "acme.com", res.Results[0].Domain)
	assert.Equal(t, "Mar 3, 2025", res.Results[1].Date)
	assert.Equal(t, []string{"Acme careers"}, res.Debug.TermsSearched)
	assert.Len(t, res.Debug.Errors, 1)
	assert.True(t, res.Debug.KeywordData)

	require.Len(t, res.Terms, 1)
	assert.Equal(t, 880, res.Terms[0].MonthlyVolume)
	assert.Equal(t, 1.25, res.Terms[0].CPC)
	assert.Equal(t, 1200, res.Terms[0].ResultsCount)

	stored, err := repo.ListResults(context.Background(), "company-1")
	require.NoError(t, err)
	assert.Len(t, stored, 2)
	terms, err := repo.ListTerms(context.Background(), "company-1")
	require.NoError(t, err)
	assert.Len(t, terms, 1)
}

func TestSearchInsightsFailsWhenEverySearchFails(t *testing.T) {
	serp := jsonServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"Invalid API key"}`))
	})
	svc := NewSearchInsightsService(SearchInsightsConfig{SerpAPIKey: "bad", SerpAPIBaseURL: serp.URL, Terms: []string{"%s jobs"}}, nil)

	_, err := svc.Collect(context.Background(), "Acme", "company-1", "onb-1")
	assert.Error(t, err)
}

func TestSearchInsightsRequiresKey(t *testing.T) {
	svc := NewSearchInsightsService(SearchInsightsConfig{Terms: []string{"%s jobs"}}, nil)
	_, err := svc.Collect(context.Background(), "Acme", "company-1", "onb-1")
	assert.Error(t, err)
}
