package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	"github.com/perceptionx/collector/internal/domain"
	"github.com/perceptionx/collector/internal/logger"
	"github.com/perceptionx/collector/internal/repository"
)

// SearchInsightsConfig holds configuration for the search-insights step.
type SearchInsightsConfig struct {
	SerpAPIKey               string
	SerpAPIBaseURL           string
	KeywordsEverywhereAPIKey string
	KeywordsEverywhereURL    string
	Country                  string
	ResultsPerTerm           int
	Terms                    []string // %s is replaced by the company name
	Timeout                  time.Duration
}

// SearchInsightsDebug reports what the step did, for troubleshooting.
type SearchInsightsDebug struct {
	TermsSearched []string `json:"terms_searched"`
	Errors        []string `json:"errors,omitempty"`
	KeywordData   bool     `json:"keyword_data"`
}

// SearchInsightsResult is the outcome of one collection.
type SearchInsightsResult struct {
	Results []domain.SearchInsightResult `json:"results"`
	Terms   []domain.SearchInsightTerm   `json:"terms"`
	Debug   SearchInsightsDebug          `json:"debug"`
}

// SearchInsightsCollector gathers web search insights for a company.
type SearchInsightsCollector interface {
	Collect(ctx context.Context, companyName, companyID, onboardingID string) (*SearchInsightsResult, error)
}

// SearchInsightsService queries SerpAPI organic results and Keywords
// Everywhere term metrics.
type SearchInsightsService struct {
	client *resty.Client
	cfg    SearchInsightsConfig
	repo   *repository.SearchInsightRepository
}

// NewSearchInsightsService creates a search-insights service.
func NewSearchInsightsService(cfg SearchInsightsConfig, repo *repository.SearchInsightRepository) *SearchInsightsService {
	if cfg.SerpAPIBaseURL == "" {
		cfg.SerpAPIBaseURL = "https://serpapi.com"
	}
	if cfg.KeywordsEverywhereURL == "" {
		cfg.KeywordsEverywhereURL = "https://api.keywordseverywhere.com"
	}
	if cfg.ResultsPerTerm <= 0 {
		cfg.ResultsPerTerm = 10
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Country == "" {
		cfg.Country = "us"
	}
	return &SearchInsightsService{
		client: resty.New().SetTimeout(cfg.Timeout),
		cfg:    cfg,
		repo:   repo,
	}
}

type serpOrganicResponse struct {
	OrganicResults []struct {
		Position int    `json:"position"`
		Title    string `json:"title"`
		Link     string `json:"link"`
		Snippet  string `json:"snippet"`
		Date     string `json:"date"`
	} `json:"organic_results"`
	SearchInformation struct {
		TotalResults int `json:"total_results"`
	} `json:"search_information"`
	Error string `json:"error"`
}

type keywordDataResponse struct {
	Data []struct {
		Keyword string `json:"keyword"`
		Vol     int    `json:"vol"`
		CPC     struct {
			Value string `json:"value"`
		} `json:"cpc"`
		Competition float64 `json:"competition"`
	} `json:"data"`
}

// Terms returns the search terms for companyName.
func (s *SearchInsightsService) Terms(companyName string) []string {
	out := make([]string, 0, len(s.cfg.Terms))
	for _, t := range s.cfg.Terms {
		if strings.Contains(t, "%s") {
			t = fmt.Sprintf(t, companyName)
		}
		out = append(out, strings.TrimSpace(t))
	}
	return out
}

// Collect searches every term, fetches term metrics and replaces the
// company's stored insights. It fails only when every search fails.
func (s *SearchInsightsService) Collect(ctx context.Context, companyName, companyID, onboardingID string) (*SearchInsightsResult, error) {
	ctx = logger.SetComponent(ctx, "search_insights")
	if s.cfg.SerpAPIKey == "" {
		return nil, errors.New("search insights: SerpAPI key is not configured")
	}

	terms := s.Terms(companyName)
	out := &SearchInsightsResult{}
	totals := map[string]int{}

	for _, term := range terms {
		resp, err := s.searchTerm(ctx, term)
		if err != nil {
			logger.CtxWarn(ctx, "Search for %q failed: %v", term, err)
			out.Debug.Errors = append(out.Debug.Errors, fmt.Sprintf("%s: %v", term, err))
			continue
		}
		out.Debug.TermsSearched = append(out.Debug.TermsSearched, term)
		totals[term] = resp.SearchInformation.TotalResults
		for _, r := range resp.OrganicResults {
			out.Results = append(out.Results, domain.SearchInsightResult{
				ID:           uuid.NewString(),
				CompanyID:    companyID,
				OnboardingID: onboardingID,
				SearchTerm:   term,
				Position:     r.Position,
				Title:        r.Title,
				Link:         r.Link,
				Snippet:      r.Snippet,
				Domain:       domain.DomainOf(r.Link),
				Date:         r.Date,
			})
		}
	}
	if len(out.Debug.TermsSearched) == 0 && len(terms) > 0 {
		return out, fmt.Errorf("search insights: all %d searches failed", len(terms))
	}

	metrics := map[string]keywordMetric{}
	if s.cfg.KeywordsEverywhereAPIKey != "" {
		m, err := s.keywordData(ctx, out.Debug.TermsSearched)
		if err != nil {
			logger.CtxWarn(ctx, "Keyword data request failed: %v", err)
			out.Debug.Errors = append(out.Debug.Errors, fmt.Sprintf("keywords: %v", err))
		} else {
			metrics = m
			out.Debug.KeywordData = true
		}
	}
	for _, term := range out.Debug.TermsSearched {
		m := metrics[strings.ToLower(term)]
		out.Terms = append(out.Terms, domain.SearchInsightTerm{
			ID:            uuid.NewString(),
			CompanyID:     companyID,
			Term:          term,
			MonthlyVolume: m.Volume,
			CPC:           m.CPC,
			Competition:   m.Competition,
			ResultsCount:  totals[term],
		})
	}

	if s.repo != nil && companyID != "" {
		if err := s.repo.Replace(ctx, companyID, out.Results, out.Terms); err != nil {
			return out, err
		}
	}
	logger.With(logger.Fields{logger.FieldCount: len(out.Results)}).
		Info(ctx, "Search insights collected for %d terms", len(out.Debug.TermsSearched))
	return out, nil
}

func (s *SearchInsightsService) searchTerm(ctx context.Context, term string) (*serpOrganicResponse, error) {
	var resp serpOrganicResponse
	httpResp, err := s.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"engine":  "google",
			"q":       term,
			"gl":      s.cfg.Country,
			"num":     fmt.Sprint(s.cfg.ResultsPerTerm),
			"api_key": s.cfg.SerpAPIKey,
		}).
		SetResult(&resp).
		SetError(&resp).
		Get(s.cfg.SerpAPIBaseURL + "/search.json")
	if err != nil {
		return nil, fmt.Errorf("failed to call SerpAPI: %w", err)
	}
	if httpResp.StatusCode() < 200 || httpResp.StatusCode() >= 300 {
		return nil, &APIError{Service: "serpapi", StatusCode: httpResp.StatusCode(), Message: resp.Error}
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("serpapi error: %s", resp.Error)
	}
	return &resp, nil
}

type keywordMetric struct {
	Volume      int
	CPC         float64
	Competition float64
}

func (s *SearchInsightsService) keywordData(ctx context.Context, terms []string) (map[string]keywordMetric, error) {
	if len(terms) == 0 {
		return map[string]keywordMetric{}, nil
	}
	form := url.Values{}
	form.Set("country", s.cfg.Country)
	form.Set("currency", "USD")
	form.Set("dataSource", "gkp")
	for _, t := range terms {
		form.Add("kw[]", t)
	}

	var resp keywordDataResponse
	httpResp, err := s.client.R().
		SetContext(ctx).
		SetAuthToken(s.cfg.KeywordsEverywhereAPIKey).
		SetHeader("Accept", "application/json").
		SetFormDataFromValues(form).
		SetResult(&resp).
		Post(s.cfg.KeywordsEverywhereURL + "/v1/get_keyword_data")
	if err != nil {
		return nil, fmt.Errorf("failed to call Keywords Everywhere: %w", err)
	}
	if httpResp.StatusCode() < 200 || httpResp.StatusCode() >= 300 {
		return nil, &APIError{Service: "keywords_everywhere", StatusCode: httpResp.StatusCode(), Message: string(httpResp.Body())}
	}

	out := make(map[string]keywordMetric, len(resp.Data))
	for _, d := range resp.Data {
		cpc, _ := strconv.ParseFloat(d.CPC.Value, 64)
		out[strings.ToLower(d.Keyword)] = keywordMetric{Volume: d.Vol, CPC: cpc, Competition: d.Competition}
	}
	return out, nil
}
