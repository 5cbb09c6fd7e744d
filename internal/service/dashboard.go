package service

import (
	"context"
	"errors"
	"math"
	"sort"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/perceptionx/collector/internal/domain"
	"github.com/perceptionx/collector/internal/repository"
)

// NamedCount is a label with its number of occurrences.
type NamedCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// DashboardSummary aggregates a company's collected data.
type DashboardSummary struct {
	CompanyID             string                     `json:"company_id"`
	CompanyName           string                     `json:"company_name"`
	Status                domain.CollectionStatus    `json:"status"`
	Progress              *domain.CollectionProgress `json:"progress,omitempty"`
	TotalPrompts          int                        `json:"total_prompts"`
	TotalResponses        int                        `json:"total_responses"`
	ResponsesByModel      map[string]int             `json:"responses_by_model"`
	AverageSentiment      float64                    `json:"average_sentiment"`
	SentimentDistribution map[string]int             `json:"sentiment_distribution"`
	MentionRate           float64                    `json:"mention_rate"`
	VisibilityByType      map[string]float64         `json:"visibility_by_prompt_type"`
	VisibilityByModel     map[string]float64         `json:"visibility_by_model"`
	TopCompetitors        []NamedCount               `json:"top_competitors"`
	TopDomains            []NamedCount               `json:"top_domains"`
	Themes                []NamedCount               `json:"themes"`
	AverageRecency        *float64                   `json:"average_recency,omitempty"`
	RecencyCoverage       int                        `json:"recency_coverage"`
	SearchResults         int                        `json:"search_results"`
	SearchTerms           []domain.SearchInsightTerm `json:"search_terms,omitempty"`
	GeneratedAt           time.Time                  `json:"generated_at"`
}

// DashboardService builds dashboard summaries from stored rows.
type DashboardService struct {
	companies *repository.CompanyRepository
	prompts   *repository.PromptRepository
	responses *repository.ResponseRepository
	recency   *repository.RecencyRepository
	insights  *repository.SearchInsightRepository
	topN      int
}

// NewDashboardService creates a dashboard service.
func NewDashboardService(
	companies *repository.CompanyRepository,
	prompts *repository.PromptRepository,
	responses *repository.ResponseRepository,
	recency *repository.RecencyRepository,
	insights *repository.SearchInsightRepository,
) *DashboardService {
	return &DashboardService{
		companies: companies,
		prompts:   prompts,
		responses: responses,
		recency:   recency,
		insights:  insights,
		topN:      10,
	}
}

// Summary aggregates everything stored for companyID.
func (s *DashboardService) Summary(ctx context.Context, companyID string) (*DashboardSummary, error) {
	company, err := s.companies.GetByID(ctx, companyID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCompanyNotFound
		}
		return nil, err
	}
	prompts, err := s.prompts.ListActiveByCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}
	responses, err := s.responses.ListByCompany(ctx, companyID, "")
	if err != nil {
		return nil, err
	}

	promptType := make(map[string]domain.PromptType, len(prompts))
	for _, p := range prompts {
		promptType[p.ID] = p.PromptType
	}

	sum := &DashboardSummary{
		CompanyID:             company.ID,
		CompanyName:           company.Name,
		Status:                company.DataCollectionStatus,
		Progress:              company.DataCollectionProgress,
		TotalPrompts:          len(prompts),
		TotalResponses:        len(responses),
		ResponsesByModel:      map[string]int{},
		SentimentDistribution: map[string]int{SentimentPositive: 0, SentimentNeutral: 0, SentimentNegative: 0},
		VisibilityByType:      map[string]float64{},
		VisibilityByModel:     map[string]float64{},
		GeneratedAt:           time.Now().UTC(),
	}

	var sentimentTotal float64
	var sentimentN, mentioned int
	typeTotals := map[string]int{}
	typeMentions := map[string]int{}
	modelMentions := map[string]int{}
	competitors := map[string]int{}
	domains := map[string]int{}
	themes := map[string]int{}
	var urls []string

	for _, r := range responses {
		sum.ResponsesByModel[r.AIModel]++
		t := string(promptType[r.ConfirmedPromptID])
		typeTotals[t]++

		if r.SentimentScore != nil {
			sentimentTotal += *r.SentimentScore
			sentimentN++
		}
		if r.SentimentLabel != nil {
			sum.SentimentDistribution[*r.SentimentLabel]++
		}
		if r.CompanyMentioned != nil && *r.CompanyMentioned {
			mentioned++
			typeMentions[t]++
			modelMentions[r.AIModel]++
		}
		if r.DetectedCompetitors != nil {
			for _, c := range strings.Split(*r.DetectedCompetitors, ",") {
				if c = strings.TrimSpace(c); c != "" {
					competitors[c]++
				}
			}
		}
		for _, th := range r.Themes {
			themes[th]++
		}
		for _, c := range domain.NormalizeCitations(r.Citations) {
			domains[c.Domain]++
			urls = append(urls, c.URL)
		}
	}

	if sentimentN > 0 {
		sum.AverageSentiment = round2(sentimentTotal / float64(sentimentN))
	}
	if len(responses) > 0 {
		sum.MentionRate = round2(float64(mentioned) / float64(len(responses)))
	}
	for t, n := range typeTotals {
		if t == "" {
			continue
		}
		sum.VisibilityByType[t] = round2(float64(typeMentions[t]) / float64(n))
	}
	for m, n := range sum.ResponsesByModel {
		sum.VisibilityByModel[m] = round2(float64(modelMentions[m]) / float64(n))
	}
	sum.TopCompetitors = topCounts(competitors, s.topN)
	sum.TopDomains = topCounts(domains, s.topN)
	sum.Themes = topCounts(themes, 0)

	if s.recency != nil && len(urls) > 0 {
		entries, err := s.recency.ListByURLs(ctx, dedupe(urls))
		if err != nil {
			return nil, err
		}
		var total float64
		for _, e := range entries {
			if e.RecencyScore != nil {
				total += float64(*e.RecencyScore)
				sum.RecencyCoverage++
			}
		}
		if sum.RecencyCoverage > 0 {
			avg := round2(total / float64(sum.RecencyCoverage))
			sum.AverageRecency = &avg
		}
	}

	if s.insights != nil {
		results, err := s.insights.ListResults(ctx, companyID)
		if err != nil {
			return nil, err
		}
		sum.SearchResults = len(results)
		if sum.SearchTerms, err = s.insights.ListTerms(ctx, companyID); err != nil {
			return nil, err
		}
	}

	return sum, nil
}

// topCounts sorts counts descending, ties by name, keeping at most n (all
// when n is 0).
func topCounts(counts map[string]int, n int) []NamedCount {
	out := make([]NamedCount, 0, len(counts))
	for k, v := range counts {
		out = append(out, NamedCount{Name: k, Count: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

func dedupe(ss []string) []string {
	seen := make(map[string]bool, len(ss))
	out := ss[:0:0]
	for _, s := range ss {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
