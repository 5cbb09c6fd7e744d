package service

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/perceptionx/collector/internal/domain"
	"github.com/perceptionx/collector/internal/logger"
	"github.com/perceptionx/collector/internal/prompts"
	"github.com/perceptionx/collector/internal/repository"
)

// Sentiment labels.
const (
	SentimentPositive = "positive"
	SentimentNeutral  = "neutral"
	SentimentNegative = "negative"
)

// AnalysisRequest identifies one stored response and carries what the
// analyser needs to derive its fields.
type AnalysisRequest struct {
	ResponseID        string
	ResponseText      string
	CompanyName       string
	PromptType        domain.PromptType
	Citations         []domain.Citation
	ConfirmedPromptID string
	AIModel           string
	CompanyID         string
}

// AnalysisResult holds the fields derived from a response.
type AnalysisResult struct {
	SentimentScore      float64  `json:"sentiment_score"`
	SentimentLabel      string   `json:"sentiment_label"`
	CompanyMentioned    bool     `json:"company_mentioned"`
	DetectedCompetitors []string `json:"detected_competitors"`
	Themes              []string `json:"themes"`
}

// Analyzer derives sentiment, competitors and themes for a stored response
// and writes them back onto it.
type Analyzer interface {
	Analyze(ctx context.Context, req AnalysisRequest) (*AnalysisResult, error)
}

// AnalysisService analyses responses with a chat model when one is
// configured and with the keyword heuristic otherwise or on model failure.
type AnalysisService struct {
	chat      *ChatClient
	responses *repository.ResponseRepository
}

// NewAnalysisService creates an analysis service. chat may be nil.
func NewAnalysisService(chat *ChatClient, responses *repository.ResponseRepository) *AnalysisService {
	return &AnalysisService{chat: chat, responses: responses}
}

// Analyze computes the derived fields and stores them on req.ResponseID.
func (s *AnalysisService) Analyze(ctx context.Context, req AnalysisRequest) (*AnalysisResult, error) {
	if req.CompanyID == "" {
		return nil, fmt.Errorf("analysis of prompt %s: company id is required", req.ConfirmedPromptID)
	}

	var result *AnalysisResult
	if s.chat != nil {
		var err error
		result, err = s.analyzeWithLLM(ctx, req)
		if err != nil {
			logger.CtxWarn(ctx, "LLM analysis failed, using heuristic: %v", err)
			result = nil
		}
	}
	if result == nil {
		result = HeuristicAnalysis(req.ResponseText, req.CompanyName)
	}

	if err := s.responses.UpdateAnalysis(ctx, req.ResponseID, repository.AnalysisUpdate{
		SentimentScore:      result.SentimentScore,
		SentimentLabel:      result.SentimentLabel,
		CompanyMentioned:    result.CompanyMentioned,
		DetectedCompetitors: strings.Join(result.DetectedCompetitors, ", "),
		Themes:              result.Themes,
	}); err != nil {
		return nil, fmt.Errorf("failed to store analysis: %w", err)
	}
	return result, nil
}

func (s *AnalysisService) analyzeWithLLM(ctx context.Context, req AnalysisRequest) (*AnalysisResult, error) {
	temp := float32(0)
	res, err := s.chat.Complete(ctx, ChatRequest{
		System:      prompts.AnalysisSystemPrompt,
		User:        prompts.AnalysisUserPrompt(req.CompanyName, string(req.PromptType), req.ResponseText),
		JSON:        true,
		Temperature: &temp,
	})
	if err != nil {
		return nil, err
	}
	raw := extractJSON(res.Content)
	if raw == "" {
		return nil, fmt.Errorf("analysis returned no JSON object")
	}
	var out AnalysisResult
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("failed to parse analysis: %w", err)
	}
	out.SentimentScore = clamp(out.SentimentScore, -1, 1)
	out.SentimentLabel = SentimentLabel(out.SentimentScore)
	out.DetectedCompetitors = filterCompetitors(out.DetectedCompetitors, req.CompanyName)
	if !out.CompanyMentioned {
		out.CompanyMentioned = containsFold(req.ResponseText, req.CompanyName)
	}
	return &out, nil
}

// SentimentLabel maps a score in [-1, 1] to its label.
func SentimentLabel(score float64) string {
	switch {
	case score > 0.1:
		return SentimentPositive
	case score < -0.1:
		return SentimentNegative
	default:
		return SentimentNeutral
	}
}

var (
	boldName = regexp.MustCompile(`\*\*([^*\n]{2,60}?)\*\*`)
	listName = regexp.MustCompile(`(?m)^\s*(?:\d+\.|[-*•])\s+([A-Z][\w&.'\- ]{1,40}?)\s*(?::|\s-\s|–|—|\()`)
)

// HeuristicAnalysis scores text with the shared lexicons. Competitors are
// names set in bold or leading a list item.
func HeuristicAnalysis(text, companyName string) *AnalysisResult {
	lower := strings.ToLower(text)

	pos, neg := 0, 0
	for _, w := range prompts.PositiveWords {
		pos += strings.Count(lower, w)
	}
	for _, w := range prompts.NegativeWords {
		neg += strings.Count(lower, w)
	}
	score := 0.0
	if pos+neg > 0 {
		score = float64(pos-neg) / float64(pos+neg)
	}
	score = math.Round(score*100) / 100

	var themes []string
	for theme, words := range prompts.ThemeKeywords {
		for _, w := range words {
			if strings.Contains(lower, w) {
				themes = append(themes, theme)
				break
			}
		}
	}
	sort.Strings(themes)

	var names []string
	for _, m := range boldName.FindAllStringSubmatch(text, -1) {
		names = append(names, m[1])
	}
	for _, m := range listName.FindAllStringSubmatch(text, -1) {
		names = append(names, m[1])
	}

	return &AnalysisResult{
		SentimentScore:      score,
		SentimentLabel:      SentimentLabel(score),
		CompanyMentioned:    containsFold(text, companyName),
		DetectedCompetitors: filterCompetitors(names, companyName),
		Themes:              themes,
	}
}

// filterCompetitors trims, de-duplicates and drops the company itself and
// theme words from names.
func filterCompetitors(names []string, companyName string) []string {
	seen := map[string]bool{}
	out := []string{}
	for _, n := range names {
		n = strings.Trim(strings.TrimSpace(n), ".:,")
		key := strings.ToLower(n)
		if n == "" || seen[key] || isThemeWord(key) {
			continue
		}
		if companyName != "" && (strings.Contains(key, strings.ToLower(companyName)) || strings.Contains(strings.ToLower(companyName), key)) {
			continue
		}
		seen[key] = true
		out = append(out, n)
	}
	return out
}

func isThemeWord(s string) bool {
	if _, ok := prompts.ThemeKeywords[s]; ok {
		return true
	}
	for _, words := range prompts.ThemeKeywords {
		for _, w := range words {
			if s == w {
				return true
			}
		}
	}
	return false
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func containsFold(s, sub string) bool {
	if sub == "" {
		return false
	}
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}
