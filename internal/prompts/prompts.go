package prompts

import (
	"fmt"
	"strings"
)

// ============================================================================
// Shared Lexicons
// ============================================================================

// PositiveWords is the sentiment lexicon used by the heuristic analyser.
var PositiveWords = []string{
	"great", "excellent", "positive", "strong", "good", "best", "supportive",
	"innovative", "competitive salary", "growth", "flexible", "inclusive",
	"rewarding", "collaborative", "respected", "leader", "attractive", "benefits",
	"recommended", "praised", "well-regarded", "opportunities",
}

// NegativeWords is the sentiment lexicon used by the heuristic analyser.
var NegativeWords = []string{
	"poor", "bad", "negative", "toxic", "layoffs", "burnout", "stressful",
	"underpaid", "high turnover", "lack of", "criticized", "complaints",
	"micromanagement", "limited", "difficult", "controversy", "lawsuit",
	"unclear", "long hours", "concerns",
}

// ThemeKeywords maps an employer-brand theme to the words that signal it.
var ThemeKeywords = map[string][]string{
	"compensation":     {"salary", "pay", "compensation", "bonus", "equity", "stock"},
	"benefits":         {"benefits", "health", "insurance", "perks", "pto", "vacation"},
	"culture":          {"culture", "values", "environment", "team", "collaborative"},
	"work-life":        {"work-life", "balance", "flexible", "remote", "hybrid", "hours"},
	"career growth":    {"career", "growth", "promotion", "learning", "development", "mentorship"},
	"leadership":       {"leadership", "management", "executive", "ceo", "managers"},
	"diversity":        {"diversity", "inclusion", "inclusive", "equity", "belonging"},
	"innovation":       {"innovation", "innovative", "technology", "cutting-edge", "research"},
	"job security":     {"layoffs", "stability", "job security", "restructuring"},
	"hiring process":   {"interview", "hiring", "application", "recruiter", "onboarding"},
	"mission & impact": {"mission", "purpose", "impact", "sustainability", "community"},
}

// ============================================================================
// Translation Prompt (LLM)
// ============================================================================

// TranslationSystemPrompt defines the role and output contract for batched
// prompt translation.
const TranslationSystemPrompt = `You are a professional translator for employer-brand research.
Translate every input question into the requested language.

Rules:
- Keep company names, product names and job titles unchanged.
- Keep the meaning and the question form of each input.
- Return exactly one translation per input, in the same order.
- Never return an input unchanged.

Output JSON only:
{"translatedPrompts": ["..."], "targetLanguage": "<language name>"}`

// TranslationUserPrompt builds the user message for a batch of prompts.
func TranslationUserPrompt(language string, texts []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Target language: %s\n\nQuestions:\n", language)
	for i, t := range texts {
		fmt.Fprintf(&b, "%d. %s\n", i+1, t)
	}
	return b.String()
}

// ============================================================================
// Response Analysis Prompt (LLM)
// ============================================================================

// AnalysisSystemPrompt is the system prompt for analysing one model answer.
//
// JSON Schema:
//
//	{
//	  "sentiment_score": -1.0..1.0,
//	  "sentiment_label": "positive" | "neutral" | "negative",
//	  "company_mentioned": bool,
//	  "detected_competitors": ["..."],
//	  "themes": ["..."]
//	}
const AnalysisSystemPrompt = `You analyse answers that AI assistants give about employers.
Given the answer text, the company name and the question type, report:
- sentiment_score: number between -1 (very negative) and 1 (very positive) describing how the answer portrays the company. Use 0 when the company is not discussed.
- sentiment_label: "positive", "neutral" or "negative".
- company_mentioned: whether the company is named in the answer.
- detected_competitors: other employers named in the answer, excluding the company itself.
- themes: short employer-brand themes the answer covers (for example compensation, culture, work-life balance, career growth, leadership).

Output JSON only, no markdown.`

// AnalysisUserPrompt builds the user message for one answer.
func AnalysisUserPrompt(companyName, promptType, response string) string {
	return fmt.Sprintf("Company: %s\nQuestion type: %s\n\nAnswer:\n%s", companyName, promptType, response)
}
