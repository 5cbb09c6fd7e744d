package prompts

import (
	"regexp"
	"strings"

	"github.com/perceptionx/collector/internal/domain"
)

// Context is the job-function and location context injected into prompts.
type Context struct {
	Industry    string
	JobFunction string
	Location    string
}

// renderer injects context into the text of one prompt-type variant.
type renderer func(text string, c Context) string

var renderers = map[domain.PromptType]renderer{
	domain.PromptCompetitive:        renderCompetitive,
	domain.PromptTalentXCompetitive: renderCompetitive,
	domain.PromptDiscovery:          renderDiscovery,
	domain.PromptTalentXVisibility:  renderDiscovery,
}

// AppendContext rewrites text with c according to the variant of t. Applying
// it to its own output with the same context returns the same string.
func AppendContext(text string, t domain.PromptType, c Context) string {
	r, ok := renderers[t]
	if !ok {
		r = renderDefault
	}
	return r(text, c)
}

// renderDefault appends "for {job}" and "in {location}" before the terminal
// punctuation.
func renderDefault(text string, c Context) string {
	if c.JobFunction != "" && !containsFold(text, c.JobFunction) {
		text = appendClause(text, "for "+c.JobFunction)
	}
	return withLocation(text, c)
}

// renderCompetitive replaces the trailing industry clause with
// "among companies hiring {job}".
func renderCompetitive(text string, c Context) string {
	if c.JobFunction != "" && !containsFold(text, c.JobFunction) {
		body, punct := splitTerminal(text)
		if stripped, ok := stripIndustry(body, c.Industry, true); ok {
			text = stripped + " among companies hiring " + c.JobFunction + punct
		} else {
			text = appendClause(text, "for "+c.JobFunction)
		}
	}
	return withLocation(text, c)
}

// renderDiscovery drops industry clauses and appends "for {job}".
func renderDiscovery(text string, c Context) string {
	if c.JobFunction != "" && !containsFold(text, c.JobFunction) {
		body, punct := splitTerminal(text)
		body, _ = stripIndustry(body, c.Industry, false)
		if strings.HasSuffix(strings.ToLower(body), " for") {
			text = body + " " + c.JobFunction + punct
		} else {
			text = body + " for " + c.JobFunction + punct
		}
	}
	return withLocation(text, c)
}

func withLocation(text string, c Context) string {
	if c.Location == "" || containsFold(text, c.Location) {
		return text
	}
	return appendClause(text, "in "+c.Location)
}

// stripIndustry removes "in the {industry} industry" or "in {industry}"
// clauses from body. When trailingOnly is set only a clause at the end of
// body is removed.
func stripIndustry(body, industry string, trailingOnly bool) (string, bool) {
	if industry == "" {
		return body, false
	}
	q := regexp.QuoteMeta(industry)
	pattern := `(?i)\s+in\s+(?:the\s+)?` + q + `(?:\s+industry)?`
	if trailingOnly {
		pattern += `$`
	} else {
		pattern += `\b`
	}
	re := regexp.MustCompile(pattern)
	if !re.MatchString(body) {
		return body, false
	}
	return strings.TrimSpace(re.ReplaceAllString(body, "")), true
}

func appendClause(text, clause string) string {
	body, punct := splitTerminal(text)
	return body + " " + clause + punct
}

func splitTerminal(text string) (string, string) {
	text = strings.TrimSpace(text)
	if n := len(text); n > 0 {
		switch text[n-1] {
		case '?', '.', '!':
			return strings.TrimSpace(text[:n-1]), text[n-1:]
		}
	}
	return text, ""
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}
