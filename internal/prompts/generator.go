package prompts

import (
	"strings"

	"github.com/perceptionx/collector/internal/domain"
)

// Options describes the company a prompt set is generated for.
type Options struct {
	CompanyName string
	Industry    string
	JobFunction string
	Location    string // human-readable location, empty for global
	ProTier     bool
}

// Prompt is one generated prompt before it is persisted.
type Prompt struct {
	Text               string
	Category           string
	Theme              string
	Type               domain.PromptType
	TalentXAttributeID string
	JobFunction        string
	Location           string
}

// Base prompt count and the size of a pro-tier set.
const (
	BaseCount    = 4
	ProTierCount = BaseCount + 48
)

// Generate returns the ordered prompt set for opts. The result depends only
// on opts.
func Generate(opts Options) []Prompt {
	company := strings.TrimSpace(opts.CompanyName)
	industry := strings.TrimSpace(opts.Industry)
	ctx := Context{
		Industry:    industry,
		JobFunction: strings.TrimSpace(opts.JobFunction),
		Location:    strings.TrimSpace(opts.Location),
	}

	base := []Prompt{
		{
			Text:     "How is " + company + " as an employer?",
			Category: "General",
			Theme:    "Employer Reputation",
			Type:     domain.PromptExperience,
		},
		{
			Text:     "What is the best company to work for in the " + industry + " industry?",
			Category: "General",
			Theme:    "Industry Leaders",
			Type:     domain.PromptDiscovery,
		},
		{
			Text:     "How does working at " + company + " compare to other companies?",
			Category: "General",
			Theme:    "Competitive Positioning",
			Type:     domain.PromptCompetitive,
		},
		{
			Text:     "What are the job and employment details at " + company + "?",
			Category: "General",
			Theme:    "Job Information",
			Type:     domain.PromptInformational,
		},
	}

	out := make([]Prompt, 0, ProTierCount)
	out = append(out, base...)

	if opts.ProTier {
		for _, a := range Attributes {
			for _, t := range talentXTypes {
				out = append(out, Prompt{
					Text:               talentXText(t.Type, a, company, industry),
					Category:           "TalentX",
					Theme:              a.Name,
					Type:               t.Type,
					TalentXAttributeID: AttributeIDFromComposite(a.ID + "-" + t.Suffix),
				})
			}
		}
	}

	for i := range out {
		out[i].Text = AppendContext(out[i].Text, out[i].Type, ctx)
		out[i].JobFunction = ctx.JobFunction
		out[i].Location = ctx.Location
	}
	return out
}
