package prompts

import (
	"strings"

	"github.com/perceptionx/collector/internal/domain"
)

// Attribute is one TalentX employer-brand attribute.
type Attribute struct {
	ID      string
	Name    string
	Subject string // noun phrase used inside the question templates
}

// Attributes is the fixed TalentX catalog, in generation order.
var Attributes = []Attribute{
	{ID: "mission-purpose", Name: "Mission & Purpose", Subject: "mission and sense of purpose"},
	{ID: "rewards-recognition", Name: "Rewards & Recognition", Subject: "pay, rewards and recognition"},
	{ID: "company-culture", Name: "Company Culture", Subject: "company culture"},
	{ID: "social-impact", Name: "Social Impact", Subject: "social and environmental impact"},
	{ID: "inclusion", Name: "Inclusion", Subject: "diversity and inclusion"},
	{ID: "innovation", Name: "Innovation", Subject: "innovation"},
	{ID: "wellbeing-balance", Name: "Wellbeing & Balance", Subject: "employee wellbeing and work-life balance"},
	{ID: "leadership", Name: "Leadership", Subject: "leadership"},
	{ID: "security-perks", Name: "Security & Perks", Subject: "job security and perks"},
	{ID: "career-opportunities", Name: "Career Opportunities", Subject: "career growth opportunities"},
	{ID: "application-process", Name: "Application Process", Subject: "application process"},
	{ID: "candidate-communication", Name: "Candidate Communication", Subject: "communication with candidates"},
	{ID: "interview-experience", Name: "Interview Experience", Subject: "interview experience"},
	{ID: "candidate-feedback", Name: "Candidate Feedback", Subject: "feedback to candidates"},
	{ID: "onboarding-experience", Name: "Onboarding Experience", Subject: "onboarding of new hires"},
	{ID: "overall-candidate-experience", Name: "Overall Candidate Experience", Subject: "overall candidate experience"},
}

// talentXTypes lists the per-attribute prompt types with their composite id suffix.
var talentXTypes = []struct {
	Type   domain.PromptType
	Suffix string
}{
	{domain.PromptTalentXSentiment, "sentiment"},
	{domain.PromptTalentXCompetitive, "competitive"},
	{domain.PromptTalentXVisibility, "visibility"},
}

// AttributeIDFromComposite strips the prompt-type suffix from a composite id
// such as "mission-purpose-sentiment".
func AttributeIDFromComposite(composite string) string {
	for _, t := range talentXTypes {
		if s := "-" + t.Suffix; strings.HasSuffix(composite, s) {
			return strings.TrimSuffix(composite, s)
		}
	}
	return composite
}

func talentXText(t domain.PromptType, a Attribute, company, industry string) string {
	switch t {
	case domain.PromptTalentXSentiment:
		return "How do employees and candidates describe the " + a.Subject + " at " + company + "?"
	case domain.PromptTalentXCompetitive:
		return "How does the " + a.Subject + " at " + company + " compare to other employers in the " + industry + " industry?"
	default:
		return "Which companies in the " + industry + " industry are known for their " + a.Subject + "?"
	}
}
