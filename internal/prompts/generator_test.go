package prompts

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perceptionx/collector/internal/domain"
)

func texts(ps []Prompt) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.Text
	}
	return out
}

func TestGenerateFreeTier(t *testing.T) {
	got := Generate(Options{CompanyName: "Acme", Industry: "Software"})

	assert.Equal(t, []string{
		"How is Acme as an employer?",
		"What is the best company to work for in the Software industry?",
		"How does working at Acme compare to other companies?",
		"What are the job and employment details at Acme?",
	}, texts(got))
	assert.Equal(t, []domain.PromptType{
		domain.PromptExperience,
		domain.PromptDiscovery,
		domain.PromptCompetitive,
		domain.PromptInformational,
	}, []domain.PromptType{got[0].Type, got[1].Type, got[2].Type, got[3].Type})
}

func TestGenerateProTier(t *testing.T) {
	got := Generate(Options{CompanyName: "Acme", Industry: "Software", ProTier: true})
	require.Len(t, got, ProTierCount)
	assert.Equal(t, 52, len(got))

	perType := map[domain.PromptType]int{}
	attrs := map[string]bool{}
	for _, p := range got[BaseCount:] {
		perType[p.Type]++
		assert.True(t, p.Type.IsTalentX())
		assert.NotEmpty(t, p.TalentXAttributeID)
		assert.False(t, strings.HasSuffix(p.TalentXAttributeID, "-sentiment"))
		attrs[p.TalentXAttributeID] = true
	}
	assert.Len(t, attrs, 16)
	assert.Equal(t, 16, perType[domain.PromptTalentXSentiment])
	assert.Equal(t, 16, perType[domain.PromptTalentXCompetitive])
	assert.Equal(t, 16, perType[domain.PromptTalentXVisibility])
}

func TestGenerateIsDeterministic(t *testing.T) {
	opts := Options{CompanyName: "Globex", Industry: "Energy", JobFunction: "Data Science", Location: "Germany", ProTier: true}
	assert.Equal(t, texts(Generate(opts)), texts(Generate(opts)))
}

func TestAttributeIDFromComposite(t *testing.T) {
	assert.Equal(t, "mission-purpose", AttributeIDFromComposite("mission-purpose-sentiment"))
	assert.Equal(t, "leadership", AttributeIDFromComposite("leadership-competitive"))
	assert.Equal(t, "innovation", AttributeIDFromComposite("innovation-visibility"))
	assert.Equal(t, "inclusion", AttributeIDFromComposite("inclusion"))
}

func TestAppendContextVariants(t *testing.T) {
	c := Context{Industry: "Software", JobFunction: "Engineering", Location: "France"}

	tests := []struct {
		name string
		text string
		typ  domain.PromptType
		want string
	}{
		{
			name: "experience appends both clauses",
			text: "How is Acme as an employer?",
			typ:  domain.PromptExperience,
			want: "How is Acme as an employer for Engineering in France?",
		},
		{
			name: "discovery strips industry",
			text: "What is the best company to work for in the Software industry?",
			typ:  domain.PromptDiscovery,
			want: "What is the best company to work for Engineering in France?",
		},
		{
			name: "competitive replaces trailing industry clause",
			text: "How does the leadership at Acme compare to other employers in the Software industry?",
			typ:  domain.PromptTalentXCompetitive,
			want: "How does the leadership at Acme compare to other employers among companies hiring Engineering in France?",
		},
		{
			name: "competitive without industry clause appends",
			text: "How does working at Acme compare to other companies?",
			typ:  domain.PromptCompetitive,
			want: "How does working at Acme compare to other companies for Engineering in France?",
		},
		{
			name: "visibility strips inner industry clause",
			text: "Which companies in the Software industry are known for their innovation?",
			typ:  domain.PromptTalentXVisibility,
			want: "Which companies are known for their innovation for Engineering in France?",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AppendContext(tt.text, tt.typ, c)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, AppendContext(got, tt.typ, c), "second application must not change the text")
		})
	}
}

func TestAppendContextSkipsWordsAlreadyPresent(t *testing.T) {
	got := AppendContext("How is Acme as an employer in france?", domain.PromptExperience, Context{Location: "France"})
	assert.Equal(t, "How is Acme as an employer in france?", got)
}

func TestAppendContextIdempotentOverGeneratedSet(t *testing.T) {
	c := Context{Industry: "Retail", JobFunction: "Marketing", Location: "Japan"}
	for _, p := range Generate(Options{CompanyName: "Initech", Industry: "Retail", JobFunction: c.JobFunction, Location: c.Location, ProTier: true}) {
		assert.Equal(t, p.Text, AppendContext(p.Text, p.Type, c))
	}
}

func TestAppendContextNoContext(t *testing.T) {
	text := "What is the best company to work for in the Software industry?"
	assert.Equal(t, text, AppendContext(text, domain.PromptDiscovery, Context{Industry: "Software"}))
}
