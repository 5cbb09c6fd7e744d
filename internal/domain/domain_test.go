package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectionStatusTransitions(t *testing.T) {
	tests := []struct {
		from, to CollectionStatus
		want     bool
	}{
		{CollectionPending, CollectionCollectingLLMData, true},
		{CollectionPending, CollectionCollectingSearchInsights, true},
		{CollectionCollectingSearchInsights, CollectionCollectingLLMData, true},
		{CollectionCollectingLLMData, CollectionCompleted, true},
		{CollectionCollectingLLMData, CollectionFailed, true},
		{CollectionPending, CollectionFailed, true},
		{CollectionCollectingLLMData, CollectionPending, false},
		{CollectionCollectingLLMData, CollectionCollectingLLMData, false},
		{CollectionCompleted, CollectionFailed, false},
		{CollectionFailed, CollectionCollectingLLMData, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.from.CanTransition(tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestNormalizeCitations(t *testing.T) {
	raw := []interface{}{
		"https://www.glassdoor.com/Reviews/Acme.htm",
		map[string]interface{}{"link": "https://acme.com/careers", "title": "Careers"},
		map[string]interface{}{"url": "http://news.example.org/a", "domain": "example.org"},
		"ftp://files.example.com/x",
		"not a url",
		42,
		"https://acme.com/careers",
	}

	got := NormalizeCitations(raw)
	require.Len(t, got, 4)

	assert.Equal(t, "glassdoor.com", got[0].Domain)
	assert.Equal(t, "glassdoor.com", got[0].Title)
	assert.Equal(t, Citation{URL: "https://acme.com/careers", Domain: "acme.com", Title: "Careers"}, got[1])
	assert.Equal(t, "example.org", got[2].Domain)
	assert.Equal(t, "https://acme.com/careers", got[3].URL)
}

func TestCollectionProgressRoundTripsThroughScanner(t *testing.T) {
	p := CollectionProgress{CurrentPrompt: "How is Acme as an employer?", CurrentModel: "openai", Completed: 2, Total: 12}
	v, err := p.Value()
	require.NoError(t, err)
	assert.Contains(t, v, `"currentModel":"openai"`)

	var back CollectionProgress
	require.NoError(t, back.Scan(v))
	assert.Equal(t, p, back)
}
