package service

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perceptionx/collector/internal/config"
	"github.com/perceptionx/collector/internal/domain"
)

func TestOpenAICallerReturnsText(t *testing.T) {
	srv := jsonServer(t, func(w http.ResponseWriter, r *http.Request) {
		var body chatRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "gpt-4o-mini", body.Model)
		if assert.Len(t, body.Messages, 1) {
			assert.Equal(t, "How is Acme as an employer?", body.Messages[0].Content)
		}
		w.Write([]byte(`{"choices":[{"message":{"content":"  Acme is a solid employer.  "}}]}`))
	})

	caller, err := NewModelCaller("openai", config.ModelConfig{Provider: "openai", Model: "gpt-4o-mini", APIKey: "k", BaseURL: srv.URL})
	require.NoError(t, err)
	assert.Equal(t, "openai", caller.Name())

	answer, err := caller.Ask(context.Background(), "How is Acme as an employer?")
	require.NoError(t, err)
	assert.Equal(t, "Acme is a solid employer.", answer.Text)
	assert.Empty(t, answer.Citations)
}

func TestPerplexityCallerPrefersSearchResults(t *testing.T) {
	srv := jsonServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"choices":[{"message":{"content":"Acme is well-regarded."}}],
			"citations":["https://a.example.com/x"],
			"search_results":[{"title":"Acme reviews","url":"https://www.glassdoor.com/acme"}]
		}`))
	})
	caller, err := NewModelCaller("perplexity", config.ModelConfig{Provider: "perplexity", Model: "sonar", APIKey: "k", BaseURL: srv.URL})
	require.NoError(t, err)

	answer, err := caller.Ask(context.Background(), "q")
	require.NoError(t, err)
	cites := domain.NormalizeCitations(answer.Citations)
	require.Len(t, cites, 1)
	assert.Equal(t, "glassdoor.com", cites[0].Domain)
	assert.Equal(t, "Acme reviews", cites[0].Title)
}

func TestChatCallerReportsHTTPErrors(t *testing.T) {
	srv := jsonServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusGatewayTimeout)
		w.Write([]byte(`{"error":{"message":"upstream timeout","type":"server_error"}}`))
	})
	caller, err := NewModelCaller("openai", config.ModelConfig{Provider: "openai", Model: "m", BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = caller.Ask(context.Background(), "q")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusGatewayTimeout, apiErr.StatusCode)
	assert.Equal(t, "upstream timeout", apiErr.Message)
	assert.True(t, IsTimeout(err))
}

func TestChatCallerRejectsEmptyAnswer(t *testing.T) {
	srv := jsonServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[{"message":{"content":"   "}}]}`))
	})
	caller, err := NewModelCaller("openai", config.ModelConfig{Provider: "openai", BaseURL: srv.URL})
	require.NoError(t, err)
	_, err = caller.Ask(context.Background(), "q")
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestAIOverviewCallerFollowsPageToken(t *testing.T) {
	var engines []string
	srv := jsonServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search.json", r.URL.Path)
		assert.Equal(t, "serp-key", r.URL.Query().Get("api_key"))
		engine := r.URL.Query().Get("engine")
		engines = append(engines, engine)
		if engine == "google" {
			assert.Equal(t, "best employers in software", r.URL.Query().Get("q"))
			w.Write([]byte(`{"ai_overview":{"page_token":"tok-1"}}`))
			return
		}
		assert.Equal(t, "tok-1", r.URL.Query().Get("page_token"))
		w.Write([]byte(`{"ai_overview":{
			"text_blocks":[
				{"type":"paragraph","snippet":"Top software employers include:"},
				{"type":"list","list":[{"snippet":"Acme"},{"snippet":"Globex"}]}
			],
			"references":[{"title":"Best places","link":"https://example.com/best","source":"Example"}]
		}}`))
	})

	caller := NewAIOverviewCaller("google-ai-overviews", "serp-key", srv.URL, time.Second)
	answer, err := caller.Ask(context.Background(), "best employers in software")
	require.NoError(t, err)

	assert.Equal(t, []string{"google", "google_ai_overview"}, engines)
	assert.Equal(t, "Top software employers include:\n- Acme\n- Globex", answer.Text)
	cites := domain.NormalizeCitations(answer.Citations)
	require.Len(t, cites, 1)
	assert.Equal(t, "https://example.com/best", cites[0].URL)
	assert.Equal(t, "Best places", cites[0].Title)
}

func TestAIOverviewCallerWithoutOverview(t *testing.T) {
	srv := jsonServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"organic_results":[]}`))
	})
	caller := NewAIOverviewCaller("google-ai-overviews", "k", srv.URL, time.Second)
	_, err := caller.Ask(context.Background(), "q")
	assert.Error(t, err)
}

func TestNewModelCallersFollowsDispatchOrder(t *testing.T) {
	cfg := &config.Config{
		Models: map[string]config.ModelConfig{
			config.ModelOpenAI:     {Provider: "openai", Model: "gpt-4o-mini", RatePerSecond: 2},
			config.ModelPerplexity: {Provider: "perplexity", Model: "sonar"},
		},
		Dispatch: config.DispatchConfig{Models: []string{config.ModelPerplexity, config.ModelOpenAI, config.ModelGoogleAIOverviews}},
	}
	callers, err := NewModelCallers(cfg)
	require.NoError(t, err)
	require.Len(t, callers, 2)
	assert.Equal(t, config.ModelPerplexity, callers[0].Name())
	assert.Equal(t, config.ModelOpenAI, callers[1].Name())
	_, limited := callers[1].(*rateLimitedCaller)
	assert.True(t, limited)

	_, err = NewModelCaller("x", config.ModelConfig{Provider: "unknown"})
	assert.Error(t, err)
}

func TestRateLimitedCallerHonoursContext(t *testing.T) {
	caller := WithRateLimit(newFakeModel("openai", nil), 0.001)
	_, err := caller.Ask(context.Background(), "first")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = caller.Ask(ctx, "second")
	assert.Error(t, err)
}
