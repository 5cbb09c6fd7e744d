package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"

	"github.com/perceptionx/collector/internal/config"
)

// ModelAnswer is the text and raw citations one model returned for a prompt.
// Citations keep the provider's shape; domain.NormalizeCitations flattens them.
type ModelAnswer struct {
	Text      string
	Citations []interface{}
}

// ModelCaller sends a prompt to one AI model.
type ModelCaller interface {
	Name() string
	Ask(ctx context.Context, prompt string) (*ModelAnswer, error)
}

// NewModelCallers builds the callers for cfg.EnabledModels, in dispatch order.
// Each caller is rate limited when its config sets rate_per_second.
func NewModelCallers(cfg *config.Config) ([]ModelCaller, error) {
	var out []ModelCaller
	for _, name := range cfg.EnabledModels() {
		mc := cfg.Models[name]
		caller, err := NewModelCaller(name, mc)
		if err != nil {
			return nil, err
		}
		out = append(out, WithRateLimit(caller, mc.RatePerSecond))
	}
	return out, nil
}

// NewModelCaller builds the caller for one configured model.
func NewModelCaller(name string, mc config.ModelConfig) (ModelCaller, error) {
	switch mc.Provider {
	case "openai":
		return &chatCaller{name: name, chat: NewChatClient(&ChatConfig{
			Service: name, Model: mc.Model, APIKey: mc.APIKey, BaseURL: mc.BaseURL, Timeout: mc.Timeout,
		})}, nil
	case "perplexity":
		return &chatCaller{name: name, withCitations: true, chat: NewChatClient(&ChatConfig{
			Service: name, Model: mc.Model, APIKey: mc.APIKey, BaseURL: mc.BaseURL, Timeout: mc.Timeout,
		})}, nil
	case "serpapi":
		return NewAIOverviewCaller(name, mc.APIKey, mc.BaseURL, mc.Timeout), nil
	default:
		return nil, fmt.Errorf("model %q: unknown provider %q", name, mc.Provider)
	}
}

// chatCaller asks an OpenAI-compatible chat model. Perplexity answers carry
// citations as URL strings plus richer search_results objects.
type chatCaller struct {
	name          string
	chat          *ChatClient
	withCitations bool
}

func (c *chatCaller) Name() string { return c.name }

func (c *chatCaller) Ask(ctx context.Context, prompt string) (*ModelAnswer, error) {
	res, err := c.chat.Complete(ctx, ChatRequest{User: prompt})
	if err != nil {
		return nil, err
	}
	text := strings.TrimSpace(res.Content)
	if text == "" {
		return nil, ErrEmptyResponse
	}
	answer := &ModelAnswer{Text: text}
	if c.withCitations {
		answer.Citations = perplexityCitations(res)
	}
	return answer, nil
}

// perplexityCitations prefers search_results objects, which carry titles, and
// falls back to the bare citation URLs.
func perplexityCitations(res *ChatResult) []interface{} {
	var out []interface{}
	if len(res.SearchResults) > 0 {
		for _, r := range res.SearchResults {
			out = append(out, r)
		}
		return out
	}
	for _, u := range res.Citations {
		out = append(out, u)
	}
	return out
}

// AIOverviewCaller reads Google AI Overviews through SerpAPI.
type AIOverviewCaller struct {
	name    string
	client  *resty.Client
	apiKey  string
	baseURL string
}

// NewAIOverviewCaller creates a caller for the SerpAPI google engine.
func NewAIOverviewCaller(name, apiKey, baseURL string, timeout time.Duration) *AIOverviewCaller {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	if baseURL == "" {
		baseURL = "https://serpapi.com"
	}
	return &AIOverviewCaller{
		name:    name,
		client:  resty.New().SetTimeout(timeout),
		apiKey:  apiKey,
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}
}

func (c *AIOverviewCaller) Name() string { return c.name }

type aiOverview struct {
	TextBlocks []aiOverviewBlock `json:"text_blocks"`
	References []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
		Source  string `json:"source"`
	} `json:"references"`
	PageToken string `json:"page_token"`
	Error     string `json:"error"`
}

type aiOverviewBlock struct {
	Type    string            `json:"type"`
	Snippet string            `json:"snippet"`
	List    []aiOverviewBlock `json:"list"`
}

type serpSearchResponse struct {
	AIOverview *aiOverview `json:"ai_overview"`
	Error      string      `json:"error"`
}

// Ask runs a Google search for prompt and returns its AI overview. When the
// overview is deferred behind a page token a second request fetches it.
func (c *AIOverviewCaller) Ask(ctx context.Context, prompt string) (*ModelAnswer, error) {
	overview, err := c.search(ctx, map[string]string{"engine": "google", "q": prompt})
	if err != nil {
		return nil, err
	}
	if overview != nil && len(overview.TextBlocks) == 0 && overview.PageToken != "" {
		overview, err = c.search(ctx, map[string]string{"engine": "google_ai_overview", "page_token": overview.PageToken})
		if err != nil {
			return nil, err
		}
	}
	if overview == nil {
		return nil, fmt.Errorf("%s: no AI overview for query", c.name)
	}

	var b strings.Builder
	writeBlocks(&b, overview.TextBlocks)
	text := strings.TrimSpace(b.String())
	if text == "" {
		return nil, ErrEmptyResponse
	}

	answer := &ModelAnswer{Text: text}
	for _, r := range overview.References {
		answer.Citations = append(answer.Citations, map[string]interface{}{
			"link":   r.Link,
			"title":  r.Title,
			"source": r.Source,
		})
	}
	return answer, nil
}

func (c *AIOverviewCaller) search(ctx context.Context, params map[string]string) (*aiOverview, error) {
	var resp serpSearchResponse
	httpResp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(params).
		SetQueryParam("api_key", c.apiKey).
		SetResult(&resp).
		SetError(&resp).
		Get(c.baseURL + "/search.json")
	if err != nil {
		return nil, fmt.Errorf("failed to call SerpAPI: %w", err)
	}
	if httpResp.StatusCode() < 200 || httpResp.StatusCode() >= 300 {
		msg := resp.Error
		if msg == "" {
			msg = string(httpResp.Body())
		}
		return nil, &APIError{Service: "serpapi", StatusCode: httpResp.StatusCode(), Message: msg}
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("serpapi error: %s", resp.Error)
	}
	return resp.AIOverview, nil
}

func writeBlocks(b *strings.Builder, blocks []aiOverviewBlock) {
	for _, blk := range blocks {
		if s := strings.TrimSpace(blk.Snippet); s != "" {
			b.WriteString(s)
			b.WriteString("\n")
		}
		for _, item := range blk.List {
			if s := strings.TrimSpace(item.Snippet); s != "" {
				b.WriteString("- ")
				b.WriteString(s)
				b.WriteString("\n")
			}
			writeBlocks(b, item.List)
		}
	}
}

// rateLimitedCaller waits on a token bucket before every call.
type rateLimitedCaller struct {
	ModelCaller
	limiter *rate.Limiter
}

// WithRateLimit wraps caller so it issues at most perSecond calls per second.
// A non-positive rate returns caller unchanged.
func WithRateLimit(caller ModelCaller, perSecond float64) ModelCaller {
	if perSecond <= 0 {
		return caller
	}
	return &rateLimitedCaller{ModelCaller: caller, limiter: rate.NewLimiter(rate.Limit(perSecond), 1)}
}

func (c *rateLimitedCaller) Ask(ctx context.Context, prompt string) (*ModelAnswer, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%s rate limiter: %w", c.Name(), err)
	}
	return c.ModelCaller.Ask(ctx, prompt)
}
