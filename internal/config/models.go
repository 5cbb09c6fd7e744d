package config

import (
	"fmt"
	"os"
	"time"
)

// Model names understood by the dispatcher, in dispatch order.
const (
	ModelOpenAI            = "openai"
	ModelPerplexity        = "perplexity"
	ModelGoogleAIOverviews = "google-ai-overviews"
)

// DefaultModelOrder is the fixed order in which every prompt is sent to models.
var DefaultModelOrder = []string{ModelOpenAI, ModelPerplexity, ModelGoogleAIOverviews}

// ModelConfig defines one AI model endpoint the dispatcher can call.
type ModelConfig struct {
	Provider      string        `mapstructure:"provider"`        // openai, perplexity, serpapi
	Model         string        `mapstructure:"model"`           // provider model id; unused for serpapi
	APIKey        string        `mapstructure:"api_key"`         // set directly or through APIKeyEnv
	APIKeyEnv     string        `mapstructure:"api_key_env"`     // env var holding the key
	BaseURL       string        `mapstructure:"base_url"`        // override for compatible gateways
	BaseURLEnv    string        `mapstructure:"base_url_env"`    // env var holding the base URL
	Timeout       time.Duration `mapstructure:"timeout"`         // per-call timeout
	RatePerSecond float64       `mapstructure:"rate_per_second"` // 0 disables limiting
}

// ResolveEnvVars fills APIKey and BaseURL from their *Env indirections.
// Values set directly take precedence.
func (c *ModelConfig) ResolveEnvVars() {
	if c.APIKeyEnv != "" && c.APIKey == "" {
		c.APIKey = os.Getenv(c.APIKeyEnv)
	}
	if c.BaseURLEnv != "" && c.BaseURL == "" {
		c.BaseURL = os.Getenv(c.BaseURLEnv)
	}
}

// Validate checks the fields needed to build a caller for this model.
func (c *ModelConfig) Validate(name string) error {
	switch c.Provider {
	case "openai", "perplexity":
		if c.Model == "" {
			return fmt.Errorf("model %q: model is required", name)
		}
	case "serpapi":
	case "":
		return fmt.Errorf("model %q: provider is required", name)
	default:
		return fmt.Errorf("model %q: unknown provider %q", name, c.Provider)
	}
	if c.APIKey == "" {
		return fmt.Errorf("model %q: api_key is required (set directly or via %s)", name, c.APIKeyEnv)
	}
	return nil
}
