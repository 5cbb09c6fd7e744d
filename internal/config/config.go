package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server         ServerConfig           `mapstructure:"server"`
	Database       DatabaseConfig         `mapstructure:"database"`
	Models         map[string]ModelConfig `mapstructure:"models"`
	Dispatch       DispatchConfig         `mapstructure:"dispatch"`
	Translation    TranslationConfig      `mapstructure:"translation"`
	Analysis       AnalysisConfig         `mapstructure:"analysis"`
	SearchInsights SearchInsightsConfig   `mapstructure:"search_insights"`
	Recency        RecencyConfig          `mapstructure:"recency"`
	Progress       ProgressConfig         `mapstructure:"progress"`
	Storage        StorageConfig          `mapstructure:"storage"`
}

type ServerConfig struct {
	Port int        `mapstructure:"port"`
	Mode string     `mapstructure:"mode"`
	CORS CORSConfig `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowedOrigins  []string `mapstructure:"allowed_origins"`
	AllowAllOrigins bool     `mapstructure:"allow_all_origins"`
}

// DatabaseConfig selects the gorm driver and its connection settings.
// For postgres, URL wins over the discrete host/user fields.
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"` // postgres or sqlite
	Path            string        `mapstructure:"path"`   // sqlite file path
	URL             string        `mapstructure:"url"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// DSN returns the driver-specific data source name.
func (c *DatabaseConfig) DSN() string {
	if c.Driver == "postgres" {
		if c.URL != "" {
			return c.URL
		}
		u := url.URL{
			Scheme:   "postgres",
			User:     url.UserPassword(c.User, c.Password),
			Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
			Path:     "/" + c.DBName,
			RawQuery: "sslmode=" + c.SSLMode,
		}
		return u.String()
	}
	return c.Path
}

// DispatchConfig controls the prompt × model loop.
type DispatchConfig struct {
	Models      []string `mapstructure:"models"`
	Concurrency int      `mapstructure:"concurrency"` // 1 keeps strict prompt-then-model order
}

type TranslationConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	Policy     string        `mapstructure:"policy"` // required or best_effort
	Model      string        `mapstructure:"model"`
	Timeout    time.Duration `mapstructure:"timeout"`
	RetryDelay time.Duration `mapstructure:"retry_delay"`
}

type AnalysisConfig struct {
	UseLLM bool   `mapstructure:"use_llm"`
	Model  string `mapstructure:"model"`
}

type SearchInsightsConfig struct {
	Enabled                  bool     `mapstructure:"enabled"`
	SerpAPIKey               string   `mapstructure:"serpapi_api_key"`
	KeywordsEverywhereAPIKey string   `mapstructure:"keywords_everywhere_api_key"`
	Country                  string   `mapstructure:"country"`
	ResultsPerTerm           int      `mapstructure:"results_per_term"`
	Terms                    []string `mapstructure:"terms"` // %s is replaced by the company name
}

type RecencyConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	Workers       int           `mapstructure:"workers"`
	Timeout       time.Duration `mapstructure:"timeout"`
	RatePerSecond float64       `mapstructure:"rate_per_second"`
	UserAgent     string        `mapstructure:"user_agent"`
	MaxBodyBytes  int           `mapstructure:"max_body_bytes"`
}

type ProgressConfig struct {
	Redis RedisConfig `mapstructure:"redis"`
}

type RedisConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
	Channel string `mapstructure:"channel"`
}

// StorageConfig points at the S3-compatible bucket that receives exported reports.
type StorageConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Type      string `mapstructure:"type"` // r2, s3, s3compatible; detected from endpoint when empty
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	PublicURL string `mapstructure:"public_url"`
}

// OpenAIKey returns the API key of the openai model entry, which translation
// and analysis reuse.
func (c *Config) OpenAIKey() string {
	return c.Models[ModelOpenAI].APIKey
}

// OpenAIBaseURL returns the base URL of the openai model entry.
func (c *Config) OpenAIBaseURL() string {
	return c.Models[ModelOpenAI].BaseURL
}

// EnabledModels returns the dispatch order restricted to configured models.
func (c *Config) EnabledModels() []string {
	order := c.Dispatch.Models
	if len(order) == 0 {
		order = DefaultModelOrder
	}
	var out []string
	for _, name := range order {
		if _, ok := c.Models[name]; ok {
			out = append(out, name)
		}
	}
	return out
}

// Validate checks every model referenced by the dispatch order.
func (c *Config) Validate() error {
	var errs []error
	for _, name := range c.EnabledModels() {
		m := c.Models[name]
		if err := m.Validate(name); err != nil {
			errs = append(errs, err)
		}
	}
	if c.Dispatch.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("dispatch.concurrency must be at least 1"))
	}
	return errors.Join(errs...)
}

func Load(configPath string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Secrets come from the environment under their conventional names.
	v.BindEnv("database.url", "DATABASE_URL")
	v.BindEnv("database.driver", "DATABASE_DRIVER")
	v.BindEnv("search_insights.serpapi_api_key", "SERPAPI_API_KEY")
	v.BindEnv("search_insights.keywords_everywhere_api_key", "KEYWORDS_EVERYWHERE_API_KEY")
	v.BindEnv("progress.redis.url", "REDIS_URL")
	v.BindEnv("storage.endpoint", "S3_ENDPOINT")
	v.BindEnv("storage.access_key", "S3_ACCESS_KEY")
	v.BindEnv("storage.secret_key", "S3_SECRET_KEY")
	v.BindEnv("storage.bucket", "S3_BUCKET")
	v.BindEnv("storage.public_url", "S3_PUBLIC_URL")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	for name, m := range cfg.Models {
		m.ResolveEnvVars()
		if name == ModelGoogleAIOverviews && m.APIKey == "" {
			m.APIKey = cfg.SearchInsights.SerpAPIKey
		}
		cfg.Models[name] = m
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.cors.allow_all_origins", true)
	v.SetDefault("server.cors.allowed_origins", []string{})

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/perceptionx.db")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.sslmode", "require")
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("models", map[string]interface{}{
		ModelOpenAI: map[string]interface{}{
			"provider":        "openai",
			"model":           "gpt-4o-mini",
			"api_key_env":     "OPENAI_API_KEY",
			"base_url":        "https://api.openai.com/v1",
			"timeout":         "60s",
			"rate_per_second": 2.0,
		},
		ModelPerplexity: map[string]interface{}{
			"provider":        "perplexity",
			"model":           "sonar",
			"api_key_env":     "PERPLEXITY_API_KEY",
			"base_url":        "https://api.perplexity.ai",
			"timeout":         "90s",
			"rate_per_second": 1.0,
		},
		ModelGoogleAIOverviews: map[string]interface{}{
			"provider":        "serpapi",
			"api_key_env":     "SERPAPI_API_KEY",
			"base_url":        "https://serpapi.com",
			"timeout":         "60s",
			"rate_per_second": 1.0,
		},
	})
	v.SetDefault("dispatch.models", DefaultModelOrder)
	v.SetDefault("dispatch.concurrency", 1)

	v.SetDefault("translation.enabled", true)
	v.SetDefault("translation.policy", "required")
	v.SetDefault("translation.model", "gpt-4o-mini")
	v.SetDefault("translation.timeout", 45*time.Second)
	v.SetDefault("translation.retry_delay", 2*time.Second)

	v.SetDefault("analysis.use_llm", true)
	v.SetDefault("analysis.model", "gpt-4o-mini")

	v.SetDefault("search_insights.enabled", true)
	v.SetDefault("search_insights.country", "us")
	v.SetDefault("search_insights.results_per_term", 10)
	v.SetDefault("search_insights.terms", []string{
		"%s careers",
		"%s reviews",
		"working at %s",
		"%s jobs",
	})

	v.SetDefault("recency.enabled", true)
	v.SetDefault("recency.workers", 4)
	v.SetDefault("recency.timeout", 15*time.Second)
	v.SetDefault("recency.rate_per_second", 5.0)
	v.SetDefault("recency.user_agent", "PerceptionX-Recency/1.0")
	v.SetDefault("recency.max_body_bytes", 2<<20)

	v.SetDefault("progress.redis.enabled", false)
	v.SetDefault("progress.redis.channel", "perceptionx:progress")

	v.SetDefault("storage.enabled", false)
	v.SetDefault("storage.use_ssl", true)
	v.SetDefault("storage.bucket", "perceptionx-reports")
}
