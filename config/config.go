package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the trendz service.
type Config struct {
	General     GeneralConfig     `mapstructure:"general"`
	LLM         LLMConfig         `mapstructure:"llm"`
	Search      SearchConfig      `mapstructure:"search"`
	Video       VideoConfig       `mapstructure:"video"`
	Sources     SourcesConfig     `mapstructure:"sources"`
	Aggregation AggregationConfig `mapstructure:"aggregation"`
	Storage     StorageConfig     `mapstructure:"storage"`
	Profiles    ProfilesConfig    `mapstructure:"profiles"`
	Leaderboard LeaderboardConfig `mapstructure:"leaderboard"`
}

// GeneralConfig contains general application settings.
type GeneralConfig struct {
	Listen         string        `mapstructure:"listen"`
	Debug          bool          `mapstructure:"debug"`
	LogLevel       string        `mapstructure:"log_level"`
	DefaultTimeout time.Duration `mapstructure:"default_timeout"`
	RefreshCron    string        `mapstructure:"refresh_cron"`
}

// LLMConfig contains the generation backend settings.
type LLMConfig struct {
	APIKey      string        `mapstructure:"api_key"`
	Model       string        `mapstructure:"model"`
	Temperature float64       `mapstructure:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Timeout     time.Duration `mapstructure:"timeout"`
	MaxRetries  int           `mapstructure:"max_retries"`
}

// SearchConfig contains the optional web-search augmentation settings.
type SearchConfig struct {
	Provider     string        `mapstructure:"provider"` // serper or brave; empty disables search
	SerperAPIKey string        `mapstructure:"serper_api_key"`
	BraveAPIKey  string        `mapstructure:"brave_api_key"`
	MaxResults   int           `mapstructure:"max_results"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

// VideoConfig contains the YouTube video recommendation settings. An empty
// api_key disables the feature.
type VideoConfig struct {
	APIKey     string        `mapstructure:"api_key"`
	Endpoint   string        `mapstructure:"endpoint"`
	MaxResults int           `mapstructure:"max_results"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// SourcesConfig contains per-source fetcher settings.
type SourcesConfig struct {
	Newsletter NewsletterConfig `mapstructure:"newsletter"`
	NewsAPI    NewsAPIConfig    `mapstructure:"newsapi"`
	Arxiv      ArxivConfig      `mapstructure:"arxiv"`
	Timeout    time.Duration    `mapstructure:"timeout"`
}

// NewsletterConfig points at a beehiiv-style newsletter homepage.
type NewsletterConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	EnrichExcerpts int    `mapstructure:"enrich_excerpts"` // how many articles get a readability excerpt
	RenderJS       bool   `mapstructure:"render_js"`       // use headless chrome for excerpt pages
}

// NewsAPIConfig contains NewsAPI settings.
type NewsAPIConfig struct {
	APIKey     string `mapstructure:"api_key"`
	Endpoint   string `mapstructure:"endpoint"`
	Query      string `mapstructure:"query"`
	MaxResults int    `mapstructure:"max_results"`
}

// ArxivConfig contains arXiv listing settings.
type ArxivConfig struct {
	Enabled    bool     `mapstructure:"enabled"`
	Categories []string `mapstructure:"categories"`
}

// AggregationConfig controls snapshot caching and retention.
type AggregationConfig struct {
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
	KeepSnapshots   int           `mapstructure:"keep_snapshots"`
}

// StorageConfig contains persistence settings.
type StorageConfig struct {
	Redis    RedisConfig    `mapstructure:"redis"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	DataDir  string         `mapstructure:"data_dir"`
}

// RedisConfig contains Redis connection settings.
type RedisConfig struct {
	Host     string        `mapstructure:"host"`
	Port     int           `mapstructure:"port"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// PostgresConfig contains Postgres connection settings.
type PostgresConfig struct {
	URL      string `mapstructure:"url"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

// ProfilesConfig locates user profile YAML files and credentials. Users maps
// user id to a bcrypt password hash.
type ProfilesConfig struct {
	Dir   string            `mapstructure:"dir"`
	Users map[string]string `mapstructure:"users"`
}

// LeaderboardConfig controls the leaderboard artifact producer.
type LeaderboardConfig struct {
	DatasetURL  string        `mapstructure:"dataset_url"`
	MetadataURL string        `mapstructure:"metadata_url"`
	PageSize    int           `mapstructure:"page_size"`
	MaxPages    int           `mapstructure:"max_pages"`
	TopN        int           `mapstructure:"top_n"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// DSN builds a Postgres connection string from the config.
func (p PostgresConfig) DSN() (string, error) {
	if p.URL != "" {
		return p.URL, nil
	}
	if p.Host == "" || p.DBName == "" {
		return "", fmt.Errorf("postgres not configured (storage.postgres.host/dbname or url)")
	}
	port := p.Port
	if port == 0 {
		port = 5432
	}
	ssl := p.SSLMode
	if ssl == "" {
		ssl = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s", p.User, p.Password, p.Host, port, p.DBName, ssl), nil
}

// Load loads configuration from file and environment variables.
func Load() (*Config, error) {
	viper.SetConfigName("trendz")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./config")
	viper.AddConfigPath(".")

	viper.SetEnvPrefix("TRENDZ")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	// Config file is optional, defaults plus env are enough to run.
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	overrideFromEnv()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("general.listen", ":8080")
	viper.SetDefault("general.debug", false)
	viper.SetDefault("general.log_level", "info")
	viper.SetDefault("general.default_timeout", "30s")
	viper.SetDefault("general.refresh_cron", "")

	viper.SetDefault("llm.model", "gpt-4o-mini")
	viper.SetDefault("llm.temperature", 0.7)
	viper.SetDefault("llm.max_tokens", 2000)
	viper.SetDefault("llm.timeout", "60s")
	viper.SetDefault("llm.max_retries", 2)

	viper.SetDefault("search.max_results", 5)
	viper.SetDefault("search.timeout", "15s")

	viper.SetDefault("video.endpoint", "https://www.googleapis.com/youtube/v3/search")
	viper.SetDefault("video.max_results", 8)
	viper.SetDefault("video.timeout", "10s")

	viper.SetDefault("sources.timeout", "15s")
	viper.SetDefault("sources.newsletter.enrich_excerpts", 5)
	viper.SetDefault("sources.newsapi.endpoint", "https://newsapi.org/v2/everything")
	viper.SetDefault("sources.newsapi.query", "artificial intelligence")
	viper.SetDefault("sources.newsapi.max_results", 50)
	viper.SetDefault("sources.arxiv.categories", []string{"https://arxiv.org/list/cs.AI/recent"})

	viper.SetDefault("aggregation.refresh_interval", "24h")
	viper.SetDefault("aggregation.keep_snapshots", 10)

	viper.SetDefault("storage.redis.host", "localhost")
	viper.SetDefault("storage.redis.port", 6379)
	viper.SetDefault("storage.redis.db", 0)
	viper.SetDefault("storage.redis.timeout", "5s")
	viper.SetDefault("storage.data_dir", "./data")
	viper.SetDefault("storage.postgres.sslmode", "disable")

	viper.SetDefault("profiles.dir", "./data/users")

	viper.SetDefault("leaderboard.dataset_url", "https://datasets-server.huggingface.co/rows")
	viper.SetDefault("leaderboard.metadata_url", "https://huggingface.co/api/datasets/livebench/model_judgment")
	viper.SetDefault("leaderboard.page_size", 100)
	viper.SetDefault("leaderboard.max_pages", 10)
	viper.SetDefault("leaderboard.top_n", 20)
	viper.SetDefault("leaderboard.timeout", "3m")
}

// overrideFromEnv maps well-known environment variables onto config keys so
// secrets never need to live in the config file.
func overrideFromEnv() {
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		viper.Set("llm.api_key", apiKey)
	}
	if apiKey := os.Getenv("NEWSAPI_API_KEY"); apiKey != "" {
		viper.Set("sources.newsapi.api_key", apiKey)
	}
	if apiKey := os.Getenv("SERPER_API_KEY"); apiKey != "" {
		viper.Set("search.serper_api_key", apiKey)
		if viper.GetString("search.provider") == "" {
			viper.Set("search.provider", "serper")
		}
	}
	if apiKey := os.Getenv("BRAVE_SEARCH_KEY"); apiKey != "" {
		viper.Set("search.brave_api_key", apiKey)
		if viper.GetString("search.provider") == "" {
			viper.Set("search.provider", "brave")
		}
	}
	if apiKey := os.Getenv("YOUTUBE_API_KEY"); apiKey != "" {
		viper.Set("video.api_key", apiKey)
	}
	if url := os.Getenv("SCRAPER_BASE_URL"); url != "" {
		viper.Set("sources.newsletter.base_url", url)
	}
	if url := os.Getenv("DATABASE_URL"); url != "" {
		viper.Set("storage.postgres.url", url)
	}
	if host := os.Getenv("REDIS_HOST"); host != "" {
		viper.Set("storage.redis.host", host)
	}
}

func validate(cfg *Config) error {
	if cfg.LLM.APIKey == "" {
		return fmt.Errorf("llm.api_key is required (set OPENAI_API_KEY)")
	}
	if cfg.Aggregation.RefreshInterval <= 0 {
		return fmt.Errorf("aggregation.refresh_interval must be positive")
	}
	if cfg.Aggregation.KeepSnapshots < 1 {
		return fmt.Errorf("aggregation.keep_snapshots must be at least 1")
	}
	switch cfg.Search.Provider {
	case "", "serper", "brave":
	default:
		return fmt.Errorf("search.provider must be serper or brave, got %q", cfg.Search.Provider)
	}
	return nil
}
