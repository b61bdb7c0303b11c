package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Completion providers.
const (
	ProviderGemini = "gemini"
	ProviderClaude = "claude"
)

// Collections names the document-store collections per entity.
type Collections struct {
	Accounts string
	Posts    string
	Stories  string
	Analysis string
}

// Limits holds the tunables that bound selection and prompt size.
type Limits struct {
	WindowDays         int // lookback period in days
	PostFloor          int // minimum posts selected regardless of age
	AccountImages      int // images in the account-level prompt
	PostImages         int // images stored per post and sent per post prompt
	Comments           int // comments stored per post and sent to the comment prompt
	AccountSuggestions int
	PostSuggestions    int
}

// DefaultLimits returns the stock tunables.
func DefaultLimits() Limits {
	return Limits{
		WindowDays:         15,
		PostFloor:          9,
		AccountImages:      5,
		PostImages:         3,
		Comments:           50,
		AccountSuggestions: 3,
		PostSuggestions:    3,
	}
}

// Config holds all application configuration.
type Config struct {
	// Document store
	DatabaseURI  string // sqlite path, mongodb:// or postgres:// URI
	DatabaseName string // MongoDB database name
	Collections  Collections

	// Completion service
	CompletionProvider string
	GeminiAPIKey       string
	GeminiModel        string
	AnthropicAPIKey    string
	ClaudeModel        string

	// Profile source
	Usernames        []string
	InstagramSession string
	InstagramProxy   string
	RequestDelay     time.Duration

	// Assets
	AssetTimeout   time.Duration
	AssetDir       string
	AssetCacheSize int // entries, each up to 20 MiB: 64 entries may hold ~1.3 GB

	Limits Limits

	// Scheduler
	RunInterval time.Duration

	// Logging
	LogLevel string
}

// Load reads configuration from environment variables.
// It automatically loads .env file if present.
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURI:  getEnv("DATABASE_URI", "data/snagent.db"),
		DatabaseName: getEnv("DATABASE_NAME", "instagram_db"),
		Collections: Collections{
			Accounts: getEnv("ACCOUNTS_COLLECTION", "instagram_accounts"),
			Posts:    getEnv("POSTS_COLLECTION", "instagram_posts"),
			Stories:  getEnv("STORIES_COLLECTION", "instagram_stories"),
			Analysis: getEnv("ANALYSIS_COLLECTION", "instagram_analysis"),
		},
		CompletionProvider: strings.ToLower(getEnv("COMPLETION_PROVIDER", ProviderGemini)),
		GeminiAPIKey:       getEnv("GEMINI_API_KEY", ""),
		GeminiModel:        getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		AnthropicAPIKey:    getEnv("ANTHROPIC_API_KEY", ""),
		ClaudeModel:        getEnv("CLAUDE_MODEL", "claude-sonnet-4-20250514"),
		Usernames:          splitList(getEnv("INSTAGRAM_USERNAME_ANALYZE", "")),
		InstagramSession:   getEnv("INSTAGRAM_SESSION_ID", ""),
		InstagramProxy:     getEnv("INSTAGRAM_PROXY", ""),
		AssetDir:           getEnv("ASSET_DIR", ""),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
	}

	// Parse durations
	var err error
	if cfg.RequestDelay, err = getDuration("INSTAGRAM_REQUEST_DELAY", "1s"); err != nil {
		return nil, err
	}
	if cfg.AssetTimeout, err = getDuration("ASSET_TIMEOUT", "10s"); err != nil {
		return nil, err
	}
	if cfg.RunInterval, err = getDuration("RUN_INTERVAL", "24h"); err != nil {
		return nil, err
	}

	// Parse integers
	if cfg.AssetCacheSize, err = getInt("ASSET_CACHE_SIZE", 64); err != nil {
		return nil, err
	}

	def := DefaultLimits()
	ints := []struct {
		key string
		def int
		dst *int
	}{
		{"MAX_DAYS_ANALYSIS", def.WindowDays, &cfg.Limits.WindowDays},
		{"MAX_POSTS_ANALYSIS", def.PostFloor, &cfg.Limits.PostFloor},
		{"MAX_IMAGES_ACCOUNT_PROMPT", def.AccountImages, &cfg.Limits.AccountImages},
		{"MAX_IMAGES_POST_PROMPT", def.PostImages, &cfg.Limits.PostImages},
		{"MAX_COMMENTS_ANALYSIS", def.Comments, &cfg.Limits.Comments},
		{"ACCOUNT_SUGGESTIONS_COUNT", def.AccountSuggestions, &cfg.Limits.AccountSuggestions},
		{"POST_SUGGESTIONS_COUNT", def.PostSuggestions, &cfg.Limits.PostSuggestions},
	}
	for _, v := range ints {
		if *v.dst, err = getInt(v.key, v.def); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.DatabaseURI == "" {
		return fmt.Errorf("DATABASE_URI is required")
	}
	return c.Limits.Validate()
}

// Validate checks that every limit is usable.
func (l Limits) Validate() error {
	if l.WindowDays < 0 {
		return fmt.Errorf("MAX_DAYS_ANALYSIS must not be negative")
	}
	if l.PostFloor < 0 {
		return fmt.Errorf("MAX_POSTS_ANALYSIS must not be negative")
	}
	if l.AccountImages < 0 || l.PostImages < 0 {
		return fmt.Errorf("image caps must not be negative")
	}
	if l.Comments < 0 {
		return fmt.Errorf("MAX_COMMENTS_ANALYSIS must not be negative")
	}
	if l.AccountSuggestions <= 0 || l.PostSuggestions <= 0 {
		return fmt.Errorf("suggestion counts must be positive")
	}
	return nil
}

// ValidateForExtraction checks configuration needed for the extraction pass.
func (c *Config) ValidateForExtraction() error {
	return c.Validate()
}

// ValidateForAnalysis checks configuration needed for the analysis pass.
func (c *Config) ValidateForAnalysis() error {
	if err := c.Validate(); err != nil {
		return err
	}
	switch c.CompletionProvider {
	case ProviderGemini, "":
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required for analysis")
		}
	case ProviderClaude:
		if c.AnthropicAPIKey == "" {
			return fmt.Errorf("ANTHROPIC_API_KEY is required when COMPLETION_PROVIDER is claude")
		}
	default:
		return fmt.Errorf("invalid COMPLETION_PROVIDER: %s (must be 'gemini' or 'claude')", c.CompletionProvider)
	}
	return nil
}

// ValidateForServe checks all configuration needed for serve mode.
func (c *Config) ValidateForServe() error {
	if err := c.ValidateForAnalysis(); err != nil {
		return err
	}
	if len(c.Usernames) == 0 {
		return fmt.Errorf("INSTAGRAM_USERNAME_ANALYZE is required for serve")
	}
	if c.RunInterval <= 0 {
		return fmt.Errorf("RUN_INTERVAL must be positive")
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getDuration(key, defaultVal string) (time.Duration, error) {
	d, err := time.ParseDuration(getEnv(key, defaultVal))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getInt(key string, defaultVal int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

// splitList parses a comma separated list, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
