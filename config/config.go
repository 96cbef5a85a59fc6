package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/formaudit/backend/internal/usecase"
)

// Config holds all configuration for the application
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Log        LogConfig        `mapstructure:"log"`
	Checklist  ChecklistConfig  `mapstructure:"checklist"`
	Matching   MatchingConfig   `mapstructure:"matching"`
	Normalizer NormalizerConfig `mapstructure:"normalizer"`
	Classifier ClassifierConfig `mapstructure:"classifier"`
	Retry      RetryConfig      `mapstructure:"retry"`
	Loop       LoopConfig       `mapstructure:"loop"`
	Traversal  TraversalConfig  `mapstructure:"traversal"`
	Probe      ProbeConfig      `mapstructure:"probe"`
	RateLimit  RateLimitConfig  `mapstructure:"ratelimit"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// LogConfig holds logger configuration
type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// ChecklistConfig holds the checklist file location
type ChecklistConfig struct {
	Path string `mapstructure:"path"`
}

// SynonymGroup is one extra group of interchangeable labels
type SynonymGroup = usecase.SynonymGroup

// Abbreviation is one whole-word expansion applied to canonical keys
type Abbreviation = usecase.Abbreviation

// MatchingConfig holds matcher configuration
type MatchingConfig struct {
	Threshold float64        `mapstructure:"threshold"`
	Synonyms  []SynonymGroup `mapstructure:"synonyms"`
}

// NormalizerConfig holds text normalization tables. Non-empty tables
// replace the built-in ones.
type NormalizerConfig struct {
	Stopwords     []string       `mapstructure:"stopwords"`
	Abbreviations []Abbreviation `mapstructure:"abbreviations"`
}

// ClassifierConfig holds required-ness classifier configuration
type ClassifierConfig struct {
	RequiredKeywords []string `mapstructure:"required_keywords"`
	SkipNonEditable  bool     `mapstructure:"skip_non_editable"`
}

// RetryConfig holds the backoff policy for probe calls
type RetryConfig struct {
	MaxRetries int           `mapstructure:"max_retries"`
	BaseDelay  time.Duration `mapstructure:"base_delay"`
	MaxDelay   time.Duration `mapstructure:"max_delay"`
	Multiplier float64       `mapstructure:"multiplier"`
}

// LoopConfig holds loop detection configuration
type LoopConfig struct {
	MaxSameState int           `mapstructure:"max_same_state"`
	StateTTL     time.Duration `mapstructure:"state_ttl"`
}

// TraversalConfig holds how long traversal histories are kept
type TraversalConfig struct {
	TTL             time.Duration `mapstructure:"ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// ProbeConfig holds the blur-probe sidecar configuration. An empty BaseURL
// disables probing.
type ProbeConfig struct {
	BaseURL       string        `mapstructure:"base_url"`
	Timeout       time.Duration `mapstructure:"timeout"`
	RatePerSecond float64       `mapstructure:"rate_per_second"`
	Burst         int           `mapstructure:"burst"`
	Concurrency   int           `mapstructure:"concurrency"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	PerIP int `mapstructure:"per_ip"` // requests per minute
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	if err := loadEnvFile(); err != nil {
		return nil, fmt.Errorf("error reading .env file: %w", err)
	}

	v := viper.New()

	// Set config name and paths
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/formaudit/")

	// Environment variable settings
	v.SetEnvPrefix("FORMAUDIT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Config file is optional
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"chrome-extension://*"})

	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)

	v.SetDefault("checklist.path", "data/checklist.txt")

	v.SetDefault("matching.threshold", 0.8)
	v.SetDefault("matching.synonyms", []SynonymGroup{})
	v.SetDefault("normalizer.stopwords", []string{})
	v.SetDefault("normalizer.abbreviations", []Abbreviation{})

	v.SetDefault("classifier.required_keywords", []string{})
	v.SetDefault("classifier.skip_non_editable", true)

	// Retry and loop detection defaults
	v.SetDefault("retry.max_retries", 3)
	v.SetDefault("retry.base_delay", "1s")
	v.SetDefault("retry.max_delay", "30s")
	v.SetDefault("retry.multiplier", 2.0)
	v.SetDefault("loop.max_same_state", 3)
	v.SetDefault("loop.state_ttl", "5m")

	v.SetDefault("traversal.ttl", "30m")
	v.SetDefault("traversal.cleanup_interval", "1m")

	// Probe sidecar defaults
	v.SetDefault("probe.base_url", "")
	v.SetDefault("probe.timeout", "10s")
	v.SetDefault("probe.rate_per_second", 5.0)
	v.SetDefault("probe.burst", 5)
	v.SetDefault("probe.concurrency", 4)

	// Rate limit defaults
	v.SetDefault("ratelimit.per_ip", 100)
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Matching.Threshold <= 0 || config.Matching.Threshold > 1 {
		return fmt.Errorf("matching threshold must be in (0, 1], got: %v", config.Matching.Threshold)
	}

	r := config.Retry
	if r.MaxRetries < 0 {
		return fmt.Errorf("retry max_retries must be >= 0, got: %d", r.MaxRetries)
	}
	if r.BaseDelay <= 0 {
		return fmt.Errorf("retry base_delay must be positive, got: %s", r.BaseDelay)
	}
	if r.MaxDelay < r.BaseDelay {
		return fmt.Errorf("retry max_delay (%s) must not be below base_delay (%s)", r.MaxDelay, r.BaseDelay)
	}
	if r.Multiplier < 1 {
		return fmt.Errorf("retry multiplier must be >= 1, got: %v", r.Multiplier)
	}

	if config.Loop.MaxSameState < 1 {
		return fmt.Errorf("loop max_same_state must be >= 1, got: %d", config.Loop.MaxSameState)
	}
	if config.Loop.StateTTL <= 0 {
		return fmt.Errorf("loop state_ttl must be positive, got: %s", config.Loop.StateTTL)
	}

	for i, g := range config.Matching.Synonyms {
		if strings.TrimSpace(g.Head) == "" {
			return fmt.Errorf("matching synonym group %d has an empty head", i)
		}
	}
	for i, a := range config.Normalizer.Abbreviations {
		if strings.TrimSpace(a.Short) == "" || strings.TrimSpace(a.Expanded) == "" {
			return fmt.Errorf("normalizer abbreviation %d needs both short and expanded", i)
		}
	}

	if config.RateLimit.PerIP < 0 {
		return fmt.Errorf("ratelimit per_ip must be >= 0, got: %d", config.RateLimit.PerIP)
	}

	return nil
}

// loadEnvFile exports KEY=VALUE pairs from ./.env without overriding
// variables that are already set. A missing file is not an error.
func loadEnvFile() error {
	file, err := os.Open(".env")
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), `"'`)
		if key == "" {
			continue
		}
		if _, exists := os.LookupEnv(key); exists {
			continue
		}
		if err := os.Setenv(key, value); err != nil {
			return err
		}
	}
	return scanner.Err()
}
