package config

import (
	"os"
	"strings"
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		Matching: MatchingConfig{Threshold: 0.8},
		Retry: RetryConfig{
			MaxRetries: 3,
			BaseDelay:  time.Second,
			MaxDelay:   30 * time.Second,
			Multiplier: 2,
		},
		Loop: LoopConfig{MaxSameState: 3, StateTTL: 5 * time.Minute},
	}
}

func TestLoad(t *testing.T) {
	envVars := []string{
		"FORMAUDIT_SERVER_PORT",
		"FORMAUDIT_SERVER_ENVIRONMENT",
		"FORMAUDIT_SERVER_ALLOWED_ORIGINS",
		"FORMAUDIT_CHECKLIST_PATH",
		"FORMAUDIT_MATCHING_THRESHOLD",
		"FORMAUDIT_RETRY_MAX_RETRIES",
		"FORMAUDIT_RETRY_BASE_DELAY",
		"FORMAUDIT_RETRY_MAX_DELAY",
		"FORMAUDIT_LOOP_MAX_SAME_STATE",
		"FORMAUDIT_PROBE_BASE_URL",
		"FORMAUDIT_RATELIMIT_PER_IP",
	}
	cleanupEnv := func() {
		for _, name := range envVars {
			os.Unsetenv(name)
		}
	}

	t.Run("loads with defaults when no env vars set", func(t *testing.T) {
		cleanupEnv()
		defer cleanupEnv()

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() error = %v, want nil", err)
		}

		if cfg.Server.Port != "8080" {
			t.Errorf("Server.Port = %s, want 8080", cfg.Server.Port)
		}
		if cfg.Server.Environment != "development" {
			t.Errorf("Server.Environment = %s, want development", cfg.Server.Environment)
		}
		if len(cfg.Server.AllowedOrigins) != 1 || cfg.Server.AllowedOrigins[0] != "chrome-extension://*" {
			t.Errorf("Server.AllowedOrigins = %v, want [chrome-extension://*]", cfg.Server.AllowedOrigins)
		}
		if cfg.Checklist.Path != "data/checklist.txt" {
			t.Errorf("Checklist.Path = %s, want data/checklist.txt", cfg.Checklist.Path)
		}
		if cfg.Matching.Threshold != 0.8 {
			t.Errorf("Matching.Threshold = %v, want 0.8", cfg.Matching.Threshold)
		}
		if !cfg.Classifier.SkipNonEditable {
			t.Error("Classifier.SkipNonEditable = false, want true")
		}
		if cfg.Retry.MaxRetries != 3 || cfg.Retry.BaseDelay != time.Second ||
			cfg.Retry.MaxDelay != 30*time.Second || cfg.Retry.Multiplier != 2 {
			t.Errorf("Retry = %+v, want {3 1s 30s 2}", cfg.Retry)
		}
		if cfg.Loop.MaxSameState != 3 || cfg.Loop.StateTTL != 5*time.Minute {
			t.Errorf("Loop = %+v, want {3 5m}", cfg.Loop)
		}
		if cfg.Traversal.TTL != 30*time.Minute {
			t.Errorf("Traversal.TTL = %v, want 30m", cfg.Traversal.TTL)
		}
		if cfg.Probe.BaseURL != "" {
			t.Errorf("Probe.BaseURL = %s, want empty", cfg.Probe.BaseURL)
		}
		if cfg.Probe.Timeout != 10*time.Second || cfg.Probe.Concurrency != 4 {
			t.Errorf("Probe = %+v, want timeout 10s and concurrency 4", cfg.Probe)
		}
		if cfg.RateLimit.PerIP != 100 {
			t.Errorf("RateLimit.PerIP = %d, want 100", cfg.RateLimit.PerIP)
		}
	})

	t.Run("loads custom values from environment variables", func(t *testing.T) {
		cleanupEnv()
		os.Setenv("FORMAUDIT_SERVER_PORT", "9090")
		os.Setenv("FORMAUDIT_SERVER_ENVIRONMENT", "production")
		os.Setenv("FORMAUDIT_SERVER_ALLOWED_ORIGINS", "https://forms.example.cl,http://localhost:3000")
		os.Setenv("FORMAUDIT_CHECKLIST_PATH", "/srv/checklist.txt")
		os.Setenv("FORMAUDIT_MATCHING_THRESHOLD", "0.7")
		os.Setenv("FORMAUDIT_RETRY_MAX_RETRIES", "5")
		os.Setenv("FORMAUDIT_RETRY_BASE_DELAY", "200ms")
		os.Setenv("FORMAUDIT_PROBE_BASE_URL", "http://localhost:7070")
		os.Setenv("FORMAUDIT_RATELIMIT_PER_IP", "200")
		defer cleanupEnv()

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() error = %v, want nil", err)
		}

		if cfg.Server.Port != "9090" {
			t.Errorf("Server.Port = %s, want 9090", cfg.Server.Port)
		}
		if cfg.Server.Environment != "production" {
			t.Errorf("Server.Environment = %s, want production", cfg.Server.Environment)
		}
		if len(cfg.Server.AllowedOrigins) != 2 {
			t.Errorf("Server.AllowedOrigins = %v, want 2 entries", cfg.Server.AllowedOrigins)
		}
		if cfg.Checklist.Path != "/srv/checklist.txt" {
			t.Errorf("Checklist.Path = %s, want /srv/checklist.txt", cfg.Checklist.Path)
		}
		if cfg.Matching.Threshold != 0.7 {
			t.Errorf("Matching.Threshold = %v, want 0.7", cfg.Matching.Threshold)
		}
		if cfg.Retry.MaxRetries != 5 {
			t.Errorf("Retry.MaxRetries = %d, want 5", cfg.Retry.MaxRetries)
		}
		if cfg.Retry.BaseDelay != 200*time.Millisecond {
			t.Errorf("Retry.BaseDelay = %v, want 200ms", cfg.Retry.BaseDelay)
		}
		if cfg.Probe.BaseURL != "http://localhost:7070" {
			t.Errorf("Probe.BaseURL = %s, want http://localhost:7070", cfg.Probe.BaseURL)
		}
		if cfg.RateLimit.PerIP != 200 {
			t.Errorf("RateLimit.PerIP = %d, want 200", cfg.RateLimit.PerIP)
		}
	})

	t.Run("fails validation for out of range threshold", func(t *testing.T) {
		cleanupEnv()
		os.Setenv("FORMAUDIT_MATCHING_THRESHOLD", "1.5")
		defer cleanupEnv()

		_, err := Load()
		if err == nil {
			t.Fatal("Load() error = nil, want error for threshold above 1")
		}
		if !strings.HasPrefix(err.Error(), "invalid configuration: matching threshold") {
			t.Errorf("Load() error = %v, want threshold validation error", err)
		}
	})

	t.Run("fails validation when max delay is below base delay", func(t *testing.T) {
		cleanupEnv()
		os.Setenv("FORMAUDIT_RETRY_BASE_DELAY", "1m")
		os.Setenv("FORMAUDIT_RETRY_MAX_DELAY", "10s")
		defer cleanupEnv()

		_, err := Load()
		if err == nil {
			t.Error("Load() error = nil, want error for max_delay < base_delay")
		}
	})

	t.Run("fails validation for zero loop threshold", func(t *testing.T) {
		cleanupEnv()
		os.Setenv("FORMAUDIT_LOOP_MAX_SAME_STATE", "0")
		defer cleanupEnv()

		_, err := Load()
		if err == nil {
			t.Error("Load() error = nil, want error for max_same_state 0")
		}
	})
}

func TestLoadFromFile(t *testing.T) {
	originalDir, _ := os.Getwd()
	defer os.Chdir(originalDir)

	tempDir := t.TempDir()
	os.Chdir(tempDir)

	content := `
matching:
  threshold: 0.75
  synonyms:
    - head: comuna
      alternates: [municipio, localidad]
classifier:
  required_keywords: [obligatorio, mandatory]
  skip_non_editable: false
normalizer:
  stopwords: [the, of]
  abbreviations:
    - short: dob
      expanded: date of birth
`
	if err := os.WriteFile("config.yaml", []byte(content), 0644); err != nil {
		t.Fatalf("Failed to create config.yaml: %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v, want nil", err)
	}

	if cfg.Matching.Threshold != 0.75 {
		t.Errorf("Matching.Threshold = %v, want 0.75", cfg.Matching.Threshold)
	}
	if len(cfg.Matching.Synonyms) != 1 || cfg.Matching.Synonyms[0].Head != "comuna" {
		t.Fatalf("Matching.Synonyms = %+v, want one group headed by comuna", cfg.Matching.Synonyms)
	}
	if got := cfg.Matching.Synonyms[0].Alternates; len(got) != 2 || got[1] != "localidad" {
		t.Errorf("Alternates = %v, want [municipio localidad]", got)
	}
	if len(cfg.Classifier.RequiredKeywords) != 2 {
		t.Errorf("Classifier.RequiredKeywords = %v, want 2 keywords", cfg.Classifier.RequiredKeywords)
	}
	if len(cfg.Normalizer.Stopwords) != 2 {
		t.Errorf("Normalizer.Stopwords = %v, want [the of]", cfg.Normalizer.Stopwords)
	}
	if got := cfg.Normalizer.Abbreviations; len(got) != 1 || got[0].Short != "dob" || got[0].Expanded != "date of birth" {
		t.Errorf("Normalizer.Abbreviations = %+v, want one dob expansion", got)
	}
	if cfg.Classifier.SkipNonEditable {
		t.Error("Classifier.SkipNonEditable = true, want false from file")
	}
}

func TestLoadEnvFile(t *testing.T) {
	t.Run("returns nil when .env file doesn't exist", func(t *testing.T) {
		originalDir, _ := os.Getwd()
		defer os.Chdir(originalDir)

		tempDir := t.TempDir()
		os.Chdir(tempDir)

		err := loadEnvFile()
		if err != nil {
			t.Errorf("loadEnvFile() error = %v, want nil when file doesn't exist", err)
		}
	})

	t.Run("loads variables and skips comments", func(t *testing.T) {
		originalDir, _ := os.Getwd()
		defer os.Chdir(originalDir)

		tempDir := t.TempDir()
		os.Chdir(tempDir)

		envContent := `
# Comment line
TEST_VAR_1=value1
   # indented comment

TEST_VAR_2="quoted value"
# TEST_COMMENTED=should_not_load
not a pair
`
		if err := os.WriteFile(".env", []byte(envContent), 0644); err != nil {
			t.Fatalf("Failed to create test .env file: %v", err)
		}

		os.Unsetenv("TEST_VAR_1")
		os.Unsetenv("TEST_VAR_2")
		os.Unsetenv("TEST_COMMENTED")
		defer func() {
			os.Unsetenv("TEST_VAR_1")
			os.Unsetenv("TEST_VAR_2")
		}()

		if err := loadEnvFile(); err != nil {
			t.Fatalf("loadEnvFile() error = %v, want nil", err)
		}

		if os.Getenv("TEST_VAR_1") != "value1" {
			t.Errorf("TEST_VAR_1 = %s, want value1", os.Getenv("TEST_VAR_1"))
		}
		if os.Getenv("TEST_VAR_2") != "quoted value" {
			t.Errorf("TEST_VAR_2 = %s, want quoted value", os.Getenv("TEST_VAR_2"))
		}
		if os.Getenv("TEST_COMMENTED") != "" {
			t.Errorf("TEST_COMMENTED should not be loaded from comment")
		}
	})

	t.Run("doesn't override existing environment variables", func(t *testing.T) {
		originalDir, _ := os.Getwd()
		defer os.Chdir(originalDir)

		tempDir := t.TempDir()
		os.Chdir(tempDir)

		os.Setenv("TEST_OVERRIDE", "existing-value")
		defer os.Unsetenv("TEST_OVERRIDE")

		if err := os.WriteFile(".env", []byte("TEST_OVERRIDE=new-value"), 0644); err != nil {
			t.Fatalf("Failed to create test .env file: %v", err)
		}

		if err := loadEnvFile(); err != nil {
			t.Fatalf("loadEnvFile() error = %v, want nil", err)
		}

		if os.Getenv("TEST_OVERRIDE") != "existing-value" {
			t.Errorf("TEST_OVERRIDE = %s, want existing-value (should not override)", os.Getenv("TEST_OVERRIDE"))
		}
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid configuration", mutate: func(*Config) {}},
		{name: "threshold of exactly one", mutate: func(c *Config) { c.Matching.Threshold = 1 }},
		{name: "zero threshold", mutate: func(c *Config) { c.Matching.Threshold = 0 }, wantErr: true},
		{name: "negative retries", mutate: func(c *Config) { c.Retry.MaxRetries = -1 }, wantErr: true},
		{name: "zero retries allowed", mutate: func(c *Config) { c.Retry.MaxRetries = 0 }},
		{name: "zero base delay", mutate: func(c *Config) { c.Retry.BaseDelay = 0 }, wantErr: true},
		{name: "multiplier below one", mutate: func(c *Config) { c.Retry.Multiplier = 0.5 }, wantErr: true},
		{name: "zero state ttl", mutate: func(c *Config) { c.Loop.StateTTL = 0 }, wantErr: true},
		{
			name: "synonym group without head",
			mutate: func(c *Config) {
				c.Matching.Synonyms = []SynonymGroup{{Head: " ", Alternates: []string{"x"}}}
			},
			wantErr: true,
		},
		{
			name: "abbreviation without short form",
			mutate: func(c *Config) {
				c.Normalizer.Abbreviations = []Abbreviation{{Short: "", Expanded: "date of birth"}}
			},
			wantErr: true,
		},
		{
			name: "complete abbreviation",
			mutate: func(c *Config) {
				c.Normalizer.Abbreviations = []Abbreviation{{Short: "dob", Expanded: "date of birth"}}
			},
		},
		{name: "negative rate limit", mutate: func(c *Config) { c.RateLimit.PerIP = -1 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := validate(cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
