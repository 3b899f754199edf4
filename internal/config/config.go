package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix is the namespace prefix for all PrepTalk environment variables.
const EnvPrefix = "PREPTALK_"

// Config holds all application configuration. Secrets (API keys) are loaded
// exclusively from environment variables and never appear in the config file.
type Config struct {
	ListenAddr     string `yaml:"listen_addr"`
	DBPath         string `yaml:"db_path"`
	AudioDir       string `yaml:"audio_dir"`
	QuestionModel  string `yaml:"question_model"`
	ScoringModel   string `yaml:"scoring_model"`
	SummaryModel   string `yaml:"summary_model"`
	NarrationModel string `yaml:"narration_model"`
	NarrationVoice string `yaml:"narration_voice"`
	DedupScope     string `yaml:"dedup_scope"`
	GatewayTimeout string `yaml:"gateway_timeout"`
	LockTimeout    string `yaml:"lock_timeout"`
	MaxUploadMB    int    `yaml:"max_upload_mb"`
	GDriveFolderID string `yaml:"gdrive_folder_id"`

	GoogleCredentialsFile string `yaml:"google_credentials_file"`

	// Secrets — env vars only, never serialized to YAML.
	DeepgramAPIKey  string `yaml:"-"`
	OpenAIAPIKey    string `yaml:"-"`
	AnthropicAPIKey string `yaml:"-"`
	GeminiAPIKey    string `yaml:"-"`
}

func defaults() Config {
	return Config{
		ListenAddr:            ":8080",
		DBPath:                "data/preptalk.db",
		AudioDir:              "data/audio",
		QuestionModel:         "openai/gpt-4o-mini",
		ScoringModel:          "openai/gpt-4o-mini",
		SummaryModel:          "openai/gpt-4o-mini",
		NarrationModel:        "tts-1",
		NarrationVoice:        "nova",
		DedupScope:            "all",
		GatewayTimeout:        "30s",
		LockTimeout:           "10s",
		MaxUploadMB:           25,
		GoogleCredentialsFile: "./service-account.json",
	}
}

// Load reads configuration from a YAML file (if it exists), applies
// environment variable overrides, loads secrets, and validates the result.
// It returns the config, any validation warnings, and an error if the file
// exists but cannot be read or parsed.
func Load(path string) (Config, []string, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return cfg, nil, fmt.Errorf("read config file: %w", err)
			}
		} else {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, nil, fmt.Errorf("parse config file: %w", err)
			}
		}
	}

	applyEnvOverrides(&cfg)
	loadSecrets(&cfg)

	warnings := validate(&cfg)
	return cfg, warnings, nil
}

// ParsedGatewayTimeout returns GatewayTimeout as a time.Duration,
// falling back to 30s if the value is invalid.
func (c *Config) ParsedGatewayTimeout() time.Duration {
	d, err := time.ParseDuration(c.GatewayTimeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// ParsedLockTimeout returns LockTimeout as a time.Duration,
// falling back to 10s if the value is invalid.
func (c *Config) ParsedLockTimeout() time.Duration {
	d, err := time.ParseDuration(c.LockTimeout)
	if err != nil {
		return 10 * time.Second
	}
	return d
}

// MaxUploadBytes returns the answer upload limit in bytes.
func (c *Config) MaxUploadBytes() int64 {
	mb := c.MaxUploadMB
	if mb <= 0 {
		mb = 25
	}
	return int64(mb) << 20
}

// APIKeyFor returns the configured secret for an LLM provider name.
func (c *Config) APIKeyFor(provider string) string {
	switch provider {
	case "openai":
		return c.OpenAIAPIKey
	case "anthropic":
		return c.AnthropicAPIKey
	case "gemini":
		return c.GeminiAPIKey
	default:
		return ""
	}
}

func applyEnvOverrides(cfg *Config) {
	overrides := map[string]*string{
		"LISTEN_ADDR":             &cfg.ListenAddr,
		"DB_PATH":                 &cfg.DBPath,
		"AUDIO_DIR":               &cfg.AudioDir,
		"QUESTION_MODEL":          &cfg.QuestionModel,
		"SCORING_MODEL":           &cfg.ScoringModel,
		"SUMMARY_MODEL":           &cfg.SummaryModel,
		"NARRATION_MODEL":         &cfg.NarrationModel,
		"NARRATION_VOICE":         &cfg.NarrationVoice,
		"DEDUP_SCOPE":             &cfg.DedupScope,
		"GATEWAY_TIMEOUT":         &cfg.GatewayTimeout,
		"LOCK_TIMEOUT":            &cfg.LockTimeout,
		"GDRIVE_FOLDER_ID":        &cfg.GDriveFolderID,
		"GOOGLE_CREDENTIALS_FILE": &cfg.GoogleCredentialsFile,
	}
	for key, target := range overrides {
		if v := os.Getenv(EnvPrefix + key); v != "" {
			*target = v
		}
	}
}

func loadSecrets(cfg *Config) {
	cfg.DeepgramAPIKey = os.Getenv(EnvPrefix + "DEEPGRAM_API_KEY")
	cfg.OpenAIAPIKey = os.Getenv(EnvPrefix + "OPENAI_API_KEY")
	cfg.AnthropicAPIKey = os.Getenv(EnvPrefix + "ANTHROPIC_API_KEY")
	cfg.GeminiAPIKey = os.Getenv(EnvPrefix + "GEMINI_API_KEY")
}

func validate(cfg *Config) []string {
	var warnings []string

	if cfg.DeepgramAPIKey == "" {
		warnings = append(warnings, "Deepgram API key not configured — answer transcription is disabled. Set "+EnvPrefix+"DEEPGRAM_API_KEY.")
	}
	if cfg.OpenAIAPIKey == "" {
		warnings = append(warnings, "OpenAI API key not configured — question narration is disabled. Set "+EnvPrefix+"OPENAI_API_KEY.")
	}

	models := []struct {
		name  string
		value string
	}{
		{"question_model", cfg.QuestionModel},
		{"scoring_model", cfg.ScoringModel},
		{"summary_model", cfg.SummaryModel},
	}
	for _, m := range models {
		provider, rest, ok := strings.Cut(m.value, "/")
		if !ok || provider == "" || rest == "" {
			warnings = append(warnings, fmt.Sprintf("Invalid %s %q — expected provider/model_name.", m.name, m.value))
			continue
		}
		if cfg.APIKeyFor(provider) == "" {
			warnings = append(warnings, fmt.Sprintf("No API key configured for %s provider %q.", m.name, provider))
		}
	}

	switch cfg.DedupScope {
	case "all", "last":
	default:
		warnings = append(warnings, fmt.Sprintf("Invalid dedup_scope %q — using default \"all\".", cfg.DedupScope))
		cfg.DedupScope = "all"
	}

	if _, err := time.ParseDuration(cfg.GatewayTimeout); err != nil {
		warnings = append(warnings, fmt.Sprintf("Invalid gateway_timeout %q — using default 30s.", cfg.GatewayTimeout))
	}
	if _, err := time.ParseDuration(cfg.LockTimeout); err != nil {
		warnings = append(warnings, fmt.Sprintf("Invalid lock_timeout %q — using default 10s.", cfg.LockTimeout))
	}

	return warnings
}
