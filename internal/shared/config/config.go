package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const configFileEnv = "CAREER_CURVE_CONFIG"

// Config holds application configuration.
type Config struct {
	Port             string        `koanf:"port"`
	Env              string        `koanf:"env"`
	LogLevel         string        `koanf:"log_level"`
	CORSAllowOrigins string        `koanf:"cors_allow_origins"`
	ObjectStoreType  string        `koanf:"object_store"`
	LocalStoreDir    string        `koanf:"local_store_dir"`
	AWSRegion        string        `koanf:"aws_region"`
	S3Bucket         string        `koanf:"s3_bucket"`
	S3Prefix         string        `koanf:"s3_prefix"`
	SSEKMSKeyID      string        `koanf:"sse_kms_key_id"`
	LedgerBackend    string        `koanf:"ledger_backend"`
	LedgerFile       string        `koanf:"ledger_file"`
	DatabaseURL      string        `koanf:"database_url"`
	AutoMigrate      bool          `koanf:"auto_migrate"`
	RankTimeout      time.Duration `koanf:"rank_timeout"`
	LLMProvider      string        `koanf:"llm_provider"`
	LLMModel         string        `koanf:"llm_model"`
	LLMBaseURL       string        `koanf:"llm_base_url"`
	OpenAIAPIKey     string        `koanf:"openai_api_key"`
	LLMTimeout       time.Duration `koanf:"llm_timeout"`
	LLMNoTemp0Models string        `koanf:"llm_no_temp0_models"`
	PromptVersion    string        `koanf:"prompt_version"`
	ChatBaseURL      string        `koanf:"chat_base_url"`
	ChatAPIKey       string        `koanf:"chat_api_key"`
	MaxResumeChars   int           `koanf:"max_resume_chars"`
	MaxJDChars       int           `koanf:"max_jd_chars"`
	MaxUploadBytes   int64         `koanf:"max_upload_bytes"`
	AnalyzeRate      float64       `koanf:"analyze_rate_per_sec"`
	AnalyzeBurst     int           `koanf:"analyze_burst"`
}

// Defaults returns the baseline configuration used before files and env are applied.
func Defaults() Config {
	return Config{
		Port:             "8080",
		Env:              "dev",
		LogLevel:         "info",
		CORSAllowOrigins: "http://localhost:3000",
		ObjectStoreType:  "local",
		LocalStoreDir:    "./data/uploads",
		LedgerBackend:    "",
		LedgerFile:       "./data/records.json",
		AutoMigrate:      true,
		RankTimeout:      5 * time.Second,
		LLMProvider:      "openai",
		LLMModel:         "gpt-5-mini",
		LLMBaseURL:       "https://api.openai.com/v1",
		LLMTimeout:       120 * time.Second,
		PromptVersion:    "score_v1",
		ChatBaseURL:      "https://api.siliconflow.cn/v1",
		MaxResumeChars:   5000,
		MaxJDChars:       3000,
		MaxUploadBytes:   10 << 20,
		AnalyzeRate:      0.2,
		AnalyzeBurst:     3,
	}
}

// Load reads configuration from defaults, an optional YAML file and environment variables.
// Later layers win. A config file that cannot be read or a value that cannot be
// decoded is an error; callers must not start on partial configuration.
func Load() (Config, error) {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	return load(os.Getenv(configFileEnv))
}

func load(path string) (Config, error) {
	k := koanf.New(".")

	if strings.TrimSpace(path) != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	// PORT -> port, DATABASE_URL -> database_url, ...
	envProvider := env.Provider("", ".", func(s string) string {
		return strings.ToLower(s)
	})
	if err := k.Load(envProvider, nil); err != nil {
		return Config{}, fmt.Errorf("load env: %w", err)
	}

	cfg := Defaults()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.Env = normalizeEnv(cfg.Env)
	cfg.ObjectStoreType = normalizeStoreType(cfg.ObjectStoreType)
	cfg.LedgerBackend = normalizeLedgerBackend(cfg.LedgerBackend, cfg.DatabaseURL)
	if cfg.LedgerBackend == "postgres" && strings.TrimSpace(cfg.DatabaseURL) == "" {
		return Config{}, fmt.Errorf("LEDGER_BACKEND=postgres requires DATABASE_URL")
	}
	return cfg, nil
}

// AllowedOrigins splits the comma separated CORS origin list.
func (c Config) AllowedOrigins() []string {
	return splitAndTrim(c.CORSAllowOrigins)
}

// NoTemperatureModels lists models that must be called without temperature.
func (c Config) NoTemperatureModels() []string {
	return splitAndTrim(c.LLMNoTemp0Models)
}

// IsDevLike reports whether the environment tolerates in-memory fallbacks.
func (c Config) IsDevLike() bool {
	switch c.Env {
	case "dev", "local":
		return true
	default:
		return false
	}
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	case "development", "dev":
		return "dev"
	default:
		return "dev"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	default:
		return "local"
	}
}

func normalizeLedgerBackend(raw, databaseURL string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "postgres", "pg":
		return "postgres"
	case "file", "json":
		return "file"
	case "memory", "mem":
		return "memory"
	default:
		if strings.TrimSpace(databaseURL) != "" {
			return "postgres"
		}
		return "memory"
	}
}
