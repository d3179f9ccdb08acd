package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	kyaml "github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of environment overrides, e.g. RELAY_LLM__MODEL=gpt-4o-mini.
const EnvPrefix = "RELAY_"

// Config is the application's configuration model.
// It captures the upstream credentials, the HTTP surface and the session backend.
type Config struct {
	Server   ServerConfig   `koanf:"server" yaml:"server"`
	Twitter  TwitterConfig  `koanf:"twitter" yaml:"twitter"`
	LinkedIn LinkedInConfig `koanf:"linkedin" yaml:"linkedin"`
	LLM      LLMConfig      `koanf:"llm" yaml:"llm"`
	Session  SessionConfig  `koanf:"session" yaml:"session"`
	Upload   UploadConfig   `koanf:"upload" yaml:"upload"`
	Upstream UpstreamConfig `koanf:"upstream" yaml:"upstream"`
	Log      LogConfig      `koanf:"log" yaml:"log"`
}

type ServerConfig struct {
	Addr string `koanf:"addr" yaml:"addr"`
	// Front-end base URL the OAuth callback redirects to. If empty, read FRONTEND_URL
	FrontendURL     string        `koanf:"frontend_url" yaml:"frontend_url"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" yaml:"shutdown_timeout"`
	// Per-client-IP request budget
	RateLimit float64 `koanf:"rate_limit" yaml:"rate_limit"`
	RateBurst int     `koanf:"rate_burst" yaml:"rate_burst"`
	Metrics   bool    `koanf:"metrics" yaml:"metrics"`
}

type TwitterConfig struct {
	// OAuth1.0a app credentials. If empty, read CONSUMER_KEY / CONSUMER_SECRET
	ConsumerKey    string `koanf:"consumer_key" yaml:"consumer_key"`
	ConsumerSecret string `koanf:"consumer_secret" yaml:"consumer_secret"`
	// If empty, read CALLBACK_URL
	CallbackURL string `koanf:"callback_url" yaml:"callback_url"`
	// App-only bearer token for user lookups. If empty, read bearer_token
	BearerToken   string `koanf:"bearer_token" yaml:"bearer_token"`
	APIBaseURL    string `koanf:"api_base_url" yaml:"api_base_url"`
	UploadBaseURL string `koanf:"upload_base_url" yaml:"upload_base_url"`
	// Ids listed by /twitter/users when the caller gives none
	DemoUserIDs []string `koanf:"demo_user_ids" yaml:"demo_user_ids"`
	// Account used by the draft command. If empty, read X_ACCESS_TOKEN / X_ACCESS_SECRET
	AccessToken  string `koanf:"access_token" yaml:"access_token"`
	AccessSecret string `koanf:"access_secret" yaml:"access_secret"`
}

type LinkedInConfig struct {
	APIBaseURL string `koanf:"api_base_url" yaml:"api_base_url"`
}

type LLMConfig struct {
	// If empty, read OPEN_AI_KEY, then OPENAI_API_KEY
	APIKey      string        `koanf:"api_key" yaml:"api_key"`
	BaseURL     string        `koanf:"base_url" yaml:"base_url"`
	Model       string        `koanf:"model" yaml:"model"`
	Temperature float64       `koanf:"temperature" yaml:"temperature"`
	MaxTokens   int           `koanf:"max_tokens" yaml:"max_tokens"`
	Concurrency int           `koanf:"concurrency" yaml:"concurrency"`
	Timeout     time.Duration `koanf:"timeout" yaml:"timeout"`
}

type SessionConfig struct {
	// Cookie signing secret. If empty, read SESSION_SECRET
	Secret string `koanf:"secret" yaml:"secret"`
	// "sqlite" or "redis"
	Backend      string        `koanf:"backend" yaml:"backend"`
	DBPath       string        `koanf:"db_path" yaml:"db_path"`
	RedisAddr    string        `koanf:"redis_addr" yaml:"redis_addr"`
	TTL          time.Duration `koanf:"ttl" yaml:"ttl"`
	CookieSecure bool          `koanf:"cookie_secure" yaml:"cookie_secure"`
}

type UploadConfig struct {
	Dir      string `koanf:"dir" yaml:"dir"`
	MaxBytes int64  `koanf:"max_bytes" yaml:"max_bytes"`
}

// UpstreamConfig tunes every outbound API client.
type UpstreamConfig struct {
	Timeout     time.Duration `koanf:"timeout" yaml:"timeout"`
	RPS         float64       `koanf:"rps" yaml:"rps"`
	Burst       int           `koanf:"burst" yaml:"burst"`
	MaxAttempts int           `koanf:"max_attempts" yaml:"max_attempts"`
	BaseBackoff time.Duration `koanf:"base_backoff" yaml:"base_backoff"`
}

type LogConfig struct {
	Level string `koanf:"level" yaml:"level"`
}

// Default returns a sensible default configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":5000",
			ShutdownTimeout: 10 * time.Second,
			RateLimit:       10,
			RateBurst:       20,
			Metrics:         true,
		},
		Twitter: TwitterConfig{
			APIBaseURL:    "https://api.twitter.com",
			UploadBaseURL: "https://upload.twitter.com",
			DemoUserIDs:   []string{"101584084", "3888491"},
		},
		LinkedIn: LinkedInConfig{APIBaseURL: "https://api.linkedin.com"},
		LLM: LLMConfig{
			BaseURL:     "https://api.openai.com/v1",
			Model:       "gpt-3.5-turbo",
			Temperature: 0.7,
			MaxTokens:   70,
			Concurrency: 10,
			Timeout:     30 * time.Second,
		},
		Session: SessionConfig{
			Backend: "sqlite",
			DBPath:  "./socialrelay.db",
			TTL:     24 * time.Hour,
		},
		Upload: UploadConfig{Dir: "./temp", MaxBytes: 10 << 20},
		Upstream: UpstreamConfig{
			Timeout:     15 * time.Second,
			RPS:         5,
			Burst:       10,
			MaxAttempts: 1,
			BaseBackoff: 500 * time.Millisecond,
		},
	}
}

// ResolveEnv fills in config fields from the service's historical environment variables if not set.
func (c *Config) ResolveEnv() {
	fill := func(dst *string, keys ...string) {
		if *dst != "" {
			return
		}
		for _, k := range keys {
			if v := os.Getenv(k); v != "" {
				*dst = v
				return
			}
		}
	}
	fill(&c.Twitter.ConsumerKey, "CONSUMER_KEY")
	fill(&c.Twitter.ConsumerSecret, "CONSUMER_SECRET")
	fill(&c.Twitter.CallbackURL, "CALLBACK_URL")
	fill(&c.Twitter.BearerToken, "bearer_token", "X_BEARER_TOKEN")
	fill(&c.Twitter.AccessToken, "X_ACCESS_TOKEN")
	fill(&c.Twitter.AccessSecret, "X_ACCESS_SECRET")
	fill(&c.LLM.APIKey, "OPEN_AI_KEY", "OPENAI_API_KEY")
	fill(&c.Session.Secret, "SESSION_SECRET")
	fill(&c.Server.FrontendURL, "FRONTEND_URL")
	fill(&c.Log.Level, "LOG_LEVEL")
}

// Load builds the configuration: defaults, then the YAML file at path (optional),
// then RELAY_* environment overrides, then the historical variable names.
// A .env file in the working directory is loaded first when present.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	k := koanf.New(".")
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), kyaml.Parser()); err != nil {
				return cfg, fmt.Errorf("load config %s: %w", path, err)
			}
		} else if !errors.Is(err, fs.ErrNotExist) {
			return cfg, err
		}
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return cfg, fmt.Errorf("load env: %w", err)
	}
	// decoding a list onto a longer default would keep the default's tail
	if k.Exists("twitter.demo_user_ids") {
		cfg.Twitter.DemoUserIDs = nil
	}
	if err := k.Unmarshal("", &cfg); err != nil {
		return cfg, fmt.Errorf("decode config: %w", err)
	}
	cfg.ResolveEnv()
	return cfg, nil
}

// envKey maps RELAY_SESSION__DB_PATH to session.db_path.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

// Validate reports the settings the HTTP server cannot run without.
func (c Config) Validate() error {
	var missing []string
	if c.Twitter.ConsumerKey == "" {
		missing = append(missing, "twitter.consumer_key")
	}
	if c.Twitter.ConsumerSecret == "" {
		missing = append(missing, "twitter.consumer_secret")
	}
	if c.Session.Secret == "" {
		missing = append(missing, "session.secret")
	}
	switch c.Session.Backend {
	case "sqlite", "redis":
	default:
		return fmt.Errorf("unknown session backend %q", c.Session.Backend)
	}
	if c.Session.Backend == "redis" && c.Session.RedisAddr == "" {
		missing = append(missing, "session.redis_addr")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required settings: %s", strings.Join(missing, ", "))
	}
	return nil
}

// Save writes YAML config to path, creating directories as needed.
func Save(path string, cfg Config) error {
	if path == "" {
		return errors.New("empty path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o600)
}
