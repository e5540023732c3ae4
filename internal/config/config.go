package config

import (
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Discord struct {
		Token  string `yaml:"token"`
		Prefix string `yaml:"prefix"`
	} `yaml:"discord"`
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	LLM struct {
		BaseURL     string   `yaml:"base_url"`
		APIKeyEnv   string   `yaml:"api_key_env"`
		Models      []string `yaml:"models"`
		Temperature float64  `yaml:"temperature"`
		MaxTokens   int      `yaml:"max_tokens"`
		MaxRetries  int      `yaml:"max_retries"`
		Timeout     string   `yaml:"timeout"`
	} `yaml:"llm"`
	Quiz struct {
		Topics            []string `yaml:"topics"`
		Cron              string   `yaml:"cron"`
		Timezone          string   `yaml:"timezone"`
		Points            int      `yaml:"points"`
		OneAttemptPerUser *bool    `yaml:"one_attempt_per_user"`
		RoundTimeout      string   `yaml:"round_timeout"`
		Cooldown          string   `yaml:"cooldown"`
	} `yaml:"quiz"`
}

// Load reads YAML config from path and applies environment overrides.
// A .env file next to the process is honored if present.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err == nil {
		log.Printf("environment loaded from .env")
	}

	cfg := Config{}
	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	} else if !os.IsNotExist(err) {
		return cfg, err
	}

	if token := os.Getenv("DISCORD_TOKEN"); token != "" {
		cfg.Discord.Token = token
	}
	if port := os.Getenv("PORT"); port != "" {
		cfg.Server.Port = port
	}
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cfg.Redis.Addr = addr
	}
	if url := os.Getenv("POSTGRES_URL"); url != "" {
		cfg.Postgres.URL = url
	}
	if cron := os.Getenv("DAILY_QUESTION_CRON"); cron != "" {
		cfg.Quiz.Cron = cron
	}
	return cfg, nil
}

// APIKey resolves the LLM API key from the configured environment variable.
func (c Config) APIKey() string {
	env := c.LLM.APIKeyEnv
	if env == "" {
		env = "LLM_API_KEY"
	}
	return os.Getenv(env)
}

// OneAttempt reports the answer-dedup policy, defaulting to on.
func (c Config) OneAttempt() bool {
	if c.Quiz.OneAttemptPerUser == nil {
		return true
	}
	return *c.Quiz.OneAttemptPerUser
}

// TTLDuration parses a duration string or returns the fallback if empty
// or malformed.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
