package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/caarlos0/env/v11"
)

// Duration is a time.Duration that reads "10s"-style strings from JSON
type Duration time.Duration

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		// Plain numbers are seconds
		var secs float64
		if err2 := json.Unmarshal(b, &secs); err2 != nil {
			return fmt.Errorf("invalid duration %s: %w", string(b), err)
		}
		*d = Duration(time.Duration(secs * float64(time.Second)))
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// UnmarshalText lets environment variables use the same syntax
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the value as a time.Duration
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

type EvaluatorConfig struct {
	URL              string   `json:"url" env:"QUEST_LLM_URL"`
	Model            string   `json:"model" env:"QUEST_LLM_MODEL"`
	Interval         Duration `json:"interval" env:"QUEST_EVAL_INTERVAL"`
	Timeout          Duration `json:"timeout" env:"QUEST_EVAL_TIMEOUT"`
	MaxConcurrent    int      `json:"max_concurrent" env:"QUEST_LLM_MAX_CONCURRENT"`
	BreakerThreshold int      `json:"breaker_threshold" env:"QUEST_LLM_BREAKER_THRESHOLD"`
	BreakerCooldown  Duration `json:"breaker_cooldown" env:"QUEST_LLM_BREAKER_COOLDOWN"`
	GenerateGraphs   bool     `json:"generate_graphs" env:"QUEST_LLM_GRAPHS"`
}

type Config struct {
	Server struct {
		Host      string `json:"host" env:"QUEST_HOST"`
		Port      int    `json:"port" env:"QUEST_PORT"`
		Subpath   string `json:"subpath" env:"QUEST_SUBPATH"`
		JWTSecret string `json:"jwtSecret" env:"QUEST_JWT_SECRET"`
	} `json:"server"`
	Storage struct {
		Driver    string `json:"driver" env:"QUEST_STORAGE_DRIVER"` // postgres, sqlite or qdrant
		DSN       string `json:"dsn" env:"QUEST_STORAGE_DSN"`
		CacheSize int    `json:"cache_size" env:"QUEST_STORAGE_CACHE_SIZE"`
	} `json:"storage"`
	Redis struct {
		Addr     string `json:"addr" env:"QUEST_REDIS_ADDR"`
		Password string `json:"password" env:"QUEST_REDIS_PASSWORD"`
		DB       int    `json:"db" env:"QUEST_REDIS_DB"`
		Channel  string `json:"channel" env:"QUEST_REDIS_CHANNEL"`
	} `json:"redis"`
	Qdrant struct {
		Host       string `json:"host" env:"QUEST_QDRANT_HOST"`
		Port       int    `json:"port" env:"QUEST_QDRANT_PORT"`
		Collection string `json:"collection" env:"QUEST_QDRANT_COLLECTION"`
		APIKey     string `json:"api_key" env:"QUEST_QDRANT_API_KEY"`
	} `json:"qdrant"`
	Evaluator EvaluatorConfig `json:"evaluator"`
	Templates string          `json:"templates" env:"QUEST_TEMPLATES"` // path to a JSON array of templates
	Debug     bool            `json:"debug" env:"QUEST_DEBUG"`
}

var (
	once   sync.Once
	cfg    *Config
	cfgErr error
)

// LoadConfig reads config.json from disk, then applies QUEST_* environment overrides (singleton)
func LoadConfig(path string) (*Config, error) {
	once.Do(func() {
		raw, err := os.ReadFile(path)
		if err != nil {
			cfgErr = fmt.Errorf("failed to read config file: %w", err)
			return
		}
		var c Config
		if err := json.Unmarshal(raw, &c); err != nil {
			cfgErr = fmt.Errorf("invalid config format: %w", err)
			return
		}
		if err := env.Parse(&c); err != nil {
			cfgErr = fmt.Errorf("parse env: %w", err)
			return
		}
		applyDefaults(&c)
		// Minimal validation
		if c.Server.JWTSecret == "" {
			cfgErr = errors.New("jwtSecret must be set in config")
			return
		}
		switch c.Storage.Driver {
		case "postgres", "sqlite", "qdrant":
		default:
			cfgErr = fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
			return
		}
		cfg = &c
	})
	return cfg, cfgErr
}

func applyDefaults(c *Config) {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "sqlite"
	}
	if c.Storage.Driver == "sqlite" && c.Storage.DSN == "" {
		c.Storage.DSN = "quests.db"
	}
	if c.Storage.CacheSize <= 0 {
		c.Storage.CacheSize = 256
	}
	if c.Redis.Channel == "" {
		c.Redis.Channel = "quest-events"
	}
	if c.Qdrant.Port == 0 {
		c.Qdrant.Port = 6334
	}
	if c.Qdrant.Collection == "" {
		c.Qdrant.Collection = "quests"
	}
	if c.Evaluator.Interval <= 0 {
		c.Evaluator.Interval = Duration(10 * time.Second)
	}
	if c.Evaluator.Timeout <= 0 {
		c.Evaluator.Timeout = Duration(3 * time.Second)
	}
	if c.Evaluator.MaxConcurrent <= 0 {
		c.Evaluator.MaxConcurrent = 2
	}
	if c.Evaluator.BreakerThreshold <= 0 {
		c.Evaluator.BreakerThreshold = 3
	}
	if c.Evaluator.BreakerCooldown <= 0 {
		c.Evaluator.BreakerCooldown = Duration(time.Minute)
	}
}

// GetConfig returns the loaded config (must call LoadConfig first)
func GetConfig() *Config {
	return cfg
}

// ResetConfigForTest resets the singleton state (for testing only)
func ResetConfigForTest() {
	once = sync.Once{}
	cfg = nil
	cfgErr = nil
}
