package config

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"bookline/internal/models"
)

type Config struct {
	Server struct {
		Port   int    `yaml:"port"`
		APIKey string `yaml:"api_key"` // guards admin endpoints
	} `yaml:"server"`

	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`

	Redis struct {
		Address  string `yaml:"address"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	Cache struct {
		TTLSeconds int `yaml:"ttl_seconds"`
	} `yaml:"cache"`

	Telegram struct {
		BotToken    string `yaml:"bot_token"`
		AdminChatID int64  `yaml:"admin_chat_id"`
	} `yaml:"telegram"`

	Monitoring struct {
		HealthCheckPort   int  `yaml:"health_check_port"`
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
		PrometheusPort    int  `yaml:"prometheus_port"`
	} `yaml:"monitoring"`

	Booking struct {
		// DefaultStatus is the status assigned to new bookings: "confirmed"
		// or "pending", per deployment policy.
		DefaultStatus string `yaml:"default_status"`
	} `yaml:"booking"`

	Provision struct {
		AutoEnabled   bool    `yaml:"auto_enabled"`
		HorizonDays   int     `yaml:"horizon_days"`
		IntervalHours int     `yaml:"interval_hours"`
		LocationIDs   []int64 `yaml:"location_ids"`
	} `yaml:"provision"`

	Backup struct {
		Enabled       bool   `yaml:"enabled"`
		Path          string `yaml:"path"`
		IntervalHours int    `yaml:"interval_hours"`
		RetentionDays int    `yaml:"retention_days"`
	} `yaml:"backup"`

	RateLimit struct {
		RequestsPerSecond float64 `yaml:"requests_per_second"`
		Burst             int     `yaml:"burst"`
	} `yaml:"rate_limit"`
}

func Load(path string) (*Config, error) {
	if path == "" {
		path = "configs/config.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Support ${ENV_VAR} placeholders in YAML config.
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	if cfg.Database.Path == "" {
		cfg.Database.Path = "data/bookline.db"
	}

	if err = os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// BookingDefaultStatus returns the configured status for new bookings,
// defaulting to confirmed.
func (c *Config) BookingDefaultStatus() string {
	if c.Booking.DefaultStatus == models.BookingPending {
		return models.BookingPending
	}
	return models.BookingConfirmed
}

// CacheTTL returns the availability cache TTL; zero disables caching.
func (c *Config) CacheTTL() time.Duration {
	if c.Cache.TTLSeconds <= 0 {
		return 0
	}
	return time.Duration(c.Cache.TTLSeconds) * time.Second
}

// ProvisionHorizon returns how far ahead the auto-provision loop fills slots.
func (c *Config) ProvisionHorizon() int {
	if c.Provision.HorizonDays <= 0 {
		return 14
	}
	return c.Provision.HorizonDays
}

// ProvisionInterval returns how often the auto-provision loop runs.
func (c *Config) ProvisionInterval() time.Duration {
	if c.Provision.IntervalHours <= 0 {
		return 12 * time.Hour
	}
	return time.Duration(c.Provision.IntervalHours) * time.Hour
}
