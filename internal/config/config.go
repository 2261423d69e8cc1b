package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type BotConfig struct {
	Token    string  `yaml:"token"`
	Mode     string  `yaml:"mode"` // polling | webhook
	Username string  `yaml:"username"`
	Workers  int     `yaml:"workers"` // update fan-out workers
	AdminIDs []int64 `yaml:"admin_ids"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type HTTPConfig struct {
	Port int `yaml:"port"`
	// AdminSecret signs admin session cookies for the stats API.
	AdminSecret   string `yaml:"admin_secret"`
	AdminPassword string `yaml:"admin_password"`
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type RedisConfig struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type PaymentConfig struct {
	MercadoPago struct {
		AccessToken string `yaml:"access_token"`
		BaseURL     string `yaml:"base_url"`
	} `yaml:"mercadopago"`
	ChargeTTLMinutes int `yaml:"charge_ttl_minutes"`
}

type SweepConfig struct {
	Interval     time.Duration `yaml:"interval"`
	MaxReminders int           `yaml:"max_reminders"`
}

type PlanConfig struct {
	ID           string `yaml:"id"`
	Title        string `yaml:"title"`
	PriceCents   int64  `yaml:"price_cents"`
	DurationDays int    `yaml:"duration_days"`
}

type Config struct {
	Bot      BotConfig      `yaml:"bot"`
	Log      LogConfig      `yaml:"log"`
	HTTP     HTTPConfig     `yaml:"http"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Payment  PaymentConfig  `yaml:"payment"`
	Sweep    SweepConfig    `yaml:"sweep"`
	Plans    []PlanConfig   `yaml:"plans"`

	Runtime RuntimeConfig `yaml:"-"`
}

// LoadConfig reads and validates the YAML config at path.
func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// defaults
	if cfg.Bot.Workers <= 0 {
		cfg.Bot.Workers = 8
	}
	if cfg.Bot.Mode == "" {
		cfg.Bot.Mode = "polling"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.HTTP.Port == 0 {
		cfg.HTTP.Port = 8080
	}
	if cfg.Payment.ChargeTTLMinutes <= 0 {
		cfg.Payment.ChargeTTLMinutes = 30
	}
	if cfg.Payment.MercadoPago.BaseURL == "" {
		cfg.Payment.MercadoPago.BaseURL = "https://api.mercadopago.com"
	}
	if cfg.Sweep.Interval <= 0 {
		cfg.Sweep.Interval = time.Minute
	}
	if cfg.Sweep.MaxReminders <= 0 {
		cfg.Sweep.MaxReminders = 3
	}
	if len(cfg.Plans) == 0 {
		cfg.Plans = DefaultPlans()
	}

	// minimal validation
	if cfg.Bot.Token == "" {
		return nil, errors.New("bot.token is required")
	}
	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	if cfg.Redis.URL == "" {
		return nil, errors.New("redis.url is required")
	}
	if cfg.Payment.MercadoPago.AccessToken == "" && !dev {
		return nil, errors.New("payment.mercadopago.access_token is required")
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}

// DefaultPlans is the built-in catalog used when the config lists none.
func DefaultPlans() []PlanConfig {
	return []PlanConfig{
		{ID: "semanal", Title: "Plano Semanal", PriceCents: 199, DurationDays: 7},
		{ID: "mensal", Title: "Plano Mensal", PriceCents: 199, DurationDays: 30},
	}
}
