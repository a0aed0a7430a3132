package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"freelancehub/pkg/config"

	"gopkg.in/yaml.v3"
)

// StoreConfig selects the persistence driver.
type StoreConfig struct {
	Driver string `yaml:"driver"` // postgres / memory
}

// WorkerConfig tunes the notification consumer.
type WorkerConfig struct {
	Queue      string        `yaml:"queue"`
	MaxRetries int64         `yaml:"max_retries"`
	DedupTTL   time.Duration `yaml:"dedup_ttl"`
}

type Config struct {
	ServiceName string               `yaml:"service_name"`
	DB          config.DBConfig      `yaml:"db"`
	MQ          config.MQConfig      `yaml:"mq"`
	Redis       config.RedisConfig   `yaml:"redis"`
	JWT         config.JWTConfig     `yaml:"jwt"`
	Server      config.ServerConfig  `yaml:"server"`
	Storage     config.StorageConfig `yaml:"storage"`
	Store       StoreConfig          `yaml:"store"`
	Otel        config.OtelConfig    `yaml:"otel"`
	Outbox      config.OutboxConfig  `yaml:"outbox"`
	Worker      WorkerConfig         `yaml:"worker"`
}

// Load reads config/<CONFIG_ENV>.yaml on top of config/base.yaml, falling back to
// a single config.yaml in the working directory. Exits on failure.
func Load() *Config {
	cfg, err := LoadFrom(config.GetConfigEnv(), config.GetEnv("CONFIG_DIR", "config"))
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

func LoadFrom(env, dir string) (*Config, error) {
	var cfg Config

	merged, err := config.LoadConfig(env, dir)
	switch {
	case err == nil:
		if err := config.Decode(merged, &cfg); err != nil {
			return nil, err
		}
	default:
		f, openErr := os.Open("config.yaml")
		if openErr != nil {
			return nil, fmt.Errorf("%w (config.yaml fallback: %v)", err, openErr)
		}
		defer f.Close()
		if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
			return nil, fmt.Errorf("failed to decode config.yaml: %w", err)
		}
	}

	// 环境变量覆盖
	config.OverrideDBFromEnv(&cfg.DB)
	config.OverrideMQFromEnv(&cfg.MQ)
	config.OverrideRedisFromEnv(&cfg.Redis)
	config.OverrideJWTFromEnv(&cfg.JWT)
	config.OverrideServerFromEnv(&cfg.Server)
	config.OverrideStorageFromEnv(&cfg.Storage)
	config.OverrideOtelFromEnv(&cfg.Otel)
	if driver := os.Getenv("STORE_DRIVER"); driver != "" {
		cfg.Store.Driver = driver
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.ServiceName == "" {
		c.ServiceName = "freelancehub"
	}
	if c.Server.Port == "" {
		c.Server.Port = ":8080"
	}
	if c.Server.PublicURL == "" {
		c.Server.PublicURL = "http://localhost" + c.Server.Port
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 30 * time.Second
	}
	if c.JWT.TTL == 0 {
		c.JWT.TTL = 24 * time.Hour
	}
	if c.JWT.CookieName == "" {
		c.JWT.CookieName = "token"
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "disk"
	}
	if c.Storage.Root == "" {
		c.Storage.Root = "./uploads"
	}
	if c.Storage.URLPrefix == "" {
		c.Storage.URLPrefix = "/uploads"
	}
	if c.Storage.MaxUploadBytes == 0 {
		c.Storage.MaxUploadBytes = 10 << 20
	}
	if c.Store.Driver == "" {
		c.Store.Driver = "postgres"
	}
	if c.Outbox.Interval == 0 {
		c.Outbox.Interval = time.Second
	}
	if c.Outbox.BatchSize == 0 {
		c.Outbox.BatchSize = 100
	}
	if c.Outbox.MaxRetries == 0 {
		c.Outbox.MaxRetries = 5
	}
	if c.Worker.Queue == "" {
		c.Worker.Queue = "notifications.q"
	}
	if c.Worker.MaxRetries == 0 {
		c.Worker.MaxRetries = 3
	}
	if c.Worker.DedupTTL == 0 {
		c.Worker.DedupTTL = 24 * time.Hour
	}
}
