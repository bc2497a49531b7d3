package config

import (
	"errors"
	"strings"
	"time"

	libconfig "edgemeter/libs/config"
)

// HTTPConfig controls the REST listener. The default binds loopback
// only; the API is not meant to be reachable off-host.
type HTTPConfig struct {
	Addr string `yaml:"addr" env:"EDGEMETER_HTTP_ADDR"`
}

// StoreConfig names one database pool.
type StoreConfig struct {
	DSN string `yaml:"dsn"`
}

// IngestConfig points at the central ingest API.
type IngestConfig struct {
	BaseURL string        `yaml:"base_url" env:"EDGEMETER_INGEST_URL"`
	APIKey  string        `yaml:"api_key" env:"EDGEMETER_INGEST_API_KEY"`
	Timeout time.Duration `yaml:"timeout" env:"EDGEMETER_INGEST_TIMEOUT"`
}

// MonitorConfig controls the connectivity monitor.
type MonitorConfig struct {
	Interval     time.Duration `yaml:"interval" env:"EDGEMETER_MONITOR_INTERVAL"`
	ProbeTimeout time.Duration `yaml:"probe_timeout" env:"EDGEMETER_MONITOR_PROBE_TIMEOUT"`
}

// UploadConfig controls the upload cycle. MaxRetries of zero keeps
// failed readings eligible forever; the queue never drops data.
type UploadConfig struct {
	BatchSize  int `yaml:"batch_size" env:"EDGEMETER_UPLOAD_BATCH_SIZE"`
	MaxRetries int `yaml:"max_retries" env:"EDGEMETER_UPLOAD_MAX_RETRIES"`
}

// RedisConfig is optional; without an addr the collector runs with
// in-process upload state only.
type RedisConfig struct {
	Addr     string `yaml:"addr" env:"EDGEMETER_REDIS_ADDR"`
	Password string `yaml:"password" env:"EDGEMETER_REDIS_PASSWORD"`
}

// Config defines collector configuration.
type Config struct {
	HTTP     HTTPConfig    `yaml:"http"`
	LocalDB  StoreConfig   `yaml:"local_db" env:"EDGEMETER_LOCAL_DB"`
	RemoteDB StoreConfig   `yaml:"remote_db" env:"EDGEMETER_REMOTE_DB"`
	Ingest   IngestConfig  `yaml:"ingest"`
	Monitor  MonitorConfig `yaml:"monitor"`
	Upload   UploadConfig  `yaml:"upload"`
	Redis    RedisConfig   `yaml:"redis"`
}

// Load configuration using the shared helper and apply defaults.
func Load() (*Config, error) {
	cfg := &Config{
		HTTP: HTTPConfig{
			Addr: "127.0.0.1:8089",
		},
		Ingest: IngestConfig{
			Timeout: 5 * time.Second,
		},
		Monitor: MonitorConfig{
			Interval:     60 * time.Second,
			ProbeTimeout: 5 * time.Second,
		},
		Upload: UploadConfig{
			BatchSize: 50,
		},
	}

	if err := libconfig.LoadConfig(cfg); err != nil {
		return nil, err
	}

	if strings.TrimSpace(cfg.LocalDB.DSN) == "" {
		return nil, errors.New("config: local db dsn required")
	}
	if strings.TrimSpace(cfg.RemoteDB.DSN) == "" {
		return nil, errors.New("config: remote db dsn required")
	}
	if strings.TrimSpace(cfg.Ingest.BaseURL) == "" {
		return nil, errors.New("config: ingest base url required")
	}
	return cfg, nil
}
