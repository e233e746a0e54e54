package sweepq

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// ConnConfig describes one Redis connection.
type ConnConfig struct {
	URL      string `yaml:"url" json:"url"`
	Host     string `yaml:"host" json:"host"`
	Port     int    `yaml:"port" json:"port"`
	DB       int    `yaml:"db" json:"db"`
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
	SSL      bool   `yaml:"ssl" json:"ssl"`
	Prefix   string `yaml:"prefix" json:"prefix"`
}

type LocksConfig struct {
	ConnConfig `yaml:",inline"`
	Marker     string `yaml:"marker" json:"marker"`
}

// Config is the file/env configuration of the sweeper. Redis is the queue
// connection whose keyspace is reconciled; Locks is the connection holding
// overlap locks.
type Config struct {
	Redis           ConnConfig  `yaml:"redis" json:"redis"`
	Locks           LocksConfig `yaml:"locks" json:"locks"`
	ScanCount       int64       `yaml:"scanCount" json:"scanCount"`
	RetentionDays   int         `yaml:"retentionDays" json:"retentionDays"`
	MetricsTextfile string      `yaml:"metricsTextfile" json:"metricsTextfile"`
}

func DefaultConfig() Config {
	return Config{
		Redis: ConnConfig{
			Host: "localhost",
			Port: 6379,
		},
		Locks: LocksConfig{
			Marker: DefaultLockMarker,
		},
		ScanCount:     DefaultScanCount,
		RetentionDays: 7,
	}
}

// LoadConfig reads a YAML or JSON file (by extension) over the defaults.
// An empty path returns the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	switch filepath.Ext(path) {
	case ".json":
		err = json.Unmarshal(b, &cfg)
	default:
		err = yaml.Unmarshal(b, &cfg)
	}
	if err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// ConfigFromEnv overlays SWEEPQ_* environment variables onto cfg.
func ConfigFromEnv(cfg *Config) {
	connFromEnv("SWEEPQ_REDIS_", &cfg.Redis)
	connFromEnv("SWEEPQ_LOCKS_", &cfg.Locks.ConnConfig)

	if v := os.Getenv("SWEEPQ_LOCKS_MARKER"); v != "" {
		cfg.Locks.Marker = v
	}
	if v := os.Getenv("SWEEPQ_SCAN_COUNT"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.ScanCount = n
		}
	}
	if v := os.Getenv("SWEEPQ_RETENTION_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RetentionDays = n
		}
	}
	if v := os.Getenv("SWEEPQ_METRICS_TEXTFILE"); v != "" {
		cfg.MetricsTextfile = v
	}
}

func connFromEnv(prefix string, c *ConnConfig) {
	if v := os.Getenv(prefix + "URL"); v != "" {
		c.URL = v
	}
	if v := os.Getenv(prefix + "HOST"); v != "" {
		c.Host = v
	}
	if v := os.Getenv(prefix + "PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Port = n
		}
	}
	if v := os.Getenv(prefix + "DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.DB = n
		}
	}
	if v := os.Getenv(prefix + "USERNAME"); v != "" {
		c.Username = v
	}
	if v := os.Getenv(prefix + "PASSWORD"); v != "" {
		c.Password = v
	}
	if v := os.Getenv(prefix + "SSL"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.SSL = b
		}
	}
	if v := os.Getenv(prefix + "PREFIX"); v != "" {
		c.Prefix = v
	}
}

func (c ConnConfig) connOpts(scanCount int64) RedisConnOpts {
	return RedisConnOpts{
		RedisURL:  c.URL,
		Host:      c.Host,
		Port:      c.Port,
		DB:        c.DB,
		Username:  c.Username,
		Password:  c.Password,
		SSL:       c.SSL,
		Prefix:    c.Prefix,
		ScanCount: scanCount,
	}
}

// configured reports whether any connection target was given.
func (c ConnConfig) configured() bool {
	return c.URL != "" || c.Host != ""
}

// ClientOpts turns the configuration into client options. When no lock
// connection is configured the queue connection is reused without its
// prefix.
func (cfg Config) ClientOpts() ClientOpts {
	var locks RedisConnOpts
	if cfg.Locks.configured() {
		locks = cfg.Locks.connOpts(cfg.ScanCount)
	} else {
		locks = cfg.Redis.connOpts(cfg.ScanCount)
		locks.Prefix = cfg.Locks.Prefix
	}

	return ClientOpts{
		RedisURL:   cfg.Redis.URL,
		Host:       cfg.Redis.Host,
		Port:       cfg.Redis.Port,
		DB:         cfg.Redis.DB,
		Username:   cfg.Redis.Username,
		Password:   cfg.Redis.Password,
		SSL:        cfg.Redis.SSL,
		Prefix:     cfg.Redis.Prefix,
		ScanCount:  cfg.ScanCount,
		Locks:      &locks,
		LockMarker: cfg.Locks.Marker,
		Retention:  time.Duration(cfg.RetentionDays) * 24 * time.Hour,
	}
}
