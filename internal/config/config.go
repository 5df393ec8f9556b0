// Package config loads YAML configuration for the securesession
// daemon and CLI: a single nested struct, defaults filled in after
// unmarshaling, then validated before use.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete configuration for a securesession server or
// client process.
type Config struct {
	Identity  IdentityConfig  `yaml:"identity"`
	Transport TransportConfig `yaml:"transport"`
	Registry  RegistryConfig  `yaml:"registry"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// IdentityConfig names this node's identity and the file holding its
// long-term P-256 signing private key: a PEM block of type
// "SECURESESSION SIGNING PRIVATE KEY" holding the raw 32-byte scalar,
// as written by the genkey command.
type IdentityConfig struct {
	ID             string `yaml:"id"`
	SigningKeyPath string `yaml:"signing_key_path"`
}

// TransportConfig selects and configures the wire transport.
type TransportConfig struct {
	Kind       string `yaml:"kind"` // "tcp", "websocket", "quic"
	ListenAddr string `yaml:"listen_addr"`
	DialAddr   string `yaml:"dial_addr"`
	TLSCert    string `yaml:"tls_cert"`
	TLSKey     string `yaml:"tls_key"`
}

// RegistryConfig selects and configures the peer-identity registry.
type RegistryConfig struct {
	Backend  string         `yaml:"backend"` // "memory", "postgres", "redis"
	Postgres PostgresConfig `yaml:"postgres"`
	Redis    RedisConfig    `yaml:"redis"`
}

// PostgresConfig mirrors pkg/identity.PostgresConfig.
type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

// RedisConfig mirrors pkg/identity.RedisConfig.
type RedisConfig struct {
	Host     string        `yaml:"host"`
	Port     int           `yaml:"port"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

// LoggingConfig configures internal/logging.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	OutputFile string `yaml:"output_file"` // empty means stdout
}

// Load reads and validates configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	cfg.setDefaults()
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: invalid configuration: %w", err)
	}
	return &cfg, nil
}

func (c *Config) setDefaults() {
	if c.Transport.Kind == "" {
		c.Transport.Kind = "tcp"
	}
	if c.Registry.Backend == "" {
		c.Registry.Backend = "memory"
	}
	if c.Registry.Postgres.Port == 0 {
		c.Registry.Postgres.Port = 5432
	}
	if c.Registry.Postgres.SSLMode == "" {
		c.Registry.Postgres.SSLMode = "disable"
	}
	if c.Registry.Redis.Port == 0 {
		c.Registry.Redis.Port = 6379
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

func (c *Config) validate() error {
	if c.Identity.ID == "" {
		return fmt.Errorf("identity.id is required")
	}
	if c.Identity.SigningKeyPath == "" {
		return fmt.Errorf("identity.signing_key_path is required")
	}

	switch c.Transport.Kind {
	case "tcp", "websocket", "quic":
	default:
		return fmt.Errorf("transport.kind must be tcp, websocket, or quic, got %q", c.Transport.Kind)
	}
	if c.Transport.ListenAddr == "" && c.Transport.DialAddr == "" {
		return fmt.Errorf("transport must set listen_addr or dial_addr")
	}
	if c.Transport.Kind == "quic" && (c.Transport.TLSCert == "" || c.Transport.TLSKey == "") {
		return fmt.Errorf("transport.kind quic requires tls_cert and tls_key")
	}

	switch c.Registry.Backend {
	case "memory":
	case "postgres":
		if c.Registry.Postgres.Host == "" {
			return fmt.Errorf("registry.postgres.host is required")
		}
		if c.Registry.Postgres.DBName == "" {
			return fmt.Errorf("registry.postgres.dbname is required")
		}
	case "redis":
		if c.Registry.Redis.Host == "" {
			return fmt.Errorf("registry.redis.host is required")
		}
	default:
		return fmt.Errorf("registry.backend must be memory, postgres, or redis, got %q", c.Registry.Backend)
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}

	return nil
}

// Default returns a minimal, memory-backed TCP server configuration
// for id, suitable as a starting point for a generated config file.
func Default(id, signingKeyPath string) *Config {
	cfg := &Config{
		Identity:  IdentityConfig{ID: id, SigningKeyPath: signingKeyPath},
		Transport: TransportConfig{Kind: "tcp", ListenAddr: "127.0.0.1:7443"},
		Registry:  RegistryConfig{Backend: "memory"},
		Logging:   LoggingConfig{Level: "info"},
	}
	cfg.setDefaults()
	return cfg
}

// Write marshals cfg to path as YAML.
func Write(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}
