package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config top-level struct
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	Redis     RedisConfig     `yaml:"redis"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	RateLimit RateLimitConfig `yaml:"ratelimit"`
	External  ExternalConfig  `yaml:"external"`
	Cache     CacheConfig     `yaml:"cache"`
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

type RateLimitConfig struct {
	RPS   int `yaml:"rps"`
	Burst int `yaml:"burst"`
}

// ExternalConfig points at the auth and multi-sig endpoints. The identity
// pair is static service configuration, never user input. Deploy gets its
// own, longer timeout; every other outbound call shares TimeoutMS.
type ExternalConfig struct {
	AuthURL         string `yaml:"auth_url"`
	AuthIdentity    string `yaml:"auth_identity"`
	AuthSecret      string `yaml:"auth_secret"`
	MultiSigURL     string `yaml:"multisig_url"`
	TimeoutMS       int    `yaml:"timeout_ms"`
	DeployTimeoutMS int    `yaml:"deploy_timeout_ms"`
}

// Timeout returns the shared outbound-call timeout.
func (e ExternalConfig) Timeout() time.Duration {
	return time.Duration(e.TimeoutMS) * time.Millisecond
}

// DeployTimeout returns the deploy-only timeout.
func (e ExternalConfig) DeployTimeout() time.Duration {
	return time.Duration(e.DeployTimeoutMS) * time.Millisecond
}

type CacheConfig struct {
	OverviewTTLSeconds int `yaml:"overview_ttl_seconds"`
}

func (c CacheConfig) OverviewTTL() time.Duration {
	return time.Duration(c.OverviewTTLSeconds) * time.Second
}

// Load reads yaml file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	// secrets come from env when present
	if pw := os.Getenv("POSTGRES_PASSWORD"); pw != "" {
		cfg.Postgres.DSN = cfg.Postgres.DSN + " password=" + pw
	}
	if sec := os.Getenv("EXTERNAL_AUTH_SECRET"); sec != "" {
		cfg.External.AuthSecret = sec
	}
	return &cfg, nil
}
