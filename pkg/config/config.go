package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable the configuration reads
const EnvPrefix = "PUSHNOTIFY"

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Port string `json:"port" mapstructure:"port"`
	// RateLimit is the number of requests one client may make per RateWindow
	RateLimit  int           `json:"rate_limit" mapstructure:"rate_limit"`
	RateWindow time.Duration `json:"rate_window" mapstructure:"rate_window"`
}

// AuthConfig represents owner authentication configuration
type AuthConfig struct {
	JWTSecret string        `json:"jwt_secret" mapstructure:"jwt_secret"`
	Issuer    string        `json:"issuer" mapstructure:"issuer"`
	TokenTTL  time.Duration `json:"token_ttl" mapstructure:"token_ttl"`
}

// StorageConfig selects the persistence backend
type StorageConfig struct {
	// Type is "memory" or "postgres"
	Type        string `json:"type" mapstructure:"type"`
	PostgresDSN string `json:"postgres_dsn" mapstructure:"postgres_dsn"`
}

// RedisConfig enables the shared dispatch lock when Addr is set
type RedisConfig struct {
	Addr      string `json:"addr" mapstructure:"addr"`
	Password  string `json:"password" mapstructure:"password"`
	DB        int    `json:"db" mapstructure:"db"`
	KeyPrefix string `json:"key_prefix" mapstructure:"key_prefix"`
}

// DispatchConfig tunes push fan-out
type DispatchConfig struct {
	Concurrency int           `json:"concurrency" mapstructure:"concurrency"`
	SendTimeout time.Duration `json:"send_timeout" mapstructure:"send_timeout"`
	LockTTL     time.Duration `json:"lock_ttl" mapstructure:"lock_ttl"`
	// TTL is how long push services keep an undelivered message, in seconds
	TTL     int    `json:"ttl" mapstructure:"ttl"`
	Urgency string `json:"urgency" mapstructure:"urgency"`
	// VAPIDSubject overrides the owner's email as the VAPID contact
	VAPIDSubject string `json:"vapid_subject" mapstructure:"vapid_subject"`
}

// LeaderElectionConfig represents Kubernetes leader election for the scheduler worker
type LeaderElectionConfig struct {
	Enabled   bool   `json:"enabled" mapstructure:"enabled"`
	Namespace string `json:"namespace" mapstructure:"namespace"`
	LeaseName string `json:"lease_name" mapstructure:"lease_name"`
}

// SchedulerConfig represents the recurring notification worker
type SchedulerConfig struct {
	Enabled        bool                 `json:"enabled" mapstructure:"enabled"`
	Spec           string               `json:"spec" mapstructure:"spec"`
	LeaderElection LeaderElectionConfig `json:"leader_election" mapstructure:"leader_election"`
}

// EncryptionConfig selects how VAPID private keys are sealed at rest
type EncryptionConfig struct {
	KMSKeyID  string `json:"kms_key_id" mapstructure:"kms_key_id"`
	KMSRegion string `json:"kms_region" mapstructure:"kms_region"`
	KeyFile   string `json:"key_file" mapstructure:"key_file"`
	Key       string `json:"key" mapstructure:"key"`
}

// EventsConfig enables Kafka fan-out of tracked events when Brokers is set
type EventsConfig struct {
	Brokers  []string `json:"brokers" mapstructure:"brokers"`
	Topic    string   `json:"topic" mapstructure:"topic"`
	ClientID string   `json:"client_id" mapstructure:"client_id"`
}

// Config represents the service configuration
type Config struct {
	Server     ServerConfig     `json:"server" mapstructure:"server"`
	Auth       AuthConfig       `json:"auth" mapstructure:"auth"`
	Storage    StorageConfig    `json:"storage" mapstructure:"storage"`
	Redis      RedisConfig      `json:"redis" mapstructure:"redis"`
	Dispatch   DispatchConfig   `json:"dispatch" mapstructure:"dispatch"`
	Scheduler  SchedulerConfig  `json:"scheduler" mapstructure:"scheduler"`
	Encryption EncryptionConfig `json:"encryption" mapstructure:"encryption"`
	Events     EventsConfig     `json:"events" mapstructure:"events"`
	// LogDir holds the per-notification dispatch audit files. Empty disables them.
	LogDir string `json:"log_dir" mapstructure:"log_dir"`
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:       "8080",
			RateLimit:  100,
			RateWindow: 15 * time.Minute,
		},
		Auth: AuthConfig{
			Issuer:   "pushnotify",
			TokenTTL: 7 * 24 * time.Hour,
		},
		Storage: StorageConfig{Type: "memory"},
		Redis:   RedisConfig{KeyPrefix: "pushnotify:"},
		Dispatch: DispatchConfig{
			Concurrency: 100,
			SendTimeout: 10 * time.Second,
			LockTTL:     10 * time.Minute,
			TTL:         86400,
			Urgency:     "normal",
		},
		Scheduler: SchedulerConfig{
			Enabled: true,
			Spec:    "@every 1m",
			LeaderElection: LeaderElectionConfig{
				Namespace: "default",
				LeaseName: "pushnotify-scheduler",
			},
		},
		Events: EventsConfig{
			Topic:    "pushnotify.events",
			ClientID: "pushnotify",
		},
	}
}

// NewViper returns a viper instance seeded with the defaults and bound to the environment.
// PUSHNOTIFY_DISPATCH_CONCURRENCY sets dispatch.concurrency.
func NewViper() *viper.Viper {
	v := viper.New()
	setDefaults(v, DefaultConfig())
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// LoadConfig loads configuration from an optional file (json, yaml or toml) layered
// under environment variables. A missing file is not an error.
func LoadConfig(filename string) (*Config, error) {
	return Load(NewViper(), filename)
}

// Load reads filename into v and decodes the merged result
func Load(v *viper.Viper, filename string) (*Config, error) {
	if filename != "" {
		v.SetConfigFile(filename)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config file %s: %w", filename, err)
			}
			log.Printf("[CONFIG] Config file %s not found, using defaults and environment", filename)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks settings that would otherwise fail at first use
func (c *Config) Validate() error {
	switch c.Storage.Type {
	case "memory":
	case "postgres":
		if c.Storage.PostgresDSN == "" {
			return errors.New("storage.postgres_dsn is required for postgres storage")
		}
	default:
		return fmt.Errorf("unknown storage type %q", c.Storage.Type)
	}
	if c.Dispatch.Concurrency < 1 {
		return errors.New("dispatch.concurrency must be at least 1")
	}
	if c.Server.RateLimit < 0 {
		return errors.New("server.rate_limit must not be negative")
	}
	if c.Scheduler.Enabled && c.Scheduler.Spec == "" {
		return errors.New("scheduler.spec is required when the scheduler is enabled")
	}
	return nil
}

// setDefaults registers every key so that AutomaticEnv can override it
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.rate_limit", d.Server.RateLimit)
	v.SetDefault("server.rate_window", d.Server.RateWindow)
	v.SetDefault("auth.jwt_secret", d.Auth.JWTSecret)
	v.SetDefault("auth.issuer", d.Auth.Issuer)
	v.SetDefault("auth.token_ttl", d.Auth.TokenTTL)
	v.SetDefault("storage.type", d.Storage.Type)
	v.SetDefault("storage.postgres_dsn", d.Storage.PostgresDSN)
	v.SetDefault("redis.addr", d.Redis.Addr)
	v.SetDefault("redis.password", d.Redis.Password)
	v.SetDefault("redis.db", d.Redis.DB)
	v.SetDefault("redis.key_prefix", d.Redis.KeyPrefix)
	v.SetDefault("dispatch.concurrency", d.Dispatch.Concurrency)
	v.SetDefault("dispatch.send_timeout", d.Dispatch.SendTimeout)
	v.SetDefault("dispatch.lock_ttl", d.Dispatch.LockTTL)
	v.SetDefault("dispatch.ttl", d.Dispatch.TTL)
	v.SetDefault("dispatch.urgency", d.Dispatch.Urgency)
	v.SetDefault("dispatch.vapid_subject", d.Dispatch.VAPIDSubject)
	v.SetDefault("scheduler.enabled", d.Scheduler.Enabled)
	v.SetDefault("scheduler.spec", d.Scheduler.Spec)
	v.SetDefault("scheduler.leader_election.enabled", d.Scheduler.LeaderElection.Enabled)
	v.SetDefault("scheduler.leader_election.namespace", d.Scheduler.LeaderElection.Namespace)
	v.SetDefault("scheduler.leader_election.lease_name", d.Scheduler.LeaderElection.LeaseName)
	v.SetDefault("encryption.kms_key_id", d.Encryption.KMSKeyID)
	v.SetDefault("encryption.kms_region", d.Encryption.KMSRegion)
	v.SetDefault("encryption.key_file", d.Encryption.KeyFile)
	v.SetDefault("encryption.key", d.Encryption.Key)
	v.SetDefault("events.brokers", d.Events.Brokers)
	v.SetDefault("events.topic", d.Events.Topic)
	v.SetDefault("events.client_id", d.Events.ClientID)
	v.SetDefault("log_dir", d.LogDir)
}
