package config

import (
	"fmt"
	"time"

	"github.com/af-corp/reqbridge/internal/types"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	HTTP      HTTPConfig      `yaml:"http"`
	Engine    EngineConfig    `yaml:"engine"`
	Policy    PolicyConfig    `yaml:"policy"`
	Redis     RedisConfig     `yaml:"redis"`
	Database  DatabaseConfig  `yaml:"database"`
	Audit     AuditConfig     `yaml:"audit"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

type ServerConfig struct {
	Host             string        `yaml:"host"`
	Port             int           `yaml:"port"`
	APIToken         string        `yaml:"api_token"`
	ReadTimeout      time.Duration `yaml:"read_timeout"`
	WriteTimeout     time.Duration `yaml:"write_timeout"`
	IdleTimeout      time.Duration `yaml:"idle_timeout"`
	GracefulShutdown time.Duration `yaml:"graceful_shutdown"`
}

// HTTPConfig holds the host defaults applied to every outgoing request.
type HTTPConfig struct {
	Timeout           time.Duration `yaml:"timeout"`
	Redirection       int           `yaml:"redirection"`
	HTTPVersion       string        `yaml:"httpversion"`
	UserAgent         string        `yaml:"user_agent"`
	SSLVerify         bool          `yaml:"sslverify"`
	SSLCertificates   string        `yaml:"sslcertificates"`
	RejectUnsafeURLs  bool          `yaml:"reject_unsafe_urls"`
	TempDir           string        `yaml:"temp_dir"`
	LimitResponseSize int64         `yaml:"limit_response_size"`
}

// EngineConfig tunes the shared transport. Changes need a restart.
type EngineConfig struct {
	MaxIdleConns        int           `yaml:"max_idle_conns"`
	MaxIdleConnsPerHost int           `yaml:"max_idle_conns_per_host"`
	IdleConnTimeout     time.Duration `yaml:"idle_conn_timeout"`
}

type PolicyConfig struct {
	// BlockExternal refuses requests to hosts outside AccessibleHosts.
	BlockExternal   bool            `yaml:"block_external"`
	BlockLocal      bool            `yaml:"block_local"`
	SiteHost        string          `yaml:"site_host"`
	AccessibleHosts []string        `yaml:"accessible_hosts"`
	Rego            RegoConfig      `yaml:"rego"`
	Blocklist       BlocklistConfig `yaml:"blocklist"`
	RateLimit       RateLimitConfig `yaml:"rate_limit"`
	Circuit         CircuitConfig   `yaml:"circuit"`
}

type RegoConfig struct {
	Enabled           bool          `yaml:"enabled"`
	BundlePath        string        `yaml:"bundle_path"`
	EvaluationTimeout time.Duration `yaml:"evaluation_timeout"`
}

type BlocklistConfig struct {
	Enabled bool   `yaml:"enabled"`
	Key     string `yaml:"key"`
}

// RateLimitConfig caps outgoing requests per destination host over a
// sliding window. Counters live in Redis.
type RateLimitConfig struct {
	Enabled   bool          `yaml:"enabled"`
	Requests  int64         `yaml:"requests"`
	Window    time.Duration `yaml:"window"`
	KeyPrefix string        `yaml:"key_prefix"`
}

// CircuitConfig stops requests to a host after repeated failures until a
// probe succeeds.
type CircuitConfig struct {
	Enabled          bool          `yaml:"enabled"`
	FailureThreshold int           `yaml:"failure_threshold"`
	RecoveryInterval time.Duration `yaml:"recovery_interval"`
}

type RedisConfig struct {
	Addresses []string `yaml:"addresses"`
	Password  string   `yaml:"password"`
	DB        int      `yaml:"db"`
	PoolSize  int      `yaml:"pool_size"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
}

func (d DatabaseConfig) DSN() string {
	sslmode := d.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s", d.User, d.Password, d.Host, d.Port, d.Name, sslmode)
}

type AuditConfig struct {
	Enabled      bool          `yaml:"enabled"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

type TelemetryConfig struct {
	LogLevel    string `yaml:"log_level"`
	LogFormat   string `yaml:"log_format"`
	MetricsPort int    `yaml:"metrics_port"`
}

func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:             "127.0.0.1",
			Port:             8080,
			ReadTimeout:      30 * time.Second,
			WriteTimeout:     120 * time.Second,
			IdleTimeout:      120 * time.Second,
			GracefulShutdown: 30 * time.Second,
		},
		HTTP: HTTPConfig{
			Timeout:     5 * time.Second,
			Redirection: 5,
			HTTPVersion: "1.0",
			UserAgent:   "reqbridge/dev",
			SSLVerify:   true,
		},
		Engine: EngineConfig{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
		Policy: PolicyConfig{
			Rego: RegoConfig{
				BundlePath:        "configs/policy",
				EvaluationTimeout: 100 * time.Millisecond,
			},
			Blocklist: BlocklistConfig{
				Key: "reqbridge:blocklist",
			},
			RateLimit: RateLimitConfig{
				Requests:  600,
				Window:    time.Minute,
				KeyPrefix: "reqbridge:rl",
			},
			Circuit: CircuitConfig{
				FailureThreshold: 5,
				RecoveryInterval: 30 * time.Second,
			},
		},
		Redis: RedisConfig{
			DB:       0,
			PoolSize: 20,
		},
		Database: DatabaseConfig{
			Host: "localhost",
			Port: 5432,
			Name: "reqbridge",
			User: "reqbridge",
		},
		Audit: AuditConfig{
			WriteTimeout: 2 * time.Second,
		},
		Telemetry: TelemetryConfig{
			LogLevel:    "info",
			LogFormat:   "json",
			MetricsPort: 9090,
		},
	}
}

// Defaults returns the host request defaults described by h.
func (h HTTPConfig) Defaults() types.Defaults {
	return types.Defaults{
		Timeout:           h.Timeout,
		Redirection:       h.Redirection,
		HTTPVersion:       h.HTTPVersion,
		UserAgent:         h.UserAgent,
		SSLVerify:         h.SSLVerify,
		SSLCertificates:   h.SSLCertificates,
		RejectUnsafe:      h.RejectUnsafeURLs,
		LimitResponseSize: h.LimitResponseSize,
	}
}
