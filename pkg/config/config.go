package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

type Config struct {
	Server struct {
		Address         string        `yaml:"address"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`

	Backend struct {
		BaseURL        string        `yaml:"base_url"`
		PushURL        string        `yaml:"push_url"`
		RequestTimeout time.Duration `yaml:"request_timeout"`
		AuthToken      string        `yaml:"auth_token"`
	} `yaml:"backend"`

	Viewer struct {
		SamplingInterval time.Duration `yaml:"sampling_interval"`
		DebounceWindow   time.Duration `yaml:"debounce_window"`
		MaxBitrateKbps   int           `yaml:"max_bitrate_kbps"`

		SessionRetry struct {
			Enabled      bool          `yaml:"enabled"`
			MaxAttempts  int           `yaml:"max_attempts"`
			InitialDelay time.Duration `yaml:"initial_delay"`
			MaxDelay     time.Duration `yaml:"max_delay"`
		} `yaml:"session_retry"`
	} `yaml:"viewer"`

	Telemetry struct {
		StatsPerSecond      float64 `yaml:"stats_per_second"`
		CandidatesPerSecond float64 `yaml:"candidates_per_second"`
		Burst               int     `yaml:"burst"`
	} `yaml:"telemetry"`

	Monitoring struct {
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
	} `yaml:"monitoring"`

	Tracing struct {
		Enabled    bool    `yaml:"enabled"`
		JaegerURL  string  `yaml:"jaeger_url"`
		SampleRate float64 `yaml:"sample_rate"`
	} `yaml:"tracing"`

	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`

	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Address  string `yaml:"address"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		PoolSize int    `yaml:"pool_size"`
	} `yaml:"redis"`
}

// Validate checks that configuration values are within acceptable ranges.
func (c *Config) Validate() error {
	// Server
	if c.Server.Address == "" {
		return fmt.Errorf("server.address must not be empty")
	}
	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server.read_timeout must be > 0")
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server.write_timeout must be > 0")
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("server.shutdown_timeout must be > 0")
	}

	// Backend
	if c.Backend.BaseURL == "" {
		return fmt.Errorf("backend.base_url must not be empty")
	}
	if c.Backend.PushURL == "" {
		return fmt.Errorf("backend.push_url must not be empty")
	}
	if c.Backend.RequestTimeout <= 0 {
		return fmt.Errorf("backend.request_timeout must be > 0")
	}

	// Viewer
	if c.Viewer.SamplingInterval <= 0 {
		return fmt.Errorf("viewer.sampling_interval must be > 0")
	}
	if c.Viewer.DebounceWindow <= 0 {
		return fmt.Errorf("viewer.debounce_window must be > 0")
	}
	if c.Viewer.MaxBitrateKbps < 0 {
		return fmt.Errorf("viewer.max_bitrate_kbps must be >= 0")
	}
	if c.Viewer.SessionRetry.Enabled {
		if c.Viewer.SessionRetry.MaxAttempts <= 0 {
			return fmt.Errorf("viewer.session_retry.max_attempts must be > 0 when retry is enabled")
		}
		if c.Viewer.SessionRetry.InitialDelay <= 0 {
			return fmt.Errorf("viewer.session_retry.initial_delay must be > 0 when retry is enabled")
		}
		if c.Viewer.SessionRetry.MaxDelay < c.Viewer.SessionRetry.InitialDelay {
			return fmt.Errorf("viewer.session_retry.max_delay must be >= initial_delay")
		}
	}

	// Telemetry
	if c.Telemetry.StatsPerSecond <= 0 {
		return fmt.Errorf("telemetry.stats_per_second must be > 0")
	}
	if c.Telemetry.CandidatesPerSecond <= 0 {
		return fmt.Errorf("telemetry.candidates_per_second must be > 0")
	}
	if c.Telemetry.Burst <= 0 {
		return fmt.Errorf("telemetry.burst must be > 0")
	}

	// Tracing
	if c.Tracing.Enabled && c.Tracing.JaegerURL == "" {
		return fmt.Errorf("tracing.jaeger_url must not be empty when tracing.enabled=true")
	}

	// Logging
	if c.Logging.Level == "" {
		return fmt.Errorf("logging.level must not be empty")
	}

	// Redis
	if c.Redis.Enabled {
		if c.Redis.Address == "" {
			return fmt.Errorf("redis.address must not be empty when redis.enabled=true")
		}
		if c.Redis.PoolSize <= 0 {
			return fmt.Errorf("redis.pool_size must be > 0 when redis.enabled=true")
		}
	}

	return nil
}

// Load reads configuration from YAML file, applies defaults and env overrides.
func Load(configPath string) (*Config, error) {
	// If file does not exist, fall back to defaults
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg := DefaultConfig()
		cfg.applyEnvOverrides()
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config yaml: %w", err)
	}

	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// DefaultConfig returns configuration with sane defaults.
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Server.Address = ":8090"
	cfg.Server.ReadTimeout = 30 * time.Second
	cfg.Server.WriteTimeout = 30 * time.Second
	cfg.Server.ShutdownTimeout = 30 * time.Second

	cfg.Backend.BaseURL = "http://10.0.0.1:8080/api"
	cfg.Backend.PushURL = "ws://10.0.0.1:8080/ws"
	cfg.Backend.RequestTimeout = 10 * time.Second

	cfg.Viewer.SamplingInterval = 2 * time.Second
	cfg.Viewer.DebounceWindow = 300 * time.Millisecond
	cfg.Viewer.MaxBitrateKbps = 2500

	// Session retry is off by default; failed sessions stay failed until the
	// operator reconnects.
	cfg.Viewer.SessionRetry.Enabled = false
	cfg.Viewer.SessionRetry.MaxAttempts = 3
	cfg.Viewer.SessionRetry.InitialDelay = 500 * time.Millisecond
	cfg.Viewer.SessionRetry.MaxDelay = 5 * time.Second

	cfg.Telemetry.StatsPerSecond = 1
	cfg.Telemetry.CandidatesPerSecond = 10
	cfg.Telemetry.Burst = 20

	cfg.Monitoring.PrometheusEnabled = true

	cfg.Tracing.Enabled = false
	cfg.Tracing.JaegerURL = "http://localhost:14268/api/traces"
	cfg.Tracing.SampleRate = 1.0

	cfg.Logging.Level = "info"
	cfg.Logging.Format = "json"

	cfg.Redis.Enabled = false
	cfg.Redis.Address = "localhost:6379"
	cfg.Redis.DB = 0
	cfg.Redis.PoolSize = 10

	return cfg
}

func (c *Config) applyEnvOverrides() {
	if addr := os.Getenv("SKYLINK_SERVER_ADDRESS"); addr != "" {
		c.Server.Address = addr
	}
	if url := os.Getenv("SKYLINK_BACKEND_URL"); url != "" {
		c.Backend.BaseURL = url
	}
	if url := os.Getenv("SKYLINK_PUSH_URL"); url != "" {
		c.Backend.PushURL = url
	}
	if token := os.Getenv("SKYLINK_AUTH_TOKEN"); token != "" {
		c.Backend.AuthToken = token
	}
	if level := os.Getenv("SKYLINK_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
}
