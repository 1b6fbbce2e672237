package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/spf13/viper"

	"github.com/angeloszaimis/channel-router/internal/channel"
	"github.com/angeloszaimis/channel-router/internal/health"
	"github.com/angeloszaimis/channel-router/internal/httpserver"
	"github.com/angeloszaimis/channel-router/internal/probe"
)

const (
	EnvDev     = "dev"
	EnvStaging = "staging"
	EnvProd    = "prod"
)

const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

type ServerConfig struct {
	Address         string `mapstructure:"address"`
	Environment     string `mapstructure:"environment"`
	ReadTimeout     string `mapstructure:"read_timeout"`
	WriteTimeout    string `mapstructure:"write_timeout"`
	IdleTimeout     string `mapstructure:"idle_timeout"`
	ShutdownTimeout string `mapstructure:"shutdown_timeout"`
}

type LoggingConfig struct {
	Level     string `mapstructure:"level"`
	AddSource bool   `mapstructure:"add_source"`
}

type HealthConfig struct {
	FailureThreshold int     `mapstructure:"failure_threshold"`
	ProbeWindow      int     `mapstructure:"probe_window"`
	InitialFreeze    string  `mapstructure:"initial_freeze"`
	MaxFreeze        string  `mapstructure:"max_freeze"`
	FreezeMultiplier float64 `mapstructure:"freeze_multiplier"`
}

type ProbeConfig struct {
	Timeout     string `mapstructure:"timeout"`
	MinTimeout  string `mapstructure:"min_timeout"`
	MaxTimeout  string `mapstructure:"max_timeout"`
	CacheTTL    string `mapstructure:"cache_ttl"`
	Concurrency int    `mapstructure:"concurrency"`
	// Interval enables the background latency monitor; "0s" disables it.
	Interval string `mapstructure:"interval"`
}

type MetricsConfig struct {
	BufferSize int `mapstructure:"buffer_size"`
}

type Config struct {
	Server   ServerConfig      `mapstructure:"server"`
	Logging  LoggingConfig     `mapstructure:"logging"`
	Health   HealthConfig      `mapstructure:"health"`
	Probe    ProbeConfig       `mapstructure:"probe"`
	Metrics  MetricsConfig     `mapstructure:"metrics"`
	Channels []channel.Channel `mapstructure:"channels"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.environment", EnvDev)
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.read_timeout", httpserver.DefaultReadTimeout.String())
	v.SetDefault("server.write_timeout", httpserver.DefaultWriteTimeout.String())
	v.SetDefault("server.idle_timeout", httpserver.DefaultIdleTimeout.String())
	v.SetDefault("server.shutdown_timeout", httpserver.DefaultShutdownTimeout.String())
	v.SetDefault("logging.level", LogLevelInfo)
	v.SetDefault("logging.add_source", false)
	v.SetDefault("health.failure_threshold", health.DefaultFailureThreshold)
	v.SetDefault("health.probe_window", health.DefaultProbeWindow)
	v.SetDefault("health.initial_freeze", health.DefaultInitialFreeze.String())
	v.SetDefault("health.max_freeze", health.DefaultMaxFreeze.String())
	v.SetDefault("health.freeze_multiplier", health.DefaultFreezeMultiplier)
	v.SetDefault("probe.timeout", probe.DefaultTimeout.String())
	v.SetDefault("probe.min_timeout", probe.MinTimeout.String())
	v.SetDefault("probe.max_timeout", probe.MaxTimeout.String())
	v.SetDefault("probe.cache_ttl", probe.DefaultCacheTTL.String())
	v.SetDefault("probe.concurrency", 0)
	v.SetDefault("probe.interval", "0s")
	v.SetDefault("metrics.buffer_size", 1000)
}

// Load reads configuration from configFile, or from config.yaml in ./config
// or the working directory when configFile is empty. A missing default file
// is not an error.
func Load(configFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			slog.Error("failed to read config file", slog.String("error", err.Error()))
			return nil, fmt.Errorf("read config: %w", err)
		}
		slog.Warn("config file not found, using defaults and environment variables")
	} else {
		slog.Info("loaded config file", slog.String("file", v.ConfigFileUsed()))
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		slog.Error("failed to unmarshal config", slog.String("error", err.Error()))
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Server,
			validation.Required,
			validation.By(func(value interface{}) error {
				sc, ok := value.(ServerConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a ServerConfig")
				}
				return validation.ValidateStruct(&sc,
					validation.Field(&sc.Environment,
						validation.Required,
						validation.In(EnvDev, EnvStaging, EnvProd),
					),
					validation.Field(&sc.Address,
						validation.Required,
						validation.By(validateHostPort),
					),
					validation.Field(&sc.ReadTimeout, validation.Required, validation.By(validatePositiveDuration)),
					validation.Field(&sc.WriteTimeout, validation.Required, validation.By(validatePositiveDuration)),
					validation.Field(&sc.IdleTimeout, validation.Required, validation.By(validatePositiveDuration)),
					validation.Field(&sc.ShutdownTimeout, validation.Required, validation.By(validatePositiveDuration)),
				)
			}),
		),
		validation.Field(&c.Logging,
			validation.Required,
			validation.By(func(value interface{}) error {
				lc, ok := value.(LoggingConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a LoggingConfig")
				}
				return validation.ValidateStruct(&lc,
					validation.Field(&lc.Level,
						validation.Required,
						validation.In(LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError),
					),
				)
			}),
		),
		validation.Field(&c.Health,
			validation.Required,
			validation.By(func(value interface{}) error {
				hc, ok := value.(HealthConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a HealthConfig")
				}
				return validation.ValidateStruct(&hc,
					validation.Field(&hc.FailureThreshold, validation.Required, validation.Min(1)),
					validation.Field(&hc.ProbeWindow, validation.Required, validation.Min(1)),
					validation.Field(&hc.InitialFreeze, validation.Required, validation.By(validatePositiveDuration)),
					validation.Field(&hc.MaxFreeze, validation.Required, validation.By(validatePositiveDuration)),
					validation.Field(&hc.FreezeMultiplier, validation.Required, validation.Min(1.0)),
				)
			}),
		),
		validation.Field(&c.Probe,
			validation.Required,
			validation.By(func(value interface{}) error {
				pc, ok := value.(ProbeConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a ProbeConfig")
				}
				return validation.ValidateStruct(&pc,
					validation.Field(&pc.Timeout, validation.Required, validation.By(validatePositiveDuration)),
					validation.Field(&pc.MinTimeout, validation.Required, validation.By(validatePositiveDuration)),
					validation.Field(&pc.MaxTimeout, validation.Required, validation.By(validatePositiveDuration)),
					validation.Field(&pc.CacheTTL, validation.Required, validation.By(validatePositiveDuration)),
					validation.Field(&pc.Concurrency, validation.Min(0)),
					validation.Field(&pc.Interval, validation.Required, validation.By(validateDuration)),
				)
			}),
		),
		validation.Field(&c.Metrics,
			validation.By(func(value interface{}) error {
				mc, ok := value.(MetricsConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a MetricsConfig")
				}
				return validation.ValidateStruct(&mc,
					validation.Field(&mc.BufferSize, validation.Required, validation.Min(1)),
				)
			}),
		),
		validation.Field(&c.Channels,
			validation.Each(validation.By(validateChannel)),
			validation.By(validateUniqueChannels),
		),
	)
}

// TrackerConfig converts the health section. Call it on a validated Config.
func (c *Config) TrackerConfig() health.Config {
	return health.Config{
		FailureThreshold: c.Health.FailureThreshold,
		ProbeWindow:      c.Health.ProbeWindow,
		InitialFreeze:    parseDuration(c.Health.InitialFreeze),
		MaxFreeze:        parseDuration(c.Health.MaxFreeze),
		FreezeMultiplier: c.Health.FreezeMultiplier,
	}.Normalize()
}

// ProberConfig converts the probe section. Call it on a validated Config.
func (c *Config) ProberConfig() probe.Config {
	return probe.Config{
		DefaultTimeout: parseDuration(c.Probe.Timeout),
		MinTimeout:     parseDuration(c.Probe.MinTimeout),
		MaxTimeout:     parseDuration(c.Probe.MaxTimeout),
		CacheTTL:       parseDuration(c.Probe.CacheTTL),
		Concurrency:    c.Probe.Concurrency,
	}.Normalize()
}

// MonitorInterval is the background probe period, zero when disabled.
func (c *Config) MonitorInterval() time.Duration {
	return parseDuration(c.Probe.Interval)
}

func (c *Config) ServerTimeouts() httpserver.Timeouts {
	return httpserver.Timeouts{
		Read:     parseDuration(c.Server.ReadTimeout),
		Write:    parseDuration(c.Server.WriteTimeout),
		Idle:     parseDuration(c.Server.IdleTimeout),
		Shutdown: parseDuration(c.Server.ShutdownTimeout),
	}
}

// ChannelList returns the configured channels with sources normalized.
func (c *Config) ChannelList() []channel.Channel {
	channels := make([]channel.Channel, len(c.Channels))
	for i, ch := range c.Channels {
		ch.Source = channel.NormalizeSource(ch.Source)
		ch.BaseURL = strings.TrimSpace(ch.BaseURL)
		channels[i] = ch
	}
	return channels
}

func parseDuration(s string) time.Duration {
	d, _ := time.ParseDuration(s)
	return d
}

func validateHostPort(value interface{}) error {
	addr, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return validation.NewError("validation_invalid_hostport", "must be in host:port format")
	}

	if port == "" {
		return validation.NewError("validation_invalid_port", "port cannot be empty")
	}

	if host != "" {
		if err := is.Host.Validate(host); err != nil {
			return validation.NewError("validation_invalid_host", "invalid host")
		}
	}

	return nil
}

func validateDuration(value interface{}) error {
	durationStr, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	d, err := time.ParseDuration(durationStr)
	if err != nil {
		return validation.NewError("validation_invalid_duration", "must be a valid duration (e.g., 2s, 5m, 1h)")
	}
	if d < 0 {
		return validation.NewError("validation_negative_duration", "must not be negative")
	}

	return nil
}

func validatePositiveDuration(value interface{}) error {
	if err := validateDuration(value); err != nil {
		return err
	}
	if d, _ := time.ParseDuration(value.(string)); d == 0 {
		return validation.NewError("validation_zero_duration", "must be greater than zero")
	}
	return nil
}

func validateBaseURL(value interface{}) error {
	baseURL, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	parsedURL, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return validation.NewError("validation_invalid_url", "must be a valid URL")
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return validation.NewError("validation_invalid_scheme", "URL must use http or https scheme")
	}

	if parsedURL.Host == "" {
		return validation.NewError("validation_missing_host", "URL must have a host")
	}

	return nil
}

func validateChannel(value interface{}) error {
	ch, ok := value.(channel.Channel)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a channel")
	}

	return validation.ValidateStruct(&ch,
		validation.Field(&ch.ID,
			validation.Required,
			validation.By(func(value interface{}) error {
				if strings.Contains(value.(string), "/") {
					return validation.NewError("validation_invalid_id", "must not contain '/'")
				}
				return nil
			}),
		),
		validation.Field(&ch.BaseURL,
			validation.Required,
			validation.By(validateBaseURL),
		),
	)
}

func validateUniqueChannels(value interface{}) error {
	channels, ok := value.([]channel.Channel)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a channel list")
	}

	seen := make(map[channel.Key]struct{}, len(channels))
	for _, ch := range channels {
		key := ch.Key()
		if _, dup := seen[key]; dup {
			return validation.NewError("validation_duplicate_channel",
				fmt.Sprintf("channel %s is configured more than once", key))
		}
		seen[key] = struct{}{}
	}
	return nil
}
