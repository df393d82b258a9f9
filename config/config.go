package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"
)

const (
	DefaultAddr            = "127.0.0.1:4221"
	DefaultMaxBodySize     = 2 * 1024 * 1024
	DefaultShutdownTimeout = 10 * time.Second
	DefaultServiceName     = "httpd"
)

type Config struct {
	// Directory is the root of the file store. Empty means the working directory.
	Directory string
	Addr      string

	MaxConns        int
	MaxBodySize     int
	ReadTimeout     time.Duration
	ShutdownTimeout time.Duration

	LogLevel slog.Level

	Telemetry Telemetry
}

type Telemetry struct {
	Enabled     bool
	ServiceName string
}

// Load reads flags from args, falling back to environment variables looked
// up through getenv and then to defaults. Flags win over the environment.
func Load(args []string, getenv func(string) string) (Config, error) {
	if getenv == nil {
		getenv = func(string) string { return "" }
	}

	cfg := Config{
		Addr:            DefaultAddr,
		MaxBodySize:     DefaultMaxBodySize,
		ShutdownTimeout: DefaultShutdownTimeout,
		LogLevel:        slog.LevelInfo,
		Telemetry: Telemetry{
			ServiceName: DefaultServiceName,
		},
	}

	if err := cfg.fromEnv(getenv); err != nil {
		return Config{}, err
	}

	flags := flag.NewFlagSet("httpd", flag.ContinueOnError)
	flags.SetOutput(io.Discard)

	flags.StringVar(&cfg.Directory, "directory", cfg.Directory, "root directory of the file store")
	flags.StringVar(&cfg.Addr, "addr", cfg.Addr, "address to listen on")
	flags.IntVar(&cfg.MaxConns, "max-conns", cfg.MaxConns, "maximum concurrent connections, 0 for no limit")
	flags.IntVar(&cfg.MaxBodySize, "max-body", cfg.MaxBodySize, "maximum request body in bytes, 0 for no limit")
	flags.DurationVar(&cfg.ReadTimeout, "read-timeout", cfg.ReadTimeout, "time allowed to receive each request, 0 to wait forever")
	flags.DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout", cfg.ShutdownTimeout, "time allowed for in-flight requests on shutdown")
	flags.TextVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (debug, info, warn, error)")
	flags.BoolVar(&cfg.Telemetry.Enabled, "otel", cfg.Telemetry.Enabled, "export traces, metrics and logs over OTLP")
	flags.StringVar(&cfg.Telemetry.ServiceName, "service-name", cfg.Telemetry.ServiceName, "service name reported to OpenTelemetry")

	if err := flags.Parse(args); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if flags.NArg() > 0 {
		return Config{}, fmt.Errorf("config: unexpected argument %q", flags.Arg(0))
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (cfg *Config) fromEnv(getenv func(string) string) error {
	var errs []error

	if v := getenv("HTTPD_DIRECTORY"); v != "" {
		cfg.Directory = v
	}
	if v := getenv("HTTPD_ADDR"); v != "" {
		cfg.Addr = v
	}
	if v := getenv("HTTPD_MAX_CONNS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("config: HTTPD_MAX_CONNS: %w", err))
		}
		cfg.MaxConns = n
	}
	if v := getenv("HTTPD_MAX_BODY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("config: HTTPD_MAX_BODY: %w", err))
		}
		cfg.MaxBodySize = n
	}
	if v := getenv("HTTPD_READ_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("config: HTTPD_READ_TIMEOUT: %w", err))
		}
		cfg.ReadTimeout = d
	}
	if v := getenv("HTTPD_LOG_LEVEL"); v != "" {
		if err := cfg.LogLevel.UnmarshalText([]byte(v)); err != nil {
			errs = append(errs, fmt.Errorf("config: HTTPD_LOG_LEVEL: %w", err))
		}
	}
	if v := getenv("HTTPD_OTEL"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("config: HTTPD_OTEL: %w", err))
		}
		cfg.Telemetry.Enabled = b
	}
	if v := getenv("OTEL_SERVICE_NAME"); v != "" {
		cfg.Telemetry.ServiceName = v
	}

	return errors.Join(errs...)
}

func (cfg *Config) validate() error {
	var errs []error

	if cfg.Addr == "" {
		errs = append(errs, errors.New("config: listen address is empty"))
	}
	if cfg.MaxConns < 0 {
		errs = append(errs, errors.New("config: max-conns must not be negative"))
	}
	if cfg.MaxBodySize < 0 {
		errs = append(errs, errors.New("config: max-body must not be negative"))
	}
	if cfg.ReadTimeout < 0 {
		errs = append(errs, errors.New("config: read-timeout must not be negative"))
	}
	if cfg.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("config: shutdown-timeout must be positive"))
	}

	return errors.Join(errs...)
}
