// Package config loads the load test settings from, in increasing priority,
// built-in defaults, an optional JSON file, the environment (and a .env file)
// and command line flags.
package config

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	env "github.com/caarlos0/env/v6"
	validator "github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/patric-chuzhbe/urlshrtload/internal/logger"
)

// Config holds every setting of a load test run.
type Config struct {
	ConfigPath string `env:"CONFIG"`

	Host           string        `env:"HOST" validate:"required,url"`
	Profile        string        `env:"PROFILE" validate:"required"`
	Users          int           `env:"USERS" validate:"min=1"`
	SpawnRate      float64       `env:"SPAWN_RATE" validate:"gt=0"`
	RunTime        time.Duration `env:"RUN_TIME" validate:"min=0"`
	WaitUnit       time.Duration `env:"WAIT_UNIT" validate:"gt=0"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" validate:"gt=0"`
	StopTimeout    time.Duration `env:"STOP_TIMEOUT" validate:"gt=0"`
	AttackRate     int           `env:"ATTACK_RATE" validate:"min=0"`
	LogLevel       string        `env:"LOG_LEVEL" validate:"loglevel"`

	StatusAddr       string `env:"STATUS_ADDR" validate:"omitempty,hostname_port"`
	ReportFile       string `env:"REPORT_FILE" validate:"omitempty,filepath"`
	PlotFile         string `env:"PLOT_FILE" validate:"omitempty,filepath"`
	DatabaseDSN      string `env:"DATABASE_DSN"`
	ElasticsearchURL string `env:"ES_URL" validate:"omitempty,url"`

	ThresholdP95         time.Duration `env:"THRESHOLD_P95" validate:"min=0"`
	ThresholdSuccessRate float64       `env:"THRESHOLD_SUCCESS_RATE" validate:"min=0,max=1"`
}

// jsonConfig mirrors Config in the JSON file; durations are written the way
// time.ParseDuration reads them ("30s", "500ms").
type jsonConfig struct {
	Host                 *string  `json:"host"`
	Profile              *string  `json:"profile"`
	Users                *int     `json:"users"`
	SpawnRate            *float64 `json:"spawn_rate"`
	RunTime              *string  `json:"run_time"`
	WaitUnit             *string  `json:"wait_unit"`
	RequestTimeout       *string  `json:"request_timeout"`
	StopTimeout          *string  `json:"stop_timeout"`
	AttackRate           *int     `json:"attack_rate"`
	LogLevel             *string  `json:"log_level"`
	StatusAddr           *string  `json:"status_addr"`
	ReportFile           *string  `json:"report_file"`
	PlotFile             *string  `json:"plot_file"`
	DatabaseDSN          *string  `json:"database_dsn"`
	ElasticsearchURL     *string  `json:"es_url"`
	ThresholdP95         *string  `json:"threshold_p95"`
	ThresholdSuccessRate *float64 `json:"threshold_success_rate"`
}

var defaultConfig = Config{
	Host:           "http://localhost:3001",
	Profile:        "scenario",
	Users:          1,
	SpawnRate:      1,
	WaitUnit:       time.Second,
	RequestTimeout: 10 * time.Second,
	StopTimeout:    10 * time.Second,
	LogLevel:       "info",
}

// InitOption customizes New.
type InitOption func(*initOptions)

type initOptions struct {
	disableFlagsParsing bool
	args                []string
}

// WithDisableFlagsParsing skips command line parsing, which tests need since
// the test binary has its own flags.
func WithDisableFlagsParsing(disableFlagsParsing bool) InitOption {
	return func(options *initOptions) {
		options.disableFlagsParsing = disableFlagsParsing
	}
}

// WithArgs parses args instead of os.Args[1:].
func WithArgs(args []string) InitOption {
	return func(options *initOptions) {
		options.args = args
	}
}

func validateFilePath(fieldLevel validator.FieldLevel) bool {
	path := fieldLevel.Field().String()
	_, err := os.Stat(path)

	return err == nil || os.IsNotExist(err)
}

func validateLogLevel(fieldLevel validator.FieldLevel) bool {
	allowedLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
		"fatal": true,
	}

	return allowedLogLevels[fieldLevel.Field().String()]
}

func (c *Config) validate() error {
	validate := validator.New()

	err := validate.RegisterValidation("loglevel", validateLogLevel)
	if err != nil {
		return err
	}

	err = validate.RegisterValidation("filepath", validateFilePath)
	if err != nil {
		return err
	}

	return validate.Struct(c)
}

func applyDefaults(values *Config, defaults Config) {
	configPath := values.ConfigPath
	*values = defaults
	values.ConfigPath = configPath
}

func parseDuration(dst *time.Duration, value *string, name string) error {
	if value == nil {
		return nil
	}
	d, err := time.ParseDuration(*value)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	*dst = d

	return nil
}

func (c *Config) applyJSON(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}

	var j jsonConfig
	if err := json.Unmarshal(data, &j); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}

	setString := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	setString(&c.Host, j.Host)
	setString(&c.Profile, j.Profile)
	setString(&c.LogLevel, j.LogLevel)
	setString(&c.StatusAddr, j.StatusAddr)
	setString(&c.ReportFile, j.ReportFile)
	setString(&c.PlotFile, j.PlotFile)
	setString(&c.DatabaseDSN, j.DatabaseDSN)
	setString(&c.ElasticsearchURL, j.ElasticsearchURL)
	if j.Users != nil {
		c.Users = *j.Users
	}
	if j.SpawnRate != nil {
		c.SpawnRate = *j.SpawnRate
	}
	if j.AttackRate != nil {
		c.AttackRate = *j.AttackRate
	}
	if j.ThresholdSuccessRate != nil {
		c.ThresholdSuccessRate = *j.ThresholdSuccessRate
	}

	for _, d := range []struct {
		dst   *time.Duration
		value *string
		name  string
	}{
		{&c.RunTime, j.RunTime, "run_time"},
		{&c.WaitUnit, j.WaitUnit, "wait_unit"},
		{&c.RequestTimeout, j.RequestTimeout, "request_timeout"},
		{&c.StopTimeout, j.StopTimeout, "stop_timeout"},
		{&c.ThresholdP95, j.ThresholdP95, "threshold_p95"},
	} {
		if err := parseDuration(d.dst, d.value, d.name); err != nil {
			return err
		}
	}

	return nil
}

// configPathFromArgs finds -c/--c before the flag set is built, because the
// JSON file sits below the flags in priority.
func configPathFromArgs(args []string) string {
	for i, arg := range args {
		name := strings.TrimLeft(arg, "-")
		if name == arg {
			continue
		}
		if name == "c" && i+1 < len(args) {
			return args[i+1]
		}
		if strings.HasPrefix(name, "c=") {
			return strings.TrimPrefix(name, "c=")
		}
	}

	return ""
}

func (c *Config) bindFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.ConfigPath, "c", c.ConfigPath, "JSON config file")
	fs.StringVar(&c.Host, "H", c.Host, "base URL of the shortener under test")
	fs.StringVar(&c.Profile, "p", c.Profile, "load profile")
	fs.IntVar(&c.Users, "u", c.Users, "number of virtual users")
	fs.Float64Var(&c.SpawnRate, "r", c.SpawnRate, "virtual users spawned per second")
	fs.DurationVar(&c.RunTime, "t", c.RunTime, "stop after this duration, 0 runs until interrupted")
	fs.DurationVar(&c.WaitUnit, "w", c.WaitUnit, "length of one wait unit between tasks")
	fs.DurationVar(&c.RequestTimeout, "request-timeout", c.RequestTimeout, "HTTP request timeout")
	fs.DurationVar(&c.StopTimeout, "stop-timeout", c.StopTimeout, "time allowed to virtual users to stop")
	fs.IntVar(&c.AttackRate, "attack-rate", c.AttackRate, "hit the fixed endpoint at this many requests per second instead of running virtual users")
	fs.StringVar(&c.LogLevel, "l", c.LogLevel, "logger level")
	fs.StringVar(&c.StatusAddr, "s", c.StatusAddr, "address of the status server, empty disables it")
	fs.StringVar(&c.ReportFile, "o", c.ReportFile, "JSON report file")
	fs.StringVar(&c.PlotFile, "plot", c.PlotFile, "PNG latency plot file")
	fs.StringVar(&c.DatabaseDSN, "d", c.DatabaseDSN, "PostgreSQL DSN to store reports in")
	fs.StringVar(&c.ElasticsearchURL, "es", c.ElasticsearchURL, "Elasticsearch URL to index reports in")
	fs.DurationVar(&c.ThresholdP95, "threshold-p95", c.ThresholdP95, "fail the run when a p95 latency exceeds this, 0 disables")
	fs.Float64Var(&c.ThresholdSuccessRate, "threshold-success-rate", c.ThresholdSuccessRate, "fail the run when the check success ratio falls below this, 0 disables")
}

// New builds the run configuration.
func New(optionsProto ...InitOption) (*Config, error) {
	options := &initOptions{
		disableFlagsParsing: false,
	}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}
	args := options.args
	if args == nil && len(os.Args) > 1 {
		args = os.Args[1:]
	}

	err := godotenv.Load()
	if err != nil {
		logger.Log.Debugf("Unable to load .env file: %v", err)
	}

	cfg := &Config{}
	applyDefaults(cfg, defaultConfig)

	cfg.ConfigPath = os.Getenv("CONFIG")
	if !options.disableFlagsParsing {
		if path := configPathFromArgs(args); path != "" {
			cfg.ConfigPath = path
		}
	}
	if cfg.ConfigPath != "" {
		if err := cfg.applyJSON(cfg.ConfigPath); err != nil {
			return nil, err
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	if !options.disableFlagsParsing {
		fs := flag.NewFlagSet("shortload", flag.ContinueOnError)
		cfg.bindFlags(fs)
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}
