package config

import (
	"log"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	defaultTimezone = "Europe/Amsterdam"
	configPathEnv   = "WASTE_REMINDER_CONFIG"
	postalCodeEnv   = "POSTAL_CODE"
	houseNumberEnv  = "NUMBER"
	strategyEnv     = "WASTE_STRATEGY"
	dbDriverEnv     = "DATABASE_DRIVER"
	dbDSNEnv        = "DATABASE_DSN"
	listenAddrEnv   = "LISTEN_ADDR"
	logLevelEnv     = "LOG_LEVEL"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging   LoggingConfig   `yaml:"logging"`
	Address   AddressConfig   `yaml:"address"`
	Source    SourceConfig    `yaml:"source"`
	Database  DatabaseConfig  `yaml:"database"`
	Server    ServerConfig    `yaml:"server"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
}

// LoggingConfig selects slog level and handler.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// AddressConfig is the single household the service tracks.
type AddressConfig struct {
	PostalCode  string `yaml:"postalCode"`
	HouseNumber int    `yaml:"houseNumber"`
}

// SourceConfig picks the acquisition strategy and its upstream endpoints.
type SourceConfig struct {
	Strategy          string         `yaml:"strategy"`
	BaseURL           string         `yaml:"baseUrl"`
	LookupURL         string         `yaml:"lookupUrl"`
	FeedURL           string         `yaml:"feedUrl"`
	UserAgent         string         `yaml:"userAgent"`
	Timeout           time.Duration  `yaml:"timeout"`
	RequestsPerSecond float64        `yaml:"requestsPerSecond"`
	YearRollover      int            `yaml:"yearRollover"`
	CategoryCodes     map[int]string `yaml:"categoryCodes"`
}

// DatabaseConfig describes the SQL store (sqlite3 or postgres).
type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// ServerConfig holds the HTTP listen address.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// SchedulerConfig defines how often the calendar is refreshed.
type SchedulerConfig struct {
	Interval time.Duration  `yaml:"interval"`
	Timezone string         `yaml:"timezone"`
	location *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, err := time.LoadLocation(defaultTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Load reads .env, the YAML configuration (if present) and applies environment overrides.
func Load() Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("config: cannot load .env: %v", err)
	}

	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else if fileCfg, err := Parse(raw); err != nil {
			log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
		} else {
			cfg = mergeConfig(cfg, fileCfg)
		}
	}

	cfg.applyEnvOverrides()
	cfg.Address.PostalCode = NormalizePostalCode(cfg.Address.PostalCode)
	cfg.bindTimezone()
	return cfg
}

// NormalizePostalCode upper-cases a postal code and drops whitespace, so
// "1826 aa" and "1826AA" address the same upstream calendar.
func NormalizePostalCode(raw string) string {
	return strings.ToUpper(strings.Join(strings.Fields(raw), ""))
}

// Parse decodes a YAML document without applying defaults.
func Parse(raw []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, errors.Wrap(err, "decode yaml")
	}
	return cfg, nil
}

// Validate checks the settings an acquisition run cannot do without.
func (c Config) Validate(strategies []string) error {
	if strings.TrimSpace(c.Address.PostalCode) == "" {
		return errors.WithHintf(errors.New("postal code is empty"), "set %s or address.postalCode", postalCodeEnv)
	}
	if c.Address.HouseNumber <= 0 {
		return errors.WithHintf(errors.Newf("house number %d is not positive", c.Address.HouseNumber),
			"set %s or address.houseNumber", houseNumberEnv)
	}
	if len(strategies) > 0 && !slices.Contains(strategies, c.Source.Strategy) {
		return errors.Newf("unknown strategy %q (available: %s)", c.Source.Strategy, strings.Join(strategies, ", "))
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(postalCodeEnv); v != "" {
		c.Address.PostalCode = v
	}

	if v := os.Getenv(houseNumberEnv); v != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			log.Printf("config: %s=%q is not a number, ignoring", houseNumberEnv, v)
		} else {
			c.Address.HouseNumber = n
		}
	}

	if v := os.Getenv(strategyEnv); v != "" {
		c.Source.Strategy = v
	}

	if v := os.Getenv(dbDriverEnv); v != "" {
		c.Database.Driver = v
	}

	if v := os.Getenv(dbDSNEnv); v != "" {
		c.Database.DSN = v
	}

	if v := os.Getenv(listenAddrEnv); v != "" {
		c.Server.Addr = v
	}

	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}
}

func (c *Config) bindTimezone() {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to UTC", tz)
		loc = time.UTC
	}
	c.Scheduler.location = loc
}

func mergeConfig(base, override Config) Config {
	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}
	if override.Logging.Format != "" {
		base.Logging.Format = override.Logging.Format
	}

	if override.Address.PostalCode != "" {
		base.Address.PostalCode = override.Address.PostalCode
	}
	if override.Address.HouseNumber != 0 {
		base.Address.HouseNumber = override.Address.HouseNumber
	}

	if override.Source.Strategy != "" {
		base.Source.Strategy = override.Source.Strategy
	}
	if override.Source.BaseURL != "" {
		base.Source.BaseURL = override.Source.BaseURL
	}
	if override.Source.LookupURL != "" {
		base.Source.LookupURL = override.Source.LookupURL
	}
	if override.Source.FeedURL != "" {
		base.Source.FeedURL = override.Source.FeedURL
	}
	if override.Source.UserAgent != "" {
		base.Source.UserAgent = override.Source.UserAgent
	}
	if override.Source.Timeout > 0 {
		base.Source.Timeout = override.Source.Timeout
	}
	if override.Source.RequestsPerSecond != 0 {
		base.Source.RequestsPerSecond = override.Source.RequestsPerSecond
	}
	if override.Source.YearRollover != 0 {
		base.Source.YearRollover = override.Source.YearRollover
	}
	if len(override.Source.CategoryCodes) > 0 {
		base.Source.CategoryCodes = override.Source.CategoryCodes
	}

	if override.Database.Driver != "" {
		base.Database.Driver = override.Database.Driver
	}
	if override.Database.DSN != "" {
		base.Database.DSN = override.Database.DSN
	}

	if override.Server.Addr != "" {
		base.Server.Addr = override.Server.Addr
	}

	if override.Scheduler.Interval > 0 {
		base.Scheduler.Interval = override.Scheduler.Interval
	}
	if override.Scheduler.Timezone != "" {
		base.Scheduler.Timezone = override.Scheduler.Timezone
	}

	return base
}

func defaultConfig() Config {
	return Config{
		Logging: LoggingConfig{Level: "info", Format: "text"},
		Source: SourceConfig{
			Strategy:          "text-regex",
			BaseURL:           "https://afvalstoffendienstkalender.nl",
			LookupURL:         "https://inzamelkalender.hvcgroep.nl/rest/adressen",
			FeedURL:           "https://inzamelkalender.hvcgroep.nl/rest/adressen",
			UserAgent:         "WasteReminder/1.0",
			Timeout:           20 * time.Second,
			RequestsPerSecond: 1,
		},
		Database:  DatabaseConfig{Driver: "sqlite3", DSN: "database.db"},
		Server:    ServerConfig{Addr: ":8000"},
		Scheduler: SchedulerConfig{Interval: 24 * time.Hour, Timezone: defaultTimezone},
	}
}
