// Package config loads runtime settings from the environment.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultRoster is used when neither ROSTER nor ROSTER_FILE is set.
var DefaultRoster = []string{"Shubham Jana", "Krishna Kumar", "Suvajit Jana"}

// Config holds every setting the server and CLI need.
type Config struct {
	// HTTP Server
	Port     int
	AppTitle string

	// Storage
	DataBackend string
	DBPath      string

	// Roster is the fixed, ordered list of group members.
	Roster []string

	// Auth
	JWTSecret     string
	TokenDuration time.Duration

	// AMQP settlement events (disabled when AMQPURL is empty)
	AMQPURL        string
	AMQPExchange   string
	AMQPRoutingKey string

	// Logging
	LogLevel  string
	LogFormat string

	// CurrencyLabel is appended to amounts in text output.
	CurrencyLabel string
}

// rosterFile is the YAML layout of ROSTER_FILE.
type rosterFile struct {
	Members []string `yaml:"members"`
}

// Load reads a .env file if present, then the environment.
func Load() (*Config, error) {
	// .env is optional
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from the given lookup function.
func FromEnv(getenv func(string) string) (*Config, error) {
	get := func(key, fallback string) string {
		if v := getenv(key); v != "" {
			return v
		}
		return fallback
	}

	var errs []error

	port, err := strconv.Atoi(get("PORT", "8080"))
	if err != nil {
		errs = append(errs, fmt.Errorf("invalid PORT %q: must be a number", getenv("PORT")))
	}

	tokenDuration, err := time.ParseDuration(get("TOKEN_DURATION", "24h"))
	if err != nil {
		errs = append(errs, fmt.Errorf("invalid TOKEN_DURATION %q: %v", getenv("TOKEN_DURATION"), err))
	}

	roster := DefaultRoster
	if path := getenv("ROSTER_FILE"); path != "" {
		members, err := LoadRosterFile(path)
		if err != nil {
			errs = append(errs, err)
		} else {
			roster = members
		}
	} else if list := getenv("ROSTER"); list != "" {
		roster = ParseRoster(list)
	}

	cfg := &Config{
		Port:           port,
		AppTitle:       get("APP_TITLE", "Shared Expenses"),
		DataBackend:    get("DATA_BACKEND", "sqlite"),
		DBPath:         get("DB_PATH", "./data/ledger.db"),
		Roster:         append([]string(nil), roster...),
		JWTSecret:      getenv("JWT_SECRET"),
		TokenDuration:  tokenDuration,
		AMQPURL:        getenv("AMQP_URL"),
		AMQPExchange:   get("AMQP_EXCHANGE", "splitledger"),
		AMQPRoutingKey: get("AMQP_ROUTING_KEY", "settlement.updated"),
		LogLevel:       get("LOG_LEVEL", "info"),
		LogFormat:      get("LOG_FORMAT", "text"),
		CurrencyLabel:  get("CURRENCY_LABEL", "Taka"),
	}

	errs = append(errs, cfg.Validate())
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ParseRoster splits a comma separated member list.
func ParseRoster(list string) []string {
	var members []string
	for _, m := range strings.Split(list, ",") {
		if m = strings.TrimSpace(m); m != "" {
			members = append(members, m)
		}
	}
	return members
}

// LoadRosterFile reads the member list from a YAML file:
//
//	members:
//	  - Shubham Jana
//	  - Krishna Kumar
func LoadRosterFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read roster file: %w", err)
	}
	var f rosterFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse roster file %s: %w", path, err)
	}
	return f.Members, nil
}

// Validate reports every configuration problem at once.
func (c *Config) Validate() error {
	var errs []error

	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid port %d: must be between 1 and 65535", c.Port))
	}

	switch c.DataBackend {
	case "memory":
	case "sqlite":
		if c.DBPath == "" {
			errs = append(errs, errors.New("DB_PATH cannot be empty when using sqlite backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("invalid data backend %q: must be one of [memory sqlite]", c.DataBackend))
	}

	if len(c.Roster) == 0 {
		errs = append(errs, errors.New("roster must have at least one member"))
	}
	seen := make(map[string]bool, len(c.Roster))
	for _, m := range c.Roster {
		if strings.TrimSpace(m) == "" {
			errs = append(errs, errors.New("roster member name cannot be blank"))
			continue
		}
		if seen[m] {
			errs = append(errs, fmt.Errorf("duplicate roster member %q", m))
		}
		seen[m] = true
	}

	if c.TokenDuration <= 0 {
		errs = append(errs, fmt.Errorf("invalid token duration %s: must be positive", c.TokenDuration))
	}
	if c.JWTSecret != "" && len(c.JWTSecret) < 16 {
		errs = append(errs, errors.New("JWT_SECRET must be at least 16 characters"))
	}

	if c.AMQPURL != "" {
		if u, err := url.Parse(c.AMQPURL); err != nil {
			errs = append(errs, fmt.Errorf("invalid AMQP URL: %v", err))
		} else if u.Scheme != "amqp" && u.Scheme != "amqps" {
			errs = append(errs, fmt.Errorf("invalid AMQP URL scheme %q: must be 'amqp' or 'amqps'", u.Scheme))
		}
		if c.AMQPExchange == "" {
			errs = append(errs, errors.New("AMQP exchange name cannot be empty when AMQP URL is provided"))
		}
	}

	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("invalid log format %q: must be 'text' or 'json'", c.LogFormat))
	}

	return errors.Join(errs...)
}

// AuthEnabled reports whether mutating RPCs require a JWT.
func (c *Config) AuthEnabled() bool {
	return c.JWTSecret != ""
}

// Addr returns the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}
