package cmd

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"relay/internal/adapters/out/postgres"
)

type Config struct {
	HTTPPort string

	DBHost          string
	DBPort          string
	DBUser          string
	DBPassword      string
	DBName          string
	DBSslMode       string
	DBNotifyChannel string

	LocationMinInterval time.Duration
	LivenessTimeout     time.Duration
	SweepSchedule       string
	OrderRetention      time.Duration
	OutboundBuffer      int
	MalformedLimit      int

	JoinTokenSecret string
	JoinTokenTTL    time.Duration
}

// NewConfig reads the relay settings through getenv. Unset values fall back to
// their defaults; values that do not parse are all reported together.
func NewConfig(getenv func(string) string) (Config, error) {
	p := parser{getenv: getenv}
	cfg := Config{
		HTTPPort:            p.lookup("HTTP_PORT", "8080"),
		DBHost:              p.lookup("DB_HOST", ""),
		DBPort:              p.lookup("DB_PORT", "5432"),
		DBUser:              p.lookup("DB_USER", ""),
		DBPassword:          p.lookup("DB_PASSWORD", ""),
		DBName:              p.lookup("DB_NAME", ""),
		DBSslMode:           p.lookup("DB_SSLMODE", "disable"),
		DBNotifyChannel:     p.lookup("DB_NOTIFY_CHANNEL", ""),
		LocationMinInterval: p.duration("LOCATION_MIN_INTERVAL", time.Second),
		LivenessTimeout:     p.duration("LIVENESS_TIMEOUT", time.Minute),
		SweepSchedule:       p.lookup("SWEEP_SCHEDULE", "@every 10s"),
		OrderRetention:      p.duration("ORDER_RETENTION", time.Hour),
		OutboundBuffer:      p.positiveInt("OUTBOUND_BUFFER", 64),
		MalformedLimit:      p.positiveInt("MALFORMED_LIMIT", 5),
		JoinTokenSecret:     p.lookup("JOIN_TOKEN_SECRET", ""),
		JoinTokenTTL:        p.duration("JOIN_TOKEN_TTL", 12*time.Hour),
	}
	if err := errors.Join(p.errs...); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// DatabaseEnabled reports whether the relay should read from postgres. Without
// a database the relay runs cache-only.
func (c Config) DatabaseEnabled() bool {
	return c.DBHost != ""
}

func (c Config) Database() postgres.ConnectionConfig {
	return postgres.ConnectionConfig{
		Host:     c.DBHost,
		Port:     c.DBPort,
		User:     c.DBUser,
		Password: c.DBPassword,
		Name:     c.DBName,
		SslMode:  c.DBSslMode,
	}
}

type parser struct {
	getenv func(string) string
	errs   []error
}

func (p *parser) lookup(key, fallback string) string {
	if v := p.getenv(key); v != "" {
		return v
	}
	return fallback
}

func (p *parser) duration(key string, fallback time.Duration) time.Duration {
	v := p.getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		p.errs = append(p.errs, fmt.Errorf("%s: %q is not a positive duration", key, v))
		return fallback
	}
	return d
}

func (p *parser) positiveInt(key string, fallback int) int {
	v := p.getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		p.errs = append(p.errs, fmt.Errorf("%s: %q is not a positive integer", key, v))
		return fallback
	}
	return n
}
