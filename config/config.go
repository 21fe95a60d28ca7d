// Package config loads service settings from the environment, optionally
// seeded from a .env file.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

type Config struct {
	Addr             string
	DatabasePath     string
	DirectoryDSN     string
	Location         *time.Location
	LogLevel         logrus.Level
	LogFormat        string // text or json
	RulesFile        string
	SchedulerEnabled bool
	AllowedOrigins   []string
}

// Load reads .env when present, then the environment. Every invalid value is
// reported in the returned error; the Config is still filled with defaults
// for the rest.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Addr:         getEnv("APP_ADDR", ":8080"),
		DatabasePath: getEnv("DATABASE_PATH", "attendance.db"),
		LogFormat:    strings.ToLower(getEnv("LOG_FORMAT", "text")),
		RulesFile:    os.Getenv("RULES_FILE"),
		Location:     time.Local,
		LogLevel:     logrus.InfoLevel,
	}
	cfg.DirectoryDSN = getEnv("DIRECTORY_DSN", cfg.DatabasePath)
	cfg.AllowedOrigins = splitList(getEnv("CORS_ALLOWED_ORIGINS", "*"))

	invalid := []string{}

	if tz := os.Getenv("APP_TIMEZONE"); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			invalid = append(invalid, "APP_TIMEZONE="+tz)
		} else {
			cfg.Location = loc
		}
	}

	if lvl := os.Getenv("LOG_LEVEL"); lvl != "" {
		parsed, err := logrus.ParseLevel(lvl)
		if err != nil {
			invalid = append(invalid, "LOG_LEVEL="+lvl)
		} else {
			cfg.LogLevel = parsed
		}
	}

	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		invalid = append(invalid, "LOG_FORMAT="+cfg.LogFormat)
		cfg.LogFormat = "text"
	}

	enabled, ok := getEnvBool("SCHEDULER_ENABLED", true)
	if !ok {
		invalid = append(invalid, "SCHEDULER_ENABLED="+os.Getenv("SCHEDULER_ENABLED"))
	}
	cfg.SchedulerEnabled = enabled

	if len(invalid) > 0 {
		return cfg, errors.New("invalid env: " + strings.Join(invalid, ", "))
	}
	return cfg, nil
}

// NewLogger builds the process logger from the config.
func (c Config) NewLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(c.LogLevel)
	if c.LogFormat == "json" {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return l
}

func getEnv(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

// getEnvBool reports ok=false when the variable is set but unparsable.
func getEnvBool(key string, fallback bool) (bool, bool) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, true
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback, false
	}
	return v, true
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
