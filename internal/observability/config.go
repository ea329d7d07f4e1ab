package observability

import (
	"strings"

	"github.com/maguire-murphy/rev-ops-platform-sub000/internal/config"
)

// Config carries the observability settings shared by logging and metrics.
type Config struct {
	ServiceName string
	Environment string
	Version     string
	LogLevel    string
	LogFormat   string
}

// LoadConfig derives observability settings from the application config.
func LoadConfig(cfg config.Config) Config {
	return Config{
		ServiceName: cfg.AppName,
		Environment: cfg.Environment,
		Version:     cfg.AppVersion,
		LogLevel:    cfg.LogLevel,
		LogFormat:   cfg.LogFormat,
	}
}

func (c Config) Debug() bool {
	return strings.EqualFold(strings.TrimSpace(c.LogLevel), "debug")
}
