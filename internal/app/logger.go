package app

import (
	"strings"

	"github.com/freshapi/freshapi/pkg/logger"
)

// ConfigureLogging initialises the global logger from server settings, defaulting to info/json.
func ConfigureLogging(cfg ServerConfig) error {
	level := strings.TrimSpace(cfg.LogLevel)
	if level == "" {
		level = "info"
	}
	return logger.InitWithOptions(logger.Options{
		Level:    level,
		Encoding: strings.TrimSpace(cfg.LogEncoding),
	})
}
