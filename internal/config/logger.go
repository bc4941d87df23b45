package config

import (
	"fmt"
	"io"
	"os"

	"github.com/mindstorm-criteria-engine/internal/domain"
	"github.com/sirupsen/logrus"
)

// NewLogger builds a logrus logger from the logging configuration. Output goes to
// stderr so the MCP stdio transport keeps stdout to itself.
func NewLogger(cfg domain.LoggingConfig) (*logrus.Logger, error) {
	return newLogger(cfg, os.Stderr)
}

func newLogger(cfg domain.LoggingConfig, out io.Writer) (*logrus.Logger, error) {
	logger := logrus.New()
	logger.SetOutput(out)

	if cfg.Format == "text" {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}
	logger.SetLevel(level)

	return logger, nil
}
