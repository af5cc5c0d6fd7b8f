package config

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// NewLogger builds the process logger from the log section. Output goes to
// stderr unless w is non-nil.
func NewLogger(cfg LogConfig, w io.Writer) (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}

	logger := logrus.New()
	logger.SetLevel(level)
	if w == nil {
		w = os.Stderr
	}
	logger.SetOutput(w)

	switch cfg.Format {
	case "text":
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	return logger, nil
}
