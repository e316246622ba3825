package services

import (
	"os"

	"github.com/sirupsen/logrus"
)

// NewLogger returns the process logger: text locally, JSON everywhere else.
func NewLogger(cfg Config) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)
	if cfg.IsLocal() {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
		logger.SetLevel(logrus.DebugLevel)
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetLevel(logrus.InfoLevel)
	}
	if lvl, err := logrus.ParseLevel(GetEnv("LOG_LEVEL", "")); err == nil {
		logger.SetLevel(lvl)
	}
	return logger
}
