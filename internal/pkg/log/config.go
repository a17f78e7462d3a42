// SPDX-License-Identifier: Apache-2.0

// Package log builds the slog.Logger every repoctl command logs through,
// from the configuration file's logging.{level,format} block.
package log

import (
	"fmt"
	"log/slog"
	"os"
)

type Config struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func (c *Config) Logger(handlerWrapper func(handler slog.Handler) slog.Handler) (*slog.Logger, error) {
	var handler slog.Handler
	var opts slog.HandlerOptions

	level := c.Level
	if level == "" {
		level = "info"
	}
	switch level {
	case "debug":
		opts.Level = slog.LevelDebug
		opts.AddSource = true
	case "info":
		opts.Level = slog.LevelInfo
	case "warn":
		opts.Level = slog.LevelWarn
	case "error":
		opts.Level = slog.LevelError
	default:
		return nil, fmt.Errorf("unknown log level %s", level)
	}

	format := c.Format
	if format == "" {
		format = "text"
	}
	switch format {
	case "text":
		handler = slog.NewTextHandler(os.Stderr, &opts)
	case "json":
		handler = slog.NewJSONHandler(os.Stderr, &opts)
	default:
		return nil, fmt.Errorf("unknown log format %s", format)
	}

	if handlerWrapper != nil {
		return slog.New(handlerWrapper(handler)), nil
	}

	return slog.New(handler), nil
}
