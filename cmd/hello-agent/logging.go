package main

import (
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

type LogConfig struct {
	Level      string
	Format     string
	File       string
	WithCaller bool
}

// InitLogger configures the global zerolog logger. Without an explicit format, output is
// human readable on a terminal and JSON otherwise.
func InitLogger(config *LogConfig) error {
	format := config.Format
	if format == "" {
		format = "json"
		if isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd()) {
			format = "text"
		}
	}

	var logWriter io.Writer
	switch format {
	case "text":
		logWriter = zerolog.ConsoleWriter{Out: os.Stderr}
	case "json":
		logWriter = os.Stderr
	default:
		return errors.Errorf("unknown log format %q (expected json or text)", format)
	}

	if config.File != "" {
		logWriter = io.MultiWriter(
			logWriter,
			zerolog.ConsoleWriter{
				NoColor: true,
				Out: &lumberjack.Logger{
					Filename:   config.File,
					MaxSize:    10, // megabytes
					MaxBackups: 3,
					MaxAge:     28, //days
				},
			})
	}

	logger := zerolog.New(logWriter).With().Timestamp()
	if config.WithCaller {
		logger = logger.Caller()
	}
	log.Logger = logger.Logger()

	level := zerolog.InfoLevel
	if config.Level != "" {
		var err error
		level, err = zerolog.ParseLevel(config.Level)
		if err != nil {
			return errors.Wrapf(err, "invalid log level %q", config.Level)
		}
	}
	zerolog.SetGlobalLevel(level)

	return nil
}
