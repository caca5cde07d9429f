// Package logging builds the zap logger used across a run.
package logging

import (
	"os"

	"go.uber.org/zap"
	"golang.org/x/term"
)

type Config struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"` // "json", "console" or empty to pick by terminal
	OutputPath string `yaml:"output_path"`
}

// New creates a logger carrying the given fields. An unparsable level
// falls back to info.
func New(cfg Config, fields ...zap.Field) (*zap.Logger, error) {
	zapConfig := zap.NewProductionConfig()

	level, err := zap.ParseAtomicLevel(cfg.Level)
	if err != nil {
		level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	zapConfig.Level = level
	zapConfig.Encoding = encoding(cfg.Format, term.IsTerminal(int(os.Stderr.Fd())))
	if zapConfig.Encoding == "console" {
		zapConfig.EncoderConfig = zap.NewDevelopmentEncoderConfig()
	}

	if cfg.OutputPath != "" {
		zapConfig.OutputPaths = []string{cfg.OutputPath}
	}

	logger, err := zapConfig.Build()
	if err != nil {
		return nil, err
	}
	return logger.With(fields...), nil
}

func encoding(format string, terminal bool) string {
	switch format {
	case "json", "console":
		return format
	}
	if terminal {
		return "console"
	}
	return "json"
}
