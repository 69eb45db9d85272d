// Package logging builds the process-wide *zap.Logger. Grounded on the
// teacher's cmd/main.go:setupLogger (zap.NewProductionConfig, a single
// "stdout" output path), generalized to also chain an optional file sink
// the way original_source/src/server.rs:setup_logger chains a fern stdout +
// file dispatch.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/zenixls2/bookaggregator/internal/config"
)

func levelFor(logLevel string) zapcore.Level {
	switch logLevel {
	case "Error":
		return zapcore.ErrorLevel
	case "Warning":
		return zapcore.WarnLevel
	case "Debug":
		return zapcore.DebugLevel
	default:
		return zapcore.InfoLevel
	}
}

// New builds a *zap.Logger from the loaded Config: always writes to
// stdout, and additionally to LogPath (append-mode) when set.
func New(cfg *config.Config) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(levelFor(cfg.LogLevel))
	zcfg.OutputPaths = []string{"stdout"}
	if cfg.LogPath != "" {
		zcfg.OutputPaths = append(zcfg.OutputPaths, cfg.LogPath)
	}

	logger, err := zcfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return logger, nil
}
