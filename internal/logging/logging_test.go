package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"

	"github.com/zenixls2/bookaggregator/internal/config"
)

func TestLevelForMapsKnownNames(t *testing.T) {
	cases := map[string]zapcore.Level{
		"Error":   zapcore.ErrorLevel,
		"Warning": zapcore.WarnLevel,
		"Debug":   zapcore.DebugLevel,
		"Info":    zapcore.InfoLevel,
		"":        zapcore.InfoLevel,
		"bogus":   zapcore.InfoLevel,
	}
	for name, want := range cases {
		if got := levelFor(name); got != want {
			t.Errorf("levelFor(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestNewBuildsAStdoutLogger(t *testing.T) {
	logger, err := New(&config.Config{LogLevel: "Debug"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer logger.Sync()
	logger.Info("smoke test")
}

func TestNewAppendsLogPathAsSecondOutput(t *testing.T) {
	logPath := t.TempDir() + "/aggregator.log"
	logger, err := New(&config.Config{LogLevel: "Info", LogPath: logPath})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer logger.Sync()
	logger.Info("written to file sink too")
}
