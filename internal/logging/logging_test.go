package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/iwvelando/calculator-hub/internal/config"
	"go.uber.org/zap/zapcore"
)

func TestBuildConfig(t *testing.T) {
	tests := []struct {
		name      string
		cfg       config.LoggingConfig
		override  string
		level     zapcore.Level
		encoding  string
		expectErr bool
	}{
		{name: "Defaults", level: zapcore.InfoLevel, encoding: "json"},
		{name: "Console debug", cfg: config.LoggingConfig{Level: "debug", Format: "console"}, level: zapcore.DebugLevel, encoding: "console"},
		{name: "Override wins", cfg: config.LoggingConfig{Level: "debug"}, override: "error", level: zapcore.ErrorLevel, encoding: "json"},
		{name: "Warning alias", cfg: config.LoggingConfig{Level: "warning"}, level: zapcore.WarnLevel, encoding: "json"},
		{name: "Invalid level", cfg: config.LoggingConfig{Level: "verbose"}, expectErr: true},
		{name: "Invalid format", cfg: config.LoggingConfig{Format: "xml"}, expectErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			zapConfig, err := BuildConfig(tt.cfg, tt.override)
			if tt.expectErr {
				if err == nil {
					t.Fatal("expected error but got none")
				}
				return
			}
			if err != nil {
				t.Fatalf("BuildConfig() error = %v", err)
			}
			if zapConfig.Level.Level() != tt.level {
				t.Errorf("level = %s, expected %s", zapConfig.Level.Level(), tt.level)
			}
			if zapConfig.Encoding != tt.encoding {
				t.Errorf("encoding = %s, expected %s", zapConfig.Encoding, tt.encoding)
			}
		})
	}
}

func TestNewWithOutputFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "server.log")

	logger, err := New(config.LoggingConfig{OutputFile: path}, "")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	logger.Info("hello")
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	if len(data) == 0 {
		t.Error("expected log output in file")
	}
}
