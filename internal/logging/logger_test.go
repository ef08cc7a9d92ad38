package logging

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	cfgpkg "github.com/taoyao-code/s1-panel-bridge/internal/config"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"WARN", zapcore.WarnLevel},
		{"warning", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"", zapcore.InfoLevel},
		{"verbose", zapcore.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestInitLogger(t *testing.T) {
	cfg := cfgpkg.LoggingConfig{
		Level:  "debug",
		Format: "console",
		File:   cfgpkg.LumberjackConfig{Filename: filepath.Join(t.TempDir(), "bridge.log"), MaxSizeMB: 1},
	}
	logger, err := InitLogger(cfg)
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))
	logger.Debug("frame", Hex("hex", []byte{0xaa, 0x71}))

	assert.NotNil(t, OrNop(nil))
	assert.Same(t, logger, OrNop(logger))
}
