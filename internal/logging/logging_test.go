package logging

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/RobsonDevCode/metascan/internal/configuration"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("INFO"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warn"))
	assert.Equal(t, slog.LevelWarn, ParseLevel(""))
}

func TestNewVerboseForcesDebug(t *testing.T) {
	logger, closer := New(configuration.LoggingSettings{Level: "error"}, true)
	assert.Nil(t, closer)
	assert.True(t, logger.Enabled(context.Background(), slog.LevelDebug))
}

func TestNewWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metascan.log")

	logger, closer := New(configuration.LoggingSettings{Level: "info", Format: "json", FilePath: path}, false)
	require.NotNil(t, closer)

	logger.Info("lookup", "sha256", "abc")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"sha256":"abc"`)
}

func TestDiscard(t *testing.T) {
	assert.False(t, Discard().Enabled(context.Background(), slog.LevelError))
}
