package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewWritesJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.json")
	logger, err := New(Config{Level: "warn", OutputPaths: []string{path}})
	require.NoError(t, err)

	logger.Info("hidden")
	logger.Warn("Dropping item", zap.Int("seq", 3))
	require.NoError(t, logger.Sync())

	b, err := os.ReadFile(path)
	require.NoError(t, err)

	var entry map[string]any
	require.NoError(t, sonic.Unmarshal(b, &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "Dropping item", entry["message"])
	assert.Equal(t, 3.0, entry["seq"])
}

func TestNewRejectsBadLevel(t *testing.T) {
	_, err := New(Config{Level: "chatty"})
	assert.Error(t, err)
}

func TestNewOrNop(t *testing.T) {
	assert.NotNil(t, NewOrNop(Config{Level: "chatty"}))
	assert.NotNil(t, NewOrNop(DefaultConfig()))
}
