package logx

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/op/go-logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigureRejectsLevel(t *testing.T) {
	_, err := Configure(Options{Level: "loud"})
	assert.Error(t, err)
}

func TestConfigureWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agent.log")
	closer, err := Configure(Options{Level: "info", File: path, MaxSizeMB: 1, MaxAge: 1})
	require.NoError(t, err)

	log := logging.MustGetLogger("logx_test")
	log.Debug("hidden")
	log.Info("visible")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "visible")
	assert.NotContains(t, string(data), "hidden")
}
