package logx

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWritesToLogsDir(t *testing.T) {
	dir := t.TempDir() + "/logs"
	logger, closer, err := New(dir, "debug")
	require.NoError(t, err)

	logger.WithField("client", "cursor").Debug("evaluated")
	require.NoError(t, closer.Close())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	data, err := os.ReadFile(dir + "/" + entries[0].Name())
	require.NoError(t, err)
	assert.Contains(t, string(data), "client=cursor")
	assert.Contains(t, string(data), "msg=evaluated")
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, _, err := New(t.TempDir(), "chatty")
	assert.Error(t, err)
}
