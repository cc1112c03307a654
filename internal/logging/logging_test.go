package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConsoleLevels(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Options{Console: &buf})
	require.NoError(t, err)
	defer l.Close()

	l.Debug("hidden")
	l.Info("built variant", "variant", "FM1")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "fmlab")
	assert.Contains(t, buf.String(), "variant=FM1")

	buf.Reset()
	verbose, err := New(Options{Console: &buf, Verbose: true})
	require.NoError(t, err)
	verbose.Debug("shown")
	assert.Contains(t, buf.String(), "shown")

	buf.Reset()
	quiet, err := New(Options{Console: &buf, Quiet: true})
	require.NoError(t, err)
	quiet.Info("hidden")
	quiet.Warn("kept")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "kept")
}

func TestFileCopy(t *testing.T) {
	var buf bytes.Buffer
	path := filepath.Join(t.TempDir(), "logs", "fmlab.log")
	l, err := New(Options{Console: &buf, File: path})
	require.NoError(t, err)

	l.Info("parsed log", "groups", 22)
	require.NoError(t, l.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "parsed log")
	assert.Contains(t, buf.String(), "parsed log")
}
