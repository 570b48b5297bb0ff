package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/bcnelson/fulcrum-data-manager/internal/config"
	"github.com/bcnelson/fulcrum-data-manager/internal/export"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	a := &app{}
	root := newRootCommand(a)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func useTempDatabase(t *testing.T) string {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "data", "fulcrum.db")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_DSN", dsn)
	return dsn
}

func TestMigrateCreatesDatabase(t *testing.T) {
	dsn := useTempDatabase(t)

	out, err := run(t, "migrate", "--log-level", "error")
	require.NoError(t, err, out)
	assert.Contains(t, out, "schema version 1")
	assert.FileExists(t, dsn)
}

func TestExportTagsToFile(t *testing.T) {
	useTempDatabase(t)
	file := filepath.Join(t.TempDir(), export.FileName)

	out, err := run(t, "export", "tags", "--out", file, "--log-level", "error")
	require.NoError(t, err, out)

	b, err := os.ReadFile(file)
	require.NoError(t, err)
	var doc export.Document
	require.NoError(t, json.Unmarshal(b, &doc))
	assert.Empty(t, doc.Tags)
}

func TestInvalidConfigurationFails(t *testing.T) {
	useTempDatabase(t)
	t.Setenv("ASPECT_VALUES_MODE", "sometimes")

	_, err := run(t, "migrate")
	assert.ErrorContains(t, err, "invalid configuration")
}

func TestNewLogger(t *testing.T) {
	logger, err := newLogger(config.LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zap.DebugLevel))

	logger, err = newLogger(config.LogConfig{Level: "warn", Format: "json"})
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zap.InfoLevel))

	_, err = newLogger(config.LogConfig{Level: "loud", Format: "json"})
	assert.Error(t, err)
}
