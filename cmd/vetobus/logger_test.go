package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dshills/vetobus/internal/manifest"
)

func TestNewLogger(t *testing.T) {
	log, err := newLogger(manifest.Log{Level: "warn", Format: "json"})
	require.NoError(t, err)
	assert.False(t, log.Core().Enabled(zap.InfoLevel))
	assert.True(t, log.Core().Enabled(zap.WarnLevel))

	log, err = newLogger(manifest.Log{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.True(t, log.Core().Enabled(zap.DebugLevel))
}

func TestNewLoggerErrors(t *testing.T) {
	_, err := newLogger(manifest.Log{Level: "loud", Format: "json"})
	assert.Error(t, err)

	_, err = newLogger(manifest.Log{Level: "info", Format: "xml"})
	assert.Error(t, err)
}
