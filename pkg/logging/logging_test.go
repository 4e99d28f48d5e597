package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/unowned-ai/omo/pkg/config"
)

func TestNew(t *testing.T) {
	for _, format := range []string{"json", "console"} {
		t.Run(format, func(t *testing.T) {
			logger, err := New(config.LogConfig{Level: "info", Format: format})
			require.NoError(t, err)
			assert.True(t, logger.Core().Enabled(zapcore.InfoLevel))
			assert.False(t, logger.Core().Enabled(zapcore.DebugLevel))
		})
	}
}

func TestNew_Invalid(t *testing.T) {
	_, err := New(config.LogConfig{Level: "chatty", Format: "json"})
	assert.Error(t, err)

	_, err = New(config.LogConfig{Level: "info", Format: "xml"})
	assert.Error(t, err)
}
