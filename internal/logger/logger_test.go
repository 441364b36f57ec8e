package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_Level(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger(&buf, "warn")

	log.Info().Msg("dropped")
	log.Warn().Str("component", "cart_service").Msg("cache write failed")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line), buf.String())
	assert.Equal(t, "warn", line["level"])
	assert.Equal(t, "cart_service", line["component"])
	assert.Contains(t, line, "time")
}

func TestNewLogger_UnknownLevelIsInfo(t *testing.T) {
	for _, level := range []string{"", "loud"} {
		var buf bytes.Buffer
		log := newLogger(&buf, level)

		log.Debug().Msg("dropped")
		assert.Zero(t, buf.Len(), level)

		log.Info().Msg("kept")
		assert.NotZero(t, buf.Len(), level)
	}
}
