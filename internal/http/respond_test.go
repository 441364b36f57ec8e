package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRespondJSON_EncodeFailureUsesRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	reqLog := zerolog.New(&buf).With().Str("request_id", "req-7").Logger()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req = req.WithContext(reqLog.WithContext(req.Context()))
	rec := httptest.NewRecorder()

	respondJSON(rec, req, http.StatusOK, map[string]any{"cart": make(chan int)})

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line), buf.String())
	assert.Equal(t, "failed to encode response", line["message"])
	assert.Equal(t, "req-7", line["request_id"])
	assert.Equal(t, "warn", line["level"])
}
