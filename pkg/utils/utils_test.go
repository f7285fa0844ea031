package utils

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRespondError(t *testing.T) {
	rec := httptest.NewRecorder()

	require.NoError(t, RespondError(rec, http.StatusBadRequest, "bad input"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var body map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "bad input", body["error"])
}

func TestDecodeJSON(t *testing.T) {
	var payload struct {
		Text string `json:"text"`
	}

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"text":"hi"}`))
	require.NoError(t, DecodeJSON(req, &payload))
	assert.Equal(t, "hi", payload.Text)

	empty := httptest.NewRequest(http.MethodPost, "/", nil)
	assert.NoError(t, DecodeJSON(empty, &payload))

	unknown := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"txt":"hi"}`))
	assert.Error(t, DecodeJSON(unknown, &payload))
}

func TestSendSSEEvent(t *testing.T) {
	rec := httptest.NewRecorder()
	SetupSSEHeaders(rec)

	require.NoError(t, SendSSEEvent(rec, rec, "state", "3", map[string]int{"version": 3}))
	require.NoError(t, SendSSEComment(rec, rec, "ping"))

	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Equal(t, "id: 3\nevent: state\ndata: {\"version\":3}\n\n: ping\n\n", rec.Body.String())
	assert.True(t, rec.Flushed)
}
