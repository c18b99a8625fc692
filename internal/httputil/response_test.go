package httputil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteJSON(rec, http.StatusCreated, map[string]int{"deleted": 3})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var env Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.True(t, env.OK)
	assert.Nil(t, env.Error)
	assert.Equal(t, map[string]interface{}{"deleted": float64(3)}, env.Data)
}

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, http.StatusLocked, CodeLocked, "asset type is locked")

	assert.Equal(t, http.StatusLocked, rec.Code)

	var env Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.False(t, env.OK)
	assert.Nil(t, env.Data)
	require.NotNil(t, env.Error)
	assert.Equal(t, CodeLocked, env.Error.Code)
	assert.Equal(t, "asset type is locked", env.Error.Message)
}

func TestReadJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{"locked": true}`))
	var body struct {
		Locked bool `json:"locked"`
	}
	require.NoError(t, ReadJSON(req, &body))
	assert.True(t, body.Locked)
}

func TestReadJSONBoundsBody(t *testing.T) {
	// A body past the limit is truncated mid-document and fails to decode.
	huge := `{"padding": "` + strings.Repeat("x", maxBodyBytes) + `"}`
	req := httptest.NewRequest(http.MethodPut, "/", strings.NewReader(huge))
	var body map[string]string
	assert.Error(t, ReadJSON(req, &body))
}
