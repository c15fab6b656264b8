package httputil

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteJSON(t *testing.T) {
	t.Parallel()

	t.Run("compact utf-8 json", func(t *testing.T) {
		t.Parallel()
		rec := httptest.NewRecorder()

		err := WriteJSON(rec, http.StatusOK, map[string]string{"hello": "world"})
		require.NoError(t, err)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, ContentTypeJSON, rec.Header().Get("Content-Type"))
		assert.Equal(t, "17", rec.Header().Get("Content-Length"))
		assert.Equal(t, "close", rec.Header().Get("Connection"))
		assert.Equal(t, `{"hello":"world"}`, rec.Body.String())
	})

	t.Run("non-ascii is not escaped", func(t *testing.T) {
		t.Parallel()
		rec := httptest.NewRecorder()

		require.NoError(t, WriteJSON(rec, http.StatusCreated, map[string]string{"name": "张伟 <a&b>"}))

		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, `{"name":"张伟 <a&b>"}`, rec.Body.String())
		assert.Equal(t, "23", rec.Header().Get("Content-Length"))
	})

	t.Run("unencodable value", func(t *testing.T) {
		t.Parallel()
		rec := httptest.NewRecorder()

		err := WriteJSON(rec, http.StatusOK, map[string]any{"ch": make(chan int)})
		assert.Error(t, err)
		assert.Empty(t, rec.Body.String())
	})
}

func TestWriteError(t *testing.T) {
	t.Parallel()
	rec := httptest.NewRecorder()

	WriteError(rec, http.StatusBadGateway, "Proxy Error: connection refused", "Pretender")

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, ContentTypeJSON, rec.Header().Get("Content-Type"))
	assert.Equal(t,
		`{"error":true,"code":502,"message":"Proxy Error: connection refused","server":"Pretender"}`,
		rec.Body.String())
}

func TestWriteUnauthorized(t *testing.T) {
	t.Parallel()
	rec := httptest.NewRecorder()

	WriteUnauthorized(rec, "Header validation failed: Authorization=, expected pattern: ^Bearer .+$")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t,
		`{"error":"unauthorized","message":"Header validation failed: Authorization=, expected pattern: ^Bearer .+$","code":401}`,
		rec.Body.String())
}

func TestWriteNotFound(t *testing.T) {
	t.Parallel()
	rec := httptest.NewRecorder()

	WriteNotFound(rec)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, ContentTypeText, rec.Header().Get("Content-Type"))
	assert.Equal(t, "9", rec.Header().Get("Content-Length"))
	assert.Equal(t, "close", rec.Header().Get("Connection"))
	assert.Equal(t, "Not Found", rec.Body.String())
}

func TestWriteRelayed(t *testing.T) {
	t.Parallel()
	rec := httptest.NewRecorder()

	header := http.Header{
		"Content-Type":   {"text/html"},
		"Content-Length": {"999"},
		"Set-Cookie":     {"a=1", "b=2"},
	}
	WriteRelayed(rec, http.MethodGet, http.StatusTeapot, header, []byte("<p>hi</p>"))

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, "text/html", rec.Header().Get("Content-Type"))
	assert.Equal(t, "9", rec.Header().Get("Content-Length"))
	assert.Equal(t, []string{"a=1", "b=2"}, rec.Header().Values("Set-Cookie"))
	assert.Equal(t, "close", rec.Header().Get("Connection"))
	assert.Equal(t, "<p>hi</p>", rec.Body.String())
}

func TestWriteRelayedKeepsLengthWithoutBody(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		method string
		status int
		want   string
	}{
		{"head", http.MethodHead, http.StatusOK, "1234"},
		{"not modified", http.MethodGet, http.StatusNotModified, "1234"},
		{"get recomputes", http.MethodGet, http.StatusOK, "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			WriteRelayed(rec, tt.method, tt.status, http.Header{"Content-Length": {"1234"}}, nil)

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.want, rec.Header().Get("Content-Length"))
			assert.Equal(t, "close", rec.Header().Get("Connection"))
			assert.Empty(t, rec.Body.String())
		})
	}
}
