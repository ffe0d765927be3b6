package gzippedhttp

import (
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGzipResponse(t *testing.T) {
	handler := GzipResponse(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"users":3}`))
	}))

	tests := []struct {
		name           string
		acceptEncoding string
		wantGzip       bool
	}{
		{name: "client accepts gzip", acceptEncoding: "gzip, deflate", wantGzip: true},
		{name: "client does not accept gzip", acceptEncoding: "", wantGzip: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/stats", nil)
			req.Header.Set("Accept-Encoding", tt.acceptEncoding)
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)
			result := w.Result()
			defer result.Body.Close()

			assert.Equal(t, http.StatusOK, result.StatusCode)
			assert.Equal(t, "Accept-Encoding", result.Header.Get("Vary"))

			var body io.Reader = result.Body
			if tt.wantGzip {
				require.Equal(t, "gzip", result.Header.Get("Content-Encoding"))
				zr, err := gzip.NewReader(result.Body)
				require.NoError(t, err)
				body = zr
			} else {
				assert.Empty(t, result.Header.Get("Content-Encoding"))
			}

			data, err := io.ReadAll(body)
			require.NoError(t, err)
			assert.Equal(t, `{"users":3}`, string(data))
		})
	}
}

func TestGzipResponseEmptyBody(t *testing.T) {
	handler := GzipResponse(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Body.Bytes())
}
