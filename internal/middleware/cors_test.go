package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fitlifekr/backend/internal/middleware"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCors_AllowedOrigin(t *testing.T) {
	handler := middleware.Cors()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req, err := http.NewRequest("GET", "/prescription/recommend", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://app.fitlife.kr")

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "https://app.fitlife.kr", rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestCors_ForbiddenOrigin(t *testing.T) {
	handler := middleware.Cors()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req, err := http.NewRequest("GET", "/prescription/recommend", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://evil.example.com")
	req.Header.Set("User-Agent", "snooper/1.0")

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestCors_CurlAllowed(t *testing.T) {
	handler := middleware.Cors()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req, err := http.NewRequest("GET", "/health", nil)
	require.NoError(t, err)
	req.Header.Set("User-Agent", "curl/8.5.0")

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
}
