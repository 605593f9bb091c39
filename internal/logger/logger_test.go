package logger

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/define42/pterodash/internal/config"
)

func TestNewDefaults(t *testing.T) {
	log := New(nil)
	require.NotNil(t, log)
	assert.True(t, log.Core().Enabled(zap.InfoLevel))
	assert.False(t, log.Core().Enabled(zap.DebugLevel))
}

func TestNewFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pterodash.log")
	log := New(&config.LogConfig{Level: "debug", Format: "json", Output: "file", FilePath: path, MaxSize: 1})
	assert.True(t, log.Core().Enabled(zap.DebugLevel))
	log.Info("hello")
	require.NoError(t, log.Sync())
	assert.FileExists(t, path)
}

func TestMiddlewareRecordsStatus(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	handler := Middleware(zap.New(core))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/servers", nil))

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "request", entry.Message)
	fields := entry.ContextMap()
	assert.Equal(t, "/servers", fields["path"])
	assert.EqualValues(t, http.StatusTeapot, fields["status"])
}
