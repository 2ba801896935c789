package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/ZaguanLabs/langsys/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testLog = `{"level":"info","ts":"2026-10-19T10:00:00.000Z","msg":"fetched translations","locale":"es"}
{"level":"warn","ts":"2026-10-19T10:00:01.000Z","msg":"registering <b>phrases</b> failed"}
{"level":"error","ts":"2026-10-19T10:00:02.000Z","msg":"fetching translations failed"}
`

func logViewer(t *testing.T) *logging.Viewer {
	t.Helper()
	path := filepath.Join(t.TempDir(), "langsys.log")
	require.NoError(t, os.WriteFile(path, []byte(testLog), 0o644))
	return logging.NewViewer(path, 0)
}

func TestLogsRouter_JSON(t *testing.T) {
	h := LogsRouter(logViewer(t), nil)

	resp := serve(t, h, "/?level=warning&format=json", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.Equal(t, "no-store", resp.Header.Get("Cache-Control"))

	var report logging.Report
	require.NoError(t, json.Unmarshal([]byte(body(t, resp)), &report))
	assert.Equal(t, "warn", report.MinLevel)
	require.Len(t, report.Entries, 2)
	assert.Equal(t, "fetching translations failed", report.Entries[0].Message)
	assert.Equal(t, logging.Stats{Total: 3, Info: 1, Warn: 1, Error: 1}, report.Stats)
	assert.Positive(t, report.FileSize)
}

func TestLogsRouter_HTML(t *testing.T) {
	h := LogsRouter(logViewer(t), nil)

	resp := serve(t, h, "/?level=nonsense", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/html; charset=utf-8", resp.Header.Get("Content-Type"))

	got := body(t, resp)
	assert.Contains(t, got, "3 entries (0 debug, 1 info, 1 warn, 1 error)")
	assert.Contains(t, got, `<a href="?level=debug" class="active">debug</a>`, "unknown levels fall back to debug")
	assert.Contains(t, got, "fetched translations")
	assert.Contains(t, got, "registering &lt;b&gt;phrases&lt;/b&gt; failed")
	assert.Contains(t, got, "2026-10-19 10:00:02")
}

func TestLogsRouter_Clear(t *testing.T) {
	v := logViewer(t)
	h := LogsRouter(v, nil)

	r := httptest.NewRequest(http.MethodPost, "/clear", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"success":true`)

	stats, err := v.Stats()
	require.NoError(t, err)
	assert.Zero(t, stats.Total)

	resp := serve(t, h, "/clear", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestNewRouter_LogViewer(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "page.html"), []byte("<p>home</p>"), 0o644))

	cfg := RouterConfig{
		Dir:       dir,
		Translate: upperTranslate,
		Options:   Options{SourceLocale: "en"},
	}

	resp := serve(t, NewRouter(cfg), LogsPath+"?format=json&lang=es", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode, "viewer is off by default")

	cfg.Logs = logViewer(t)
	resp = serve(t, NewRouter(cfg), LogsPath+"?format=json&lang=es", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, resp.Header.Get("Content-Language"), "viewer output is not translated")

	var report logging.Report
	require.NoError(t, json.Unmarshal([]byte(body(t, resp)), &report))
	assert.Len(t, report.Entries, 3)
}
