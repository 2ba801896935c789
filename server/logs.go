package server

import (
	"encoding/json"
	"html/template"
	"net/http"

	"github.com/ZaguanLabs/langsys/logging"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogsPath is where NewRouter mounts the log viewer.
const LogsPath = "/_langsys/logs"

var logLevels = []string{"debug", "info", "warn", "error"}

var logsHTMLTmpl = template.Must(template.New("logs").Funcs(template.FuncMap{
	"stamp": func(e logging.Entry) string {
		if e.Time.IsZero() {
			return ""
		}
		return e.Time.UTC().Format("2006-01-02 15:04:05")
	},
	"fields": func(e logging.Entry) string {
		if len(e.Fields) == 0 {
			return ""
		}
		data, _ := json.Marshal(e.Fields)
		return string(data)
	},
}).Parse(`<!DOCTYPE html>
<html lang="en"><head><meta charset="UTF-8"><meta name="viewport" content="width=device-width,initial-scale=1">
<title>langsys logs</title>
<style>
body{font-family:system-ui,sans-serif;margin:2rem;color:#222;background:#fafafa}
table{border-collapse:collapse;width:100%;font-size:.85rem}
td,th{border-bottom:1px solid #e0e0e0;padding:.3rem .5rem;text-align:left;vertical-align:top}
.level-debug{color:#888}.level-info{color:#1565c0}.level-warn{color:#ef6c00}.level-error{color:#c62828}
nav a{margin-right:.8rem}nav a.active{font-weight:bold}
.fields{font-family:monospace;color:#555}
.empty{color:#999;font-style:italic}
</style></head><body>
<h1>langsys logs</h1>
<p>{{.Stats.Total}} entries ({{.Stats.Debug}} debug, {{.Stats.Info}} info, {{.Stats.Warn}} warn, {{.Stats.Error}} error), {{.FileSize}} bytes</p>
<nav>{{range .Levels}}<a href="?level={{.}}"{{if eq . $.MinLevel}} class="active"{{end}}>{{.}}</a>{{end}}<a href="?level={{.MinLevel}}&amp;format=json">json</a></nav>
{{- if not .Entries}}
<p class="empty">No entries at this level.</p>
{{- else}}
<table><thead><tr><th>Time</th><th>Level</th><th>Message</th><th>Fields</th></tr></thead><tbody>
{{- range .Entries}}
<tr class="level-{{.Level}}"><td>{{stamp .}}</td><td>{{.Level}}</td><td>{{.Message}}</td><td class="fields">{{fields .}}</td></tr>
{{- end}}
</tbody></table>
{{- end}}
</body></html>`))

type logsView struct {
	MinLevel string
	Levels   []string
	Entries  []logging.Entry
	Stats    logging.Stats
	FileSize int64
}

// LogsRouter serves the viewer's report as HTML, or as JSON with
// format=json, filtered by the level query parameter. POST /clear
// truncates the log file.
func LogsRouter(v *logging.Viewer, logger *zap.Logger) chi.Router {
	if logger == nil {
		logger = zap.NewNop()
	}

	r := chi.NewRouter()
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		level, err := logging.ParseLevel(r.URL.Query().Get("level"))
		if err != nil {
			level = zapcore.DebugLevel
		}

		report, err := v.Report(level)
		if err != nil {
			logger.Error("reading log file failed", zap.String("path", v.Path()), zap.Error(err))
			http.Error(w, "reading log file failed", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Cache-Control", "no-store")
		if r.URL.Query().Get("format") == "json" {
			writeJSON(w, http.StatusOK, report)
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		err = logsHTMLTmpl.Execute(w, logsView{
			MinLevel: report.MinLevel,
			Levels:   logLevels,
			Entries:  report.Entries,
			Stats:    report.Stats,
			FileSize: report.FileSize,
		})
		if err != nil {
			logger.Warn("rendering log viewer failed", zap.Error(err))
		}
	})

	r.Post("/clear", func(w http.ResponseWriter, r *http.Request) {
		if err := v.Clear(); err != nil {
			logger.Error("clearing log file failed", zap.String("path", v.Path()), zap.Error(err))
			http.Error(w, "clearing log file failed", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "log cleared"})
	})
	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
