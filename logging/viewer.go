package logging

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"go.uber.org/zap/zapcore"
)

// DefaultMaxEntries caps the entries a Viewer returns.
const DefaultMaxEntries = 500

// maxLineSize bounds a single log line; longer lines are skipped.
const maxLineSize = 1 << 20

// Entry is one decoded log line.
type Entry struct {
	Time    time.Time      `json:"ts"`
	Level   string         `json:"level"`
	Message string         `json:"msg"`
	Caller  string         `json:"caller,omitempty"`
	Fields  map[string]any `json:"fields,omitempty"`
}

// Stats counts the entries of a log file per level.
type Stats struct {
	Total int `json:"total"`
	Debug int `json:"debug"`
	Info  int `json:"info"`
	Warn  int `json:"warn"`
	Error int `json:"error"`
}

func (s *Stats) add(level zapcore.Level) {
	s.Total++
	switch {
	case level <= zapcore.DebugLevel:
		s.Debug++
	case level == zapcore.InfoLevel:
		s.Info++
	case level == zapcore.WarnLevel:
		s.Warn++
	default:
		s.Error++
	}
}

// Report is what a Viewer shows for one request.
type Report struct {
	MinLevel string  `json:"min_level"`
	Entries  []Entry `json:"entries"`
	Stats    Stats   `json:"stats"`
	FileSize int64   `json:"file_size"`
}

// Viewer reads the JSON lines written by a logger built with New.
type Viewer struct {
	path       string
	maxEntries int
}

// NewViewer returns a viewer over the log file at path. maxEntries limits
// how many entries Report returns; 0 means no limit.
func NewViewer(path string, maxEntries int) *Viewer {
	return &Viewer{path: path, maxEntries: maxEntries}
}

// Path returns the log file the viewer reads.
func (v *Viewer) Path() string {
	return v.path
}

// ParseLevel parses a minimum level name. "warning" is accepted for warn, and
// an empty name means debug.
func ParseLevel(name string) (zapcore.Level, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	switch name {
	case "":
		return zapcore.DebugLevel, nil
	case "warning":
		return zapcore.WarnLevel, nil
	}
	return zapcore.ParseLevel(name)
}

// Report returns the entries at or above minLevel, newest first and capped
// at the viewer's limit, along with per-level stats over the whole file. A
// missing log file gives an empty report.
func (v *Viewer) Report(minLevel zapcore.Level) (*Report, error) {
	report := &Report{MinLevel: minLevel.String(), Entries: []Entry{}}

	f, err := os.Open(v.path)
	if errors.Is(err, os.ErrNotExist) {
		return report, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}
	defer f.Close()

	if info, err := f.Stat(); err == nil {
		report.FileSize = info.Size()
	}

	entries, err := v.read(f, minLevel, &report.Stats)
	if err != nil {
		return nil, err
	}

	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	if v.maxEntries > 0 && len(entries) > v.maxEntries {
		entries = entries[:v.maxEntries]
	}
	report.Entries = entries
	return report, nil
}

// Entries returns the entries at or above minLevel, newest first.
func (v *Viewer) Entries(minLevel zapcore.Level) ([]Entry, error) {
	report, err := v.Report(minLevel)
	if err != nil {
		return nil, err
	}
	return report.Entries, nil
}

// Stats counts every entry of the log file per level.
func (v *Viewer) Stats() (Stats, error) {
	report, err := v.Report(zapcore.DebugLevel)
	if err != nil {
		return Stats{}, err
	}
	return report.Stats, nil
}

// Clear truncates the log file. Loggers append, so they keep writing to it.
func (v *Viewer) Clear() error {
	err := os.Truncate(v.path, 0)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("clearing log file: %w", err)
	}
	return nil
}

func (v *Viewer) read(r io.Reader, minLevel zapcore.Level, stats *Stats) ([]Entry, error) {
	var entries []Entry
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		entry, level, ok := decodeEntry(line)
		if !ok {
			continue
		}
		stats.add(level)
		if level >= minLevel {
			entries = append(entries, entry)
		}
	}
	if err := sc.Err(); err != nil && !errors.Is(err, bufio.ErrTooLong) {
		return nil, fmt.Errorf("reading log file: %w", err)
	}
	return entries, nil
}

// decodeEntry decodes a zap JSON line. Lines that are not JSON objects are
// rejected; an unknown level counts as debug.
func decodeEntry(line []byte) (Entry, zapcore.Level, bool) {
	var raw map[string]any
	if err := json.Unmarshal(line, &raw); err != nil {
		return Entry{}, 0, false
	}

	var entry Entry
	entry.Level, _ = raw["level"].(string)
	entry.Message, _ = raw["msg"].(string)
	entry.Caller, _ = raw["caller"].(string)
	entry.Time = decodeTime(raw["ts"])
	for _, key := range []string{"level", "msg", "caller", "ts"} {
		delete(raw, key)
	}
	if len(raw) > 0 {
		entry.Fields = raw
	}

	level, err := ParseLevel(entry.Level)
	if err != nil {
		level = zapcore.DebugLevel
	}
	return entry, level, true
}

// decodeTime accepts both ISO 8601 strings and epoch seconds.
func decodeTime(v any) time.Time {
	switch ts := v.(type) {
	case string:
		for _, layout := range []string{"2006-01-02T15:04:05.000Z0700", time.RFC3339Nano} {
			if t, err := time.Parse(layout, ts); err == nil {
				return t
			}
		}
	case float64:
		sec := int64(ts)
		return time.Unix(sec, int64((ts-float64(sec))*float64(time.Second))).UTC()
	}
	return time.Time{}
}
