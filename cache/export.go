package cache

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// ExportVersion is the format version written by Export. Import accepts any
// 1.x file.
const ExportVersion = "1.0"

// ExportFormat is the JSON document shipped between caches, typically a
// warm set of translation maps bundled with a deploy.
type ExportFormat struct {
	Version    string            `json:"version"`
	ExportedAt string            `json:"exported_at"`
	Entries    []ExportEntry     `json:"entries"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// ExportEntry is one cache key and its raw value.
type ExportEntry struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Exporter writes the entries of an enumerable cache.
type Exporter struct {
	cache  Enumerable
	prefix string
	now    func() time.Time
}

// NewExporter creates an exporter for cache.
func NewExporter(cache Enumerable) *Exporter {
	return &Exporter{cache: cache, now: time.Now}
}

// WithPrefix limits the export to keys starting with prefix, e.g.
// "translations_" to ship translation maps without authorization results.
func (e *Exporter) WithPrefix(prefix string) *Exporter {
	e.prefix = prefix
	return e
}

// Snapshot collects the matching entries sorted by key.
func (e *Exporter) Snapshot(metadata map[string]string) (*ExportFormat, error) {
	data, err := e.cache.Entries()
	if err != nil {
		return nil, fmt.Errorf("listing cache entries: %w", err)
	}

	entries := make([]ExportEntry, 0, len(data))
	for key, value := range data {
		if strings.HasPrefix(key, e.prefix) {
			entries = append(entries, ExportEntry{Key: key, Value: value})
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })

	return &ExportFormat{
		Version:    ExportVersion,
		ExportedAt: e.now().UTC().Format(time.RFC3339),
		Entries:    entries,
		Metadata:   metadata,
	}, nil
}

// Export writes an indented snapshot to w.
func (e *Exporter) Export(w io.Writer, metadata map[string]string) error {
	snapshot, err := e.Snapshot(metadata)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snapshot); err != nil {
		return fmt.Errorf("encoding export: %w", err)
	}
	return nil
}

// ExportToFile writes the export next to path and renames it into place, so
// a reader never sees a partial file.
func (e *Exporter) ExportToFile(path string, metadata map[string]string) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating export directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".export-*.json")
	if err != nil {
		return fmt.Errorf("creating export file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if err := e.Export(tmp, metadata); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing export file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replacing export file: %w", err)
	}
	return nil
}

// Importer loads exported entries into any cache.
type Importer struct {
	cache        Cache
	keepExisting bool
}

// NewImporter creates an importer writing into cache.
func NewImporter(cache Cache) *Importer {
	return &Importer{cache: cache}
}

// KeepExisting makes Import skip keys the cache already holds, so a bundled
// export never replaces fresher entries.
func (i *Importer) KeepExisting() *Importer {
	i.keepExisting = true
	return i
}

// ImportResult counts what Import did with each entry.
type ImportResult struct {
	Version  string
	Metadata map[string]string
	Imported int
	Skipped  int
	Failed   int
}

// Import reads an export from r and stores its entries. An entry the cache
// rejects is counted as failed and the import goes on.
func (i *Importer) Import(r io.Reader) (*ImportResult, error) {
	var export ExportFormat
	if err := json.NewDecoder(r).Decode(&export); err != nil {
		return nil, fmt.Errorf("decoding export: %w", err)
	}
	if major, _, _ := strings.Cut(export.Version, "."); major != "1" {
		return nil, fmt.Errorf("unsupported export version %q", export.Version)
	}

	result := &ImportResult{Version: export.Version, Metadata: export.Metadata}
	for _, entry := range export.Entries {
		if entry.Key == "" {
			result.Failed++
			continue
		}
		if i.keepExisting {
			if _, ok := i.cache.Get(entry.Key); ok {
				result.Skipped++
				continue
			}
		}
		if err := i.cache.Set(entry.Key, entry.Value); err != nil {
			result.Failed++
			continue
		}
		result.Imported++
	}
	return result, nil
}

// ImportFromFile imports the export stored at path.
func (i *Importer) ImportFromFile(path string) (*ImportResult, error) {
	f, err := os.Open(path) // #nosec G304 - path is intentionally user-provided
	if err != nil {
		return nil, fmt.Errorf("opening export: %w", err)
	}
	defer f.Close()
	return i.Import(f)
}
