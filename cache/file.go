package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/ZaguanLabs/langsys"
	"github.com/cespare/xxhash/v2"
)

const fileSuffix = ".cache"

// fileEnvelope is the on-disk form of one entry. Expires is a Unix time in
// seconds; zero means the entry never expires.
type fileEnvelope struct {
	Key     string `json:"key"`
	Expires int64  `json:"expires"`
	Value   string `json:"value"`
}

// FileCache stores one JSON file per key in a directory.
type FileCache struct {
	dir string
	ttl time.Duration
	mu  sync.Mutex
	now func() time.Time
}

// NewFileCache creates the cache directory if needed. An empty dir uses
// langsys-cache under the system temp directory.
func NewFileCache(dir string, ttl time.Duration) (*FileCache, error) {
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "langsys-cache")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, &langsys.CacheError{Message: "creating cache directory", Cause: err}
	}
	if ttl < 0 {
		ttl = 0
	}
	return &FileCache{dir: dir, ttl: ttl, now: time.Now}, nil
}

// Dir returns the cache directory.
func (c *FileCache) Dir() string {
	return c.dir
}

// path maps key to a file name that is safe on every filesystem and unique
// per key: a readable prefix plus the key's xxhash.
func (c *FileCache) path(key string) string {
	readable := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, key)
	if len(readable) > 64 {
		readable = readable[:64]
	}
	return filepath.Join(c.dir, fmt.Sprintf("%s-%016x%s", readable, xxhash.Sum64String(key), fileSuffix))
}

// Get reads key. Expired entries are removed.
func (c *FileCache) Get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	env, ok := c.read(c.path(key))
	if !ok || env.Key != key {
		return "", false
	}
	return env.Value, true
}

func (c *FileCache) read(path string) (fileEnvelope, bool) {
	data, err := os.ReadFile(path) // #nosec G304 - path is derived from the cache directory
	if err != nil {
		return fileEnvelope{}, false
	}
	var env fileEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		_ = os.Remove(path)
		return fileEnvelope{}, false
	}
	if env.Expires > 0 && c.now().Unix() >= env.Expires {
		_ = os.Remove(path)
		return fileEnvelope{}, false
	}
	return env, true
}

// Set writes key atomically through a temporary file.
func (c *FileCache) Set(key string, value string) error {
	env := fileEnvelope{Key: key, Value: value}
	if c.ttl > 0 {
		env.Expires = c.now().Add(c.ttl).Unix()
	}
	data, err := json.Marshal(env)
	if err != nil {
		return &langsys.CacheError{Message: "encoding entry", Cause: err}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	tmp, err := os.CreateTemp(c.dir, "tmp-*")
	if err != nil {
		return &langsys.CacheError{Message: "writing entry", Cause: err}
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return &langsys.CacheError{Message: "writing entry", Cause: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return &langsys.CacheError{Message: "writing entry", Cause: err}
	}
	if err := os.Rename(tmp.Name(), c.path(key)); err != nil {
		os.Remove(tmp.Name())
		return &langsys.CacheError{Message: "writing entry", Cause: err}
	}
	return nil
}

// Delete removes key.
func (c *FileCache) Delete(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := os.Remove(c.path(key)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return &langsys.CacheError{Message: "deleting entry", Cause: err}
	}
	return nil
}

// Clear removes every cache file in the directory.
func (c *FileCache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	files, err := c.files()
	if err != nil {
		return err
	}
	for _, f := range files {
		if err := os.Remove(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return &langsys.CacheError{Message: "clearing cache", Cause: err}
		}
	}
	return nil
}

// Entries returns every live entry.
func (c *FileCache) Entries() (map[string]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	files, err := c.files()
	if err != nil {
		return nil, err
	}
	result := make(map[string]string, len(files))
	for _, f := range files {
		if env, ok := c.read(f); ok {
			result[env.Key] = env.Value
		}
	}
	return result, nil
}

func (c *FileCache) files() ([]string, error) {
	files, err := filepath.Glob(filepath.Join(c.dir, "*"+fileSuffix))
	if err != nil {
		return nil, &langsys.CacheError{Message: "listing cache directory", Cause: err}
	}
	return files, nil
}

var _ Enumerable = (*FileCache)(nil)
