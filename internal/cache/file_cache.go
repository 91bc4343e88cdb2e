package cache

import (
	"crypto/md5"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ges-coastal/coastal-monitor/internal/properties"
)

type CacheEntry[T any] struct {
	Data      T         `json:"data"`
	CreatedAt time.Time `json:"created_at"`
	Checksum  string    `json:"checksum"`
}

type CacheService[T any] interface {
	Get(key string) (T, bool)
	Set(key string, data T) error
	Delete(key string) error
	GenerateKey(params ...any) string
}

// FileCache stores one JSON file per key. Entries older than maxAge, or
// whose checksum does not match, are treated as missing.
type FileCache[T any] struct {
	cacheDir string
	maxAge   time.Duration
}

// NewFileCache caches under <root>/data/cache/<subDir>.
func NewFileCache[T any](subDir string, maxAge time.Duration) *FileCache[T] {
	return NewFileCacheAt[T](properties.DataPath("cache", subDir), maxAge)
}

func NewFileCacheAt[T any](dir string, maxAge time.Duration) *FileCache[T] {
	return &FileCache[T]{cacheDir: dir, maxAge: maxAge}
}

func (fc *FileCache[T]) GenerateKey(params ...any) string {
	var keyData string
	for _, param := range params {
		keyData += fmt.Sprintf("%v_", param)
	}
	h := sha1.New()
	h.Write([]byte(keyData))
	return hex.EncodeToString(h.Sum(nil))
}

func (fc *FileCache[T]) path(key string) string {
	return filepath.Join(fc.cacheDir, key+".json")
}

func (fc *FileCache[T]) Get(key string) (T, bool) {
	var zero T
	data, err := os.ReadFile(fc.path(key))
	if err != nil {
		return zero, false
	}

	var entry CacheEntry[T]
	if err := json.Unmarshal(data, &entry); err != nil {
		return zero, false
	}
	if entry.Checksum != fc.calculateChecksum(entry.Data) {
		return zero, false
	}
	if fc.maxAge > 0 && time.Since(entry.CreatedAt) > fc.maxAge {
		return zero, false
	}
	return entry.Data, true
}

func (fc *FileCache[T]) Set(key string, data T) error {
	if err := os.MkdirAll(fc.cacheDir, 0755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	entry := CacheEntry[T]{
		Data:      data,
		CreatedAt: time.Now(),
		Checksum:  fc.calculateChecksum(data),
	}
	jsonData, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry: %w", err)
	}

	cacheFile := fc.path(key)
	tmpFile := cacheFile + ".tmp"
	if err := os.WriteFile(tmpFile, jsonData, 0644); err != nil {
		return fmt.Errorf("failed to write temp cache file: %w", err)
	}
	if err := os.Rename(tmpFile, cacheFile); err != nil {
		os.Remove(tmpFile)
		return fmt.Errorf("failed to rename temp cache file: %w", err)
	}
	return nil
}

func (fc *FileCache[T]) Delete(key string) error {
	if err := os.Remove(fc.path(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}
	return nil
}

func (fc *FileCache[T]) calculateChecksum(data T) string {
	jsonData, _ := json.Marshal(data)
	hash := md5.Sum(jsonData)
	return hex.EncodeToString(hash[:])
}
