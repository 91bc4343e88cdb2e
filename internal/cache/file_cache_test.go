package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type point struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}

func TestFileCacheRoundTrip(t *testing.T) {
	fc := NewFileCacheAt[[]point](t.TempDir(), 0)
	key := fc.GenerateKey("Squareland", "MOD13A1", 10)

	_, ok := fc.Get(key)
	assert.False(t, ok)

	require.NoError(t, fc.Set(key, []point{{"2023-01-01", 0.5}}))
	got, ok := fc.Get(key)
	require.True(t, ok)
	assert.Equal(t, []point{{"2023-01-01", 0.5}}, got)

	require.NoError(t, fc.Delete(key))
	_, ok = fc.Get(key)
	assert.False(t, ok)
	assert.NoError(t, fc.Delete(key))
}

func TestFileCacheRejectsTamperedEntry(t *testing.T) {
	dir := t.TempDir()
	fc := NewFileCacheAt[point](dir, 0)
	require.NoError(t, fc.Set("k", point{"2023-01-01", 1}))

	tampered := `{"data":{"date":"2023-01-01","value":2},"created_at":"2023-01-01T00:00:00Z","checksum":"x"}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "k.json"), []byte(tampered), 0644))

	_, ok := fc.Get("k")
	assert.False(t, ok)
}

func TestFileCacheExpires(t *testing.T) {
	fc := NewFileCacheAt[point](t.TempDir(), time.Nanosecond)
	require.NoError(t, fc.Set("k", point{"2023-01-01", 1}))
	time.Sleep(time.Millisecond)

	_, ok := fc.Get("k")
	assert.False(t, ok)
}

func TestGenerateKeyIsStable(t *testing.T) {
	fc := NewFileCacheAt[point](t.TempDir(), 0)
	assert.Equal(t, fc.GenerateKey("a", 1), fc.GenerateKey("a", 1))
	assert.NotEqual(t, fc.GenerateKey("a", 1), fc.GenerateKey("a", 2))
}
