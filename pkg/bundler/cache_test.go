package bundler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDiskCachePutGet(t *testing.T) {
	dir := t.TempDir()
	c, err := NewDiskCache(dir, time.Hour, 0)
	require.NoError(t, err)

	bundle := WorkflowBundle{Code: "console.log(1)", Metadata: Metadata{Backend: "backend-e"}}
	c.Put("key1", bundle)

	got, ok := c.Get("key1")
	require.True(t, ok)
	require.Equal(t, bundle.Code, got.Code)
}

func TestDiskCacheMiss(t *testing.T) {
	dir := t.TempDir()
	c, err := NewDiskCache(dir, time.Hour, 0)
	require.NoError(t, err)

	_, ok := c.Get("absent")
	require.False(t, ok)
}

func TestDiskCacheTTLExpiry(t *testing.T) {
	dir := t.TempDir()
	c, err := NewDiskCache(dir, time.Millisecond, 0)
	require.NoError(t, err)

	c.Put("key1", WorkflowBundle{Code: "x"})
	time.Sleep(10 * time.Millisecond)

	_, ok := c.Get("key1")
	require.False(t, ok, "stale entry must be treated as a miss")
}

func TestDiskCacheSizeBoundEviction(t *testing.T) {
	dir := t.TempDir()
	c, err := NewDiskCache(dir, time.Hour, 10)
	require.NoError(t, err)

	c.Put("key1", WorkflowBundle{Code: "aaaaaaaaaaaaaaaaaaaa"})
	time.Sleep(5 * time.Millisecond)
	c.Put("key2", WorkflowBundle{Code: "bbbbbbbbbbbbbbbbbbbb"})

	_, ok1 := c.Get("key1")
	_, ok2 := c.Get("key2")
	require.False(t, ok1 && ok2, "total cache size must stay bounded, evicting the oldest entry")
}

func TestDiskCacheCorruptEntryIsMiss(t *testing.T) {
	dir := t.TempDir()
	c, err := NewDiskCache(dir, time.Hour, 0)
	require.NoError(t, err)

	writeTemp(t, dir, "corrupt-key", "not a valid cache entry")

	_, ok := c.Get("corrupt-key")
	require.False(t, ok)
}
