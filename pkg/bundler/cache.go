package bundler

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/replaybuild/wfbundle/internal/logger"
)

var cacheLog = logger.New("wfbundle:cache")

// cacheMagic tags a cache entry file so stray files in the cache
// directory are never misread as entries.
var cacheMagic = [4]byte{'W', 'F', 'B', '1'}

// cachePayload is the JSON body stored after the binary header.
type cachePayload struct {
	Code      string   `json:"code"`
	SourceMap string   `json:"sourceMap"`
	Metadata  Metadata `json:"metadata"`
}

// DiskCache implements the Disk Cache: one directory, one
// file per entry, a fixed 13-byte binary header followed by JSON payload,
// TTL-checked on every get, size-bounded eviction on every put. The cache
// is advisory: any I/O or decode failure degrades silently to a miss, it
// never fails a build.
type DiskCache struct {
	dir      string
	ttl      time.Duration
	maxBytes int64
}

// NewDiskCache opens (creating if absent) a cache directory bounded by
// ttl and maxBytes.
func NewDiskCache(dir string, ttl time.Duration, maxBytes int64) (*DiskCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &DiskCache{dir: dir, ttl: ttl, maxBytes: maxBytes}, nil
}

func (c *DiskCache) entryPath(key string) string {
	return filepath.Join(c.dir, key)
}

// Get returns the cached bundle for key, false if absent, stale, or
// unreadable. A stale entry is deleted as a side effect.
func (c *DiskCache) Get(key string) (WorkflowBundle, bool) {
	path := c.entryPath(key)

	data, err := os.ReadFile(path)
	if err != nil {
		return WorkflowBundle{}, false
	}

	createdAtMs, payload, ok := decodeEntry(data)
	if !ok {
		cacheLog.Printf("cache entry %s is corrupt, treating as miss", key)
		_ = os.Remove(path)
		return WorkflowBundle{}, false
	}

	age := time.Since(time.UnixMilli(createdAtMs))
	if c.ttl > 0 && age > c.ttl {
		cacheLog.Printf("cache entry %s expired (age %s)", key, age)
		_ = os.Remove(path)
		return WorkflowBundle{}, false
	}

	return WorkflowBundle{Code: payload.Code, SourceMap: payload.SourceMap, Metadata: payload.Metadata}, true
}

// Put stores bundle under key, then evicts oldest entries until the
// directory is within maxBytes.
func (c *DiskCache) Put(key string, bundle WorkflowBundle) {
	payload := cachePayload{Code: bundle.Code, SourceMap: bundle.SourceMap, Metadata: bundle.Metadata}
	body, err := json.Marshal(payload)
	if err != nil {
		cacheLog.Printf("cannot marshal cache entry %s: %v", key, err)
		return
	}

	createdAtMs := time.Now().UnixMilli()
	entry := encodeEntry(createdAtMs, body)

	tmp, err := os.CreateTemp(c.dir, "tmp-*")
	if err != nil {
		cacheLog.Printf("cannot create temp cache file: %v", err)
		return
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(entry); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		cacheLog.Printf("cannot write cache entry %s: %v", key, err)
		return
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return
	}

	if err := os.Rename(tmpPath, c.entryPath(key)); err != nil {
		os.Remove(tmpPath)
		cacheLog.Printf("cannot finalize cache entry %s: %v", key, err)
		return
	}

	c.evict()
}

// evict scans the directory and deletes the smallest-createdAtMs entries
// until total size is within maxBytes.
func (c *DiskCache) evict() {
	if c.maxBytes <= 0 {
		return
	}

	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return
	}

	type entryInfo struct {
		path        string
		size        int64
		createdAtMs int64
	}

	var infos []entryInfo
	var total int64
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		full := filepath.Join(c.dir, e.Name())
		data, err := os.ReadFile(full)
		if err != nil {
			continue
		}
		createdAtMs, _, ok := decodeEntry(data)
		if !ok {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		infos = append(infos, entryInfo{path: full, size: info.Size(), createdAtMs: createdAtMs})
		total += info.Size()
	}

	if total <= c.maxBytes {
		return
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].createdAtMs < infos[j].createdAtMs })

	for _, info := range infos {
		if total <= c.maxBytes {
			break
		}
		if err := os.Remove(info.path); err == nil {
			total -= info.size
		}
	}
}

// encodeEntry writes the fixed binary header: magic(4) | version(1) |
// createdAtMs(8) | payload. The header carries no length prefix and no
// sizeBytes field; evict takes entry sizes from the file system.
func encodeEntry(createdAtMs int64, payload []byte) []byte {
	var buf bytes.Buffer
	buf.Write(cacheMagic[:])
	buf.WriteByte(1)
	var createdBuf [8]byte
	binary.BigEndian.PutUint64(createdBuf[:], uint64(createdAtMs))
	buf.Write(createdBuf[:])
	buf.Write(payload)
	return buf.Bytes()
}

func decodeEntry(data []byte) (createdAtMs int64, payload cachePayload, ok bool) {
	const headerLen = 4 + 1 + 8
	if len(data) < headerLen {
		return 0, cachePayload{}, false
	}
	if !bytes.Equal(data[:4], cacheMagic[:]) {
		return 0, cachePayload{}, false
	}
	version := data[4]
	if version != 1 {
		return 0, cachePayload{}, false
	}
	created := int64(binary.BigEndian.Uint64(data[5:13]))

	var p cachePayload
	if err := json.Unmarshal(data[headerLen:], &p); err != nil {
		return 0, cachePayload{}, false
	}
	return created, p, true
}
