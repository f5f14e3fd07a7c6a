package bundler

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sourcegraph/conc/pool"
)

// fileDigest is one input's contribution to the content hash: its path
// normalized relative to the project root, its size, and its own
// SHA-256, computed concurrently across inputs then folded in
// deterministic, sorted order.
type fileDigest struct {
	relPath string
	size    int64
	sum     [32]byte
}

// manifestLookup resolves a file path to its nearest owning package
// manifest's (name, version), used to substitute a stable identity for
// third-party modules instead of hashing their content.
type manifestLookup func(path string) (name, version string, isThirdParty bool)

// HashInputs folds every input file's digest into one deterministic
// content hash. paths are absolute file paths reachable from the
// entrypoint; projectRoot anchors relativization so the digest is
// machine-independent. Files are digested
// concurrently; the fold into the final running hash is always in sorted
// relPath order so the result never depends on goroutine scheduling.
func HashInputs(paths []string, projectRoot string, lookup manifestLookup) (string, error) {
	p := pool.NewWithResults[fileDigest]().WithMaxGoroutines(8).WithErrors()
	for _, path := range paths {
		path := path
		p.Go(func() (fileDigest, error) {
			return digestOne(path, projectRoot, lookup)
		})
	}

	digests, err := p.Wait()
	if err != nil {
		return "", newBundleError(CodeBuildFailed, "content hashing failed", nil, err)
	}

	sort.Slice(digests, func(i, j int) bool { return digests[i].relPath < digests[j].relPath })

	h := sha256.New()
	sizeBuf := make([]byte, 8)
	for _, d := range digests {
		h.Write([]byte(d.relPath))
		h.Write([]byte{0})
		binary.BigEndian.PutUint64(sizeBuf, uint64(d.size))
		h.Write(sizeBuf)
		h.Write(d.sum[:])
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

func digestOne(path, projectRoot string, lookup manifestLookup) (fileDigest, error) {
	rel, err := filepath.Rel(projectRoot, path)
	if err != nil {
		rel = path
	}
	rel = filepath.ToSlash(rel)

	if lookup != nil {
		if name, version, ok := lookup(path); ok {
			identity := name + "@" + version
			sum := sha256.Sum256([]byte(identity))
			return fileDigest{relPath: rel, size: int64(len(identity)), sum: sum}, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fileDigest{}, err
	}
	return fileDigest{relPath: rel, size: int64(len(data)), sum: sha256.Sum256(data)}, nil
}

// nearestManifest walks upward from path's directory looking for a
// package.json, returning its "name" and "version" fields. It only
// activates under node_modules, so first/third-party project sources are
// still hashed by content. Used as the default manifestLookup when the
// caller does not supply one.
func nearestManifest(path string) (name, version string, isThirdParty bool) {
	if !strings.Contains(filepath.ToSlash(path), "/node_modules/") {
		return "", "", false
	}
	dir := filepath.Dir(path)
	for depth := 0; depth < 8; depth++ {
		candidate := filepath.Join(dir, "package.json")
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			if n, v, ok := readPackageJSON(candidate); ok {
				return n, v, true
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", "", false
}

func readPackageJSON(path string) (name, version string, ok bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", false
	}
	var parsed struct {
		Name    string `json:"name"`
		Version string `json:"version"`
	}
	if err := json.Unmarshal(data, &parsed); err != nil || parsed.Name == "" {
		return "", "", false
	}
	return parsed.Name, parsed.Version, true
}
