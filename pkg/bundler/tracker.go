package bundler

import "sync"

// ResolveKind enumerates how a specifier was classified during resolution.
type ResolveKind string

const (
	KindEntry        ResolveKind = "entry"
	KindBareRuntime  ResolveKind = "bare-runtime"
	KindBarePackage  ResolveKind = "bare-package"
	KindRelative     ResolveKind = "relative"
	KindAbsolute     ResolveKind = "absolute"
	KindAliased      ResolveKind = "aliased"
	KindStubIgnored  ResolveKind = "stub-ignored"
	KindForbidden    ResolveKind = "forbidden"
)

// edge is one observed (specifier, importer) -> resolvedPath resolution.
type edge struct {
	specifier    string
	resolvedPath string
	kind         ResolveKind
}

// Tracker records the graph of specifier -> importer edges seen during a
// single build's resolution, so a forbidden specifier's path back to the
// synthetic entrypoint can be reconstructed.
//
// It is per-build and safe for concurrent use: the backends invoke resolve
// callbacks from however many goroutines they please.
type Tracker struct {
	mu sync.Mutex
	// forward maps an importer path to every edge it produced.
	forward map[string][]edge
	// reverse maps a resolved path to the importers that reached it.
	reverse map[string][]string
	entry   string
}

// NewTracker creates a tracker rooted at the synthetic entrypoint path.
func NewTracker(entrypointPath string) *Tracker {
	return &Tracker{
		forward: make(map[string][]edge),
		reverse: make(map[string][]string),
		entry:   entrypointPath,
	}
}

// Record adds one resolution edge: importer resolved specifier to
// resolvedPath (a virtual path for stub and forbidden modules, empty for a
// bare specifier left to the backend's own resolution).
func (t *Tracker) Record(importer, specifier, resolvedPath string, kind ResolveKind) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.forward[importer] = append(t.forward[importer], edge{
		specifier:    specifier,
		resolvedPath: resolvedPath,
		kind:         kind,
	})

	if resolvedPath != "" {
		t.reverse[resolvedPath] = appendUnique(t.reverse[resolvedPath], importer)
	}
}

func appendUnique(list []string, v string) []string {
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}

// ChainTo performs a BFS over the reverse index starting at target,
// returning the shortest importer chain from the synthetic entrypoint to
// target. The returned chain always
// begins with the entrypoint and ends with target; nil if target is
// unreachable from the entrypoint.
func (t *Tracker) ChainTo(target string) []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	if target == t.entry {
		return []string{t.entry}
	}

	type queueItem struct {
		path      string
		pathChain []string
	}

	visited := map[string]bool{target: true}
	queue := []queueItem{{path: target, pathChain: []string{target}}}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		for _, importer := range t.reverse[cur.path] {
			if importer == t.entry {
				chain := append([]string{t.entry}, reverseStrings(cur.pathChain)...)
				return chain
			}
			if visited[importer] {
				continue
			}
			visited[importer] = true
			nextChain := append(append([]string{}, cur.pathChain...), importer)
			queue = append(queue, queueItem{path: importer, pathChain: nextChain})
		}
	}

	return nil
}

func reverseStrings(in []string) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[len(in)-1-i] = v
	}
	return out
}

// AllResolvedPaths returns every distinct path the tracker observed, either
// as an importer or as a resolved path (virtual stub and forbidden paths
// included). stubWarnings scans it for stubbed modules.
func (t *Tracker) AllResolvedPaths() []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	seen := make(map[string]bool)
	var out []string
	for importer, edges := range t.forward {
		if importer != "" {
			seen[importer] = true
		}
		for _, e := range edges {
			if e.resolvedPath != "" && !seen[e.resolvedPath] {
				seen[e.resolvedPath] = true
				out = append(out, e.resolvedPath)
			}
		}
	}
	for path := range seen {
		found := false
		for _, existing := range out {
			if existing == path {
				found = true
				break
			}
		}
		if !found {
			out = append(out, path)
		}
	}
	return out
}
