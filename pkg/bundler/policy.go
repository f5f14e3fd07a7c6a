package bundler

import "strings"

// Alternative is a replay-safe replacement for a forbidden API. Every forbidden entry that corresponds to a
// user-writable API carries one.
type Alternative struct {
	Replacement string `json:"replacement"`
	ImportFrom  string `json:"importFrom"`
	Reason      string `json:"reason"`
	Example     string `json:"example,omitempty"`
}

// Classification is the outcome of classifying a specifier against the
// DeterminismPolicy.
type Classification int

const (
	ClassAllowed Classification = iota
	ClassAllowedStub
	ClassForbidden
)

// policyEntry pairs a forbidden specifier with its alternative, if any.
type policyEntry struct {
	alt *Alternative
}

// DeterminismPolicy is the static catalog of forbidden modules,
// allowed-builtin stubs, and alternatives.
// It is a constant at build time: Policy is the single shared instance.
type DeterminismPolicy struct {
	forbidden      map[string]policyEntry
	allowedBuiltin map[string]bool
}

// Policy is the authoritative, immutable catalog used by every build.
var Policy = newDeterminismPolicy()

func newDeterminismPolicy() *DeterminismPolicy {
	p := &DeterminismPolicy{
		forbidden:      make(map[string]policyEntry),
		allowedBuiltin: make(map[string]bool),
	}

	forbid := func(specifier string, alt *Alternative) {
		p.forbidden[specifier] = policyEntry{alt: alt}
	}

	// File system: breaks replay because the sandboxed isolate has no
	// durable, deterministic disk.
	forbid("fs", &Alternative{
		Replacement: "ActivityOptions-backed file access",
		ImportFrom:  "workflow-sdk/workflow",
		Reason:      "file system access is not replay-safe; perform it in an activity",
		Example:     "const data = await proxyActivities().readFile(path)",
	})
	forbid("fs/promises", &Alternative{
		Replacement: "ActivityOptions-backed file access",
		ImportFrom:  "workflow-sdk/workflow",
		Reason:      "file system access is not replay-safe; perform it in an activity",
	})

	// Process / child process: breaks replay via non-deterministic,
	// externally-visible side effects.
	forbid("child_process", &Alternative{
		Replacement: "an activity",
		ImportFrom:  "workflow-sdk/workflow",
		Reason:      "spawning processes is not replay-safe",
	})

	// Network: breaks replay because responses vary between runs.
	for _, net := range []string{"net", "http", "https", "http2", "dgram", "dns", "tls"} {
		forbid(net, &Alternative{
			Replacement: "an activity",
			ImportFrom:  "workflow-sdk/workflow",
			Reason:      "network I/O is not replay-safe; perform it in an activity and pass the result back",
		})
	}

	// Native timers: breaks replay because wall-clock timing varies.
	forbid("timers", &Alternative{
		Replacement: "sleep()",
		ImportFrom:  "workflow-sdk/workflow",
		Reason:      "native timers are not replay-safe; use the workflow's deterministic timer",
		Example:     "await sleep('1 minute')",
	})
	forbid("timers/promises", &Alternative{
		Replacement: "sleep()",
		ImportFrom:  "workflow-sdk/workflow",
		Reason:      "native timers are not replay-safe; use the workflow's deterministic timer",
	})

	// Non-seeded randomness and wall-clock time.
	forbid("crypto", &Alternative{
		Replacement: "workflow-safe random helpers",
		ImportFrom:  "workflow-sdk/workflow",
		Reason:      "crypto.randomBytes and friends are not seeded deterministically across replay",
	})

	// Worker-thread style concurrency primitives the isolate cannot host.
	forbid("worker_threads", nil)
	forbid("cluster", nil)
	forbid("vm", nil)

	// Runtime-builtins the Worker provides bundled forms for: represented
	// as an empty-exports virtual module, never by string substitution.
	for _, builtin := range []string{"assert", "buffer", "events", "path", "querystring", "stream", "string_decoder", "url", "util"} {
		p.allowedBuiltin[builtin] = true
	}

	return p
}

// normalizeSpecifier strips a "node:" prefix so it compares equal to its
// bare equivalent, and trims any query string or fragment.
func normalizeSpecifier(specifier string) string {
	s := specifier
	if idx := strings.IndexAny(s, "?#"); idx >= 0 {
		s = s[:idx]
	}
	s = strings.TrimPrefix(s, "node:")
	return s
}

// classify resolves a specifier to allowed, allowed-stub, or
// forbidden(alt?).
func (p *DeterminismPolicy) classify(specifier string) (Classification, *Alternative) {
	norm := normalizeSpecifier(specifier)

	if entry, ok := p.forbidden[norm]; ok {
		return ClassForbidden, entry.alt
	}
	if p.allowedBuiltin[norm] {
		return ClassAllowedStub, nil
	}
	return ClassAllowed, nil
}

// alternativeFor looks up an alternative by exact key, then by substring
// fallback, for consumers outside the classify() fast path.
func (p *DeterminismPolicy) alternativeFor(specifier string) *Alternative {
	norm := normalizeSpecifier(specifier)
	if entry, ok := p.forbidden[norm]; ok {
		return entry.alt
	}
	for key, entry := range p.forbidden {
		if strings.Contains(norm, key) && entry.alt != nil {
			return entry.alt
		}
	}
	return nil
}

// isForbidden reports whether a raw specifier is on the deny list, for
// callers that only need a yes/no answer.
func (p *DeterminismPolicy) isForbidden(specifier string) bool {
	cls, _ := p.classify(specifier)
	return cls == ClassForbidden
}
