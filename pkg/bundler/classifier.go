package bundler

import "strings"

// ClassifierDecision is the outcome the Specifier Classifier hands back to
// a backend's resolver plugin.
type ClassifierDecision int

const (
	// DecisionPassThrough means the specifier is relative/absolute and the
	// backend's own resolver should handle it unmodified.
	DecisionPassThrough ClassifierDecision = iota
	// DecisionStub means the specifier resolves to an empty-exports
	// virtual module (ignored or allowed-builtin).
	DecisionStub
	// DecisionForbidden means the specifier is on the deny list.
	DecisionForbidden
	// DecisionDefer means the specifier is a bare package specifier that
	// the backend/node resolution strategy should resolve normally.
	DecisionDefer
)

// Verdict is the classifier's decision for one specifier plus whatever
// context a caller needs to act on it.
type Verdict struct {
	Decision    ClassifierDecision
	Alternative *Alternative
	StubReason  string // "ignored" or "allowed-builtin"
}

// Classifier normalizes raw import strings and classifies them against
// the DeterminismPolicy and a per-build ignore list.
type Classifier struct {
	policy        *DeterminismPolicy
	ignoreModules map[string]bool
}

// NewClassifier builds a classifier for one build's ignoreModules set.
func NewClassifier(policy *DeterminismPolicy, ignoreModules []string) *Classifier {
	ignore := make(map[string]bool, len(ignoreModules))
	for _, m := range ignoreModules {
		ignore[normalizeSpecifier(m)] = true
	}
	return &Classifier{policy: policy, ignoreModules: ignore}
}

// isRelativeOrAbsolute reports whether specifier is a relative ("./",
// "../") or absolute ("/", or a Windows drive letter) path rather than a
// bare module specifier.
func isRelativeOrAbsolute(specifier string) bool {
	if strings.HasPrefix(specifier, "./") || strings.HasPrefix(specifier, "../") {
		return true
	}
	if strings.HasPrefix(specifier, "/") {
		return true
	}
	if len(specifier) >= 3 && specifier[1] == ':' && (specifier[2] == '\\' || specifier[2] == '/') {
		return true
	}
	return false
}

// Classify applies the specifier decision tree. eraseable marks a
// type-only import specifier (erased at compile time by the backend's
// TypeScript transform); such specifiers bypass the forbidden and
// allowed-builtin checks entirely.
func (c *Classifier) Classify(specifier string, eraseable bool) Verdict {
	if isRelativeOrAbsolute(specifier) {
		return Verdict{Decision: DecisionPassThrough}
	}

	norm := normalizeSpecifier(specifier)

	if c.ignoreModules[norm] {
		return Verdict{Decision: DecisionStub, StubReason: "ignored"}
	}

	if eraseable {
		return Verdict{Decision: DecisionDefer}
	}

	cls, alt := c.policy.classify(specifier)
	switch cls {
	case ClassForbidden:
		return Verdict{Decision: DecisionForbidden, Alternative: alt}
	case ClassAllowedStub:
		return Verdict{Decision: DecisionStub, StubReason: "allowed-builtin"}
	default:
		return Verdict{Decision: DecisionDefer}
	}
}

// KindFor maps a classifier verdict (plus whether the specifier turned out
// to be relative/bare-package) to the ResolutionRecord kind the tracker
// should record.
func KindFor(specifier string, v Verdict) ResolveKind {
	if isRelativeOrAbsolute(specifier) {
		if strings.HasPrefix(specifier, "/") {
			return KindAbsolute
		}
		return KindRelative
	}
	switch v.Decision {
	case DecisionStub:
		if v.StubReason == "ignored" {
			return KindStubIgnored
		}
		return KindBareRuntime
	case DecisionForbidden:
		return KindForbidden
	default:
		return KindBarePackage
	}
}
