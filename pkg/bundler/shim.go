package bundler

import (
	"regexp"
	"strings"
)

// moduleCacheIdentifier and namespaceIdentifier are fixed by the Worker
// runtime contract and must be used literally.
const (
	moduleCacheIdentifier = "__MODULE_CACHE__"
	namespaceIdentifier   = "__WORKFLOW_NAMESPACE__"
)

// sourceMappingURLRe matches a trailing //# or /*# sourceMappingURL
// directive, in either line-comment or block-comment form.
var sourceMappingURLRe = regexp.MustCompile(`(?s)(//# sourceMappingURL=[^\n]*|/\*# sourceMappingURL=.*?\*/)\s*$`)

// ApplyOutputShim performs the post-processing step,
// uniformly regardless of which backend produced raw.
func ApplyOutputShim(raw, namespace string) string {
	body, directive := extractTrailingSourceMapDirective(raw)

	var b strings.Builder
	b.WriteString("(function() {\n")
	b.WriteString("  var __global = (function() { return this; })() || globalThis;\n")
	b.WriteString("  if (!__global." + moduleCacheIdentifier + ") { __global." + moduleCacheIdentifier + " = {}; }\n")
	b.WriteString("  var module = { exports: {} };\n")
	b.WriteString("  var exports = module.exports;\n\n")
	b.WriteString(body)
	b.WriteString("\n\n")
	b.WriteString("  globalThis." + namespaceIdentifier + " = module.exports;\n")
	b.WriteString("})();\n")

	out := b.String()
	if directive != "" {
		out += directive
	}
	return out
}

// extractTrailingSourceMapDirective removes the last non-whitespace
// sourceMappingURL directive from code, if present, returning the
// remainder and the directive text separately.
func extractTrailingSourceMapDirective(code string) (body, directive string) {
	trimmed := strings.TrimRight(code, " \t\r\n")
	loc := sourceMappingURLRe.FindStringIndex(trimmed)
	if loc == nil {
		return code, ""
	}
	return trimmed[:loc[0]], trimmed[loc[0]:]
}

// ValidateShimmedOutput checks the invariant names: the
// script contains both the module-cache identifier and the namespace
// identifier.
func ValidateShimmedOutput(code string) bool {
	return strings.Contains(code, moduleCacheIdentifier) && strings.Contains(code, namespaceIdentifier)
}
