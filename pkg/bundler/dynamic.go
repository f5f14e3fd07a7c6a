package bundler

import "regexp"

// dynamicCallRe matches a require(...) or import(...) call whose
// argument does not begin with a quote: a specifier built from a
// variable or expression rather than a literal, which neither backend
// can resolve statically. A literal-argument import()/require() is not
// matched here; those go through the ordinary specifier resolution
// path.
var dynamicCallRe = regexp.MustCompile(`\b(?:require|import)\s*\(\s*[^'"\s)][^)]*\)`)

// detectDynamicImport reports the first non-static require/import call
// found in code, if any, for use in a DYNAMIC_IMPORT diagnostic.
func detectDynamicImport(code string) (string, bool) {
	match := dynamicCallRe.FindString(code)
	if match == "" {
		return "", false
	}
	return match, true
}
