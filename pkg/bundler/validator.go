package bundler

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// ValidationResult is the output of ValidateBundle.
type ValidationResult struct {
	Valid    bool
	Errors   []string
	Warnings []string
	Metadata *Metadata
}

// ValidateBundle implements the two-level Bundle Validator: structural
// (required identifiers present) and, if metadata is embedded, semantic
// (SDK/bundler version major.minor comparison). strict upgrades a
// semantic mismatch from warning to error.
func ValidateBundle(code string, expectedSdkVersion, expectedBundlerVersion string, strict bool) ValidationResult {
	var result ValidationResult
	result.Valid = true

	if !ValidateShimmedOutput(code) {
		result.Valid = false
		result.Errors = append(result.Errors, "bundle is missing one or both required runtime identifiers")
	}

	meta, found := recoverMetadataHeader(code)
	if !found {
		result.Warnings = append(result.Warnings, "validation skipped: no embedded metadata")
		return result
	}
	result.Metadata = &meta

	if expectedSdkVersion != "" {
		checkVersion("sdk", meta.SdkVersion, expectedSdkVersion, strict, &result)
	}
	if expectedBundlerVersion != "" {
		checkVersion("bundler", meta.BundlerVersion, expectedBundlerVersion, strict, &result)
	}

	return result
}

func checkVersion(label, actual, expected string, strict bool, result *ValidationResult) {
	if actual == "" {
		return
	}
	same, err := sameMajorMinor(actual, expected)
	if err != nil {
		result.Warnings = append(result.Warnings, fmt.Sprintf("%s version %q could not be parsed: %v", label, actual, err))
		return
	}
	if same {
		return
	}
	msg := label + " version " + actual + " does not match expected " + expected + " at major.minor"
	if strict {
		result.Valid = false
		result.Errors = append(result.Errors, msg)
	} else {
		result.Warnings = append(result.Warnings, msg)
	}
}

func sameMajorMinor(actual, expected string) (bool, error) {
	a, err := semver.NewVersion(actual)
	if err != nil {
		return false, err
	}
	e, err := semver.NewVersion(expected)
	if err != nil {
		return false, err
	}
	return a.Major() == e.Major() && a.Minor() == e.Minor(), nil
}

// recoverMetadataHeader extracts the embedded metadata JSON comment block
// by matching its sentinel prefix.
func recoverMetadataHeader(code string) (Metadata, bool) {
	start := strings.Index(code, metadataSentinel)
	if start < 0 {
		return Metadata{}, false
	}
	blockStart := strings.Index(code[start:], "{")
	if blockStart < 0 {
		return Metadata{}, false
	}
	blockStart += start

	end := findMatchingBrace(code, blockStart)
	if end < 0 {
		return Metadata{}, false
	}

	return parseMetadata(code[blockStart : end+1])
}

// findMatchingBrace returns the index of the "}" matching the "{" at
// open, or -1 if unbalanced.
func findMatchingBrace(s string, open int) int {
	depth := 0
	for i := open; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
