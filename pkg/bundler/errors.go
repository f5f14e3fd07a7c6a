package bundler

import (
	"fmt"
	"strings"
)

// Code is the machine-readable error taxonomy
type Code string

const (
	CodeConfigInvalid      Code = "CONFIG_INVALID"
	CodeEntrypointNotFound Code = "ENTRYPOINT_NOT_FOUND"
	CodeForbiddenModules   Code = "FORBIDDEN_MODULES"
	CodeIgnoredModuleUsed  Code = "IGNORED_MODULE_USED"
	CodeResolutionFailed   Code = "RESOLUTION_FAILED"
	CodeDynamicImport      Code = "DYNAMIC_IMPORT"
	CodeBuildFailed        Code = "BUILD_FAILED"
)

// BundleError is the structured error type every public API boundary in
// this module returns instead of a bare error.
type BundleError struct {
	Code    Code
	Message string
	Context map[string]any
	Cause   error
}

func newBundleError(code Code, message string, context map[string]any, cause error) *BundleError {
	return &BundleError{Code: code, Message: message, Context: context, Cause: cause}
}

// Error implements the error interface.
func (e *BundleError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", e.Code, e.Message)
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	return b.String()
}

// Unwrap exposes the wrapped cause for errors.Is/errors.As.
func (e *BundleError) Unwrap() error { return e.Cause }

// Offender describes one forbidden-module hit for FORBIDDEN_MODULES
// context, carrying its dependency chain and a suggested alternative.
type Offender struct {
	Specifier   string       `json:"specifier"`
	Chain       []string     `json:"chain"`
	Alternative *Alternative `json:"alternative,omitempty"`
}

// Diagnose renders a BundleError as a human-readable, chain-and-alternative
// diagnostic, separate from the machine-readable Code/Context callers
// can match on programmatically.
func Diagnose(err *BundleError) string {
	if err == nil {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s\n", err.Code, err.Message)

	if offenders, ok := err.Context["offenders"].([]Offender); ok {
		for _, o := range offenders {
			fmt.Fprintf(&b, "\n  forbidden module: %s\n", o.Specifier)
			if len(o.Chain) > 0 {
				fmt.Fprintf(&b, "  chain: %s\n", strings.Join(o.Chain, " -> "))
			}
			if o.Alternative != nil {
				fmt.Fprintf(&b, "  use instead: import from %q (%s)\n", o.Alternative.ImportFrom, o.Alternative.Reason)
				if o.Alternative.Example != "" {
					fmt.Fprintf(&b, "  example: %s\n", o.Alternative.Example)
				}
			}
		}
	}

	if err.Cause != nil {
		fmt.Fprintf(&b, "\ncaused by: %v\n", err.Cause)
	}

	return b.String()
}
