package bundler

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

// stabilizeWorkflowNamesSnippet is inlined verbatim into every synthetic
// entrypoint. It must run inside the Worker's isolate, not in this process,
// because it operates on the bundled user module at runtime.
const stabilizeWorkflowNamesSnippet = `function __stabilizeWorkflowNames(mod) {
  const out = {};
  for (const key of Object.keys(mod)) {
    const value = mod[key];
    if (typeof value === 'function') {
      Object.defineProperty(value, 'name', { value: key, writable: false, configurable: true });
      out[key] = value;
    } else {
      out[key] = value;
    }
  }
  return out;
}`

// SynthesizeEntrypoint emits the CommonJS module string the backend
// bundles as the graph root: worker-interface exports, global-overrides
// install, and importWorkflows()/importInterceptors() wiring. opts must
// already be normalized (absolute paths, deduplicated interceptors).
func SynthesizeEntrypoint(opts BundleOptions) string {
	var b strings.Builder

	b.WriteString("'use strict';\n\n")
	b.WriteString(stabilizeWorkflowNamesSnippet)
	b.WriteString("\n\n")

	// 1. worker-interface helper bound to exports.api.
	b.WriteString("const __workerInterface = require('__workflow_sdk_worker_interface__');\n")
	b.WriteString("exports.api = __workerInterface;\n\n")

	// 2. global-overrides install, before any user code is touched.
	b.WriteString("const __globalOverrides = require('__workflow_sdk_global_overrides__');\n")
	b.WriteString("__globalOverrides.overrideGlobals();\n\n")

	// 3. importWorkflows().
	fmt.Fprintf(&b, "exports.importWorkflows = function importWorkflows() {\n  return __stabilizeWorkflowNames(require(%s));\n};\n\n", jsStringLiteral(opts.WorkflowsPath))

	// 4. importInterceptors(): concatenated interceptor arrays.
	b.WriteString("exports.importInterceptors = function importInterceptors() {\n")
	if len(opts.WorkflowInterceptorModules) == 0 {
		b.WriteString("  return [];\n")
	} else {
		b.WriteString("  return [].concat(\n")
		for i, mod := range opts.WorkflowInterceptorModules {
			comma := ","
			if i == len(opts.WorkflowInterceptorModules)-1 {
				comma = ""
			}
			fmt.Fprintf(&b, "    require(%s)%s\n", jsStringLiteral(mod), comma)
		}
		b.WriteString("  );\n")
	}
	b.WriteString("};\n")

	return b.String()
}

// jsStringLiteral renders a Go string as a double-quoted JS string literal,
// using strconv.Quote which is equivalent to JSON/JS string escaping for
// the path inputs this function receives.
func jsStringLiteral(s string) string {
	return strconv.Quote(s)
}

// HashEntrypoint is a pure function of workflowsPath and the
// deduplicated, order-preserved interceptor list, producing the
// 16-hex-character digest used as a cache key and in diagnostics. opts
// must already be normalized.
func HashEntrypoint(opts BundleOptions) string {
	h := sha256.New()
	h.Write([]byte(opts.WorkflowsPath))
	h.Write([]byte{0})
	for _, m := range opts.WorkflowInterceptorModules {
		h.Write([]byte(m))
		h.Write([]byte{0})
	}
	sum := h.Sum(nil)
	return hex.EncodeToString(sum)[:16]
}
