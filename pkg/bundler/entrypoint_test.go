package bundler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSynthesizeEntrypointOrdering(t *testing.T) {
	opts := BundleOptions{
		WorkflowsPath:              "/abs/workflows.ts",
		WorkflowInterceptorModules: []string{"/abs/i1.ts", "/abs/i2.ts"},
	}
	code := SynthesizeEntrypoint(opts)

	apiIdx := indexOf(code, "exports.api")
	overridesIdx := indexOf(code, "overrideGlobals()")
	workflowsIdx := indexOf(code, "exports.importWorkflows")
	interceptorsIdx := indexOf(code, "exports.importInterceptors")

	require.True(t, apiIdx >= 0 && overridesIdx >= 0 && workflowsIdx >= 0 && interceptorsIdx >= 0)
	assert.Less(t, apiIdx, overridesIdx)
	assert.Less(t, overridesIdx, workflowsIdx)
	assert.Less(t, workflowsIdx, interceptorsIdx)

	assert.Contains(t, code, `require("/abs/i1.ts")`)
	assert.Contains(t, code, `require("/abs/i2.ts")`)
	assert.Contains(t, code, "__stabilizeWorkflowNames")
}

func TestSynthesizeEntrypointNoInterceptors(t *testing.T) {
	opts := BundleOptions{WorkflowsPath: "/abs/workflows.ts"}
	code := SynthesizeEntrypoint(opts)
	assert.Contains(t, code, "return [];")
}

func TestHashEntrypointPureFunction(t *testing.T) {
	opts := BundleOptions{WorkflowsPath: "/abs/workflows.ts", WorkflowInterceptorModules: []string{"/abs/i1.ts"}}
	h1 := HashEntrypoint(opts)
	h2 := HashEntrypoint(opts)
	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 16)
}

func TestHashEntrypointSensitiveToInterceptorOrder(t *testing.T) {
	a := BundleOptions{WorkflowsPath: "/abs/w.ts", WorkflowInterceptorModules: []string{"/abs/i1.ts", "/abs/i2.ts"}}
	b := BundleOptions{WorkflowsPath: "/abs/w.ts", WorkflowInterceptorModules: []string{"/abs/i2.ts", "/abs/i1.ts"}}
	assert.NotEqual(t, HashEntrypoint(a), HashEntrypoint(b))
}

func indexOf(s, substr string) int {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return i
		}
	}
	return -1
}
