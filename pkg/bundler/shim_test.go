package bundler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyOutputShimPreservesTrailingSourceMap(t *testing.T) {
	raw := "exports.foo = 1;\n//# sourceMappingURL=data:application/json;base64,AAAA"
	shimmed := ApplyOutputShim(raw, "__WORKFLOW_NAMESPACE__")

	require.True(t, ValidateShimmedOutput(shimmed))
	assert.Regexp(t, `//# sourceMappingURL=.*$`, trimToLastLine(shimmed))
	assert.Contains(t, shimmed, "__MODULE_CACHE__")
	assert.Contains(t, shimmed, "__WORKFLOW_NAMESPACE__")
}

func TestApplyOutputShimBlockComment(t *testing.T) {
	raw := "exports.foo = 1;\n/*# sourceMappingURL=foo.map */"
	shimmed := ApplyOutputShim(raw, "__WORKFLOW_NAMESPACE__")
	last := trimToLastLine(shimmed)
	assert.Contains(t, last, "sourceMappingURL=foo.map")
}

func TestApplyOutputShimNoDirective(t *testing.T) {
	raw := "exports.foo = 1;"
	shimmed := ApplyOutputShim(raw, "__WORKFLOW_NAMESPACE__")
	assert.True(t, ValidateShimmedOutput(shimmed))
}

func TestValidateShimmedOutputMissingIdentifier(t *testing.T) {
	assert.False(t, ValidateShimmedOutput("var x = 1;"))
}

func trimToLastLine(s string) string {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '\n' && i != len(s)-1 {
			return s[i+1:]
		}
	}
	return s
}
