package bundler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyRelativeAndAbsolute(t *testing.T) {
	c := NewClassifier(Policy, nil)

	v := c.Classify("./sibling", false)
	assert.Equal(t, DecisionPassThrough, v.Decision)

	v = c.Classify("../parent/mod", false)
	assert.Equal(t, DecisionPassThrough, v.Decision)

	v = c.Classify("/abs/path.js", false)
	assert.Equal(t, DecisionPassThrough, v.Decision)
}

func TestClassifyIgnoredModule(t *testing.T) {
	c := NewClassifier(Policy, []string{"left-pad"})
	v := c.Classify("left-pad", false)
	require.Equal(t, DecisionStub, v.Decision)
	assert.Equal(t, "ignored", v.StubReason)
}

func TestClassifyForbidden(t *testing.T) {
	c := NewClassifier(Policy, nil)
	v := c.Classify("fs", false)
	require.Equal(t, DecisionForbidden, v.Decision)
	require.NotNil(t, v.Alternative)
	assert.Equal(t, "workflow-sdk/workflow", v.Alternative.ImportFrom)
}

func TestClassifyAllowedBuiltinStub(t *testing.T) {
	c := NewClassifier(Policy, nil)
	v := c.Classify("path", false)
	assert.Equal(t, DecisionStub, v.Decision)
	assert.Equal(t, "allowed-builtin", v.StubReason)
}

func TestClassifyBarePackageDefers(t *testing.T) {
	c := NewClassifier(Policy, nil)
	v := c.Classify("react", false)
	assert.Equal(t, DecisionDefer, v.Decision)
}

func TestEraseableBypassesForbiddenAndStub(t *testing.T) {
	c := NewClassifier(Policy, nil)

	v := c.Classify("fs", true)
	assert.Equal(t, DecisionDefer, v.Decision, "type-only import of a forbidden specifier must be erased, not fail the build")

	v = c.Classify("path", true)
	assert.Equal(t, DecisionDefer, v.Decision)
}

func TestKindFor(t *testing.T) {
	assert.Equal(t, KindRelative, KindFor("./a", Verdict{Decision: DecisionPassThrough}))
	assert.Equal(t, KindAbsolute, KindFor("/a", Verdict{Decision: DecisionPassThrough}))
	assert.Equal(t, KindBareRuntime, KindFor("path", Verdict{Decision: DecisionStub, StubReason: "allowed-builtin"}))
	assert.Equal(t, KindStubIgnored, KindFor("left-pad", Verdict{Decision: DecisionStub, StubReason: "ignored"}))
	assert.Equal(t, KindForbidden, KindFor("fs", Verdict{Decision: DecisionForbidden}))
	assert.Equal(t, KindBarePackage, KindFor("react", Verdict{Decision: DecisionDefer}))
}
