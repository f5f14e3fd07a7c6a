package bundler

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeSpecifier(t *testing.T) {
	cases := map[string]string{
		"node:fs":        "fs",
		"fs":             "fs",
		"node:fs/promises?query=1": "fs/promises",
		"path#frag":      "path",
	}
	for in, want := range cases {
		assert.Equal(t, want, normalizeSpecifier(in), in)
	}
}

func TestDeterminismPolicyClassify(t *testing.T) {
	p := newDeterminismPolicy()

	cls, alt := p.classify("node:fs")
	assert.Equal(t, ClassForbidden, cls)
	if assert.NotNil(t, alt) {
		assert.Equal(t, "workflow-sdk/workflow", alt.ImportFrom)
	}

	cls, alt = p.classify("vm")
	assert.Equal(t, ClassForbidden, cls)
	assert.Nil(t, alt)

	cls, _ = p.classify("path")
	assert.Equal(t, ClassAllowedStub, cls)

	cls, _ = p.classify("lodash")
	assert.Equal(t, ClassAllowed, cls)
}

func TestAlternativeForFallback(t *testing.T) {
	p := newDeterminismPolicy()
	alt := p.alternativeFor("node:timers/promises")
	if assert.NotNil(t, alt) {
		assert.Contains(t, alt.Replacement, "sleep")
	}
}

func TestIsForbidden(t *testing.T) {
	p := newDeterminismPolicy()
	assert.True(t, p.isForbidden("child_process"))
	assert.False(t, p.isForbidden("path"))
	assert.False(t, p.isForbidden("left-pad"))
}
