package bundler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrackerChainToDirect(t *testing.T) {
	tr := NewTracker("/entry.js")
	tr.Record("/entry.js", "./a", "/a.js", KindRelative)
	tr.Record("/a.js", "fs", "wfbundle-forbidden:fs", KindForbidden)

	chain := tr.ChainTo("wfbundle-forbidden:fs")
	require.NotNil(t, chain)
	assert.Equal(t, []string{"/entry.js", "/a.js", "wfbundle-forbidden:fs"}, chain)
}

func TestTrackerChainToEntryItself(t *testing.T) {
	tr := NewTracker("/entry.js")
	chain := tr.ChainTo("/entry.js")
	assert.Equal(t, []string{"/entry.js"}, chain)
}

func TestTrackerChainToUnreachable(t *testing.T) {
	tr := NewTracker("/entry.js")
	tr.Record("/entry.js", "./a", "/a.js", KindRelative)
	assert.Nil(t, tr.ChainTo("/never-recorded.js"))
}

func TestTrackerChainToShortestPath(t *testing.T) {
	tr := NewTracker("/entry.js")
	// direct edge entry -> target
	tr.Record("/entry.js", "./target", "/target.js", KindRelative)
	// longer alternate path entry -> mid -> target
	tr.Record("/entry.js", "./mid", "/mid.js", KindRelative)
	tr.Record("/mid.js", "./target", "/target.js", KindRelative)

	chain := tr.ChainTo("/target.js")
	require.NotNil(t, chain)
	assert.Equal(t, []string{"/entry.js", "/target.js"}, chain)
}

func TestTrackerAllResolvedPaths(t *testing.T) {
	tr := NewTracker("/entry.js")
	tr.Record("/entry.js", "./a", "/a.js", KindRelative)
	tr.Record("/a.js", "./b", "/b.js", KindRelative)

	all := tr.AllResolvedPaths()
	assert.Contains(t, all, "/a.js")
	assert.Contains(t, all, "/b.js")
}
