package bundler

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEsbuildBackendBundlesRequireGraph(t *testing.T) {
	dir := t.TempDir()
	helperPath := filepath.Join(dir, "helper.js")
	require.NoError(t, os.WriteFile(helperPath, []byte("module.exports = function() { return 42; };"), 0o644))

	entry := "module.exports = require(" + jsStringLiteral(helperPath) + ")();"

	classifier := NewClassifier(Policy, nil)
	tracker := NewTracker("entry.js")

	result, err := EsbuildBackend{}.Bundle(context.Background(), BuildParams{
		Entrypoint:     entry,
		EntrypointName: "entry.js",
		Resolve:        resolveWithoutLogger(classifier, tracker),
	})
	require.NoError(t, err)
	require.NotEmpty(t, result.Code)
}

func TestEsbuildBackendFailsOnForbiddenModule(t *testing.T) {
	classifier := NewClassifier(Policy, nil)
	tracker := NewTracker("entry.js")

	entry := "var fs = require('fs');"

	_, err := EsbuildBackend{}.Bundle(context.Background(), BuildParams{
		Entrypoint:     entry,
		EntrypointName: "entry.js",
		Resolve:        resolveWithoutLogger(classifier, tracker),
	})
	require.Error(t, err)
	be, ok := err.(*BundleError)
	require.True(t, ok, "expected *BundleError, got %T: %v", err, err)
	require.Equal(t, CodeForbiddenModules, be.Code)
	_, hasOffenders := be.Context["offenders"]
	require.True(t, hasOffenders, "forbidden error should carry offenders context, not collapse to BUILD_FAILED")
}

func TestEsbuildBackendFailsOnDynamicRequireFromEntry(t *testing.T) {
	classifier := NewClassifier(Policy, nil)
	tracker := NewTracker("entry.js")

	entry := "var mod = process.env.MOD; module.exports = require(mod);"

	_, err := EsbuildBackend{}.Bundle(context.Background(), BuildParams{
		Entrypoint:     entry,
		EntrypointName: "entry.js",
		Resolve:        resolveWithoutLogger(classifier, tracker),
	})
	require.Error(t, err)
	be, ok := err.(*BundleError)
	require.True(t, ok, "expected *BundleError, got %T: %v", err, err)
	require.Equal(t, CodeDynamicImport, be.Code)
}

func TestEsbuildBackendFailsOnDynamicRequireFromDisk(t *testing.T) {
	dir := t.TempDir()
	helperPath := filepath.Join(dir, "helper.js")
	require.NoError(t, os.WriteFile(helperPath, []byte("var mod = pick(); module.exports = require(mod);"), 0o644))

	entry := "module.exports = require(" + jsStringLiteral(helperPath) + ");"

	classifier := NewClassifier(Policy, nil)
	tracker := NewTracker("entry.js")

	_, err := EsbuildBackend{}.Bundle(context.Background(), BuildParams{
		Entrypoint:     entry,
		EntrypointName: "entry.js",
		Resolve:        resolveWithoutLogger(classifier, tracker),
	})
	require.Error(t, err)
	be, ok := err.(*BundleError)
	require.True(t, ok, "expected *BundleError, got %T: %v", err, err)
	require.Equal(t, CodeDynamicImport, be.Code)
}
