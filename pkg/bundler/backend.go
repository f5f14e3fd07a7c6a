package bundler

import (
	"context"
	"sort"

	"github.com/replaybuild/wfbundle/internal/logger"
)

// BuildParams is the input every BuildBackend.Bundle implementation
// receives.
type BuildParams struct {
	// Entrypoint is the synthesized module source.
	Entrypoint string
	// EntrypointName is a virtual filename the backend can use as the
	// graph root; it never exists on disk.
	EntrypointName string
	// Resolve is invoked for every bare/relative specifier the backend's
	// resolver encounters; it wraps the classifier and tracker.
	Resolve ResolveFunc
	Plugins []Plugin
	Externals []string
	SourceMap SourceMapMode
	TreeShaking bool
}

// ResolveFunc resolves one specifier from one importer, returning a
// decision the backend translates into its own plugin API.
type ResolveFunc func(specifier, importer string) (ResolveOutcome, error)

// ResolveOutcome is what a ResolveFunc decided for one specifier.
type ResolveOutcome struct {
	// PassThrough tells the backend to resolve specifier as a real file,
	// relative to importer (relative/absolute specifiers).
	PassThrough bool
	// Bare tells the backend the specifier is a bare package or runtime
	// module left for the backend's own module resolution (esbuild's
	// node_modules lookup, or the Worker runtime's own require for
	// Backend-B, which does not attempt to load it from disk itself).
	Bare bool
	// Stub marks a virtual empty-exports module; Path is a synthetic
	// namespaced identifier, not a file.
	Stub bool
	// Path is the resolved file path (real or virtual).
	Path string
	// Contents holds virtual module source, set only when Stub is true
	// or a user plugin supplied inline contents.
	Contents string
	// Forbidden signals the backend must fail the build; Err carries the
	// *BundleError with FORBIDDEN_MODULES context already attached.
	Forbidden bool
	Err       error
}

// BuildResult is a backend's output before the Output Shim runs.
type BuildResult struct {
	Code      string
	SourceMap string
}

// BuildBackend is the interface both Backend-E and Backend-B satisfy.
type BuildBackend interface {
	Bundle(ctx context.Context, params BuildParams) (BuildResult, error)
}

// sortPlugins orders user plugins by Priority ascending, lower runs
// first, stable for ties.
func sortPlugins(plugins []Plugin) []Plugin {
	out := make([]Plugin, len(plugins))
	copy(out, plugins)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Priority < out[j].Priority
	})
	return out
}

// runUserPlugins gives each user plugin, in priority order, a chance to
// resolve specifier before falling through to the pipeline's own
// classifier+tracker resolution. The first plugin to return a non-nil
// result wins.
func runUserPlugins(plugins []Plugin, specifier, importer string) (*PluginResolveResult, error) {
	for _, p := range plugins {
		if p.OnResolve == nil {
			continue
		}
		res, err := p.OnResolve(specifier, importer)
		if err != nil {
			return nil, err
		}
		if res != nil {
			return res, nil
		}
	}
	return nil, nil
}

// buildResolver wires the classifier, alias resolver, and tracker into
// one ResolveFunc used as the backend's onResolve hook, preceded by any
// user plugins sorted by priority.
func buildResolver(classifier *Classifier, alias *AliasResolver, tracker *Tracker, plugins []Plugin, log *logger.Logger) ResolveFunc {
	sorted := sortPlugins(plugins)

	return func(specifier, importer string) (ResolveOutcome, error) {
		if res, err := runUserPlugins(sorted, specifier, importer); err != nil {
			return ResolveOutcome{}, err
		} else if res != nil {
			kind := KindAliased
			if res.Namespace != "" {
				kind = KindStubIgnored
			}
			tracker.Record(importer, specifier, res.Path, kind)
			return ResolveOutcome{Stub: res.Namespace != "", Path: res.Path, Contents: res.Contents}, nil
		}

		if alias != nil {
			if resolved, ok := alias.Resolve(specifier); ok {
				tracker.Record(importer, specifier, resolved, KindAliased)
				return ResolveOutcome{Path: resolved}, nil
			}
		}

		verdict := classifier.Classify(specifier, false)
		kind := KindFor(specifier, verdict)

		switch verdict.Decision {
		case DecisionPassThrough:
			tracker.Record(importer, specifier, resolveBareFilePath(specifier, importer), kind)
			return ResolveOutcome{PassThrough: true}, nil
		case DecisionDefer:
			tracker.Record(importer, specifier, "", kind)
			return ResolveOutcome{Bare: true}, nil
		case DecisionStub:
			virtualPath := "wfbundle-stub:" + specifier
			tracker.Record(importer, specifier, virtualPath, kind)
			log.LazyPrintf(func() string { return "stubbing " + specifier + " imported by " + importer })
			return ResolveOutcome{Stub: true, Path: virtualPath, Contents: "module.exports = {};"}, nil
		case DecisionForbidden:
			virtualPath := "wfbundle-forbidden:" + specifier
			tracker.Record(importer, specifier, virtualPath, kind)
			chain := tracker.ChainTo(virtualPath)
			offender := Offender{Specifier: specifier, Chain: chain, Alternative: verdict.Alternative}
			err := newBundleError(CodeForbiddenModules, "import of forbidden module "+specifier,
				map[string]any{"offenders": []Offender{offender}}, nil)
			return ResolveOutcome{Forbidden: true, Err: err}, nil
		}

		return ResolveOutcome{PassThrough: true}, nil
	}
}
