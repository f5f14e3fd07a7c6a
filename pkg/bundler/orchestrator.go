package bundler

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sourcegraph/conc/pool"

	"github.com/replaybuild/wfbundle/internal/logger"
)

var orchestratorLog = logger.New("wfbundle:orchestrator")

// BundlerVersion is this module's own version, stamped into every
// produced bundle's metadata.
const BundlerVersion = "0.1.0"

// backendFor resolves a BackendKind to its concrete BuildBackend.
func backendFor(kind BackendKind) BuildBackend {
	if kind == BackendB {
		return InlineBackend{}
	}
	return EsbuildBackend{}
}

// buildContext is the reusable resolver/plugin state calls
// "createContext()": everything that does not change across repeated
// builds against the same options.
type buildContext struct {
	opts       BundleOptions
	classifier *Classifier
	alias      *AliasResolver
}

// WorkflowCodeBundler is the stateful façade describes:
// createBundle(), createContext(), watch(onChange), plus BundleMany as a
// supplemented multi-queue scheduling feature.
type WorkflowCodeBundler struct {
	cache *DiskCache
}

// NewWorkflowCodeBundler constructs a bundler. cache may be nil to
// disable the disk cache entirely.
func NewWorkflowCodeBundler(cache *DiskCache) *WorkflowCodeBundler {
	return &WorkflowCodeBundler{cache: cache}
}

// BundleWorkflowCode is the package-level primary entry point: bundleWorkflowCode(options) -> Promise<WorkflowBundle>.
func BundleWorkflowCode(ctx context.Context, opts BundleOptions) (WorkflowBundle, error) {
	return NewWorkflowCodeBundler(nil).CreateBundle(ctx, opts)
}

// createContext normalizes options and loads the sidecar config and
// alias resolver once per context. Watch reuses one context across its
// rebuilds; CreateBundle creates a fresh context on every call.
func (b *WorkflowCodeBundler) createContext(opts BundleOptions) (*buildContext, error) {
	cfg, err := loadSidecarConfig(opts.ExtraConfigPath)
	if err != nil {
		return nil, err.(*BundleError)
	}
	merged := applySidecarDefaults(opts, cfg)

	normalized, nerr := merged.normalize()
	if nerr != nil {
		return nil, nerr.(*BundleError)
	}

	if _, err := os.Stat(normalized.WorkflowsPath); err != nil {
		return nil, newBundleError(CodeEntrypointNotFound, "workflow module not found", map[string]any{"path": normalized.WorkflowsPath}, err)
	}

	alias, aerr := LoadAliasResolver(normalized.TsconfigPath, normalized.ProjectRoot)
	if aerr != nil {
		if be, ok := aerr.(*BundleError); ok {
			return nil, be
		}
		return nil, newBundleError(CodeConfigInvalid, "cannot load tsconfig", nil, aerr)
	}

	classifier := NewClassifier(Policy, normalized.IgnoreModules)

	return &buildContext{opts: normalized, classifier: classifier, alias: alias}, nil
}

// CreateBundle runs the full pipeline
func (b *WorkflowCodeBundler) CreateBundle(ctx context.Context, opts BundleOptions) (WorkflowBundle, error) {
	bctx, err := b.createContext(opts)
	if err != nil {
		return WorkflowBundle{}, err
	}
	return b.buildFromContext(ctx, bctx)
}

func (b *WorkflowCodeBundler) buildFromContext(ctx context.Context, bctx *buildContext) (WorkflowBundle, error) {
	opts := bctx.opts

	entrypoint := SynthesizeEntrypoint(opts)

	discoveryTracker := NewTracker("wfbundle-entrypoint.js")
	discoveryResolve := buildResolver(bctx.classifier, bctx.alias, discoveryTracker, opts.BuildOptions.Plugins, orchestratorLog)
	inputPaths := discoverResolvedPaths(entrypoint, "wfbundle-entrypoint.js", discoveryResolve)

	contentHash, cherr := HashInputs(inputPaths, opts.ProjectRoot, nearestManifest)
	if cherr != nil {
		return WorkflowBundle{}, cherr.(*BundleError)
	}
	entryHash := combineHashes(HashEntrypoint(opts), contentHash)
	cacheKey := entryHash + "-" + opts.Backend.String()

	if b.cache != nil {
		if cached, ok := b.cache.Get(cacheKey); ok {
			orchestratorLog.Printf("cache hit for %s", cacheKey)
			return cached, nil
		}
	}

	tracker := NewTracker("wfbundle-entrypoint.js")
	resolveFn := buildResolver(bctx.classifier, bctx.alias, tracker, opts.BuildOptions.Plugins, orchestratorLog)

	backend := backendFor(opts.Backend)
	result, berr := backend.Bundle(ctx, BuildParams{
		Entrypoint:     entrypoint,
		EntrypointName: "wfbundle-entrypoint.js",
		Resolve:        resolveFn,
		Plugins:        opts.BuildOptions.Plugins,
		Externals:      opts.Externals,
		SourceMap:      opts.SourceMap,
		TreeShaking:    opts.treeShakingEnabled(),
	})
	if berr != nil {
		if be, ok := berr.(*BundleError); ok {
			return WorkflowBundle{}, be
		}
		return WorkflowBundle{}, newBundleError(CodeBuildFailed, "backend build failed", nil, berr)
	}

	shimmed := ApplyOutputShim(result.Code, "__WORKFLOW_NAMESPACE__")

	warnings := stubWarnings(tracker, bctx.classifier)

	meta := Metadata{
		Timestamp:      time.Now().UTC(),
		Backend:        opts.Backend.String(),
		EntryHash:      entryHash,
		BundlerVersion: BundlerVersion,
		IgnoredModules: opts.IgnoreModules,
		Warnings:       warnings,
	}

	header, herr := serializeMetadata(meta)
	if herr != nil {
		return WorkflowBundle{}, newBundleError(CodeBuildFailed, "cannot serialize metadata", nil, herr)
	}

	bundle := WorkflowBundle{
		Code:      header + shimmed,
		SourceMap: result.SourceMap,
		Metadata:  meta,
	}

	if b.cache != nil {
		b.cache.Put(cacheKey, bundle)
	}

	return bundle, nil
}

// combineHashes folds the path-based entrypoint hash and the content hash
// over every resolved input file into the single digest stamped as
// metadata.EntryHash and used as the disk-cache key, so either one
// changing invalidates the cache.
func combineHashes(entrypointHash, contentHash string) string {
	sum := sha256.Sum256([]byte(entrypointHash + ":" + contentHash))
	return hex.EncodeToString(sum[:])[:16]
}

// stubWarnings surfaces a warning for every ignored module that was
// actually exercised at build time, instead of failing the build.
func stubWarnings(tracker *Tracker, classifier *Classifier) []string {
	var warnings []string
	for _, path := range tracker.AllResolvedPaths() {
		if len(path) > len("wfbundle-stub:") && path[:len("wfbundle-stub:")] == "wfbundle-stub:" {
			specifier := path[len("wfbundle-stub:"):]
			if !classifier.ignoreModules[normalizeSpecifier(specifier)] {
				continue
			}
			warnings = append(warnings, "ignored module stubbed at runtime: "+specifier)
		}
	}
	return warnings
}

// BundleMany runs several independent builds concurrently, sharing only
// the immutable policy; each gets its own tracker.
func (b *WorkflowCodeBundler) BundleMany(ctx context.Context, many []BundleOptions) ([]WorkflowBundle, error) {
	p := pool.NewWithResults[WorkflowBundle]().WithMaxGoroutines(4).WithErrors().WithContext(ctx)
	for _, opts := range many {
		opts := opts
		p.Go(func(ctx context.Context) (WorkflowBundle, error) {
			return b.CreateBundle(ctx, opts)
		})
	}
	return p.Wait()
}

// Watch sets up debounced fsnotify watching of the workflow module file.
// Files it imports and the tsconfig chain are not watched. It rebuilds on
// every settled burst of changes and reports the new bundle (or error) to
// onChange.
func (b *WorkflowCodeBundler) Watch(ctx context.Context, opts BundleOptions, onChange func(WorkflowBundle, error)) (func() error, error) {
	bctx, err := b.createContext(opts)
	if err != nil {
		return nil, err
	}

	initial, ierr := b.buildFromContext(ctx, bctx)
	if ierr != nil {
		onChange(WorkflowBundle{}, ierr)
	} else {
		onChange(initial, nil)
	}

	watcher, werr := fsnotify.NewWatcher()
	if werr != nil {
		return nil, newBundleError(CodeBuildFailed, "cannot start file watcher", nil, werr)
	}

	paths := []string{bctx.opts.WorkflowsPath}
	for _, p := range paths {
		_ = watcher.Add(p)
	}

	const debounce = 150 * time.Millisecond
	go func() {
		defer watcher.Close()
		var timer *time.Timer
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
					continue
				}
				if timer != nil {
					timer.Stop()
				}
				timer = time.AfterFunc(debounce, func() {
					bundle, err := b.buildFromContext(ctx, bctx)
					onChange(bundle, err)
				})
			case _, ok := <-watcher.Errors:
				if !ok {
					return
				}
			}
		}
	}()

	return watcher.Close, nil
}

// LoadBundle implements loadBundle({ path, expectedSdkVersion? }).
func LoadBundle(path, expectedSdkVersion string) (WorkflowBundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return WorkflowBundle{}, newBundleError(CodeEntrypointNotFound, "cannot read bundle", map[string]any{"path": path}, err)
	}
	code := string(data)

	result := ValidateBundle(code, expectedSdkVersion, BundlerVersion, expectedSdkVersion != "")
	if !result.Valid {
		return WorkflowBundle{}, newBundleError(CodeBuildFailed, "loaded bundle failed validation", map[string]any{
			"errors": result.Errors,
		}, nil)
	}

	var meta Metadata
	if result.Metadata != nil {
		meta = *result.Metadata
	}

	mapPath := path + ".map"
	sourceMap := ""
	if data, err := os.ReadFile(mapPath); err == nil {
		sourceMap = string(data)
	}

	return WorkflowBundle{Code: code, SourceMap: sourceMap, Metadata: meta}, nil
}
