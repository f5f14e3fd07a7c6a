package bundler

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/evanw/esbuild/pkg/api"
)

// EsbuildBackend is Backend-E: a real esbuild build,
// driven through its plugin OnResolve/OnLoad hooks so every specifier in
// the graph passes through the pipeline's classifier and tracker before
// esbuild's own resolution ever runs.
type EsbuildBackend struct{}

const (
	entryNamespace = "wfbundle-entry"
	stubNamespace  = "wfbundle-stub"
)

func (EsbuildBackend) Bundle(ctx context.Context, params BuildParams) (BuildResult, error) {
	// esbuild's plugin API only carries an error's .Error() string back
	// into result.Errors (as api.Message); the original *BundleError with
	// its structured Code/Context is lost unless captured here first.
	var mu sync.Mutex
	var firstStructuredErr *BundleError
	captureErr := func(err *BundleError) {
		mu.Lock()
		defer mu.Unlock()
		if firstStructuredErr == nil {
			firstStructuredErr = err
		}
	}

	resolverPlugin := api.Plugin{
		Name: "wfbundle-resolver",
		Setup: func(build api.PluginBuild) {
			build.OnResolve(api.OnResolveOptions{Filter: ".*"}, func(args api.OnResolveArgs) (api.OnResolveResult, error) {
				if args.Path == params.EntrypointName && args.Importer == "" {
					return api.OnResolveResult{Path: args.Path, Namespace: entryNamespace}, nil
				}

				outcome, err := params.Resolve(args.Path, args.Importer)
				if err != nil {
					return api.OnResolveResult{}, err
				}
				if outcome.Forbidden {
					if be, ok := outcome.Err.(*BundleError); ok {
						captureErr(be)
					}
					return api.OnResolveResult{}, outcome.Err
				}
				if outcome.PassThrough || outcome.Bare {
					return api.OnResolveResult{}, nil
				}
				if outcome.Stub {
					return api.OnResolveResult{Path: outcome.Path, Namespace: stubNamespace, PluginData: outcome.Contents}, nil
				}
				return api.OnResolveResult{Path: outcome.Path}, nil
			})

			build.OnLoad(api.OnLoadOptions{Filter: ".*", Namespace: entryNamespace}, func(args api.OnLoadArgs) (api.OnLoadResult, error) {
				contents := params.Entrypoint
				if match, ok := detectDynamicImport(contents); ok {
					dynErr := newBundleError(CodeDynamicImport, "dynamic import or require is not supported: "+match, map[string]any{"path": args.Path}, nil)
					captureErr(dynErr)
					return api.OnLoadResult{}, dynErr
				}
				loader := api.LoaderJS
				return api.OnLoadResult{Contents: &contents, Loader: loader}, nil
			})

			build.OnLoad(api.OnLoadOptions{Filter: ".*", Namespace: stubNamespace}, func(args api.OnLoadArgs) (api.OnLoadResult, error) {
				contents, _ := args.PluginData.(string)
				if contents == "" {
					contents = "module.exports = {};"
				}
				loader := api.LoaderJS
				return api.OnLoadResult{Contents: &contents, Loader: loader}, nil
			})

			// Real on-disk modules load through the default file
			// namespace; scan each for a non-static require/import call
			// before letting esbuild's own loader take over.
			build.OnLoad(api.OnLoadOptions{Filter: ".*"}, func(args api.OnLoadArgs) (api.OnLoadResult, error) {
				data, err := os.ReadFile(args.Path)
				if err != nil {
					return api.OnLoadResult{}, nil
				}
				if match, ok := detectDynamicImport(string(data)); ok {
					dynErr := newBundleError(CodeDynamicImport, "dynamic import or require is not supported: "+match, map[string]any{"path": args.Path}, nil)
					captureErr(dynErr)
					return api.OnLoadResult{}, dynErr
				}
				return api.OnLoadResult{}, nil
			})
		},
	}

	sourcemap := api.SourceMapNone
	switch params.SourceMap {
	case SourceMapInline:
		sourcemap = api.SourceMapInline
	case SourceMapExternal:
		sourcemap = api.SourceMapExternal
	}

	result := api.Build(api.BuildOptions{
		EntryPointsAdvanced: []api.EntryPoint{{InputPath: params.EntrypointName}},
		Bundle:              true,
		Write:               false,
		Format:              api.FormatCommonJS,
		Platform:            api.PlatformNeutral,
		TreeShaking:         treeShakingSetting(params.TreeShaking),
		Sourcemap:           sourcemap,
		External:            params.Externals,
		Plugins:             []api.Plugin{resolverPlugin},
		LogLevel:            api.LogLevelSilent,
	})

	if len(result.Errors) > 0 {
		mu.Lock()
		captured := firstStructuredErr
		mu.Unlock()
		if captured != nil {
			return BuildResult{}, captured
		}
		msgs := api.FormatMessages(result.Errors, api.FormatMessagesOptions{Color: false})
		return BuildResult{}, newBundleError(CodeBuildFailed, "backend-e build failed", map[string]any{
			"messages": msgs,
		}, fmt.Errorf("%d esbuild error(s)", len(result.Errors)))
	}

	var out BuildResult
	for _, f := range result.OutputFiles {
		switch {
		case hasSuffix(f.Path, ".map"):
			out.SourceMap = string(f.Contents)
		default:
			out.Code = string(f.Contents)
		}
	}

	return out, nil
}

func treeShakingSetting(enabled bool) api.TreeShaking {
	if enabled {
		return api.TreeShakingTrue
	}
	return api.TreeShakingFalse
}

func hasSuffix(s, suffix string) bool {
	return len(s) >= len(suffix) && s[len(s)-len(suffix):] == suffix
}

// ensureDirExists creates dir and any missing parents, for materializing an
// external source map alongside a written bundle file. Nothing in this
// package calls it.
func ensureDirExists(dir string) error {
	return os.MkdirAll(dir, 0o755)
}
