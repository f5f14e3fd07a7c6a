package bundler

import (
	"path/filepath"
	"time"
)

// SourceMapMode selects how (or whether) a backend emits a source map
// for a bundle.
type SourceMapMode int

const (
	// SourceMapInline embeds the source map as a trailing data-URL comment.
	SourceMapInline SourceMapMode = iota
	// SourceMapExternal writes the source map to a sibling ".map" file.
	SourceMapExternal
	// SourceMapNone suppresses source map generation entirely.
	SourceMapNone
)

func (m SourceMapMode) String() string {
	switch m {
	case SourceMapInline:
		return "inline"
	case SourceMapExternal:
		return "external"
	case SourceMapNone:
		return "none"
	default:
		return "unknown"
	}
}

// BackendKind selects which build backend bundles the entrypoint.
type BackendKind int

const (
	// BackendE is the esbuild-backed engine.
	BackendE BackendKind = iota
	// BackendB is the dependency-free inline require bundler.
	BackendB
)

func (b BackendKind) String() string {
	switch b {
	case BackendE:
		return "backend-e"
	case BackendB:
		return "backend-b"
	default:
		return "unknown"
	}
}

// TsconfigMode is the tri-state shape of BundleOptions.TsconfigPath:
// auto-locate, an explicit path, or disabled outright.
type TsconfigMode int

const (
	TsconfigAuto TsconfigMode = iota
	TsconfigExplicit
	TsconfigDisabled
)

// TsconfigPath carries the tri-state tsconfigPath option:
// true = auto-locate, string = explicit path, false = disabled.
type TsconfigPath struct {
	Mode TsconfigMode
	Path string
}

// AutoTsconfig requests that the Path-Alias Resolver walk upward from the
// workflow module's directory looking for a tsconfig.
func AutoTsconfig() TsconfigPath { return TsconfigPath{Mode: TsconfigAuto} }

// ExplicitTsconfig pins the resolver to a single configuration file.
func ExplicitTsconfig(path string) TsconfigPath {
	return TsconfigPath{Mode: TsconfigExplicit, Path: path}
}

// NoTsconfig disables path-alias resolution entirely.
func NoTsconfig() TsconfigPath { return TsconfigPath{Mode: TsconfigDisabled} }

// Plugin is a user-supplied build hook, ordered by Priority (lower runs
// first, stable for ties) alongside the pipeline's own resolver plugin.
type Plugin struct {
	Name      string
	Priority  int
	OnResolve func(specifier, importer string) (*PluginResolveResult, error)
}

// PluginResolveResult lets a user plugin short-circuit resolution for a
// specifier, the same capability the backend resolver hook has.
type PluginResolveResult struct {
	// Path, if non-empty, is the resolved file path.
	Path string
	// Namespace tags a virtual module (e.g. a stub); empty means a real file.
	Namespace string
	// Contents holds virtual module source when Namespace is set.
	Contents string
}

// BuildOptions is the caller's pass-through plugin list and
// backend-specific option bag.
type BuildOptions struct {
	Plugins []Plugin
	// Raw carries backend-specific options a caller wants forwarded
	// verbatim to the selected backend (e.g. esbuild Define values).
	Raw map[string]any
}

// BundleOptions is the input to BundleWorkflowCode.
type BundleOptions struct {
	WorkflowsPath               string
	WorkflowInterceptorModules  []string
	PayloadConverterPath        string
	FailureConverterPath        string
	IgnoreModules               []string
	SourceMap                   SourceMapMode
	Backend                     BackendKind
	TreeShaking                 *bool
	TsconfigPath                TsconfigPath
	Externals                   []string
	BuildOptions                BuildOptions
	// ExtraConfigPath optionally points at a YAML sidecar supplying
	// defaults merged underneath these explicit fields.
	ExtraConfigPath string
	// ProjectRoot anchors relative-path normalization and the Content
	// Hasher's path-relativization. Defaults to the workflow module's
	// directory when empty.
	ProjectRoot string
}

// treeShakingEnabled returns the effective tree-shaking default (true).
func (o *BundleOptions) treeShakingEnabled() bool {
	if o.TreeShaking == nil {
		return true
	}
	return *o.TreeShaking
}

// normalize resolves every path to absolute, deduplicates the interceptor
// list order-preservingly, and fills derived defaults. It never mutates
// the caller's slices.
func (o BundleOptions) normalize() (BundleOptions, error) {
	out := o

	absWorkflows, err := filepath.Abs(o.WorkflowsPath)
	if err != nil {
		return out, newBundleError(CodeConfigInvalid, "cannot resolve workflowsPath to an absolute path", nil, err)
	}
	out.WorkflowsPath = absWorkflows

	if out.ProjectRoot == "" {
		out.ProjectRoot = filepath.Dir(absWorkflows)
	} else {
		root, err := filepath.Abs(out.ProjectRoot)
		if err != nil {
			return out, newBundleError(CodeConfigInvalid, "cannot resolve projectRoot to an absolute path", nil, err)
		}
		out.ProjectRoot = root
	}

	out.WorkflowInterceptorModules = dedupeOrderPreserving(absAll(o.WorkflowInterceptorModules))

	if o.PayloadConverterPath != "" {
		abs, err := filepath.Abs(o.PayloadConverterPath)
		if err != nil {
			return out, newBundleError(CodeConfigInvalid, "cannot resolve payloadConverterPath", nil, err)
		}
		out.PayloadConverterPath = abs
	}
	if o.FailureConverterPath != "" {
		abs, err := filepath.Abs(o.FailureConverterPath)
		if err != nil {
			return out, newBundleError(CodeConfigInvalid, "cannot resolve failureConverterPath", nil, err)
		}
		out.FailureConverterPath = abs
	}

	if out.TsconfigPath.Mode == TsconfigExplicit && out.TsconfigPath.Path != "" {
		abs, err := filepath.Abs(out.TsconfigPath.Path)
		if err != nil {
			return out, newBundleError(CodeConfigInvalid, "cannot resolve tsconfigPath", nil, err)
		}
		out.TsconfigPath.Path = abs
	}

	ignore := make([]string, len(o.IgnoreModules))
	copy(ignore, o.IgnoreModules)
	out.IgnoreModules = ignore

	externals := make([]string, len(o.Externals))
	copy(externals, o.Externals)
	out.Externals = externals

	return out, nil
}

func absAll(paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			// Preserve the original; normalize() surfaces resolution
			// failures for the primary paths only, interceptors fail
			// naturally at resolve time with a clear chain.
			out = append(out, p)
			continue
		}
		out = append(out, abs)
	}
	return out
}

func dedupeOrderPreserving(paths []string) []string {
	seen := make(map[string]bool, len(paths))
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}

// Metadata is the immutable record attached to every produced bundle.
type Metadata struct {
	Timestamp      time.Time `json:"timestamp"`
	Backend        string    `json:"backend"`
	EntryHash      string    `json:"entryHash"`
	BundlerVersion string    `json:"bundlerVersion"`
	SdkVersion     string    `json:"sdkVersion"`
	IgnoredModules []string  `json:"ignoredModules"`
	Warnings       []string  `json:"warnings"`
}

// WorkflowBundle is the output of BundleWorkflowCode.
type WorkflowBundle struct {
	Code      string
	SourceMap string
	Metadata  Metadata
}
