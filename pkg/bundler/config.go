package bundler

import (
	"os"

	"github.com/goccy/go-yaml"
)

// sidecarConfig mirrors the subset of BundleOptions a wfbundle.yaml
// sidecar may supply as defaults, merged underneath the caller's explicit
// struct fields.
type sidecarConfig struct {
	WorkflowsPath              string   `yaml:"workflowsPath"`
	WorkflowInterceptorModules []string `yaml:"workflowInterceptorModules"`
	PayloadConverterPath       string   `yaml:"payloadConverterPath"`
	FailureConverterPath       string   `yaml:"failureConverterPath"`
	IgnoreModules              []string `yaml:"ignoreModules"`
	SourceMap                  string   `yaml:"sourceMap"`
	Backend                    string   `yaml:"backend"`
	Externals                  []string `yaml:"externals"`
}

// loadSidecarConfig reads and parses a wfbundle.yaml sidecar, if present.
// A missing file is not an error; a malformed one is CONFIG_INVALID.
func loadSidecarConfig(path string) (*sidecarConfig, error) {
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, newBundleError(CodeConfigInvalid, "cannot read extraConfigPath", map[string]any{"path": path}, err)
	}

	var cfg sidecarConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, newBundleError(CodeConfigInvalid, "cannot parse extraConfigPath as YAML", map[string]any{"path": path}, err)
	}
	return &cfg, nil
}

// applySidecarDefaults fills any zero-valued field of opts from cfg;
// non-zero explicit fields win. SourceMap and Backend cannot tell an
// explicit SourceMapInline or BackendE from unset, since those are their
// zero values, so a sidecar "sourceMap" or "backend" replaces them.
func applySidecarDefaults(opts BundleOptions, cfg *sidecarConfig) BundleOptions {
	if cfg == nil {
		return opts
	}

	out := opts
	if out.WorkflowsPath == "" {
		out.WorkflowsPath = cfg.WorkflowsPath
	}
	if len(out.WorkflowInterceptorModules) == 0 {
		out.WorkflowInterceptorModules = cfg.WorkflowInterceptorModules
	}
	if out.PayloadConverterPath == "" {
		out.PayloadConverterPath = cfg.PayloadConverterPath
	}
	if out.FailureConverterPath == "" {
		out.FailureConverterPath = cfg.FailureConverterPath
	}
	if len(out.IgnoreModules) == 0 {
		out.IgnoreModules = cfg.IgnoreModules
	}
	if len(out.Externals) == 0 {
		out.Externals = cfg.Externals
	}
	if cfg.SourceMap != "" && out.SourceMap == SourceMapInline {
		switch cfg.SourceMap {
		case "external":
			out.SourceMap = SourceMapExternal
		case "none":
			out.SourceMap = SourceMapNone
		}
	}
	if cfg.Backend == "backend-b" && out.Backend == BackendE {
		out.Backend = BackendB
	}

	return out
}
