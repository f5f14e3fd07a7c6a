package bundler

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// requireRe matches a CommonJS require("...") or require('...') call,
// capturing the quoted specifier.
var requireRe = regexp.MustCompile(`require\(\s*(['"])([^'"]+)\1\s*\)`)

// InlineBackend is Backend-B: a dependency-free engine
// that walks require() calls textually rather than through a plugin API,
// consulting a specifier-loader callback for every specifier it meets.
// Because it has no namespace-isolation mechanism of its own, its output
// module-cache variable is namespaced by a per-bundle hash to avoid
// collisions across isolate instances sharing a process.
type InlineBackend struct{}

type inlineModule struct {
	path string
	code string
}

func (InlineBackend) Bundle(ctx context.Context, params BuildParams) (BuildResult, error) {
	cacheVar := "__wfbundle_modules_" + shortHash(params.Entrypoint)

	visited := make(map[string]bool)
	var order []inlineModule
	var stubs []inlineModule

	var visit func(path, code, importer string) error
	visit = func(path, code, importer string) error {
		if visited[path] {
			return nil
		}
		visited[path] = true

		if match, ok := detectDynamicImport(code); ok {
			return newBundleError(CodeDynamicImport, "dynamic import or require is not supported: "+match, map[string]any{"path": path}, nil)
		}

		matches := requireRe.FindAllStringSubmatchIndex(code, -1)
		resolvedForThisModule := make(map[string]string)

		for _, m := range matches {
			specifier := code[m[4]:m[5]]

			outcome, err := params.Resolve(specifier, path)
			if err != nil {
				return err
			}
			if outcome.Forbidden {
				return outcome.Err
			}
			if outcome.PassThrough {
				// Backend-B has no engine-level default resolver of its
				// own: a relative/absolute specifier is loaded directly
				// from the file system as the specifier-loader contract
				// requires.
				resolvedPath := resolveBareFilePath(specifier, path)
				resolvedForThisModule[specifier] = resolvedPath
				if !visited[resolvedPath] {
					childCode, err := loadSource(resolvedPath)
					if err != nil {
						return newBundleError(CodeResolutionFailed, "cannot read module", map[string]any{"path": resolvedPath}, err)
					}
					if err := visit(resolvedPath, childCode, path); err != nil {
						return err
					}
				}
				continue
			}
			if outcome.Bare {
				// Left for the Worker runtime's own require() at load
				// time; Backend-B has no node_modules resolution of its
				// own, so the call site is left unrewritten.
				continue
			}
			if outcome.Stub {
				if !visited[outcome.Path] {
					visited[outcome.Path] = true
					contents := outcome.Contents
					if contents == "" {
						contents = "module.exports = {};"
					}
					stubs = append(stubs, inlineModule{path: outcome.Path, code: contents})
				}
				resolvedForThisModule[specifier] = outcome.Path
				continue
			}

			resolvedForThisModule[specifier] = outcome.Path
			if !visited[outcome.Path] {
				childCode, err := loadSource(outcome.Path)
				if err != nil {
					return newBundleError(CodeResolutionFailed, "cannot read module", map[string]any{"path": outcome.Path}, err)
				}
				if err := visit(outcome.Path, childCode, path); err != nil {
					return err
				}
			}
		}

		rewritten := rewriteRequires(code, resolvedForThisModule)
		order = append(order, inlineModule{path: path, code: rewritten})
		return nil
	}

	if err := visit(params.EntrypointName, params.Entrypoint, ""); err != nil {
		return BuildResult{}, err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "var %s = %s || {};\n", cacheVar, cacheVar)
	b.WriteString("(function() {\n")
	b.WriteString("  var __wffactories = {};\n")
	b.WriteString("  function __wfdefine(id, factory) { __wffactories[id] = factory; }\n")
	b.WriteString("  function __wfrequire(id) {\n")
	fmt.Fprintf(&b, "    if (!(id in %s)) {\n", cacheVar)
	fmt.Fprintf(&b, "      var module = { exports: {} };\n      %s[id] = module.exports;\n      __wffactories[id](module, module.exports);\n      %s[id] = module.exports;\n", cacheVar, cacheVar)
	b.WriteString("    }\n")
	fmt.Fprintf(&b, "    return %s[id];\n", cacheVar)
	b.WriteString("  }\n\n")

	for _, mod := range stubs {
		fmt.Fprintf(&b, "__wfdefine(%s, function(module, exports) {\n%s\n});\n", jsStringLiteral(mod.path), mod.code)
	}
	for i := len(order) - 1; i >= 0; i-- {
		mod := order[i]
		fmt.Fprintf(&b, "__wfdefine(%s, function(module, exports) {\n%s\n});\n", jsStringLiteral(mod.path), mod.code)
	}

	if len(order) > 0 {
		fmt.Fprintf(&b, "module.exports = __wfrequire(%s);\n", jsStringLiteral(order[len(order)-1].path))
	}
	b.WriteString("})();\n")

	return BuildResult{Code: b.String()}, nil
}

// rewriteRequires replaces each require("spec") call whose specifier was
// resolved with require("resolvedPath") so the inlined factories reference
// each other by their canonical path key.
func rewriteRequires(code string, resolved map[string]string) string {
	return requireRe.ReplaceAllStringFunc(code, func(match string) string {
		sub := requireRe.FindStringSubmatch(match)
		spec := sub[2]
		if resolvedPath, ok := resolved[spec]; ok {
			return "__wfrequire(" + jsStringLiteral(resolvedPath) + ")"
		}
		return match
	})
}

// resolveBareFilePath resolves a relative or absolute specifier to a file
// path, probing extensions the same way the Path-Alias Resolver does.
func resolveBareFilePath(specifier, importer string) string {
	base := specifier
	if !filepath.IsAbs(specifier) {
		base = filepath.Join(filepath.Dir(importer), specifier)
	}
	if resolved, ok := probeFile(base); ok {
		return resolved
	}
	return base
}

func loadSource(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func shortHash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])[:8]
}
