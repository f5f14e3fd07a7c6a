package bundler

// discoverResolvedPaths walks the require() graph reachable from
// entrypoint using resolveFn, the same resolution a backend would apply,
// purely to gather the set of real on-disk files the content hash must
// cover. It runs ahead of the expensive backend build so the cache key
// reacts to file contents, not just the entrypoint's path inputs.
//
// It does not fail on a forbidden or dynamic-import specifier: the
// backend raises that error properly during the real build. A branch
// that cannot be walked here (unreadable file, unresolved bare
// specifier) is simply dropped from the discovered set, which at worst
// under-hashes that branch until the backend build itself fails or
// succeeds on it.
func discoverResolvedPaths(entrypoint, entrypointName string, resolveFn ResolveFunc) []string {
	visited := map[string]bool{entrypointName: true}
	var paths []string

	var visit func(path, code string)
	visit = func(path, code string) {
		if _, dynamic := detectDynamicImport(code); dynamic {
			return
		}

		for _, m := range requireRe.FindAllStringSubmatch(code, -1) {
			specifier := m[2]

			outcome, err := resolveFn(specifier, path)
			if err != nil || outcome.Forbidden || outcome.Bare || outcome.Stub {
				continue
			}

			resolvedPath := outcome.Path
			if outcome.PassThrough {
				resolvedPath = resolveBareFilePath(specifier, path)
			}
			if resolvedPath == "" || visited[resolvedPath] {
				continue
			}
			visited[resolvedPath] = true

			childCode, rerr := loadSource(resolvedPath)
			if rerr != nil {
				continue
			}
			paths = append(paths, resolvedPath)
			visit(resolvedPath, childCode)
		}
	}

	visit(entrypointName, entrypoint)
	return paths
}
