package bundler

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStripJSONC(t *testing.T) {
	src := []byte(`{
  // a comment
  "baseUrl": ".", /* block comment */
  "paths": {
    "@app/*": ["src/*"],
  },
}`)
	cleaned := stripJSONC(src)

	var parsed struct {
		BaseURL string              `json:"baseUrl"`
		Paths   map[string][]string `json:"paths"`
	}
	require.NoError(t, json.Unmarshal(cleaned, &parsed))
	require.Equal(t, ".", parsed.BaseURL)
	require.Equal(t, []string{"src/*"}, parsed.Paths["@app/*"])
}

func TestAliasResolverWildcard(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "src", "lib"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "src", "lib", "util.ts"), []byte("export {}"), 0o644))

	writeTemp(t, dir, "tsconfig.json", `{
  "compilerOptions": {
    "baseUrl": ".",
    "paths": { "@lib/*": ["src/lib/*"] }
  }
}`)

	resolver, err := LoadAliasResolver(ExplicitTsconfig(filepath.Join(dir, "tsconfig.json")), dir)
	require.NoError(t, err)
	require.NotNil(t, resolver)

	resolved, ok := resolver.Resolve("@lib/util")
	require.True(t, ok)
	require.Equal(t, filepath.Join(dir, "src", "lib", "util.ts"), resolved)
}

func TestAliasResolverExtendsChain(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "src"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "src", "base.ts"), []byte("export {}"), 0o644))

	writeTemp(t, dir, "tsconfig.base.json", `{
  "compilerOptions": { "baseUrl": ".", "paths": { "@base": ["src/base.ts"] } }
}`)
	writeTemp(t, dir, "tsconfig.json", `{
  "extends": "./tsconfig.base.json",
  "compilerOptions": { "paths": { "@child": ["src/base.ts"] } }
}`)

	resolver, err := LoadAliasResolver(ExplicitTsconfig(filepath.Join(dir, "tsconfig.json")), dir)
	require.NoError(t, err)

	_, ok := resolver.Resolve("@base")
	require.True(t, ok, "extended config's paths must still apply")
	_, ok = resolver.Resolve("@child")
	require.True(t, ok)
}

func TestAliasResolverDisabled(t *testing.T) {
	resolver, err := LoadAliasResolver(NoTsconfig(), "/nonexistent")
	require.NoError(t, err)
	require.Nil(t, resolver)
}

func TestAliasResolverAutoNotFound(t *testing.T) {
	dir := t.TempDir()
	resolver, err := LoadAliasResolver(AutoTsconfig(), dir)
	require.NoError(t, err)
	require.Nil(t, resolver)
}
