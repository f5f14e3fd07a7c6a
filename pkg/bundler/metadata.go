package bundler

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/replaybuild/wfbundle/internal/logger"
)

var metaLog = logger.New("wfbundle:metadata")

//go:embed schemas/metadata_schema.json
var metadataSchemaJSON string

// metadataSentinel is the well-known prefix the validator matches to
// recover an embedded metadata header from a bundle.
const metadataSentinel = "/* __WFBUNDLE_METADATA__"

var (
	compiledMetadataSchema     *jsonschema.Schema
	compiledMetadataSchemaOnce sync.Once
	compiledMetadataSchemaErr  error
)

func getCompiledMetadataSchema() (*jsonschema.Schema, error) {
	compiledMetadataSchemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		var doc any
		if err := json.Unmarshal([]byte(metadataSchemaJSON), &doc); err != nil {
			compiledMetadataSchemaErr = fmt.Errorf("failed to parse metadata schema: %w", err)
			return
		}
		const url = "https://wfbundle.internal/metadata-schema.json"
		if err := compiler.AddResource(url, doc); err != nil {
			compiledMetadataSchemaErr = fmt.Errorf("failed to add metadata schema resource: %w", err)
			return
		}
		schema, err := compiler.Compile(url)
		if err != nil {
			compiledMetadataSchemaErr = fmt.Errorf("failed to compile metadata schema: %w", err)
			return
		}
		compiledMetadataSchema = schema
	})
	return compiledMetadataSchema, compiledMetadataSchemaErr
}

// serializeMetadata renders m as the initial multi-line comment block
// embedded in a bundle's script, sentinel-prefixed so the validator can
// recover it without parsing the whole file as JS. Nil ignoredModules and
// warnings lists are written as empty arrays, the form the schema accepts.
func serializeMetadata(m Metadata) (string, error) {
	if m.IgnoredModules == nil {
		m.IgnoredModules = []string{}
	}
	if m.Warnings == nil {
		m.Warnings = []string{}
	}
	body, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString(metadataSentinel)
	b.WriteString("\n")
	b.Write(body)
	b.WriteString("\n*/\n")
	return b.String(), nil
}

// parseMetadata validates and decodes a metadata JSON block recovered
// from a bundle. Round-tripping through serializeMetadata/parseMetadata
// must be lossless.
func parseMetadata(body string) (Metadata, bool) {
	var raw any
	if err := json.Unmarshal([]byte(body), &raw); err != nil {
		metaLog.Printf("metadata block is not valid JSON: %v", err)
		return Metadata{}, false
	}

	schema, err := getCompiledMetadataSchema()
	if err != nil {
		metaLog.Printf("metadata schema unavailable, skipping structural check: %v", err)
	} else if err := schema.Validate(raw); err != nil {
		metaLog.Printf("metadata failed schema validation: %v", err)
		return Metadata{}, false
	}

	var m Metadata
	if err := json.Unmarshal([]byte(body), &m); err != nil {
		return Metadata{}, false
	}
	return m, true
}
