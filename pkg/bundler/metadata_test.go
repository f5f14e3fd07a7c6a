package bundler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMetadataRoundTrip(t *testing.T) {
	m := Metadata{
		Timestamp:      time.Now().UTC().Truncate(time.Second),
		Backend:        "backend-e",
		EntryHash:      "0123456789abcdef",
		BundlerVersion: "0.1.0",
		SdkVersion:     "1.2.0",
		IgnoredModules: []string{"left-pad"},
		Warnings:       []string{"w1"},
	}

	serialized, err := serializeMetadata(m)
	require.NoError(t, err)

	code := serialized + "(function(){})();"
	recovered, ok := recoverMetadataHeader(code)
	require.True(t, ok)

	require.True(t, m.Timestamp.Equal(recovered.Timestamp))
	require.Equal(t, m.Backend, recovered.Backend)
	require.Equal(t, m.EntryHash, recovered.EntryHash)
	require.Equal(t, m.BundlerVersion, recovered.BundlerVersion)
	require.Equal(t, m.SdkVersion, recovered.SdkVersion)
	require.Equal(t, m.IgnoredModules, recovered.IgnoredModules)
	require.Equal(t, m.Warnings, recovered.Warnings)
}

func TestRecoverMetadataHeaderAbsent(t *testing.T) {
	_, ok := recoverMetadataHeader("(function(){})();")
	require.False(t, ok)
}

func TestParseMetadataRejectsBadEntryHash(t *testing.T) {
	bad := `{"timestamp":"2020-01-01T00:00:00Z","backend":"backend-e","entryHash":"not-hex!","bundlerVersion":"0.1.0"}`
	_, ok := parseMetadata(bad)
	require.False(t, ok)
}
