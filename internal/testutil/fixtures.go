// Package testutil provides specification fixtures for unit tests.
package testutil

import (
	"embed"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/erraggy/oasguard/spec"
)

// Fixture names.
const (
	// PetstoreV3 covers every OpenAPI 3 validation path: typed body
	// properties, enums, unions, nested required objects, coerced query and
	// header parameters, response headers, and a non-JSON response.
	PetstoreV3 = "petstore_v3.yaml"

	// PetstoreV2 is the Swagger 2.0 expanded petstore.
	PetstoreV2 = "petstore_v2.json"

	// HyperSchema is a small PaaS API in the JSON hyper-schema format.
	HyperSchema = "paas_hyper.json"

	// RefSample references a schema in RefCommon; load both with
	// WriteFixtures and spec.LoadFile.
	RefSample = "ref_sample.yaml"
	RefCommon = "ref_common.yaml"
)

//go:embed testdata
var fixtures embed.FS

// Fixture returns the raw bytes of a named fixture.
func Fixture(t testing.TB, name string) []byte {
	t.Helper()
	data, err := fixtures.ReadFile("testdata/" + name)
	require.NoError(t, err, "reading fixture %s", name)
	return data
}

// LoadDocument loads a named fixture into a Document.
func LoadDocument(t testing.TB, name string, opts ...spec.Option) *spec.Document {
	t.Helper()
	doc, err := spec.Load(Fixture(t, name), append([]spec.Option{spec.WithSourceName(name)}, opts...)...)
	require.NoError(t, err, "loading fixture %s", name)
	return doc
}

// WriteFixture copies a named fixture into a temporary directory and returns its path.
func WriteFixture(t testing.TB, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, Fixture(t, name), 0o600))
	return path
}

// WriteFile writes arbitrary content into a temporary directory and returns its path.
func WriteFile(t testing.TB, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

// WriteFixtures copies named fixtures into one temporary directory and returns
// the directory.
func WriteFixtures(t testing.TB, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, name := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), Fixture(t, name), 0o600))
	}
	return dir
}
