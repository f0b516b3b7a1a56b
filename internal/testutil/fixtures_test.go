package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erraggy/oasguard/spec"
)

func TestFixtures(t *testing.T) {
	tests := []struct {
		name    string
		dialect spec.Dialect
	}{
		{PetstoreV3, spec.OpenAPI3},
		{PetstoreV2, spec.OpenAPI2},
		{HyperSchema, spec.HyperSchema},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := LoadDocument(t, tt.name)
			assert.Equal(t, tt.dialect, doc.Dialect)
			assert.NotEmpty(t, doc.Operations)
		})
	}
}

func TestWriteFixture(t *testing.T) {
	path := WriteFixture(t, PetstoreV2)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, Fixture(t, PetstoreV2), data)
}

func TestWriteFixtures(t *testing.T) {
	dir := WriteFixtures(t, RefSample, RefCommon)
	for _, name := range []string{RefSample, RefCommon} {
		data, err := os.ReadFile(filepath.Join(dir, name))
		require.NoError(t, err)
		assert.Equal(t, Fixture(t, name), data)
	}
}
