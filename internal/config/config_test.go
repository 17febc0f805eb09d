package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Materials-Consortia/optimade-go/internal/clause"
)

func TestLoadValidConfig(t *testing.T) {
	f, err := Load(filepath.Join("testdata", "optimade.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "exmpl", f.Provider.Prefix)
	assert.Equal(t, "optimade.db", f.Database.Path)
	require.Contains(t, f.Entries, "structures")
	require.Contains(t, f.Entries, "references")

	structures := f.Entries["structures"]
	assert.Equal(t, "nelements", structures.LengthAliases["elements"])
	assert.Equal(t, "_id", structures.Aliases["id"])
}

func TestRegistryFromConfig(t *testing.T) {
	reg, f, err := Registry(filepath.Join("testdata", "optimade.yaml"))
	require.NoError(t, err)
	assert.Equal(t, []string{"references", "structures"}, reg.EntryTypes())
	assert.NotNil(t, f)

	m, ok := reg.For("structures")
	require.True(t, ok)

	// Aliases resolve to physical names.
	p, ok := m.Resolve("id")
	require.True(t, ok)
	assert.Equal(t, "_id", p.Field)

	// Length alias carried onto the list property.
	elements, ok := m.Resolve("elements")
	require.True(t, ok)
	assert.Equal(t, "nelements", elements.LengthField)

	// Provider fields live under the namespaced logical name.
	cv, ok := m.Resolve("_exmpl_cell_volume")
	require.True(t, ok)
	assert.Equal(t, clause.KindFloat, cv.Kind)

	// Zip group declared in the document.
	assert.True(t, m.Correlated([]string{"elements", "elements_ratios"}))
	assert.False(t, m.Correlated([]string{"elements", "structure_features"}))
}

func TestParseRejectsUnknownTypeName(t *testing.T) {
	raw := []byte(`
entries:
  structures:
    quantities:
      band_gap: double
`)
	_, err := Parse("inline.yaml", raw)
	require.Error(t, err)

	le, ok := err.(*LoadError)
	require.True(t, ok)
	assert.Equal(t, ErrCodeSchema, le.Code)
}

func TestParseRejectsMalformedProviderPrefix(t *testing.T) {
	raw := []byte(`
provider:
  prefix: "Ex Mpl"
entries:
  structures:
    quantities:
      id: string
`)
	_, err := Parse("inline.yaml", raw)
	require.Error(t, err)

	le, ok := err.(*LoadError)
	require.True(t, ok)
	assert.Equal(t, ErrCodeSchema, le.Code)
}

func TestParseRejectsEmptyEntries(t *testing.T) {
	_, err := Parse("inline.yaml", []byte("entries: {}\n"))
	require.Error(t, err)
}

func TestRegistrySurfacesMapperErrors(t *testing.T) {
	// Schema-valid but semantically broken: length alias points at a
	// string quantity.
	raw := []byte(`
entries:
  structures:
    quantities:
      id: string
      elements: list_string
    length_aliases:
      elements: id
`)
	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, raw, 0o644))

	_, _, err := Registry(path)
	require.Error(t, err)
	le, ok := err.(*LoadError)
	require.True(t, ok)
	assert.Equal(t, ErrCodeBuild, le.Code)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join("testdata", "does-not-exist.yaml"))
	require.Error(t, err)

	le, ok := err.(*LoadError)
	require.True(t, ok)
	assert.Equal(t, ErrCodeRead, le.Code)
}
