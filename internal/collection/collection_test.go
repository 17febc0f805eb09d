package collection

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Materials-Consortia/optimade-go/internal/clause"
	"github.com/Materials-Consortia/optimade-go/internal/filter"
	"github.com/Materials-Consortia/optimade-go/internal/mapper"
)

func testRegistry(t *testing.T) *mapper.Registry {
	t.Helper()
	reg, err := mapper.NewRegistry(mapper.Config{
		EntryType: "structures",
		Quantities: map[string]string{
			"id":                           "string",
			"nelements":                    "int",
			"band_gap":                     "float",
			"elements":                     "list_string",
			"chemical_formula_descriptive": "string",
		},
		LengthAliases: map[string]string{"elements": "nelements"},
		TextFields:    []string{"chemical_formula_descriptive"},
	})
	require.NoError(t, err)
	return reg
}

func openCollection(t *testing.T) *Collection {
	t.Helper()
	c, err := Open(filepath.Join(t.TempDir(), "test.db"), testRegistry(t))
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func seed(t *testing.T, c *Collection) {
	t.Helper()
	err := c.Insert(context.Background(), "structures", []map[string]any{
		{
			"id": "s-1", "nelements": 2, "band_gap": 1.5,
			"elements":                     []string{"Si", "O"},
			"chemical_formula_descriptive": "SiO2",
		},
		{
			"id": "s-2", "nelements": 3,
			"elements":                     []string{"Al", "Ga", "As"},
			"chemical_formula_descriptive": "AlGaAs",
		},
		{
			"id": "s-3", "nelements": 1, "band_gap": 0.0,
			"elements":                     []string{"C"},
			"chemical_formula_descriptive": "C",
		},
	})
	require.NoError(t, err)
}

func ids(docs []map[string]any) []string {
	out := make([]string, 0, len(docs))
	for _, d := range docs {
		out = append(out, d["id"].(string))
	}
	return out
}

func TestFindWithoutFilterReturnsEverything(t *testing.T) {
	c := openCollection(t)
	seed(t, c)

	docs, err := c.Find(context.Background(), "structures", "", FindOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"s-1", "s-2", "s-3"}, ids(docs))
}

func TestFindComparison(t *testing.T) {
	c := openCollection(t)
	seed(t, c)

	docs, err := c.Find(context.Background(), "structures", `nelements >= 2`, FindOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"s-1", "s-2"}, ids(docs))
}

func TestFindHasAll(t *testing.T) {
	c := openCollection(t)
	seed(t, c)

	docs, err := c.Find(context.Background(), "structures", `elements HAS ALL "Si", "O"`, FindOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"s-1"}, ids(docs))
}

// A document whose value is unknown matches IS UNKNOWN and matches
// neither the positive comparison nor its negation.
func TestFindUnknownIsThreeValued(t *testing.T) {
	c := openCollection(t)
	seed(t, c)

	unknown, err := c.Find(context.Background(), "structures", `band_gap IS UNKNOWN`, FindOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"s-2"}, ids(unknown))

	positive, err := c.Find(context.Background(), "structures", `band_gap > 1.0`, FindOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"s-1"}, ids(positive))

	negated, err := c.Find(context.Background(), "structures", `NOT band_gap > 1.0`, FindOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"s-3"}, ids(negated))
}

func TestFindLength(t *testing.T) {
	c := openCollection(t)
	seed(t, c)

	docs, err := c.Find(context.Background(), "structures", `elements LENGTH 3`, FindOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"s-2"}, ids(docs))
}

func TestFindFuzzyMatch(t *testing.T) {
	c := openCollection(t)
	seed(t, c)

	docs, err := c.Find(context.Background(), "structures",
		`chemical_formula_descriptive CONTAINS "Ga"`, FindOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"s-2"}, ids(docs))
}

func TestFindLimitAndOffset(t *testing.T) {
	c := openCollection(t)
	seed(t, c)

	docs, err := c.Find(context.Background(), "structures", "", FindOptions{Limit: 1, Offset: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"s-2"}, ids(docs))
}

func TestFindDecodesListColumns(t *testing.T) {
	c := openCollection(t)
	seed(t, c)

	docs, err := c.Find(context.Background(), "structures", `id = "s-1"`, FindOptions{})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, []any{"Si", "O"}, docs[0]["elements"])
}

func TestFindSurfacesSyntaxErrors(t *testing.T) {
	c := openCollection(t)

	_, err := c.Find(context.Background(), "structures", `elements HAS`, FindOptions{})
	require.Error(t, err)
	assert.True(t, filter.IsSyntaxError(err))
}

func TestFindSurfacesUnknownProperty(t *testing.T) {
	c := openCollection(t)

	_, err := c.Find(context.Background(), "structures", `bandgap > 1`, FindOptions{})
	require.Error(t, err)

	var te *clause.Error
	require.ErrorAs(t, err, &te)
	assert.Equal(t, clause.ErrCodeUnknownProperty, te.Code)
}

func TestInsertGeneratesMissingIDs(t *testing.T) {
	c := openCollection(t)

	err := c.Insert(context.Background(), "structures", []map[string]any{
		{"nelements": 5, "elements": []string{"H"}},
	})
	require.NoError(t, err)

	docs, err := c.Find(context.Background(), "structures", "", FindOptions{})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.NotEmpty(t, docs[0]["id"])
}

func TestOpenRejectsUnsafeColumnNames(t *testing.T) {
	reg, err := mapper.NewRegistry(mapper.Config{
		EntryType:  "structures",
		Quantities: map[string]string{"band_gap": "float"},
		Aliases:    map[string]string{"band_gap": "properties.band_gap"},
	})
	require.NoError(t, err)

	_, err = Open(filepath.Join(t.TempDir(), "test.db"), reg)
	require.Error(t, err)
}
