package cli

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Materials-Consortia/optimade-go/internal/collection"
	"github.com/Materials-Consortia/optimade-go/internal/config"
)

// seedDatabase builds a populated SQLite collection and returns its path.
func seedDatabase(t *testing.T) string {
	t.Helper()

	registry, _, err := config.Registry(testConfig)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "entries.db")
	coll, err := collection.Open(path, registry)
	require.NoError(t, err)
	defer coll.Close()

	err = coll.Insert(context.Background(), "structures", []map[string]any{
		{"id": "s-1", "nelements": 2, "elements": []string{"Si", "O"},
			"chemical_formula_descriptive": "SiO2"},
		{"id": "s-2", "nelements": 3, "elements": []string{"Al", "Ga", "As"},
			"chemical_formula_descriptive": "AlGaAs"},
	})
	require.NoError(t, err)
	return path
}

func TestQueryEndToEnd(t *testing.T) {
	db := seedDatabase(t)

	out, err := execute(t, "--format", "json", "query",
		"-c", testConfig, "--db", db, `elements HAS ALL "Si", "O"`)
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)

	data, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	var result QueryResult
	require.NoError(t, json.Unmarshal(data, &result))
	require.Equal(t, 1, result.Count)
	assert.Equal(t, "s-1", result.Entries[0]["id"])
}

func TestQueryWithoutFilter(t *testing.T) {
	db := seedDatabase(t)

	out, err := execute(t, "query", "-c", testConfig, "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "2 entries")
	assert.Contains(t, out, "s-1")
	assert.Contains(t, out, "s-2")
}

func TestQuerySyntaxErrorExitsOne(t *testing.T) {
	db := seedDatabase(t)

	out, err := execute(t, "query", "-c", testConfig, "--db", db, `elements HAS`)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "SYNTAX_ERROR")
}

func TestQueryUnknownPropertyExitsOne(t *testing.T) {
	db := seedDatabase(t)

	_, err := execute(t, "query", "-c", testConfig, "--db", db, `bandgap > 1`)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestQueryWithoutDatabasePathExitsTwo(t *testing.T) {
	// The test config carries no database.path, and no --db is given.
	_, err := execute(t, "query", "-c", testConfig, `nelements = 2`)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestQueryUsesConfigDatabasePath(t *testing.T) {
	db := seedDatabase(t)

	// A config that names the database directly.
	raw, err := os.ReadFile(testConfig)
	require.NoError(t, err)
	withDB := append([]byte("database:\n  path: "+db+"\n"), raw...)
	cfgPath := filepath.Join(t.TempDir(), "with-db.yaml")
	require.NoError(t, os.WriteFile(cfgPath, withDB, 0o644))

	out, err := execute(t, "query", "-c", cfgPath, "--limit", "1", "")
	require.NoError(t, err)
	assert.Contains(t, out, "1 entry")
}
