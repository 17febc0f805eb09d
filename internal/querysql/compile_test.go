package querysql

import (
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Materials-Consortia/optimade-go/internal/clause"
)

func golden(t *testing.T) *goldie.Goldie {
	t.Helper()
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

func intProp(name string) clause.Property {
	return clause.Property{Name: name, Field: name, Kind: clause.KindInt}
}

func listStringProp(name string) clause.Property {
	return clause.Property{Name: name, Field: name, Kind: clause.KindListString}
}

func TestSelectFullQuery(t *testing.T) {
	compiler := NewCompiler()

	filter := clause.And{Operands: []clause.Clause{
		clause.Comparison{Property: intProp("nelements"), Op: clause.OpEq, Value: clause.Int(2)},
		clause.Known{Property: clause.Property{Name: "band_gap", Field: "band_gap", Kind: clause.KindFloat}, Known: true},
	}}

	sql, params, err := compiler.Select("structures", []string{"nelements", "id"}, filter, 10, 0)
	require.NoError(t, err)

	// Verify parameterized query (no interpolation)
	assert.NotContains(t, sql, "2")
	assert.Equal(t, []any{int64(2), int64(10), int64(0)}, params)

	// COLLATE BINARY for deterministic ordering
	assert.Contains(t, sql, "ORDER BY id COLLATE BINARY ASC")

	golden(t).Assert(t, "select_full", []byte(sql+"\n"))
}

func TestSelectWithoutFilterOrLimit(t *testing.T) {
	compiler := NewCompiler()

	sql, params, err := compiler.Select("structures", nil, nil, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, params)

	golden(t).Assert(t, "select_bare", []byte(sql+"\n"))
}

func TestWhereComparison(t *testing.T) {
	compiler := NewCompiler()

	sql, params, err := compiler.Where(clause.Comparison{
		Property: intProp("nsites"), Op: clause.OpGt, Value: clause.Int(10),
	})
	require.NoError(t, err)
	assert.Equal(t, "nsites > ?", sql)
	assert.Equal(t, []any{int64(10)}, params)
}

func TestWhereFloatEqualityIsInterval(t *testing.T) {
	compiler := NewCompiler()

	sql, params, err := compiler.Where(clause.Comparison{
		Property: clause.Property{Name: "band_gap", Field: "band_gap", Kind: clause.KindFloat},
		Op:       clause.OpEq, Value: clause.Float(1.5),
	})
	require.NoError(t, err)
	assert.Equal(t, "band_gap BETWEEN ? AND ?", sql)

	lo, hi := clause.FloatBounds(1.5)
	assert.Equal(t, []any{lo, hi}, params)
}

func TestWhereHasAll(t *testing.T) {
	compiler := NewCompiler()

	sql, params, err := compiler.Where(clause.Membership{
		Property: listStringProp("elements"),
		Mode:     clause.SetAll,
		Values: []clause.ValueMatch{
			{Op: clause.OpEq, Value: clause.String("Si")},
			{Op: clause.OpEq, Value: clause.String("O")},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, []any{"Si", "O"}, params)

	golden(t).Assert(t, "where_has_all", []byte(sql+"\n"))
}

func TestWhereHasAnyUsesIn(t *testing.T) {
	compiler := NewCompiler()

	sql, params, err := compiler.Where(clause.Membership{
		Property: listStringProp("elements"),
		Mode:     clause.SetAny,
		Values: []clause.ValueMatch{
			{Op: clause.OpEq, Value: clause.String("Al")},
			{Op: clause.OpEq, Value: clause.String("Ga")},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, []any{"Al", "Ga"}, params)

	golden(t).Assert(t, "where_has_any", []byte(sql+"\n"))
}

func TestWhereHasOnly(t *testing.T) {
	compiler := NewCompiler()

	sql, params, err := compiler.Where(clause.Membership{
		Property: listStringProp("elements"),
		Mode:     clause.SetOnly,
		Values: []clause.ValueMatch{
			{Op: clause.OpEq, Value: clause.String("Si")},
			{Op: clause.OpEq, Value: clause.String("O")},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, []any{int64(2), "Si", "O"}, params)

	golden(t).Assert(t, "where_has_only", []byte(sql+"\n"))
}

// A negated membership must not match rows whose list column is NULL, so
// the compiler guards the NOT EXISTS with an IS NOT NULL check.
func TestWhereNegatedMembershipGuardsNull(t *testing.T) {
	compiler := NewCompiler()

	sql, params, err := compiler.Where(clause.Not{Operand: clause.Membership{
		Property: listStringProp("elements"),
		Mode:     clause.SetHas,
		Values:   []clause.ValueMatch{{Op: clause.OpEq, Value: clause.String("C")}},
	}})
	require.NoError(t, err)
	assert.Equal(t, []any{"C"}, params)

	golden(t).Assert(t, "where_not_has", []byte(sql+"\n"))
}

func TestWhereMembershipWithOperators(t *testing.T) {
	compiler := NewCompiler()

	sql, params, err := compiler.Where(clause.Membership{
		Property: clause.Property{Name: "elements_ratios", Field: "elements_ratios", Kind: clause.KindListFloat},
		Mode:     clause.SetAny,
		Values:   []clause.ValueMatch{{Op: clause.OpGt, Value: clause.Float(0.5)}},
	})
	require.NoError(t, err)
	assert.Equal(t, "EXISTS (SELECT 1 FROM json_each(elements_ratios) WHERE json_each.value > ?)", sql)
	assert.Equal(t, []any{0.5}, params)
}

func TestWhereLength(t *testing.T) {
	compiler := NewCompiler()

	sql, params, err := compiler.Where(clause.Length{
		Property: listStringProp("elements"), Op: clause.OpGe, Value: 3,
	})
	require.NoError(t, err)
	assert.Equal(t, "json_array_length(elements) >= ?", sql)
	assert.Equal(t, []any{int64(3)}, params)
}

func TestWhereMatchEscapesLikeMetacharacters(t *testing.T) {
	compiler := NewCompiler()

	sql, params, err := compiler.Where(clause.Match{
		Property: clause.Property{Name: "chemical_formula_descriptive", Field: "chemical_formula_descriptive", Kind: clause.KindString, Text: true},
		Kind:     clause.MatchContains,
		Value:    "50%_H2O",
	})
	require.NoError(t, err)
	assert.Equal(t, `chemical_formula_descriptive LIKE ? ESCAPE '\'`, sql)
	assert.Equal(t, []any{`%50\%\_H2O%`}, params)
}

func TestWhereKnownAndUnknown(t *testing.T) {
	compiler := NewCompiler()
	p := clause.Property{Name: "band_gap", Field: "band_gap", Kind: clause.KindFloat}

	known, _, err := compiler.Where(clause.Known{Property: p, Known: true})
	require.NoError(t, err)
	assert.Equal(t, "band_gap IS NOT NULL", known)

	unknown, _, err := compiler.Where(clause.Known{Property: p, Known: false})
	require.NoError(t, err)
	assert.Equal(t, "band_gap IS NULL", unknown)

	negUnknown, _, err := compiler.Where(clause.Not{Operand: clause.Known{Property: p, Known: false}})
	require.NoError(t, err)
	assert.Equal(t, known, negUnknown)
}

func TestWhereNegatedOrBecomesAnd(t *testing.T) {
	compiler := NewCompiler()

	sql, params, err := compiler.Where(clause.Not{Operand: clause.Or{Operands: []clause.Clause{
		clause.Comparison{Property: intProp("nelements"), Op: clause.OpLt, Value: clause.Int(2)},
		clause.Comparison{Property: intProp("nsites"), Op: clause.OpGt, Value: clause.Int(100)},
	}}})
	require.NoError(t, err)
	assert.Equal(t, "(nelements >= ? AND nsites <= ?)", sql)
	assert.Equal(t, []any{int64(2), int64(100)}, params)
}

func TestWhereDoubleNegationCancels(t *testing.T) {
	compiler := NewCompiler()

	inner := clause.Comparison{Property: intProp("nelements"), Op: clause.OpEq, Value: clause.Int(2)}

	plain, plainParams, err := compiler.Where(inner)
	require.NoError(t, err)
	doubled, doubledParams, err2 := compiler.Where(clause.Not{Operand: clause.Not{Operand: inner}})
	require.NoError(t, err2)

	assert.Equal(t, plain, doubled)
	assert.Equal(t, plainParams, doubledParams)
}

func TestWhereZipMembershipIsRejected(t *testing.T) {
	compiler := NewCompiler()

	_, _, err := compiler.Where(clause.ZipMembership{
		Properties: []clause.Property{
			listStringProp("elements"),
			{Name: "elements_ratios", Field: "elements_ratios", Kind: clause.KindListFloat},
		},
		Mode: clause.SetHas,
		Tuples: [][]clause.ValueMatch{
			{{Op: clause.OpEq, Value: clause.String("Si")}, {Op: clause.OpEq, Value: clause.Float(0.5)}},
		},
	})
	require.Error(t, err)

	var te *clause.Error
	require.ErrorAs(t, err, &te)
	assert.Equal(t, clause.ErrCodeUnsupportedOperator, te.Code)
}
