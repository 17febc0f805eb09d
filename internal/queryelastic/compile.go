package queryelastic

import (
	"fmt"

	"github.com/olivere/elastic/v7"

	"github.com/Materials-Consortia/optimade-go/internal/clause"
)

// Compile converts a clause tree into a search-engine query ready to be
// placed in a request body.
func Compile(c clause.Clause) (elastic.Query, error) {
	return compile(c, false)
}

func compile(c clause.Clause, negated bool) (elastic.Query, error) {
	switch node := c.(type) {
	case clause.And:
		return compileBoolean(node.Operands, negated, true)
	case clause.Or:
		return compileBoolean(node.Operands, negated, false)
	case clause.Not:
		return compile(node.Operand, !negated)
	case clause.Comparison:
		return compileComparison(node, negated)
	case clause.Membership:
		return compileMembership(node, negated)
	case clause.ZipMembership:
		return nil, clause.NewUnsupportedOperatorError(node.Mode.String(), zipNames(node),
			"correlated (zipped) set operations are not supported by the search-engine backend")
	case clause.Known:
		return compileKnown(node.Property, node.Known != negated), nil
	case clause.Match:
		return compileMatch(node, negated)
	case clause.Length:
		return compileLength(node, negated)
	default:
		return nil, clause.NewMissingHandlerError(fmt.Sprintf("search-engine backend has no handler for %T", c))
	}
}

// compileBoolean builds the n-ary combinator. Negation is applied via
// De Morgan so the negated flag keeps flowing to the leaves; a disjunction
// sets minimum_should_match to rule out the match-all degenerate form.
func compileBoolean(operands []clause.Clause, negated, conjunction bool) (elastic.Query, error) {
	parts := make([]elastic.Query, 0, len(operands))
	for _, operand := range operands {
		part, err := compile(operand, negated)
		if err != nil {
			return nil, err
		}
		parts = append(parts, part)
	}
	if conjunction != negated {
		return elastic.NewBoolQuery().Must(parts...), nil
	}
	return elastic.NewBoolQuery().Should(parts...).MinimumNumberShouldMatch(1), nil
}

// exactField returns the field to use for exact (term-level) matching.
// Full-text properties are indexed analyzed; their verbatim copy lives in
// the keyword sub-field.
func exactField(p clause.Property) string {
	if p.Text {
		return p.Field + ".keyword"
	}
	return p.Field
}

func compileComparison(c clause.Comparison, negated bool) (elastic.Query, error) {
	op := c.Op
	if negated {
		op = op.Invert()
	}

	if f, ok := c.Value.(clause.Float); ok && (op == clause.OpEq || op == clause.OpNe) {
		q := floatInterval(c.Property.Field, float64(f))
		if op == clause.OpNe {
			return mustNotKnown(c.Property.Field, q), nil
		}
		return q, nil
	}

	field := c.Property.Field
	if op == clause.OpEq || op == clause.OpNe {
		field = exactField(c.Property)
	}
	value := clause.Native(c.Value)

	switch op {
	case clause.OpEq:
		return elastic.NewTermQuery(field, value), nil
	case clause.OpNe:
		return mustNotKnown(c.Property.Field, elastic.NewTermQuery(field, value)), nil
	case clause.OpLt:
		return elastic.NewRangeQuery(field).Lt(value), nil
	case clause.OpLe:
		return elastic.NewRangeQuery(field).Lte(value), nil
	case clause.OpGt:
		return elastic.NewRangeQuery(field).Gt(value), nil
	case clause.OpGe:
		return elastic.NewRangeQuery(field).Gte(value), nil
	default:
		return nil, clause.NewMissingHandlerError(fmt.Sprintf("search-engine backend has no handler for operator %v", op))
	}
}

// mustNotKnown negates q while requiring the field to be indexed. A bare
// must_not also matches records missing the field; a record with the
// property unknown must satisfy neither a predicate nor its negation.
func mustNotKnown(field string, q elastic.Query) elastic.Query {
	return elastic.NewBoolQuery().
		Must(elastic.NewExistsQuery(field)).
		MustNot(q)
}

// floatInterval widens a float equality to the documented tolerance
// interval.
func floatInterval(field string, v float64) elastic.Query {
	lo, hi := clause.FloatBounds(v)
	return elastic.NewRangeQuery(field).Gte(lo).Lte(hi)
}

func compileKnown(p clause.Property, known bool) elastic.Query {
	exists := elastic.NewExistsQuery(p.Field)
	if known {
		return exists
	}
	return elastic.NewBoolQuery().MustNot(exists)
}

func compileMatch(m clause.Match, negated bool) (elastic.Query, error) {
	field := exactField(m.Property)
	var q elastic.Query
	switch m.Kind {
	case clause.MatchContains:
		q = elastic.NewWildcardQuery(field, "*"+escapeWildcard(m.Value)+"*")
	case clause.MatchStartsWith:
		q = elastic.NewPrefixQuery(field, m.Value)
	case clause.MatchEndsWith:
		q = elastic.NewWildcardQuery(field, "*"+escapeWildcard(m.Value))
	default:
		return nil, clause.NewMissingHandlerError(fmt.Sprintf("search-engine backend has no handler for match kind %v", m.Kind))
	}
	if negated {
		return mustNotKnown(m.Property.Field, q), nil
	}
	return q, nil
}

// escapeWildcard neutralizes the engine's wildcard metacharacters in a
// literal substring.
func escapeWildcard(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '*' || s[i] == '?' || s[i] == '\\' {
			out = append(out, '\\')
		}
		out = append(out, s[i])
	}
	return string(out)
}

func compileMembership(m clause.Membership, negated bool) (elastic.Query, error) {
	q, err := positiveMembership(m)
	if err != nil {
		return nil, err
	}
	if negated {
		return mustNotKnown(m.Property.Field, q), nil
	}
	return q, nil
}

// positiveMembership builds the un-negated form. List fields in the index
// are plain multi-valued fields, so a term query on a list field already
// has "some element matches" semantics.
func positiveMembership(m clause.Membership) (elastic.Query, error) {
	switch m.Mode {
	case clause.SetHas, clause.SetAny:
		if values, plain := equalityValues(m.Values); plain {
			return elastic.NewTermsQuery(exactField(m.Property), values...), nil
		}
		parts, err := elementQueries(m.Property, m.Values)
		if err != nil {
			return nil, err
		}
		return elastic.NewBoolQuery().Should(parts...).MinimumNumberShouldMatch(1), nil
	case clause.SetAll:
		parts, err := elementQueries(m.Property, m.Values)
		if err != nil {
			return nil, err
		}
		return elastic.NewBoolQuery().Must(parts...), nil
	case clause.SetOnly:
		return hasOnly(m)
	default:
		return nil, clause.NewMissingHandlerError(fmt.Sprintf("search-engine backend has no handler for set mode %v", m.Mode))
	}
}

// hasOnly combines an exact-cardinality check on the length alias with a
// containment check for every value. Without a length alias the
// cardinality half cannot be expressed.
func hasOnly(m clause.Membership) (elastic.Query, error) {
	if m.Property.LengthField == "" {
		return nil, clause.NewUnsupportedOperatorError(m.Mode.String(), m.Property.Name,
			"HAS ONLY requires a configured length alias on this backend")
	}
	if _, plain := equalityValues(m.Values); !plain {
		return nil, clause.NewUnsupportedOperatorError(m.Mode.String(), m.Property.Name,
			"HAS ONLY supports plain equality values only")
	}
	parts, err := elementQueries(m.Property, m.Values)
	if err != nil {
		return nil, err
	}
	q := elastic.NewBoolQuery().
		Must(elastic.NewTermQuery(m.Property.LengthField, int64(len(m.Values))))
	return q.Must(parts...), nil
}

func equalityValues(values []clause.ValueMatch) ([]interface{}, bool) {
	out := make([]interface{}, 0, len(values))
	for _, vm := range values {
		if vm.Op != clause.OpEq {
			return nil, false
		}
		if _, isFloat := vm.Value.(clause.Float); isFloat {
			return nil, false
		}
		out = append(out, clause.Native(vm.Value))
	}
	return out, true
}

// elementQueries builds one per-element query per value match.
func elementQueries(p clause.Property, values []clause.ValueMatch) ([]elastic.Query, error) {
	parts := make([]elastic.Query, 0, len(values))
	for _, vm := range values {
		q, err := elementQuery(p, vm)
		if err != nil {
			return nil, err
		}
		parts = append(parts, q)
	}
	return parts, nil
}

func elementQuery(p clause.Property, vm clause.ValueMatch) (elastic.Query, error) {
	if f, ok := vm.Value.(clause.Float); ok && (vm.Op == clause.OpEq || vm.Op == clause.OpNe) {
		q := floatInterval(p.Field, float64(f))
		if vm.Op == clause.OpNe {
			return mustNotKnown(p.Field, q), nil
		}
		return q, nil
	}

	value := clause.Native(vm.Value)
	switch vm.Op {
	case clause.OpEq:
		return elastic.NewTermQuery(exactField(p), value), nil
	case clause.OpNe:
		return mustNotKnown(p.Field, elastic.NewTermQuery(exactField(p), value)), nil
	case clause.OpLt:
		return elastic.NewRangeQuery(p.Field).Lt(value), nil
	case clause.OpLe:
		return elastic.NewRangeQuery(p.Field).Lte(value), nil
	case clause.OpGt:
		return elastic.NewRangeQuery(p.Field).Gt(value), nil
	case clause.OpGe:
		return elastic.NewRangeQuery(p.Field).Gte(value), nil
	default:
		return nil, clause.NewMissingHandlerError(fmt.Sprintf("search-engine backend has no handler for operator %v", vm.Op))
	}
}

// compileLength queries the separately indexed length alias. LENGTH on a
// property without one cannot be answered by this backend.
func compileLength(l clause.Length, negated bool) (elastic.Query, error) {
	if l.Property.LengthField == "" {
		return nil, clause.NewUnsupportedOperatorError("LENGTH", l.Property.Name,
			"LENGTH requires a configured length alias on this backend")
	}

	op := l.Op
	if negated {
		op = op.Invert()
	}
	field := l.Property.LengthField

	switch op {
	case clause.OpEq:
		return elastic.NewTermQuery(field, l.Value), nil
	case clause.OpNe:
		return mustNotKnown(field, elastic.NewTermQuery(field, l.Value)), nil
	case clause.OpLt:
		return elastic.NewRangeQuery(field).Lt(l.Value), nil
	case clause.OpLe:
		return elastic.NewRangeQuery(field).Lte(l.Value), nil
	case clause.OpGt:
		return elastic.NewRangeQuery(field).Gt(l.Value), nil
	case clause.OpGe:
		return elastic.NewRangeQuery(field).Gte(l.Value), nil
	default:
		return nil, clause.NewMissingHandlerError(fmt.Sprintf("search-engine backend has no handler for length operator %v", l.Op))
	}
}

func zipNames(z clause.ZipMembership) string {
	names := ""
	for i, p := range z.Properties {
		if i > 0 {
			names += ":"
		}
		names += p.Name
	}
	return names
}
