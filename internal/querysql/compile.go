package querysql

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Materials-Consortia/optimade-go/internal/clause"
)

// Compiler compiles clause trees to parameterized SQL for SQLite.
//
// List-typed properties are stored as JSON text columns; set membership
// goes through json_each and LENGTH through json_array_length.
//
// CRITICAL: ALL queries include ORDER BY for deterministic results.
// CRITICAL: All values are parameterized (never interpolated).
type Compiler struct{}

// NewCompiler creates a new Compiler.
func NewCompiler() *Compiler {
	return &Compiler{}
}

// Select builds a full SELECT over table with the given columns and an
// optional filter. limit <= 0 means no LIMIT clause.
//
// MANDATORY: Every query includes ORDER BY with a deterministic tiebreaker.
func (c *Compiler) Select(table string, columns []string, filter clause.Clause, limit, offset int64) (string, []any, error) {
	selectClause := "*"
	if len(columns) > 0 {
		cols := append([]string(nil), columns...)
		sort.Strings(cols)
		selectClause = strings.Join(cols, ", ")
	}

	var whereClause string
	var params []any
	if filter != nil {
		filterSQL, filterParams, err := c.Where(filter)
		if err != nil {
			return "", nil, fmt.Errorf("compile filter: %w", err)
		}
		whereClause = " WHERE " + filterSQL
		params = filterParams
	}

	// COLLATE BINARY ensures deterministic text ordering across SQLite
	// versions.
	sql := fmt.Sprintf("SELECT %s FROM %s%s ORDER BY id COLLATE BINARY ASC",
		selectClause, table, whereClause)

	if limit > 0 {
		sql += " LIMIT ? OFFSET ?"
		params = append(params, limit, offset)
	}
	return sql, params, nil
}

// Where compiles a clause tree to a WHERE fragment plus its parameters.
func (c *Compiler) Where(cl clause.Clause) (string, []any, error) {
	return c.compile(cl, false)
}

// compile dispatches on the clause kind, pushing negation to the leaves.
// SQL's own three-valued logic already excludes NULL-valued rows from a
// negated comparison, which is exactly the semantics IS UNKNOWN needs, so
// most leaves only invert their operator. The EXISTS-based translations
// lose that property and guard with IS NOT NULL explicitly.
func (c *Compiler) compile(cl clause.Clause, negated bool) (string, []any, error) {
	switch node := cl.(type) {
	case clause.And:
		return c.compileBoolean(node.Operands, negated, " AND ", " OR ")
	case clause.Or:
		return c.compileBoolean(node.Operands, negated, " OR ", " AND ")
	case clause.Not:
		return c.compile(node.Operand, !negated)
	case clause.Comparison:
		return c.compileComparison(node, negated)
	case clause.Membership:
		return c.compileMembership(node, negated)
	case clause.ZipMembership:
		return "", nil, clause.NewUnsupportedOperatorError(node.Mode.String(), zipNames(node),
			"correlated (zipped) set operations are not supported by the relational backend")
	case clause.Known:
		return c.compileKnown(node.Property, node.Known != negated), nil, nil
	case clause.Match:
		return c.compileMatch(node, negated)
	case clause.Length:
		return c.compileLength(node, negated)
	default:
		return "", nil, clause.NewMissingHandlerError(fmt.Sprintf("relational backend has no handler for %T", cl))
	}
}

func (c *Compiler) compileBoolean(operands []clause.Clause, negated bool, sep, negSep string) (string, []any, error) {
	join := sep
	if negated {
		join = negSep
	}
	var sqlParts []string
	var allParams []any
	for _, operand := range operands {
		sql, params, err := c.compile(operand, negated)
		if err != nil {
			return "", nil, err
		}
		sqlParts = append(sqlParts, sql)
		allParams = append(allParams, params...)
	}
	return "(" + strings.Join(sqlParts, join) + ")", allParams, nil
}

// compileComparison emits "field op ?". Float (in)equality widens to the
// tolerance interval.
func (c *Compiler) compileComparison(cmp clause.Comparison, negated bool) (string, []any, error) {
	op := cmp.Op
	if negated {
		op = op.Invert()
	}

	if f, ok := cmp.Value.(clause.Float); ok && (op == clause.OpEq || op == clause.OpNe) {
		lo, hi := clause.FloatBounds(float64(f))
		if op == clause.OpEq {
			return fmt.Sprintf("%s BETWEEN ? AND ?", cmp.Property.Field), []any{lo, hi}, nil
		}
		return fmt.Sprintf("(%s < ? OR %s > ?)", cmp.Property.Field, cmp.Property.Field), []any{lo, hi}, nil
	}

	return fmt.Sprintf("%s %s ?", cmp.Property.Field, sqlOp(op)), []any{clause.Native(cmp.Value)}, nil
}

func sqlOp(op clause.Op) string {
	switch op {
	case clause.OpEq:
		return "="
	case clause.OpNe:
		return "!="
	case clause.OpLt:
		return "<"
	case clause.OpLe:
		return "<="
	case clause.OpGt:
		return ">"
	case clause.OpGe:
		return ">="
	default:
		return "="
	}
}

func (c *Compiler) compileKnown(p clause.Property, known bool) string {
	if known {
		return fmt.Sprintf("%s IS NOT NULL", p.Field)
	}
	return fmt.Sprintf("%s IS NULL", p.Field)
}

// compileMatch emits a LIKE with escaped metacharacters. NOT LIKE on a
// NULL field yields NULL, so unknown rows stay excluded either way.
func (c *Compiler) compileMatch(m clause.Match, negated bool) (string, []any, error) {
	escaped := escapeLike(m.Value)
	var pattern string
	switch m.Kind {
	case clause.MatchContains:
		pattern = "%" + escaped + "%"
	case clause.MatchStartsWith:
		pattern = escaped + "%"
	case clause.MatchEndsWith:
		pattern = "%" + escaped
	default:
		return "", nil, clause.NewMissingHandlerError(fmt.Sprintf("relational backend has no handler for match kind %v", m.Kind))
	}

	like := "LIKE"
	if negated {
		like = "NOT LIKE"
	}
	return fmt.Sprintf("%s %s ? ESCAPE '\\'", m.Property.Field, like), []any{pattern}, nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func (c *Compiler) compileMembership(m clause.Membership, negated bool) (string, []any, error) {
	sql, params, err := c.positiveMembership(m)
	if err != nil {
		return "", nil, err
	}
	if negated {
		// NOT EXISTS over json_each(NULL) would match rows whose list is
		// unknown; guard so negation never matches an unknown list.
		sql = fmt.Sprintf("(%s IS NOT NULL AND NOT %s)", m.Property.Field, sql)
	}
	return sql, params, nil
}

func (c *Compiler) positiveMembership(m clause.Membership) (string, []any, error) {
	switch m.Mode {
	case clause.SetHas, clause.SetAny:
		if values, plain := equalityValues(m.Values); plain {
			placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(values)), ", ")
			sql := fmt.Sprintf("EXISTS (SELECT 1 FROM json_each(%s) WHERE json_each.value IN (%s))",
				m.Property.Field, placeholders)
			return sql, values, nil
		}
		return c.elementDisjunction(m.Property, m.Values, " OR ")
	case clause.SetAll:
		var sqlParts []string
		var allParams []any
		for _, vm := range m.Values {
			sql, params, err := elementExists(m.Property, vm)
			if err != nil {
				return "", nil, err
			}
			sqlParts = append(sqlParts, sql)
			allParams = append(allParams, params...)
		}
		return "(" + strings.Join(sqlParts, " AND ") + ")", allParams, nil
	case clause.SetOnly:
		return c.hasOnly(m)
	default:
		return "", nil, clause.NewMissingHandlerError(fmt.Sprintf("relational backend has no handler for set mode %v", m.Mode))
	}
}

func (c *Compiler) elementDisjunction(p clause.Property, values []clause.ValueMatch, sep string) (string, []any, error) {
	var sqlParts []string
	var allParams []any
	for _, vm := range values {
		sql, params, err := elementExists(p, vm)
		if err != nil {
			return "", nil, err
		}
		sqlParts = append(sqlParts, sql)
		allParams = append(allParams, params...)
	}
	if len(sqlParts) == 1 {
		return sqlParts[0], allParams, nil
	}
	return "(" + strings.Join(sqlParts, sep) + ")", allParams, nil
}

// elementExists emits "some element satisfies vm" via json_each.
func elementExists(p clause.Property, vm clause.ValueMatch) (string, []any, error) {
	if f, ok := vm.Value.(clause.Float); ok && (vm.Op == clause.OpEq || vm.Op == clause.OpNe) {
		lo, hi := clause.FloatBounds(float64(f))
		cond := "json_each.value BETWEEN ? AND ?"
		if vm.Op == clause.OpNe {
			cond = "json_each.value NOT BETWEEN ? AND ?"
		}
		sql := fmt.Sprintf("EXISTS (SELECT 1 FROM json_each(%s) WHERE %s)", p.Field, cond)
		return sql, []any{lo, hi}, nil
	}

	sql := fmt.Sprintf("EXISTS (SELECT 1 FROM json_each(%s) WHERE json_each.value %s ?)",
		p.Field, sqlOp(vm.Op))
	return sql, []any{clause.Native(vm.Value)}, nil
}

// hasOnly checks exact cardinality plus containment of every value.
func (c *Compiler) hasOnly(m clause.Membership) (string, []any, error) {
	values, plain := equalityValues(m.Values)
	if !plain {
		return "", nil, clause.NewUnsupportedOperatorError(m.Mode.String(), m.Property.Name,
			"HAS ONLY supports plain equality values only")
	}

	sqlParts := []string{fmt.Sprintf("json_array_length(%s) = ?", m.Property.Field)}
	allParams := []any{int64(len(values))}
	for _, v := range values {
		sqlParts = append(sqlParts,
			fmt.Sprintf("EXISTS (SELECT 1 FROM json_each(%s) WHERE json_each.value = ?)", m.Property.Field))
		allParams = append(allParams, v)
	}
	return "(" + strings.Join(sqlParts, " AND ") + ")", allParams, nil
}

// compileLength compares json_array_length, which is NULL for a NULL
// column, so unknown lists never match in either polarity.
func (c *Compiler) compileLength(l clause.Length, negated bool) (string, []any, error) {
	op := l.Op
	if negated {
		op = op.Invert()
	}
	sql := fmt.Sprintf("json_array_length(%s) %s ?", l.Property.Field, sqlOp(op))
	return sql, []any{l.Value}, nil
}

func equalityValues(values []clause.ValueMatch) ([]any, bool) {
	out := make([]any, 0, len(values))
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
