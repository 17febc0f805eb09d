package transform

import (
	"fmt"

	"golang.org/x/text/unicode/norm"

	"github.com/Materials-Consortia/optimade-go/internal/clause"
	"github.com/Materials-Consortia/optimade-go/internal/filter"
	"github.com/Materials-Consortia/optimade-go/internal/mapper"
)

// Transformer converts parsed filters into normalized clause trees for one
// entry type. It carries no per-call state and is safe for concurrent use.
type Transformer struct {
	mapper *mapper.Mapper
}

// New creates a Transformer bound to the given mapper.
func New(m *mapper.Mapper) *Transformer {
	return &Transformer{mapper: m}
}

// Transform walks the syntax tree and returns the normalized clause tree.
// All four transform error kinds (unknown property, unsupported operator,
// invalid zip, missing handler) propagate synchronously; nothing is retried
// and no partial tree is ever returned alongside an error.
func (t *Transformer) Transform(f *filter.Filter) (clause.Clause, error) {
	if f == nil || f.Expr == nil {
		return nil, clause.NewMissingHandlerError("nil filter tree")
	}
	return t.expression(f.Expr)
}

// expression flattens term (OR term)* into a single n-ary Or.
func (t *Transformer) expression(e *filter.Expression) (clause.Clause, error) {
	first, err := t.term(e.Left)
	if err != nil {
		return nil, err
	}
	if len(e.Right) == 0 {
		return first, nil
	}

	operands := spliceOr(nil, first)
	for _, termNode := range e.Right {
		c, err := t.term(termNode)
		if err != nil {
			return nil, err
		}
		operands = spliceOr(operands, c)
	}
	return clause.Or{Operands: operands}, nil
}

// term flattens phrase (AND phrase)* into a single n-ary And.
func (t *Transformer) term(node *filter.Term) (clause.Clause, error) {
	first, err := t.phrase(node.Left)
	if err != nil {
		return nil, err
	}
	if len(node.Right) == 0 {
		return first, nil
	}

	operands := spliceAnd(nil, first)
	for _, p := range node.Right {
		c, err := t.phrase(p)
		if err != nil {
			return nil, err
		}
		operands = spliceAnd(operands, c)
	}
	return clause.And{Operands: operands}, nil
}

// spliceOr appends c to operands, splicing nested Or nodes so chains built
// through parentheses still collapse to one level.
func spliceOr(operands []clause.Clause, c clause.Clause) []clause.Clause {
	if or, ok := c.(clause.Or); ok {
		return append(operands, or.Operands...)
	}
	return append(operands, c)
}

func spliceAnd(operands []clause.Clause, c clause.Clause) []clause.Clause {
	if and, ok := c.(clause.And); ok {
		return append(operands, and.Operands...)
	}
	return append(operands, c)
}

func (t *Transformer) phrase(p *filter.Phrase) (clause.Clause, error) {
	var inner clause.Clause
	var err error
	switch {
	case p.Group != nil:
		inner, err = t.expression(p.Group)
	case p.Comparison != nil:
		inner, err = t.comparison(p.Comparison)
	default:
		return nil, clause.NewMissingHandlerError("expression phrase with neither group nor comparison")
	}
	if err != nil {
		return nil, err
	}
	if p.Not {
		return clause.Not{Operand: inner}, nil
	}
	return inner, nil
}

func (t *Transformer) comparison(c *filter.Comparison) (clause.Clause, error) {
	switch {
	case c.ConstantFirst != nil:
		return t.constantFirst(c.ConstantFirst)
	case c.PropertyFirst != nil:
		return t.propertyFirst(c.PropertyFirst)
	default:
		return nil, clause.NewMissingHandlerError("comparison with no recognized form")
	}
}

// constantFirst normalizes "3 < nelements" to "nelements > 3" by flipping
// the operator, then reuses the relational path.
func (t *Transformer) constantFirst(c *filter.ConstantFirst) (clause.Clause, error) {
	prop, err := t.resolve(c.Property.Path)
	if err != nil {
		return nil, err
	}
	op, err := parseOp(c.Op)
	if err != nil {
		return nil, err
	}
	value, err := constantValue(c.Value)
	if err != nil {
		return nil, err
	}
	return t.relational(prop, op.Flip(), value, c.Op)
}

func (t *Transformer) propertyFirst(c *filter.PropertyFirst) (clause.Clause, error) {
	prop, err := t.resolve(c.Property.Path)
	if err != nil {
		return nil, err
	}

	rhs := c.RHS
	if rhs == nil {
		return nil, clause.NewMissingHandlerError("property comparison with no right-hand side")
	}

	// The zip addon is only meaningful in front of a set operator.
	if len(c.Zip) > 0 && rhs.Set == nil {
		return nil, clause.NewInvalidZipError(
			fmt.Sprintf("zip addon on %q requires a set operator (HAS ...)", prop.Name))
	}

	switch {
	case rhs.Relation != nil:
		op, err := parseOp(rhs.Relation.Op)
		if err != nil {
			return nil, err
		}
		value, err := literalValue(rhs.Relation.Value, prop.Name, rhs.Relation.Op)
		if err != nil {
			return nil, err
		}
		return t.relational(prop, op, value, rhs.Relation.Op)

	case rhs.Known != nil:
		return clause.Known{Property: prop, Known: rhs.Known.Known}, nil

	case rhs.Fuzzy != nil:
		return t.fuzzy(prop, rhs.Fuzzy)

	case rhs.Set != nil:
		return t.set(prop, c.Zip, rhs.Set)

	case rhs.Length != nil:
		return t.length(prop, rhs.Length)

	default:
		return nil, clause.NewMissingHandlerError("comparison right-hand side with no recognized operator")
	}
}

// resolve looks a logical name up in the mapper. Unknown names are user
// errors, detected here in pre-processing rather than during backend
// dispatch.
func (t *Transformer) resolve(name string) (clause.Property, error) {
	prop, ok := t.mapper.Resolve(name)
	if !ok {
		return clause.Property{}, clause.NewUnknownPropertyError(name)
	}
	return prop, nil
}

// relational builds a Comparison after checking the operand shape against
// the property's declared type. spelled is the operator as written, for
// error messages.
func (t *Transformer) relational(prop clause.Property, op clause.Op, value clause.Value, spelled string) (clause.Clause, error) {
	if prop.Kind.IsList() {
		return nil, clause.NewUnsupportedOperatorError(spelled, prop.Name,
			"relational comparison against a list property; use HAS, HAS ALL, HAS ANY or HAS ONLY")
	}

	switch prop.Kind {
	case clause.KindString, clause.KindTimestamp:
		if _, ok := value.(clause.String); !ok {
			return nil, clause.NewUnsupportedOperatorError(spelled, prop.Name,
				fmt.Sprintf("%s property compared against %s", prop.Kind, clause.FormatValue(value)))
		}
	case clause.KindBool:
		return nil, clause.NewUnsupportedOperatorError(spelled, prop.Name,
			"boolean properties only support IS KNOWN / IS UNKNOWN")
	case clause.KindInt:
		if _, ok := value.(clause.String); ok {
			return nil, clause.NewUnsupportedOperatorError(spelled, prop.Name,
				"int property compared against a string")
		}
	case clause.KindFloat:
		switch v := value.(type) {
		case clause.String:
			return nil, clause.NewUnsupportedOperatorError(spelled, prop.Name,
				"float property compared against a string")
		case clause.Int:
			// Widen so equality gets the documented epsilon treatment.
			value = clause.Float(float64(v))
		}
	}

	return clause.Comparison{Property: prop, Op: op, Value: value}, nil
}

func (t *Transformer) fuzzy(prop clause.Property, f *filter.FuzzyOpRHS) (clause.Clause, error) {
	var kind clause.MatchKind
	var raw *filter.Value
	switch {
	case f.Contains != nil:
		kind, raw = clause.MatchContains, f.Contains
	case f.Starts != nil:
		kind, raw = clause.MatchStartsWith, f.Starts
	case f.Ends != nil:
		kind, raw = clause.MatchEndsWith, f.Ends
	default:
		return nil, clause.NewMissingHandlerError("fuzzy predicate with no recognized variant")
	}

	if prop.Kind != clause.KindString {
		return nil, clause.NewUnsupportedOperatorError(kind.String(), prop.Name,
			fmt.Sprintf("fuzzy string matching on a %s property", prop.Kind))
	}
	value, err := literalValue(raw, prop.Name, kind.String())
	if err != nil {
		return nil, err
	}
	s, ok := value.(clause.String)
	if !ok {
		return nil, clause.NewUnsupportedOperatorError(kind.String(), prop.Name,
			"fuzzy string matching requires a string operand")
	}
	return clause.Match{Property: prop, Kind: kind, Value: string(s)}, nil
}

func (t *Transformer) length(prop clause.Property, l *filter.LengthOpRHS) (clause.Clause, error) {
	if !prop.Kind.IsList() {
		return nil, clause.NewUnsupportedOperatorError("LENGTH", prop.Name,
			fmt.Sprintf("LENGTH on a %s property", prop.Kind))
	}
	op := clause.OpEq
	if l.Op != "" {
		parsed, err := parseOp(l.Op)
		if err != nil {
			return nil, err
		}
		op = parsed
	}
	value, err := literalValue(l.Value, prop.Name, "LENGTH")
	if err != nil {
		return nil, err
	}
	n, ok := value.(clause.Int)
	if !ok {
		return nil, clause.NewUnsupportedOperatorError("LENGTH", prop.Name,
			"LENGTH requires an integer operand")
	}
	if n < 0 {
		return nil, clause.NewUnsupportedOperatorError("LENGTH", prop.Name,
			"LENGTH requires a non-negative operand")
	}
	return clause.Length{Property: prop, Op: op, Value: int64(n)}, nil
}

// set builds a Membership or, when a zip addon is present, a ZipMembership.
func (t *Transformer) set(prop clause.Property, zip []*filter.Property, s *filter.SetOpRHS) (clause.Clause, error) {
	mode, tuples := setForm(s)
	if tuples == nil {
		return nil, clause.NewMissingHandlerError("set operator with no recognized form")
	}

	props := []clause.Property{prop}
	for _, z := range zip {
		zp, err := t.resolve(z.Path)
		if err != nil {
			return nil, err
		}
		props = append(props, zp)
	}

	for _, p := range props {
		if !p.Kind.IsList() {
			return nil, clause.NewUnsupportedOperatorError(mode.String(), p.Name,
				fmt.Sprintf("set membership on a %s property", p.Kind))
		}
	}

	if len(props) > 1 {
		return t.zipMembership(props, mode, tuples)
	}

	values := make([]clause.ValueMatch, 0, len(tuples))
	for _, tuple := range tuples {
		if len(tuple.Rest) > 0 {
			return nil, clause.NewInvalidZipError(
				fmt.Sprintf("zipped value tuples on %q require a matching zip addon (property:property HAS ...)", prop.Name))
		}
		vm, err := t.valueMatch(prop, prop.Kind.Element(), tuple.First, mode)
		if err != nil {
			return nil, err
		}
		values = append(values, vm)
	}
	return clause.Membership{Property: prop, Mode: mode, Values: values}, nil
}

// setForm maps the parsed set-operator form onto its mode and tuple list.
// A nil tuple slice means the parse produced none of the known forms.
func setForm(s *filter.SetOpRHS) (clause.SetMode, []*filter.ValueTuple) {
	switch {
	case s.All != nil:
		return clause.SetAll, s.All
	case s.Any != nil:
		return clause.SetAny, s.Any
	case s.Only != nil:
		return clause.SetOnly, s.Only
	case s.Single != nil:
		return clause.SetHas, []*filter.ValueTuple{s.Single}
	default:
		return clause.SetHas, nil
	}
}

// zipMembership validates a correlated set operation. Tuple arity is
// checked here because the grammar cannot enforce that value tuples
// align with the property list.
func (t *Transformer) zipMembership(props []clause.Property, mode clause.SetMode, tuples []*filter.ValueTuple) (clause.Clause, error) {
	names := make([]string, len(props))
	for i, p := range props {
		names[i] = p.Name
	}
	if !t.mapper.Correlated(names) {
		return nil, clause.NewInvalidZipError(
			fmt.Sprintf("properties %v are not declared as a correlated zip group", names))
	}

	rows := make([][]clause.ValueMatch, 0, len(tuples))
	for _, tuple := range tuples {
		raw := append([]*filter.OptValue{tuple.First}, tuple.Rest...)
		if len(raw) != len(props) {
			return nil, clause.NewInvalidZipError(
				fmt.Sprintf("zip tuple has %d values for %d properties", len(raw), len(props)))
		}
		row := make([]clause.ValueMatch, len(raw))
		for i, ov := range raw {
			vm, err := t.valueMatch(props[i], props[i].Kind.Element(), ov, mode)
			if err != nil {
				return nil, err
			}
			row[i] = vm
		}
		rows = append(rows, row)
	}
	return clause.ZipMembership{Properties: props, Mode: mode, Tuples: rows}, nil
}

// valueMatch converts one optionally-signed list element, checking its type
// against the element kind of the list property.
func (t *Transformer) valueMatch(prop clause.Property, elem clause.Kind, ov *filter.OptValue, mode clause.SetMode) (clause.ValueMatch, error) {
	op := clause.OpEq
	if ov.Op != "" {
		parsed, err := parseOp(ov.Op)
		if err != nil {
			return clause.ValueMatch{}, err
		}
		op = parsed
	}
	value, err := literalValue(ov.Value, prop.Name, mode.String())
	if err != nil {
		return clause.ValueMatch{}, err
	}

	switch elem {
	case clause.KindString:
		if _, ok := value.(clause.String); !ok {
			return clause.ValueMatch{}, clause.NewUnsupportedOperatorError(mode.String(), prop.Name,
				fmt.Sprintf("list of string matched against %s", clause.FormatValue(value)))
		}
	case clause.KindInt:
		if _, ok := value.(clause.Int); !ok {
			return clause.ValueMatch{}, clause.NewUnsupportedOperatorError(mode.String(), prop.Name,
				fmt.Sprintf("list of int matched against %s", clause.FormatValue(value)))
		}
	case clause.KindFloat:
		switch v := value.(type) {
		case clause.String:
			return clause.ValueMatch{}, clause.NewUnsupportedOperatorError(mode.String(), prop.Name,
				"list of float matched against a string")
		case clause.Int:
			value = clause.Float(float64(v))
		}
	}

	return clause.ValueMatch{Op: op, Value: value}, nil
}

// parseOp maps an operator spelling to its tagged variant.
func parseOp(s string) (clause.Op, error) {
	switch s {
	case "=":
		return clause.OpEq, nil
	case "!=":
		return clause.OpNe, nil
	case "<":
		return clause.OpLt, nil
	case "<=":
		return clause.OpLe, nil
	case ">":
		return clause.OpGt, nil
	case ">=":
		return clause.OpGe, nil
	default:
		return clause.OpEq, clause.NewMissingHandlerError(fmt.Sprintf("unrecognized operator %q", s))
	}
}

// literalValue converts a syntax-tree value into a clause.Value. Property
// references as operands (property-to-property comparison) are not
// supported by any backend and are rejected here.
func literalValue(v *filter.Value, property, operator string) (clause.Value, error) {
	switch {
	case v == nil:
		return nil, clause.NewMissingHandlerError("comparison with no operand value")
	case v.String != nil:
		return clause.String(norm.NFC.String(*v.String)), nil
	case v.Int != nil:
		return clause.Int(*v.Int), nil
	case v.Float != nil:
		return clause.Float(*v.Float), nil
	case v.Property != nil:
		return nil, clause.NewUnsupportedOperatorError(operator, property,
			fmt.Sprintf("comparisons against another property (%s) are not supported", v.Property.Path))
	default:
		return nil, clause.NewMissingHandlerError("operand value with no recognized variant")
	}
}

// constantValue converts the literal of a constant-first comparison.
func constantValue(c *filter.Constant) (clause.Value, error) {
	switch {
	case c == nil:
		return nil, clause.NewMissingHandlerError("constant-first comparison with no constant")
	case c.String != nil:
		return clause.String(norm.NFC.String(*c.String)), nil
	case c.Int != nil:
		return clause.Int(*c.Int), nil
	case c.Float != nil:
		return clause.Float(*c.Float), nil
	default:
		return nil, clause.NewMissingHandlerError("constant with no recognized variant")
	}
}
