package querymongo

import (
	"fmt"
	"regexp"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Materials-Consortia/optimade-go/internal/clause"
)

// Compile converts a clause tree into a document-store query.
// The result is owned by the caller and never mutated afterwards.
func Compile(c clause.Clause) (bson.D, error) {
	return compile(c, false)
}

// compile dispatches on the clause kind, carrying the accumulated negation
// so every leaf emits its native negated form.
func compile(c clause.Clause, negated bool) (bson.D, error) {
	switch node := c.(type) {
	case clause.And:
		return compileBoolean(node.Operands, negated, "$and", "$or")
	case clause.Or:
		return compileBoolean(node.Operands, negated, "$or", "$and")
	case clause.Not:
		return compile(node.Operand, !negated)
	case clause.Comparison:
		return compileComparison(node, negated)
	case clause.Membership:
		return compileMembership(node, negated)
	case clause.ZipMembership:
		return nil, clause.NewUnsupportedOperatorError(node.Mode.String(), zipNames(node),
			"correlated (zipped) set operations are not supported by the document-store backend")
	case clause.Known:
		return compileKnown(node.Property, node.Known != negated), nil
	case clause.Match:
		return compileMatch(node, negated)
	case clause.Length:
		return compileLength(node, negated)
	default:
		return nil, clause.NewMissingHandlerError(fmt.Sprintf("document-store backend has no handler for %T", c))
	}
}

// compileBoolean emits an n-ary combinator, applying De Morgan when the
// chain is negated. Operand order is preserved.
func compileBoolean(operands []clause.Clause, negated bool, op, negOp string) (bson.D, error) {
	key := op
	if negated {
		key = negOp
	}
	parts := make(bson.A, 0, len(operands))
	for _, operand := range operands {
		part, err := compile(operand, negated)
		if err != nil {
			return nil, err
		}
		parts = append(parts, part)
	}
	return bson.D{{Key: key, Value: parts}}, nil
}

func compileComparison(c clause.Comparison, negated bool) (bson.D, error) {
	op := c.Op
	if negated {
		op = op.Invert()
	}

	// Float (in)equality is widened to the documented tolerance interval
	// rather than compiled as an exact value match.
	if f, ok := c.Value.(clause.Float); ok && (op == clause.OpEq || op == clause.OpNe) {
		return compileFloatEquality(c.Property.Field, float64(f), op == clause.OpEq), nil
	}

	doc := bson.D{{Key: c.Property.Field, Value: bson.D{{Key: mongoOp(op), Value: clause.Native(c.Value)}}}}
	if op == clause.OpNe {
		// $ne alone also matches documents where the field is absent or
		// null; a record with the property unknown must satisfy neither a
		// comparison nor its negation.
		return knownGuard(c.Property.Field, doc), nil
	}
	return doc, nil
}

// knownGuard conjoins a present-and-non-null check onto a negated leaf.
// Records with the property unknown fall outside both the predicate and
// its negation, matching the relational backend's NULL semantics.
func knownGuard(field string, d bson.D) bson.D {
	return bson.D{{Key: "$and", Value: bson.A{
		bson.D{{Key: field, Value: bson.D{{Key: "$exists", Value: true}}}},
		bson.D{{Key: field, Value: bson.D{{Key: "$ne", Value: nil}}}},
		d,
	}}}
}

// compileFloatEquality emits the closed interval [v-tol, v+tol] for
// equality and its complement for inequality.
func compileFloatEquality(field string, v float64, equal bool) bson.D {
	lo, hi := clause.FloatBounds(v)
	if equal {
		return bson.D{{Key: field, Value: bson.D{
			{Key: "$gte", Value: lo},
			{Key: "$lte", Value: hi},
		}}}
	}
	return bson.D{{Key: "$or", Value: bson.A{
		bson.D{{Key: field, Value: bson.D{{Key: "$lt", Value: lo}}}},
		bson.D{{Key: field, Value: bson.D{{Key: "$gt", Value: hi}}}},
	}}}
}

func mongoOp(op clause.Op) string {
	switch op {
	case clause.OpEq:
		return "$eq"
	case clause.OpNe:
		return "$ne"
	case clause.OpLt:
		return "$lt"
	case clause.OpLe:
		return "$lte"
	case clause.OpGt:
		return "$gt"
	case clause.OpGe:
		return "$gte"
	default:
		return "$eq"
	}
}

// compileKnown emits the three-valued known/unknown predicates. Unknown
// must match both an absent field and a field explicitly set to null; the
// storage layer conflates the two, the protocol does not, so both arms are
// spelled out.
func compileKnown(p clause.Property, known bool) bson.D {
	if known {
		return bson.D{{Key: "$and", Value: bson.A{
			bson.D{{Key: p.Field, Value: bson.D{{Key: "$exists", Value: true}}}},
			bson.D{{Key: p.Field, Value: bson.D{{Key: "$ne", Value: nil}}}},
		}}}
	}
	return bson.D{{Key: "$or", Value: bson.A{
		bson.D{{Key: p.Field, Value: bson.D{{Key: "$exists", Value: false}}}},
		bson.D{{Key: p.Field, Value: bson.D{{Key: "$eq", Value: nil}}}},
	}}}
}

func compileMatch(m clause.Match, negated bool) (bson.D, error) {
	var pattern string
	escaped := regexp.QuoteMeta(m.Value)
	switch m.Kind {
	case clause.MatchContains:
		pattern = escaped
	case clause.MatchStartsWith:
		pattern = "^" + escaped
	case clause.MatchEndsWith:
		pattern = escaped + "$"
	default:
		return nil, clause.NewMissingHandlerError(fmt.Sprintf("document-store backend has no handler for match kind %v", m.Kind))
	}

	if negated {
		// $not does not accept the $regex string form; a regex object is
		// required.
		return knownGuard(m.Property.Field, bson.D{{Key: m.Property.Field, Value: bson.D{
			{Key: "$not", Value: primitive.Regex{Pattern: pattern}},
		}}}), nil
	}
	return bson.D{{Key: m.Property.Field, Value: bson.D{{Key: "$regex", Value: pattern}}}}, nil
}

func compileMembership(m clause.Membership, negated bool) (bson.D, error) {
	switch m.Mode {
	case clause.SetHas, clause.SetAny:
		return compileHasAny(m, negated)
	case clause.SetAll:
		return compileHasAll(m, negated)
	case clause.SetOnly:
		return compileHasOnly(m, negated)
	default:
		return nil, clause.NewMissingHandlerError(fmt.Sprintf("document-store backend has no handler for set mode %v", m.Mode))
	}
}

// equalityValues extracts the plain values when every list element uses
// (implicit) equality; ok is false as soon as any element carries an
// operator.
func equalityValues(values []clause.ValueMatch) (bson.A, bool) {
	out := make(bson.A, 0, len(values))
	for _, vm := range values {
		if vm.Op != clause.OpEq {
			return nil, false
		}
		if _, isFloat := vm.Value.(clause.Float); isFloat {
			// Float elements need the tolerance interval, which $in/$all
			// cannot express.
			return nil, false
		}
		out = append(out, clause.Native(vm.Value))
	}
	return out, true
}

// elemMatchDoc builds the $elemMatch body for one operator-signed element.
func elemMatchDoc(vm clause.ValueMatch) bson.D {
	if f, ok := vm.Value.(clause.Float); ok && (vm.Op == clause.OpEq || vm.Op == clause.OpNe) {
		lo, hi := clause.FloatBounds(float64(f))
		if vm.Op == clause.OpEq {
			return bson.D{{Key: "$gte", Value: lo}, {Key: "$lte", Value: hi}}
		}
		// Element-wise != within the tolerance interval.
		return bson.D{{Key: "$not", Value: bson.D{{Key: "$gte", Value: lo}, {Key: "$lte", Value: hi}}}}
	}
	return bson.D{{Key: mongoOp(vm.Op), Value: clause.Native(vm.Value)}}
}

func compileHasAny(m clause.Membership, negated bool) (bson.D, error) {
	if values, plain := equalityValues(m.Values); plain {
		if negated {
			// $nin also matches documents missing the field.
			return knownGuard(m.Property.Field,
				bson.D{{Key: m.Property.Field, Value: bson.D{{Key: "$nin", Value: values}}}}), nil
		}
		return bson.D{{Key: m.Property.Field, Value: bson.D{{Key: "$in", Value: values}}}}, nil
	}

	// Operator-signed elements: one $elemMatch per value, any may match.
	parts := make(bson.A, 0, len(m.Values))
	for _, vm := range m.Values {
		leaf := bson.D{{Key: m.Property.Field, Value: bson.D{{Key: "$elemMatch", Value: elemMatchDoc(vm)}}}}
		if negated {
			leaf = bson.D{{Key: m.Property.Field, Value: bson.D{
				{Key: "$not", Value: bson.D{{Key: "$elemMatch", Value: elemMatchDoc(vm)}}},
			}}}
		}
		parts = append(parts, leaf)
	}
	var doc bson.D
	if len(parts) == 1 {
		doc = parts[0].(bson.D)
	} else if negated {
		doc = bson.D{{Key: "$and", Value: parts}} // NOT (a OR b) == (NOT a) AND (NOT b)
	} else {
		doc = bson.D{{Key: "$or", Value: parts}}
	}
	if negated {
		doc = knownGuard(m.Property.Field, doc)
	}
	return doc, nil
}

func compileHasAll(m clause.Membership, negated bool) (bson.D, error) {
	if values, plain := equalityValues(m.Values); plain {
		if negated {
			return knownGuard(m.Property.Field, bson.D{{Key: m.Property.Field, Value: bson.D{
				{Key: "$not", Value: bson.D{{Key: "$all", Value: values}}},
			}}}), nil
		}
		return bson.D{{Key: m.Property.Field, Value: bson.D{{Key: "$all", Value: values}}}}, nil
	}

	parts := make(bson.A, 0, len(m.Values))
	for _, vm := range m.Values {
		leaf := bson.D{{Key: m.Property.Field, Value: bson.D{{Key: "$elemMatch", Value: elemMatchDoc(vm)}}}}
		if negated {
			leaf = bson.D{{Key: m.Property.Field, Value: bson.D{
				{Key: "$not", Value: bson.D{{Key: "$elemMatch", Value: elemMatchDoc(vm)}}},
			}}}
		}
		parts = append(parts, leaf)
	}
	var doc bson.D
	if len(parts) == 1 {
		doc = parts[0].(bson.D)
	} else if negated {
		doc = bson.D{{Key: "$or", Value: parts}} // NOT (a AND b) == (NOT a) OR (NOT b)
	} else {
		doc = bson.D{{Key: "$and", Value: parts}}
	}
	if negated {
		doc = knownGuard(m.Property.Field, doc)
	}
	return doc, nil
}

// compileHasOnly emits the two-part HAS ONLY translation: the list has
// exactly as many elements as given values AND every given value is
// contained. The negation distributes into an $or of the negated parts;
// wrapping the conjunction in a generic $not is not expressible here.
func compileHasOnly(m clause.Membership, negated bool) (bson.D, error) {
	values, plain := equalityValues(m.Values)
	if !plain {
		return nil, clause.NewUnsupportedOperatorError(m.Mode.String(), m.Property.Name,
			"HAS ONLY supports plain equality values only")
	}
	n := len(values)

	if negated {
		return knownGuard(m.Property.Field, bson.D{{Key: "$or", Value: bson.A{
			bson.D{{Key: m.Property.Field, Value: bson.D{
				{Key: "$not", Value: bson.D{{Key: "$size", Value: n}}},
			}}},
			bson.D{{Key: m.Property.Field, Value: bson.D{
				{Key: "$not", Value: bson.D{{Key: "$all", Value: values}}},
			}}},
		}}}), nil
	}
	return bson.D{{Key: "$and", Value: bson.A{
		bson.D{{Key: m.Property.Field, Value: bson.D{{Key: "$size", Value: n}}}},
		bson.D{{Key: m.Property.Field, Value: bson.D{{Key: "$all", Value: values}}}},
	}}}, nil
}

// compileLength translates list-cardinality predicates. The store has an
// exact $size match but no relational form, so strict bounds use the
// "element at index N exists" phrasing instead.
func compileLength(l clause.Length, negated bool) (bson.D, error) {
	op := l.Op
	if negated {
		op = op.Invert()
	}

	// The $not forms also match documents missing the field, so they carry
	// the known guard; the positive forms cannot match an absent list.
	switch op {
	case clause.OpEq:
		return bson.D{{Key: l.Property.Field, Value: bson.D{{Key: "$size", Value: l.Value}}}}, nil
	case clause.OpNe:
		return knownGuard(l.Property.Field, bson.D{{Key: l.Property.Field, Value: bson.D{
			{Key: "$not", Value: bson.D{{Key: "$size", Value: l.Value}}},
		}}}), nil
	case clause.OpGt:
		return lengthAtLeast(l.Property.Field, l.Value+1), nil
	case clause.OpGe:
		return lengthAtLeast(l.Property.Field, l.Value), nil
	case clause.OpLt:
		return knownGuard(l.Property.Field, notDoc(lengthAtLeast(l.Property.Field, l.Value))), nil
	case clause.OpLe:
		return knownGuard(l.Property.Field, notDoc(lengthAtLeast(l.Property.Field, l.Value+1))), nil
	default:
		return nil, clause.NewMissingHandlerError(fmt.Sprintf("document-store backend has no handler for length operator %v", l.Op))
	}
}

// lengthAtLeast matches lists with at least n elements: element n-1 exists.
func lengthAtLeast(field string, n int64) bson.D {
	if n <= 0 {
		return bson.D{{Key: field, Value: bson.D{{Key: "$exists", Value: true}}}}
	}
	idx := fmt.Sprintf("%s.%d", field, n-1)
	return bson.D{{Key: idx, Value: bson.D{{Key: "$exists", Value: true}}}}
}

// notDoc inverts a single {field: predicate} document in place.
func notDoc(d bson.D) bson.D {
	elem := d[0]
	return bson.D{{Key: elem.Key, Value: bson.D{{Key: "$not", Value: elem.Value}}}}
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
