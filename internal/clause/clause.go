package clause

// Kind classifies the declared type of a quantity. It decides which
// operators a property supports and how backends encode its values.
type Kind int

const (
	// KindUnknown is the zero value; the mapper never produces it for a
	// resolvable property.
	KindUnknown Kind = iota
	KindString
	KindInt
	KindFloat
	KindBool
	KindTimestamp
	KindListString
	KindListInt
	KindListFloat
)

// IsList reports whether k is a list-valued kind.
func (k Kind) IsList() bool {
	return k == KindListString || k == KindListInt || k == KindListFloat
}

// Element returns the element kind of a list kind, or KindUnknown for
// scalar kinds.
func (k Kind) Element() Kind {
	switch k {
	case KindListString:
		return KindString
	case KindListInt:
		return KindInt
	case KindListFloat:
		return KindFloat
	default:
		return KindUnknown
	}
}

// IsNumeric reports whether k is an int or float scalar.
func (k Kind) IsNumeric() bool {
	return k == KindInt || k == KindFloat
}

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindTimestamp:
		return "timestamp"
	case KindListString:
		return "list of string"
	case KindListInt:
		return "list of int"
	case KindListFloat:
		return "list of float"
	default:
		return "unknown"
	}
}

// Op is a relational comparison operator.
type Op int

const (
	OpEq Op = iota
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
)

// Invert returns the logical negation of op (= becomes !=, < becomes >=).
func (op Op) Invert() Op {
	switch op {
	case OpEq:
		return OpNe
	case OpNe:
		return OpEq
	case OpLt:
		return OpGe
	case OpLe:
		return OpGt
	case OpGt:
		return OpLe
	case OpGe:
		return OpLt
	default:
		return op
	}
}

// Flip returns the operator with its operands swapped (< becomes >).
// Used to normalize constant-first comparisons to property-first form.
func (op Op) Flip() Op {
	switch op {
	case OpLt:
		return OpGt
	case OpLe:
		return OpGe
	case OpGt:
		return OpLt
	case OpGe:
		return OpLe
	default:
		return op // = and != are symmetric
	}
}

func (op Op) String() string {
	switch op {
	case OpEq:
		return "="
	case OpNe:
		return "!="
	case OpLt:
		return "<"
	case OpLe:
		return "<="
	case OpGt:
		return ">"
	case OpGe:
		return ">="
	default:
		return "?"
	}
}

// SetMode selects the set-membership semantics of a Membership clause.
type SetMode int

const (
	// SetHas matches when the list contains at least one element matching
	// the single value.
	SetHas SetMode = iota
	// SetAll matches when every listed value is contained.
	SetAll
	// SetAny matches when at least one listed value is contained.
	SetAny
	// SetOnly matches when the list contains exactly the listed values and
	// nothing else: a cardinality predicate AND an all-match predicate.
	SetOnly
)

func (m SetMode) String() string {
	switch m {
	case SetHas:
		return "HAS"
	case SetAll:
		return "HAS ALL"
	case SetAny:
		return "HAS ANY"
	case SetOnly:
		return "HAS ONLY"
	default:
		return "HAS ?"
	}
}

// MatchKind selects the fuzzy string predicate variant.
type MatchKind int

const (
	MatchContains MatchKind = iota
	MatchStartsWith
	MatchEndsWith
)

func (m MatchKind) String() string {
	switch m {
	case MatchContains:
		return "CONTAINS"
	case MatchStartsWith:
		return "STARTS WITH"
	case MatchEndsWith:
		return "ENDS WITH"
	default:
		return "?"
	}
}

// Property is a fully resolved property reference. The transformer fills it
// from the Resource Mapper; backend compilers never consult the mapper
// themselves.
type Property struct {
	// Name is the logical, dotted API name as written in the filter.
	Name string

	// Field is the physical backend field name after alias resolution.
	Field string

	// Kind is the declared quantity type.
	Kind Kind

	// LengthField is the physical name of the maintained length sibling for
	// list quantities, or "" when none is configured.
	LengthField string

	// Text marks analyzed text fields. The search-engine backend addresses
	// exact matches on these through the non-analyzed sub-field variant.
	Text bool
}

// Clause is a sealed interface representing one node of the normalized
// filter tree. Only types in this package implement it.
type Clause interface {
	clauseNode() // Sealed - only types in this package implement it
}

// And is an n-ary conjunction. Operands preserve filter order.
type And struct {
	Operands []Clause
}

func (And) clauseNode() {}

// Or is an n-ary disjunction. Operands preserve filter order.
type Or struct {
	Operands []Clause
}

func (Or) clauseNode() {}

// Not negates its single operand.
type Not struct {
	Operand Clause
}

func (Not) clauseNode() {}

// Comparison is a property-first relational comparison against a literal.
// The transformer has already flipped constant-first input, so the property
// is always on the left.
type Comparison struct {
	Property Property
	Op       Op
	Value    Value
}

func (Comparison) clauseNode() {}

// ValueMatch is one element of a membership value list: an optional
// relational operator (OpEq when the filter gave none) and a literal.
type ValueMatch struct {
	Op    Op
	Value Value
}

// Membership is a set operator applied to a single list property.
type Membership struct {
	Property Property
	Mode     SetMode
	Values   []ValueMatch
}

func (Membership) clauseNode() {}

// ZipMembership is a set operator addressed jointly to two or more
// correlated list properties, compared positionally. Each tuple has exactly
// one ValueMatch per property.
type ZipMembership struct {
	Properties []Property
	Mode       SetMode
	Tuples     [][]ValueMatch
}

func (ZipMembership) clauseNode() {}

// Known is the IS KNOWN / IS UNKNOWN predicate. Known=false must match both
// a record where the field is entirely absent and a record where it is
// present with an explicit null, which is not the same thing as negating
// an equality.
type Known struct {
	Property Property
	Known    bool
}

func (Known) clauseNode() {}

// Match is a fuzzy string predicate (CONTAINS / STARTS WITH / ENDS WITH).
type Match struct {
	Property Property
	Kind     MatchKind
	Value    string
}

func (Match) clauseNode() {}

// Length compares the cardinality of a list property against an integer.
type Length struct {
	Property Property
	Op       Op
	Value    int64
}

func (Length) clauseNode() {}
