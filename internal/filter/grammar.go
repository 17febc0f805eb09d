package filter

import (
	"github.com/alecthomas/participle/v2/lexer"
)

// filterLexer tokenizes filter strings. Rule order matters: strings and
// numbers before operators, keywords before identifiers. Keywords are
// uppercase and identifiers lowercase, so the two never collide.
var filterLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Whitespace", Pattern: `\s+`},
	{Name: "String", Pattern: `"(\\.|[^"\\])*"`},
	{Name: "Float", Pattern: `[+-]?(\d+\.\d*|\.\d+)([eE][+-]?\d+)?|[+-]?\d+[eE][+-]?\d+`},
	{Name: "Int", Pattern: `[+-]?\d+`},
	{Name: "Operator", Pattern: `<=|>=|!=|=|<|>`},
	{Name: "Keyword", Pattern: `AND|OR|NOT|HAS|ALL|ANY|ONLY|LENGTH|IS|KNOWN|UNKNOWN|CONTAINS|STARTS|ENDS|WITH`},
	{Name: "Ident", Pattern: `[a-z_][a-z_0-9]*(\.[a-z_][a-z_0-9]*)*`},
	{Name: "Punct", Pattern: `[(),:]`},
})

// Filter is the top-level production. The entire input must reduce to one
// Filter; trailing tokens are a syntax error.
type Filter struct {
	Expr *Expression `parser:"@@" json:"expr"`
}

// Expression is a disjunction of terms: term ( OR term )*.
type Expression struct {
	Left  *Term   `parser:"@@" json:"left"`
	Right []*Term `parser:"( 'OR' @@ )*" json:"right,omitempty"`
}

// Term is a conjunction of phrases: phrase ( AND phrase )*.
type Term struct {
	Left  *Phrase   `parser:"@@" json:"left"`
	Right []*Phrase `parser:"( 'AND' @@ )*" json:"right,omitempty"`
}

// Phrase is an optionally negated comparison or parenthesized expression.
type Phrase struct {
	Not        bool        `parser:"@'NOT'?" json:"not,omitempty"`
	Group      *Expression `parser:"( '(' @@ ')'" json:"group,omitempty"`
	Comparison *Comparison `parser:"| @@ )" json:"comparison,omitempty"`
}

// Comparison is either constant-first ("3 < nelements") or property-first
// ("nelements > 3"). The first token disambiguates: constants are string or
// number literals, properties are identifiers.
type Comparison struct {
	ConstantFirst *ConstantFirst `parser:"  @@" json:"constant_first,omitempty"`
	PropertyFirst *PropertyFirst `parser:"| @@" json:"property_first,omitempty"`
}

// ConstantFirst is a comparison with the literal on the left.
// Only relational operators are legal in this form.
type ConstantFirst struct {
	Pos lexer.Position `parser:"" json:"-"`

	Value    *Constant `parser:"@@" json:"value"`
	Op       string    `parser:"@Operator" json:"op"`
	Property *Property `parser:"@@" json:"property"`
}

// PropertyFirst is a comparison with the property on the left. The optional
// colon-separated zip addon names further correlated properties; it is only
// meaningful in front of a set operator, which the transformer enforces.
type PropertyFirst struct {
	Property *Property   `parser:"@@" json:"property"`
	Zip      []*Property `parser:"( ':' @@ )*" json:"zip,omitempty"`
	RHS      *OpRHS      `parser:"@@" json:"rhs"`
}

// OpRHS is the right-hand side of a property-first comparison. Each
// alternative starts with a distinct token, keeping the grammar LL(1).
type OpRHS struct {
	Relation *ValueOpRHS  `parser:"  @@" json:"relation,omitempty"`
	Known    *KnownOpRHS  `parser:"| @@" json:"known,omitempty"`
	Fuzzy    *FuzzyOpRHS  `parser:"| @@" json:"fuzzy,omitempty"`
	Set      *SetOpRHS    `parser:"| @@" json:"set,omitempty"`
	Length   *LengthOpRHS `parser:"| @@" json:"length,omitempty"`
}

// ValueOpRHS is a relational operator and operand: "> 3".
type ValueOpRHS struct {
	Op    string `parser:"@Operator" json:"op"`
	Value *Value `parser:"@@" json:"value"`
}

// KnownOpRHS is the IS KNOWN / IS UNKNOWN predicate.
type KnownOpRHS struct {
	Known   bool `parser:"'IS' ( @'KNOWN'" json:"known,omitempty"`
	Unknown bool `parser:"| @'UNKNOWN' )" json:"unknown,omitempty"`
}

// FuzzyOpRHS is a fuzzy string predicate. The WITH in STARTS WITH and
// ENDS WITH is optional in every supported dialect.
type FuzzyOpRHS struct {
	Contains *Value `parser:"  'CONTAINS' @@" json:"contains,omitempty"`
	Starts   *Value `parser:"| 'STARTS' 'WITH'? @@" json:"starts,omitempty"`
	Ends     *Value `parser:"| 'ENDS' 'WITH'? @@" json:"ends,omitempty"`
}

// SetOpRHS is a set-membership operator. The bare form takes a single
// tuple; ALL/ANY/ONLY take a comma-separated list. Tuples carry more than
// one value only after a zip addon.
type SetOpRHS struct {
	All    []*ValueTuple `parser:"'HAS' ( 'ALL' @@ ( ',' @@ )*" json:"all,omitempty"`
	Any    []*ValueTuple `parser:"| 'ANY' @@ ( ',' @@ )*" json:"any,omitempty"`
	Only   []*ValueTuple `parser:"| 'ONLY' @@ ( ',' @@ )*" json:"only,omitempty"`
	Single *ValueTuple   `parser:"| @@ )" json:"single,omitempty"`
}

// LengthOpRHS compares list cardinality: "LENGTH = 2" or the bare
// "LENGTH 2" equality form.
type LengthOpRHS struct {
	Pos lexer.Position `parser:"" json:"-"`

	Op    string `parser:"'LENGTH' @Operator?" json:"op,omitempty"`
	Value *Value `parser:"@@" json:"value"`
}

// ValueTuple is one element of a set-operator value list: a single
// optionally-signed value, or a colon-separated zipped tuple of them.
type ValueTuple struct {
	First *OptValue   `parser:"@@" json:"first"`
	Rest  []*OptValue `parser:"( ':' @@ )*" json:"rest,omitempty"`
}

// OptValue is a value with an optional individual comparison operator, as
// in HAS ANY >2, <5.
type OptValue struct {
	Op    string `parser:"@Operator?" json:"op,omitempty"`
	Value *Value `parser:"@@" json:"value"`
}

// Value is a literal or a property reference used as an operand.
type Value struct {
	String   *string   `parser:"  @String" json:"string,omitempty"`
	Float    *float64  `parser:"| @Float" json:"float,omitempty"`
	Int      *int64    `parser:"| @Int" json:"int,omitempty"`
	Property *Property `parser:"| @@" json:"property,omitempty"`
}

// Constant is a literal on the left of a constant-first comparison.
// Unlike Value it can never be a property reference.
type Constant struct {
	String *string  `parser:"  @String" json:"string,omitempty"`
	Float  *float64 `parser:"| @Float" json:"float,omitempty"`
	Int    *int64   `parser:"| @Int" json:"int,omitempty"`
}

// Property is a dotted-path identifier naming a logical field. The lexer
// keeps the whole path in one token.
type Property struct {
	Path string `parser:"@Ident" json:"path"`
}
