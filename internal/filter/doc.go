// Package filter defines the filter language grammar and the parser that
// turns a filter string into a syntax tree.
//
// The grammar is declared as data: a lexer rule table plus a set of
// annotated production structs compiled by alecthomas/participle into a
// parser. A single parser covering the full grammar is built at package
// initialization and reused for every parse call; version dialects are
// enforced by a post-parse walk that rejects constructs the selected
// version does not allow. The compiled parser is read-only and safe for
// concurrent use.
//
// The syntax tree is the tree of production structs below (Filter,
// Expression, Term, ...). It is immutable once Parse returns and carries no
// schema knowledge: property references are resolved later, by the
// transformer, against the Resource Mapper.
//
// Operator precedence, loosest to tightest: OR, AND, NOT. Parentheses
// override. Comparisons may be property-first ("nelements > 3") or
// constant-first ("3 < nelements"); the parser accepts both and the
// transformer normalizes to property-first form.
//
// Any input not derivable from the selected grammar version fails with a
// *SyntaxError carrying the position and offending fragment. Partial
// matches are rejected: the whole input must be consumed by a single
// top-level filter production.
package filter
