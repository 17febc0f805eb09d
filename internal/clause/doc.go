// Package clause provides the normalized, backend-agnostic intermediate
// representation for parsed filter expressions.
//
// This package contains type definitions and the shared transform error
// taxonomy only. All other internal packages import clause; clause imports
// nothing internal. This keeps the IR the foundational layer with no
// circular dependencies.
//
// A Clause tree is produced by the transformer (internal/transform) from a
// parsed filter and consumed by exactly one backend compiler
// (internal/querymongo, internal/queryelastic, internal/querysql). Trees are
// immutable once built: nothing in this repository mutates a Clause after
// the transformer returns it, so a tree may be compiled by several backends
// or shared across goroutines without synchronization.
//
// SEALED INTERFACES:
//
// Clause and Value are sealed interfaces using the marker method pattern.
// Only types in this package implement them. This enables exhaustive type
// switches in the backend compilers: a missing case is a compiler/backend
// version mismatch surfaced as a loud configuration error, never a silent
// partial query.
//
// BOOLEAN SHAPE:
//
// And and Or carry ordered n-ary operand lists, never binary chains. The
// transformer flattens the grammar's left-recursive AND/OR productions into
// a single level, so three consecutive ANDs arrive here as one And with
// three operands. Not carries exactly one operand; backends push negation
// down to the leaves rather than wrapping a generic "not" combinator,
// because several leaves (set membership, known/unknown, fuzzy matches)
// have backend-specific negated forms.
package clause
