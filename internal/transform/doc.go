// Package transform implements the base transformer: the backend-agnostic
// walk that turns a parsed filter tree into a normalized clause tree.
//
// The walk visits every syntax node exactly once, bottom-up, and performs
// the generic concerns every backend needs:
//
//   - alias resolution: every property reference is resolved against the
//     Resource Mapper; an unresolvable name is an UNKNOWN_PROPERTY user
//     error, surfaced before any backend-specific dispatch
//   - flattening: the grammar's left-recursive AND/OR chains become single
//     n-ary clause.And / clause.Or nodes
//   - normalization: constant-first comparisons are rewritten to
//     property-first form by flipping the operator, so backends only ever
//     see the property on the left
//   - quantity-type checking: the mapper's type table decides which
//     operators a property admits (set operators need lists, fuzzy matches
//     need strings, LENGTH needs a list, ...); violations are
//     UNSUPPORTED_OPERATOR user errors
//   - zip validation: zipped set operations must address a declared
//     correlated group and every value tuple must align element-wise with
//     the property list
//   - string canonicalization: string literals are NFC-normalized so
//     backends compare against one canonical encoding
//
// Transforming is pure: a Transformer holds only its mapper reference and
// may be shared across goroutines, and transforming the same tree twice
// yields structurally identical clause trees.
package transform
