// Package mapper implements the Resource Mapper: the bidirectional
// field-name and type translation layer between the API's logical schema
// and a backend's physical storage schema.
//
// A Mapper is constructed once per entry type from a static Config and is
// immutable afterwards. Every table is deep-copied at construction and
// there is no lazily-populated state of any kind: a Mapper can be shared
// read-only across concurrent transformations, and two Mappers for
// different entry types can never bleed aliases into each other. (The
// lineage of this design is a defect class where a memoized per-instance
// cache was accidentally shared globally, corrupting resolution for one
// entry type with another's aliases. Immutable-after-construction tables
// rule that out by construction.)
//
// Responsibilities:
//   - logical name → physical field (aliases, identity when unaliased)
//   - physical field → logical name (the inverse table)
//   - logical list field → its maintained length sibling, for backends
//     that cannot compute array cardinality in a query
//   - provider-namespaced custom fields (declared under a provider prefix,
//     surfaced as _<prefix>_<name>)
//   - the quantity-type table: the declared Kind of every logical field,
//     which the transformer uses for operator/operand shape checking
//   - declared zip groups: sets of correlated list properties that may be
//     addressed jointly by positional set operators
package mapper
