// Package queryelastic compiles clause trees into search-engine queries.
//
// The compiler mirrors querymongo's shape: a single type switch over the
// sealed clause variants, with negation pushed down to the leaves. Unlike
// the document store, the search engine has a first-class negation
// (bool must_not), so most negated leaves wrap their positive form instead
// of emitting a hand-inverted translation.
//
// Two translations depend on the index mapping:
//
//   - Exact matches on full-text properties target the ".keyword"
//     sub-field; querying the analyzed field with a term query would
//     tokenize the stored value and silently match nothing.
//   - LENGTH has no native predicate. It compiles against the property's
//     length alias (a separately indexed integer field); a LENGTH filter on
//     a property without one is an unsupported-operator error, not a guess.
//
// Query objects are built with the olivere/elastic DSL and serialize to
// the request body via their Source method.
package queryelastic
