// Package querymongo compiles normalized clause trees into document-store
// boolean queries (MongoDB-style bson documents).
//
// Booleans compose as {"$and": [...]}, {"$or": [...]} combinators. NOT is
// never emitted as a generic wrapper: negation is pushed down to the leaves
// during compilation, because several leaves have negated forms that do not
// distribute mechanically:
//
//   - HAS ONLY is a two-part translation (a $size cardinality predicate AND
//     an $all match predicate); its negation must distribute into an $or of
//     the two negated parts, since $not cannot wrap an $and
//   - IS UNKNOWN matches both "field absent" and "field explicitly null"
//     ($exists:false OR $eq:null); its negation is the conjunctive IS KNOWN
//     form, not a $not wrapper
//   - $regex cannot appear under $not in string form; the negated fuzzy
//     predicates use a regex object instead
//
// All documents are built as ordered bson.D so that compiling the same
// clause tree twice yields byte-identical queries.
package querymongo
