// Package collection is the relational entry-collection backend: SQLite
// tables, one per entry type, queried through the filter pipeline.
//
// A Collection owns the database handle and a mapper registry. Find runs
// the whole pipeline for one entry type: parse the filter string,
// transform it against the entry type's mapper, compile it to SQL, execute
// and decode the rows. The SQLite column layout follows the mapper's
// physical field names, with list quantities stored as JSON arrays so
// json_each and json_array_length can serve the set operators.
//
// Relational deployments must keep physical field names column-safe; a
// dotted alias like "properties.band_gap" belongs to the document-store
// backend and is rejected at open time.
//
// Uses WAL mode for concurrent read access with a single writer.
package collection
