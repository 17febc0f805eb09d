// Package config loads the YAML deployment configuration and validates it
// against an embedded CUE schema before any mapper is built.
//
// Validation happens in two layers. CUE checks the document's shape: field
// names, type-name enumerations, the provider prefix pattern. The mapper
// package then checks cross-references (length aliases point at declared
// int quantities, zip groups name declared list quantities) that a schema
// cannot see. A document that passes both layers cannot produce a
// half-configured registry.
package config
