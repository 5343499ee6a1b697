// Package types defines the Store and Tx interfaces, the sheet, cell, query
// and write shapes, and the standard error types for Gridbook.
//
// Everything in this package is plain data plus validation. Storage lives in
// internal/sqlstore and internal/memory; typing rules live in internal/rules.
package types
