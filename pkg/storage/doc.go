// Package storage defines the persistence contract of the catalog and the
// tagged error type every adapter reports failures with.
//
// Adapters (memory, postgres) classify their native failures into a [Kind]
// so that callers can react to uniqueness, foreign-key and not-found
// conditions without knowing which database sits underneath.
package storage
